package internaldefs

import (
	"github.com/MrEthical07/sessionless"
)

// CounterDef names one counter of [sessionless.Metrics].
type CounterDef struct {
	ID   sessionless.MetricID
	Name string
	Help string
}

// HistogramDef names one histogram of [sessionless.Metrics].
type HistogramDef struct {
	ID   sessionless.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: sessionless.MetricTokenAbsent, Name: "sessionless_token_absent_total", Help: "Requests that carried no token."},
	{ID: sessionless.MetricTokenVerified, Name: "sessionless_token_verified_total", Help: "Tokens that passed verification."},
	{ID: sessionless.MetricVerificationFailure, Name: "sessionless_verification_failure_total", Help: "Tokens that failed verification."},
	{ID: sessionless.MetricVerificationSuppressed, Name: "sessionless_verification_suppressed_total", Help: "Verification failures treated as an absent token."},
	{ID: sessionless.MetricVerificationHandled, Name: "sessionless_verification_handled_total", Help: "Verification failures passed to a custom handler."},
	{ID: sessionless.MetricVerificationPropagated, Name: "sessionless_verification_propagated_total", Help: "Verification failures that halted the request."},
	{ID: sessionless.MetricSubjectMissing, Name: "sessionless_subject_missing_total", Help: "Verified tokens without a subject."},
	{ID: sessionless.MetricUserResolved, Name: "sessionless_user_resolved_total", Help: "Requests with an attached user."},
	{ID: sessionless.MetricUserNotFound, Name: "sessionless_user_not_found_total", Help: "Subjects that no longer resolve to a user."},
	{ID: sessionless.MetricDeserializeFailure, Name: "sessionless_deserialize_failure_total", Help: "User deserialization errors."},
	{ID: sessionless.MetricTokenSigned, Name: "sessionless_token_signed_total", Help: "Issued tokens."},
	{ID: sessionless.MetricSignFailure, Name: "sessionless_sign_failure_total", Help: "Failed signing attempts."},
	{ID: sessionless.MetricCookieIssued, Name: "sessionless_cookie_issued_total", Help: "Token cookies written."},
	{ID: sessionless.MetricCookieRevoked, Name: "sessionless_cookie_revoked_total", Help: "Token cookies cleared."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: sessionless.MetricVerifyLatency, Name: "sessionless_verify_latency_seconds", Help: "Token verification latency."},
}

// HistogramBounds are the bucket upper bounds in seconds, excluding +Inf.
// They mirror the microsecond buckets of sessionless.Metrics.
var HistogramBounds = []float64{
	0.00005,
	0.0001,
	0.00025,
	0.0005,
	0.001,
	0.0025,
	0.005,
}

// HistogramBoundSuffix names each bucket, +Inf included, for exporters
// that flatten buckets into separate instruments.
var HistogramBoundSuffix = []string{
	"0_00005",
	"0_0001",
	"0_00025",
	"0_0005",
	"0_001",
	"0_0025",
	"0_005",
	"inf",
}

// NormalizeBuckets copies raw into a fixed array, zero-filling when raw is
// short or nil.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
