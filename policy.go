package sessionless

import "net/http"

type policyMode uint8

const (
	policyPropagate policyMode = iota
	policySuppress
	policyCustom
)

// VerificationErrorHandler observes a verification failure. Returning nil
// lets the request continue unauthenticated; returning an error propagates
// it and halts the request.
type VerificationErrorHandler func(w http.ResponseWriter, r *http.Request, err error) error

// VerificationPolicy decides what happens when a candidate token fails
// verification. The zero value propagates the failure.
type VerificationPolicy struct {
	mode    policyMode
	handler VerificationErrorHandler
}

// PropagateVerificationErrors returns the default policy.
func PropagateVerificationErrors() VerificationPolicy {
	return VerificationPolicy{mode: policyPropagate}
}

// SuppressVerificationErrors treats invalid tokens as absent.
func SuppressVerificationErrors() VerificationPolicy {
	return VerificationPolicy{mode: policySuppress}
}

// HandleVerificationErrors routes failures to h.
func HandleVerificationErrors(h VerificationErrorHandler) VerificationPolicy {
	return VerificationPolicy{mode: policyCustom, handler: h}
}

func (p VerificationPolicy) String() string {
	switch p.mode {
	case policySuppress:
		return "suppress"
	case policyCustom:
		return "custom"
	default:
		return "propagate"
	}
}
