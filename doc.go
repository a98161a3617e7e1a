// Package sessionless authenticates HTTP requests with self-contained signed
// tokens instead of server-side sessions.
//
// A [Middleware] runs once per request. It binds request-scoped helpers
// ([Auth]) to the request context, looks for a token with an ordered
// [Extractor] chain, verifies it, resolves the subject to an application
// user through the host's DeserializeUser callback, and always hands the
// request to the next handler. Authentication failure never blocks a
// request on its own; use the middleware subpackage guards, or check
// [UserFromContext], to reject anonymous callers.
//
// # Lifecycle
//
//	START          bind Auth (Sign, IssueCookie, RevokeCookie) to the context
//	TOKEN_LOOKUP   run the extractor chain; nothing found -> DONE
//	VERIFYING      verify with the Codec; failure handled by VerificationPolicy
//	DESERIALIZING  subject -> user via DeserializeUser; attach on success
//	DONE           call next
//
// The only exits before DONE are propagated errors: verification failures
// under the default policy, a custom verification handler returning an
// error, and DeserializeUser failures. The net/http adapter routes those to
// Options.ErrorHandler and does not call next.
//
// # Concurrency
//
// A Middleware is immutable after [New] and safe for concurrent use. Each
// request gets its own Auth value; nothing else is shared across requests
// except the Metrics counters, which are atomic.
package sessionless
