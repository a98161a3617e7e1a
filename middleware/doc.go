// Package middleware provides authorization guards that run after a
// sessionless.Middleware has authenticated the request.
//
// # Guards
//
//   - [RequireUser] rejects requests without an authenticated user.
//   - [RequireFresh] additionally rejects tokens issued too long ago.
//   - [RequireClaims] admits requests whose claims satisfy a predicate.
//
// Guards only read the request-scoped state bound by the authentication
// middleware; they never parse tokens or call the user store. A request
// that did not pass through the authentication middleware is rejected.
package middleware
