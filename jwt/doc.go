// Package jwt is the default token primitive: it turns [Claims] into a
// compact signed token and back, using golang-jwt with either a shared
// HS256 secret or an Ed25519 key pair.
//
// Verification failures are always reported as [*Error] so callers can
// branch on [ErrorCode] without matching library-specific sentinels.
package jwt
