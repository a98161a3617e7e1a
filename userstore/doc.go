// Package userstore holds persistent backends that implement the
// SerializeUser and DeserializeUser callbacks of sessionless.Options.
//
// A store keeps a snapshot of each signed-in user keyed by an id. Serialize
// writes the snapshot and returns the id, which becomes the token subject;
// Deserialize loads it back and reports sessionless.ErrUserNotFound when the
// snapshot is gone, so deleting a user's record effectively revokes every
// token issued for it.
//
//   - [github.com/MrEthical07/sessionless/userstore/redisstore] uses Redis.
//   - [github.com/MrEthical07/sessionless/userstore/sqlstore] uses database/sql.
package userstore
