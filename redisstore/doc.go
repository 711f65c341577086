// Package redisstore implements the tokenvault Store on Redis.
//
// Records are stored as versioned binary values keyed by the SHA-256 of the
// token string, so raw token material never appears in Redis keyspace dumps.
// Every key carries a TTL derived from the token's signed expiry, which makes
// Redis itself the expiry sweep. A per-(owner, kind) index set backs bulk
// revocation.
//
// Single-use consume and revocation run as Lua scripts so the
// read-validate-write sequence is atomic: concurrent consumers of the same
// token observe at most one success.
package redisstore
