// Package token implements the signed-token codec used by tokenvault: encoding and
// decoding of JWT strings that carry a subject, issued-at, expiry, and kind claim.
//
// # Token format
//
// Standard JWS compact serialization signed with HS256 or Ed25519. The kind claim
// ("type") binds a token to exactly one lifecycle: access, refresh, reset-password,
// or verify-email. A token presented to an operation expecting a different kind is
// rejected even when its signature and expiry are valid.
//
// # Architecture boundaries
//
// The codec is stateless and holds only immutable configuration; it is safe for
// concurrent use without synchronization. Expiry is always re-derived from the signed
// claim against the configured clock, never from store state.
//
// # What this package must NOT do
//
//   - Perform any I/O or touch a token store.
//   - Import tokenvault or any of its store packages.
//   - Decide persistence or revocation policy.
package token
