// Package tokenvault provides the lifecycle engine for signed auth tokens:
// issuing access/refresh pairs, rotating refresh tokens, and running the
// single-use password-reset and email-verification flows on top of a
// pluggable persistence store.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// tokenvault is the orchestration surface. It exposes [Engine], [Builder],
// [Config], the [Store] and [IdentityProvider] ports, and value types
// (TokenRecord, TokenPair, MetricsSnapshot). Signing and claim validation
// live in the token sub-package; persistence lives behind [Store] with
// MongoDB and Redis implementations under mongostore and redisstore.
//
// # What this package must NOT do
//
//   - Store or compare credentials. Secrets belong to the
//     [IdentityProvider]; the engine only forwards them.
//   - Trust a store record over a signed claim. Expiry and kind are always
//     re-checked from the token itself; the store only adds revocation and
//     single-use state.
//   - Deliver mail or any other side channel. Tokens are handed to a
//     [NotificationSender] and delivery failures never fail the flow.
//
// # Performance contract
//
// VerifyAccess is the hot path. It completes without any store round-trip;
// access tokens are never persisted. Refresh and the single-use confirm
// flows are allowed store round-trips, and the ambiguous outcome of a
// consume is always treated as failure so a grant can never be honored
// twice.
package tokenvault
