// Package mongostore implements the tokenvault Store on MongoDB.
//
// One document per persisted token, keyed by the token string through a
// unique index. Single-use consume maps to findOneAndDelete, which MongoDB
// executes atomically on a single document, so concurrent consumers of the
// same token observe at most one success. A TTL index on expires_at lets
// MongoDB itself act as the expiry sweep; DeleteExpired remains available
// for deployments that disable TTL monitors.
package mongostore
