package tokenvault

import (
	"context"
	"time"

	"github.com/MrEthical07/tokenvault/token"
)

// TokenKind is the functional category of a signed token.
type TokenKind = token.Kind

const (
	// KindAccess tokens are short-lived and never persisted.
	KindAccess = token.Access
	// KindRefresh tokens are long-lived, persisted, and rotated on use.
	KindRefresh = token.Refresh
	// KindResetPassword tokens are short-lived, persisted, and single-use.
	KindResetPassword = token.ResetPassword
	// KindVerifyEmail tokens are medium-lived, persisted, and single-use.
	KindVerifyEmail = token.VerifyEmail
)

// TokenRecord is the persisted form of a revocable token. Records exist only
// for the persisted kinds; access tokens stay stateless. The token string is
// the canonical lookup key. After creation the only mutation a record ever
// sees is the Revoked flag flipping to true.
type TokenRecord struct {
	Token     string
	OwnerID   string
	Kind      TokenKind
	ExpiresAt time.Time
	Revoked   bool
}

// TokenPair carries a freshly issued access+refresh pair. It is an ephemeral
// value: each half has an independent lifecycle per its own kind.
type TokenPair struct {
	AccessToken    string
	AccessPayload  token.Payload
	RefreshToken   string
	RefreshPayload token.Payload
}

// Store persists tokens that must be revocable or single-use. Implementations
// must provide atomic consume semantics: two concurrent ConsumeAndDelete calls
// for the same token string observe at most one success.
//
// Implementations return the package sentinels (ErrTokenNotFound,
// ErrDuplicateToken) for state outcomes and wrap transport failures with
// ErrStoreUnavailable.
type Store interface {
	// Save inserts a record. Fails with ErrDuplicateToken when the token
	// string already exists.
	Save(ctx context.Context, record TokenRecord) error

	// FindActive returns the record iff it exists, its kind matches, and it
	// is not revoked. Otherwise ErrTokenNotFound.
	FindActive(ctx context.Context, tokenStr string, kind TokenKind) (TokenRecord, error)

	// Revoke sets Revoked on the record. Revoking an already-revoked record
	// succeeds; a missing record fails with ErrTokenNotFound so callers
	// decide whether absence matters.
	Revoke(ctx context.Context, tokenStr string) error

	// ConsumeAndDelete atomically removes the matching non-revoked record
	// and returns it. Concurrent callers observe at most one success; losers
	// get ErrTokenNotFound.
	ConsumeAndDelete(ctx context.Context, tokenStr string, kind TokenKind) (TokenRecord, error)

	// RevokeAllForOwner bulk-revokes all live records for (ownerID, kind).
	// At-least-once complete; not required to be atomic.
	RevokeAllForOwner(ctx context.Context, ownerID string, kind TokenKind) error

	// DeleteExpired removes records whose expiry predates now. Advisory:
	// expiry is always re-checked from the signed claim at verification
	// time, so this only bounds storage growth.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// IdentityProvider is the external user-credential collaborator. tokenvault
// never stores credentials or user state itself.
type IdentityProvider interface {
	// FindByCredentials resolves an identifier+secret pair to an owner ID.
	// Any failure must be indistinguishable to the network caller; the
	// engine folds all causes into ErrInvalidCredentials.
	FindByCredentials(ctx context.Context, identifier, secret string) (string, error)

	// FindByIdentifier resolves an identifier to an owner ID without a
	// secret, for the forgot-password and verification flows. Returns
	// ErrOwnerNotFound (or any error) when unknown.
	FindByIdentifier(ctx context.Context, identifier string) (string, error)

	// UpdateSecret replaces the owner's credential secret.
	UpdateSecret(ctx context.Context, ownerID, newSecret string) error

	// MarkVerified records that the owner's address has been verified.
	MarkVerified(ctx context.Context, ownerID string) error
}

// NotificationSender delivers a token string out-of-band. The engine never
// inspects delivery success beyond logging.
type NotificationSender interface {
	Send(ctx context.Context, ownerID string, kind TokenKind, tokenStr string) error
}

// NoOpSender discards notifications. Useful when the caller delivers tokens
// through its own channel.
type NoOpSender struct{}

// Send implements NotificationSender.
func (NoOpSender) Send(context.Context, string, TokenKind, string) error { return nil }
