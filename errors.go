package tokenvault

import (
	"errors"

	"github.com/MrEthical07/tokenvault/token"
)

// Codec failures are re-exported so callers match on one package. The values
// are identical to the token package sentinels; errors.Is works across both.
var (
	// ErrMalformed is returned when a token string cannot be parsed.
	ErrMalformed = token.ErrMalformed
	// ErrInvalidSignature is returned when a token signature does not verify.
	ErrInvalidSignature = token.ErrInvalidSignature
	// ErrExpired is returned when a token's signed expiry claim has passed.
	ErrExpired = token.ErrExpired
	// ErrWrongKind is returned when a token of one kind is presented where
	// another kind is expected.
	ErrWrongKind = token.ErrWrongKind
)

var (
	// ErrRevoked is returned when a persisted token's store record is absent
	// or revoked even though signature and expiry are valid.
	ErrRevoked = errors.New("token revoked")
	// ErrTokenConsumed is returned when a single-use token has already been
	// consumed, has been swept, or its consume outcome is unknowable.
	ErrTokenConsumed = errors.New("token already used or expired")
	// ErrTokenNotFound is returned by stores when no matching record exists.
	ErrTokenNotFound = errors.New("token not found")
	// ErrDuplicateToken is returned when saving a token string that already
	// exists in the store.
	ErrDuplicateToken = errors.New("duplicate token")
	// ErrOwnerNotFound is returned when the identity provider knows no owner
	// for the given identifier. Outer layers decide whether to mask it.
	ErrOwnerNotFound = errors.New("owner not found")
	// ErrInvalidCredentials is returned on login failure. It never reveals
	// whether the identifier or the secret was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated wraps every refresh failure so callers can treat
	// the flow uniformly while still matching the precise cause.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrStoreUnavailable wraps transport-level store failures.
	ErrStoreUnavailable = errors.New("token store unavailable")
	// ErrEngineNotReady is returned when an Engine method is called on a nil
	// or unbuilt engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
