package tokenvault

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/tokenvault/token"
)

// Validator verifies presented token strings against the codec and, for
// persisted kinds, the store. It is pure orchestration: no mutable state, no
// policy of its own.
type Validator struct {
	codec *token.Codec
	store Store
}

// NewValidator builds a Validator. The store may be nil when only stateless
// verification is needed.
func NewValidator(codec *token.Codec, store Store) *Validator {
	return &Validator{codec: codec, store: store}
}

// VerifyStateless decodes the token and checks its kind claim against
// expected. No store lookup happens: the kind check fires first, so a token
// of the wrong kind is rejected even with a valid signature and expiry.
// Used for access tokens.
func (v *Validator) VerifyStateless(tokenStr string, expected TokenKind) (token.Payload, error) {
	payload, err := v.codec.Decode(tokenStr)
	if err != nil {
		return token.Payload{}, err
	}
	if payload.Kind != expected {
		return token.Payload{}, ErrWrongKind
	}
	return payload, nil
}

// VerifyAndFetch does VerifyStateless then loads the live store record.
// A missing or revoked record fails with ErrRevoked even though signature
// and expiry are valid. Used for refresh tokens.
func (v *Validator) VerifyAndFetch(ctx context.Context, tokenStr string, expected TokenKind) (token.Payload, TokenRecord, error) {
	payload, err := v.VerifyStateless(tokenStr, expected)
	if err != nil {
		return token.Payload{}, TokenRecord{}, err
	}

	record, err := v.store.FindActive(ctx, tokenStr, expected)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return token.Payload{}, TokenRecord{}, ErrRevoked
		}
		return token.Payload{}, TokenRecord{}, err
	}

	return payload, record, nil
}

// VerifyAndConsume does VerifyStateless then atomically consumes the store
// record, guaranteeing the token grants exactly one successful action. Any
// store failure folds into ErrTokenConsumed — an ambiguous consume (for
// example a timeout after the delete may have applied) must not be retried,
// because a retry could double-grant a single-use action. Used for
// reset-password and verify-email tokens.
func (v *Validator) VerifyAndConsume(ctx context.Context, tokenStr string, expected TokenKind) (token.Payload, error) {
	payload, err := v.VerifyStateless(tokenStr, expected)
	if err != nil {
		return token.Payload{}, err
	}

	if _, err := v.store.ConsumeAndDelete(ctx, tokenStr, expected); err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return token.Payload{}, ErrTokenConsumed
		}
		return token.Payload{}, fmt.Errorf("%w: %w", ErrTokenConsumed, err)
	}

	return payload, nil
}
