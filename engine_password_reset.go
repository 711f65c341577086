package tokenvault

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/tokenvault/token"
)

// RequestPasswordReset issues and persists a single-use reset-password token
// for the owner behind identifier, then hands it to the notification sender.
// When the identifier is unknown it returns ErrOwnerNotFound so the
// orchestration layer can skip sending mail — whether to reveal that to the
// network caller is the outer layer's decision, not this one's.
func (e *Engine) RequestPasswordReset(ctx context.Context, identifier string) (string, error) {
	if e == nil || e.identity == nil {
		return "", ErrEngineNotReady
	}

	ownerID, err := e.identity.FindByIdentifier(ctx, identifier)
	if err != nil {
		e.emitAudit(ctx, auditEventPasswordResetRequest, false, "", KindResetPassword.String(), ErrOwnerNotFound)
		return "", ErrOwnerNotFound
	}

	tokenStr, err := e.issuePersisted(ctx, ownerID, token.ResetPassword)
	if err != nil {
		e.emitAudit(ctx, auditEventPasswordResetRequest, false, ownerID, KindResetPassword.String(), err)
		return "", err
	}

	e.metricInc(MetricResetRequest)
	e.emitAudit(ctx, auditEventPasswordResetRequest, true, ownerID, KindResetPassword.String(), nil)
	e.notify(ctx, ownerID, KindResetPassword, tokenStr)

	return tokenStr, nil
}

// ConfirmPasswordReset consumes the reset token, delegates the credential
// update to the identity provider, and revokes every live refresh token for
// the owner so existing sessions must re-authenticate after the credential
// change.
func (e *Engine) ConfirmPasswordReset(ctx context.Context, tokenStr, newSecret string) error {
	if e == nil || e.validator == nil {
		return ErrEngineNotReady
	}

	payload, err := e.validator.VerifyAndConsume(ctx, tokenStr, KindResetPassword)
	if err != nil {
		e.metricInc(MetricResetConfirmFailure)
		if errors.Is(err, ErrTokenConsumed) {
			e.metricInc(MetricConsumeConflict)
		}
		e.emitAudit(ctx, auditEventPasswordResetConfirm, false, "", KindResetPassword.String(), err)
		return err
	}

	if err := e.identity.UpdateSecret(ctx, payload.Subject, newSecret); err != nil {
		e.metricInc(MetricResetConfirmFailure)
		e.emitAudit(ctx, auditEventPasswordResetConfirm, false, payload.Subject, KindResetPassword.String(), err)
		return fmt.Errorf("update secret: %w", err)
	}

	if err := e.LogoutAll(ctx, payload.Subject); err != nil {
		// The credential changed but live sessions remain. Surfacing the
		// failure lets the caller retry the revocation, which is safe.
		e.logger.Warn("tokenvault: session revocation failed after password reset",
			"owner_id", payload.Subject, "error", err)
		return fmt.Errorf("revoke sessions after reset: %w", err)
	}

	e.metricInc(MetricResetConfirmSuccess)
	e.emitAudit(ctx, auditEventPasswordResetConfirm, true, payload.Subject, KindResetPassword.String(), nil)
	return nil
}

// issuePersisted signs a token of the given kind and saves its record.
func (e *Engine) issuePersisted(ctx context.Context, ownerID string, kind token.Kind) (string, error) {
	tokenStr, payload, err := e.codec.Issue(ownerID, kind)
	if err != nil {
		return "", err
	}

	err = e.store.Save(ctx, TokenRecord{
		Token:     tokenStr,
		OwnerID:   ownerID,
		Kind:      kind,
		ExpiresAt: payload.ExpiresAt,
	})
	if err != nil {
		return "", err
	}

	return tokenStr, nil
}
