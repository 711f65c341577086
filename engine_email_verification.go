package tokenvault

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/tokenvault/token"
)

// RequestEmailVerification issues and persists a single-use verify-email
// token for ownerID and hands it to the notification sender. Registration
// flows call this right after creating the account.
func (e *Engine) RequestEmailVerification(ctx context.Context, ownerID string) (string, error) {
	if e == nil || e.store == nil {
		return "", ErrEngineNotReady
	}

	tokenStr, err := e.issuePersisted(ctx, ownerID, token.VerifyEmail)
	if err != nil {
		e.emitAudit(ctx, auditEventEmailVerificationRequest, false, ownerID, KindVerifyEmail.String(), err)
		return "", err
	}

	e.metricInc(MetricVerifyEmailRequest)
	e.emitAudit(ctx, auditEventEmailVerificationRequest, true, ownerID, KindVerifyEmail.String(), nil)
	e.notify(ctx, ownerID, KindVerifyEmail, tokenStr)

	return tokenStr, nil
}

// ConfirmEmailVerification consumes the verify-email token and delegates the
// mark-verified side effect to the identity provider. Each token grants
// exactly one successful verification.
func (e *Engine) ConfirmEmailVerification(ctx context.Context, tokenStr string) (string, error) {
	if e == nil || e.validator == nil {
		return "", ErrEngineNotReady
	}

	payload, err := e.validator.VerifyAndConsume(ctx, tokenStr, KindVerifyEmail)
	if err != nil {
		e.metricInc(MetricVerifyEmailConfirmFailure)
		if errors.Is(err, ErrTokenConsumed) {
			e.metricInc(MetricConsumeConflict)
		}
		e.emitAudit(ctx, auditEventEmailVerificationConfirm, false, "", KindVerifyEmail.String(), err)
		return "", err
	}

	if err := e.identity.MarkVerified(ctx, payload.Subject); err != nil {
		e.metricInc(MetricVerifyEmailConfirmFailure)
		e.emitAudit(ctx, auditEventEmailVerificationConfirm, false, payload.Subject, KindVerifyEmail.String(), err)
		return "", fmt.Errorf("mark verified: %w", err)
	}

	e.metricInc(MetricVerifyEmailConfirmSuccess)
	e.emitAudit(ctx, auditEventEmailVerificationConfirm, true, payload.Subject, KindVerifyEmail.String(), nil)
	return payload.Subject, nil
}
