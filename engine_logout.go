package tokenvault

import (
	"context"
	"errors"
)

// Logout revokes the presented refresh token. It is idempotent and tolerant:
// a malformed, expired, or unknown token is not an error — from the caller's
// perspective logout always succeeds. Only store transport failures surface.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}

	payload, err := e.codec.Decode(refreshToken)
	if err != nil || payload.Kind != KindRefresh {
		// Nothing revocable behind this string.
		e.metricInc(MetricLogout)
		return nil
	}

	if err := e.store.Revoke(ctx, refreshToken); err != nil && !errors.Is(err, ErrTokenNotFound) {
		return err
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, payload.Subject, KindRefresh.String(), nil)
	return nil
}

// LogoutAll revokes every live refresh token for the owner, forcing all of
// their sessions to re-authenticate.
func (e *Engine) LogoutAll(ctx context.Context, ownerID string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}

	if err := e.store.RevokeAllForOwner(ctx, ownerID, KindRefresh); err != nil {
		return err
	}

	e.metricInc(MetricLogoutAll)
	e.emitAudit(ctx, auditEventLogoutAll, true, ownerID, KindRefresh.String(), nil)
	return nil
}
