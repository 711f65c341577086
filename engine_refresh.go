package tokenvault

import (
	"context"
	"errors"
)

// Refresh rotates a refresh token: the presented token is verified against
// both its signed claims and its store record, its record is revoked, and a
// brand-new pair is issued. Rotation is mandatory — presenting the same
// refresh token twice fails the second time with ErrRevoked, closing the
// replay window. Every failure wraps ErrUnauthenticated and no partial pair
// is ever issued.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if e == nil || e.validator == nil {
		return nil, ErrEngineNotReady
	}

	payload, record, err := e.validator.VerifyAndFetch(ctx, refreshToken, KindRefresh)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		if errors.Is(err, ErrRevoked) {
			// Signature and expiry were valid but the record is gone or
			// revoked: either a replayed token or a forced logout.
			e.metricInc(MetricRefreshReuseDetected)
			e.emitAudit(ctx, auditEventRefreshReuseDetected, false, payload.Subject, KindRefresh.String(), err)
		} else {
			e.emitAudit(ctx, auditEventRefreshInvalid, false, "", KindRefresh.String(), err)
		}
		return nil, unauthenticated(err)
	}

	if err := e.store.Revoke(ctx, refreshToken); err != nil && !errors.Is(err, ErrTokenNotFound) {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, record.OwnerID, KindRefresh.String(), err)
		return nil, unauthenticated(err)
	}

	pair, err := e.IssuePair(ctx, record.OwnerID)
	if err != nil {
		// The old token is already revoked; the owner re-authenticates.
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, record.OwnerID, KindRefresh.String(), err)
		return nil, unauthenticated(err)
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, record.OwnerID, KindRefresh.String(), nil)
	return pair, nil
}
