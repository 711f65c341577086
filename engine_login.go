package tokenvault

import "context"

// Login checks credentials against the identity provider and, on success,
// issues a fresh access+refresh pair. Every failure surfaces as
// ErrInvalidCredentials: the caller never learns whether the identifier or
// the secret was wrong.
func (e *Engine) Login(ctx context.Context, identifier, secret string) (*TokenPair, error) {
	if e == nil || e.identity == nil {
		return nil, ErrEngineNotReady
	}

	ownerID, err := e.identity.FindByCredentials(ctx, identifier, secret)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", "", ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	pair, err := e.IssuePair(ctx, ownerID)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, ownerID, "", err)
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, ownerID, "", nil)
	return pair, nil
}
