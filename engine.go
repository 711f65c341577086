package tokenvault

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrEthical07/tokenvault/token"
)

// Engine orchestrates the token lifecycle flows. All methods are safe to call
// from multiple goroutines after construction through [Builder.Build]; the
// only shared mutable resource is the token store.
type Engine struct {
	config    Config
	codec     *token.Codec
	store     Store
	validator *Validator
	identity  IdentityProvider
	notifier  NotificationSender
	audit     *auditDispatcher
	metrics   *Metrics
	logger    *slog.Logger
	clock     func() time.Time
}

// Close flushes and stops the audit dispatcher. The engine must not be used
// afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded under
// backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of all counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) now() time.Time {
	if e == nil || e.clock == nil {
		return time.Now()
	}
	return e.clock()
}

// VerifyAccess validates an access token statelessly: signature, expiry, and
// kind from the signed claims alone, no store round-trip. Instant revocation
// is traded away for latency; revocable credentials use the refresh kind.
func (e *Engine) VerifyAccess(tokenStr string) (token.Payload, error) {
	if e == nil || e.validator == nil {
		return token.Payload{}, ErrEngineNotReady
	}

	payload, err := e.validator.VerifyStateless(tokenStr, KindAccess)
	if err != nil {
		e.metricInc(MetricAccessRejected)
		return token.Payload{}, err
	}

	e.metricInc(MetricAccessVerified)
	return payload, nil
}

// IssuePair signs a fresh access token and signs+persists a fresh refresh
// token for ownerID. Login uses it internally; registration controllers call
// it directly after creating an account.
func (e *Engine) IssuePair(ctx context.Context, ownerID string) (*TokenPair, error) {
	if e == nil || e.codec == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}

	accessStr, accessPayload, err := e.codec.Issue(ownerID, token.Access)
	if err != nil {
		return nil, err
	}

	refreshStr, refreshPayload, err := e.codec.Issue(ownerID, token.Refresh)
	if err != nil {
		return nil, err
	}

	err = e.store.Save(ctx, TokenRecord{
		Token:     refreshStr,
		OwnerID:   ownerID,
		Kind:      KindRefresh,
		ExpiresAt: refreshPayload.ExpiresAt,
	})
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricPairIssued)
	e.emitAudit(ctx, auditEventPairIssued, true, ownerID, "", nil)

	return &TokenPair{
		AccessToken:    accessStr,
		AccessPayload:  accessPayload,
		RefreshToken:   refreshStr,
		RefreshPayload: refreshPayload,
	}, nil
}

// StartSweeper runs an advisory background sweep deleting expired records
// every interval until ctx is cancelled. Interval zero uses the configured
// default. Verification correctness never depends on the sweep; expiry is
// always re-checked from the signed claim.
func (e *Engine) StartSweeper(ctx context.Context, interval time.Duration) {
	if e == nil || e.store == nil {
		return
	}
	if interval <= 0 {
		interval = e.config.Sweep.Interval
	}
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				deleted, err := e.store.DeleteExpired(ctx, e.now())
				if err != nil {
					e.logger.Warn("tokenvault: expiry sweep failed", "error", err)
					continue
				}
				if deleted > 0 {
					e.metrics.Add(MetricSweepDeleted, uint64(deleted))
					e.logger.Debug("tokenvault: expiry sweep", "deleted", deleted)
				}
			}
		}
	}()
}

// notify hands the token to the sender. Delivery failures are logged and
// counted, never surfaced: the token stays valid and the caller may expose a
// resend path.
func (e *Engine) notify(ctx context.Context, ownerID string, kind TokenKind, tokenStr string) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Send(ctx, ownerID, kind, tokenStr); err != nil {
		e.metricInc(MetricNotifyFailure)
		e.emitAudit(ctx, auditEventNotificationFailure, false, ownerID, kind.String(), err)
		e.logger.Warn("tokenvault: notification delivery failed",
			"owner_id", ownerID, "token_kind", kind.String(), "error", err)
	}
}

func unauthenticated(err error) error {
	return fmt.Errorf("%w: %w", ErrUnauthenticated, err)
}
