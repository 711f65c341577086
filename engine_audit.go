package tokenvault

import (
	"context"
	"errors"
)

const (
	auditEventLoginSuccess             = "login_success"
	auditEventLoginFailure             = "login_failure"
	auditEventPairIssued               = "pair_issued"
	auditEventRefreshSuccess           = "refresh_success"
	auditEventRefreshInvalid           = "refresh_invalid"
	auditEventRefreshReuseDetected     = "refresh_reuse_detected"
	auditEventLogout                   = "logout"
	auditEventLogoutAll                = "logout_all"
	auditEventPasswordResetRequest     = "password_reset_request"
	auditEventPasswordResetConfirm     = "password_reset_confirm"
	auditEventEmailVerificationRequest = "email_verification_request"
	auditEventEmailVerificationConfirm = "email_verification_confirm"
	auditEventNotificationFailure      = "notification_failure"
)

type auditErrorCode string

const (
	auditErrInvalidCredentials auditErrorCode = "invalid_credentials"
	auditErrInvalidToken       auditErrorCode = "invalid_token"
	auditErrExpired            auditErrorCode = "expired"
	auditErrWrongKind          auditErrorCode = "wrong_kind"
	auditErrRevoked            auditErrorCode = "revoked"
	auditErrConsumed           auditErrorCode = "already_used"
	auditErrOwnerNotFound      auditErrorCode = "owner_not_found"
	auditErrDuplicate          auditErrorCode = "duplicate"
	auditErrUnavailable        auditErrorCode = "backend_unavailable"
	auditErrInternal           auditErrorCode = "internal_error"
)

func auditCode(err error) auditErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrExpired):
		return auditErrExpired
	case errors.Is(err, ErrWrongKind):
		return auditErrWrongKind
	case errors.Is(err, ErrRevoked):
		return auditErrRevoked
	case errors.Is(err, ErrTokenConsumed):
		return auditErrConsumed
	case errors.Is(err, ErrOwnerNotFound):
		return auditErrOwnerNotFound
	case errors.Is(err, ErrDuplicateToken):
		return auditErrDuplicate
	case errors.Is(err, ErrMalformed), errors.Is(err, ErrInvalidSignature), errors.Is(err, ErrTokenNotFound):
		return auditErrInvalidToken
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}

// kindName is empty for events that concern no single token kind (login).
func (e *Engine) emitAudit(ctx context.Context, eventType string, success bool, ownerID, kindName string, err error) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		OwnerID:   ownerID,
		TokenKind: kindName,
		Success:   success,
	}
	if code := auditCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}
