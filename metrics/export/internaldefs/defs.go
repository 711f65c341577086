package internaldefs

import (
	"github.com/MrEthical07/tokenvault"
)

// CounterDef binds a tokenvault counter to its published name and help text.
//
// CounterDef instances are intended to be configured during initialization
// and then treated as immutable.
type CounterDef struct {
	ID   tokenvault.MetricID
	Name string
	Help string
}

// CounterDefs enumerates every exported counter. Order is the exposition
// order.
var CounterDefs = []CounterDef{
	{ID: tokenvault.MetricLoginSuccess, Name: "tokenvault_login_success_total", Help: "Successful login attempts."},
	{ID: tokenvault.MetricLoginFailure, Name: "tokenvault_login_failure_total", Help: "Failed login attempts."},
	{ID: tokenvault.MetricPairIssued, Name: "tokenvault_pair_issued_total", Help: "Issued access+refresh token pairs."},
	{ID: tokenvault.MetricRefreshSuccess, Name: "tokenvault_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: tokenvault.MetricRefreshFailure, Name: "tokenvault_refresh_failure_total", Help: "Failed refresh attempts."},
	{ID: tokenvault.MetricRefreshReuseDetected, Name: "tokenvault_refresh_reuse_detected_total", Help: "Refresh attempts with a revoked or already-rotated token."},
	{ID: tokenvault.MetricAccessVerified, Name: "tokenvault_access_verified_total", Help: "Successful stateless access validations."},
	{ID: tokenvault.MetricAccessRejected, Name: "tokenvault_access_rejected_total", Help: "Rejected access validations."},
	{ID: tokenvault.MetricLogout, Name: "tokenvault_logout_total", Help: "Single-session logout operations."},
	{ID: tokenvault.MetricLogoutAll, Name: "tokenvault_logout_all_total", Help: "Logout-all operations."},
	{ID: tokenvault.MetricResetRequest, Name: "tokenvault_password_reset_request_total", Help: "Password reset token issuances."},
	{ID: tokenvault.MetricResetConfirmSuccess, Name: "tokenvault_password_reset_confirm_success_total", Help: "Completed password resets."},
	{ID: tokenvault.MetricResetConfirmFailure, Name: "tokenvault_password_reset_confirm_failure_total", Help: "Rejected password reset confirmations."},
	{ID: tokenvault.MetricVerifyEmailRequest, Name: "tokenvault_email_verification_request_total", Help: "Email verification token issuances."},
	{ID: tokenvault.MetricVerifyEmailConfirmSuccess, Name: "tokenvault_email_verification_success_total", Help: "Completed email verifications."},
	{ID: tokenvault.MetricVerifyEmailConfirmFailure, Name: "tokenvault_email_verification_failure_total", Help: "Rejected email verifications."},
	{ID: tokenvault.MetricConsumeConflict, Name: "tokenvault_consume_conflict_total", Help: "Single-use consumes that lost the race or found the record gone."},
	{ID: tokenvault.MetricNotifyFailure, Name: "tokenvault_notify_failure_total", Help: "Notification sender failures."},
	{ID: tokenvault.MetricSweepDeleted, Name: "tokenvault_sweep_deleted_total", Help: "Records removed by the expiry sweeper."},
}

// AuditDroppedName is the counter for audit events discarded under
// backpressure. It is not part of the engine snapshot, so exporters publish
// it separately.
const AuditDroppedName = "tokenvault_audit_dropped_total"

// AuditDroppedHelp documents AuditDroppedName.
const AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
