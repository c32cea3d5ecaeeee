package domain

import "time"

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionSetup           AuditAction = "SETUP"
	AuditActionPropose         AuditAction = "PROPOSE"
	AuditActionApprove         AuditAction = "APPROVE"
	AuditActionReject          AuditAction = "REJECT"
	AuditActionExecute         AuditAction = "EXECUTE"
	AuditActionComplete        AuditAction = "COMPLETE"
	AuditActionFailed          AuditAction = "FAILED"
	AuditActionAddFunds        AuditAction = "ADD_FUNDS"
	AuditActionMobileRequested AuditAction = "MOBILE_APPROVAL_REQUESTED"
	AuditActionReset           AuditAction = "RESET"
)

// AuditEntry records a single audited action. Entries are append-only; they
// are never mutated or deleted except by a full wipe.
type AuditEntry struct {
	Timestamp time.Time   `json:"timestamp"`
	Action    AuditAction `json:"action"`
	Details   string      `json:"details"` // JSON string
}
