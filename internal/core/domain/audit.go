package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionRecord         AuditAction = "RECORD"
	AuditActionUndo           AuditAction = "UNDO"
	AuditActionClose          AuditAction = "CLOSE"
	AuditActionAddOperator    AuditAction = "ADD_OPERATOR"
	AuditActionRemoveOperator AuditAction = "REMOVE_OPERATOR"
	AuditActionIssueToken     AuditAction = "ISSUE_TOKEN"
	AuditActionExport         AuditAction = "EXPORT"
	AuditActionDenied         AuditAction = "DENIED"
)

// AuditOutcome is the result of an audited command.
type AuditOutcome string

const (
	AuditOutcomeSuccess  AuditOutcome = "SUCCESS"
	AuditOutcomeRejected AuditOutcome = "REJECTED"
	AuditOutcomeDegraded AuditOutcome = "DEGRADED" // state changed in memory but was not persisted
)

// AuditLog records a single audited command.
type AuditLog struct {
	ID        uuid.UUID    `json:"id"`
	Actor     string       `json:"actor"`
	Action    AuditAction  `json:"action"`
	Outcome   AuditOutcome `json:"outcome"`
	Command   string       `json:"command"`
	Details   string       `json:"details,omitempty"` // JSON string
	CreatedAt time.Time    `json:"created_at"`
}
