package models

import "time"

// AuditLogEntry is an append-only record of a security-relevant action.
// This subsystem only ever writes audit entries, it never reads them back.
type AuditLogEntry struct {
	UserID    string                 `json:"userId"`
	Action    string                 `json:"action"`
	Details   map[string]interface{} `json:"details,omitempty"`
	IPAddress string                 `json:"ipAddress"`
	Timestamp time.Time              `json:"timestamp"`
}

// Audit actions emitted by this subsystem.
const (
	AuditActionTransferRecorded = "transfer_recorded"
	AuditActionExportRequested  = "key_export_requested"
	AuditActionExportRefused    = "key_export_refused"
	AuditActionExportAuthorized = "key_export_authorized"
)

// Notification is a fire-and-forget message to a user. Delivery failures
// must never fail the operation that produced the notification.
type Notification struct {
	UserID  string `json:"userId"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Link    string `json:"link,omitempty"`
}

// ExportRequest is the ephemeral state of a key-export attempt. It is never
// persisted beyond the audit entry describing the attempt.
type ExportRequest struct {
	TargetAccount LinkedAccount `json:"targetAccount"`
	RequestedAt   time.Time     `json:"requestedAt"`
	Authorized    bool          `json:"authorized"`
}
