package audit

// Package audit records one structured security event per orchestrator
// decision point. Events are append-only: nothing in this subsystem
// mutates or deletes them, and retention is an external concern.

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Severity of a security event. Assigned by the caller per event kind;
// the recorder never infers it.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Kind enumerates the audit event kinds emitted by the intake pipeline.
type Kind string

const (
	KindUploadUnauthorized    Kind = "FILE_UPLOAD_UNAUTHORIZED"
	KindUploadNoFile          Kind = "FILE_UPLOAD_NO_FILE"
	KindUploadInvalidAppID    Kind = "FILE_UPLOAD_INVALID_APP_ID"
	KindUploadValidationFail  Kind = "FILE_UPLOAD_VALIDATION_FAILED"
	KindUploadMalwareDetected Kind = "FILE_UPLOAD_MALWARE_DETECTED"
	KindUploadSuccess         Kind = "FILE_UPLOAD_SUCCESS"
	KindUploadError           Kind = "FILE_UPLOAD_ERROR"
	KindAccessUnauthorized    Kind = "FILE_ACCESS_UNAUTHORIZED"
	KindAccessRequest         Kind = "FILE_ACCESS_REQUEST"
	KindAccessError           Kind = "FILE_ACCESS_ERROR"
)

// Context is the closed set of per-kind event payloads. Each variant
// carries exactly the fields relevant to its kind, so adding a kind
// without a payload type is a compile error at the construction site
// rather than a loose bag of fields discovered at query time.
type Context interface {
	isAuditContext()
}

// UnauthorizedContext is attached to *_UNAUTHORIZED events.
type UnauthorizedContext struct {
	Method    string `json:"method"`
	Path      string `json:"path"`
	UserAgent string `json:"user_agent,omitempty"`
}

// NoFileContext is attached to FILE_UPLOAD_NO_FILE events.
type NoFileContext struct {
	Reason string `json:"reason"`
}

// InvalidAppIDContext is attached to FILE_UPLOAD_INVALID_APP_ID events.
// The rejected value is kept verbatim for audit reconstruction.
type InvalidAppIDContext struct {
	ApplicationID string `json:"application_id"`
}

// ValidationFailedContext is attached to FILE_UPLOAD_VALIDATION_FAILED.
type ValidationFailedContext struct {
	FileName    string `json:"file_name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
	Reason      string `json:"reason"`
}

// MalwareDetectedContext is attached to FILE_UPLOAD_MALWARE_DETECTED.
type MalwareDetectedContext struct {
	FileName    string `json:"file_name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
	Threat      string `json:"threat"`
}

// UploadErrorContext is attached to FILE_UPLOAD_ERROR events. Error text
// stays in the audit trail; HTTP responses never carry it.
type UploadErrorContext struct {
	FileName string `json:"file_name,omitempty"`
	Stage    string `json:"stage"`
	Error    string `json:"error"`
}

// UploadSuccessContext is attached to FILE_UPLOAD_SUCCESS events.
type UploadSuccessContext struct {
	OriginalName  string `json:"original_name"`
	SecureName    string `json:"secure_name"`
	Size          int64  `json:"size"`
	ContentType   string `json:"content_type"`
	ApplicationID string `json:"application_id,omitempty"`
	UserAgent     string `json:"user_agent,omitempty"`
}

// AccessRequestContext is attached to FILE_ACCESS_REQUEST events.
type AccessRequestContext struct {
	FileID    string `json:"file_id"`
	UserAgent string `json:"user_agent,omitempty"`
}

// AccessErrorContext is attached to FILE_ACCESS_ERROR events.
type AccessErrorContext struct {
	FileID string `json:"file_id"`
	Error  string `json:"error"`
}

// RawContext carries a context payload read back from storage, where the
// concrete variant is identified by the event kind.
type RawContext json.RawMessage

// MarshalJSON emits the stored payload verbatim.
func (r RawContext) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return []byte(r), nil
}

func (RawContext) isAuditContext()              {}
func (UnauthorizedContext) isAuditContext()     {}
func (NoFileContext) isAuditContext()           {}
func (InvalidAppIDContext) isAuditContext()     {}
func (ValidationFailedContext) isAuditContext() {}
func (MalwareDetectedContext) isAuditContext()  {}
func (UploadErrorContext) isAuditContext()      {}
func (UploadSuccessContext) isAuditContext()    {}
func (AccessRequestContext) isAuditContext()    {}
func (AccessErrorContext) isAuditContext()      {}

// Event is a single append-only audit record.
type Event struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Severity  Severity  `json:"severity"`
	ClientIP  string    `json:"client_ip"`
	Context   Context   `json:"context"`
	CreatedAt time.Time `json:"created_at"`
}

// NewEvent stamps identity and time onto an event payload.
func NewEvent(kind Kind, severity Severity, clientIP string, c Context) Event {
	return Event{
		ID:        uuid.NewString(),
		Kind:      kind,
		Severity:  severity,
		ClientIP:  clientIP,
		Context:   c,
		CreatedAt: time.Now().UTC(),
	}
}
