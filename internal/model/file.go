package model

import "time"

// ScanStatusClean is the only scan status a stored file can carry: a file
// that did not scan clean is never persisted in the first place.
const ScanStatusClean = "clean"

// StoredFile represents an accepted upload. Rows are immutable once
// created; replacing a file means a new StoredFile with a new ID.
//
// SecureName is derived solely from a random token plus an extension
// normalized from the validated content type. OriginalName is the
// sanitized client-supplied name and is kept for display/audit only; it
// never participates in the storage path.
type StoredFile struct {
	ID            string    `json:"id"`
	SecureName    string    `json:"file_name"`
	OriginalName  string    `json:"original_name"`
	Size          int64     `json:"size"`
	ContentType   string    `json:"content_type"`
	StoragePath   string    `json:"storage_path"`
	ApplicationID string    `json:"application_id,omitempty"`
	ScanStatus    string    `json:"scan_status"`
	UploadedAt    time.Time `json:"uploaded_at"`
}
