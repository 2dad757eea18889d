package filesec

// Package filesec decides whether an uploaded file may be accepted. It is
// split into two gates: Validator checks declared metadata (type, size,
// extension agreement) and Scanner inspects raw bytes for signatures that
// are incompatible with the declared type. Neither gate logs or touches
// external state; the orchestrator owns all observability.

import (
	"fmt"
	"path/filepath"
	"strings"
)

// FileMeta is the client-declared description of an upload. None of it is
// trusted; it is exactly what the request claimed.
type FileMeta struct {
	Name        string
	Size        int64
	ContentType string
}

// ValidationResult is the outcome of a metadata check.
type ValidationResult struct {
	Valid bool
	Error string
}

func invalid(format string, args ...any) ValidationResult {
	return ValidationResult{Error: fmt.Sprintf(format, args...)}
}

// allowedTypes maps each accepted content type to the file name extensions
// a client may legally pair with it. A declared type and extension that
// individually look fine but disagree are rejected: a forged declared
// type is the primary attack vector this check defends against.
var allowedTypes = map[string]map[string]struct{}{
	"image/jpeg":      {"jpg": {}, "jpeg": {}},
	"image/png":       {"png": {}},
	"application/pdf": {"pdf": {}},
}

// Validator checks declared upload metadata against the allow-list and a
// configured size ceiling. Construct one per intake path so each path
// keeps its own externally-configured limit.
type Validator struct {
	maxBytes int64
}

// NewValidator returns a Validator with the given size ceiling in bytes.
func NewValidator(maxBytes int64) *Validator {
	return &Validator{maxBytes: maxBytes}
}

// Validate applies the metadata checks in order: presence, size, declared
// type allow-list, and declared-type/extension agreement. It never reads
// file content.
func (v *Validator) Validate(meta FileMeta) ValidationResult {
	if meta.Size <= 0 {
		return invalid("file is empty")
	}
	if meta.Size > v.maxBytes {
		return invalid("file size %d exceeds the limit of %d bytes", meta.Size, v.maxBytes)
	}

	exts, ok := allowedTypes[meta.ContentType]
	if !ok {
		return invalid("file type %q is not allowed", meta.ContentType)
	}

	// The final extension must agree with the declared type. A name like
	// evil.jpg.php carries the extension "php" and is rejected here even
	// though the declared type alone would pass.
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(meta.Name), "."))
	if ext == "" {
		return invalid("file name has no extension")
	}
	if _, ok := exts[ext]; !ok {
		return invalid("file extension %q does not match declared type %q", ext, meta.ContentType)
	}

	return ValidationResult{Valid: true}
}
