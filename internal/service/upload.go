package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"image/jpeg"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"uploadapi/internal/audit"
	"uploadapi/internal/filesec"
	"uploadapi/internal/model"
	"uploadapi/internal/repository"
	"uploadapi/internal/storage"
	"uploadapi/internal/token"
	"uploadapi/internal/validation"
)

var (
	ErrUnauthorized         = errors.New("credential required")
	ErrNoFile               = errors.New("file is required")
	ErrInvalidApplicationID = errors.New("application id format is invalid")
	ErrFileIDRequired       = errors.New("fileId is required")
	ErrNotFound             = errors.New("file not found")
)

// RejectionError is returned when declared file metadata fails validation.
// The reason is safe to show to the client.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string { return e.Reason }

// ThreatError is returned when the content scan flags the payload. Threat
// is the label of the first matching signature.
type ThreatError struct {
	Threat string
}

func (e *ThreatError) Error() string { return "file rejected: " + e.Threat }

// severityByKind fixes the severity of each audit event kind. Severity is
// an orchestrator decision; the audit subsystem never infers it.
var severityByKind = map[audit.Kind]audit.Severity{
	audit.KindUploadUnauthorized:    audit.SeverityMedium,
	audit.KindUploadNoFile:          audit.SeverityLow,
	audit.KindUploadInvalidAppID:    audit.SeverityMedium,
	audit.KindUploadValidationFail:  audit.SeverityMedium,
	audit.KindUploadMalwareDetected: audit.SeverityCritical,
	audit.KindUploadSuccess:         audit.SeverityLow,
	audit.KindUploadError:           audit.SeverityHigh,
	audit.KindAccessUnauthorized:    audit.SeverityMedium,
	audit.KindAccessRequest:         audit.SeverityLow,
	audit.KindAccessError:           audit.SeverityMedium,
}

// SeverityFor returns the fixed severity for an audit event kind.
func SeverityFor(kind audit.Kind) audit.Severity {
	if s, ok := severityByKind[kind]; ok {
		return s
	}
	return audit.SeverityMedium
}

// UploadInput carries one inbound upload after multipart extraction.
// Nothing in it is trusted.
type UploadInput struct {
	Content       []byte
	FileName      string
	ContentType   string
	Size          int64
	ApplicationID string
	HasCredential bool
	ClientIP      string
	UserAgent     string
	Method        string
	Path          string
}

// RequestMeta describes the request driving a retrieval or listing call.
type RequestMeta struct {
	HasCredential bool
	ClientIP      string
	UserAgent     string
	Method        string
	Path          string
}

// FileListResult is the service-level DTO for paginated stored files.
type FileListResult struct {
	Items []model.StoredFile `json:"data"`
	Total int                `json:"total"`
}

// UploadService sequences the intake pipeline: credential check, multipart
// presence, application id format, metadata validation, content scan,
// persistence, and audit. Every terminal branch of Upload records exactly
// one security event before returning.
type UploadService interface {
	// Upload runs the full intake machine and persists the file when both
	// gates pass. The returned error identifies the rejecting step.
	Upload(ctx context.Context, in UploadInput) (*model.StoredFile, error)

	// Retrieve returns stored-file metadata by ID after a credential
	// presence check, recording the access attempt.
	Retrieve(ctx context.Context, fileID string, meta RequestMeta) (*model.StoredFile, error)

	// ListFiles returns stored files using limit/offset and a total count.
	ListFiles(ctx context.Context, limit, offset int) (*FileListResult, error)

	// ListEvents returns the newest security events, newest first.
	ListEvents(ctx context.Context, limit int) ([]audit.Event, error)
}

type uploadService struct {
	store     storage.Storage
	files     repository.StoredFileRepository
	events    repository.SecurityEventRepository
	rec       audit.Recorder
	validator *filesec.Validator
	scanner   *filesec.Scanner
}

// NewUploadService constructs the intake orchestrator.
func NewUploadService(
	store storage.Storage,
	files repository.StoredFileRepository,
	events repository.SecurityEventRepository,
	rec audit.Recorder,
	validator *filesec.Validator,
	scanner *filesec.Scanner,
) UploadService {
	return &uploadService{
		store:     store,
		files:     files,
		events:    events,
		rec:       rec,
		validator: validator,
		scanner:   scanner,
	}
}

func (s *uploadService) record(ctx context.Context, kind audit.Kind, clientIP string, c audit.Context) {
	s.rec.Record(ctx, audit.NewEvent(kind, SeverityFor(kind), clientIP, c))
}

func (s *uploadService) Upload(ctx context.Context, in UploadInput) (*model.StoredFile, error) {
	// Credential presence is normally rejected at the HTTP boundary before
	// the body is parsed; this check keeps the invariant when the service
	// is driven directly.
	if !in.HasCredential {
		s.record(ctx, audit.KindUploadUnauthorized, in.ClientIP, audit.UnauthorizedContext{
			Method:    in.Method,
			Path:      in.Path,
			UserAgent: in.UserAgent,
		})
		return nil, ErrUnauthorized
	}

	if len(in.Content) == 0 || in.FileName == "" {
		s.record(ctx, audit.KindUploadNoFile, in.ClientIP, audit.NoFileContext{
			Reason: "multipart field \"file\" is missing or empty",
		})
		return nil, ErrNoFile
	}

	if in.ApplicationID != "" && !validation.IsValidApplicationID(in.ApplicationID) {
		s.record(ctx, audit.KindUploadInvalidAppID, in.ClientIP, audit.InvalidAppIDContext{
			ApplicationID: in.ApplicationID,
		})
		return nil, ErrInvalidApplicationID
	}

	if res := s.validator.Validate(filesec.FileMeta{Name: in.FileName, Size: in.Size, ContentType: in.ContentType}); !res.Valid {
		s.record(ctx, audit.KindUploadValidationFail, in.ClientIP, audit.ValidationFailedContext{
			FileName:    validation.SanitizeFileName(in.FileName),
			Size:        in.Size,
			ContentType: in.ContentType,
			Reason:      res.Error,
		})
		return nil, &RejectionError{Reason: res.Error}
	}

	scan, err := s.scanner.Scan(ctx, in.ContentType, in.Content)
	if err != nil {
		s.record(ctx, audit.KindUploadError, in.ClientIP, audit.UploadErrorContext{
			FileName: validation.SanitizeFileName(in.FileName),
			Stage:    "scan",
			Error:    err.Error(),
		})
		return nil, fmt.Errorf("content scan: %w", err)
	}
	if !scan.Clean {
		s.record(ctx, audit.KindUploadMalwareDetected, in.ClientIP, audit.MalwareDetectedContext{
			FileName:    validation.SanitizeFileName(in.FileName),
			Size:        in.Size,
			ContentType: in.ContentType,
			Threat:      scan.Threat,
		})
		return nil, &ThreatError{Threat: scan.Threat}
	}

	stored, err := s.persist(ctx, in)
	if err != nil {
		return nil, err
	}

	s.record(ctx, audit.KindUploadSuccess, in.ClientIP, audit.UploadSuccessContext{
		OriginalName:  stored.OriginalName,
		SecureName:    stored.SecureName,
		Size:          stored.Size,
		ContentType:   stored.ContentType,
		ApplicationID: stored.ApplicationID,
		UserAgent:     in.UserAgent,
	})
	return stored, nil
}

// persist writes the payload under a token-derived key and inserts the
// metadata row, undoing the storage write if the insert fails. Terminal
// failures record their own FILE_UPLOAD_ERROR event.
func (s *uploadService) persist(ctx context.Context, in UploadInput) (*model.StoredFile, error) {
	sanitized := validation.SanitizeFileName(in.FileName)

	secureName, err := token.SecureFileName(in.ContentType)
	if err != nil {
		s.record(ctx, audit.KindUploadError, in.ClientIP, audit.UploadErrorContext{
			FileName: sanitized,
			Stage:    "naming",
			Error:    err.Error(),
		})
		return nil, fmt.Errorf("derive secure name: %w", err)
	}
	key := "files/" + secureName

	objInfo, err := s.store.Put(ctx, key, bytes.NewReader(in.Content), storage.PutObjectOptions{
		Size:        int64(len(in.Content)),
		ContentType: in.ContentType,
		Metadata: map[string]string{
			"original-name": sanitized,
		},
	})
	if err != nil {
		// The write may have been interrupted by a disconnect; make sure no
		// partial object survives under the key. The cleanup context must
		// outlive the request's cancellation.
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		_ = s.store.Delete(cleanupCtx, key)
		cancel()

		s.record(ctx, audit.KindUploadError, in.ClientIP, audit.UploadErrorContext{
			FileName: sanitized,
			Stage:    "storage",
			Error:    err.Error(),
		})
		return nil, fmt.Errorf("write to storage: %w", err)
	}

	f := &model.StoredFile{
		ID:            uuid.NewString(),
		SecureName:    secureName,
		OriginalName:  sanitized,
		Size:          objInfo.Size,
		ContentType:   in.ContentType,
		StoragePath:   objInfo.Key,
		ApplicationID: in.ApplicationID,
		ScanStatus:    model.ScanStatusClean,
		UploadedAt:    time.Now().UTC(),
	}
	stored, err := s.files.Create(ctx, f)
	if err != nil {
		// Rollback: the object must not exist without its row.
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			err = fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		} else {
			err = fmt.Errorf("db save failed: %w", err)
		}
		s.record(ctx, audit.KindUploadError, in.ClientIP, audit.UploadErrorContext{
			FileName: sanitized,
			Stage:    "database",
			Error:    err.Error(),
		})
		return nil, err
	}

	if strings.HasPrefix(in.ContentType, "image/") {
		s.writeThumbnail(ctx, secureName, in.Content)
	}

	return stored, nil
}

// writeThumbnail stores a 320px preview next to the original for the
// portal's document checklist. Best effort: a failure never fails the
// upload and is not audited.
func (s *uploadService) writeThumbnail(ctx context.Context, secureName string, content []byte) {
	img, err := imaging.Decode(bytes.NewReader(content))
	if err != nil {
		return
	}
	thumb := imaging.Fit(img, 320, 320, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 80}); err != nil {
		return
	}

	base := secureName
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	_, _ = s.store.Put(ctx, "thumbs/"+base+".jpg", &buf, storage.PutObjectOptions{
		Size:        int64(buf.Len()),
		ContentType: "image/jpeg",
	})
}

func (s *uploadService) Retrieve(ctx context.Context, fileID string, meta RequestMeta) (*model.StoredFile, error) {
	if !meta.HasCredential {
		s.record(ctx, audit.KindAccessUnauthorized, meta.ClientIP, audit.UnauthorizedContext{
			Method:    meta.Method,
			Path:      meta.Path,
			UserAgent: meta.UserAgent,
		})
		return nil, ErrUnauthorized
	}
	if fileID == "" {
		return nil, ErrFileIDRequired
	}

	s.record(ctx, audit.KindAccessRequest, meta.ClientIP, audit.AccessRequestContext{
		FileID:    fileID,
		UserAgent: meta.UserAgent,
	})

	f, err := s.files.FindByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		s.record(ctx, audit.KindAccessError, meta.ClientIP, audit.AccessErrorContext{
			FileID: fileID,
			Error:  err.Error(),
		})
		return nil, err
	}
	return f, nil
}

// ListFiles returns paginated stored files without exposing repository types.
func (s *uploadService) ListFiles(ctx context.Context, limit, offset int) (*FileListResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.files.List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &FileListResult{Items: res.Items, Total: res.Total}, nil
}

// ListEvents returns the newest security events for the audit review view.
func (s *uploadService) ListEvents(ctx context.Context, limit int) ([]audit.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	return s.events.ListRecent(ctx, limit)
}
