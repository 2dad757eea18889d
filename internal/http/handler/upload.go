package handler

import (
	"errors"
	"io"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"uploadapi/internal/http/middleware"
	"uploadapi/internal/model"
	"uploadapi/internal/service"
)

// uploadResponse is the accepted-upload body returned by POST /upload/secure.
type uploadResponse struct {
	Success      bool      `json:"success"`
	FileID       string    `json:"fileId"`
	FileName     string    `json:"fileName"`
	OriginalName string    `json:"originalName"`
	Size         int64     `json:"size"`
	Type         string    `json:"type"`
	UploadedAt   time.Time `json:"uploadedAt"`
	ScanStatus   string    `json:"scanStatus"`
}

func newUploadResponse(f *model.StoredFile) uploadResponse {
	return uploadResponse{
		Success:      true,
		FileID:       f.ID,
		FileName:     f.SecureName,
		OriginalName: f.OriginalName,
		Size:         f.Size,
		Type:         f.ContentType,
		UploadedAt:   f.UploadedAt,
		ScanStatus:   f.ScanStatus,
	}
}

func hasCredential(c *fiber.Ctx) bool {
	return c.Get(fiber.HeaderAuthorization) != "" || c.Cookies(middleware.AuthCookieName) != ""
}

func requestMeta(c *fiber.Ctx) service.RequestMeta {
	return service.RequestMeta{
		HasCredential: hasCredential(c),
		ClientIP:      c.IP(),
		UserAgent:     c.Get(fiber.HeaderUserAgent),
		Method:        c.Method(),
		Path:          c.Path(),
	}
}

// UploadFile handles POST /upload/secure. The handler only translates the
// request into an UploadInput and the service result into HTTP; every
// accept/reject decision, including the missing-file case, lives in the
// service so the audit trail stays complete.
func UploadFile(svc service.UploadService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		in := service.UploadInput{
			ApplicationID: c.FormValue("applicationId"),
			HasCredential: hasCredential(c),
			ClientIP:      c.IP(),
			UserAgent:     c.Get(fiber.HeaderUserAgent),
			Method:        c.Method(),
			Path:          c.Path(),
		}

		if fh, err := c.FormFile("file"); err == nil {
			f, err := fh.Open()
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
			}
			content, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "FILE_READ_ERROR", "cannot read uploaded file")
			}

			ct := fh.Header.Get("Content-Type")
			if ct == "" {
				ct = "application/octet-stream"
			}
			in.Content = content
			in.FileName = fh.Filename
			in.ContentType = ct
			in.Size = fh.Size
		}

		stored, err := svc.Upload(c.UserContext(), in)
		if err != nil {
			return writeUploadError(c, err)
		}
		return c.Status(fiber.StatusOK).JSON(newUploadResponse(stored))
	}
}

func writeUploadError(c *fiber.Ctx, err error) error {
	var rej *service.RejectionError
	var threat *service.ThreatError

	switch {
	case errors.Is(err, service.ErrUnauthorized):
		return writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
	case errors.Is(err, service.ErrNoFile):
		return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
	case errors.Is(err, service.ErrInvalidApplicationID):
		return writeError(c, fiber.StatusBadRequest, "INVALID_APPLICATION_ID", "application id format is invalid")
	case errors.As(err, &rej):
		return writeError(c, fiber.StatusBadRequest, "FILE_REJECTED", rej.Reason)
	case errors.As(err, &threat):
		return writeError(c, fiber.StatusBadRequest, "THREAT_DETECTED", threat.Error())
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// RetrieveFile handles GET /upload/secure?fileId=<id>.
func RetrieveFile(svc service.UploadService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fileID := c.Query("fileId")

		f, err := svc.Retrieve(c.UserContext(), fileID, requestMeta(c))
		if err != nil {
			switch {
			case errors.Is(err, service.ErrUnauthorized):
				return writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
			case errors.Is(err, service.ErrFileIDRequired):
				return writeError(c, fiber.StatusBadRequest, "FILE_ID_REQUIRED", "fileId is required")
			case errors.Is(err, service.ErrNotFound):
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "file not found")
			default:
				return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			}
		}
		return c.Status(fiber.StatusOK).JSON(newUploadResponse(f))
	}
}

// ListFiles handles GET /files with limit & offset.
func ListFiles(svc service.UploadService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limitStr := c.Query("limit", "10")
		offsetStr := c.Query("offset", "0")
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := svc.ListFiles(c.UserContext(), limit, offset)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(res)
	}
}

// ListAuditEvents handles GET /audit/events for the security review view.
func ListAuditEvents(svc service.UploadService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "50"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}

		events, err := svc.ListEvents(c.UserContext(), limit)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(fiber.Map{"data": events})
	}
}
