package handler

import (
	"github.com/gofiber/fiber/v2"

	"uploadapi/internal/filesec"
	"uploadapi/internal/ocr"
)

// ExtractDocument handles POST /ocr/extract. The extraction service is an
// opaque collaborator: the handler gates the file with the OCR-path
// validator, forwards the multipart payload, and passes the service's
// response through unmodified.
func ExtractDocument(client *ocr.Client, validator *filesec.Validator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		docType := c.FormValue("document_type")
		if !ocr.IsValidDocumentType(docType) {
			return writeError(c, fiber.StatusBadRequest, "INVALID_DOCUMENT_TYPE",
				"document_type must be passport or birth_certificate")
		}

		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/octet-stream"
		}
		if res := validator.Validate(filesec.FileMeta{Name: fh.Filename, Size: fh.Size, ContentType: ct}); !res.Valid {
			return writeError(c, fiber.StatusBadRequest, "FILE_REJECTED", res.Error)
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		result, err := client.Extract(c.UserContext(), ocr.ExtractRequest{
			DocumentType: docType,
			FileName:     fh.Filename,
			ContentType:  ct,
			Content:      f,
			CSRFToken:    c.Get("X-CSRF-Token"),
		})
		if err != nil {
			return writeError(c, fiber.StatusBadGateway, "EXTRACTION_UNAVAILABLE", "document extraction is unavailable")
		}
		return c.JSON(result)
	}
}
