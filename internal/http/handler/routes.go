package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"uploadapi/internal/audit"
	"uploadapi/internal/filesec"
	"uploadapi/internal/http/middleware"
	"uploadapi/internal/ocr"
	"uploadapi/internal/service"
)

// Deps carries everything the route tree needs. Routes stay thin; all
// intake decisions live in the service.
type Deps struct {
	DB           *sql.DB
	Upload       service.UploadService
	OCR          *ocr.Client
	OCRValidator *filesec.Validator
	Recorder     audit.Recorder
	JWTSecret    string
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	// Serve OpenAPI spec and Swagger UI
	app.Get("/openapi.yaml", func(c *fiber.Ctx) error {
		c.Type("yaml")
		return c.SendFile("openapi.yaml")
	})
	app.Get("/docs", func(c *fiber.Ctx) error {
		html := `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({
      url: '/openapi.yaml',
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis],
      layout: 'BaseLayout'
    });
  </script>
</body>
</html>`
		return c.Type("html").SendString(html)
	})

	// Health endpoints
	app.Get("/health", HealthCheck(d.DB))
	app.Get("/healthz", LivenessProbe())

	// The auth gate rejects credential-less requests before the multipart
	// body is read and records the unauthorized event itself.
	uploadAuth := middleware.RequireCredential(d.Recorder, d.JWTSecret,
		audit.KindUploadUnauthorized, service.SeverityFor(audit.KindUploadUnauthorized))
	accessAuth := middleware.RequireCredential(d.Recorder, d.JWTSecret,
		audit.KindAccessUnauthorized, service.SeverityFor(audit.KindAccessUnauthorized))

	// Secure upload endpoints
	app.Post("/upload/secure", uploadAuth, UploadFile(d.Upload))
	app.Get("/upload/secure", accessAuth, RetrieveFile(d.Upload))

	// Stored file listing and audit review
	app.Get("/files", accessAuth, ListFiles(d.Upload))
	app.Get("/audit/events", accessAuth, ListAuditEvents(d.Upload))

	// Document extraction proxy
	app.Post("/ocr/extract", uploadAuth, ExtractDocument(d.OCR, d.OCRValidator))

	// Registration password checklist
	app.Post("/auth/password-strength", PasswordStrength())
}
