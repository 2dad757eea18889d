package handler

import (
	"github.com/gofiber/fiber/v2"

	"uploadapi/internal/validation"
)

type passwordRequest struct {
	Password string `json:"password"`
}

// PasswordStrength handles POST /auth/password-strength, backing the
// registration form's live checklist. It returns every violated rule, not
// just the first.
func PasswordStrength() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req passwordRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "request body must be JSON with a password field")
		}
		return c.JSON(validation.ValidatePasswordStrength(req.Password))
	}
}
