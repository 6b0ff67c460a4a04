package middleware

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/irrelevantclub/toolkit-backend/internal/auth"
	"github.com/irrelevantclub/toolkit-backend/internal/config"
	"github.com/irrelevantclub/toolkit-backend/internal/dto"
	"github.com/irrelevantclub/toolkit-backend/internal/services"
)

// AdminRequired admits a request that either carries X-Admin-Token equal to
// ADMIN_TOKEN, or a bearer token whose subject is a registrant listed in
// ADMIN_EMAILS.
func AdminRequired(issuer *auth.Issuer, users *services.UserService, cfg *config.Config) fiber.Handler {
	adminEmails := cfg.AdminEmailList()

	return func(c *fiber.Ctx) error {
		if cfg.AdminToken != "" {
			given := c.Get("X-Admin-Token")
			if subtle.ConstantTimeCompare([]byte(given), []byte(cfg.AdminToken)) == 1 {
				return c.Next()
			}
		}

		raw, ok := bearer(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return unauthorized(c, msgTokenMissing)
		}
		id, err := issuer.Verify(raw)
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				return unauthorized(c, msgTokenExpired)
			}
			return unauthorized(c, msgTokenInvalid)
		}

		if !id.SpecialAccess {
			user, err := users.Get(c.UserContext(), id.Subject)
			if err == nil && containsFold(adminEmails, user.Email) {
				c.Locals(LocalUserID, id.Subject)
				c.Locals(LocalSpecialAccess, false)
				return c.Next()
			}
			if err != nil && !errors.Is(err, services.ErrUserNotFound) {
				slog.Error("admin lookup failed", "user_id", id.Subject, "error", err)
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Message: "Acceso de administrador requerido",
		})
	}
}

func bearer(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func containsFold(list []string, val string) bool {
	for _, item := range list {
		if strings.EqualFold(item, val) {
			return true
		}
	}
	return false
}
