package middleware

import (
	"errors"

	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/irrelevantclub/toolkit-backend/internal/auth"
	"github.com/irrelevantclub/toolkit-backend/internal/dto"
)

// Locals set by TokenRequired.
const (
	LocalUserID        = "user_id"
	LocalSpecialAccess = "is_special_access"
)

const (
	msgTokenMissing = "Token no proporcionado"
	msgTokenExpired = "Token expirado. Por favor, inicia sesión nuevamente."
	msgTokenInvalid = "Token inválido. Por favor, inicia sesión nuevamente."
)

// TokenRequired guards a route with an Authorization: Bearer token minted by issuer.
func TokenRequired(issuer *auth.Issuer) fiber.Handler {
	return jwtware.New(jwtware.Config{
		KeyFunc: issuer.KeyFunc,
		Claims:  &auth.Claims{},
		SuccessHandler: func(c *fiber.Ctx) error {
			token, ok := c.Locals("user").(*jwt.Token)
			if !ok {
				return unauthorized(c, msgTokenInvalid)
			}
			claims, ok := token.Claims.(*auth.Claims)
			if !ok {
				return unauthorized(c, msgTokenInvalid)
			}
			id := auth.IdentityFromClaims(claims)
			c.Locals(LocalUserID, id.Subject)
			c.Locals(LocalSpecialAccess, id.SpecialAccess)
			return c.Next()
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			switch {
			case errors.Is(err, jwtware.ErrJWTMissingOrMalformed):
				return unauthorized(c, msgTokenMissing)
			case errors.Is(err, jwt.ErrTokenExpired):
				return unauthorized(c, msgTokenExpired)
			default:
				return unauthorized(c, msgTokenInvalid)
			}
		},
	})
}

// Identity returns what TokenRequired stored for the request.
func Identity(c *fiber.Ctx) (userID string, special bool) {
	userID, _ = c.Locals(LocalUserID).(string)
	special, _ = c.Locals(LocalSpecialAccess).(bool)
	return userID, special
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Message: message})
}
