package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/irrelevantclub/toolkit-backend/internal/dto"
	"github.com/irrelevantclub/toolkit-backend/internal/services"
)

type AdminHandler struct {
	users *services.UserService
}

func NewAdminHandler(users *services.UserService) *AdminHandler {
	return &AdminHandler{users: users}
}

// LookupUser returns the registrant with the email given in the query string.
func (h *AdminHandler) LookupUser(c *fiber.Ctx) error {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Message: "El parámetro email es requerido",
		})
	}

	user, err := h.users.GetByEmail(c.UserContext(), email)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Message: "Usuario no encontrado",
			})
		}
		return err
	}
	return c.JSON(user)
}
