package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/irrelevantclub/toolkit-backend/internal/auth"
	"github.com/irrelevantclub/toolkit-backend/internal/dto"
	"github.com/irrelevantclub/toolkit-backend/internal/middleware"
	"github.com/irrelevantclub/toolkit-backend/internal/notify"
	"github.com/irrelevantclub/toolkit-backend/internal/services"
)

type UserHandler struct {
	users    *services.UserService
	issuer   *auth.Issuer
	phrase   *auth.PhraseVerifier
	notifier *notify.Notifier
}

func NewUserHandler(
	users *services.UserService,
	issuer *auth.Issuer,
	phrase *auth.PhraseVerifier,
	notifier *notify.Notifier,
) *UserHandler {
	return &UserHandler{users: users, issuer: issuer, phrase: phrase, notifier: notifier}
}

func (h *UserHandler) Register(c *fiber.Ctx) error {
	var sub services.Submission
	if err := json.Unmarshal(c.Body(), &sub); err != nil || len(sub) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Message: "No se proporcionaron datos",
		})
	}

	user, err := h.users.Create(c.UserContext(), sub)
	if err != nil {
		if errors.Is(err, services.ErrPersistence) {
			slog.Error("user creation failed", "request_id", requestID(c), "error", err)
		}
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Message: services.Message(err),
		})
	}

	token, err := h.issuer.Issue(user.ID)
	if err != nil {
		slog.Error("token issue failed", "request_id", requestID(c), "user_id", user.ID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Message: "Error al generar el token",
		})
	}

	h.notifier.Dispatch(*user)

	return c.Status(fiber.StatusCreated).JSON(dto.NewRegisterResponse(user, token))
}

func (h *UserHandler) VerifyPhrase(c *fiber.Ctx) error {
	var req dto.VerifyPhraseRequest
	_ = json.Unmarshal(c.Body(), &req)

	phrase, ok := req.SecretPhrase.(string)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Message: "Frase secreta no proporcionada",
		})
	}

	if !h.phrase.Match(phrase) {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.VerifyPhraseResponse{
			Success: false,
			Message: "Frase secreta incorrecta",
		})
	}

	token, err := h.issuer.Issue(auth.SpecialAccessSubject)
	if err != nil {
		slog.Error("token issue failed", "request_id", requestID(c), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Message: "Error al generar el token",
		})
	}

	return c.JSON(dto.VerifyPhraseResponse{
		Success: true,
		Message: "Frase secreta correcta",
		Token:   token,
	})
}

// Me reports the identity carried by the bearer token.
func (h *UserHandler) Me(c *fiber.Ctx) error {
	userID, special := middleware.Identity(c)
	resp := dto.MeResponse{UserID: userID, IsSpecialAccess: special}
	if special {
		return c.JSON(resp)
	}

	user, err := h.users.Get(c.UserContext(), userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Message: "Usuario no encontrado",
			})
		}
		return err
	}
	resp.User = user
	return c.JSON(resp)
}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals("requestid").(string)
	return id
}
