package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/irrelevantclub/toolkit-backend/internal/dto"
	"github.com/irrelevantclub/toolkit-backend/internal/store"
)

type HealthHandler struct {
	store store.UserStore
}

func NewHealthHandler(st store.UserStore) *HealthHandler {
	return &HealthHandler{store: st}
}

func (h *HealthHandler) Home(c *fiber.Ctx) error {
	return c.JSON(dto.HomeResponse{
		Message: "Bienvenido a la API de irrelevant toolkit",
		Status:  "online",
	})
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
	defer cancel()

	dbStatus := "ok"
	if err := h.store.Ping(ctx); err != nil {
		dbStatus = "unhealthy: " + err.Error()
	}

	return c.JSON(dto.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        dbStatus,
	})
}
