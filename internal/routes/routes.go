package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/irrelevantclub/toolkit-backend/internal/auth"
	"github.com/irrelevantclub/toolkit-backend/internal/config"
	"github.com/irrelevantclub/toolkit-backend/internal/handlers"
	"github.com/irrelevantclub/toolkit-backend/internal/middleware"
	"github.com/irrelevantclub/toolkit-backend/internal/services"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	issuer *auth.Issuer,
	userService *services.UserService,
	userHandler *handlers.UserHandler,
	healthHandler *handlers.HealthHandler,
	adminHandler *handlers.AdminHandler,
) {
	app.Get("/", healthHandler.Home)

	api := app.Group("/api")
	api.Get("/health", healthHandler.Check)

	users := api.Group("/users")
	users.Post("/register", userHandler.Register)
	users.Post("/verify-phrase", userHandler.VerifyPhrase)

	// Protected routes carry the guard individually so public routes stay open.
	users.Get("/me", middleware.TokenRequired(issuer), userHandler.Me)

	admin := api.Group("/admin", middleware.AdminRequired(issuer, userService, cfg))
	admin.Get("/users", adminHandler.LookupUser)
}
