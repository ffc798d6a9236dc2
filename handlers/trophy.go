package handlers

import (
	"prediction-league-system/middleware"
	"prediction-league-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupTrophyRoutes(
	app *fiber.App,
	trophyService *services.TrophyService,
	recomputeService *services.RecomputeService,
) {
	// 🔐 Authenticated routes
	secured := app.Group("/s", middleware.UserContextMiddleware())
	secured.Get("/users/me/trophies", trophyService.GetUserTrophies)
	secured.Post("/users/me/trophies/seen", trophyService.MarkTrophiesSeen)

	// 🛡️ Gateway-only admin surface
	admin := app.Group("/admin", middleware.GatewayAuthMiddleware())
	admin.Post("/recompute", recomputeService.TriggerRecompute)
	admin.Post("/trophies/icons", trophyService.UploadTrophyIcon)
}
