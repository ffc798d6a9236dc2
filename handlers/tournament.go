package handlers

import (
	"prediction-league-system/middleware"
	"prediction-league-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupTournamentRoutes(
	app *fiber.App,
	tournamentService *services.TournamentService,
	standingsService *services.StandingsService,
	bonusService *services.BonusService,
) {
	// 🔓 Public read surface
	app.Get("/tournaments", tournamentService.GetAllTournaments)
	app.Get("/tournaments/:id", tournamentService.GetTournamentByID)
	app.Get("/tournaments/:id/standings", standingsService.GetStandings)
	app.Get("/tournaments/:id/bonus-matches", bonusService.GetTournamentBonusMatches)

	// 🔐 Authenticated routes
	secured := app.Group("/s", middleware.UserContextMiddleware())

	secured.Post("/tournaments", tournamentService.CreateTournament)
	secured.Patch("/tournaments/:id/status", middleware.RequireRole("admin", "manager"), tournamentService.UpdateTournamentStatus)
	secured.Post("/tournaments/:id/join", tournamentService.JoinTournament)

	// Predictions lock at kickoff; last write before kickoff wins.
	secured.Put("/tournaments/:id/matches/:match_id/prediction", tournamentService.SubmitPrediction)
	secured.Get("/tournaments/:id/predictions", tournamentService.GetMyPredictions)
}
