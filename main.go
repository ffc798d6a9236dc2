package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"prediction-league-system/handlers"
	"prediction-league-system/models"
	"prediction-league-system/services"
	"prediction-league-system/utils"
	"prediction-league-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024, // 10MB, largest upload is a trophy icon
	})

	// Load allowed origins from environment variable
	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-Service-Token",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Tournament{},
		&models.TournamentParticipant{},
		&models.BonusMatch{},
		&models.Match{},
		&models.Prediction{},
		&models.TrophyUnlock{},
		&models.MirroredUser{},
		&models.AdminSetting{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	tournamentService := services.NewTournamentService(db)
	standingsService := services.NewStandingsService(db)
	bonusService := services.NewBonusService(db)
	trophyService := services.NewTrophyService(db)
	recomputeService := services.NewRecomputeService(db, standingsService, bonusService, trophyService)

	// --- Upstream service configuration ---
	providerURL := os.Getenv("FOOTBALL_DATA_URL")
	if providerURL == "" {
		providerURL = "https://api.football-data.org"
	}
	providerToken := os.Getenv("FOOTBALL_DATA_TOKEN")
	if providerToken == "" {
		log.Fatal("FOOTBALL_DATA_TOKEN environment variable not set")
	}
	profileServiceURL := os.Getenv("PROFILE_SERVICE_URL")
	if profileServiceURL == "" {
		log.Fatal("PROFILE_SERVICE_URL environment variable not set")
	}
	serviceToken := os.Getenv("PREDICTION_SERVICE_TOKEN")
	if serviceToken == "" {
		log.Fatal("PREDICTION_SERVICE_TOKEN environment variable not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	matchSyncWorker := workers.NewMatchSyncWorker(db, providerURL, providerToken)
	matchSyncWorker.Start(ctx)

	profileSyncWorker := workers.NewProfileSyncWorker(db, profileServiceURL, "/api/v1/public/profiles", serviceToken)
	profileSyncWorker.Start(ctx)

	recomputeService.StartRecomputeScheduler(ctx)

	handlers.SetupTournamentRoutes(app, tournamentService, standingsService, bonusService)
	handlers.SetupTrophyRoutes(app, trophyService, recomputeService)

	port := os.Getenv("PORT")
	if port == "" {
		port = "5300"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Println("✅ Match Sync Worker running")
	log.Println("✅ Profile Sync Worker running")
	log.Println("✅ Recompute scheduler running (every 10m)")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
}
