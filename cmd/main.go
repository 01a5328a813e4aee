package main

import (
	"fmt"
	"os"
	"time"

	redisclient "github.com/yungbote/angie-backend/internal/clients/redis"
	"github.com/yungbote/angie-backend/internal/db"
	"github.com/yungbote/angie-backend/internal/handlers"
	"github.com/yungbote/angie-backend/internal/logger"
	"github.com/yungbote/angie-backend/internal/middleware"
	"github.com/yungbote/angie-backend/internal/repos"
	"github.com/yungbote/angie-backend/internal/server"
	"github.com/yungbote/angie-backend/internal/services"
	"github.com/yungbote/angie-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	port := utils.GetEnv("PORT", "8080", log)
	useRealtimeAI := utils.GetEnvAsBool("USE_REALTIME_AI", false, log)
	providerTimeoutSec := utils.GetEnvAsInt("OPENAI_TIMEOUT_SECONDS", 20, log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	lessonPlanRepo := repos.NewLessonPlanRepo(thePG, log)
	lessonRunRepo := repos.NewLessonRunRepo(thePG, log)
	lessonTemplateRepo := repos.NewLessonTemplateRepo(thePG, log)
	abilityRepo := repos.NewAdaptiveAbilityRepo(thePG, log)
	adaptiveEventRepo := repos.NewAdaptiveEventRepo(thePG, log)
	srsQueueRepo := repos.NewSrsQueueRepo(thePG, log)
	errorLogRepo := repos.NewErrorLogRepo(thePG, log)
	kbDocRepo := repos.NewKbDocRepo(thePG, log)
	userEventRepo := repos.NewUserEventRepo(thePG, log)

	// Redis turn bus (optional; analytics degrades to postgres-only)
	var turnBus redisclient.TurnBus
	turnBus, err = redisclient.NewTurnBus(log)
	if err != nil {
		log.Warn("Could not init redis turn bus, analytics events stay local", "error", err)
		turnBus = nil
	} else {
		defer turnBus.Close()
	}

	// Services
	log.Info("Setting up Services from main...")
	plannerService := services.NewPlannerService(thePG, log, lessonPlanRepo, lessonTemplateRepo)
	lessonRunService := services.NewLessonRunService(thePG, log, lessonRunRepo, errorLogRepo)
	adaptiveService := services.NewAdaptiveService(thePG, log, abilityRepo, adaptiveEventRepo, lessonRunRepo)
	retrievalService := services.NewRetrievalService(thePG, log, kbDocRepo, lessonRunRepo, errorLogRepo)
	pronunciationService := services.NewPronunciationService(log)
	policyService := services.NewPolicyService(log)
	srsService := services.NewSrsService(thePG, log, srsQueueRepo)
	analyticsService := services.NewAnalyticsService(thePG, log, userEventRepo, turnBus)

	contentService := services.NewHeuristicContentService(log)
	if useRealtimeAI {
		openaiClient, aiErr := services.NewOpenAIClient(log)
		if aiErr != nil {
			log.Warn("Could not init OpenAIClient, using heuristic content generation", "error", aiErr)
		} else {
			contentService = services.NewProviderContentService(log, openaiClient, contentService, time.Duration(providerTimeoutSec)*time.Second)
		}
	}

	orchestratorService := services.NewOrchestratorService(
		thePG,
		log,
		plannerService,
		adaptiveService,
		policyService,
		contentService,
		retrievalService,
		pronunciationService,
		srsService,
		lessonRunService,
		analyticsService,
		lessonPlanRepo,
	)

	authService := services.NewAuthService(log, jwtSecretKey)

	// Handlers
	log.Info("Setting up Handlers from main...")
	lessonHandler := handlers.NewLessonHandler(log, orchestratorService)
	srsHandler := handlers.NewSrsHandler(log, srsService)
	telemetryHandler := handlers.NewTelemetryHandler(log, analyticsService)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	router := server.NewRouter(server.RouterConfig{
		AuthMiddleware:   authMiddleware,
		LessonHandler:    lessonHandler,
		SrsHandler:       srsHandler,
		TelemetryHandler: telemetryHandler,
	})

	log.Info("Starting server...", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server exited", "error", err)
		os.Exit(1)
	}
}
