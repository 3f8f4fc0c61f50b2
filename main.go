package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"meetsync/config"
	"meetsync/cron"
	"meetsync/database"
	recordsRepo "meetsync/database/repository/records"
	"meetsync/handlers"
	"meetsync/middleware"
	"meetsync/routes"
	"meetsync/services/booking"
	"meetsync/services/calendar"
	"meetsync/services/intelligence"
	"meetsync/services/tasks"
	"meetsync/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitSessionCache()
	utils.StartHealthMonitor(utils.GetSessionCacheClient(), database.MongoClient)

	ctx := context.Background()

	loc, err := time.LoadLocation(config.AppConfig.Timezone)
	if err != nil {
		logger.Sugar().Fatalf("main: invalid TIMEZONE %q: %v", config.AppConfig.Timezone, err)
	}

	gateway, err := calendar.NewGoogleCalendarGateway(ctx,
		config.AppConfig.GoogleCredentialsFile,
		config.AppConfig.CalendarID,
	)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize calendar gateway: %v", err)
	}

	// Gemini handles field extraction when a key is configured; the
	// keyword parser covers everything else.
	var language intelligence.LanguageService
	if key := config.AppConfig.GoogleAPIKey; key != "" {
		gemini, err := intelligence.NewGeminiService(ctx, key)
		if err != nil {
			logger.Sugar().Fatalf("main: failed to initialize Gemini: %v", err)
		}
		language = gemini
	} else {
		logger.Info("no GOOGLE_API_KEY set, using keyword language service")
		language = intelligence.NewKeywordService()
	}

	// Background archiver: bookings are queued and persisted off the
	// request path.
	repo := recordsRepo.NewMongoRecordRepo()
	cron.InitArchiveWorker(repo)
	archiver := tasks.NewQueueArchiver()
	defer archiver.Close()

	engine := booking.NewEngine(
		gateway,
		language,
		archiver,
		time.Duration(config.AppConfig.SlotDurationMin)*time.Minute,
		loc,
	)

	sessions := booking.NewRedisSessionStore(
		utils.GetSessionCacheClient(),
		time.Duration(config.AppConfig.SessionTTLMin)*time.Minute,
	)

	assistantHandler := handlers.NewAssistantHandler(engine, sessions)
	recordsHandler := handlers.NewBookingRecordsHandler(repo)

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	routes.RegisterRoutes(router, assistantHandler, recordsHandler)

	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
