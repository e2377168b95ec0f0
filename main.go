// File: beatbook/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"beatbook/config"
	"beatbook/cron"
	"beatbook/database"
	bookinglogRepo "beatbook/database/repository/bookinglog"
	"beatbook/handlers"
	"beatbook/routes"
	"beatbook/services/channel"
	"beatbook/services/chatbot"
	"beatbook/services/dateparse"
	"beatbook/services/extractor"
	ai "beatbook/services/intelligence"
	"beatbook/services/notification"
	"beatbook/services/session"
	"beatbook/services/sheets"
	"beatbook/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitSessionCache()

	ctx := context.Background()

	// Repositories.
	archiveRepo := bookinglogRepo.NewMongoBookingLogRepo()
	if err := archiveRepo.EnsureIndexes(ctx); err != nil {
		logger.Sugar().Fatalf("main: failed to create booking log indexes: %v", err)
	}

	// Core engines.
	parser, err := dateparse.NewParser(config.AppConfig.BusinessTZ)
	if err != nil {
		logger.Sugar().Fatalf("main: invalid business timezone: %v", err)
	}

	completer, err := ai.NewGeminiClient(config.AppConfig.GeminiAPIKey, config.AppConfig.GeminiModel)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize Gemini client: %v", err)
	}

	ext := extractor.New(
		extractor.DefaultConfig(config.AppConfig.CommitTriggers),
		completer,
		logger,
	)

	sessionStore := session.NewRedisStore(utils.GetSessionCacheClient(), 7*24*time.Hour)
	sessionMgr := session.NewManager(sessionStore, config.AppConfig.HistoryWindow, session.RatePolicy{
		Enabled:  config.AppConfig.RateLimitEnabled,
		Max:      config.AppConfig.RateLimitMax,
		WarnAt:   config.AppConfig.RateLimitWarnAt,
		Window:   time.Duration(config.AppConfig.RateLimitWindowS) * time.Second,
		Cooldown: time.Duration(config.AppConfig.RateLimitCooldown) * time.Second,
	})

	sheetAgent, err := sheets.NewAgent(ctx,
		config.AppConfig.GoogleCredsPath,
		config.AppConfig.SpreadsheetID,
		config.AppConfig.SheetRange,
	)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize sheets agent: %v", err)
	}

	// Escalation queue and background worker.
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})
	defer asynqClient.Close()
	notifier := notification.NewQueueNotifier(asynqClient)
	cron.InitEscalationWorker()

	chatbotSvc, err := chatbot.NewDefaultChatbotService(
		sessionMgr, completer, parser, ext, archiveRepo, sheetAgent, notifier,
		chatbot.Options{
			Profile: chatbot.BusinessProfile{
				BusinessName: config.AppConfig.BusinessName,
				BotName:      config.AppConfig.BotName,
				Location:     config.AppConfig.Location,
				TimeSlots:    config.AppConfig.TimeSlots,
			},
			ExtractionCadence:   config.AppConfig.ExtractionCadence,
			SuggestionFrequency: config.AppConfig.SuggestionFrequency,
			SanitizerMaxLength:  config.AppConfig.SanitizerMaxLength,
		},
	)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize chatbot service: %v", err)
	}

	var sender handlers.Sender
	if config.AppConfig.PageID != "" && config.AppConfig.PageAccessToken != "" {
		sender = channel.NewInstagramSender(config.AppConfig.PageID, config.AppConfig.PageAccessToken)
	} else {
		logger.Warn("main: no channel credentials configured, replies will only be logged")
		sender = channel.LogSender{}
	}

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())

	handlerBundle := &handlers.HandlerBundle{
		VerifyWebhookHandler: handlers.VerifyWebhookHandler(config.AppConfig.WebhookVerifyToken),
		WebhookEventHandler:  handlers.WebhookEventHandler(chatbotSvc, sender),
		ChatHandler:          handlers.ChatHandler(chatbotSvc),
		ClearSessionHandler:  handlers.ClearSessionHandler(chatbotSvc),
		HealthHandler:        handlers.HealthHandler(),
	}

	routes.RegisterRoutes(router, handlerBundle)

	// Start the HTTP server.
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
