package main

import (
	"log"
	"strings"

	"payment-sync-service/config"
	"payment-sync-service/controllers"
	"payment-sync-service/database"
	"payment-sync-service/kafka"
	"payment-sync-service/models"
	"payment-sync-service/repository"
	"payment-sync-service/routes"
	"payment-sync-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("[PaymentSync] Failed to load config:", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("[PaymentSync] Failed to initialize logger:", err)
	}
	defer logger.Sync()

	db, err := database.ConnectPostgres(cfg, logger, &models.Payment{}, &models.SyncCursor{})
	if err != nil {
		log.Fatal("[PaymentSync] Failed to connect to DB:", err)
	}
	database.DB = db
	defer database.Close()

	paymentRepo := repository.NewGormPaymentRepo(db)
	railClient := services.NewRailClient(cfg.RailBaseURL, cfg.RailClientID, cfg.RailSecret)

	statusProducer := kafka.NewPaymentEventProducer(strings.Split(cfg.KafkaBrokers, ","), cfg.KafkaTopic)
	defer statusProducer.Close()

	syncService := services.NewSyncService(paymentRepo, railClient, statusProducer, cfg.StartSyncNum, logger)

	r := gin.New()
	r.Use(gin.Recovery())

	wc := controllers.NewWebhookController(syncService, cfg.RailWebhookSecret, logger)
	routes.RegisterWebhookRoutes(r, wc, cfg.DebugToken)

	logger.Info("Webhook receiver is up and running", zap.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("[PaymentSync] Server failed:", err)
	}
}
