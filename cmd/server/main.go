package main

import (
	"context"
	"log"
	"log/slog"
	"time"

	"chapacerto/internal/config"
	"chapacerto/internal/database"
	"chapacerto/internal/events"
	"chapacerto/internal/handlers"
	"chapacerto/internal/middleware"
	"chapacerto/internal/redis"
	"chapacerto/internal/repository"
	"chapacerto/internal/services"
	"chapacerto/pkg/logger"
	"chapacerto/pkg/mercadopago"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()
	logger.Init(&logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	// Initialize database
	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Change-event bus: redis pub/sub, or in-process when redis is down.
	var bus events.Bus
	redisClient, err := redis.Initialize(cfg.RedisURL)
	if err != nil {
		slog.Warn("redis unavailable, notifications stay in-process", "error", err)
		bus = events.NewMemoryBus()
	} else {
		bus = redisClient
		defer redisClient.Close()
	}

	// Payment processor
	mpClient := mercadopago.NewClient(cfg.MPAPIURL, cfg.MPAccessToken)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	orderRepo := repository.NewOrderRepository(db, bus)
	proposalRepo := repository.NewProposalRepository(db, bus)
	messageRepo := repository.NewMessageRepository(db, bus)
	reviewRepo := repository.NewReviewRepository(db)
	reportRepo := repository.NewReportRepository(db)
	intentRepo := repository.NewPaymentIntentRepository(db)

	// Initialize services
	userService := services.NewUserService(userRepo)
	lifecycleService := services.NewLifecycleService(orderRepo, proposalRepo, cfg.StaleOrderAge)
	matchingService := services.NewMatchingService(orderRepo, userRepo, reviewRepo)
	contactService := services.NewContactService(orderRepo, userRepo)
	chatService := services.NewChatService(messageRepo, proposalRepo, orderRepo, cfg.ChatExpiry)
	paymentService := services.NewPaymentService(mpClient, intentRepo, orderRepo, userRepo, cfg.ContactFee, cfg.IntentExpiry)
	reviewService := services.NewReviewService(reviewRepo, reportRepo, orderRepo)
	adminService := services.NewAdminService(userRepo, orderRepo, reportRepo)
	notificationService := services.NewNotificationService(bus, orderRepo, proposalRepo, messageRepo, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := notificationService.Run(ctx); err != nil && ctx.Err() == nil {
			slog.Error("notification fan-out stopped", "error", err)
		}
	}()

	// Initialize handlers
	tokenTTL := time.Duration(cfg.TokenExpireHours) * time.Hour
	authHandler := handlers.NewAuthHandler(userService, cfg.JWTSecret, tokenTTL)
	orderHandler := handlers.NewOrderHandler(lifecycleService, matchingService, contactService, reviewService, chatService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	chatHandler := handlers.NewChatHandler(chatService, notificationService)
	adminHandler := handlers.NewAdminHandler(adminService)

	// Setup routes
	router := gin.Default()

	router.POST("/api/auth/register", authHandler.Register)
	router.POST("/api/auth/login", authHandler.Login)

	api := router.Group("/api")
	api.Use(middleware.Auth(cfg.JWTSecret), middleware.RequireActive(userRepo))
	{
		api.GET("/me", authHandler.Me)
		api.PUT("/me", authHandler.UpdateProfile)
		api.PUT("/me/availability", authHandler.SetAvailability)

		api.POST("/orders", orderHandler.Create)
		api.GET("/orders/mine", orderHandler.Mine)
		api.GET("/orders/stale", orderHandler.StaleOrders)
		api.GET("/orders/feed", orderHandler.Feed)
		api.GET("/workers/radar", orderHandler.Radar)
		api.GET("/orders/:id", orderHandler.Get)
		api.PUT("/orders/:id", orderHandler.Update)
		api.DELETE("/orders/:id", orderHandler.Delete)

		api.POST("/orders/:id/proposals", orderHandler.SubmitProposal)
		api.GET("/orders/:id/proposals", orderHandler.ListProposals)
		api.GET("/proposals/mine", orderHandler.MyProposals)
		api.POST("/orders/:id/proposals/:proposal_id/accept", orderHandler.AcceptProposal)
		api.DELETE("/proposals/:proposal_id", orderHandler.RejectProposal)
		api.DELETE("/proposals/:proposal_id/mine", orderHandler.WithdrawProposal)

		api.POST("/orders/:id/cancel", orderHandler.Cancel)
		api.POST("/orders/:id/finish", orderHandler.Finish)
		api.GET("/orders/:id/contact", orderHandler.Contact)
		api.POST("/orders/:id/review", orderHandler.Review)
		api.POST("/orders/:id/report", orderHandler.Report)

		api.POST("/orders/:id/payment", paymentHandler.CreateIntent)
		api.GET("/orders/:id/receipt", paymentHandler.Receipt)
		api.GET("/payments/:intent_id", paymentHandler.Poll)

		api.POST("/chats/:proposal_id/messages", chatHandler.Send)
		api.GET("/chats/:proposal_id/messages", chatHandler.History)
		api.POST("/chats/:proposal_id/read", chatHandler.MarkRead)
		api.GET("/chats/:proposal_id/unread", chatHandler.UnreadCount)
		api.GET("/notifications/stream", chatHandler.Stream)

		admin := api.Group("/admin")
		{
			admin.GET("/users", adminHandler.ListUsers)
			admin.PUT("/users/:id/blocked", adminHandler.SetBlocked)
			admin.PUT("/users/:id/admin", adminHandler.SetAdmin)
			admin.DELETE("/users/:id", adminHandler.DeleteUser)
			admin.GET("/reports", adminHandler.ListReports)
			admin.DELETE("/reports/:id", adminHandler.DismissReport)
			admin.GET("/counts", adminHandler.Counts)
		}
	}

	// Start server
	log.Printf("Server starting on port %s", cfg.ServerPort)
	if err := router.Run(":" + cfg.ServerPort); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
