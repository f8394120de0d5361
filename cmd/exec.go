package cmd

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"eventhub/config"
	"eventhub/internal/events"
	"eventhub/internal/handlers"
	"eventhub/internal/ledger"
	"eventhub/internal/notify"
	"eventhub/internal/services"
	"eventhub/internal/store"
	"eventhub/monitoring"
	"eventhub/security"
	"eventhub/utils"

	_ "eventhub/migrations"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	pubnub "github.com/pubnub/go"
)

func Start() error {
	app := pocketbase.New()

	cfg := config.LoadConfig()

	redisClient := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PubNub is optional; without keys the notifier and the payment
	// subscriber stay inert.
	var pn *pubnub.PubNub
	if cfg.PubNubPublishKey != "" && cfg.PubNubSubscribeKey != "" {
		pnConfig := pubnub.NewConfig()
		pnConfig.PublishKey = cfg.PubNubPublishKey
		pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
		pnConfig.SecretKey = cfg.PubNubSecretKey
		pn = pubnub.NewPubNub(pnConfig)
	}

	var notifier services.Notifier
	if pn != nil {
		notifier = notify.NewNotifier(pn)
	}

	// Kafka order stream is optional as well.
	var publisher services.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		p := events.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		p.Start(ctx)
		publisher = p
	}

	pbStore := store.NewPBStore(app)
	inventoryLedger := ledger.NewDBLedger(app)

	catalogService := services.NewCatalogService(pbStore, inventoryLedger, redisClient, cfg.AvailabilityCacheTTL)
	reservationService := services.NewReservationService(
		pbStore, inventoryLedger, redisClient, notifier, publisher,
		cfg.ReservationTTL, cfg.SweepInterval, cfg.SweepBatchSize,
	)
	orderService := services.NewOrderService(pbStore, inventoryLedger, reservationService, notifier, publisher)
	paymentService := services.NewPaymentService(redisClient, pn, orderService, notifier, cfg.PaymentSessionTTL)

	eventHandler := handlers.NewEventHandler(app, catalogService)
	ticketHandler := handlers.NewTicketHandler(app, catalogService)
	reservationHandler := handlers.NewReservationHandler(reservationService)
	orderHandler := handlers.NewOrderHandler(orderService)
	paymentHandler := handlers.NewPaymentHandler(paymentService, reservationService, catalogService)
	adminHandler := handlers.NewAdminHandler(app, reservationService)

	rateLimiter := security.NewRateLimiter(redisClient, cfg.ReserveRateLimit, cfg.ReserveRateWindow)

	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	go reservationService.RunSweeper(ctx)
	go paymentService.SubscribeToPaymentNotifications()

	if cfg.EnableMetrics {
		go monitoring.StartOpsServer(cfg.MetricsPort, redisClient)
	}

	go handleShutdown(cancel)

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		// Public directory
		e.Router.GET("/api/v1/events", eventHandler.ListEvents)
		e.Router.GET("/api/v1/events/upcoming", eventHandler.UpcomingEvents)
		e.Router.GET("/api/v1/events/{eventId}", eventHandler.GetEvent)
		e.Router.GET("/api/v1/events/{eventId}/tickets", ticketHandler.ListTicketTypes)
		e.Router.GET("/api/v1/tickets/{ticketId}/availability", ticketHandler.GetAvailability)
		e.Router.GET("/api/v1/categories", adminHandler.ListCategories)

		// Organizer: events and ticket types
		e.Router.POST("/api/v1/events", eventHandler.CreateEvent)
		e.Router.PATCH("/api/v1/events/{eventId}", eventHandler.UpdateEvent)
		e.Router.POST("/api/v1/events/{eventId}/publish", eventHandler.PublishEvent)
		e.Router.POST("/api/v1/events/{eventId}/cancel", eventHandler.CancelEvent)
		e.Router.POST("/api/v1/events/{eventId}/tickets", ticketHandler.CreateTicketType)
		e.Router.PATCH("/api/v1/tickets/{ticketId}", ticketHandler.UpdateTicketType)
		e.Router.POST("/api/v1/tickets/{ticketId}/capacity", ticketHandler.AddCapacity)
		e.Router.DELETE("/api/v1/tickets/{ticketId}", ticketHandler.DeleteTicketType)

		// Watchlist
		e.Router.POST("/api/v1/events/{eventId}/watchlist", eventHandler.ToggleWatchlist)
		e.Router.DELETE("/api/v1/events/{eventId}/watchlist", eventHandler.ToggleWatchlist)
		e.Router.GET("/api/v1/watchlist", eventHandler.MyWatchlist)

		// Reservations
		e.Router.POST("/api/v1/reservations", reservationHandler.CreateReservation).
			BindFunc(rateLimiter.Limit("reserve"))
		e.Router.GET("/api/v1/reservations", reservationHandler.MyReservations)
		e.Router.GET("/api/v1/reservations/{reservationId}", reservationHandler.GetReservation)
		e.Router.POST("/api/v1/reservations/{reservationId}/cancel", reservationHandler.CancelReservation)

		// Orders
		e.Router.POST("/api/v1/orders/purchase", orderHandler.Purchase)
		e.Router.GET("/api/v1/orders", orderHandler.MyOrders)
		e.Router.GET("/api/v1/orders/{orderId}", orderHandler.GetOrder)
		e.Router.POST("/api/v1/orders/{orderId}/refund", orderHandler.Refund)

		// Payments
		e.Router.POST("/api/v1/payments/session", paymentHandler.CreateSession)
		e.Router.GET("/api/v1/payments/{paymentId}/status", paymentHandler.SessionStatus)

		// Admin
		e.Router.POST("/api/v1/admin/categories", adminHandler.CreateCategory)
		e.Router.PATCH("/api/v1/admin/categories/{categoryId}", adminHandler.UpdateCategory)
		e.Router.DELETE("/api/v1/admin/categories/{categoryId}", adminHandler.DeleteCategory)
		e.Router.POST("/api/v1/admin/users/{userId}/role", adminHandler.UpdateUserRole)
		e.Router.GET("/api/v1/admin/inventory", adminHandler.InventoryDashboard)
		e.Router.POST("/api/v1/admin/sweep", adminHandler.ForceSweep)

		// Test endpoint for payment simulation
		if cfg.Environment == "development" {
			e.Router.POST("/api/v1/test/simulate-payment", paymentHandler.SimulatePayment)
		}

		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(503, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(200, map[string]string{"status": "healthy"})
		})

		log.Println("Server routes registered")

		return e.Next()
	})

	if err := app.Start(); err != nil {
		return err
	}
	return nil
}

func handleShutdown(cancel context.CancelFunc) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down background workers")
	cancel()
}
