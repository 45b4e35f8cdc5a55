package main

import (
	"context"
	"log"
	"strings"

	"svarak-backend/internal/auth"
	"svarak-backend/internal/cart"
	"svarak-backend/internal/catalog"
	"svarak-backend/internal/config"
	"svarak-backend/internal/connectivity"
	"svarak-backend/internal/database"
	"svarak-backend/internal/export"
	"svarak-backend/internal/offline"
	"svarak-backend/internal/orders"
	"svarak-backend/internal/payment"
	"svarak-backend/internal/realtime"
	"svarak-backend/internal/remote"
	"svarak-backend/internal/stats"
	"svarak-backend/internal/syncer"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer logger.Sync()

	cfg := config.Load()

	db, err := database.Open(cfg, logger)
	if err != nil {
		logger.Fatal("database init failed", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := remote.NewClient(db)
	staging := offline.NewStore(cfg.OfflineDataPath, logger)
	sessions := cart.NewSessions()

	monitor := connectivity.NewMonitor(client, true, logger)
	monitor.Start()
	defer monitor.Stop()

	repo := orders.NewRepository(client, staging, monitor, logger)
	repo.LoadOrders(ctx)

	manager := syncer.NewManager(staging, client, logger)
	manager.OnSyncComplete(func() { repo.LoadOrders(context.Background()) })
	manager.Start(ctx, monitor.Transitions())
	defer manager.Stop()

	// Other terminals' changes arrive as pg_notify signals; any change
	// triggers a wholesale reload.
	subscription := realtime.Subscribe(ctx, cfg.DatabaseDSN, logger)
	defer subscription.Close()
	go repo.Run(ctx, subscription.C)

	paymentCfg := payment.Config{
		IBAN:          cfg.PaymentIBAN,
		Currency:      cfg.PaymentCurrency,
		MessagePrefix: cfg.PaymentMessage,
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{"error": e.Message})
			}
			logger.Error("unexpected handler error", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Neočekávaná chyba serveru",
			})
		},
	})

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	api := app.Group("/api")

	// Public
	api.Post("/auth/login", auth.LoginHandler(cfg))

	// Everything else sits behind the shared-password session
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/products", catalog.ListProductsHandler())

	// Cart
	protected.Get("/cart", cart.GetCartHandler(sessions))
	protected.Post("/cart/add", cart.AddProductHandler(sessions))
	protected.Post("/cart/return", cart.AddReturnHandler(sessions))
	protected.Post("/cart/quantity", cart.UpdateQuantityHandler(sessions))
	protected.Post("/cart/clear", cart.ClearCartHandler(sessions))

	// Orders
	protected.Get("/orders", orders.ListOrdersHandler(repo))
	protected.Post("/orders", orders.SubmitOrderHandler(repo, sessions))
	protected.Put("/orders/:id", orders.UpdateOrderHandler(repo, sessions))
	protected.Post("/orders/:id/load", orders.LoadCartFromOrderHandler(repo, sessions))
	protected.Post("/orders/:id/toggle-complete", orders.ToggleCompleteHandler(repo))
	protected.Put("/orders/:id/note", orders.UpdateNoteHandler(repo))
	protected.Post("/orders/:id/items/:itemId/toggle-ready", orders.ToggleItemReadyHandler(repo))
	protected.Post("/orders/:id/items/ready-all", orders.MarkAllReadyHandler(repo))
	protected.Delete("/orders/:id", orders.DeleteOrderHandler(repo))
	protected.Post("/orders/purge", orders.PurgeHandler(repo))
	protected.Post("/orders/reset-numbering", orders.ResetOrderNumberHandler(repo))

	// Payments
	protected.Get("/orders/:id/qr", payment.QRHandler(paymentCfg, repo))

	// Connectivity + sync
	protected.Get("/connectivity", connectivity.StatusHandler(monitor))
	protected.Post("/connectivity/check", connectivity.CheckHandler(monitor))
	protected.Post("/connectivity/hint", connectivity.HintHandler(monitor))
	protected.Get("/sync/status", syncer.StatusHandler(manager))
	protected.Post("/sync", syncer.TriggerHandler(manager))

	// Reporting
	protected.Get("/statistics", stats.SummaryHandler(repo))
	protected.Get("/export/csv", export.CSVHandler(repo))
	protected.Get("/export/xlsx", export.XLSXHandler(repo))

	logger.Info("server listening", zap.String("port", cfg.HTTPPort))
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
