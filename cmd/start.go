package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"db-sync/core/loader"
	"db-sync/core/logger"
	"db-sync/core/metrics"
	"db-sync/core/middleware/auth"
	"db-sync/core/middleware/rayid"
	"db-sync/feature/syncer"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the sync server",
	Long:  `Starts the HTTP server exposing sync runs, the source table list and metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. Metrics on the default registry so runtime collectors are exported too
		m := metrics.NewWith(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)

		// 2. Configuration, Logger and Sync Service
		app, err := bootstrap(m)
		if err != nil {
			return err
		}
		logg := app.logger
		defer logg.Sync()
		cfg := app.cfg

		// 3. Initialize Fiber App
		server := fiber.New(fiber.Config{
			DisableStartupMessage: true, // We will log our own startup message
			JSONEncoder:           json.Marshal,
			JSONDecoder:           json.Unmarshal,
			ReadTimeout:           cfg.Server.ReadTimeout(),
		})

		// 4. Initialize Feature Loader
		mgr := loader.NewManager()
		mgr.Register(syncer.NewFeature(app.service, m, logg))

		// Middleware Registration
		// 1. RayID (Must be first to trace everything)
		server.Use(rayid.New())

		// 2. Logging Middleware (Custom to use Zap + RayID)
		server.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		// 3. Auth (Protect API, metrics stay scrapeable)
		server.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey, Skip: []string{"/metrics"}}))
		if !cfg.Server.IsProtected() {
			logg.Warn("API key not set, requests are not authenticated")
		}

		// 5. Load Features
		if err := mgr.LoadAll(server); err != nil {
			return err
		}

		// 6. Start Server
		go func() {
			logg.Info("Starting server", zap.String("port", cfg.Server.Port))
			if err := server.Listen(":" + cfg.Server.Port); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// 7. Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		return server.Shutdown()
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
