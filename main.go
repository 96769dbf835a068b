package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"prospectflow/config"
	"prospectflow/editor"
	"prospectflow/events"
	"prospectflow/middleware"
	"prospectflow/models"
	"prospectflow/routes"
	"prospectflow/store"
	"prospectflow/utils"
	"prospectflow/worker"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/valyala/fasthttp"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "prospectflow",
		Short:         "Email sequence editor and prospect discovery backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API and background workers",
			RunE: func(cmd *cobra.Command, args []string) error {
				return serve(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "bootstrap",
			Short: "Create the custom objects and exit",
			RunE: func(cmd *cobra.Command, args []string) error {
				return bootstrap(cmd.Context())
			},
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logrus.WithError(err).Error("prospectflow exited with error")
		sentry.Flush(2 * time.Second)
		os.Exit(1)
	}
}

func setup() error {
	if err := config.LoadConfig(); err != nil {
		return err
	}

	if config.AppConfig.Environment == "production" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	if config.AppConfig.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.AppConfig.SentryDSN,
			Environment: config.AppConfig.Environment,
		}); err != nil {
			logrus.WithError(err).Warn("Sentry initialization failed")
		}
	}

	return config.ConnectDB()
}

func ensureObjects(ctx context.Context) error {
	defs, err := models.DefaultObjectDefinitions()
	if err != nil {
		return err
	}
	results, err := models.EnsureObjects(ctx, config.DB, defs)
	if err != nil {
		return err
	}
	for _, r := range results {
		logrus.WithFields(logrus.Fields{
			"object":  r.APIName,
			"created": r.Created,
			"fields":  r.Fields,
		}).Info("Custom object ensured")
	}
	return nil
}

func bootstrap(ctx context.Context) error {
	if err := setup(); err != nil {
		return err
	}
	defer sentry.Flush(2 * time.Second)
	return ensureObjects(ctx)
}

func newPublisher() events.Publisher {
	log := utils.ComponentLogger("events")
	if config.AppConfig.AMQP.URL == "" {
		return events.NewFallback(log)
	}
	publisher, err := events.NewRMQ(config.AppConfig.AMQP.URL, config.AppConfig.AMQP.Exchange, log)
	if err != nil {
		log.WithError(err).Warn("AMQP unavailable, events will be dropped")
		return events.NewFallback(log)
	}
	return publisher
}

func serve(ctx context.Context) error {
	if err := setup(); err != nil {
		return err
	}
	defer sentry.Flush(2 * time.Second)

	if err := ensureObjects(ctx); err != nil {
		return err
	}

	cfg := config.AppConfig
	exa := utils.NewExaClient(utils.ExaOptions{
		APIKey:          cfg.Exa.APIKey,
		BaseURL:         cfg.Exa.BaseURL,
		PollInterval:    cfg.Exa.PollInterval,
		MaxPollAttempts: cfg.Exa.MaxPollAttempts,
		Client: &fasthttp.Client{
			Name:                "prospectflow",
			MaxIdleConnDuration: time.Minute,
		},
		Logger: utils.ComponentLogger("exa"),
	})
	mailer := utils.NewMailer(utils.MailerOptions{
		Host:      cfg.SMTPHost,
		Port:      cfg.SMTPPort,
		Username:  cfg.SMTPUsername,
		Password:  cfg.SMTPPassword,
		FromEmail: cfg.FromEmail,
		FromName:  cfg.FromName,
	})
	publisher := newPublisher()
	defer publisher.Close()

	registry := editor.NewRegistry()
	hub := utils.NewProgressHub()
	records := store.NewGormRecordStore(config.DB)

	websetWorker := worker.NewWebsetWorker(store.NewWebsetRepository(records), exa, hub, publisher,
		cfg.WebsetWorkerQueue, utils.ComponentLogger("webset_worker"))
	reaper := worker.NewSessionReaper(registry, cfg.SessionIdleTimeout, utils.ComponentLogger("session_reaper"))

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go websetWorker.Start(workerCtx)
	go reaper.Start(workerCtx)

	app := fiber.New(fiber.Config{AppName: "prospectflow"})
	app.Use(middleware.CORS(corsConfig(cfg.CORSOrigins)))

	routes.SetupRoutes(app, routes.Dependencies{
		DB:        config.DB,
		Exa:       exa,
		Mailer:    mailer,
		Events:    publisher,
		Registry:  registry,
		Hub:       hub,
		Runs:      websetWorker,
		Generator: editor.MockGenerator{Delay: time.Second},
		RateLimit: middleware.RateLimitConfig{
			Name:       "exa",
			Max:        cfg.Exa.RateLimit,
			Expiration: time.Minute,
			Storage:    middleware.NewRateLimitStorage(cfg.Redis),
		},
	})

	errCh := make(chan error, 1)
	go func() {
		logrus.Infof("🚀 Server starting on port %s", cfg.ServerPort)
		errCh <- app.Listen(":" + cfg.ServerPort)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logrus.Info("Shutting down...")
		cancel()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}
}

func corsConfig(origins string) middleware.CORSConfig {
	cfg := middleware.DefaultCORSConfig()
	if parsed := middleware.ParseOrigins(origins); len(parsed) > 0 {
		cfg.AllowedOrigins = parsed
	}
	return cfg
}
