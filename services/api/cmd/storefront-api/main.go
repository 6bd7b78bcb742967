package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"storefront/pkg/blob"
	"storefront/pkg/bus"
	"storefront/pkg/config"
	"storefront/pkg/db"
	"storefront/pkg/mail"
	"storefront/pkg/render"
	gos3 "storefront/pkg/s3"
	"storefront/pkg/telemetry"
	"storefront/services/api"
	"storefront/services/catalog"
	"storefront/services/credentials"
	"storefront/services/fulfillment"
	"storefront/services/ledger"
	"storefront/services/notify"
	"storefront/services/payments"
)

func main() {
	if err := run("storefront-api"); err != nil {
		log.New(os.Stderr, "", log.LstdFlags).Fatal(err)
	}
}

func run(serviceName string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	cfg, err := config.LoadAPI(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := telemetry.NewLogger(serviceName, cfg.Level, cfg.Format, os.Stdout)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	shutdownTelemetry, err := telemetry.Init(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("telemetry shutdown")
		}
	}()

	pool, err := db.Open(ctx, cfg.DSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer pool.Close()

	applied, err := db.Migrate(ctx, pool)
	if err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	logger.Info().Int("applied", len(applied)).Msg("migrations up to date")

	orm, err := db.Connect(ctx, cfg.DSN)
	if err != nil {
		return fmt.Errorf("connect orm: %w", err)
	}
	defer func() { _ = db.Close(orm) }()

	products, err := catalog.NewPGRepository(pool)
	if err != nil {
		return err
	}
	creds, err := credentials.NewStore(orm, cfg.DownloadLinkTTL)
	if err != nil {
		return err
	}
	led, err := ledger.NewStore(orm)
	if err != nil {
		return err
	}

	files, err := openBlobStore(ctx, cfg.Blob)
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}

	renderOpts, err := cfg.RenderOptions()
	if err != nil {
		return err
	}
	renderer, err := render.New(renderOpts)
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}

	notifier, err := newNotifier(cfg, renderer, logger)
	if err != nil {
		return fmt.Errorf("init notifier: %w", err)
	}

	ready := []api.ReadinessCheck{
		func(ctx context.Context) error { return db.Ping(ctx, pool) },
	}

	deps := fulfillment.Deps{
		ORM:         orm,
		Products:    products,
		Credentials: creds,
		Ledger:      led,
		Files:       files,
		Notifier:    notifier,
		Logger:      logger,
	}

	if cfg.NATSURL != "" {
		eventBus, err := bus.New(cfg.NATSURL)
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer eventBus.Close()
		if err := eventBus.EnsureStream(ctx); err != nil {
			return fmt.Errorf("ensure stream: %w", err)
		}
		deps.Publisher = eventBus
		ready = append(ready, func(context.Context) error { return eventBus.Ping() })
	}

	svc, err := fulfillment.New(deps, fulfillment.Config{PublicBaseURL: cfg.PublicBaseURL})
	if err != nil {
		return fmt.Errorf("init fulfillment: %w", err)
	}

	verifier, err := payments.NewVerifier(cfg.StripeWebhookSecret)
	if err != nil {
		return err
	}

	apiLayer, err := api.New(api.Deps{
		Service:  svc,
		Verifier: verifier,
		Renderer: renderer,
		Ready:    ready,
		Logger:   logger,
	}, api.Config{
		AllowedOrigins:        cfg.AllowedOrigins,
		OrderHistoryRateLimit: cfg.OrderHistoryRateLimit,
	})
	if err != nil {
		return fmt.Errorf("init api: %w", err)
	}

	handler, err := apiLayer.Routes()
	if err != nil {
		return fmt.Errorf("build routes: %w", err)
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           telemetry.Middleware(serviceName, logger)(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func openBlobStore(ctx context.Context, cfg config.Blob) (blob.Store, error) {
	if cfg.Backend == "s3" {
		client, err := gos3.NewClientFromEnv(ctx)
		if err != nil {
			return nil, err
		}
		return blob.NewS3Store(client, cfg.S3Bucket)
	}
	return blob.NewFSStore(cfg.Root)
}

func newNotifier(cfg config.API, renderer *render.Engine, logger zerolog.Logger) (notify.Notifier, error) {
	if cfg.SMTPHost == "" {
		logger.Warn().Msg("SMTP_HOST not set, emails will only be logged")
		return notify.NewLogNotifier(logger), nil
	}
	sender, err := mail.NewSMTPSender(mail.SMTPConfig{
		Host:      cfg.SMTPHost,
		Port:      cfg.SMTPPort,
		Username:  cfg.SMTPUser,
		Password:  cfg.SMTPPassword,
		FromEmail: cfg.SenderEmail,
		FromName:  cfg.SenderName,
		ForceSSL:  cfg.SMTPPort == 465,
	})
	if err != nil {
		return nil, err
	}
	return notify.NewMailNotifier(renderer, sender)
}
