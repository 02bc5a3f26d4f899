package main

import (
	"account_service/internal/auth"
	"account_service/internal/config"
	"account_service/internal/handler"
	"account_service/internal/metrics"
	"account_service/internal/notify"
	"account_service/internal/service"
	"account_service/internal/storage"
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	//PARSE ARGS
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to the yaml config")

	flag.Parse()
	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}
	if configPath == "" {
		log.Fatal("failed get config path from flags")
	}

	cfg := config.MustLoadConfig(configPath)

	//INIT LOGGER
	lgr := setupLogger(cfg.Env)
	lgr.Info("starting account service", slog.String("env", cfg.Env), slog.String("storage", cfg.Storage.Driver))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	//INIT DB
	store, err := setupStorage(ctx, cfg)
	if err != nil {
		lgr.Error("failed to init storage", slog.Any("error", err))
		os.Exit(1)
	}
	defer store.Close()

	//INIT SERVICE
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	issuer := auth.NewIssuer(cfg.Tokens.Secret, cfg.Tokens.Issuer, auth.SystemClock)

	srvc := service.NewService(service.Deps{
		Store:    store,
		Issuer:   issuer,
		Notifier: setupNotifier(cfg, lgr),
		Links:    notify.NewLinks(cfg.FrontendURL),
		Metrics:  m,
		Log:      lgr,
	}, service.Config{
		VerifyTTL:  cfg.Tokens.VerifyTTL,
		AccessTTL:  cfg.Tokens.AccessTTL,
		RefreshTTL: cfg.Tokens.RefreshTTL,
		ResetTTL:   cfg.Tokens.ResetTTL,
	})

	//INIT SERVER
	if cfg.Env == envProd {
		gin.SetMode(gin.ReleaseMode)
	}

	h := handler.NewHandler(srvc, issuer, m, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), lgr)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      h.InitRoutes(),
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		lgr.Info("http server listening", slog.String("address", srv.Addr))

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lgr.Error("http server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	lgr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPServer.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		lgr.Error("failed to shutdown server", slog.Any("error", err))
	}

	lgr.Info("account service stopped")
}

func setupStorage(ctx context.Context, cfg *config.Config) (storage.AccountStore, error) {
	if cfg.Storage.Driver == config.StorageMemory {
		return storage.NewMemoryStorage(), nil
	}

	if cfg.Storage.Migrate {
		if err := storage.Migrate(ctx, cfg.Storage.DbURL); err != nil {
			return nil, err
		}
	}

	store, err := storage.NewPostgresStorage(ctx, cfg.Storage.DbURL)
	if err != nil {
		return nil, err
	}

	return store, nil
}

func setupNotifier(cfg *config.Config, lgr *slog.Logger) notify.Notifier {
	if cfg.Mail.Driver == config.MailSMTP {
		return notify.NewSMTPNotifier(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.Username, cfg.Mail.Password, cfg.Mail.From)
	}

	return notify.NewLogNotifier(lgr)
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}
	return log
}
