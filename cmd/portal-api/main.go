package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/opsportal/internal/api"
	mw "github.com/edvin/opsportal/internal/api/middleware"
	"github.com/edvin/opsportal/internal/backup"
	"github.com/edvin/opsportal/internal/config"
	"github.com/edvin/opsportal/internal/hosting"
	"github.com/edvin/opsportal/internal/logging"
	"github.com/edvin/opsportal/internal/menu"
	"github.com/edvin/opsportal/internal/metrics"
	"github.com/edvin/opsportal/internal/objectstore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider, err := newProvider(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to set up backup provider")
	}

	menus := menu.NewRegistry()
	if err := menus.Register(backup.Menu()); err != nil {
		logger.Fatal().Err(err).Msg("failed to register backup menu")
	}
	if cfg.MenuConfig != "" {
		if err := menus.LoadFile(cfg.MenuConfig); err != nil {
			logger.Fatal().Err(err).Str("path", cfg.MenuConfig).Msg("failed to load menu config")
		}
	}

	srv := api.NewServer(logger, cfg, provider, menus, newGate(cfg))

	if cfg.MetricsListenAddr != "" {
		metricsServer := metrics.NewServer(cfg.MetricsListenAddr)
		go func() {
			logger.Info().Str("addr", cfg.MetricsListenAddr).Msg("starting metrics server")
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
		defer metricsServer.Close()
	}

	httpServer := &http.Server{
		Addr:         cfg.HTTPListenAddr,
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.WriteTimeout(),
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPListenAddr).Bool("backups_mock", cfg.BackupsMock).Msg("starting portal API server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
}

func newProvider(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (backup.Provider, error) {
	if cfg.BackupsMock {
		logger.Warn().Msg("serving synthetic backup data (BACKUPS_MOCK=true)")
		return backup.NewMockProvider(time.Now()), nil
	}

	store, err := newStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var auth hosting.Authorizer
	if cfg.AzureDevOpsPAT != "" {
		auth = hosting.PATAuthorizer{Token: cfg.AzureDevOpsPAT}
	} else {
		auth, err = hosting.NewManagedIdentityAuthorizer()
		if err != nil {
			return nil, fmt.Errorf("hosting credential: %w", err)
		}
	}
	hc := hosting.NewClient(cfg.AzureDevOpsURL, auth, cfg.ExternalCallTimeout)

	retry := backup.DefaultRetryPolicy()
	retry.Attempts = cfg.RetryAttempts
	retry.BaseDelay = cfg.RetryBaseDelay

	return backup.NewService(store, hc, backup.Options{
		Prefix:         cfg.StoragePrefix,
		Retention:      cfg.BackupRetention,
		LinkTTL:        cfg.DownloadLinkTTL,
		Retry:          retry,
		PollInterval:   cfg.ImportPollInterval,
		ImportTimeout:  cfg.ImportTimeout,
		RestoreTimeout: cfg.RestoreTimeout(),
	}, logger), nil
}

func newStore(ctx context.Context, cfg *config.Config) (objectstore.Store, error) {
	switch cfg.StorageBackend {
	case config.StorageS3:
		return objectstore.NewS3(ctx, objectstore.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Timeout:   cfg.ExternalCallTimeout,
		})
	default:
		return objectstore.NewAzure(objectstore.AzureConfig{
			AccountName:      cfg.AzureStorageAccount,
			ConnectionString: cfg.AzureConnectionString,
			Container:        cfg.AzureStorageContainer,
			Timeout:          cfg.ExternalCallTimeout,
		})
	}
}

func newGate(cfg *config.Config) mw.Gate {
	if cfg.AuthMode == config.AuthHeader {
		return mw.HeaderPrincipal{Header: cfg.AuthPrincipalHeader, AllowedDomains: cfg.AuthAllowedDomains}
	}
	return mw.AllowAll{}
}
