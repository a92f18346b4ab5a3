package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	sqliteadapter "github.com/ericfisherdev/winsvcpanel/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/winsvcpanel/internal/adapter/driven/vault"
	"github.com/ericfisherdev/winsvcpanel/internal/adapter/driven/winrm"
	httphandler "github.com/ericfisherdev/winsvcpanel/internal/adapter/driving/http"
	"github.com/ericfisherdev/winsvcpanel/internal/application"
	"github.com/ericfisherdev/winsvcpanel/internal/config"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flagSet := pflag.NewFlagSet("winsvcpanel", pflag.ContinueOnError)
	envFile := flagSet.String("env-file", ".env", "dotenv file to load before reading WINSVCPANEL_* variables")
	debug := flagSet.Bool("debug", false, "enable debug logging")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() > 0 {
		return fmt.Errorf("unexpected argument: %s", flagSet.Arg(0))
	}

	if *debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	// 1. Load configuration (fail fast on a missing or malformed secret key).
	if err := config.LoadEnvFile(*envFile); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"winrm_port", cfg.WinRMPort,
		"winrm_https", cfg.WinRMHTTPS,
		"remote_timeout", cfg.RemoteTimeout,
		"token_ttl", cfg.TokenTTL,
	)

	secrets, err := vault.New(cfg.SecretKey)
	if err != nil {
		return err
	}

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire adapters.
	hostStore := sqliteadapter.NewHostRepo(db)
	serviceStore := sqliteadapter.NewServiceRepo(db)
	ownerStore := sqliteadapter.NewOwnerRepo(db)
	tokenStore := sqliteadapter.NewTokenRepo(db)

	opener := winrm.NewOpener(winrm.Options{
		Port:     cfg.WinRMPort,
		HTTPS:    cfg.WinRMHTTPS,
		Insecure: cfg.WinRMInsecure,
		Timeout:  cfg.RemoteTimeout,
	}, slog.Default())

	// 6. Create application services.
	authSvc := application.NewAuthService(ownerStore, tokenStore, cfg.TokenTTL)
	registrySvc := application.NewRegistryService(hostStore, secrets)
	inventorySvc := application.NewInventoryService(
		registrySvc,
		secrets,
		opener,
		application.NewReconciler(serviceStore),
		serviceStore,
		slog.Default(),
	)

	if purged, err := authSvc.PurgeExpiredTokens(ctx); err != nil {
		slog.Warn("failed to purge expired tokens", "error", err)
	} else if purged > 0 {
		slog.Info("expired tokens purged", "count", purged)
	}

	// 7. Create HTTP handler.
	apiHandler := httphandler.NewHandler(authSvc, registrySvc, inventorySvc, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.NewServeMux(apiHandler, cfg.CORSOrigins, slog.Default()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// Remote calls may take up to RemoteTimeout for the handshake plus the command.
		WriteTimeout: 2*cfg.RemoteTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// 8. Log startup complete.
	slog.Info("winsvcpanel started", "listen_addr", cfg.ListenAddr)

	// 9. Wait for shutdown signal or a listener failure.
	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	// 10. Graceful shutdown with 10s timeout for in-flight remote calls.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	// 11. Log shutdown complete.
	slog.Info("shutdown complete")
	return nil
}
