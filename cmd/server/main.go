package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/team-bingo-backend/internal/config"
	"github.com/DoyleJ11/team-bingo-backend/internal/httpapi"
	"github.com/DoyleJ11/team-bingo-backend/internal/hub"
	"github.com/DoyleJ11/team-bingo-backend/internal/uploads"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cobra.CheckErr(config.LoadDotEnv())

	cfg := &config.Config{}
	cobra.CheckErr(config.NewCommand(cfg, run).ExecuteContext(ctx))
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(ctx context.Context, cfg *config.Config) (err error) {
	log, err := newLogger(cfg.Verbose)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	h := hub.NewHub(ctx, hub.Config{
		GameTTL:       cfg.GameTTL,
		SweepInterval: cfg.SweepInterval,
		Logger:        log,
	})
	defer h.Close()

	var ledger uploads.Ledger = uploads.NopLedger{}
	if cfg.DatabaseURL != "" {
		l, err := uploads.OpenGormLedger(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		ledger = l
		log.Info("upload ledger enabled")
	}
	defer func() { err = multierr.Append(err, ledger.Close()) }()

	// Build the router *with* the hub injected
	handler := httpapi.SetupRoutes(httpapi.Deps{
		Games:          h,
		Store:          uploads.NewStore(afero.NewOsFs(), cfg.UploadDir, "/uploads", cfg.MaxUploadSize),
		Ledger:         ledger,
		Logger:         log,
		PublicURL:      cfg.PublicURL,
		AllowedOrigins: cfg.AllowedOrigins,
		TrustProxy:     cfg.TrustProxy,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	return g.Wait()
}
