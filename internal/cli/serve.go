package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	web "vitebridge/internal/adapters/http"
	"vitebridge/internal/adapters/http/perf"
	"vitebridge/internal/adapters/proxy"
	"vitebridge/internal/adapters/storage"
	"vitebridge/internal/config"
)

// schemaTimeout bounds the best-effort schema check at startup.
const schemaTimeout = 5 * time.Second

func newServeCmd(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the API and proxy everything else to the dev server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), st.cfg)
		},
	}
}

// runServe binds the listen address and serves until SIGINT or SIGTERM.
func runServe(ctx context.Context, cfg config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", cfg.ListenAddr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.ListenAddr(), err)
	}
	return serve(ctx, cfg, ln)
}

// serve runs the server on ln until ctx is done, then shuts down in order:
// stop accepting and drain requests, close the upstream client, close the pool.
// PRE: ln is bound
// POST: ln is closed and all resources are released
func serve(ctx context.Context, cfg config.Config, ln net.Listener) error {
	collector := perf.NewCollector(perf.DefaultRingSize)

	db, err := storage.Open(cfg.DatabaseURL, cfg.DBMaxOpenConns)
	if err != nil {
		ln.Close()
		return err
	}

	schemaCtx, cancel := context.WithTimeout(ctx, schemaTimeout)
	if err := storage.EnsureSchema(schemaCtx, db); err != nil {
		slog.Warn("startup_event", "event", "schema_deferred", "error", err)
	}
	cancel()

	upstream, err := proxy.New(cfg.Upstream(), proxy.WithErrorWriter(web.WriteJSONError))
	if err != nil {
		ln.Close()
		db.Close()
		return err
	}

	handler := web.NewMux(web.Config{
		APIPrefix:          web.DefaultAPIPrefix,
		MaxListLimit:       cfg.MaxListLimit,
		CORSOrigins:        cfg.CORSOrigins,
		CSRFKey:            cfg.CSRFKey,
		TrustedOrigins:     cfg.CSRFTrustedOrigins,
		SlowRequestMs:      cfg.SlowRequestMs,
		StatusProbeTimeout: cfg.StatusProbeTimeout,
	}, storage.NewSessions(db, collector, cfg.SlowQueryMs), upstream, collector)

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http_listen", "addr", ln.Addr().String(), "upstream", upstream.Origin(), "database", cfg.DatabaseURL)
		errCh <- srv.Serve(ln)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		slog.Info("shutdown_signal", "cause", context.Cause(ctx).Error())
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = fmt.Errorf("serve: %w", err)
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http_shutdown_error", "error", err)
	}
	upstream.Close()
	if err := db.Close(); err != nil {
		slog.Error("db_close_error", "error", err)
	}
	collector.LogSummary(5)
	slog.Info("service_stopped")
	return serveErr
}
