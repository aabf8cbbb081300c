package commands

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bigbes/tg-identity-store/internal/config"
	"github.com/bigbes/tg-identity-store/internal/httpapi"
	"github.com/bigbes/tg-identity-store/internal/store"
)

func Run(args []string, logger *slog.Logger) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "configs/identityd.yaml", "path to config file")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.ParseLogLevel()}))
	logger.Info("starting identityd", "database", cfg.Database.Path)

	st, err := store.Open(cfg.Database.Path, logger)
	if err != nil {
		logger.Error("failed to open store", "err", err)
		os.Exit(1)
	}
	defer st.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Schema must be current before any reads or writes are served.
	applied, err := st.Migrate(ctx)
	if err != nil {
		logger.Error("failed to apply migrations", "err", err)
		os.Exit(1)
	}
	if len(applied) > 0 {
		logger.Info("schema updated", "applied", applied)
	}

	if obs := cfg.ObservabilityHTTP; obs.Addr != "" {
		mux := http.NewServeMux()
		if obs.Pprof {
			// Re-register pprof handlers on our mux (net/http/pprof init registers on DefaultServeMux).
			mux.HandleFunc("/debug/pprof/", http.DefaultServeMux.ServeHTTP)
		}
		if obs.Metrics {
			mux.Handle("/metrics", promhttp.Handler())
		}
		go func() {
			logger.Info("starting observability server", "addr", obs.Addr, "pprof", obs.Pprof, "metrics", obs.Metrics)
			if err := http.ListenAndServe(obs.Addr, mux); err != nil {
				logger.Error("observability server failed", "err", err)
			}
		}()
	}

	if !cfg.HTTP.Enabled {
		logger.Info("api server disabled, store is migrated and idle; waiting for shutdown")
		<-ctx.Done()
		return
	}

	srv := httpapi.New(st, cfg.HTTP.AuthToken, cfg.HTTP.Listen, logger)
	if err := srv.Run(ctx); err != nil {
		logger.Error("api server error", "err", err)
		os.Exit(1)
	}
}
