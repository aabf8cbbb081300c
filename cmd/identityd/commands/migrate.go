package commands

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/bigbes/tg-identity-store/internal/config"
	"github.com/bigbes/tg-identity-store/internal/store"
)

func Migrate(args []string, logger *slog.Logger) {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	configPath := fs.String("config", "configs/identityd.yaml", "path to config file")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	st, err := store.Open(cfg.Database.Path, logger)
	if err != nil {
		logger.Error("failed to open store", "err", err)
		os.Exit(1)
	}
	defer st.Close()

	applied, err := st.Migrate(context.Background())
	if err != nil {
		logger.Error("migration failed", "err", err)
		os.Exit(1)
	}

	if len(applied) == 0 {
		fmt.Println("Schema is up to date.")
		return
	}
	fmt.Println("Applied migrations:")
	for _, version := range applied {
		fmt.Printf("  %s\n", version)
	}
}
