package commands

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

func Init(args []string, logger *slog.Logger) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	configPath := fs.String("config", "configs/identityd.yaml", "path to config file")
	dbPath := fs.String("db", "identity.db", "path to the SQLite database")
	listen := fs.String("listen", "127.0.0.1:8642", "API listen address")
	fs.Parse(args)

	token, err := generateToken()
	if err != nil {
		logger.Error("failed to generate auth token", "err", err)
		os.Exit(1)
	}

	content := fmt.Sprintf(`log_level: info

database:
  path: "%s"

http:
  enabled: true
  listen: "%s"
  auth_token: "%s"

observability_http:
  addr: "127.0.0.1:9642"
  metrics: true
  pprof: false
`, *dbPath, *listen, token)

	dir := filepath.Dir(*configPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Error("failed to create config directory", "err", err)
		os.Exit(1)
	}

	if err := os.WriteFile(*configPath, []byte(content), 0o600); err != nil {
		logger.Error("failed to write config", "err", err)
		os.Exit(1)
	}

	fmt.Println("=== Config initialized ===")
	fmt.Printf("Config:     %s\n", *configPath)
	fmt.Printf("Database:   %s\n", *dbPath)
	fmt.Printf("Listen:     %s\n", *listen)
	fmt.Printf("Auth Token: %s\n", token)
	fmt.Println()
	fmt.Println("Share the auth token with API clients.")
	fmt.Println("Run 'identityd run' to start the daemon.")
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
