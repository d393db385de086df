package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"khabarchat/auth"
	"khabarchat/httpapi"
	"khabarchat/storage"
)

const (
	defaultHTTPPort   = 8475
	defaultDBPath     = "khabarchat.db"
	defaultSessionTTL = 720 * time.Hour
)

type daemonConfig struct {
	httpPort   int
	dbPath     string
	authSecret string
	sessionTTL time.Duration
}

func loadDaemonConfig() (daemonConfig, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return daemonConfig{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := daemonConfig{
		httpPort:   defaultHTTPPort,
		dbPath:     defaultDBPath,
		authSecret: os.Getenv("KHABARCHATD_AUTH_SECRET"),
		sessionTTL: defaultSessionTTL,
	}

	if raw := os.Getenv("KHABARCHATD_HTTP_PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port < 1 || port > 65535 {
			return daemonConfig{}, fmt.Errorf("invalid KHABARCHATD_HTTP_PORT %q", raw)
		}
		cfg.httpPort = port
	}
	if raw := os.Getenv("KHABARCHATD_DB_PATH"); raw != "" {
		cfg.dbPath = raw
	}
	if raw := os.Getenv("KHABARCHATD_SESSION_TTL_HOURS"); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil || hours < 1 {
			return daemonConfig{}, fmt.Errorf("invalid KHABARCHATD_SESSION_TTL_HOURS %q", raw)
		}
		cfg.sessionTTL = time.Duration(hours) * time.Hour
	}

	return cfg, nil
}

func main() {
	cfg, err := loadDaemonConfig()
	if err != nil {
		log.Fatalf("startup failed while loading config: %v", err)
	}

	store, err := storage.OpenPath(cfg.dbPath)
	if err != nil {
		log.Fatalf("startup failed while opening database: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("database close error: %v", err)
		}
	}()

	sessions, err := auth.New(cfg.authSecret, cfg.sessionTTL)
	if err != nil {
		log.Fatalf("startup failed while preparing session manager: %v", err)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.httpPort),
		Handler:           httpapi.NewServer(store, sessions),
		ReadHeaderTimeout: 10 * time.Second,
	}

	fmt.Printf("HTTP Port:       %d\n", cfg.httpPort)
	fmt.Printf("Database File:   %s\n", cfg.dbPath)
	fmt.Printf("Session TTL:     %s\n", cfg.sessionTTL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	fmt.Println("Status:          running (press Ctrl+C to stop)")
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server failed: %v", err)
		}
	case <-ctx.Done():
		fmt.Println("Status:          shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("http shutdown error: %v", err)
		}
	}
}
