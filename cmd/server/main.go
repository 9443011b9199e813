package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/setil-app/backend/internal/auth"
	"github.com/setil-app/backend/internal/config"
	"github.com/setil-app/backend/internal/docstore/sqlite"
	"github.com/setil-app/backend/internal/handlers"
	"github.com/setil-app/backend/internal/identity"
	"github.com/setil-app/backend/internal/store"
	"github.com/setil-app/backend/pkg/logging"
)

func main() {
	logging.Setup()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	docs, err := sqlite.New(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer docs.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	ledgerStore := store.New(docs, identity.FromContext{})
	authn := auth.NewPasswordAuthenticator(auth.NewAccounts(docs))
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiry)

	api := handlers.New(ledgerStore, authn, jwtManager, cfg.InviteTTL)
	router := api.Router(cfg)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		slog.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Shutdown failed", "error", err)
	}
}
