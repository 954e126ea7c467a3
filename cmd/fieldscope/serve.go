package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kamilpajak/fieldscope/internal/analytics"
	"github.com/kamilpajak/fieldscope/internal/api"
	"github.com/kamilpajak/fieldscope/internal/auth"
	"github.com/kamilpajak/fieldscope/internal/config"
	"github.com/kamilpajak/fieldscope/internal/database"
	"github.com/kamilpajak/fieldscope/internal/insight"
	"github.com/kamilpajak/fieldscope/internal/llm"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the analytics API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return fmt.Errorf("database URL is required (config file or DATABASE_URL)")
	}

	log.Println("Running database migrations...")
	if err := database.Migrate(cfg.Database.URL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	ctx := context.Background()
	db, err := database.New(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	var engineOpts []analytics.Option
	if cfg.LLM.APIKey != "" {
		client := llm.NewClientWith(cfg.LLM.APIKey, cfg.LLM.Model, "")
		engineOpts = append(engineOpts,
			analytics.WithInsightGenerator(insight.NewGenerator(client)),
			analytics.WithDefaultModel(client.Model()),
		)
	} else {
		log.Println("GOOGLE_API_KEY not set, session insights disabled")
	}
	engine := analytics.NewEngine(db, engineOpts...)

	var verifier *auth.Verifier
	if cfg.Auth.Issuer != "" {
		verifier, err = auth.NewVerifier(auth.Config{
			Issuer:   cfg.Auth.Issuer,
			Audience: cfg.Auth.Audience,
		})
		if err != nil {
			return fmt.Errorf("failed to create auth verifier: %w", err)
		}
	} else {
		log.Println("auth issuer not configured, API is unauthenticated")
	}

	server := api.NewServer(api.Config{
		Engine:       engine,
		DB:           db,
		AuthVerifier: verifier,
		RateLimit:    cfg.Server.RateLimit,
		RateBurst:    cfg.Server.RateBurst,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on %s", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Println("Server stopped")
	return nil
}
