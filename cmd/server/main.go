// Package main provides the fieldscope analytics API server for
// containerized deployment. Configuration comes from the environment.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/kamilpajak/fieldscope/internal/analytics"
	"github.com/kamilpajak/fieldscope/internal/api"
	"github.com/kamilpajak/fieldscope/internal/auth"
	"github.com/kamilpajak/fieldscope/internal/database"
	"github.com/kamilpajak/fieldscope/internal/insight"
	"github.com/kamilpajak/fieldscope/internal/llm"
)

func main() {
	var (
		port        = flag.String("port", getEnv("PORT", "8080"), "Server port")
		migrateOnly = flag.Bool("migrate", false, "Run migrations and exit")
	)
	flag.Parse()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	log.Println("Running database migrations...")
	if err := database.Migrate(dbURL); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Migrations complete")

	if *migrateOnly {
		return
	}

	ctx := context.Background()
	db, err := database.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	var engineOpts []analytics.Option
	if apiKey := os.Getenv("GOOGLE_API_KEY"); apiKey != "" {
		client := llm.NewClientWith(apiKey, os.Getenv("FIELDSCOPE_LLM_MODEL"), "")
		engineOpts = append(engineOpts,
			analytics.WithInsightGenerator(insight.NewGenerator(client)),
			analytics.WithDefaultModel(client.Model()),
		)
	} else {
		log.Println("GOOGLE_API_KEY not set, session insights disabled")
	}
	engine := analytics.NewEngine(db, engineOpts...)

	var verifier *auth.Verifier
	if issuer := os.Getenv("FIELDSCOPE_AUTH_ISSUER"); issuer != "" {
		verifier, err = auth.NewVerifier(auth.Config{
			Issuer:   issuer,
			Audience: os.Getenv("FIELDSCOPE_AUTH_AUDIENCE"),
		})
		if err != nil {
			log.Fatalf("Failed to create auth verifier: %v", err)
		}
	} else {
		log.Println("FIELDSCOPE_AUTH_ISSUER not set, API is unauthenticated")
	}

	server := api.NewServer(api.Config{
		Engine:       engine,
		DB:           db,
		AuthVerifier: verifier,
		RateLimit:    getEnvFloat("FIELDSCOPE_RATE_LIMIT", 50),
		RateBurst:    getEnvInt("FIELDSCOPE_RATE_BURST", 100),
	})

	addr := fmt.Sprintf(":%s", *port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on %s", addr)
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
		log.Fatalf("Server shutdown failed: %v", err)
	}

	log.Println("Server stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
