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

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hweng329/llamagate/api"
	"github.com/hweng329/llamagate/chat"
	"github.com/hweng329/llamagate/config"
	"github.com/hweng329/llamagate/ollama"
	"github.com/hweng329/llamagate/store"
	"github.com/hweng329/llamagate/websearch"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg := config.Load()

	log.Printf("Starting llamagate...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Database: %s", cfg.DatabaseURL)
	log.Printf("Ollama URL: %s", cfg.OllamaURL)

	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	ollamaClient := ollama.NewClient(cfg.OllamaURL, cfg.OllamaBinary, ollama.Options{
		Temperature:   cfg.Temperature,
		NumCtx:        cfg.NumCtx,
		RepeatPenalty: cfg.RepeatPenalty,
	}, cfg.ProbeTimeout, cfg.StartSettleDelay, cfg.StartMaxRetries)

	searchClient := websearch.NewClient(cfg.SearchURL, cfg.SearchTimeout)

	orch := chat.NewOrchestrator(ollamaClient, db, searchClient, chat.Limits{
		DefaultContextMessages: cfg.DefaultContextMessages,
		MaxContextMessages:     cfg.MaxContextMessages,
		SearchMaxResults:       cfg.SearchMaxResults,
	})

	h := api.NewHandler(db, ollamaClient, orch)

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	h.RegisterRoutes(e)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("llamagate started on port %d", cfg.HTTPPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down llamagate...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}

	log.Println("llamagate stopped")
}
