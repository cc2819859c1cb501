package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"LiveChat/server/internal/config"
	"LiveChat/server/internal/db"
	"LiveChat/server/internal/handlers"
	"LiveChat/server/internal/photos"
	"LiveChat/server/internal/pubsub"
	"LiveChat/server/internal/services"
	"LiveChat/server/internal/subscriptions"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %s\n", err)
	}

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to apply migrations: %s\n", err)
	}

	pool, err := db.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %s\n", err)
	}
	defer pool.Close()

	broker := pubsub.NewBroker()
	filter := subscriptions.NewFilter(pool, services.NewChatService())
	photosClient := photos.NewClient(cfg.UnsplashAccessKey)

	h := handlers.New(pool, broker, filter, photosClient, cfg.JWTSecret, cfg.JWTTTL)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Server started on port :%s\n", cfg.Port)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %s\n", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	log.Println("Stopping the server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown error: %s\n", err)
	}
	log.Println("Server has been successfully stopped")
}
