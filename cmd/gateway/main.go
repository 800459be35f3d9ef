// Package main runs the marketplace HTTP gateway.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/secretlease/marketplace/internal/app/runtime"
)

func main() {
	// Absent .env is fine; real deployments configure the environment
	// directly.
	_ = godotenv.Load()

	application, err := runtime.NewApplication()
	if err != nil {
		log.Fatalf("initialise application: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		log.Fatalf("run: %v", err)
	}

	if err := application.Shutdown(context.Background()); err != nil {
		log.Fatalf("shutdown: %v", err)
	}
}
