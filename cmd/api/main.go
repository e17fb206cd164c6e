package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/viralforge/mesh/services/financial-rails/M47-bundle-access-service/internal/app/bootstrap"
)

func main() {
	// Secrets for local runs come from .env; deployed runs use real env vars.
	_ = godotenv.Load()

	ctx := context.Background()
	runtime, err := bootstrap.NewRuntime(ctx, "configs/default.yaml")
	if err != nil {
		log.Fatalf("bootstrap api runtime: %v", err)
	}
	if err := runtime.RunAPI(ctx); err != nil {
		log.Fatalf("run api: %v", err)
	}
}
