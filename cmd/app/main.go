package main

import (
	"context"
	"flag"
	"log"
	"os"

	"PairLab/internal/di"
	"PairLab/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	log.Printf("pairlab env=%s backend=%s cache=%s live=%t", cfg.Environment, cfg.Backend.Type, cfg.Cache.Type, cfg.Live.Enabled)

	// Infrastructure clients connect and create schemas during injection.
	ctx := context.Background()
	app, err := di.InitializeApp(ctx, cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// Blocks until SIGINT/SIGTERM, then drains the tick buffer.
	if err := app.Run(ctx); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
