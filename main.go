package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"invoiceqc/cmd"
	"invoiceqc/internal/config"
	"invoiceqc/internal/logger"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	// Load configuration, falling back to defaults
	cfg, err := config.Load()
	if err != nil {
		log.Printf("Warning: Could not load configuration, using defaults: %v", err)
		cfg = config.Default()
	}

	if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
		log.Printf("Warning: Could not initialize logger: %v", err)
		if err := logger.Setup(logger.DefaultConfig()); err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
	}

	os.Exit(cmd.Execute(cfg))
}
