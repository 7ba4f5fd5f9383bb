// PulsePlan - Personalized Health Plan Service
package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	root := &cobra.Command{
		Use:   "pulseplan",
		Short: "pulseplan — personalized health plan service",
		Long:  "Serves conversational health, fitness and nutrition coaching backed by persistent per-agent memory and versioned plans.",
	}

	root.AddCommand(
		serveCmd(),
		generateCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
