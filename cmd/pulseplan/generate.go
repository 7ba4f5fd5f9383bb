package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pulseplan-ai/pulseplan/internal/config"
	"github.com/pulseplan-ai/pulseplan/internal/domain"
	"github.com/pulseplan-ai/pulseplan/internal/llm"
	"github.com/pulseplan-ai/pulseplan/internal/plan"
	"github.com/pulseplan-ai/pulseplan/internal/store"
)

func generateCmd() *cobra.Command {
	var userID int64
	var roleFlag string
	var outDir string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate base plans for a user from their intake profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}

			repo, err := store.NewSQLite(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer func() {
				if closeErr := repo.Close(); closeErr != nil {
					slog.Error("Failed to close repository", "error", closeErr)
				}
			}()

			client, err := llm.New(cfg.LLM, slog.Default())
			if err != nil {
				return fmt.Errorf("initialize model client: %w", err)
			}

			generator := plan.NewGenerator(repo, client, plan.GeneratorConfig{
				Model:       cfg.LLM.PlanModel,
				Temperature: 0.7,
				Timeout:     cfg.LLM.PlanTimeout,
			}, slog.Default())

			ctx := cmd.Context()
			plans := make(map[domain.Role]*domain.BasePlan)

			if roleFlag == "" {
				// Successful roles are reported even when others fail.
				plans, err = generator.GenerateAll(ctx, userID)
				for role, p := range plans {
					fmt.Printf("generated %s plan %d for user %d\n", role, p.ID, userID)
				}
				if err != nil {
					return fmt.Errorf("generate plans: %w", err)
				}
			} else {
				role, parseErr := domain.ParseRole(roleFlag)
				if parseErr != nil {
					return parseErr
				}
				p, genErr := generator.Generate(ctx, userID, role)
				if genErr != nil {
					return fmt.Errorf("generate %s plan: %w", role, genErr)
				}
				plans[role] = p
				fmt.Printf("generated %s plan %d for user %d\n", role, p.ID, userID)
			}

			if outDir == "" {
				return nil
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
			for role, p := range plans {
				name := fmt.Sprintf("%d_%s_plan.txt", userID, role)
				path := filepath.Join(outDir, name)
				if err := os.WriteFile(path, []byte(p.Recommendation), 0o644); err != nil {
					return fmt.Errorf("write %s: %w", path, err)
				}
				fmt.Printf("wrote %s\n", path)
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "Numeric user id (required)")
	cmd.Flags().StringVar(&roleFlag, "role", "", "Generate for one role only (FitnessTrainer, Nutritionist, HealthAdvisor)")
	cmd.Flags().StringVar(&outDir, "out", "", "Also write plan text files to this directory")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
