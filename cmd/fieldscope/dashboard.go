package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kamilpajak/fieldscope/internal/analytics"
	"github.com/kamilpajak/fieldscope/internal/config"
	"github.com/kamilpajak/fieldscope/internal/dashboard"
	"github.com/kamilpajak/fieldscope/internal/database"
)

var (
	timeframe  string
	jsonOutput bool
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Render the analytics dashboard in the terminal",
	RunE:  runDashboard,
}

func init() {
	dashboardCmd.Flags().StringVarP(&timeframe, "timeframe", "t", "24h", "Timeframe: 1h, 24h, 7d or 30d")
	dashboardCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the report as JSON")
}

func runDashboard(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return fmt.Errorf("database URL is required (config file or DATABASE_URL)")
	}

	ctx := context.Background()

	s := newSpinner("Loading analytics...")
	db, err := database.New(ctx, cfg.Database.URL)
	if err != nil {
		stopSpinner(s)
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	engine := analytics.NewEngine(db)
	report, err := engine.Dashboard(ctx, timeframe)
	stopSpinner(s)
	if err != nil {
		return err
	}

	if jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(report)
	}

	dashboard.NewRenderer(os.Stdout).Render(report)
	return nil
}
