// Package main provides the fieldscope CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "fieldscope",
	Short: "Field-identification accuracy analytics",
	Long: `Fieldscope tracks how accurately an LLM identifies form fields during
automated form-filling runs: it reconciles model claims against ground
truth, scores comprehension, and aggregates prompt-template performance.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "fieldscope.yaml", "Path to config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
