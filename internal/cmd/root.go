// Package cmd implements the engagement command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/qaforum/engagement/internal/config"
	"github.com/qaforum/engagement/internal/logger"
	"github.com/qaforum/engagement/internal/output"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	configPath string
	outputFmt  string

	cfg    *config.Config
	format output.Format
)

// annotationQuiet marks commands whose stdout is machine-readable
const annotationQuiet = "quiet"

var rootCmd = &cobra.Command{
	Use:   "engagement",
	Short: "Engagement core for the Q&A forum",
	Long: `engagement records user actions against questions, answers and
comments as an append-only event log, and serves decayed scores,
trending lists, ranked feeds and user activity computed from it.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env is normal outside development
		_ = godotenv.Load()

		var err error
		if format, err = output.ParseFormat(outputFmt); err != nil {
			return err
		}
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}

		level := cfg.Log.Level
		switch {
		case verbose:
			level = "debug"
		case cmd.Annotations[annotationQuiet] != "":
			// Keep stdout clean for command results
			level = "warn"
		}
		return logger.Initialize(level, cfg.Log.File)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Close()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging and SQL tracing")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: ./engagement.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table", "Output format: table, json")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(trendingCmd)
	rootCmd.AddCommand(reconcileCmd)
}
