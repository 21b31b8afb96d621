// Package cmd provides CLI commands for refer.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var cfgFile string

// setupLogger installs the default logger. LOG_LEVEL picks the level
// (DEBUG, INFO, WARN, ERROR) and LOG_FORMAT=json switches to JSON records.
func setupLogger() {
	var level slog.Level
	switch strings.ToUpper(os.Getenv("LOG_LEVEL")) {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN", "WARNING":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

var rootCmd = &cobra.Command{
	Use:   "refer",
	Short: "Export repository records through text templates",
	Long: `Refer renders repository records into text exports (RIS, BibTeX, XML...)
by substituting their metadata into line-oriented templates.

Crosswalks, records and search configurations are read from refer.yaml in the
working directory, the file given with --config or REFER_CONFIG_FILE.

Examples:
  refer disseminate ris 4f3c1d2e-...
  refer disseminate bibtex id-1 id-2 -o export.bib
  refer disseminate ris --all
  refer validate
  refer serve --watch`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	setupLogger()
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ./refer.yaml)")
	rootCmd.AddCommand(disseminateCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(crosswalksCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(importCmd)
}
