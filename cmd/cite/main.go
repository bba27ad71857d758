// Package main provides the cite CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/matsen/citeweave/internal/config"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// humanOutput controls whether to use human-readable output
	humanOutput bool
	verbose     bool
	configPath  string

	cfg    *config.Config
	logger = zap.NewNop()
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// Print the error since we have SilenceErrors: true
		// This ensures Cobra errors (like missing required flags) are visible
		code := exitCode(err)
		if humanOutput {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		} else {
			outputJSON(ErrorResponse{Error: err.Error()})
		}
		stop()
		os.Exit(code)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cite",
	Short: "Resolve and format the citations in a document",
	Long: `cite finds the citation markers in a document (DOIs, URLs, PMIDs,
ISBNs, arXiv IDs and author-year parentheticals), resolves each to
bibliographic metadata through free sources before paid ones, and rewrites
the document in a citation style with footnotes and a reference list.

All commands output JSON by default; pass --human for readable output.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log source calls and cache activity to stderr")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default "+config.Path()+")")
	rootCmd.Version = Version
}

// setup loads secrets, the config file and the logger before any command runs.
func setup(cmd *cobra.Command, args []string) error {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.LoadGlobal()
	}
	if err != nil {
		return err
	}

	logger, err = newLogger(verbose)
	return err
}

// newLogger builds a JSON logger on stderr at warn level, or debug when verbose.
func newLogger(verbose bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	zcfg.EncoderConfig.TimeKey = "ts"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	log, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return log, nil
}
