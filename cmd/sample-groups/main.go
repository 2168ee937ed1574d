package main

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/doccheck/internal/samples"
	"github.com/okian/doccheck/pkg/logger"
)

// Default configuration constants.
const (
	defaultNumPersons   = 500
	defaultMismatchRate = 0.3
	defaultWorkers      = 2 // multiplier for runtime.NumCPU()
	defaultTimeout      = 30 * time.Second
	defaultRunTimeout   = 10 * time.Minute
)

var config = &samples.Config{}

var logFormat string

var rootCmd = &cobra.Command{
	Use:   "sample-groups",
	Short: "Submit synthetic persons to a running doccheck service",
	Long: `Generates persons with consistent or deliberately conflicting documents,
posts them to /verify and checks every verdict against the expectation.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := logger.Init(logger.WithFormat(logFormat), logger.WithWriter(cmd.ErrOrStderr())); err != nil {
			return err
		}
		if config.Verbose {
			_ = logger.SetLevelString("debug")
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), defaultRunTimeout)
		defer cancel()

		_, err := samples.Run(ctx, config)
		return err
	},
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&config.BaseURL, "url", "http://localhost:9080", "Base URL of the service")
	f.IntVar(&config.NumPersons, "persons", defaultNumPersons, "Number of persons to generate and submit")
	f.Float64Var(&config.MismatchRate, "mismatch-rate", defaultMismatchRate, "Fraction of persons given a conflicting document")
	f.IntVar(&config.Workers, "workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
	f.DurationVar(&config.Timeout, "timeout", defaultTimeout, "HTTP request timeout")
	f.StringVar(&config.OutputFile, "output", "", "Output file for generated persons")
	f.BoolVar(&config.Verbose, "verbose", false, "Log every unexpected verdict")
	f.StringVar(&logFormat, "log-format", "text", "Log format: text or json")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
