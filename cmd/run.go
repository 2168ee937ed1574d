package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/okian/doccheck/internal/adapters/discovery"
	"github.com/okian/doccheck/internal/adapters/repository"
	"github.com/okian/doccheck/internal/domain/model"
	"github.com/okian/doccheck/pkg/logger"
)

var (
	runDataDir string
	runOutput  string
	runNoColor bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Verify every person found in the data directory",
	Long: `Walks the data directory, groups files by person id prefix, verifies
each person and writes the records as a JSON array.`,
	RunE: runBatch,
}

func init() {
	runCmd.Flags().StringVarP(&runDataDir, "data-dir", "d", "", "directory holding input documents (overrides data_dir)")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "results file (overrides output_path)")
	runCmd.Flags().BoolVar(&runNoColor, "no-color", false, "disable colored summary")
	rootCmd.AddCommand(runCmd)
}

func runBatch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runDataDir != "" {
		cfg.DataDir = runDataDir
	}
	if runOutput != "" {
		cfg.OutputPath = runOutput
	}

	// Logs go to stderr; stdout carries the summary.
	l, err := setupLogging(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	runID := uuid.NewString()
	l = l.Named("run")

	groups, err := discovery.Discover(ctx, cfg.DataDir,
		discovery.WithPrefixLen(cfg.GroupPrefixLen),
		discovery.WithMaxDocuments(cfg.MaxDocumentsPerPerson),
		discovery.WithLogger(l.Named("discovery")),
	)
	if err != nil {
		return err
	}
	l.Info(ctx, "discovered persons",
		logger.String("run_id", runID),
		logger.String("data_dir", cfg.DataDir),
		logger.Int("persons", len(groups)),
	)

	svc, err := newService(cfg, l)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	start := time.Now()
	records, err := svc.RunBatch(ctx, groups)
	if err != nil {
		return fmt.Errorf("batch run failed: %w", err)
	}
	if err := repository.WriteJSONFile(cfg.OutputPath, records); err != nil {
		return err
	}
	l.Info(ctx, "batch run completed",
		logger.String("run_id", runID),
		logger.Int("records", len(records)),
		logger.String("output", cfg.OutputPath),
		logger.Duration("duration", time.Since(start)),
	)

	printSummary(cmd.OutOrStdout(), records, cfg.OutputPath, runNoColor || !isTerminal(cmd.OutOrStdout()))
	return nil
}

// printSummary writes one line per person and the verdict totals.
func printSummary(w io.Writer, records []model.PersonVerificationRecord, output string, noColor bool) {
	green := color.New(color.FgGreen, color.Bold)
	red := color.New(color.FgRed, color.Bold)
	dim := color.New(color.FgHiBlack)
	if noColor {
		green.DisableColor()
		red.DisableColor()
		dim.DisableColor()
	}

	verified := 0
	for _, rec := range records {
		if rec.OverallStatus == model.Verified {
			verified++
			green.Fprintf(w, "%-8s", rec.OverallStatus)
			fmt.Fprintf(w, " %s\n", rec.PersonID)
			continue
		}
		red.Fprintf(w, "%-8s", rec.OverallStatus)
		fmt.Fprintf(w, " %s", rec.PersonID)
		if failed := failedRules(rec); failed != "" {
			dim.Fprintf(w, "  (%s)", failed)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "\n%d persons, %d verified, %d failed -> %s\n",
		len(records), verified, len(records)-verified, output)
}

func failedRules(rec model.PersonVerificationRecord) string { //nolint:gocritic // hugeParam
	var names []string
	for _, r := range rec.VerificationResults {
		if !r.Passed() {
			names = append(names, r.Name)
		}
	}
	return strings.Join(names, ", ")
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
