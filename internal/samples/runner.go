package samples

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/doccheck/internal/adapters/repository"
	"github.com/okian/doccheck/pkg/logger"
)

// ErrUnexpectedVerdicts is returned when the service disagrees with the generator.
var ErrUnexpectedVerdicts = errors.New("unexpected verdicts")

// Run executes the complete sample run and returns its statistics.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{
		StartTime: time.Now(),
	}
	log := logger.Get().Named("samples")

	log.Info(ctx, "starting doccheck sample run",
		logger.String("baseURL", config.BaseURL),
		logger.Int("persons", config.NumPersons),
		logger.Float64("mismatchRate", config.MismatchRate),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout),
	)

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate persons
	persons, err := generatePersons(ctx, config, stats)
	if err != nil {
		return stats, fmt.Errorf("generation failed: %w", err)
	}

	// Step 3: Submit concurrently and compare verdicts
	odds := submitPersons(ctx, config, persons, stats)

	// Step 4: Check the records were stored
	if err := verifyStored(ctx, config, persons, stats); err != nil {
		log.Warn(ctx, "stored records check failed", logger.Error(err))
	}

	// Step 5: Save persons to file
	if config.OutputFile != "" {
		if err := savePersons(config.OutputFile, persons); err != nil {
			log.Warn(ctx, "failed to save persons to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	reportMismatches(ctx, odds, config.Verbose)
	displayFinalStats(ctx, stats)

	if len(odds) > 0 {
		return stats, fmt.Errorf("%w: %d of %d", ErrUnexpectedVerdicts, len(odds), stats.Submitted)
	}
	if stats.Errors > 0 {
		return stats, fmt.Errorf("%d requests failed", stats.Errors)
	}
	log.Info(ctx, "sample run completed successfully")
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	resp, err := newHTTPClient(config.Timeout).Get(ctx, config.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	return nil
}

// savePersons writes the generated persons as a /verify request array.
func savePersons(path string, persons []Person) error {
	return repository.WriteJSON(path, persons)
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("personsGenerated", stats.PersonsGenerated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("verified", stats.Verified),
		logger.Int("failed", stats.Failed),
		logger.Int("unexpected", stats.Unexpected),
		logger.Int("errors", stats.Errors),
		logger.Int("recordsStored", stats.RecordsStored),
		logger.Duration("duration", stats.Duration),
		logger.Float64("personsPerSecond", perSecond),
	)
}
