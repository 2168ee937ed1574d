package samples

import (
	"context"
	"fmt"
	"sort"

	"github.com/okian/doccheck/pkg/logger"
)

// verifyStored checks that every submitted person has a stored record.
func verifyStored(ctx context.Context, config *Config, persons []Person, stats *Stats) error {
	var records []VerifyResponse
	if err := newHTTPClient(config.Timeout).getJSON(ctx, config.BaseURL+"/records", &records); err != nil {
		return fmt.Errorf("listing records: %w", err)
	}

	stored := make(map[string]bool, len(records))
	for _, r := range records {
		stored[r.PersonID] = true
	}
	missing := 0
	for _, p := range persons {
		if stored[p.PersonID] {
			stats.RecordsStored++
		} else {
			missing++
		}
	}
	if missing > 0 {
		return fmt.Errorf("%d persons have no stored record", missing)
	}
	return nil
}

// failedRules lists the rules that did not pass, sorted by name.
func failedRules(r VerifyResponse) []string {
	var out []string
	for name, res := range r.VerificationResults {
		if res["status"] != "PASS" {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// reportMismatches logs verdicts that differ from the expectation, grouped
// by the planted mismatch kind.
func reportMismatches(ctx context.Context, odds []mismatch, verbose bool) {
	if len(odds) == 0 {
		return
	}
	log := logger.Get().Named("samples")

	byKind := make(map[string]int)
	for _, m := range odds {
		kind := m.person.Mismatch
		if kind == MismatchNone {
			kind = "none"
		}
		byKind[kind]++
		if verbose {
			log.Warn(ctx, "unexpected verdict",
				logger.String("person_id", m.person.PersonID),
				logger.String("expected", m.person.Expected),
				logger.String("got", m.got.OverallStatus),
				logger.String("planted", kind),
				logger.Strings("failed_rules", failedRules(m.got)),
			)
		}
	}
	for kind, n := range byKind {
		log.Warn(ctx, "unexpected verdicts", logger.String("planted", kind), logger.Int("count", n))
	}
}
