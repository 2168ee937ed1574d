package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/doccheck/internal/domain/fuzzy"
	"github.com/okian/doccheck/internal/domain/rules"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "DOCCHECK_"

// EnvConfigPath names the variable holding an optional YAML config path.
const EnvConfigPath = EnvPrefix + "CONFIG"

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if DOCCHECK_CONFIG is set
//  3. env (prefix DOCCHECK_)
func Load() (*Config, error) {
	return LoadFile(os.Getenv(EnvConfigPath))
}

// LoadFile is Load with an explicit YAML path; an empty path skips the file layer.
func LoadFile(path string) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// DOCCHECK_QUEUE_SIZE -> queue_size; underscores are kept to match the
	// flat koanf tags.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, strings.ToLower(EnvPrefix))
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	// Slices are decoded fresh so a shorter configured list does not keep
	// trailing default entries.
	cfg := *base
	cfg.Fields = nil
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if !k.Exists("fields") {
		cfg.Fields = base.Fields
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges and cross-field consistency.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	for name, v := range map[string]float64{
		"name_threshold":        c.NameThreshold,
		"father_name_threshold": c.FatherNameThreshold,
		"address_threshold":     c.AddressThreshold,
	} {
		if v < 0 || v > 100 {
			return fmt.Errorf("%w: %s must be within 0..100, got %v", ErrInvalidConfig, name, v)
		}
	}
	if c.MaxDocumentsPerPerson < 1 {
		return fmt.Errorf("%w: max_documents_per_person must be at least 1", ErrInvalidConfig)
	}
	if c.GroupPrefixLen < 1 {
		return fmt.Errorf("%w: group_prefix_len must be at least 1", ErrInvalidConfig)
	}
	if _, err := rules.TopologyByName(c.Topology); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := fuzzy.ByName(c.FuzzyScorer); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	switch c.Store {
	case StoreMemory:
	case StoreSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("%w: sqlite_path must not be empty", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, c.Store)
	}
	switch c.Extractor {
	case ExtractorLLM, ExtractorHeuristic:
	default:
		return fmt.Errorf("%w: unknown extractor %q", ErrInvalidConfig, c.Extractor)
	}
	vocab := c.Vocabulary()
	if len(vocab) == 0 {
		return fmt.Errorf("%w: fields must not be empty", ErrInvalidConfig)
	}
	if _, err := c.Kinds(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := rules.ValidateRules(c.Rules(), vocab); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
