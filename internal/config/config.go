// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Loading layers defaults, an optional YAML file and DOCCHECK_ env vars.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"runtime"

	"github.com/okian/doccheck/internal/domain/fuzzy"
	model "github.com/okian/doccheck/internal/domain/model"
	"github.com/okian/doccheck/internal/domain/normalize"
	"github.com/okian/doccheck/internal/domain/rules"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Extractor backends.
const (
	ExtractorLLM       = "llm"
	ExtractorHeuristic = "heuristic"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DataDir is walked by the batch run for input documents.
	DataDir string `koanf:"data_dir"`

	// OutputPath is where the batch run writes results.json.
	OutputPath string `koanf:"output_path"`

	// Store selects where verification records are kept: memory or sqlite.
	Store      string `koanf:"store"`
	SQLitePath string `koanf:"sqlite_path"`

	// QueueSize bounds the in-memory job queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of verification workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds the set of in-flight person ids.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxDocumentsPerPerson caps the documents considered for one person.
	MaxDocumentsPerPerson int `koanf:"max_documents_per_person"`

	// GroupPrefixLen is how many leading file name characters identify a person.
	GroupPrefixLen int `koanf:"group_prefix_len"`

	// ExtractConcurrency bounds concurrent extractions within one person.
	ExtractConcurrency int `koanf:"extract_concurrency"`

	// Topology is star, all_pairs or majority.
	Topology string `koanf:"topology"`

	// FuzzyScorer is token_sort or levenshtein.
	FuzzyScorer string `koanf:"fuzzy_scorer"`

	NameThreshold       float64 `koanf:"name_threshold"`
	FatherNameThreshold float64 `koanf:"father_name_threshold"`
	AddressThreshold    float64 `koanf:"address_threshold"`

	// Fields is the ordered field vocabulary.
	Fields []string `koanf:"fields"`

	// Normalizers maps field names to normalization kinds, overriding defaults.
	Normalizers map[string]string `koanf:"normalizers"`

	// RuleList replaces the default rules when non-empty.
	RuleList []rules.Rule `koanf:"rules"`

	// Extractor is llm or heuristic.
	Extractor string `koanf:"extractor"`

	LLMBaseURL     string `koanf:"llm_base_url"`
	LLMAPIKey      string `koanf:"llm_api_key"`
	LLMModel       string `koanf:"llm_model"`
	LLMMaxTokens   int    `koanf:"llm_max_tokens"`
	LLMPromptChars int    `koanf:"llm_prompt_chars"`
	LLMTimeoutMS   int    `koanf:"llm_timeout_ms"`

	OCRCommand  string `koanf:"ocr_command"`
	OCRLang     string `koanf:"ocr_lang"`
	PDFMaxPages int    `koanf:"pdf_max_pages"`
}

// New creates a Config populated with defaults.
func New() *Config {
	fields := make([]string, 0, 10)
	for _, f := range model.DefaultVocabulary() {
		fields = append(fields, string(f))
	}
	t := rules.DefaultThresholds()
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":9080",
		DataDir:               "data/raw",
		OutputPath:            "outputs/results.json",
		Store:                 StoreMemory,
		SQLitePath:            "outputs/records.db",
		QueueSize:             1024,
		WorkerCount:           runtime.NumCPU(),
		DedupeSize:            10_000,
		MaxDocumentsPerPerson: model.DefaultMaxDocuments,
		GroupPrefixLen:        4,
		ExtractConcurrency:    3,
		Topology:              rules.TopologyStar,
		FuzzyScorer:           fuzzy.NameTokenSort,
		NameThreshold:         t.Name,
		FatherNameThreshold:   t.FatherName,
		AddressThreshold:      t.Address,
		Fields:                fields,
		Normalizers:           map[string]string{},
		Extractor:             ExtractorLLM,
		LLMBaseURL:            "http://localhost:11434/v1",
		LLMModel:              "flan-t5-small",
		LLMMaxTokens:          256,
		LLMPromptChars:        2048,
		LLMTimeoutMS:          60_000,
		OCRCommand:            "tesseract",
		OCRLang:               "eng",
		PDFMaxPages:           50,
	}
}

// Vocabulary returns the configured field vocabulary.
func (c *Config) Vocabulary() model.Vocabulary {
	return model.VocabularyFromStrings(c.Fields)
}

// Thresholds returns the fuzzy thresholds for the default rule list.
func (c *Config) Thresholds() rules.Thresholds {
	return rules.Thresholds{
		Name:       c.NameThreshold,
		FatherName: c.FatherNameThreshold,
		Address:    c.AddressThreshold,
	}
}

// Rules returns the configured rule list, or the default list built from the
// configured thresholds.
func (c *Config) Rules() []rules.Rule {
	if len(c.RuleList) > 0 {
		return append([]rules.Rule(nil), c.RuleList...)
	}
	return rules.DefaultRules(c.Thresholds())
}

// Kinds parses the normalizer overrides.
func (c *Config) Kinds() (map[model.Field]normalize.Kind, error) {
	out := make(map[model.Field]normalize.Kind, len(c.Normalizers))
	for f, name := range c.Normalizers {
		k, err := normalize.ParseKind(name)
		if err != nil {
			return nil, err
		}
		out[model.Field(f)] = k
	}
	return out, nil
}
