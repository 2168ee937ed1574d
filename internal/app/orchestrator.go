package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/doccheck/internal/adapters/extract"
	"github.com/okian/doccheck/internal/config"
	"github.com/okian/doccheck/internal/domain/fuzzy"
	"github.com/okian/doccheck/internal/domain/model"
	"github.com/okian/doccheck/internal/domain/normalize"
	"github.com/okian/doccheck/internal/domain/rules"
	"github.com/okian/doccheck/pkg/logger"
	"github.com/okian/doccheck/pkg/metrics"
)

const defaultExtractConcurrency = 3

// Orchestrator runs the pipeline for one person: extract every document,
// normalize, evaluate the rules and assemble the record.
type Orchestrator struct {
	extractor   extract.Extractor
	normalizer  *normalize.Normalizer
	engine      *rules.Engine
	maxDocs     int
	concurrency int
	logger      logger.Logger
}

// OrchestratorOption applies a configuration option to the Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithExtractor sets how document sources are turned into fields.
func WithExtractor(e extract.Extractor) OrchestratorOption {
	return func(o *Orchestrator) {
		if e != nil {
			o.extractor = e
		}
	}
}

// WithNormalizer sets the field normalizer. Its vocabulary is the record vocabulary.
func WithNormalizer(n *normalize.Normalizer) OrchestratorOption {
	return func(o *Orchestrator) {
		if n != nil {
			o.normalizer = n
		}
	}
}

// WithEngine sets the rule engine.
func WithEngine(e *rules.Engine) OrchestratorOption {
	return func(o *Orchestrator) {
		if e != nil {
			o.engine = e
		}
	}
}

// WithMaxDocuments caps the documents considered per person.
func WithMaxDocuments(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxDocs = n
		}
	}
}

// WithExtractConcurrency bounds concurrent extractions for one person.
func WithExtractConcurrency(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithOrchestratorLogger sets a custom logger.
func WithOrchestratorLogger(l logger.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewOrchestrator builds an orchestrator with the default normalizer and
// rule engine unless overridden.
func NewOrchestrator(opts ...OrchestratorOption) (*Orchestrator, error) {
	o := &Orchestrator{
		maxDocs:     model.DefaultMaxDocuments,
		concurrency: defaultExtractConcurrency,
		logger:      logger.Get().Named("orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.normalizer == nil {
		o.normalizer = normalize.New(normalize.WithFallbackHook(recordFallback))
	}
	if o.engine == nil {
		e, err := rules.NewEngine(rules.WithVocabulary(o.normalizer.Vocabulary()))
		if err != nil {
			return nil, err
		}
		o.engine = e
	}
	return o, nil
}

// NewOrchestratorFromConfig wires the normalizer and engine described by cfg.
func NewOrchestratorFromConfig(cfg *config.Config, ex extract.Extractor, opts ...OrchestratorOption) (*Orchestrator, error) {
	vocab := cfg.Vocabulary()
	kinds, err := cfg.Kinds()
	if err != nil {
		return nil, err
	}
	topology, err := rules.TopologyByName(cfg.Topology)
	if err != nil {
		return nil, err
	}
	scorer, err := fuzzy.ByName(cfg.FuzzyScorer)
	if err != nil {
		return nil, err
	}
	engine, err := rules.NewEngine(
		rules.WithRules(cfg.Rules()),
		rules.WithVocabulary(vocab),
		rules.WithTopology(topology),
		rules.WithScorer(scorer),
	)
	if err != nil {
		return nil, err
	}

	base := []OrchestratorOption{
		WithExtractor(ex),
		WithNormalizer(normalize.New(
			normalize.WithVocabulary(vocab),
			normalize.WithKinds(kinds),
			normalize.WithFallbackHook(recordFallback),
		)),
		WithEngine(engine),
		WithMaxDocuments(cfg.MaxDocumentsPerPerson),
		WithExtractConcurrency(cfg.ExtractConcurrency),
	}
	return NewOrchestrator(append(base, opts...)...)
}

func recordFallback(f model.Field) { metrics.RecordDateFallback(string(f)) }

// Vocabulary returns the record vocabulary.
func (o *Orchestrator) Vocabulary() model.Vocabulary { return o.normalizer.Vocabulary() }

// RuleNames returns the rule names in evaluation order.
func (o *Orchestrator) RuleNames() []string { return o.engine.RuleNames() }

// Degenerate builds the all-FAIL record used when a person cannot be evaluated.
func (o *Orchestrator) Degenerate(personID, reason string) model.PersonVerificationRecord {
	metrics.RecordPersonProcessed(string(model.Failed))
	return model.DegenerateRecord(personID, reason, o.engine.RuleNames(), o.normalizer.Vocabulary())
}

// Process extracts and verifies one person group. It never fails: extraction
// problems become empty field sets reported in the diagnostics.
func (o *Orchestrator) Process(ctx context.Context, g model.PersonGroup) model.PersonVerificationRecord {
	start := time.Now()
	defer func() {
		metrics.RecordVerifyLatency(float64(time.Since(start).Milliseconds()))
	}()

	sources := capDocuments(ctx, o, g.PersonID, g.Sources)
	if len(sources) == 0 {
		o.logger.Warn(ctx, "person has no documents", logger.String("person_id", g.PersonID))
		return o.Degenerate(g.PersonID, model.ReasonNoDocuments)
	}

	docs := make([]model.Document, len(sources))
	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(o.concurrency)
	for i, src := range sources {
		docs[i] = model.Document{ID: model.DocumentID(i + 1), Source: src}
		eg.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					metrics.RecordExtractionError("panic")
					docs[i].ExtractionError = fmt.Sprintf("extractor panicked: %v", r)
				}
			}()
			fields, err := o.extract(ectx, src)
			if err != nil {
				o.logger.Warn(ectx, "extraction failed, using empty fields",
					logger.String("person_id", g.PersonID),
					logger.String("source", src),
					logger.Error(err),
				)
				docs[i].ExtractionError = err.Error()
				return nil
			}
			docs[i].Fields = fields
			return nil
		})
	}
	_ = eg.Wait()

	rec, _ := o.evaluate(ctx, g.PersonID, docs)
	return rec
}

func (o *Orchestrator) extract(ctx context.Context, source string) (model.RawFieldSet, error) {
	if o.extractor == nil {
		return nil, fmt.Errorf("%w: %s", extract.ErrNoExtractor, source)
	}
	return o.extractor.Extract(ctx, source)
}

// Verify evaluates documents whose fields were extracted elsewhere. Documents
// without an id are numbered by position. Duplicate ids are rejected.
func (o *Orchestrator) Verify(ctx context.Context, personID string, docs []model.Document, opts ...rules.EvalOption) (model.PersonVerificationRecord, error) {
	start := time.Now()
	defer func() {
		metrics.RecordVerifyLatency(float64(time.Since(start).Milliseconds()))
	}()

	if personID == "" {
		return model.PersonVerificationRecord{}, model.ErrEmptyPersonID
	}
	if len(docs) == 0 {
		return o.Degenerate(personID, model.ReasonNoDocuments), nil
	}

	numbered := make([]model.Document, len(docs))
	for i, d := range docs {
		if d.ID == "" {
			d.ID = model.DocumentID(i + 1)
		}
		numbered[i] = d
	}
	numbered = capDocuments(ctx, o, personID, numbered)
	return o.evaluate(ctx, personID, numbered, opts...)
}

// capDocuments keeps the first maxDocs items, warning when some are dropped.
func capDocuments[T any](ctx context.Context, o *Orchestrator, personID string, items []T) []T {
	if len(items) <= o.maxDocs {
		return items
	}
	o.logger.Warn(ctx, "too many documents for person, keeping the first ones",
		logger.String("person_id", personID),
		logger.Int("found", len(items)),
		logger.Int("kept", o.maxDocs),
	)
	return items[:o.maxDocs]
}

// evaluate normalizes docs, runs the engine and assembles the record.
func (o *Orchestrator) evaluate(ctx context.Context, personID string, docs []model.Document, opts ...rules.EvalOption) (model.PersonVerificationRecord, error) {
	vocab := o.normalizer.Vocabulary()
	extracted := model.ExtractedData{Vocabulary: vocab, Documents: make([]model.ExtractedDocument, 0, len(docs))}
	normalized := make([]model.NormalizedDocument, 0, len(docs))
	diag := &model.Diagnostics{}

	for _, d := range docs {
		raw := d.Fields.Project(vocab)
		if d.ExtractionError != "" {
			raw = model.EmptyFieldSet(vocab)
			if diag.ExtractionErrors == nil {
				diag.ExtractionErrors = make(map[string]string)
			}
			diag.ExtractionErrors[d.ID] = d.ExtractionError
		}
		if d.Source != "" {
			if diag.Sources == nil {
				diag.Sources = make(map[string]string)
			}
			diag.Sources[d.ID] = d.Source
		}
		extracted.Documents = append(extracted.Documents, model.ExtractedDocument{ID: d.ID, Fields: raw})
		normalized = append(normalized, model.NormalizedDocument{ID: d.ID, Fields: o.normalizer.NormalizeFieldSet(raw)})
	}

	group, err := model.NewPersonDocumentGroup(personID, normalized, 0)
	if err != nil {
		return model.PersonVerificationRecord{}, err
	}

	results, overall := o.engine.Evaluate(group, opts...)
	for _, r := range results {
		metrics.RecordRuleOutcome(r.Name, string(r.Status))
	}
	metrics.RecordPersonProcessed(string(overall))

	o.logger.Debug(ctx, "person verified",
		logger.String("person_id", personID),
		logger.Int("documents", len(docs)),
		logger.String("overall_status", string(overall)),
	)

	rec := model.PersonVerificationRecord{
		PersonID:            personID,
		ExtractedData:       extracted,
		VerificationResults: results,
		OverallStatus:       overall,
	}
	if !diag.Empty() {
		rec.Diagnostics = diag
	}
	return rec, nil
}
