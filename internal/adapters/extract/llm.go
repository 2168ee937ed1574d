package extract

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/okian/doccheck/internal/domain/model"
	"github.com/okian/doccheck/pkg/logger"
	"github.com/okian/doccheck/pkg/metrics"
)

const (
	defaultLLMMaxTokens   = 256
	defaultLLMPromptChars = 2048
)

const promptTemplate = `
Extract structured fields from the following OCR text of an Indian personal document.
Fields: %s.
Output JSON only. Empty string if not found.

Input:
"""%s"""
`

var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

// LLMConfig holds the language model settings.
type LLMConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	PromptChars int
	Timeout     time.Duration
	Vocabulary  model.Vocabulary
	Logger      logger.Logger
}

// LLM extracts fields by prompting an OpenAI-compatible chat completion
// endpoint and parsing the first JSON object of the reply.
type LLM struct {
	client      *openai.Client
	model       string
	maxTokens   int
	promptChars int
	timeout     time.Duration
	vocab       model.Vocabulary
	logger      logger.Logger
}

// NewLLM creates an LLM field parser.
func NewLLM(cfg LLMConfig) *LLM {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	l := &LLM{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		promptChars: cfg.PromptChars,
		timeout:     cfg.Timeout,
		vocab:       cfg.Vocabulary,
		logger:      cfg.Logger,
	}
	if l.maxTokens <= 0 {
		l.maxTokens = defaultLLMMaxTokens
	}
	if l.promptChars <= 0 {
		l.promptChars = defaultLLMPromptChars
	}
	if len(l.vocab) == 0 {
		l.vocab = model.DefaultVocabulary()
	}
	if l.logger == nil {
		l.logger = logger.Get().Named("llm")
	}
	return l
}

// Prompt builds the extraction prompt for text, truncated to the configured
// number of characters.
func (l *LLM) Prompt(text string) string {
	if r := []rune(text); len(r) > l.promptChars {
		text = string(r[:l.promptChars])
	}
	names := make([]string, len(l.vocab))
	for i, f := range l.vocab {
		names[i] = string(f)
	}
	return fmt.Sprintf(promptTemplate, strings.Join(names, ", "), text)
}

// ParseFields asks the model for the fields contained in text.
func (l *LLM) ParseFields(ctx context.Context, text string) (model.RawFieldSet, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := l.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     l.model,
		MaxTokens: l.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: l.Prompt(text)},
		},
	})
	metrics.RecordExtractionLatency(StageLLM, float64(time.Since(start).Milliseconds()))

	if err != nil {
		metrics.RecordLLMRequest("error")
		metrics.RecordExtractionError(StageLLM)
		return nil, parseAPIError(err)
	}
	if len(resp.Choices) == 0 {
		metrics.RecordLLMRequest("empty_response")
		metrics.RecordExtractionError(StageLLM)
		return nil, fmt.Errorf("%w: empty response", ErrLLMRequest)
	}

	fields, err := ParseModelOutput(resp.Choices[0].Message.Content, l.vocab)
	if err != nil {
		metrics.RecordLLMRequest("no_json")
		metrics.RecordExtractionError(StageLLM)
		l.logger.Debug(ctx, "model reply has no usable JSON", logger.Error(err))
		return nil, err
	}
	metrics.RecordLLMRequest("success")
	return fields, nil
}

// ParseModelOutput reads the outermost {...} block of a model reply.
func ParseModelOutput(out string, vocab model.Vocabulary) (model.RawFieldSet, error) {
	m := jsonObject.FindString(strings.TrimSpace(out))
	if m == "" {
		return nil, ErrNoJSONObject
	}
	fields, err := decodeFields([]byte(m), vocab)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoJSONObject, err)
	}
	return fields, nil
}

// parseAPIError extracts a human-readable error from the API response.
func parseAPIError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", ErrLLMRequest, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("%w: status %d: %s", ErrLLMRequest, reqErr.HTTPStatusCode, strings.TrimSpace(string(reqErr.Body)))
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: status %d: %s", ErrLLMRequest, apiErr.HTTPStatusCode, apiErr.Message)
	}

	return fmt.Errorf("%w: %s", ErrLLMRequest, err)
}
