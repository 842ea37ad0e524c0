package engine

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/tatianab/transit-ace/internal/catalog"
	"github.com/tatianab/transit-ace/internal/models"
	"go.uber.org/zap"
)

//go:embed prompts/generate_story.txt
var generateStoryPrompt string

var generateStoryTmpl = template.Must(template.New("generate_story").Parse(generateStoryPrompt))

var (
	// ErrUnavailable means the model could not be reached or returned nothing.
	ErrUnavailable = errors.New("scenario generator unavailable")
	// ErrMalformed means the model answered with something that is not a
	// playable story.
	ErrMalformed = errors.New("malformed generated story")
)

// GenerationError is the failure returned by Generate. Kind is ErrUnavailable
// or ErrMalformed.
type GenerationError struct {
	Kind     error
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%v after %d attempt(s): %v", e.Kind, e.Attempts, e.Err)
}

func (e *GenerationError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// Generator produces a story and its scenarios from a free-text plot.
type Generator interface {
	Generate(ctx context.Context, rulesData string, lang models.Language, plot string) (models.GeneratedStory, error)
}

// completer sends one prompt to a language model and returns its text.
type completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Close() error
}

// Engine is the LLM-backed Generator.
type Engine struct {
	completer completer
	logger    *zap.Logger
	timeout   time.Duration
	retries   int
}

var _ Generator = (*Engine)(nil)

// Config selects and tunes the model backend.
type Config struct {
	Provider      string // "gemini" or "openai"
	GeminiAPIKey  string
	GeminiModel   string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	Timeout       time.Duration // per attempt
	Retries       int           // extra attempts after the first
}

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// NewEngine connects to the configured provider.
func NewEngine(ctx context.Context, cfg Config, logger *zap.Logger) (*Engine, error) {
	var (
		c   completer
		err error
	)
	switch cfg.Provider {
	case ProviderGemini, "":
		c, err = newGeminiCompleter(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	case ProviderOpenAI:
		c, err = newOpenAICompleter(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return newEngine(c, cfg, logger), nil
}

func newEngine(c completer, cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	return &Engine{
		completer: c,
		logger:    logger.Named("engine"),
		timeout:   cfg.Timeout,
		retries:   cfg.Retries,
	}
}

func (e *Engine) Close() {
	if err := e.completer.Close(); err != nil {
		e.logger.Warn("failed to close LLM client", zap.Error(err))
	}
}

// Generate asks the model for a story. Each attempt is independent, so a
// failed attempt is simply retried. The returned story has passed
// catalog.Validate; on error nothing usable is returned.
func (e *Engine) Generate(ctx context.Context, rulesData string, lang models.Language, plot string) (models.GeneratedStory, error) {
	var buf bytes.Buffer
	data := struct {
		Rules        string
		LanguageName string
		Plot         string
	}{
		Rules:        rulesData,
		LanguageName: languageName(lang),
		Plot:         strings.TrimSpace(plot),
	}
	if err := generateStoryTmpl.Execute(&buf, data); err != nil {
		return models.GeneratedStory{}, fmt.Errorf("render prompt: %w", err)
	}
	prompt := buf.String()

	var lastErr *GenerationError
	for attempt := 1; attempt <= e.retries+1; attempt++ {
		if err := ctx.Err(); err != nil {
			return models.GeneratedStory{}, &GenerationError{Kind: ErrUnavailable, Attempts: attempt - 1, Err: err}
		}
		gs, gerr := e.attempt(ctx, prompt)
		if gerr == nil {
			gs.Story.CreatedAt = time.Now()
			e.logger.Info("story generated",
				zap.String("title", gs.Story.Title),
				zap.Int("scenarios", len(gs.Scenarios)),
				zap.Int("attempt", attempt))
			return gs, nil
		}
		gerr.Attempts = attempt
		e.logger.Warn("story generation attempt failed", zap.Int("attempt", attempt), zap.Error(gerr.Err))
		lastErr = gerr
	}
	return models.GeneratedStory{}, lastErr
}

func (e *Engine) attempt(ctx context.Context, prompt string) (models.GeneratedStory, *GenerationError) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	text, err := e.completer.Complete(ctx, prompt)
	if err != nil {
		return models.GeneratedStory{}, &GenerationError{Kind: ErrUnavailable, Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return models.GeneratedStory{}, &GenerationError{Kind: ErrUnavailable, Err: errors.New("empty response")}
	}
	gs, err := catalog.Parse([]byte(cleanYAML(text)))
	if err != nil {
		return models.GeneratedStory{}, &GenerationError{Kind: ErrMalformed, Err: err}
	}
	return gs, nil
}

// cleanYAML strips the Markdown code fence models like to wrap YAML in.
func cleanYAML(text string) string {
	clean := strings.TrimSpace(text)
	clean = strings.TrimPrefix(clean, "```yaml")
	clean = strings.TrimPrefix(clean, "```yml")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	return strings.TrimSpace(clean)
}

func languageName(lang models.Language) string {
	if lang == models.LanguageFrench {
		return "French"
	}
	return "English"
}
