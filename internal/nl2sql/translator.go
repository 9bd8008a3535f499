package nl2sql

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Completer sends one prompt as a single user message and returns the text
// of the first answer.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Provider() string
	Model() string
}

type Request struct {
	Question string `json:"question"`
	Schema   string `json:"schema"`
}

type Result struct {
	SQL      string `json:"sql"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

type Options struct {
	Dialect       string
	StripMarkdown bool
}

type Translator struct {
	completer     Completer
	dialect       string
	stripMarkdown bool
}

func NewTranslator(completer Completer, opts Options) (*Translator, error) {
	if completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	dialect := strings.TrimSpace(opts.Dialect)
	if dialect == "" {
		dialect = DialectPostgreSQL
	}
	return &Translator{completer: completer, dialect: dialect, stripMarkdown: opts.StripMarkdown}, nil
}

func (t *Translator) Provider() string {
	return t.completer.Provider()
}

// Translate returns the completion trimmed of surrounding whitespace. The
// text is not checked for being SQL.
func (t *Translator) Translate(ctx context.Context, req Request) (Result, error) {
	prompt := BuildPrompt(t.dialect, req.Schema, req.Question)
	text, err := t.completer.Complete(ctx, prompt)
	if err != nil {
		return Result{}, err
	}
	sql := strings.TrimSpace(text)
	if t.stripMarkdown {
		sql = stripMarkdownSQL(sql)
	}
	return Result{
		SQL:      sql,
		Provider: t.completer.Provider(),
		Model:    t.completer.Model(),
	}, nil
}

type Config struct {
	Provider    string
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

func NewCompleter(cfg Config) (Completer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderOpenAI:
		return NewOpenAICompleter(OpenAIConfig{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		})
	case ProviderAnthropic:
		return NewAnthropicCompleter(AnthropicConfig{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     cfg.Timeout,
		})
	default:
		return nil, fmt.Errorf("unsupported model provider %q", cfg.Provider)
	}
}

func stripMarkdownSQL(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```sql")
		trimmed = strings.TrimPrefix(trimmed, "```SQL")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
		return strings.TrimSpace(trimmed)
	}
	return trimmed
}
