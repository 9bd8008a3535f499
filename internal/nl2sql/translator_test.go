package nl2sql

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type stubCompleter struct {
	text    string
	err     error
	prompts []string
}

func (s *stubCompleter) Complete(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.text, s.err
}

func (s *stubCompleter) Provider() string { return "stub" }

func (s *stubCompleter) Model() string { return "stub-model" }

func TestBuildPrompt(t *testing.T) {
	got := BuildPrompt(DialectPostgreSQL, "orders: id (integer)", "How many orders?")
	want := "Given the following PostgreSQL schema:\norders: id (integer)\n\nConvert this question into an SQL query:\nHow many orders?"
	if got != want {
		t.Fatalf("BuildPrompt() = %q, want %q", got, want)
	}
}

func TestBuildPromptEmptyInputs(t *testing.T) {
	got := BuildPrompt("", "", "")
	want := "Given the following PostgreSQL schema:\n\n\nConvert this question into an SQL query:\n"
	if got != want {
		t.Fatalf("BuildPrompt() = %q, want %q", got, want)
	}
}

func TestTranslatorTrimsCompletion(t *testing.T) {
	stub := &stubCompleter{text: "\n  SELECT 1  \n"}
	translator, err := NewTranslator(stub, Options{Dialect: DialectDuckDB})
	if err != nil {
		t.Fatalf("NewTranslator() error = %v", err)
	}
	got, err := translator.Translate(context.Background(), Request{Question: "one?", Schema: "t: a (INTEGER)"})
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if got.SQL != "SELECT 1" || got.Provider != "stub" || got.Model != "stub-model" {
		t.Fatalf("Translate() = %+v", got)
	}
	if len(stub.prompts) != 1 || !strings.HasPrefix(stub.prompts[0], "Given the following DuckDB schema:\nt: a (INTEGER)") {
		t.Fatalf("prompts = %q", stub.prompts)
	}
}

func TestTranslatorKeepsMarkdownUnlessEnabled(t *testing.T) {
	fenced := "```sql\nSELECT 1;\n```"

	plain, _ := NewTranslator(&stubCompleter{text: fenced}, Options{})
	got, err := plain.Translate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if got.SQL != fenced {
		t.Fatalf("SQL = %q, want verbatim", got.SQL)
	}

	stripping, _ := NewTranslator(&stubCompleter{text: fenced}, Options{StripMarkdown: true})
	got, err = stripping.Translate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if got.SQL != "SELECT 1;" {
		t.Fatalf("SQL = %q", got.SQL)
	}
}

func TestTranslatorPassesThroughNonSQL(t *testing.T) {
	translator, _ := NewTranslator(&stubCompleter{text: "NOT SQL"}, Options{})
	got, err := translator.Translate(context.Background(), Request{Question: "?"})
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if got.SQL != "NOT SQL" {
		t.Fatalf("SQL = %q", got.SQL)
	}
}

func TestTranslatorPropagatesCompleterError(t *testing.T) {
	want := errors.New("dial tcp: connection refused")
	translator, _ := NewTranslator(&stubCompleter{err: want}, Options{})
	if _, err := translator.Translate(context.Background(), Request{}); !errors.Is(err, want) {
		t.Fatalf("Translate() error = %v", err)
	}
}

func TestStripMarkdownSQL(t *testing.T) {
	got := stripMarkdownSQL("```sql\nSELECT 1;\n```")
	if got != "SELECT 1;" {
		t.Fatalf("stripMarkdownSQL() = %q", got)
	}
	if got := stripMarkdownSQL("  SELECT 2 "); got != "SELECT 2" {
		t.Fatalf("stripMarkdownSQL() = %q", got)
	}
}

func TestNewCompleterSelectsProvider(t *testing.T) {
	openai, err := NewCompleter(Config{APIKey: "k"})
	if err != nil {
		t.Fatalf("NewCompleter(openai) error = %v", err)
	}
	if openai.Provider() != ProviderOpenAI {
		t.Fatalf("Provider() = %q", openai.Provider())
	}

	anthropicCompleter, err := NewCompleter(Config{Provider: "anthropic", APIKey: "k"})
	if err != nil {
		t.Fatalf("NewCompleter(anthropic) error = %v", err)
	}
	if anthropicCompleter.Provider() != ProviderAnthropic {
		t.Fatalf("Provider() = %q", anthropicCompleter.Provider())
	}

	if _, err := NewCompleter(Config{Provider: "ollama", APIKey: "k"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
