package text2sql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/text2sql/text2sql/internal/database"
	"github.com/text2sql/text2sql/internal/executor"
	"github.com/text2sql/text2sql/internal/nl2sql"
	"github.com/text2sql/text2sql/internal/schema"
)

type fakeReader struct {
	desc  schema.Descriptor
	err   error
	calls int
}

func (f *fakeReader) Read(context.Context) (schema.Descriptor, error) {
	f.calls++
	return f.desc, f.err
}

type fakeCompleter struct {
	text    string
	err     error
	prompts []string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.text, f.err
}

func (f *fakeCompleter) Provider() string { return "fake" }

func (f *fakeCompleter) Model() string { return "fake-model" }

type fakeExecutor struct {
	results    map[string]executor.Result
	err        error
	statements []string
}

func (f *fakeExecutor) Execute(_ context.Context, statement string) (executor.Result, error) {
	f.statements = append(f.statements, statement)
	if f.err != nil {
		return executor.Result{}, f.err
	}
	result, ok := f.results[statement]
	if !ok {
		return executor.Result{}, fmt.Errorf("execute statement: syntax error in %q", statement)
	}
	return result, nil
}

func newTestService(t *testing.T, reader SchemaReader, completer nl2sql.Completer, exec executor.Executor) *Service {
	t.Helper()
	translator, err := nl2sql.NewTranslator(completer, nl2sql.Options{})
	if err != nil {
		t.Fatalf("NewTranslator() error = %v", err)
	}
	svc, err := NewService(reader, translator, exec, nil)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return svc
}

func selectOneExecutor() *fakeExecutor {
	return &fakeExecutor{results: map[string]executor.Result{
		"SELECT 1": {
			Columns: []string{"?column?"},
			Rows:    []executor.Row{executor.NewRow([]string{"?column?"}, []any{int64(1)})},
		},
	}}
}

func TestAskReturnsSQLAndResults(t *testing.T) {
	reader := &fakeReader{}
	completer := &fakeCompleter{text: "SELECT 1\n"}
	svc := newTestService(t, reader, completer, selectOneExecutor())

	answer, err := svc.Ask(context.Background(), "give me one")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	payload, err := json.Marshal(answer)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"sql":"SELECT 1","results":[{"?column?":1}]}`
	if string(payload) != want {
		t.Fatalf("payload = %s, want %s", payload, want)
	}
	if answer.Provider != "fake" || answer.Model != "fake-model" {
		t.Fatalf("answer provider/model = %s/%s", answer.Provider, answer.Model)
	}
}

func TestAskPromptEmbedsRenderedSchema(t *testing.T) {
	reader := &fakeReader{desc: schema.Descriptor{Tables: []schema.Table{
		{Name: "orders", Columns: []schema.Column{{Name: "id", Type: "integer"}, {Name: "total", Type: "numeric"}}},
	}}}
	completer := &fakeCompleter{text: "SELECT 1"}
	svc := newTestService(t, reader, completer, selectOneExecutor())

	if _, err := svc.Ask(context.Background(), "How many orders?"); err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	want := "Given the following PostgreSQL schema:\norders: id (integer), total (numeric)\n\nConvert this question into an SQL query:\nHow many orders?"
	if len(completer.prompts) != 1 || completer.prompts[0] != want {
		t.Fatalf("prompt = %q", completer.prompts)
	}
}

func TestAskModelErrorHasModelKind(t *testing.T) {
	exec := selectOneExecutor()
	svc := newTestService(t, &fakeReader{}, &fakeCompleter{err: errors.New("dial tcp 127.0.0.1:443: connection refused")}, exec)

	_, err := svc.Ask(context.Background(), "q")
	if kind, ok := KindOf(err); !ok || kind != KindModel {
		t.Fatalf("KindOf() = %q, %v", kind, ok)
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("error = %v", err)
	}
	if len(exec.statements) != 0 {
		t.Fatalf("executor ran %q after model failure", exec.statements)
	}
}

func TestAskInvalidSQLHasExecutionKind(t *testing.T) {
	svc := newTestService(t, &fakeReader{}, &fakeCompleter{text: "NOT SQL"}, selectOneExecutor())

	answer, err := svc.Ask(context.Background(), "q")
	if kind, ok := KindOf(err); !ok || kind != KindExecution {
		t.Fatalf("KindOf() = %q, %v (err=%v)", kind, ok, err)
	}
	if answer.SQL != "" || answer.Results.Rows != nil {
		t.Fatalf("answer = %+v, want zero on failure", answer)
	}
}

func TestAskConnectionFailureHasDatabaseKind(t *testing.T) {
	exec := &fakeExecutor{err: fmt.Errorf("%w: acquire connection: refused", database.ErrUnavailable)}
	svc := newTestService(t, &fakeReader{}, &fakeCompleter{text: "SELECT 1"}, exec)

	_, err := svc.Ask(context.Background(), "q")
	if kind, _ := KindOf(err); kind != KindDatabase {
		t.Fatalf("KindOf() = %q", kind)
	}
}

func TestAskSchemaFailureStopsBeforeModel(t *testing.T) {
	completer := &fakeCompleter{text: "SELECT 1"}
	svc := newTestService(t, &fakeReader{err: errors.New("password authentication failed")}, completer, selectOneExecutor())

	_, err := svc.Ask(context.Background(), "q")
	if kind, _ := KindOf(err); kind != KindDatabase {
		t.Fatalf("KindOf() = %q", kind)
	}
	if len(completer.prompts) != 0 {
		t.Fatal("model was called after schema failure")
	}
}

func TestAskIsRepeatableForSameQuestion(t *testing.T) {
	reader := &fakeReader{}
	svc := newTestService(t, reader, &fakeCompleter{text: "SELECT 1"}, selectOneExecutor())

	first, err := svc.Ask(context.Background(), "same")
	if err != nil {
		t.Fatalf("first Ask() error = %v", err)
	}
	second, err := svc.Ask(context.Background(), "same")
	if err != nil {
		t.Fatalf("second Ask() error = %v", err)
	}
	if first.SQL != second.SQL {
		t.Fatalf("sql differs: %q vs %q", first.SQL, second.SQL)
	}
	if reader.calls != 2 {
		t.Fatalf("schema reads = %d, want one per question", reader.calls)
	}
}

func TestAskEmptyQuestion(t *testing.T) {
	completer := &fakeCompleter{text: "SELECT 1"}
	svc := newTestService(t, &fakeReader{}, completer, selectOneExecutor())

	if _, err := svc.Ask(context.Background(), ""); err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if len(completer.prompts) != 1 || !strings.HasSuffix(completer.prompts[0], "Convert this question into an SQL query:\n") {
		t.Fatalf("prompt = %q", completer.prompts)
	}
}

func TestSchemaWrapsReaderError(t *testing.T) {
	svc := newTestService(t, &fakeReader{err: errors.New("boom")}, &fakeCompleter{}, selectOneExecutor())

	_, err := svc.Schema(context.Background())
	var typed *Error
	if !errors.As(err, &typed) || typed.Kind != KindDatabase {
		t.Fatalf("Schema() error = %v", err)
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	translator, _ := nl2sql.NewTranslator(&fakeCompleter{}, nl2sql.Options{})
	if _, err := NewService(nil, translator, selectOneExecutor(), nil); err == nil {
		t.Fatal("expected error for missing reader")
	}
	if _, err := NewService(&fakeReader{}, nil, selectOneExecutor(), nil); err == nil {
		t.Fatal("expected error for missing translator")
	}
	if _, err := NewService(&fakeReader{}, translator, nil, nil); err == nil {
		t.Fatal("expected error for missing executor")
	}
}
