package text2sqlctl

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRunAskCommandPrintsTable(t *testing.T) {
	var gotMethod, gotPath, gotQuestion string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotQuestion = body["question"]
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sql":"SELECT name, id FROM customers","results":[{"name":"Ada","id":1},{"name":null,"id":2}]}`))
	}))
	defer srv.Close()

	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), []string{
		"--base-url", srv.URL,
		"ask", "list", "all", "customers",
	}, Options{Stdout: &stdout, Stderr: &stderr, Timeout: 2 * time.Second})
	if code != 0 {
		t.Fatalf("exit code = %d, stderr=%s", code, stderr.String())
	}
	if gotMethod != http.MethodPost || gotPath != "/query" {
		t.Fatalf("request = %s %s", gotMethod, gotPath)
	}
	if gotQuestion != "list all customers" {
		t.Fatalf("question = %q", gotQuestion)
	}
	out := stdout.String()
	if !strings.Contains(out, "SQL: SELECT name, id FROM customers") {
		t.Fatalf("output missing SQL:\n%s", out)
	}
	grid := out[strings.Index(out, "+"):]
	if strings.Index(grid, "name") > strings.Index(grid, "id ") {
		t.Fatalf("columns not in server order:\n%s", out)
	}
	if !strings.Contains(out, "Ada") || !strings.Contains(out, "NULL") || !strings.Contains(out, "(2 rows)") {
		t.Fatalf("unexpected table:\n%s", out)
	}
}

func TestRunAskCommandJSONOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"sql":"SELECT 1","results":[{"?column?":1}]}`))
	}))
	defer srv.Close()

	var stdout bytes.Buffer
	code := Run(context.Background(), []string{"--base-url", srv.URL, "-o", "json", "ask", "one"}, Options{Stdout: &stdout})
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	var decoded map[string]any
	if err := json.Unmarshal(stdout.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout.String())
	}
	if decoded["sql"] != "SELECT 1" {
		t.Fatalf("decoded = %#v", decoded)
	}
}

func TestRunAskErrorEnvelopeExitsOne(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"syntax error at or near \"NOT\"","error_kind":"execution"}`))
	}))
	defer srv.Close()

	var stderr bytes.Buffer
	code := Run(context.Background(), []string{"--base-url", srv.URL, "ask", "broken"}, Options{Stderr: &stderr})
	if code != 1 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(stderr.String(), "execution error: syntax error") {
		t.Fatalf("stderr = %q", stderr.String())
	}
}

func TestRunSchemaCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/schema" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"orders":["id (integer)","total (numeric)"],"customers":["id (integer)"]}`))
	}))
	defer srv.Close()

	var stdout bytes.Buffer
	code := Run(context.Background(), []string{"--base-url", srv.URL, "schema"}, Options{Stdout: &stdout})
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	out := stdout.String()
	if strings.Index(out, "orders") > strings.Index(out, "customers") {
		t.Fatalf("tables not in server order:\n%s", out)
	}
	if !strings.Contains(out, "total (numeric)") {
		t.Fatalf("output = %s", out)
	}
}

func TestRunReadyFailureExitsOne(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"not_ready"}`))
	}))
	defer srv.Close()

	code := Run(context.Background(), []string{"--base-url", srv.URL, "ready"}, Options{})
	if code != 1 {
		t.Fatalf("exit code = %d", code)
	}
}

func TestRunHealthCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/health" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	var stdout bytes.Buffer
	code := Run(context.Background(), []string{"--base-url", srv.URL + "/", "health"}, Options{Stdout: &stdout})
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(stdout.String(), `"status": "ok"`) {
		t.Fatalf("stdout = %q", stdout.String())
	}
}

func TestRunRequestFailureExitsOne(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	code := Run(context.Background(), []string{"--base-url", url, "--timeout", "1s", "health"}, Options{})
	if code != 1 {
		t.Fatalf("exit code = %d", code)
	}
}

func TestRunUsageErrors(t *testing.T) {
	tests := map[string][]string{
		"no command":      {},
		"unknown command": {"explode"},
		"ask without arg": {"ask"},
		"bad output":      {"-o", "yaml", "health"},
		"bad flag":        {"--nope", "health"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			var stderr bytes.Buffer
			code := Run(context.Background(), args, Options{Stderr: &stderr})
			if code != 2 {
				t.Fatalf("exit code = %d, stderr=%s", code, stderr.String())
			}
		})
	}
}

func TestOrderedObjectKeepsKeyOrder(t *testing.T) {
	keys, values, err := orderedObject([]byte(`{"b":1,"a":"x","c":null}`))
	if err != nil {
		t.Fatalf("orderedObject() error = %v", err)
	}
	if strings.Join(keys, ",") != "b,a,c" {
		t.Fatalf("keys = %v", keys)
	}
	if cellText(values["a"]) != "x" || cellText(values["c"]) != "NULL" || cellText(values["b"]) != "1" {
		t.Fatalf("values = %v", values)
	}
	if _, _, err := orderedObject([]byte(`[1,2]`)); err == nil {
		t.Fatal("expected error for array")
	}
}
