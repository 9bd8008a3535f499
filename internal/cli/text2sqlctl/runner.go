package text2sqlctl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

const (
	exitCodeSuccess = 0
	exitCodeFailure = 1
	exitCodeUsage   = 2

	outputJSON  = "json"
	outputTable = "table"
)

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

// failure marks errors that happened after the command line was accepted.
type failure struct {
	err error
}

func (f *failure) Error() string { return f.err.Error() }

func (f *failure) Unwrap() error { return f.err }

func failf(format string, args ...any) error {
	return &failure{err: fmt.Errorf(format, args...)}
}

type runner struct {
	baseURL string
	timeout time.Duration
	output  string
	client  *http.Client
	stdout  io.Writer
}

// Run executes one command and returns the process exit code: 0 on
// success, 1 when the request or the answer failed, 2 on usage errors.
func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	r := &runner{client: defaults.HTTPClient, stdout: stdout}
	root := newRootCmd(r, defaults)
	if args == nil {
		args = []string{}
	}
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitCodeSuccess
	}
	_, _ = fmt.Fprintf(stderr, "error: %v\n", err)
	var failed *failure
	if errors.As(err, &failed) {
		return exitCodeFailure
	}
	_, _ = fmt.Fprintln(stderr, "run 'text2sqlctl --help' for usage")
	return exitCodeUsage
}

func newRootCmd(r *runner, defaults Options) *cobra.Command {
	root := &cobra.Command{
		Use:           "text2sqlctl",
		Short:         "Ask questions of a text2sql API from the command line.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return errors.New("a command is required")
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch r.output {
			case outputJSON, outputTable:
			default:
				return fmt.Errorf("unsupported output %q (want json or table)", r.output)
			}
			if r.timeout <= 0 {
				return fmt.Errorf("timeout must be positive")
			}
			if r.client == nil {
				r.client = &http.Client{Timeout: r.timeout}
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&r.baseURL, "base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8000"), "text2sql API base URL")
	flags.DurationVar(&r.timeout, "timeout", durationOr(defaults.Timeout, 90*time.Second), "HTTP timeout (e.g. 30s)")
	flags.StringVarP(&r.output, "output", "o", outputTable, "output format: json or table")

	root.AddCommand(
		&cobra.Command{
			Use:   "ask <question...>",
			Short: "Translate a question to SQL, run it, and print the rows (POST /query)",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return r.ask(cmd.Context(), strings.Join(args, " "))
			},
		},
		&cobra.Command{
			Use:   "schema",
			Short: "Print the tables and columns the model sees (GET /schema)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return r.schema(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "health",
			Short: "Check that the API process is up (GET /health)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return r.status(cmd.Context(), "/health")
			},
		},
		&cobra.Command{
			Use:   "ready",
			Short: "Check that the API can reach its database (GET /ready)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return r.status(cmd.Context(), "/ready")
			},
		},
	)
	return root
}

func (r *runner) ask(ctx context.Context, question string) error {
	payload, err := json.Marshal(map[string]string{"question": question})
	if err != nil {
		return failf("encode question: %w", err)
	}
	body, err := r.do(ctx, http.MethodPost, "/query", payload)
	if err != nil {
		return err
	}
	if r.output == outputJSON {
		return r.printJSON(body)
	}

	var answer struct {
		SQL     string            `json:"sql"`
		Results []json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(body, &answer); err != nil {
		return failf("decode answer: %w", err)
	}
	_, _ = fmt.Fprintf(r.stdout, "SQL: %s\n\n", answer.SQL)
	return renderRows(r.stdout, answer.Results)
}

func (r *runner) schema(ctx context.Context) error {
	body, err := r.do(ctx, http.MethodGet, "/schema", nil)
	if err != nil {
		return err
	}
	if r.output == outputJSON {
		return r.printJSON(body)
	}

	tables, values, err := orderedObject(body)
	if err != nil {
		return failf("decode schema: %w", err)
	}
	table := newTable(r.stdout, []string{"Table", "Columns"})
	for _, name := range tables {
		var columns []string
		if err := json.Unmarshal(values[name], &columns); err != nil {
			return failf("decode columns of %s: %w", name, err)
		}
		table.Append([]string{name, strings.Join(columns, "\n")})
	}
	table.Render()
	return nil
}

func (r *runner) status(ctx context.Context, path string) error {
	body, err := r.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return r.printJSON(body)
}

// do performs the request and turns HTTP errors and error envelopes into
// failures.
func (r *runner) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(r.baseURL, "/")+path, reader)
	if err != nil {
		return nil, failf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, failf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, failf("read response: %w", err)
	}

	var envelope struct {
		Error     *string `json:"error"`
		ErrorKind string  `json:"error_kind"`
	}
	_ = json.Unmarshal(body, &envelope)
	if envelope.Error != nil {
		if envelope.ErrorKind != "" {
			return nil, failf("%s error: %s", envelope.ErrorKind, *envelope.Error)
		}
		return nil, failf("%s", *envelope.Error)
	}
	if resp.StatusCode >= 400 {
		return nil, failf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

func (r *runner) printJSON(raw []byte) error {
	if pretty, ok := prettyJSON(raw); ok {
		_, _ = fmt.Fprintln(r.stdout, pretty)
		return nil
	}
	if len(raw) > 0 {
		_, _ = fmt.Fprintln(r.stdout, string(raw))
	}
	return nil
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var out bytes.Buffer
	if err := json.Indent(&out, bytes.TrimSpace(raw), "", "  "); err != nil {
		return "", false
	}
	return out.String(), true
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
