package executor

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/marcboeker/go-duckdb/v2"

	"github.com/text2sql/text2sql/internal/database"
)

// Executor runs a statement exactly as given and collects every row.
type Executor interface {
	Execute(ctx context.Context, statement string) (Result, error)
}

type Result struct {
	Columns []string
	Rows    []Row
}

// Row pairs column names with values in result order. When a name repeats,
// the later value wins, as it would in a plain mapping.
type Row struct {
	columns []string
	values  map[string]any
}

func NewRow(columns []string, values []any) Row {
	return newTypedRow(columns, nil, values)
}

// newTypedRow is NewRow with the database type name of each column, used to
// render driver-specific values as JSON-friendly ones.
func newTypedRow(columns, types []string, values []any) Row {
	row := Row{values: make(map[string]any, len(columns))}
	for i, name := range columns {
		var value any
		if i < len(values) {
			typeName := ""
			if i < len(types) {
				typeName = types[i]
			}
			value = normalize(values[i], typeName)
		}
		if _, seen := row.values[name]; !seen {
			row.columns = append(row.columns, name)
		}
		row.values[name] = value
	}
	return row
}

func (r Row) Columns() []string {
	return append([]string(nil), r.columns...)
}

func (r Row) Get(name string) (any, bool) {
	value, ok := r.values[name]
	return value, ok
}

func (r Row) Len() int {
	return len(r.columns)
}

func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := json.Marshal(r.values[name])
		if err != nil {
			return nil, fmt.Errorf("encode column %q: %w", name, err)
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON always emits an array, even for statements with no rows.
func (r Result) MarshalJSON() ([]byte, error) {
	rows := r.Rows
	if rows == nil {
		rows = []Row{}
	}
	return json.Marshal(rows)
}

type DirectExecutor struct {
	connector database.Connector
}

func NewDirectExecutor(connector database.Connector) *DirectExecutor {
	return &DirectExecutor{connector: connector}
}

// Execute sends the statement verbatim. Connection failures wrap
// database.ErrUnavailable; anything the database rejects does not.
func (e *DirectExecutor) Execute(ctx context.Context, statement string) (Result, error) {
	var out Result
	err := database.WithConn(ctx, e.connector, func(conn database.Conn) error {
		rows, err := conn.QueryContext(ctx, statement)
		if err != nil {
			return fmt.Errorf("execute statement: %w", err)
		}
		defer func() { _ = rows.Close() }()

		columns, err := rows.Columns()
		if err != nil {
			return fmt.Errorf("read result columns: %w", err)
		}
		out.Columns = columns
		types := columnTypeNames(rows)

		for rows.Next() {
			values := make([]any, len(columns))
			pointers := make([]any, len(columns))
			for i := range values {
				pointers[i] = &values[i]
			}
			if err := rows.Scan(pointers...); err != nil {
				return fmt.Errorf("scan result row: %w", err)
			}
			out.Rows = append(out.Rows, newTypedRow(columns, types, values))
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate result rows: %w", err)
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return out, nil
}

func columnTypeNames(rows *sql.Rows) []string {
	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil
	}
	names := make([]string, len(columnTypes))
	for i, ct := range columnTypes {
		names[i] = strings.ToUpper(ct.DatabaseTypeName())
	}
	return names
}

// normalize turns driver values into ones that encode as plain JSON.
// Decimals keep their exact digits. Bytes that are not UTF-8 stay []byte.
func normalize(value any, typeName string) any {
	switch typed := value.(type) {
	case duckdb.Decimal:
		return decimalNumber(typed)
	case [16]byte:
		return uuid.UUID(typed).String()
	case []byte:
		if typeName == "UUID" && len(typed) == 16 {
			return uuid.UUID(typed).String()
		}
		if utf8.Valid(typed) {
			return string(typed)
		}
		return typed
	case string:
		if isDecimalType(typeName) {
			if number, ok := jsonNumber(typed); ok {
				return number
			}
		}
		return typed
	default:
		return typed
	}
}

func isDecimalType(typeName string) bool {
	return typeName == "NUMERIC" || strings.HasPrefix(typeName, "DECIMAL")
}

func decimalNumber(d duckdb.Decimal) any {
	if d.Value == nil {
		return nil
	}
	text := scaledText(d.Value, int(d.Scale))
	if number, ok := jsonNumber(text); ok {
		return number
	}
	return text
}

// scaledText renders value / 10^scale without losing digits.
func scaledText(value *big.Int, scale int) string {
	digits := new(big.Int).Abs(value).String()
	sign := ""
	if value.Sign() < 0 {
		sign = "-"
	}
	if scale <= 0 {
		return sign + digits
	}
	if len(digits) <= scale {
		digits = strings.Repeat("0", scale-len(digits)+1) + digits
	}
	split := len(digits) - scale
	return sign + digits[:split] + "." + digits[split:]
}

var jsonNumberPattern = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)

// jsonNumber keeps the exact digits when text is a valid JSON number.
// NaN and Infinity stay strings.
func jsonNumber(text string) (json.Number, bool) {
	if !jsonNumberPattern.MatchString(text) {
		return "", false
	}
	return json.Number(text), true
}
