package text2sqlctl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
)

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(true)
	table.SetHeader(header)
	return table
}

// renderRows prints result rows with columns in the order the server sent
// them.
func renderRows(w io.Writer, rows []json.RawMessage) error {
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}
	columns, _, err := orderedObject(rows[0])
	if err != nil {
		return failf("decode row: %w", err)
	}
	table := newTable(w, columns)
	for i, raw := range rows {
		_, values, err := orderedObject(raw)
		if err != nil {
			return failf("decode row %d: %w", i, err)
		}
		cells := make([]string, len(columns))
		for j, column := range columns {
			cells[j] = cellText(values[column])
		}
		table.Append(cells)
	}
	table.Render()
	suffix := "s"
	if len(rows) == 1 {
		suffix = ""
	}
	_, _ = fmt.Fprintf(w, "(%d row%s)\n", len(rows), suffix)
	return nil
}

// orderedObject decodes a JSON object and returns its keys in document
// order alongside the raw values.
func orderedObject(raw []byte) ([]string, map[string]json.RawMessage, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	token, err := decoder.Token()
	if err != nil {
		return nil, nil, err
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return nil, nil, fmt.Errorf("expected a JSON object")
	}

	var keys []string
	values := map[string]json.RawMessage{}
	for decoder.More() {
		token, err := decoder.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := token.(string)
		if !ok {
			return nil, nil, fmt.Errorf("expected an object key")
		}
		var value json.RawMessage
		if err := decoder.Decode(&value); err != nil {
			return nil, nil, err
		}
		if _, seen := values[key]; !seen {
			keys = append(keys, key)
		}
		values[key] = value
	}
	if _, err := decoder.Token(); err != nil {
		return nil, nil, err
	}
	return keys, values, nil
}

func cellText(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	switch {
	case trimmed == "" || trimmed == "null":
		return "NULL"
	case strings.HasPrefix(trimmed, `"`):
		var text string
		if err := json.Unmarshal(raw, &text); err == nil {
			return text
		}
	}
	return trimmed
}
