package schema

import (
	"bytes"
	"encoding/json"
	"strings"
)

type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// String renders the column as "name (type)".
func (c Column) String() string {
	return c.Name + " (" + c.Type + ")"
}

type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// Descriptor lists tables in first-seen order, each with columns in
// ordinal order.
type Descriptor struct {
	Tables []Table
}

func (d *Descriptor) add(table string, column Column) {
	if n := len(d.Tables); n > 0 && d.Tables[n-1].Name == table {
		d.Tables[n-1].Columns = append(d.Tables[n-1].Columns, column)
		return
	}
	for i := range d.Tables {
		if d.Tables[i].Name == table {
			d.Tables[i].Columns = append(d.Tables[i].Columns, column)
			return
		}
	}
	d.Tables = append(d.Tables, Table{Name: table, Columns: []Column{column}})
}

func (d Descriptor) Empty() bool {
	return len(d.Tables) == 0
}

func (d Descriptor) ColumnCount() int {
	total := 0
	for _, table := range d.Tables {
		total += len(table.Columns)
	}
	return total
}

// Format renders one line per table: "orders: id (integer), total (numeric)".
func (d Descriptor) Format() string {
	lines := make([]string, 0, len(d.Tables))
	for _, table := range d.Tables {
		cols := make([]string, 0, len(table.Columns))
		for _, column := range table.Columns {
			cols = append(cols, column.String())
		}
		lines = append(lines, table.Name+": "+strings.Join(cols, ", "))
	}
	return strings.Join(lines, "\n")
}

// MarshalJSON emits {"table": ["col (type)", ...]} with tables in order.
func (d Descriptor) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, table := range d.Tables {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(table.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		cols := make([]string, 0, len(table.Columns))
		for _, column := range table.Columns {
			cols = append(cols, column.String())
		}
		value, err := json.Marshal(cols)
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
