package nl2sql

import "strings"

const (
	DialectPostgreSQL = "PostgreSQL"
	DialectDuckDB     = "DuckDB"
)

// BuildPrompt embeds the rendered schema and the question verbatim.
func BuildPrompt(dialect, schemaText, question string) string {
	if strings.TrimSpace(dialect) == "" {
		dialect = DialectPostgreSQL
	}
	var b strings.Builder
	b.WriteString("Given the following ")
	b.WriteString(dialect)
	b.WriteString(" schema:\n")
	b.WriteString(schemaText)
	b.WriteString("\n\nConvert this question into an SQL query:\n")
	b.WriteString(question)
	return b.String()
}
