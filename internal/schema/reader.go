package schema

import (
	"context"
	"fmt"

	"github.com/text2sql/text2sql/internal/database"
)

const columnsQuery = `SELECT table_name, column_name, data_type
FROM information_schema.columns
WHERE table_schema = $1
ORDER BY table_name, ordinal_position`

type Reader struct {
	connector database.Connector
	schema    string
}

func NewReader(connector database.Connector, schemaName string) *Reader {
	if schemaName == "" {
		schemaName = "public"
	}
	return &Reader{connector: connector, schema: schemaName}
}

// Read fetches the column catalog on a dedicated connection released
// before returning. Tables without columns do not appear.
func (r *Reader) Read(ctx context.Context) (Descriptor, error) {
	var out Descriptor
	err := database.WithConn(ctx, r.connector, func(conn database.Conn) error {
		rows, err := conn.QueryContext(ctx, columnsQuery, r.schema)
		if err != nil {
			return fmt.Errorf("query information_schema.columns: %w", err)
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			var table string
			var column Column
			if err := rows.Scan(&table, &column.Name, &column.Type); err != nil {
				return fmt.Errorf("scan column row: %w", err)
			}
			out.add(table, column)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate column rows: %w", err)
		}
		return nil
	})
	if err != nil {
		return Descriptor{}, err
	}
	return out, nil
}
