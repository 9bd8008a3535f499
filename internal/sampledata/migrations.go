package sampledata

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
)

//go:embed sql/*.sql
var embeddedFS embed.FS

const versionTable = "text2sql_sample_migrations"

type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Version is one numbered sample script pair.
type Version struct {
	Number int64
	Name   string
	Up     string
	Down   string
}

// VersionStatus reports whether a version is recorded as applied.
type VersionStatus struct {
	Number  int64
	Name    string
	Applied bool
}

// Runner applies the versioned sample schema. The SQL is portable between
// PostgreSQL and DuckDB.
type Runner struct {
	fsys fs.FS
}

func NewRunner() *Runner {
	return &Runner{fsys: embeddedFS}
}

// Up applies pending versions oldest first. steps <= 0 applies all of them.
func (r *Runner) Up(ctx context.Context, db *sql.DB, steps int) (int, error) {
	return r.apply(ctx, db, DirectionUp, steps)
}

// Down rolls back applied versions newest first. steps <= 0 rolls back one.
func (r *Runner) Down(ctx context.Context, db *sql.DB, steps int) (int, error) {
	if steps <= 0 {
		steps = 1
	}
	return r.apply(ctx, db, DirectionDown, steps)
}

func (r *Runner) Status(ctx context.Context, db *sql.DB) ([]VersionStatus, error) {
	versions, err := readVersions(r.fsys)
	if err != nil {
		return nil, err
	}
	if err := ensureVersionTable(ctx, db); err != nil {
		return nil, err
	}
	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return nil, err
	}

	out := make([]VersionStatus, 0, len(versions))
	for _, v := range versions {
		out = append(out, VersionStatus{Number: v.Number, Name: v.Name, Applied: applied[v.Number]})
	}
	return out, nil
}

func (r *Runner) apply(ctx context.Context, db *sql.DB, direction Direction, steps int) (int, error) {
	versions, err := readVersions(r.fsys)
	if err != nil {
		return 0, err
	}
	if err := ensureVersionTable(ctx, db); err != nil {
		return 0, err
	}
	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return 0, err
	}
	pending, err := plan(versions, applied, direction, steps)
	if err != nil {
		return 0, err
	}

	for i, v := range pending {
		if err := runVersion(ctx, db, v, direction); err != nil {
			return i, err
		}
	}
	return len(pending), nil
}

// plan picks the versions to run, in execution order.
func plan(versions []Version, applied map[int64]bool, direction Direction, steps int) ([]Version, error) {
	byNumber := make(map[int64]Version, len(versions))
	for _, v := range versions {
		byNumber[v.Number] = v
	}

	var selected []Version
	switch direction {
	case DirectionUp:
		for _, v := range versions {
			if !applied[v.Number] {
				selected = append(selected, v)
			}
		}
	case DirectionDown:
		numbers := make([]int64, 0, len(applied))
		for number, ok := range applied {
			if ok {
				numbers = append(numbers, number)
			}
		}
		sort.Slice(numbers, func(i, j int) bool { return numbers[i] > numbers[j] })
		for _, number := range numbers {
			v, ok := byNumber[number]
			if !ok {
				return nil, fmt.Errorf("applied sample version %d has no script", number)
			}
			selected = append(selected, v)
		}
	default:
		return nil, fmt.Errorf("unknown direction %q", direction)
	}

	if steps > 0 && len(selected) > steps {
		selected = selected[:steps]
	}
	return selected, nil
}

func runVersion(ctx context.Context, db *sql.DB, v Version, direction Direction) error {
	script, record := v.Up, `INSERT INTO `+versionTable+` (version) VALUES ($1)`
	if direction == DirectionDown {
		script, record = v.Down, `DELETE FROM `+versionTable+` WHERE version = $1`
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sample version %d: %w", v.Number, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, script); err != nil {
		return fmt.Errorf("%s sample version %d (%s): %w", direction, v.Number, v.Name, err)
	}
	if _, err := tx.ExecContext(ctx, record, v.Number); err != nil {
		return fmt.Errorf("record sample version %d: %w", v.Number, err)
	}
	return tx.Commit()
}

func ensureVersionTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS ` + versionTable + ` (
	version BIGINT PRIMARY KEY,
	applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create %s: %w", versionTable, err)
	}
	return nil
}

func appliedVersions(ctx context.Context, db *sql.DB) (map[int64]bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT version FROM `+versionTable)
	if err != nil {
		return nil, fmt.Errorf("query applied sample versions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	applied := map[int64]bool{}
	for rows.Next() {
		var number int64
		if err := rows.Scan(&number); err != nil {
			return nil, fmt.Errorf("scan sample version: %w", err)
		}
		applied[number] = true
	}
	return applied, rows.Err()
}

// readVersions loads sql/NNNNNN_name.{up,down}.sql pairs sorted by number.
func readVersions(fsys fs.FS) ([]Version, error) {
	files, err := fs.Glob(fsys, "sql/*.sql")
	if err != nil {
		return nil, fmt.Errorf("list sample scripts: %w", err)
	}

	found := map[int64]*Version{}
	for _, file := range files {
		number, name, direction, ok := parseScriptName(path.Base(file))
		if !ok {
			continue
		}
		body, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}

		v := found[number]
		if v == nil {
			v = &Version{Number: number, Name: name}
			found[number] = v
		}
		if direction == DirectionUp {
			v.Up = string(body)
		} else {
			v.Down = string(body)
		}
	}

	versions := make([]Version, 0, len(found))
	for _, v := range found {
		if strings.TrimSpace(v.Up) == "" {
			return nil, fmt.Errorf("sample version %d missing up SQL", v.Number)
		}
		if strings.TrimSpace(v.Down) == "" {
			return nil, fmt.Errorf("sample version %d missing down SQL", v.Number)
		}
		versions = append(versions, *v)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i].Number < versions[j].Number })
	return versions, nil
}

func parseScriptName(base string) (int64, string, Direction, bool) {
	stem, ok := strings.CutSuffix(base, ".sql")
	if !ok {
		return 0, "", "", false
	}
	var direction Direction
	switch {
	case strings.HasSuffix(stem, ".up"):
		direction, stem = DirectionUp, strings.TrimSuffix(stem, ".up")
	case strings.HasSuffix(stem, ".down"):
		direction, stem = DirectionDown, strings.TrimSuffix(stem, ".down")
	default:
		return 0, "", "", false
	}
	digits, name, ok := strings.Cut(stem, "_")
	if !ok || name == "" {
		return 0, "", "", false
	}
	number, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, "", "", false
	}
	return number, name, direction, true
}
