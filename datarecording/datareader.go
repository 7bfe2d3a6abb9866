package datarecording

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/fatih/structs"
)

// AccessFilter selects rows of the access table. Zero values match
// everything, except SetIndex, where a negative value matches every set.
type AccessFilter struct {
	Simulation string
	SetIndex   int
	MissesOnly bool

	// Limit is the maximum number of rows to return. Zero means no limit.
	Limit  int
	Offset int
}

// AllAccesses is the filter that matches every recorded access.
func AllAccesses() AccessFilter {
	return AccessFilter{SetIndex: -1}
}

func (f AccessFilter) where() (string, []any) {
	var (
		terms []string
		args  []any
	)

	if f.Simulation != "" {
		terms = append(terms, "Simulation = ?")
		args = append(args, f.Simulation)
	}

	if f.SetIndex >= 0 {
		terms = append(terms, "SetIndex = ?")
		args = append(args, f.SetIndex)
	}

	if f.MissesOnly {
		terms = append(terms, "Hit = 0")
	}

	if len(terms) == 0 {
		return "", nil
	}

	return " WHERE " + strings.Join(terms, " AND "), args
}

// A RecordingReader reads back the run and access tables of a recording.
type RecordingReader interface {
	// Runs returns every run summary, in the order they were recorded.
	Runs(ctx context.Context) ([]RunEntry, error)

	// Accesses returns the accesses that match the filter, ordered by
	// simulation and sequence number, and the number of matching rows
	// before Limit and Offset are applied.
	Accesses(ctx context.Context, filter AccessFilter) (
		entries []AccessEntry,
		totalCount int,
		err error,
	)

	// Close closes the reader
	Close() error
}

type sqliteReader struct {
	*sql.DB
}

// OpenRecording opens an existing recording for reading.
func OpenRecording(filename string) (RecordingReader, error) {
	if _, err := os.Stat(filename); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", "file:"+filename+"?mode=ro")
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening recording %s: %w", filename, err)
	}

	return &sqliteReader{DB: db}, nil
}

// NewReaderWithDB creates a RecordingReader with a given database
func NewReaderWithDB(db *sql.DB) RecordingReader {
	return &sqliteReader{DB: db}
}

func (r *sqliteReader) Runs(ctx context.Context) ([]RunEntry, error) {
	var runs []RunEntry

	err := r.selectInto(ctx, RunTable, &runs, " ORDER BY rowid")

	return runs, err
}

func (r *sqliteReader) Accesses(
	ctx context.Context,
	filter AccessFilter,
) ([]AccessEntry, int, error) {
	where, args := filter.where()

	var total int

	err := r.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+AccessTable+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	clause := where + " ORDER BY Simulation, Seq"
	if filter.Limit > 0 {
		clause += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, filter.Offset)
	}

	var entries []AccessEntry

	err = r.selectInto(ctx, AccessTable, &entries, clause, args...)

	return entries, total, err
}

// selectInto reads the columns named after the fields of the slice's element
// type and appends one element per row.
func (r *sqliteReader) selectInto(
	ctx context.Context,
	table string,
	slicePtr any,
	clause string,
	args ...any,
) error {
	slice := reflect.ValueOf(slicePtr).Elem()
	elemType := slice.Type().Elem()

	columns := structs.Names(reflect.New(elemType).Elem().Interface())
	query := fmt.Sprintf("SELECT %s FROM %s%s",
		strings.Join(columns, ", "), table, clause)

	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		elem := reflect.New(elemType).Elem()

		targets := make([]any, len(columns))
		for i, name := range columns {
			targets[i] = elem.FieldByName(name).Addr().Interface()
		}

		if err := rows.Scan(targets...); err != nil {
			return err
		}

		slice.Set(reflect.Append(slice, elem))
	}

	return rows.Err()
}

func (r *sqliteReader) Close() error {
	return r.DB.Close()
}
