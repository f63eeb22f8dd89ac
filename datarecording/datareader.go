package datarecording

import (
	"context"
	"database/sql"
	"reflect"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// QueryParams selects and pages the rows of a table.
type QueryParams struct {
	// Where is a condition without the WHERE keyword, e.g. "Kind = ?".
	Where string
	Args  []any

	// Limit of 0 returns all rows. Offset is ignored without a limit.
	Limit  int
	Offset int

	// OrderBy is a sort expression without the ORDER BY keywords.
	OrderBy string
}

// DataReader reads back the tables written by a DataRecorder.
type DataReader interface {
	// MapTable declares the struct that rows of a table are read into. A table
	// must be mapped before it can be queried.
	MapTable(tableName string, sampleEntry any)

	// ListTables returns the mapped tables in mapping order.
	ListTables() []string

	// Query returns pointers to the selected rows, together with the number
	// of rows that match the condition regardless of paging.
	Query(ctx context.Context, tableName string, params QueryParams) (
		results []any,
		totalCount int,
		err error,
	)

	Close() error
}

type sqliteReader struct {
	db *sql.DB

	typeMap    map[string]reflect.Type
	tableNames []string
}

// NewReader opens a SQLite database file for reading.
func NewReader(dbFilename string) DataReader {
	db, err := sql.Open("sqlite3", dbFilename)
	if err != nil {
		panic(err)
	}

	return &sqliteReader{
		db:      db,
		typeMap: make(map[string]reflect.Type),
	}
}

func (r *sqliteReader) MapTable(tableName string, sampleEntry any) {
	if _, mapped := r.typeMap[tableName]; !mapped {
		r.tableNames = append(r.tableNames, tableName)
	}

	r.typeMap[tableName] = reflect.TypeOf(sampleEntry)
}

func (r *sqliteReader) ListTables() []string {
	return append([]string(nil), r.tableNames...)
}

func (r *sqliteReader) Query(
	ctx context.Context,
	tableName string,
	params QueryParams,
) ([]any, int, error) {
	rowType, mapped := r.typeMap[tableName]
	if !mapped {
		return nil, 0, errors.Errorf("table %s is not mapped", tableName)
	}

	var total int

	err := r.db.QueryRowContext(ctx,
		selectStatement("COUNT(*)", tableName, QueryParams{Where: params.Where}),
		params.Args...,
	).Scan(&total)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "counting rows of %s", tableName)
	}

	rows, err := r.db.QueryContext(ctx,
		selectStatement("*", tableName, params), params.Args...)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "querying %s", tableName)
	}
	defer rows.Close()

	results, err := scanRows(rows, rowType)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "reading rows of %s", tableName)
	}

	return results, total, nil
}

func (r *sqliteReader) Close() error {
	return r.db.Close()
}

func selectStatement(what, tableName string, params QueryParams) string {
	var sb strings.Builder

	sb.WriteString("SELECT " + what + " FROM " + tableName)

	if params.Where != "" {
		sb.WriteString(" WHERE " + params.Where)
	}

	if params.OrderBy != "" {
		sb.WriteString(" ORDER BY " + params.OrderBy)
	}

	if params.Limit > 0 {
		sb.WriteString(" LIMIT " + strconv.Itoa(params.Limit))

		if params.Offset > 0 {
			sb.WriteString(" OFFSET " + strconv.Itoa(params.Offset))
		}
	}

	return sb.String()
}

// scanRows reads each row into a new value of rowType, matching columns to
// fields by name. Columns without a field are dropped.
func scanRows(rows *sql.Rows, rowType reflect.Type) ([]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []any

	for rows.Next() {
		row := reflect.New(rowType)
		targets := make([]any, len(columns))

		for i, column := range columns {
			field := row.Elem().FieldByName(column)
			if field.IsValid() {
				targets[i] = field.Addr().Interface()
				continue
			}

			var discard any
			targets[i] = &discard
		}

		if err := rows.Scan(targets...); err != nil {
			return nil, err
		}

		results = append(results, row.Interface())
	}

	return results, rows.Err()
}
