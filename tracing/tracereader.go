package tracing

import (
	"context"

	"github.com/sarchlab/pagesim/datarecording"
)

// TraceQuery selects recorded tasks. An empty Kind selects every kind and a
// zero Limit returns all the matching tasks.
type TraceQuery struct {
	Kind   string
	Limit  int
	Offset int
}

// TraceReader reads back the tasks that a DBTracer recorded, in the order in
// which their IDs were generated.
type TraceReader struct {
	reader datarecording.DataReader
}

// NewTraceReader maps the trace table of the reader.
func NewTraceReader(reader datarecording.DataReader) *TraceReader {
	reader.MapTable(TraceTableName, Task{})

	return &TraceReader{reader: reader}
}

// OpenTraceReader opens a trace database file written by a DBTracer.
func OpenTraceReader(dbFilename string) *TraceReader {
	return NewTraceReader(datarecording.NewReader(dbFilename))
}

// Tasks returns one page of tasks and the number of tasks that match the kind.
func (r *TraceReader) Tasks(
	ctx context.Context,
	q TraceQuery,
) ([]Task, int, error) {
	params := datarecording.QueryParams{
		Limit:  q.Limit,
		Offset: q.Offset,
		// Sequential IDs are stored as text.
		OrderBy: "CAST(ID AS INTEGER), ID",
	}

	if q.Kind != "" {
		params.Where = "Kind = ?"
		params.Args = []any{q.Kind}
	}

	rows, total, err := r.reader.Query(ctx, TraceTableName, params)
	if err != nil {
		return nil, 0, err
	}

	tasks := make([]Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, *row.(*Task))
	}

	return tasks, total, nil
}

// Close closes the underlying reader.
func (r *TraceReader) Close() error {
	return r.reader.Close()
}
