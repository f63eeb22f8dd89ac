package tracing

import (
	"github.com/sarchlab/pagesim/datarecording"
)

// TraceTableName is the table that DBTracer writes to.
const TraceTableName = "paging_trace"

// DBTracer is a tracer that can store tasks into a database through a
// DataRecorder.
type DBTracer struct {
	backend datarecording.DataRecorder
}

// NewDBTracer creates a DBTracer and the trace table in the backend.
func NewDBTracer(backend datarecording.DataRecorder) *DBTracer {
	backend.CreateTable(TraceTableName, Task{})

	return &DBTracer{backend: backend}
}

// RecordTask inserts the task into the trace table.
func (t *DBTracer) RecordTask(task Task) {
	t.backend.InsertData(TraceTableName, task)
}

// Flush writes the buffered tasks to the database.
func (t *DBTracer) Flush() {
	t.backend.Flush()
}
