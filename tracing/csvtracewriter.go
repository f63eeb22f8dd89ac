package tracing

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// CSVTraceWriter is a task tracer that can store the tasks into a CSV file.
type CSVTraceWriter struct {
	lock sync.Mutex

	path   string
	file   *os.File
	writer *csv.Writer

	tasks      []Task
	bufferSize int
}

// NewCSVTraceWriter creates a new CSVTraceWriter. The file is path with the
// .csv extension.
func NewCSVTraceWriter(path string) *CSVTraceWriter {
	return &CSVTraceWriter{
		path:       path,
		bufferSize: 1000,
	}
}

// Path returns the name of the CSV file without the extension.
func (t *CSVTraceWriter) Path() string {
	return t.path
}

// Init creates the tracing csv file. It panics if the file already exists.
// Buffered tasks are flushed when the program exits through atexit.
func (t *CSVTraceWriter) Init() {
	if t.path == "" {
		t.path = "pagesim_trace_" + xid.New().String()
	}

	filename := t.path + ".csv"
	_, err := os.Stat(filename)
	if err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	file, err := os.Create(filename)
	if err != nil {
		panic(err)
	}
	t.file = file
	t.writer = csv.NewWriter(file)

	t.mustWrite([]string{
		"ID", "Kind", "Where", "LogicalAddr", "PageNumber", "Frame",
		"PhysicalAddr", "Block", "Resident", "Collides",
	})

	atexit.Register(func() { t.Close() })
}

// RecordTask buffers a task and writes the buffer once it is full.
func (t *CSVTraceWriter) RecordTask(task Task) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.tasks = append(t.tasks, task)
	if len(t.tasks) >= t.bufferSize {
		t.flush()
	}
}

// Flush writes the buffered tasks to the CSV file.
func (t *CSVTraceWriter) Flush() {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.flush()
}

// Close flushes and closes the file. Closing twice does nothing.
func (t *CSVTraceWriter) Close() {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.file == nil {
		return
	}

	t.flush()

	err := t.file.Close()
	if err != nil {
		panic(err)
	}

	t.file = nil
}

func (t *CSVTraceWriter) flush() {
	if t.writer == nil {
		return
	}

	for _, task := range t.tasks {
		t.mustWrite([]string{
			task.ID,
			task.Kind,
			task.Where,
			task.LogicalAddr,
			task.PageNumber,
			task.Frame,
			task.PhysicalAddr,
			task.Block,
			strconv.FormatBool(task.Resident),
			strconv.FormatBool(task.Collides),
		})
	}

	t.tasks = nil

	t.writer.Flush()
	if err := t.writer.Error(); err != nil {
		panic(err)
	}
}

func (t *CSVTraceWriter) mustWrite(record []string) {
	if err := t.writer.Write(record); err != nil {
		panic(err)
	}
}
