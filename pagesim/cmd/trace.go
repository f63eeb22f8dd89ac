package cmd

import (
	"log/slog"

	"github.com/pkg/errors"
	"github.com/sarchlab/pagesim/datarecording"
	"github.com/sarchlab/pagesim/mem/vm/mmu"
	"github.com/sarchlab/pagesim/sim/id"
	"github.com/sarchlab/pagesim/tracing"
	"github.com/spf13/cobra"
)

// Values of --trace-id.
const (
	traceIDSequential = "seq"
	traceIDXID        = "xid"
)

type traceOptions struct {
	csvPath string
	dbPath  string
	log     bool
	idKind  string
}

func (o *traceOptions) registerFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.csvPath, "trace-csv", "",
		"write paging events to this CSV file, without the extension")
	cmd.Flags().StringVar(&o.dbPath, "trace-db", "",
		"record paging events into this SQLite file, without the extension")
	cmd.Flags().BoolVar(&o.log, "trace-log", false,
		"log paging events")
	cmd.Flags().StringVar(&o.idKind, "trace-id", traceIDSequential,
		"task IDs of the trace: seq for 1, 2, 3..., xid for globally unique IDs")
}

func (o *traceOptions) idGenerator() (id.IDGenerator, error) {
	switch o.idKind {
	case traceIDSequential, "":
		return id.NewIDGenerator(), nil
	case traceIDXID:
		return id.NewXIDGenerator(), nil
	default:
		return nil, errors.Errorf("unknown trace ID kind %q", o.idKind)
	}
}

// A traceSet holds the tracers attached to the paging units.
type traceSet struct {
	csv      *tracing.CSVTraceWriter
	db       *tracing.DBTracer
	recorder datarecording.DataRecorder
	dbFile   string

	// reader is set when the recorded trace is served.
	reader *tracing.TraceReader
}

// attach connects the requested tracers to the units. Task IDs are unique
// across the units.
func (o *traceOptions) attach(
	units []*mmu.Comp,
	logger *slog.Logger,
) (*traceSet, error) {
	t := &traceSet{}

	ids, err := o.idGenerator()
	if err != nil {
		return t, err
	}

	if o.csvPath != "" {
		t.csv = tracing.NewCSVTraceWriter(o.csvPath)
		t.csv.Init()
	}

	if o.dbPath != "" {
		t.recorder = datarecording.New(o.dbPath)
		t.dbFile = o.dbPath + ".sqlite3"
		t.db = tracing.NewDBTracer(t.recorder)
	}

	var logTracer *tracing.LogTracer
	if o.log {
		logTracer = tracing.NewLogTracer(logger)
	}

	for _, unit := range units {
		if t.csv != nil {
			tracing.CollectTrace(unit, t.csv, ids)
		}

		if t.db != nil {
			tracing.CollectTrace(unit, t.db, ids)
		}

		if logTracer != nil {
			tracing.CollectTrace(unit, logTracer, ids)
		}
	}

	return t, nil
}

// Flush writes out what the tracers buffered.
func (t *traceSet) Flush() {
	if t.csv != nil {
		t.csv.Flush()
	}

	if t.db != nil {
		t.db.Flush()
	}
}

// Close flushes the tracers and closes their files.
func (t *traceSet) Close() {
	t.Flush()

	if t.csv != nil {
		t.csv.Close()
	}

	if t.reader != nil {
		err := t.reader.Close()
		if err != nil {
			slog.Error("cannot close trace reader", "err", err)
		}
	}

	if t.recorder != nil {
		err := t.recorder.Close()
		if err != nil {
			slog.Error("cannot close trace database", "err", err)
		}
	}
}
