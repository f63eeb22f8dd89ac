// Package tracing records the events of a paging unit as tasks.
package tracing

// A Tracer can collect task traces.
type Tracer interface {
	RecordTask(task Task)
}
