package tracing

import (
	"sync"
)

// KindCountTracer counts the tasks of each kind. Frame collisions are counted
// separately.
type KindCountTracer struct {
	lock sync.Mutex

	kinds      []string
	kindCount  map[string]uint64
	collisions uint64
}

// NewKindCountTracer creates a new KindCountTracer
func NewKindCountTracer() *KindCountTracer {
	return &KindCountTracer{
		kindCount: make(map[string]uint64),
	}
}

// RecordTask counts the task.
func (t *KindCountTracer) RecordTask(task Task) {
	t.lock.Lock()
	defer t.lock.Unlock()

	_, ok := t.kindCount[task.Kind]
	if !ok {
		t.kinds = append(t.kinds, task.Kind)
	}

	t.kindCount[task.Kind]++

	if task.Collides {
		t.collisions++
	}
}

// Kinds returns the kinds seen, in the order they were first seen.
func (t *KindCountTracer) Kinds() []string {
	t.lock.Lock()
	defer t.lock.Unlock()

	kinds := make([]string, len(t.kinds))
	copy(kinds, t.kinds)

	return kinds
}

// Count returns the number of tasks of a kind.
func (t *KindCountTracer) Count(kind string) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.kindCount[kind]
}

// Collisions returns the number of frames assigned to more than one page.
func (t *KindCountTracer) Collisions() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.collisions
}
