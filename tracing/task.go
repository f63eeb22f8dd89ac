package tracing

import (
	"github.com/sarchlab/pagesim/mem/vm/mmu"
	"github.com/sarchlab/pagesim/sim/hooking"
	"github.com/sarchlab/pagesim/sim/id"
)

// Task kinds.
const (
	KindLoad        = "load"
	KindTranslate   = "translate"
	KindFrameAssign = "frame_assign"
)

// A Task is one paging event. All fields are flat so that a task can be stored
// as a table row.
type Task struct {
	ID           string `json:"id"`
	Kind         string `json:"kind"`
	Where        string `json:"where"`
	LogicalAddr  string `json:"logical_addr"`
	PageNumber   string `json:"page_number"`
	Frame        string `json:"frame"`
	PhysicalAddr string `json:"physical_addr"`
	Block        string `json:"block"`
	Resident     bool   `json:"resident"`
	Collides     bool   `json:"collides"`
}

// TaskFilter is a function that can filter interesting tasks. If this function
// returns true, the task is considered useful.
type TaskFilter func(t Task) bool

// NamedHookable represent something both have a name and can be hooked.
type NamedHookable interface {
	hooking.Hookable
	Name() string
}

// NewTaskFromHook converts a paging unit hook context into a Task. The bool
// return value is false for hook positions that are not paging events.
func NewTaskFromHook(ctx hooking.HookCtx, ids id.IDGenerator) (Task, bool) {
	var kind string

	switch ctx.Pos {
	case mmu.HookPosLoad:
		kind = KindLoad
	case mmu.HookPosTranslate:
		kind = KindTranslate
	case mmu.HookPosFrameAssign:
		kind = KindFrameAssign
	default:
		return Task{}, false
	}

	t, ok := ctx.Item.(mmu.Translation)
	if !ok {
		return Task{}, false
	}

	task := Task{
		ID:           ids.Generate(),
		Kind:         kind,
		LogicalAddr:  t.Logical(),
		PageNumber:   t.Page(),
		Frame:        t.Format.FormatPage(t.Frame),
		PhysicalAddr: t.Physical(),
		Block:        string(t.Data),
		Resident:     t.Resident,
	}

	if named, ok := ctx.Domain.(NamedHookable); ok {
		task.Where = named.Name()
	}

	if assignment, ok := ctx.Detail.(mmu.FrameAssignment); ok {
		task.Collides = assignment.Collides
	}

	return task, true
}
