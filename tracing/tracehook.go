package tracing

import (
	"fmt"
	"reflect"

	"github.com/sarchlab/pagesim/sim/hooking"
	"github.com/sarchlab/pagesim/sim/id"
)

// CollectTrace let the tracer to collect trace from a domain. Tasks are
// numbered by ids, or by a fresh sequential generator when ids is nil.
func CollectTrace(domain NamedHookable, tracer Tracer, ids id.IDGenerator) {
	CollectFilteredTrace(domain, tracer, ids, nil)
}

// CollectFilteredTrace is CollectTrace that only keeps tasks accepted by
// filter.
func CollectFilteredTrace(
	domain NamedHookable,
	tracer Tracer,
	ids id.IDGenerator,
	filter TaskFilter,
) {
	hooks := domain.Hooks()
	for _, hook := range hooks {
		hook, ok := hook.(*traceHook)
		if ok && hook.t == tracer {
			panic(fmt.Sprintf(
				"domain %s already has tracer %s",
				domain.Name(), reflect.TypeOf(tracer)))
		}
	}

	if ids == nil {
		ids = id.NewIDGenerator()
	}

	h := traceHook{t: tracer, ids: ids, filter: filter}
	domain.AcceptHook(&h)
}

// A traceHook is a hook that traces tasks
type traceHook struct {
	t      Tracer
	ids    id.IDGenerator
	filter TaskFilter
}

// Func converts paging events into tasks and hands them to the tracer.
func (h *traceHook) Func(ctx hooking.HookCtx) {
	task, ok := NewTaskFromHook(ctx, h.ids)
	if !ok {
		return
	}

	if h.filter != nil && !h.filter(task) {
		return
	}

	h.t.RecordTask(task)
}
