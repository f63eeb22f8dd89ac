package tracing

import (
	"bytes"
	"context"
	"encoding/csv"
	"log/slog"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/pagesim/datarecording"
	"github.com/sarchlab/pagesim/mem/vm"
	"github.com/sarchlab/pagesim/mem/vm/mmu"
	"github.com/sarchlab/pagesim/sim/hooking"
	"github.com/sarchlab/pagesim/sim/id"
	"go.uber.org/mock/gomock"
)

type taskCollector struct {
	tasks []Task
}

func (c *taskCollector) RecordTask(task Task) {
	c.tasks = append(c.tasks, task)
}

func newUnit() *mmu.Comp {
	return mmu.MakeBuilder().
		WithAddrLength(4).
		WithBlockSize(4).
		WithRandSource(vm.NewSeededRandSource(3)).
		Build("MMU")
}

var _ = Describe("NewTaskFromHook", func() {
	var format vm.AddressFormat

	BeforeEach(func() {
		format = vm.MustNewAddressFormat(4)
	})

	It("should convert translations", func() {
		ctx := hooking.HookCtx{
			Pos: mmu.HookPosTranslate,
			Item: mmu.Translation{
				Format:       format,
				LogicalAddr:  0x12fc,
				PageNumber:   0x12,
				Frame:        0x07,
				PhysicalAddr: 0x07fc,
				Data:         []byte("abcd"),
				Resident:     true,
			},
		}

		task, ok := NewTaskFromHook(ctx, id.NewIDGenerator())

		Expect(ok).To(BeTrue())
		Expect(task).To(Equal(Task{
			ID:           "1",
			Kind:         KindTranslate,
			LogicalAddr:  "0x12fc",
			PageNumber:   "12",
			Frame:        "07",
			PhysicalAddr: "0x07fc",
			Block:        "abcd",
			Resident:     true,
		}))
	})

	It("should carry frame collisions", func() {
		ctx := hooking.HookCtx{
			Pos:    mmu.HookPosFrameAssign,
			Item:   mmu.Translation{Format: format},
			Detail: mmu.FrameAssignment{Collides: true},
		}

		task, ok := NewTaskFromHook(ctx, id.NewIDGenerator())

		Expect(ok).To(BeTrue())
		Expect(task.Kind).To(Equal(KindFrameAssign))
		Expect(task.Collides).To(BeTrue())
	})

	It("should ignore other hook positions", func() {
		ctx := hooking.HookCtx{Pos: &hooking.HookPos{Name: "Other"}}

		_, ok := NewTaskFromHook(ctx, id.NewIDGenerator())

		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("CollectTrace", func() {
	It("should record the events of a paging unit", func() {
		unit := newUnit()
		collector := &taskCollector{}
		CollectTrace(unit, collector, nil)

		Expect(unit.LoadData([]byte("abcdefgh"))).To(Succeed())
		_, err := unit.Translate(unit.Format().FormatAddr(unit.LogicalAddresses()[1]))
		Expect(err).ToNot(HaveOccurred())

		kinds := make([]string, 0, len(collector.tasks))
		for _, task := range collector.tasks {
			kinds = append(kinds, task.Kind)
			Expect(task.Where).To(Equal("MMU"))
		}
		Expect(kinds).To(ContainElements(KindLoad, KindTranslate))
		Expect(collector.tasks[len(collector.tasks)-1].Block).To(Equal("efgh"))
	})

	It("should refuse the same tracer twice", func() {
		unit := newUnit()
		collector := &taskCollector{}
		CollectTrace(unit, collector, nil)

		Expect(func() { CollectTrace(unit, collector, nil) }).To(Panic())
	})

	It("should filter tasks", func() {
		unit := newUnit()
		collector := &taskCollector{}
		CollectFilteredTrace(unit, collector, nil, func(t Task) bool {
			return t.Kind == KindLoad
		})

		Expect(unit.LoadData([]byte("abcdefgh"))).To(Succeed())

		Expect(collector.tasks).To(HaveLen(2))
	})
})

var _ = Describe("CSVTraceWriter", func() {
	It("should write a header and the tasks", func() {
		path := filepath.Join(GinkgoT().TempDir(), "trace")
		writer := NewCSVTraceWriter(path)
		writer.Init()

		writer.RecordTask(Task{ID: "1", Kind: KindLoad, Block: "a, b"})
		writer.Close()

		file, err := os.Open(path + ".csv")
		Expect(err).ToNot(HaveOccurred())
		defer file.Close()

		records, err := csv.NewReader(file).ReadAll()
		Expect(err).ToNot(HaveOccurred())
		Expect(records).To(HaveLen(2))
		Expect(records[0][0]).To(Equal("ID"))
		Expect(records[1][1]).To(Equal(KindLoad))
		Expect(records[1][7]).To(Equal("a, b"))
	})

	It("should refuse to overwrite a file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "trace")
		Expect(os.WriteFile(path+".csv", nil, 0o644)).To(Succeed())

		Expect(func() { NewCSVTraceWriter(path).Init() }).To(Panic())
	})
})

var _ = Describe("DBTracer", func() {
	var (
		mockCtrl *gomock.Controller
		backend  *MockDataRecorder
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		backend = NewMockDataRecorder(mockCtrl)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should insert tasks into the trace table", func() {
		task := Task{ID: "1", Kind: KindLoad}

		backend.EXPECT().CreateTable(TraceTableName, Task{})
		backend.EXPECT().InsertData(TraceTableName, task)
		backend.EXPECT().Flush()

		tracer := NewDBTracer(backend)
		tracer.RecordTask(task)
		tracer.Flush()
	})
})

var _ = Describe("TraceReader", func() {
	var reader *TraceReader

	BeforeEach(func() {
		writer := datarecording.NewSQLiteWriter(
			filepath.Join(GinkgoT().TempDir(), "trace"))
		writer.Init()

		unit := newUnit()
		CollectTrace(unit, NewDBTracer(writer), nil)
		Expect(unit.LoadData([]byte("abcdefgh"))).To(Succeed())
		Expect(writer.Close()).To(Succeed())

		reader = OpenTraceReader(writer.Path())
		DeferCleanup(reader.Close)
	})

	It("should read the tasks in recording order", func() {
		tasks, total, err := reader.Tasks(context.Background(), TraceQuery{})

		Expect(err).ToNot(HaveOccurred())
		Expect(total).To(Equal(len(tasks)))
		Expect(tasks[0].ID).To(Equal("1"))
		Expect(tasks[0].Kind).To(Equal(KindFrameAssign))
		Expect(tasks[1].Kind).To(Equal(KindLoad))
		Expect(tasks[1].Block).To(Equal("abcd"))
	})

	It("should select a kind and page through it", func() {
		tasks, total, err := reader.Tasks(context.Background(),
			TraceQuery{Kind: KindLoad, Limit: 1, Offset: 1})

		Expect(err).ToNot(HaveOccurred())
		Expect(total).To(Equal(2))
		Expect(tasks).To(HaveLen(1))
		Expect(tasks[0].Block).To(Equal("efgh"))
	})

	It("should return no tasks for an unknown kind", func() {
		tasks, total, err := reader.Tasks(context.Background(),
			TraceQuery{Kind: "evict"})

		Expect(err).ToNot(HaveOccurred())
		Expect(total).To(BeZero())
		Expect(tasks).To(BeEmpty())
	})
})

var _ = Describe("LogTracer", func() {
	It("should log translations at info level", func() {
		buf := new(bytes.Buffer)
		logger := slog.New(slog.NewTextHandler(buf, nil))

		NewLogTracer(logger).RecordTask(Task{
			Kind:        KindTranslate,
			LogicalAddr: "0x12fc",
		})
		NewLogTracer(logger).RecordTask(Task{Kind: KindLoad})

		Expect(buf.String()).To(ContainSubstring("level=INFO"))
		Expect(buf.String()).To(ContainSubstring("logical_addr=0x12fc"))
		Expect(buf.String()).ToNot(ContainSubstring("msg=load"))
	})

	It("should warn about collisions", func() {
		buf := new(bytes.Buffer)
		logger := slog.New(slog.NewTextHandler(buf, nil))

		NewLogTracer(logger).RecordTask(Task{
			Kind:     KindFrameAssign,
			Collides: true,
		})

		Expect(buf.String()).To(ContainSubstring("level=WARN"))
	})
})

var _ = Describe("KindCountTracer", func() {
	It("should count tasks by kind", func() {
		tracer := NewKindCountTracer()

		tracer.RecordTask(Task{Kind: KindFrameAssign})
		tracer.RecordTask(Task{Kind: KindLoad})
		tracer.RecordTask(Task{Kind: KindLoad})
		tracer.RecordTask(Task{Kind: KindFrameAssign, Collides: true})

		Expect(tracer.Kinds()).To(Equal([]string{KindFrameAssign, KindLoad}))
		Expect(tracer.Count(KindLoad)).To(Equal(uint64(2)))
		Expect(tracer.Count(KindTranslate)).To(Equal(uint64(0)))
		Expect(tracer.Collisions()).To(Equal(uint64(1)))
	})

	It("should follow a paging unit", func() {
		unit := newUnit()
		tracer := NewKindCountTracer()
		CollectTrace(unit, tracer, nil)

		Expect(unit.LoadData([]byte("abcdefghij"))).To(Succeed())
		_, err := unit.Translate("0xzz")
		Expect(err).To(HaveOccurred())

		Expect(tracer.Count(KindLoad)).To(Equal(uint64(3)))
		Expect(tracer.Count(KindFrameAssign)).
			To(Equal(uint64(unit.PageTable().Len())))
		Expect(tracer.Count(KindTranslate)).To(Equal(uint64(0)))
	})
})
