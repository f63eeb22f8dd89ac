// Package monitoring serves the state of paging units over HTTP.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/pkg/errors"
	"github.com/sarchlab/pagesim/mem/vm"
	"github.com/sarchlab/pagesim/mem/vm/mmu"
	"github.com/sarchlab/pagesim/monitoring/web"
	"github.com/sarchlab/pagesim/sim/hooking"
	"github.com/sarchlab/pagesim/sim/id"
	"github.com/sarchlab/pagesim/tracing"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
)

// Monitor turns paging units into a server that allows inspecting their page
// tables and memories and translating addresses.
type Monitor struct {
	portNumber  int
	openBrowser bool
	ids         id.IDGenerator

	unitsLock sync.Mutex
	units     []*mmu.Comp
	counters  map[string]*tracing.KindCountTracer

	traceReader *tracing.TraceReader

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		ids:      id.NewIDGenerator(),
		counters: make(map[string]*tracing.KindCountTracer),
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithBrowser makes StartServer open the dashboard in the default browser.
func (m *Monitor) WithBrowser(open bool) *Monitor {
	m.openBrowser = open
	return m
}

// WithTraceReader makes the recorded paging trace available under
// /api/trace.
func (m *Monitor) WithTraceReader(r *tracing.TraceReader) *Monitor {
	m.traceReader = r

	return m
}

// RegisterPagingUnit registers a paging unit to be monitored. A progress bar
// follows how many of the unit's page numbers have received a frame, and the
// unit's paging events are counted from now on.
func (m *Monitor) RegisterPagingUnit(u *mmu.Comp) {
	counter := tracing.NewKindCountTracer()
	tracing.CollectTrace(u, counter, nil)

	m.unitsLock.Lock()
	m.units = append(m.units, u)
	m.counters[u.Name()] = counter
	m.unitsLock.Unlock()

	bar := m.CreateProgressBar(u.Name()+" pages", u.Format().Capacity())
	bar.IncrementFinished(uint64(u.PageTable().Len()))

	u.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
		if ctx.Pos == mmu.HookPosFrameAssign {
			bar.IncrementFinished(1)
		}
	}))
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        m.ids.Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Router returns the HTTP routes of the monitor.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()

	fs := web.GetAssets()
	fServer := http.FileServer(fs)
	r.HandleFunc("/api/units", m.listUnits)
	r.HandleFunc("/api/unit/{name}", m.unitDetails)
	r.HandleFunc("/api/unit/{name}/field/{path}", m.unitField)
	r.HandleFunc("/api/unit/{name}/pagetable", m.pageTable)
	r.HandleFunc("/api/unit/{name}/physical", m.physicalMemory)
	r.HandleFunc("/api/unit/{name}/logical", m.logicalAddresses)
	r.HandleFunc("/api/unit/{name}/translate/{addr}", m.translate)
	r.HandleFunc("/api/unit/{name}/cat", m.concatenate)
	r.HandleFunc("/api/unit/{name}/stats", m.unitStats)
	r.HandleFunc("/api/trace", m.listTrace)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/").Handler(fServer)

	return r
}

// StartServer starts the monitor as a web server in the background and
// returns the URL it listens on.
func (m *Monitor) StartServer() string {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	fmt.Fprintf(os.Stderr, "Monitoring paging units with %s\n", url)

	router := m.Router()

	go func() {
		err := http.Serve(listener, router)
		dieOnErr(err)
	}()

	if m.openBrowser {
		err = browser.OpenURL(url)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Cannot open browser: %s\n", err)
		}
	}

	return url
}

func (m *Monitor) listUnits(w http.ResponseWriter, _ *http.Request) {
	m.unitsLock.Lock()
	names := make([]string, 0, len(m.units))
	for _, u := range m.units {
		names = append(names, u.Name())
	}
	m.unitsLock.Unlock()

	writeJSON(w, names)
}

// unitSnapshot is a consistent view of a paging unit that can be serialized
// while the unit keeps loading.
type unitSnapshot struct {
	Name       string
	AddrLength int
	BlockSize  int
	Capacity   uint64
	Logical    []string
	PageTable  []pageRsp
	Physical   []entryRsp
}

func snapshot(u *mmu.Comp) *unitSnapshot {
	return &unitSnapshot{
		Name:       u.Name(),
		AddrLength: u.Format().AddrLength,
		BlockSize:  u.BlockSize(),
		Capacity:   u.Format().Capacity(),
		Logical:    logicalRsp(u),
		PageTable:  pagesRsp(u),
		Physical:   entriesRsp(u),
	}
}

func (m *Monitor) unitDetails(w http.ResponseWriter, r *http.Request) {
	unit := m.findUnitOr404(w, mux.Vars(r)["name"])
	if unit == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(snapshot(unit))
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

// unitField serializes one field of the unit snapshot. Nested fields and
// slice elements are separated by dots, as in PageTable.0.
func (m *Monitor) unitField(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	unit := m.findUnitOr404(w, vars["name"])
	if unit == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(snapshot(unit))
	serializer.SetMaxDepth(1)

	err := serializer.SetEntryPoint(strings.Split(vars["path"], "."))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	err = serializer.Serialize(w)
	dieOnErr(err)
}

type pageRsp struct {
	PageNumber string `json:"page_number"`
	Frame      string `json:"frame"`
}

func pagesRsp(u *mmu.Comp) []pageRsp {
	pages := u.PageTable().Pages()

	rsp := make([]pageRsp, 0, len(pages))
	for _, p := range pages {
		rsp = append(rsp, pageRsp{
			PageNumber: u.Format().FormatPage(p.PageNum),
			Frame:      u.Format().FormatPage(p.Frame),
		})
	}

	return rsp
}

func (m *Monitor) pageTable(w http.ResponseWriter, r *http.Request) {
	unit := m.findUnitOr404(w, mux.Vars(r)["name"])
	if unit == nil {
		return
	}

	writeJSON(w, pagesRsp(unit))
}

type entryRsp struct {
	PhysicalAddr string `json:"physical_addr"`
	Block        string `json:"block"`
}

func entriesRsp(u *mmu.Comp) []entryRsp {
	entries := u.PhysicalEntries()

	rsp := make([]entryRsp, 0, len(entries))
	for _, e := range entries {
		rsp = append(rsp, entryRsp{
			PhysicalAddr: u.Format().FormatAddr(e.Addr),
			Block:        string(e.Data),
		})
	}

	return rsp
}

func (m *Monitor) physicalMemory(w http.ResponseWriter, r *http.Request) {
	unit := m.findUnitOr404(w, mux.Vars(r)["name"])
	if unit == nil {
		return
	}

	writeJSON(w, entriesRsp(unit))
}

func logicalRsp(u *mmu.Comp) []string {
	addrs := u.LogicalAddresses()

	rsp := make([]string, 0, len(addrs))
	for _, a := range addrs {
		rsp = append(rsp, u.Format().FormatAddr(a))
	}

	return rsp
}

func (m *Monitor) logicalAddresses(w http.ResponseWriter, r *http.Request) {
	unit := m.findUnitOr404(w, mux.Vars(r)["name"])
	if unit == nil {
		return
	}

	writeJSON(w, logicalRsp(unit))
}

type translationRsp struct {
	LogicalAddr  string `json:"logical_addr"`
	PageNumber   string `json:"page_number"`
	Offset       string `json:"offset"`
	Frame        string `json:"frame"`
	PhysicalAddr string `json:"physical_addr"`
	Block        string `json:"block"`
	Resident     bool   `json:"resident"`
}

func (m *Monitor) translate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	unit := m.findUnitOr404(w, vars["name"])
	if unit == nil {
		return
	}

	t, err := unit.Translate(vars["addr"])
	if errors.Is(err, vm.ErrAddressNotFound) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, err)

		return
	}
	dieOnErr(err)

	writeJSON(w, translationRsp{
		LogicalAddr:  t.Logical(),
		PageNumber:   t.Page(),
		Offset:       t.Offset(),
		Frame:        t.Format.FormatPage(t.Frame),
		PhysicalAddr: t.Physical(),
		Block:        string(t.Data),
		Resident:     t.Resident,
	})
}

func (m *Monitor) concatenate(w http.ResponseWriter, r *http.Request) {
	unit := m.findUnitOr404(w, mux.Vars(r)["name"])
	if unit == nil {
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, err := w.Write(unit.Concatenate())
	dieOnErr(err)
}

type statsRsp struct {
	Loads            uint64 `json:"loads"`
	Translations     uint64 `json:"translations"`
	FrameAssignments uint64 `json:"frame_assignments"`
	Collisions       uint64 `json:"collisions"`
	Pages            int    `json:"pages"`
	Capacity         uint64 `json:"capacity"`
}

func (m *Monitor) unitStats(w http.ResponseWriter, r *http.Request) {
	unit := m.findUnitOr404(w, mux.Vars(r)["name"])
	if unit == nil {
		return
	}

	m.unitsLock.Lock()
	counter := m.counters[unit.Name()]
	m.unitsLock.Unlock()

	writeJSON(w, statsRsp{
		Loads:            counter.Count(tracing.KindLoad),
		Translations:     counter.Count(tracing.KindTranslate),
		FrameAssignments: counter.Count(tracing.KindFrameAssign),
		Collisions:       counter.Collisions(),
		Pages:            unit.PageTable().Len(),
		Capacity:         unit.Format().Capacity(),
	})
}

type traceRsp struct {
	Total int            `json:"total"`
	Tasks []tracing.Task `json:"tasks"`
}

// listTrace pages through the recorded trace. Query parameters are kind,
// limit and offset.
func (m *Monitor) listTrace(w http.ResponseWriter, r *http.Request) {
	if m.traceReader == nil {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, "No trace recorded")

		return
	}

	q, err := traceParseQuery(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	tasks, total, err := m.traceReader.Tasks(r.Context(), q)
	dieOnErr(err)

	writeJSON(w, traceRsp{Total: total, Tasks: tasks})
}

func traceParseQuery(r *http.Request) (tracing.TraceQuery, error) {
	query := r.URL.Query()
	q := tracing.TraceQuery{Kind: query.Get("kind")}

	var err error

	if limit := query.Get("limit"); limit != "" {
		q.Limit, err = strconv.Atoi(limit)
		if err != nil {
			return q, errors.Wrap(err, "invalid limit")
		}
	}

	if offset := query.Get("offset"); offset != "" {
		q.Offset, err = strconv.Atoi(offset)
		if err != nil {
			return q, errors.Wrap(err, "invalid offset")
		}
	}

	return q, nil
}

func (m *Monitor) findUnitOr404(
	w http.ResponseWriter,
	name string,
) *mmu.Comp {
	m.unitsLock.Lock()
	defer m.unitsLock.Unlock()

	for _, u := range m.units {
		if u.Name() == name {
			return u
		}
	}

	w.WriteHeader(http.StatusNotFound)
	_, err := w.Write([]byte("Paging unit not found"))
	dieOnErr(err)

	return nil
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	bars := make([]progressRsp, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.snapshot())
	}

	writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
