package vm

import (
	"container/list"
	"sync"
)

// A Page is an entry in the page table. It records the frame that backs a
// page number.
type Page struct {
	PageNum uint64
	Frame   uint64
}

// A PageTable maps page numbers to frames. Entries are never replaced or
// removed once inserted.
type PageTable interface {
	Insert(page Page)
	Find(pageNum uint64) (Page, bool)

	// Pages returns all the entries in insertion order.
	Pages() []Page
	Len() int
}

// NewPageTable creates a new PageTable.
func NewPageTable() PageTable {
	return &pageTableImpl{
		entries:      list.New(),
		entriesTable: make(map[uint64]*list.Element),
	}
}

// pageTableImpl keeps the pages in a list for ordered listing and in a map for
// lookups.
type pageTableImpl struct {
	sync.Mutex
	entries      *list.List
	entriesTable map[uint64]*list.Element
}

// Insert puts a new page into the PageTable. Inserting a page number that is
// already mapped panics.
func (pt *pageTableImpl) Insert(page Page) {
	pt.Lock()
	defer pt.Unlock()

	pt.pageMustNotExist(page.PageNum)

	elem := pt.entries.PushBack(page)
	pt.entriesTable[page.PageNum] = elem
}

// Find returns the page with the given page number. The bool return value
// indicates if the page is found or not.
func (pt *pageTableImpl) Find(pageNum uint64) (Page, bool) {
	pt.Lock()
	defer pt.Unlock()

	elem, found := pt.entriesTable[pageNum]
	if !found {
		return Page{}, false
	}

	return elem.Value.(Page), true
}

func (pt *pageTableImpl) Pages() []Page {
	pt.Lock()
	defer pt.Unlock()

	pages := make([]Page, 0, pt.entries.Len())
	for e := pt.entries.Front(); e != nil; e = e.Next() {
		pages = append(pages, e.Value.(Page))
	}

	return pages
}

func (pt *pageTableImpl) Len() int {
	pt.Lock()
	defer pt.Unlock()

	return pt.entries.Len()
}

func (pt *pageTableImpl) pageMustNotExist(pageNum uint64) {
	_, found := pt.entriesTable[pageNum]
	if found {
		panic("page exist")
	}
}
