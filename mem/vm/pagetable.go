package vm

import "log"

// A PageTable maps page numbers to the frames that hold them. Once a page is
// bound it stays bound.
type PageTable interface {
	// Find returns the frame bound to the page. The bool return value
	// indicates if the page is mapped or not.
	Find(page PageNumber) (FrameNumber, bool)

	// Insert binds a page to a frame. Binding a page twice is a programming
	// error and panics.
	Insert(page PageNumber, frame FrameNumber)

	// Len returns the number of mapped pages.
	Len() int

	// Entries lists the mappings in page order.
	Entries() []Mapping
}

// NewPageTable creates a new PageTable with numPages unmapped entries.
func NewPageTable(numPages int) PageTable {
	return &pageTableImpl{
		entries: make([]pageTableEntry, numPages),
	}
}

type pageTableEntry struct {
	frame FrameNumber
	valid bool
}

// pageTableImpl is the default implementation of a Page Table
type pageTableImpl struct {
	entries  []pageTableEntry
	numValid int
}

func (pt *pageTableImpl) Find(page PageNumber) (FrameNumber, bool) {
	if int(page) >= len(pt.entries) {
		return 0, false
	}

	entry := pt.entries[page]
	if !entry.valid {
		return 0, false
	}

	return entry.frame, true
}

func (pt *pageTableImpl) Insert(page PageNumber, frame FrameNumber) {
	pt.pageMustBeInRange(page)
	pt.pageMustNotExist(page)

	pt.entries[page] = pageTableEntry{frame: frame, valid: true}
	pt.numValid++
}

func (pt *pageTableImpl) Len() int {
	return pt.numValid
}

func (pt *pageTableImpl) Entries() []Mapping {
	mappings := make([]Mapping, 0, pt.numValid)

	for i, entry := range pt.entries {
		if entry.valid {
			mappings = append(mappings, Mapping{
				Page:  PageNumber(i),
				Frame: entry.frame,
			})
		}
	}

	return mappings
}

func (pt *pageTableImpl) pageMustBeInRange(page PageNumber) {
	if int(page) >= len(pt.entries) {
		log.Panicf("page %d is beyond the page table size %d",
			page, len(pt.entries))
	}
}

func (pt *pageTableImpl) pageMustNotExist(page PageNumber) {
	if pt.entries[page].valid {
		log.Panicf("page %d is already bound to frame %d",
			page, pt.entries[page].frame)
	}
}
