package vm

import "log"

// A FrameAllocator hands out physical frames. Frames bound to a page are never
// returned.
type FrameAllocator struct {
	used      []bool
	allocated int
}

// NewFrameAllocator creates an allocator over numFrames free frames.
func NewFrameAllocator(numFrames int) *FrameAllocator {
	return &FrameAllocator{
		used: make([]bool, numFrames),
	}
}

// Allocate returns the lowest-indexed free frame, or ErrCapacityExceeded if
// all frames are in use.
func (a *FrameAllocator) Allocate() (FrameNumber, error) {
	for i, used := range a.used {
		if !used {
			a.used[i] = true
			a.allocated++

			return FrameNumber(i), nil
		}
	}

	return 0, ErrCapacityExceeded
}

// Release returns a frame that was allocated but never bound to a page.
func (a *FrameAllocator) Release(frame FrameNumber) {
	if int(frame) >= len(a.used) || !a.used[frame] {
		log.Panicf("frame %d is not allocated", frame)
	}

	a.used[frame] = false
	a.allocated--
}

// NumAllocated returns the number of frames handed out so far.
func (a *FrameAllocator) NumAllocated() int {
	return a.allocated
}

// NumFrames returns the total number of frames managed.
func (a *FrameAllocator) NumFrames() int {
	return len(a.used)
}
