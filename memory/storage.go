// Package memory models the physical memory of the simulated machine.
package memory

import (
	"fmt"

	"github.com/sarchlab/vmsim/mem/vm"
)

// A Storage is the physical memory of the simulated machine. It is a flat
// array of cells divided into frames.
//
// Each cell holds one byte as a signed value in [-128, 127]. Bytes are
// sign-extended when a frame is loaded, so every reader sees the same value.
type Storage struct {
	frameSize uint64
	capacity  uint64
	data      []int16
}

// NewStorage creates a storage object with the specified capacity, in bytes.
// The capacity must be a multiple of the frame size.
func NewStorage(capacity, frameSize uint64) *Storage {
	if frameSize == 0 || capacity%frameSize != 0 {
		panic(fmt.Sprintf(
			"capacity %d is not a multiple of frame size %d",
			capacity, frameSize))
	}

	return &Storage{
		frameSize: frameSize,
		capacity:  capacity,
		data:      make([]int16, capacity),
	}
}

// Capacity returns the number of cells.
func (s *Storage) Capacity() uint64 {
	return s.capacity
}

// NumFrames returns the number of frames the storage is divided into.
func (s *Storage) NumFrames() int {
	return int(s.capacity / s.frameSize)
}

// LoadFrame fills a frame with the content of a page.
func (s *Storage) LoadFrame(frame vm.FrameNumber, data []byte) error {
	if uint64(len(data)) != s.frameSize {
		return fmt.Errorf("frame %d: got %d bytes, want %d",
			frame, len(data), s.frameSize)
	}

	base := uint64(frame) * s.frameSize
	if base+s.frameSize > s.capacity {
		return fmt.Errorf("frame %d is beyond the storage capacity %d",
			frame, s.capacity)
	}

	for i, b := range data {
		s.data[base+uint64(i)] = int16(int8(b))
	}

	return nil
}

// Read returns the value stored at a physical address.
func (s *Storage) Read(address uint64) (int16, error) {
	if address >= s.capacity {
		return 0, fmt.Errorf(
			"physical address %d is beyond the storage capacity %d",
			address, s.capacity)
	}

	return s.data[address], nil
}
