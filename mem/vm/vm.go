// Package vm provides the models for address translations
package vm

import (
	"errors"
	"fmt"
)

const (
	// Log2PageSize is the number of offset bits in a logical address.
	Log2PageSize = 8

	// PageSize is the number of bytes in a page and in a frame.
	PageSize = 1 << Log2PageSize

	// NumPages is the number of pages in the logical address space.
	NumPages = 256

	// NumFrames is the number of frames in physical memory.
	NumFrames = 256

	// AddressSpaceSize is the number of bytes in the logical address space.
	AddressSpaceSize = NumPages * PageSize

	// MaxAddress is the largest valid logical address.
	MaxAddress = AddressSpaceSize - 1
)

// Address is a logical address as seen by the simulated program.
type Address uint32

// PageNumber identifies a page of the logical address space.
type PageNumber uint32

// FrameNumber identifies a PageSize-byte slot in physical memory.
type FrameNumber uint32

// A Mapping binds a page to the frame that holds its content.
type Mapping struct {
	Page  PageNumber
	Frame FrameNumber
}

// ErrCapacityExceeded is returned when every physical frame is already in use.
var ErrCapacityExceeded = errors.New("physical memory capacity exceeded")

// CapacityExceededError reports the page whose fault could not be served
// because no frame was left.
type CapacityExceededError struct {
	Page      PageNumber
	NumFrames int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("page %d: all %d frames are in use", e.Page, e.NumFrames)
}

// Unwrap allows errors.Is(err, ErrCapacityExceeded).
func (e *CapacityExceededError) Unwrap() error {
	return ErrCapacityExceeded
}

// AddressOutOfRangeError reports a logical address outside the address space.
type AddressOutOfRangeError struct {
	Addr int64
}

func (e *AddressOutOfRangeError) Error() string {
	return fmt.Sprintf("logical address %d is outside [0, %d]",
		e.Addr, MaxAddress)
}

// Decompose splits a logical address into its page number and in-page offset.
func Decompose(addr Address) (page PageNumber, offset uint32, err error) {
	if addr > MaxAddress {
		return 0, 0, &AddressOutOfRangeError{Addr: int64(addr)}
	}

	page = PageNumber(addr / PageSize)
	offset = uint32(addr % PageSize)

	return page, offset, nil
}

// PhysicalAddress returns the physical address of offset within frame.
func PhysicalAddress(frame FrameNumber, offset uint32) uint32 {
	return uint32(frame)*PageSize + offset
}
