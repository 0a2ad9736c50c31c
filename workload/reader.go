// Package workload reads the logical addresses to be translated.
package workload

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/sarchlab/vmsim/mem/vm"
)

// ParseError reports a line that does not hold a valid logical address.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: invalid address %q: %v", e.Line, e.Text, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// A Reader reads one logical address per line. Blank lines are ignored.
type Reader struct {
	reader        *bufio.Reader
	line          int
	skipMalformed bool
	skipped       int
	logger        *log.Logger
}

// NewReader creates a Reader that fails on the first malformed line.
func NewReader(r io.Reader) *Reader {
	return &Reader{
		reader: bufio.NewReader(r),
	}
}

// SkipMalformed makes the reader skip malformed lines instead of failing.
// Each skipped line is reported to the logger.
func (r *Reader) SkipMalformed(logger *log.Logger) *Reader {
	r.skipMalformed = true
	r.logger = logger

	return r
}

// Line returns the number of the last line read.
func (r *Reader) Line() int {
	return r.line
}

// Skipped returns the number of malformed lines skipped.
func (r *Reader) Skipped() int {
	return r.skipped
}

// Next returns the next address. It returns io.EOF after the last address.
func (r *Reader) Next() (vm.Address, error) {
	for {
		text, err := r.reader.ReadString('\n')
		if text == "" && err != nil {
			if errors.Is(err, io.EOF) {
				return 0, io.EOF
			}

			return 0, err
		}

		r.line++

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		addr, err := parseAddress(text)
		if err == nil {
			return addr, nil
		}

		parseErr := &ParseError{Line: r.line, Text: text, Err: err}
		if !r.skipMalformed {
			return 0, parseErr
		}

		r.skipped++
		if r.logger != nil {
			r.logger.Printf("skipping %v", parseErr)
		}
	}
}

func parseAddress(text string) (vm.Address, error) {
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, err
	}

	if n < 0 || n > vm.MaxAddress {
		return 0, &vm.AddressOutOfRangeError{Addr: n}
	}

	return vm.Address(n), nil
}
