package backingstore

import (
	"bufio"
	"io"
	"os"

	"github.com/sarchlab/vmsim/mem/vm"
)

// Generate writes a full-size backing store in which byte i holds i % 256.
func Generate(w io.Writer) error {
	bw := bufio.NewWriter(w)

	for i := 0; i < vm.AddressSpaceSize; i++ {
		err := bw.WriteByte(byte(i % 256))
		if err != nil {
			return err
		}
	}

	return bw.Flush()
}

// GenerateFile creates a backing store file with Generate. An existing file
// is not overwritten.
func GenerateFile(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}

	err = Generate(f)
	if err != nil {
		f.Close()
		return err
	}

	return f.Close()
}
