package image

import (
	"bytes"
	"fmt"
	"io"

	"github.com/marcinbor85/gohex"
)

// FromHex builds an image from an Intel HEX file. Every contiguous data
// segment becomes one load block, in ascending address order.
func FromHex(r io.Reader, entry uint32) ([]byte, error) {
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(r); err != nil {
		return nil, fmt.Errorf("parse intel hex: %w", err)
	}

	var segments []Segment
	for _, s := range mem.GetDataSegments() {
		segments = append(segments, Segment{Address: s.Address, Data: s.Data})
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("intel hex contains no data")
	}

	return Encode(entry, segments)
}

// ToHex writes the memory contents the image loads as Intel HEX. Where
// blocks overlap, the later block's bytes are written. The entry address is
// not representable and is dropped.
func ToHex(w io.Writer, img *Image) error {
	mem := gohex.NewMemory()
	for b, err := range img.Blocks() {
		if err != nil {
			return err
		}
		data := bytes.Clone(b.Payload)
		if err := mem.AddBinary(b.LoadAddress, data); err != nil {
			// Overlaps an earlier block: later blocks win, as on the chip.
			mem.SetBinary(b.LoadAddress, data)
		}
	}
	return mem.DumpIntelHex(w, 16)
}
