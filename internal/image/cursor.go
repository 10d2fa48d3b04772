package image

import (
	"encoding/binary"
	"fmt"
)

// Cursor walks the blocks of an image, checking the remaining length before
// every read.
type Cursor struct {
	buf       []byte
	offset    int
	remaining int
	index     int
	block     Block
	err       error
}

// Next advances to the next block. It returns false when all blocks have
// been read or the image is truncated; check Err to tell them apart.
func (c *Cursor) Next() bool {
	if c.err != nil || c.remaining == 0 {
		return false
	}

	if len(c.buf)-c.offset < BlockHeaderSize {
		c.err = &CorruptError{
			Offset: c.offset,
			Reason: fmt.Sprintf("block %d header truncated", c.index),
		}
		return false
	}

	addr := binary.LittleEndian.Uint32(c.buf[c.offset:])
	length := binary.LittleEndian.Uint32(c.buf[c.offset+4:])
	start := c.offset + BlockHeaderSize

	if uint64(length) > uint64(len(c.buf)-start) {
		c.err = &CorruptError{
			Offset: start,
			Reason: fmt.Sprintf("block %d length %d exceeds remaining %d bytes", c.index, length, len(c.buf)-start),
		}
		return false
	}

	end := start + int(length)
	c.block = Block{
		Index:       c.index,
		LoadAddress: addr,
		Offset:      start,
		Payload:     c.buf[start:end:end],
	}
	c.offset = end
	c.index++
	c.remaining--
	return true
}

// Block returns the block the cursor is positioned on.
func (c *Cursor) Block() Block {
	return c.block
}

// Err returns the corruption error that stopped the cursor, if any.
func (c *Cursor) Err() error {
	return c.err
}

// Offset is the number of bytes consumed so far.
func (c *Cursor) Offset() int {
	return c.offset
}
