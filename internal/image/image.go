// Package image decodes eagle firmware images into ordered load blocks.
//
// An image is a little-endian packed structure:
//
//	magic u8 (0xE9) | block count u8 | reserved [2]u8 | entry address u32
//	block count x { load address u32 | data length u32 | data }
//
// Bytes after the last block are accepted and ignored; the trailing
// checksum some images carry is not verified.
package image

import (
	"encoding/binary"
	"errors"
	"fmt"
	"iter"
)

// Magic is the first byte of every firmware image.
const Magic = 0xE9

// Header sizes in bytes.
const (
	HeaderSize      = 8
	BlockHeaderSize = 8
)

// ErrCorrupt is matched by every parse failure.
var ErrCorrupt = errors.New("corrupt firmware image")

// CorruptError describes where an image failed to parse.
type CorruptError struct {
	Offset int
	Reason string
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("corrupt firmware image at offset %d: %s", e.Offset, e.Reason)
}

func (e *CorruptError) Is(target error) bool {
	return target == ErrCorrupt
}

// Image is a parsed firmware image. It owns its buffer; blocks returned by
// its cursors borrow from it.
type Image struct {
	Magic        byte
	BlockCount   byte
	EntryAddress uint32

	buf []byte
}

// Block is a view of one load block inside an Image.
type Block struct {
	Index       int
	LoadAddress uint32
	// Offset of the payload within the image buffer.
	Offset  int
	Payload []byte
}

// Parse decodes buf and validates every block bound. The Image keeps buf;
// callers must not modify it afterwards.
func Parse(buf []byte) (*Image, error) {
	if len(buf) < HeaderSize {
		return nil, &CorruptError{Offset: 0, Reason: fmt.Sprintf("short header: %d bytes", len(buf))}
	}
	if buf[0] != Magic {
		return nil, &CorruptError{Offset: 0, Reason: fmt.Sprintf("wrong magic 0x%02X", buf[0])}
	}

	img := &Image{
		Magic:        buf[0],
		BlockCount:   buf[1],
		EntryAddress: binary.LittleEndian.Uint32(buf[4:8]),
		buf:          buf,
	}

	c := img.Cursor()
	for c.Next() {
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	return img, nil
}

// Size returns the length of the image buffer.
func (img *Image) Size() int {
	return len(img.buf)
}

// Cursor returns a fresh cursor positioned on the first block.
func (img *Image) Cursor() *Cursor {
	return &Cursor{buf: img.buf, offset: HeaderSize, remaining: int(img.BlockCount)}
}

// Blocks iterates the load blocks in load order.
func (img *Image) Blocks() iter.Seq2[Block, error] {
	return func(yield func(Block, error) bool) {
		c := img.Cursor()
		for c.Next() {
			if !yield(c.Block(), nil) {
				return
			}
		}
		if err := c.Err(); err != nil {
			yield(Block{}, err)
		}
	}
}

// Segment is the input form of a block for Encode.
type Segment struct {
	Address uint32
	Data    []byte
}

// Encode builds an image from segments, in the given order.
func Encode(entry uint32, segments []Segment) ([]byte, error) {
	if len(segments) > 0xFF {
		return nil, fmt.Errorf("too many segments: %d (max 255)", len(segments))
	}

	size := HeaderSize
	for _, s := range segments {
		size += BlockHeaderSize + len(s.Data)
	}

	buf := make([]byte, HeaderSize, size)
	buf[0] = Magic
	buf[1] = byte(len(segments))
	binary.LittleEndian.PutUint32(buf[4:8], entry)

	for _, s := range segments {
		buf = binary.LittleEndian.AppendUint32(buf, s.Address)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s.Data)))
		buf = append(buf, s.Data...)
	}
	return buf, nil
}
