// Package slip implements the SLIP framing used on the bridge serial link.
package slip

import (
	"bufio"
	"errors"
	"io"
)

const (
	End    = 0xC0
	Esc    = 0xDB
	EscEnd = 0xDC
	EscEsc = 0xDD
)

// MaxFrameSize bounds a decoded frame. Longer frames are dropped.
const MaxFrameSize = 0x4000

// ErrFrameTooLong is returned by Reader.ReadFrame when a frame exceeds MaxFrameSize.
var ErrFrameTooLong = errors.New("slip: frame too long")

// Encode wraps data in SLIP framing.
func Encode(data []byte) []byte {
	return AppendEncode(make([]byte, 0, len(data)+10), data)
}

// AppendEncode appends the SLIP frame for data to dst.
func AppendEncode(dst, data []byte) []byte {
	dst = append(dst, End)
	for _, b := range data {
		switch b {
		case End:
			dst = append(dst, Esc, EscEnd)
		case Esc:
			dst = append(dst, Esc, EscEsc)
		default:
			dst = append(dst, b)
		}
	}
	return append(dst, End)
}

func unescape(b byte) byte {
	switch b {
	case EscEnd:
		return End
	case EscEsc:
		return Esc
	default:
		// Unknown escape sequences pass the second byte through.
		return b
	}
}

// Reader reads SLIP frames from a byte stream.
type Reader struct {
	r   *bufio.Reader
	buf []byte
}

// NewReader returns a Reader that decodes frames from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// ReadFrame returns the next non-empty decoded frame.
// Bytes before the first END are discarded as line noise.
// The returned slice is only valid until the next call.
func (r *Reader) ReadFrame() ([]byte, error) {
	inFrame := false
	escaped := false
	tooLong := false
	r.buf = r.buf[:0]

	for {
		b, err := r.r.ReadByte()
		if err != nil {
			return nil, err
		}

		if b == End {
			if inFrame && len(r.buf) > 0 {
				if tooLong {
					return nil, ErrFrameTooLong
				}
				return r.buf, nil
			}
			inFrame = true
			escaped = false
			continue
		}
		if !inFrame {
			continue
		}

		if escaped {
			b = unescape(b)
			escaped = false
		} else if b == Esc {
			escaped = true
			continue
		}

		if len(r.buf) >= MaxFrameSize {
			tooLong = true
			continue
		}
		r.buf = append(r.buf, b)
	}
}
