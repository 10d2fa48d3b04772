package protocol

import (
	"encoding/binary"
	"fmt"
)

// HeaderSize is the size of the packet header shared by all directions.
const HeaderSize = 8

// Request represents a bridge request packet.
type Request struct {
	Command  byte
	Data     []byte
	Checksum uint32
}

// Response represents a bridge response packet.
type Response struct {
	Command byte
	Data    []byte
	Value   uint32
	Status  byte
	Error   byte
}

// Event is an unsolicited packet raised by the device, forwarded by the
// bridge when host interrupts are enabled.
type Event struct {
	ID   byte
	Seq  uint32
	Data []byte
}

// NewRequest creates a new request with calculated checksum.
func NewRequest(cmd byte, data []byte) *Request {
	r := &Request{
		Command: cmd,
		Data:    data,
	}
	r.Checksum = Checksum(data)
	return r
}

// Checksum is the XOR of all data bytes seeded with 0xEF.
func Checksum(data []byte) uint32 {
	var checksum byte = 0xEF
	for _, b := range data {
		checksum ^= b
	}
	return uint32(checksum)
}

// Encode serializes the request to bytes (before SLIP encoding).
func (r *Request) Encode() []byte {
	// Packet format:
	// 0: direction
	// 1: command
	// 2-3: data size (little-endian)
	// 4-7: checksum (little-endian)
	// 8+: data
	packet := make([]byte, HeaderSize+len(r.Data))
	packet[0] = DirRequest
	packet[1] = r.Command
	binary.LittleEndian.PutUint16(packet[2:4], uint16(len(r.Data)))
	binary.LittleEndian.PutUint32(packet[4:8], r.Checksum)
	copy(packet[HeaderSize:], r.Data)
	return packet
}

// Direction reports the direction byte of a decoded packet.
func Direction(packet []byte) (byte, error) {
	if len(packet) < HeaderSize {
		return 0, fmt.Errorf("packet too short: %d bytes", len(packet))
	}
	return packet[0], nil
}

// DecodeResponse parses a response from raw bytes (after SLIP decoding).
func DecodeResponse(data []byte) (*Response, error) {
	// Minimum response is 8 bytes header + 2 bytes status
	if len(data) < HeaderSize+2 {
		return nil, fmt.Errorf("response too short: %d bytes", len(data))
	}
	if data[0] != DirResponse {
		return nil, fmt.Errorf("invalid direction byte: 0x%02X", data[0])
	}

	resp := &Response{
		Command: data[1],
		Value:   binary.LittleEndian.Uint32(data[4:8]),
	}

	dataSize := int(binary.LittleEndian.Uint16(data[2:4]))
	if dataSize > len(data)-HeaderSize {
		return nil, fmt.Errorf("data size mismatch: expected %d, have %d", dataSize, len(data)-HeaderSize)
	}

	body := data[HeaderSize : HeaderSize+dataSize]
	if len(body) >= 2 {
		// Last two bytes are status and error
		resp.Data = body[:len(body)-2]
		resp.Status = body[len(body)-2]
		resp.Error = body[len(body)-1]
	} else {
		resp.Data = body
	}

	return resp, nil
}

// DecodeEvent parses a device event packet.
func DecodeEvent(data []byte) (*Event, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("event too short: %d bytes", len(data))
	}
	if data[0] != DirEvent {
		return nil, fmt.Errorf("invalid direction byte: 0x%02X", data[0])
	}

	dataSize := int(binary.LittleEndian.Uint16(data[2:4]))
	if dataSize > len(data)-HeaderSize {
		return nil, fmt.Errorf("data size mismatch: expected %d, have %d", dataSize, len(data)-HeaderSize)
	}

	ev := &Event{
		ID:  data[1],
		Seq: binary.LittleEndian.Uint32(data[4:8]),
	}
	if dataSize > 0 {
		ev.Data = append([]byte(nil), data[HeaderSize:HeaderSize+dataSize]...)
	}
	return ev, nil
}

// Encode serializes an event packet. Used by bridge simulators and tests.
func (e *Event) Encode() []byte {
	packet := make([]byte, HeaderSize+len(e.Data))
	packet[0] = DirEvent
	packet[1] = e.ID
	binary.LittleEndian.PutUint16(packet[2:4], uint16(len(e.Data)))
	binary.LittleEndian.PutUint32(packet[4:8], e.Seq)
	copy(packet[HeaderSize:], e.Data)
	return packet
}

// EncodeResponse serializes a response packet with trailing status bytes.
// Used by bridge simulators and tests.
func EncodeResponse(cmd byte, value uint32, data []byte, status, errCode byte) []byte {
	size := len(data) + 2
	packet := make([]byte, HeaderSize+size)
	packet[0] = DirResponse
	packet[1] = cmd
	binary.LittleEndian.PutUint16(packet[2:4], uint16(size))
	binary.LittleEndian.PutUint32(packet[4:8], value)
	copy(packet[HeaderSize:], data)
	packet[HeaderSize+len(data)] = status
	packet[HeaderSize+len(data)+1] = errCode
	return packet
}

// IsSuccess returns true if the response indicates success.
func (r *Response) IsSuccess() bool {
	return r.Status == 0 && r.Error == 0
}

// ErrorString returns a human-readable error message.
func (r *Response) ErrorString() string {
	if r.IsSuccess() {
		return ""
	}
	return fmt.Sprintf("status=0x%02X error=0x%02X (%s)", r.Status, r.Error, ErrorMessage(r.Error))
}

// SyncData returns the data payload for a SYNC command.
func SyncData() []byte {
	// SYNC payload: 0x07 0x07 0x12 0x20 followed by 32 bytes of 0x55
	data := make([]byte, 36)
	copy(data, []byte{0x07, 0x07, 0x12, 0x20})
	for i := 4; i < len(data); i++ {
		data[i] = 0x55
	}
	return data
}

// MemBeginData creates the data payload for MEM_BEGIN.
func MemBeginData(size, numBlocks, blockSize, address uint32) []byte {
	data := make([]byte, 16)
	binary.LittleEndian.PutUint32(data[0:4], size)
	binary.LittleEndian.PutUint32(data[4:8], numBlocks)
	binary.LittleEndian.PutUint32(data[8:12], blockSize)
	binary.LittleEndian.PutUint32(data[12:16], address)
	return data
}

// MemDataData creates the data payload for MEM_DATA. Unlike flash writes
// the last block is sent unpadded. The bridge echoes seq in the value field
// of its response.
func MemDataData(data []byte, seq uint32) []byte {
	// Header: size (4) + seq (4) + reserved (8)
	payload := make([]byte, 16+len(data))
	binary.LittleEndian.PutUint32(payload[0:4], uint32(len(data)))
	binary.LittleEndian.PutUint32(payload[4:8], seq)
	copy(payload[16:], data)
	return payload
}

// MemEndData creates the data payload for MEM_END. The bridge never jumps
// to an entry point itself; booting is done with a SIP command.
func MemEndData() []byte {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint32(data[0:4], 1) // 1 = stay, do not execute
	return data
}

// SipCommandData wraps a SIP command for the chip.
func SipCommandData(opcode byte, payload []byte) []byte {
	data := make([]byte, 4+len(payload))
	data[0] = opcode
	binary.LittleEndian.PutUint16(data[2:4], uint16(len(payload)))
	copy(data[4:], payload)
	return data
}

// IrqTargetData creates the payload that pulses interrupt line on the chip.
func IrqTargetData(line uint8) []byte {
	return []byte{line, 0, 0, 0}
}

// CalculateMemBlocks returns the number of MEM_DATA packets for size bytes
// sent in blockSize chunks.
func CalculateMemBlocks(size, blockSize int) uint32 {
	return uint32((size + blockSize - 1) / blockSize)
}
