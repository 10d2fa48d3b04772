package protocol

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"
)

func TestChecksum(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want uint32
	}{
		{"empty", nil, 0xEF},
		{"single byte", []byte{0x01}, 0xEE},
		{"cancelling bytes", []byte{0x01, 0x02, 0x03}, 0xEF},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Checksum(tc.data); got != tc.want {
				t.Errorf("Checksum(%v) = 0x%X, want 0x%X", tc.data, got, tc.want)
			}
		})
	}
}

func TestRequest_Encode_Format(t *testing.T) {
	data := []byte{0xAA, 0xBB}
	req := NewRequest(CmdSync, data)
	encoded := req.Encode()

	if len(encoded) != HeaderSize+len(data) {
		t.Fatalf("Encode() length = %d, want %d", len(encoded), HeaderSize+len(data))
	}
	if encoded[0] != DirRequest {
		t.Errorf("Encode()[0] direction = 0x%02X, want 0x%02X", encoded[0], DirRequest)
	}
	if encoded[1] != CmdSync {
		t.Errorf("Encode()[1] command = 0x%02X, want 0x%02X", encoded[1], CmdSync)
	}
	if dataLen := binary.LittleEndian.Uint16(encoded[2:4]); dataLen != uint16(len(data)) {
		t.Errorf("Encode() data length = %d, want %d", dataLen, len(data))
	}
	if checksum := binary.LittleEndian.Uint32(encoded[4:8]); checksum != req.Checksum {
		t.Errorf("Encode() checksum = 0x%X, want 0x%X", checksum, req.Checksum)
	}
	if !bytes.Equal(encoded[8:], data) {
		t.Errorf("Encode() data = %v, want %v", encoded[8:], data)
	}
}

func TestDecodeResponse_Valid(t *testing.T) {
	raw := EncodeResponse(CmdChipInfo, 0x8089, []byte{0xAA}, 0, 0)

	decoded, err := DecodeResponse(raw)
	if err != nil {
		t.Fatalf("DecodeResponse() error = %v", err)
	}
	if decoded.Command != CmdChipInfo {
		t.Errorf("DecodeResponse Command = 0x%02X, want 0x%02X", decoded.Command, CmdChipInfo)
	}
	if decoded.Value != 0x8089 {
		t.Errorf("DecodeResponse Value = 0x%X, want 0x8089", decoded.Value)
	}
	if !bytes.Equal(decoded.Data, []byte{0xAA}) {
		t.Errorf("DecodeResponse Data = %v, want [0xAA]", decoded.Data)
	}
	if !decoded.IsSuccess() {
		t.Errorf("DecodeResponse IsSuccess = false, want true")
	}
}

func TestDecodeResponse_Failure(t *testing.T) {
	decoded, err := DecodeResponse(EncodeResponse(CmdMemData, 0, nil, 1, ErrMemWriteErr))
	if err != nil {
		t.Fatalf("DecodeResponse() error = %v", err)
	}
	if decoded.IsSuccess() {
		t.Fatal("IsSuccess() = true, want false")
	}
	if !strings.Contains(decoded.ErrorString(), "memory write error") {
		t.Errorf("ErrorString() = %q, want it to mention memory write error", decoded.ErrorString())
	}
}

func TestDecodeResponse_TooShort(t *testing.T) {
	for _, resp := range [][]byte{nil, {DirResponse}, make([]byte, 9)} {
		if _, err := DecodeResponse(resp); err == nil {
			t.Errorf("DecodeResponse(%v) expected error, got nil", resp)
		}
	}
}

func TestDecodeResponse_InvalidDirection(t *testing.T) {
	raw := EncodeResponse(CmdSync, 0, nil, 0, 0)
	raw[0] = DirRequest

	_, err := DecodeResponse(raw)
	if err == nil || !strings.Contains(err.Error(), "invalid direction") {
		t.Errorf("DecodeResponse error = %v, want error containing 'invalid direction'", err)
	}
}

func TestDecodeResponse_DataSizeMismatch(t *testing.T) {
	raw := EncodeResponse(CmdSync, 0, nil, 0, 0)
	binary.LittleEndian.PutUint16(raw[2:4], 100)

	_, err := DecodeResponse(raw)
	if err == nil || !strings.Contains(err.Error(), "size mismatch") {
		t.Errorf("DecodeResponse error = %v, want error containing 'size mismatch'", err)
	}
}

func TestEvent_EncodeDecode(t *testing.T) {
	ev := &Event{ID: EvBootup, Seq: 42, Data: []byte{1, 2}}

	decoded, err := DecodeEvent(ev.Encode())
	if err != nil {
		t.Fatalf("DecodeEvent() error = %v", err)
	}
	if decoded.ID != EvBootup || decoded.Seq != 42 || !bytes.Equal(decoded.Data, ev.Data) {
		t.Errorf("DecodeEvent() = %+v, want %+v", decoded, ev)
	}
}

func TestDecodeEvent_Errors(t *testing.T) {
	short := []byte{DirEvent, EvBootup}
	if _, err := DecodeEvent(short); err == nil {
		t.Error("DecodeEvent(short) expected error, got nil")
	}

	wrongDir := (&Event{ID: EvBootup}).Encode()
	wrongDir[0] = DirResponse
	if _, err := DecodeEvent(wrongDir); err == nil {
		t.Error("DecodeEvent(wrong direction) expected error, got nil")
	}

	truncated := (&Event{ID: EvBootup, Data: []byte{1, 2, 3}}).Encode()
	if _, err := DecodeEvent(truncated[:len(truncated)-1]); err == nil {
		t.Error("DecodeEvent(truncated) expected error, got nil")
	}
}

func TestDirection(t *testing.T) {
	dir, err := Direction((&Event{ID: EvResetting}).Encode())
	if err != nil {
		t.Fatalf("Direction() error = %v", err)
	}
	if dir != DirEvent {
		t.Errorf("Direction() = 0x%02X, want 0x%02X", dir, DirEvent)
	}

	if _, err := Direction([]byte{DirEvent}); err == nil {
		t.Error("Direction(short) expected error, got nil")
	}
}
