package protocol

import (
	"encoding/binary"
	"testing"
)

func TestChipName(t *testing.T) {
	tests := []struct {
		chipID   uint32
		expected string
	}{
		{ChipIDESP8089, "ESP8089"},
		{0x00, "unknown"},
		{0xFFFFFFFF, "unknown"},
	}

	for _, tc := range tests {
		result := ChipName(tc.chipID)
		if result != tc.expected {
			t.Errorf("ChipName(0x%X) = %q, want %q", tc.chipID, result, tc.expected)
		}
	}
}

func TestEventName(t *testing.T) {
	tests := []struct {
		id       byte
		expected string
	}{
		{EvTargetOn, "target-on"},
		{EvBootup, "bootup"},
		{EvCreditReport, "credit-report"},
		{EvError, "error"},
		{EvResetting, "resetting"},
		{0x7F, "unknown"},
	}

	for _, tc := range tests {
		result := EventName(tc.id)
		if result != tc.expected {
			t.Errorf("EventName(0x%02X) = %q, want %q", tc.id, result, tc.expected)
		}
	}
}

func TestErrorMessage_AllCodes(t *testing.T) {
	tests := []struct {
		code     byte
		expected string
	}{
		{ErrInvalidMessage, "invalid message"},
		{ErrFailedToAct, "failed to act"},
		{ErrInvalidCRC, "invalid CRC"},
		{ErrMemWriteErr, "memory write error"},
		{ErrMemReadErr, "memory read error"},
		{ErrBusTimeout, "bus timeout"},
		{ErrIrqUnavailable, "interrupt line unavailable"},
		{0xFF, "unknown error"},
	}

	for _, tc := range tests {
		result := ErrorMessage(tc.code)
		if result != tc.expected {
			t.Errorf("ErrorMessage(0x%02X) = %q, want %q", tc.code, result, tc.expected)
		}
	}
}

func TestSyncData(t *testing.T) {
	data := SyncData()

	if len(data) != 36 {
		t.Fatalf("SyncData() length = %d, want 36", len(data))
	}
	if data[0] != 0x07 || data[1] != 0x07 || data[2] != 0x12 || data[3] != 0x20 {
		t.Errorf("SyncData() header = %v, want [0x07, 0x07, 0x12, 0x20]", data[0:4])
	}
	for i := 4; i < 36; i++ {
		if data[i] != 0x55 {
			t.Errorf("SyncData()[%d] = 0x%02X, want 0x55", i, data[i])
		}
	}
}

func TestMemBeginData(t *testing.T) {
	data := MemBeginData(0x2000, 2, MemBlockSize, 0x40100000)

	if len(data) != 16 {
		t.Fatalf("MemBeginData() length = %d, want 16", len(data))
	}

	fields := []struct {
		name string
		got  uint32
		want uint32
	}{
		{"size", binary.LittleEndian.Uint32(data[0:4]), 0x2000},
		{"blocks", binary.LittleEndian.Uint32(data[4:8]), 2},
		{"block size", binary.LittleEndian.Uint32(data[8:12]), MemBlockSize},
		{"address", binary.LittleEndian.Uint32(data[12:16]), 0x40100000},
	}
	for _, f := range fields {
		if f.got != f.want {
			t.Errorf("MemBeginData() %s = 0x%X, want 0x%X", f.name, f.got, f.want)
		}
	}
}

func TestMemDataData_NoPadding(t *testing.T) {
	block := []byte{1, 2, 3}
	payload := MemDataData(block, 7)

	if len(payload) != 16+len(block) {
		t.Fatalf("MemDataData() length = %d, want %d", len(payload), 16+len(block))
	}
	if got := binary.LittleEndian.Uint32(payload[0:4]); got != 3 {
		t.Errorf("MemDataData() size = %d, want 3", got)
	}
	if got := binary.LittleEndian.Uint32(payload[4:8]); got != 7 {
		t.Errorf("MemDataData() seq = %d, want 7", got)
	}
	for i, b := range payload[8:16] {
		if b != 0 {
			t.Errorf("MemDataData() reserved[%d] = 0x%02X, want 0", i, b)
		}
	}
}

func TestMemEndData(t *testing.T) {
	data := MemEndData()
	if got := binary.LittleEndian.Uint32(data[0:4]); got != 1 {
		t.Errorf("MemEndData() execute flag = %d, want 1", got)
	}
}

func TestSipCommandData(t *testing.T) {
	data := SipCommandData(0x05, []byte{0xAA, 0xBB})

	if data[0] != 0x05 {
		t.Errorf("SipCommandData() opcode = 0x%02X, want 0x05", data[0])
	}
	if got := binary.LittleEndian.Uint16(data[2:4]); got != 2 {
		t.Errorf("SipCommandData() length = %d, want 2", got)
	}
	if data[4] != 0xAA || data[5] != 0xBB {
		t.Errorf("SipCommandData() payload = %v, want [0xAA 0xBB]", data[4:])
	}
}

func TestIrqTargetData(t *testing.T) {
	data := IrqTargetData(7)
	if len(data) != 4 || data[0] != 7 {
		t.Errorf("IrqTargetData(7) = %v, want [7 0 0 0]", data)
	}
}

func TestCalculateMemBlocks(t *testing.T) {
	tests := []struct {
		size      int
		blockSize int
		expected  uint32
	}{
		{0, MemBlockSize, 0},
		{1, MemBlockSize, 1},
		{MemBlockSize, MemBlockSize, 1},
		{MemBlockSize + 1, MemBlockSize, 2},
		{MemBlockSize * 3, MemBlockSize, 3},
		{10, 4, 3},
	}

	for _, tc := range tests {
		result := CalculateMemBlocks(tc.size, tc.blockSize)
		if result != tc.expected {
			t.Errorf("CalculateMemBlocks(%d, %d) = %d, want %d", tc.size, tc.blockSize, result, tc.expected)
		}
	}
}
