package protocol

// Bridge commands. The memory commands keep the ROM loader opcodes so the
// bridge firmware can forward them unchanged.
const (
	CmdMemBegin   = 0x05
	CmdMemEnd     = 0x06
	CmdMemData    = 0x07
	CmdSync       = 0x08
	CmdSipCommand = 0x30
	CmdIrqEnable  = 0x31
	CmdIrqDisable = 0x32
	CmdIrqTarget  = 0x33
	CmdChipInfo   = 0x34
)

// Direction byte values
const (
	DirRequest  = 0x00
	DirResponse = 0x01
	DirEvent    = 0x02
)

// Memory download parameters
const (
	MemBlockSize = 0x1800 // 6KB per MEM_DATA packet
)

// Device event IDs as reported by the chip's SIP layer.
const (
	EvTargetOn     = 0x00
	EvBootup       = 0x01
	EvCreditReport = 0x05
	EvError        = 0x06
	EvResetting    = 0x10
)

// Chip IDs
const (
	ChipIDESP8089 = 0x8089
)

// Default link settings
const (
	DefaultBaudRate = 921600
)

// ChipName returns human-readable name for chip ID
func ChipName(id uint32) string {
	switch id {
	case ChipIDESP8089:
		return "ESP8089"
	default:
		return "unknown"
	}
}

// EventName returns a human-readable name for a device event ID.
func EventName(id byte) string {
	switch id {
	case EvTargetOn:
		return "target-on"
	case EvBootup:
		return "bootup"
	case EvCreditReport:
		return "credit-report"
	case EvError:
		return "error"
	case EvResetting:
		return "resetting"
	default:
		return "unknown"
	}
}

// Error codes reported by the bridge
const (
	ErrInvalidMessage = 0x05
	ErrFailedToAct    = 0x06
	ErrInvalidCRC     = 0x07
	ErrMemWriteErr    = 0x08
	ErrMemReadErr     = 0x09
	ErrBusTimeout     = 0x0C
	ErrIrqUnavailable = 0x0D
)

// ErrorMessage returns human-readable error message
func ErrorMessage(code byte) string {
	switch code {
	case ErrInvalidMessage:
		return "invalid message"
	case ErrFailedToAct:
		return "failed to act"
	case ErrInvalidCRC:
		return "invalid CRC"
	case ErrMemWriteErr:
		return "memory write error"
	case ErrMemReadErr:
		return "memory read error"
	case ErrBusTimeout:
		return "bus timeout"
	case ErrIrqUnavailable:
		return "interrupt line unavailable"
	default:
		return "unknown error"
	}
}
