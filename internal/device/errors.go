package device

import (
	"errors"
	"fmt"
)

// Bring-up failure kinds. Match them with errors.Is on the error returned
// by BringUp; image.ErrCorrupt and loader.ErrLoad are matched the same way.
var (
	ErrAllocationFailed         = errors.New("messaging layer allocation failed")
	ErrFirmwareNotFound         = errors.New("firmware not found")
	ErrCommandSendFailed        = errors.New("boot command send failed")
	ErrTimeout                  = errors.New("timed out waiting for device")
	ErrUnsupportedConfiguration = errors.New("operation not supported in this test mode")
	ErrDiagnosticMode           = errors.New("diagnostic test mode, normal boot skipped")
	ErrBusy                     = errors.New("bring-up already in progress")
)

// BringUpError carries the stage and firmware name of a failed bring-up.
type BringUpError struct {
	Stage    string
	Firmware string
	Err      error
}

func (e *BringUpError) Error() string {
	if e.Firmware != "" {
		return fmt.Sprintf("bring-up failed at %s (firmware %s): %v", e.Stage, e.Firmware, e.Err)
	}
	return fmt.Sprintf("bring-up failed at %s: %v", e.Stage, e.Err)
}

func (e *BringUpError) Unwrap() error {
	return e.Err
}
