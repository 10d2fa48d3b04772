package device

import (
	"fmt"
	"strings"

	"github.com/bigbag/eagleboot/internal/firmware"
)

// InitMode tells whether the chip is being brought up for the first time
// since power-on or re-initialised.
type InitMode int

const (
	FirstInit InitMode = iota
	SecondInit
)

func (m InitMode) String() string {
	switch m {
	case FirstInit:
		return "first"
	case SecondInit:
		return "second"
	default:
		return fmt.Sprintf("InitMode(%d)", int(m))
	}
}

// ParseInitMode accepts "first" or "second".
func ParseInitMode(s string) (InitMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "first", "":
		return FirstInit, nil
	case "second":
		return SecondInit, nil
	default:
		return 0, fmt.Errorf("unknown init mode %q (want first or second)", s)
	}
}

// TestMode is the factory test (ATE) configuration value. Zero is normal
// operation; 1 and 6 are recognised variants, anything else selects the
// diagnostic path.
type TestMode int

const (
	TestNone     TestMode = 0
	TestWiring   TestMode = 1
	TestSelfTest TestMode = 6
)

type pathKind int

const (
	pathFirstInit pathKind = iota
	pathSecondInit
	pathATEWiring
	pathATESelfTest
	pathDiagnostic
)

func (k pathKind) String() string {
	switch k {
	case pathFirstInit:
		return "first-init"
	case pathSecondInit:
		return "second-init"
	case pathATEWiring:
		return "ate-wiring"
	case pathATESelfTest:
		return "ate-self-test"
	case pathDiagnostic:
		return "diagnostic"
	default:
		return "unknown"
	}
}

type waitKind int

const (
	waitBootup waitKind = iota
	waitResetting
)

// plan is the bring-up path, decided once from the session options.
type plan struct {
	kind     pathKind
	firmware string
	download bool
	wait     waitKind
}

func planFor(init InitMode, test TestMode, skipDownload bool) plan {
	var p plan

	switch test {
	case TestNone:
		if init == FirstInit {
			p.kind = pathFirstInit
		} else {
			p.kind = pathSecondInit
		}
	case TestWiring:
		p.kind = pathATEWiring
	case TestSelfTest:
		p.kind = pathATESelfTest
	default:
		return plan{kind: pathDiagnostic}
	}

	switch {
	case p.kind == pathATEWiring:
		p.firmware = firmware.NameATEConfig
	case init == FirstInit:
		p.firmware = firmware.NameFirstInit
	default:
		p.firmware = firmware.NameSecondInit
	}

	if init == SecondInit || p.kind == pathATEWiring {
		p.wait = waitBootup
	} else {
		p.wait = waitResetting
	}

	p.download = !skipDownload
	return p
}
