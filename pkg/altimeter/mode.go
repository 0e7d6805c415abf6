package altimeter

import (
	"fmt"
	"strings"
)

// Mode selects how the first reading after a reset is treated.
type Mode int

const (
	// ModeOnLaunch treats every reading as an AGL altitude.
	ModeOnLaunch Mode = iota
	// ModeOnPad captures the first reading as the ground elevation (MSL)
	// and treats the following ones as AGL altitudes.
	ModeOnPad
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case ModeOnLaunch:
		return "launch"
	case ModeOnPad:
		return "pad"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode parses "pad" or "launch" (also "on-pad", "on_launch" etc).
func ParseMode(s string) (Mode, error) {
	norm := strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(s))
	switch norm {
	case "launch", "onlaunch":
		return ModeOnLaunch, nil
	case "pad", "onpad":
		return ModeOnPad, nil
	}
	return ModeOnLaunch, fmt.Errorf("unknown mode %q", s)
}

// State is the baseline capture state of the Driver.
type State int

const (
	// StateAwaitingBaseline waits for the first reading in ModeOnPad.
	StateAwaitingBaseline State = iota
	// StateStreaming queues every parsed reading.
	StateStreaming
)

// String implements fmt.Stringer.
func (s State) String() string {
	if s == StateAwaitingBaseline {
		return "awaiting-baseline"
	}
	return "streaming"
}
