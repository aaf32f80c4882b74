package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/toyohara-midori/dcin/internal/core/apperror"
	"github.com/toyohara-midori/dcin/internal/core/clock"
)

// Mode selects the operating mode of the pipeline.
type Mode string

const (
	// ModeNormal is the standard overnight reservation run.
	ModeNormal Mode = "normal"

	// ModeSameDay is the morning same-day run. It additionally requires
	// every order date to be exactly today.
	ModeSameDay Mode = "sameday"
)

// ParseMode validates a mode string from the transport layer. An empty
// string defaults to the normal run.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModeNormal, nil
	case ModeNormal, ModeSameDay:
		return Mode(s), nil
	default:
		return "", apperror.NewValidation(fmt.Sprintf("unknown operating mode %q", s))
	}
}

// Window is a daily reception window in server-authoritative time.
type Window struct {
	Start string // "HH:MM"
	End   string // "HH:MM"
}

// HoursGate rejects staging/commit operations outside the configured daily
// reception window. Advisory at staging time, authoritative at commit time:
// the two may be minutes apart, so commit always re-checks.
type HoursGate struct {
	clk     clock.Clock
	windows map[Mode]Window
}

// DefaultWindows returns the production reception windows.
func DefaultWindows() map[Mode]Window {
	return map[Mode]Window{
		ModeNormal:  {Start: "08:00", End: "20:00"},
		ModeSameDay: {Start: "05:00", End: "10:50"},
	}
}

// NewHoursGate creates a gate over the given windows. Pass nil to use
// DefaultWindows.
func NewHoursGate(clk clock.Clock, windows map[Mode]Window) *HoursGate {
	if windows == nil {
		windows = DefaultWindows()
	}
	return &HoursGate{clk: clk, windows: windows}
}

// Check returns nil when the current authoritative time-of-day falls inside
// the mode's window (inclusive on both ends), or a descriptive error naming
// the window otherwise.
func (g *HoursGate) Check(ctx context.Context, mode Mode) error {
	w, ok := g.windows[mode]
	if !ok {
		return apperror.NewValidation(fmt.Sprintf("unknown operating mode %q", mode))
	}

	start, err := secondsOfDay(w.Start)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("bad window start %q: %w", w.Start, err))
	}
	end, err := secondsOfDay(w.End)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("bad window end %q: %w", w.End, err))
	}

	// Full time-of-day comparison: the end bound closes at HH:MM:00 sharp,
	// so 20:00:59 is already outside a window ending at 20:00.
	now := g.clk.Now(ctx)
	cur := now.Hour()*3600 + now.Minute()*60 + now.Second()
	if cur < start || cur > end {
		return apperror.NewOutsideWindow(string(mode), w.Start, w.End)
	}
	return nil
}

func secondsOfDay(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*3600 + t.Minute()*60, nil
}
