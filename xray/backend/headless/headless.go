package headless

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/valerio/go-xray/xray/backend"
	"github.com/valerio/go-xray/xray/debug"
	"github.com/valerio/go-xray/xray/input/action"
	"github.com/valerio/go-xray/xray/input/event"
)

// Backend implements the Backend interface for scripted tracing. It logs a
// summary of every register update and quits after a fixed number of them.
type Backend struct {
	config     backend.Config
	maxUpdates uint64
	step       bool

	lastUpdates uint64
	requested   bool
}

// New creates a headless backend. maxUpdates of 0 runs until cancelled.
// With step set, a single step is requested after each register update,
// turning the run into an instruction trace.
func New(maxUpdates int, step bool) *Backend {
	return &Backend{
		maxUpdates: uint64(max(maxUpdates, 0)),
		step:       step,
	}
}

func (h *Backend) Init(config backend.Config) error {
	h.config = config

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.LogLevel,
	})
	slog.SetDefault(slog.New(handler))

	slog.Info("Running headless mode", "updates", h.maxUpdates, "step", h.step)
	return nil
}

// Update logs new register updates and returns the next scripted events
func (h *Backend) Update(view *backend.View) ([]backend.InputEvent, error) {
	var events []backend.InputEvent
	s := view.Session

	if s.ConnState() != debug.Connected {
		h.requested = false
		return nil, nil
	}

	if view.Updates == 0 {
		// Ask for a first snapshot so there is something to trace.
		if !h.requested {
			h.requested = true
			events = append(events, backend.InputEvent{Action: action.Refresh, Type: event.Press})
		}
		return events, nil
	}

	if view.Updates == h.lastUpdates {
		return nil, nil
	}
	h.lastUpdates = view.Updates

	slog.Info("Register update", Summary(s)...)

	if h.maxUpdates > 0 && view.Updates >= h.maxUpdates {
		slog.Info("Headless execution completed", "updates", view.Updates)
		return []backend.InputEvent{{Action: action.Quit, Type: event.Press}}, nil
	}

	if h.step {
		events = append(events, backend.InputEvent{Action: action.Step, Type: event.Press})
	}
	return events, nil
}

func (h *Backend) Cleanup() error {
	return nil
}

// Summary returns the log attributes describing the current session state
func Summary(s *debug.Session) []any {
	attrs := []any{
		"pc", fmt.Sprintf("0x%04X", s.PC()),
		"sp", fmt.Sprintf("0x%04X", s.SP()),
	}

	if regs, ok := s.Registers(); ok {
		attrs = append(attrs, "af", fmt.Sprintf("0x%04X", regs.AF), "flags", regs.Flags())
	}

	if in, err := s.Current(); err == nil {
		attrs = append(attrs, "instruction", strings.TrimSpace(in.String()))
	}

	next := s.PredictedNext()
	hexNext := make([]string, len(next))
	for i, a := range next {
		hexNext[i] = fmt.Sprintf("0x%04X", a)
	}
	attrs = append(attrs, "next", strings.Join(hexNext, ","))

	if bp, ok := s.BreakpointAt(s.PC()); ok {
		attrs = append(attrs, "breakpoint", bp.ID)
	}
	return attrs
}
