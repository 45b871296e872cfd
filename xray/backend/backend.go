package backend

import (
	"log/slog"

	"github.com/valerio/go-xray/xray/debug"
	"github.com/valerio/go-xray/xray/input/action"
	"github.com/valerio/go-xray/xray/input/event"
	"github.com/valerio/go-xray/xray/regions"
)

// Backend represents a complete front end for the debugger (rendering + input).
// Backends are responsible for:
// - Rendering the session state to their specific output
// - Translating platform-specific input events to Actions
// - Forwarding raw key presses while keyboard capture is enabled
type Backend interface {
	// Init configures the backend with the provided configuration.
	// This is a required step before calling Update.
	Init(config Config) error

	// Update renders the view and returns the input collected since the
	// previous call.
	Update(view *View) ([]InputEvent, error)

	// Cleanup resources when shutting down
	Cleanup() error
}

// Config holds configuration for backends
type Config struct {
	Title    string
	LogLevel slog.Level
}

// KeyPress is a raw key meant for the system under test.
type KeyPress struct {
	Down  bool
	Shift bool
	Key   string
}

// InputEvent is either an action or, while keyboard capture is on, a raw key.
type InputEvent struct {
	Action action.Action
	Type   event.Type
	Key    *KeyPress
}

// View is the read-only state handed to a backend on every update. It is
// only valid for the duration of the Update call.
type View struct {
	Session *debug.Session

	// Selected is the address under the memory cursor.
	Selected uint16
	// SelectedRegions are the memory regions containing Selected.
	SelectedRegions []regions.Region

	URL             string
	FullMemory      bool
	KeyboardCapture bool

	// Updates counts register updates received since start.
	Updates uint64
}
