package terminal

import (
	"fmt"
	"log/slog"
	"time"
	"unicode"

	"github.com/gdamore/tcell/v2"
	"github.com/valerio/go-xray/xray/addr"
	"github.com/valerio/go-xray/xray/backend"
	"github.com/valerio/go-xray/xray/backend/terminal/render"
	"github.com/valerio/go-xray/xray/input"
	"github.com/valerio/go-xray/xray/input/action"
	"github.com/valerio/go-xray/xray/input/event"
)

const (
	screenPanelWidth = addr.ScreenColumns + 2
	registerHeight   = 9
	bytesPerRow      = 16
	minTermWidth     = 120
	minTermHeight    = 36
	logBufferSize    = 200

	// keyTimeout is how long a captured key counts as held without a repeat.
	keyTimeout = 150 * time.Millisecond
)

// Backend implements the Backend interface using tcell for terminal rendering
type Backend struct {
	screen     tcell.Screen
	running    bool
	logBuffer  *render.LogBuffer
	logLevel   slog.Level
	config     backend.Config
	eventQueue []backend.InputEvent // Collect events to return

	capture  bool               // Keyboard capture active on last update
	heldKeys map[string]heldKey // Keys forwarded to the system under test
	now      func() time.Time
}

type heldKey struct {
	shift bool
	last  time.Time
}

// New creates a new terminal backend
func New() *Backend {
	return &Backend{
		logLevel: slog.LevelInfo,
		now:      time.Now,
	}
}

// NewWithScreen creates a terminal backend drawing to an existing screen
func NewWithScreen(s tcell.Screen) *Backend {
	t := New()
	t.screen = s
	return t
}

// Init initializes the terminal backend
func (t *Backend) Init(config backend.Config) error {
	t.config = config
	t.logLevel = config.LogLevel
	t.eventQueue = make([]backend.InputEvent, 0)
	t.heldKeys = make(map[string]heldKey)

	if t.screen == nil {
		s, err := tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("failed to initialize terminal: %w", err)
		}
		t.screen = s
	}

	if err := t.screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize terminal: %w", err)
	}
	t.running = true

	// Capture every level; the panel filters on display.
	t.logBuffer = render.NewLogBuffer(logBufferSize)
	handler := render.NewLogBufferHandler(t.logBuffer, slog.LevelDebug)
	slog.SetDefault(slog.New(handler))

	slog.Info("Terminal backend initialized", "title", config.Title)

	t.screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	t.screen.Clear()

	return nil
}

// Update renders the view and processes events
func (t *Backend) Update(view *backend.View) ([]backend.InputEvent, error) {
	now := t.now()
	t.capture = view.KeyboardCapture

	// Poll for input events synchronously
	for t.screen.HasPendingEvent() {
		switch ev := t.screen.PollEvent().(type) {
		case *tcell.EventKey:
			t.processKeyEvent(ev, now)
		case *tcell.EventResize:
			t.screen.Sync()
		}
	}

	t.releaseExpiredKeys(now)

	events := t.eventQueue
	t.eventQueue = nil
	for _, evt := range events {
		if evt.Key == nil {
			slog.Debug("UI event", "action", action.GetInfo(evt.Action).Description, "type", evt.Type)
		}
	}

	if !t.running {
		return events, nil
	}

	t.render(view)
	t.screen.Show()

	return events, nil
}

// Cleanup cleans up terminal resources
func (t *Backend) Cleanup() error {
	if t.screen != nil {
		slog.Info("Cleaning up terminal backend")
		t.screen.Fini()
	}
	return nil
}

// HandleAction processes backend-specific actions
func (t *Backend) HandleAction(act action.Action) {
	switch act {
	case action.LogLevelIncrease:
		t.changeLogLevel(1)
	case action.LogLevelDecrease:
		t.changeLogLevel(-1)
	}
}

// LogLevel returns the minimum level shown in the log panel
func (t *Backend) LogLevel() slog.Level {
	return t.logLevel
}

func (t *Backend) processKeyEvent(ev *tcell.EventKey, now time.Time) {
	if ev.Key() == tcell.KeyCtrlC {
		t.quit()
		return
	}

	name := keyName(ev)
	if name == "" {
		return
	}

	if act, ok := input.GetDefaultMapping(name); ok && (!t.capture || act == action.KeyboardCapture) {
		slog.Debug("Key event", "key", name, "action", action.GetInfo(act).Description)
		if act == action.Quit {
			t.quit()
			return
		}
		t.eventQueue = append(t.eventQueue, backend.InputEvent{Action: act, Type: event.Press})
		return
	}

	if t.capture {
		t.forwardKey(name, ev, now)
	}
}

func (t *Backend) quit() {
	t.running = false
	t.eventQueue = append(t.eventQueue, backend.InputEvent{Action: action.Quit, Type: event.Press})
}

// forwardKey sends a key down the first time it is seen and refreshes its
// hold time on repeats. Terminals report no key release, so the key is let
// go once repeats stop arriving.
func (t *Backend) forwardKey(name string, ev *tcell.EventKey, now time.Time) {
	shift := ev.Modifiers()&tcell.ModShift != 0
	if ev.Key() == tcell.KeyRune && unicode.IsUpper(ev.Rune()) {
		shift = true
	}

	if _, held := t.heldKeys[name]; !held {
		t.eventQueue = append(t.eventQueue, backend.InputEvent{
			Type: event.Press,
			Key:  &backend.KeyPress{Down: true, Shift: shift, Key: name},
		})
	}
	t.heldKeys[name] = heldKey{shift: shift, last: now}
}

func (t *Backend) releaseExpiredKeys(now time.Time) {
	for name, k := range t.heldKeys {
		if t.capture && now.Sub(k.last) < keyTimeout {
			continue
		}
		delete(t.heldKeys, name)
		t.eventQueue = append(t.eventQueue, backend.InputEvent{
			Type: event.Release,
			Key:  &backend.KeyPress{Down: false, Shift: k.shift, Key: name},
		})
	}
}

// tcellKeyNameMap converts tcell keys to key names used in default mappings
// and in key events sent to the system under test
var tcellKeyNameMap = map[tcell.Key]string{
	tcell.KeyEnter:      "Enter",
	tcell.KeyTab:        "Tab",
	tcell.KeyBackspace:  "Backspace",
	tcell.KeyBackspace2: "Backspace",
	tcell.KeyUp:         "Up",
	tcell.KeyDown:       "Down",
	tcell.KeyLeft:       "Left",
	tcell.KeyRight:      "Right",
	tcell.KeyPgUp:       "PageUp",
	tcell.KeyPgDn:       "PageDown",
	tcell.KeyHome:       "Home",
	tcell.KeyEscape:     "Escape",
}

func keyName(ev *tcell.EventKey) string {
	if ev.Key() == tcell.KeyRune {
		if ev.Rune() == ' ' {
			return "Space"
		}
		return string(ev.Rune())
	}
	return tcellKeyNameMap[ev.Key()]
}

func (t *Backend) changeLogLevel(direction int) {
	oldLevel := t.logLevel
	switch direction {
	case -1:
		switch t.logLevel {
		case slog.LevelDebug:
			t.logLevel = slog.LevelInfo
		case slog.LevelInfo:
			t.logLevel = slog.LevelWarn
		case slog.LevelWarn:
			t.logLevel = slog.LevelError
		}
	case 1:
		switch t.logLevel {
		case slog.LevelError:
			t.logLevel = slog.LevelWarn
		case slog.LevelWarn:
			t.logLevel = slog.LevelInfo
		case slog.LevelInfo:
			t.logLevel = slog.LevelDebug
		}
	}
	if oldLevel != t.logLevel {
		slog.Info("Log filter changed", "from", oldLevel, "to", t.logLevel)
	}
}
