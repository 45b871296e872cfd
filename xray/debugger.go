package xray

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/valerio/go-xray/xray/addr"
	"github.com/valerio/go-xray/xray/backend"
	"github.com/valerio/go-xray/xray/debug"
	"github.com/valerio/go-xray/xray/disasm"
	"github.com/valerio/go-xray/xray/input"
	"github.com/valerio/go-xray/xray/input/action"
	"github.com/valerio/go-xray/xray/input/event"
	"github.com/valerio/go-xray/xray/protocol"
	"github.com/valerio/go-xray/xray/regions"
	"github.com/valerio/go-xray/xray/transport"
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// DefaultRenderInterval is how often the backend is updated.
const DefaultRenderInterval = time.Second / 30

const rowBytes = 16

// Config holds the debugger settings.
type Config struct {
	URL            string
	Retry          time.Duration
	FullMemory     bool
	RegionsPath    string
	RenderInterval time.Duration
}

// Validate checks the configuration and fills in defaults.
func (c *Config) Validate() error {
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("%w: url: %v", ErrInvalidConfig, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("%w: url scheme must be ws or wss, got %q", ErrInvalidConfig, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: url has no host", ErrInvalidConfig)
	}

	if c.Retry < 0 {
		return fmt.Errorf("%w: negative retry interval", ErrInvalidConfig)
	}
	if c.Retry == 0 {
		c.Retry = transport.DefaultRetry
	}
	if c.RenderInterval <= 0 {
		c.RenderInterval = DefaultRenderInterval
	}
	return nil
}

// Sender delivers commands to the system under test.
type Sender interface {
	Send(cmd protocol.Command) error
}

// ActionHandler is implemented by backends that handle some actions
// themselves, such as changing the log filter.
type ActionHandler interface {
	HandleAction(act action.Action)
}

// Debugger ties the session to a transport and a front end. All of its state
// is owned by the goroutine calling Run.
type Debugger struct {
	config  Config
	session *debug.Session
	sender  Sender
	inputs  *input.Manager
	regions *regions.Table
	reloads chan *regions.Table
	handler ActionHandler

	selected   uint16
	fullMemory bool
	capture    bool
	updates    uint64
	quit       bool
}

// New creates a debugger sending commands through sender.
func New(config Config, sender Sender) *Debugger {
	d := &Debugger{
		config:     config,
		sender:     sender,
		inputs:     input.NewManager(),
		regions:    regions.Default(),
		reloads:    make(chan *regions.Table, 1),
		selected:   addr.VideoStart,
		fullMemory: config.FullMemory,
	}
	d.session = debug.NewSession(disasm.Engine{}, debug.Callbacks{
		OnRegisters: func(protocol.Registers) { d.updates++ },
	})

	for act := action.Step; act <= action.Quit; act++ {
		act := act
		d.inputs.On(act, event.Press, func() { d.Perform(act) })
	}
	return d
}

// Session returns the debugging session.
func (d *Debugger) Session() *debug.Session {
	return d.session
}

// Selected returns the address under the memory cursor.
func (d *Debugger) Selected() uint16 {
	return d.selected
}

// FullMemory reports whether refreshes request the whole address space.
func (d *Debugger) FullMemory() bool {
	return d.fullMemory
}

// KeyboardCapture reports whether keys are forwarded to the system under test.
func (d *Debugger) KeyboardCapture() bool {
	return d.capture
}

// Regions returns the memory region table in use.
func (d *Debugger) Regions() *regions.Table {
	return d.regions
}

// SetRegions replaces the region table. Safe to call from any goroutine;
// the table is swapped on the Run goroutine.
func (d *Debugger) SetRegions(t *regions.Table) {
	select {
	case d.reloads <- t:
	default:
		// drop the pending table in favour of the newer one
		select {
		case <-d.reloads:
		default:
		}
		d.reloads <- t
	}
}

// HandleEvent applies a transport event to the session.
func (d *Debugger) HandleEvent(ev transport.Event) {
	switch ev.Kind {
	case transport.EventConnecting:
		d.session.SetConnState(debug.Connecting)
	case transport.EventConnected:
		d.session.SetConnState(debug.Connected)
		d.send(d.session.RequestMemoryRefresh(true))
	case transport.EventDisconnected:
		if d.session.ConnState() == debug.Connected {
			slog.Warn("Disconnected from system under test", "conn", ev.ConnID, "error", ev.Err)
		} else if ev.Err != nil {
			slog.Debug("Connection attempt failed", "conn", ev.ConnID, "error", ev.Err)
		}
		d.session.SetConnState(debug.Disconnected)
	case transport.EventText:
		if err := d.session.HandleText(ev.Data); err != nil {
			slog.Warn("Dropping status message", "error", err, "length", len(ev.Data))
		}
	case transport.EventBinary:
		if err := d.session.OnMemoryUpdate(ev.Data); err != nil {
			slog.Warn("Dropping memory update", "error", err, "length", len(ev.Data))
		}
	}
}

// HandleInput dispatches an event from the backend. Raw keys go to the
// system under test; actions go through the input manager.
func (d *Debugger) HandleInput(ev backend.InputEvent) {
	if ev.Key != nil {
		d.send(protocol.KeyEvent(ev.Key.Down, ev.Key.Shift, ev.Key.Key))
		return
	}
	d.inputs.Trigger(ev.Action, ev.Type)
}

// Perform carries out a user action.
func (d *Debugger) Perform(act action.Action) {
	switch act {
	case action.Step:
		d.control(protocol.Step)
	case action.Continue:
		d.control(protocol.Continue)
	case action.Stop:
		d.control(protocol.Stop)
	case action.SoftReset:
		d.control(protocol.SoftReset)
	case action.HardReset:
		d.control(protocol.HardReset)

	case action.ToggleFullMemory:
		d.fullMemory = !d.fullMemory
		slog.Info("Full memory updates toggled", "enabled", d.fullMemory)
	case action.ForceMemoryUpdate:
		d.send(protocol.ForceMemoryUpdate)
	case action.InjectDemo:
		d.send(protocol.InjectDemo)
	case action.Refresh:
		d.send(protocol.Refresh)
	case action.PokeIncrement:
		d.poke(1)
	case action.PokeDecrement:
		d.poke(-1)

	case action.AddBreakpointPC:
		d.send(protocol.AddBreakpoint(protocol.ProgramCounter, d.selected))
	case action.AddBreakpointMemory:
		d.send(protocol.AddBreakpoint(protocol.MemoryWatch, d.selected))
	case action.AddBreakpointIO:
		d.send(protocol.AddBreakpoint(protocol.IOWatch, d.selected))
	case action.RemoveBreakpoint:
		bp, ok := d.session.BreakpointAt(d.selected)
		if !ok {
			slog.Warn("No breakpoint at selected address", "address", disasm.FormatAddress(d.selected))
			return
		}
		d.send(protocol.RemoveBreakpoint(bp.ID))

	case action.SelectUp:
		d.selected -= rowBytes
	case action.SelectDown:
		d.selected += rowBytes
	case action.SelectLeft:
		d.selected--
	case action.SelectRight:
		d.selected++
	case action.SelectPageUp:
		d.selected -= rowBytes * rowBytes
	case action.SelectPageDown:
		d.selected += rowBytes * rowBytes
	case action.SelectPC:
		d.selected = d.session.PC()

	case action.KeyboardCapture:
		d.capture = !d.capture
		slog.Info("Keyboard capture toggled", "enabled", d.capture)
	case action.Quit:
		d.quit = true

	default:
		if d.handler != nil {
			d.handler.HandleAction(act)
		}
	}
}

// control sends an execution command followed by a memory refresh so the
// view catches up with whatever the command changed.
func (d *Debugger) control(cmd protocol.Command) {
	if d.send(cmd) {
		d.send(d.session.RequestMemoryRefresh(d.fullMemory))
	}
}

func (d *Debugger) poke(delta int) {
	value := uint8(int(d.session.Memory().At(d.selected)) + delta)
	if d.send(protocol.SetMemory(d.selected, value)) {
		d.send(d.session.RequestMemoryRefresh(d.fullMemory))
	}
}

func (d *Debugger) send(cmd protocol.Command) bool {
	if err := d.sender.Send(cmd); err != nil {
		slog.Warn("Cannot send command", "command", cmd.Name(), "error", err)
		return false
	}
	return true
}

// View returns the state handed to the backend.
func (d *Debugger) View() *backend.View {
	model := 0
	if ctx, ok := d.session.Context(); ok {
		model = ctx.Model
	}

	return &backend.View{
		Session:         d.session,
		Selected:        d.selected,
		SelectedRegions: d.regions.Lookup(d.selected, model),
		URL:             d.config.URL,
		FullMemory:      d.fullMemory,
		KeyboardCapture: d.capture,
		Updates:         d.updates,
	}
}

// Run drives the debugger until the backend asks to quit, the event stream
// ends or ctx is done. Transport events, region reloads and backend updates
// are all handled on the calling goroutine.
func (d *Debugger) Run(ctx context.Context, events <-chan transport.Event, b backend.Backend) error {
	if h, ok := b.(ActionHandler); ok {
		d.handler = h
	}

	interval := d.config.RenderInterval
	if interval <= 0 {
		interval = DefaultRenderInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			d.HandleEvent(ev)
		case t := <-d.reloads:
			d.regions = t
		case <-ticker.C:
			inputs, err := b.Update(d.View())
			if err != nil {
				return fmt.Errorf("backend update: %w", err)
			}
			for _, in := range inputs {
				d.HandleInput(in)
			}
			if d.quit {
				slog.Info("Quit requested")
				return nil
			}
		}
	}
}
