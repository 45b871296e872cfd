package debug

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/valerio/go-xray/xray/addr"
	"github.com/valerio/go-xray/xray/disasm"
	"github.com/valerio/go-xray/xray/memory"
	"github.com/valerio/go-xray/xray/protocol"
)

// ConnState is the state of the connection to the system under test.
type ConnState int

const (
	Disconnected ConnState = iota
	Connecting
	Connected
)

func (s ConnState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return fmt.Sprintf("ConnState(%d)", int(s))
	}
}

// MemoryReader provides read-only access to the session's memory image.
type MemoryReader interface {
	// At reads a single byte.
	At(address uint16) uint8
	// Read reads a single byte, failing for addresses outside the address space.
	Read(address int) (uint8, error)
	// IsChanged reports whether the byte changed on the most recent update.
	IsChanged(address int) bool
	ChangedCount() int
	LastUpdate() (start, length int)
	Range(start uint16, n int) []byte
}

// Callbacks lets the view layer react to state changes. Every field is optional.
type Callbacks struct {
	OnConnState   func(state ConnState)
	OnContext     func(ctx protocol.Context)
	OnRegisters   func(regs protocol.Registers)
	OnBreakpoints func(list []protocol.Breakpoint)
	OnMemory      func()
}

// Session tracks everything known about the system under test. It is owned
// by a single goroutine; the view layer only reads from it.
type Session struct {
	mem       *memory.Snapshot
	index     *Index
	predictor Predictor
	callbacks Callbacks

	state ConnState

	context    protocol.Context
	hasContext bool

	registers    protocol.Registers
	hasRegisters bool
	pc           uint16
	sp           uint16
	prevPC       uint16

	breakpoints []protocol.Breakpoint
	predicted   []uint16
}

// NewSession creates a disconnected session with zeroed memory.
func NewSession(d Disassembler, cb Callbacks) *Session {
	index := NewIndex(d)
	return &Session{
		mem:       memory.New(),
		index:     index,
		predictor: NewPredictor(index),
		callbacks: cb,
		state:     Disconnected,
	}
}

// SetConnState moves the connection state machine. Any state may drop to
// Disconnected; otherwise only Disconnected -> Connecting -> Connected is
// allowed. Illegal transitions are logged and ignored.
func (s *Session) SetConnState(next ConnState) bool {
	if next == s.state {
		return true
	}

	legal := next == Disconnected ||
		(s.state == Disconnected && next == Connecting) ||
		(s.state == Connecting && next == Connected)
	if !legal {
		slog.Warn("Ignoring illegal connection state transition", "from", s.state, "to", next)
		return false
	}

	slog.Debug("Connection state changed", "from", s.state, "to", next)
	s.state = next
	if s.callbacks.OnConnState != nil {
		s.callbacks.OnConnState(next)
	}
	return true
}

// ConnState returns the current connection state.
func (s *Session) ConnState() ConnState {
	return s.state
}

// HandleText decodes and applies a JSON status message. Malformed messages
// are dropped and the previous state is kept.
func (s *Session) HandleText(data []byte) error {
	m, err := protocol.DecodeMessage(data)
	if err != nil {
		return err
	}
	s.ApplyMessage(m)
	return nil
}

// ApplyMessage applies every field present in the message.
func (s *Session) ApplyMessage(m protocol.Message) {
	if m.Context != nil {
		s.OnContextUpdate(*m.Context)
	}
	if m.HasBreakpoints {
		s.OnBreakpointUpdate(m.Breakpoints)
	}
	if m.Registers != nil {
		s.OnRegisterUpdate(*m.Registers)
	}
}

// OnContextUpdate stores the description of the system under test.
func (s *Session) OnContextUpdate(ctx protocol.Context) {
	s.context = ctx
	s.hasContext = true
	if s.callbacks.OnContext != nil {
		s.callbacks.OnContext(ctx)
	}
}

// OnRegisterUpdate stores the registers, rebuilds the instruction index from
// the current memory image and recomputes the predicted next addresses.
//
// Memory may be older than the registers; the disassembly catches up on the
// next register update.
func (s *Session) OnRegisterUpdate(regs protocol.Registers) {
	s.prevPC = s.pc
	s.pc = regs.PC
	s.sp = regs.SP
	s.registers = regs
	s.hasRegisters = true

	s.index.Rebuild(s.mem.Image(), s.entryPoints())

	next, err := s.predictor.PredictNext(s.pc)
	if err != nil {
		slog.Warn("Cannot predict next instruction", "error", err)
		next = nil
	}
	s.predicted = next

	if s.callbacks.OnRegisters != nil {
		s.callbacks.OnRegisters(regs)
	}
}

// entryPoints always includes the reset vector and the current PC.
func (s *Session) entryPoints() []uint16 {
	if s.pc == addr.Reset {
		return []uint16{addr.Reset}
	}
	return []uint16{addr.Reset, s.pc}
}

// OnBreakpointUpdate replaces the breakpoint list when it differs by value
// from the current one and reports whether it did.
func (s *Session) OnBreakpointUpdate(list []protocol.Breakpoint) bool {
	if protocol.EqualBreakpoints(s.breakpoints, list) {
		return false
	}

	s.breakpoints = slices.Clone(list)
	slog.Debug("Breakpoints updated", "count", len(list))
	if s.callbacks.OnBreakpoints != nil {
		s.callbacks.OnBreakpoints(s.Breakpoints())
	}
	return true
}

// OnMemoryUpdate applies a binary memory frame. Malformed frames are dropped
// and the previous memory state is kept.
func (s *Session) OnMemoryUpdate(frame []byte) error {
	p, err := memory.ParsePayload(frame)
	if err != nil {
		return err
	}
	if err := s.mem.Apply(p); err != nil {
		return err
	}

	if s.callbacks.OnMemory != nil {
		s.callbacks.OnMemory()
	}
	return nil
}

// RequestMemoryRefresh builds the command asking for either the whole
// address space or only video RAM. The reply arrives through OnMemoryUpdate.
func (s *Session) RequestMemoryRefresh(full bool) protocol.Command {
	if full {
		return protocol.GetMemory(0, addr.Space)
	}
	return protocol.GetMemory(int(addr.VideoStart), addr.VideoSize)
}

// PC returns the current program counter.
func (s *Session) PC() uint16 {
	return s.pc
}

// SP returns the current stack pointer.
func (s *Session) SP() uint16 {
	return s.sp
}

// PrevPC returns the program counter of the previous register update.
func (s *Session) PrevPC() uint16 {
	return s.prevPC
}

// Registers returns the last register update, if any.
func (s *Session) Registers() (protocol.Registers, bool) {
	return s.registers, s.hasRegisters
}

// Context returns the last context update, if any.
func (s *Session) Context() (protocol.Context, bool) {
	return s.context, s.hasContext
}

// Breakpoints returns a copy of the current breakpoint list.
func (s *Session) Breakpoints() []protocol.Breakpoint {
	return slices.Clone(s.breakpoints)
}

// BreakpointAt returns the first breakpoint set on address.
func (s *Session) BreakpointAt(address uint16) (protocol.Breakpoint, bool) {
	for _, bp := range s.breakpoints {
		if bp.Address == address {
			return bp, true
		}
	}
	return protocol.Breakpoint{}, false
}

// PredictedNext returns the addresses execution may reach after the current PC.
func (s *Session) PredictedNext() []uint16 {
	return slices.Clone(s.predicted)
}

// Memory returns read-only access to the memory image.
func (s *Session) Memory() MemoryReader {
	return s.mem
}

// Index returns the instruction index built on the last register update.
func (s *Session) Index() *Index {
	return s.index
}

// TypeAt returns the semantic type of the byte at address.
func (s *Session) TypeAt(address uint16) string {
	return s.index.TypeAt(address)
}

// Current returns the instruction at the current PC.
func (s *Session) Current() (disasm.Instruction, error) {
	in, ok := s.index.Lookup(s.pc)
	if !ok {
		return disasm.Instruction{}, fmt.Errorf("%w: 0x%04X", ErrLookupMiss, s.pc)
	}
	return in, nil
}
