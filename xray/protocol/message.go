package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/valerio/go-xray/xray/bit"
)

// ErrMalformedMessage is returned for status messages that cannot be decoded
// or carry none of the recognised fields.
var ErrMalformedMessage = errors.New("malformed status message")

// Context describes the system under test.
type Context struct {
	SystemName        string `json:"system_name"`
	Model             int    `json:"model"`
	Running           bool   `json:"running"`
	AltSingleStepMode bool   `json:"alt_single_step_mode"`
}

// Registers is the Z80 register file reported by the system under test.
type Registers struct {
	AF uint16 `json:"af"`
	BC uint16 `json:"bc"`
	DE uint16 `json:"de"`
	HL uint16 `json:"hl"`

	AFPrime uint16 `json:"af_prime"`
	BCPrime uint16 `json:"bc_prime"`
	DEPrime uint16 `json:"de_prime"`
	HLPrime uint16 `json:"hl_prime"`

	IX uint16 `json:"ix"`
	IY uint16 `json:"iy"`
	PC uint16 `json:"pc"`
	SP uint16 `json:"sp"`

	I uint8 `json:"i"`
	// R1 holds bits 0-6 of the refresh register, R2 bit 7.
	R1 uint8 `json:"r_1"`
	R2 uint8 `json:"r_2"`

	TStates       uint64  `json:"z80_t_state_counter"`
	ClockSpeed    float64 `json:"z80_clockspeed"`
	IFF1          uint8   `json:"z80_iff1"`
	IFF2          uint8   `json:"z80_iff2"`
	InterruptMode uint8   `json:"z80_interrupt_mode"`
}

// R returns the refresh register assembled from its two halves.
func (r Registers) R() uint8 {
	return (r.R1 & 0x7F) | (r.R2 & 0x80)
}

// A returns the accumulator.
func (r Registers) A() uint8 {
	return bit.High(r.AF)
}

// F returns the flags register.
func (r Registers) F() uint8 {
	return bit.Low(r.AF)
}

// Flags renders F as "SZ5H3PNC", with a dash for every cleared bit.
func (r Registers) Flags() string {
	const names = "SZ5H3PNC"
	f := r.F()
	out := []byte("--------")
	for i := 0; i < 8; i++ {
		if bit.IsSet(uint8(7-i), f) {
			out[i] = names[i]
		}
	}
	return string(out)
}

// BreakpointType identifies what a breakpoint triggers on.
type BreakpointType int

const (
	ProgramCounter BreakpointType = iota
	MemoryWatch
	IOWatch
)

func (t BreakpointType) String() string {
	switch t {
	case ProgramCounter:
		return "Program Counter"
	case MemoryWatch:
		return "Memory Watch"
	case IOWatch:
		return "IO Watch"
	default:
		return fmt.Sprintf("BreakpointType(%d)", int(t))
	}
}

// Breakpoint is a breakpoint registered in the system under test.
type Breakpoint struct {
	ID      int            `json:"id"`
	Address uint16         `json:"address"`
	Type    BreakpointType `json:"type"`
}

// EqualBreakpoints compares two breakpoint lists by value.
func EqualBreakpoints(a, b []Breakpoint) bool {
	return slices.Equal(a, b)
}

// Message is a status update. Every field is optional; HasBreakpoints
// distinguishes an explicit empty list from an absent one.
type Message struct {
	Context        *Context
	Breakpoints    []Breakpoint
	HasBreakpoints bool
	Registers      *Registers
}

// Empty reports whether the message carries no recognised field.
func (m Message) Empty() bool {
	return m.Context == nil && !m.HasBreakpoints && m.Registers == nil
}

type wireMessage struct {
	Context     *Context      `json:"context,omitempty"`
	Breakpoints *[]Breakpoint `json:"breakpoints,omitempty"`
	Registers   *Registers    `json:"registers,omitempty"`
}

// DecodeMessage parses a JSON status message.
func DecodeMessage(data []byte) (Message, error) {
	var wire wireMessage
	if err := json.Unmarshal(data, &wire); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	m := Message{
		Context:   wire.Context,
		Registers: wire.Registers,
	}
	if wire.Breakpoints != nil {
		m.HasBreakpoints = true
		m.Breakpoints = *wire.Breakpoints
		if m.Breakpoints == nil {
			m.Breakpoints = []Breakpoint{}
		}
	}

	if m.Empty() {
		return Message{}, fmt.Errorf("%w: no context, breakpoints or registers", ErrMalformedMessage)
	}
	return m, nil
}

// EncodeMessage renders a message in the format accepted by DecodeMessage.
func EncodeMessage(m Message) ([]byte, error) {
	wire := wireMessage{
		Context:   m.Context,
		Registers: m.Registers,
	}
	if m.HasBreakpoints {
		list := m.Breakpoints
		if list == nil {
			list = []Breakpoint{}
		}
		wire.Breakpoints = &list
	}
	return json.Marshal(wire)
}
