package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const demoMessage = `{"context":{"system_name":"sdlTRS","model":3,"running":true,"alt_single_step_mode":false},` +
	`"breakpoints":[{"id":0,"address":4656,"type":0},{"id":1,"address":6163,"type":1}],` +
	`"registers":{"pc":2,"sp":65535,"af":68,"bc":0,"de":0,"hl":0,"af_prime":0,"bc_prime":0,` +
	`"de_prime":0,"hl_prime":0,"ix":0,"iy":0,"i":0,"r_1":0,"r_2":2,"z80_t_state_counter":8,` +
	`"z80_clockspeed":2.0299999713897705,"z80_iff1":0,"z80_iff2":0,"z80_interrupt_mode":0}}`

func TestDecodeMessage_AllFields(t *testing.T) {
	m, err := DecodeMessage([]byte(demoMessage))
	require.NoError(t, err)

	require.NotNil(t, m.Context)
	assert.Equal(t, "sdlTRS", m.Context.SystemName)
	assert.Equal(t, 3, m.Context.Model)
	assert.True(t, m.Context.Running)

	assert.True(t, m.HasBreakpoints)
	assert.Equal(t, []Breakpoint{
		{ID: 0, Address: 4656, Type: ProgramCounter},
		{ID: 1, Address: 6163, Type: MemoryWatch},
	}, m.Breakpoints)

	require.NotNil(t, m.Registers)
	assert.Equal(t, uint16(2), m.Registers.PC)
	assert.Equal(t, uint16(0xFFFF), m.Registers.SP)
	assert.Equal(t, uint64(8), m.Registers.TStates)
	assert.InDelta(t, 2.03, m.Registers.ClockSpeed, 0.001)
}

func TestDecodeMessage_OptionalFields(t *testing.T) {
	tests := []struct {
		name           string
		input          string
		hasContext     bool
		hasBreakpoints bool
		hasRegisters   bool
		wantErr        bool
	}{
		{"context only", `{"context":{"system_name":"x"}}`, true, false, false, false},
		{"registers only", `{"registers":{"pc":16}}`, false, false, true, false},
		{"empty breakpoint list", `{"breakpoints":[]}`, false, true, false, false},
		{"null breakpoints", `{"breakpoints":null,"registers":{}}`, false, false, true, false},
		{"no recognised field", `{"foo":1}`, false, false, false, true},
		{"empty object", `{}`, false, false, false, true},
		{"invalid json", `{"context":`, false, false, false, true},
		{"not an object", `[1,2]`, false, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := DecodeMessage([]byte(tt.input))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedMessage)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.hasContext, m.Context != nil)
			assert.Equal(t, tt.hasBreakpoints, m.HasBreakpoints)
			assert.Equal(t, tt.hasRegisters, m.Registers != nil)
		})
	}
}

func TestDecodeMessage_EmptyListIsNotNil(t *testing.T) {
	m, err := DecodeMessage([]byte(`{"breakpoints":[]}`))
	require.NoError(t, err)
	assert.NotNil(t, m.Breakpoints)
	assert.Empty(t, m.Breakpoints)
}

func TestEncodeMessage(t *testing.T) {
	m := Message{
		Registers:      &Registers{PC: 0x10, SP: 0x4000},
		HasBreakpoints: true,
	}

	data, err := EncodeMessage(m)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"breakpoints":[]`)
	assert.NotContains(t, string(data), `"context"`)

	decoded, err := DecodeMessage(data)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x10), decoded.Registers.PC)
	assert.True(t, decoded.HasBreakpoints)
}

func TestEqualBreakpoints(t *testing.T) {
	a := []Breakpoint{{ID: 1, Address: 10, Type: ProgramCounter}}
	b := []Breakpoint{{ID: 1, Address: 10, Type: ProgramCounter}}
	c := []Breakpoint{{ID: 1, Address: 10, Type: MemoryWatch}}

	assert.True(t, EqualBreakpoints(a, b))
	assert.False(t, EqualBreakpoints(a, c))
	assert.False(t, EqualBreakpoints(a, nil))
	assert.True(t, EqualBreakpoints(nil, []Breakpoint{}))
}

func TestRegisters_Derived(t *testing.T) {
	r := Registers{AF: 0x41C1, R1: 0x85, R2: 0x80}

	assert.Equal(t, uint8(0x41), r.A())
	assert.Equal(t, uint8(0xC1), r.F())
	assert.Equal(t, "SZ-----C", r.Flags())
	assert.Equal(t, uint8(0x85), r.R())

	r.R2 = 0
	assert.Equal(t, uint8(0x05), r.R())
}

func TestBreakpointType_String(t *testing.T) {
	assert.Equal(t, "Program Counter", ProgramCounter.String())
	assert.Equal(t, "Memory Watch", MemoryWatch.String())
	assert.Equal(t, "IO Watch", IOWatch.String())
	assert.Equal(t, "BreakpointType(9)", BreakpointType(9).String())
}
