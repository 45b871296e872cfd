package debug

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/go-xray/xray/addr"
	"github.com/valerio/go-xray/xray/disasm"
	"github.com/valerio/go-xray/xray/memory"
	"github.com/valerio/go-xray/xray/protocol"
)

func TestSession_BreakpointUpdateSuppressesDuplicates(t *testing.T) {
	notified := 0
	s := NewSession(&fakeDisassembler{}, Callbacks{
		OnBreakpoints: func([]protocol.Breakpoint) { notified++ },
	})

	list := []protocol.Breakpoint{{ID: 1, Address: 10, Type: protocol.ProgramCounter}}
	assert.True(t, s.OnBreakpointUpdate(list))
	assert.Equal(t, 1, notified)

	same := []protocol.Breakpoint{{ID: 1, Address: 10, Type: protocol.ProgramCounter}}
	assert.False(t, s.OnBreakpointUpdate(same))
	assert.Equal(t, 1, notified, "identical list must not notify")

	assert.True(t, s.OnBreakpointUpdate(nil))
	assert.Equal(t, 2, notified)
	assert.Empty(t, s.Breakpoints())
}

func TestSession_BreakpointListIsReplacedNotShared(t *testing.T) {
	s := NewSession(&fakeDisassembler{}, Callbacks{})

	list := []protocol.Breakpoint{{ID: 1, Address: 10}}
	s.OnBreakpointUpdate(list)
	list[0].Address = 99

	bp, ok := s.BreakpointAt(10)
	require.True(t, ok)
	assert.Equal(t, 1, bp.ID)

	got := s.Breakpoints()
	got[0].ID = 42
	assert.Equal(t, 1, s.Breakpoints()[0].ID)
}

func TestSession_RegisterUpdate(t *testing.T) {
	fake := &fakeDisassembler{instrs: fixedListing()}
	registersSeen := 0
	s := NewSession(fake, Callbacks{
		OnRegisters: func(protocol.Registers) { registersSeen++ },
	})

	s.OnRegisterUpdate(protocol.Registers{PC: 0x0010, SP: 0x4000})

	assert.Equal(t, uint16(0x0010), s.PC())
	assert.Equal(t, uint16(0x4000), s.SP())
	assert.Equal(t, uint16(0), s.PrevPC())
	assert.Equal(t, []uint16{0, 0x0010}, fake.entryPoints)
	assert.Equal(t, addr.Space, fake.memLen)
	assert.Equal(t, []uint16{0x0011}, s.PredictedNext())
	assert.Equal(t, 1, registersSeen)

	s.OnRegisterUpdate(protocol.Registers{PC: 0x0020, SP: 0x3FFE})
	assert.Equal(t, uint16(0x0010), s.PrevPC())
	assert.Equal(t, []uint16{0x0100}, s.PredictedNext())
	assert.Equal(t, 2, fake.calls)

	regs, ok := s.Registers()
	require.True(t, ok)
	assert.Equal(t, uint16(0x3FFE), regs.SP)
}

func TestSession_RegisterUpdateAtResetVector(t *testing.T) {
	fake := &fakeDisassembler{instrs: fixedListing()}
	s := NewSession(fake, Callbacks{})

	s.OnRegisterUpdate(protocol.Registers{PC: 0})
	assert.Equal(t, []uint16{0}, fake.entryPoints)
}

func TestSession_RegisterUpdateLookupMiss(t *testing.T) {
	fake := &fakeDisassembler{instrs: fixedListing()}
	s := NewSession(fake, Callbacks{})

	s.OnRegisterUpdate(protocol.Registers{PC: 0x0010})
	require.NotEmpty(t, s.PredictedNext())

	s.OnRegisterUpdate(protocol.Registers{PC: 0x0011})
	assert.Empty(t, s.PredictedNext())

	_, err := s.Current()
	assert.ErrorIs(t, err, ErrLookupMiss)
	assert.Empty(t, s.Listing(16))
}

func TestSession_RebuildUsesCurrentMemory(t *testing.T) {
	s := NewSession(disasm.Engine{}, Callbacks{})

	// ld a,0x41 ; jp 0x0000
	frame := memory.Payload{Start: 0x0000, Bytes: []byte{0x3E, 0x41, 0xC3, 0x00, 0x00}}.Encode()
	require.NoError(t, s.OnMemoryUpdate(frame))

	s.OnRegisterUpdate(protocol.Registers{PC: 0x0002})

	in, err := s.Current()
	require.NoError(t, err)
	assert.Equal(t, "jp", in.Mnemonic)
	assert.Equal(t, []uint16{0x0000}, s.PredictedNext())
	assert.Equal(t, "ld", s.TypeAt(0x0000))
	assert.Equal(t, disasm.DataMnemonic, s.TypeAt(addr.VideoStart))
}

func TestSession_MemoryUpdate(t *testing.T) {
	memoryUpdates := 0
	s := NewSession(&fakeDisassembler{}, Callbacks{
		OnMemory: func() { memoryUpdates++ },
	})

	image := make([]byte, addr.Space)
	image[0x3C00] = 65
	require.NoError(t, s.OnMemoryUpdate(image))

	assert.Equal(t, uint8(65), s.Memory().At(0x3C00))
	assert.True(t, s.Memory().IsChanged(0x3C00))
	assert.False(t, s.Memory().IsChanged(0x3C01))
	assert.Equal(t, 1, memoryUpdates)

	err := s.OnMemoryUpdate([]byte{0x3C})
	assert.ErrorIs(t, err, memory.ErrMalformedUpdate)
	assert.Equal(t, 1, memoryUpdates)
	assert.True(t, s.Memory().IsChanged(0x3C00), "malformed update keeps previous state")
}

func TestSession_HandleText(t *testing.T) {
	var ctx protocol.Context
	s := NewSession(&fakeDisassembler{instrs: fixedListing()}, Callbacks{
		OnContext: func(c protocol.Context) { ctx = c },
	})

	err := s.HandleText([]byte(`{"context":{"system_name":"sdlTRS","model":1,"running":false},` +
		`"breakpoints":[{"id":2,"address":16,"type":0}],"registers":{"pc":16,"sp":32768}}`))
	require.NoError(t, err)

	assert.Equal(t, "sdlTRS", ctx.SystemName)
	got, ok := s.Context()
	require.True(t, ok)
	assert.Equal(t, 1, got.Model)
	assert.Len(t, s.Breakpoints(), 1)
	assert.Equal(t, uint16(16), s.PC())

	err = s.HandleText([]byte(`{"unknown":true}`))
	assert.ErrorIs(t, err, protocol.ErrMalformedMessage)
	assert.Equal(t, uint16(16), s.PC())
	assert.Len(t, s.Breakpoints(), 1)
}

func TestSession_RequestMemoryRefresh(t *testing.T) {
	s := NewSession(&fakeDisassembler{}, Callbacks{})

	assert.Equal(t, protocol.Command("get_memory/0/65536"), s.RequestMemoryRefresh(true))
	assert.Equal(t, protocol.Command("get_memory/15360/1024"), s.RequestMemoryRefresh(false))
	assert.Equal(t, uint64(0), s.mem.Updates(), "refresh requests never touch memory")
}

func TestSession_ConnState(t *testing.T) {
	var seen []ConnState
	s := NewSession(&fakeDisassembler{}, Callbacks{
		OnConnState: func(st ConnState) { seen = append(seen, st) },
	})

	assert.Equal(t, Disconnected, s.ConnState())
	assert.False(t, s.SetConnState(Connected), "must connect first")
	assert.True(t, s.SetConnState(Connecting))
	assert.True(t, s.SetConnState(Connected))
	assert.True(t, s.SetConnState(Connected))
	assert.False(t, s.SetConnState(Connecting))
	assert.True(t, s.SetConnState(Disconnected))
	assert.True(t, s.SetConnState(Connecting))
	assert.True(t, s.SetConnState(Disconnected))

	assert.Equal(t, []ConnState{Connecting, Connected, Disconnected, Connecting, Disconnected}, seen)
	assert.Equal(t, "connected", Connected.String())
}

func TestSession_UpdatesAppliedInAnyConnState(t *testing.T) {
	s := NewSession(&fakeDisassembler{instrs: fixedListing()}, Callbacks{})
	s.SetConnState(Connecting)

	s.OnRegisterUpdate(protocol.Registers{PC: 0x0030})
	assert.Equal(t, uint16(0x0030), s.PC())
	assert.Equal(t, []uint16{0x0032, 0x0100}, s.PredictedNext())
}
