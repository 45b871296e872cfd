package debug

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/go-xray/xray/disasm"
	"github.com/valerio/go-xray/xray/protocol"
)

func sequentialListing(n int) []disasm.Instruction {
	instrs := make([]disasm.Instruction, n)
	for i := range instrs {
		instrs[i] = disasm.Instruction{
			Address:      uint16(i),
			Mnemonic:     "nop",
			Bytes:        []byte{0x00},
			Length:       1,
			FallsThrough: true,
		}
	}
	return instrs
}

func TestListing_Window(t *testing.T) {
	tests := []struct {
		name      string
		pc        uint16
		rows      int
		wantFirst uint16
		wantLen   int
	}{
		{"pc at start", 0, 16, 0, 16},
		{"pc in the middle", 20, 16, 16, 16},
		{"pc near the end", 38, 16, 24, 16},
		{"fewer instructions than rows", 2, 64, 0, 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession(&fakeDisassembler{instrs: sequentialListing(40)}, Callbacks{})
			s.OnRegisterUpdate(protocol.Registers{PC: tt.pc})

			lines := s.Listing(tt.rows)
			require.Len(t, lines, tt.wantLen)
			assert.Equal(t, tt.wantFirst, lines[0].Address)

			current := 0
			for _, l := range lines {
				if l.IsCurrent {
					current++
					assert.Equal(t, tt.pc, l.Address)
				}
			}
			assert.Equal(t, 1, current)
		})
	}
}

func TestListing_Markers(t *testing.T) {
	s := NewSession(&fakeDisassembler{instrs: fixedListing()}, Callbacks{})
	s.OnBreakpointUpdate([]protocol.Breakpoint{{ID: 0, Address: 0x0100, Type: protocol.ProgramCounter}})
	s.OnRegisterUpdate(protocol.Registers{PC: 0x0030})

	lines := s.Listing(16)
	require.NotEmpty(t, lines)

	byAddr := map[uint16]ListingLine{}
	for _, l := range lines {
		byAddr[l.Address] = l
	}

	assert.True(t, byAddr[0x0030].IsCurrent)
	assert.Equal(t, []string{"nz", "0x0100"}, byAddr[0x0030].Operands)
	assert.True(t, byAddr[0x0100].IsPredicted)
	assert.True(t, byAddr[0x0100].HasBreakpoint)
	assert.Equal(t, "loop", byAddr[0x0100].Label)
	assert.False(t, byAddr[0x0010].IsPredicted)
}

func TestListingLine_Text(t *testing.T) {
	tests := []struct {
		name string
		line ListingLine
		want string
	}{
		{
			name: "current instruction",
			line: ListingLine{Address: 0x0030, Mnemonic: "jr", Operands: []string{"nz", "0x0100"}, IsCurrent: true},
			want: ">  0030  jr    nz,0x0100",
		},
		{
			name: "predicted with breakpoint",
			line: ListingLine{Address: 0x0100, Mnemonic: "ret", IsPredicted: true, HasBreakpoint: true},
			want: "+ *0100  ret",
		},
		{
			name: "data",
			line: ListingLine{Address: 0x3C00, Mnemonic: ".byte", Operands: []string{"0xED"}, IsData: true},
			want: "   3C00  .byte [data]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.line.Text())
		})
	}
}

func TestListingLine_HexBytes(t *testing.T) {
	l := ListingLine{Bytes: []byte{0xC3, 0x00, 0x01}}
	assert.Equal(t, "C3 00 01", l.HexBytes())
}
