package debug

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/valerio/go-xray/xray/disasm"
)

// linesBeforePC is how many instructions are shown above the current one.
const linesBeforePC = 4

// ListingLine is one row of the disassembly listing.
type ListingLine struct {
	Address  uint16
	Label    string
	Bytes    []byte
	Mnemonic string
	Operands []string // labels resolved to addresses

	IsData        bool
	IsCurrent     bool
	IsPredicted   bool
	HasBreakpoint bool
}

// Text renders the line as "> 0000  jp    0x0100", data lines show [data].
func (l ListingLine) Text() string {
	marker := "  "
	switch {
	case l.IsCurrent:
		marker = "> "
	case l.IsPredicted:
		marker = "+ "
	}

	bp := " "
	if l.HasBreakpoint {
		bp = "*"
	}

	body := disasm.Format(l.Mnemonic, l.Operands)
	if l.IsData {
		body = fmt.Sprintf("%-6s[data]", l.Mnemonic)
	}
	return fmt.Sprintf("%s%s%04X  %s", marker, bp, l.Address, body)
}

// HexBytes renders the raw bytes of the instruction.
func (l ListingLine) HexBytes() string {
	parts := make([]string, len(l.Bytes))
	for i, b := range l.Bytes {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, " ")
}

// Listing returns up to rows instructions around the current PC, starting a
// few instructions before it. An empty listing is returned when the PC does
// not map to a decoded instruction.
func (s *Session) Listing(rows int) []ListingLine {
	if rows <= 0 || s.index.Len() == 0 {
		return nil
	}

	pcIndex, ok := s.index.Position(s.pc)
	if !ok {
		slog.Debug("Cannot find instruction at PC", "pc", disasm.FormatAddress(s.pc), "error", ErrLookupMiss)
		return nil
	}

	startIdx := pcIndex - linesBeforePC
	if startIdx < 0 {
		startIdx = 0
	}
	endIdx := startIdx + rows
	if endIdx > s.index.Len() {
		endIdx = s.index.Len()
		startIdx = endIdx - rows
		if startIdx < 0 {
			startIdx = 0
		}
	}

	lines := make([]ListingLine, 0, endIdx-startIdx)
	for i := startIdx; i < endIdx; i++ {
		in := s.index.At(i)
		_, hasBP := s.BreakpointAt(in.Address)
		lines = append(lines, ListingLine{
			Address:       in.Address,
			Label:         in.Label,
			Bytes:         in.Bytes,
			Mnemonic:      in.Mnemonic,
			Operands:      s.index.ResolveOperands(in),
			IsData:        in.IsData(),
			IsCurrent:     in.Address == s.pc,
			IsPredicted:   slices.Contains(s.predicted, in.Address),
			HasBreakpoint: hasBP,
		})
	}
	return lines
}
