package debug

import (
	"log/slog"
	"strings"

	"github.com/valerio/go-xray/xray/addr"
	"github.com/valerio/go-xray/xray/disasm"
)

// Disassembler decodes the code reachable from a set of entry points.
type Disassembler interface {
	Disassemble(mem []byte, entryPoints []uint16) []disasm.Instruction
}

// Index makes the output of a disassembler addressable: instructions by
// address, labels by name, and a semantic type for every byte.
type Index struct {
	dis Disassembler

	instrs    []disasm.Instruction
	positions map[uint16]int
	labels    map[string]uint16
	types     [addr.Space]string
}

// NewIndex creates an empty index backed by the given disassembler.
func NewIndex(d Disassembler) *Index {
	return &Index{
		dis:       d,
		positions: make(map[uint16]int),
		labels:    make(map[string]uint16),
	}
}

// Rebuild disassembles mem from the entry points and replaces the whole
// index. Video RAM is always classified as data, whatever the disassembler
// made of it.
func (x *Index) Rebuild(mem []byte, entryPoints []uint16) {
	instrs := x.dis.Disassemble(mem, entryPoints)

	positions := make(map[uint16]int, len(instrs))
	labels := make(map[string]uint16)
	for i, in := range instrs {
		positions[in.Address] = i
		if in.Label == "" {
			continue
		}
		if prev, ok := labels[in.Label]; ok && prev != in.Address {
			slog.Debug("Label bound twice, keeping last",
				"label", in.Label,
				"previous", disasm.FormatAddress(prev),
				"address", disasm.FormatAddress(in.Address))
		}
		labels[in.Label] = in.Address
	}

	x.instrs = instrs
	x.positions = positions
	x.labels = labels

	clear(x.types[:])
	for _, in := range instrs {
		x.types[in.Address] = in.Mnemonic
	}
	for a := int(addr.VideoStart); a <= int(addr.VideoEnd); a++ {
		x.types[a] = disasm.DataMnemonic
	}
}

// Lookup returns the instruction starting exactly at address.
func (x *Index) Lookup(address uint16) (disasm.Instruction, bool) {
	i, ok := x.positions[address]
	if !ok {
		return disasm.Instruction{}, false
	}
	return x.instrs[i], true
}

// Position returns the position of the instruction at address in the
// address ordered sequence.
func (x *Index) Position(address uint16) (int, bool) {
	i, ok := x.positions[address]
	return i, ok
}

// At returns the instruction at position i.
func (x *Index) At(i int) disasm.Instruction {
	return x.instrs[i]
}

// Len returns the number of decoded instructions.
func (x *Index) Len() int {
	return len(x.instrs)
}

// Instructions returns a copy of the decoded instructions, ordered by address.
func (x *Index) Instructions() []disasm.Instruction {
	out := make([]disasm.Instruction, len(x.instrs))
	copy(out, x.instrs)
	return out
}

// Label returns the address bound to a label.
func (x *Index) Label(name string) (uint16, bool) {
	a, ok := x.labels[name]
	return a, ok
}

// TypeAt returns the semantic type of the byte at address: the mnemonic of
// the instruction starting there, or "" when nothing was decoded.
func (x *Index) TypeAt(address uint16) string {
	return x.types[address]
}

// ResolveOperands returns the operands of in with every label replaced by
// the address it is bound to.
func (x *Index) ResolveOperands(in disasm.Instruction) []string {
	out := make([]string, len(in.Operands))
	for i, op := range in.Operands {
		out[i] = x.resolve(op)
	}
	return out
}

func (x *Index) resolve(op string) string {
	if a, ok := x.labels[op]; ok {
		return disasm.FormatAddress(a)
	}
	if inner, ok := strings.CutPrefix(op, "("); ok {
		if inner, ok = strings.CutSuffix(inner, ")"); ok {
			if a, ok := x.labels[inner]; ok {
				return "(" + disasm.FormatAddress(a) + ")"
			}
		}
	}
	return op
}
