package disasm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/valerio/go-xray/xray/addr"
)

const (
	// DataPrefix marks pseudo-instructions that describe data rather than code.
	DataPrefix = "."
	// DataMnemonic is the pseudo-instruction used for raw bytes.
	DataMnemonic = ".byte"
)

// Instruction is a single decoded instruction.
type Instruction struct {
	Address  uint16
	Mnemonic string
	Operands []string
	Bytes    []byte
	Length   int

	// Target is the statically known alternate successor (jump, call, rst).
	Target    uint16
	HasTarget bool
	// FallsThrough is false for unconditional transfers (jp, jr, ret...).
	FallsThrough bool

	Label string

	// targetOperand is the index of the operand naming Target, or -1.
	targetOperand int
}

// IsData reports whether the instruction is a data pseudo-instruction.
func (in Instruction) IsData() bool {
	return strings.HasPrefix(in.Mnemonic, DataPrefix)
}

// Next returns the address of the sequentially following instruction.
func (in Instruction) Next() uint16 {
	return in.Address + uint16(in.Length)
}

func (in Instruction) String() string {
	return Format(in.Mnemonic, in.Operands)
}

// Format renders a mnemonic and its operands the way listings show them.
func Format(mnemonic string, operands []string) string {
	if len(operands) == 0 {
		return mnemonic
	}
	return fmt.Sprintf("%-6s%s", mnemonic, strings.Join(operands, ","))
}

// FormatAddress renders a 16 bit address the same way numeric operands are rendered.
func FormatAddress(a uint16) string {
	return fmt.Sprintf("0x%04X", a)
}

// Engine is the default Z80 disassembler.
type Engine struct{}

// Disassemble implements the disassembler contract used by the debug session.
func (Engine) Disassemble(mem []byte, entryPoints []uint16) []Instruction {
	return Disassemble(mem, entryPoints)
}

// Disassemble decodes code reachable from the entry points, following
// fall-through and static jump/call targets. The result is ordered by
// address. Every decoded jump target receives a generated label and operands
// naming it use the label instead of the numeric address.
func Disassemble(mem []byte, entryPoints []uint16) []Instruction {
	if len(mem) > addr.Space {
		mem = mem[:addr.Space]
	}

	covered := make([]bool, len(mem))
	decoded := make(map[uint16]Instruction)

	queue := make([]uint16, 0, len(entryPoints))
	queue = append(queue, entryPoints...)

	for len(queue) > 0 {
		pc := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		for int(pc) < len(mem) && !covered[pc] {
			in := Decode(mem, pc)
			if int(pc)+in.Length > len(mem) || overlaps(covered, pc, in.Length) {
				break
			}

			for i := 0; i < in.Length; i++ {
				covered[int(pc)+i] = true
			}
			decoded[pc] = in

			if in.HasTarget {
				queue = append(queue, in.Target)
			}
			if !in.FallsThrough || int(pc)+in.Length >= addr.Space {
				break
			}
			pc += uint16(in.Length)
		}
	}

	result := make([]Instruction, 0, len(decoded))
	for _, in := range decoded {
		result = append(result, in)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Address < result[j].Address
	})

	assignLabels(result, decoded)
	return result
}

func overlaps(covered []bool, pc uint16, length int) bool {
	for i := 0; i < length; i++ {
		if covered[int(pc)+i] {
			return true
		}
	}
	return false
}

// assignLabels names every jump target that begins a decoded instruction,
// numbering labels in address order.
func assignLabels(instrs []Instruction, decoded map[uint16]Instruction) {
	targets := make(map[uint16]bool)
	for _, in := range instrs {
		if in.HasTarget {
			if _, ok := decoded[in.Target]; ok {
				targets[in.Target] = true
			}
		}
	}

	names := make(map[uint16]string, len(targets))
	n := 0
	for i := range instrs {
		if targets[instrs[i].Address] {
			n++
			name := fmt.Sprintf("L%d", n)
			names[instrs[i].Address] = name
			instrs[i].Label = name
		}
	}

	for i := range instrs {
		in := &instrs[i]
		if !in.HasTarget || in.targetOperand < 0 {
			continue
		}
		if name, ok := names[in.Target]; ok {
			in.Operands[in.targetOperand] = name
		}
	}
}
