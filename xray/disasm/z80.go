package disasm

import (
	"fmt"

	"github.com/valerio/go-xray/xray/bit"
)

// Decoding follows the x/y/z/p/q opcode decomposition.
// Reference: http://www.z80.info/decoding.htm

var (
	regs8     = [8]string{"b", "c", "d", "e", "h", "l", "(hl)", "a"}
	regPairs  = [4]string{"bc", "de", "hl", "sp"}
	regPairs2 = [4]string{"bc", "de", "hl", "af"}
	conds     = [8]string{"nz", "z", "nc", "c", "po", "pe", "p", "m"}
	aluOps    = [8]string{"add", "adc", "sub", "sbc", "and", "xor", "or", "cp"}
	rotOps    = [8]string{"rlc", "rrc", "rl", "rr", "sla", "sra", "sll", "srl"}
	accOps    = [8]string{"rlca", "rrca", "rla", "rra", "daa", "cpl", "scf", "ccf"}
	intModes  = [8]string{"0", "0", "1", "2", "0", "0", "1", "2"}

	blockOps = [4][4]string{
		{"ldi", "cpi", "ini", "outi"},
		{"ldd", "cpd", "ind", "outd"},
		{"ldir", "cpir", "inir", "otir"},
		{"lddr", "cpdr", "indr", "otdr"},
	}
)

const (
	prefixCB = 0xCB
	prefixDD = 0xDD
	prefixED = 0xED
	prefixFD = 0xFD
)

type decoder struct {
	mem   []byte
	start uint16
	pos   int
	index string

	in Instruction
}

// Decode decodes the single instruction at pc. Bytes past the end of mem
// read as zero.
func Decode(mem []byte, pc uint16) Instruction {
	d := &decoder{
		mem:   mem,
		start: pc,
		pos:   int(pc),
		in: Instruction{
			Address:       pc,
			FallsThrough:  true,
			targetOperand: -1,
		},
	}

	op := d.next()
	switch op {
	case prefixDD, prefixFD:
		d.index = "ix"
		if op == prefixFD {
			d.index = "iy"
		}
		next := d.peek()
		switch {
		case next == prefixDD || next == prefixFD || next == prefixED:
			// a prefix followed by another prefix acts as a lone byte
			d.data()
		case next == prefixCB:
			d.next()
			d.decodeIndexedCB()
		default:
			d.decodeMain(d.next())
		}
	case prefixED:
		d.decodeED(d.next())
	case prefixCB:
		d.decodeCB(d.next())
	default:
		d.decodeMain(op)
	}

	length := d.pos - int(pc)
	d.in.Length = length
	d.in.Bytes = make([]byte, length)
	for i := 0; i < length; i++ {
		d.in.Bytes[i] = d.read(int(pc) + i)
	}
	return d.in
}

func (d *decoder) read(a int) byte {
	if a < 0 || a >= len(d.mem) {
		return 0
	}
	return d.mem[a]
}

func (d *decoder) next() byte {
	b := d.read(d.pos)
	d.pos++
	return b
}

func (d *decoder) peek() byte {
	return d.read(d.pos)
}

func (d *decoder) emit(mnemonic string, operands ...string) {
	d.in.Mnemonic = mnemonic
	d.in.Operands = operands
}

func (d *decoder) imm8() string {
	return fmt.Sprintf("0x%02X", d.next())
}

func (d *decoder) imm16() uint16 {
	lo := d.next()
	hi := d.next()
	return bit.Combine(hi, lo)
}

// data turns the bytes consumed so far into a data pseudo-instruction.
func (d *decoder) data() {
	operands := make([]string, 0, d.pos-int(d.start))
	for a := int(d.start); a < d.pos; a++ {
		operands = append(operands, fmt.Sprintf("0x%02X", d.read(a)))
	}
	d.emit(DataMnemonic, operands...)
}

// jump records a control transfer whose target is the given operand position.
func (d *decoder) jump(target uint16, operandIdx int, fallsThrough bool) {
	d.in.Target = target
	d.in.HasTarget = true
	d.in.FallsThrough = fallsThrough
	d.in.targetOperand = operandIdx
}

func (d *decoder) relative() uint16 {
	disp := bit.SignExtend(d.next())
	return uint16(d.pos + disp)
}

func (d *decoder) hl() string {
	if d.index != "" {
		return d.index
	}
	return "hl"
}

func (d *decoder) rp(p uint8) string {
	if p == 2 {
		return d.hl()
	}
	return regPairs[p]
}

func (d *decoder) rp2(p uint8) string {
	if p == 2 {
		return d.hl()
	}
	return regPairs2[p]
}

func (d *decoder) indexed() string {
	disp := bit.SignExtend(d.next())
	if disp < 0 {
		return fmt.Sprintf("(%s-0x%02X)", d.index, -disp)
	}
	return fmt.Sprintf("(%s+0x%02X)", d.index, disp)
}

// reg returns the 8 bit register operand. With an index prefix (hl) becomes
// (ix+d) and h/l become the index halves, unless halves is false because
// the same instruction already addresses memory through the index.
func (d *decoder) reg(i uint8, halves bool) string {
	if d.index == "" {
		return regs8[i]
	}
	switch i {
	case 6:
		return d.indexed()
	case 4:
		if halves {
			return d.index + "h"
		}
	case 5:
		if halves {
			return d.index + "l"
		}
	}
	return regs8[i]
}

func split(op byte) (x, y, z, p, q uint8) {
	x = bit.ExtractBits(op, 7, 6)
	y = bit.ExtractBits(op, 5, 3)
	z = bit.ExtractBits(op, 2, 0)
	p = y >> 1
	q = y & 1
	return
}

func (d *decoder) decodeMain(op byte) {
	x, y, z, p, q := split(op)

	switch x {
	case 0:
		d.decodeX0(y, z, p, q)
	case 1:
		if y == 6 && z == 6 {
			d.emit("halt")
			return
		}
		// only one side may use the index register
		memory := y == 6 || z == 6
		dst := d.reg(y, !memory)
		src := d.reg(z, !memory)
		d.emit("ld", dst, src)
	case 2:
		d.alu(y, d.reg(z, true))
	case 3:
		d.decodeX3(y, z, p, q)
	}
}

func (d *decoder) alu(y uint8, operand string) {
	switch y {
	case 0, 1, 3:
		d.emit(aluOps[y], "a", operand)
	default:
		d.emit(aluOps[y], operand)
	}
}

func (d *decoder) decodeX0(y, z, p, q uint8) {
	switch z {
	case 0:
		switch y {
		case 0:
			d.emit("nop")
		case 1:
			d.emit("ex", "af", "af'")
		case 2:
			target := d.relative()
			d.emit("djnz", FormatAddress(target))
			d.jump(target, 0, true)
		case 3:
			target := d.relative()
			d.emit("jr", FormatAddress(target))
			d.jump(target, 0, false)
		default:
			target := d.relative()
			d.emit("jr", conds[y-4], FormatAddress(target))
			d.jump(target, 1, true)
		}
	case 1:
		if q == 0 {
			d.emit("ld", d.rp(p), FormatAddress(d.imm16()))
		} else {
			d.emit("add", d.hl(), d.rp(p))
		}
	case 2:
		switch p {
		case 0, 1:
			mem := "(" + regPairs[p] + ")"
			if q == 0 {
				d.emit("ld", mem, "a")
			} else {
				d.emit("ld", "a", mem)
			}
		case 2:
			mem := "(" + FormatAddress(d.imm16()) + ")"
			if q == 0 {
				d.emit("ld", mem, d.hl())
			} else {
				d.emit("ld", d.hl(), mem)
			}
		case 3:
			mem := "(" + FormatAddress(d.imm16()) + ")"
			if q == 0 {
				d.emit("ld", mem, "a")
			} else {
				d.emit("ld", "a", mem)
			}
		}
	case 3:
		if q == 0 {
			d.emit("inc", d.rp(p))
		} else {
			d.emit("dec", d.rp(p))
		}
	case 4:
		d.emit("inc", d.reg(y, true))
	case 5:
		d.emit("dec", d.reg(y, true))
	case 6:
		dst := d.reg(y, true)
		d.emit("ld", dst, d.imm8())
	case 7:
		d.emit(accOps[y])
	}
}

func (d *decoder) decodeX3(y, z, p, q uint8) {
	switch z {
	case 0:
		d.emit("ret", conds[y])
	case 1:
		if q == 0 {
			d.emit("pop", d.rp2(p))
			return
		}
		switch p {
		case 0:
			d.emit("ret")
			d.in.FallsThrough = false
		case 1:
			d.emit("exx")
		case 2:
			d.emit("jp", "("+d.hl()+")")
			d.in.FallsThrough = false
		case 3:
			d.emit("ld", "sp", d.hl())
		}
	case 2:
		target := d.imm16()
		d.emit("jp", conds[y], FormatAddress(target))
		d.jump(target, 1, true)
	case 3:
		switch y {
		case 0:
			target := d.imm16()
			d.emit("jp", FormatAddress(target))
			d.jump(target, 0, false)
		case 2:
			d.emit("out", "("+d.imm8()+")", "a")
		case 3:
			d.emit("in", "a", "("+d.imm8()+")")
		case 4:
			d.emit("ex", "(sp)", d.hl())
		case 5:
			d.emit("ex", "de", "hl")
		case 6:
			d.emit("di")
		case 7:
			d.emit("ei")
		}
	case 4:
		target := d.imm16()
		d.emit("call", conds[y], FormatAddress(target))
		d.jump(target, 1, true)
	case 5:
		if q == 0 {
			d.emit("push", d.rp2(p))
			return
		}
		// p != 0 are prefixes, handled before reaching here
		target := d.imm16()
		d.emit("call", FormatAddress(target))
		d.jump(target, 0, true)
	case 6:
		d.alu(y, d.imm8())
	case 7:
		target := uint16(y) * 8
		d.emit("rst", FormatAddress(target))
		d.jump(target, 0, true)
	}
}

func (d *decoder) decodeCB(op byte) {
	x, y, z, _, _ := split(op)
	operand := regs8[z]

	switch x {
	case 0:
		d.emit(rotOps[y], operand)
	case 1:
		d.emit("bit", fmt.Sprint(y), operand)
	case 2:
		d.emit("res", fmt.Sprint(y), operand)
	case 3:
		d.emit("set", fmt.Sprint(y), operand)
	}
}

// decodeIndexedCB handles DD CB d op and FD CB d op, where the displacement
// precedes the opcode.
func (d *decoder) decodeIndexedCB() {
	mem := d.indexed()
	x, y, z, _, _ := split(d.next())

	operands := []string{mem}
	if x != 1 && z != 6 {
		// undocumented: result also copied to a register
		operands = append(operands, regs8[z])
	}

	switch x {
	case 0:
		d.emit(rotOps[y], operands...)
	case 1:
		d.emit("bit", fmt.Sprint(y), mem)
	case 2:
		d.emit("res", append([]string{fmt.Sprint(y)}, operands...)...)
	case 3:
		d.emit("set", append([]string{fmt.Sprint(y)}, operands...)...)
	}
}

func (d *decoder) decodeED(op byte) {
	x, y, z, p, q := split(op)

	switch x {
	case 1:
		switch z {
		case 0:
			if y == 6 {
				d.emit("in", "(c)")
			} else {
				d.emit("in", regs8[y], "(c)")
			}
		case 1:
			if y == 6 {
				d.emit("out", "(c)", "0")
			} else {
				d.emit("out", "(c)", regs8[y])
			}
		case 2:
			if q == 0 {
				d.emit("sbc", "hl", regPairs[p])
			} else {
				d.emit("adc", "hl", regPairs[p])
			}
		case 3:
			mem := "(" + FormatAddress(d.imm16()) + ")"
			if q == 0 {
				d.emit("ld", mem, regPairs[p])
			} else {
				d.emit("ld", regPairs[p], mem)
			}
		case 4:
			d.emit("neg")
		case 5:
			if y == 1 {
				d.emit("reti")
			} else {
				d.emit("retn")
			}
			d.in.FallsThrough = false
		case 6:
			d.emit("im", intModes[y])
		case 7:
			switch y {
			case 0:
				d.emit("ld", "i", "a")
			case 1:
				d.emit("ld", "r", "a")
			case 2:
				d.emit("ld", "a", "i")
			case 3:
				d.emit("ld", "a", "r")
			case 4:
				d.emit("rrd")
			case 5:
				d.emit("rld")
			default:
				d.emit("nop")
			}
		}
	case 2:
		if z <= 3 && y >= 4 {
			d.emit(blockOps[y-4][z])
			return
		}
		d.data()
	default:
		d.data()
	}
}
