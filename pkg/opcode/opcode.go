package opcode

import (
	"fmt"
	"math"
	"strings"
)

// NArgs is the number of argument slots (A through L) an expression may
// reference, and StackDepth the capacity of the evaluation stack. Both are
// part of the public contract with the record-processing layer.
const (
	NArgs      = 12
	StackDepth = 80
)

type Opcode byte

type Instructions []byte

const (
	// OpEnd terminates the program
	OpEnd Opcode = iota
	// OpEndExpr separates semicolon-delimited sub-expressions
	OpEndExpr
	// OpLiteralDouble pushes an embedded 8-byte float
	OpLiteralDouble
	// OpLiteralInt pushes an embedded 4-byte integer
	OpLiteralInt
	// OpFetch pushes argument slot 0..11
	OpFetch
	// OpFetchVal pushes the previous result
	OpFetchVal
	// OpStore pops into argument slot 0..11
	OpStore
	// OpConstant pushes a named constant (pi, D2R, R2D)
	OpConstant
	// OpRandom pushes a pseudo-random number in [0,1)
	OpRandom
	// OpNeg negates the top of stack
	OpNeg
	// OpNot replaces the top of stack with its boolean complement
	OpNot
	// OpBitNot replaces the top of stack with its ones complement
	OpBitNot
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpLT
	OpLE
	OpGT
	OpGE
	OpEQ
	OpNE
	OpBitAnd
	OpBitOr
	OpBitXor
	OpShl
	OpShr
	OpLogAnd
	OpLogOr
	// OpCondIf pops the condition; false skips to past the matching OpCondElse
	OpCondIf
	// OpCondElse ends the true branch; execution skips to past the matching OpCondEnd
	OpCondElse
	// OpCondEnd closes a conditional
	OpCondEnd
	// OpFunc calls a fixed-arity function by id
	OpFunc
	// OpFuncVar calls a variadic function by id with an explicit argument count
	OpFuncVar
)

// Constant ids for OpConstant.
const (
	ConstPi byte = iota
	ConstD2R
	ConstR2D
)

type Definition struct {
	Name          string
	OperandWidths []int
}

var definitions = map[Opcode]*Definition{
	OpEnd:           {"End", []int{}},
	OpEndExpr:       {"EndExpr", []int{}},
	OpLiteralDouble: {"LiteralDouble", []int{8}},
	OpLiteralInt:    {"LiteralInt", []int{4}},
	OpFetch:         {"Fetch", []int{1}},
	OpFetchVal:      {"FetchVal", []int{}},
	OpStore:         {"Store", []int{1}},
	OpConstant:      {"Constant", []int{1}},
	OpRandom:        {"Random", []int{}},
	OpNeg:           {"Neg", []int{}},
	OpNot:           {"Not", []int{}},
	OpBitNot:        {"BitNot", []int{}},
	OpAdd:           {"Add", []int{}},
	OpSub:           {"Sub", []int{}},
	OpMul:           {"Mul", []int{}},
	OpDiv:           {"Div", []int{}},
	OpMod:           {"Mod", []int{}},
	OpPow:           {"Pow", []int{}},
	OpLT:            {"LT", []int{}},
	OpLE:            {"LE", []int{}},
	OpGT:            {"GT", []int{}},
	OpGE:            {"GE", []int{}},
	OpEQ:            {"EQ", []int{}},
	OpNE:            {"NE", []int{}},
	OpBitAnd:        {"BitAnd", []int{}},
	OpBitOr:         {"BitOr", []int{}},
	OpBitXor:        {"BitXor", []int{}},
	OpShl:           {"Shl", []int{}},
	OpShr:           {"Shr", []int{}},
	OpLogAnd:        {"LogAnd", []int{}},
	OpLogOr:         {"LogOr", []int{}},
	OpCondIf:        {"CondIf", []int{}},
	OpCondElse:      {"CondElse", []int{}},
	OpCondEnd:       {"CondEnd", []int{}},
	OpFunc:          {"Func", []int{1}},
	OpFuncVar:       {"FuncVar", []int{1, 1}},
}

func Lookup(op byte) (*Definition, error) {
	def, ok := definitions[Opcode(op)]
	if !ok {
		return nil, fmt.Errorf("opcode %d undefined", op)
	}
	return def, nil
}

// Width returns the total operand width of op in bytes.
func (d *Definition) Width() int {
	w := 0
	for _, ow := range d.OperandWidths {
		w += ow
	}
	return w
}

func Make(op Opcode, operands ...byte) []byte {
	def, ok := definitions[op]
	if !ok {
		return []byte{}
	}

	instruction := make([]byte, 1+len(def.OperandWidths))
	instruction[0] = byte(op)
	for i, o := range operands {
		instruction[1+i] = o
	}
	return instruction
}

// MakeLiteralDouble encodes a load of an 8-byte IEEE double.
func MakeLiteralDouble(v float64) []byte {
	ins := make([]byte, 9)
	ins[0] = byte(OpLiteralDouble)
	putUint64(ins[1:], math.Float64bits(v))
	return ins
}

// MakeLiteralInt encodes a load of a whole literal that fits in 4 bytes.
// The compact form keeps short numeric sources inside the postfix size bound.
func MakeLiteralInt(v int32) []byte {
	ins := make([]byte, 5)
	ins[0] = byte(OpLiteralInt)
	putUint32(ins[1:], uint32(v))
	return ins
}

func ReadUint64(ins []byte) uint64 {
	return uint64(ins[0])<<56 | uint64(ins[1])<<48 | uint64(ins[2])<<40 | uint64(ins[3])<<32 |
		uint64(ins[4])<<24 | uint64(ins[5])<<16 | uint64(ins[6])<<8 | uint64(ins[7])
}

func ReadUint32(ins []byte) uint32 {
	return uint32(ins[0])<<24 | uint32(ins[1])<<16 | uint32(ins[2])<<8 | uint32(ins[3])
}

func putUint64(dst []byte, v uint64) {
	for i := 7; i >= 0; i-- {
		dst[i] = byte(v)
		v >>= 8
	}
}

func putUint32(dst []byte, v uint32) {
	for i := 3; i >= 0; i-- {
		dst[i] = byte(v)
		v >>= 8
	}
}

func (op Opcode) String() string {
	def, ok := definitions[op]
	if !ok {
		return fmt.Sprintf("Opcode(%d)", byte(op))
	}
	return def.Name
}

// SlotName renders argument slot 0..11 as its variable letter.
func SlotName(slot byte) string {
	if slot < NArgs {
		return string(rune('A' + slot))
	}
	return fmt.Sprintf("slot(%d)", slot)
}

func constName(id byte) string {
	switch id {
	case ConstPi:
		return "PI"
	case ConstD2R:
		return "D2R"
	case ConstR2D:
		return "R2D"
	}
	return fmt.Sprintf("const(%d)", id)
}

// String disassembles the program, one instruction per line. Diagnostic
// only; it does not validate the program.
func (ins Instructions) String() string {
	var out strings.Builder

	i := 0
	for i < len(ins) {
		def, err := Lookup(ins[i])
		if err != nil {
			fmt.Fprintf(&out, "%04d ERROR: %s\n", i, err)
			i++
			continue
		}
		if i+1+def.Width() > len(ins) {
			fmt.Fprintf(&out, "%04d %s <truncated>\n", i, def.Name)
			break
		}

		fmt.Fprintf(&out, "%04d %s", i, def.Name)
		switch Opcode(ins[i]) {
		case OpLiteralDouble:
			fmt.Fprintf(&out, " %g", math.Float64frombits(ReadUint64(ins[i+1:])))
		case OpLiteralInt:
			fmt.Fprintf(&out, " %d", int32(ReadUint32(ins[i+1:])))
		case OpFetch, OpStore:
			fmt.Fprintf(&out, " %s", SlotName(ins[i+1]))
		case OpConstant:
			fmt.Fprintf(&out, " %s", constName(ins[i+1]))
		case OpFunc:
			fmt.Fprintf(&out, " %s", FuncID(ins[i+1]))
		case OpFuncVar:
			fmt.Fprintf(&out, " %s/%d", FuncID(ins[i+1]), ins[i+2])
		}
		out.WriteByte('\n')

		i += 1 + def.Width()
	}

	return out.String()
}
