package opcode

import (
	"math"
	"testing"
)

func TestMake(t *testing.T) {
	tests := []struct {
		op       Opcode
		operands []byte
		expected []byte
	}{
		{OpEnd, nil, []byte{byte(OpEnd)}},
		{OpAdd, nil, []byte{byte(OpAdd)}},
		{OpFetch, []byte{3}, []byte{byte(OpFetch), 3}},
		{OpStore, []byte{11}, []byte{byte(OpStore), 11}},
		{OpConstant, []byte{ConstD2R}, []byte{byte(OpConstant), ConstD2R}},
		{OpFunc, []byte{byte(FnSin)}, []byte{byte(OpFunc), byte(FnSin)}},
		{OpFuncVar, []byte{byte(FnMin), 3}, []byte{byte(OpFuncVar), byte(FnMin), 3}},
	}

	for _, tt := range tests {
		ins := Make(tt.op, tt.operands...)
		if len(ins) != len(tt.expected) {
			t.Errorf("%s - wrong length. want=%d, got=%d", tt.op, len(tt.expected), len(ins))
			continue
		}
		for i, b := range tt.expected {
			if ins[i] != b {
				t.Errorf("%s - wrong byte at %d. want=%d, got=%d", tt.op, i, b, ins[i])
			}
		}
	}
}

func TestLiteralRoundTrip(t *testing.T) {
	doubles := []float64{0, 1, -1, 0.5, math.Pi, 1e300, math.Inf(1), math.Inf(-1)}
	for _, v := range doubles {
		ins := MakeLiteralDouble(v)
		if got := math.Float64frombits(ReadUint64(ins[1:])); got != v {
			t.Errorf("double %g round-tripped to %g", v, got)
		}
	}

	nan := MakeLiteralDouble(math.NaN())
	if got := math.Float64frombits(ReadUint64(nan[1:])); !math.IsNaN(got) {
		t.Errorf("NaN round-tripped to %g", got)
	}

	ints := []int32{0, 1, -1, 360, math.MaxInt32, math.MinInt32}
	for _, v := range ints {
		ins := MakeLiteralInt(v)
		if got := int32(ReadUint32(ins[1:])); got != v {
			t.Errorf("int %d round-tripped to %d", v, got)
		}
	}
}

func TestInstructionsString(t *testing.T) {
	var ins Instructions
	ins = append(ins, Make(OpFetch, 0)...)
	ins = append(ins, MakeLiteralInt(360)...)
	ins = append(ins, Make(OpLT)...)
	ins = append(ins, Make(OpFuncVar, byte(FnMin), 2)...)
	ins = append(ins, Make(OpEnd)...)

	expected := `0000 Fetch A
0002 LiteralInt 360
0007 LT
0008 FuncVar min/2
0011 End
`
	if got := ins.String(); got != expected {
		t.Errorf("wrong disassembly.\nwant:\n%s\ngot:\n%s", expected, got)
	}
}

func TestInstructionsStringDamaged(t *testing.T) {
	ins := Instructions{0xFF}
	if got := ins.String(); got == "" {
		t.Error("damaged program should still render")
	}

	trunc := Instructions{byte(OpLiteralDouble), 1, 2}
	if got := trunc.String(); got == "" {
		t.Error("truncated program should still render")
	}
}

func TestLookupFunc(t *testing.T) {
	tests := []struct {
		name  string
		id    FuncID
		arity int
	}{
		{"sin", FnSin, 1},
		{"SIN", FnSin, 1},
		{"atan2", FnAtan2, 2},
		{"loge", FnLn, 1},
		{"sqr", FnSqrt, 1},
	}
	for _, tt := range tests {
		def, ok := LookupFunc(tt.name)
		if !ok {
			t.Errorf("%q - not found", tt.name)
			continue
		}
		if def.ID != tt.id || def.Arity != tt.arity {
			t.Errorf("%q - got id=%v arity=%d", tt.name, def.ID, def.Arity)
		}
	}

	for _, name := range []string{"min", "max", "isnan", "finite"} {
		def, ok := LookupFunc(name)
		if !ok || !def.Variadic || def.MinArgs != 1 {
			t.Errorf("%q - expected variadic with MinArgs 1, got %+v", name, def)
		}
	}

	if _, ok := LookupFunc("bogus"); ok {
		t.Error("bogus should not resolve")
	}
}

func TestSlotName(t *testing.T) {
	if SlotName(0) != "A" || SlotName(11) != "L" {
		t.Errorf("slot names wrong: %s %s", SlotName(0), SlotName(11))
	}
	if SlotName(12) == "M" {
		t.Error("slot 12 must not map to a letter")
	}
}
