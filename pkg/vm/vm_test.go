package vm

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"calcgo/pkg/calcerr"
	"calcgo/pkg/compiler"
	"calcgo/pkg/lexer"
	"calcgo/pkg/opcode"
	"calcgo/pkg/parser"
)

func compile(t *testing.T, input string) opcode.Instructions {
	t.Helper()
	l := lexer.New(input)
	p := parser.New(l)
	program, err := p.ParseProgram()
	if err != nil {
		t.Fatalf("%q - parse error: %v", input, err)
	}
	c := compiler.New()
	if err := c.Compile(program); err != nil {
		t.Fatalf("%q - compile error: %v", input, err)
	}
	return c.Bytecode()
}

func run(t *testing.T, input string, args *[NArgs]float64, val float64) float64 {
	t.Helper()
	result, err := Perform(compile(t, input), args, val)
	if err != nil {
		t.Fatalf("%q - runtime error: %v", input, err)
	}
	return result
}

// same compares expected and actual treating NaN as equal to itself.
func same(want, got float64) bool {
	if math.IsNaN(want) {
		return math.IsNaN(got)
	}
	if want == got {
		return true
	}
	return math.Abs(want-got) <= 1e-12*math.Max(math.Abs(want), math.Abs(got))
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"1+2*3", 7},
		{"(1+2)*3", 9},
		{"10-4/2", 8},
		{"7/2", 3.5},
		{"-2**2", -4},
		{"2**3**2", 64},
		{"2^10", 1024},
		{"9%4", 1},
		{"-9%4", -1},
		{"3.9%2", 1},
		{"1e3+1", 1001},
		{".5*4", 2},
	}
	for _, tt := range tests {
		var args [NArgs]float64
		if got := run(t, tt.input, &args, 0); !same(tt.expected, got) {
			t.Errorf("%q - expected %v, got %v", tt.input, tt.expected, got)
		}
	}
}

func TestComparisonAndLogic(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"1<2", 1},
		{"2<=2", 1},
		{"3>4", 0},
		{"4>=4", 1},
		{"1==1", 1},
		{"1=1", 1},
		{"1!=1", 0},
		{"1#2", 1},
		{"1&&0", 0},
		{"2&&3", 1},
		{"1||0", 1},
		{"0||0", 0},
		{"!0", 1},
		{"!5", 0},
	}
	for _, tt := range tests {
		var args [NArgs]float64
		if got := run(t, tt.input, &args, 0); got != tt.expected {
			t.Errorf("%q - expected %v, got %v", tt.input, tt.expected, got)
		}
	}
}

func TestBitwise(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"7&3", 3},
		{"7 and 3", 3},
		{"7|8", 15},
		{"7 or 8", 15},
		{"7 xor 1", 6},
		{"~0", -1},
		{"not 5", -6},
		{"1<<3", 8},
		{"16>>2", 4},
		{"-8>>1", -4},
		{"6.9&3", 2},
	}
	for _, tt := range tests {
		var args [NArgs]float64
		if got := run(t, tt.input, &args, 0); got != tt.expected {
			t.Errorf("%q - expected %v, got %v", tt.input, tt.expected, got)
		}
	}
}

func TestSpecialValues(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"0/0", math.NaN()},
		{"1/0", math.Inf(1)},
		{"-1/0", math.Inf(-1)},
		{"5%0", math.NaN()},
		{"ln(-1)", math.NaN()},
		{"sqrt(-1)", math.NaN()},
		{"Inf", math.Inf(1)},
		{"-Inf", math.Inf(-1)},
		{"NaN", math.NaN()},
		{"NaN+1", math.NaN()},
		{"isinf(1/0)", 1},
		{"isinf(-1/0)", -1},
		{"isinf(1e300)", 0},
		{"isnan(0/0)", 1},
		{"isnan(1,2,0/0)", 1},
		{"isnan(1,2)", 0},
		{"finite(1,2)", 1},
		{"finite(1,1/0)", 0},
		{"finite(0/0)", 0},
		{"min(1,0/0)", math.NaN()},
		{"max(0/0,5)", math.NaN()},
	}
	for _, tt := range tests {
		var args [NArgs]float64
		if got := run(t, tt.input, &args, 0); !same(tt.expected, got) {
			t.Errorf("%q - expected %v, got %v", tt.input, tt.expected, got)
		}
	}
}

func TestFunctions(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"abs(-3.5)", 3.5},
		{"exp(1)", math.E},
		{"log(100)", 2},
		{"ln(exp(2))", 2},
		{"loge(exp(1))", 1},
		{"sqrt(16)", 4},
		{"sqr(16)", 4},
		{"sin(30*D2R)", 0.5},
		{"cos(0)", 1},
		{"tan(45*D2R)", 1},
		{"asin(1)*R2D", 90},
		{"acos(1)", 0},
		{"atan(1)*R2D", 45},
		{"sinh(0)", 0},
		{"cosh(0)", 1},
		{"tanh(0)", 0},
		{"ceil(1.2)", 2},
		{"floor(-1.2)", -2},
		{"nint(2.4)", 2},
		{"nint(2.5)", 3},
		{"nint(-2.5)", -3},
		{"min(3,1,2)", 1},
		{"max(3,1,2)", 3},
		{"min(4)", 4},
		{"pi", math.Pi},
		{"180*D2R", math.Pi},
		{"pi*R2D", 180},
	}
	for _, tt := range tests {
		var args [NArgs]float64
		if got := run(t, tt.input, &args, 0); !same(tt.expected, got) {
			t.Errorf("%q - expected %v, got %v", tt.input, tt.expected, got)
		}
	}
}

func TestAtan2ReversedArguments(t *testing.T) {
	// atan2(a,b) yields the arctangent of b/a
	var args [NArgs]float64
	args[0] = 1 // A
	args[1] = 1 // B
	if got := run(t, "atan2(a,b)*R2D", &args, 0); !same(45, got) {
		t.Fatalf("atan2(1,1) - expected 45 degrees, got %v", got)
	}

	args[0] = 0
	args[1] = 1
	if got := run(t, "atan2(a,b)*R2D", &args, 0); !same(90, got) {
		t.Fatalf("atan2(0,1) - expected 90 degrees, got %v", got)
	}
}

func TestConditional(t *testing.T) {
	tests := []struct {
		input    string
		a        float64
		expected float64
	}{
		{"a<360?a+1:0", 359, 360},
		{"a<360?a+1:0", 360, 0},
		{"a?1:2", 1, 1},
		{"a?1:2", 0, 2},
		{"a?a?1:2:3", 0, 3},
		{"a?a>1?1:2:3", 1, 2},
		{"a?a>1?1:2:3", 5, 1},
		{"a=1?10:a=2?20:30", 2, 20},
	}
	for _, tt := range tests {
		var args [NArgs]float64
		args[0] = tt.a
		if got := run(t, tt.input, &args, 0); got != tt.expected {
			t.Errorf("%q (A=%v) - expected %v, got %v", tt.input, tt.a, tt.expected, got)
		}
	}
}

func TestAssignment(t *testing.T) {
	var args [NArgs]float64
	args[0] = 5
	if got := run(t, "b:=a; b", &args, 0); got != 5 {
		t.Fatalf("expected 5, got %v", got)
	}
	if args[1] != 5 {
		t.Fatalf("expected B slot updated to 5, got %v", args[1])
	}

	args = [NArgs]float64{}
	args[0] = 3
	if got := run(t, "b:=a*2; c:=b+1; c", &args, 0); got != 7 {
		t.Fatalf("expected 7, got %v", got)
	}
	if args[1] != 6 || args[2] != 7 {
		t.Fatalf("expected B=6 C=7, got B=%v C=%v", args[1], args[2])
	}

	// BCD split from the original docs
	args = [NArgs]float64{}
	args[0] = 57
	if got := run(t, "e:=a%10; d:=a/10%10; d*16+e", &args, 0); got != 87 {
		t.Fatalf("expected 87, got %v", got)
	}
}

func TestVal(t *testing.T) {
	var args [NArgs]float64
	if got := run(t, "VAL*2", &args, 21); got != 42 {
		t.Fatalf("expected 42, got %v", got)
	}
	args[0] = 1
	if got := run(t, "val+a", &args, 10); got != 11 {
		t.Fatalf("expected 11, got %v", got)
	}
}

func TestRandom(t *testing.T) {
	post := compile(t, "rndm")
	var args [NArgs]float64
	seen := map[float64]bool{}
	for i := 0; i < 100; i++ {
		r, err := Perform(post, &args, 0)
		if err != nil {
			t.Fatalf("rndm - runtime error: %v", err)
		}
		if r < 0 || r >= 1 {
			t.Fatalf("rndm - value %v out of [0,1)", r)
		}
		seen[r] = true
	}
	if len(seen) < 2 {
		t.Fatal("rndm - returned the same value 100 times")
	}
}

func TestCorruptBytecode(t *testing.T) {
	tests := []struct {
		name string
		post opcode.Instructions
		code calcerr.Code
	}{
		{"empty", opcode.Instructions{}, calcerr.Internal},
		{"no end", opcode.MakeLiteralInt(1), calcerr.Internal},
		{"unknown opcode", opcode.Instructions{0xFF}, calcerr.Internal},
		{
			"underflow",
			append(opcode.Instructions{}, append(opcode.Make(opcode.OpAdd), opcode.Make(opcode.OpEnd)...)...),
			calcerr.Underflow,
		},
		{
			"leftover operands",
			append(append(opcode.MakeLiteralInt(1), opcode.MakeLiteralInt(2)...), opcode.Make(opcode.OpEnd)...),
			calcerr.Internal,
		},
		{"truncated literal", opcode.Instructions{byte(opcode.OpLiteralDouble), 1, 2}, calcerr.Internal},
		{
			"bad slot",
			append(opcode.Instructions{byte(opcode.OpFetch), NArgs}, opcode.Make(opcode.OpEnd)...),
			calcerr.Internal,
		},
		{
			"dangling conditional",
			append(append(opcode.MakeLiteralInt(0), opcode.Make(opcode.OpCondIf)...), opcode.Make(opcode.OpEnd)...),
			calcerr.Internal,
		},
	}

	for _, tt := range tests {
		var args [NArgs]float64
		_, err := Perform(tt.post, &args, 0)
		if err == nil {
			t.Errorf("%s - expected error, got none", tt.name)
			continue
		}
		if got := calcerr.CodeOf(err); got != tt.code {
			t.Errorf("%s - expected %v, got %v", tt.name, tt.code, got)
		}
	}
}

func TestRuntimeOverflow(t *testing.T) {
	var post opcode.Instructions
	for i := 0; i <= StackDepth; i++ {
		post = append(post, opcode.MakeLiteralInt(1)...)
	}
	post = append(post, opcode.Make(opcode.OpEnd)...)

	var args [NArgs]float64
	_, err := Perform(post, &args, 0)
	if code := calcerr.CodeOf(err); code != calcerr.Overflow {
		t.Fatalf("expected Overflow, got %v", err)
	}
}

// randomExpr builds a random arithmetic expression tree and returns its
// fully parenthesized rendering together with the expected value.
func randomExpr(rng *rand.Rand, depth int) (string, float64) {
	if depth == 0 || rng.Intn(3) == 0 {
		n := rng.Intn(19) - 9
		if n < 0 {
			return fmt.Sprintf("(0%d)", n), float64(n)
		}
		return fmt.Sprintf("%d", n), float64(n)
	}
	ls, lv := randomExpr(rng, depth-1)
	rs, rv := randomExpr(rng, depth-1)
	switch rng.Intn(3) {
	case 0:
		return fmt.Sprintf("(%s+%s)", ls, rs), lv + rv
	case 1:
		return fmt.Sprintf("(%s-%s)", ls, rs), lv - rv
	default:
		return fmt.Sprintf("(%s*%s)", ls, rs), lv * rv
	}
}

func TestRandomExpressions(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	var args [NArgs]float64
	for i := 0; i < 200; i++ {
		input, expected := randomExpr(rng, 4)
		if got := run(t, input, &args, 0); got != expected {
			t.Fatalf("%q - expected %v, got %v", input, expected, got)
		}
	}
}
