package parser

import (
	"testing"

	"calcgo/pkg/ast"
	"calcgo/pkg/calcerr"
	"calcgo/pkg/lexer"
)

func parse(t *testing.T, input string) (*ast.Program, error) {
	t.Helper()
	l := lexer.New(input)
	p := New(l)
	return p.ParseProgram()
}

func TestOperatorPrecedence(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1+2*3", "(1 + (2 * 3))"},
		{"1*2+3", "((1 * 2) + 3)"},
		{"a+b-c", "((A + B) - C)"},
		{"a*-4-b", "((A * (-4)) - B)"},
		{"2**3**2", "((2 ** 3) ** 2)"},
		{"-2**2", "(-(2 ** 2))"},
		{"a/10%10", "((A / 10) % 10)"},
		{"sqrt(a**2+b**2)", "sqrt(((A ** 2) + (B ** 2)))"},
		{"a<b==c", "((A < B) == C)"},
		{"a&b|c", "((A & B) | C)"},
		{"a and b or c", "((A & B) | C)"},
		{"a xor b", "(A xor B)"},
		{"not a", "(~A)"},
		{"a<<2+1", "(A << (2 + 1))"},
		{"!a&&~b", "((!A) && (~B))"},
		{"a&&b||c", "((A && B) || C)"},
		{"a=b", "(A == B)"},
		{"a#b", "(A != B)"},
		{"a^b", "(A ** B)"},
		{"(a+b)*c", "((A + B) * C)"},
		{"a<360?a+1:0", "((A < 360) ? (A + 1) : 0)"},
		{"a?b:c?d:e", "(A ? B : (C ? D : E))"},
		{"a?b?c:d:e", "(A ? (B ? C : D) : E)"},
		{"min(a,b,c)", "min(A, B, C)"},
		{"atan2(a,b)", "atan2(A, B)"},
		{"VAL+1", "(VAL + 1)"},
		{"Pi*D2R", "(PI * D2R)"},
		{"rndm*10", "(RNDM * 10)"},
		{"inf-nan", "(Inf - NaN)"},
	}

	for _, tt := range tests {
		program, err := parse(t, tt.input)
		if err != nil {
			t.Errorf("%q - unexpected error: %v", tt.input, err)
			continue
		}
		if got := program.String(); got != tt.expected {
			t.Errorf("%q - expected %s, got %s", tt.input, tt.expected, got)
		}
	}
}

func TestAssignments(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"b:=a; b", "B := A; B"},
		{"B; B:=A", "B; B := A"},
		{"i:=i+1; a*sin(i*D2R)", "I := (I + 1); (A * sin((I * D2R)))"},
		{"e:=a%10; d:=a/10%10; d*16+e", "E := (A % 10); D := ((A / 10) % 10); ((D * 16) + E)"},
		{"a:=1;a;", "A := 1; A"},
	}

	for _, tt := range tests {
		program, err := parse(t, tt.input)
		if err != nil {
			t.Errorf("%q - unexpected error: %v", tt.input, err)
			continue
		}
		if got := program.String(); got != tt.expected {
			t.Errorf("%q - expected %s, got %s", tt.input, tt.expected, got)
		}
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input string
		code  calcerr.Code
	}{
		{"", calcerr.NullArg},
		{"   ", calcerr.NullArg},
		{"(1+2", calcerr.ParenOpen},
		{"sin(a", calcerr.ParenOpen},
		{"1+2)", calcerr.ParenNotOpen},
		{")", calcerr.ParenNotOpen},
		{"1+", calcerr.Incomplete},
		{"a*", calcerr.Incomplete},
		{"a:=", calcerr.Incomplete},
		{"1+*2", calcerr.Syntax},
		{"foo", calcerr.Syntax},
		{"foo(1)", calcerr.Syntax},
		{"sin(1,2)", calcerr.Syntax},
		{"atan2(1)", calcerr.Syntax},
		{"sin 1", calcerr.Syntax},
		{"1 2", calcerr.Syntax},
		{"a:=1;b:=2", calcerr.BadAssignment},
		{"q:=1;2", calcerr.BadAssignment},
		{"val:=1;2", calcerr.BadAssignment},
		{"pi:=1;2", calcerr.BadAssignment},
		{"a+1:=2", calcerr.BadAssignment},
		{"1;2", calcerr.TooMany},
		{"a;b:=1;c", calcerr.TooMany},
		{"1,2", calcerr.BadSeparator},
		{"(1,2)", calcerr.BadSeparator},
		{"a?b", calcerr.Conditional},
		{"a?b:c:d", calcerr.Conditional},
		{"a:b", calcerr.Conditional},
		{"1.2.3", calcerr.BadLiteral},
		{"1e+", calcerr.BadLiteral},
		{"$", calcerr.Syntax},
	}

	for _, tt := range tests {
		_, err := parse(t, tt.input)
		if err == nil {
			t.Errorf("%q - expected error %v, got none", tt.input, tt.code)
			continue
		}
		if got := calcerr.CodeOf(err); got != tt.code {
			t.Errorf("%q - expected %v, got %v (%v)", tt.input, tt.code, got, err)
		}
	}
}

func TestErrorPositions(t *testing.T) {
	tests := []struct {
		input string
		pos   int
	}{
		{"1+2)", 3},
		{"1+", 2},
		{"1 + $", 4},
	}

	for _, tt := range tests {
		_, err := parse(t, tt.input)
		ce, ok := err.(*calcerr.Error)
		if !ok {
			t.Fatalf("%q - expected *calcerr.Error, got %T", tt.input, err)
		}
		if ce.Pos != tt.pos {
			t.Errorf("%q - expected position %d, got %d", tt.input, tt.pos, ce.Pos)
		}
	}
}
