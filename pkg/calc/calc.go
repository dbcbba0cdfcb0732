// Package calc compiles closed-form arithmetic expressions to postfix
// bytecode and evaluates them against a twelve-slot argument vector. It is
// the entry point the record-processing layer uses: compile once with
// Compile, evaluate many times with Perform, and call ArgUsage once to
// find out which inputs must be supplied.
//
// All entry points are pure functions over their arguments; a compiled
// program is immutable and may be evaluated concurrently against distinct
// argument vectors.
package calc

import (
	"errors"
	"fmt"

	"calcgo/pkg/calcerr"
	"calcgo/pkg/compiler"
	"calcgo/pkg/lexer"
	"calcgo/pkg/opcode"
	"calcgo/pkg/parser"
	"calcgo/pkg/vm"
)

// NArgs is the number of argument slots A through L.
const NArgs = opcode.NArgs

// StackDepth is the evaluation stack capacity.
const StackDepth = opcode.StackDepth

// PostfixSize bounds the compiled size of an infix source of n bytes,
// where n counts the terminating nil of the original C string (i.e. pass
// len(source)+1). The 21/6 ratio comes from the worst expanding
// sub-expression ".1?.1:" and is a public contract: callers size postfix
// buffers with exactly this arithmetic.
func PostfixSize(n int) int {
	return n * 21 / 6
}

// Compile translates an infix expression to postfix bytecode. On failure
// the returned error is a *calcerr.Error carrying the error code and the
// byte position of the fault.
func Compile(infix string) (opcode.Instructions, error) {
	l := lexer.New(infix)
	p := parser.New(l)
	program, err := p.ParseProgram()
	if err != nil {
		return nil, err
	}

	c := compiler.New()
	if err := c.Compile(program); err != nil {
		return nil, err
	}
	post := c.Bytecode()

	// The emitted encoding is proven to fit the size contract; failing
	// this check means the accounting is broken, not the input.
	if len(post) > PostfixSize(len(infix)+1) {
		return nil, calcerr.New(calcerr.Internal, 0)
	}
	return post, nil
}

// CompileTo compiles into a caller-supplied buffer and returns the number
// of bytes written. The buffer must hold at least
// PostfixSize(len(infix)+1) bytes; a shorter buffer is reported as an
// error rather than overrun.
func CompileTo(dst []byte, infix string) (int, error) {
	post, err := Compile(infix)
	if err != nil {
		return 0, err
	}
	if len(post) > len(dst) {
		return 0, fmt.Errorf("postfix buffer too small: need %d bytes, have %d", len(post), len(dst))
	}
	return copy(dst, post), nil
}

// Perform evaluates a compiled program. args may be mutated by assignment
// sub-expressions; val supplies the previous result read by VAL.
func Perform(post opcode.Instructions, args *[NArgs]float64, val float64) (float64, error) {
	return vm.Perform(post, args, val)
}

// ArgUsage reports the argument slots a compiled program reads as external
// inputs and the slots it assigns, as two 12-bit bitmaps.
func ArgUsage(post opcode.Instructions) (inputs, stores uint16, err error) {
	return vm.ArgUsage(post)
}

// ErrorStr maps an error code to its fixed human-readable text.
func ErrorStr(code calcerr.Code) string {
	return code.String()
}

// ErrorPos extracts the byte position an error refers to, or -1 when the
// error carries none.
func ErrorPos(err error) int {
	var ce *calcerr.Error
	if errors.As(err, &ce) {
		return ce.Pos
	}
	return -1
}

// ExprDump renders a compiled program as one mnemonic per line, for
// debugging only.
func ExprDump(post opcode.Instructions) string {
	return post.String()
}
