package compiler

import (
	"math"

	"calcgo/pkg/ast"
	"calcgo/pkg/calcerr"
	"calcgo/pkg/opcode"
)

// Compiler turns a parsed expression into postfix bytecode. It tracks the
// evaluation stack depth the emitted instructions will need and refuses
// programs that would exceed the 80-slot evaluation stack, so the
// evaluator's own bound check is only a defensive backstop.
type Compiler struct {
	ins      opcode.Instructions
	curDepth int
	maxDepth int
}

func New() *Compiler {
	return &Compiler{}
}

// Bytecode returns the emitted program. Only valid after a successful
// Compile.
func (c *Compiler) Bytecode() opcode.Instructions {
	return c.ins
}

// MaxDepth reports the evaluation stack high-water mark of the compiled
// program.
func (c *Compiler) MaxDepth() int {
	return c.maxDepth
}

func (c *Compiler) Compile(program *ast.Program) error {
	for i, sub := range program.Subs {
		if err := c.compileSub(sub); err != nil {
			return err
		}
		if i < len(program.Subs)-1 {
			c.emit(opcode.Make(opcode.OpEndExpr))
		}
	}
	c.emit(opcode.Make(opcode.OpEnd))
	return nil
}

func (c *Compiler) compileSub(sub *ast.SubExpr) error {
	if err := c.compileExpr(sub.Value); err != nil {
		return err
	}
	if sub.Target >= 0 {
		c.emit(opcode.Make(opcode.OpStore, byte(sub.Target)))
		c.pop(1)
	}
	return nil
}

func (c *Compiler) compileExpr(node ast.Expr) error {
	switch node := node.(type) {
	case *ast.NumberLit:
		c.emitLiteral(node.Value)
		return c.push(1, node)

	case *ast.VarRef:
		c.emit(opcode.Make(opcode.OpFetch, byte(node.Slot)))
		return c.push(1, node)

	case *ast.ValRef:
		c.emit(opcode.Make(opcode.OpFetchVal))
		return c.push(1, node)

	case *ast.ConstRef:
		c.emit(opcode.Make(opcode.OpConstant, node.ID))
		return c.push(1, node)

	case *ast.RandomRef:
		c.emit(opcode.Make(opcode.OpRandom))
		return c.push(1, node)

	case *ast.PrefixExpr:
		if err := c.compileExpr(node.Right); err != nil {
			return err
		}
		switch node.Operator {
		case "-":
			c.emit(opcode.Make(opcode.OpNeg))
		case "!":
			c.emit(opcode.Make(opcode.OpNot))
		case "~":
			c.emit(opcode.Make(opcode.OpBitNot))
		default:
			return calcerr.New(calcerr.Internal, node.Pos())
		}
		return nil

	case *ast.InfixExpr:
		if err := c.compileExpr(node.Left); err != nil {
			return err
		}
		if err := c.compileExpr(node.Right); err != nil {
			return err
		}
		op, ok := binaryOps[node.Operator]
		if !ok {
			return calcerr.New(calcerr.Internal, node.Pos())
		}
		c.emit(opcode.Make(op))
		c.pop(1)
		return nil

	case *ast.CondExpr:
		if err := c.compileExpr(node.Cond); err != nil {
			return err
		}
		c.emit(opcode.Make(opcode.OpCondIf))
		c.pop(1)

		// Only one branch's value survives, so both branches are
		// accounted against the same base depth.
		base := c.curDepth
		if err := c.compileExpr(node.True); err != nil {
			return err
		}
		c.emit(opcode.Make(opcode.OpCondElse))
		c.curDepth = base
		if err := c.compileExpr(node.False); err != nil {
			return err
		}
		c.emit(opcode.Make(opcode.OpCondEnd))
		return nil

	case *ast.CallExpr:
		def, ok := opcode.LookupFunc(node.Name)
		if !ok {
			return calcerr.New(calcerr.Internal, node.Pos())
		}
		for _, arg := range node.Args {
			if err := c.compileExpr(arg); err != nil {
				return err
			}
		}
		if def.Variadic {
			c.emit(opcode.Make(opcode.OpFuncVar, byte(def.ID), byte(len(node.Args))))
		} else {
			c.emit(opcode.Make(opcode.OpFunc, byte(def.ID)))
		}
		c.pop(len(node.Args) - 1)
		return nil

	default:
		return calcerr.New(calcerr.Internal, node.Pos())
	}
}

var binaryOps = map[string]opcode.Opcode{
	"+":   opcode.OpAdd,
	"-":   opcode.OpSub,
	"*":   opcode.OpMul,
	"/":   opcode.OpDiv,
	"%":   opcode.OpMod,
	"**":  opcode.OpPow,
	"<":   opcode.OpLT,
	"<=":  opcode.OpLE,
	">":   opcode.OpGT,
	">=":  opcode.OpGE,
	"==":  opcode.OpEQ,
	"!=":  opcode.OpNE,
	"&":   opcode.OpBitAnd,
	"|":   opcode.OpBitOr,
	"xor": opcode.OpBitXor,
	"<<":  opcode.OpShl,
	">>":  opcode.OpShr,
	"&&":  opcode.OpLogAnd,
	"||":  opcode.OpLogOr,
}

// emitLiteral encodes whole values that fit 4 bytes in the compact integer
// form. The compact form is what keeps short sources such as "1" inside
// the 21/6 postfix size bound.
func (c *Compiler) emitLiteral(v float64) {
	if v == math.Trunc(v) && v >= math.MinInt32 && v <= math.MaxInt32 {
		c.emit(opcode.MakeLiteralInt(int32(v)))
		return
	}
	c.emit(opcode.MakeLiteralDouble(v))
}

func (c *Compiler) emit(ins []byte) {
	c.ins = append(c.ins, ins...)
}

func (c *Compiler) push(n int, node ast.Node) error {
	c.curDepth += n
	if c.curDepth > opcode.StackDepth {
		return calcerr.New(calcerr.Overflow, node.Pos())
	}
	if c.curDepth > c.maxDepth {
		c.maxDepth = c.curDepth
	}
	return nil
}

func (c *Compiler) pop(n int) {
	c.curDepth -= n
}
