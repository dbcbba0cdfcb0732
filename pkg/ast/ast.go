package ast

import (
	"fmt"
	"strings"

	"calcgo/pkg/opcode"
)

// Node is any element of a parsed calc expression. Pos is the byte offset
// of the node's first token in the infix source.
type Node interface {
	Pos() int
	String() string
}

type Expr interface {
	Node
	exprNode()
}

// Program is a list of semicolon-separated sub-expressions, exactly one of
// which produces the calculation result.
type Program struct {
	Subs []*SubExpr
}

func (p *Program) Pos() int {
	if len(p.Subs) == 0 {
		return 0
	}
	return p.Subs[0].Pos()
}

func (p *Program) String() string {
	parts := make([]string, len(p.Subs))
	for i, s := range p.Subs {
		parts[i] = s.String()
	}
	return strings.Join(parts, "; ")
}

// SubExpr is one sub-expression. Target is the argument slot assigned by
// `<var> :=`, or -1 for the value-producing sub-expression.
type SubExpr struct {
	TokPos int
	Target int
	Value  Expr
}

func (s *SubExpr) Pos() int { return s.TokPos }

func (s *SubExpr) String() string {
	if s.Target >= 0 {
		return fmt.Sprintf("%s := %s", opcode.SlotName(byte(s.Target)), s.Value)
	}
	return s.Value.String()
}

// NumberLit is a (non-negative) numeric literal, including Inf and NaN.
type NumberLit struct {
	TokPos  int
	Value   float64
	Literal string
}

func (n *NumberLit) Pos() int       { return n.TokPos }
func (n *NumberLit) String() string { return n.Literal }
func (n *NumberLit) exprNode()      {}

// VarRef reads argument slot 0..11.
type VarRef struct {
	TokPos int
	Slot   int
}

func (v *VarRef) Pos() int       { return v.TokPos }
func (v *VarRef) String() string { return opcode.SlotName(byte(v.Slot)) }
func (v *VarRef) exprNode()      {}

// ValRef reads the previous calculation result.
type ValRef struct {
	TokPos int
}

func (v *ValRef) Pos() int       { return v.TokPos }
func (v *ValRef) String() string { return "VAL" }
func (v *ValRef) exprNode()      {}

// ConstRef is one of the named constants.
type ConstRef struct {
	TokPos int
	ID     byte // opcode.ConstPi, ConstD2R, ConstR2D
	Name   string
}

func (c *ConstRef) Pos() int       { return c.TokPos }
func (c *ConstRef) String() string { return c.Name }
func (c *ConstRef) exprNode()      {}

// RandomRef is the nullary rndm element.
type RandomRef struct {
	TokPos int
}

func (r *RandomRef) Pos() int       { return r.TokPos }
func (r *RandomRef) String() string { return "RNDM" }
func (r *RandomRef) exprNode()      {}

// PrefixExpr is a unary operator application. Operator is the canonical
// spelling: "-", "!" or "~".
type PrefixExpr struct {
	TokPos   int
	Operator string
	Right    Expr
}

func (p *PrefixExpr) Pos() int       { return p.TokPos }
func (p *PrefixExpr) String() string { return fmt.Sprintf("(%s%s)", p.Operator, p.Right) }
func (p *PrefixExpr) exprNode()      {}

// InfixExpr is a binary operator application. Operator is the canonical
// spelling of the operator's token type.
type InfixExpr struct {
	TokPos   int
	Operator string
	Left     Expr
	Right    Expr
}

func (i *InfixExpr) Pos() int       { return i.TokPos }
func (i *InfixExpr) String() string { return fmt.Sprintf("(%s %s %s)", i.Left, i.Operator, i.Right) }
func (i *InfixExpr) exprNode()      {}

// CondExpr is the ternary conditional.
type CondExpr struct {
	TokPos int
	Cond   Expr
	True   Expr
	False  Expr
}

func (c *CondExpr) Pos() int       { return c.TokPos }
func (c *CondExpr) String() string { return fmt.Sprintf("(%s ? %s : %s)", c.Cond, c.True, c.False) }
func (c *CondExpr) exprNode()      {}

// CallExpr is a function call. Name is already validated by the parser
// against the function table.
type CallExpr struct {
	TokPos int
	Name   string
	Args   []Expr
}

func (c *CallExpr) Pos() int { return c.TokPos }

func (c *CallExpr) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", strings.ToLower(c.Name), strings.Join(args, ", "))
}

func (c *CallExpr) exprNode() {}
