package parser

import (
	"math"
	"strings"

	"calcgo/pkg/ast"
	"calcgo/pkg/calcerr"
	"calcgo/pkg/lexer"
	"calcgo/pkg/opcode"
	"calcgo/pkg/token"
)

// Precedence levels, loosest binding first. POWER deliberately sits above
// PREFIX: the power operators bind tighter than unary minus, so -2**2
// parses as -(2**2).
const (
	_ int = iota
	LOWEST
	TERNARY     // ?:
	LOGICOR     // ||
	LOGICAND    // &&
	BITOR       // | or
	BITXOR      // xor
	BITAND      // & and
	EQUALS      // == = != #
	LESSGREATER // < <= > >=
	SHIFT       // << >>
	SUM         // + -
	PRODUCT     // * / %
	PREFIX      // -x !x ~x
	POWER       // ** ^
)

var precedences = map[token.TokenType]int{
	token.QUESTION: TERNARY,
	token.LOR:      LOGICOR,
	token.LAND:     LOGICAND,
	token.OR:       BITOR,
	token.XOR:      BITXOR,
	token.AND:      BITAND,
	token.EQ:       EQUALS,
	token.NOT_EQ:   EQUALS,
	token.LT:       LESSGREATER,
	token.LTE:      LESSGREATER,
	token.GT:       LESSGREATER,
	token.GTE:      LESSGREATER,
	token.SHL:      SHIFT,
	token.SHR:      SHIFT,
	token.PLUS:     SUM,
	token.MINUS:    SUM,
	token.ASTERISK: PRODUCT,
	token.SLASH:    PRODUCT,
	token.PERCENT:  PRODUCT,
	token.POWER:    POWER,
}

// canonical operator spelling per token type, for the synonym forms
// (=, #, and, or, xor, not, ^).
var canonical = map[token.TokenType]string{
	token.EQ:       "==",
	token.NOT_EQ:   "!=",
	token.AND:      "&",
	token.OR:       "|",
	token.XOR:      "xor",
	token.TILDE:    "~",
	token.POWER:    "**",
	token.LAND:     "&&",
	token.LOR:      "||",
	token.LT:       "<",
	token.LTE:      "<=",
	token.GT:       ">",
	token.GTE:      ">=",
	token.SHL:      "<<",
	token.SHR:      ">>",
	token.PLUS:     "+",
	token.MINUS:    "-",
	token.ASTERISK: "*",
	token.SLASH:    "/",
	token.PERCENT:  "%",
	token.BANG:     "!",
}

type (
	prefixParseFn func() ast.Expr
	infixParseFn  func(ast.Expr) ast.Expr
)

type Parser struct {
	l *lexer.Lexer

	curToken  token.Token
	peekToken token.Token

	err        *calcerr.Error
	parenDepth int
	callDepth  int

	prefixParseFns map[token.TokenType]prefixParseFn
	infixParseFns  map[token.TokenType]infixParseFn
}

func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}

	p.prefixParseFns = make(map[token.TokenType]prefixParseFn)
	p.registerPrefix(token.NUMBER, p.parseNumberLiteral)
	p.registerPrefix(token.IDENT, p.parseIdentifier)
	p.registerPrefix(token.MINUS, p.parsePrefixExpression)
	p.registerPrefix(token.BANG, p.parsePrefixExpression)
	p.registerPrefix(token.TILDE, p.parsePrefixExpression)
	p.registerPrefix(token.LPAREN, p.parseGroupedExpression)

	p.infixParseFns = make(map[token.TokenType]infixParseFn)
	for tt := range precedences {
		if tt == token.QUESTION {
			continue
		}
		p.registerInfix(tt, p.parseInfixExpression)
	}
	p.registerInfix(token.QUESTION, p.parseConditionalExpression)

	// Read two tokens, so curToken and peekToken are both set
	p.nextToken()
	p.nextToken()

	return p
}

func (p *Parser) registerPrefix(tokenType token.TokenType, fn prefixParseFn) {
	p.prefixParseFns[tokenType] = fn
}

func (p *Parser) registerInfix(tokenType token.TokenType, fn infixParseFn) {
	p.infixParseFns[tokenType] = fn
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curTokenIs(t token.TokenType) bool  { return p.curToken.Type == t }
func (p *Parser) peekTokenIs(t token.TokenType) bool { return p.peekToken.Type == t }

func (p *Parser) peekPrecedence() int {
	if prec, ok := precedences[p.peekToken.Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if prec, ok := precedences[p.curToken.Type]; ok {
		return prec
	}
	return LOWEST
}

// fail records the first error; later ones are dropped since compilation
// stops at the first fault.
func (p *Parser) fail(code calcerr.Code, pos int) ast.Expr {
	if p.err == nil {
		p.err = calcerr.New(code, pos)
	}
	return nil
}

// ParseProgram parses the whole infix source. It enforces that exactly one
// sub-expression produces a value: more than one is TooMany, none at all
// is BadAssignment.
func (p *Parser) ParseProgram() (*ast.Program, error) {
	if p.curTokenIs(token.EOF) {
		return nil, calcerr.New(calcerr.NullArg, 0)
	}

	program := &ast.Program{}
	results := 0

	for {
		sub := p.parseSubExpr()
		if p.err != nil {
			return nil, p.err
		}
		program.Subs = append(program.Subs, sub)

		if sub.Target < 0 {
			results++
			if results > 1 {
				return nil, calcerr.New(calcerr.TooMany, sub.TokPos)
			}
		}

		p.nextToken()
		if p.curTokenIs(token.SEMICOLON) {
			p.nextToken()
			if p.curTokenIs(token.EOF) {
				break
			}
			continue
		}
		if p.curTokenIs(token.EOF) {
			break
		}

		// A leftover token after a complete sub-expression.
		switch p.curToken.Type {
		case token.RPAREN:
			return nil, calcerr.New(calcerr.ParenNotOpen, p.curToken.Pos)
		case token.COMMA:
			return nil, calcerr.New(calcerr.BadSeparator, p.curToken.Pos)
		case token.COLON:
			return nil, calcerr.New(calcerr.Conditional, p.curToken.Pos)
		case token.ASSIGN:
			return nil, calcerr.New(calcerr.BadAssignment, p.curToken.Pos)
		case token.BADNUM:
			return nil, calcerr.New(calcerr.BadLiteral, p.curToken.Pos)
		default:
			return nil, calcerr.New(calcerr.Syntax, p.curToken.Pos)
		}
	}

	if results == 0 {
		return nil, calcerr.New(calcerr.BadAssignment, p.curToken.Pos)
	}
	return program, nil
}

func (p *Parser) parseSubExpr() *ast.SubExpr {
	sub := &ast.SubExpr{TokPos: p.curToken.Pos, Target: -1}

	if p.curTokenIs(token.IDENT) && p.peekTokenIs(token.ASSIGN) {
		slot := varSlot(p.curToken.Literal)
		if slot < 0 {
			p.fail(calcerr.BadAssignment, p.curToken.Pos)
			return sub
		}
		sub.Target = slot
		p.nextToken() // onto :=
		p.nextToken() // onto the right-hand side
	}

	sub.Value = p.parseExpression(LOWEST)
	return sub
}

func (p *Parser) parseExpression(precedence int) ast.Expr {
	if p.err != nil {
		return nil
	}

	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		return p.noPrefixError()
	}
	leftExp := prefix()

	for p.err == nil && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}
		p.nextToken()
		leftExp = infix(leftExp)
	}

	return leftExp
}

// noPrefixError maps a token that cannot begin an operand onto the error
// taxonomy the record layer expects.
func (p *Parser) noPrefixError() ast.Expr {
	tok := p.curToken
	switch tok.Type {
	case token.EOF:
		return p.fail(calcerr.Incomplete, tok.Pos)
	case token.BADNUM:
		return p.fail(calcerr.BadLiteral, tok.Pos)
	case token.RPAREN:
		if p.parenDepth == 0 {
			return p.fail(calcerr.ParenNotOpen, tok.Pos)
		}
		return p.fail(calcerr.Syntax, tok.Pos)
	case token.QUESTION, token.COLON:
		return p.fail(calcerr.Conditional, tok.Pos)
	case token.COMMA:
		if p.callDepth == 0 {
			return p.fail(calcerr.BadSeparator, tok.Pos)
		}
		return p.fail(calcerr.Syntax, tok.Pos)
	case token.ASSIGN:
		return p.fail(calcerr.BadAssignment, tok.Pos)
	case token.SEMICOLON:
		return p.fail(calcerr.Syntax, tok.Pos)
	default:
		return p.fail(calcerr.Syntax, tok.Pos)
	}
}

func (p *Parser) parseNumberLiteral() ast.Expr {
	return &ast.NumberLit{TokPos: p.curToken.Pos, Value: p.curToken.Value, Literal: p.curToken.Literal}
}

// parseIdentifier resolves variables, VAL, named constants, the literal
// spellings of Inf and NaN, rndm and function names. Everything is case
// independent.
func (p *Parser) parseIdentifier() ast.Expr {
	tok := p.curToken
	name := strings.ToLower(tok.Literal)

	if slot := varSlot(tok.Literal); slot >= 0 {
		return &ast.VarRef{TokPos: tok.Pos, Slot: slot}
	}

	switch name {
	case "val":
		return &ast.ValRef{TokPos: tok.Pos}
	case "pi":
		return &ast.ConstRef{TokPos: tok.Pos, ID: opcode.ConstPi, Name: "PI"}
	case "d2r":
		return &ast.ConstRef{TokPos: tok.Pos, ID: opcode.ConstD2R, Name: "D2R"}
	case "r2d":
		return &ast.ConstRef{TokPos: tok.Pos, ID: opcode.ConstR2D, Name: "R2D"}
	case "inf", "infinity":
		return &ast.NumberLit{TokPos: tok.Pos, Value: math.Inf(1), Literal: "Inf"}
	case "nan":
		return &ast.NumberLit{TokPos: tok.Pos, Value: math.NaN(), Literal: "NaN"}
	case "rndm":
		return &ast.RandomRef{TokPos: tok.Pos}
	}

	if def, ok := opcode.LookupFunc(name); ok {
		return p.parseCallExpression(tok, def)
	}

	return p.fail(calcerr.Syntax, tok.Pos)
}

func (p *Parser) parseCallExpression(fnTok token.Token, def opcode.FuncDef) ast.Expr {
	call := &ast.CallExpr{TokPos: fnTok.Pos, Name: def.Name}

	if !p.peekTokenIs(token.LPAREN) {
		return p.fail(calcerr.Syntax, p.peekToken.Pos)
	}
	p.nextToken() // onto (
	p.parenDepth++
	p.callDepth++
	defer func() { p.parenDepth--; p.callDepth-- }()

	if p.peekTokenIs(token.RPAREN) {
		// every function takes at least one argument
		return p.fail(calcerr.Syntax, p.peekToken.Pos)
	}

	for {
		p.nextToken()
		arg := p.parseExpression(LOWEST)
		if p.err != nil {
			return nil
		}
		call.Args = append(call.Args, arg)

		switch p.peekToken.Type {
		case token.COMMA:
			p.nextToken()
			continue
		case token.RPAREN:
			p.nextToken()
			if !def.Variadic && len(call.Args) != def.Arity {
				return p.fail(calcerr.Syntax, fnTok.Pos)
			}
			if def.Variadic && len(call.Args) > 255 {
				return p.fail(calcerr.Syntax, fnTok.Pos)
			}
			return call
		case token.EOF:
			return p.fail(calcerr.ParenOpen, p.peekToken.Pos)
		case token.ASSIGN:
			return p.fail(calcerr.BadAssignment, p.peekToken.Pos)
		default:
			return p.fail(calcerr.Syntax, p.peekToken.Pos)
		}
	}
}

func (p *Parser) parsePrefixExpression() ast.Expr {
	expr := &ast.PrefixExpr{
		TokPos:   p.curToken.Pos,
		Operator: canonical[p.curToken.Type],
	}
	p.nextToken()
	expr.Right = p.parseExpression(PREFIX)
	return expr
}

func (p *Parser) parseInfixExpression(left ast.Expr) ast.Expr {
	expr := &ast.InfixExpr{
		TokPos:   p.curToken.Pos,
		Operator: canonical[p.curToken.Type],
		Left:     left,
	}
	precedence := p.curPrecedence()
	p.nextToken()
	expr.Right = p.parseExpression(precedence)
	return expr
}

// parseConditionalExpression parses `cond ? a : b`. The conditional is
// right associative, so the false branch is parsed one level below TERNARY.
func (p *Parser) parseConditionalExpression(cond ast.Expr) ast.Expr {
	expr := &ast.CondExpr{TokPos: p.curToken.Pos, Cond: cond}

	p.nextToken()
	expr.True = p.parseExpression(LOWEST)
	if p.err != nil {
		return nil
	}

	if !p.peekTokenIs(token.COLON) {
		return p.fail(calcerr.Conditional, p.peekToken.Pos)
	}
	p.nextToken() // onto :
	p.nextToken()
	expr.False = p.parseExpression(TERNARY - 1)
	return expr
}

func (p *Parser) parseGroupedExpression() ast.Expr {
	open := p.curToken.Pos
	p.parenDepth++
	defer func() { p.parenDepth-- }()

	p.nextToken()
	expr := p.parseExpression(LOWEST)
	if p.err != nil {
		return nil
	}

	switch p.peekToken.Type {
	case token.RPAREN:
		p.nextToken()
		return expr
	case token.EOF:
		return p.fail(calcerr.ParenOpen, open)
	case token.COMMA:
		if p.callDepth == 0 {
			return p.fail(calcerr.BadSeparator, p.peekToken.Pos)
		}
		return p.fail(calcerr.Syntax, p.peekToken.Pos)
	case token.ASSIGN:
		return p.fail(calcerr.BadAssignment, p.peekToken.Pos)
	default:
		return p.fail(calcerr.Syntax, p.peekToken.Pos)
	}
}

// varSlot maps a single letter A..L (either case) to its argument slot,
// or -1 if the name is not a variable.
func varSlot(name string) int {
	if len(name) != 1 {
		return -1
	}
	c := name[0] | 0x20
	if c < 'a' || c > 'a'+opcode.NArgs-1 {
		return -1
	}
	return int(c - 'a')
}
