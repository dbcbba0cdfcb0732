package lexer

import (
	"strconv"

	"calcgo/pkg/token"
)

type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
}

func New(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition += 1
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) NextToken() token.Token {
	var tok token.Token

	for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n' {
		l.readChar()
	}

	pos := l.position

	switch l.ch {
	case '+':
		tok = newToken(token.PLUS, l.ch, pos)
	case '-':
		tok = newToken(token.MINUS, l.ch, pos)
	case '*':
		if l.peekChar() == '*' {
			l.readChar()
			tok = token.Token{Type: token.POWER, Literal: "**", Pos: pos}
		} else {
			tok = newToken(token.ASTERISK, l.ch, pos)
		}
	case '^':
		tok = token.Token{Type: token.POWER, Literal: "^", Pos: pos}
	case '/':
		tok = newToken(token.SLASH, l.ch, pos)
	case '%':
		tok = newToken(token.PERCENT, l.ch, pos)
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.NOT_EQ, Literal: "!=", Pos: pos}
		} else {
			tok = newToken(token.BANG, l.ch, pos)
		}
	case '~':
		tok = newToken(token.TILDE, l.ch, pos)
	case '#':
		tok = token.Token{Type: token.NOT_EQ, Literal: "#", Pos: pos}
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.EQ, Literal: "==", Pos: pos}
		} else {
			tok = token.Token{Type: token.EQ, Literal: "=", Pos: pos}
		}
	case '<':
		switch l.peekChar() {
		case '=':
			l.readChar()
			tok = token.Token{Type: token.LTE, Literal: "<=", Pos: pos}
		case '<':
			l.readChar()
			tok = token.Token{Type: token.SHL, Literal: "<<", Pos: pos}
		default:
			tok = newToken(token.LT, l.ch, pos)
		}
	case '>':
		switch l.peekChar() {
		case '=':
			l.readChar()
			tok = token.Token{Type: token.GTE, Literal: ">=", Pos: pos}
		case '>':
			l.readChar()
			tok = token.Token{Type: token.SHR, Literal: ">>", Pos: pos}
		default:
			tok = newToken(token.GT, l.ch, pos)
		}
	case '&':
		if l.peekChar() == '&' {
			l.readChar()
			tok = token.Token{Type: token.LAND, Literal: "&&", Pos: pos}
		} else {
			tok = newToken(token.AND, l.ch, pos)
		}
	case '|':
		if l.peekChar() == '|' {
			l.readChar()
			tok = token.Token{Type: token.LOR, Literal: "||", Pos: pos}
		} else {
			tok = newToken(token.OR, l.ch, pos)
		}
	case ':':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.ASSIGN, Literal: ":=", Pos: pos}
		} else {
			tok = newToken(token.COLON, l.ch, pos)
		}
	case '?':
		tok = newToken(token.QUESTION, l.ch, pos)
	case ';':
		tok = newToken(token.SEMICOLON, l.ch, pos)
	case ',':
		tok = newToken(token.COMMA, l.ch, pos)
	case '(':
		tok = newToken(token.LPAREN, l.ch, pos)
	case ')':
		tok = newToken(token.RPAREN, l.ch, pos)
	case 0:
		tok.Literal = ""
		tok.Type = token.EOF
		tok.Pos = pos
		return tok
	default:
		if isLetter(l.ch) {
			lit := l.readWord()
			return token.Token{Type: token.LookupWord(lit), Literal: lit, Pos: pos}
		}
		if isDigit(l.ch) || (l.ch == '.' && isDigit(l.peekChar())) {
			return l.readNumber(pos)
		}
		tok = newToken(token.ILLEGAL, l.ch, pos)
	}

	l.readChar()
	return tok
}

func (l *Lexer) readWord() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

// readNumber scans the longest plausible floating point lexeme and lets
// strconv decide whether it actually parses. Malformed literals such as
// "1.2.3" or "1e+" come back as a BADNUM token for the parser to report.
func (l *Lexer) readNumber(pos int) token.Token {
	position := l.position
	for isDigit(l.ch) || l.ch == '.' {
		l.readChar()
	}
	if l.ch == 'e' || l.ch == 'E' {
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	lit := l.input[position:l.position]
	v, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return token.Token{Type: token.BADNUM, Literal: lit, Pos: pos}
	}
	return token.Token{Type: token.NUMBER, Literal: lit, Pos: pos, Value: v}
}

func newToken(tokenType token.TokenType, ch byte, pos int) token.Token {
	return token.Token{Type: tokenType, Literal: string(ch), Pos: pos}
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
