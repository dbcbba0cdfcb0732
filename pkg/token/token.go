package token

import (
	"fmt"
	"strings"
)

type TokenType string

const (
	// Special
	ILLEGAL = "ILLEGAL"
	BADNUM  = "BADNUM" // numeric literal that failed to parse
	EOF     = "EOF"

	// Literals & identifiers
	NUMBER = "NUMBER"
	IDENT  = "IDENT"

	// Operators
	ASSIGN   = ":="
	PLUS     = "+"
	MINUS    = "-"
	ASTERISK = "*"
	SLASH    = "/"
	PERCENT  = "%"
	POWER    = "**" // also ^
	BANG     = "!"
	TILDE    = "~" // also the keyword "not"

	AND  = "&" // also the keyword "and"
	OR   = "|" // also the keyword "or"
	XOR  = "XOR"
	LAND = "&&"
	LOR  = "||"

	LT     = "<"
	GT     = ">"
	LTE    = "<="
	GTE    = ">="
	EQ     = "==" // also =
	NOT_EQ = "!=" // also #
	SHL    = "<<"
	SHR    = ">>"

	// Delimiters
	COMMA     = ","
	SEMICOLON = ";"
	COLON     = ":"
	QUESTION  = "?"
	LPAREN    = "("
	RPAREN    = ")"
)

// Token carries the matched lexeme and its byte offset in the source.
// Value is only meaningful for NUMBER tokens.
type Token struct {
	Type    TokenType
	Literal string
	Pos     int
	Value   float64
}

func (t Token) String() string {
	return fmt.Sprintf("Token(%s, %q, %d)", t.Type, t.Literal, t.Pos)
}

// Word operators. All keywords are case independent.
var keywords = map[string]TokenType{
	"and": AND,
	"or":  OR,
	"xor": XOR,
	"not": TILDE,
}

// LookupWord maps word operators to their token type; anything else is an
// identifier (variable, constant or function name).
func LookupWord(word string) TokenType {
	if tok, ok := keywords[strings.ToLower(word)]; ok {
		return tok
	}
	return IDENT
}
