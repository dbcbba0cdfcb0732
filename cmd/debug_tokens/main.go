package main

import (
	"fmt"
	"os"

	"calcgo/pkg/lexer"
	"calcgo/pkg/token"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: debug_tokens '<expr>'")
		os.Exit(1)
	}

	input := os.Args[1]
	l := lexer.New(input)

	fmt.Printf("Input: %s\n\n", input)
	fmt.Println("Tokens:")
	fmt.Println("-------")

	for {
		tok := l.NextToken()
		fmt.Printf("%-12s %-12s (pos %d)\n", tok.Type, fmt.Sprintf("'%s'", tok.Literal), tok.Pos)

		if tok.Type == token.EOF {
			break
		}
	}
}
