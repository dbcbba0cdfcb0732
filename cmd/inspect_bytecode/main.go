package main

import (
	"fmt"
	"os"

	"calcgo/pkg/calc"
	"calcgo/pkg/opcode"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: inspect_bytecode '<expr>'")
		os.Exit(1)
	}

	input := os.Args[1]
	post, err := calc.Compile(input)
	if err != nil {
		fmt.Printf("Compile error: %s\n", err)
		os.Exit(1)
	}

	fmt.Printf("Instructions (%d bytes, bound %d):\n", len(post), calc.PostfixSize(len(input)+1))

	i := 0
	for i < len(post) {
		def, err := opcode.Lookup(post[i])
		if err != nil {
			fmt.Printf("%04d ERROR: %s\n", i, err)
			i++
			continue
		}

		width := def.Width()
		fmt.Printf("%04d %s\n", i, def.Name)

		// Print hex dump for this instruction
		fmt.Printf("     Raw: ")
		for k := 0; k < 1+width && i+k < len(post); k++ {
			fmt.Printf("%02x ", post[i+k])
		}
		fmt.Println()

		i += 1 + width
	}

	inputs, stores, err := calc.ArgUsage(post)
	if err == nil {
		fmt.Printf("\nreads=%012b assigns=%012b\n", inputs, stores)
	}
}
