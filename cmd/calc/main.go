package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"calcgo/pkg/calc"
	"calcgo/pkg/opcode"
)

const PROMPT = ">>> "

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	command := os.Args[1]

	switch command {
	case "--help", "-h", "help":
		printUsage()
	case "repl":
		startREPL()
	case "eval":
		if len(os.Args) < 3 {
			fmt.Println("Usage: calc eval '<expr>' [A=1 B=2 ...]")
			os.Exit(1)
		}
		evalExpr(os.Args[2], os.Args[3:])
	case "dump":
		if len(os.Args) < 3 {
			fmt.Println("Usage: calc dump '<expr>'")
			os.Exit(1)
		}
		dumpExpr(os.Args[2])
	case "usage":
		if len(os.Args) < 3 {
			fmt.Println("Usage: calc usage '<expr>'")
			os.Exit(1)
		}
		usageExpr(os.Args[2])
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("calc — expression compiler and evaluator")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  calc eval '<expr>' [A=1 ...]  Evaluate an expression")
	fmt.Println("  calc dump '<expr>'            Disassemble the compiled program")
	fmt.Println("  calc usage '<expr>'           Show which variables are read and assigned")
	fmt.Println("  calc repl                     Start the interactive loop")
	fmt.Println("  calc help                     Show this help message")
	fmt.Println()
	fmt.Println("Variables A through L are set with NAME=VALUE arguments; VAL holds")
	fmt.Println("the previous result in the repl.")
}

// parseArgs fills the argument vector from NAME=VALUE pairs.
func parseArgs(pairs []string, args *[calc.NArgs]float64) error {
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("bad argument %q, expected NAME=VALUE", pair)
		}
		slot := slotOf(name)
		if slot < 0 {
			return fmt.Errorf("unknown variable %q, expected A through L", name)
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("bad value for %s: %v", name, err)
		}
		args[slot] = v
	}
	return nil
}

func slotOf(name string) int {
	if len(name) != 1 {
		return -1
	}
	c := name[0] | 0x20
	if c < 'a' || c > 'l' {
		return -1
	}
	return int(c - 'a')
}

func evalExpr(expr string, pairs []string) {
	var args [calc.NArgs]float64
	if err := parseArgs(pairs, &args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	post, err := calc.Compile(expr)
	if err != nil {
		reportCompileError(expr, err)
		os.Exit(1)
	}

	result, err := calc.Perform(post, &args, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Runtime error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(strconv.FormatFloat(result, 'g', -1, 64))
}

func dumpExpr(expr string) {
	post, err := calc.Compile(expr)
	if err != nil {
		reportCompileError(expr, err)
		os.Exit(1)
	}

	fmt.Printf("Input: %s\n", expr)
	fmt.Printf("Compiled to %d bytes (buffer bound %d):\n\n", len(post), calc.PostfixSize(len(expr)+1))
	fmt.Print(calc.ExprDump(post))
}

func usageExpr(expr string) {
	post, err := calc.Compile(expr)
	if err != nil {
		reportCompileError(expr, err)
		os.Exit(1)
	}

	inputs, stores, err := calc.ArgUsage(post)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	fmt.Printf("reads:   %s\n", bitmapLetters(inputs))
	fmt.Printf("assigns: %s\n", bitmapLetters(stores))
}

func bitmapLetters(bits uint16) string {
	var out strings.Builder
	for slot := 0; slot < calc.NArgs; slot++ {
		if bits&(1<<slot) != 0 {
			if out.Len() > 0 {
				out.WriteByte(' ')
			}
			out.WriteString(opcode.SlotName(byte(slot)))
		}
	}
	if out.Len() == 0 {
		return "(none)"
	}
	return out.String()
}

func startREPL() {
	scanner := bufio.NewScanner(os.Stdin)
	var args [calc.NArgs]float64
	val := 0.0

	fmt.Println("calc repl — expressions over variables A..L, VAL is the last result")
	fmt.Println("Commands: vars, quit")

	for {
		fmt.Print(PROMPT)
		if !scanner.Scan() {
			return
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "quit", "exit":
			return
		case "vars":
			for slot := 0; slot < calc.NArgs; slot++ {
				fmt.Printf("  %s = %g\n", opcode.SlotName(byte(slot)), args[slot])
			}
			fmt.Printf("  VAL = %g\n", val)
			continue
		}

		// NAME=VALUE sets a variable directly
		if name, value, ok := strings.Cut(line, "="); ok && slotOf(name) >= 0 && !strings.ContainsAny(value, "=<>!") {
			if v, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
				args[slotOf(name)] = v
				continue
			}
		}

		post, err := calc.Compile(line)
		if err != nil {
			reportCompileError(line, err)
			continue
		}

		result, err := calc.Perform(post, &args, val)
		if err != nil {
			fmt.Printf("Runtime error: %v\n", err)
			continue
		}
		val = result
		fmt.Println(strconv.FormatFloat(result, 'g', -1, 64))
	}
}

// reportCompileError prints the error with a caret under the offending
// position when one is known.
func reportCompileError(expr string, err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	if pos := calc.ErrorPos(err); pos >= 0 && pos <= len(expr) {
		fmt.Fprintf(os.Stderr, "  %s\n  %s^\n", expr, strings.Repeat(" ", pos))
	}
}
