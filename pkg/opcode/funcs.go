package opcode

import (
	"fmt"
	"strings"
)

// FuncID identifies a function for OpFunc / OpFuncVar.
type FuncID byte

const (
	FnAbs FuncID = iota
	FnExp
	FnLog
	FnLn
	FnSqrt
	FnSin
	FnCos
	FnTan
	FnAsin
	FnAcos
	FnAtan
	FnAtan2
	FnSinh
	FnCosh
	FnTanh
	FnCeil
	FnFloor
	FnNint
	FnIsInf
	FnMin
	FnMax
	FnIsNan
	FnFinite
)

// FuncDef describes a callable function. Variadic functions take any
// number of arguments from MinArgs up; the compiled count is embedded in
// the OpFuncVar instruction.
type FuncDef struct {
	Name     string
	ID       FuncID
	Arity    int
	Variadic bool
	MinArgs  int
}

var funcNames = [...]string{
	FnAbs:    "abs",
	FnExp:    "exp",
	FnLog:    "log",
	FnLn:     "ln",
	FnSqrt:   "sqrt",
	FnSin:    "sin",
	FnCos:    "cos",
	FnTan:    "tan",
	FnAsin:   "asin",
	FnAcos:   "acos",
	FnAtan:   "atan",
	FnAtan2:  "atan2",
	FnSinh:   "sinh",
	FnCosh:   "cosh",
	FnTanh:   "tanh",
	FnCeil:   "ceil",
	FnFloor:  "floor",
	FnNint:   "nint",
	FnIsInf:  "isinf",
	FnMin:    "min",
	FnMax:    "max",
	FnIsNan:  "isnan",
	FnFinite: "finite",
}

func (id FuncID) String() string {
	if int(id) < len(funcNames) {
		return funcNames[id]
	}
	return fmt.Sprintf("func(%d)", byte(id))
}

var funcs = map[string]FuncDef{
	"abs":    {Name: "abs", ID: FnAbs, Arity: 1},
	"exp":    {Name: "exp", ID: FnExp, Arity: 1},
	"log":    {Name: "log", ID: FnLog, Arity: 1},
	"ln":     {Name: "ln", ID: FnLn, Arity: 1},
	"loge":   {Name: "loge", ID: FnLn, Arity: 1},
	"sqr":    {Name: "sqr", ID: FnSqrt, Arity: 1},
	"sqrt":   {Name: "sqrt", ID: FnSqrt, Arity: 1},
	"sin":    {Name: "sin", ID: FnSin, Arity: 1},
	"cos":    {Name: "cos", ID: FnCos, Arity: 1},
	"tan":    {Name: "tan", ID: FnTan, Arity: 1},
	"asin":   {Name: "asin", ID: FnAsin, Arity: 1},
	"acos":   {Name: "acos", ID: FnAcos, Arity: 1},
	"atan":   {Name: "atan", ID: FnAtan, Arity: 1},
	"atan2":  {Name: "atan2", ID: FnAtan2, Arity: 2},
	"sinh":   {Name: "sinh", ID: FnSinh, Arity: 1},
	"cosh":   {Name: "cosh", ID: FnCosh, Arity: 1},
	"tanh":   {Name: "tanh", ID: FnTanh, Arity: 1},
	"ceil":   {Name: "ceil", ID: FnCeil, Arity: 1},
	"floor":  {Name: "floor", ID: FnFloor, Arity: 1},
	"nint":   {Name: "nint", ID: FnNint, Arity: 1},
	"isinf":  {Name: "isinf", ID: FnIsInf, Arity: 1},
	"min":    {Name: "min", ID: FnMin, Variadic: true, MinArgs: 1},
	"max":    {Name: "max", ID: FnMax, Variadic: true, MinArgs: 1},
	"isnan":  {Name: "isnan", ID: FnIsNan, Variadic: true, MinArgs: 1},
	"finite": {Name: "finite", ID: FnFinite, Variadic: true, MinArgs: 1},
}

// LookupFunc resolves a function name, case independent.
func LookupFunc(name string) (FuncDef, bool) {
	def, ok := funcs[strings.ToLower(name)]
	return def, ok
}
