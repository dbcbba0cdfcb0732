package vm

import (
	"math"
	"math/rand"

	"calcgo/pkg/calcerr"
	"calcgo/pkg/opcode"
)

// StackDepth is the fixed capacity of the evaluation stack. The compiler
// guarantees compiled programs stay within it; the checks here only catch
// corrupted or foreign bytecode.
const StackDepth = opcode.StackDepth

// NArgs is the size of the argument vector.
const NArgs = opcode.NArgs

const (
	d2r = math.Pi / 180
	r2d = 180 / math.Pi
)

// Perform executes a compiled program against the argument vector. Slots
// targeted by assignment are mutated in place. val supplies the previous
// result read by VAL. The returned value may be NaN or an Infinity; those
// propagate through the arithmetic without an error status.
func Perform(post opcode.Instructions, args *[NArgs]float64, val float64) (float64, error) {
	var stack [StackDepth]float64
	sp := 0 // next free slot; top of stack is stack[sp-1]
	ip := 0

	for ip < len(post) {
		op := opcode.Opcode(post[ip])
		ip++

		switch op {
		case opcode.OpEnd:
			if sp != 1 {
				return 0, calcerr.New(calcerr.Internal, -1)
			}
			return stack[0], nil

		case opcode.OpEndExpr, opcode.OpCondEnd:
			// markers only

		case opcode.OpLiteralDouble:
			if ip+8 > len(post) {
				return 0, calcerr.New(calcerr.Internal, -1)
			}
			if sp >= StackDepth {
				return 0, calcerr.New(calcerr.Overflow, -1)
			}
			stack[sp] = math.Float64frombits(opcode.ReadUint64(post[ip:]))
			sp++
			ip += 8

		case opcode.OpLiteralInt:
			if ip+4 > len(post) {
				return 0, calcerr.New(calcerr.Internal, -1)
			}
			if sp >= StackDepth {
				return 0, calcerr.New(calcerr.Overflow, -1)
			}
			stack[sp] = float64(int32(opcode.ReadUint32(post[ip:])))
			sp++
			ip += 4

		case opcode.OpFetch:
			if ip >= len(post) || post[ip] >= NArgs {
				return 0, calcerr.New(calcerr.Internal, -1)
			}
			if sp >= StackDepth {
				return 0, calcerr.New(calcerr.Overflow, -1)
			}
			stack[sp] = args[post[ip]]
			sp++
			ip++

		case opcode.OpFetchVal:
			if sp >= StackDepth {
				return 0, calcerr.New(calcerr.Overflow, -1)
			}
			stack[sp] = val
			sp++

		case opcode.OpStore:
			if ip >= len(post) || post[ip] >= NArgs {
				return 0, calcerr.New(calcerr.Internal, -1)
			}
			if sp < 1 {
				return 0, calcerr.New(calcerr.Underflow, -1)
			}
			sp--
			args[post[ip]] = stack[sp]
			ip++

		case opcode.OpConstant:
			if ip >= len(post) {
				return 0, calcerr.New(calcerr.Internal, -1)
			}
			if sp >= StackDepth {
				return 0, calcerr.New(calcerr.Overflow, -1)
			}
			switch post[ip] {
			case opcode.ConstPi:
				stack[sp] = math.Pi
			case opcode.ConstD2R:
				stack[sp] = d2r
			case opcode.ConstR2D:
				stack[sp] = r2d
			default:
				return 0, calcerr.New(calcerr.Internal, -1)
			}
			sp++
			ip++

		case opcode.OpRandom:
			if sp >= StackDepth {
				return 0, calcerr.New(calcerr.Overflow, -1)
			}
			stack[sp] = rand.Float64()
			sp++

		case opcode.OpNeg:
			if sp < 1 {
				return 0, calcerr.New(calcerr.Underflow, -1)
			}
			stack[sp-1] = -stack[sp-1]

		case opcode.OpNot:
			if sp < 1 {
				return 0, calcerr.New(calcerr.Underflow, -1)
			}
			stack[sp-1] = boolToDouble(stack[sp-1] == 0)

		case opcode.OpBitNot:
			if sp < 1 {
				return 0, calcerr.New(calcerr.Underflow, -1)
			}
			stack[sp-1] = float64(^toInt64(stack[sp-1]))

		case opcode.OpAdd, opcode.OpSub, opcode.OpMul, opcode.OpDiv, opcode.OpMod,
			opcode.OpPow, opcode.OpLT, opcode.OpLE, opcode.OpGT, opcode.OpGE,
			opcode.OpEQ, opcode.OpNE, opcode.OpBitAnd, opcode.OpBitOr,
			opcode.OpBitXor, opcode.OpShl, opcode.OpShr, opcode.OpLogAnd,
			opcode.OpLogOr:
			if sp < 2 {
				return 0, calcerr.New(calcerr.Underflow, -1)
			}
			right := stack[sp-1]
			left := stack[sp-2]
			sp--
			stack[sp-1] = binaryOp(op, left, right)

		case opcode.OpCondIf:
			if sp < 1 {
				return 0, calcerr.New(calcerr.Underflow, -1)
			}
			sp--
			if stack[sp] == 0 {
				next, ok := condSearch(post, ip, opcode.OpCondElse)
				if !ok {
					return 0, calcerr.New(calcerr.Internal, -1)
				}
				ip = next
			}

		case opcode.OpCondElse:
			// end of the taken true branch: skip the false branch
			next, ok := condSearch(post, ip, opcode.OpCondEnd)
			if !ok {
				return 0, calcerr.New(calcerr.Internal, -1)
			}
			ip = next

		case opcode.OpFunc:
			if ip >= len(post) {
				return 0, calcerr.New(calcerr.Internal, -1)
			}
			id := opcode.FuncID(post[ip])
			ip++
			var err error
			sp, err = callFunc(id, &stack, sp)
			if err != nil {
				return 0, err
			}

		case opcode.OpFuncVar:
			if ip+2 > len(post) {
				return 0, calcerr.New(calcerr.Internal, -1)
			}
			id := opcode.FuncID(post[ip])
			n := int(post[ip+1])
			ip += 2
			var err error
			sp, err = callFuncVar(id, &stack, sp, n)
			if err != nil {
				return 0, err
			}

		default:
			return 0, calcerr.New(calcerr.Internal, -1)
		}
	}

	// ran off the end without OpEnd
	return 0, calcerr.New(calcerr.Internal, -1)
}

func binaryOp(op opcode.Opcode, left, right float64) float64 {
	switch op {
	case opcode.OpAdd:
		return left + right
	case opcode.OpSub:
		return left - right
	case opcode.OpMul:
		return left * right
	case opcode.OpDiv:
		return left / right
	case opcode.OpMod:
		r := toInt64(right)
		if r == 0 {
			return math.NaN()
		}
		return float64(toInt64(left) % r)
	case opcode.OpPow:
		return math.Pow(left, right)
	case opcode.OpLT:
		return boolToDouble(left < right)
	case opcode.OpLE:
		return boolToDouble(left <= right)
	case opcode.OpGT:
		return boolToDouble(left > right)
	case opcode.OpGE:
		return boolToDouble(left >= right)
	case opcode.OpEQ:
		return boolToDouble(left == right)
	case opcode.OpNE:
		return boolToDouble(left != right)
	case opcode.OpBitAnd:
		return float64(toInt64(left) & toInt64(right))
	case opcode.OpBitOr:
		return float64(toInt64(left) | toInt64(right))
	case opcode.OpBitXor:
		return float64(toInt64(left) ^ toInt64(right))
	case opcode.OpShl:
		return float64(toInt64(left) << (uint64(toInt64(right)) & 63))
	case opcode.OpShr:
		return float64(toInt64(left) >> (uint64(toInt64(right)) & 63))
	case opcode.OpLogAnd:
		return boolToDouble(left != 0 && right != 0)
	case opcode.OpLogOr:
		return boolToDouble(left != 0 || right != 0)
	}
	return math.NaN()
}

func callFunc(id opcode.FuncID, stack *[StackDepth]float64, sp int) (int, error) {
	if id == opcode.FnAtan2 {
		if sp < 2 {
			return sp, calcerr.New(calcerr.Underflow, -1)
		}
		b := stack[sp-1]
		a := stack[sp-2]
		sp--
		// arguments are reversed relative to the C library function:
		// atan2(a,b) yields the arctangent of b/a
		stack[sp-1] = math.Atan2(b, a)
		return sp, nil
	}

	if sp < 1 {
		return sp, calcerr.New(calcerr.Underflow, -1)
	}
	x := stack[sp-1]

	var r float64
	switch id {
	case opcode.FnAbs:
		r = math.Abs(x)
	case opcode.FnExp:
		r = math.Exp(x)
	case opcode.FnLog:
		r = math.Log10(x)
	case opcode.FnLn:
		r = math.Log(x)
	case opcode.FnSqrt:
		r = math.Sqrt(x)
	case opcode.FnSin:
		r = math.Sin(x)
	case opcode.FnCos:
		r = math.Cos(x)
	case opcode.FnTan:
		r = math.Tan(x)
	case opcode.FnAsin:
		r = math.Asin(x)
	case opcode.FnAcos:
		r = math.Acos(x)
	case opcode.FnAtan:
		r = math.Atan(x)
	case opcode.FnSinh:
		r = math.Sinh(x)
	case opcode.FnCosh:
		r = math.Cosh(x)
	case opcode.FnTanh:
		r = math.Tanh(x)
	case opcode.FnCeil:
		r = math.Ceil(x)
	case opcode.FnFloor:
		r = math.Floor(x)
	case opcode.FnNint:
		if x >= 0 {
			r = math.Trunc(x + 0.5)
		} else {
			r = math.Trunc(x - 0.5)
		}
	case opcode.FnIsInf:
		switch {
		case math.IsInf(x, 1):
			r = 1
		case math.IsInf(x, -1):
			r = -1
		default:
			r = 0
		}
	default:
		return sp, calcerr.New(calcerr.Internal, -1)
	}

	stack[sp-1] = r
	return sp, nil
}

func callFuncVar(id opcode.FuncID, stack *[StackDepth]float64, sp, n int) (int, error) {
	if n < 1 {
		return sp, calcerr.New(calcerr.Internal, -1)
	}
	if sp < n {
		return sp, calcerr.New(calcerr.Underflow, -1)
	}
	argv := stack[sp-n : sp]

	var r float64
	switch id {
	case opcode.FnMin:
		r = argv[0]
		for _, v := range argv[1:] {
			if v < r || math.IsNaN(v) {
				r = v
			}
		}
	case opcode.FnMax:
		r = argv[0]
		for _, v := range argv[1:] {
			if v > r || math.IsNaN(v) {
				r = v
			}
		}
	case opcode.FnIsNan:
		r = 0
		for _, v := range argv {
			if math.IsNaN(v) {
				r = 1
				break
			}
		}
	case opcode.FnFinite:
		r = 1
		for _, v := range argv {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				r = 0
				break
			}
		}
	default:
		return sp, calcerr.New(calcerr.Internal, -1)
	}

	sp -= n - 1
	stack[sp-1] = r
	return sp, nil
}

// condSearch scans forward for the matching conditional marker, skipping
// embedded literal bytes and nested conditionals. Returns the position
// just past the marker.
func condSearch(post opcode.Instructions, ip int, match opcode.Opcode) (int, bool) {
	depth := 0
	for ip < len(post) {
		op := opcode.Opcode(post[ip])
		def, err := opcode.Lookup(post[ip])
		if err != nil {
			return 0, false
		}
		next := ip + 1 + def.Width()
		if next > len(post) {
			return 0, false
		}

		if op == match {
			if depth == 0 {
				return next, true
			}
			depth--
		} else if op == opcode.OpCondIf {
			depth++
		}
		ip = next
	}
	return 0, false
}

// toInt64 truncates toward zero for the integer operators. NaN maps to 0
// and out-of-range magnitudes saturate, mirroring how the original clamps
// rather than trapping.
func toInt64(x float64) int64 {
	switch {
	case math.IsNaN(x):
		return 0
	case x >= math.MaxInt64:
		return math.MaxInt64
	case x <= math.MinInt64:
		return math.MinInt64
	}
	return int64(math.Trunc(x))
}

func boolToDouble(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
