package vm

import (
	"calcgo/pkg/calcerr"
	"calcgo/pkg/opcode"
)

// ArgUsage walks a compiled program without executing it and reports which
// argument slots it depends on and which it assigns. Bit i of each bitmap
// corresponds to slot i (A = bit 0 .. L = bit 11).
//
// A slot that is assigned before it is ever read does not need a value
// supplied by the caller, so it is left out of inputs.
func ArgUsage(post opcode.Instructions) (inputs, stores uint16, err error) {
	ip := 0
	for ip < len(post) {
		op := opcode.Opcode(post[ip])
		def, lerr := opcode.Lookup(post[ip])
		if lerr != nil {
			return 0, 0, calcerr.New(calcerr.Internal, -1)
		}
		next := ip + 1 + def.Width()
		if next > len(post) {
			return 0, 0, calcerr.New(calcerr.Internal, -1)
		}

		switch op {
		case opcode.OpEnd:
			return inputs, stores, nil
		case opcode.OpFetch:
			slot := post[ip+1]
			if slot >= NArgs {
				return 0, 0, calcerr.New(calcerr.Internal, -1)
			}
			if stores&(1<<slot) == 0 {
				inputs |= 1 << slot
			}
		case opcode.OpStore:
			slot := post[ip+1]
			if slot >= NArgs {
				return 0, 0, calcerr.New(calcerr.Internal, -1)
			}
			stores |= 1 << slot
		}

		ip = next
	}
	return 0, 0, calcerr.New(calcerr.Internal, -1)
}
