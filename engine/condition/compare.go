package condition

import "github.com/nathoo/sceneweaver/engine/state"

// Compare applies op to a and b with loose equality: numbers and booleans
// compare numerically, two strings compare as strings, and a string against
// a number compares numerically when the string parses. Unknown operators
// and incomparable operands yield false.
func Compare(a any, op string, b any) bool {
	a, b = state.Normalize(a), state.Normalize(b)

	switch op {
	case "==":
		return looseEqual(a, b)
	case "!=":
		return !looseEqual(a, b)
	case ">", "<", ">=", "<=":
		return ordered(a, op, b)
	default:
		return false
	}
}

func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	as, aStr := a.(string)
	bs, bStr := b.(string)
	if aStr && bStr {
		return as == bs
	}
	af, aok := state.ToFloat(a)
	bf, bok := state.ToFloat(b)
	if !aok || !bok {
		return false
	}
	return af == bf
}

func ordered(a any, op string, b any) bool {
	as, aStr := a.(string)
	bs, bStr := b.(string)
	if aStr && bStr {
		switch op {
		case ">":
			return as > bs
		case "<":
			return as < bs
		case ">=":
			return as >= bs
		default:
			return as <= bs
		}
	}
	af, aok := state.ToFloat(a)
	bf, bok := state.ToFloat(b)
	if !aok || !bok {
		return false
	}
	switch op {
	case ">":
		return af > bf
	case "<":
		return af < bf
	case ">=":
		return af >= bf
	default:
		return af <= bf
	}
}
