// Package condition evaluates script conditions against session variables
// and the in-game clock. Evaluation is pure: reading an unset variable
// yields 0 but never writes it back.
package condition

import "github.com/nathoo/sceneweaver/types"

// Env is the read-only view a condition is evaluated against.
type Env interface {
	Var(name string) (any, bool)
	Hour() int
}

// Evaluate reports whether c holds in env. A nil condition holds; unknown
// or malformed conditions do not.
func Evaluate(c types.Condition, env Env) bool {
	switch c := c.(type) {
	case nil:
		return true

	case types.Literal:
		return bool(c)

	case types.Var:
		if c.Name == "" || c.Value == nil {
			return false
		}
		v, ok := env.Var(c.Name)
		if !ok || v == nil {
			v = float64(0)
		}
		return Compare(v, c.Op, c.Value)

	case types.TimeOfDay:
		return Compare(float64(env.Hour()), c.Op, float64(c.Hour))

	case types.And:
		if len(c.Conds) == 0 {
			return true
		}
		result := true
		for _, inner := range c.Conds {
			if !Evaluate(inner, env) {
				result = false
			}
		}
		return result

	case types.Or:
		result := false
		for _, inner := range c.Conds {
			if Evaluate(inner, env) {
				result = true
			}
		}
		return result

	case types.Not:
		if c.Cond == nil {
			// An empty Not negates false.
			return true
		}
		return !Evaluate(c.Cond, env)

	default:
		return false
	}
}

// All returns true if every condition holds. An empty list is vacuously true.
func All(conds []types.Condition, env Env) bool {
	for _, c := range conds {
		if !Evaluate(c, env) {
			return false
		}
	}
	return true
}

// MapEnv adapts a plain variable map and hour to Env.
type MapEnv struct {
	Vars    map[string]any
	HourNow int
}

func (m MapEnv) Var(name string) (any, bool) {
	v, ok := m.Vars[name]
	return v, ok
}

func (m MapEnv) Hour() int { return m.HourNow }
