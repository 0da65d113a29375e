package api

import (
	"reflect"

	"github.com/oliveagle/jsonpath"
)

// Condition is a predicate over the run's condition set. A nil Condition on
// a Rule always matches.
type Condition func(conditions map[string]any) bool

// Rule is one state-machine transition: when the action named From completes
// and When matches the current conditions, the action named To is scheduled
// next. Rules are evaluated in declaration order; the first match wins.
type Rule struct {
	From string
	To   string
	When Condition
}

// T builds an unconditional transition rule.
func T(from, to string) Rule {
	return Rule{From: from, To: to}
}

// TWhen builds a conditional transition rule.
func TWhen(from, to string, when Condition) Rule {
	return Rule{From: from, To: to, When: when}
}

// TransitionStrategy returns the state-machine-mode strategy: exactly one
// action is current at a time, and the next one is chosen by matching rules
// against the mutable condition set. The same action may be the target of
// many transitions across a run, so loops are allowed, and the strategy
// never terminates the run by itself: only Stop, Cancel, or an unrecovered
// failure ends it.
//
// The strategy seeds its context from the dispatch arguments: the first
// string argument names the start action, the first map[string]any argument
// provides initial conditions. Both are optional; without a start hint the
// run begins at the first action in set order.
func TransitionStrategy(rules ...Rule) Strategy {
	return &transitionStrategy{rules: rules}
}

type transitionStrategy struct {
	rules []Rule
}

var _ ContextSeeder = (*transitionStrategy)(nil)

func (s *transitionStrategy) SeedContext(args []any) ContextSeed {
	var seed ContextSeed
	for _, arg := range args {
		switch v := arg.(type) {
		case string:
			if seed.Start == "" {
				seed.Start = v
			}
		case map[string]any:
			if seed.Conditions == nil {
				seed.Conditions = v
			}
		}
	}
	return seed
}

func (s *transitionStrategy) InitialActions(actions []*Action, rc *RunContext) []*Action {
	if len(actions) == 0 {
		return nil
	}
	if start := rc.Start(); start != "" {
		if a := findAction(actions, start); a != nil {
			return []*Action{a}
		}
	}
	return []*Action{actions[0]}
}

func (s *transitionStrategy) NextActions(actions []*Action, rc *RunContext) []*Action {
	last, ok := rc.LastCompleted()
	if !ok {
		return nil
	}
	conds := rc.Conditions()
	for _, r := range s.rules {
		if r.From != last {
			continue
		}
		if r.When != nil && !r.When(conds) {
			continue
		}
		if a := findAction(actions, r.To); a != nil {
			return []*Action{a}
		}
		return nil
	}
	return nil
}

// Cond wraps a raw predicate as a Condition. Provided for symmetry with the
// other constructors; a Condition literal works just as well.
func Cond(fn func(conditions map[string]any) bool) Condition {
	return fn
}

// Truthy matches when the named condition is present and truthy. Falsy
// values are nil, false, empty strings, and numeric zero.
func Truthy(key string) Condition {
	return func(conds map[string]any) bool {
		return isTruthy(conds[key])
	}
}

// Eq matches when the named condition deep-equals want.
func Eq(key string, want any) Condition {
	return func(conds map[string]any) bool {
		got, ok := conds[key]
		return ok && reflect.DeepEqual(got, want)
	}
}

// Match matches when every entry of partial deep-equals the corresponding
// condition (partial-object conformance).
func Match(partial map[string]any) Condition {
	return func(conds map[string]any) bool {
		for k, want := range partial {
			got, ok := conds[k]
			if !ok || !reflect.DeepEqual(got, want) {
				return false
			}
		}
		return true
	}
}

// PathEq matches when the JSONPath expression, evaluated against the
// condition set, deep-equals want. Useful when conditions carry nested
// structures, e.g. PathEq("$.order.status", "paid").
func PathEq(expr string, want any) Condition {
	return func(conds map[string]any) bool {
		got, err := jsonpath.JsonPathLookup(conds, expr)
		if err != nil {
			return false
		}
		return reflect.DeepEqual(got, want)
	}
}

// Not inverts a condition.
func Not(c Condition) Condition {
	return func(conds map[string]any) bool {
		if c == nil {
			return false
		}
		return !c(conds)
	}
}

func isTruthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case int:
		return x != 0
	case int8:
		return x != 0
	case int16:
		return x != 0
	case int32:
		return x != 0
	case int64:
		return x != 0
	case uint:
		return x != 0
	case uint8:
		return x != 0
	case uint16:
		return x != 0
	case uint32:
		return x != 0
	case uint64:
		return x != 0
	case float32:
		return x != 0
	case float64:
		return x != 0
	default:
		return true
	}
}
