package expr

import (
	"fmt"
	"strings"
)

// BinaryOp compares two resolved values and returns a boolean result.
type BinaryOp func(left, right any) bool

// builtinOps are the allowed comparison operators, ordered so that longer
// operators match before their prefixes (">=" before ">").
var builtinOps = []struct {
	op      string
	compare BinaryOp
}{
	{"==", func(l, r any) bool { return fmt.Sprintf("%v", l) == fmt.Sprintf("%v", r) }},
	{"!=", func(l, r any) bool { return fmt.Sprintf("%v", l) != fmt.Sprintf("%v", r) }},
	{">=", func(l, r any) bool { return ToFloat64(l) >= ToFloat64(r) }},
	{"<=", func(l, r any) bool { return ToFloat64(l) <= ToFloat64(r) }},
	{">", func(l, r any) bool { return ToFloat64(l) > ToFloat64(r) }},
	{"<", func(l, r any) bool { return ToFloat64(l) < ToFloat64(r) }},
	{" contains ", func(l, r any) bool {
		return strings.Contains(fmt.Sprintf("%v", l), fmt.Sprintf("%v", r))
	}},
}

// Evaluator evaluates conditions with optional custom operators.
type Evaluator struct {
	customOps map[string]BinaryOp
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithCustomOperator registers a custom binary operator.
// The operator name should not conflict with built-in operators.
func WithCustomOperator(name string, fn BinaryOp) Option {
	return func(e *Evaluator) {
		if e.customOps == nil {
			e.customOps = make(map[string]BinaryOp)
		}
		e.customOps[name] = fn
	}
}

// New creates a new Evaluator with the given options.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate evaluates a condition against the provided variables and
// returns its boolean result. Single values without an operator are
// evaluated for truthiness.
//
// Precedence follows convention: comparison operators bind tightest,
// then "not"/"!", then "and", then "or". So "not a and b" reads as
// "(not a) and b", and "a or b and c" reads as "a or (b and c)".
// Parentheses are not supported.
func (e *Evaluator) Evaluate(condition string, vars map[string]any) (bool, error) {
	condition = strings.TrimSpace(condition)
	if condition == "" {
		return false, nil
	}

	// Connectives split loosest-first: the first "or" (then "and") found
	// is the root of the expression.
	if parts := strings.SplitN(condition, " or ", 2); len(parts) == 2 {
		left, err := e.Evaluate(parts[0], vars)
		if err != nil {
			return false, err
		}
		right, err := e.Evaluate(parts[1], vars)
		if err != nil {
			return false, err
		}
		return left || right, nil
	}
	if parts := strings.SplitN(condition, " and ", 2); len(parts) == 2 {
		left, err := e.Evaluate(parts[0], vars)
		if err != nil {
			return false, err
		}
		right, err := e.Evaluate(parts[1], vars)
		if err != nil {
			return false, err
		}
		return left && right, nil
	}

	// Negation prefixes apply to a single connective-free operand.
	if inner, ok := strings.CutPrefix(condition, "not "); ok {
		result, err := e.Evaluate(inner, vars)
		return !result, err
	}
	if inner, ok := strings.CutPrefix(condition, "!"); ok {
		result, err := e.Evaluate(inner, vars)
		return !result, err
	}

	if result, matched := e.tryOperators(condition, vars); matched {
		return result, nil
	}

	// Single value: truthiness
	return IsTruthy(Resolve(condition, vars)), nil
}

// EvaluateString evaluates a condition and returns its result as a string
// for branch dispatch. Operator expressions yield "true" or "false"; a bare
// value yields the resolved value's string form (nil resolves to "null").
func (e *Evaluator) EvaluateString(condition string, vars map[string]any) (string, error) {
	condition = strings.TrimSpace(condition)
	if condition == "" {
		return "", fmt.Errorf("empty condition")
	}

	if !hasOperator(condition) {
		val := Resolve(condition, vars)
		if val == nil {
			return "null", nil
		}
		if b, ok := val.(bool); ok {
			return fmt.Sprintf("%t", b), nil
		}
		return fmt.Sprintf("%v", val), nil
	}

	result, err := e.Evaluate(condition, vars)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%t", result), nil
}

// tryOperators attempts to split the condition on a built-in or custom
// operator. Returns the comparison result and whether an operator matched.
func (e *Evaluator) tryOperators(condition string, vars map[string]any) (bool, bool) {
	for _, op := range builtinOps {
		if parts := strings.SplitN(condition, op.op, 2); len(parts) == 2 {
			left := Resolve(strings.TrimSpace(parts[0]), vars)
			right := Resolve(strings.TrimSpace(parts[1]), vars)
			return op.compare(left, right), true
		}
	}
	for name, fn := range e.customOps {
		pattern := " " + name + " "
		if parts := strings.SplitN(condition, pattern, 2); len(parts) == 2 {
			left := Resolve(strings.TrimSpace(parts[0]), vars)
			right := Resolve(strings.TrimSpace(parts[1]), vars)
			return fn(left, right), true
		}
	}
	return false, false
}

// hasOperator reports whether the condition contains any logical or
// comparison operator.
func hasOperator(condition string) bool {
	if strings.HasPrefix(condition, "not ") || strings.HasPrefix(condition, "!") {
		return true
	}
	if strings.Contains(condition, " and ") || strings.Contains(condition, " or ") {
		return true
	}
	for _, op := range builtinOps {
		if strings.Contains(condition, op.op) {
			return true
		}
	}
	return false
}

// Eval evaluates a condition using a default evaluator.
func Eval(condition string, vars map[string]any) (bool, error) {
	return New().Evaluate(condition, vars)
}

// EvalString evaluates a condition to its string result using a default
// evaluator.
func EvalString(condition string, vars map[string]any) (string, error) {
	return New().EvaluateString(condition, vars)
}
