package agent

import (
	"github.com/randalmurphal/agentgraph/pkg/agentgraph/expr"
	"github.com/randalmurphal/agentgraph/pkg/agentgraph/state"
)

// ConditionEvaluator resolves a conditional node's expression against the
// current state and returns the branch key.
//
// Implementations must not mutate the state. An evaluation error routes to
// the "default" branch; it never fails the run.
type ConditionEvaluator interface {
	Evaluate(condition string, st state.State) (string, error)
}

// exprEvaluator is the default evaluator backed by the restricted
// expression grammar in the expr package.
type exprEvaluator struct {
	ev *expr.Evaluator
}

// NewExprEvaluator creates the default condition evaluator.
// Custom operators can be added via expr options.
func NewExprEvaluator(opts ...expr.Option) ConditionEvaluator {
	return &exprEvaluator{ev: expr.New(opts...)}
}

// Evaluate implements ConditionEvaluator.
func (e *exprEvaluator) Evaluate(condition string, st state.State) (string, error) {
	return e.ev.EvaluateString(condition, map[string]any(st))
}

// EvaluatorFunc adapts a function to the ConditionEvaluator interface.
type EvaluatorFunc func(condition string, st state.State) (string, error)

// Evaluate implements ConditionEvaluator.
func (f EvaluatorFunc) Evaluate(condition string, st state.State) (string, error) {
	return f(condition, st)
}
