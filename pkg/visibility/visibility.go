// Package visibility decides whether hidden regions of a form should be shown
// given the form's current values.
package visibility

import (
	"fmt"
	"sort"
)

// Evaluator reports whether region should be visible under rule.
type Evaluator interface {
	Eval(region, rule string, ctx Context) (bool, error)
}

// Context is the input to an Evaluator. Values holds the committed field
// values of the form; Data holds the attached data when it is a map and is
// addressed with the `data.` prefix.
type Context struct {
	Values map[string]any
	Data   map[string]any
}

// EvaluatorFunc adapts a function into an Evaluator.
type EvaluatorFunc func(region, rule string, ctx Context) (bool, error)

// Eval delegates to the underlying function.
func (fn EvaluatorFunc) Eval(region, rule string, ctx Context) (bool, error) {
	return fn(region, rule, ctx)
}

// Rule binds a region to the expression that makes it visible.
type Rule struct {
	Region string
	When   string
}

// Resolve evaluates every rule and returns the desired hidden state per
// region. Evaluation stops at the first error.
func Resolve(ev Evaluator, rules []Rule, ctx Context) (map[string]bool, error) {
	hidden := make(map[string]bool, len(rules))
	if ev == nil {
		return hidden, nil
	}
	for _, r := range rules {
		visible, err := ev.Eval(r.Region, r.When, ctx)
		if err != nil {
			return nil, fmt.Errorf("visibility: region %q: %w", r.Region, err)
		}
		hidden[r.Region] = !visible
	}
	return hidden, nil
}

// Regions returns the region names of rules, sorted.
func Regions(rules []Rule) []string {
	out := make([]string, 0, len(rules))
	for _, r := range rules {
		out = append(out, r.Region)
	}
	sort.Strings(out)
	return out
}
