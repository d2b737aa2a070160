package eligibility

import (
	"fmt"
	"strconv"

	"github.com/google/cel-go/cel"
)

// rule is a single sub-scale threshold compiled to a CEL program over the
// variable `score`.
type rule struct {
	scale string
	expr  string
	bound string
	prog  cel.Program
}

var env = mustEnv()

func mustEnv() *cel.Env {
	e, err := cel.NewEnv(cel.Variable("score", cel.DoubleType))
	if err != nil {
		panic(fmt.Sprintf("eligibility: failed to create CEL environment: %v", err))
	}
	return e
}

func compileRule(scale, expr, bound string) (rule, error) {
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return rule{}, fmt.Errorf("compile error for %s: %w", scale, issues.Err())
	}
	prog, err := env.Program(ast)
	if err != nil {
		return rule{}, fmt.Errorf("program creation error for %s: %w", scale, err)
	}
	return rule{scale: scale, expr: expr, bound: bound, prog: prog}, nil
}

func mustRule(scale, expr, bound string) rule {
	r, err := compileRule(scale, expr, bound)
	if err != nil {
		panic("eligibility: " + err.Error())
	}
	return r
}

// matches evaluates the rule; a non-boolean or failed evaluation never triggers.
func (r rule) matches(score float64) bool {
	out, _, err := r.prog.Eval(map[string]any{"score": score})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}

func (r rule) reason(score float64) string {
	return fmt.Sprintf("%s %s (기준 %s)", r.scale, formatScore(score), r.bound)
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
