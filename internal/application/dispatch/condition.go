package dispatch

import (
	"errors"
	"strings"

	"github.com/Knetic/govaluate"
)

// condition is a compiled routing expression. A nil expression matches
// every fact.
type condition struct {
	source string
	expr   *govaluate.EvaluableExpression
	always *bool
}

// compileCondition parses a routing expression such as
// `eventKind == 'STATUS_CHANGED' && recipientType == 'CITIZEN'`.
// Empty and the literals "true"/"false" are accepted.
func compileCondition(source string) (*condition, error) {
	cond := strings.TrimSpace(source)
	c := &condition{source: cond}
	switch strings.ToLower(cond) {
	case "", "true":
		t := true
		c.always = &t
		return c, nil
	case "false":
		f := false
		c.always = &f
		return c, nil
	}
	expr, err := govaluate.NewEvaluableExpression(cond)
	if err != nil {
		return nil, err
	}
	c.expr = expr
	return c, nil
}

func (c *condition) match(params map[string]interface{}) (bool, error) {
	if c.always != nil {
		return *c.always, nil
	}
	result, err := c.expr.Evaluate(params)
	if err != nil {
		return false, err
	}
	switch v := result.(type) {
	case bool:
		return v, nil
	default:
		return false, errors.New("condition did not evaluate to boolean")
	}
}

// EvaluateCondition compiles and evaluates a routing expression once.
func EvaluateCondition(source string, params map[string]interface{}) (bool, error) {
	c, err := compileCondition(source)
	if err != nil {
		return false, err
	}
	return c.match(params)
}
