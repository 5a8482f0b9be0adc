package match

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyExpression reports a compile or evaluation of "".
	ErrEmptyExpression = errors.New("match: expression must not be empty")
	// ErrNotBoolean reports a predicate that produced a non-boolean value.
	ErrNotBoolean = errors.New("match: expression did not produce a boolean")
)

// EvaluationError captures evaluator metadata alongside the originating error.
type EvaluationError struct {
	Engine string
	Expr   string
	Label  string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("match: %s evaluator %s label=%s: %v", e.Engine, describeExpression(e.Expr), e.Label, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func wrapEvaluatorError(engine string, err error) error {
	if err == nil {
		return nil
	}
	var evalErr *EvaluationError
	if errors.As(err, &evalErr) || strings.HasPrefix(err.Error(), "match:") {
		return err
	}
	return fmt.Errorf("match: %s evaluator: %w", engine, err)
}

// wrapEvaluationError fills in whatever metadata an existing EvaluationError
// lacks, or wraps err in a new one.
func wrapEvaluationError(engine, expr, label string, err error) error {
	if err == nil {
		return nil
	}
	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		if evalErr.Engine == "" {
			evalErr.Engine = engine
		}
		if evalErr.Expr == "" {
			evalErr.Expr = expr
		}
		if evalErr.Label == "" {
			evalErr.Label = label
		}
		return evalErr
	}
	return &EvaluationError{Engine: engine, Expr: expr, Label: label, Err: err}
}
