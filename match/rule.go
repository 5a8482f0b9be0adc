package match

import (
	"fmt"
	"maps"
	"time"
)

// RuleOption configures a Rule.
type RuleOption func(*ruleConfig)

type ruleConfig struct {
	args     map[string]any
	metadata map[string]any
	label    string
	logger   EvaluatorLogger
	now      func() time.Time
}

// WithArgs binds args for every evaluation of the rule.
func WithArgs(args map[string]any) RuleOption {
	return func(cfg *ruleConfig) {
		cfg.args = maps.Clone(args)
	}
}

func WithMetadata(metadata map[string]any) RuleOption {
	return func(cfg *ruleConfig) {
		cfg.metadata = maps.Clone(metadata)
	}
}

// WithLabel names the rule in errors and log events.
func WithLabel(label string) RuleOption {
	return func(cfg *ruleConfig) {
		cfg.label = label
	}
}

func WithEvaluatorLogger(logger EvaluatorLogger) RuleOption {
	return func(cfg *ruleConfig) {
		if logger == nil {
			logger = noopEvaluatorLogger{}
		}
		cfg.logger = logger
	}
}

// WithClock overrides the "now" binding.
func WithClock(now func() time.Time) RuleOption {
	return func(cfg *ruleConfig) {
		cfg.now = now
	}
}

// Rule is a compiled boolean predicate over elements of type E. Its Test
// method plugs into List.RemoveMatching and friends:
//
//	rule, err := match.Compile[Order](nil, `total > args.limit`, match.WithArgs(args))
//	if err != nil {
//		return err
//	}
//	removed, err := orders.RemoveMatching(rule.Test)
type Rule[E any] struct {
	expression string
	engine     string
	compiled   CompiledRule
	cfg        ruleConfig
}

// Compile compiles expression with evaluator. A nil evaluator selects the
// expr engine.
func Compile[E any](evaluator Evaluator, expression string, opts ...RuleOption) (*Rule[E], error) {
	if expression == "" {
		return nil, ErrEmptyExpression
	}
	if evaluator == nil {
		evaluator = NewExprEvaluator()
	}
	cfg := ruleConfig{logger: noopEvaluatorLogger{}, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	engine := engineName(evaluator)
	compiled, err := evaluator.Compile(expression)
	if err != nil {
		return nil, wrapEvaluationError(engine, expression, cfg.label, err)
	}
	return &Rule[E]{expression: expression, engine: engine, compiled: compiled, cfg: cfg}, nil
}

// MustCompile is Compile for rules known to be valid; it panics on error.
func MustCompile[E any](evaluator Evaluator, expression string, opts ...RuleOption) *Rule[E] {
	rule, err := Compile[E](evaluator, expression, opts...)
	if err != nil {
		panic(err)
	}
	return rule
}

func (r *Rule[E]) Expression() string { return r.expression }

func (r *Rule[E]) Engine() string { return r.engine }

// Test reports whether element satisfies the rule, with index bound to -1.
func (r *Rule[E]) Test(element E) (bool, error) {
	return r.TestAt(-1, element)
}

// TestAt reports whether element, found at index, satisfies the rule.
func (r *Rule[E]) TestAt(index int, element E) (bool, error) {
	now := r.cfg.now()
	ctx := RuleContext{
		Element:  element,
		Index:    index,
		Now:      &now,
		Args:     r.cfg.args,
		Metadata: r.cfg.metadata,
		Label:    r.cfg.label,
	}
	start := time.Now()
	value, err := r.compiled.Evaluate(ctx)
	err = wrapEvaluationError(r.engine, r.expression, ctx.label(), err)

	matched, ok := value.(bool)
	if err == nil && !ok {
		err = &EvaluationError{
			Engine: r.engine,
			Expr:   r.expression,
			Label:  ctx.label(),
			Err:    fmt.Errorf("%w: got %T", ErrNotBoolean, value),
		}
	}
	r.cfg.logger.LogEvaluation(EvaluatorLogEvent{
		Engine:   r.engine,
		Expr:     r.expression,
		Label:    ctx.label(),
		Duration: time.Since(start),
		Result:   value,
		Err:      err,
	})
	if err != nil {
		return false, err
	}
	return matched, nil
}

// Evaluate runs expression once against ctx without compiling a Rule. A nil
// evaluator selects the expr engine.
func Evaluate(evaluator Evaluator, ctx RuleContext, expression string) (any, error) {
	if evaluator == nil {
		evaluator = NewExprEvaluator()
	}
	value, err := evaluator.Evaluate(ctx, expression)
	return value, wrapEvaluationError(engineName(evaluator), expression, ctx.label(), err)
}
