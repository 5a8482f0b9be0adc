// Package match compiles expressions into element predicates for observable
// collections. Three engines are available: expr (the default), CEL, and
// JavaScript behind the js_eval build tag.
//
// Expressions see the element as "it", its position as "index" (-1 when
// unknown), "now", "args" and "metadata". When the element converts to a map,
// its keys are also bound at the top level, so both `it.price > 10` and
// `price > 10` work.
package match

import (
	"time"

	"github.com/goliatone/go-observable/internal/reflectx"
)

// RuleContext carries the inputs of one evaluation.
type RuleContext struct {
	Element  any
	Index    int
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
	// Label names the evaluation in errors and logs, usually a collection id.
	Label string
}

func (ctx RuleContext) withDefaults() RuleContext {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	return *ctx.withDefaults().Now
}

func (ctx RuleContext) label() string {
	if ctx.Label != "" {
		return ctx.Label
	}
	return "unknown"
}

// bindings returns the variables shared by every engine.
func (ctx RuleContext) bindings() map[string]any {
	binding := reflectx.ToBinding(ctx.Element)
	vars := map[string]any{}
	if fields, ok := binding.(map[string]any); ok {
		for key, value := range fields {
			vars[key] = value
		}
	}
	vars["it"] = binding
	vars["index"] = ctx.Index
	vars["now"] = ctx.timestamp()
	vars["args"] = ctx.Args
	vars["metadata"] = ctx.Metadata
	return vars
}

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string) (CompiledRule, error)
}

// CompiledRule is a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

type namedEngine interface {
	engine() string
}

func engineName(e Evaluator) string {
	if named, ok := e.(namedEngine); ok {
		return named.engine()
	}
	if e == nil {
		return "unknown"
	}
	return "custom"
}
