package match

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Tags  []string
}

func engines(t *testing.T) map[string]Evaluator {
	t.Helper()
	out := map[string]Evaluator{
		"expr": NewExprEvaluator(ExprWithProgramCache(NewLRUProgramCache(8))),
		"cel":  NewCELEvaluator(CELWithProgramCache(NewLRUProgramCache(8))),
	}
	if JSAvailable() {
		out["js"] = NewJSEvaluator(JSWithProgramCache(NewLRUProgramCache(8)), JSWithTimeout(time.Second))
	}
	return out
}

func TestRuleFieldAccessAcrossEngines(t *testing.T) {
	cheap := item{Name: "pen", Price: 2}
	pricey := item{Name: "desk", Price: 200}

	for name, evaluator := range engines(t) {
		t.Run(name, func(t *testing.T) {
			rule, err := Compile[item](evaluator, `it.price > 10.0`)
			require.NoError(t, err)
			assert.Equal(t, name, rule.Engine())

			ok, err := rule.Test(pricey)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = rule.Test(cheap)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestRuleTopLevelFieldsAndArgs(t *testing.T) {
	for name, evaluator := range engines(t) {
		t.Run(name, func(t *testing.T) {
			rule, err := Compile[*item](evaluator, `name == args.wanted`, WithArgs(map[string]any{"wanted": "pen"}))
			require.NoError(t, err)

			ok, err := rule.Test(&item{Name: "pen"})
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestRuleIndexBinding(t *testing.T) {
	rule, err := Compile[int](nil, `index % 2 == 0`)
	require.NoError(t, err)

	ok, err := rule.TestAt(4, 0)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = rule.TestAt(3, 0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRuleRejectsNonBoolean(t *testing.T) {
	for name, evaluator := range engines(t) {
		t.Run(name, func(t *testing.T) {
			rule, err := Compile[item](evaluator, `it.price`)
			require.NoError(t, err)

			_, err = rule.Test(item{Price: 3})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrNotBoolean)

			var evalErr *EvaluationError
			require.ErrorAs(t, err, &evalErr)
			assert.Equal(t, name, evalErr.Engine)
		})
	}
}

func TestCompileRejectsEmptyAndInvalid(t *testing.T) {
	_, err := Compile[item](nil, "")
	assert.ErrorIs(t, err, ErrEmptyExpression)

	_, err = Compile[item](NewExprEvaluator(), `price >`)
	var evalErr *EvaluationError
	require.ErrorAs(t, err, &evalErr)
	assert.Equal(t, "expr", evalErr.Engine)

	_, err = Compile[item](NewCELEvaluator(), `price >`)
	require.ErrorAs(t, err, &evalErr)
	assert.Equal(t, "cel", evalErr.Engine)
}

func TestRuleUsesClockAndLogsEvaluations(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	var events []EvaluatorLogEvent
	rule, err := Compile[item](NewCELEvaluator(), `now.getFullYear() == 2024`,
		WithClock(func() time.Time { return fixed }),
		WithLabel("inventory"),
		WithEvaluatorLogger(EvaluatorLoggerFunc(func(event EvaluatorLogEvent) {
			events = append(events, event)
		})),
	)
	require.NoError(t, err)

	ok, err := rule.Test(item{})
	require.NoError(t, err)
	assert.True(t, ok)

	require.Len(t, events, 1)
	assert.Equal(t, "cel", events[0].Engine)
	assert.Equal(t, "inventory", events[0].Label)
	assert.Equal(t, true, events[0].Result)
	assert.NoError(t, events[0].Err)
}

func TestFunctionRegistryExposedToEngines(t *testing.T) {
	registry := NewFunctionRegistry().MustRegister("discount", func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, errors.New("discount takes one argument")
		}
		price, _ := args[0].(float64)
		return price * 0.5, nil
	})
	assert.True(t, registry.Has("DISCOUNT"))

	exprRule, err := Compile[item](NewExprEvaluator(ExprWithFunctionRegistry(registry)), `discount(price) < 10.0`)
	require.NoError(t, err)
	ok, err := exprRule.Test(item{Price: 15})
	require.NoError(t, err)
	assert.True(t, ok)

	celRule, err := Compile[item](NewCELEvaluator(CELWithFunctionRegistry(registry)), `call("discount", [price]) < 10.0`)
	require.NoError(t, err)
	ok, err = celRule.Test(item{Price: 15})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFunctionRegistryRejectsDuplicates(t *testing.T) {
	registry := NewFunctionRegistry()
	require.NoError(t, registry.Register("f", func(...any) (any, error) { return nil, nil }))
	assert.ErrorIs(t, registry.Register(" F ", func(...any) (any, error) { return nil, nil }), ErrFunctionDuplicate)
	assert.Error(t, registry.Register("", func(...any) (any, error) { return nil, nil }))
	assert.Error(t, registry.Register("g", nil))
	assert.Equal(t, []string{"f"}, registry.Names())

	_, err := registry.Call("missing")
	assert.ErrorIs(t, err, ErrFunctionNotFound)

	assert.True(t, registry.Unregister("F"))
	assert.False(t, registry.Has("f"))
}

func TestStandardRegistryHelpers(t *testing.T) {
	type order struct {
		Status string  `json:"status"`
		Total  float64 `json:"total"`
	}
	registry := NewStandardRegistry()
	element := order{Status: "paid", Total: 42}

	exprRule, err := Compile[order](NewExprEvaluator(ExprWithFunctionRegistry(registry)),
		`oneof(status, ["open", "paid"]) && between(total, 10, 100)`)
	require.NoError(t, err)
	ok, err := exprRule.Test(element)
	require.NoError(t, err)
	assert.True(t, ok)

	celRule, err := Compile[order](NewCELEvaluator(CELWithFunctionRegistry(registry)),
		`call("oneof", [status, "open", "void"]) == true`)
	require.NoError(t, err)
	ok, err = celRule.Test(element)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = registry.Call("between", 1, 2)
	assert.ErrorIs(t, err, ErrFunctionArity)
	_, err = registry.Call("between", "x", 1, 2)
	assert.Error(t, err)
}

func TestLRUProgramCacheEvicts(t *testing.T) {
	cache := NewLRUProgramCache(2)
	cache.Set("a", 1)
	cache.Set("b", 2)
	cache.Set("c", 3)

	_, ok := cache.Get("a")
	assert.False(t, ok)
	value, ok := cache.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 3, value)
}

func TestEvaluateWithoutRule(t *testing.T) {
	value, err := Evaluate(nil, RuleContext{Element: map[string]any{"n": 2}}, `n * 3`)
	require.NoError(t, err)
	assert.Equal(t, 6, value)
}
