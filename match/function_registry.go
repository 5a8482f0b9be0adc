package match

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"
	"sync"
)

var (
	ErrFunctionNotFound  = errors.New("match: function not registered")
	ErrFunctionDuplicate = errors.New("match: function already registered")
	ErrFunctionArity     = errors.New("match: wrong number of function arguments")
)

// Function is a callable exposed to expressions by name.
type Function func(args ...any) (any, error)

// FunctionRegistry maps case-insensitive names to functions. Engines bind a
// clone taken when the evaluator is built, so later registrations do not leak
// into compiled rules.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{functions: make(map[string]Function)}
}

// NewStandardRegistry returns a registry preloaded with the collection
// helpers:
//
//	oneof(value, candidates...)  value equals one of candidates
//	between(value, low, high)    low <= value <= high, numerically
func NewStandardRegistry() *FunctionRegistry {
	return NewFunctionRegistry().
		MustRegister("oneof", oneOf).
		MustRegister("between", between)
}

func canonicalName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (r *FunctionRegistry) Register(name string, fn Function) error {
	key := canonicalName(name)
	switch {
	case key == "":
		return fmt.Errorf("match: function name must not be empty")
	case fn == nil:
		return fmt.Errorf("match: function %q is nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]Function)
	}
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("%w: %q", ErrFunctionDuplicate, name)
	}
	r.functions[key] = fn
	return nil
}

// MustRegister is Register for package initialization; it panics on error.
func (r *FunctionRegistry) MustRegister(name string, fn Function) *FunctionRegistry {
	if err := r.Register(name, fn); err != nil {
		panic(err)
	}
	return r
}

// Unregister removes name and reports whether it was present.
func (r *FunctionRegistry) Unregister(name string) bool {
	if r == nil {
		return false
	}
	key := canonicalName(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.functions[key]
	delete(r.functions, key)
	return ok
}

func (r *FunctionRegistry) Has(name string) bool {
	return r.lookup(name) != nil
}

func (r *FunctionRegistry) lookup(name string) Function {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.functions[canonicalName(name)]
}

func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	functions := maps.Clone(r.functions)
	if functions == nil {
		functions = make(map[string]Function)
	}
	return &FunctionRegistry{functions: functions}
}

// Call runs the function registered for name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	fn := r.lookup(name)
	if fn == nil {
		return nil, fmt.Errorf("%w: %q", ErrFunctionNotFound, name)
	}
	return fn(args...)
}

// Names returns the canonical names, sorted.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.functions))
}

func oneOf(args ...any) (any, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("%w: oneof needs a value", ErrFunctionArity)
	}
	candidates := args[1:]
	// oneof(value, [a, b]) and oneof(value, a, b) are equivalent
	if len(candidates) == 1 {
		if list, ok := candidates[0].([]any); ok {
			candidates = list
		}
	}
	for _, candidate := range candidates {
		if looselyEqual(args[0], candidate) {
			return true, nil
		}
	}
	return false, nil
}

func between(args ...any) (any, error) {
	if len(args) != 3 {
		return nil, fmt.Errorf("%w: between(value, low, high) got %d", ErrFunctionArity, len(args))
	}
	values := make([]float64, 3)
	for i, arg := range args {
		f, ok := toFloat(arg)
		if !ok {
			return nil, fmt.Errorf("match: between argument %d is %T, not a number", i, arg)
		}
		values[i] = f
	}
	return values[1] <= values[0] && values[0] <= values[2], nil
}

func looselyEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(value any) (float64, bool) {
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), true
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	}
	return 0, false
}
