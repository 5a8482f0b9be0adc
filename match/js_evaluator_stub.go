//go:build !js_eval

package match

// NewJSEvaluator returns nil without the js_eval build tag. Check JSAvailable
// first: Compile falls back to expr for a nil evaluator.
func NewJSEvaluator(opts ...JSEvaluatorOption) Evaluator {
	_ = applyJSEvaluatorOptions(opts)
	return nil
}

func JSAvailable() bool {
	return false
}
