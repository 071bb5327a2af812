// Package checker evaluates Check Rules (§4.C) over a slot's Variable
// Pool and the most recently parsed value.
package checker

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/ormasoftchile/catengine/pkg/model"
	"github.com/ormasoftchile/catengine/pkg/variable"
)

// Evaluate dispatches on rule.Kind and returns a CheckDetail whose Summary
// field holds the human-readable summary line. current is the just-parsed
// value for this step, or nil if none was parsed.
func Evaluate(rule model.CheckRule, pool *variable.Pool, current *model.Variable) (model.CheckDetail, error) {
	switch rule.Kind {
	case model.CheckRange:
		return evalRange(rule, pool, current)
	case model.CheckThreshold:
		return evalThreshold(rule, pool)
	case model.CheckCompare:
		return evalCompare(rule, pool)
	case model.CheckContains:
		return evalContains(rule, pool)
	case model.CheckBit:
		return evalBit(rule, pool)
	case model.CheckExpression:
		return evalExpression(rule, pool)
	default:
		return model.CheckDetail{}, model.NewError(model.ErrCheck, "unknown check rule kind")
	}
}

func resolveOperand(rule model.CheckRule, pool *variable.Pool, current *model.Variable) (float64, bool) {
	if rule.Variable != "" {
		v, ok := pool.Get(rule.Variable)
		if !ok {
			return 0, false
		}
		return v.AsF64()
	}
	if current == nil {
		return 0, false
	}
	return current.AsF64()
}

func evalRange(rule model.CheckRule, pool *variable.Pool, current *model.Variable) (model.CheckDetail, error) {
	value, ok := resolveOperand(rule, pool, current)
	if !ok {
		return model.CheckDetail{}, model.NewError(model.ErrCheck, "variable missing or non-numeric")
	}
	minOK := value > rule.Min || (rule.IncludeMinBound() && value == rule.Min)
	maxOK := value < rule.Max || (rule.IncludeMaxBound() && value == rule.Max)
	passed := minOK && maxOK

	minSym := "<"
	if rule.IncludeMinBound() {
		minSym = "<="
	}
	maxSym := "<"
	if rule.IncludeMaxBound() {
		maxSym = "<="
	}
	word := "PASS"
	if !passed {
		word = "FAIL"
	}
	summary := fmt.Sprintf("%.2f %s %.2f %s %.2f -> %s", rule.Min, minSym, value, maxSym, rule.Max, word)

	return model.CheckDetail{
		TemplateName: "range_check",
		Params: map[string]any{
			"min": rule.Min, "max": rule.Max,
			"include_min": rule.IncludeMinBound(), "include_max": rule.IncludeMaxBound(),
		},
		Actual:  value,
		Passed:  passed,
		Summary: summary,
	}, nil
}

func evalThreshold(rule model.CheckRule, pool *variable.Pool) (model.CheckDetail, error) {
	v, ok := pool.Get(rule.Variable)
	if !ok {
		return model.CheckDetail{}, model.NewError(model.ErrCheck, "variable missing or non-numeric")
	}
	value, ok := v.AsF64()
	if !ok {
		return model.CheckDetail{}, model.NewError(model.ErrCheck, "variable missing or non-numeric")
	}
	passed := rule.Op.Apply(value, rule.Value)
	word := passResultWord(passed)
	summary := fmt.Sprintf("%s (%.2f) %s %.2f -> %s", rule.Variable, value, rule.Op, rule.Value, word)
	return model.CheckDetail{
		TemplateName: "threshold",
		Params:       map[string]any{"variable": rule.Variable, "op": rule.Op.String(), "value": rule.Value},
		Actual:       value,
		Passed:       passed,
		Summary:      summary,
	}, nil
}

func evalCompare(rule model.CheckRule, pool *variable.Pool) (model.CheckDetail, error) {
	va, ok := pool.Get(rule.VarA)
	if !ok {
		return model.CheckDetail{}, model.NewError(model.ErrCheck, "variable missing or non-numeric")
	}
	a, ok := va.AsF64()
	if !ok {
		return model.CheckDetail{}, model.NewError(model.ErrCheck, "variable missing or non-numeric")
	}
	vb, ok := pool.Get(rule.VarB)
	if !ok {
		return model.CheckDetail{}, model.NewError(model.ErrCheck, "variable missing or non-numeric")
	}
	b, ok := vb.AsF64()
	if !ok {
		return model.CheckDetail{}, model.NewError(model.ErrCheck, "variable missing or non-numeric")
	}
	passed := rule.Op.Apply(a, b)
	word := passResultWord(passed)
	summary := fmt.Sprintf("%s (%.2f) %s %s (%.2f) -> %s", rule.VarA, a, rule.Op, rule.VarB, b, word)
	return model.CheckDetail{
		TemplateName: "compare",
		Params:       map[string]any{"var_a": rule.VarA, "op": rule.Op.String(), "var_b": rule.VarB},
		Actual:       map[string]any{"a": a, "b": b},
		Passed:       passed,
		Summary:      summary,
	}, nil
}

func evalContains(rule model.CheckRule, pool *variable.Pool) (model.CheckDetail, error) {
	v, ok := pool.Get(rule.Variable)
	if !ok {
		return model.CheckDetail{}, model.NewError(model.ErrCheck, "variable missing or non-numeric")
	}
	text := v.AsString()
	passed := containsSubstring(text, rule.Substring)
	word := passResultWord(passed)
	summary := fmt.Sprintf("%s contains %q -> %s", rule.Variable, rule.Substring, word)
	return model.CheckDetail{
		TemplateName: "contains",
		Params:       map[string]any{"variable": rule.Variable, "substring": rule.Substring},
		Actual:       text,
		Passed:       passed,
		Summary:      summary,
	}, nil
}

func evalBit(rule model.CheckRule, pool *variable.Pool) (model.CheckDetail, error) {
	v, ok := pool.Get(rule.Variable)
	if !ok {
		return model.CheckDetail{}, model.NewError(model.ErrCheck, "variable missing or non-numeric")
	}
	i, ok := v.AsI64()
	if !ok {
		return model.CheckDetail{}, model.NewError(model.ErrCheck, "variable missing or non-numeric")
	}
	bitVal := (i >> rule.Bit) & 1
	passed := (bitVal == 1) == rule.Expected
	word := passResultWord(passed)
	summary := fmt.Sprintf("%s[bit %d] = %d -> %s", rule.Variable, rule.Bit, bitVal, word)
	return model.CheckDetail{
		TemplateName: "bit_check",
		Params:       map[string]any{"variable": rule.Variable, "bit": rule.Bit, "expected": rule.Expected},
		Actual:       bitVal,
		Passed:       passed,
		Summary:      summary,
	}, nil
}

// evalExpression populates an evaluation context with every pool variable
// coerced to f64 (non-coercible entries skipped) and evaluates rule.Expr
// as a boolean via expr-lang/expr.
func evalExpression(rule model.CheckRule, pool *variable.Pool) (model.CheckDetail, error) {
	env := make(map[string]any)
	for _, name := range pool.Keys() {
		v, _ := pool.Get(name)
		if f, ok := v.AsF64(); ok {
			env[name] = f
		}
	}
	program, err := expr.Compile(rule.Expr, expr.Env(env), expr.AsBool())
	if err != nil {
		return model.CheckDetail{}, model.NewError(model.ErrExpression, fmt.Sprintf("compile error: %v", err))
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return model.CheckDetail{}, model.NewError(model.ErrExpression, fmt.Sprintf("evaluation error: %v", err))
	}
	passed, ok := out.(bool)
	if !ok {
		return model.CheckDetail{}, model.NewError(model.ErrExpression, "expression did not evaluate to a boolean")
	}
	word := passResultWord(passed)
	summary := fmt.Sprintf("%s -> %s", rule.Expr, word)
	return model.CheckDetail{
		TemplateName: "expression",
		Params:       map[string]any{"expr": rule.Expr},
		Actual:       passed,
		Passed:       passed,
		Summary:      summary,
	}, nil
}

func passResultWord(passed bool) string {
	if passed {
		return "PASS"
	}
	return "FAIL"
}

func containsSubstring(haystack, needle string) bool {
	return strings.Contains(haystack, needle)
}
