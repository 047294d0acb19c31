package tools

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/Knetic/govaluate"
)

// CalculatorArgs are the arguments of the calculator tool.
type CalculatorArgs struct {
	Expression string             `json:"expression" validate:"required" jsonschema:"description=Arithmetic expression to evaluate, e.g. '(1200 - 950) / 950 * 100'"`
	Params     map[string]float64 `json:"params,omitempty" jsonschema:"description=Named values referenced by the expression"`
}

var calculatorFuncs = map[string]govaluate.ExpressionFunction{
	"sqrt":  unary(math.Sqrt),
	"abs":   unary(math.Abs),
	"round": unary(math.Round),
	"floor": unary(math.Floor),
	"ceil":  unary(math.Ceil),
	"log":   unary(math.Log),
	"pow": func(args ...interface{}) (interface{}, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("pow takes 2 arguments")
		}
		a, aok := args[0].(float64)
		b, bok := args[1].(float64)
		if !aok || !bok {
			return nil, fmt.Errorf("pow takes numbers")
		}
		return math.Pow(a, b), nil
	},
}

func unary(f func(float64) float64) govaluate.ExpressionFunction {
	return func(args ...interface{}) (interface{}, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("expected 1 argument, got %d", len(args))
		}
		x, ok := args[0].(float64)
		if !ok {
			return nil, fmt.Errorf("expected a number, got %v", args[0])
		}
		return f(x), nil
	}
}

// NewCalculator returns the calculator tool. Evaluation failures are
// reported to the model as text.
func NewCalculator() *Func[CalculatorArgs] {
	return NewFunc("calculator",
		"Evaluate an arithmetic expression. Supports + - * / % **, comparisons and sqrt, abs, round, floor, ceil, log, pow.",
		func(ctx context.Context, args CalculatorArgs) (Result, error) {
			v, err := Calculate(args.Expression, args.Params)
			if err != nil {
				return Textf("Error: %v", err), nil
			}
			return Text(v), nil
		})
}

// Calculate evaluates expr with params and formats the result.
func Calculate(expr string, params map[string]float64) (string, error) {
	exp, err := govaluate.NewEvaluableExpressionWithFunctions(expr, calculatorFuncs)
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", expr, err)
	}
	vars := make(map[string]interface{}, len(params))
	for k, v := range params {
		vars[k] = v
	}
	out, err := exp.Evaluate(vars)
	if err != nil {
		return "", fmt.Errorf("evaluate %q: %w", expr, err)
	}
	switch x := out.(type) {
	case float64:
		if math.IsInf(x, 0) || math.IsNaN(x) {
			return "", fmt.Errorf("evaluate %q: result is not a finite number", expr)
		}
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	default:
		return fmt.Sprint(x), nil
	}
}
