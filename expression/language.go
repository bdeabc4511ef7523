package expression

import (
	"fmt"
	"math"
	"strings"

	"github.com/PaesslerAG/gval"
)

// Language is the arithmetic language every model and constraint expression is
// evaluated in: gval arithmetic plus the full function catalog and the pi and e
// constants.
var Language gval.Language

// Constants that never count as free variables
var constants = map[string]float64{
	"pi": math.Pi,
	"e":  math.E,
}

type function struct {
	arity int
	eval  func(args []float64) float64
}

func unary(f func(float64) float64) function {
	return function{1, func(args []float64) float64 { return f(args[0]) }}
}

func binary(f func(float64, float64) float64) function {
	return function{2, func(args []float64) float64 { return f(args[0], args[1]) }}
}

var functions = map[string]function{
	"sin":   unary(math.Sin),
	"cos":   unary(math.Cos),
	"tan":   unary(math.Tan),
	"asin":  unary(math.Asin),
	"acos":  unary(math.Acos),
	"atan":  unary(math.Atan),
	"atan2": binary(math.Atan2),

	"sinh":  unary(math.Sinh),
	"cosh":  unary(math.Cosh),
	"tanh":  unary(math.Tanh),
	"asinh": unary(math.Asinh),
	"acosh": unary(math.Acosh),
	"atanh": unary(math.Atanh),

	"exp":   unary(math.Exp),
	"log":   unary(math.Log),
	"sqrt":  unary(math.Sqrt),
	"cbrt":  unary(math.Cbrt),
	"pow":   binary(math.Pow),
	"hypot": binary(math.Hypot),

	"ceil":  unary(math.Ceil),
	"floor": unary(math.Floor),
	// half rounds up, also for negative numbers
	"round": unary(func(x float64) float64 { return math.Floor(x + 0.5) }),
	"floorDiv": binary(func(x, y float64) float64 {
		return math.Floor(x / y)
	}),
	"floorMod": binary(func(x, y float64) float64 {
		return x - math.Floor(x/y)*y
	}),
	"ceilDiv": binary(func(x, y float64) float64 {
		return math.Ceil(x / y)
	}),
	"ceilMod": binary(func(x, y float64) float64 {
		return x - math.Ceil(x/y)*y
	}),
	"abs": unary(math.Abs),
	"clamp": {3, func(args []float64) float64 {
		return math.Max(args[1], math.Min(args[0], args[2]))
	}},
	"signum": unary(signum),
	"sign":   unary(signum),

	"max": binary(math.Max),
	"min": binary(math.Min),

	"logGamma": unary(func(x float64) float64 {
		v, _ := math.Lgamma(x)
		return v
	}),
	"erf": unary(math.Erf),
}

func signum(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		// keeps 0, -0 and NaN
		return x
	}
}

func toFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("expected a number, got: %v", v)
	}
}

func (f function) gval(name string) func(args ...interface{}) (interface{}, error) {
	return func(args ...interface{}) (interface{}, error) {
		if len(args) != f.arity {
			return nil, fmt.Errorf("%s expects %d arguments, got %d", name, f.arity, len(args))
		}

		values := make([]float64, len(args))
		for i, arg := range args {
			v, err := toFloat(arg)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			values[i] = v
		}

		result := f.eval(values)
		if math.IsNaN(result) {
			return nil, fmt.Errorf("%w: %s%v", ErrDomain, name, values)
		}
		return result, nil
	}
}

// IsConstant reports whether name is a named constant of Language. Such a
// name always evaluates to the constant, never to a variable of the scope.
func IsConstant(name string) bool {
	_, ok := constants[name]
	return ok
}

// IsFunction reports whether name is callable in Language
func IsFunction(name string) bool {
	_, ok := functions[name]
	return ok
}

func init() {
	bases := []gval.Language{gval.Arithmetic()}
	for name, value := range constants {
		bases = append(bases, gval.Constant(name, value))
	}
	for name, f := range functions {
		bases = append(bases, gval.Function(name, f.gval(name)))
	}

	Language = gval.NewLanguage(bases...)
}

var normalizer = strings.NewReplacer(
	"^", "**",
	"·", "*",
	"×", "*",
	`\pi`, "pi",
	`\e`, "e",
)

// normalize rewrites the notations accepted in problem files into Language's syntax
func normalize(text string) string {
	return normalizer.Replace(text)
}
