package optimizer

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// Objective maps a parameter vector to the value being minimised
type Objective func(params []float64) float64

// Optimizer fits the parameters of one candidate expression inside a box.
// Running out of evaluations is not an error: the best point seen is returned.
type Optimizer interface {
	Optimize(objective Objective, lower, upper, initialGuess []float64, maxEvaluations int) ([]float64, error)
}

// NelderMead is a derivative-free simplex search. The box is enforced by
// projecting every trial point onto it before the objective sees it.
type NelderMead struct {
	// Initial simplex edge length. Zero uses gonum's default.
	SimplexSize float64

	// Stop once the best value improved by less than Tolerance over
	// StallIterations consecutive iterations
	Tolerance       float64
	StallIterations int

	// Called with gonum's error when a search ends abnormally, optional
	OnFailure func(error)
}

func DefaultNelderMead() *NelderMead {
	return &NelderMead{
		SimplexSize:     0.5,
		Tolerance:       1e-10,
		StallIterations: 50,
	}
}

// Clamp projects x onto [lower, upper] into a new slice
func Clamp(x, lower, upper []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		if i < len(lower) && v < lower[i] {
			v = lower[i]
		}
		if i < len(upper) && v > upper[i] {
			v = upper[i]
		}
		out[i] = v
	}
	return out
}

func checkBounds(lower, upper, initialGuess []float64) error {
	if len(lower) != len(initialGuess) || len(upper) != len(initialGuess) {
		return fmt.Errorf("bounds have %d/%d entries for %d parameters", len(lower), len(upper), len(initialGuess))
	}
	for i := range lower {
		if lower[i] > upper[i] {
			return fmt.Errorf("parameter %d has an empty range [%g, %g]", i, lower[i], upper[i])
		}
	}
	return nil
}

func (nm *NelderMead) Optimize(objective Objective, lower, upper, initialGuess []float64, maxEvaluations int) ([]float64, error) {
	if err := checkBounds(lower, upper, initialGuess); err != nil {
		return nil, err
	}

	start := Clamp(initialGuess, lower, upper)
	if len(start) == 0 {
		return start, nil
	}

	best := start
	bestValue := math.Inf(1)
	projected := make([]float64, len(start))

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			for i, v := range x {
				projected[i] = math.Min(math.Max(v, lower[i]), upper[i])
			}
			value := objective(projected)
			if math.IsNaN(value) || math.IsInf(value, 0) {
				return math.MaxFloat64
			}
			if value < bestValue {
				bestValue = value
				best = append(best[:0:0], projected...)
			}
			return value
		},
	}

	settings := &optimize.Settings{
		FuncEvaluations: maxEvaluations,
		Converger: &optimize.FunctionConverge{
			Absolute:   nm.Tolerance,
			Iterations: nm.StallIterations,
		},
	}

	method := &optimize.NelderMead{SimplexSize: nm.SimplexSize}

	// An error here is a budget or convergence failure. The best projected
	// point seen so far is still usable and is what gets returned.
	if _, err := optimize.Minimize(problem, start, settings, method); err != nil && nm.OnFailure != nil {
		nm.OnFailure(err)
	}
	return best, nil
}
