package simulation

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/they4kman/equationfinder/expression"
	"github.com/they4kman/equationfinder/fitness"
	"github.com/they4kman/equationfinder/gep"
	"github.com/they4kman/equationfinder/optimizer"
)

// OptimizationProblem is one equivalence class: every Chromosome of a
// generation decoding to the same expression text. The class is fitted and
// scored once, whatever its size.
type OptimizationProblem struct {
	Chromosomes []*gep.Chromosome
	Expression  string

	// Free parameters of the expression, in the order of the fitted vector
	Parameters []string

	BestParameters []float64
	Fitness        float64

	compiled  *expression.Expression
	evaluated bool
}

// Evaluated reports whether BestParameters and Fitness hold a result
func (op *OptimizationProblem) Evaluated() bool {
	return op.evaluated
}

func (op *OptimizationProblem) setResult(params []float64, fitness float64) {
	op.BestParameters = params
	op.Fitness = fitness
	op.evaluated = true
}

// parameterLess orders p<i> names by index and anything else by name after them
func parameterLess(a, b string) bool {
	ia, aIsParam := gep.ParseParameterName(a)
	ib, bIsParam := gep.ParseParameterName(b)
	switch {
	case aIsParam && bIsParam:
		return ia < ib
	case aIsParam != bIsParam:
		return aIsParam
	default:
		return a < b
	}
}

// freeParameters is every variable of expr that is not an input
func freeParameters(expr *expression.Expression, inputs []string) []string {
	isInput := make(map[string]struct{}, len(inputs))
	for _, name := range inputs {
		isInput[name] = struct{}{}
	}

	var params []string
	for _, v := range expr.Variables() {
		if _, ok := isInput[v]; !ok {
			params = append(params, v)
		}
	}
	sort.Slice(params, func(i, j int) bool { return parameterLess(params[i], params[j]) })
	return params
}

// classification is a generation's population split by expression text
type classification struct {
	// Classes with enough free parameters, in order of first appearance
	classes []*OptimizationProblem

	// Classes skipped for having too few free parameters
	degenerate []*OptimizationProblem

	byExpression map[string]*OptimizationProblem
}

func newClassification() *classification {
	return &classification{byExpression: make(map[string]*OptimizationProblem)}
}

// add puts an already built class into the classification
func (cl *classification) add(op *OptimizationProblem) {
	cl.byExpression[op.Expression] = op
	cl.classes = append(cl.classes, op)
}

// addDegenerate carries a class skipped for evaluation. Its chromosomes stay
// in the gene pool; the class is copied so that offspring joining it do not
// grow the previous generation's class.
func (cl *classification) addDegenerate(op *OptimizationProblem) {
	carried := *op
	carried.Chromosomes = append([]*gep.Chromosome(nil), op.Chromosomes...)
	cl.byExpression[op.Expression] = &carried
	cl.degenerate = append(cl.degenerate, &carried)
}

// size is the number of chromosomes over every class, degenerate included
func (cl *classification) size() int {
	n := 0
	for _, op := range cl.classes {
		n += len(op.Chromosomes)
	}
	for _, op := range cl.degenerate {
		n += len(op.Chromosomes)
	}
	return n
}

// evaluationTask fits the parameters of one class. It is self-contained so
// that tasks can run on separate goroutines.
type evaluationTask struct {
	problem *OptimizationProblem

	inputs      []string
	data        fitness.Dataset
	metric      fitness.Metric
	constraints *fitness.ConstraintSet
	mode        fitness.SearchMode

	optimizer      optimizer.Optimizer
	maxEvaluations int
}

func (t *evaluationTask) objective() *fitness.Objective {
	op := t.problem
	names := make([]string, 0, len(t.inputs)+len(op.Parameters))
	names = append(names, t.inputs...)
	names = append(names, op.Parameters...)
	binding := op.compiled.Bind(names)

	return &fitness.Objective{
		Model: func(inputs, params []float64) (float64, error) {
			return binding.Evaluate(inputs, params)
		},
		Data:        t.data,
		Metric:      t.metric,
		Constraints: t.constraints.For(op.Parameters),
		Mode:        t.mode,
	}
}

// run fits the class and records its result. Failures of any kind leave
// the class with +Inf fitness.
func (t *evaluationTask) run() (elapsed time.Duration, err error) {
	startedAt := time.Now()
	defer func() { elapsed = time.Since(startedAt) }()

	op := t.problem
	objective := t.objective()

	lower, upper := t.constraints.Box(op.Parameters)
	initialGuess := make([]float64, len(op.Parameters))
	for i := range initialGuess {
		initialGuess[i] = 1
	}

	best, err := t.optimizer.Optimize(objective.Fitness, lower, upper, initialGuess, t.maxEvaluations)
	if err != nil {
		op.setResult(optimizer.Clamp(initialGuess, lower, upper), math.Inf(1))
		return elapsed, err
	}

	value, err := objective.Value(best)
	if err != nil {
		op.setResult(best, math.Inf(1))
		return elapsed, err
	}
	op.setResult(best, value)
	return elapsed, nil
}

// describe renders a parameter assignment as "p0=1.5, p1=-2"
func describe(names []string, values []float64) string {
	var buf strings.Builder
	for i, name := range names {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(name)
		buf.WriteByte('=')
		if i < len(values) {
			buf.WriteString(formatFloat(values[i]))
		} else {
			buf.WriteByte('?')
		}
	}
	return buf.String()
}
