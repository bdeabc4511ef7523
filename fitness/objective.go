package fitness

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// SearchMode decides which side of the data the fitted curve should keep to
type SearchMode int8

const (
	BestFit SearchMode = iota
	UpperBound
	LowerBound
)

var searchModeKeywords = [...]string{
	BestFit:    "best fit search",
	UpperBound: "upper bound search",
	LowerBound: "lower bound search",
}

func (m SearchMode) String() string {
	if m < BestFit || m > LowerBound {
		return fmt.Sprintf("SearchMode(%d)", int(m))
	}
	return searchModeKeywords[m]
}

// ParseSearchMode recognises the problem file keywords, ignoring case and
// surrounding whitespace
func ParseSearchMode(keyword string) (SearchMode, bool) {
	keyword = strings.ToLower(strings.Join(strings.Fields(keyword), " "))
	for mode, kw := range searchModeKeywords {
		if kw == keyword {
			return SearchMode(mode), true
		}
	}
	return BestFit, false
}

// Model computes the prediction for one row of inputs under a parameter vector
type Model func(inputs, params []float64) (float64, error)

// Dataset is a table of input rows with the observed output of each
type Dataset struct {
	Inputs   [][]float64
	Expected []float64
}

func (d Dataset) Len() int { return len(d.Expected) }

var ErrEmptyDataset = errors.New("fitness: dataset has no rows")

// Objective is the penalised function minimised for one candidate: the error
// metric plus the squared violation of every infeasible constraint plus, for
// the bound search modes, the one-sided distance to the data. An Objective
// reuses its prediction buffer and is not safe for concurrent use.
type Objective struct {
	Model       Model
	Data        Dataset
	Metric      Metric
	Constraints []Constraint
	Mode        SearchMode

	predicted []float64
}

// Predict evaluates the model on every row. Any row failing to evaluate fails
// the whole prediction.
func (o *Objective) Predict(params []float64) ([]float64, error) {
	if o.Data.Len() == 0 {
		return nil, ErrEmptyDataset
	}
	if len(o.predicted) != o.Data.Len() {
		o.predicted = make([]float64, o.Data.Len())
	}

	for i, row := range o.Data.Inputs {
		v, err := o.Model(row, params)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		o.predicted[i] = v
	}
	return o.predicted, nil
}

// Penalty sums the squared violation of the infeasible constraints
func (o *Objective) Penalty(params []float64) (float64, error) {
	var penalty float64
	for _, c := range o.Constraints {
		v, err := c.Evaluate(params)
		if err != nil {
			return 0, err
		}
		if !c.IsFeasible(v) {
			penalty += v * v
		}
	}
	return penalty, nil
}

// sidePenalty pushes the curve above (UpperBound) or below (LowerBound) every
// observation
func (o *Objective) sidePenalty(predicted []float64) float64 {
	var penalty float64
	switch o.Mode {
	case UpperBound:
		for i, expected := range o.Data.Expected {
			penalty += math.Max(0, expected-predicted[i])
		}
	case LowerBound:
		for i, expected := range o.Data.Expected {
			penalty += math.Max(0, predicted[i]-expected)
		}
	}
	return penalty
}

// Value computes the penalised objective, failing on any evaluation error
func (o *Objective) Value(params []float64) (float64, error) {
	predicted, err := o.Predict(params)
	if err != nil {
		return 0, err
	}

	value := o.Metric.Compute(predicted, o.Data.Expected)

	penalty, err := o.Penalty(params)
	if err != nil {
		return 0, err
	}
	value += penalty + o.sidePenalty(predicted)

	if math.IsNaN(value) {
		return math.Inf(1), nil
	}
	return value, nil
}

// Fitness folds evaluation failures into +Inf, the worst possible score
func (o *Objective) Fitness(params []float64) float64 {
	value, err := o.Value(params)
	if err != nil {
		return math.Inf(1)
	}
	return value
}
