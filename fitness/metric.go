package fitness

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var ErrUnknownMetric = errors.New("fitness: unknown error metric")

// Metric scores predictions against observations; lower is better
type Metric struct {
	Name        string
	Description string
	Compute     func(predicted, expected []float64) float64
}

var metrics = []Metric{
	{"MA", "mean absolute error", meanAbsolute},
	{"MAR", "mean absolute relative error", meanAbsoluteRelative},
	{"Max", "maximum error", maximum},
	{"MaxR", "maximum relative error", maximumRelative},
	{"MedA", "median absolute error", medianAbsolute},
	{"NSE", "nash-sutcliffe efficiency", nashSutcliffe},
	{"RMSL", "root mean squared log error", rootMeanSquaredLog},
	{"RSS", "residual sum of squares", residualSumOfSquares},
}

var metricsByName map[string]Metric

func init() {
	metricsByName = make(map[string]Metric, 2*len(metrics))
	for _, m := range metrics {
		metricsByName[strings.ToLower(m.Name)] = m
		metricsByName[m.Description] = m
	}
}

// LookupMetric accepts a short name ("RSS") or a description ("residual sum
// of squares"), case-insensitively
func LookupMetric(name string) (Metric, error) {
	key := strings.ToLower(strings.Join(strings.Fields(name), " "))
	if m, ok := metricsByName[key]; ok {
		return m, nil
	}
	return Metric{}, fmt.Errorf("%w: %q", ErrUnknownMetric, name)
}

// Metrics lists every supported metric
func Metrics() []Metric {
	return append([]Metric(nil), metrics...)
}

func absoluteErrors(predicted, expected []float64) []float64 {
	errs := make([]float64, len(expected))
	for i := range expected {
		errs[i] = math.Abs(expected[i] - predicted[i])
	}
	return errs
}

func relativeErrors(predicted, expected []float64) []float64 {
	errs := make([]float64, len(expected))
	for i := range expected {
		errs[i] = math.Abs(1 - predicted[i]/expected[i])
	}
	return errs
}

func meanAbsolute(predicted, expected []float64) float64 {
	return stat.Mean(absoluteErrors(predicted, expected), nil)
}

func meanAbsoluteRelative(predicted, expected []float64) float64 {
	return stat.Mean(relativeErrors(predicted, expected), nil)
}

func maximum(predicted, expected []float64) float64 {
	return floats.Max(absoluteErrors(predicted, expected))
}

func maximumRelative(predicted, expected []float64) float64 {
	return floats.Max(relativeErrors(predicted, expected))
}

func medianAbsolute(predicted, expected []float64) float64 {
	errs := absoluteErrors(predicted, expected)
	sort.Float64s(errs)

	mid := len(errs) / 2
	if len(errs)%2 == 1 {
		return errs[mid]
	}
	return (errs[mid-1] + errs[mid]) / 2
}

// nashSutcliffe returns 1 - NSE on log1p-transformed values, so that a perfect
// fit scores 0 like every other metric
func nashSutcliffe(predicted, expected []float64) float64 {
	observed := make([]float64, len(expected))
	for i, v := range expected {
		observed[i] = math.Log1p(v)
	}
	mean := stat.Mean(observed, nil)

	var numerator, denominator float64
	for i := range observed {
		d := observed[i] - math.Log1p(predicted[i])
		numerator += d * d
		m := observed[i] - mean
		denominator += m * m
	}
	if denominator == 0 {
		if numerator == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return numerator / denominator
}

func rootMeanSquaredLog(predicted, expected []float64) float64 {
	var sum float64
	for i := range expected {
		d := math.Log1p(expected[i]) - math.Log1p(predicted[i])
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(expected)))
}

func residualSumOfSquares(predicted, expected []float64) float64 {
	residuals := make([]float64, len(expected))
	floats.SubTo(residuals, expected, predicted)
	return floats.Dot(residuals, residuals)
}
