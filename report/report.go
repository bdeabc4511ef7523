// Package report renders the outcome of a search for people and for other
// programs.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/they4kman/equationfinder/simulation"
)

var numPrinter = message.NewPrinter(language.English)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	}
	return FormatText, fmt.Errorf("unknown output format %q", s)
}

type Parameter struct {
	Name  string  `json:"name" yaml:"name"`
	Value float64 `json:"value" yaml:"value"`
}

// Report is a simulation.Result laid out for serialization. Fitness is nil
// when nothing could be scored, since JSON has no infinity.
type Report struct {
	RunID       string      `json:"run_id" yaml:"run_id"`
	Found       bool        `json:"found" yaml:"found"`
	Expression  string      `json:"expression,omitempty" yaml:"expression,omitempty"`
	Parameters  []Parameter `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Fitness     *float64    `json:"fitness,omitempty" yaml:"fitness,omitempty"`
	Generations int         `json:"generations" yaml:"generations"`
	Evaluations int         `json:"evaluations" yaml:"evaluations"`
	CacheHits   int         `json:"cache_hits" yaml:"cache_hits"`
	Seed        int64       `json:"seed" yaml:"seed"`
	Elapsed     string      `json:"elapsed" yaml:"elapsed"`
}

func New(runID string, result *simulation.Result) *Report {
	r := &Report{
		RunID:       runID,
		Found:       result.Found(),
		Expression:  result.Expression,
		Generations: result.Generations,
		Evaluations: result.Evaluations,
		CacheHits:   result.CacheHits,
		Seed:        result.Seed,
		Elapsed:     result.Elapsed.Round(time.Millisecond).String(),
	}
	for i, name := range result.ParameterNames {
		if i < len(result.Parameters) {
			r.Parameters = append(r.Parameters, Parameter{Name: name, Value: result.Parameters[i]})
		}
	}
	if !math.IsInf(result.Fitness, 0) && !math.IsNaN(result.Fitness) {
		fitness := result.Fitness
		r.Fitness = &fitness
	}
	return r
}

func Write(w io.Writer, format Format, r *Report) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(r)
	default:
		return writeText(w, r)
	}
}

func writeText(w io.Writer, r *Report) error {
	var b strings.Builder
	if r.Found {
		fmt.Fprintf(&b, "expression:  %s\n", r.Expression)
		for _, p := range r.Parameters {
			fmt.Fprintf(&b, "  %-10s %s\n", p.Name, formatValue(p.Value))
		}
		fmt.Fprintf(&b, "fitness:     %s\n", numPrinter.Sprintf("%.6g", *r.Fitness))
	} else {
		b.WriteString("no expression could be scored\n")
	}
	b.WriteString(numPrinter.Sprintf("generations: %d\n", r.Generations))
	b.WriteString(numPrinter.Sprintf("evaluations: %d (%d cached)\n", r.Evaluations, r.CacheHits))
	fmt.Fprintf(&b, "seed:        %d\n", r.Seed)
	fmt.Fprintf(&b, "elapsed:     %s\n", r.Elapsed)

	_, err := io.WriteString(w, b.String())
	return err
}

// formatValue keeps full precision so that the printed parameters can be
// pasted back into the expression
func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Progress returns an observer printing one line per generation to w
func Progress(w io.Writer) simulation.Observer {
	return func(g simulation.GenerationReport) {
		current := "-"
		if g.Best != nil {
			current = numPrinter.Sprintf("%s (%.6g)", g.Best.Expression, g.Best.Fitness)
		}
		numPrinter.Fprintf(w, "gen %5d  pop %7d  classes %6d  overall %-12.6g  current %s\n",
			g.Generation, g.Population, g.Classes, g.OverallBestFitness, current)
	}
}
