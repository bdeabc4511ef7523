package problem

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/they4kman/equationfinder/expression"
	"github.com/they4kman/equationfinder/fitness"
)

var ErrFormat = errors.New("problem: malformed problem file")

// Problem is what a search is asked to fit
type Problem struct {
	Mode fitness.SearchMode

	// Optional model to fit directly instead of searching for one
	Expression string

	Constraints []string
	Inputs      []string

	// Each row holds one value per input followed by the observed output
	Data [][]float64

	Metric string
}

type section int

const (
	sectionNone section = iota
	sectionObjective
	sectionConstraints
	sectionInput
	sectionData
	sectionMetric
)

var sectionHeaders = []struct {
	prefix  string
	section section
}{
	{"subject to", sectionConstraints},
	{"with input", sectionInput},
	{"with data", sectionData},
	{"with search metric", sectionMetric},
}

func fields(line string) []string {
	return strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == ';'
	})
}

// Parse reads the sectioned problem format:
//
//	# comment
//	upper bound search
//	subject to
//	p0 >= 0
//	with input
//	x
//	with data
//	0 1.5
//	with search metric
//	RSS
//
// The first line names the search mode; a line after it (or in its place)
// is taken as an expression to fit.
func Parse(r io.Reader) (*Problem, error) {
	p := &Problem{}
	current := sectionNone

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}

		if current == sectionNone {
			current = sectionObjective
			if mode, ok := fitness.ParseSearchMode(line); ok {
				p.Mode = mode
				continue
			}
		}

		header := false
		lower := strings.ToLower(line)
		for _, h := range sectionHeaders {
			if strings.HasPrefix(lower, h.prefix) {
				current = h.section
				header = true
				break
			}
		}
		if header {
			continue
		}

		switch current {
		case sectionObjective:
			if p.Expression != "" {
				return nil, fmt.Errorf("%w: line %d: second objective expression %q", ErrFormat, lineNo, line)
			}
			p.Expression = line
		case sectionConstraints:
			p.Constraints = append(p.Constraints, line)
		case sectionInput:
			p.Inputs = append(p.Inputs, fields(line)...)
		case sectionData:
			cols := fields(line)
			row := make([]float64, len(cols))
			for i, col := range cols {
				v, err := strconv.ParseFloat(col, 64)
				if err != nil {
					return nil, fmt.Errorf("%w: line %d: %v", ErrFormat, lineNo, err)
				}
				row[i] = v
			}
			p.Data = append(p.Data, row)
		case sectionMetric:
			p.Metric = line
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Load parses the problem file at path
func Load(path string) (*Problem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Validate checks the problem is complete and self-consistent
func (p *Problem) Validate() error {
	if len(p.Inputs) == 0 {
		return fmt.Errorf("%w: no inputs declared", ErrFormat)
	}
	seen := make(map[string]struct{}, len(p.Inputs))
	for _, name := range p.Inputs {
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: input %q declared twice", ErrFormat, name)
		}
		if expression.IsConstant(name) || expression.IsFunction(name) {
			return fmt.Errorf("%w: input %q is a reserved name of the expression language", ErrFormat, name)
		}
		seen[name] = struct{}{}
	}

	if len(p.Data) == 0 {
		return fmt.Errorf("%w: no data rows", ErrFormat)
	}
	for i, row := range p.Data {
		if len(row) != len(p.Inputs)+1 {
			return fmt.Errorf("%w: data row %d has %d values, want %d", ErrFormat, i+1, len(row), len(p.Inputs)+1)
		}
	}

	if p.Metric == "" {
		return fmt.Errorf("%w: no search metric", ErrFormat)
	}
	if _, err := fitness.LookupMetric(p.Metric); err != nil {
		return fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return nil
}

// Dataset splits the data table into input rows and observed outputs
func (p *Problem) Dataset() fitness.Dataset {
	d := fitness.Dataset{
		Inputs:   make([][]float64, len(p.Data)),
		Expected: make([]float64, len(p.Data)),
	}
	for i, row := range p.Data {
		d.Inputs[i] = row[:len(row)-1]
		d.Expected[i] = row[len(row)-1]
	}
	return d
}

// ConstraintSet parses and classifies the constraint lines
func (p *Problem) ConstraintSet() (*fitness.ConstraintSet, error) {
	return fitness.ParseConstraints(p.Constraints)
}
