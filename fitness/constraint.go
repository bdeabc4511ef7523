package fitness

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/they4kman/equationfinder/expression"
	"github.com/they4kman/equationfinder/gep"
)

var ErrConstraint = errors.New("fitness: malformed constraint")

type Relationship int8

const (
	LEQ Relationship = iota
	EQ
	GEQ
)

var relationshipNames = [...]string{LEQ: "<=", EQ: "=", GEQ: ">="}

func (r Relationship) String() string {
	if r < LEQ || r > GEQ {
		return "Relationship(" + strconv.Itoa(int(r)) + ")"
	}
	return relationshipNames[r]
}

func ParseRelationship(op string) (Relationship, error) {
	switch strings.TrimSpace(op) {
	case "<=":
		return LEQ, nil
	case "=":
		return EQ, nil
	case ">=":
		return GEQ, nil
	}
	return 0, fmt.Errorf("%w: unknown relation %q", ErrConstraint, op)
}

// IsFeasible holds for value <= 0 (LEQ), value == 0 (EQ) or value >= 0 (GEQ).
// Zero is feasible for every relationship.
func (r Relationship) IsFeasible(value float64) bool {
	switch r {
	case LEQ:
		return value <= 0
	case EQ:
		return value == 0
	default:
		return value >= 0
	}
}

// Constraint is a general relation rewritten as "lhs - (rhs) REL 0", bound to
// the parameter vector of one candidate
type Constraint struct {
	Evaluate     func(params []float64) (float64, error)
	Relationship Relationship
}

func (c Constraint) IsFeasible(value float64) bool {
	return c.Relationship.IsFeasible(value)
}

// Bound is a "p<i> REL constant" constraint folded into the optimizer's box
type Bound struct {
	Parameter    string
	Relationship Relationship
	Value        float64
}

// GeneralConstraint is a parsed relation not reducible to a Bound
type GeneralConstraint struct {
	Text         string
	Relationship Relationship
	expr         *expression.Expression
}

// Parameters lists the variables the constraint references
func (g *GeneralConstraint) Parameters() []string {
	return g.expr.Variables()
}

// ConstraintSet is the classified constraint list of a problem
type ConstraintSet struct {
	Bounds  []Bound
	General []*GeneralConstraint
}

var relationPattern = regexp.MustCompile(`[<>]?=`)

// ParseConstraint classifies one constraint line
func ParseConstraint(line string) (*Bound, *GeneralConstraint, error) {
	locs := relationPattern.FindAllStringIndex(line, -1)
	if len(locs) != 1 {
		return nil, nil, fmt.Errorf("%w: %q needs exactly one of <=, >=, =", ErrConstraint, line)
	}
	loc := locs[0]

	lhs := strings.TrimSpace(line[:loc[0]])
	rhs := strings.TrimSpace(line[loc[1]:])
	rel, err := ParseRelationship(line[loc[0]:loc[1]])
	if err != nil {
		return nil, nil, err
	}
	if lhs == "" || rhs == "" {
		return nil, nil, fmt.Errorf("%w: %q has an empty side", ErrConstraint, line)
	}

	if _, isParam := gep.ParseParameterName(lhs); isParam {
		if value, err := strconv.ParseFloat(rhs, 64); err == nil {
			return &Bound{Parameter: lhs, Relationship: rel, Value: value}, nil, nil
		}
	}

	text := lhs
	if rhs != "0" {
		text = lhs + "-(" + rhs + ")"
	}
	expr, err := expression.Compile(text)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %q: %v", ErrConstraint, line, err)
	}
	return nil, &GeneralConstraint{Text: strings.TrimSpace(line), Relationship: rel, expr: expr}, nil
}

// ParseConstraints classifies every line; blank lines are skipped
func ParseConstraints(lines []string) (*ConstraintSet, error) {
	set := &ConstraintSet{}
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}

		bound, general, err := ParseConstraint(line)
		if err != nil {
			return nil, err
		}
		if bound != nil {
			set.Bounds = append(set.Bounds, *bound)
		} else {
			set.General = append(set.General, general)
		}
	}
	return set, nil
}

// Box returns the bounds for a parameter vector laid out as names. Parameters
// without a bound are unbounded; bounds on absent parameters are ignored.
func (s *ConstraintSet) Box(names []string) (lower, upper []float64) {
	lower = make([]float64, len(names))
	upper = make([]float64, len(names))
	index := make(map[string]int, len(names))
	for i, name := range names {
		lower[i] = math.Inf(-1)
		upper[i] = math.Inf(1)
		index[name] = i
	}
	if s == nil {
		return lower, upper
	}

	for _, b := range s.Bounds {
		i, ok := index[b.Parameter]
		if !ok {
			continue
		}
		switch b.Relationship {
		case GEQ:
			lower[i] = b.Value
		case LEQ:
			upper[i] = b.Value
		case EQ:
			lower[i], upper[i] = b.Value, b.Value
		}
	}
	return lower, upper
}

// For binds the general constraints to a parameter vector laid out as names.
// A constraint referencing a parameter missing from names does not apply to
// that candidate and is left out.
func (s *ConstraintSet) For(names []string) []Constraint {
	if s == nil {
		return nil
	}

	present := make(map[string]struct{}, len(names))
	for _, name := range names {
		present[name] = struct{}{}
	}

	var constraints []Constraint
next:
	for _, g := range s.General {
		for _, p := range g.Parameters() {
			if _, ok := present[p]; !ok {
				continue next
			}
		}

		binding := g.expr.Bind(names)
		constraints = append(constraints, Constraint{
			Evaluate: func(params []float64) (float64, error) {
				return binding.Evaluate(params)
			},
			Relationship: g.Relationship,
		})
	}
	return constraints
}
