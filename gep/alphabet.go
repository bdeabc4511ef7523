package gep

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
)

var (
	ErrUnknownSymbol = errors.New("gep: unknown symbol")
	ErrTailOperator  = errors.New("gep: operator in chromosome tail")
	ErrEmpty         = errors.New("gep: empty chromosome head")
)

// Alphabet is the symbol universe of a run: which operators may appear in a
// head, which inputs exist, and how many distinct parameters may be referenced.
type Alphabet struct {
	Inputs        []string
	Operators     []Operator
	MaxParameters int

	inputIndex map[string]int
	maxArity   int
}

func NewAlphabet(inputs []string, operators []Operator, maxParameters int) (*Alphabet, error) {
	if len(inputs) == 0 && maxParameters <= 0 {
		return nil, fmt.Errorf("alphabet has no terminals: need at least one input or parameter")
	}

	a := &Alphabet{
		Inputs:        append([]string(nil), inputs...),
		Operators:     append([]Operator(nil), operators...),
		MaxParameters: maxParameters,
		inputIndex:    make(map[string]int, len(inputs)),
		maxArity:      1,
	}

	for i, name := range inputs {
		if _, isOp := LookupOperator(name); isOp {
			return nil, fmt.Errorf("input name %q collides with an operator", name)
		}
		if _, isParam := ParseParameterName(name); isParam {
			return nil, fmt.Errorf("input name %q collides with the parameter naming scheme", name)
		}
		if _, dup := a.inputIndex[name]; dup {
			return nil, fmt.Errorf("duplicate input name %q", name)
		}
		a.inputIndex[name] = i
	}

	for _, op := range operators {
		if op >= numOperators {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, op)
		}
		if op.Arity() > a.maxArity {
			a.maxArity = op.Arity()
		}
	}

	return a, nil
}

// MaxArity is the largest arity among the alphabet's operators (at least 1)
func (a *Alphabet) MaxArity() int {
	return a.maxArity
}

// TailLength returns t = h·(maxArity−1) + 1, the number of tail genes that
// guarantees a head of length h can always be completed with terminals.
func (a *Alphabet) TailLength(headLength int) int {
	return headLength*(a.maxArity-1) + 1
}

// Name is the text a symbol renders as in an expression
func (a *Alphabet) Name(s Symbol) string {
	switch s.Kind {
	case KindOperator:
		return s.Operator().Name()
	case KindInput:
		if s.Index >= 0 && s.Index < len(a.Inputs) {
			return a.Inputs[s.Index]
		}
		return s.String()
	default:
		return ParameterName(s.Index)
	}
}

// ParseSymbol resolves a token to an operator, an input, or a p<i> parameter
func (a *Alphabet) ParseSymbol(token string) (Symbol, error) {
	if op, ok := LookupOperator(token); ok {
		return OperatorSymbol(op), nil
	}
	if i, ok := a.inputIndex[token]; ok {
		return InputSymbol(i), nil
	}
	if i, ok := ParseParameterName(token); ok {
		return ParameterSymbol(i), nil
	}
	return Symbol{}, fmt.Errorf("%w: %q", ErrUnknownSymbol, token)
}

// ParseChromosome builds a chromosome from tokens, the first headLength of
// which form the head.
func (a *Alphabet) ParseChromosome(tokens []string, headLength int) (*Chromosome, error) {
	if headLength < 1 || headLength > len(tokens) {
		return nil, fmt.Errorf("head length %d out of range for %d tokens", headLength, len(tokens))
	}

	genes := make([]Symbol, len(tokens))
	for i, token := range tokens {
		s, err := a.ParseSymbol(token)
		if err != nil {
			return nil, fmt.Errorf("token %d: %w", i, err)
		}
		genes[i] = s
	}
	return NewChromosome(genes[:headLength], genes[headLength:])
}

// Format renders a chromosome with the alphabet's names, e.g. "[+ x p0],[x p1 p0]"
func (a *Alphabet) Format(c *Chromosome) string {
	var buf strings.Builder
	buf.Grow(c.Len() * 4)

	write := func(genes []Symbol) {
		buf.WriteByte('[')
		for i, g := range genes {
			if i > 0 {
				buf.WriteByte(' ')
			}
			buf.WriteString(a.Name(g))
		}
		buf.WriteByte(']')
	}

	write(c.genes[:c.headLength])
	buf.WriteByte(',')
	write(c.genes[c.headLength:])
	return buf.String()
}

type symbolClass int8

const (
	classOperator symbolClass = iota
	classInput
	classParameter
)

// RandomSymbol samples a gene. Head positions pick uniformly among the
// classes {operator, input, parameter}; tail positions among {input, parameter}.
// Classes the alphabet cannot supply are left out of the draw.
func (a *Alphabet) RandomSymbol(rng *rand.Rand, head bool) Symbol {
	var classes [3]symbolClass
	n := 0
	if head && len(a.Operators) > 0 {
		classes[n] = classOperator
		n++
	}
	if len(a.Inputs) > 0 {
		classes[n] = classInput
		n++
	}
	if a.MaxParameters > 0 {
		classes[n] = classParameter
		n++
	}

	switch classes[rng.Intn(n)] {
	case classOperator:
		return OperatorSymbol(a.Operators[rng.Intn(len(a.Operators))])
	case classInput:
		return InputSymbol(rng.Intn(len(a.Inputs)))
	default:
		return ParameterSymbol(rng.Intn(a.MaxParameters))
	}
}

// RandomChromosome creates a chromosome with the given head length and a tail
// sized by TailLength. The root gene is always a function when the alphabet
// has any, so that the initial population is not dominated by lone terminals.
func (a *Alphabet) RandomChromosome(rng *rand.Rand, headLength int) *Chromosome {
	if headLength < 1 {
		headLength = 1
	}

	genes := make([]Symbol, headLength+a.TailLength(headLength))
	for i := range genes {
		genes[i] = a.RandomSymbol(rng, i < headLength)
	}
	if len(a.Operators) > 0 {
		genes[0] = OperatorSymbol(a.Operators[rng.Intn(len(a.Operators))])
	}

	return &Chromosome{genes: genes, headLength: headLength}
}
