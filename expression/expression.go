package expression

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"text/scanner"

	"github.com/PaesslerAG/gval"
)

// ErrDomain marks an evaluation that left the domain of a function or produced
// a non-finite value. It is never fatal to a search: the candidate is scored +Inf.
var ErrDomain = errors.New("expression: domain error")

// Expression is a compiled infix expression
type Expression struct {
	text      string
	evaluable gval.Evaluable
	variables []string
}

// Compile parses text in Language. Parse failures are structural errors and
// are returned as-is.
func Compile(text string) (*Expression, error) {
	normalized := normalize(text)

	variables, err := ExtractVariables(normalized)
	if err != nil {
		return nil, err
	}

	evaluable, err := Language.NewEvaluable(normalized)
	if err != nil {
		return nil, fmt.Errorf("parsing expression %q: %w", text, err)
	}

	return &Expression{
		text:      text,
		evaluable: evaluable,
		variables: variables,
	}, nil
}

func (e *Expression) String() string {
	return e.text
}

// Variables lists the distinct free identifiers in order of first appearance
func (e *Expression) Variables() []string {
	return append([]string(nil), e.variables...)
}

// Eval evaluates the expression against an explicit variable scope
func (e *Expression) Eval(ctx context.Context, scope map[string]interface{}) (float64, error) {
	result, err := e.evaluable.EvalFloat64(ctx, scope)
	if err != nil {
		if errors.Is(err, ErrDomain) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %s: %v", ErrDomain, e.text, err)
	}
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0, fmt.Errorf("%w: %s evaluated to %v", ErrDomain, e.text, result)
	}
	return result, nil
}

// Binding evaluates an expression with values supplied positionally. A
// Binding reuses its scope between calls, so it must not be shared between
// goroutines; create one per worker with Bind.
type Binding struct {
	expr  *Expression
	names []string
	scope map[string]interface{}
}

// Bind fixes the order in which Evaluate assigns values to variable names.
// Names the expression does not reference are allowed and ignored.
func (e *Expression) Bind(names []string) *Binding {
	return &Binding{
		expr:  e,
		names: append([]string(nil), names...),
		scope: make(map[string]interface{}, len(names)),
	}
}

// Evaluate assigns the concatenation of values to the bound names, in order,
// and evaluates the expression.
func (b *Binding) Evaluate(values ...[]float64) (float64, error) {
	i := 0
	for _, vs := range values {
		for _, v := range vs {
			if i >= len(b.names) {
				return 0, fmt.Errorf("binding of %q got more than %d values", b.expr.text, len(b.names))
			}
			b.scope[b.names[i]] = v
			i++
		}
	}
	if i != len(b.names) {
		return 0, fmt.Errorf("binding of %q got %d values for %d names", b.expr.text, i, len(b.names))
	}

	return b.expr.Eval(context.Background(), b.scope)
}

// ExtractVariables returns the distinct identifiers in text that are neither a
// function call nor a named constant, in order of first appearance.
func ExtractVariables(text string) ([]string, error) {
	var s scanner.Scanner
	s.Init(strings.NewReader(text))
	s.Mode = scanner.ScanIdents | scanner.ScanFloats | scanner.ScanInts
	s.Error = func(*scanner.Scanner, string) {}

	var (
		variables []string
		seen      = make(map[string]struct{})
		pending   string
	)
	flush := func(next rune) {
		if pending == "" {
			return
		}
		name := pending
		pending = ""
		if next == '(' {
			return
		}
		if _, isConstant := constants[name]; isConstant {
			return
		}
		if _, dup := seen[name]; dup {
			return
		}
		seen[name] = struct{}{}
		variables = append(variables, name)
	}

	for tok := s.Scan(); tok != scanner.EOF; tok = s.Scan() {
		flush(tok)
		if tok == scanner.Ident {
			pending = s.TokenText()
		}
	}
	flush(scanner.EOF)

	if s.ErrorCount > 0 {
		return nil, fmt.Errorf("scanning expression %q: %d errors", text, s.ErrorCount)
	}
	return variables, nil
}
