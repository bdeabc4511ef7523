package gep

import (
	"fmt"
	"strconv"
)

// Operator identifies a function gene. Its arity is looked up in the catalog,
// never stored on the gene itself.
type Operator uint8

const (
	Add Operator = iota
	Sub
	Mul
	Div

	Sin
	Cos
	Tan
	Asin
	Acos
	Atan
	Atan2

	Sinh
	Cosh
	Tanh

	Exp
	Log
	Sqrt
	Cbrt
	Pow
	Hypot

	Ceil
	Floor
	Round
	FloorDiv
	FloorMod
	CeilDiv
	CeilMod
	Abs
	Clamp
	Signum

	Max
	Min

	numOperators
)

type operatorInfo struct {
	name  string
	arity int

	// Rendered as "(lhs OP rhs)" rather than "name(args...)"
	infix bool
}

var operatorCatalog = [numOperators]operatorInfo{
	Add: {"+", 2, true},
	Sub: {"-", 2, true},
	Mul: {"*", 2, true},
	Div: {"/", 2, true},

	Sin:   {"sin", 1, false},
	Cos:   {"cos", 1, false},
	Tan:   {"tan", 1, false},
	Asin:  {"asin", 1, false},
	Acos:  {"acos", 1, false},
	Atan:  {"atan", 1, false},
	Atan2: {"atan2", 2, false},

	Sinh: {"sinh", 1, false},
	Cosh: {"cosh", 1, false},
	Tanh: {"tanh", 1, false},

	Exp:   {"exp", 1, false},
	Log:   {"log", 1, false},
	Sqrt:  {"sqrt", 1, false},
	Cbrt:  {"cbrt", 1, false},
	Pow:   {"pow", 2, false},
	Hypot: {"hypot", 2, false},

	Ceil:     {"ceil", 1, false},
	Floor:    {"floor", 1, false},
	Round:    {"round", 1, false},
	FloorDiv: {"floorDiv", 2, false},
	FloorMod: {"floorMod", 2, false},
	CeilDiv:  {"ceilDiv", 2, false},
	CeilMod:  {"ceilMod", 2, false},
	Abs:      {"abs", 1, false},
	Clamp:    {"clamp", 3, false},
	Signum:   {"signum", 1, false},

	Max: {"max", 2, false},
	Min: {"min", 2, false},
}

var operatorsByName map[string]Operator
var allOperators []Operator

func init() {
	operatorsByName = make(map[string]Operator, numOperators)
	allOperators = make([]Operator, 0, numOperators)
	for op := Operator(0); op < numOperators; op++ {
		operatorsByName[operatorCatalog[op].name] = op
		allOperators = append(allOperators, op)
	}
}

func (op Operator) Name() string { return operatorCatalog[op].name }
func (op Operator) Arity() int    { return operatorCatalog[op].arity }
func (op Operator) Infix() bool   { return operatorCatalog[op].infix }
func (op Operator) String() string {
	if op >= numOperators {
		return "Operator(" + strconv.Itoa(int(op)) + ")"
	}
	return op.Name()
}

// LookupOperator returns the catalog operator with the given name
func LookupOperator(name string) (Operator, bool) {
	op, ok := operatorsByName[name]
	return op, ok
}

// Operators returns the full operator catalog, in catalog order
func Operators() []Operator {
	ops := make([]Operator, len(allOperators))
	copy(ops, allOperators)
	return ops
}

// ParseOperators resolves a list of operator names. An empty list yields the full catalog.
func ParseOperators(names []string) ([]Operator, error) {
	if len(names) == 0 {
		return Operators(), nil
	}

	ops := make([]Operator, 0, len(names))
	seen := make(map[Operator]struct{}, len(names))
	for _, name := range names {
		op, ok := LookupOperator(name)
		if !ok {
			return nil, fmt.Errorf("%w: operator %q", ErrUnknownSymbol, name)
		}
		if _, dup := seen[op]; dup {
			continue
		}
		seen[op] = struct{}{}
		ops = append(ops, op)
	}
	return ops, nil
}

type Kind uint8

const (
	KindOperator Kind = iota
	KindInput
	KindParameter
)

// Symbol is one gene: an operator, a reference to an input column, or a
// reference to a free parameter (rendered p<Index>).
type Symbol struct {
	Kind  Kind
	Index int
}

func OperatorSymbol(op Operator) Symbol { return Symbol{Kind: KindOperator, Index: int(op)} }
func InputSymbol(i int) Symbol          { return Symbol{Kind: KindInput, Index: i} }
func ParameterSymbol(i int) Symbol      { return Symbol{Kind: KindParameter, Index: i} }

func (s Symbol) IsTerminal() bool { return s.Kind != KindOperator }

func (s Symbol) Operator() Operator { return Operator(s.Index) }

// Arity is the number of children the symbol consumes when decoded, 0 for terminals
func (s Symbol) Arity() int {
	if s.Kind != KindOperator {
		return 0
	}
	return s.Operator().Arity()
}

// String renders the symbol without an Alphabet; inputs are shown by position.
func (s Symbol) String() string {
	switch s.Kind {
	case KindOperator:
		return s.Operator().String()
	case KindInput:
		return "$" + strconv.Itoa(s.Index)
	default:
		return ParameterName(s.Index)
	}
}

// ParameterName is the variable name a parameter gene is rendered as
func ParameterName(i int) string {
	return "p" + strconv.Itoa(i)
}

// ParseParameterName is the inverse of ParameterName
func ParseParameterName(name string) (int, bool) {
	if len(name) < 2 || name[0] != 'p' {
		return 0, false
	}
	for _, c := range name[1:] {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	i, err := strconv.Atoi(name[1:])
	if err != nil {
		return 0, false
	}
	return i, true
}
