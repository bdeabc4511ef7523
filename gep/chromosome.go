package gep

import (
	"errors"
	"fmt"
	"strings"
)

var ErrTruncated = errors.New("gep: chromosome ran out of genes while decoding")

// Chromosome is a Karva expression: a fixed-length gene sequence split into a
// head, which may hold any symbol, and a tail, which holds terminals only.
// Chromosomes are never modified once created; every genetic operator
// returns a new one.
type Chromosome struct {
	genes      []Symbol
	headLength int
}

func NewChromosome(head, tail []Symbol) (*Chromosome, error) {
	if len(head) == 0 {
		return nil, ErrEmpty
	}
	for i, s := range tail {
		if !s.IsTerminal() {
			return nil, fmt.Errorf("%w at tail position %d (%s)", ErrTailOperator, i, s)
		}
	}

	genes := make([]Symbol, 0, len(head)+len(tail))
	genes = append(genes, head...)
	genes = append(genes, tail...)
	return &Chromosome{genes: genes, headLength: len(head)}, nil
}

func (c *Chromosome) HeadLength() int { return c.headLength }
func (c *Chromosome) TailLength() int { return len(c.genes) - c.headLength }
func (c *Chromosome) Len() int        { return len(c.genes) }

// At returns the gene at position i, counting the head first
func (c *Chromosome) At(i int) Symbol { return c.genes[i] }

// InHead reports whether position i belongs to the head
func (c *Chromosome) InHead(i int) bool { return i < c.headLength }

// Genes returns a copy of the full gene sequence
func (c *Chromosome) Genes() []Symbol {
	return append([]Symbol(nil), c.genes...)
}

func (c *Chromosome) Equal(other *Chromosome) bool {
	if c.headLength != other.headLength || len(c.genes) != len(other.genes) {
		return false
	}
	for i := range c.genes {
		if c.genes[i] != other.genes[i] {
			return false
		}
	}
	return true
}

func (c *Chromosome) String() string {
	var buf strings.Builder
	buf.Grow(len(c.genes) * 4)

	buf.WriteByte('[')
	for i, gene := range c.genes {
		if i == c.headLength {
			buf.WriteString("],[")
		} else if i > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(gene.String())
	}
	buf.WriteByte(']')
	return buf.String()
}

// Copy returns a chromosome with its own gene storage
func (c *Chromosome) Copy() *Chromosome {
	return &Chromosome{
		genes:      c.Genes(),
		headLength: c.headLength,
	}
}

// mutableCopy is used by the genetic operators to build their offspring
func (c *Chromosome) mutableCopy() []Symbol {
	return c.Genes()
}

// ValidTail reports whether every tail gene is a terminal
func (c *Chromosome) ValidTail() bool {
	for _, s := range c.genes[c.headLength:] {
		if !s.IsTerminal() {
			return false
		}
	}
	return true
}

// Node is one vertex of a decoded expression tree
type Node struct {
	Value    Symbol
	Children []*Node
}

// Decode builds the expression tree of a chromosome level by level: starting
// from the first gene, each dequeued node takes the next Arity() genes as its
// children, continuing from the head into the tail. Genes left over once every
// node is complete are ignored.
func Decode(c *Chromosome) (*Node, error) {
	if len(c.genes) == 0 {
		return nil, ErrEmpty
	}

	root := &Node{Value: c.genes[0]}
	queue := make([]*Node, 1, len(c.genes))
	queue[0] = root
	next := 1

	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]

		arity := parent.Value.Arity()
		if arity == 0 {
			continue
		}

		parent.Children = make([]*Node, arity)
		for j := 0; j < arity; j++ {
			if next >= len(c.genes) {
				return nil, fmt.Errorf("%w: %s needs %d arguments at gene %d", ErrTruncated, parent.Value, arity, next)
			}
			child := &Node{Value: c.genes[next]}
			next++
			parent.Children[j] = child
			queue = append(queue, child)
		}
	}

	return root, nil
}

// postOrder lists the tree's nodes children-first, left to right
func postOrder(root *Node) []*Node {
	var order []*Node
	stack := []*Node{root}
	for len(stack) > 0 {
		n := len(stack) - 1
		current := stack[n]
		stack = stack[:n]

		order = append(order, current)
		stack = append(stack, current.Children...)
	}

	// order is a right-to-left pre-order; reversed it's a left-to-right post-order
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order
}

// Infix renders a decoded tree. The four arithmetic operators render as
// "(lhs OP rhs)", every other operator as "name(arg0,arg1,...)". The output
// carries no whitespace and is canonical: equal trees give equal text.
func (a *Alphabet) Infix(root *Node) (string, error) {
	nodes := postOrder(root)
	operands := newTokenStack(len(nodes))

	var buf strings.Builder
	for _, node := range nodes {
		if node.Value.IsTerminal() {
			if err := operands.Push(a.Name(node.Value)); err != nil {
				return "", err
			}
			continue
		}

		op := node.Value.Operator()
		args, err := operands.PopN(op.Arity())
		if err != nil {
			return "", fmt.Errorf("rendering %s: %w", op, err)
		}

		buf.Reset()
		if op.Infix() {
			buf.WriteByte('(')
			buf.WriteString(args[0])
			buf.WriteString(op.Name())
			buf.WriteString(args[1])
			buf.WriteByte(')')
		} else {
			buf.WriteString(op.Name())
			buf.WriteByte('(')
			buf.WriteString(strings.Join(args, ","))
			buf.WriteByte(')')
		}

		if err := operands.Push(buf.String()); err != nil {
			return "", err
		}
	}

	if operands.Size() != 1 {
		return "", fmt.Errorf("rendering left %d operands on the stack", operands.Size())
	}
	result, _ := operands.Pop()
	return result, nil
}

// Expression decodes a chromosome straight to its canonical infix text
func (a *Alphabet) Expression(c *Chromosome) (string, error) {
	root, err := Decode(c)
	if err != nil {
		return "", err
	}
	return a.Infix(root)
}
