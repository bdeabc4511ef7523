package gep

import (
	"fmt"
)

// staticTokenStack holds rendered operands while an expression tree is
// flattened to infix text. Its capacity is fixed at construction: a tree of n
// nodes never needs more than n operands at once.
type staticTokenStack struct {
	stack  []string
	length int
}

func newTokenStack(length int) *staticTokenStack {
	return &staticTokenStack{
		stack:  make([]string, length),
		length: 0,
	}
}

func (s *staticTokenStack) Push(token string) error {
	if s.length >= len(s.stack) {
		return fmt.Errorf("stack has reached maximum capacity (%d)", len(s.stack))
	}

	s.stack[s.length] = token
	s.length++
	return nil
}

func (s *staticTokenStack) Pop() (string, error) {
	if s.length == 0 {
		return "", fmt.Errorf("stack is empty")
	}

	s.length--
	return s.stack[s.length], nil
}

// PopN removes the top n tokens and returns them in push order
func (s *staticTokenStack) PopN(n int) ([]string, error) {
	if n > s.length {
		return nil, fmt.Errorf("stack holds %d tokens, %d requested", s.length, n)
	}

	tokens := make([]string, n)
	copy(tokens, s.stack[s.length-n:s.length])
	s.length -= n
	return tokens, nil
}

func (s *staticTokenStack) Size() int {
	return s.length
}
