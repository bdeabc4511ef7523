package gep

import (
	"errors"
	"fmt"
	"math/rand"
)

var (
	ErrRegion = errors.New("gep: run crosses the head/tail boundary")
	ErrRange  = errors.New("gep: run out of range")
)

func (c *Chromosome) checkRun(start, length int) error {
	if start < 0 || length < 1 || start+length > len(c.genes) {
		return fmt.Errorf("%w: [%d, %d) of %d genes", ErrRange, start, start+length, len(c.genes))
	}
	return nil
}

// sameRegion reports whether [start, start+length) lies entirely in the head
// or entirely in the tail
func (c *Chromosome) sameRegion(start, length int) bool {
	end := start + length - 1
	return c.InHead(start) == c.InHead(end)
}

// Mutate replaces the run [start, start+length) with freshly sampled genes.
// Head positions may receive any symbol class, tail positions only terminals.
func Mutate(c *Chromosome, start, length int, a *Alphabet, rng *rand.Rand) (*Chromosome, error) {
	if err := c.checkRun(start, length); err != nil {
		return nil, err
	}

	genes := c.mutableCopy()
	for i := start; i < start+length; i++ {
		genes[i] = a.RandomSymbol(rng, c.InHead(i))
	}
	return &Chromosome{genes: genes, headLength: c.headLength}, nil
}

// Invert reverses the run [start, start+length), which must stay inside one region
func Invert(c *Chromosome, start, length int) (*Chromosome, error) {
	if err := c.checkRun(start, length); err != nil {
		return nil, err
	}
	if !c.sameRegion(start, length) {
		return nil, fmt.Errorf("%w: inversion of [%d, %d)", ErrRegion, start, start+length)
	}

	genes := c.mutableCopy()
	for i, j := start, start+length-1; i < j; i, j = i+1, j-1 {
		genes[i], genes[j] = genes[j], genes[i]
	}
	return &Chromosome{genes: genes, headLength: c.headLength}, nil
}

// Transpose copies the run [origin, origin+length) over [target, target+length).
// Nothing is shifted: the destination genes are overwritten and the length is
// unchanged. Both runs must sit in the same region.
func Transpose(c *Chromosome, origin, target, length int) (*Chromosome, error) {
	if err := c.checkRun(origin, length); err != nil {
		return nil, err
	}
	if err := c.checkRun(target, length); err != nil {
		return nil, err
	}
	if !c.sameRegion(origin, length) || !c.sameRegion(target, length) || c.InHead(origin) != c.InHead(target) {
		return nil, fmt.Errorf("%w: transposition [%d, %d) -> [%d, %d)", ErrRegion,
			origin, origin+length, target, target+length)
	}

	genes := c.mutableCopy()
	// read from the parent so overlapping runs copy the original genes
	copy(genes[target:target+length], c.genes[origin:origin+length])
	return &Chromosome{genes: genes, headLength: c.headLength}, nil
}

// exchange swaps the genes of [from, to) between two copies. A gene is only
// received at a tail position when it is a terminal; otherwise the receiver
// keeps its own gene there.
func exchange(a, b *Chromosome, from, to int) (*Chromosome, *Chromosome) {
	ga, gb := a.mutableCopy(), b.mutableCopy()
	for i := from; i < to; i++ {
		if a.InHead(i) || b.genes[i].IsTerminal() {
			ga[i] = b.genes[i]
		}
		if b.InHead(i) || a.genes[i].IsTerminal() {
			gb[i] = a.genes[i]
		}
	}
	return &Chromosome{genes: ga, headLength: a.headLength},
		&Chromosome{genes: gb, headLength: b.headLength}
}

func minLen(a, b *Chromosome) int {
	if a.Len() < b.Len() {
		return a.Len()
	}
	return b.Len()
}

// RecombineOnePoint exchanges every gene from point up to the shorter parent's
// length. A point outside [0, min length) leaves both offspring as copies of
// their parents.
func RecombineOnePoint(a, b *Chromosome, point int) (*Chromosome, *Chromosome) {
	n := minLen(a, b)
	if point < 0 || point >= n {
		return a.Copy(), b.Copy()
	}
	return exchange(a, b, point, n)
}

// RecombineTwoPoint exchanges the genes in [p1, p2). Both points must lie in
// [0, min length) and p2 must exceed p1 by more than one, otherwise the
// offspring are copies of their parents.
func RecombineTwoPoint(a, b *Chromosome, p1, p2 int) (*Chromosome, *Chromosome) {
	n := minLen(a, b)
	if p1 < 0 || p2 >= n || p2 <= p1+1 {
		return a.Copy(), b.Copy()
	}
	return exchange(a, b, p1, p2)
}

// RandomMutation mutates a random run that never includes the last gene
func RandomMutation(c *Chromosome, a *Alphabet, rng *rand.Rand) *Chromosome {
	n := c.Len()
	if n < 2 {
		mutant, _ := Mutate(c, 0, n, a, rng)
		return mutant
	}

	start := rng.Intn(n - 1)
	length := rng.Intn(n-start-1) + 1
	mutant, _ := Mutate(c, start, length, a, rng)
	return mutant
}

// randomRegion picks the head or the tail with equal odds and returns its
// first and last positions
func randomRegion(c *Chromosome, rng *rand.Rand) (int, int) {
	if rng.Intn(2) == 0 {
		return 0, c.headLength - 1
	}
	return c.headLength, len(c.genes) - 1
}

// RandomInversion inverts a random run inside the head or inside the tail.
// A region of a single gene yields an unchanged copy.
func RandomInversion(c *Chromosome, rng *rand.Rand) *Chromosome {
	lo, hi := randomRegion(c, rng)
	if hi-lo < 1 {
		return c.Copy()
	}

	start := rng.Intn(hi-lo) + lo
	length := rng.Intn(hi-start) + 1
	mutant, _ := Invert(c, start, length)
	return mutant
}

// RandomTransposition transposes a random run forward inside the head or
// inside the tail. It reports false when the chosen region is too short to
// hold distinct origin and target runs.
func RandomTransposition(c *Chromosome, rng *rand.Rand) (*Chromosome, bool) {
	lo, hi := randomRegion(c, rng)
	if hi-(lo+2) <= 0 {
		return nil, false
	}

	origin := rng.Intn(hi-(lo+2)) + lo
	target := rng.Intn(hi-(origin+1)) + origin + 1
	length := rng.Intn(hi-target) + 1
	mutant, err := Transpose(c, origin, target, length)
	if err != nil {
		return nil, false
	}
	return mutant, true
}

func RandomOnePoint(a, b *Chromosome, rng *rand.Rand) (*Chromosome, *Chromosome) {
	n := minLen(a, b)
	if n < 2 {
		return a.Copy(), b.Copy()
	}
	return RecombineOnePoint(a, b, rng.Intn(n-1))
}

func RandomTwoPoint(a, b *Chromosome, rng *rand.Rand) (*Chromosome, *Chromosome) {
	n := minLen(a, b)
	if n < 2 {
		return a.Copy(), b.Copy()
	}
	p1 := rng.Intn(n - 1)
	p2 := rng.Intn(n-p1-1) + p1
	return RecombineTwoPoint(a, b, p1, p2)
}
