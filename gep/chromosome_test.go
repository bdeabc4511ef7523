package gep_test

import (
	"errors"
	"math/rand"
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"

	"github.com/they4kman/equationfinder/gep"
)

var testInputs = []string{"a", "b", "c", "d", "x"}

func newTestAlphabet() *gep.Alphabet {
	alphabet, err := gep.NewAlphabet(testInputs, gep.Operators(), 4)
	Expect(err).ToNot(HaveOccurred())
	return alphabet
}

// headLengthOf puts every operator token in the head
func headLengthOf(tokens []string) int {
	head := 1
	for i, token := range tokens {
		if _, ok := gep.LookupOperator(token); ok {
			head = i + 1
		}
	}
	return head
}

func parse(alphabet *gep.Alphabet, tokens ...string) *gep.Chromosome {
	c, err := alphabet.ParseChromosome(tokens, headLengthOf(tokens))
	Expect(err).ToNot(HaveOccurred())
	return c
}

var _ = Describe("Chromosome", func() {
	var alphabet *gep.Alphabet

	BeforeEach(func() {
		alphabet = newTestAlphabet()
	})

	DescribeTable("Decode",
		func(tokens []string, expectedExpr string) {
			c := parse(alphabet, tokens...)

			expr, err := alphabet.Expression(c)
			Expect(err).ToNot(HaveOccurred())
			Expect(expr).To(Equal(expectedExpr))
		},
		Entry("a+b", []string{"+", "a", "b"}, "(a+b)"),
		Entry("sin(x)", []string{"sin", "x"}, "sin(x)"),
		Entry("hypot(a,b)", []string{"hypot", "a", "b"}, "hypot(a,b)"),
		Entry("a+(b*c)", []string{"+", "a", "*", "b", "c"}, "(a+(b*c))"),
		Entry("sin of a product", []string{"sin", "*", "-", "+", "a", "b", "c", "d"}, "sin(((a-b)*(c+d)))"),
		Entry("two subtrees", []string{"+", "/", "*", "a", "b", "c", "d"}, "((a/b)+(c*d))"),
		Entry("deep mixed tree", []string{"sin", "*", "b", "*", "*", "+", "b", "a", "cos", "b", "a"}, "sin((b*((b*a)*(cos(a)+b))))"),
		Entry("clamp", []string{"clamp", "a", "b", "c"}, "clamp(a,b,c)"),
		Entry("parameters", []string{"*", "p0", "+", "x", "p1"}, "(p0*(x+p1))"),
		Entry("lone terminal", []string{"x", "a", "b"}, "x"),
		Entry("unused tail", []string{"-", "a", "b", "c", "d", "x"}, "(a-b)"),
	)

	It("ignores genes past the completed tree", func() {
		c := parse(alphabet, "+", "a", "b")
		root, err := gep.Decode(c)
		Expect(err).ToNot(HaveOccurred())
		Expect(root.Children).To(HaveLen(2))
		Expect(root.Children[0].Children).To(BeEmpty())
	})

	It("fails when an operator runs out of arguments", func() {
		c, err := gep.NewChromosome(
			[]gep.Symbol{gep.OperatorSymbol(gep.Add), gep.OperatorSymbol(gep.Mul)},
			[]gep.Symbol{gep.InputSymbol(0)},
		)
		Expect(err).ToNot(HaveOccurred())

		_, err = gep.Decode(c)
		Expect(errors.Is(err, gep.ErrTruncated)).To(BeTrue())
	})

	It("refuses operators in the tail", func() {
		_, err := gep.NewChromosome(
			[]gep.Symbol{gep.OperatorSymbol(gep.Add)},
			[]gep.Symbol{gep.InputSymbol(0), gep.OperatorSymbol(gep.Sin)},
		)
		Expect(errors.Is(err, gep.ErrTailOperator)).To(BeTrue())
	})

	It("refuses an empty head", func() {
		_, err := gep.NewChromosome(nil, []gep.Symbol{gep.InputSymbol(0)})
		Expect(errors.Is(err, gep.ErrEmpty)).To(BeTrue())
	})

	It("formats head and tail separately", func() {
		c := parse(alphabet, "+", "x", "p0", "x")
		Expect(alphabet.Format(c)).To(Equal("[+],[x p0 x]"))
		Expect(c.String()).To(Equal("[+],[$4 p0 $4]"))
	})

	It("sizes the tail from the widest operator", func() {
		arithmetic, err := gep.NewAlphabet([]string{"x"}, []gep.Operator{gep.Add, gep.Sin}, 2)
		Expect(err).ToNot(HaveOccurred())
		Expect(arithmetic.TailLength(5)).To(Equal(6))

		Expect(alphabet.MaxArity()).To(Equal(3))
		Expect(alphabet.TailLength(5)).To(Equal(11))
	})

	It("rejects input names that shadow other symbols", func() {
		_, err := gep.NewAlphabet([]string{"sin"}, gep.Operators(), 2)
		Expect(err).To(HaveOccurred())

		_, err = gep.NewAlphabet([]string{"p3"}, gep.Operators(), 2)
		Expect(err).To(HaveOccurred())

		_, err = gep.NewAlphabet([]string{"x", "x"}, gep.Operators(), 2)
		Expect(err).To(HaveOccurred())
	})

	It("renders equal text for structurally different chromosomes", func() {
		short := parse(alphabet, "+", "p0", "p1")
		long := parse(alphabet, "+", "p0", "p1", "x", "x")
		Expect(short.Equal(long)).To(BeFalse())

		a, err := alphabet.Expression(short)
		Expect(err).ToNot(HaveOccurred())
		b, err := alphabet.Expression(long)
		Expect(err).ToNot(HaveOccurred())
		Expect(a).To(Equal(b))
	})

	It("decodes every random chromosome", func() {
		rng := rand.New(rand.NewSource(0))
		for i := 0; i < 500; i++ {
			c := alphabet.RandomChromosome(rng, 6)
			Expect(c.Len()).To(Equal(6 + alphabet.TailLength(6)))
			Expect(c.ValidTail()).To(BeTrue())
			Expect(c.At(0).IsTerminal()).To(BeFalse())

			_, err := alphabet.Expression(c)
			Expect(err).ToNot(HaveOccurred())
		}
	})
})

var _ = Describe("Operators catalog", func() {
	DescribeTable("arity",
		func(name string, arity int, infix bool) {
			op, ok := gep.LookupOperator(name)
			Expect(ok).To(BeTrue())
			Expect(op.Arity()).To(Equal(arity))
			Expect(op.Infix()).To(Equal(infix))
		},
		Entry("+", "+", 2, true),
		Entry("/", "/", 2, true),
		Entry("sin", "sin", 1, false),
		Entry("atan2", "atan2", 2, false),
		Entry("pow", "pow", 2, false),
		Entry("clamp", "clamp", 3, false),
		Entry("signum", "signum", 1, false),
		Entry("min", "min", 2, false),
	)

	It("parses a restricted operator set", func() {
		ops, err := gep.ParseOperators([]string{"+", "*", "+", "exp"})
		Expect(err).ToNot(HaveOccurred())
		Expect(ops).To(Equal([]gep.Operator{gep.Add, gep.Mul, gep.Exp}))

		_, err = gep.ParseOperators([]string{"erf"})
		Expect(errors.Is(err, gep.ErrUnknownSymbol)).To(BeTrue())

		all, err := gep.ParseOperators(nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(all).To(HaveLen(len(gep.Operators())))
	})
})

func BenchmarkAlphabet_Expression(b *testing.B) {
	alphabet, _ := gep.NewAlphabet(testInputs, gep.Operators(), 4)
	rng := rand.New(rand.NewSource(0)) // static seed for repeatability

	population := make([]*gep.Chromosome, 1000)
	for i := range population {
		population[i] = alphabet.RandomChromosome(rng, 8)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := alphabet.Expression(population[i%len(population)]); err != nil {
			b.Fatal(err)
		}
	}
}
