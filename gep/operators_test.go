package gep_test

import (
	"errors"
	"math/rand"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"

	"github.com/they4kman/equationfinder/gep"
)

func format(alphabet *gep.Alphabet, cs ...*gep.Chromosome) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = alphabet.Format(c)
	}
	return out
}

var _ = Describe("Genetic operators", func() {
	var (
		alphabet *gep.Alphabet
		rng      *rand.Rand
	)

	BeforeEach(func() {
		alphabet = newTestAlphabet()
		rng = rand.New(rand.NewSource(0))
	})

	DescribeTable("Invert",
		func(tokens []string, head, start, length int, expected string) {
			c, err := alphabet.ParseChromosome(tokens, head)
			Expect(err).ToNot(HaveOccurred())

			inverted, err := gep.Invert(c, start, length)
			Expect(err).ToNot(HaveOccurred())
			Expect(alphabet.Format(inverted)).To(Equal(expected))

			restored, err := gep.Invert(inverted, start, length)
			Expect(err).ToNot(HaveOccurred())
			Expect(restored.Equal(c)).To(BeTrue())
		},
		Entry("whole head", []string{"+", "*", "sin", "a", "b", "c", "d"}, 3, 0, 3, "[sin * +],[a b c d]"),
		Entry("inside tail", []string{"+", "*", "sin", "a", "b", "c", "d"}, 3, 4, 3, "[+ * sin],[a d c b]"),
		Entry("single gene", []string{"+", "a", "b"}, 1, 2, 1, "[+],[a b]"),
	)

	It("refuses an inversion spanning both regions", func() {
		c, err := alphabet.ParseChromosome([]string{"+", "*", "a", "b", "c"}, 2)
		Expect(err).ToNot(HaveOccurred())

		_, err = gep.Invert(c, 1, 2)
		Expect(errors.Is(err, gep.ErrRegion)).To(BeTrue())

		_, err = gep.Invert(c, 3, 5)
		Expect(errors.Is(err, gep.ErrRange)).To(BeTrue())
	})

	DescribeTable("Transpose",
		func(tokens []string, head, origin, target, length int, expected string) {
			c, err := alphabet.ParseChromosome(tokens, head)
			Expect(err).ToNot(HaveOccurred())

			transposed, err := gep.Transpose(c, origin, target, length)
			Expect(err).ToNot(HaveOccurred())
			Expect(transposed.Len()).To(Equal(c.Len()))
			Expect(alphabet.Format(transposed)).To(Equal(expected))
		},
		Entry("overwrite, no reflow", []string{"+", "-", "*", "/", "a", "b", "c", "d", "x"}, 4, 0, 2, 2, "[+ - + -],[a b c d x]"),
		Entry("overlapping runs", []string{"+", "a", "b", "c", "d"}, 1, 1, 2, 3, "[+],[a a b c]"),
	)

	It("refuses a transposition between regions", func() {
		c, err := alphabet.ParseChromosome([]string{"+", "*", "a", "b", "c"}, 2)
		Expect(err).ToNot(HaveOccurred())

		_, err = gep.Transpose(c, 0, 2, 1)
		Expect(errors.Is(err, gep.ErrRegion)).To(BeTrue())
	})

	It("mutates only the requested run", func() {
		c, err := alphabet.ParseChromosome([]string{"+", "*", "-", "a", "b", "c", "d", "x", "a"}, 3)
		Expect(err).ToNot(HaveOccurred())

		for i := 0; i < 100; i++ {
			mutant, err := gep.Mutate(c, 2, 4, alphabet, rng)
			Expect(err).ToNot(HaveOccurred())
			Expect(mutant.Len()).To(Equal(c.Len()))
			Expect(mutant.ValidTail()).To(BeTrue())
			Expect(mutant.At(0)).To(Equal(c.At(0)))
			Expect(mutant.At(1)).To(Equal(c.At(1)))
			Expect(mutant.Genes()[6:]).To(Equal(c.Genes()[6:]))
		}
	})

	DescribeTable("RecombineOnePoint",
		func(point int, expected []string) {
			a, err := alphabet.ParseChromosome([]string{"+", "*", "a", "b", "c", "d", "x"}, 2)
			Expect(err).ToNot(HaveOccurred())
			b, err := alphabet.ParseChromosome([]string{"-", "/", "p0", "p1", "p2", "p3", "p0"}, 2)
			Expect(err).ToNot(HaveOccurred())

			x, y := gep.RecombineOnePoint(a, b, point)
			Expect(format(alphabet, x, y)).To(Equal(expected))
		},
		Entry("cut in head", 1, []string{"[+ /],[p0 p1 p2 p3 p0]", "[- *],[a b c d x]"}),
		Entry("cut in tail", 5, []string{"[+ *],[a b c p3 p0]", "[- /],[p0 p1 p2 d x]"}),
		Entry("cut out of range", 7, []string{"[+ *],[a b c d x]", "[- /],[p0 p1 p2 p3 p0]"}),
		Entry("negative cut", -1, []string{"[+ *],[a b c d x]", "[- /],[p0 p1 p2 p3 p0]"}),
	)

	DescribeTable("RecombineTwoPoint",
		func(p1, p2 int, expected []string) {
			a, err := alphabet.ParseChromosome([]string{"+", "*", "a", "b", "c", "d", "x"}, 2)
			Expect(err).ToNot(HaveOccurred())
			b, err := alphabet.ParseChromosome([]string{"-", "/", "p0", "p1", "p2", "p3", "p0"}, 2)
			Expect(err).ToNot(HaveOccurred())

			x, y := gep.RecombineTwoPoint(a, b, p1, p2)
			Expect(format(alphabet, x, y)).To(Equal(expected))
		},
		Entry("middle run", 1, 4, []string{"[+ /],[p0 p1 c d x]", "[- *],[a b p2 p3 p0]"}),
		Entry("adjacent points", 2, 3, []string{"[+ *],[a b c d x]", "[- /],[p0 p1 p2 p3 p0]"}),
		Entry("second point out of range", 2, 7, []string{"[+ *],[a b c d x]", "[- /],[p0 p1 p2 p3 p0]"}),
	)

	It("never moves an operator into a shorter head's tail", func() {
		a, err := alphabet.ParseChromosome([]string{"+", "a", "b", "c", "d"}, 1)
		Expect(err).ToNot(HaveOccurred())
		b, err := alphabet.ParseChromosome([]string{"-", "*", "/", "x", "x", "x", "x"}, 3)
		Expect(err).ToNot(HaveOccurred())

		x, y := gep.RecombineOnePoint(a, b, 0)
		Expect(x.Len()).To(Equal(a.Len()))
		Expect(y.Len()).To(Equal(b.Len()))
		Expect(x.ValidTail()).To(BeTrue())
		Expect(y.ValidTail()).To(BeTrue())
		Expect(alphabet.Format(x)).To(Equal("[-],[a b x x]"))
		Expect(alphabet.Format(y)).To(Equal("[+ a b],[c d x x]"))
	})

	It("preserves length and the tail invariant under random operators", func() {
		for i := 0; i < 1000; i++ {
			c := alphabet.RandomChromosome(rng, 5)
			other := alphabet.RandomChromosome(rng, 5)

			offspring := []*gep.Chromosome{
				gep.RandomMutation(c, alphabet, rng),
				gep.RandomInversion(c, rng),
			}
			if t, ok := gep.RandomTransposition(c, rng); ok {
				offspring = append(offspring, t)
			}
			x, y := gep.RandomOnePoint(c, other, rng)
			offspring = append(offspring, x, y)
			x, y = gep.RandomTwoPoint(c, other, rng)
			offspring = append(offspring, x, y)

			for _, o := range offspring {
				Expect(o.Len()).To(Equal(c.Len()))
				Expect(o.HeadLength()).To(Equal(c.HeadLength()))
				Expect(o.ValidTail()).To(BeTrue())

				_, err := alphabet.Expression(o)
				Expect(err).ToNot(HaveOccurred())
			}
		}
	})

	It("reports when a region is too short to transpose", func() {
		c, err := alphabet.ParseChromosome([]string{"+", "a", "b"}, 1)
		Expect(err).ToNot(HaveOccurred())

		for i := 0; i < 20; i++ {
			t, ok := gep.RandomTransposition(c, rng)
			Expect(ok).To(BeFalse())
			Expect(t).To(BeNil())
		}
	})

	It("leaves parents untouched", func() {
		c := alphabet.RandomChromosome(rng, 5)
		before := c.Genes()

		_, _ = gep.Invert(c, 0, 5)
		_, _ = gep.Transpose(c, 0, 2, 2)
		_, _ = gep.RecombineOnePoint(c, alphabet.RandomChromosome(rng, 5), 3)
		Expect(c.Genes()).To(Equal(before))
	})
})
