package fitness_test

import (
	"errors"
	"math"
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"
	. "github.com/onsi/gomega/gstruct"

	"github.com/they4kman/equationfinder/fitness"
)

func init() {
	RegisterFailHandler(Fail)
}

func Test(t *testing.T) {
	RunSpecs(t, "Fitness")
}

var _ = Describe("Constraints", func() {
	DescribeTable("IsFeasible",
		func(rel fitness.Relationship, value float64, feasible bool) {
			Expect(rel.IsFeasible(value)).To(Equal(feasible))
		},
		Entry("LEQ at zero", fitness.LEQ, 0.0, true),
		Entry("EQ at zero", fitness.EQ, 0.0, true),
		Entry("GEQ at zero", fitness.GEQ, 0.0, true),
		Entry("LEQ below", fitness.LEQ, -1.0, true),
		Entry("LEQ above", fitness.LEQ, 1.0, false),
		Entry("EQ off", fitness.EQ, 1e-9, false),
		Entry("GEQ below", fitness.GEQ, -1.0, false),
		Entry("GEQ above", fitness.GEQ, 2.0, true),
	)

	DescribeTable("ParseConstraint as a bound",
		func(line string, expected fitness.Bound) {
			bound, general, err := fitness.ParseConstraint(line)
			Expect(err).ToNot(HaveOccurred())
			Expect(general).To(BeNil())
			Expect(*bound).To(Equal(expected))
		},
		Entry("lower", "p0 >= 1.5", fitness.Bound{Parameter: "p0", Relationship: fitness.GEQ, Value: 1.5}),
		Entry("upper", "p12<=-3", fitness.Bound{Parameter: "p12", Relationship: fitness.LEQ, Value: -3}),
		Entry("fixed", "p1 = 2", fitness.Bound{Parameter: "p1", Relationship: fitness.EQ, Value: 2}),
	)

	DescribeTable("ParseConstraint as a general relation",
		func(line string, rel fitness.Relationship, params []string) {
			bound, general, err := fitness.ParseConstraint(line)
			Expect(err).ToNot(HaveOccurred())
			Expect(bound).To(BeNil())
			Expect(general.Relationship).To(Equal(rel))
			Expect(general.Parameters()).To(Equal(params))
		},
		Entry("two parameters", "p0 + p1 <= 10", fitness.LEQ, []string{"p0", "p1"}),
		Entry("expression on the right", "p0 >= p1*2", fitness.GEQ, []string{"p0", "p1"}),
		Entry("equality", "p0*p1 = 1", fitness.EQ, []string{"p0", "p1"}),
		Entry("non-numeric bound", "p0 >= pi", fitness.GEQ, []string{"p0"}),
	)

	DescribeTable("malformed constraints",
		func(line string) {
			_, _, err := fitness.ParseConstraint(line)
			Expect(errors.Is(err, fitness.ErrConstraint)).To(BeTrue())
		},
		Entry("no relation", "p0 + p1"),
		Entry("strict inequality", "p0 < 3"),
		Entry("two relations", "0 <= p0 <= 1"),
		Entry("empty side", "p0 >="),
		Entry("unparsable side", "p0 >= (p1"),
	)

	It("folds bounds into the box of the parameters present", func() {
		set, err := fitness.ParseConstraints([]string{"p0 >= 1", "p0 <= 4", "p2 <= 7", "", "p5 >= 0"})
		Expect(err).ToNot(HaveOccurred())

		lower, upper := set.Box([]string{"p0", "p2"})
		Expect(lower).To(Equal([]float64{1, math.Inf(-1)}))
		Expect(upper).To(Equal([]float64{4, 7}))
	})

	It("binds general constraints by name", func() {
		set, err := fitness.ParseConstraints([]string{"p0 + p1 <= 10", "p3 >= p0"})
		Expect(err).ToNot(HaveOccurred())

		constraints := set.For([]string{"p0", "p1"})
		Expect(constraints).To(HaveLen(1))

		v, err := constraints[0].Evaluate([]float64{4, 8})
		Expect(err).ToNot(HaveOccurred())
		Expect(v).To(Equal(2.0))
		Expect(constraints[0].IsFeasible(v)).To(BeFalse())
	})
})

var _ = Describe("Metrics", func() {
	predicted := []float64{1, 2, 3, 5}
	expected := []float64{1, 3, 3, 1}

	DescribeTable("Compute",
		func(name string, value float64) {
			m, err := fitness.LookupMetric(name)
			Expect(err).ToNot(HaveOccurred())
			Expect(m.Compute(predicted, expected)).To(BeNumerically("~", value, 1e-12))
		},
		Entry("MA", "MA", 1.25),
		Entry("MAR", "MAR", (0+1.0/3+0+4)/4),
		Entry("Max", "Max", 4.0),
		Entry("MaxR", "MaxR", 4.0),
		Entry("MedA", "MedA", 0.5),
		Entry("RSS", "RSS", 17.0),
		Entry("RMSL", "RMSL", math.Sqrt((math.Pow(math.Log1p(3)-math.Log1p(2), 2)+math.Pow(math.Log1p(1)-math.Log1p(5), 2))/4)),
		Entry("long name", "Residual Sum of  Squares", 17.0),
		Entry("lower case", "rss", 17.0),
	)

	It("scores a perfect fit as zero", func() {
		for _, m := range fitness.Metrics() {
			Expect(m.Compute(expected, expected)).To(BeZero(), m.Name)
		}
	})

	It("rejects unknown metrics", func() {
		_, err := fitness.LookupMetric("R2")
		Expect(errors.Is(err, fitness.ErrUnknownMetric)).To(BeTrue())
	})

	It("lists every metric", func() {
		Expect(fitness.Metrics()).To(ContainElement(MatchFields(IgnoreExtras, Fields{
			"Name":        Equal("NSE"),
			"Description": Equal("nash-sutcliffe efficiency"),
		})))
		Expect(fitness.Metrics()).To(HaveLen(8))
	})
})

var _ = Describe("Objective", func() {
	var (
		data  fitness.Dataset
		model fitness.Model
		rss   fitness.Metric
	)

	BeforeEach(func() {
		data = fitness.Dataset{
			Inputs:   [][]float64{{0}, {1}, {2}},
			Expected: []float64{1, 3, 5},
		}
		model = func(inputs, params []float64) (float64, error) {
			return params[0]*inputs[0] + params[1], nil
		}

		var err error
		rss, err = fitness.LookupMetric("RSS")
		Expect(err).ToNot(HaveOccurred())
	})

	It("is zero at the exact parameters", func() {
		o := &fitness.Objective{Model: model, Data: data, Metric: rss}
		Expect(o.Fitness([]float64{2, 1})).To(BeZero())
	})

	It("adds the squared violation of infeasible constraints", func() {
		set, err := fitness.ParseConstraints([]string{"p0 + p1 <= 2"})
		Expect(err).ToNot(HaveOccurred())

		o := &fitness.Objective{Model: model, Data: data, Metric: rss, Constraints: set.For([]string{"p0", "p1"})}
		Expect(o.Fitness([]float64{2, 1})).To(Equal(1.0))
	})

	DescribeTable("side penalty",
		func(mode fitness.SearchMode, params []float64, expected float64) {
			mae, err := fitness.LookupMetric("MA")
			Expect(err).ToNot(HaveOccurred())

			o := &fitness.Objective{Model: model, Data: data, Metric: mae, Mode: mode}
			Expect(o.Fitness(params)).To(BeNumerically("~", expected, 1e-12))
		},
		// predictions 1.5, 3.5, 5.5: half above every point
		Entry("best fit ignores the side", fitness.BestFit, []float64{2, 1.5}, 0.5),
		Entry("upper bound accepts a curve above", fitness.UpperBound, []float64{2, 1.5}, 0.5),
		Entry("lower bound penalises a curve above", fitness.LowerBound, []float64{2, 1.5}, 0.5+1.5),
		Entry("upper bound penalises a curve below", fitness.UpperBound, []float64{2, 0.5}, 0.5+1.5),
	)

	It("maps evaluation failures to +Inf", func() {
		failing := func(inputs, params []float64) (float64, error) {
			return 0, errors.New("log of a negative")
		}
		o := &fitness.Objective{Model: failing, Data: data, Metric: rss}

		_, err := o.Value([]float64{1, 1})
		Expect(err).To(HaveOccurred())
		Expect(math.IsInf(o.Fitness([]float64{1, 1}), 1)).To(BeTrue())
	})

	It("fails on an empty dataset", func() {
		o := &fitness.Objective{Model: model, Metric: rss}
		_, err := o.Value([]float64{1, 1})
		Expect(errors.Is(err, fitness.ErrEmptyDataset)).To(BeTrue())
	})

	DescribeTable("ParseSearchMode",
		func(keyword string, mode fitness.SearchMode, ok bool) {
			m, found := fitness.ParseSearchMode(keyword)
			Expect(found).To(Equal(ok))
			Expect(m).To(Equal(mode))
		},
		Entry("upper", "upper bound search", fitness.UpperBound, true),
		Entry("lower, spaced", "  Lower  Bound Search ", fitness.LowerBound, true),
		Entry("best", "best fit search", fitness.BestFit, true),
		Entry("expression", "p0*x+p1", fitness.BestFit, false),
	)
})
