package simulation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sourcegraph/conc/pool"

	"github.com/they4kman/equationfinder/expression"
	"github.com/they4kman/equationfinder/fitness"
	"github.com/they4kman/equationfinder/gep"
	"github.com/they4kman/equationfinder/logging"
	"github.com/they4kman/equationfinder/optimizer"
	"github.com/they4kman/equationfinder/problem"
)

var inf = math.Inf(1)

var ErrEmptyPopulation = errors.New("simulation: empty population")

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Result is the best expression a search found
type Result struct {
	Expression     string
	ParameterNames []string
	Parameters     []float64
	Fitness        float64

	// Breeding generations run after scoring the initial population
	Generations int

	// Parameter fits performed, and expressions whose fit was reused
	Evaluations int
	CacheHits   int

	Seed    int64
	Elapsed time.Duration
}

// Found reports whether any expression could be scored at all
func (r *Result) Found() bool {
	return r.Expression != "" && !math.IsInf(r.Fitness, 1)
}

// GenerationReport summarises one generation for an Observer
type GenerationReport struct {
	Generation int
	Population int
	Classes    int
	Degenerate int

	// Best expression of this generation; nil when none could be scored
	Best *OptimizationProblem

	// Lowest fitness seen over the whole run so far
	OverallBestFitness float64

	Elapsed time.Duration
}

// Observer is called once per generation, on the search goroutine
type Observer func(GenerationReport)

type Option func(*Simulation)

func WithLogger(logger *slog.Logger) Option {
	return func(sim *Simulation) { sim.logger = logger }
}

func WithOptimizer(opt optimizer.Optimizer) Option {
	return func(sim *Simulation) { sim.optimizer = opt }
}

func WithMetrics(metrics *Metrics) Option {
	return func(sim *Simulation) { sim.metrics = metrics }
}

func WithObserver(observer Observer) Option {
	return func(sim *Simulation) { sim.observer = observer }
}

type cachedFit struct {
	params  []float64
	fitness float64
}

type Simulation struct {
	params  SimulationParams
	problem *problem.Problem

	alphabet    *gep.Alphabet
	data        fitness.Dataset
	metric      fitness.Metric
	constraints *fitness.ConstraintSet

	seed int64
	rng  *rand.Rand

	optimizer optimizer.Optimizer
	logger    *slog.Logger
	metrics   *Metrics
	observer  Observer

	// Fitted expressions by text, shared across generations
	cache *lru.Cache

	generation  int
	evaluations int
	cacheHits   int
	best        *OptimizationProblem
	startedAt   time.Time
}

// NewSimulation validates the parameters and the problem. Every error it
// returns is a structural one: the run cannot start.
func NewSimulation(params *SimulationParams, prob *problem.Problem, opts ...Option) (*Simulation, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := prob.Validate(); err != nil {
		return nil, err
	}

	operators, err := gep.ParseOperators(params.Operators)
	if err != nil {
		return nil, err
	}
	alphabet, err := gep.NewAlphabet(prob.Inputs, operators, params.MaxParameters)
	if err != nil {
		return nil, err
	}

	metric, err := fitness.LookupMetric(prob.Metric)
	if err != nil {
		return nil, err
	}
	constraints, err := prob.ConstraintSet()
	if err != nil {
		return nil, err
	}

	sim := &Simulation{
		params:      *params,
		problem:     prob,
		alphabet:    alphabet,
		data:        prob.Dataset(),
		metric:      metric,
		constraints: constraints,
		seed:        params.Seed,
		optimizer:   optimizer.DefaultNelderMead(),
		logger:      logging.Discard(),
	}
	for _, opt := range opts {
		opt(sim)
	}

	if sim.seed == 0 {
		sim.seed = time.Now().UnixNano()
	}
	sim.rng = rand.New(rand.NewSource(sim.seed))

	if params.CacheSize > 0 {
		if sim.cache, err = lru.New(params.CacheSize); err != nil {
			return nil, err
		}
	}

	return sim, nil
}

func (sim *Simulation) Alphabet() *gep.Alphabet {
	return sim.alphabet
}

// Seed is the seed the run's random source was created with
func (sim *Simulation) Seed() int64 {
	return sim.seed
}

// InitialPopulation creates PopulationSize random chromosomes
func (sim *Simulation) InitialPopulation() []*gep.Chromosome {
	return sim.immigrants(sim.params.PopulationSize)
}

// Run searches from a random initial population
func (sim *Simulation) Run(ctx context.Context) (*Result, error) {
	return sim.Search(ctx, sim.InitialPopulation())
}

// Search evolves population until the best fitness drops below the threshold,
// MaxGenerations breeding rounds have run, or ctx is cancelled. The best
// result seen is returned in every case; the error is non-nil only for a
// structural failure or a cancellation.
func (sim *Simulation) Search(ctx context.Context, population []*gep.Chromosome) (*Result, error) {
	if len(population) == 0 {
		return nil, ErrEmptyPopulation
	}

	sim.startedAt = time.Now()
	sim.generation = 0
	sim.best = nil

	sim.logger.Info("search started",
		"population", len(population),
		"head_length", sim.params.HeadLength,
		"max_generations", sim.params.MaxGenerations,
		"seed", sim.seed)

	current := newClassification()
	if err := sim.classify(current, population); err != nil {
		return nil, err
	}
	if err := sim.evaluate(ctx, current.classes); err != nil {
		return sim.result(), err
	}
	sim.record(current)

	for sim.bestFitness() >= sim.params.FitnessThreshold && sim.generation < sim.params.MaxGenerations {
		if err := ctx.Err(); err != nil {
			return sim.result(), err
		}

		next, err := sim.nextGeneration(current)
		if err != nil {
			return sim.result(), err
		}
		if next.size() == 0 {
			sim.logger.Warn("population died out", "generation", sim.generation)
			break
		}
		if err := sim.evaluate(ctx, next.classes); err != nil {
			return sim.result(), err
		}

		current = next
		sim.generation++
		sim.record(current)
	}

	result := sim.result()
	sim.logger.Info("search finished",
		"generations", result.Generations,
		"expression", result.Expression,
		"fitness", result.Fitness,
		"evaluations", result.Evaluations,
		"cache_hits", result.CacheHits,
		"elapsed", result.Elapsed)
	return result, nil
}

// nextGeneration replaces the population with the tournament survivors, the
// degenerate classes, and their offspring. Survivors keep their fit; only new
// expressions are evaluated again.
func (sim *Simulation) nextGeneration(current *classification) (*classification, error) {
	size := tournamentSize(len(current.classes), sim.params.MatingRatio)
	survivors := tournamentSelection(current.classes, size, sim.params.SelectionPressure, sim.rng)

	offspring := sim.breed(survivors)
	offspring = append(offspring, sim.repair(current.degenerate)...)
	offspring = append(offspring, sim.immigrants(sim.params.Immigrants)...)

	next := newClassification()
	for _, survivor := range survivors {
		next.add(survivor)
	}
	for _, op := range current.degenerate {
		next.addDegenerate(op)
	}
	if err := sim.classify(next, offspring); err != nil {
		return nil, err
	}
	return next, nil
}

// classify adds each chromosome to the class of its expression text,
// creating classes for texts not seen yet
func (sim *Simulation) classify(cl *classification, chromosomes []*gep.Chromosome) error {
	for _, c := range chromosomes {
		text, err := sim.alphabet.Expression(c)
		if err != nil {
			return fmt.Errorf("decoding %s: %w", sim.alphabet.Format(c), err)
		}

		if op, ok := cl.byExpression[text]; ok {
			op.Chromosomes = append(op.Chromosomes, c)
			continue
		}

		op, err := sim.newProblem(text)
		if err != nil {
			return err
		}
		op.Chromosomes = []*gep.Chromosome{c}

		if len(op.Parameters) < sim.params.MinFreeParameters {
			cl.addDegenerate(op)
			sim.metrics.observeClass("degenerate")
			continue
		}

		if sim.cache != nil {
			if cached, ok := sim.cache.Get(text); ok {
				fit := cached.(cachedFit)
				op.setResult(fit.params, fit.fitness)
				sim.cacheHits++
				sim.metrics.observeClass("cached")
			}
		}
		cl.add(op)
	}
	return nil
}

func (sim *Simulation) newProblem(text string) (*OptimizationProblem, error) {
	compiled, err := expression.Compile(text)
	if err != nil {
		return nil, fmt.Errorf("compiling decoded expression: %w", err)
	}

	return &OptimizationProblem{
		Expression: text,
		Parameters: freeParameters(compiled, sim.problem.Inputs),
		Fitness:    inf,
		compiled:   compiled,
	}, nil
}

func (sim *Simulation) task(op *OptimizationProblem) *evaluationTask {
	return &evaluationTask{
		problem:        op,
		inputs:         sim.problem.Inputs,
		data:           sim.data,
		metric:         sim.metric,
		constraints:    sim.constraints,
		mode:           sim.problem.Mode,
		optimizer:      sim.optimizer,
		maxEvaluations: sim.params.MaxEvaluations,
	}
}

func (sim *Simulation) runTask(task *evaluationTask) {
	elapsed, err := task.run()
	failed := err != nil || math.IsInf(task.problem.Fitness, 1)
	sim.metrics.observeEvaluation(elapsed, failed)
	if err != nil {
		sim.logger.Debug("evaluation failed",
			"expression", task.problem.Expression,
			"error", err)
	}
}

// evaluate fits every class that has no result yet. With workers, classes
// are fitted concurrently; each task writes only its own class, and nothing
// else is touched until all of them are done.
func (sim *Simulation) evaluate(ctx context.Context, classes []*OptimizationProblem) error {
	pending := make([]*OptimizationProblem, 0, len(classes))
	for _, op := range classes {
		if !op.Evaluated() {
			pending = append(pending, op)
		}
	}

	if sim.params.NumEvaluationWorkers == 0 {
		for _, op := range pending {
			if ctx.Err() != nil {
				break
			}
			sim.runTask(sim.task(op))
		}
	} else {
		p := pool.New().WithMaxGoroutines(sim.params.NumEvaluationWorkers)
		for _, op := range pending {
			task := sim.task(op)
			p.Go(func() {
				if ctx.Err() != nil {
					return
				}
				sim.runTask(task)
			})
		}
		p.Wait()
	}

	for _, op := range pending {
		if !op.Evaluated() {
			continue
		}
		sim.evaluations++
		sim.metrics.observeClass("evaluated")
		if sim.cache != nil {
			sim.cache.Add(op.Expression, cachedFit{params: op.BestParameters, fitness: op.Fitness})
		}
	}

	return ctx.Err()
}

func generationBest(classes []*OptimizationProblem) *OptimizationProblem {
	var best *OptimizationProblem
	for _, op := range classes {
		if !op.Evaluated() {
			continue
		}
		if best == nil || op.Fitness < best.Fitness {
			best = op
		}
	}
	return best
}

func (sim *Simulation) bestFitness() float64 {
	if sim.best == nil {
		return inf
	}
	return sim.best.Fitness
}

// record notes the generation's best, which becomes the overall best only if
// it strictly improves on it
func (sim *Simulation) record(cl *classification) {
	best := generationBest(cl.classes)
	if best != nil && best.Fitness < sim.bestFitness() {
		sim.best = best
	}

	population := cl.size()
	sim.metrics.observeGeneration(population, sim.bestFitness())

	attrs := []any{
		"generation", sim.generation,
		"population", population,
		"classes", len(cl.classes),
		"degenerate", len(cl.degenerate),
	}
	if best != nil {
		attrs = append(attrs,
			"expression", best.Expression,
			"parameters", describe(best.Parameters, best.BestParameters),
			"fitness", best.Fitness)
	}
	sim.logger.Info("generation", attrs...)

	if sim.observer != nil {
		sim.observer(GenerationReport{
			Generation:         sim.generation,
			Population:         population,
			Classes:            len(cl.classes),
			Degenerate:         len(cl.degenerate),
			Best:               best,
			OverallBestFitness: sim.bestFitness(),
			Elapsed:            time.Since(sim.startedAt),
		})
	}
}

func (sim *Simulation) result() *Result {
	r := &Result{
		Fitness:     inf,
		Generations: sim.generation,
		Evaluations: sim.evaluations,
		CacheHits:   sim.cacheHits,
		Seed:        sim.seed,
		Elapsed:     time.Since(sim.startedAt),
	}
	if sim.best != nil {
		r.Expression = sim.best.Expression
		r.ParameterNames = append([]string(nil), sim.best.Parameters...)
		r.Parameters = append([]float64(nil), sim.best.BestParameters...)
		r.Fitness = sim.best.Fitness
	}
	return r
}

// Fit skips the search and fits the parameters of a given expression. Every
// variable that is not an input is a parameter, whatever its name.
func (sim *Simulation) Fit(ctx context.Context, text string) (*Result, error) {
	sim.startedAt = time.Now()
	sim.best = nil

	op, err := sim.newProblem(text)
	if err != nil {
		return nil, err
	}
	err = sim.evaluate(ctx, []*OptimizationProblem{op})
	if op.Evaluated() {
		sim.best = op
	}
	if err != nil {
		return sim.result(), err
	}

	result := sim.result()
	sim.logger.Info("fit finished",
		"expression", result.Expression,
		"parameters", describe(result.ParameterNames, result.Parameters),
		"fitness", result.Fitness)
	return result, nil
}

// Search runs a simulation over an explicit starting population
func Search(ctx context.Context, population []*gep.Chromosome, prob *problem.Problem, params *SimulationParams, opts ...Option) (*Result, error) {
	sim, err := NewSimulation(params, prob, opts...)
	if err != nil {
		return nil, err
	}
	return sim.Search(ctx, population)
}
