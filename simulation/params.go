package simulation

import (
	"fmt"
	"runtime"
)

type SimulationParams struct {
	// Number of Chromosomes in the initial Population
	PopulationSize int `toml:"population_size"`

	// Number of genes in a Chromosome's head. The tail length follows from it
	// and the widest operator in use.
	HeadLength int `toml:"head_length"`

	// Parameter genes are drawn from p0..p<MaxParameters-1>
	MaxParameters int `toml:"max_parameters"`

	// The search stops after this many generations, or as soon as the best
	// fitness drops below FitnessThreshold
	MaxGenerations   int     `toml:"max_generations"`
	FitnessThreshold float64 `toml:"fitness_threshold"`

	// Fraction of the distinct expressions of a generation that enter a
	// tournament for survival
	MatingRatio float64 `toml:"mating_ratio"`

	// Number of contestants drawn, without replacement, into each tournament
	SelectionPressure int `toml:"selection_pressure"`

	// Each survivor is offered to the operators in this order, each with an
	// independent draw, until one of them fires
	MutationProbability      float64 `toml:"mutation_probability"`
	InversionProbability     float64 `toml:"inversion_probability"`
	TranspositionProbability float64 `toml:"transposition_probability"`
	OnePointProbability      float64 `toml:"one_point_probability"`
	TwoPointProbability      float64 `toml:"two_point_probability"`

	// Expressions with fewer distinct free parameters are not evaluated.
	// Each such expression is mutated once per generation instead.
	MinFreeParameters int `toml:"min_free_parameters"`

	// Objective evaluations allowed per parameter fit
	MaxEvaluations int `toml:"max_evaluations"`

	// Number of workers fitting expressions concurrently.
	// Set to 0 to run without goroutines.
	NumEvaluationWorkers int `toml:"num_evaluation_workers"`

	// Number of fitted expressions remembered across generations.
	// Set to 0 to disable the cache.
	CacheSize int `toml:"cache_size"`

	// Number of fresh random Chromosomes added to every generation after the
	// first. Survivors and offspring alone usually shrink the population.
	Immigrants int `toml:"immigrants"`

	// Seed of the run's only random source. 0 picks one from the clock.
	Seed int64 `toml:"seed"`

	// Operator names allowed in heads. Empty allows the full catalog.
	Operators []string `toml:"operators"`
}

func DefaultSimulationParams() *SimulationParams {
	return &SimulationParams{
		PopulationSize: 1000,
		HeadLength:     5,
		MaxParameters:  4,

		MaxGenerations:   1000,
		FitnessThreshold: 1e-6,

		MatingRatio:       0.5,
		SelectionPressure: 5,

		MutationProbability:      0.044,
		InversionProbability:     0.1,
		TranspositionProbability: 0.1,
		OnePointProbability:      0.3,
		TwoPointProbability:      0.3,

		MinFreeParameters: 2,
		MaxEvaluations:    10000,

		NumEvaluationWorkers: runtime.NumCPU(),
		CacheSize:            4096,
	}
}

func checkProbability(name string, p float64) error {
	if p < 0 || p > 1 {
		return fmt.Errorf("%s must be within [0, 1], got %g", name, p)
	}
	return nil
}

// Validate reports the first parameter outside its allowed range
func (p *SimulationParams) Validate() error {
	switch {
	case p.PopulationSize < 1:
		return fmt.Errorf("PopulationSize must be positive, got %d", p.PopulationSize)
	case p.HeadLength < 1:
		return fmt.Errorf("HeadLength must be positive, got %d", p.HeadLength)
	case p.MaxParameters < 0:
		return fmt.Errorf("MaxParameters must not be negative, got %d", p.MaxParameters)
	case p.MaxGenerations < 0:
		return fmt.Errorf("MaxGenerations must not be negative, got %d", p.MaxGenerations)
	case p.MatingRatio <= 0 || p.MatingRatio > 1:
		return fmt.Errorf("MatingRatio must be within (0, 1], got %g", p.MatingRatio)
	case p.SelectionPressure < 1:
		return fmt.Errorf("SelectionPressure must be positive, got %d", p.SelectionPressure)
	case p.MaxEvaluations < 1:
		return fmt.Errorf("MaxEvaluations must be positive, got %d", p.MaxEvaluations)
	case p.NumEvaluationWorkers < 0:
		return fmt.Errorf("NumEvaluationWorkers must not be negative, got %d", p.NumEvaluationWorkers)
	case p.CacheSize < 0:
		return fmt.Errorf("CacheSize must not be negative, got %d", p.CacheSize)
	case p.Immigrants < 0:
		return fmt.Errorf("Immigrants must not be negative, got %d", p.Immigrants)
	}

	for _, c := range []struct {
		name string
		p    float64
	}{
		{"MutationProbability", p.MutationProbability},
		{"InversionProbability", p.InversionProbability},
		{"TranspositionProbability", p.TranspositionProbability},
		{"OnePointProbability", p.OnePointProbability},
		{"TwoPointProbability", p.TwoPointProbability},
	} {
		if err := checkProbability(c.name, c.p); err != nil {
			return err
		}
	}
	return nil
}
