package simulation

import (
	"math/rand"

	"github.com/they4kman/equationfinder/gep"
)

// pick returns a random member of the class
func pick(op *OptimizationProblem, rng *rand.Rand) *gep.Chromosome {
	return op.Chromosomes[rng.Intn(len(op.Chromosomes))]
}

// partner picks a survivor other than survivors[i]
func partner(survivors []*OptimizationProblem, i int, rng *rand.Rand) *OptimizationProblem {
	k := rng.Intn(len(survivors) - 1)
	if k >= i {
		k++
	}
	return survivors[k]
}

// breed offers each survivor to the operators in turn, every operator with
// its own draw, and applies the first one that fires. Recombination needs a
// second survivor and yields two offspring; the others yield one.
func (sim *Simulation) breed(survivors []*OptimizationProblem) []*gep.Chromosome {
	params := &sim.params
	rng := sim.rng

	offspring := make([]*gep.Chromosome, 0, 2*len(survivors))
	for i, survivor := range survivors {
		parent := pick(survivor, rng)

		switch {
		case rng.Float64() < params.MutationProbability:
			offspring = append(offspring, gep.RandomMutation(parent, sim.alphabet, rng))

		case rng.Float64() < params.InversionProbability:
			offspring = append(offspring, gep.RandomInversion(parent, rng))

		case rng.Float64() < params.TranspositionProbability:
			if mutant, ok := gep.RandomTransposition(parent, rng); ok {
				offspring = append(offspring, mutant)
			}

		case len(survivors) < 2:

		case rng.Float64() < params.OnePointProbability:
			other := pick(partner(survivors, i, rng), rng)
			a, b := gep.RandomOnePoint(parent, other, rng)
			offspring = append(offspring, a, b)

		case rng.Float64() < params.TwoPointProbability:
			other := pick(partner(survivors, i, rng), rng)
			a, b := gep.RandomTwoPoint(parent, other, rng)
			offspring = append(offspring, a, b)
		}
	}
	return offspring
}

// repair gives every degenerate class one random mutation, so that the
// expressions skipped this generation may come back with enough parameters
func (sim *Simulation) repair(degenerate []*OptimizationProblem) []*gep.Chromosome {
	mutants := make([]*gep.Chromosome, 0, len(degenerate))
	for _, op := range degenerate {
		mutants = append(mutants, gep.RandomMutation(pick(op, sim.rng), sim.alphabet, sim.rng))
	}
	return mutants
}

// immigrants creates fresh random chromosomes
func (sim *Simulation) immigrants(n int) []*gep.Chromosome {
	chromosomes := make([]*gep.Chromosome, n)
	for i := range chromosomes {
		chromosomes[i] = sim.alphabet.RandomChromosome(sim.rng, sim.params.HeadLength)
	}
	return chromosomes
}
