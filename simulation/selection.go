package simulation

import (
	"math/rand"
)

// Tournament returns the fittest contestant. Ties keep the earliest one, so
// the winner is deterministic for a given order. Unevaluated classes count as
// +Inf.
func Tournament(contestants []*OptimizationProblem) *OptimizationProblem {
	if len(contestants) == 0 {
		return nil
	}

	best := contestants[0]
	for _, next := range contestants[1:] {
		if score(next) < score(best) {
			best = next
		}
	}
	return best
}

func score(op *OptimizationProblem) float64 {
	if !op.Evaluated() {
		return inf
	}
	return op.Fitness
}

// selectContestants draws up to pressure distinct classes. Indices are
// sampled with rejection, which stays cheap for small contests over large
// populations.
func selectContestants(population []*OptimizationProblem, pressure int, rng *rand.Rand) []*OptimizationProblem {
	n := len(population)
	if pressure >= n {
		contestants := make([]*OptimizationProblem, n)
		copy(contestants, population)
		rng.Shuffle(n, func(i, j int) { contestants[i], contestants[j] = contestants[j], contestants[i] })
		return contestants
	}

	chosen := make([]int, 0, pressure)
	contestants := make([]*OptimizationProblem, 0, pressure)
draw:
	for len(contestants) < pressure {
		k := rng.Intn(n)
		for _, c := range chosen {
			if c == k {
				continue draw
			}
		}
		chosen = append(chosen, k)
		contestants = append(contestants, population[k])
	}
	return contestants
}

// tournamentSelection runs size tournaments and returns the distinct winners
// in order of their first win
func tournamentSelection(population []*OptimizationProblem, size, pressure int, rng *rand.Rand) []*OptimizationProblem {
	if len(population) == 0 {
		return nil
	}

	winners := make([]*OptimizationProblem, 0, size)
	seen := make(map[*OptimizationProblem]struct{}, size)
	for i := 0; i < size; i++ {
		winner := Tournament(selectContestants(population, pressure, rng))
		if _, dup := seen[winner]; dup {
			continue
		}
		seen[winner] = struct{}{}
		winners = append(winners, winner)
	}
	return winners
}

// tournamentSize is the number of tournaments held for a generation of n classes
func tournamentSize(n int, matingRatio float64) int {
	size := int(float64(n) * matingRatio)
	if size < 1 {
		return 1
	}
	return size
}
