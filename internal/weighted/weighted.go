// Package weighted implements weighted random selection over option tables.
//
// Weights are relative: they do not need to sum to any particular total, and
// the probability of picking an option is its weight divided by the table sum.
// Callers supply their own *rand.Rand so draws can be seeded in tests.
package weighted

import (
	"errors"
	"math/rand"
)

// ErrInvalidWeights indicates an empty table or one with no positive weight.
var ErrInvalidWeights = errors.New("invalid weights: no option with positive weight")

// Pick returns one key from the table with probability proportional to its
// weight. Options with non-positive weight are never returned.
func Pick[K comparable](rng *rand.Rand, table map[K]int) (K, error) {
	var zero K

	total := 0
	for _, w := range table {
		if w > 0 {
			total += w
		}
	}
	if total == 0 {
		return zero, ErrInvalidWeights
	}

	// Walk the cumulative distribution. Map iteration order is random but
	// the draw below is uniform over [0, total), so each key's probability
	// is weight/total regardless of visit order.
	n := rng.Intn(total)
	for k, w := range table {
		if w <= 0 {
			continue
		}
		if n < w {
			return k, nil
		}
		n -= w
	}

	// Unreachable: total covers every positive weight.
	return zero, ErrInvalidWeights
}
