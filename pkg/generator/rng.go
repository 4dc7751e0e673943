package generator

import "math/rand"

// newRNG creates the seeded source for one stream of draws.
func newRNG(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// customerSeed derives an independent, non-negative sub-seed for a customer
// with a splitmix64 finalizer, so per-customer draws do not depend on the
// order customers are synthesised in.
func customerSeed(seed int64, customerID int64) int64 {
	z := uint64(seed) + uint64(customerID)*0x9E3779B97F4A7C15
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	z ^= z >> 31
	return int64(z >> 1)
}

// between draws uniformly from [r.Min, r.Max].
func between(rng *rand.Rand, r IntRange) int {
	return r.Min + rng.Intn(r.Max-r.Min+1)
}

// pickArchetype draws an archetype proportionally to its weight.
func pickArchetype(rng *rand.Rand, archetypes []Archetype) Archetype {
	total := 0.0
	for _, a := range archetypes {
		total += a.Weight
	}
	u := rng.Float64() * total
	for _, a := range archetypes {
		u -= a.Weight
		if u < 0 {
			return a
		}
	}
	return archetypes[len(archetypes)-1]
}

// sampleIndexes draws k distinct indexes from [0, n) with a partial
// Fisher-Yates shuffle. k is clamped to n.
func sampleIndexes(rng *rand.Rand, n, k int) []int {
	if k > n {
		k = n
	}
	pool := make([]int, n)
	for i := range pool {
		pool[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + rng.Intn(n-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k]
}
