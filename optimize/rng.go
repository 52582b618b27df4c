// Package optimize - RNG utilities shared by the optimizer, the proposer and
// plan generators.
//
// Goals:
//   - Determinism: same seed ⇒ identical runs.
//   - Encapsulation: no global or time-based sources.
//
// Concurrency:
//   - math/rand.Rand is NOT goroutine-safe. Do not share a *rand.Rand across goroutines.
//   - Use DeriveRNG to create independent streams per component or network.
package optimize

import "math/rand"

// defaultRNGSeed is the seed used when callers pass seed==0.
const defaultRNGSeed int64 = 1

// Stream identifiers for DeriveRNG, one per consumer of a network's seed.
const (
	StreamOptimizer uint64 = iota + 1
	StreamProposer
	StreamEvaluator
	StreamCircle
)

// NewRNG returns a deterministic *rand.Rand.
// Policy: seed==0 ⇒ use defaultRNGSeed; otherwise use the provided seed verbatim.
func NewRNG(seed int64) *rand.Rand {
	if seed == 0 {
		seed = defaultRNGSeed
	}

	return rand.New(rand.NewSource(seed))
}

// deriveSeed mixes a parent seed and a stream identifier into a new 64-bit seed
// with a SplitMix64 finalizer.
func deriveSeed(parent int64, stream uint64) int64 {
	x := uint64(parent) ^ (stream + 0x9e3779b97f4a7c15)
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	x ^= x >> 31

	return int64(x)
}

// DeriveRNG creates an independent deterministic stream from seed and stream.
// Unlike drawing from a shared parent, the result does not depend on call order.
func DeriveRNG(seed int64, stream uint64) *rand.Rand {
	if seed == 0 {
		seed = defaultRNGSeed
	}

	return rand.New(rand.NewSource(deriveSeed(seed, stream)))
}

// sampleIDs returns min(n, len(ids)) distinct elements of ids, drawn with a
// partial Fisher–Yates shuffle of a copy. ids itself is not modified.
//
// Complexity: O(len(ids)) time and space.
func sampleIDs(ids []string, n int, rng *rand.Rand) []string {
	if n > len(ids) {
		n = len(ids)
	}
	if n <= 0 {
		return nil
	}
	a := append([]string(nil), ids...)
	for i := 0; i < n; i++ {
		j := i + rng.Intn(len(a)-i)
		a[i], a[j] = a[j], a[i]
	}

	return a[:n]
}
