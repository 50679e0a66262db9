// Package shuffle provides the deterministic, seed-stable permutation used to
// order questions and choices. Every member of a team must see the same order
// on every load, across processes and restarts, so the generator is a fixed
// linear congruential sequence rather than math/rand: the constants are part
// of the persisted-seed contract and must never change.
package shuffle

// lcg steps the generator once and returns a uniform value in [0, 1).
// A zero state is valid; the sequence still advances deterministically.
func lcg(state int64) (int64, float64) {
	state = (state*9301 + 49297) % 233280
	return state, float64(state) / 233280
}

// SeedFromString derives the integer generator seed by summing the code
// points of the seed string.
func SeedFromString(seed string) int64 {
	var sum int64
	for _, r := range seed {
		sum += int64(r)
	}
	return sum
}

// Shuffle returns a new slice holding a reproducible permutation of items for
// the given seed string. The input is never mutated. Same seed, same
// permutation, every call, forever.
//
// Question order uses seed "{team_id}-{test_id}" (stable per team and test,
// independent of the session). Choice order uses the session id (stable per
// attempt). Both are chosen so teammates sharing a session see identical
// ordering.
func Shuffle[T any](items []T, seed string) []T {
	out := make([]T, len(items))
	copy(out, items)

	state := SeedFromString(seed)

	// Fisher-Yates from the last index down to 1, one draw per swap.
	for i := len(out) - 1; i > 0; i-- {
		var r float64
		state, r = lcg(state)
		j := int(r * float64(i+1))
		out[i], out[j] = out[j], out[i]
	}

	return out
}
