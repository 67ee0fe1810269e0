package rating

import "math"

const (
	maxAttributeStep = 5.0
	neutralRating    = 50
)

// AdjustAttributes moves the target's attributes toward an evaluator's ratings.
//
// Only attributes present in incoming and known in both current and
// evaluator are returned. A rating above neutral pushes the attribute up,
// below pushes it down. The push grows with the gap between the evaluator's
// own attribute and the target's, and a higher target elo amplifies upward
// moves while damping downward ones. Any non-zero move is at least one point
// and at most five.
func AdjustAttributes(current, evaluator, incoming map[string]int, elo int) map[string]int {
	eloScale := float64(clampInt(elo, -1000, 1000)) / 1000
	out := make(map[string]int, len(incoming))

	for name, given := range incoming {
		cur, ok := current[name]
		if !ok {
			continue
		}
		ev, ok := evaluator[name]
		if !ok {
			continue
		}

		delta := float64(given - neutralRating)
		influence := (math.Abs(float64(ev-cur)) + 1) / 50

		modifier := 1 - eloScale*0.5
		if delta > 0 {
			modifier = 1 + eloScale*0.5
		}

		step := math.Max(-maxAttributeStep, math.Min(maxAttributeStep, delta*influence*0.1*modifier))
		if step != 0 && math.Abs(step) < 1 {
			step = math.Copysign(1, step)
		}

		next := math.Max(0, math.Min(100, float64(cur)+step))
		out[name] = int(math.Round(next))
	}
	return out
}
