package weights

// Smoother moves a running weight toward its new target over a fixed
// number of sigmoid-weighted steps instead of snapping to it.
type Smoother struct {
	Steps     int     // Steps is the iteration count, 0 snaps to the target
	Steepness float64 // Steepness is the slope of the per-step blend factor
}

// Blend returns the weight after applying every step to prev.
// Each step closes at most 1/Steps of the remaining gap, so a single
// round moves the weight part of the way.
func (s Smoother) Blend(prev, target float64) float64 {
	if s.Steps <= 0 {
		return target
	}

	w := prev
	n := float64(s.Steps)

	for i := 1; i <= s.Steps; i++ {
		alpha := sigmoid(s.Steepness * (float64(i)/n - 0.5))
		w += (target - w) * alpha / n
	}

	return w
}
