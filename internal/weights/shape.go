package weights

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Shaper separates above-mean from below-mean performers.
// Input values are normalized to [0,1]; output has the same length.
type Shaper interface {
	Shape(scores []float64) []float64
}

// PowerScaling raises score/mean to 1-Factor above the mean and to
// 1+Factor at or below it, then divides by the largest result.
type PowerScaling struct {
	Factor float64 // Factor is the exponent offset, 0.1 by default
}

// Shape implements Shaper.
func (p PowerScaling) Shape(scores []float64) []float64 {
	out := make([]float64, len(scores))
	if len(scores) == 0 {
		return out
	}

	mean := stat.Mean(scores, nil)
	if mean <= 0 {
		return out
	}

	for i, s := range scores {
		exp := 1 + p.Factor
		if s > mean {
			exp = 1 - p.Factor
		}

		out[i] = math.Pow(s/mean, exp)
	}

	if top := floats.Max(out); top > 0 {
		floats.Scale(1/top, out)
	}

	return out
}

// SigmoidThreshold gives full reward from mean*(1-Margin) upward and a
// sigmoid-shaped reward in [Floor,1) below it.
type SigmoidThreshold struct {
	Floor     float64 // Floor is the minimum reward, 0.01 by default
	Margin    float64 // Margin is the fraction below the mean that still earns full reward
	Steepness float64 // Steepness is the sigmoid slope, 7.5 by default
}

// Shape implements Shaper.
func (s SigmoidThreshold) Shape(scores []float64) []float64 {
	out := make([]float64, len(scores))
	if len(scores) == 0 {
		return out
	}

	threshold := stat.Mean(scores, nil) * (1 - s.Margin)

	for i, v := range scores {
		if v >= threshold {
			out[i] = 1
			continue
		}

		out[i] = s.Floor + (1-s.Floor)*sigmoid(s.Steepness*(threshold-v))
	}

	return out
}

// ParseShaper returns the shaper for a policy name.
func ParseShaper(name string) (Shaper, error) {
	switch name {
	case "power", "power-scaling", "":
		return PowerScaling{Factor: 0.1}, nil
	case "sigmoid", "sigmoid-threshold":
		return SigmoidThreshold{Floor: 0.01, Margin: 0.2, Steepness: 7.5}, nil
	default:
		return nil, fmt.Errorf("unknown shaping policy %q", name)
	}
}

// normalize min-max scales values to [0,1]. A uniform list maps to all ones.
func normalize(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}

	lo, hi := floats.Min(values), floats.Max(values)
	if lo == hi {
		for i := range out {
			out[i] = 1
		}

		return out
	}

	for i, v := range values {
		out[i] = (v - lo) / (hi - lo)
	}

	return out
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
