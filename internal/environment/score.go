package environment

// ScoreInputs are the conditions that feed the fishing-quality score.
type ScoreInputs struct {
	WindSpeedKmh  *float64
	Clarity       string
	PressureTrend PressureTrend
	WaveHeightM   *float64
}

const (
	scoreBaseline = 5
	scoreMin      = 0
	scoreMax      = 10
)

// WeatherScore rates fishing conditions from 0 (poor) to 10 (ideal).
// Absent inputs contribute nothing, so an empty ScoreInputs scores 5.
func WeatherScore(in ScoreInputs) int {
	score := scoreBaseline

	// Moderate wind stirs bait and predators; flat calm or a gale does not.
	if in.WindSpeedKmh != nil {
		w := *in.WindSpeedKmh
		if w >= 10 && w <= 25 {
			score += 2
		}
		if w < 5 {
			score--
		}
		if w > 35 {
			score -= 2
		}
	}

	if in.Clarity != "" {
		score += ClarityScore(in.Clarity) - 1
	}

	if in.PressureTrend.IsRising() {
		score++
	}
	if in.PressureTrend.IsFalling() {
		score--
	}

	if in.WaveHeightM != nil {
		h := *in.WaveHeightM
		if h >= 0.2 && h <= 1.0 {
			score++
		}
		if h > 2.5 {
			score -= 2
		}
	}

	return clamp(score, scoreMin, scoreMax)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
