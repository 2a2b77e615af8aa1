package environment

// Inputs bundles one observation pair plus angler-entered context.
type Inputs struct {
	WindSpeedKmh     *float64
	WindDirectionDeg *float64
	WaveHeightM      *float64
	PrevPressureHPa  *float64
	PressureHPa      *float64
	Clarity          string
	LunarAgeDays     float64
}

// Assessment is the derived, display-ready view of an observation.
type Assessment struct {
	WindCardinal8  string        `json:"wind_cardinal8"`
	WindCardinal16 string        `json:"wind_cardinal16"`
	Beaufort       *int          `json:"beaufort,omitempty"`
	SeaState       SeaState      `json:"sea_state"`
	PressureTrend  PressureTrend `json:"pressure_trend"`
	Score          int           `json:"score"`
	Tide           TideTrend     `json:"tide_estimate"`
}

// Assess applies every classifier to in.
func Assess(in Inputs) Assessment {
	trend := PressureTrendOf(in.PrevPressureHPa, in.PressureHPa)

	a := Assessment{
		WindCardinal8:  Cardinal8(in.WindDirectionDeg),
		WindCardinal16: Cardinal16(in.WindDirectionDeg),
		SeaState:       ClassifySeaState(in.WaveHeightM),
		PressureTrend:  trend,
		Score: WeatherScore(ScoreInputs{
			WindSpeedKmh:  in.WindSpeedKmh,
			Clarity:       in.Clarity,
			PressureTrend: trend,
			WaveHeightM:   in.WaveHeightM,
		}),
		Tide: TideTrendOf(in.LunarAgeDays),
	}
	if force, ok := Beaufort(in.WindSpeedKmh); ok {
		a.Beaufort = &force
	}
	return a
}
