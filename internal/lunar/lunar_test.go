package lunar

import (
	"math"
	"testing"
	"time"
)

func TestCompute_KnownNewMoons(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
	}{
		{"January 2000", time.Date(2000, 1, 6, 18, 14, 0, 0, time.UTC)},
		{"January 2024", time.Date(2024, 1, 11, 11, 57, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.at)
			if got.Phase != NewMoon {
				t.Errorf("Phase = %v, want New Moon", got.Phase)
			}
			if got.Phase.Index() != 0 {
				t.Errorf("Phase.Index() = %d, want 0", got.Phase.Index())
			}
			if got.PhaseName() != "New Moon" {
				t.Errorf("PhaseName() = %q, want New Moon", got.PhaseName())
			}
			if got.IlluminationPct > 5 {
				t.Errorf("IlluminationPct = %.1f, want within 5%% of 0", got.IlluminationPct)
			}
		})
	}
}

func TestCompute_KnownFullMoons(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
	}{
		{"January 2000", time.Date(2000, 1, 21, 4, 40, 0, 0, time.UTC)},
		{"January 2024", time.Date(2024, 1, 25, 17, 54, 0, 0, time.UTC)},
		{"November 2025", time.Date(2025, 11, 5, 13, 19, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.at)
			if got.IlluminationPct < 98 {
				t.Errorf("IlluminationPct = %.1f, want within 2%% of 100", got.IlluminationPct)
			}
			// Mean age of a full moon sits near half the synodic month.
			if math.Abs(got.AgeDays-SynodicMonth/2) > 1.5 {
				t.Errorf("AgeDays = %.2f, want near %.2f", got.AgeDays, SynodicMonth/2)
			}
		})
	}
}

func TestCompute_Ranges(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	for h := 0; h < 24*400; h += 7 {
		at := start.Add(time.Duration(h) * time.Hour)
		got := Compute(at)

		if got.IlluminationPct < 0 || got.IlluminationPct > 100 {
			t.Fatalf("%v: IlluminationPct = %v out of range", at, got.IlluminationPct)
		}
		if got.PhaseAngle < 0 || got.PhaseAngle >= 360 {
			t.Fatalf("%v: PhaseAngle = %v out of range", at, got.PhaseAngle)
		}
		if got.AgeDays < 0 || got.AgeDays >= SynodicMonth {
			t.Fatalf("%v: AgeDays = %v out of range", at, got.AgeDays)
		}
		if got.Phase != PhaseOf(got.AgeDays) {
			t.Fatalf("%v: Phase = %v, want PhaseOf(age) = %v", at, got.Phase, PhaseOf(got.AgeDays))
		}
	}
}

func TestCompute_IlluminationRoundedToOneDecimal(t *testing.T) {
	got := Compute(time.Date(2025, 11, 25, 5, 22, 0, 0, time.UTC))
	scaled := got.IlluminationPct * 10
	if math.Abs(scaled-math.Round(scaled)) > 1e-9 {
		t.Errorf("IlluminationPct = %v, want one decimal place", got.IlluminationPct)
	}
}

func TestPhaseOf_MonotonicAndWraps(t *testing.T) {
	if got := PhaseOf(0); got != NewMoon {
		t.Errorf("PhaseOf(0) = %v, want New Moon", got)
	}
	if got := PhaseOf(SynodicMonth - 1e-9); got != WaningCrescent {
		t.Errorf("PhaseOf(synodic - eps) = %v, want Waning Crescent", got)
	}

	seen := make(map[Phase]bool)
	prev := NewMoon
	for age := 0.0; age < SynodicMonth; age += 0.01 {
		p := PhaseOf(age)
		if p < prev {
			t.Fatalf("PhaseOf(%.2f) = %v, decreased from %v", age, p, prev)
		}
		prev = p
		seen[p] = true
	}
	if len(seen) != 8 {
		t.Errorf("PhaseOf produced %d distinct phases, want 8", len(seen))
	}
}

func TestPhaseOf_BucketEdges(t *testing.T) {
	eighth := SynodicMonth / 8
	tests := []struct {
		age  float64
		want Phase
	}{
		{eighth - 1e-6, NewMoon},
		{eighth + 1e-9, WaxingCrescent},
		{2*eighth + 1e-9, FirstQuarter},
		{3*eighth + 1e-9, WaxingGibbous},
		{4*eighth + 1e-9, FullMoon},
		{5*eighth + 1e-9, WaningGibbous},
		{6*eighth + 1e-9, LastQuarter},
		{7*eighth + 1e-9, WaningCrescent},
	}

	for _, tt := range tests {
		if got := PhaseOf(tt.age); got != tt.want {
			t.Errorf("PhaseOf(%.4f) = %v, want %v", tt.age, got, tt.want)
		}
	}
}

func TestPhase_NamesAndIcons(t *testing.T) {
	tests := []struct {
		phase Phase
		name  string
		icon  string
	}{
		{NewMoon, "New Moon", "🌑"},
		{WaxingCrescent, "Waxing Crescent", "🌒"},
		{FirstQuarter, "First Quarter", "🌓"},
		{WaxingGibbous, "Waxing Gibbous", "🌔"},
		{FullMoon, "Full Moon", "🌕"},
		{WaningGibbous, "Waning Gibbous", "🌖"},
		{LastQuarter, "Last Quarter", "🌗"},
		{WaningCrescent, "Waning Crescent", "🌘"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.phase.Name() != tt.name {
				t.Errorf("Name() = %q, want %q", tt.phase.Name(), tt.name)
			}
			if tt.phase.Icon() != tt.icon {
				t.Errorf("Icon() = %q, want %q", tt.phase.Icon(), tt.icon)
			}
			if tt.phase.String() != tt.name {
				t.Errorf("String() = %q, want %q", tt.phase.String(), tt.name)
			}
		})
	}
}

func TestPhase_OutOfRangeIsClamped(t *testing.T) {
	if got := Phase(42).Name(); got != "Waning Crescent" {
		t.Errorf("Phase(42).Name() = %q, want Waning Crescent", got)
	}
	if got := Phase(-3).Index(); got != 0 {
		t.Errorf("Phase(-3).Index() = %d, want 0", got)
	}
}

func TestJulianDate(t *testing.T) {
	// J2000.0 epoch is 2000-01-01 12:00 TT; UTC differs by about a minute,
	// which is irrelevant at this precision.
	got := JulianDate(time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC))
	if math.Abs(got-2451545.0) > 1e-9 {
		t.Errorf("JulianDate(J2000) = %v, want 2451545.0", got)
	}

	got = JulianDate(time.Unix(0, 0))
	if got != 2440587.5 {
		t.Errorf("JulianDate(unix epoch) = %v, want 2440587.5", got)
	}
}
