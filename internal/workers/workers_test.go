package workers

import (
	"runtime"
	"testing"
)

func TestCount(t *testing.T) {
	t.Setenv(EnvProbeWorkers, "")

	availableCPU := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		multiplier float64
		limit      int
		minExpect  int
		maxExpect  int
	}{
		{
			name:       "CPU-bound task (1.0x multiplier)",
			multiplier: 1.0,
			limit:      0,
			minExpect:  1,
			maxExpect:  availableCPU,
		},
		{
			name:       "I/O-bound task (2.0x multiplier)",
			multiplier: 2.0,
			limit:      0,
			minExpect:  1,
			maxExpect:  availableCPU * 2,
		},
		{
			name:       "With limit lower than calculated",
			multiplier: 2.0,
			limit:      2,
			minExpect:  1,
			maxExpect:  2,
		},
		{
			name:       "Zero multiplier",
			multiplier: 0,
			limit:      0,
			minExpect:  1,
			maxExpect:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Count(tt.multiplier, tt.limit)

			if got < tt.minExpect {
				t.Errorf("Count(%v, %d) = %d, expected >= %d", tt.multiplier, tt.limit, got, tt.minExpect)
			}
			if got > tt.maxExpect {
				t.Errorf("Count(%v, %d) = %d, expected <= %d", tt.multiplier, tt.limit, got, tt.maxExpect)
			}
		})
	}
}

func TestCountWithEnvOverride(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		limit    int
		expected int
	}{
		{name: "Valid override", envValue: "8", limit: 0, expected: 8},
		{name: "Override with limit", envValue: "20", limit: 10, expected: 10},
		{name: "Override below limit", envValue: "5", limit: 10, expected: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvProbeWorkers, tt.envValue)

			if got := Count(1.0, tt.limit); got != tt.expected {
				t.Errorf("Count(1.0, %d) with %s=%s = %d, want %d", tt.limit, EnvProbeWorkers, tt.envValue, got, tt.expected)
			}
		})
	}
}

func TestForIO(t *testing.T) {
	t.Setenv(EnvProbeWorkers, "")

	got := ForIO(8)
	if got < 1 || got > 8 {
		t.Errorf("ForIO(8) = %d, want between 1 and 8", got)
	}
}

func TestForProbes(t *testing.T) {
	auto := runtime.GOMAXPROCS(0) * 2
	if auto > MaxProbeWorkers {
		auto = MaxProbeWorkers
	}

	tests := []struct {
		name     string
		envValue string
		expected int
	}{
		{name: "unset is sequential", envValue: "", expected: 1},
		{name: "explicit count", envValue: "4", expected: 4},
		{name: "capped", envValue: "100", expected: MaxProbeWorkers},
		{name: "auto", envValue: "auto", expected: auto},
		{name: "auto mixed case", envValue: " Auto ", expected: auto},
		{name: "invalid", envValue: "lots", expected: 1},
		{name: "zero", envValue: "0", expected: 1},
		{name: "negative", envValue: "-3", expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvProbeWorkers, tt.envValue)

			if got := ForProbes(); got != tt.expected {
				t.Errorf("ForProbes() with %q = %d, want %d", tt.envValue, got, tt.expected)
			}
		})
	}
}

func BenchmarkCount(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = Count(2.0, 10)
	}
}
