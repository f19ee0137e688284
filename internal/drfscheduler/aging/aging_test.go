package aging

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armadaproject/drf-controller/internal/common/drferrors"
)

var baseTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func defaultAdjuster(t *testing.T) *Adjuster {
	adjuster, err := NewAdjuster(0.1, time.Hour, 336*time.Hour)
	require.NoError(t, err)
	return adjuster
}

func TestNewAdjuster_Invalid(t *testing.T) {
	tests := map[string]struct {
		alpha  float64
		unit   time.Duration
		maxAge time.Duration
	}{
		"negative alpha": {alpha: -1, unit: time.Hour, maxAge: time.Hour},
		"nan alpha":      {alpha: math.NaN(), unit: time.Hour, maxAge: time.Hour},
		"infinite alpha": {alpha: math.Inf(1), unit: time.Hour, maxAge: time.Hour},
		"zero unit":      {alpha: 0.1, unit: 0, maxAge: time.Hour},
		"negative max":   {alpha: 0.1, unit: time.Hour, maxAge: -time.Hour},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewAdjuster(tc.alpha, tc.unit, tc.maxAge)
			assert.True(t, drferrors.IsInvalidArgument(err))
		})
	}
}

func TestFactor(t *testing.T) {
	tests := map[string]struct {
		age            time.Duration
		expectedFactor float64
	}{
		"just created": {
			age:            0,
			expectedFactor: 0,
		},
		"created in the future": {
			age:            -time.Hour,
			expectedFactor: 0,
		},
		"half an hour": {
			age:            30 * time.Minute,
			expectedFactor: 0.05,
		},
		"100 hours": {
			age:            100 * time.Hour,
			expectedFactor: 10,
		},
		"exactly at the ceiling": {
			age:            336 * time.Hour,
			expectedFactor: 33.6,
		},
		"beyond the ceiling": {
			age:            1000 * time.Hour,
			expectedFactor: 33.6,
		},
	}
	adjuster := defaultAdjuster(t)
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.InDelta(t, tc.expectedFactor, adjuster.Factor(baseTime, baseTime.Add(tc.age)), 1e-9)
		})
	}
}

func TestFactor_ZeroAlpha(t *testing.T) {
	adjuster, err := NewAdjuster(0, time.Hour, 336*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0.0, adjuster.Factor(baseTime, baseTime.Add(100*time.Hour)))
	assert.Equal(t, 0.0, adjuster.MaxFactor())
}

func TestFactor_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 1000
	properties := gopter.NewProperties(parameters)

	properties.Property("factor is monotonically non-decreasing in waiting time", prop.ForAll(
		func(alpha float64, maxHours int64, a int64, b int64) bool {
			adjuster, err := NewAdjuster(alpha, time.Hour, time.Duration(maxHours)*time.Hour)
			if err != nil {
				return false
			}
			if a > b {
				a, b = b, a
			}
			shorter := adjuster.Factor(baseTime, baseTime.Add(time.Duration(a)*time.Second))
			longer := adjuster.Factor(baseTime, baseTime.Add(time.Duration(b)*time.Second))
			return shorter <= longer
		},
		gen.Float64Range(0, 10),
		gen.Int64Range(0, 10_000),
		gen.Int64Range(-3600, 100_000_000),
		gen.Int64Range(-3600, 100_000_000),
	))
	properties.Property("factor never exceeds max_aging_hours * aging_alpha", prop.ForAll(
		func(alpha float64, maxHours int64, age int64) bool {
			adjuster, err := NewAdjuster(alpha, time.Hour, time.Duration(maxHours)*time.Hour)
			if err != nil {
				return false
			}
			factor := adjuster.Factor(baseTime, baseTime.Add(time.Duration(age)*time.Second))
			return factor >= 0 && factor <= float64(maxHours)*alpha+1e-9
		},
		gen.Float64Range(0, 10),
		gen.Int64Range(0, 10_000),
		gen.Int64Range(-3600, 100_000_000),
	))

	properties.TestingRun(t)
}
