package configuration

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/utils/pointer"

	"github.com/armadaproject/drf-controller/internal/common/config"
)

func TestDefault_IsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestValidate(t *testing.T) {
	tests := map[string]struct {
		modify        func(c *Configuration)
		expectedField string
	}{
		"negative aging alpha": {
			modify:        func(c *Configuration) { c.AgingAlpha = -0.1 },
			expectedField: "AgingAlpha",
		},
		"infinite aging alpha": {
			modify:        func(c *Configuration) { c.AgingAlpha = math.Inf(1) },
			expectedField: "AgingAlpha",
		},
		"nan max aging": {
			modify:        func(c *Configuration) { c.MaxAgingHours = math.NaN() },
			expectedField: "MaxAgingHours",
		},
		"no priority weights": {
			modify:        func(c *Configuration) { c.PriorityWeights = map[string]int{} },
			expectedField: "PriorityWeights",
		},
		"zero interval": {
			modify:        func(c *Configuration) { c.SchedulingInterval = 0 },
			expectedField: "SchedulingInterval",
		},
		"default class not configured": {
			modify:        func(c *Configuration) { c.DefaultPriorityClass = "batch" },
			expectedField: "DefaultPriorityClass",
		},
		"approved class not configured": {
			modify:        func(c *Configuration) { c.ApprovedPriorityClass = "vip" },
			expectedField: "ApprovedPriorityClass",
		},
		"bad tie break": {
			modify:        func(c *Configuration) { c.TieBreak = "random" },
			expectedField: "TieBreak",
		},
		"bad node selector": {
			modify:        func(c *Configuration) { c.NodeSelector = "a in (" },
			expectedField: "NodeSelector",
		},
		"zero parallelism": {
			modify:        func(c *Configuration) { c.WriteBackParallelism = 0 },
			expectedField: "WriteBackParallelism",
		},
		"kubernetes leader without pod name": {
			modify:        func(c *Configuration) { c.Leader.Mode = LeaderModeKubernetes },
			expectedField: "PodName",
		},
		"kubernetes leader without lease name": {
			modify: func(c *Configuration) {
				c.Leader.Mode = LeaderModeKubernetes
				c.Leader.PodName = "drf-controller-0"
				c.Leader.LeaseLockName = ""
			},
			expectedField: "LeaseLockName",
		},
		"kubernetes leader without lease namespace": {
			modify: func(c *Configuration) {
				c.Leader.Mode = LeaderModeKubernetes
				c.Leader.PodName = "drf-controller-0"
				c.Leader.LeaseLockNamespace = ""
			},
			expectedField: "LeaseLockNamespace",
		},
		"lease duration not above renew deadline": {
			modify: func(c *Configuration) {
				c.Leader.Mode = LeaderModeKubernetes
				c.Leader.PodName = "drf-controller-0"
				c.Leader.LeaseDuration = c.Leader.RenewDeadline
			},
			expectedField: "LeaseDuration",
		},
		"zero retry period": {
			modify: func(c *Configuration) {
				c.Leader.Mode = LeaderModeKubernetes
				c.Leader.PodName = "drf-controller-0"
				c.Leader.RetryPeriod = 0
			},
			expectedField: "RetryPeriod",
		},
		"unknown weight more favourable than configured classes": {
			modify:        func(c *Configuration) { c.UnknownPriorityWeight = pointer.Int(-100) },
			expectedField: "UnknownPriorityWeight",
		},
		"unknown weight below highest configured weight": {
			modify:        func(c *Configuration) { c.UnknownPriorityWeight = pointer.Int(999) },
			expectedField: "UnknownPriorityWeight",
		},
		"zero listing failure threshold": {
			modify:        func(c *Configuration) { c.ListingFailureThreshold = 0 },
			expectedField: "ListingFailureThreshold",
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			c := Default()
			tc.modify(&c)
			err := c.Validate()
			require.Error(t, err)
			var validationErrors validator.ValidationErrors
			require.ErrorAs(t, err, &validationErrors)
			fields := make([]string, 0, len(validationErrors))
			for _, fieldError := range validationErrors {
				fields = append(fields, fieldError.Field())
			}
			assert.Contains(t, fields, tc.expectedField)
		})
	}
}

func TestValidate_UnknownWeightAtOrAboveHighest(t *testing.T) {
	for _, weight := range []int{1000, 5000} {
		c := Default()
		c.UnknownPriorityWeight = pointer.Int(weight)
		assert.NoError(t, c.Validate())
	}
}

func TestValidate_LeaderFieldNamespace(t *testing.T) {
	c := Default()
	c.Leader.Mode = LeaderModeKubernetes
	err := c.Validate()
	var validationErrors validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrors)
	namespaces := make([]string, 0, len(validationErrors))
	for _, fieldError := range validationErrors {
		namespaces = append(namespaces, fieldError.Namespace())
	}
	assert.Contains(t, namespaces, "Configuration.Leader.PodName")
}

func TestValidate_KubernetesLeader(t *testing.T) {
	c := Default()
	c.Leader.Mode = LeaderModeKubernetes
	c.Leader.PodName = "drf-controller-0"
	assert.NoError(t, c.Validate())
}

func TestDerivedDurations(t *testing.T) {
	c := Default()
	assert.Equal(t, 30*time.Second, c.Interval())
	assert.Equal(t, 30*time.Second, c.EffectivePassTimeout())
	assert.Equal(t, 120*time.Second, c.LivenessTimeout())

	c.PassTimeout = 10 * time.Second
	assert.Equal(t, 10*time.Second, c.EffectivePassTimeout())
	assert.Equal(t, 100*time.Second, c.LivenessTimeout())
}

func TestMaxAgingFactor(t *testing.T) {
	c := Default()
	assert.InDelta(t, 33.6, c.MaxAgingFactor(), 1e-9)

	c.AgingTimeUnit = time.Minute
	c.AgingAlpha = 0.01
	assert.InDelta(t, 336*60*0.01, c.MaxAgingFactor(), 1e-9)
}

func TestDefault_MatchesConfigFile(t *testing.T) {
	var loaded Configuration
	_, err := config.LoadConfig(&loaded, filepath.Join("..", "..", "..", "config", "drfcontroller"), nil, EnvAliases)
	require.NoError(t, err)
	assert.Equal(t, Default(), loaded)
}

func TestLoad_LegacyEnvironment(t *testing.T) {
	t.Setenv("KUEUE_ENABLED", "false")
	t.Setenv("SCHEDULING_INTERVAL", "45")
	t.Setenv("AGING_ALPHA", "0.5")
	t.Setenv("MAX_AGING_HOURS", "24")

	var loaded Configuration
	_, err := config.LoadConfig(&loaded, filepath.Join("..", "..", "..", "config", "drfcontroller"), nil, EnvAliases)
	require.NoError(t, err)
	assert.False(t, loaded.KueueEnabled)
	assert.Equal(t, 45*time.Second, loaded.Interval())
	assert.Equal(t, 0.5, loaded.AgingAlpha)
	assert.Equal(t, 24.0, loaded.MaxAgingHours)
}

func TestLoad_OverrideFile(t *testing.T) {
	dir := t.TempDir()
	override := filepath.Join(dir, "override.yaml")
	require.NoError(t, os.WriteFile(override, []byte(`
scheduling_interval: 1m
unknown_priority_weight: 5000
priority_weights:
  batch: 2000
resources_to_consider:
  - cpu
  - nvidia.com/gpu
`), 0o600))

	var loaded Configuration
	_, err := config.LoadConfig(&loaded, filepath.Join("..", "..", "..", "config", "drfcontroller"), []string{override}, EnvAliases)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, loaded.Interval())
	assert.Equal(t, pointer.Int(5000), loaded.UnknownPriorityWeight)
	assert.Equal(t, map[string]int{"urgent": 0, "normal": 1000, "batch": 2000}, loaded.PriorityWeights)
	assert.Equal(t, []string{"cpu", "nvidia.com/gpu"}, loaded.ResourcesToConsider)
	assert.NoError(t, loaded.Validate())
}
