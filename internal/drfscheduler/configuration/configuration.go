package configuration

import (
	"math"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"k8s.io/apimachinery/pkg/labels"

	"github.com/armadaproject/drf-controller/internal/common/config"
	"github.com/armadaproject/drf-controller/internal/common/logging"
)

type TieBreak string

const (
	// TieBreakCreationThenId orders equal scores by effective creation time, then by id.
	TieBreakCreationThenId TieBreak = "creation_then_id"
	// TieBreakId orders equal scores by id only.
	TieBreakId TieBreak = "id"
)

type LeaderMode string

const (
	LeaderModeStandalone LeaderMode = "standalone"
	LeaderModeKubernetes LeaderMode = "kubernetes"
)

// EnvAliases are environment variables accepted in addition to the DRF_ prefixed ones.
var EnvAliases = map[string]string{
	"kueue_enabled":       "KUEUE_ENABLED",
	"scheduling_interval": "SCHEDULING_INTERVAL",
	"aging_alpha":         "AGING_ALPHA",
	"max_aging_hours":     "MAX_AGING_HOURS",
}

type Configuration struct {
	// Aging rate per AgingTimeUnit of waiting.
	AgingAlpha float64 `mapstructure:"aging_alpha" validate:"gte=0"`
	// Waiting time after which the aging factor stops growing.
	MaxAgingHours float64 `mapstructure:"max_aging_hours" validate:"gte=0"`
	// Unit in which elapsed waiting time is measured before being multiplied by AgingAlpha.
	AgingTimeUnit time.Duration `mapstructure:"aging_time_unit" validate:"gt=0"`
	// Static weight per priority class. Lower weights are scheduled first.
	PriorityWeights map[string]int `mapstructure:"priority_weights" validate:"min=1"`
	// Weight given to workloads whose class isn't in PriorityWeights.
	// If unset, the largest configured weight is used.
	UnknownPriorityWeight *int `mapstructure:"unknown_priority_weight"`
	// Class used for workloads that don't name one.
	DefaultPriorityClass string `mapstructure:"default_priority_class" validate:"required"`
	// Class used for workloads annotated with priority: approved.
	ApprovedPriorityClass string         `mapstructure:"approved_priority_class"`
	SchedulingInterval    config.Seconds `mapstructure:"scheduling_interval" validate:"gt=0"`
	// Deadline for a single pass. Zero means SchedulingInterval.
	PassTimeout time.Duration `mapstructure:"pass_timeout" validate:"gte=0"`
	// If false, passes are computed and logged but nothing is written back.
	KueueEnabled bool `mapstructure:"kueue_enabled"`
	// If true, spec.priority is written alongside the score annotations.
	WritePriorityField bool    `mapstructure:"write_priority_field"`
	PriorityScale      float64 `mapstructure:"priority_scale" validate:"gt=0"`
	// Maximum number of concurrent write-back calls.
	WriteBackParallelism int `mapstructure:"write_back_parallelism" validate:"gt=0"`
	// Number of consecutive passes that must fail to list the cluster before readiness fails.
	ListingFailureThreshold int `mapstructure:"listing_failure_threshold" validate:"gt=0"`
	// Namespace to watch. Empty means all namespaces.
	Namespace string `mapstructure:"namespace"`
	// Label selector restricting the nodes counted towards cluster capacity.
	NodeSelector string `mapstructure:"node_selector"`
	// Resources considered when computing dominant share. Empty means all.
	ResourcesToConsider []string         `mapstructure:"resources_to_consider"`
	TieBreak            TieBreak         `mapstructure:"tie_break" validate:"oneof=creation_then_id id"`
	Kubernetes          KubernetesConfig `mapstructure:"kubernetes"`
	Leader              LeaderConfig     `mapstructure:"leader"`
	Http                HttpConfig       `mapstructure:"http"`
	Metrics             MetricsConfig    `mapstructure:"metrics"`
	Logging             logging.Config   `mapstructure:"logging"`
}

type KubernetesConfig struct {
	QPS   float32 `mapstructure:"qps" validate:"gt=0"`
	Burst int     `mapstructure:"burst" validate:"gt=0"`
	// Number of attempts made to reach the API server before giving up at startup.
	StartupAttempts uint `mapstructure:"startup_attempts" validate:"gt=0"`
}

type LeaderConfig struct {
	// Valid modes are "standalone" or "kubernetes"
	Mode LeaderMode `mapstructure:"mode" validate:"oneof=standalone kubernetes"`
	// Name of the K8s Lock Object
	LeaseLockName string `mapstructure:"lease_lock_name"`
	// Namespace of the K8s Lock Object
	LeaseLockNamespace string `mapstructure:"lease_lock_namespace"`
	// The duration that non-leader candidates will wait to force acquire leadership
	LeaseDuration time.Duration `mapstructure:"lease_duration"`
	// The duration that the acting controlplane will retry refreshing leadership before giving up.
	RenewDeadline time.Duration `mapstructure:"renew_deadline"`
	// The duration the LeaderElector clients should wait between tries of actions.
	RetryPeriod time.Duration `mapstructure:"retry_period"`
	// The name of the pod
	PodName string `mapstructure:"pod_name"`
}

type HttpConfig struct {
	Port uint16 `mapstructure:"port" validate:"required"`
}

type MetricsConfig struct {
	Port uint16 `mapstructure:"port" validate:"required"`
}

// Default returns the configuration used when nothing is overridden.
// It matches config/drfcontroller/config.yaml.
func Default() Configuration {
	return Configuration{
		AgingAlpha:              0.1,
		MaxAgingHours:           336,
		AgingTimeUnit:           time.Hour,
		PriorityWeights:         map[string]int{"urgent": 0, "normal": 1000},
		DefaultPriorityClass:    "normal",
		ApprovedPriorityClass:   "urgent",
		SchedulingInterval:      config.Seconds(30 * time.Second),
		KueueEnabled:            true,
		WritePriorityField:      true,
		PriorityScale:           1000,
		WriteBackParallelism:    10,
		ListingFailureThreshold: 3,
		TieBreak:                TieBreakCreationThenId,
		Kubernetes: KubernetesConfig{
			QPS:             50,
			Burst:           100,
			StartupAttempts: 5,
		},
		Leader: LeaderConfig{
			Mode:               LeaderModeStandalone,
			LeaseLockName:      "drf-controller",
			LeaseLockNamespace: "kueue-system",
			LeaseDuration:      15 * time.Second,
			RenewDeadline:      10 * time.Second,
			RetryPeriod:        2 * time.Second,
		},
		Http:    HttpConfig{Port: 8080},
		Metrics: MetricsConfig{Port: 9000},
		Logging: logging.Config{Level: "info", Format: "text"},
	}
}

// Interval is the wall-clock period between passes.
func (c Configuration) Interval() time.Duration {
	return c.SchedulingInterval.Duration()
}

// EffectivePassTimeout is the deadline given to a single pass.
func (c Configuration) EffectivePassTimeout() time.Duration {
	if c.PassTimeout > 0 {
		return c.PassTimeout
	}
	return c.Interval()
}

// LivenessTimeout is how long the loop may go without a heartbeat before the process is considered dead.
func (c Configuration) LivenessTimeout() time.Duration {
	return 3*c.Interval() + c.EffectivePassTimeout()
}

// MaxAgingFactor is the value at which the aging factor saturates, i.e. max_aging_hours expressed in
// aging time units and multiplied by aging_alpha.
func (c Configuration) MaxAgingFactor() float64 {
	if c.AgingTimeUnit <= 0 {
		return 0
	}
	maxAging := time.Duration(c.MaxAgingHours * float64(time.Hour))
	return float64(maxAging) / float64(c.AgingTimeUnit) * c.AgingAlpha
}

func (c Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterStructValidation(ConfigurationValidation, Configuration{})
	validate.RegisterStructValidation(LeaderConfigValidation, LeaderConfig{})
	return validate.Struct(c)
}

// ConfigurationValidation holds rules spanning several fields that can't be expressed as tags.
func ConfigurationValidation(sl validator.StructLevel) {
	c := sl.Current().Interface().(Configuration)

	if math.IsNaN(c.AgingAlpha) || math.IsInf(c.AgingAlpha, 0) {
		sl.ReportError(c.AgingAlpha, "AgingAlpha", "AgingAlpha", "finite", "")
	}
	if math.IsNaN(c.MaxAgingHours) || math.IsInf(c.MaxAgingHours, 0) {
		sl.ReportError(c.MaxAgingHours, "MaxAgingHours", "MaxAgingHours", "finite", "")
	}
	if math.IsNaN(c.PriorityScale) || math.IsInf(c.PriorityScale, 0) {
		sl.ReportError(c.PriorityScale, "PriorityScale", "PriorityScale", "finite", "")
	}
	if _, ok := c.PriorityWeights[c.DefaultPriorityClass]; !ok && c.DefaultPriorityClass != "" {
		sl.ReportError(c.DefaultPriorityClass, "DefaultPriorityClass", "DefaultPriorityClass", "configuredclass", "")
	}
	if _, ok := c.PriorityWeights[c.ApprovedPriorityClass]; !ok && c.ApprovedPriorityClass != "" {
		sl.ReportError(c.ApprovedPriorityClass, "ApprovedPriorityClass", "ApprovedPriorityClass", "configuredclass", "")
	}
	if c.UnknownPriorityWeight != nil && len(c.PriorityWeights) > 0 {
		maxWeight := math.MinInt
		for _, w := range c.PriorityWeights {
			if w > maxWeight {
				maxWeight = w
			}
		}
		if *c.UnknownPriorityWeight < maxWeight {
			sl.ReportError(*c.UnknownPriorityWeight, "UnknownPriorityWeight", "UnknownPriorityWeight", "gte", strconv.Itoa(maxWeight))
		}
	}
	if _, err := labels.Parse(c.NodeSelector); err != nil {
		sl.ReportError(c.NodeSelector, "NodeSelector", "NodeSelector", "labelselector", "")
	}
}

// LeaderConfigValidation requires the lease settings when leader election uses Kubernetes.
func LeaderConfigValidation(sl validator.StructLevel) {
	c := sl.Current().Interface().(LeaderConfig)
	if c.Mode != LeaderModeKubernetes {
		return
	}
	if c.LeaseLockName == "" {
		sl.ReportError(c.LeaseLockName, "LeaseLockName", "LeaseLockName", "required", "")
	}
	if c.LeaseLockNamespace == "" {
		sl.ReportError(c.LeaseLockNamespace, "LeaseLockNamespace", "LeaseLockNamespace", "required", "")
	}
	if c.PodName == "" {
		sl.ReportError(c.PodName, "PodName", "PodName", "required", "")
	}
	if c.RenewDeadline <= 0 || c.LeaseDuration <= c.RenewDeadline {
		sl.ReportError(c.LeaseDuration, "LeaseDuration", "LeaseDuration", "gtfield", "RenewDeadline")
	}
	if c.RetryPeriod <= 0 {
		sl.ReportError(c.RetryPeriod, "RetryPeriod", "RetryPeriod", "gt", "0")
	}
}
