package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/armadaproject/drf-controller/internal/drfscheduler/model"
)

const prefix = "drf_controller_"

const (
	resultLabel        = "result"
	outcomeLabel       = "outcome"
	kindLabel          = "kind"
	namespaceLabel     = "namespace"
	workloadLabel      = "workload"
	priorityClassLabel = "priority_class"
	gangLabel          = "gang"
)

// Pass results.
const (
	PassSucceeded = "succeeded"
	PassFailed    = "failed"
	// PassSkipped is a tick on which this instance wasn't leader.
	PassSkipped = "skipped"
)

var workloadLabels = []string{namespaceLabel, workloadLabel, priorityClassLabel, gangLabel}

// Metrics holds everything the controller exports about its passes.
// It implements prometheus.Collector.
type Metrics struct {
	passDuration         prometheus.Histogram
	passes               *prometheus.CounterVec
	writeBacks           *prometheus.CounterVec
	pendingWorkloads     prometheus.Gauge
	groups               *prometheus.GaugeVec
	workloadScore        *prometheus.GaugeVec
	workloadRank         *prometheus.GaugeVec
	unknownPriorityClass *prometheus.CounterVec
	isLeader             prometheus.Gauge
}

func New() *Metrics {
	return &Metrics{
		passDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    prefix + "pass_duration_seconds",
				Help:    "Duration of a reconciliation pass",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 15),
			},
		),
		passes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "passes_total",
				Help: "Number of reconciliation passes by result",
			},
			[]string{resultLabel},
		),
		writeBacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "write_backs_total",
				Help: "Number of workload priority write-backs by outcome",
			},
			[]string{outcomeLabel},
		),
		pendingWorkloads: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: prefix + "pending_workloads",
				Help: "Number of pending workloads seen in the last pass",
			},
		),
		groups: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: prefix + "groups",
				Help: "Number of scored groups in the last pass, by kind (gang or standalone)",
			},
			[]string{kindLabel},
		),
		workloadScore: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: prefix + "workload_score",
				Help: "Priority score computed for each pending workload in the last pass. Lower is scheduled sooner",
			},
			workloadLabels,
		),
		workloadRank: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: prefix + "workload_rank",
				Help: "Position of each pending workload in the last pass ordering, starting from 1",
			},
			workloadLabels,
		),
		unknownPriorityClass: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "unknown_priority_class_total",
				Help: "Number of times a workload referenced a priority class with no configured weight",
			},
			[]string{priorityClassLabel},
		),
		isLeader: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: prefix + "is_leader",
				Help: "1 if this instance was leader on its last tick, 0 otherwise",
			},
		),
	}
}

func (m *Metrics) ObservePass(result string, duration time.Duration) {
	m.passes.WithLabelValues(result).Inc()
	m.passDuration.Observe(duration.Seconds())
}

func (m *Metrics) ObserveWriteBack(outcome model.Outcome) {
	m.writeBacks.WithLabelValues(string(outcome)).Inc()
}

func (m *Metrics) ObserveUnknownPriorityClass(class string, count int) {
	m.unknownPriorityClass.WithLabelValues(class).Add(float64(count))
}

func (m *Metrics) SetLeader(leader bool) {
	if leader {
		m.isLeader.Set(1)
	} else {
		m.isLeader.Set(0)
	}
}

// ReportAssignments replaces the per-workload gauges with the assignments of the latest pass.
func (m *Metrics) ReportAssignments(assignments []*model.Assignment, groups int, gangGroups int) {
	m.workloadScore.Reset()
	m.workloadRank.Reset()
	m.pendingWorkloads.Set(float64(len(assignments)))
	m.groups.WithLabelValues("gang").Set(float64(gangGroups))
	m.groups.WithLabelValues("standalone").Set(float64(groups - gangGroups))
	for _, a := range assignments {
		labels := []string{a.Workload.Namespace, a.Workload.Name, a.PriorityClass, a.Workload.GangId}
		m.workloadScore.WithLabelValues(labels...).Set(a.Score)
		m.workloadRank.WithLabelValues(labels...).Set(float64(a.Rank))
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.passDuration,
		m.passes,
		m.writeBacks,
		m.pendingWorkloads,
		m.groups,
		m.workloadScore,
		m.workloadRank,
		m.unknownPriorityClass,
		m.isLeader,
	}
}

func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors() {
		c.Describe(ch)
	}
}

func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors() {
		c.Collect(ch)
	}
}
