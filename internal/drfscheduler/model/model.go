// Package model contains the per-pass view of the cluster the controller computes priorities from.
// None of these types are persisted; they are rebuilt from the Kubernetes API on every pass.
package model

import (
	"fmt"
	"time"

	"github.com/armadaproject/drf-controller/internal/common/resource"
)

type WorkloadState string

const (
	WorkloadStatePending  WorkloadState = "Pending"
	WorkloadStateAdmitted WorkloadState = "Admitted"
	WorkloadStateFinished WorkloadState = "Finished"
	// WorkloadStateTerminating is a workload with a deletion timestamp.
	WorkloadStateTerminating WorkloadState = "Terminating"
)

// Workload is the controller's view of a single queueing-layer workload.
type Workload struct {
	Namespace string
	Name      string
	// Local queue the workload was submitted to.
	QueueName string
	// Priority class the workload resolved to. May name a class with no configured weight.
	PriorityClass string
	// Total resources requested across all pods of the workload.
	Requests     resource.ComputeResources
	CreationTime time.Time
	State        WorkloadState
	// Gang identifier, unique within Namespace. Empty for standalone workloads.
	GangId string
	// Values currently written on the object, used to skip writes that wouldn't change anything.
	CurrentScore    string
	CurrentRank     string
	CurrentPriority *int32
}

// Id uniquely identifies the workload within the cluster.
func (w *Workload) Id() string {
	return fmt.Sprintf("%s/%s", w.Namespace, w.Name)
}

// GangKey is the cluster-wide key of the workload's gang, or the empty string if it has none.
func (w *Workload) GangKey() string {
	if w.GangId == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s", w.Namespace, w.GangId)
}

func (w *Workload) IsPending() bool {
	return w.State == WorkloadStatePending
}

// ClusterCapacity is the total allocatable resource of the nodes workloads may be admitted to.
type ClusterCapacity struct {
	Resources resource.ComputeResources
	NodeCount int
}

// Snapshot is everything a pass reads from the cluster. It is consistent for the whole pass.
type Snapshot struct {
	Workloads []*Workload
	Capacity  ClusterCapacity
	Now       time.Time
}

// Assignment is the score computed for one workload in a pass.
// All members of a gang receive assignments with identical Score and Rank.
type Assignment struct {
	Workload *Workload
	// Key of the unit the score was computed for: the gang key, or the workload id for standalone workloads.
	GroupKey string
	// Class whose weight was used. For gangs this is the class of the least favoured member.
	PriorityClass string
	Weight        int
	// True if PriorityClass has no configured weight.
	UnknownClass bool
	// Resource the dominant share was computed from. Empty if nothing the group requests has capacity.
	DominantResource      string
	DominantShare         float64
	AgingFactor           float64
	Score                 float64
	EffectiveCreationTime time.Time
	// 1-based position of the group in the pass ordering.
	Rank int
}

func (a *Assignment) IsGang() bool {
	return a.Workload.GangId != ""
}

// Outcome is the result of writing an assignment back to the queueing layer.
type Outcome string

const (
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeNotFound  Outcome = "not_found"
	OutcomeFailed    Outcome = "failed"
	// OutcomeSkipped is recorded when write-back is disabled or leadership was lost.
	OutcomeSkipped Outcome = "skipped"
)

var Outcomes = []Outcome{OutcomeUpdated, OutcomeUnchanged, OutcomeNotFound, OutcomeFailed, OutcomeSkipped}
