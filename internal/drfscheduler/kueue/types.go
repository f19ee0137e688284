package kueue

import (
	v1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

// WorkloadGVR identifies Kueue workloads. Workloads are accessed through the dynamic client so that
// the controller doesn't depend on a specific Kueue release.
var WorkloadGVR = schema.GroupVersionResource{
	Group:    "kueue.x-k8s.io",
	Version:  "v1beta1",
	Resource: "workloads",
}

const (
	WorkloadKind     = "Workload"
	WorkloadListKind = "WorkloadList"

	// Condition types set by Kueue.
	ConditionAdmitted = "Admitted"
	ConditionFinished = "Finished"
)

const (
	ScoreAnnotation     = "drf-scheduler/priority-score"
	RankAnnotation      = "drf-scheduler/rank"
	UpdatedByAnnotation = "drf-scheduler/updated-by"

	PriorityClassAnnotation = "drf-scheduler/priority-class"
	GangIdAnnotation        = "drf-scheduler/gang-id"

	// Annotations understood for compatibility with job submitters that predate the drf-scheduler ones.
	LegacyPriorityAnnotation       = "priority"
	LegacyPriorityApprovedValue    = "approved"
	LegacyGangSchedulingAnnotation = "gang-scheduling"
	LegacyGangIdAnnotation         = "gang-id"

	PodGroupNameLabel = "kueue.x-k8s.io/pod-group-name"
)

// Workload is the subset of the Kueue Workload resource the controller reads.
type Workload struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   WorkloadSpec   `json:"spec,omitempty"`
	Status WorkloadStatus `json:"status,omitempty"`
}

type WorkloadSpec struct {
	PodSets           []PodSet `json:"podSets,omitempty"`
	QueueName         string   `json:"queueName,omitempty"`
	PriorityClassName string   `json:"priorityClassName,omitempty"`
	Priority          *int32   `json:"priority,omitempty"`
}

type PodSet struct {
	Name     string             `json:"name"`
	Count    int32              `json:"count"`
	Template v1.PodTemplateSpec `json:"template"`
}

type WorkloadStatus struct {
	Conditions []metav1.Condition `json:"conditions,omitempty"`
}
