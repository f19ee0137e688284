package kueue

import (
	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"

	"github.com/armadaproject/drf-controller/internal/common/resource"
	"github.com/armadaproject/drf-controller/internal/drfscheduler/model"
)

// ClassResolver decides which priority class a workload belongs to.
type ClassResolver struct {
	DefaultClass  string
	ApprovedClass string
}

// Resolve returns the first of:
//   - the drf-scheduler/priority-class annotation
//   - ApprovedClass, if the workload is annotated with priority: approved
//   - spec.priorityClassName
//   - DefaultClass
func (r ClassResolver) Resolve(wl *Workload) string {
	if class := wl.Annotations[PriorityClassAnnotation]; class != "" {
		return class
	}
	if r.ApprovedClass != "" && wl.Annotations[LegacyPriorityAnnotation] == LegacyPriorityApprovedValue {
		return r.ApprovedClass
	}
	if wl.Spec.PriorityClassName != "" {
		return wl.Spec.PriorityClassName
	}
	return r.DefaultClass
}

// GangId returns the gang the workload belongs to, or the empty string.
func GangId(wl *Workload) string {
	if id := wl.Annotations[GangIdAnnotation]; id != "" {
		return id
	}
	if wl.Annotations[LegacyGangSchedulingAnnotation] == "true" {
		if id := wl.Annotations[LegacyGangIdAnnotation]; id != "" {
			return id
		}
	}
	return wl.Labels[PodGroupNameLabel]
}

func State(wl *Workload) model.WorkloadState {
	switch {
	case wl.DeletionTimestamp != nil:
		return model.WorkloadStateTerminating
	case meta.IsStatusConditionTrue(wl.Status.Conditions, ConditionFinished):
		return model.WorkloadStateFinished
	case meta.IsStatusConditionTrue(wl.Status.Conditions, ConditionAdmitted):
		return model.WorkloadStateAdmitted
	default:
		return model.WorkloadStatePending
	}
}

// Requests returns the resources needed to run every pod of the workload.
func Requests(wl *Workload) resource.ComputeResources {
	total := make(resource.ComputeResources)
	for i := range wl.Spec.PodSets {
		podSet := &wl.Spec.PodSets[i]
		if podSet.Count <= 0 {
			continue
		}
		total.Add(resource.TotalResourceRequest(&podSet.Template.Spec).Scale(int64(podSet.Count)))
	}
	return total
}

func FromUnstructured(u *unstructured.Unstructured) (*Workload, error) {
	wl := &Workload{}
	if err := runtime.DefaultUnstructuredConverter.FromUnstructured(u.UnstructuredContent(), wl); err != nil {
		return nil, errors.Wrapf(err, "error converting workload %s/%s", u.GetNamespace(), u.GetName())
	}
	return wl, nil
}

func ToModel(wl *Workload, resolver ClassResolver) *model.Workload {
	var priority *int32
	if wl.Spec.Priority != nil {
		p := *wl.Spec.Priority
		priority = &p
	}
	return &model.Workload{
		Namespace:       wl.Namespace,
		Name:            wl.Name,
		QueueName:       wl.Spec.QueueName,
		PriorityClass:   resolver.Resolve(wl),
		Requests:        Requests(wl),
		CreationTime:    wl.CreationTimestamp.Time,
		State:           State(wl),
		GangId:          GangId(wl),
		CurrentScore:    wl.Annotations[ScoreAnnotation],
		CurrentRank:     wl.Annotations[RankAnnotation],
		CurrentPriority: priority,
	}
}
