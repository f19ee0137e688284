package kueue

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/pkg/errors"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/dynamic"

	"github.com/armadaproject/drf-controller/internal/common/drfcontext"
	"github.com/armadaproject/drf-controller/internal/drfscheduler/model"
)

// PriorityWriter pushes computed priorities to the queueing layer.
type PriorityWriter interface {
	// UpdateWorkloadPriority writes the assignment to its workload. Writing the same assignment
	// twice is safe. A workload that no longer exists results in model.OutcomeNotFound and no error.
	UpdateWorkloadPriority(ctx *drfcontext.Context, assignment *model.Assignment) (model.Outcome, error)
}

type KubernetesWriter struct {
	dynamicClient      dynamic.Interface
	writePriorityField bool
	priorityScale      float64
	updatedBy          string
}

func NewKubernetesWriter(dynamicClient dynamic.Interface, writePriorityField bool, priorityScale float64, updatedBy string) *KubernetesWriter {
	return &KubernetesWriter{
		dynamicClient:      dynamicClient,
		writePriorityField: writePriorityField,
		priorityScale:      priorityScale,
		updatedBy:          updatedBy,
	}
}

func (w *KubernetesWriter) UpdateWorkloadPriority(ctx *drfcontext.Context, assignment *model.Assignment) (model.Outcome, error) {
	wl := assignment.Workload
	score := FormatScore(assignment.Score)
	rank := strconv.Itoa(assignment.Rank)
	priority := PriorityFromScore(assignment.Score, w.priorityScale)

	if wl.CurrentScore == score && wl.CurrentRank == rank &&
		(!w.writePriorityField || (wl.CurrentPriority != nil && *wl.CurrentPriority == priority)) {
		return model.OutcomeUnchanged, nil
	}

	patch := map[string]interface{}{
		"metadata": map[string]interface{}{
			"annotations": map[string]string{
				ScoreAnnotation:     score,
				RankAnnotation:      rank,
				UpdatedByAnnotation: w.updatedBy,
			},
		},
	}
	if w.writePriorityField {
		patch["spec"] = map[string]interface{}{"priority": priority}
	}
	data, err := json.Marshal(patch)
	if err != nil {
		return model.OutcomeFailed, errors.WithStack(err)
	}

	_, err = w.dynamicClient.Resource(WorkloadGVR).Namespace(wl.Namespace).Patch(ctx, wl.Name, types.MergePatchType, data, metav1.PatchOptions{})
	if apierrors.IsNotFound(err) {
		return model.OutcomeNotFound, nil
	} else if err != nil {
		return model.OutcomeFailed, errors.Wrapf(err, "error patching workload %s", wl.Id())
	}
	return model.OutcomeUpdated, nil
}

// FormatScore renders a score the way it's stored in the score annotation.
func FormatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', 6, 64)
}

// PriorityFromScore maps a score to a Kueue priority. Kueue admits higher priorities first,
// so the sign is flipped; the result is clamped to the int32 range.
func PriorityFromScore(score float64, scale float64) int32 {
	p := math.Round(-score * scale)
	switch {
	case math.IsNaN(p):
		return 0
	case p > math.MaxInt32:
		return math.MaxInt32
	case p < math.MinInt32:
		return math.MinInt32
	}
	return int32(p)
}
