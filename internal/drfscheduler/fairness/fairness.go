package fairness

import (
	"golang.org/x/exp/slices"

	"github.com/armadaproject/drf-controller/internal/common/resource"
	"github.com/armadaproject/drf-controller/internal/drfscheduler/model"
)

// DominantResourceFairness computes the share of the cluster a request would occupy
// along its most constrained resource.
type DominantResourceFairness struct {
	// Total resources across all nodes.
	totalResources resource.ComputeResourcesFloat
	// Resources considered when computing DominantResourceFairness. If empty, all resources are considered.
	resourcesToConsider []string
}

func NewDominantResourceFairness(capacity model.ClusterCapacity, resourcesToConsider []string) *DominantResourceFairness {
	totalResources := capacity.Resources.AsFloat()
	if totalResources == nil {
		totalResources = resource.ComputeResourcesFloat{}
	}
	return &DominantResourceFairness{
		totalResources:      totalResources,
		resourcesToConsider: slices.Clone(resourcesToConsider),
	}
}

// DominantShare returns max over resources r of requests[r] / capacity[r].
//
// Resources with zero capacity are excluded rather than treated as an infinite share, and
// resources missing from the capacity altogether contribute nothing. The result is in [0, 1]
// whenever no request exceeds the capacity of its resource.
func (f *DominantResourceFairness) DominantShare(requests resource.ComputeResources) float64 {
	_, share := f.DominantResource(requests)
	return share
}

// DominantResource is like DominantShare but also returns the resource the share was computed from.
// The returned name is empty if no considered resource had a positive share.
func (f *DominantResourceFairness) DominantResource(requests resource.ComputeResources) (string, float64) {
	var dominant string
	var share float64
	for _, t := range f.resourceNames(requests) {
		capacity, ok := f.totalResources[t]
		if !ok || capacity <= 0 {
			// Ignore any resources with zero capacity.
			continue
		}
		q, ok := requests[t]
		if !ok {
			continue
		}
		tshare := resource.QuantityAsFloat64(q) / capacity
		if tshare > share {
			share = tshare
			dominant = t
		}
	}
	return dominant, share
}

func (f *DominantResourceFairness) resourceNames(requests resource.ComputeResources) []string {
	if len(f.resourcesToConsider) > 0 {
		return f.resourcesToConsider
	}
	// Sorted so that ties between resources resolve the same way on every pass.
	return requests.Names()
}
