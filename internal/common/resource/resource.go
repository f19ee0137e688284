package resource

import (
	"math"
	"math/big"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	v1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
)

// ComputeResources maps a resource name (e.g. "cpu", "memory", "nvidia.com/gpu") to a quantity.
type ComputeResources map[string]resource.Quantity

func FromResourceList(list v1.ResourceList) ComputeResources {
	resources := make(ComputeResources, len(list))
	for k, v := range list {
		resources[string(k)] = v.DeepCopy()
	}
	return resources
}

// Add adds b to a in place.
func (a ComputeResources) Add(b ComputeResources) {
	for k, v := range b {
		existing, ok := a[k]
		if ok {
			existing.Add(v)
			a[k] = existing
		} else {
			a[k] = v.DeepCopy()
		}
	}
}

// Max sets each entry of a to the larger of a and b.
func (a ComputeResources) Max(b ComputeResources) {
	for k, v := range b {
		existing, ok := a[k]
		if !ok || v.Cmp(existing) > 0 {
			a[k] = v.DeepCopy()
		}
	}
}

// Scale returns a copy of a with every quantity multiplied by factor.
func (a ComputeResources) Scale(factor int64) ComputeResources {
	scaled := make(ComputeResources, len(a))
	for k, v := range a {
		scaled[k] = *resource.NewMilliQuantity(v.MilliValue()*factor, v.Format)
	}
	return scaled
}

func (a ComputeResources) DeepCopy() ComputeResources {
	cpy := make(ComputeResources, len(a))
	for key, value := range a {
		cpy[key] = value.DeepCopy()
	}
	return cpy
}

func (a ComputeResources) AsFloat() ComputeResourcesFloat {
	floats := make(ComputeResourcesFloat, len(a))
	for key, value := range a {
		floats[key] = QuantityAsFloat64(value)
	}
	return floats
}

// Names returns the resource names of a in sorted order.
func (a ComputeResources) Names() []string {
	names := maps.Keys(a)
	slices.Sort(names)
	return names
}

func QuantityAsFloat64(q resource.Quantity) float64 {
	dec := q.AsDec()
	unscaled := dec.UnscaledBig()
	scale := dec.Scale()
	unscaledFloat, _ := new(big.Float).SetInt(unscaled).Float64()
	return unscaledFloat * math.Pow10(-int(scale))
}

// ComputeResourcesFloat is the float version of ComputeResources. Prefer calculations with
// quantities where possible; floats are used for share arithmetic only.
type ComputeResourcesFloat map[string]float64

func (a ComputeResourcesFloat) Add(b ComputeResourcesFloat) {
	for k, v := range b {
		a[k] += v
	}
}

func (a ComputeResourcesFloat) DeepCopy() ComputeResourcesFloat {
	cpy := make(ComputeResourcesFloat, len(a))
	for key, value := range a {
		cpy[key] = value
	}
	return cpy
}

// TotalResourceRequest returns the resource request of a single pod. It is the maximum of:
//   - sum of all containers
//   - any individual init container
//
// Containers run in parallel so their requests add up, whereas init containers run sequentially.
func TotalResourceRequest(podSpec *v1.PodSpec) ComputeResources {
	totalResources := make(ComputeResources)
	for _, container := range podSpec.Containers {
		totalResources.Add(FromResourceList(container.Resources.Requests))
	}
	for _, initContainer := range podSpec.InitContainers {
		totalResources.Max(FromResourceList(initContainer.Resources.Requests))
	}
	if podSpec.Overhead != nil {
		totalResources.Add(FromResourceList(podSpec.Overhead))
	}
	return totalResources
}

// CalculateTotalResource sums the allocatable resources of the given nodes.
func CalculateTotalResource(nodes []*v1.Node) ComputeResources {
	totalResources := make(ComputeResources)
	for _, node := range nodes {
		totalResources.Add(FromResourceList(node.Status.Allocatable))
	}
	return totalResources
}
