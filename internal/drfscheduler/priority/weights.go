package priority

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/armadaproject/drf-controller/internal/common/drferrors"
)

// Weights maps the configured priority classes to their static weight. Lower weights are
// scheduled first. Any class outside the configured set gets the unknown weight, which by
// default is the least favourable configured weight.
type Weights struct {
	weights       map[string]int
	unknownWeight int
	classes       []string
}

func NewWeights(weights map[string]int, unknownWeight *int) (*Weights, error) {
	if len(weights) == 0 {
		return nil, errors.WithStack(&drferrors.ErrInvalidArgument{
			Name:    "priority_weights",
			Value:   weights,
			Message: "at least one priority class must be configured",
		})
	}
	classes := maps.Keys(weights)
	slices.Sort(classes)

	w := &Weights{
		weights: maps.Clone(weights),
		classes: classes,
	}
	w.unknownWeight = w.maxWeight()
	if unknownWeight != nil {
		if *unknownWeight < w.unknownWeight {
			return nil, errors.WithStack(&drferrors.ErrInvalidArgument{
				Name:    "unknown_priority_weight",
				Value:   *unknownWeight,
				Message: "must not be lower than the highest configured weight",
			})
		}
		w.unknownWeight = *unknownWeight
	}
	return w, nil
}

// Weight returns the weight of class and whether class is one of the configured classes.
func (w *Weights) Weight(class string) (int, bool) {
	if weight, ok := w.weights[class]; ok {
		return weight, true
	}
	return w.unknownWeight, false
}

func (w *Weights) UnknownWeight() int {
	return w.unknownWeight
}

// Classes returns the configured classes in sorted order.
func (w *Weights) Classes() []string {
	return slices.Clone(w.classes)
}

func (w *Weights) maxWeight() int {
	max := w.weights[w.classes[0]]
	for _, class := range w.classes[1:] {
		if w.weights[class] > max {
			max = w.weights[class]
		}
	}
	return max
}
