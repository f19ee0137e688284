package aging

import (
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/armadaproject/drf-controller/internal/common/drferrors"
)

// Adjuster computes how much a workload's score is lowered for the time it has spent waiting.
// The factor grows linearly with waiting time and saturates at MaxFactor so that items which are
// permanently blocked can't accumulate an unbounded advantage.
type Adjuster struct {
	alpha     float64
	unit      time.Duration
	maxFactor float64
}

// NewAdjuster creates an Adjuster growing by alpha per unit of waiting, saturating after maxAge.
func NewAdjuster(alpha float64, unit time.Duration, maxAge time.Duration) (*Adjuster, error) {
	if math.IsNaN(alpha) || math.IsInf(alpha, 0) || alpha < 0 {
		return nil, errors.WithStack(&drferrors.ErrInvalidArgument{
			Name:    "aging_alpha",
			Value:   alpha,
			Message: "must be finite and non-negative",
		})
	}
	if unit <= 0 {
		return nil, errors.WithStack(&drferrors.ErrInvalidArgument{
			Name:    "aging_time_unit",
			Value:   unit,
			Message: "must be positive",
		})
	}
	if maxAge < 0 {
		return nil, errors.WithStack(&drferrors.ErrInvalidArgument{
			Name:    "max_aging_hours",
			Value:   maxAge,
			Message: "must be non-negative",
		})
	}
	return &Adjuster{
		alpha:     alpha,
		unit:      unit,
		maxFactor: float64(maxAge) / float64(unit) * alpha,
	}, nil
}

// Factor returns min(MaxFactor, elapsed * alpha), with elapsed measured in fractional units from
// createdAt to now. A createdAt in the future counts as no waiting at all.
func (a *Adjuster) Factor(createdAt time.Time, now time.Time) float64 {
	elapsed := now.Sub(createdAt)
	if elapsed <= 0 {
		return 0
	}
	factor := float64(elapsed) / float64(a.unit) * a.alpha
	return math.Min(a.maxFactor, factor)
}

func (a *Adjuster) MaxFactor() float64 {
	return a.maxFactor
}
