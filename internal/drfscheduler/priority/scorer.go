package priority

import (
	"github.com/armadaproject/drf-controller/internal/drfscheduler/configuration"
	"github.com/armadaproject/drf-controller/internal/drfscheduler/model"
)

// Score combines the three inputs into a single value. Lower scores are scheduled first.
func Score(weight int, dominantShare float64, agingFactor float64) float64 {
	return float64(weight) + dominantShare - agingFactor
}

// Less reports whether a should be scheduled before b.
// Assignments are ordered by score, then (unless tieBreak is id) by effective creation time,
// then by group key. The id of the workload is compared last so that the order is total.
func Less(a, b *model.Assignment, tieBreak configuration.TieBreak) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	if tieBreak != configuration.TieBreakId && !a.EffectiveCreationTime.Equal(b.EffectiveCreationTime) {
		return a.EffectiveCreationTime.Before(b.EffectiveCreationTime)
	}
	if a.GroupKey != b.GroupKey {
		return a.GroupKey < b.GroupKey
	}
	return a.Workload.Id() < b.Workload.Id()
}
