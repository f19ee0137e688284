package drfscheduler

import (
	"strconv"

	"github.com/armadaproject/drf-controller/internal/common/util"
)

// FormatRanking renders the assignments of plan as a table, one row per workload in rank order.
func FormatRanking(plan *Plan) string {
	sb := util.NewTabbedStringBuilder(1, 1, 2, ' ', 0)
	sb.Row("RANK", "WORKLOAD", "QUEUE", "GANG", "CLASS", "WEIGHT", "DOMINANT", "SHARE", "AGING", "SCORE")
	for _, a := range plan.Assignments {
		queue := a.Workload.QueueName
		if queue == "" {
			queue = "-"
		}
		gang := a.Workload.GangKey()
		if gang == "" {
			gang = "-"
		}
		class := a.PriorityClass
		if a.UnknownClass {
			class += " (unknown)"
		}
		dominant := a.DominantResource
		if dominant == "" {
			dominant = "-"
		}
		sb.Row(
			a.Rank,
			a.Workload.Id(),
			queue,
			gang,
			class,
			a.Weight,
			dominant,
			strconv.FormatFloat(a.DominantShare, 'f', 4, 64),
			strconv.FormatFloat(a.AgingFactor, 'f', 4, 64),
			strconv.FormatFloat(a.Score, 'f', 4, 64),
		)
	}
	return sb.String()
}
