package drfscheduler

import (
	"time"

	"golang.org/x/exp/slices"

	"github.com/armadaproject/drf-controller/internal/drfscheduler/aging"
	"github.com/armadaproject/drf-controller/internal/drfscheduler/configuration"
	"github.com/armadaproject/drf-controller/internal/drfscheduler/fairness"
	"github.com/armadaproject/drf-controller/internal/drfscheduler/gang"
	"github.com/armadaproject/drf-controller/internal/drfscheduler/model"
	"github.com/armadaproject/drf-controller/internal/drfscheduler/priority"
)

// Plan is the outcome of the computing step of a pass.
type Plan struct {
	// One assignment per pending workload, in rank order. Members of a gang are adjacent and ordered by id.
	Assignments []*model.Assignment
	// Number of scored units, i.e. gangs plus standalone workloads.
	Groups     int
	GangGroups int
	// Number of pending workloads per priority class with no configured weight.
	UnknownClasses map[string]int
}

// Planner computes priorities for a snapshot of the cluster. It holds no state between calls.
type Planner struct {
	weights             *priority.Weights
	adjuster            *aging.Adjuster
	resourcesToConsider []string
	tieBreak            configuration.TieBreak
}

func NewPlanner(config configuration.Configuration) (*Planner, error) {
	weights, err := priority.NewWeights(config.PriorityWeights, config.UnknownPriorityWeight)
	if err != nil {
		return nil, err
	}
	maxAge := time.Duration(config.MaxAgingHours * float64(time.Hour))
	adjuster, err := aging.NewAdjuster(config.AgingAlpha, config.AgingTimeUnit, maxAge)
	if err != nil {
		return nil, err
	}
	return &Planner{
		weights:             weights,
		adjuster:            adjuster,
		resourcesToConsider: config.ResourcesToConsider,
		tieBreak:            config.TieBreak,
	}, nil
}

// Plan scores every pending workload in snapshot. It's a pure function of its input.
func (p *Planner) Plan(snapshot model.Snapshot) *Plan {
	pending := make([]*model.Workload, 0, len(snapshot.Workloads))
	for _, w := range snapshot.Workloads {
		if w.IsPending() {
			pending = append(pending, w)
		}
	}

	drf := fairness.NewDominantResourceFairness(snapshot.Capacity, p.resourcesToConsider)
	groups := gang.Resolve(pending)
	plan := &Plan{
		Assignments:    make([]*model.Assignment, 0, len(pending)),
		Groups:         len(groups),
		UnknownClasses: make(map[string]int),
	}

	// One template assignment per group, used for ordering before being copied to the members.
	templates := make([]*model.Assignment, len(groups))
	for i, g := range groups {
		if g.IsGang() {
			plan.GangGroups++
		}
		class, weight, known := p.groupWeight(g)
		for _, member := range g.Members {
			if _, ok := p.weights.Weight(member.PriorityClass); !ok {
				plan.UnknownClasses[member.PriorityClass]++
			}
		}
		createdAt := g.EffectiveCreationTime()
		dominantResource, share := drf.DominantResource(g.Requests())
		agingFactor := p.adjuster.Factor(createdAt, snapshot.Now)
		templates[i] = &model.Assignment{
			Workload:              g.Members[0],
			GroupKey:              g.Key,
			PriorityClass:         class,
			Weight:                weight,
			UnknownClass:          !known,
			DominantResource:      dominantResource,
			DominantShare:         share,
			AgingFactor:           agingFactor,
			Score:                 priority.Score(weight, share, agingFactor),
			EffectiveCreationTime: createdAt,
		}
	}

	order := make([]int, len(groups))
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(a, b int) bool {
		return priority.Less(templates[a], templates[b], p.tieBreak)
	})

	for rank, idx := range order {
		template := templates[idx]
		for _, member := range groups[idx].Members {
			assignment := *template
			assignment.Workload = member
			assignment.Rank = rank + 1
			plan.Assignments = append(plan.Assignments, &assignment)
		}
	}
	return plan
}

// groupWeight returns the least favourable weight among the members of g, along with the class it came from.
// Ties between classes with the same weight resolve to the first member by id.
func (p *Planner) groupWeight(g *gang.Group) (string, int, bool) {
	var class string
	var weight int
	var known bool
	for i, member := range g.Members {
		memberWeight, memberKnown := p.weights.Weight(member.PriorityClass)
		if i == 0 || memberWeight > weight {
			class, weight, known = member.PriorityClass, memberWeight, memberKnown
		}
	}
	return class, weight, known
}
