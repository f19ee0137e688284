package gang

import (
	"time"

	"golang.org/x/exp/slices"

	"github.com/armadaproject/drf-controller/internal/common/resource"
	"github.com/armadaproject/drf-controller/internal/drfscheduler/model"
)

// Group is a set of workloads scored as one unit. Standalone workloads form a group of one.
type Group struct {
	// Gang key for gangs, workload id otherwise.
	Key string
	// Members ordered by id.
	Members []*model.Workload
	gang    bool
}

func (g *Group) IsGang() bool {
	return g.gang
}

// Requests returns the sum of the requests of all members, i.e. what admitting the group at once would take.
func (g *Group) Requests() resource.ComputeResources {
	total := make(resource.ComputeResources)
	for _, member := range g.Members {
		total.Add(member.Requests)
	}
	return total
}

// EffectiveCreationTime is the creation time of the oldest member.
func (g *Group) EffectiveCreationTime() time.Time {
	var earliest time.Time
	for i, member := range g.Members {
		if i == 0 || member.CreationTime.Before(earliest) {
			earliest = member.CreationTime
		}
	}
	return earliest
}

// Resolve partitions workloads into gangs and standalone workloads.
// Groups are returned ordered by key, gangs after standalone workloads sharing the same key.
func Resolve(workloads []*model.Workload) []*Group {
	groups := make([]*Group, 0, len(workloads))
	gangs := make(map[string]*Group)
	for _, w := range workloads {
		key := w.GangKey()
		if key == "" {
			groups = append(groups, &Group{Key: w.Id(), Members: []*model.Workload{w}})
			continue
		}
		g, ok := gangs[key]
		if !ok {
			g = &Group{Key: key, gang: true}
			gangs[key] = g
			groups = append(groups, g)
		}
		g.Members = append(g.Members, w)
	}

	for _, g := range groups {
		slices.SortFunc(g.Members, func(a, b *model.Workload) bool {
			return a.Id() < b.Id()
		})
	}
	slices.SortStableFunc(groups, func(a, b *Group) bool {
		if a.Key != b.Key {
			return a.Key < b.Key
		}
		return !a.gang && b.gang
	})
	return groups
}
