package drfscheduler

import (
	"fmt"
	"sync"
	"time"

	k8sResource "k8s.io/apimachinery/pkg/api/resource"

	"github.com/armadaproject/drf-controller/internal/common/drfcontext"
	"github.com/armadaproject/drf-controller/internal/common/resource"
	"github.com/armadaproject/drf-controller/internal/drfscheduler/configuration"
	"github.com/armadaproject/drf-controller/internal/drfscheduler/leader"
	"github.com/armadaproject/drf-controller/internal/drfscheduler/model"
)

var baseTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func testConfig() configuration.Configuration {
	return configuration.Default()
}

func cpuCapacity(cpu string) model.ClusterCapacity {
	return model.ClusterCapacity{
		Resources: resource.ComputeResources{"cpu": k8sResource.MustParse(cpu)},
		NodeCount: 1,
	}
}

func pendingWorkload(name, class, cpu string, created time.Time) *model.Workload {
	return &model.Workload{
		Namespace:     "default",
		Name:          name,
		PriorityClass: class,
		Requests:      resource.ComputeResources{"cpu": k8sResource.MustParse(cpu)},
		CreationTime:  created,
		State:         model.WorkloadStatePending,
	}
}

func gangMember(name, gangId, class, cpu string, created time.Time) *model.Workload {
	w := pendingWorkload(name, class, cpu, created)
	w.GangId = gangId
	return w
}

type fakeSource struct {
	mu          sync.Mutex
	workloads   []*model.Workload
	capacity    model.ClusterCapacity
	listErr     error
	capacityErr error
	listCalls   int
}

func (s *fakeSource) ListWorkloads(_ *drfcontext.Context) ([]*model.Workload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.workloads, nil
}

func (s *fakeSource) GetClusterCapacity(_ *drfcontext.Context) (model.ClusterCapacity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.capacityErr != nil {
		return model.ClusterCapacity{}, s.capacityErr
	}
	return s.capacity, nil
}

func (s *fakeSource) setListErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listErr = err
}

func (s *fakeSource) ListCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listCalls
}

// fakeWriter records every assignment it is asked to write.
// Workloads listed in notFound or failing get the corresponding outcome.
type fakeWriter struct {
	mu       sync.Mutex
	notFound map[string]bool
	failing  map[string]bool
	written  map[string]*model.Assignment
	calls    int
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{
		notFound: map[string]bool{},
		failing:  map[string]bool{},
		written:  map[string]*model.Assignment{},
	}
}

func (w *fakeWriter) UpdateWorkloadPriority(_ *drfcontext.Context, a *model.Assignment) (model.Outcome, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	id := a.Workload.Id()
	if w.notFound[id] {
		return model.OutcomeNotFound, nil
	}
	if w.failing[id] {
		return model.OutcomeFailed, fmt.Errorf("error patching workload %s: connection refused", id)
	}
	w.written[id] = a
	return model.OutcomeUpdated, nil
}

func (w *fakeWriter) Calls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls
}

// followerLeaderController is never leader.
type followerLeaderController struct{}

func (followerLeaderController) GetToken() leader.LeaderToken { return leader.InvalidLeaderToken() }

func (followerLeaderController) ValidateToken(leader.LeaderToken) bool { return false }

func (followerLeaderController) Run(*drfcontext.Context) error { return nil }

func (followerLeaderController) GetLeaderReport() leader.LeaderReport {
	return leader.LeaderReport{LeaderName: "someone-else"}
}

// revokedLeaderController hands out leader tokens which are no longer valid by the time they're checked.
type revokedLeaderController struct{}

func (revokedLeaderController) GetToken() leader.LeaderToken { return leader.NewLeaderToken() }

func (revokedLeaderController) ValidateToken(leader.LeaderToken) bool { return false }

func (revokedLeaderController) Run(*drfcontext.Context) error { return nil }

func (revokedLeaderController) GetLeaderReport() leader.LeaderReport {
	return leader.LeaderReport{}
}
