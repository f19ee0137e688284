package drfscheduler

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"k8s.io/utils/clock"

	"github.com/armadaproject/drf-controller/internal/common/drfcontext"
	"github.com/armadaproject/drf-controller/internal/common/health"
	"github.com/armadaproject/drf-controller/internal/common/logging"
	"github.com/armadaproject/drf-controller/internal/drfscheduler/configuration"
	"github.com/armadaproject/drf-controller/internal/drfscheduler/kueue"
	"github.com/armadaproject/drf-controller/internal/drfscheduler/leader"
	"github.com/armadaproject/drf-controller/internal/drfscheduler/metrics"
	"github.com/armadaproject/drf-controller/internal/drfscheduler/model"
)

// PassReport summarises one reconciliation pass.
type PassReport struct {
	PassId   string
	Start    time.Time
	Duration time.Duration
	// True if this instance wasn't leader and the pass did nothing.
	Follower bool
	// True if priorities were computed but not written back.
	DryRun bool
	Plan   *Plan
	// Number of write-backs per outcome.
	Outcomes map[model.Outcome]int
	// Write-back errors, aggregated. These never abort a pass.
	WriteBackErr error
	// Set if the cluster couldn't be listed. The pass computes nothing but is retried next tick.
	ListErr error
	// Set if the pass failed in a way that should fail readiness: every write-back failed,
	// or listing has failed for several consecutive passes.
	FatalErr error
}

func (r *PassReport) Result() string {
	switch {
	case r.FatalErr != nil, r.ListErr != nil:
		return metrics.PassFailed
	case r.Follower:
		return metrics.PassSkipped
	default:
		return metrics.PassSucceeded
	}
}

func (r *PassReport) logFields() logrus.Fields {
	fields := logrus.Fields{
		"duration": r.Duration,
		"dryRun":   r.DryRun,
	}
	if r.Plan != nil {
		fields["workloads"] = len(r.Plan.Assignments)
		fields["groups"] = r.Plan.Groups
		fields["gangs"] = r.Plan.GangGroups
	}
	for _, outcome := range model.Outcomes {
		fields[string(outcome)] = r.Outcomes[outcome]
	}
	return fields
}

// Controller periodically recomputes the priority of every pending workload and writes it back
// to the queueing layer.
//
// Each pass lists the cluster, computes a plan from that snapshot and writes the plan back.
// Passes don't depend on each other, so a pass that fails is simply retried on the next tick.
type Controller struct {
	source           kueue.WorkloadSource
	writer           kueue.PriorityWriter
	planner          *Planner
	leaderController leader.LeaderController
	clock            clock.WithTicker
	metrics          *metrics.Metrics
	heartbeat        *health.HeartbeatChecker

	interval             time.Duration
	passTimeout          time.Duration
	parallelism          int
	writeBackOn          bool
	listFailureThreshold int

	mu                   sync.Mutex
	fatalErr             error
	consecutiveListFails int
}

func NewController(
	config configuration.Configuration,
	source kueue.WorkloadSource,
	writer kueue.PriorityWriter,
	leaderController leader.LeaderController,
	clock clock.WithTicker,
	metrics *metrics.Metrics,
) (*Controller, error) {
	planner, err := NewPlanner(config)
	if err != nil {
		return nil, err
	}
	return &Controller{
		source:               source,
		writer:               writer,
		planner:              planner,
		leaderController:     leaderController,
		clock:                clock,
		metrics:              metrics,
		heartbeat:            health.NewHeartbeatChecker("reconciliation loop", config.LivenessTimeout(), clock),
		interval:             config.Interval(),
		passTimeout:          config.EffectivePassTimeout(),
		parallelism:          config.WriteBackParallelism,
		writeBackOn:          config.KueueEnabled,
		listFailureThreshold: config.ListingFailureThreshold,
	}, nil
}

// Run executes a pass immediately and then once per interval until ctx is cancelled.
// Cancelling ctx doesn't interrupt a pass in progress; Run returns once it has completed.
func (c *Controller) Run(ctx *drfcontext.Context) error {
	ctx.Log.Infof("Starting reconciliation loop with interval %s (write-back enabled: %t)", c.interval, c.writeBackOn)
	ticker := c.clock.NewTicker(c.interval)
	defer ticker.Stop()

	c.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			ctx.Log.Info("Reconciliation loop stopped")
			return nil
		case <-ticker.C():
			if ctx.Err() != nil {
				continue
			}
			c.tick(ctx)
		}
	}
}

func (c *Controller) tick(ctx *drfcontext.Context) {
	c.heartbeat.Beat()
	passCtx, cancel := drfcontext.WithTimeout(drfcontext.Detached(ctx), c.passTimeout)
	defer cancel()
	c.RunPass(passCtx)
	c.heartbeat.Beat()
}

// RunPass executes a single pass and returns its report.
func (c *Controller) RunPass(ctx *drfcontext.Context) *PassReport {
	report := &PassReport{
		PassId:   uuid.NewString(),
		Start:    c.clock.Now(),
		DryRun:   !c.writeBackOn,
		Outcomes: make(map[model.Outcome]int),
	}
	ctx = drfcontext.WithLogField(ctx, "passId", report.PassId)

	c.runPass(ctx, report)

	report.Duration = c.clock.Since(report.Start)
	// A listing failure below the threshold leaves readiness as the previous pass left it.
	if report.ListErr == nil || report.FatalErr != nil {
		c.setFatalErr(report.FatalErr)
	}
	c.metrics.ObservePass(report.Result(), report.Duration)
	switch {
	case report.FatalErr != nil:
		logging.WithStacktrace(ctx.Log.WithFields(report.logFields()), report.FatalErr).Error("Reconciliation pass failed")
	case report.ListErr != nil:
		ctx.Log.WithFields(report.logFields()).WithError(report.ListErr).Warn("Failed to list cluster; retrying next pass")
	case report.Follower:
		ctx.Log.Debug("Not leader; skipping reconciliation pass")
	default:
		log := ctx.Log.WithFields(report.logFields())
		if report.WriteBackErr != nil {
			log = log.WithError(report.WriteBackErr)
		}
		log.Info("Completed reconciliation pass")
	}
	return report
}

func (c *Controller) runPass(ctx *drfcontext.Context, report *PassReport) {
	token := c.leaderController.GetToken()
	c.metrics.SetLeader(token.Leader())
	if !token.Leader() {
		report.Follower = true
		return
	}

	snapshot, err := c.list(ctx)
	if failures := c.recordListResult(err); err != nil {
		report.ListErr = err
		if failures >= c.listFailureThreshold {
			report.FatalErr = errors.WithMessagef(err, "listing failed in %d consecutive passes", failures)
		}
		return
	}

	plan := c.planner.Plan(snapshot)
	report.Plan = plan
	c.metrics.ReportAssignments(plan.Assignments, plan.Groups, plan.GangGroups)
	c.warnUnknownClasses(ctx, plan)

	if !c.writeBackOn {
		report.Outcomes[model.OutcomeSkipped] = len(plan.Assignments)
		for _, a := range plan.Assignments {
			ctx.Log.WithFields(assignmentFields(a)).Debug("Write-back disabled; not updating workload")
		}
		return
	}
	// Leadership may have been lost while listing; a stale leader mustn't overwrite the new one.
	if !c.leaderController.ValidateToken(token) {
		ctx.Log.Warn("Lost leadership during pass; not writing back")
		report.Outcomes[model.OutcomeSkipped] = len(plan.Assignments)
		return
	}

	report.WriteBackErr = c.writeBack(ctx, plan.Assignments, report.Outcomes)
	failed := report.Outcomes[model.OutcomeFailed]
	if failed > 0 && failed == len(plan.Assignments) {
		report.FatalErr = errors.WithMessage(report.WriteBackErr, "every write-back in the pass failed")
	}
}

// list fetches workloads and capacity concurrently.
func (c *Controller) list(ctx *drfcontext.Context) (model.Snapshot, error) {
	var workloads []*model.Workload
	var capacity model.ClusterCapacity
	g, groupCtx := drfcontext.ErrGroup(ctx)
	g.Go(func() error {
		var err error
		workloads, err = c.source.ListWorkloads(groupCtx)
		return err
	})
	g.Go(func() error {
		var err error
		capacity, err = c.source.GetClusterCapacity(groupCtx)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.Snapshot{}, err
	}
	return model.Snapshot{
		Workloads: workloads,
		Capacity:  capacity,
		Now:       c.clock.Now(),
	}, nil
}

// writeBack writes every assignment, recording the outcome of each in outcomes.
// Failures are isolated per workload: every assignment is attempted regardless of other failures.
func (c *Controller) writeBack(ctx *drfcontext.Context, assignments []*model.Assignment, outcomes map[model.Outcome]int) error {
	var mu sync.Mutex
	var result *multierror.Error

	g, groupCtx := drfcontext.ErrGroup(ctx)
	g.SetLimit(c.parallelism)
	for _, a := range assignments {
		a := a
		g.Go(func() error {
			itemCtx := drfcontext.WithLogFields(groupCtx, assignmentFields(a))
			outcome, err := c.writer.UpdateWorkloadPriority(itemCtx, a)
			switch outcome {
			case model.OutcomeNotFound:
				itemCtx.Log.Debug("Workload no longer exists; skipping")
			case model.OutcomeFailed:
				itemCtx.Log.WithError(err).Warn("Failed to update workload priority")
			}
			c.metrics.ObserveWriteBack(outcome)

			mu.Lock()
			defer mu.Unlock()
			outcomes[outcome]++
			if err != nil {
				result = multierror.Append(result, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return result.ErrorOrNil()
}

func (c *Controller) warnUnknownClasses(ctx *drfcontext.Context, plan *Plan) {
	classes := maps.Keys(plan.UnknownClasses)
	slices.Sort(classes)
	for _, class := range classes {
		count := plan.UnknownClasses[class]
		c.metrics.ObserveUnknownPriorityClass(class, count)
		weight, _ := c.planner.weights.Weight(class)
		ctx.Log.Warnf("%d workloads reference priority class %q which has no configured weight; using weight %d", count, class, weight)
	}
}

// recordListResult returns the number of consecutive passes that have failed to list the cluster.
func (c *Controller) recordListResult(err error) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		c.consecutiveListFails = 0
	} else {
		c.consecutiveListFails++
	}
	return c.consecutiveListFails
}

func (c *Controller) setFatalErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fatalErr = err
}

// Check implements health.Checker. It fails if the last pass failed as a whole.
func (c *Controller) Check() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fatalErr != nil {
		return errors.WithMessage(c.fatalErr, "last reconciliation pass failed")
	}
	return nil
}

// Liveness fails if the loop hasn't ticked for several intervals.
func (c *Controller) Liveness() health.Checker {
	return c.heartbeat
}

func assignmentFields(a *model.Assignment) logrus.Fields {
	return logrus.Fields{
		"workload": a.Workload.Id(),
		"gang":     a.Workload.GangKey(),
		"score":    a.Score,
		"rank":     a.Rank,
	}
}
