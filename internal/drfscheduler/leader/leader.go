// Package leader decides which replica of the controller may write priorities back to Kueue.
//
// Every pass takes a token before listing the cluster and checks it is still valid before
// writing anything, so a replica that loses its lease mid-pass never overwrites the priorities
// written by its successor.
package leader

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	coordinationv1client "k8s.io/client-go/kubernetes/typed/coordination/v1"
	"k8s.io/client-go/tools/leaderelection"
	"k8s.io/client-go/tools/leaderelection/resourcelock"

	"github.com/armadaproject/drf-controller/internal/common/drfcontext"
	"github.com/armadaproject/drf-controller/internal/drfscheduler/configuration"
)

type LeaderController interface {
	// GetToken returns the token for the current leadership term.
	GetToken() LeaderToken
	// ValidateToken reports whether tok is a leader token for the term that is still current.
	ValidateToken(tok LeaderToken) bool
	// Run takes part in leader election until ctx is cancelled.
	Run(ctx *drfcontext.Context) error
	GetLeaderReport() LeaderReport
}

type LeaderReport struct {
	IsCurrentProcessLeader bool
	LeaderName             string
}

// LeaderToken identifies one leadership term of this replica.
// Tokens from different terms never compare equal, even if both are leader tokens.
type LeaderToken struct {
	leader bool
	id     uuid.UUID
}

func InvalidLeaderToken() LeaderToken {
	return LeaderToken{id: uuid.New()}
}

func NewLeaderToken() LeaderToken {
	return LeaderToken{leader: true, id: uuid.New()}
}

func (t LeaderToken) Leader() bool {
	return t.leader
}

// sameTerm reports whether t is a leader token issued for the term current holds.
func (t LeaderToken) sameTerm(current LeaderToken) bool {
	return t.leader && t.id == current.id
}

// StandaloneLeaderController is used when a single replica runs. It leads for its whole lifetime.
type StandaloneLeaderController struct {
	token LeaderToken
}

func NewStandaloneLeaderController() *StandaloneLeaderController {
	return &StandaloneLeaderController{token: NewLeaderToken()}
}

func (lc *StandaloneLeaderController) GetToken() LeaderToken {
	return lc.token
}

func (lc *StandaloneLeaderController) ValidateToken(tok LeaderToken) bool {
	return tok.sameTerm(lc.token)
}

func (lc *StandaloneLeaderController) Run(_ *drfcontext.Context) error {
	return nil
}

func (lc *StandaloneLeaderController) GetLeaderReport() LeaderReport {
	return LeaderReport{LeaderName: "standalone", IsCurrentProcessLeader: true}
}

// KubernetesLeaderController holds a coordination.k8s.io Lease while this replica writes priorities.
// Replicas without the lease skip their passes.
type KubernetesLeaderController struct {
	config configuration.LeaderConfig
	lock   *resourcelock.LeaseLock
	token  atomic.Value

	mu            sync.Mutex
	currentLeader string
}

func NewKubernetesLeaderController(config configuration.LeaderConfig, client coordinationv1client.LeasesGetter) *KubernetesLeaderController {
	lc := &KubernetesLeaderController{
		config: config,
		lock: &resourcelock.LeaseLock{
			LeaseMeta: metav1.ObjectMeta{
				Name:      config.LeaseLockName,
				Namespace: config.LeaseLockNamespace,
			},
			Client:     client,
			LockConfig: resourcelock.ResourceLockConfig{Identity: config.PodName},
		},
	}
	lc.token.Store(InvalidLeaderToken())
	return lc
}

func (lc *KubernetesLeaderController) GetToken() LeaderToken {
	return lc.token.Load().(LeaderToken)
}

func (lc *KubernetesLeaderController) ValidateToken(tok LeaderToken) bool {
	return tok.sameTerm(lc.GetToken())
}

// Run campaigns for the lease, and campaigns again each time it is lost, until ctx is cancelled.
// The lease is released on cancellation so another replica can take over without waiting for expiry.
func (lc *KubernetesLeaderController) Run(ctx *drfcontext.Context) error {
	log := ctx.Log.WithFields(logrus.Fields{
		"service": "leaderElection",
		"lease":   lc.lock.Describe(),
		"pod":     lc.config.PodName,
	})
	elector, err := leaderelection.NewLeaderElector(leaderelection.LeaderElectionConfig{
		Lock:            lc.lock,
		ReleaseOnCancel: true,
		LeaseDuration:   lc.config.LeaseDuration,
		RenewDeadline:   lc.config.RenewDeadline,
		RetryPeriod:     lc.config.RetryPeriod,
		Callbacks: leaderelection.LeaderCallbacks{
			OnStartedLeading: func(context.Context) {
				log.Info("Acquired lease; this replica now writes priorities")
				lc.token.Store(NewLeaderToken())
			},
			OnStoppedLeading: func() {
				if lc.GetToken().Leader() {
					log.Info("Lost lease; passes are skipped until it is reacquired")
				}
				lc.token.Store(InvalidLeaderToken())
			},
			OnNewLeader: lc.setCurrentLeader,
		},
	})
	if err != nil {
		return errors.WithStack(err)
	}
	for ctx.Err() == nil {
		log.Debug("Campaigning for lease")
		elector.Run(ctx)
	}
	return nil
}

func (lc *KubernetesLeaderController) setCurrentLeader(identity string) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.currentLeader = identity
}

func (lc *KubernetesLeaderController) GetLeaderReport() LeaderReport {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return LeaderReport{
		LeaderName:             lc.currentLeader,
		IsCurrentProcessLeader: lc.currentLeader == lc.config.PodName,
	}
}
