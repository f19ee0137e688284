package drfscheduler

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"k8s.io/utils/clock"

	"github.com/armadaproject/drf-controller/internal/common/app"
	"github.com/armadaproject/drf-controller/internal/common/cluster"
	"github.com/armadaproject/drf-controller/internal/common/drfcontext"
	"github.com/armadaproject/drf-controller/internal/common/health"
	"github.com/armadaproject/drf-controller/internal/common/serve"
	"github.com/armadaproject/drf-controller/internal/drfscheduler/configuration"
	"github.com/armadaproject/drf-controller/internal/drfscheduler/kueue"
	"github.com/armadaproject/drf-controller/internal/drfscheduler/leader"
	"github.com/armadaproject/drf-controller/internal/drfscheduler/metrics"
)

// UpdatedBy is written to the updated-by annotation of every workload the controller changes.
const UpdatedBy = "drf-controller"

// Run sets up the controller and runs it until a SIGTERM is received
func Run(config configuration.Configuration) error {
	ctx := app.CreateContextWithShutdown(log.NewEntry(log.StandardLogger()))
	g, ctx := drfcontext.ErrGroup(ctx)

	//////////////////////////////////////////////////////////////////////////
	// Health Checks
	//////////////////////////////////////////////////////////////////////////
	mux := http.NewServeMux()
	startupCompleteCheck := health.NewStartupCompleteChecker()
	liveness := health.NewMultiChecker()
	readiness := health.NewMultiChecker(startupCompleteCheck)
	health.SetupHttpMux(mux, liveness, readiness)

	// List of services to run concurrently.
	// Services are only started once everything has been set up successfully.
	var services []func() error
	services = append(services, func() error {
		return serve.ListenAndServe(ctx, serve.NewHttpServer(config.Http.Port, mux))
	})

	//////////////////////////////////////////////////////////////////////////
	// Kubernetes
	//////////////////////////////////////////////////////////////////////////
	log.Infof("Setting up kubernetes clients")
	clientProvider, err := cluster.NewKubernetesClientProvider(config.Kubernetes.QPS, config.Kubernetes.Burst)
	if err != nil {
		return errors.WithMessage(err, "error creating kubernetes client")
	}
	if err := waitForApiServer(ctx, clientProvider, config.Kubernetes.StartupAttempts); err != nil {
		return err
	}
	source, err := newSource(config, clientProvider)
	if err != nil {
		return err
	}
	writer := kueue.NewKubernetesWriter(clientProvider.DynamicClient(), config.WritePriorityField, config.PriorityScale, UpdatedBy)

	//////////////////////////////////////////////////////////////////////////
	// Leader Election
	//////////////////////////////////////////////////////////////////////////
	leaderController, err := createLeaderController(config.Leader, clientProvider)
	if err != nil {
		return errors.WithMessage(err, "error creating leader controller")
	}
	services = append(services, func() error { return leaderController.Run(ctx) })

	//////////////////////////////////////////////////////////////////////////
	// Reconciliation
	//////////////////////////////////////////////////////////////////////////
	log.Infof("Setting up reconciliation loop")
	controllerMetrics := metrics.New()
	if err := prometheus.Register(controllerMetrics); err != nil {
		return errors.WithStack(err)
	}
	controller, err := NewController(config, source, writer, leaderController, clock.RealClock{}, controllerMetrics)
	if err != nil {
		return errors.WithMessage(err, "error creating controller")
	}
	liveness.Add(controller.Liveness())
	readiness.Add(controller)
	services = append(services, func() error { return controller.Run(ctx) })

	//////////////////////////////////////////////////////////////////////////
	// Metrics
	//////////////////////////////////////////////////////////////////////////
	services = append(services, func() error {
		return serve.ListenAndServe(ctx, serve.NewMetricsServer(config.Metrics.Port, metrics.GetMetricsGatherer()))
	})

	// start all services
	for _, service := range services {
		g.Go(service)
	}

	// Mark startup as complete, will allow the health check to return healthy
	startupCompleteCheck.MarkComplete()
	return g.Wait()
}

// Score runs a single pass against the cluster without writing anything back,
// and prints the resulting ranking to out.
func Score(config configuration.Configuration, out io.Writer) error {
	ctx := app.CreateContextWithShutdown(log.NewEntry(log.StandardLogger()))
	config.KueueEnabled = false

	clientProvider, err := cluster.NewKubernetesClientProvider(config.Kubernetes.QPS, config.Kubernetes.Burst)
	if err != nil {
		return errors.WithMessage(err, "error creating kubernetes client")
	}
	source, err := newSource(config, clientProvider)
	if err != nil {
		return err
	}
	controller, err := NewController(config, source, nil, leader.NewStandaloneLeaderController(), clock.RealClock{}, metrics.New())
	if err != nil {
		return errors.WithMessage(err, "error creating controller")
	}

	passCtx, cancel := drfcontext.WithTimeout(ctx, config.EffectivePassTimeout())
	defer cancel()
	report := controller.RunPass(passCtx)
	if report.ListErr != nil {
		return report.ListErr
	}
	if report.FatalErr != nil {
		return report.FatalErr
	}
	_, err = fmt.Fprint(out, FormatRanking(report.Plan))
	return errors.WithStack(err)
}

func newSource(config configuration.Configuration, clientProvider cluster.KubernetesClientProvider) (*kueue.KubernetesSource, error) {
	source, err := kueue.NewKubernetesSource(
		clientProvider.Client(),
		clientProvider.DynamicClient(),
		config.Namespace,
		config.NodeSelector,
		kueue.ClassResolver{
			DefaultClass:  config.DefaultPriorityClass,
			ApprovedClass: config.ApprovedPriorityClass,
		},
	)
	if err != nil {
		return nil, errors.WithMessage(err, "error creating workload source")
	}
	return source, nil
}

// waitForApiServer fails if the API server can't be reached within the given number of attempts.
func waitForApiServer(ctx *drfcontext.Context, clientProvider cluster.KubernetesClientProvider, attempts uint) error {
	err := retry.Do(
		func() error {
			version, err := clientProvider.Client().Discovery().ServerVersion()
			if err != nil {
				return err
			}
			ctx.Log.Infof("Connected to kubernetes %s", version.GitVersion)
			return nil
		},
		retry.Attempts(attempts),
		retry.Delay(time.Second),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			ctx.Log.WithError(err).Warnf("Kubernetes API server not reachable (attempt %d of %d)", n+1, attempts)
		}),
	)
	return errors.WithMessage(err, "error connecting to kubernetes")
}

func createLeaderController(config configuration.LeaderConfig, clientProvider cluster.KubernetesClientProvider) (leader.LeaderController, error) {
	switch config.Mode {
	case configuration.LeaderModeStandalone:
		log.Infof("Controller will run in standalone mode")
		return leader.NewStandaloneLeaderController(), nil
	case configuration.LeaderModeKubernetes:
		log.Infof("Controller will run in kubernetes mode")
		return leader.NewKubernetesLeaderController(config, clientProvider.Client().CoordinationV1()), nil
	default:
		return nil, errors.Errorf("%s is not a valid leader mode", config.Mode)
	}
}
