package cluster

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/flowcontrol"

	"github.com/armadaproject/drf-controller/internal/common/drferrors"
)

type KubernetesClientProvider interface {
	Client() kubernetes.Interface
	DynamicClient() dynamic.Interface
	ClientConfig() *rest.Config
}

type ConfigKubernetesClientProvider struct {
	restConfig    *rest.Config
	client        kubernetes.Interface
	dynamicClient dynamic.Interface
}

func NewKubernetesClientProvider(qps float32, burst int) (*ConfigKubernetesClientProvider, error) {
	if qps <= 0 {
		return nil, errors.WithStack(&drferrors.ErrInvalidArgument{
			Name:    "qps",
			Value:   qps,
			Message: "qps must be positive",
		})
	}
	if burst <= 0 {
		return nil, errors.WithStack(&drferrors.ErrInvalidArgument{
			Name:    "burst",
			Value:   burst,
			Message: "burst must be positive",
		})
	}

	restConfig, err := loadConfig()
	if err != nil {
		return nil, errors.WithMessage(err, "error loading kubernetes client configuration")
	}

	// Share a single rate limiter between the typed and dynamic clients so that qps and burst
	// bound the total load this process puts on the API server.
	restConfig.RateLimiter = flowcontrol.NewTokenBucketRateLimiter(qps, burst)

	client, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	dynamicClient, err := dynamic.NewForConfig(restConfig)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return &ConfigKubernetesClientProvider{
		restConfig:    restConfig,
		client:        client,
		dynamicClient: dynamicClient,
	}, nil
}

func (c *ConfigKubernetesClientProvider) Client() kubernetes.Interface {
	return c.client
}

func (c *ConfigKubernetesClientProvider) DynamicClient() dynamic.Interface {
	return c.dynamicClient
}

func (c *ConfigKubernetesClientProvider) ClientConfig() *rest.Config {
	return c.restConfig
}

func loadConfig() (*rest.Config, error) {
	config, err := rest.InClusterConfig()
	if err == rest.ErrNotInCluster {
		log.Info("Running with default client configuration")
		rules := clientcmd.NewDefaultClientConfigLoadingRules()
		overrides := &clientcmd.ConfigOverrides{}
		return clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides).ClientConfig()
	}
	log.Info("Running with in cluster client configuration")
	return config, err
}
