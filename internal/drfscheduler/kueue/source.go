package kueue

import (
	"github.com/pkg/errors"
	v1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"

	"github.com/armadaproject/drf-controller/internal/common/drfcontext"
	"github.com/armadaproject/drf-controller/internal/common/resource"
	"github.com/armadaproject/drf-controller/internal/drfscheduler/model"
)

const listPageSize = 500

// WorkloadSource reads the state a pass is computed from.
type WorkloadSource interface {
	// ListWorkloads returns all workloads, pending or not, ordered as returned by the API server.
	ListWorkloads(ctx *drfcontext.Context) ([]*model.Workload, error)
	GetClusterCapacity(ctx *drfcontext.Context) (model.ClusterCapacity, error)
}

type KubernetesSource struct {
	client        kubernetes.Interface
	dynamicClient dynamic.Interface
	namespace     string
	nodeSelector  labels.Selector
	resolver      ClassResolver
}

func NewKubernetesSource(
	client kubernetes.Interface,
	dynamicClient dynamic.Interface,
	namespace string,
	nodeSelector string,
	resolver ClassResolver,
) (*KubernetesSource, error) {
	selector, err := labels.Parse(nodeSelector)
	if err != nil {
		return nil, errors.Wrapf(err, "error parsing node selector %q", nodeSelector)
	}
	return &KubernetesSource{
		client:        client,
		dynamicClient: dynamicClient,
		namespace:     namespace,
		nodeSelector:  selector,
		resolver:      resolver,
	}, nil
}

func (s *KubernetesSource) ListWorkloads(ctx *drfcontext.Context) ([]*model.Workload, error) {
	var workloads []*model.Workload
	opts := metav1.ListOptions{Limit: listPageSize}
	for {
		list, err := s.dynamicClient.Resource(WorkloadGVR).Namespace(s.namespace).List(ctx, opts)
		if err != nil {
			return nil, errors.WithMessage(err, "error listing workloads")
		}
		for i := range list.Items {
			wl, err := FromUnstructured(&list.Items[i])
			if err != nil {
				ctx.Log.WithError(err).Warnf("Skipping workload %s/%s", list.Items[i].GetNamespace(), list.Items[i].GetName())
				continue
			}
			workloads = append(workloads, ToModel(wl, s.resolver))
		}
		if list.GetContinue() == "" {
			break
		}
		opts.Continue = list.GetContinue()
	}
	return workloads, nil
}

// GetClusterCapacity sums the allocatable resources of all schedulable nodes matching the node selector.
func (s *KubernetesSource) GetClusterCapacity(ctx *drfcontext.Context) (model.ClusterCapacity, error) {
	nodeList, err := s.client.CoreV1().Nodes().List(ctx, metav1.ListOptions{LabelSelector: s.nodeSelector.String()})
	if err != nil {
		return model.ClusterCapacity{}, errors.WithMessage(err, "error listing nodes")
	}
	nodes := make([]*v1.Node, 0, len(nodeList.Items))
	for i := range nodeList.Items {
		node := &nodeList.Items[i]
		if node.Spec.Unschedulable {
			continue
		}
		nodes = append(nodes, node)
	}
	return model.ClusterCapacity{
		Resources: resource.CalculateTotalResource(nodes),
		NodeCount: len(nodes),
	}, nil
}
