package drfscheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	v1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	k8sResource "k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	"k8s.io/client-go/kubernetes/fake"
	clienttesting "k8s.io/client-go/testing"
	clock "k8s.io/utils/clock/testing"

	"github.com/armadaproject/drf-controller/internal/common/drfcontext"
	"github.com/armadaproject/drf-controller/internal/drfscheduler/kueue"
	"github.com/armadaproject/drf-controller/internal/drfscheduler/leader"
	"github.com/armadaproject/drf-controller/internal/drfscheduler/metrics"
	"github.com/armadaproject/drf-controller/internal/drfscheduler/model"
)

func kueueWorkload(t *testing.T, name, cpu string, created time.Time, annotations map[string]string) runtime.Object {
	wl := &kueue.Workload{
		TypeMeta: metav1.TypeMeta{APIVersion: kueue.WorkloadGVR.GroupVersion().String(), Kind: kueue.WorkloadKind},
		ObjectMeta: metav1.ObjectMeta{
			Namespace:         "default",
			Name:              name,
			CreationTimestamp: metav1.NewTime(created),
			Annotations:       annotations,
		},
		Spec: kueue.WorkloadSpec{
			QueueName: "main",
			PodSets: []kueue.PodSet{
				{
					Name:  "main",
					Count: 1,
					Template: v1.PodTemplateSpec{Spec: v1.PodSpec{Containers: []v1.Container{
						{
							Name: "main",
							Resources: v1.ResourceRequirements{
								Requests: v1.ResourceList{v1.ResourceCPU: k8sResource.MustParse(cpu)},
							},
						},
					}}},
				},
			},
		},
	}
	content, err := runtime.DefaultUnstructuredConverter.ToUnstructured(wl)
	require.NoError(t, err)
	return &unstructured.Unstructured{Object: content}
}

func newKueueController(t *testing.T, objects ...runtime.Object) (*Controller, *dynamicfake.FakeDynamicClient) {
	config := testConfig()
	client := fake.NewSimpleClientset(&v1.Node{
		ObjectMeta: metav1.ObjectMeta{Name: "node-1"},
		Status: v1.NodeStatus{Allocatable: v1.ResourceList{
			v1.ResourceCPU:    k8sResource.MustParse("10"),
			v1.ResourceMemory: k8sResource.MustParse("64Gi"),
		}},
	})
	dynamicClient := dynamicfake.NewSimpleDynamicClientWithCustomListKinds(
		runtime.NewScheme(),
		map[schema.GroupVersionResource]string{kueue.WorkloadGVR: kueue.WorkloadListKind},
		objects...,
	)
	source, err := kueue.NewKubernetesSource(client, dynamicClient, config.Namespace, config.NodeSelector, kueue.ClassResolver{
		DefaultClass:  config.DefaultPriorityClass,
		ApprovedClass: config.ApprovedPriorityClass,
	})
	require.NoError(t, err)
	writer := kueue.NewKubernetesWriter(dynamicClient, config.WritePriorityField, config.PriorityScale, "drf-controller")
	controller, err := NewController(config, source, writer, leader.NewStandaloneLeaderController(), clock.NewFakeClock(baseTime), metrics.New())
	require.NoError(t, err)
	return controller, dynamicClient
}

func TestKueue_SecondPassWritesNothing(t *testing.T) {
	controller, dynamicClient := newKueueController(t,
		kueueWorkload(t, "w1", "2", baseTime, nil),
		kueueWorkload(t, "w2", "8", baseTime, map[string]string{"priority": "approved"}),
		kueueWorkload(t, "g1", "3", baseTime.Add(-time.Hour), map[string]string{kueue.GangIdAnnotation: "train"}),
		kueueWorkload(t, "g2", "3", baseTime, map[string]string{kueue.GangIdAnnotation: "train"}),
	)

	first := controller.RunPass(drfcontext.Background())
	require.NoError(t, first.FatalErr)
	assert.Equal(t, map[model.Outcome]int{model.OutcomeUpdated: 4}, first.Outcomes)

	w2, err := dynamicClient.Resource(kueue.WorkloadGVR).Namespace("default").Get(drfcontext.Background(), "w2", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "0.800000", w2.GetAnnotations()[kueue.ScoreAnnotation])
	assert.Equal(t, "1", w2.GetAnnotations()[kueue.RankAnnotation])

	g1, err := dynamicClient.Resource(kueue.WorkloadGVR).Namespace("default").Get(drfcontext.Background(), "g1", metav1.GetOptions{})
	require.NoError(t, err)
	g2, err := dynamicClient.Resource(kueue.WorkloadGVR).Namespace("default").Get(drfcontext.Background(), "g2", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, g1.GetAnnotations()[kueue.ScoreAnnotation], g2.GetAnnotations()[kueue.ScoreAnnotation])
	assert.Equal(t, g1.GetAnnotations()[kueue.RankAnnotation], g2.GetAnnotations()[kueue.RankAnnotation])

	second := controller.RunPass(drfcontext.Background())
	require.NoError(t, second.FatalErr)
	assert.Equal(t, map[model.Outcome]int{model.OutcomeUnchanged: 4}, second.Outcomes)
}

func TestKueue_WorkloadDeletedDuringPass(t *testing.T) {
	controller, dynamicClient := newKueueController(t,
		kueueWorkload(t, "g1", "2", baseTime, map[string]string{kueue.GangIdAnnotation: "train"}),
		kueueWorkload(t, "g2", "2", baseTime, map[string]string{kueue.GangIdAnnotation: "train"}),
		kueueWorkload(t, "g3", "2", baseTime, map[string]string{kueue.GangIdAnnotation: "train"}),
	)
	// g2 disappears between listing and write-back.
	dynamicClient.PrependReactor("patch", "workloads", func(action clienttesting.Action) (bool, runtime.Object, error) {
		if action.(clienttesting.PatchAction).GetName() == "g2" {
			return true, nil, apierrors.NewNotFound(kueue.WorkloadGVR.GroupResource(), "g2")
		}
		return false, nil, nil
	})

	report := controller.RunPass(drfcontext.Background())
	assert.NoError(t, report.FatalErr)
	assert.NoError(t, report.WriteBackErr)
	assert.Equal(t, map[model.Outcome]int{model.OutcomeUpdated: 2, model.OutcomeNotFound: 1}, report.Outcomes)
	assert.NoError(t, controller.Check())
}
