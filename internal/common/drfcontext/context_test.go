package drfcontext

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithLogFields(t *testing.T) {
	logger, hook := test.NewNullLogger()
	ctx := New(context.Background(), logrus.NewEntry(logger))

	ctx = WithLogField(ctx, "passId", "abc")
	ctx = WithLogFields(ctx, logrus.Fields{"workload": "ns/w1", "gang": "ns/g1"})
	ctx.Log.Info("hello")

	require.Len(t, hook.Entries, 1)
	entry := hook.LastEntry()
	assert.Equal(t, "abc", entry.Data["passId"])
	assert.Equal(t, "ns/w1", entry.Data["workload"])
	assert.Equal(t, "ns/g1", entry.Data["gang"])
}

func TestNew_NilLoggerFallsBack(t *testing.T) {
	ctx := New(context.Background(), nil)
	require.NotNil(t, ctx.Log)
}

func TestDetached_IgnoresParentCancellation(t *testing.T) {
	parent, cancel := WithCancel(Background())
	parent = WithLogField(parent, "passId", "p1")
	cancel()

	detached := Detached(parent)
	assert.Error(t, parent.Err())
	assert.NoError(t, detached.Err())
	assert.Equal(t, "p1", detached.Log.Data["passId"])
}

func TestWithTimeout(t *testing.T) {
	ctx, cancel := WithTimeout(Background(), time.Millisecond)
	defer cancel()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context did not time out")
	}
}

func TestErrGroup_CancelsOnError(t *testing.T) {
	g, ctx := ErrGroup(WithLogField(Background(), "k", "v"))
	g.Go(func() error {
		return assert.AnError
	})
	g.Go(func() error {
		<-ctx.Done()
		return nil
	})
	assert.ErrorIs(t, g.Wait(), assert.AnError)
	assert.Equal(t, "v", ctx.Log.Data["k"])
}
