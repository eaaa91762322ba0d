package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/berfenger/receiptpanel/internal/core/domain"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStartListingRefresh(t *testing.T) {

	assert := assert.New(t)

	var refreshes atomic.Int32
	as := actor.NewActorSystem()
	defer as.Shutdown()
	pid := as.Root.Spawn(actor.PropsFromFunc(func(ctx actor.Context) {
		if _, ok := ctx.Message().(domain.RefreshReportsRequest); ok {
			refreshes.Add(1)
		}
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := StartListingRefresh(ctx, 0, as.Root, pid, zap.NewNop())
	assert.Error(err)

	sched, err := StartListingRefresh(ctx, 100*time.Millisecond, as.Root, pid, zap.Must(zap.NewDevelopment()))
	require.NoError(t, err)

	assert.Eventually(func() bool { return refreshes.Load() >= 2 }, 2*time.Second, 20*time.Millisecond)

	sched.Stop()
	sched.Wait(context.Background())
}

func TestRefreshReportsJob(t *testing.T) {

	as := actor.NewActorSystem()
	defer as.Shutdown()
	received := make(chan any, 1)
	pid := as.Root.Spawn(actor.PropsFromFunc(func(ctx actor.Context) {
		if msg, ok := ctx.Message().(domain.RefreshReportsRequest); ok {
			received <- msg
		}
	}))

	job := NewRefreshReportsJob(as.Root, pid, zap.NewNop())
	assert.Equal(t, REFRESH_REPORTS_JOB, job.Description())
	assert.NoError(t, job.Execute(context.Background()))

	select {
	case <-received:
	case <-time.After(time.Second):
		t.Fatal("refresh not delivered")
	}
}
