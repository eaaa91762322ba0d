package actor

import (
	"testing"
	"time"

	adactor "github.com/berfenger/receiptpanel/internal/adapter/actor"
	"github.com/berfenger/receiptpanel/internal/core/domain"
	"github.com/berfenger/receiptpanel/internal/util"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestMasterActor(t *testing.T) {

	as := actor.NewActorSystem()
	context := as.Root

	cfg := util.LoadTestConfig()
	logCfg := zap.NewDevelopmentConfig()
	logCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	logger := zap.Must(logCfg.Build())

	host := newFakeHost()

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewMasterOfPuppetsActor(cfg, func(es *eventstream.EventStream) *PanelActor {
			panel, err := NewPanelActor(&cfg, PanelDeps{Host: host, EventStream: es}, logger)
			if err != nil {
				panic(err)
			}
			return panel
		}, func(es *eventstream.EventStream) *adactor.MQTTActor {
			return adactor.NewTestMQTTActor(&cfg, es, logger)
		}, logger)
	})
	pid, err := context.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	if err != nil {
		t.Error(err)
		return
	}

	time.Sleep(500 * time.Millisecond)

	res, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		t.Error(err)
	}
	healthResp, ok := res.(domain.ActorHealthResponse)
	assert.True(t, ok)
	assert.True(t, healthResp.Healthy, "healthy is true")
	assert.Equal(t, string(domain.LIFECYCLE_READY), healthResp.State, "panel initialized by master")

	// panel requests are forwarded keeping the sender
	res, err = context.RequestFuture(pid, domain.ToggleSelectionRequest{BaseName: "john"}, 2*time.Second).Result()
	assert.NoError(t, err)
	stateResp, ok := res.(domain.PanelStateResponse)
	assert.True(t, ok)
	assert.Equal(t, []string{"john"}, stateResp.View.Selected)

	// completion events reach the panel through the event stream
	context.Send(pid, domain.CompletionEvent{Success: true, Filename: "john_2024-03-10.pdf"})
	time.Sleep(200 * time.Millisecond)

	res, err = context.RequestFuture(pid, domain.GetStatusRequest{}, 2*time.Second).Result()
	assert.NoError(t, err)
	statusResp, ok := res.(domain.GetStatusResponse)
	assert.True(t, ok)
	assert.Equal(t, domain.STATUS_SUCCESS, statusResp.Status.State)

	context.Stop(pid)

	as.Shutdown()
}

func TestMasterActorWithoutMQTT(t *testing.T) {

	as := actor.NewActorSystem()
	context := as.Root

	cfg := util.LoadTestConfig()
	logger := zap.Must(zap.NewDevelopment())

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewMasterOfPuppetsActor(cfg, func(es *eventstream.EventStream) *PanelActor {
			panel, _ := NewPanelActor(&cfg, PanelDeps{Host: newFakeHost(), EventStream: es}, logger)
			return panel
		}, nil, logger)
	})
	pid := context.Spawn(props)

	res, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 5*time.Second).Result()
	assert.NoError(t, err)
	healthResp, ok := res.(domain.ActorHealthResponse)
	assert.True(t, ok)
	assert.True(t, healthResp.Healthy)
	assert.Equal(t, domain.ACTOR_ID_MASTER, healthResp.Id)

	context.Stop(pid)

	as.Shutdown()
}
