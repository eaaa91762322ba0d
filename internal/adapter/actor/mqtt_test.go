package actor

import (
	"testing"
	"time"

	"github.com/berfenger/receiptpanel/internal/core/domain"
	"github.com/berfenger/receiptpanel/internal/mqtt"
	"github.com/berfenger/receiptpanel/internal/util"
	"github.com/berfenger/receiptpanel/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestMQTTActor(t *testing.T) {

	cfg := util.LoadTestConfig()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)

	context := as.Root

	es := eventstream.EventStream{}

	mqttActor := NewTestMQTTActor(&cfg, &es, logger)
	props := actor.PropsFromProducer(func() actor.Actor { return mqttActor })
	pid := context.Spawn(props)

	time.Sleep(500 * time.Millisecond)

	msg := domain.ActorHealthRequest{}
	result, err := context.RequestFuture(pid, msg, 2*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp, ok := result.(domain.ActorHealthResponse)
	assert.True(t, ok)
	assert.Equal(t, domain.ACTOR_ID_MQTT, resp.Id)

	es.Publish(domain.StatusUpdateEvent{
		Status:     domain.PanelStatus{State: domain.STATUS_SUCCESS, Message: "PDF Generated: john_2024-03-10.pdf"},
		LastReport: "john_2024-03-10.pdf",
		Users:      3,
	})
	// ignored by the subscription predicate
	es.Publish(domain.CompletionEvent{Success: true})

	time.Sleep(500 * time.Millisecond)

	context.Stop(pid)

	time.Sleep(500 * time.Millisecond)

	assert.Len(t, mqttActor.published, 4)
	byTopic := map[string]string{}
	for _, m := range mqttActor.published {
		assert.True(t, m.retain)
		byTopic[m.topic] = m.message
	}
	assert.Equal(t, "success", byTopic["receiptpanel/sensor/panel_status/state"])
	assert.Equal(t, "PDF Generated: john_2024-03-10.pdf", byTopic["receiptpanel/sensor/status_message/state"])
	assert.Equal(t, "john_2024-03-10.pdf", byTopic["receiptpanel/sensor/last_report/state"])
	assert.Equal(t, "3", byTopic["receiptpanel/sensor/user_count/state"])

	as.Shutdown()
}

func TestCommandToPanelRequest(t *testing.T) {

	assert := assert.New(t)

	assert.Equal(domain.ReloadRequest{}, commandToPanelRequest(&mqtt.ParsedMQTTCommand{ButtonId: domain.BUTTON_ID_RELOAD}))
	assert.Equal(domain.RefreshReportsRequest{}, commandToPanelRequest(&mqtt.ParsedMQTTCommand{ButtonId: domain.BUTTON_ID_REFRESH}))
	assert.Nil(commandToPanelRequest(&mqtt.ParsedMQTTCommand{ButtonId: "unknown_button"}))
	assert.Nil(commandToPanelRequest(nil))
}
