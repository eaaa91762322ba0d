package actor

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/berfenger/receiptpanel/internal/config"
	"github.com/berfenger/receiptpanel/internal/core/domain"
	"github.com/berfenger/receiptpanel/internal/mqtt"
	"github.com/berfenger/receiptpanel/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

type MQTTActor struct {
	config         *config.Config
	behavior       actor.Behavior
	stash          *actorutil.Stash
	client         *mqtt.MQTTClient
	eventStream    *eventstream.EventStream
	eventStreamSub *eventstream.Subscription
	published      []rawMessage
	logger         *zap.Logger
}

type MQTTConnected struct {
}

type MQTTSubscribed struct {
}

type MQTTConnectionLost struct {
	Error error
}

type publishResult struct {
	topic string
	Error error
}

type ParsedCommand struct {
	Command *mqtt.ParsedMQTTCommand
}

type rawMessage struct {
	topic   string
	message string
	retain  bool
}

func NewMQTTActor(config *config.Config, eventStream *eventstream.EventStream, logger *zap.Logger) *MQTTActor {
	act := &MQTTActor{
		config:      config,
		behavior:    actor.NewBehavior(),
		stash:       &actorutil.Stash{},
		eventStream: eventStream,
		logger:      actorutil.ActorLogger(domain.ACTOR_ID_MQTT, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MQTTActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MQTTActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("mqtt@starting started")

		root := ctx.ActorSystem().Root
		self := ctx.Self()

		// create MQTT client
		state.client = mqtt.CreateMQTTClient(state.config, mqtt.OptsFromConfig(state.config), func(_ pahomqtt.Client) {
		}, func(_ pahomqtt.Client, err error) {
			root.Send(self, MQTTConnectionLost{Error: err})
		})

		// connect to MQTT server
		state.client.Connect(func(err error) {
			if err != nil {
				root.Send(self, MQTTConnectionLost{Error: err})
			} else {
				root.Send(self, MQTTConnected{})
			}
		}, 10*time.Second)

	case MQTTConnected:
		state.logger.Debug("mqtt@starting connected")

		state.client.Publish(state.client.BridgeStateTopic(), mqtt.MQTT_PAYLOAD_ONLINE, 0, true, func(error) {}, 500*time.Millisecond)

		root := ctx.ActorSystem().Root
		self := ctx.Self()

		// subscribe to MQTT button topics
		state.client.SubscribeToCommandTopic(func(c pahomqtt.Client, m pahomqtt.Message) {
			cmd, err := state.client.ParseMQTTCommand(m)
			if err == nil && cmd != nil {
				root.Send(self, ParsedCommand{Command: cmd})
			}
		}, func(err error) {
			if err != nil {
				root.Send(self, MQTTConnectionLost{Error: err})
			} else {
				root.Send(self, MQTTSubscribed{})
			}
		}, 1*time.Second)
	case MQTTSubscribed:
		// init completed, transition to default state
		state.logger.Debug("mqtt@starting subscribed")
		state.subscribeEventStream(ctx)
		if state.config.MQTT.HADiscoveryEnable {
			if err := state.PublishHomeAssistantDiscovery(); err != nil {
				state.logger.Error("mqtt@starting PublishHADiscovery error", zap.Error(err))
			}
		}
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case MQTTConnectionLost:
		// if connection lost, stop actor and let supervisor decide
		state.logger.Error("mqtt@starting connection lost", zap.Error(msg.Error))
		panic(msg.Error)
	case *actor.Restarting:
		state.stop()
	default:
		state.logger.Debug("mqtt@starting stash", actorutil.MessageType(msg))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MQTTActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Restarting:
		state.stop()
	case *actor.Stopping:
		state.stop()
	case domain.ActorHealthRequest:
		state.logger.Debug("mqtt@default ActorHealthRequest")
		// respond health check request
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_MQTT,
			Healthy: true,
			State:   "idle",
		})
	case ParsedCommand:
		state.logger.Debug("mqtt@default parsedCommand", zap.Any("command", msg.Command))
		if req := commandToPanelRequest(msg.Command); req != nil {
			ctx.Send(ctx.Parent(), req)
		}
	case domain.StatusUpdateEvent:
		state.logger.Debug("mqtt@default StatusUpdateEvent", zap.String("status", string(msg.Status.State)))
		for _, m := range state.statusMessages(msg) {
			state.publish(ctx, m)
		}
	case publishResult:
		if msg.Error != nil {
			state.logger.Error("mqtt@default could not publish a message", zap.String("topic", msg.topic), zap.Error(msg.Error))
		}
	case MQTTConnectionLost:
		// if connection lost, stop actor and let supervisor decide
		state.logger.Error("mqtt@default connection lost", zap.Error(msg.Error))
		panic(msg.Error)
	default:
		state.logger.Debug("mqtt@default recv", actorutil.MessageType(msg))
	}
}

func (state *MQTTActor) subscribeEventStream(ctx actor.Context) {
	if state.eventStream == nil || state.eventStreamSub != nil {
		return
	}
	root := ctx.ActorSystem().Root
	self := ctx.Self()
	state.eventStreamSub = state.eventStream.SubscribeWithPredicate(func(evt any) {
		root.Send(self, evt)
	}, func(evt any) bool {
		_, ok := evt.(domain.StatusUpdateEvent)
		return ok
	})
}

func commandToPanelRequest(cmd *mqtt.ParsedMQTTCommand) domain.PanelRequest {
	if cmd == nil {
		return nil
	}
	switch cmd.ButtonId {
	case domain.BUTTON_ID_RELOAD:
		return domain.ReloadRequest{}
	case domain.BUTTON_ID_REFRESH:
		return domain.RefreshReportsRequest{}
	default:
		return nil
	}
}

func (state *MQTTActor) statusMessages(ev domain.StatusUpdateEvent) []rawMessage {
	return []rawMessage{
		{
			topic:   state.client.SensorStateTopic(domain.SENSOR_ID_PANEL_STATUS),
			message: string(ev.Status.State),
			retain:  true,
		},
		{
			topic:   state.client.SensorStateTopic(domain.SENSOR_ID_STATUS_MESSAGE),
			message: ev.Status.Message,
			retain:  true,
		},
		{
			topic:   state.client.SensorStateTopic(domain.SENSOR_ID_LAST_REPORT),
			message: ev.LastReport,
			retain:  true,
		},
		{
			topic:   state.client.SensorStateTopic(domain.SENSOR_ID_USER_COUNT),
			message: strconv.Itoa(ev.Users),
			retain:  true,
		},
	}
}

func (state *MQTTActor) publish(ctx actor.Context, msg rawMessage) {
	state.logger.Sugar().Debugf("mqtt@publish: %s => %s", msg.topic, msg.message)
	root := ctx.ActorSystem().Root
	self := ctx.Self()
	topic := msg.topic
	state.client.Publish(msg.topic, msg.message, 1, msg.retain, func(err error) {
		root.Send(self, publishResult{topic: topic, Error: err})
	}, 5*time.Second)
}

func (state *MQTTActor) PublishHomeAssistantDiscovery() error {
	discoveryTopic := state.client.DiscoveryTopic()
	bridgeDevice := domain.BridgeDevice(state.config.MQTT.BaseTopic)

	sensors := domain.PanelSensors(bridgeDevice)
	for i := range sensors {
		if i > 0 {
			sensors[i].Device = domain.IdDevice(bridgeDevice)
		}
		msg := mqtt.GenericSensorToHADiscoveryMessage(state.client, sensors[i])
		payload, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		topic := mqtt.HADiscoverySensorTopic(discoveryTopic, sensors[i])
		state.client.Publish(topic, payload, 0, true, func(error) {}, 1*time.Second)
	}
	buttons := domain.PanelButtons(domain.IdDevice(bridgeDevice))
	for i := range buttons {
		msg := mqtt.GenericButtonToHADiscoveryMessage(state.client, buttons[i])
		payload, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		topic := mqtt.HADiscoveryButtonTopic(discoveryTopic, buttons[i])
		state.client.Publish(topic, payload, 0, true, func(error) {}, 1*time.Second)
	}
	return nil
}

func (state *MQTTActor) stop() {
	state.logger.Debug("mqtt: disconnect")
	if state.eventStream != nil && state.eventStreamSub != nil {
		state.eventStream.Unsubscribe(state.eventStreamSub)
		state.eventStreamSub = nil
	}
	if state.client != nil {
		state.client.Unsubscribe(func(err error) {
			if err != nil {
				state.logger.Debug("mqtt: unsubscribe failed", zap.Error(err))
			}
		}, 500*time.Millisecond)
		state.client.Publish(state.client.BridgeStateTopic(), mqtt.MQTT_PAYLOAD_OFFLINE, 0, true, func(error) {}, 500*time.Millisecond)
		state.client.Disconnect(500 * time.Millisecond)
	}
}

// Dummy actor
func NewTestMQTTActor(config *config.Config, eventStream *eventstream.EventStream, logger *zap.Logger) *MQTTActor {
	act := &MQTTActor{
		config:      config,
		behavior:    actor.NewBehavior(),
		stash:       &actorutil.Stash{},
		eventStream: eventStream,
		logger:      actorutil.ActorLogger("mqtt", logger),
	}
	act.behavior.Become(act.DummyReceive)
	return act
}

func (state *MQTTActor) DummyReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.client = mqtt.CreateMQTTClient(state.config, mqtt.OptsFromConfig(state.config), nil, nil)
		state.subscribeEventStream(ctx)
	case *actor.Stopping:
		if state.eventStream != nil && state.eventStreamSub != nil {
			state.eventStream.Unsubscribe(state.eventStreamSub)
			state.eventStreamSub = nil
		}
	case domain.ActorHealthRequest:
		state.logger.Debug("mqtt@default ActorHealthRequest")
		// respond health check request
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_MQTT,
			Healthy: true,
			State:   "idle",
		})
	case domain.StatusUpdateEvent:
		state.published = append(state.published, state.statusMessages(msg)...)
	case ParsedCommand:
		if req := commandToPanelRequest(msg.Command); req != nil {
			ctx.Send(ctx.Parent(), req)
		}
	}
}
