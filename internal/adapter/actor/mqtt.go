package actor

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/berfenger/solaredge2mqtt/internal/config"
	"github.com/berfenger/solaredge2mqtt/internal/core/domain"
	"github.com/berfenger/solaredge2mqtt/internal/core/sensor"
	"github.com/berfenger/solaredge2mqtt/internal/mqtt"
	"github.com/berfenger/solaredge2mqtt/internal/util/actorutil"

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
	logger         *zap.Logger

	// QoS 1 publishes go out one at a time in arrival order
	publish  publishFunc
	outbox   []publishJob
	inFlight bool
}

type publishFunc func(topic string, payload any, qos byte, retain bool, continuation func(error))

type publishJob struct {
	topic    string
	payload  string
	retain   bool
	replyTo  *actor.PID
	response func(error) any
}

type OnEventStreamMessage struct {
	message any
}

type MQTTConnected struct {
}

type MQTTSubscribed struct {
}

type MQTTConnectionLost struct {
	Error error
}

type snapshotReceived struct {
	snapshot *mqtt.SnapshotMessage
}

type publishResult struct {
	job   publishJob
	Error error
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
	act.publish = act.clientPublish
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MQTTActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MQTTActor) StartingReceive(ctx actor.Context) {
	root := ctx.ActorSystem().Root
	self := ctx.Self()

	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("mqtt@starting started")

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

		// subscribe to eventStream
		if state.eventStream != nil {
			state.eventStreamSub = state.eventStream.Subscribe(func(value any) {
				root.Send(self, OnEventStreamMessage{
					message: value,
				})
			})
		}

		// subscribe to hub snapshots
		state.client.SubscribeToSnapshotTopic(func(c pahomqtt.Client, m pahomqtt.Message) {
			snap, err := state.client.ParseSnapshotMessage(m)
			if err != nil {
				state.logger.Warn("mqtt: ignoring message", zap.String("topic", m.Topic()), zap.Error(err))
				return
			}
			root.Send(self, snapshotReceived{snapshot: snap})
		}, func(err error) {
			if err != nil {
				root.Send(self, MQTTConnectionLost{Error: err})
			} else {
				root.Send(self, MQTTSubscribed{})
			}
		}, 1*time.Second)
	case MQTTSubscribed:
		// init completed, transition to default state
		state.logger.Debug("mqtt@starting subscribed", zap.String("topic", state.client.SnapshotTopic()))
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case MQTTConnectionLost:
		// if connection lost, stop actor and let supervisor decide
		state.logger.Error("mqtt@starting connection lost", zap.Error(msg.Error))
		panic(msg.Error)
	case *actor.Restarting, *actor.Stopping:
		state.stop()
	default:
		state.logger.Debug("mqtt@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MQTTActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Restarting, *actor.Stopping:
		state.stop()
	case domain.ActorHealthRequest:
		state.logger.Debug("mqtt@default ActorHealthRequest")
		// respond health check request
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_MQTT,
			Healthy: true,
			State:   "idle",
		})
	case snapshotReceived:
		// route snapshot to parent
		state.logger.Debug("mqtt@default snapshot", zap.String("device", msg.snapshot.DeviceId))
		ctx.Send(ctx.Parent(), domain.IngestSnapshotRequest{
			Source:        domain.SNAPSHOT_SOURCE_MQTT,
			TopicDeviceId: msg.snapshot.DeviceId,
			Payload:       msg.snapshot.Payload,
		})
	case OnEventStreamMessage:
		if event, ok := msg.message.(domain.SensorUpdateEvent); ok {
			state.publishSensorValue(ctx, event, false, nil)
		}
	case domain.PublishMessageRequest:
		state.logger.Debug("mqtt@default PublishMessageRequest", zap.String("topic", msg.Topic))
		state.publishMessage(ctx, msg.Topic, msg.Payload, msg.Retain, actorutil.ForRequest(msg).ReplyTo(ctx))
	case domain.PublishSensorUpdateRequest:
		state.logger.Debug("mqtt@default PublishSensorUpdateRequest", zap.String("type", fmt.Sprintf("%T", msg.Event)))
		state.publishSensorValue(ctx, msg.Event, msg.Retain, actorutil.ForRequest(msg).ReplyTo(ctx))
	case publishResult:
		if msg.Error != nil {
			state.logger.Error("mqtt@default could not publish a message", zap.String("topic", msg.job.topic), zap.Error(msg.Error))
		}
		if msg.job.replyTo != nil && msg.job.response != nil {
			ctx.Send(msg.job.replyTo, msg.job.response(msg.Error))
		}
		state.inFlight = false
		state.publishNext(ctx)
	case domain.PublishDiscoveryRequest:
		state.logger.Debug("mqtt@default PublishDiscoveryRequest", zap.Int("sensors", len(msg.Sensors)))
		err := state.PublishHomeAssistantDiscovery(msg.Sensors)
		if err != nil {
			state.logger.Error("mqtt@default PublishDiscoveryRequest error", zap.Error(err))
		}
		if replyTo := actorutil.ForRequest(msg).ReplyTo(ctx); replyTo != nil {
			ctx.Send(replyTo, domain.PublishDiscoveryResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			})
		}
	case MQTTConnectionLost:
		// if connection lost, stop actor and let supervisor decide
		state.logger.Error("mqtt@default connection lost", zap.Error(msg.Error))
		panic(msg.Error)
	default:
		state.logger.Debug("mqtt@default unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *MQTTActor) event2MQTTMessage(event any) *rawMessage {
	switch msg := event.(type) {
	case domain.FloatSensorUpdateEvent:
		return &rawMessage{
			topic:   state.client.SensorStateTopic(msg.Id),
			message: strconv.FormatFloat(msg.Value, 'f', msg.Decimals, 64),
		}
	case domain.TextSensorUpdateEvent:
		return &rawMessage{
			topic:   state.client.SensorStateTopic(msg.Id),
			message: msg.Value,
		}
	case domain.UnknownSensorUpdateEvent:
		return &rawMessage{
			topic:   state.client.SensorStateTopic(msg.Id),
			message: sensor.UNKNOWN_PAYLOAD,
		}
	case domain.BinarySensorUpdateEvent:
		return &rawMessage{
			topic:   state.client.BinarySensorStateTopic(msg.Id),
			message: bool2MQTTPayload(msg.Value),
		}
	case domain.SensorAttributesUpdateEvent:
		payload, err := json.Marshal(msg.Attributes)
		if err != nil {
			state.logger.Error("mqtt: could not encode attributes", zap.String("sensor", msg.Id), zap.Error(err))
			return nil
		}
		return &rawMessage{
			topic:   state.client.SensorAttributesTopic(msg.Id),
			message: string(payload),
		}
	case domain.SensorAvailabilityUpdateEvent:
		return &rawMessage{
			topic:   state.client.SensorAvailabilityTopic(msg.Id),
			message: availability2MQTTPayload(msg.Available),
			retain:  true,
		}
	case domain.BridgeStateUpdateEvent:
		return &rawMessage{
			topic:   state.client.BridgeStateTopic(),
			message: availability2MQTTPayload(msg.Value),
			retain:  true,
		}
	default:
		return nil
	}
}

func (state *MQTTActor) publishSensorValue(ctx actor.Context, event domain.SensorUpdateEvent, retain bool, replyTo *actor.PID) {
	msg := state.event2MQTTMessage(event)
	if msg == nil {
		return
	}
	state.enqueue(ctx, publishJob{
		topic:   msg.topic,
		payload: msg.message,
		retain:  msg.retain || retain,
		replyTo: replyTo,
		response: func(err error) any {
			return domain.PublishSensorUpdateResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		},
	})
}

func (state *MQTTActor) publishMessage(ctx actor.Context, topic, payload string, retain bool, replyTo *actor.PID) {
	state.enqueue(ctx, publishJob{
		topic:   topic,
		payload: payload,
		retain:  retain,
		replyTo: replyTo,
		response: func(err error) any {
			return domain.PublishMessageResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		},
	})
}

func (state *MQTTActor) enqueue(ctx actor.Context, job publishJob) {
	state.outbox = append(state.outbox, job)
	state.publishNext(ctx)
}

// publishNext sends the oldest queued message once the previous publish has
// been acknowledged.
func (state *MQTTActor) publishNext(ctx actor.Context) {
	if state.inFlight || len(state.outbox) == 0 {
		return
	}
	job := state.outbox[0]
	state.outbox[0] = publishJob{}
	state.outbox = state.outbox[1:]
	state.inFlight = true

	root := ctx.ActorSystem().Root
	self := ctx.Self()
	state.logger.Debug("mqtt@publish", zap.String("topic", job.topic), zap.String("payload", job.payload), zap.Int("queued", len(state.outbox)))
	state.publish(job.topic, job.payload, 1, job.retain, func(err error) {
		root.Send(self, publishResult{job: job, Error: err})
	})
}

func (state *MQTTActor) clientPublish(topic string, payload any, qos byte, retain bool, continuation func(error)) {
	state.client.Publish(topic, payload, qos, retain, continuation, 5*time.Second)
}

// PublishHomeAssistantDiscovery publishes the retained discovery config of
// every sensor.
func (state *MQTTActor) PublishHomeAssistantDiscovery(sensors []domain.GenericSensor) error {
	for i := range sensors {
		msg := mqtt.GenericSensorToHADiscoveryMessage(state.client, sensors[i])
		payload, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		topic := mqtt.HADiscoverySensorTopic(state.client.DiscoveryPrefix(), sensors[i])
		state.client.Publish(topic, payload, 0, true, func(err error) {
			if err != nil {
				state.logger.Warn("mqtt: discovery publish failed", zap.String("topic", topic), zap.Error(err))
			}
		}, 1*time.Second)
	}
	return nil
}

func (state *MQTTActor) stop() {
	if state.eventStreamSub != nil {
		state.eventStream.Unsubscribe(state.eventStreamSub)
		state.eventStreamSub = nil
	}
	if len(state.outbox) > 0 {
		state.logger.Warn("mqtt: dropping queued messages", zap.Int("queued", len(state.outbox)))
	}
	state.outbox = nil
	state.inFlight = false
	if state.client != nil {
		state.logger.Debug("mqtt: disconnect")
		state.client.Publish(state.client.BridgeStateTopic(), mqtt.MQTT_PAYLOAD_OFFLINE, 0, true, func(error) {}, 500*time.Millisecond)
		state.client.Disconnect(500 * time.Millisecond)
	}
}

func bool2MQTTPayload(value bool) string {
	if value {
		return mqtt.MQTT_PAYLOAD_ON
	}
	return mqtt.MQTT_PAYLOAD_OFF
}

func availability2MQTTPayload(value bool) string {
	if value {
		return mqtt.MQTT_PAYLOAD_ONLINE
	}
	return mqtt.MQTT_PAYLOAD_OFFLINE
}

// NewTestMQTTActor returns an MQTT actor that never connects. Events are
// rendered to MQTT messages and logged.
func NewTestMQTTActor(config *config.Config, eventStream *eventstream.EventStream, logger *zap.Logger) *MQTTActor {
	act := &MQTTActor{
		config:      config,
		behavior:    actor.NewBehavior(),
		stash:       &actorutil.Stash{},
		eventStream: eventStream,
		logger:      actorutil.ActorLogger(domain.ACTOR_ID_MQTT, logger),
	}
	act.behavior.Become(act.DummyReceive)
	return act
}

func (state *MQTTActor) DummyReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.client = mqtt.CreateMQTTClient(state.config, mqtt.OptsFromConfig(state.config), nil, nil)
		if state.eventStream != nil {
			root := ctx.ActorSystem().Root
			self := ctx.Self()
			state.eventStreamSub = state.eventStream.Subscribe(func(value any) {
				root.Send(self, OnEventStreamMessage{message: value})
			})
		}
	case *actor.Stopping:
		if state.eventStreamSub != nil {
			state.eventStream.Unsubscribe(state.eventStreamSub)
			state.eventStreamSub = nil
		}
	case domain.ActorHealthRequest:
		state.logger.Debug("mqtt@dummy ActorHealthRequest")
		// respond health check request
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_MQTT,
			Healthy: true,
			State:   "idle",
		})
	case OnEventStreamMessage:
		if raw := state.event2MQTTMessage(msg.message); raw != nil {
			state.logger.Debug("mqtt@dummy publish", zap.String("topic", raw.topic), zap.String("payload", raw.message))
		}
	case domain.PublishSensorUpdateRequest:
		if msg.ReplyToRef != nil {
			ctx.Send((*actor.PID)(msg.ReplyToRef), domain.PublishSensorUpdateResponse{})
		}
	case domain.PublishMessageRequest:
		if msg.ReplyToRef != nil {
			ctx.Send((*actor.PID)(msg.ReplyToRef), domain.PublishMessageResponse{})
		}
	case domain.PublishDiscoveryRequest:
		state.logger.Debug("mqtt@dummy discovery", zap.Int("sensors", len(msg.Sensors)))
		if replyTo := actorutil.ForRequest(msg).ReplyTo(ctx); replyTo != nil {
			ctx.Send(replyTo, domain.PublishDiscoveryResponse{})
		}
	}
}
