package actor

import (
	"fmt"
	"time"

	"github.com/berfenger/solaredge2mqtt/internal/config"
	"github.com/berfenger/solaredge2mqtt/internal/core/domain"
	"github.com/berfenger/solaredge2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

// HADiscoveryActor announces the bridge and every registered device to
// Home Assistant once the MQTT actor is healthy.
type HADiscoveryActor struct {
	config         *config.Config
	behavior       actor.Behavior
	stash          *actorutil.Stash
	mqttActor      *actor.PID
	eventStream    *eventstream.EventStream
	eventStreamSub *eventstream.Subscription
	bridgeDevice   domain.Device
	announced      int
	scheduler      *scheduler.TimerScheduler
	retryBackoff   time.Duration

	logger *zap.Logger
}

type onDeviceRegistered struct {
	event domain.DeviceRegisteredEvent
}

type retryHealthCheck struct {
}

const (
	mqttHealthTimeout   = 2 * time.Second
	minHealthRetryDelay = 500 * time.Millisecond
	maxHealthRetryDelay = 30 * time.Second
)

func NewHADiscoveryActor(config *config.Config, mqttActor *actor.PID, eventStream *eventstream.EventStream, logger *zap.Logger) *HADiscoveryActor {
	act := &HADiscoveryActor{
		config:       config,
		mqttActor:    mqttActor,
		eventStream:  eventStream,
		bridgeDevice: domain.BridgeDevice(config.MQTT.BaseTopic),
		behavior:     actor.NewBehavior(),
		stash:        &actorutil.Stash{},
		logger:       actorutil.ActorLogger(domain.ACTOR_ID_HA_DISCOVERY, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *HADiscoveryActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *HADiscoveryActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("hadiscovery@starting started")

		// devices registered while MQTT is not ready are stashed
		root := ctx.ActorSystem().Root
		self := ctx.Self()
		state.eventStreamSub = state.eventStream.SubscribeWithPredicate(func(value any) {
			root.Send(self, onDeviceRegistered{event: value.(domain.DeviceRegisteredEvent)})
		}, func(value any) bool {
			_, ok := value.(domain.DeviceRegisteredEvent)
			return ok
		})

		state.scheduler = scheduler.NewTimerScheduler(ctx)
		state.retryBackoff = minHealthRetryDelay
		state.requestMQTTHealth(ctx)
		state.behavior.Become(state.WaitingHealthyReceive)
	case *actor.Restarting, *actor.Stopping:
		state.unsubscribe()
	default:
		state.logger.Debug("hadiscovery@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) WaitingHealthyReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthResponse:
		state.logger.Debug("hadiscovery@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		if msg.Id != domain.ACTOR_ID_MQTT {
			return
		}
		if !msg.Healthy {
			// keep the stashed registrations and try again later
			state.logger.Warn("hadiscovery@healthcheck MQTT actor not healthy, retrying", zap.Duration("in", state.retryBackoff))
			state.scheduler.RequestOnce(state.retryBackoff, ctx.Self(), retryHealthCheck{})
			state.retryBackoff = min(2*state.retryBackoff, maxHealthRetryDelay)
			return
		}
		ctx.Send(state.mqttActor, domain.PublishDiscoveryRequest{
			Sensors: domain.BridgeSensors(state.bridgeDevice),
		})
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)

		// devices registered before this instance subscribed announce again
		if ctx.Parent() != nil {
			ctx.Send(ctx.Parent(), domain.ResendRegistrationsRequest{})
		}
	case retryHealthCheck:
		state.requestMQTTHealth(ctx)
	case *actor.Restarting, *actor.Stopping:
		state.unsubscribe()
	default:
		state.logger.Debug("hadiscovery@healthcheck: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case onDeviceRegistered:
		sensors := deviceDiscoverySensors(msg.event)
		state.logger.Info("hadiscovery@default announcing device", zap.String("device", msg.event.Device.Id), zap.Int("sensors", len(sensors)))
		ctx.Send(state.mqttActor, domain.PublishDiscoveryRequest{
			Sensors: sensors,
		})
		state.announced++
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_HA_DISCOVERY,
			Healthy: true,
			State:   fmt.Sprintf("%d devices announced", state.announced),
		})
	case *actor.Restarting, *actor.Stopping:
		state.unsubscribe()
	default:
		state.logger.Debug("hadiscovery@default unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *HADiscoveryActor) requestMQTTHealth(ctx actor.Context) {
	actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, mqttHealthTimeout), func(err error) any {
		return domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_MQTT,
			Healthy: false,
		}
	})
}

func (state *HADiscoveryActor) unsubscribe() {
	if state.eventStreamSub != nil {
		state.eventStream.Unsubscribe(state.eventStreamSub)
		state.eventStreamSub = nil
	}
}

// deviceDiscoverySensors carries the full device block on the first sensor
// only, the rest reference the device by id.
func deviceDiscoverySensors(ev domain.DeviceRegisteredEvent) []domain.GenericSensor {
	sensors := make([]domain.GenericSensor, len(ev.Sensors))
	for i := range ev.Sensors {
		sensors[i] = ev.Sensors[i]
		if i == 0 {
			sensors[i].Device = ev.Device
		} else {
			sensors[i].Device = domain.IdDevice(ev.Device)
		}
	}
	return sensors
}
