package actor

import (
	"errors"
	"fmt"
	"time"

	adactor "github.com/berfenger/solaredge2mqtt/internal/adapter/actor"
	"github.com/berfenger/solaredge2mqtt/internal/config"
	"github.com/berfenger/solaredge2mqtt/internal/core/domain"
	"github.com/berfenger/solaredge2mqtt/internal/metrics"
	. "github.com/berfenger/solaredge2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

type MQTTActorProvider func(*eventstream.EventStream) *adactor.MQTTActor

type MasterOfPuppetsActor struct {
	config   config.Config
	behavior actor.Behavior
	stash    *Stash

	currentHealthCheck healthCheckResult
	eventStream        *eventstream.EventStream
	metrics            *metrics.Metrics
	hubActor           *actor.PID
	mqttActor          *actor.PID
	metricsActor       *actor.PID
	mqttActorProvider  MQTTActorProvider
	logger             *zap.Logger
}

type healthCheckResult struct {
	healthy        map[string]bool
	checksExpected int
	respondTo      *actor.PID
}

func NewMasterOfPuppetsActor(config config.Config, mqttActorProvider MQTTActorProvider, m *metrics.Metrics, logger *zap.Logger) *MasterOfPuppetsActor {
	act := &MasterOfPuppetsActor{
		config:            config,
		behavior:          actor.NewBehavior(),
		stash:             &Stash{},
		logger:            ActorLogger(domain.ACTOR_ID_MASTER, logger),
		eventStream:       &eventstream.EventStream{},
		metrics:           m,
		mqttActorProvider: mqttActorProvider,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MasterOfPuppetsActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MasterOfPuppetsActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("master@starting started")

		// start MQTT child
		mqttActorPID, err := state.startMQTTActor(ctx)
		if err != nil {
			panic(err)
		}
		state.mqttActor = mqttActorPID

		// start Metrics child
		metricsActorPID, err := state.startMetricsActor(ctx)
		if err != nil {
			panic(err)
		}
		state.metricsActor = metricsActorPID

		// start HA Discovery before any device can register
		if state.config.MQTT.HADiscoveryEnable {
			_, err := state.startHADiscoveryActor(ctx)
			if err != nil {
				panic(err)
			}
		}

		// start Hub child
		hubActorPID, err := state.startHubActor(ctx)
		if err != nil {
			panic(err)
		}
		state.hubActor = hubActorPID

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("master@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("master@default ActorHealthRequest")
		state.currentHealthCheck.reset(ctx.Sender())
		state.requestHealth(ctx, state.hubActor, domain.ACTOR_ID_HUB)
		state.requestHealth(ctx, state.mqttActor, domain.ACTOR_ID_MQTT)
		state.requestHealth(ctx, state.metricsActor, domain.ACTOR_ID_METRICS)

		ctx.SetReceiveTimeout(1 * time.Second)

		state.behavior.BecomeStacked(state.HealthCheckReceive)
	case domain.IngestSnapshotRequest, domain.GetDevicesRequest, domain.GetDeviceStatesRequest, domain.ResendRegistrationsRequest:
		// hub queries keep the original sender
		ctx.Forward(state.hubActor)
	case *actor.Terminated:
		// if some actor fails on boot, terminate
		if msg.Who.Id == fmt.Sprintf("%s/%s", domain.ACTOR_ID_MASTER, domain.ACTOR_ID_HUB) {
			state.logger.Error("master@default hub terminated")
			panic(errors.New("hub terminated"))
		}
	default:
		state.logger.Debug("master@default unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *MasterOfPuppetsActor) HealthCheckReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.ReceiveTimeout:
		// if some actor does not respond to healthCheck, assume not healthy
		ctx.CancelReceiveTimeout()
		state.currentHealthCheck.respond(ctx)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthResponse:
		state.logger.Debug("master@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.currentHealthCheck.healthy[msg.Id] = msg.Healthy
		if state.currentHealthCheck.allReceived() {
			ctx.CancelReceiveTimeout()
			state.currentHealthCheck.respond(ctx)

			state.behavior.UnbecomeStacked()
			state.stash.UnstashAll(ctx)
		}
	default:
		state.logger.Debug("master@healthcheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) requestHealth(ctx actor.Context, pid *actor.PID, id string) {
	state.currentHealthCheck.checksExpected++
	PipeToSelfWithRecover(ctx, ctx.RequestFuture(pid, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
		return domain.ActorHealthResponse{
			Id:      id,
			Healthy: false,
		}
	})
}

func (state *MasterOfPuppetsActor) startHubActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewOneForOneStrategy(10, 10*time.Second, restartDecider(state.logger))

	hubProps := actor.PropsFromProducer(func() actor.Actor {
		return NewHubActor(&state.config, state.eventStream, state.logger)
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(hubProps, domain.ACTOR_ID_HUB)
}

func (state *MasterOfPuppetsActor) startMetricsActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewOneForOneStrategy(10, 10*time.Second, restartDecider(state.logger))

	metricsProps := actor.PropsFromProducer(func() actor.Actor {
		return adactor.NewMetricsActor(state.metrics, state.eventStream, state.logger)
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(metricsProps, domain.ACTOR_ID_METRICS)
}

func (state *MasterOfPuppetsActor) startHADiscoveryActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewOneForOneStrategy(10, 10*time.Second, restartDecider(state.logger))

	haDiscProps := actor.PropsFromProducer(func() actor.Actor {
		return NewHADiscoveryActor(&state.config, state.mqttActor, state.eventStream, state.logger)
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(haDiscProps, domain.ACTOR_ID_HA_DISCOVERY)
}

func (state *MasterOfPuppetsActor) startMQTTActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	mqttProps := actor.PropsFromProducer(func() actor.Actor {
		return state.mqttActorProvider(state.eventStream)
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(mqttProps, domain.ACTOR_ID_MQTT)
}

func restartDecider(logger *zap.Logger) actor.DeciderFunc {
	return func(reason interface{}) actor.Directive {
		logger.Warn("master: restarting child", zap.Any("reason", reason))
		return actor.RestartDirective
	}
}

func (state *healthCheckResult) reset(respondTo *actor.PID) {
	state.healthy = map[string]bool{}
	state.checksExpected = 0
	state.respondTo = respondTo
}

func (state *healthCheckResult) allReceived() bool {
	return len(state.healthy) >= state.checksExpected
}

func (state *healthCheckResult) allHealthy() bool {
	if len(state.healthy) < state.checksExpected {
		return false
	}
	for _, healthy := range state.healthy {
		if !healthy {
			return false
		}
	}
	return true
}

func (state *healthCheckResult) respond(ctx actor.Context) {
	resp := domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_MASTER,
		Healthy: state.allHealthy(),
	}
	if state.respondTo != nil {
		ctx.Send(state.respondTo, resp)
	}
}
