package actor

import (
	"fmt"

	"github.com/berfenger/solaredge2mqtt/internal/config"
	"github.com/berfenger/solaredge2mqtt/internal/core/domain"
	"github.com/berfenger/solaredge2mqtt/internal/core/events"
	"github.com/berfenger/solaredge2mqtt/internal/core/sensor"
	. "github.com/berfenger/solaredge2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

// DeviceActor owns the entities of one SolarEdge device. Entities are built
// on the first snapshot and kept across snapshots so lifetime counters
// survive.
type DeviceActor struct {
	config      *config.Config
	uidBase     string
	bridge      domain.Device
	eventStream *eventstream.EventStream

	platform  *domain.Platform
	sensors   []*sensor.Sensor
	last      map[string]sensor.Reading
	sinceLast map[string]uint32

	logger *zap.Logger
}

type deviceSnapshot struct {
	platform *domain.Platform
}

type deviceStale struct {
}

// deviceSummaryUpdate is sent to the parent after every evaluation.
type deviceSummaryUpdate struct {
	summary domain.DeviceSummary
}

type evaluation struct {
	readings []sensor.Reading
}

func NewDeviceActor(config *config.Config, uidBase string, eventStream *eventstream.EventStream, logger *zap.Logger) *DeviceActor {
	return &DeviceActor{
		config:      config,
		uidBase:     uidBase,
		bridge:      domain.BridgeDevice(config.MQTT.BaseTopic),
		eventStream: eventStream,
		last:        map[string]sensor.Reading{},
		sinceLast:   map[string]uint32{},
		logger:      ActorLogger(domain.ACTOR_ID_DEVICE, logger).With(zap.String("device", uidBase)),
	}
}

func (state *DeviceActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("device@default started")
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{
			Id:      state.uidBase,
			Healthy: true,
			State:   "idle",
		})
	case deviceSnapshot:
		state.logger.Debug("device@default snapshot", zap.String("kind", string(msg.platform.Kind)))
		prev := state.platform
		if prev == nil || prev.Kind != msg.platform.Kind {
			if err := state.build(msg.platform); err != nil {
				state.logger.Error("device@default could not build entities", zap.Error(err))
				return
			}
		}
		state.platform = msg.platform
		if prev != nil && prev.Online != msg.platform.Online {
			state.eventStream.Publish(domain.DeviceOnlineEvent{UIDBase: state.uidBase, Online: msg.platform.Online})
		}
		state.evaluate(ctx, false)
	case deviceStale:
		if state.platform == nil || !state.platform.Online {
			return
		}
		state.logger.Warn("device@default stale, marking offline")
		stale := *state.platform
		stale.Online = false
		state.platform = &stale
		state.eventStream.Publish(domain.DeviceOnlineEvent{UIDBase: state.uidBase, Online: false})
		state.evaluate(ctx, true)
	case domain.ResendRegistrationsRequest:
		if state.platform != nil && state.sensors != nil {
			state.register(state.platform)
		}
	case domain.GetDeviceStatesRequest:
		ForRequest(msg).Respond(ctx, domain.GetDeviceStatesResponse{
			Device: state.summary(),
			States: state.states(),
		})
	default:
		state.logger.Debug("device@default unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *DeviceActor) build(p *domain.Platform) error {
	sensors, err := sensor.Build(p, state.logger)
	if err != nil {
		return err
	}
	state.sensors = sensors
	state.last = map[string]sensor.Reading{}
	state.sinceLast = map[string]uint32{}

	state.logger.Info("device@default entities built", zap.Int("entities", len(sensors)), zap.String("kind", string(p.Kind)))
	state.register(p)
	return nil
}

func (state *DeviceActor) register(p *domain.Platform) {
	device := domain.PlatformDevice(p, state.bridge)
	state.eventStream.Publish(domain.DeviceRegisteredEvent{
		Device:  device,
		Sensors: sensor.Discovery(device, state.sensors),
	})
}

// evaluate reads every entity and publishes the ones whose payloads changed
// or that were not published for republish_every evaluations.
func (state *DeviceActor) evaluate(ctx actor.Context, force bool) {
	p := state.platform
	result, ok := NewBackgroundTaskNoError(ctx, func() *evaluation {
		readings := make([]sensor.Reading, 0, len(state.sensors))
		for _, s := range state.sensors {
			readings = append(readings, s.Evaluate(p))
		}
		return &evaluation{readings: readings}
	}).OnError(func(err error) {
		state.logger.Error("device@default evaluation failed", zap.Error(err))
	}).Run()
	if !ok {
		return
	}

	published := 0
	for i, r := range result.readings {
		prev, seen := state.last[r.UniqueId]
		state.sinceLast[r.UniqueId]++
		if force || !seen || !prev.Equal(r) || state.sinceLast[r.UniqueId] >= state.config.MonitorConfig.RepublishEvery {
			for _, ev := range events.ReadingToUpdateEvents(state.uidBase, state.sensors[i], r) {
				state.eventStream.Publish(ev)
			}
			state.sinceLast[r.UniqueId] = 0
			published++
		}
		state.last[r.UniqueId] = r
	}
	state.logger.Debug("device@default evaluated", zap.Int("entities", len(result.readings)), zap.Int("published", published))

	if ctx.Parent() != nil {
		ctx.Send(ctx.Parent(), deviceSummaryUpdate{summary: state.summary()})
	}
}

func (state *DeviceActor) summary() domain.DeviceSummary {
	s := domain.DeviceSummary{
		UIDBase:  state.uidBase,
		Entities: len(state.sensors),
	}
	if p := state.platform; p != nil {
		s.Kind = p.Kind
		s.Manufacturer = p.Manufacturer
		s.Model = p.Model
		s.Serial = p.Serial
		s.Online = p.Online
	}
	return s
}

func (state *DeviceActor) states() []domain.EntityState {
	states := make([]domain.EntityState, 0, len(state.sensors))
	for _, s := range state.sensors {
		r, ok := state.last[s.UniqueId()]
		if !ok {
			continue
		}
		states = append(states, domain.EntityState{
			UniqueId:   s.UniqueId(),
			Name:       s.Name,
			State:      r.State.Payload(),
			Unit:       s.Unit,
			Available:  r.Available,
			Attributes: r.Attributes,
		})
	}
	return states
}
