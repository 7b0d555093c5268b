package actor

import (
	"fmt"

	"github.com/berfenger/solaredge2mqtt/internal/core/domain"
	"github.com/berfenger/solaredge2mqtt/internal/metrics"
	"github.com/berfenger/solaredge2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

// MetricsActor mirrors the event stream into Prometheus collectors.
type MetricsActor struct {
	metrics        *metrics.Metrics
	eventStream    *eventstream.EventStream
	eventStreamSub *eventstream.Subscription
	logger         *zap.Logger
}

func NewMetricsActor(m *metrics.Metrics, eventStream *eventstream.EventStream, logger *zap.Logger) *MetricsActor {
	return &MetricsActor{
		metrics:     m,
		eventStream: eventStream,
		logger:      actorutil.ActorLogger(domain.ACTOR_ID_METRICS, logger),
	}
}

func (state *MetricsActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("metrics@default started")
		root := ctx.ActorSystem().Root
		self := ctx.Self()
		state.eventStreamSub = state.eventStream.Subscribe(func(value any) {
			root.Send(self, OnEventStreamMessage{message: value})
		})
	case *actor.Stopping, *actor.Restarting:
		if state.eventStreamSub != nil {
			state.eventStream.Unsubscribe(state.eventStreamSub)
			state.eventStreamSub = nil
		}
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_METRICS,
			Healthy: true,
			State:   "idle",
		})
	case OnEventStreamMessage:
		state.record(msg.message)
	default:
		state.logger.Debug("metrics@default unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *MetricsActor) record(event any) {
	switch ev := event.(type) {
	case domain.FloatSensorUpdateEvent:
		state.metrics.SetEntityValue(ev.Id, ev.DeviceId, ev.Unit, ev.Value)
	case domain.UnknownSensorUpdateEvent:
		state.metrics.ClearEntityValue(ev.Id, ev.DeviceId, ev.Unit)
	case domain.SensorAvailabilityUpdateEvent:
		state.metrics.SetEntityAvailable(ev.Id, ev.DeviceId, ev.Available)
	case domain.SnapshotIngestedEvent:
		state.metrics.IncSnapshot(ev.UIDBase, ev.Source)
	case domain.SnapshotRejectedEvent:
		state.metrics.IncSnapshotError(ev.Source)
	}
}
