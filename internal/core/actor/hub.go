package actor

import (
	"fmt"
	"sort"
	"time"

	"github.com/berfenger/solaredge2mqtt/internal/config"
	"github.com/berfenger/solaredge2mqtt/internal/core/domain"
	. "github.com/berfenger/solaredge2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

// HubActor decodes the snapshots of the polling hub and routes them to one
// DeviceActor per uid_base.
type HubActor struct {
	config      *config.Config
	behavior    actor.Behavior
	stash       *Stash
	scheduler   *scheduler.TimerScheduler
	eventStream *eventstream.EventStream
	devices     map[string]*deviceEntry
	now         func() time.Time

	logger *zap.Logger
}

type deviceEntry struct {
	pid      *actor.PID
	lastSeen time.Time
	summary  domain.DeviceSummary
}

type staleTick struct {
}

type decodedSnapshot struct {
	platform *domain.Platform
	source   string
	err      error
	replyTo  *actor.PID
}

func NewHubActor(config *config.Config, eventStream *eventstream.EventStream, logger *zap.Logger) *HubActor {
	act := &HubActor{
		config:      config,
		behavior:    actor.NewBehavior(),
		stash:       &Stash{},
		eventStream: eventStream,
		devices:     map[string]*deviceEntry{},
		now:         time.Now,
		logger:      ActorLogger(domain.ACTOR_ID_HUB, logger),
	}
	act.behavior.Become(act.DefaultReceive)
	return act
}

func (state *HubActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *HubActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("hub@default started")
		if state.staleAfter() > 0 {
			state.scheduler = scheduler.NewTimerScheduler(ctx)
			state.scheduler.RequestOnce(state.sweepInterval(), ctx.Self(), staleTick{})
		}
	case domain.ActorHealthRequest:
		state.logger.Debug("hub@default ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_HUB,
			Healthy: true,
			State:   fmt.Sprintf("%d devices", len(state.devices)),
		})
	case domain.IngestSnapshotRequest:
		state.logger.Debug("hub@default IngestSnapshotRequest", zap.String("source", msg.Source))
		replyTo := ForRequest(msg).ReplyTo(ctx)
		source := msg.Source

		NewBackgroundTask(ctx, func() (*decodedSnapshot, error) {
			return decodeSnapshot(msg)
		}).Recover(func(err error) decodedSnapshot {
			return decodedSnapshot{source: source, err: err}
		}).WithTimeout(2 * time.Second).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(func(ctx actor.Context) {
			state.waitingDecodeReceive(ctx, replyTo)
		})
	case deviceSummaryUpdate:
		if entry, ok := state.devices[msg.summary.UIDBase]; ok {
			entry.summary = msg.summary
		}
	case staleTick:
		state.sweep(ctx)
		state.scheduler.RequestOnce(state.sweepInterval(), ctx.Self(), staleTick{})
	case domain.ResendRegistrationsRequest:
		state.logger.Debug("hub@default ResendRegistrationsRequest", zap.Int("devices", len(state.devices)))
		for _, entry := range state.devices {
			ctx.Send(entry.pid, msg)
		}
	case domain.GetDevicesRequest:
		ForRequest(msg).Respond(ctx, domain.GetDevicesResponse{
			Devices: state.summaries(),
		})
	case domain.GetDeviceStatesRequest:
		entry, ok := state.devices[msg.UIDBase]
		if !ok {
			ForRequest(msg).Respond(ctx, domain.GetDeviceStatesResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: fmt.Errorf("%w: %s", domain.ErrUnknownDevice, msg.UIDBase),
				},
			})
			return
		}
		ctx.Forward(entry.pid)
	default:
		state.logger.Debug("hub@default unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *HubActor) waitingDecodeReceive(ctx actor.Context, replyTo *actor.PID) {
	switch msg := ctx.Message().(type) {
	case decodedSnapshot:
		resp := domain.IngestSnapshotResponse{}
		if msg.err != nil {
			state.logger.Warn("hub@decoding invalid snapshot", zap.String("source", msg.source), zap.Error(msg.err))
			state.eventStream.Publish(domain.SnapshotRejectedEvent{Source: msg.source, Error: msg.err})
			resp.ResponseError = msg.err
		} else {
			if err := state.route(ctx, msg.platform); err != nil {
				state.logger.Error("hub@decoding could not route snapshot", zap.Error(err))
				resp.ResponseError = err
			} else {
				state.eventStream.Publish(domain.SnapshotIngestedEvent{UIDBase: msg.platform.UIDBase, Source: msg.source})
				resp.UIDBase = msg.platform.UIDBase
			}
		}
		if replyTo != nil {
			ctx.Send(replyTo, resp)
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	default:
		state.stash.Stash(ctx, msg)
	}
}

func decodeSnapshot(req domain.IngestSnapshotRequest) (*decodedSnapshot, error) {
	snap, err := domain.ParseSnapshot(req.Payload)
	if err != nil {
		return nil, err
	}
	if req.TopicDeviceId != "" && req.TopicDeviceId != snap.UIDBase {
		return nil, fmt.Errorf("%w: topic device %q does not match uid_base %q", domain.ErrInvalidSnapshot, req.TopicDeviceId, snap.UIDBase)
	}
	return &decodedSnapshot{
		platform: snap.Platform(),
		source:   req.Source,
	}, nil
}

func (state *HubActor) route(ctx actor.Context, p *domain.Platform) error {
	entry, ok := state.devices[p.UIDBase]
	if !ok {
		uidBase := p.UIDBase
		props := actor.PropsFromProducer(func() actor.Actor {
			return NewDeviceActor(state.config, uidBase, state.eventStream, state.logger)
		}, actor.WithSupervisor(actor.NewOneForOneStrategy(10, 10*time.Second, actor.DefaultDecider)))
		pid, err := ctx.SpawnNamed(props, uidBase)
		if err != nil {
			return err
		}
		state.logger.Info("hub@default new device", zap.String("device", uidBase), zap.String("kind", string(p.Kind)))
		entry = &deviceEntry{
			pid:     pid,
			summary: domain.DeviceSummary{UIDBase: uidBase, Kind: p.Kind},
		}
		state.devices[uidBase] = entry
	}
	entry.lastSeen = state.now()
	ctx.Send(entry.pid, deviceSnapshot{platform: p})
	return nil
}

// sweep marks the devices that have not sent a snapshot within
// stale_after_millis.
func (state *HubActor) sweep(ctx actor.Context) {
	now := state.now()
	for uidBase, entry := range state.devices {
		if now.Sub(entry.lastSeen) > state.staleAfter() {
			state.logger.Debug("hub@default stale device", zap.String("device", uidBase))
			ctx.Send(entry.pid, deviceStale{})
		}
	}
}

func (state *HubActor) summaries() []domain.DeviceSummary {
	out := make([]domain.DeviceSummary, 0, len(state.devices))
	for _, entry := range state.devices {
		out = append(out, entry.summary)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UIDBase < out[j].UIDBase
	})
	return out
}

func (state *HubActor) staleAfter() time.Duration {
	return time.Duration(state.config.HubConfig.StaleAfterMillis) * time.Millisecond
}

func (state *HubActor) sweepInterval() time.Duration {
	return state.staleAfter() / 2
}
