package actor

import (
	"fmt"
	"sync"
	"testing"
	"time"

	adactor "github.com/berfenger/solaredge2mqtt/internal/adapter/actor"
	"github.com/berfenger/solaredge2mqtt/internal/config"
	"github.com/berfenger/solaredge2mqtt/internal/core/domain"
	"github.com/berfenger/solaredge2mqtt/internal/metrics"
	"github.com/berfenger/solaredge2mqtt/internal/util"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func inverterSnapshot(uidBase string, acPower int) []byte {
	return []byte(fmt.Sprintf(`{
		"kind": "inverter",
		"uid_base": %q,
		"manufacturer": "SolarEdge",
		"model": "SE5000H",
		"serial": "7E0A1B2C",
		"fw_version": "4.18.32",
		"device_address": 1,
		"online": true,
		"decoded_model": {
			"C_SunSpec_DID": 101,
			"AC_Power": %d,
			"AC_Power_SF": 0,
			"I_Status": 4
		},
		"decoded_common": {}
	}`, uidBase, acPower))
}

func meterSnapshot(uidBase string, acPower int) []byte {
	return []byte(fmt.Sprintf(`{
		"kind": "meter",
		"uid_base": %q,
		"manufacturer": "WattNode",
		"model": "WND-3Y-400-MB",
		"serial": "123456",
		"device_address": 2,
		"inverter_unit_id": 1,
		"has_parent": true,
		"online": true,
		"decoded_model": {
			"C_SunSpec_DID": 203,
			"AC_Power": %d,
			"AC_Power_SF": 0
		},
		"decoded_common": {}
	}`, uidBase, acPower))
}

// recorder collects the events published on a stream.
type recorder struct {
	mu     sync.Mutex
	events []any
}

func record(es *eventstream.EventStream) *recorder {
	r := &recorder{}
	es.Subscribe(func(evt any) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, evt)
	})
	return r
}

func (r *recorder) states(sensorId string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, evt := range r.events {
		switch ev := evt.(type) {
		case domain.FloatSensorUpdateEvent:
			if ev.Id == sensorId {
				out = append(out, fmt.Sprintf("%.0f", ev.Value))
			}
		case domain.UnknownSensorUpdateEvent:
			if ev.Id == sensorId {
				out = append(out, "None")
			}
		}
	}
	return out
}

func (r *recorder) availability(sensorId string) []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []bool
	for _, evt := range r.events {
		if ev, ok := evt.(domain.SensorAvailabilityUpdateEvent); ok && ev.Id == sensorId {
			out = append(out, ev.Available)
		}
	}
	return out
}

func (r *recorder) count(match func(any) bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, evt := range r.events {
		if match(evt) {
			n++
		}
	}
	return n
}

func testLogger(cfg config.Config) *zap.Logger {
	logCfg := zap.NewDevelopmentConfig()
	logCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	return zap.Must(logCfg.Build())
}

func TestMasterActor(t *testing.T) {

	as := actor.NewActorSystem()
	context := as.Root
	defer as.Shutdown()

	cfg := util.LoadTestConfig()
	logger := testLogger(cfg)

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewMasterOfPuppetsActor(cfg, func(es *eventstream.EventStream) *adactor.MQTTActor {
			return adactor.NewTestMQTTActor(&cfg, es, logger)
		}, metrics.New(), logger)
	})
	pid, err := context.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	require.NoError(t, err)

	res, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 5*time.Second).Result()
	require.NoError(t, err)
	healthResp, ok := res.(domain.ActorHealthResponse)
	require.True(t, ok)
	assert.True(t, healthResp.Healthy, "healthy is true")

	res, err = context.RequestFuture(pid, domain.IngestSnapshotRequest{
		Source:  domain.SNAPSHOT_SOURCE_HTTP,
		Payload: inverterSnapshot("se_inv_1", 3120),
	}, 5*time.Second).Result()
	require.NoError(t, err)
	ingestResp, ok := res.(domain.IngestSnapshotResponse)
	require.True(t, ok)
	require.False(t, ingestResp.HasResponseError())
	assert.Equal(t, "se_inv_1", ingestResp.UIDBase)

	assert.Eventually(t, func() bool {
		res, err := context.RequestFuture(pid, domain.GetDevicesRequest{}, time.Second).Result()
		if err != nil {
			return false
		}
		devices := res.(domain.GetDevicesResponse).Devices
		return len(devices) == 1 && devices[0].Entities == 33 && devices[0].Online
	}, 3*time.Second, 50*time.Millisecond)

	res, err = context.RequestFuture(pid, domain.GetDeviceStatesRequest{UIDBase: "se_inv_1"}, 5*time.Second).Result()
	require.NoError(t, err)
	statesResp, ok := res.(domain.GetDeviceStatesResponse)
	require.True(t, ok)
	require.False(t, statesResp.HasResponseError())
	found := false
	for _, s := range statesResp.States {
		if s.UniqueId == "se_inv_1_ac_power" {
			found = true
			assert.Equal(t, "3120", s.State)
			assert.Equal(t, "W", s.Unit)
		}
	}
	assert.True(t, found)

	res, err = context.RequestFuture(pid, domain.GetDeviceStatesRequest{UIDBase: "nope"}, 5*time.Second).Result()
	require.NoError(t, err)
	assert.ErrorIs(t, res.(domain.GetDeviceStatesResponse).GetResponseError(), domain.ErrUnknownDevice)

	context.Stop(pid)
}

func spawnHub(t *testing.T, cfg config.Config) (*actor.ActorSystem, *actor.PID, *recorder) {
	as := actor.NewActorSystem()
	es := &eventstream.EventStream{}
	rec := record(es)
	pid := as.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewHubActor(&cfg, es, zap.NewNop())
	}))
	t.Cleanup(as.Shutdown)
	return as, pid, rec
}

func ingest(t *testing.T, as *actor.ActorSystem, hub *actor.PID, req domain.IngestSnapshotRequest) domain.IngestSnapshotResponse {
	t.Helper()
	res, err := as.Root.RequestFuture(hub, req, 5*time.Second).Result()
	require.NoError(t, err)
	resp, ok := res.(domain.IngestSnapshotResponse)
	require.True(t, ok)
	return resp
}

func TestHubRejectsInvalidSnapshots(t *testing.T) {
	cfg := util.LoadTestConfig()
	as, hub, rec := spawnHub(t, cfg)

	resp := ingest(t, as, hub, domain.IngestSnapshotRequest{Source: domain.SNAPSHOT_SOURCE_HTTP, Payload: []byte("{")})
	assert.ErrorIs(t, resp.GetResponseError(), domain.ErrInvalidSnapshot)

	resp = ingest(t, as, hub, domain.IngestSnapshotRequest{
		Source:  domain.SNAPSHOT_SOURCE_HTTP,
		Payload: []byte(`{"kind":"charger","uid_base":"x","decoded_model":{}}`),
	})
	assert.ErrorIs(t, resp.GetResponseError(), domain.ErrInvalidSnapshot)

	resp = ingest(t, as, hub, domain.IngestSnapshotRequest{
		Source:        domain.SNAPSHOT_SOURCE_MQTT,
		TopicDeviceId: "se_inv_2",
		Payload:       inverterSnapshot("se_inv_1", 100),
	})
	assert.ErrorIs(t, resp.GetResponseError(), domain.ErrInvalidSnapshot)

	assert.Equal(t, 3, rec.count(func(evt any) bool {
		_, ok := evt.(domain.SnapshotRejectedEvent)
		return ok
	}))

	res, err := as.Root.RequestFuture(hub, domain.GetDevicesRequest{}, time.Second).Result()
	require.NoError(t, err)
	assert.Empty(t, res.(domain.GetDevicesResponse).Devices)
}

func TestHubPublishesOnlyChanges(t *testing.T) {
	cfg := util.LoadTestConfig()
	cfg.MonitorConfig.RepublishEvery = 3
	as, hub, rec := spawnHub(t, cfg)

	for _, power := range []int{100, 100, 100, 100, 200} {
		resp := ingest(t, as, hub, domain.IngestSnapshotRequest{
			Source:        domain.SNAPSHOT_SOURCE_MQTT,
			TopicDeviceId: "se_inv_1",
			Payload:       inverterSnapshot("se_inv_1", power),
		})
		require.NoError(t, resp.GetResponseError())
	}

	// first sight, republish on the third unchanged evaluation, change
	assert.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"100", "100", "200"}, rec.states("se_inv_1_ac_power"))
	}, 3*time.Second, 20*time.Millisecond)

	assert.Equal(t, 1, rec.count(func(evt any) bool {
		ev, ok := evt.(domain.DeviceRegisteredEvent)
		return ok && ev.Device.Id == "se_inv_1" && len(ev.Sensors) == 33
	}))
	assert.Equal(t, 5, rec.count(func(evt any) bool {
		ev, ok := evt.(domain.SnapshotIngestedEvent)
		return ok && ev.UIDBase == "se_inv_1" && ev.Source == domain.SNAPSHOT_SOURCE_MQTT
	}))
}

func TestHubMarksStaleDevicesUnavailable(t *testing.T) {
	cfg := util.LoadTestConfig()
	cfg.HubConfig.StaleAfterMillis = 1000
	as, hub, rec := spawnHub(t, cfg)

	resp := ingest(t, as, hub, domain.IngestSnapshotRequest{
		Source:  domain.SNAPSHOT_SOURCE_HTTP,
		Payload: inverterSnapshot("se_inv_1", 100),
	})
	require.NoError(t, resp.GetResponseError())

	assert.Eventually(t, func() bool {
		av := rec.availability("se_inv_1_ac_power")
		return len(av) == 2 && av[0] && !av[1]
	}, 4*time.Second, 50*time.Millisecond)

	assert.Equal(t, 1, rec.count(func(evt any) bool {
		ev, ok := evt.(domain.DeviceOnlineEvent)
		return ok && ev.UIDBase == "se_inv_1" && !ev.Online
	}))

	// a fresh snapshot brings the device back
	resp = ingest(t, as, hub, domain.IngestSnapshotRequest{
		Source:  domain.SNAPSHOT_SOURCE_HTTP,
		Payload: inverterSnapshot("se_inv_1", 100),
	})
	require.NoError(t, resp.GetResponseError())
	assert.Eventually(t, func() bool {
		av := rec.availability("se_inv_1_ac_power")
		return len(av) >= 3 && av[2]
	}, 2*time.Second, 20*time.Millisecond)
	assert.Eventually(t, func() bool {
		return rec.count(func(evt any) bool {
			ev, ok := evt.(domain.DeviceOnlineEvent)
			return ok && ev.UIDBase == "se_inv_1" && ev.Online
		}) == 1
	}, 2*time.Second, 20*time.Millisecond)

	res, err := as.Root.RequestFuture(hub, domain.GetDevicesRequest{}, time.Second).Result()
	require.NoError(t, err)
	devices := res.(domain.GetDevicesResponse).Devices
	require.Len(t, devices, 1)
	assert.True(t, devices[0].Online)
}

func TestHubRebuildsDeviceOnKindChange(t *testing.T) {
	cfg := util.LoadTestConfig()
	as, hub, rec := spawnHub(t, cfg)

	registered := func(kind string, sensors int) func(any) bool {
		return func(evt any) bool {
			ev, ok := evt.(domain.DeviceRegisteredEvent)
			return ok && ev.Device.Id == "se_dev_1" && ev.Device.Model == kind && len(ev.Sensors) == sensors
		}
	}

	resp := ingest(t, as, hub, domain.IngestSnapshotRequest{
		Source:  domain.SNAPSHOT_SOURCE_HTTP,
		Payload: inverterSnapshot("se_dev_1", 100),
	})
	require.NoError(t, resp.GetResponseError())
	assert.Eventually(t, func() bool {
		return len(rec.states("se_dev_1_dc_power")) == 1
	}, 2*time.Second, 20*time.Millisecond)

	for _, power := range []int{-250, -300} {
		resp = ingest(t, as, hub, domain.IngestSnapshotRequest{
			Source:  domain.SNAPSHOT_SOURCE_HTTP,
			Payload: meterSnapshot("se_dev_1", power),
		})
		require.NoError(t, resp.GetResponseError())
	}

	assert.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"100", "-250", "-300"}, rec.states("se_dev_1_ac_power"))
	}, 3*time.Second, 20*time.Millisecond)

	assert.Equal(t, 1, rec.count(registered("SE5000H", 33)))
	assert.Equal(t, 1, rec.count(registered("WND-3Y-400-MB", 71)))

	// inverter only entities are gone with the rebuild
	assert.Len(t, rec.states("se_dev_1_dc_power"), 1)
	assert.NotEmpty(t, rec.states("se_dev_1_ac_power_a"))

	res, err := as.Root.RequestFuture(hub, domain.GetDevicesRequest{}, time.Second).Result()
	require.NoError(t, err)
	devices := res.(domain.GetDevicesResponse).Devices
	require.Len(t, devices, 1)
	assert.Equal(t, domain.PLATFORM_KIND_METER, devices[0].Kind)
	assert.Equal(t, 71, devices[0].Entities)
}

func TestHubResendsRegistrations(t *testing.T) {
	cfg := util.LoadTestConfig()
	as, hub, rec := spawnHub(t, cfg)

	for _, uid := range []string{"se_inv_1", "se_inv_2"} {
		resp := ingest(t, as, hub, domain.IngestSnapshotRequest{
			Source:  domain.SNAPSHOT_SOURCE_HTTP,
			Payload: inverterSnapshot(uid, 100),
		})
		require.NoError(t, resp.GetResponseError())
	}
	isRegistration := func(evt any) bool {
		_, ok := evt.(domain.DeviceRegisteredEvent)
		return ok
	}
	assert.Eventually(t, func() bool {
		return rec.count(isRegistration) == 2
	}, 2*time.Second, 20*time.Millisecond)

	as.Root.Send(hub, domain.ResendRegistrationsRequest{})

	assert.Eventually(t, func() bool {
		return rec.count(isRegistration) == 4
	}, 2*time.Second, 20*time.Millisecond)
}

func TestHADiscoveryActor(t *testing.T) {
	as := actor.NewActorSystem()
	context := as.Root
	defer as.Shutdown()

	cfg := util.LoadTestConfig()
	es := &eventstream.EventStream{}
	requests := make(chan domain.PublishDiscoveryRequest, 10)

	mqttStub := context.Spawn(actor.PropsFromFunc(func(ctx actor.Context) {
		switch msg := ctx.Message().(type) {
		case domain.ActorHealthRequest:
			ctx.Respond(domain.ActorHealthResponse{Id: domain.ACTOR_ID_MQTT, Healthy: true})
		case domain.PublishDiscoveryRequest:
			requests <- msg
		}
	}))

	pid := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewHADiscoveryActor(&cfg, mqttStub, es, zap.NewNop())
	}))

	select {
	case req := <-requests:
		require.Len(t, req.Sensors, 1)
		assert.Equal(t, domain.SENSOR_ID_BRIDGE_STATE, req.Sensors[0].Id)
	case <-time.After(3 * time.Second):
		t.Fatal("bridge discovery not published")
	}

	dev := domain.Device{Id: "se_inv_1", Name: "SolarEdge SE5000H", Model: "SE5000H"}
	es.Publish(domain.DeviceRegisteredEvent{
		Device: dev,
		Sensors: []domain.GenericSensor{
			{Device: dev, Id: "se_inv_1_device", UniqueId: "se_inv_1_device"},
			{Device: dev, Id: "se_inv_1_ac_power", UniqueId: "se_inv_1_ac_power"},
		},
	})

	select {
	case req := <-requests:
		require.Len(t, req.Sensors, 2)
		assert.Equal(t, "SE5000H", req.Sensors[0].Device.Model)
		assert.Equal(t, domain.IdDevice(dev), req.Sensors[1].Device)
	case <-time.After(3 * time.Second):
		t.Fatal("device discovery not published")
	}

	context.Stop(pid)
}

func TestHADiscoveryActorWaitsForMQTT(t *testing.T) {
	as := actor.NewActorSystem()
	context := as.Root
	defer as.Shutdown()

	cfg := util.LoadTestConfig()
	es := &eventstream.EventStream{}
	requests := make(chan domain.PublishDiscoveryRequest, 10)

	// the first health check is never answered, as while connecting
	var healthChecks int
	mqttStub := context.Spawn(actor.PropsFromFunc(func(ctx actor.Context) {
		switch msg := ctx.Message().(type) {
		case domain.ActorHealthRequest:
			healthChecks++
			if healthChecks > 1 {
				ctx.Respond(domain.ActorHealthResponse{Id: domain.ACTOR_ID_MQTT, Healthy: true})
			}
		case domain.PublishDiscoveryRequest:
			requests <- msg
		}
	}))

	pid := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewHADiscoveryActor(&cfg, mqttStub, es, zap.NewNop())
	}))

	time.Sleep(200 * time.Millisecond)
	dev := domain.Device{Id: "se_inv_1", Name: "SolarEdge SE5000H", Model: "SE5000H"}
	es.Publish(domain.DeviceRegisteredEvent{
		Device: dev,
		Sensors: []domain.GenericSensor{
			{Device: dev, Id: "se_inv_1_ac_power", UniqueId: "se_inv_1_ac_power"},
		},
	})

	var announced []string
	timeout := time.After(8 * time.Second)
	for len(announced) < 2 {
		select {
		case req := <-requests:
			for _, s := range req.Sensors {
				announced = append(announced, s.UniqueId)
			}
		case <-timeout:
			t.Fatalf("discovery not published, got %v", announced)
		}
	}
	assert.Contains(t, announced, "se_inv_1_ac_power")

	context.Stop(pid)
}
