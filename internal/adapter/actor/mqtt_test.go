package actor

import (
	"math"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/berfenger/solaredge2mqtt/internal/core/domain"
	"github.com/berfenger/solaredge2mqtt/internal/mqtt"
	"github.com/berfenger/solaredge2mqtt/internal/util"
	"github.com/berfenger/solaredge2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMQTTActor(t *testing.T) {

	cfg := util.LoadTestConfig()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)

	context := as.Root

	es := &eventstream.EventStream{}

	props := actor.PropsFromProducer(func() actor.Actor { return NewTestMQTTActor(&cfg, es, logger) })
	pid := context.Spawn(props)

	time.Sleep(500 * time.Millisecond)

	result, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 2*time.Second).Result()
	require.NoError(t, err)
	resp, ok := result.(domain.ActorHealthResponse)
	assert.True(t, ok)
	assert.True(t, resp.Healthy)

	es.Publish(domain.FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{
			Id:       "se_inv_1_ac_power",
			DeviceId: "se_inv_1",
		},
		Value:    245,
		Decimals: 0,
	})
	es.Publish(domain.UnknownSensorUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{
			Id:       "se_inv_1_ac_current",
			DeviceId: "se_inv_1",
		},
	})

	time.Sleep(200 * time.Millisecond)

	context.Stop(pid)

	time.Sleep(200 * time.Millisecond)

	as.Shutdown()
}

func testMQTTActor() *MQTTActor {
	cfg := util.LoadTestConfig()
	act := NewTestMQTTActor(&cfg, nil, zap.NewNop())
	act.client = mqtt.CreateMQTTClient(&cfg, mqtt.OptsFromConfig(&cfg), nil, nil)
	return act
}

func TestEventToMQTTMessage(t *testing.T) {
	act := testMQTTActor()
	mixIn := domain.SensorUpdateEventMixIn{Id: "se_inv_1_ac_current", DeviceId: "se_inv_1"}

	tests := []struct {
		name    string
		event   any
		topic   string
		payload string
		retain  bool
	}{
		{
			name:    "float with decimals",
			event:   domain.FloatSensorUpdateEvent{SensorUpdateEventMixIn: mixIn, Value: 240.1, Decimals: 1},
			topic:   "solaredge2mqtt/sensor/se_inv_1_ac_current/state",
			payload: "240.1",
		},
		{
			name:    "float shortest",
			event:   domain.FloatSensorUpdateEvent{SensorUpdateEventMixIn: mixIn, Value: 23.05, Decimals: -1},
			topic:   "solaredge2mqtt/sensor/se_inv_1_ac_current/state",
			payload: "23.05",
		},
		{
			name:    "unknown",
			event:   domain.UnknownSensorUpdateEvent{SensorUpdateEventMixIn: mixIn},
			topic:   "solaredge2mqtt/sensor/se_inv_1_ac_current/state",
			payload: "None",
		},
		{
			name:    "text",
			event:   domain.TextSensorUpdateEvent{SensorUpdateEventMixIn: mixIn, Value: "4"},
			topic:   "solaredge2mqtt/sensor/se_inv_1_ac_current/state",
			payload: "4",
		},
		{
			name:    "attributes",
			event:   domain.SensorAttributesUpdateEvent{SensorUpdateEventMixIn: mixIn, Attributes: map[string]any{"status_text": "I_STATUS_MPPT"}},
			topic:   "solaredge2mqtt/sensor/se_inv_1_ac_current/attributes",
			payload: `{"status_text":"I_STATUS_MPPT"}`,
		},
		{
			name:    "availability",
			event:   domain.SensorAvailabilityUpdateEvent{SensorUpdateEventMixIn: mixIn, Available: false},
			topic:   "solaredge2mqtt/sensor/se_inv_1_ac_current/availability",
			payload: "offline",
			retain:  true,
		},
		{
			name:    "bridge",
			event:   domain.BridgeStateUpdateEvent{Value: true},
			topic:   "solaredge2mqtt/bridge/state",
			payload: "online",
			retain:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := act.event2MQTTMessage(tt.event)
			require.NotNil(t, msg)
			assert.Equal(t, tt.topic, msg.topic)
			assert.Equal(t, tt.payload, msg.message)
			assert.Equal(t, tt.retain, msg.retain)
		})
	}
}

func TestEventToMQTTMessageIgnoresOthers(t *testing.T) {
	act := testMQTTActor()
	assert.Nil(t, act.event2MQTTMessage(domain.DeviceRegisteredEvent{}))
	assert.Nil(t, act.event2MQTTMessage(domain.SensorAttributesUpdateEvent{
		Attributes: map[string]any{"bad": math.NaN()},
	}))
}

// slowBroker acknowledges publishes asynchronously and records their order.
type slowBroker struct {
	mu       sync.Mutex
	payloads []string
	inFlight int
	maxIn    int
}

func (b *slowBroker) publish(topic string, payload any, qos byte, retain bool, continuation func(error)) {
	b.mu.Lock()
	b.payloads = append(b.payloads, payload.(string))
	b.inFlight++
	if b.inFlight > b.maxIn {
		b.maxIn = b.inFlight
	}
	b.mu.Unlock()
	go func() {
		time.Sleep(5 * time.Millisecond)
		b.mu.Lock()
		b.inFlight--
		b.mu.Unlock()
		continuation(nil)
	}()
}

func (b *slowBroker) published() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.payloads...)
}

func TestMQTTActorPublishesInOrder(t *testing.T) {
	as := actor.NewActorSystem()
	defer as.Shutdown()

	broker := &slowBroker{}
	act := testMQTTActor()
	act.publish = broker.publish
	act.behavior.Become(act.DefaultReceive)
	pid := as.Root.Spawn(actor.PropsFromProducer(func() actor.Actor { return act }))

	mixIn := domain.SensorUpdateEventMixIn{Id: "se_mtr_1_ac_power", DeviceId: "se_mtr_1"}
	var expected []string
	for i := 0; i < 50; i++ {
		expected = append(expected, strconv.Itoa(i))
		as.Root.Send(pid, OnEventStreamMessage{
			message: domain.FloatSensorUpdateEvent{SensorUpdateEventMixIn: mixIn, Value: float64(i)},
		})
		if i%10 == 0 {
			// other traffic does not reorder publishes
			_, err := as.Root.RequestFuture(pid, domain.ActorHealthRequest{}, time.Second).Result()
			require.NoError(t, err)
		}
	}

	assert.Eventually(t, func() bool {
		return len(broker.published()) == len(expected)
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, expected, broker.published())

	broker.mu.Lock()
	assert.Equal(t, 1, broker.maxIn)
	broker.mu.Unlock()
}

func TestMQTTActorRepliesToPublishRequests(t *testing.T) {
	as := actor.NewActorSystem()
	defer as.Shutdown()

	broker := &slowBroker{}
	act := testMQTTActor()
	act.publish = broker.publish
	act.behavior.Become(act.DefaultReceive)
	pid := as.Root.Spawn(actor.PropsFromProducer(func() actor.Actor { return act }))

	res, err := as.Root.RequestFuture(pid, domain.PublishMessageRequest{
		Topic:   "solaredge2mqtt/test",
		Payload: "hello",
	}, 2*time.Second).Result()
	require.NoError(t, err)
	resp, ok := res.(domain.PublishMessageResponse)
	require.True(t, ok)
	assert.False(t, resp.HasResponseError())
	assert.Equal(t, []string{"hello"}, broker.published())
}
