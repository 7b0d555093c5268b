package events

import (
	"testing"

	"github.com/berfenger/solaredge2mqtt/internal/core/domain"
	"github.com/berfenger/solaredge2mqtt/internal/core/sensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inverter(model domain.Registers) *domain.Platform {
	model["C_SunSpec_DID"] = 101
	return &domain.Platform{
		Kind:          domain.PLATFORM_KIND_INVERTER,
		UIDBase:       "se_inv_1",
		Manufacturer:  "SolarEdge",
		Model:         "SE5000H",
		Serial:        "7E0A1B2C",
		Online:        true,
		DecodedModel:  model,
		DecodedCommon: domain.Registers{},
	}
}

func TestNumericReadingEvents(t *testing.T) {
	p := inverter(domain.Registers{"AC_Current": 2305, "AC_Current_SF": -2})
	s, err := sensor.ACCurrent(p, "")
	require.NoError(t, err)

	events := ReadingToUpdateEvents(p.UIDBase, s, s.Evaluate(p))
	require.Len(t, events, 2)

	state, ok := events[0].(domain.FloatSensorUpdateEvent)
	require.True(t, ok)
	assert.Equal(t, "se_inv_1_ac_current", state.SensorId())
	assert.Equal(t, "se_inv_1", state.DeviceId)
	assert.InDelta(t, 23.05, state.Value, 1e-9)
	assert.Equal(t, "A", state.Unit)

	av, ok := events[1].(domain.SensorAvailabilityUpdateEvent)
	require.True(t, ok)
	assert.True(t, av.Available)
}

func TestUnknownReadingEvents(t *testing.T) {
	p := inverter(domain.Registers{})
	p.Online = false
	s, err := sensor.ACCurrent(p, "")
	require.NoError(t, err)

	events := ReadingToUpdateEvents(p.UIDBase, s, s.Evaluate(p))
	require.Len(t, events, 2)
	assert.Equal(t, "A", events[0].(domain.UnknownSensorUpdateEvent).Unit)
	assert.False(t, events[1].(domain.SensorAvailabilityUpdateEvent).Available)
}

func TestTextReadingCarriesAttributes(t *testing.T) {
	p := inverter(domain.Registers{"I_Status": 4})
	s := sensor.Status(p)

	events := ReadingToUpdateEvents(p.UIDBase, s, s.Evaluate(p))
	require.Len(t, events, 3)

	state, ok := events[0].(domain.TextSensorUpdateEvent)
	require.True(t, ok)
	assert.Equal(t, "4", state.Value)

	attrs, ok := events[2].(domain.SensorAttributesUpdateEvent)
	require.True(t, ok)
	assert.Equal(t, "I_STATUS_MPPT", attrs.Attributes["status_text"])
	assert.Equal(t, "Production", attrs.Attributes["description"])
}
