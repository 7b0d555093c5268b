package sunspec

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotImplemented(t *testing.T) {
	assert := assert.New(t)

	assert.True(IsNotImplInt16(0x8000))
	assert.True(IsNotImplInt16(-32768))
	assert.False(IsNotImplInt16(0x7FFF))
	assert.True(IsNotImplUint16(0xFFFF))
	assert.False(IsNotImplUint16(-1))
	assert.True(IsNotImplUint32(0xFFFFFFFF))
	assert.True(IsNotImplFloat32(math.NaN()))
	assert.True(IsNotImplFloat32(float64(math.Float32frombits(NotImplFloat32))))
	assert.False(IsNotImplFloat32(0))
	assert.True(IsMaxFloat32(math.MaxFloat32))
	assert.True(IsMaxFloat32(-math.MaxFloat32))
	assert.False(IsMaxFloat32(1000))
}

func TestScaleFactor(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(230.5, ApplySF(2305, -1))
	assert.Equal(12000.0, ApplySF(12, 3))
	assert.Equal(50.0, ApplySF(50, 0))

	assert.True(ScaleFactorInRange(-10))
	assert.True(ScaleFactorInRange(10))
	assert.False(ScaleFactorInRange(-11))
	assert.False(ScaleFactorInRange(11))

	assert.Equal(2, Decimals(-2))
	assert.Equal(0, Decimals(0))
}

func TestRound(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(2.35, Round(2.345, 2))
	assert.Equal(2.0, Round(2.5, 0))
	assert.Equal(4.0, Round(3.5, 0))
	assert.Equal(1.234, Round(1.234, -1))
	assert.Equal(12.346, WattsToKilowatts(12345.6))
	assert.Equal(0.001, WattsToKilowatts(1))
}

func TestAccumulator(t *testing.T) {
	var acc Accumulator

	_, err := acc.Update(0)
	require.ErrorIs(t, err, ErrAccumNotPositive)

	v, err := acc.Update(100)
	require.NoError(t, err)
	assert.Equal(t, 100.0, v)

	v, err = acc.Update(100)
	require.NoError(t, err)
	assert.Equal(t, 100.0, v)

	_, err = acc.Update(99)
	assert.True(t, errors.Is(err, ErrAccumBackwards))
	assert.Equal(t, 100.0, acc.Last())

	acc.Reset()
	v, err = acc.Update(1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)
}

func TestLookupTables(t *testing.T) {
	assert := assert.New(t)

	s, ok := DIDToString(203)
	assert.True(ok)
	assert.Equal("Wye 3P1N Three Phase Meter", s)
	_, ok = DIDToString(999)
	assert.False(ok)

	s, ok = InverterStatusToString(InverterStatusMPPT)
	assert.True(ok)
	assert.Equal("I_STATUS_MPPT", s)
	s, ok = InverterStatusDescription(InverterStatusThrottled)
	assert.True(ok)
	assert.Equal("Production (Curtailed)", s)

	s, ok = BatteryStatusToString(BatteryStatusCharge)
	assert.True(ok)
	assert.Equal("B_STATUS_CHARGE", s)

	assert.Equal([]string{}, RRCRInputs(0))
	assert.Equal([]string{"L1", "L3"}, RRCRInputs(0b0101))
}

func TestEventBits(t *testing.T) {
	assert := assert.New(t)

	assert.Equal([]string{}, MeterEvents(0))
	// bits 0 and 1 are not meter events
	assert.Equal([]string{}, MeterEvents(0b11))
	assert.Equal([]string{"POWER_FAILURE", "OVER_VOLTAGE"}, MeterEvents(1<<2|1<<6))
	assert.Equal([]string{"RESERVED1", "OEM1", "OEM15"}, MeterEvents(1<<8|1<<16|1<<30))

	assert.Equal([]string{"GROUND_FAULT", "RESERVED_2", "ARC_DETECTION"}, MMPPTEvents(1|1<<2|1<<15))

	assert.Equal("00000000000000000000000000000101", Bits32(5))
}
