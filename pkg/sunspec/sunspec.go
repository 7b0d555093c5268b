package sunspec

import (
	"math"
	"strconv"
)

// not implemented register values
const (
	NotImplInt16   = 0x8000
	NotImplUint16  = 0xFFFF
	NotImplInt32   = 0x80000000
	NotImplUint32  = 0xFFFFFFFF
	NotImplFloat32 = 0x7FC00000
)

// accumulator register values
const (
	AccumNA32    = 0x00000000
	AccumLimit32 = 0xFFFFFFFF
	AccumNA64    = uint64(0xFFFFFFFFFFFFFFFF)
)

const (
	ScaleFactorMin = -10
	ScaleFactorMax = 10
)

// battery limits
const (
	BatteryVoltageMin     = 0
	BatteryVoltageMax     = 1000
	BatteryCurrentMin     = -200
	BatteryCurrentMax     = 200
	BatteryTemperatureMin = -30
	BatteryTemperatureMax = 100
)

// IsNotImplInt16 accepts both the raw register and its signed reading.
func IsNotImplInt16(v int64) bool {
	return v == NotImplInt16 || v == -NotImplInt16
}

func IsNotImplUint16(v int64) bool {
	return v == NotImplUint16
}

func IsNotImplInt32(v int64) bool {
	return v == NotImplInt32 || v == -NotImplInt32
}

func IsNotImplUint32(v int64) bool {
	return v == NotImplUint32
}

// IsNotImplFloat32 reports whether v carries the float32 quiet NaN used as
// "not implemented".
func IsNotImplFloat32(v float64) bool {
	return math.IsNaN(v) || math.Float32bits(float32(v)) == NotImplFloat32
}

// IsMaxFloat32 reports whether v is +/- the largest float32, which some
// batteries report instead of NaN.
func IsMaxFloat32(v float64) bool {
	f := float32(v)
	return f == math.MaxFloat32 || f == -math.MaxFloat32
}

func ScaleFactorInRange(sf int64) bool {
	return sf >= ScaleFactorMin && sf <= ScaleFactorMax
}

// ApplySF returns value * 10^sf.
func ApplySF(value float64, sf int64) float64 {
	if sf >= 0 {
		return value * math.Pow(10, float64(sf))
	}
	return value / math.Pow(10, float64(-sf))
}

// Round rounds half to even on the exact decimal expansion of v.
func Round(v float64, decimals int) float64 {
	if decimals < 0 {
		return v
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', decimals, 64), 64)
	if err != nil {
		return v
	}
	return r
}

func WattsToKilowatts(v float64) float64 {
	return Round(v*0.001, 3)
}

// Decimals is the rounding precision implied by a scale factor.
func Decimals(sf int64) int {
	if sf < 0 {
		return int(-sf)
	}
	return int(sf)
}
