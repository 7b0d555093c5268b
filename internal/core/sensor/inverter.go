package sensor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/berfenger/solaredge2mqtt/internal/core/domain"
	"github.com/berfenger/solaredge2mqtt/pkg/sunspec"
)

func DCCurrent(p *domain.Platform) *Sensor {
	desc := Description{
		Key:              "dc_current",
		Name:             "DC Current",
		Unit:             UNIT_AMPERE,
		DeviceClass:      domain.DEVICE_CLASS_CURRENT,
		StateClass:       domain.STATE_CLASS_MEASUREMENT,
		Icon:             ICON_CURRENT_DC,
		EnabledByDefault: true,
	}
	return newSensor(p, desc, func(p *domain.Platform) State {
		return roundedScaled(p.DecodedModel, "I_DC_Current", "I_DC_Current_SF", sunspec.IsNotImplUint16, sunspec.IsNotImplInt16, true)
	})
}

func DCVoltage(p *domain.Platform) *Sensor {
	desc := Description{
		Key:              "dc_voltage",
		Name:             "DC Voltage",
		Unit:             UNIT_VOLT,
		DeviceClass:      domain.DEVICE_CLASS_VOLTAGE,
		StateClass:       domain.STATE_CLASS_MEASUREMENT,
		EnabledByDefault: true,
	}
	return newSensor(p, desc, func(p *domain.Platform) State {
		return roundedScaled(p.DecodedModel, "I_DC_Voltage", "I_DC_Voltage_SF", sunspec.IsNotImplUint16, sunspec.IsNotImplInt16, true)
	})
}

func DCPower(p *domain.Platform) *Sensor {
	desc := Description{
		Key:              "dc_power",
		Name:             "DC Power",
		Unit:             UNIT_WATT,
		DeviceClass:      domain.DEVICE_CLASS_POWER,
		StateClass:       domain.STATE_CLASS_MEASUREMENT,
		Icon:             ICON_SOLAR_POWER,
		EnabledByDefault: true,
	}
	return newSensor(p, desc, func(p *domain.Platform) State {
		return roundedScaled(p.DecodedModel, "I_DC_Power", "I_DC_Power_SF", sunspec.IsNotImplInt16, sunspec.IsNotImplInt16, true)
	})
}

func HeatSinkTemperature(p *domain.Platform) *Sensor {
	desc := Description{
		Key:              "temp_sink",
		Name:             "Temp Sink",
		Unit:             UNIT_CELSIUS,
		DeviceClass:      domain.DEVICE_CLASS_TEMPERATURE,
		StateClass:       domain.STATE_CLASS_MEASUREMENT,
		EnabledByDefault: true,
	}
	// a zero reading means the sensor is not wired
	notImpl := func(v int64) bool {
		return v == 0 || sunspec.IsNotImplInt16(v)
	}
	return newSensor(p, desc, func(p *domain.Platform) State {
		return roundedScaled(p.DecodedModel, "I_Temp_Sink", "I_Temp_SF", notImpl, sunspec.IsNotImplInt16, true)
	})
}

func Status(p *domain.Platform) *Sensor {
	return newSensor(p, diagnostic("status", "Status"), func(p *domain.Platform) State {
		status, ok := p.DecodedModel.Int("I_Status")
		if !ok || sunspec.IsNotImplInt16(status) {
			return Unknown()
		}
		return Text(strconv.FormatInt(status, 10))
	}).withAttributes(func(p *domain.Platform) map[string]any {
		attrs := map[string]any{}
		status, ok := p.DecodedModel.Int("I_Status")
		if !ok {
			return attrs
		}
		if desc, ok := sunspec.InverterStatusDescription(status); ok {
			attrs["description"] = desc
		}
		if text, ok := sunspec.InverterStatusToString(status); ok {
			attrs["status_text"] = text
		}
		return attrs
	})
}

func StatusVendor(p *domain.Platform) *Sensor {
	return newSensor(p, diagnostic("status_vendor", "Status Vendor"), func(p *domain.Platform) State {
		code, ok := p.DecodedModel.Int("I_Status_Vendor")
		if !ok || sunspec.IsNotImplInt16(code) {
			return Unknown()
		}
		return Text(strconv.FormatInt(code, 10))
	}).withAttributes(func(p *domain.Platform) map[string]any {
		code, ok := p.DecodedModel.Int("I_Status_Vendor")
		if !ok {
			return nil
		}
		if desc, ok := sunspec.VendorStatusDescription(code); ok {
			return map[string]any{"description": desc}
		}
		return nil
	})
}

// powerControlSensor builds the entities of the global power control block.
// Their unique ids predate the per-device uid base and are kept stable.
func powerControlSensor(p *domain.Platform, desc Description, value valueFunc) *Sensor {
	s := newSensor(p, desc, value)
	s.uniqueId = fmt.Sprintf("%s_%s_%s", p.Model, p.Serial, desc.Key)
	s.available = func(p *domain.Platform) bool {
		return p.HasGlobalPowerControl() && p.Online
	}
	return s
}

func RRCR(p *domain.Platform) *Sensor {
	desc := Description{
		Key:              "rrcr",
		Name:             "RRCR Status",
		EnabledByDefault: p.HasGlobalPowerControl(),
	}
	return powerControlSensor(p, desc, func(p *domain.Platform) State {
		v, ok := rrcr(p)
		if !ok {
			return Unknown()
		}
		return Integer(v)
	}).withAttributes(func(p *domain.Platform) map[string]any {
		v, ok := p.DecodedModel.Int("I_RRCR")
		if !ok {
			return nil
		}
		return map[string]any{"inputs": pyList(sunspec.RRCRInputs(v))}
	})
}

func rrcr(p *domain.Platform) (int64, bool) {
	v, ok := p.DecodedModel.Int("I_RRCR")
	if !ok || sunspec.IsNotImplUint16(v) || v > 0xF {
		return 0, false
	}
	return v, true
}

func ActivePowerLimit(p *domain.Platform) *Sensor {
	desc := Description{
		Key:              "active_power_limit",
		Name:             "Active Power Limit",
		Unit:             UNIT_PERCENTAGE,
		StateClass:       domain.STATE_CLASS_MEASUREMENT,
		Icon:             ICON_PERCENT,
		EnabledByDefault: p.HasGlobalPowerControl(),
	}
	return powerControlSensor(p, desc, func(p *domain.Platform) State {
		v, ok := p.DecodedModel.Int("I_Power_Limit")
		if !ok || sunspec.IsNotImplUint16(v) || v > 100 || v < 0 {
			return Unknown()
		}
		return Integer(v)
	})
}

func CosPhi(p *domain.Platform) *Sensor {
	desc := Description{
		Key:        "cosphi",
		Name:       "CosPhi",
		StateClass: domain.STATE_CLASS_MEASUREMENT,
		Icon:       ICON_ANGLE_ACUTE,
	}
	return powerControlSensor(p, desc, func(p *domain.Platform) State {
		v, ok := floatInRange(p.DecodedModel, "I_CosPhi", -1, 1)
		if !ok {
			return Unknown()
		}
		return Number(sunspec.Round(v, 1), 1)
	})
}

func MMPPTEvents(p *domain.Platform) *Sensor {
	desc := diagnostic("mmppt_events", "MMPPT Events")
	desc.EnabledByDefault = p.HasMMPPT()
	return eventSensor(p, desc, "mmppt_Events", sunspec.MMPPTEvents)
}

// eventSensor reports a 32 bit event register with its decoded bits.
func eventSensor(p *domain.Platform, desc Description, register string, decode func(int64) []string) *Sensor {
	return newSensor(p, desc, func(p *domain.Platform) State {
		v, ok := p.DecodedModel.Int(register)
		if !ok || sunspec.IsNotImplUint32(v) {
			return Unknown()
		}
		return Integer(v)
	}).withAttributes(func(p *domain.Platform) map[string]any {
		v, ok := p.DecodedModel.Int(register)
		if !ok {
			return nil
		}
		return map[string]any{
			"description": pyList(decode(v)),
			"bits":        sunspec.Bits32(v),
		}
	})
}

// pyList renders names the way Home Assistant shows list attributes
// published as text, e.g. ['L1', 'L3'].
func pyList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = "'" + item + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
