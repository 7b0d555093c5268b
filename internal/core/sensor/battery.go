package sensor

import (
	"strconv"

	"github.com/berfenger/solaredge2mqtt/internal/core/domain"
	"github.com/berfenger/solaredge2mqtt/pkg/sunspec"
	"go.uber.org/zap"
)

func batteryTemperature(p *domain.Platform, key, name, register string, enabled bool) *Sensor {
	desc := Description{
		Key:              key,
		Name:             name,
		Unit:             UNIT_CELSIUS,
		DeviceClass:      domain.DEVICE_CLASS_TEMPERATURE,
		StateClass:       domain.STATE_CLASS_MEASUREMENT,
		EnabledByDefault: enabled,
	}
	return newSensor(p, desc, func(p *domain.Platform) State {
		v, ok := floatInRange(p.DecodedModel, register, sunspec.BatteryTemperatureMin, sunspec.BatteryTemperatureMax)
		if !ok {
			return Unknown()
		}
		return Number(sunspec.Round(v, 1), 1)
	})
}

func BatteryAvgTemp(p *domain.Platform) *Sensor {
	return batteryTemperature(p, "avg_temp", "Average Temperature", "B_Temp_Average", true)
}

func BatteryMaxTemp(p *domain.Platform) *Sensor {
	return batteryTemperature(p, "max_temp", "Max Temperature", "B_Temp_Max", false)
}

// batteryOff reports whether the battery says it is off, in which case its
// DC readings are stale.
func batteryOff(p *domain.Platform) bool {
	status, ok := p.DecodedModel.Int("B_Status")
	return ok && status == sunspec.BatteryStatusOff
}

func batteryDC(p *domain.Platform, desc Description, register string, lo, hi float64) *Sensor {
	return newSensor(p, desc, func(p *domain.Platform) State {
		v, ok := floatInRange(p.DecodedModel, register, lo, hi)
		if !ok || batteryOff(p) {
			return Unknown()
		}
		return Number(sunspec.Round(v, 2), -1)
	})
}

func BatteryVoltage(p *domain.Platform) *Sensor {
	desc := Description{
		Key:              "dc_voltage",
		Name:             "DC Voltage",
		Unit:             UNIT_VOLT,
		DeviceClass:      domain.DEVICE_CLASS_VOLTAGE,
		StateClass:       domain.STATE_CLASS_MEASUREMENT,
		EnabledByDefault: true,
	}
	return batteryDC(p, desc, "B_DC_Voltage", sunspec.BatteryVoltageMin, sunspec.BatteryVoltageMax)
}

func BatteryCurrent(p *domain.Platform) *Sensor {
	desc := Description{
		Key:              "dc_current",
		Name:             "DC Current",
		Unit:             UNIT_AMPERE,
		DeviceClass:      domain.DEVICE_CLASS_CURRENT,
		StateClass:       domain.STATE_CLASS_MEASUREMENT,
		Icon:             ICON_CURRENT_DC,
		EnabledByDefault: true,
	}
	return batteryDC(p, desc, "B_DC_Current", sunspec.BatteryCurrentMin, sunspec.BatteryCurrentMax)
}

func BatteryPower(p *domain.Platform) *Sensor {
	desc := Description{
		Key:              "dc_power",
		Name:             "DC Power",
		Unit:             UNIT_WATT,
		DeviceClass:      domain.DEVICE_CLASS_POWER,
		StateClass:       domain.STATE_CLASS_MEASUREMENT,
		Icon:             ICON_LIGHTNING_BOLT,
		EnabledByDefault: true,
	}
	return newSensor(p, desc, func(p *domain.Platform) State {
		v, ok := p.DecodedModel.Float("B_DC_Power")
		if !ok || sunspec.IsNotImplFloat32(v) || sunspec.IsMaxFloat32(v) || batteryOff(p) {
			return Unknown()
		}
		return Number(sunspec.Round(v, 2), -1)
	})
}

// batteryEnergy reports a 64 bit lifetime counter. Some batteries reset their
// counters, which is only tolerated when the platform allows it.
func batteryEnergy(p *domain.Platform, desc Description, register, label string, logger *zap.Logger) *Sensor {
	var last uint64
	return newSensor(p, desc, func(p *domain.Platform) State {
		v, ok := p.DecodedModel.Uint64(register)
		if !ok || v == sunspec.AccumNA64 || (v == 0 && !p.AllowBatteryEnergyReset) {
			return Unknown()
		}
		if v >= last {
			last = v
			return Number(sunspec.WattsToKilowatts(float64(v)), -1)
		}
		if p.AllowBatteryEnergyReset {
			logger.Warn("battery energy went backwards",
				zap.String("uid_base", p.UIDBase),
				zap.String("counter", label),
				zap.Uint64("value", v),
				zap.Uint64("last", last))
			if v == 0 {
				last = 0
			}
		}
		return Unknown()
	})
}

func BatteryEnergyExport(p *domain.Platform, logger *zap.Logger) *Sensor {
	desc := Description{
		Key:              "energy_export",
		Name:             "Energy Export",
		Unit:             UNIT_KILO_WATT_HOUR,
		DeviceClass:      domain.DEVICE_CLASS_ENERGY,
		StateClass:       domain.STATE_CLASS_TOTAL_INCREASING,
		Icon:             ICON_BATTERY_LOW,
		EnabledByDefault: true,
	}
	return batteryEnergy(p, desc, "B_Export_Energy_WH", "export", logger)
}

func BatteryEnergyImport(p *domain.Platform, logger *zap.Logger) *Sensor {
	desc := Description{
		Key:              "energy_import",
		Name:             "Energy Import",
		Unit:             UNIT_KILO_WATT_HOUR,
		DeviceClass:      domain.DEVICE_CLASS_ENERGY,
		StateClass:       domain.STATE_CLASS_TOTAL_INCREASING,
		Icon:             ICON_BATTERY_FULL,
		EnabledByDefault: true,
	}
	return batteryEnergy(p, desc, "B_Import_Energy_WH", "import", logger)
}

// batteryCapacity reads an energy level bounded by the rated energy.
func batteryCapacity(p *domain.Platform, key, name, register string) *Sensor {
	desc := Description{
		Key:              key,
		Name:             name,
		Unit:             UNIT_KILO_WATT_HOUR,
		DeviceClass:      domain.DEVICE_CLASS_ENERGY,
		StateClass:       domain.STATE_CLASS_MEASUREMENT,
		EnabledByDefault: true,
	}
	return newSensor(p, desc, func(p *domain.Platform) State {
		v, ok := p.DecodedModel.Float(register)
		if !ok || sunspec.IsNotImplFloat32(v) || v < 0 {
			return Unknown()
		}
		if rated, ok := p.DecodedCommon.Float("B_RatedEnergy"); ok && v > rated {
			return Unknown()
		}
		return Number(sunspec.WattsToKilowatts(v), -1)
	})
}

func BatteryMaxEnergy(p *domain.Platform) *Sensor {
	return batteryCapacity(p, "max_energy", "Maximum Energy", "B_Energy_Max")
}

func BatteryAvailableEnergy(p *domain.Platform) *Sensor {
	return batteryCapacity(p, "avail_energy", "Available Energy", "B_Energy_Available")
}

func batteryPercent(p *domain.Platform, desc Description, register string) *Sensor {
	return newSensor(p, desc, func(p *domain.Platform) State {
		v, ok := floatInRange(p.DecodedModel, register, 0, 100)
		if !ok {
			return Unknown()
		}
		return Number(sunspec.Round(v, 0), 0)
	})
}

func BatterySOH(p *domain.Platform) *Sensor {
	desc := diagnostic("battery_soh", "State of Health")
	desc.Unit = UNIT_PERCENTAGE
	desc.StateClass = domain.STATE_CLASS_MEASUREMENT
	desc.Icon = ICON_BATTERY_HEALTH
	return batteryPercent(p, desc, "B_SOH")
}

func BatterySOE(p *domain.Platform) *Sensor {
	desc := Description{
		Key:              "battery_soe",
		Name:             "State of Energy",
		Unit:             UNIT_PERCENTAGE,
		DeviceClass:      domain.DEVICE_CLASS_BATTERY,
		StateClass:       domain.STATE_CLASS_MEASUREMENT,
		EnabledByDefault: true,
	}
	return batteryPercent(p, desc, "B_SOE")
}

func BatteryStatus(p *domain.Platform) *Sensor {
	return newSensor(p, diagnostic("status", "Status"), func(p *domain.Platform) State {
		status, ok := p.DecodedModel.Int("B_Status")
		if !ok || sunspec.IsNotImplUint32(status) {
			return Unknown()
		}
		return Text(strconv.FormatInt(status, 10))
	}).withAttributes(func(p *domain.Platform) map[string]any {
		attrs := map[string]any{}
		status, ok := p.DecodedModel.Int("B_Status")
		if !ok {
			return attrs
		}
		if text, ok := sunspec.BatteryStatusToString(status); ok {
			attrs["status_text"] = text
		}
		return attrs
	})
}
