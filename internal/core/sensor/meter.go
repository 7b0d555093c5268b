package sensor

import (
	"strings"

	"github.com/berfenger/solaredge2mqtt/internal/core/domain"
	"github.com/berfenger/solaredge2mqtt/pkg/sunspec"
)

func MeterEvents(p *domain.Platform) *Sensor {
	return eventSensor(p, diagnostic("meter_events", "Meter Events"), "M_Events", sunspec.MeterEvents)
}

// MeterVAhIE is the apparent energy counter of one meter direction.
func MeterVAhIE(p *domain.Platform, phase string) *Sensor {
	return meterEnergy(p, phase, "vah", UNIT_VOLT_AMPERE_HOUR, "M_VAh")
}

// MetervarhIE is the reactive energy counter of one meter quadrant.
func MetervarhIE(p *domain.Platform, phase string) *Sensor {
	return meterEnergy(p, phase, "varh", UNIT_VOLT_AMPERE_REACT_H, "M_varh")
}

func meterEnergy(p *domain.Platform, phase, suffix, unit, register string) *Sensor {
	desc := Description{
		Key:         strings.ToLower(phase) + "_" + suffix,
		Name:        energyName(phase, unit),
		Unit:        unit,
		DeviceClass: domain.DEVICE_CLASS_ENERGY,
		StateClass:  domain.STATE_CLASS_TOTAL_INCREASING,
		Icon:        energyIcon(phase),
	}
	reg := register + "_" + phase
	sfKey := register + "_SF"
	accum := &sunspec.Accumulator{}
	return newSensor(p, desc, func(p *domain.Platform) State {
		v, ok := accumulated(p.DecodedModel, reg, sfKey, sunspec.IsNotImplInt16, accum)
		if !ok {
			return Unknown()
		}
		return Number(v, -1)
	})
}
