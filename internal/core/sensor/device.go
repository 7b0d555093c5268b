package sensor

import (
	"github.com/berfenger/solaredge2mqtt/internal/core/domain"
	"github.com/berfenger/solaredge2mqtt/pkg/sunspec"
)

func diagnostic(key, name string) Description {
	return Description{
		Key:              key,
		Name:             name,
		EntityCategory:   domain.ENTITY_CLASS_DIAGNOSTIC,
		EnabledByDefault: true,
	}
}

// DeviceSensor carries the platform identity as attributes.
func DeviceSensor(p *domain.Platform) *Sensor {
	return newSensor(p, diagnostic("device", "Device"), func(p *domain.Platform) State {
		return Text(p.Model)
	}).withAttributes(deviceAttributes)
}

var batteryCommonAttributes = []struct {
	register  string
	attribute string
}{
	{"B_MaxChargePeakPower", "batt_charge_peak"},
	{"B_MaxDischargePeakPower", "batt_discharge_peak"},
	{"B_MaxChargePower", "batt_max_charge"},
	{"B_MaxDischargePower", "batt_max_discharge"},
	{"B_RatedEnergy", "batt_rated_energy"},
}

func deviceAttributes(p *domain.Platform) map[string]any {
	attrs := map[string]any{}

	// the battery limits are read in order until one is missing
	for _, a := range batteryCommonAttributes {
		if _, present := p.DecodedCommon[a.register]; !present {
			break
		}
		v, ok := p.DecodedCommon.Float(a.register)
		if ok && !sunspec.IsNotImplFloat32(v) && v > 0 {
			attrs[a.attribute] = v
		}
	}

	attrs["device_id"] = p.DeviceAddress
	attrs["manufacturer"] = p.Manufacturer
	attrs["model"] = p.Model
	if len(p.Option) > 0 {
		attrs["option"] = p.Option
	}
	if p.HasParent {
		attrs["parent_device_id"] = p.InverterUnitID
	}
	attrs["serial_number"] = p.Serial

	if did, ok := p.SunSpecDID(); ok {
		if desc, ok := sunspec.DIDToString(did); ok {
			attrs["sunspec_device"] = desc
		}
		attrs["sunspec_did"] = did
	}

	if p.HasMMPPT() {
		if did, ok := p.DecodedMMPPT.Int("mmppt_DID"); ok {
			if desc, ok := sunspec.DIDToString(did); ok {
				attrs["mmppt_device"] = desc
			}
			attrs["mmppt_did"] = did
		}
		if units, ok := p.DecodedMMPPT.Value("mmppt_Units"); ok {
			attrs["mmppt_units"] = units
		}
	}

	return attrs
}

func SerialNumber(p *domain.Platform) *Sensor {
	return newSensor(p, diagnostic("serial_number", "Serial Number"), func(p *domain.Platform) State {
		return Text(p.Serial)
	})
}

func Manufacturer(p *domain.Platform) *Sensor {
	return newSensor(p, diagnostic("manufacturer", "Manufacturer"), func(p *domain.Platform) State {
		return Text(p.Manufacturer)
	})
}

func Model(p *domain.Platform) *Sensor {
	return newSensor(p, diagnostic("model", "Model"), func(p *domain.Platform) State {
		return Text(p.Model)
	})
}

// Option is only enabled when the device reports an option string.
func Option(p *domain.Platform) *Sensor {
	desc := diagnostic("option", "Option")
	desc.EnabledByDefault = len(p.Option) > 0
	return newSensor(p, desc, func(p *domain.Platform) State {
		if len(p.Option) == 0 {
			return Unknown()
		}
		return Text(p.Option)
	})
}

func Version(p *domain.Platform) *Sensor {
	return newSensor(p, diagnostic("version", "Version"), func(p *domain.Platform) State {
		return Text(p.FWVersion)
	})
}

func DeviceAddress(p *domain.Platform) *Sensor {
	return newSensor(p, diagnostic("device_id", "Device ID"), func(p *domain.Platform) State {
		return Integer(int64(p.DeviceAddress))
	})
}

func DeviceAddressParent(p *domain.Platform) *Sensor {
	return newSensor(p, diagnostic("parent_device_id", "Parent Device ID"), func(p *domain.Platform) State {
		return Integer(int64(p.InverterUnitID))
	})
}

func SunspecDID(p *domain.Platform) *Sensor {
	return newSensor(p, diagnostic("sunspec_device_id", "Sunspec Device ID"), func(p *domain.Platform) State {
		did, ok := p.SunSpecDID()
		if !ok || sunspec.IsNotImplUint16(did) {
			return Unknown()
		}
		return Integer(did)
	}).withAttributes(func(p *domain.Platform) map[string]any {
		did, ok := p.SunSpecDID()
		if !ok {
			return nil
		}
		if desc, ok := sunspec.DIDToString(did); ok {
			return map[string]any{"description": desc}
		}
		return nil
	})
}
