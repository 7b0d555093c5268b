package sensor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/berfenger/solaredge2mqtt/internal/core/domain"
	"github.com/berfenger/solaredge2mqtt/pkg/sunspec"
)

var (
	ErrUnsupportedDID = errors.New("unsupported sunspec device id")
	ErrInvalidPhase   = errors.New("invalid phase")
)

const (
	ICON_SOLAR_POWER    = "mdi:solar-power"
	ICON_TOWER_EXPORT   = "mdi:transmission-tower-export"
	ICON_TOWER_IMPORT   = "mdi:transmission-tower-import"
	ICON_CURRENT_DC     = "mdi:current-dc"
	ICON_PERCENT        = "mdi:percent"
	ICON_ANGLE_ACUTE    = "mdi:angle-acute"
	ICON_LIGHTNING_BOLT = "mdi:lightning-bolt"
	ICON_BATTERY_LOW    = "mdi:battery-charging-20"
	ICON_BATTERY_FULL   = "mdi:battery-charging-100"
	ICON_BATTERY_HEALTH = "mdi:battery-heart-outline"
)

// didSentinel picks the not implemented marker of the AC current, voltage
// and energy registers, which differs between inverters and meters.
func didSentinel(p *domain.Platform) (sentinel, error) {
	did, ok := p.SunSpecDID()
	if !ok {
		return nil, fmt.Errorf("%w: missing C_SunSpec_DID", ErrUnsupportedDID)
	}
	switch {
	case sunspec.IsInverterDID(did):
		return sunspec.IsNotImplUint16, nil
	case sunspec.IsMeterDID(did):
		return sunspec.IsNotImplInt16, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedDID, did)
	}
}

func didIn(p *domain.Platform, dids ...int64) bool {
	did, ok := p.SunSpecDID()
	if !ok {
		return false
	}
	for _, d := range dids {
		if d == did {
			return true
		}
	}
	return false
}

func isThreePhase(p *domain.Platform) bool {
	return didIn(p, sunspec.DIDThreePhaseInverter, sunspec.DIDWyeMeter, sunspec.DIDDeltaMeter)
}

func isThreePhaseMeter(p *domain.Platform) bool {
	return didIn(p, sunspec.DIDWyeMeter, sunspec.DIDDeltaMeter)
}

func isABC(phase string) bool {
	return phase == "A" || phase == "B" || phase == "C"
}

// phased builds the key, name and register suffixes of an optional phase.
func phased(key, name, register, phase string) (string, string, string) {
	if phase == "" {
		return key, name, register
	}
	return key + "_" + strings.ToLower(phase), name + " " + strings.ToUpper(phase), register + "_" + phase
}

func ACCurrent(p *domain.Platform, phase string) (*Sensor, error) {
	notImpl, err := didSentinel(p)
	if err != nil {
		return nil, err
	}
	key, name, reg := phased("ac_current", "AC Current", "AC_Current", phase)
	desc := Description{
		Key:              key,
		Name:             name,
		Unit:             UNIT_AMPERE,
		DeviceClass:      domain.DEVICE_CLASS_CURRENT,
		StateClass:       domain.STATE_CLASS_MEASUREMENT,
		EnabledByDefault: phase == "" || (isThreePhase(p) && isABC(phase)),
	}
	return newSensor(p, desc, func(p *domain.Platform) State {
		v, _, ok := scaled(p.DecodedModel, reg, "AC_Current_SF", notImpl, sunspec.IsNotImplInt16, true)
		if !ok {
			return Unknown()
		}
		return Number(v, -1)
	}), nil
}

func Voltage(p *domain.Platform, phase string) (*Sensor, error) {
	if phase == "" {
		return nil, fmt.Errorf("%w: voltage needs a phase", ErrInvalidPhase)
	}
	notImpl, err := didSentinel(p)
	if err != nil {
		return nil, err
	}
	reg := "AC_Voltage_" + strings.ToUpper(phase)
	enabled := false
	switch strings.ToUpper(phase) {
	case "LN", "LL", "AB":
		enabled = true
	case "BC", "CA", "AN", "BN", "CN":
		enabled = isThreePhase(p)
	}
	desc := Description{
		Key:              "ac_voltage_" + strings.ToLower(phase),
		Name:             "AC Voltage " + strings.ToUpper(phase),
		Unit:             UNIT_VOLT,
		DeviceClass:      domain.DEVICE_CLASS_VOLTAGE,
		StateClass:       domain.STATE_CLASS_MEASUREMENT,
		EnabledByDefault: enabled,
	}
	return newSensor(p, desc, func(p *domain.Platform) State {
		return roundedScaled(p.DecodedModel, reg, "AC_Voltage_SF", notImpl, sunspec.IsNotImplInt16, true)
	}), nil
}

func ACPower(p *domain.Platform, phase string) *Sensor {
	key, name, reg := phased("ac_power", "AC Power", "AC_Power", phase)
	desc := Description{
		Key:              key,
		Name:             name,
		Unit:             UNIT_WATT,
		DeviceClass:      domain.DEVICE_CLASS_POWER,
		StateClass:       domain.STATE_CLASS_MEASUREMENT,
		Icon:             ICON_SOLAR_POWER,
		EnabledByDefault: phase == "" || (isThreePhaseMeter(p) && isABC(phase)),
	}
	return newSensor(p, desc, func(p *domain.Platform) State {
		return roundedScaled(p.DecodedModel, reg, "AC_Power_SF", sunspec.IsNotImplInt16, sunspec.IsNotImplInt16, false)
	})
}

func ACFrequency(p *domain.Platform) *Sensor {
	desc := Description{
		Key:              "ac_frequency",
		Name:             "AC Frequency",
		Unit:             UNIT_HERTZ,
		DeviceClass:      domain.DEVICE_CLASS_FREQUENCY,
		StateClass:       domain.STATE_CLASS_MEASUREMENT,
		EnabledByDefault: true,
	}
	return newSensor(p, desc, func(p *domain.Platform) State {
		return roundedScaled(p.DecodedModel, "AC_Frequency", "AC_Frequency_SF", sunspec.IsNotImplUint16, sunspec.IsNotImplInt16, true)
	})
}

// acInt16 covers the VA, var and PF families, which share their checks and
// are disabled by default.
func acInt16(p *domain.Platform, phase, key, name, register, unit, deviceClass string) *Sensor {
	k, n, reg := phased(key, name, register, phase)
	desc := Description{
		Key:         k,
		Name:        n,
		Unit:        unit,
		DeviceClass: deviceClass,
		StateClass:  domain.STATE_CLASS_MEASUREMENT,
	}
	sfKey := register + "_SF"
	return newSensor(p, desc, func(p *domain.Platform) State {
		return roundedScaled(p.DecodedModel, reg, sfKey, sunspec.IsNotImplInt16, sunspec.IsNotImplInt16, true)
	})
}

func ACVoltAmp(p *domain.Platform, phase string) *Sensor {
	return acInt16(p, phase, "ac_va", "AC VA", "AC_VA", UNIT_VOLT_AMPERE, domain.DEVICE_CLASS_APPARENT_POWER)
}

func ACVoltAmpReactive(p *domain.Platform, phase string) *Sensor {
	return acInt16(p, phase, "ac_var", "AC var", "AC_var", UNIT_VOLT_AMPERE_REACT, domain.DEVICE_CLASS_REACTIVE_POWER)
}

func ACPowerFactor(p *domain.Platform, phase string) *Sensor {
	return acInt16(p, phase, "ac_pf", "AC PF", "AC_PF", UNIT_PERCENTAGE, domain.DEVICE_CLASS_POWER_FACTOR)
}

// energyIcon swaps direction: import counters get the export tower.
func energyIcon(phase string) string {
	lower := strings.ToLower(phase)
	switch {
	case strings.HasPrefix(lower, "import"):
		return ICON_TOWER_EXPORT
	case strings.HasPrefix(lower, "export"):
		return ICON_TOWER_IMPORT
	default:
		return ""
	}
}

func energyName(phase, unit string) string {
	return strings.ReplaceAll(phase, "_", " ") + " " + unit
}

func ACEnergy(p *domain.Platform, phase string) (*Sensor, error) {
	notImpl, err := didSentinel(p)
	if err != nil {
		return nil, err
	}
	desc := Description{
		Key:         "ac_energy_kwh",
		Name:        "AC Energy kWh",
		Unit:        UNIT_KILO_WATT_HOUR,
		DeviceClass: domain.DEVICE_CLASS_ENERGY,
		StateClass:  domain.STATE_CLASS_TOTAL_INCREASING,
		Icon:        energyIcon(phase),
	}
	reg := "AC_Energy_WH"
	if phase != "" {
		desc.Key = strings.ToLower(phase) + "_kwh"
		desc.Name = energyName(phase, UNIT_KILO_WATT_HOUR)
		reg = reg + "_" + phase
	}
	switch phase {
	case "", "Exported", "Imported", "Exported_A", "Imported_A":
		desc.EnabledByDefault = true
	default:
		desc.EnabledByDefault = isThreePhaseMeter(p)
	}

	accum := &sunspec.Accumulator{}
	return newSensor(p, desc, func(p *domain.Platform) State {
		v, ok := accumulated(p.DecodedModel, reg, "AC_Energy_WH_SF", notImpl, accum)
		if !ok {
			return Unknown()
		}
		return Number(sunspec.WattsToKilowatts(v), -1)
	}), nil
}

// accumulated reads a 32 bit lifetime counter, scales it and feeds it
// through the accumulator.
func accumulated(regs domain.Registers, key, sfKey string, sfNotImpl sentinel, accum *sunspec.Accumulator) (float64, bool) {
	raw, ok := regs.Int(key)
	if !ok || raw == sunspec.AccumNA32 || raw > sunspec.AccumLimit32 {
		return 0, false
	}
	sf, ok := regs.Int(sfKey)
	if !ok || sfNotImpl(sf) || !sunspec.ScaleFactorInRange(sf) {
		return 0, false
	}
	v, err := accum.Update(sunspec.ApplySF(float64(raw), sf))
	if err != nil {
		return 0, false
	}
	return v, true
}
