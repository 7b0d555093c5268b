package sensor

import (
	"fmt"

	"github.com/berfenger/solaredge2mqtt/internal/core/domain"
	"go.uber.org/zap"
)

var (
	meterEnergyPhases = []string{
		"Exported", "Exported_A", "Exported_B", "Exported_C",
		"Imported", "Imported_A", "Imported_B", "Imported_C",
	}
	meterReactivePhases = []string{
		"Import_Q1", "Import_Q1_A", "Import_Q1_B", "Import_Q1_C",
		"Import_Q2", "Import_Q2_A", "Import_Q2_B", "Import_Q2_C",
		"Export_Q3", "Export_Q3_A", "Export_Q3_B", "Export_Q3_C",
		"Export_Q4", "Export_Q4_A", "Export_Q4_B", "Export_Q4_C",
	}
	totalAndABC = []string{"", "A", "B", "C"}
)

type builder struct {
	sensors []*Sensor
	err     error
}

func (b *builder) add(sensors ...*Sensor) {
	b.sensors = append(b.sensors, sensors...)
}

func (b *builder) try(s *Sensor, err error) {
	if err != nil {
		if b.err == nil {
			b.err = err
		}
		return
	}
	b.add(s)
}

// Build returns the entities of a platform in their announcement order.
func Build(p *domain.Platform, logger *zap.Logger) ([]*Sensor, error) {
	switch p.Kind {
	case domain.PLATFORM_KIND_INVERTER:
		return InverterSensors(p)
	case domain.PLATFORM_KIND_METER:
		return MeterSensors(p)
	case domain.PLATFORM_KIND_BATTERY:
		return BatterySensors(p, logger), nil
	default:
		return nil, fmt.Errorf("unknown platform kind %q", p.Kind)
	}
}

func InverterSensors(p *domain.Platform) ([]*Sensor, error) {
	b := &builder{}
	b.add(DeviceSensor(p))
	if !p.SingleDeviceEntity {
		b.add(Manufacturer(p), Model(p), SerialNumber(p), DeviceAddress(p), SunspecDID(p))
	}
	b.add(Version(p), Status(p), StatusVendor(p))
	for _, phase := range totalAndABC {
		b.try(ACCurrent(p, phase))
	}
	for _, phase := range []string{"AB", "BC", "CA", "AN", "BN", "CN"} {
		b.try(Voltage(p, phase))
	}
	b.add(ACPower(p, ""), ACFrequency(p), ACVoltAmp(p, ""), ACVoltAmpReactive(p, ""), ACPowerFactor(p, ""))
	b.try(ACEnergy(p, ""))
	b.add(DCCurrent(p), DCVoltage(p), DCPower(p), HeatSinkTemperature(p))
	b.add(RRCR(p), ActivePowerLimit(p), CosPhi(p), MMPPTEvents(p))
	if b.err != nil {
		return nil, fmt.Errorf("inverter %s: %w", p.UIDBase, b.err)
	}
	return b.sensors, nil
}

func MeterSensors(p *domain.Platform) ([]*Sensor, error) {
	b := &builder{}
	b.add(DeviceSensor(p))
	if !p.SingleDeviceEntity {
		b.add(Manufacturer(p), Model(p), Option(p), SerialNumber(p), DeviceAddress(p), DeviceAddressParent(p), SunspecDID(p))
	}
	b.add(Version(p), MeterEvents(p))
	for _, phase := range totalAndABC {
		b.try(ACCurrent(p, phase))
	}
	for _, phase := range []string{"LN", "AN", "BN", "CN", "LL", "AB", "BC", "CA"} {
		b.try(Voltage(p, phase))
	}
	b.add(ACFrequency(p))
	for _, phase := range totalAndABC {
		b.add(ACPower(p, phase))
	}
	for _, phase := range totalAndABC {
		b.add(ACVoltAmp(p, phase))
	}
	for _, phase := range totalAndABC {
		b.add(ACVoltAmpReactive(p, phase))
	}
	for _, phase := range totalAndABC {
		b.add(ACPowerFactor(p, phase))
	}
	for _, phase := range meterEnergyPhases {
		b.try(ACEnergy(p, phase))
	}
	for _, phase := range meterEnergyPhases {
		b.add(MeterVAhIE(p, phase))
	}
	for _, phase := range meterReactivePhases {
		b.add(MetervarhIE(p, phase))
	}
	if b.err != nil {
		return nil, fmt.Errorf("meter %s: %w", p.UIDBase, b.err)
	}
	return b.sensors, nil
}

func BatterySensors(p *domain.Platform, logger *zap.Logger) []*Sensor {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &builder{}
	b.add(DeviceSensor(p))
	if !p.SingleDeviceEntity {
		b.add(Manufacturer(p), Model(p), SerialNumber(p), DeviceAddress(p), DeviceAddressParent(p))
	}
	b.add(
		Version(p),
		BatteryAvgTemp(p),
		BatteryMaxTemp(p),
		BatteryVoltage(p),
		BatteryCurrent(p),
		BatteryPower(p),
		BatteryEnergyExport(p, logger),
		BatteryEnergyImport(p, logger),
		BatteryMaxEnergy(p),
		BatteryAvailableEnergy(p),
		BatterySOH(p),
		BatterySOE(p),
		BatteryStatus(p),
	)
	return b.sensors
}

// Discovery describes the sensors as Home Assistant entities of device.
func Discovery(device domain.Device, sensors []*Sensor) []domain.GenericSensor {
	out := make([]domain.GenericSensor, 0, len(sensors))
	for _, s := range sensors {
		out = append(out, domain.GenericSensor{
			Device:            device,
			Id:                s.UniqueId(),
			SensorType:        domain.SENSOR_TYPE_SENSOR,
			Name:              s.Name,
			UniqueId:          s.UniqueId(),
			UnitOfMeasurement: s.Unit,
			StateClass:        s.StateClass,
			DeviceClass:       s.DeviceClass,
			EntityCategory:    s.EntityCategory,
			EnabledByDefault:  domain.OptionalBool(s.EnabledByDefault),
			Icon:              s.Icon,
			HasAttributes:     s.HasAttributes(),
			HasAvailability:   true,
		})
	}
	return out
}
