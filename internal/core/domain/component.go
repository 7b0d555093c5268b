package domain

type Device struct {
	Id           string
	Name         string
	Version      string
	Model        string
	Manufacturer string
	ViaDevice    string
}

type GenericSensor struct {
	Device            Device
	Id                string
	SensorType        string
	Name              string
	UniqueId          string
	UnitOfMeasurement string
	StateClass        string // measurement, total_increasing
	DeviceClass       string // voltage, current, power, energy, ...
	EntityCategory    string // diagnostic or empty
	EnabledByDefault  *bool
	Icon              string
	HasAttributes     bool
	HasAvailability   bool
}

type DeviceSummary struct {
	UIDBase      string       `json:"uid_base"`
	Kind         PlatformKind `json:"kind"`
	Manufacturer string       `json:"manufacturer"`
	Model        string       `json:"model"`
	Serial       string       `json:"serial"`
	Online       bool         `json:"online"`
	Entities     int          `json:"entities"`
}

type EntityState struct {
	UniqueId   string         `json:"unique_id"`
	Name       string         `json:"name"`
	State      string         `json:"state"`
	Unit       string         `json:"unit,omitempty"`
	Available  bool           `json:"available"`
	Attributes map[string]any `json:"attributes,omitempty"`
}
