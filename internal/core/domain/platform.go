package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
)

type PlatformKind string

const (
	PLATFORM_KIND_INVERTER PlatformKind = "inverter"
	PLATFORM_KIND_METER    PlatformKind = "meter"
	PLATFORM_KIND_BATTERY  PlatformKind = "battery"
)

var (
	ErrInvalidSnapshot = errors.New("invalid snapshot")
	uidBaseRegexp      = regexp.MustCompile("^[a-zA-Z0-9_]+$")
)

// Registers holds decoded register values keyed by register name. Values are
// json.Number when decoded from a snapshot, plain Go numbers when built in code.
type Registers map[string]any

// Platform is one SolarEdge device as reported by the polling hub.
type Platform struct {
	Kind                    PlatformKind
	UIDBase                 string
	Manufacturer            string
	Model                   string
	Option                  string
	Serial                  string
	FWVersion               string
	DeviceAddress           int
	InverterUnitID          int
	HasParent               bool
	Online                  bool
	GlobalPowerControl      *bool
	AllowBatteryEnergyReset bool
	SingleDeviceEntity      bool
	DecodedModel            Registers
	DecodedCommon           Registers
	DecodedMMPPT            Registers
}

// Snapshot is the wire format the polling hub publishes for one device.
type Snapshot struct {
	Kind                    PlatformKind `json:"kind"`
	UIDBase                 string       `json:"uid_base"`
	Manufacturer            string       `json:"manufacturer"`
	Model                   string       `json:"model"`
	Option                  string       `json:"option"`
	Serial                  string       `json:"serial"`
	FWVersion               string       `json:"fw_version"`
	DeviceAddress           int          `json:"device_address"`
	InverterUnitID          int          `json:"inverter_unit_id"`
	HasParent               bool         `json:"has_parent"`
	Online                  *bool        `json:"online"`
	GlobalPowerControl      *bool        `json:"global_power_control"`
	AllowBatteryEnergyReset bool         `json:"allow_battery_energy_reset"`
	SingleDeviceEntity      bool         `json:"single_device_entity"`
	DecodedModel            Registers    `json:"decoded_model"`
	DecodedCommon           Registers    `json:"decoded_common"`
	DecodedMMPPT            Registers    `json:"decoded_mmppt"`
}

func ParseSnapshot(payload []byte) (*Snapshot, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var snap Snapshot
	if err := dec.Decode(&snap); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *Snapshot) Validate() error {
	switch s.Kind {
	case PLATFORM_KIND_INVERTER, PLATFORM_KIND_METER, PLATFORM_KIND_BATTERY:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidSnapshot, s.Kind)
	}
	if !uidBaseRegexp.MatchString(s.UIDBase) {
		return fmt.Errorf("%w: invalid uid_base %q", ErrInvalidSnapshot, s.UIDBase)
	}
	if s.DecodedModel == nil {
		return fmt.Errorf("%w: missing decoded_model", ErrInvalidSnapshot)
	}
	return nil
}

// Platform returns the device described by the snapshot. A missing online
// flag counts as online.
func (s *Snapshot) Platform() *Platform {
	online := true
	if s.Online != nil {
		online = *s.Online
	}
	common := s.DecodedCommon
	if common == nil {
		common = Registers{}
	}
	return &Platform{
		Kind:                    s.Kind,
		UIDBase:                 s.UIDBase,
		Manufacturer:            s.Manufacturer,
		Model:                   s.Model,
		Option:                  s.Option,
		Serial:                  s.Serial,
		FWVersion:               s.FWVersion,
		DeviceAddress:           s.DeviceAddress,
		InverterUnitID:          s.InverterUnitID,
		HasParent:               s.HasParent,
		Online:                  online,
		GlobalPowerControl:      s.GlobalPowerControl,
		AllowBatteryEnergyReset: s.AllowBatteryEnergyReset,
		SingleDeviceEntity:      s.SingleDeviceEntity,
		DecodedModel:            s.DecodedModel,
		DecodedCommon:           common,
		DecodedMMPPT:            s.DecodedMMPPT,
	}
}

func (p *Platform) HasMMPPT() bool {
	return p.DecodedMMPPT != nil
}

func (p *Platform) HasGlobalPowerControl() bool {
	return p.GlobalPowerControl != nil && *p.GlobalPowerControl
}

// SunSpecDID returns the C_SunSpec_DID register.
func (p *Platform) SunSpecDID() (int64, bool) {
	return p.DecodedModel.Int("C_SunSpec_DID")
}

// Float returns the register as a float. Missing or non numeric values
// report false.
func (r Registers) Float(key string) (float64, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		// JSON cannot carry NaN, the hub sends float sentinels as "NaN"
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Int returns the register as an integer. Fractional values and values that
// do not fit an int64 report false.
func (r Registers) Int(key string) (int64, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt(f)
	case float64:
		return floatToInt(n)
	case float32:
		return floatToInt(float64(n))
	case int:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return uintToInt(uint64(n))
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return uintToInt(n)
	default:
		return 0, false
	}
}

// Uint64 returns the register as an unsigned 64 bit integer, used for the
// battery lifetime counters.
func (r Registers) Uint64(key string) (uint64, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case json.Number:
		u, err := strconv.ParseUint(n.String(), 10, 64)
		if err != nil {
			return 0, false
		}
		return u, true
	case uint64:
		return n, true
	default:
		i, ok := r.Int(key)
		if !ok || i < 0 {
			return 0, false
		}
		return uint64(i), true
	}
}

func (r Registers) String(key string) (string, bool) {
	v, ok := r[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Value returns the raw register in its natural JSON form.
func (r Registers) Value(key string) (any, bool) {
	if i, ok := r.Int(key); ok {
		return i, true
	}
	if f, ok := r.Float(key); ok {
		return f, true
	}
	if s, ok := r.String(key); ok {
		return s, true
	}
	return nil, false
}

func floatToInt(f float64) (int64, bool) {
	if f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

func uintToInt(u uint64) (int64, bool) {
	if u > math.MaxInt64 {
		return 0, false
	}
	return int64(u), true
}
