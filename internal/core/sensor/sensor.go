// Package sensor maps the decoded registers of SolarEdge inverters, meters and
// batteries to Home Assistant sensor states.
package sensor

import (
	"fmt"
	"strconv"

	"github.com/berfenger/solaredge2mqtt/internal/core/domain"
	"github.com/berfenger/solaredge2mqtt/pkg/sunspec"
)

const (
	UNIT_AMPERE              = "A"
	UNIT_VOLT                = "V"
	UNIT_WATT                = "W"
	UNIT_HERTZ               = "Hz"
	UNIT_VOLT_AMPERE         = "VA"
	UNIT_VOLT_AMPERE_REACT   = "var"
	UNIT_PERCENTAGE          = "%"
	UNIT_KILO_WATT_HOUR      = "kWh"
	UNIT_VOLT_AMPERE_HOUR    = "VAh"
	UNIT_VOLT_AMPERE_REACT_H = "varh"
	UNIT_CELSIUS             = "°C"
)

// UNKNOWN_PAYLOAD is the state payload Home Assistant reads as unknown.
const UNKNOWN_PAYLOAD = "None"

type stateKind int

const (
	stateUnknown stateKind = iota
	stateNumber
	stateText
)

type State struct {
	kind     stateKind
	number   float64
	decimals int
	text     string
}

func Unknown() State {
	return State{kind: stateUnknown}
}

// Number is a numeric state printed with the given decimals, or in the
// shortest form when decimals is negative.
func Number(v float64, decimals int) State {
	return State{kind: stateNumber, number: v, decimals: decimals}
}

func Integer(v int64) State {
	return Number(float64(v), 0)
}

func Text(s string) State {
	return State{kind: stateText, text: s}
}

func (s State) IsUnknown() bool {
	return s.kind == stateUnknown
}

func (s State) Float() (float64, bool) {
	return s.number, s.kind == stateNumber
}

func (s State) Decimals() int {
	return s.decimals
}

func (s State) Text() (string, bool) {
	return s.text, s.kind == stateText
}

func (s State) Payload() string {
	switch s.kind {
	case stateNumber:
		return strconv.FormatFloat(s.number, 'f', s.decimals, 64)
	case stateText:
		return s.text
	default:
		return UNKNOWN_PAYLOAD
	}
}

func (s State) String() string {
	return s.Payload()
}

// Description is the static part of a sensor as announced to Home Assistant.
type Description struct {
	Key              string
	Name             string
	Unit             string
	DeviceClass      string
	StateClass       string
	Icon             string
	EntityCategory   string
	EnabledByDefault bool
}

// Reading is the evaluated state of one sensor.
type Reading struct {
	UniqueId   string
	State      State
	Available  bool
	Attributes map[string]any
}

// Equal reports whether two readings would publish the same payloads.
func (r Reading) Equal(o Reading) bool {
	if r.UniqueId != o.UniqueId || r.Available != o.Available || r.State.Payload() != o.State.Payload() {
		return false
	}
	if len(r.Attributes) != len(o.Attributes) || (r.Attributes == nil) != (o.Attributes == nil) {
		return false
	}
	for k, v := range r.Attributes {
		if fmt.Sprint(v) != fmt.Sprint(o.Attributes[k]) {
			return false
		}
	}
	return true
}

type valueFunc func(p *domain.Platform) State

type attributesFunc func(p *domain.Platform) map[string]any

type availableFunc func(p *domain.Platform) bool

// Sensor is one entity of a platform. Sensors that track lifetime counters
// keep state between evaluations and must not be shared between platforms.
type Sensor struct {
	Description
	uniqueId   string
	value      valueFunc
	attributes attributesFunc
	available  availableFunc
}

func (s *Sensor) UniqueId() string {
	return s.uniqueId
}

func (s *Sensor) HasAttributes() bool {
	return s.attributes != nil
}

func (s *Sensor) Evaluate(p *domain.Platform) Reading {
	r := Reading{
		UniqueId:  s.uniqueId,
		State:     s.value(p),
		Available: s.available(p),
	}
	if s.attributes != nil {
		r.Attributes = s.attributes(p)
	}
	return r
}

func newSensor(p *domain.Platform, desc Description, value valueFunc) *Sensor {
	return &Sensor{
		Description: desc,
		uniqueId:    fmt.Sprintf("%s_%s", p.UIDBase, desc.Key),
		value:       value,
		available:   online,
	}
}

func (s *Sensor) withAttributes(fn attributesFunc) *Sensor {
	s.attributes = fn
	return s
}

func online(p *domain.Platform) bool {
	return p.Online
}

type sentinel func(int64) bool

func never(int64) bool {
	return false
}

// scaled reads a register and its scale factor. It reports false when the
// value or the scale factor is not implemented, or the scale factor is out
// of range and checkRange is set.
func scaled(regs domain.Registers, key, sfKey string, valueNotImpl, sfNotImpl sentinel, checkRange bool) (float64, int64, bool) {
	raw, ok := regs.Int(key)
	if !ok || valueNotImpl(raw) {
		return 0, 0, false
	}
	sf, ok := regs.Int(sfKey)
	if !ok || sfNotImpl(sf) {
		return 0, 0, false
	}
	if checkRange && !sunspec.ScaleFactorInRange(sf) {
		return 0, 0, false
	}
	return sunspec.ApplySF(float64(raw), sf), sf, true
}

// roundedScaled is scaled rounded to the precision of the scale factor.
func roundedScaled(regs domain.Registers, key, sfKey string, valueNotImpl, sfNotImpl sentinel, checkRange bool) State {
	v, sf, ok := scaled(regs, key, sfKey, valueNotImpl, sfNotImpl, checkRange)
	if !ok {
		return Unknown()
	}
	return Number(sunspec.Round(v, sunspec.Decimals(sf)), displayDecimals(sf))
}

// displayDecimals prints scaled values with as many decimals as the scale
// factor adds, and whole numbers otherwise.
func displayDecimals(sf int64) int {
	if sf < 0 {
		return int(-sf)
	}
	return 0
}

// floatInRange reads a float32 register. NaN and values outside [lo, hi]
// report false.
func floatInRange(regs domain.Registers, key string, lo, hi float64) (float64, bool) {
	v, ok := regs.Float(key)
	if !ok || sunspec.IsNotImplFloat32(v) || v < lo || v > hi {
		return 0, false
	}
	return v, true
}
