package sunspec

import "fmt"

// SunSpec device ids
const (
	DIDSinglePhaseInverter = 101
	DIDSplitPhaseInverter  = 102
	DIDThreePhaseInverter  = 103
	DIDMMPPTExtension      = 160
	DIDSinglePhaseMeter    = 201
	DIDSplitPhaseMeter     = 202
	DIDWyeMeter            = 203
	DIDDeltaMeter          = 204
	DIDBattery             = 802
	DIDLithiumIonBattery   = 803
)

func DIDToString(did int64) (string, bool) {
	switch did {
	case DIDSinglePhaseInverter:
		return "Single Phase Inverter", true
	case DIDSplitPhaseInverter:
		return "Split Phase Inverter", true
	case DIDThreePhaseInverter:
		return "Three Phase Inverter", true
	case DIDMMPPTExtension:
		return "Multiple MPPT Inverter Extension", true
	case DIDSinglePhaseMeter:
		return "Single Phase Meter", true
	case DIDSplitPhaseMeter:
		return "Split Phase Meter", true
	case DIDWyeMeter:
		return "Wye 3P1N Three Phase Meter", true
	case DIDDeltaMeter:
		return "Delta 3P Three Phase Meter", true
	case DIDBattery:
		return "Battery Base Model", true
	case DIDLithiumIonBattery:
		return "Lithium-Ion Battery Bank Model", true
	default:
		return "", false
	}
}

func IsInverterDID(did int64) bool {
	return did == DIDSinglePhaseInverter || did == DIDSplitPhaseInverter || did == DIDThreePhaseInverter
}

func IsMeterDID(did int64) bool {
	return did >= DIDSinglePhaseMeter && did <= DIDDeltaMeter
}

// inverter operating states
const (
	InverterStatusOff          = 1
	InverterStatusSleeping     = 2
	InverterStatusStarting     = 3
	InverterStatusMPPT         = 4
	InverterStatusThrottled    = 5
	InverterStatusShuttingDown = 6
	InverterStatusFault        = 7
	InverterStatusStandby      = 8
)

func InverterStatusToString(status int64) (string, bool) {
	switch status {
	case InverterStatusOff:
		return "I_STATUS_OFF", true
	case InverterStatusSleeping:
		return "I_STATUS_SLEEPING", true
	case InverterStatusStarting:
		return "I_STATUS_STARTING", true
	case InverterStatusMPPT:
		return "I_STATUS_MPPT", true
	case InverterStatusThrottled:
		return "I_STATUS_THROTTLED", true
	case InverterStatusShuttingDown:
		return "I_STATUS_SHUTTING_DOWN", true
	case InverterStatusFault:
		return "I_STATUS_FAULT", true
	case InverterStatusStandby:
		return "I_STATUS_STANDBY", true
	default:
		return "", false
	}
}

func InverterStatusDescription(status int64) (string, bool) {
	switch status {
	case InverterStatusOff:
		return "Off", true
	case InverterStatusSleeping:
		return "Sleeping (Auto-Shutdown)", true
	case InverterStatusStarting:
		return "Grid Monitoring", true
	case InverterStatusMPPT:
		return "Production", true
	case InverterStatusThrottled:
		return "Production (Curtailed)", true
	case InverterStatusShuttingDown:
		return "Shutting Down", true
	case InverterStatusFault:
		return "Fault", true
	case InverterStatusStandby:
		return "Maintenance", true
	default:
		if IsNotImplInt16(status) {
			return "Not Implemented", true
		}
		return "", false
	}
}

var vendorStatus = map[int64]string{
	0:   "No Error",
	17:  "Temperature Too High",
	25:  "Isolation Faults",
	27:  "Hardware Error",
	31:  "AC Voltage Too High",
	33:  "AC Voltage Too High",
	32:  "AC Voltage Too Low",
	34:  "AC Frequency Too High",
	35:  "AC Frequency Too Low",
	41:  "AC Voltage Too Low",
	44:  "No Country Selected",
	64:  "AC Voltage Too High",
	65:  "AC Voltage Too High",
	66:  "AC Voltage Too High",
	67:  "AC Voltage Too Low",
	68:  "AC Voltage Too Low",
	69:  "AC Voltage Too Low",
	79:  "AC Frequency Too High",
	80:  "AC Frequency Too High",
	81:  "AC Frequency Too High",
	82:  "AC Frequency Too Low",
	83:  "AC Frequency Too Low",
	84:  "AC Frequency Too Low",
	95:  "Hardware Error",
	97:  "Vin Buck Max",
	104: "Temperature Too High",
	106: "Temperature Too Low",
	107: "Batteries Communication Error",
	110: "Meter Communication Error",
	120: "Hardware Error",
	121: "Isolation Faults",
	125: "Hardware Error",
	126: "Hardware Error",
	150: "Arc Fault Detected",
	151: "Arc Fault Detected",
	153: "Hardware Error",
}

func VendorStatusDescription(code int64) (string, bool) {
	s, ok := vendorStatus[code]
	return s, ok
}

// battery states
const (
	BatteryStatusOff         = 0
	BatteryStatusStandby     = 1
	BatteryStatusInit        = 2
	BatteryStatusCharge      = 3
	BatteryStatusDischarge   = 4
	BatteryStatusFault       = 5
	BatteryStatusIdle        = 6
	BatteryStatusPowerSaving = 7
)

func BatteryStatusToString(status int64) (string, bool) {
	switch status {
	case BatteryStatusOff:
		return "B_STATUS_OFF", true
	case BatteryStatusStandby:
		return "B_STATUS_STANDBY", true
	case BatteryStatusInit:
		return "B_STATUS_INIT", true
	case BatteryStatusCharge:
		return "B_STATUS_CHARGE", true
	case BatteryStatusDischarge:
		return "B_STATUS_DISCHARGE", true
	case BatteryStatusFault:
		return "B_STATUS_FAULT", true
	case BatteryStatusIdle:
		return "B_STATUS_IDLE", true
	case BatteryStatusPowerSaving:
		return "B_STATUS_POWER_SAVING", true
	default:
		return "", false
	}
}

var rrcrInputs = [4]string{"L1", "L2", "L3", "L4"}

// RRCRInputs lists the active radio ripple control receiver inputs.
func RRCRInputs(value int64) []string {
	inputs := []string{}
	for i := range rrcrInputs {
		if value&(1<<i) != 0 {
			inputs = append(inputs, rrcrInputs[i])
		}
	}
	return inputs
}

var meterEvents = map[int]string{
	2: "POWER_FAILURE",
	3: "UNDER_VOLTAGE",
	4: "LOW_PF",
	5: "OVER_CURRENT",
	6: "OVER_VOLTAGE",
	7: "MISSING_SENSOR",
}

func meterEventName(bit int) string {
	if name, ok := meterEvents[bit]; ok {
		return name
	}
	if bit >= 8 && bit <= 15 {
		return fmt.Sprintf("RESERVED%d", bit-7)
	}
	return fmt.Sprintf("OEM%d", bit-15)
}

var mmpptEvents = map[int]string{
	0:  "GROUND_FAULT",
	1:  "INPUT_OVER_VOLTAGE",
	3:  "DC_DISCONNECT",
	6:  "MANUAL_SHUTDOWN",
	7:  "OVER_TEMPERATURE",
	12: "BLOWN_FUSE",
	13: "UNDER_TEMPERATURE",
	14: "MEMORY_LOSS",
	15: "ARC_DETECTION",
	20: "TEST_FAILED",
	21: "INPUT_UNDER_VOLTAGE",
	22: "INPUT_OVER_CURRENT",
}

func mmpptEventName(bit int) string {
	if name, ok := mmpptEvents[bit]; ok {
		return name
	}
	return fmt.Sprintf("RESERVED_%d", bit)
}

// MeterEvents decodes the meter event bits 2 to 30.
func MeterEvents(value int64) []string {
	return activeBits(value, 2, 30, meterEventName)
}

// MMPPTEvents decodes the multiple MPPT extension event bits 0 to 30.
func MMPPTEvents(value int64) []string {
	return activeBits(value, 0, 30, mmpptEventName)
}

func activeBits(value int64, from, to int, name func(int) string) []string {
	active := []string{}
	for i := from; i <= to; i++ {
		if value&(1<<i) != 0 {
			active = append(active, name(i))
		}
	}
	return active
}

// Bits32 renders value as a zero padded 32 bit binary string.
func Bits32(value int64) string {
	return fmt.Sprintf("%032b", uint32(value))
}
