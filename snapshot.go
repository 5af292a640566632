package hahoneywell

import (
	"fmt"
	"time"
)

// SystemMode is the thermostat operating mode as reported by the portal.
type SystemMode string

const (
	SystemModeOff     SystemMode = "off"
	SystemModeHeat    SystemMode = "heat"
	SystemModeCool    SystemMode = "cool"
	SystemModeAuto    SystemMode = "auto"
	SystemModeUnknown SystemMode = "unknown"
)

// SystemModeFromRaw maps a SystemSwitchPosition wire value to a SystemMode.
// Emergency heat is folded into heat. Unrecognized values map to the
// unknown sentinel rather than failing the whole snapshot.
func SystemModeFromRaw(v int) SystemMode {
	switch v {
	case 0, 1: // 0 = emergency heat
		return SystemModeHeat
	case 2:
		return SystemModeOff
	case 3:
		return SystemModeCool
	case 4, 5:
		return SystemModeAuto
	default:
		return SystemModeUnknown
	}
}

// ParseSystemMode validates a user-supplied mode string.
func ParseSystemMode(s string) (SystemMode, error) {
	switch SystemMode(s) {
	case SystemModeOff, SystemModeHeat, SystemModeCool, SystemModeAuto:
		return SystemMode(s), nil
	}
	return SystemModeUnknown, fmt.Errorf("unknown system mode %q", s)
}

// RawValue returns the SystemSwitchPosition wire value for a mode.
func (m SystemMode) RawValue() int {
	switch m {
	case SystemModeHeat:
		return 1
	case SystemModeOff:
		return 2
	case SystemModeCool:
		return 3
	case SystemModeAuto:
		return 4
	}
	return -1
}

// Heats reports whether the heat circuit is relevant in this mode.
func (m SystemMode) Heats() bool {
	return m == SystemModeHeat || m == SystemModeAuto
}

// Cools reports whether the cool circuit is relevant in this mode.
func (m SystemMode) Cools() bool {
	return m == SystemModeCool || m == SystemModeAuto
}

// HoldStatus is the raw per-circuit hold code from the portal. The numeric
// values are the wire contract and must be preserved exactly.
type HoldStatus int

const (
	HoldNone      HoldStatus = 0
	HoldTemporary HoldStatus = 2
	HoldPermanent HoldStatus = 3
)

// Active reports whether any hold (temporary or permanent) is in effect.
func (h HoldStatus) Active() bool {
	return h == HoldTemporary || h == HoldPermanent
}

func (h HoldStatus) String() string {
	switch h {
	case HoldNone:
		return "none"
	case HoldTemporary:
		return "temporary"
	case HoldPermanent:
		return "permanent"
	}
	return fmt.Sprintf("hold(%d)", int(h))
}

// TimeOfDay is a wall-clock reset time for a temporary hold.
type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Periods converts the time to the portal's 15-minute schedule period index.
func (t TimeOfDay) Periods() int {
	return (t.Hour*60 + t.Minute) / 15
}

// HumidifierInfo describes one (de)humidifier capability of a device.
type HumidifierInfo struct {
	Present    bool `json:"present"`
	Mode       int  `json:"mode"` // 0 = off
	Setpoint   int  `json:"setpoint"`
	LowerLimit int  `json:"lower_limit"`
	UpperLimit int  `json:"upper_limit"`
}

// DeviceSnapshot is the cached view of one thermostat's latest known state.
// Owned by the poll coordinator; everyone else gets copies.
type DeviceSnapshot struct {
	DeviceID        int64          `json:"device_id"`
	Name            string         `json:"name"`
	Mode            SystemMode     `json:"mode"`
	CurrentTemp     float64        `json:"current_temp"`
	HeatSetpoint    float64        `json:"heat_setpoint"`
	CoolSetpoint    float64        `json:"cool_setpoint"`
	CurrentHumidity *int           `json:"current_humidity,omitempty"`
	OutdoorTemp     *float64       `json:"outdoor_temp,omitempty"`
	HoldHeat        HoldStatus     `json:"hold_heat"`
	HoldCool        HoldStatus     `json:"hold_cool"`
	Humidifier      HumidifierInfo `json:"humidifier"`
	Dehumidifier    HumidifierInfo `json:"dehumidifier"`
	FetchedAt       time.Time      `json:"fetched_at"`
}
