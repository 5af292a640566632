package somecomfort

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	hahoneywell "github.com/nabbi/ha-honeywell"
)

// Device is one thermostat under the authenticated session. Refresh updates
// the parsed state; mutators only submit changes and leave the state to be
// reconciled by the next refresh.
type Device struct {
	client *Client
	id     int64
	name   string

	mu    sync.RWMutex
	state hahoneywell.DeviceSnapshot
	raw   json.RawMessage
}

func (d *Device) ID() int64 { return d.id }

func (d *Device) Name() string { return d.name }

// State returns a copy of the last refreshed state.
func (d *Device) State() hahoneywell.DeviceSnapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// Raw returns the last data payload verbatim, for diagnostics.
func (d *Device) Raw() json.RawMessage {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(json.RawMessage, len(d.raw))
	copy(out, d.raw)
	return out
}

// dataSessionResponse mirrors the portal's CheckDataSession payload, limited
// to the fields the snapshot needs.
type dataSessionResponse struct {
	Success    bool `json:"success"`
	DeviceLive bool `json:"deviceLive"`
	LatestData struct {
		UIData struct {
			DispTemperature             float64 `json:"DispTemperature"`
			HeatSetpoint                float64 `json:"HeatSetpoint"`
			CoolSetpoint                float64 `json:"CoolSetpoint"`
			StatusHeat                  int     `json:"StatusHeat"`
			StatusCool                  int     `json:"StatusCool"`
			SystemSwitchPosition        int     `json:"SystemSwitchPosition"`
			IndoorHumidity              int     `json:"IndoorHumidity"`
			IndoorHumiditySensorAvail   bool    `json:"IndoorHumiditySensorAvailable"`
			OutdoorTemperature          float64 `json:"OutdoorTemperature"`
			OutdoorTemperatureAvailable bool    `json:"OutdoorTemperatureAvailable"`
		} `json:"uiData"`
		Humidification struct {
			CanControlHumidification   bool `json:"CanControlHumidification"`
			HumidificationMode         int  `json:"HumidificationMode"`
			HumidificationSetPoint     int  `json:"HumidificationSetPoint"`
			HumidificationLowerLimit   int  `json:"HumidificationLowerLimit"`
			HumidificationUpperLimit   int  `json:"HumidificationUpperLimit"`
			CanControlDehumidification bool `json:"CanControlDehumidification"`
			DehumidificationMode       int  `json:"DehumidificationMode"`
			DehumidificationSetPoint   int  `json:"DehumidificationSetPoint"`
			DehumidificationLowerLimit int  `json:"DehumidificationLowerLimit"`
			DehumidificationUpperLimit int  `json:"DehumidificationUpperLimit"`
		} `json:"humidification"`
	} `json:"latestData"`
}

// Refresh fetches the device's current data and replaces the parsed state.
func (d *Device) Refresh(ctx context.Context) error {
	op := fmt.Sprintf("refresh device %d", d.id)
	path := fmt.Sprintf("/Device/CheckDataSession/%d?_=%d", d.id, time.Now().UnixMilli())

	body, err := d.client.request(ctx, op, "GET", path, nil)
	if err != nil {
		return err
	}

	var parsed dataSessionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return &UnexpectedResponseError{Op: op, Status: 200, Detail: "malformed json: " + err.Error()}
	}
	if !parsed.Success {
		return &UnexpectedResponseError{Op: op, Status: 200, Detail: "success=false in data session"}
	}

	ui := parsed.LatestData.UIData
	hum := parsed.LatestData.Humidification

	snap := hahoneywell.DeviceSnapshot{
		DeviceID:     d.id,
		Name:         d.name,
		Mode:         hahoneywell.SystemModeFromRaw(ui.SystemSwitchPosition),
		CurrentTemp:  ui.DispTemperature,
		HeatSetpoint: ui.HeatSetpoint,
		CoolSetpoint: ui.CoolSetpoint,
		HoldHeat:     hahoneywell.HoldStatus(ui.StatusHeat),
		HoldCool:     hahoneywell.HoldStatus(ui.StatusCool),
		Humidifier: hahoneywell.HumidifierInfo{
			Present:    hum.CanControlHumidification,
			Mode:       hum.HumidificationMode,
			Setpoint:   hum.HumidificationSetPoint,
			LowerLimit: hum.HumidificationLowerLimit,
			UpperLimit: hum.HumidificationUpperLimit,
		},
		Dehumidifier: hahoneywell.HumidifierInfo{
			Present:    hum.CanControlDehumidification,
			Mode:       hum.DehumidificationMode,
			Setpoint:   hum.DehumidificationSetPoint,
			LowerLimit: hum.DehumidificationLowerLimit,
			UpperLimit: hum.DehumidificationUpperLimit,
		},
		FetchedAt: time.Now().UTC(),
	}
	if ui.IndoorHumiditySensorAvail {
		v := ui.IndoorHumidity
		snap.CurrentHumidity = &v
	}
	if ui.OutdoorTemperatureAvailable {
		v := ui.OutdoorTemperature
		snap.OutdoorTemp = &v
	}

	d.mu.Lock()
	d.state = snap
	d.raw = json.RawMessage(body)
	d.mu.Unlock()
	return nil
}

// submit posts a control-screen change set for this device. The portal
// answers {"success":1} when the change was accepted.
func (d *Device) submit(ctx context.Context, op string, changes map[string]any) error {
	payload := map[string]any{"DeviceID": d.id}
	for k, v := range changes {
		payload[k] = v
	}

	var result struct {
		Success int `json:"success"`
	}
	if err := d.client.postJSON(ctx, op, "/Device/SubmitControlScreenChanges", payload, &result); err != nil {
		return err
	}
	if result.Success != 1 {
		return &DeviceError{Op: op, Detail: fmt.Sprintf("success=%d", result.Success)}
	}
	return nil
}

// SetSystemMode switches the operating mode.
func (d *Device) SetSystemMode(ctx context.Context, mode hahoneywell.SystemMode) error {
	raw := mode.RawValue()
	if raw < 0 {
		return &DeviceError{Op: "set system mode", Detail: fmt.Sprintf("unsupported mode %q", mode)}
	}
	return d.submit(ctx, "set system mode", map[string]any{"SystemSwitch": raw})
}

// SetHeatSetpoint writes the heat circuit setpoint without touching holds.
func (d *Device) SetHeatSetpoint(ctx context.Context, temp float64) error {
	return d.submit(ctx, "set heat setpoint", map[string]any{"HeatSetpoint": temp})
}

// SetCoolSetpoint writes the cool circuit setpoint without touching holds.
func (d *Device) SetCoolSetpoint(ctx context.Context, temp float64) error {
	return d.submit(ctx, "set cool setpoint", map[string]any{"CoolSetpoint": temp})
}

func holdCode(hold bool) int {
	if hold {
		return int(hahoneywell.HoldPermanent)
	}
	return int(hahoneywell.HoldNone)
}

// SetHoldHeat sets or clears a permanent hold on the heat circuit.
func (d *Device) SetHoldHeat(ctx context.Context, hold bool) error {
	return d.submit(ctx, "set hold heat", map[string]any{"StatusHeat": holdCode(hold)})
}

// SetHoldHeatTemp sets or clears a permanent hold carrying a heat setpoint.
func (d *Device) SetHoldHeatTemp(ctx context.Context, hold bool, temp float64) error {
	return d.submit(ctx, "set hold heat", map[string]any{
		"StatusHeat":   holdCode(hold),
		"HeatSetpoint": temp,
	})
}

// SetHoldHeatUntil sets a temporary heat hold with a reset time.
func (d *Device) SetHoldHeatUntil(ctx context.Context, until hahoneywell.TimeOfDay, temp float64) error {
	return d.submit(ctx, "set hold heat", map[string]any{
		"StatusHeat":     int(hahoneywell.HoldTemporary),
		"HeatSetpoint":   temp,
		"HeatNextPeriod": until.Periods(),
	})
}

// SetHoldCool sets or clears a permanent hold on the cool circuit.
func (d *Device) SetHoldCool(ctx context.Context, hold bool) error {
	return d.submit(ctx, "set hold cool", map[string]any{"StatusCool": holdCode(hold)})
}

// SetHoldCoolTemp sets or clears a permanent hold carrying a cool setpoint.
func (d *Device) SetHoldCoolTemp(ctx context.Context, hold bool, temp float64) error {
	return d.submit(ctx, "set hold cool", map[string]any{
		"StatusCool":   holdCode(hold),
		"CoolSetpoint": temp,
	})
}

// SetHoldCoolUntil sets a temporary cool hold with a reset time.
func (d *Device) SetHoldCoolUntil(ctx context.Context, until hahoneywell.TimeOfDay, temp float64) error {
	return d.submit(ctx, "set hold cool", map[string]any{
		"StatusCool":     int(hahoneywell.HoldTemporary),
		"CoolSetpoint":   temp,
		"CoolNextPeriod": until.Periods(),
	})
}

// submitHumidification posts a humidification change set.
func (d *Device) submitHumidification(ctx context.Context, op string, changes map[string]any) error {
	payload := map[string]any{"DeviceID": d.id}
	for k, v := range changes {
		payload[k] = v
	}

	var result struct {
		Success int `json:"success"`
	}
	if err := d.client.postJSON(ctx, op, "/Device/Menu/SubmitHumidificationChanges", payload, &result); err != nil {
		return err
	}
	if result.Success != 1 {
		return &DeviceError{Op: op, Detail: fmt.Sprintf("success=%d", result.Success)}
	}
	return nil
}

func (d *Device) SetHumidifierSetpoint(ctx context.Context, setpoint int) error {
	return d.submitHumidification(ctx, "set humidifier setpoint", map[string]any{"HumidificationSetPoint": setpoint})
}

func (d *Device) SetHumidifierAuto(ctx context.Context) error {
	return d.submitHumidification(ctx, "set humidifier auto", map[string]any{"HumidificationMode": 1})
}

func (d *Device) SetHumidifierOff(ctx context.Context) error {
	return d.submitHumidification(ctx, "set humidifier off", map[string]any{"HumidificationMode": 0})
}

func (d *Device) SetDehumidifierSetpoint(ctx context.Context, setpoint int) error {
	return d.submitHumidification(ctx, "set dehumidifier setpoint", map[string]any{"DehumidificationSetPoint": setpoint})
}

func (d *Device) SetDehumidifierAuto(ctx context.Context) error {
	return d.submitHumidification(ctx, "set dehumidifier auto", map[string]any{"DehumidificationMode": 1})
}

func (d *Device) SetDehumidifierOff(ctx context.Context) error {
	return d.submitHumidification(ctx, "set dehumidifier off", map[string]any{"DehumidificationMode": 0})
}
