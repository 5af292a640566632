package handlers

import (
	"context"

	hahoneywell "github.com/nabbi/ha-honeywell"
	"github.com/nabbi/ha-honeywell/internal/service"
)

// ---- Service mocks for handler tests ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}

func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	return m.genTokenToken, m.genTokenErr
}

func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockClimate struct {
	modeErr   error
	tempErr   error
	presetErr error

	lastDeviceID int64
	lastMode     string
	lastTemp     service.TemperatureParams
	lastPreset   string
}

func (m *mockClimate) SetMode(ctx context.Context, deviceID int64, mode string) error {
	m.lastDeviceID = deviceID
	m.lastMode = mode
	return m.modeErr
}

func (m *mockClimate) SetTemperature(ctx context.Context, deviceID int64, p service.TemperatureParams) error {
	m.lastDeviceID = deviceID
	m.lastTemp = p
	return m.tempErr
}

func (m *mockClimate) SetPreset(ctx context.Context, deviceID int64, preset string) error {
	m.lastDeviceID = deviceID
	m.lastPreset = preset
	return m.presetErr
}

func (m *mockClimate) CurrentPreset(deviceID int64) (string, error) {
	return service.PresetNone, nil
}

type mockHumidifier struct {
	err error

	lastKind     string
	lastAction   string
	lastSetpoint int
}

func (m *mockHumidifier) TurnOn(ctx context.Context, deviceID int64, kind string) error {
	m.lastKind, m.lastAction = kind, "on"
	return m.err
}

func (m *mockHumidifier) TurnOff(ctx context.Context, deviceID int64, kind string) error {
	m.lastKind, m.lastAction = kind, "off"
	return m.err
}

func (m *mockHumidifier) SetHumidity(ctx context.Context, deviceID int64, kind string, setpoint int) error {
	m.lastKind, m.lastAction, m.lastSetpoint = kind, "setpoint", setpoint
	return m.err
}

type mockMonitoring struct {
	devices   []hahoneywell.DeviceSnapshot
	deviceErr error
	diag      service.Diagnostics
	diagErr   error
	health    service.HealthStatus
}

func (m *mockMonitoring) Devices() []hahoneywell.DeviceSnapshot { return m.devices }

func (m *mockMonitoring) Device(deviceID int64) (hahoneywell.DeviceSnapshot, error) {
	if m.deviceErr != nil {
		return hahoneywell.DeviceSnapshot{}, m.deviceErr
	}
	for _, d := range m.devices {
		if d.DeviceID == deviceID {
			return d, nil
		}
	}
	return hahoneywell.DeviceSnapshot{}, service.ErrUnknownDevice
}

func (m *mockMonitoring) Diagnostics(ctx context.Context, deviceID int64) (service.Diagnostics, error) {
	return m.diag, m.diagErr
}

func (m *mockMonitoring) Health() service.HealthStatus { return m.health }

type mockEventLog struct {
	events []hahoneywell.Event
	err    error

	lastFilter service.LogFilter
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]hahoneywell.Event, error) {
	m.lastFilter = f
	return m.events, m.err
}
