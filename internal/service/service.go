package service

import (
	"context"
	"encoding/json"
	"time"

	hahoneywell "github.com/nabbi/ha-honeywell"
	"github.com/nabbi/ha-honeywell/internal/logger"
	"github.com/nabbi/ha-honeywell/internal/repository"
)

// SessionClient is the authenticated portal session shared by all devices.
type SessionClient interface {
	Login(ctx context.Context) error
}

// Device is one thermostat handle on the shared session. The somecomfort
// client implements it; tests substitute fakes.
type Device interface {
	ID() int64
	Name() string
	State() hahoneywell.DeviceSnapshot
	Raw() json.RawMessage
	Refresh(ctx context.Context) error

	SetSystemMode(ctx context.Context, mode hahoneywell.SystemMode) error
	SetHeatSetpoint(ctx context.Context, temp float64) error
	SetCoolSetpoint(ctx context.Context, temp float64) error
	SetHoldHeat(ctx context.Context, hold bool) error
	SetHoldHeatTemp(ctx context.Context, hold bool, temp float64) error
	SetHoldHeatUntil(ctx context.Context, until hahoneywell.TimeOfDay, temp float64) error
	SetHoldCool(ctx context.Context, hold bool) error
	SetHoldCoolTemp(ctx context.Context, hold bool, temp float64) error
	SetHoldCoolUntil(ctx context.Context, until hahoneywell.TimeOfDay, temp float64) error

	SetHumidifierSetpoint(ctx context.Context, setpoint int) error
	SetHumidifierAuto(ctx context.Context) error
	SetHumidifierOff(ctx context.Context) error
	SetDehumidifierSetpoint(ctx context.Context, setpoint int) error
	SetDehumidifierAuto(ctx context.Context) error
	SetDehumidifierOff(ctx context.Context) error
}

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Climate exposes the thermostat command surface.
type Climate interface {
	SetMode(ctx context.Context, deviceID int64, mode string) error
	SetTemperature(ctx context.Context, deviceID int64, p TemperatureParams) error
	SetPreset(ctx context.Context, deviceID int64, preset string) error
	CurrentPreset(deviceID int64) (string, error)
}

// Humidifier exposes humidifier and dehumidifier commands.
type Humidifier interface {
	TurnOn(ctx context.Context, deviceID int64, kind string) error
	TurnOff(ctx context.Context, deviceID int64, kind string) error
	SetHumidity(ctx context.Context, deviceID int64, kind string, setpoint int) error
}

// Monitoring exposes read-only views over the coordinator's cached state.
type Monitoring interface {
	Devices() []hahoneywell.DeviceSnapshot
	Device(deviceID int64) (hahoneywell.DeviceSnapshot, error)
	Diagnostics(ctx context.Context, deviceID int64) (Diagnostics, error)
	Health() HealthStatus
}

// EventLog exposes append-only history with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]hahoneywell.Event, error)
}

// Coordinator runs the background polling loop. Stop via context
// cancellation in main() for graceful shutdown.
type Coordinator interface {
	Run(ctx context.Context, tick time.Duration)
	Listen(fn func())
	Snapshot() map[int64]hahoneywell.DeviceSnapshot
}

// Config carries the externally supplied values the services depend on.
type Config struct {
	AwayHeatSetpoint   float64
	AwayCoolSetpoint   float64
	SigningKey         string
	SkipInitialRefresh bool
}

type Service struct {
	Climate
	Humidifier
	Monitoring
	EventLog
	Coordinator
	Authorization
}

// NewService wires the repositories, the portal session and its devices
// into the concrete services.
func NewService(repos *repository.Repository, client SessionClient, devices map[int64]Device, cfg Config, log *logger.Logger) *Service {
	coord := NewPollCoordinator(client, devices, repos.SnapshotRepo, repos.EventRepo, cfg.SkipInitialRefresh, log)
	climate := NewClimateService(coord, devices, repos.EventRepo, cfg)
	return &Service{
		Climate:       climate,
		Humidifier:    NewHumidifierService(coord, devices),
		Monitoring:    NewMonitoringService(coord, devices, repos.SnapshotRepo),
		EventLog:      NewEventLogService(repos.EventRepo),
		Coordinator:   coord,
		Authorization: NewAuthService(repos.Auth, cfg.SigningKey),
	}
}
