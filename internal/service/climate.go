package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	hahoneywell "github.com/nabbi/ha-honeywell"
	"github.com/nabbi/ha-honeywell/internal/repository"
)

// Preset names accepted by SetPreset.
const (
	PresetAway = "away"
	PresetHold = "hold"
	PresetNone = "none"
)

// Temporary holds are asked to reset at 02:30 so an evening setpoint
// change behaves as "hold until tomorrow morning" instead of a bare
// schedule edit.
var tempHoldResetTime = hahoneywell.TimeOfDay{Hour: 2, Minute: 30}

// TemperatureParams carries either a single target or a low/high pair.
type TemperatureParams struct {
	Target *float64
	Low    *float64
	High   *float64
}

// ClimateService maps user commands onto per-circuit hold calls. Every
// command reads the coordinator's latest snapshot first; the decision is
// made against a possibly-about-to-be-superseded view, a staleness
// window bounded by the poll interval.
type ClimateService struct {
	coord   *PollCoordinator
	devices map[int64]Device
	events  repository.EventRepo
	cfg     Config

	mu   sync.Mutex
	away map[int64]bool
}

func NewClimateService(coord *PollCoordinator, devices map[int64]Device, events repository.EventRepo, cfg Config) *ClimateService {
	s := &ClimateService{
		coord:   coord,
		devices: devices,
		events:  events,
		cfg:     cfg,
		away:    make(map[int64]bool),
	}
	// A refreshed snapshot with no hold on either circuit means any
	// away hold was cleared at the device or by the schedule; stale
	// memory here would corrupt the next away activation.
	coord.Listen(s.resetClearedAwayMemory)
	return s
}

func (s *ClimateService) resetClearedAwayMemory() {
	snap := s.coord.Snapshot()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.away {
		st, ok := snap[id]
		if !ok {
			continue
		}
		if !st.HoldHeat.Active() && !st.HoldCool.Active() {
			delete(s.away, id)
		}
	}
}

func (s *ClimateService) device(deviceID int64) (Device, hahoneywell.DeviceSnapshot, error) {
	d, ok := s.devices[deviceID]
	if !ok {
		return nil, hahoneywell.DeviceSnapshot{}, ErrUnknownDevice
	}
	st, ok := s.coord.DeviceSnapshot(deviceID)
	if !ok {
		// No cached data yet; fall back to the client-side state from
		// discovery rather than refusing every command at startup.
		st = d.State()
	}
	return d, st, nil
}

// SetMode forwards the requested operating mode to the device. No hold
// logic is involved.
func (s *ClimateService) SetMode(ctx context.Context, deviceID int64, mode string) error {
	m, err := hahoneywell.ParseSystemMode(strings.ToLower(strings.TrimSpace(mode)))
	if err != nil {
		return &ValidationError{Reason: err.Error()}
	}
	d, _, err := s.device(deviceID)
	if err != nil {
		return err
	}
	if err := d.SetSystemMode(ctx, m); err != nil {
		return &OperationFailedError{Op: "set system mode", Err: err}
	}
	s.appendEvent(ctx, hahoneywell.EventModeChange, "mode changed to "+string(m), map[string]any{
		"device_id": deviceID,
		"mode":      string(m),
	})
	return nil
}

// SetTemperature applies a setpoint change. A circuit with no active
// hold gets a temporary hold carrying the setpoint; a circuit already
// holding gets a bare setpoint write. A single target is valid only in
// heat or cool mode; auto requires a low/high pair. Mode off is a no-op.
func (s *ClimateService) SetTemperature(ctx context.Context, deviceID int64, p TemperatureParams) error {
	single := p.Target != nil
	pair := p.Low != nil && p.High != nil
	switch {
	case !single && !pair:
		return &ValidationError{Reason: "temperature requires either target or a low/high pair"}
	case single && (p.Low != nil || p.High != nil):
		return &ValidationError{Reason: "temperature accepts target or a low/high pair, not both"}
	case pair && *p.Low > *p.High:
		return &ValidationError{Reason: fmt.Sprintf("low %.1f exceeds high %.1f", *p.Low, *p.High)}
	}

	d, st, err := s.device(deviceID)
	if err != nil {
		return err
	}

	switch st.Mode {
	case hahoneywell.SystemModeUnknown:
		return &InvalidStateError{Reason: "device reported an unrecognized operating mode"}
	case hahoneywell.SystemModeOff:
		return nil
	}

	if single {
		if err := s.setSingleTarget(ctx, d, st, *p.Target); err != nil {
			return err
		}
	} else {
		if err := s.setPair(ctx, d, st, *p.Low, *p.High); err != nil {
			return err
		}
	}

	s.appendEvent(ctx, hahoneywell.EventSetpoint, "setpoint changed", map[string]any{
		"device_id": deviceID,
		"target":    p.Target,
		"low":       p.Low,
		"high":      p.High,
	})
	return nil
}

func (s *ClimateService) setSingleTarget(ctx context.Context, d Device, st hahoneywell.DeviceSnapshot, temp float64) error {
	switch st.Mode {
	case hahoneywell.SystemModeHeat:
		return s.applyHeatSetpoint(ctx, d, st.HoldHeat, temp)
	case hahoneywell.SystemModeCool:
		return s.applyCoolSetpoint(ctx, d, st.HoldCool, temp)
	default:
		return &ValidationError{Reason: "single target temperature requires heat or cool mode, auto needs a low/high pair"}
	}
}

// setPair writes the heat circuit first, then the cool circuit. A
// failure on one circuit does not roll back the other; already-issued
// calls stand and the caller sees one failure.
func (s *ClimateService) setPair(ctx context.Context, d Device, st hahoneywell.DeviceSnapshot, low, high float64) error {
	if st.Mode.Heats() {
		if err := s.applyHeatSetpoint(ctx, d, st.HoldHeat, low); err != nil {
			return err
		}
	}
	if st.Mode.Cools() {
		if err := s.applyCoolSetpoint(ctx, d, st.HoldCool, high); err != nil {
			return err
		}
	}
	return nil
}

func (s *ClimateService) applyHeatSetpoint(ctx context.Context, d Device, hold hahoneywell.HoldStatus, temp float64) error {
	if hold.Active() {
		if err := d.SetHeatSetpoint(ctx, temp); err != nil {
			return &OperationFailedError{Op: "set heat setpoint", Err: err}
		}
		return nil
	}
	if err := d.SetHoldHeatUntil(ctx, tempHoldResetTime, temp); err != nil {
		return &OperationFailedError{Op: "set temporary heat hold", Err: err}
	}
	return nil
}

func (s *ClimateService) applyCoolSetpoint(ctx context.Context, d Device, hold hahoneywell.HoldStatus, temp float64) error {
	if hold.Active() {
		if err := d.SetCoolSetpoint(ctx, temp); err != nil {
			return &OperationFailedError{Op: "set cool setpoint", Err: err}
		}
		return nil
	}
	if err := d.SetHoldCoolUntil(ctx, tempHoldResetTime, temp); err != nil {
		return &OperationFailedError{Op: "set temporary cool hold", Err: err}
	}
	return nil
}

// SetPreset applies away, hold or none to the circuits relevant to the
// device's current mode. Heat is addressed before cool; a failure on
// one circuit leaves the other circuit's already-issued call standing.
func (s *ClimateService) SetPreset(ctx context.Context, deviceID int64, preset string) error {
	preset = strings.ToLower(strings.TrimSpace(preset))

	d, st, err := s.device(deviceID)
	if err != nil {
		return err
	}
	if st.Mode == hahoneywell.SystemModeUnknown {
		return &InvalidStateError{Reason: "device reported an unrecognized operating mode"}
	}

	switch preset {
	case PresetAway:
		err = s.presetAway(ctx, deviceID, d, st)
	case PresetHold:
		err = s.presetHold(ctx, d, st)
	case PresetNone:
		err = s.presetNone(ctx, deviceID, d, st)
	default:
		return &ValidationError{Reason: fmt.Sprintf("unknown preset %q", preset)}
	}
	if err != nil {
		return err
	}

	s.appendEvent(ctx, hahoneywell.EventPreset, "preset set to "+preset, map[string]any{
		"device_id": deviceID,
		"preset":    preset,
	})
	return nil
}

// presetAway pins the configured away setpoints with a permanent hold on
// each circuit relevant to the current mode and records the away memory.
func (s *ClimateService) presetAway(ctx context.Context, deviceID int64, d Device, st hahoneywell.DeviceSnapshot) error {
	if st.Mode.Heats() {
		if err := d.SetHoldHeatTemp(ctx, true, s.cfg.AwayHeatSetpoint); err != nil {
			return &OperationFailedError{Op: "set away heat hold", Err: err}
		}
	}
	if st.Mode.Cools() {
		if err := d.SetHoldCoolTemp(ctx, true, s.cfg.AwayCoolSetpoint); err != nil {
			return &OperationFailedError{Op: "set away cool hold", Err: err}
		}
	}
	s.mu.Lock()
	s.away[deviceID] = true
	s.mu.Unlock()
	return nil
}

// presetHold requests a bare permanent hold per relevant circuit,
// skipping circuits already holding.
func (s *ClimateService) presetHold(ctx context.Context, d Device, st hahoneywell.DeviceSnapshot) error {
	if st.Mode.Heats() && !st.HoldHeat.Active() {
		if err := d.SetHoldHeat(ctx, true); err != nil {
			return &OperationFailedError{Op: "set heat hold", Err: err}
		}
	}
	if st.Mode.Cools() && !st.HoldCool.Active() {
		if err := d.SetHoldCool(ctx, true); err != nil {
			return &OperationFailedError{Op: "set cool hold", Err: err}
		}
	}
	return nil
}

// presetNone clears holds on the relevant circuits. The away memory is
// cleared unconditionally, before any device call, so a later away
// activation is never confused by a failed clear.
func (s *ClimateService) presetNone(ctx context.Context, deviceID int64, d Device, st hahoneywell.DeviceSnapshot) error {
	s.mu.Lock()
	delete(s.away, deviceID)
	s.mu.Unlock()

	if st.Mode.Heats() {
		if err := d.SetHoldHeat(ctx, false); err != nil {
			return &OperationFailedError{Op: "clear heat hold", Err: err}
		}
	}
	if st.Mode.Cools() {
		if err := d.SetHoldCool(ctx, false); err != nil {
			return &OperationFailedError{Op: "clear cool hold", Err: err}
		}
	}
	return nil
}

// CurrentPreset derives the preset to display: away if the last hold
// this process issued was an away request, hold if the device reports
// any active hold on a circuit relevant to its mode, none otherwise.
func (s *ClimateService) CurrentPreset(deviceID int64) (string, error) {
	_, st, err := s.device(deviceID)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	away := s.away[deviceID]
	s.mu.Unlock()
	if away {
		return PresetAway, nil
	}

	if (st.Mode.Heats() && st.HoldHeat.Active()) || (st.Mode.Cools() && st.HoldCool.Active()) {
		return PresetHold, nil
	}
	return PresetNone, nil
}

func (s *ClimateService) appendEvent(ctx context.Context, typ, msg string, meta map[string]any) {
	_ = s.events.Append(ctx, hahoneywell.Event{Type: typ, Description: msg, Metadata: meta})
}
