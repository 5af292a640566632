package service

import (
	"context"
	"fmt"

	hahoneywell "github.com/nabbi/ha-honeywell"
)

// Humidifier kinds.
const (
	KindHumidifier   = "humidifier"
	KindDehumidifier = "dehumidifier"
)

// humidifierOps binds one capability variant to its device calls and
// its slice of the snapshot. The variant set is closed: two kinds, one
// ops value each.
type humidifierOps struct {
	info        func(hahoneywell.DeviceSnapshot) hahoneywell.HumidifierInfo
	setSetpoint func(Device, context.Context, int) error
	setAuto     func(Device, context.Context) error
	setOff      func(Device, context.Context) error
}

var humidifierVariants = map[string]humidifierOps{
	KindHumidifier: {
		info:        func(s hahoneywell.DeviceSnapshot) hahoneywell.HumidifierInfo { return s.Humidifier },
		setSetpoint: func(d Device, ctx context.Context, v int) error { return d.SetHumidifierSetpoint(ctx, v) },
		setAuto:     func(d Device, ctx context.Context) error { return d.SetHumidifierAuto(ctx) },
		setOff:      func(d Device, ctx context.Context) error { return d.SetHumidifierOff(ctx) },
	},
	KindDehumidifier: {
		info:        func(s hahoneywell.DeviceSnapshot) hahoneywell.HumidifierInfo { return s.Dehumidifier },
		setSetpoint: func(d Device, ctx context.Context, v int) error { return d.SetDehumidifierSetpoint(ctx, v) },
		setAuto:     func(d Device, ctx context.Context) error { return d.SetDehumidifierAuto(ctx) },
		setOff:      func(d Device, ctx context.Context) error { return d.SetDehumidifierOff(ctx) },
	},
}

// HumidifierService drives the humidifier and dehumidifier of a device
// through the variant table above.
type HumidifierService struct {
	coord   *PollCoordinator
	devices map[int64]Device
}

func NewHumidifierService(coord *PollCoordinator, devices map[int64]Device) *HumidifierService {
	return &HumidifierService{coord: coord, devices: devices}
}

func (s *HumidifierService) resolve(deviceID int64, kind string) (Device, humidifierOps, hahoneywell.HumidifierInfo, error) {
	ops, ok := humidifierVariants[kind]
	if !ok {
		return nil, humidifierOps{}, hahoneywell.HumidifierInfo{}, &ValidationError{Reason: fmt.Sprintf("unknown humidifier kind %q", kind)}
	}
	d, ok := s.devices[deviceID]
	if !ok {
		return nil, humidifierOps{}, hahoneywell.HumidifierInfo{}, ErrUnknownDevice
	}
	st, ok := s.coord.DeviceSnapshot(deviceID)
	if !ok {
		st = d.State()
	}
	info := ops.info(st)
	if !info.Present {
		return nil, humidifierOps{}, hahoneywell.HumidifierInfo{}, &InvalidStateError{Reason: fmt.Sprintf("device has no %s", kind)}
	}
	return d, ops, info, nil
}

// TurnOn switches the unit to automatic control.
func (s *HumidifierService) TurnOn(ctx context.Context, deviceID int64, kind string) error {
	d, ops, _, err := s.resolve(deviceID, kind)
	if err != nil {
		return err
	}
	if err := ops.setAuto(d, ctx); err != nil {
		return &OperationFailedError{Op: "turn on " + kind, Err: err}
	}
	return nil
}

func (s *HumidifierService) TurnOff(ctx context.Context, deviceID int64, kind string) error {
	d, ops, _, err := s.resolve(deviceID, kind)
	if err != nil {
		return err
	}
	if err := ops.setOff(d, ctx); err != nil {
		return &OperationFailedError{Op: "turn off " + kind, Err: err}
	}
	return nil
}

// SetHumidity validates the requested setpoint against the limits the
// device last reported and writes it.
func (s *HumidifierService) SetHumidity(ctx context.Context, deviceID int64, kind string, setpoint int) error {
	d, ops, info, err := s.resolve(deviceID, kind)
	if err != nil {
		return err
	}
	if setpoint < info.LowerLimit || setpoint > info.UpperLimit {
		return &ValidationError{Reason: fmt.Sprintf("setpoint %d outside device range %d..%d", setpoint, info.LowerLimit, info.UpperLimit)}
	}
	if err := ops.setSetpoint(d, ctx, setpoint); err != nil {
		return &OperationFailedError{Op: "set " + kind + " setpoint", Err: err}
	}
	return nil
}
