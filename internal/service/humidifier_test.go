package service

import (
	"context"
	"testing"

	hahoneywell "github.com/nabbi/ha-honeywell"
)

func humidifierSnapshot() hahoneywell.DeviceSnapshot {
	s := snapshotWith(hahoneywell.SystemModeHeat, hahoneywell.HoldNone, hahoneywell.HoldNone)
	s.Humidifier = hahoneywell.HumidifierInfo{Present: true, Setpoint: 35, LowerLimit: 10, UpperLimit: 60}
	s.Dehumidifier = hahoneywell.HumidifierInfo{Present: false}
	return s
}

func newHumidifier(t *testing.T, d *fakeDevice) *HumidifierService {
	t.Helper()
	devices := map[int64]Device{1: d}
	coord := NewPollCoordinator(&fakeSession{}, devices, newFakeSnapshotRepo(), &fakeEventRepo{}, true, testLog())
	return NewHumidifierService(coord, devices)
}

func TestHumidifier_TurnOnOff(t *testing.T) {
	d := newFakeDevice(1, humidifierSnapshot())
	svc := newHumidifier(t, d)
	ctx := context.Background()

	if err := svc.TurnOn(ctx, 1, "humidifier"); err != nil {
		t.Fatalf("TurnOn: %v", err)
	}
	if n := len(d.callsNamed("SetHumidifierAuto")); n != 1 {
		t.Fatalf("want 1 SetHumidifierAuto, got %d", n)
	}

	if err := svc.TurnOff(ctx, 1, "humidifier"); err != nil {
		t.Fatalf("TurnOff: %v", err)
	}
	if n := len(d.callsNamed("SetHumidifierOff")); n != 1 {
		t.Fatalf("want 1 SetHumidifierOff, got %d", n)
	}
}

func TestHumidifier_SetHumidityValidatesLimits(t *testing.T) {
	d := newFakeDevice(1, humidifierSnapshot())
	svc := newHumidifier(t, d)
	ctx := context.Background()

	if err := svc.SetHumidity(ctx, 1, "humidifier", 65); !IsValidation(err) {
		t.Fatalf("want ValidationError above upper limit, got %v", err)
	}
	if err := svc.SetHumidity(ctx, 1, "humidifier", 5); !IsValidation(err) {
		t.Fatalf("want ValidationError below lower limit, got %v", err)
	}
	if d.mutatorCalls() != 0 {
		t.Fatalf("out-of-range setpoint reached the device")
	}

	if err := svc.SetHumidity(ctx, 1, "humidifier", 40); err != nil {
		t.Fatalf("SetHumidity: %v", err)
	}
	calls := d.callsNamed("SetHumidifierSetpoint")
	if len(calls) != 1 || calls[0].args[0] != 40 {
		t.Fatalf("want SetHumidifierSetpoint(40), got %v", calls)
	}
}

func TestHumidifier_AbsentUnitAndUnknownKind(t *testing.T) {
	d := newFakeDevice(1, humidifierSnapshot())
	svc := newHumidifier(t, d)
	ctx := context.Background()

	if err := svc.TurnOn(ctx, 1, "dehumidifier"); !IsInvalidState(err) {
		t.Fatalf("want InvalidStateError for absent unit, got %v", err)
	}
	if err := svc.TurnOn(ctx, 1, "evaporator"); !IsValidation(err) {
		t.Fatalf("want ValidationError for unknown kind, got %v", err)
	}
	if d.mutatorCalls() != 0 {
		t.Fatalf("rejected commands reached the device")
	}
}
