package service

import (
	"context"
	"errors"
	"testing"
	"time"

	hahoneywell "github.com/nabbi/ha-honeywell"
)

func newMonitoring(t *testing.T, devices map[int64]Device) (*MonitoringService, *PollCoordinator, *fakeSnapshotRepo) {
	t.Helper()
	snapRepo := newFakeSnapshotRepo()
	coord := NewPollCoordinator(&fakeSession{}, devices, snapRepo, &fakeEventRepo{}, true, testLog())
	return NewMonitoringService(coord, devices, snapRepo), coord, snapRepo
}

func TestMonitoring_DevicesSortedByID(t *testing.T) {
	d2 := newFakeDevice(2, snapshotWith(hahoneywell.SystemModeCool, hahoneywell.HoldNone, hahoneywell.HoldNone))
	d1 := newFakeDevice(1, snapshotWith(hahoneywell.SystemModeHeat, hahoneywell.HoldNone, hahoneywell.HoldNone))
	svc, _, _ := newMonitoring(t, map[int64]Device{2: d2, 1: d1})

	got := svc.Devices()
	if len(got) != 2 || got[0].DeviceID != 1 || got[1].DeviceID != 2 {
		t.Fatalf("unexpected order: %+v", got)
	}

	if _, err := svc.Device(3); !errors.Is(err, ErrUnknownDevice) {
		t.Fatalf("want ErrUnknownDevice, got %v", err)
	}
	st, err := svc.Device(1)
	if err != nil || st.Mode != hahoneywell.SystemModeHeat {
		t.Fatalf("Device(1): %+v, %v", st, err)
	}
}

func TestMonitoring_DiagnosticsIncludesRawAndPersisted(t *testing.T) {
	d := newFakeDevice(1, snapshotWith(hahoneywell.SystemModeHeat, hahoneywell.HoldNone, hahoneywell.HoldNone))
	svc, _, snapRepo := newMonitoring(t, map[int64]Device{1: d})
	ctx := context.Background()

	diag, err := svc.Diagnostics(ctx, 1)
	if err != nil {
		t.Fatalf("Diagnostics: %v", err)
	}
	if len(diag.Raw) == 0 {
		t.Fatalf("raw payload missing")
	}
	if diag.Persisted != nil {
		t.Fatalf("nothing persisted yet, got %+v", diag.Persisted)
	}

	_ = snapRepo.Save(ctx, d.State())
	diag, err = svc.Diagnostics(ctx, 1)
	if err != nil || diag.Persisted == nil {
		t.Fatalf("want persisted snapshot, got %+v, %v", diag, err)
	}

	if _, err := svc.Diagnostics(ctx, 9); !errors.Is(err, ErrUnknownDevice) {
		t.Fatalf("want ErrUnknownDevice, got %v", err)
	}
}

func TestMonitoring_Health(t *testing.T) {
	d := newFakeDevice(1, snapshotWith(hahoneywell.SystemModeHeat, hahoneywell.HoldNone, hahoneywell.HoldNone))
	svc, coord, _ := newMonitoring(t, map[int64]Device{1: d})

	// Seeded at construction, so the poller looks fresh.
	if h := svc.Health(); h.Status != "ok" || h.Devices != 1 {
		t.Fatalf("want ok, got %+v", h)
	}

	coord.mu.Lock()
	coord.lastSuccess = time.Now().Add(-3 * ScanInterval)
	coord.mu.Unlock()
	if h := svc.Health(); h.Status != "degraded" {
		t.Fatalf("want degraded, got %+v", h)
	}

	coord.mu.Lock()
	coord.authRequired = true
	coord.mu.Unlock()
	if h := svc.Health(); h.Status != "reauth_required" || !h.AuthRequired {
		t.Fatalf("want reauth_required, got %+v", h)
	}
}
