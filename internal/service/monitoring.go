package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	hahoneywell "github.com/nabbi/ha-honeywell"
	"github.com/nabbi/ha-honeywell/internal/repository"
)

// Diagnostics bundles the raw portal payload for a device verbatim with
// the last snapshot persisted to storage. The raw payload is for
// support and debugging only, never interpreted.
type Diagnostics struct {
	DeviceID  int64                       `json:"device_id"`
	Name      string                      `json:"name"`
	Raw       json.RawMessage             `json:"raw"`
	Persisted *hahoneywell.DeviceSnapshot `json:"persisted,omitempty"`
}

// HealthStatus reports poller liveness for the health endpoint.
type HealthStatus struct {
	Status       string    `json:"status"`
	AuthRequired bool      `json:"auth_required"`
	LastSuccess  time.Time `json:"last_success,omitempty"`
	Devices      int       `json:"devices"`
}

type MonitoringService struct {
	coord    *PollCoordinator
	devices  map[int64]Device
	snapRepo repository.SnapshotRepo
}

func NewMonitoringService(coord *PollCoordinator, devices map[int64]Device, snapRepo repository.SnapshotRepo) *MonitoringService {
	return &MonitoringService{coord: coord, devices: devices, snapRepo: snapRepo}
}

// Devices returns the cached snapshot of every device, ordered by id.
func (s *MonitoringService) Devices() []hahoneywell.DeviceSnapshot {
	snap := s.coord.Snapshot()
	out := make([]hahoneywell.DeviceSnapshot, 0, len(snap))
	for _, st := range snap {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out
}

// Device returns the cached snapshot of one device.
func (s *MonitoringService) Device(deviceID int64) (hahoneywell.DeviceSnapshot, error) {
	st, ok := s.coord.DeviceSnapshot(deviceID)
	if !ok {
		return hahoneywell.DeviceSnapshot{}, ErrUnknownDevice
	}
	return st, nil
}

// Diagnostics returns the raw payload plus the last persisted snapshot,
// when one exists.
func (s *MonitoringService) Diagnostics(ctx context.Context, deviceID int64) (Diagnostics, error) {
	d, ok := s.devices[deviceID]
	if !ok {
		return Diagnostics{}, ErrUnknownDevice
	}

	diag := Diagnostics{
		DeviceID: d.ID(),
		Name:     d.Name(),
		Raw:      d.Raw(),
	}

	persisted, err := s.snapRepo.Get(ctx, deviceID)
	switch {
	case err == nil:
		diag.Persisted = &persisted
	case errors.Is(err, repository.ErrSnapshotNotFound):
		// nothing persisted yet
	default:
		return Diagnostics{}, err
	}
	return diag, nil
}

// Health reports degraded when the last successful poll is older than
// two scan intervals, and auth_required when the credential failure has
// latched.
func (s *MonitoringService) Health() HealthStatus {
	h := HealthStatus{
		Status:       "ok",
		AuthRequired: s.coord.AuthRequired(),
		LastSuccess:  s.coord.LastSuccess(),
		Devices:      len(s.devices),
	}
	switch {
	case h.AuthRequired:
		h.Status = "reauth_required"
	case h.LastSuccess.IsZero() || time.Since(h.LastSuccess) > 2*ScanInterval:
		h.Status = "degraded"
	}
	return h
}
