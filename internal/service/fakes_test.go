package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	hahoneywell "github.com/nabbi/ha-honeywell"
	"github.com/nabbi/ha-honeywell/internal/logger"
	"github.com/nabbi/ha-honeywell/internal/repository"
)

// call records one device mutator invocation with its arguments.
type call struct {
	name string
	args []any
}

// fakeDevice scripts refresh failures and records every mutator call.
type fakeDevice struct {
	id    int64
	name  string
	state hahoneywell.DeviceSnapshot
	raw   json.RawMessage

	mu          sync.Mutex
	refreshErrs []error // consumed one per Refresh; nil once exhausted
	refreshes   int
	mutatorErr  map[string]error // per-call-name scripted failure
	calls       []call
}

func newFakeDevice(id int64, st hahoneywell.DeviceSnapshot) *fakeDevice {
	st.DeviceID = id
	return &fakeDevice{
		id:         id,
		name:       "fake",
		state:      st,
		raw:        json.RawMessage(`{"latestData":{}}`),
		mutatorErr: map[string]error{},
	}
}

func (d *fakeDevice) ID() int64    { return d.id }
func (d *fakeDevice) Name() string { return d.name }

func (d *fakeDevice) State() hahoneywell.DeviceSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *fakeDevice) setState(st hahoneywell.DeviceSnapshot) {
	d.mu.Lock()
	st.DeviceID = d.id
	d.state = st
	d.mu.Unlock()
}

func (d *fakeDevice) Raw() json.RawMessage { return d.raw }

func (d *fakeDevice) Refresh(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.refreshes++
	if len(d.refreshErrs) == 0 {
		return nil
	}
	err := d.refreshErrs[0]
	d.refreshErrs = d.refreshErrs[1:]
	return err
}

func (d *fakeDevice) record(name string, args ...any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, call{name: name, args: args})
	return d.mutatorErr[name]
}

func (d *fakeDevice) callsNamed(name string) []call {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []call
	for _, c := range d.calls {
		if c.name == name {
			out = append(out, c)
		}
	}
	return out
}

func (d *fakeDevice) mutatorCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

func (d *fakeDevice) SetSystemMode(ctx context.Context, mode hahoneywell.SystemMode) error {
	return d.record("SetSystemMode", mode)
}

func (d *fakeDevice) SetHeatSetpoint(ctx context.Context, temp float64) error {
	return d.record("SetHeatSetpoint", temp)
}

func (d *fakeDevice) SetCoolSetpoint(ctx context.Context, temp float64) error {
	return d.record("SetCoolSetpoint", temp)
}

func (d *fakeDevice) SetHoldHeat(ctx context.Context, hold bool) error {
	return d.record("SetHoldHeat", hold)
}

func (d *fakeDevice) SetHoldHeatTemp(ctx context.Context, hold bool, temp float64) error {
	return d.record("SetHoldHeatTemp", hold, temp)
}

func (d *fakeDevice) SetHoldHeatUntil(ctx context.Context, until hahoneywell.TimeOfDay, temp float64) error {
	return d.record("SetHoldHeatUntil", until, temp)
}

func (d *fakeDevice) SetHoldCool(ctx context.Context, hold bool) error {
	return d.record("SetHoldCool", hold)
}

func (d *fakeDevice) SetHoldCoolTemp(ctx context.Context, hold bool, temp float64) error {
	return d.record("SetHoldCoolTemp", hold, temp)
}

func (d *fakeDevice) SetHoldCoolUntil(ctx context.Context, until hahoneywell.TimeOfDay, temp float64) error {
	return d.record("SetHoldCoolUntil", until, temp)
}

func (d *fakeDevice) SetHumidifierSetpoint(ctx context.Context, v int) error {
	return d.record("SetHumidifierSetpoint", v)
}

func (d *fakeDevice) SetHumidifierAuto(ctx context.Context) error {
	return d.record("SetHumidifierAuto")
}

func (d *fakeDevice) SetHumidifierOff(ctx context.Context) error {
	return d.record("SetHumidifierOff")
}

func (d *fakeDevice) SetDehumidifierSetpoint(ctx context.Context, v int) error {
	return d.record("SetDehumidifierSetpoint", v)
}

func (d *fakeDevice) SetDehumidifierAuto(ctx context.Context) error {
	return d.record("SetDehumidifierAuto")
}

func (d *fakeDevice) SetDehumidifierOff(ctx context.Context) error {
	return d.record("SetDehumidifierOff")
}

// fakeSession scripts login outcomes.
type fakeSession struct {
	mu        sync.Mutex
	loginErrs []error // consumed one per Login; nil once exhausted
	logins    int
}

func (s *fakeSession) Login(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logins++
	if len(s.loginErrs) == 0 {
		return nil
	}
	err := s.loginErrs[0]
	s.loginErrs = s.loginErrs[1:]
	return err
}

func (s *fakeSession) loginCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logins
}

// fakeSnapshotRepo records saves in memory.
type fakeSnapshotRepo struct {
	mu    sync.Mutex
	saved map[int64]hahoneywell.DeviceSnapshot
}

func newFakeSnapshotRepo() *fakeSnapshotRepo {
	return &fakeSnapshotRepo{saved: map[int64]hahoneywell.DeviceSnapshot{}}
}

func (r *fakeSnapshotRepo) Save(ctx context.Context, s hahoneywell.DeviceSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved[s.DeviceID] = s
	return nil
}

func (r *fakeSnapshotRepo) Get(ctx context.Context, deviceID int64) (hahoneywell.DeviceSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.saved[deviceID]
	if !ok {
		return hahoneywell.DeviceSnapshot{}, repository.ErrSnapshotNotFound
	}
	return s, nil
}

// fakeEventRepo records appended events in memory.
type fakeEventRepo struct {
	mu     sync.Mutex
	events []hahoneywell.Event
}

func (r *fakeEventRepo) Append(ctx context.Context, e hahoneywell.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *fakeEventRepo) List(ctx context.Context, from, to time.Time, typ string) ([]hahoneywell.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]hahoneywell.Event, len(r.events))
	copy(out, r.events)
	return out, nil
}

func (r *fakeEventRepo) typesSeen(typ string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

func testLog() *logger.Logger { return logger.Get(logger.ErrorLevel) }

func f64(v float64) *float64 { return &v }
