package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	hahoneywell "github.com/nabbi/ha-honeywell"
)

type SnapshotSQLite struct {
	db *sql.DB
}

func NewSnapshotSQLite(db *sql.DB) *SnapshotSQLite {
	return &SnapshotSQLite{db: db}
}

var _ SnapshotRepo = (*SnapshotSQLite)(nil)

// ErrSnapshotNotFound is returned when no snapshot has been persisted for a
// device yet.
var ErrSnapshotNotFound = errors.New("no persisted snapshot for device")

const (
	upsertSnapshotSQL = `
		INSERT INTO device_snapshots (device_id, name, data, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(device_id) DO UPDATE SET
			name=excluded.name,
			data=excluded.data,
			updated_at=excluded.updated_at
	`

	selectSnapshotSQL = `
		SELECT data FROM device_snapshots WHERE device_id=?
	`
)

// Save upserts the last good snapshot for one device.
func (r *SnapshotSQLite) Save(ctx context.Context, s hahoneywell.DeviceSnapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}

	ts := s.FetchedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	} else {
		ts = ts.UTC()
	}

	_, err = r.db.ExecContext(ctx, upsertSnapshotSQL, s.DeviceID, s.Name, string(data), ts)
	return err
}

// Get fetches the persisted snapshot for one device.
func (r *SnapshotSQLite) Get(ctx context.Context, deviceID int64) (hahoneywell.DeviceSnapshot, error) {
	var data string
	err := r.db.QueryRowContext(ctx, selectSnapshotSQL, deviceID).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return hahoneywell.DeviceSnapshot{}, ErrSnapshotNotFound
		}
		return hahoneywell.DeviceSnapshot{}, err
	}

	var s hahoneywell.DeviceSnapshot
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return hahoneywell.DeviceSnapshot{}, err
	}
	return s, nil
}
