package repository

import (
	"context"
	"database/sql"
	"time"

	hahoneywell "github.com/nabbi/ha-honeywell"
)

type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*hahoneywell.User, error)
}

// SnapshotRepo persists the last good per-device snapshot after a
// successful poll cycle. It is read back only for diagnostics; the
// coordinator's in-memory snapshot is the sole live data source.
type SnapshotRepo interface {
	Save(ctx context.Context, s hahoneywell.DeviceSnapshot) error
	Get(ctx context.Context, deviceID int64) (hahoneywell.DeviceSnapshot, error)
}

type EventRepo interface {
	Append(ctx context.Context, e hahoneywell.Event) error
	List(ctx context.Context, from, to time.Time, typ string) ([]hahoneywell.Event, error)
}

type Repository struct {
	SnapshotRepo SnapshotRepo
	EventRepo    EventRepo
	Auth         Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		SnapshotRepo: NewSnapshotSQLite(db),
		EventRepo:    NewEventSQLite(db),
		Auth:         NewUserRepository(db),
	}
}
