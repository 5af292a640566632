package service

import (
	"context"
	"sync"
	"time"

	hahoneywell "github.com/nabbi/ha-honeywell"
	"github.com/nabbi/ha-honeywell/internal/logger"
	"github.com/nabbi/ha-honeywell/internal/repository"
	"github.com/nabbi/ha-honeywell/internal/somecomfort"
)

// ScanInterval is how often the portal is polled. The portal rate-limits
// aggressively, so this is a constant rather than a knob.
const ScanInterval = 60 * time.Second

// PollCoordinator owns the authoritative cached snapshot of all devices.
// Each tick runs one full refresh cycle: refresh every device, walk the
// re-login ladder on authorization failures, and fall back to the cached
// snapshot on transient ones. The ladder is resolved entirely within one
// cycle; ticks never accumulate retry state.
type PollCoordinator struct {
	client   SessionClient
	devices  map[int64]Device
	snapRepo repository.SnapshotRepo
	events   repository.EventRepo
	log      *logger.Logger

	mu           sync.RWMutex
	snapshot     map[int64]hahoneywell.DeviceSnapshot
	skipNext     bool
	authRequired bool
	lastSuccess  time.Time
	listeners    []func()
}

// NewPollCoordinator builds a coordinator over an already logged-in
// session. skipNext suppresses the first cycle when discovery has just
// populated current data; re-fetching immediately would only double the
// failure surface during startup.
func NewPollCoordinator(client SessionClient, devices map[int64]Device, snapRepo repository.SnapshotRepo, events repository.EventRepo, skipNext bool, log *logger.Logger) *PollCoordinator {
	c := &PollCoordinator{
		client:   client,
		devices:  devices,
		snapRepo: snapRepo,
		events:   events,
		log:      log,
		skipNext: skipNext,
	}
	if skipNext {
		// Discovery refreshed every device, so seed the snapshot from
		// the client-side state instead of leaving consumers empty
		// until the second tick.
		seed := make(map[int64]hahoneywell.DeviceSnapshot, len(devices))
		for id, d := range devices {
			seed[id] = d.State()
		}
		c.snapshot = seed
		c.lastSuccess = time.Now().UTC()
	}
	return c
}

// Run polls at the given interval until ctx is canceled. A latched
// authentication failure stops the loop; polling with known-bad
// credentials only hastens an account lockout.
func (c *PollCoordinator) Run(ctx context.Context, tick time.Duration) {
	if err := c.RefreshCycle(ctx); err != nil {
		c.log.Warnw("poll_cycle_failed", "err", err)
	}
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if c.AuthRequired() {
				c.log.Errorw("poll_stopped_reauth_required")
				return
			}
			if err := c.RefreshCycle(ctx); err != nil {
				c.log.Warnw("poll_cycle_failed", "err", err)
			}
		}
	}
}

// RefreshCycle executes one pass of the retry ladder:
//
//  1. refresh all devices
//  2. unauthorized -> login, refresh again
//  3. still an auth failure -> login a second time, refresh again
//  4. a second genuine credential rejection is fatal; a rejection that
//     carries the portal's site-down signature is treated as transient
//
// Transient failures at any rung serve the cached snapshot. A failure
// with no cached snapshot fails the cycle outright.
func (c *PollCoordinator) RefreshCycle(ctx context.Context) error {
	if c.consumeSkip() {
		return nil
	}

	err := c.refreshAll(ctx)
	if err == nil {
		return c.commit(ctx)
	}

	if somecomfort.IsUnauthorized(err) {
		err = c.loginAndRefresh(ctx)
		if err == nil {
			return c.commit(ctx)
		}
		if somecomfort.IsAuthError(err) {
			err = c.loginAndRefresh(ctx)
			if err == nil {
				return c.commit(ctx)
			}
			if somecomfort.IsAuthError(err) {
				if somecomfort.IsSiteDown(err) {
					// The portal drops sessions wholesale when it is
					// unhealthy; the credentials are not at fault.
					return c.serveStale(ctx, err)
				}
				return c.latchAuthRequired(ctx, err)
			}
		}
		// Timeout, connection failure or rate limit on a retry rung.
		return c.serveStale(ctx, err)
	}

	// Timeouts, rate limits and malformed payloads all self-resolve.
	return c.serveStale(ctx, err)
}

// refreshAll fetches every device concurrently on the shared session.
// The first error in device order wins, except that an unauthorized
// error from any device outranks transient ones: it means the whole
// session is dead and the ladder must re-login.
func (c *PollCoordinator) refreshAll(ctx context.Context) error {
	ids := make([]int64, 0, len(c.devices))
	for id := range c.devices {
		ids = append(ids, id)
	}

	errs := make([]error, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, d Device) {
			defer wg.Done()
			errs[i] = d.Refresh(ctx)
		}(i, c.devices[id])
	}
	wg.Wait()

	var first error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if somecomfort.IsUnauthorized(err) {
			return err
		}
		if first == nil {
			first = err
		}
	}
	return first
}

func (c *PollCoordinator) loginAndRefresh(ctx context.Context) error {
	if err := c.client.Login(ctx); err != nil {
		return err
	}
	return c.refreshAll(ctx)
}

// commit replaces the cached snapshot with freshly refreshed state,
// persists the last-good copies, and notifies listeners.
func (c *PollCoordinator) commit(ctx context.Context) error {
	now := time.Now().UTC()
	fresh := make(map[int64]hahoneywell.DeviceSnapshot, len(c.devices))
	for id, d := range c.devices {
		s := d.State()
		s.FetchedAt = now
		fresh[id] = s
	}

	c.mu.Lock()
	c.snapshot = fresh
	c.lastSuccess = now
	c.mu.Unlock()

	for _, s := range fresh {
		if err := c.snapRepo.Save(ctx, s); err != nil {
			c.log.Warnw("snapshot_persist_failed", "device_id", s.DeviceID, "err", err)
		}
	}

	c.notify()
	return nil
}

// serveStale leaves the cached snapshot untouched so consumers keep
// their last known values. With no cached snapshot the cycle fails
// outright and the caller retries the whole setup later.
func (c *PollCoordinator) serveStale(ctx context.Context, cause error) error {
	c.mu.RLock()
	hasData := c.snapshot != nil
	c.mu.RUnlock()

	if !hasData {
		return &UpdateFailedError{Err: cause}
	}

	c.log.Warnw("poll_stale_served", "err", cause)
	c.appendEvent(ctx, hahoneywell.EventPollStale, "refresh failed, serving cached data", map[string]any{
		"error": cause.Error(),
	})
	return nil
}

func (c *PollCoordinator) latchAuthRequired(ctx context.Context, cause error) error {
	c.mu.Lock()
	c.authRequired = true
	c.mu.Unlock()

	c.log.Errorw("reauth_required", "err", cause)
	c.appendEvent(ctx, hahoneywell.EventReauthRequired, "credentials rejected twice, re-authentication required", map[string]any{
		"error": cause.Error(),
	})
	return ErrAuthRequired
}

func (c *PollCoordinator) consumeSkip() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.skipNext {
		c.skipNext = false
		return true
	}
	return false
}

func (c *PollCoordinator) appendEvent(ctx context.Context, typ, msg string, meta map[string]any) {
	if err := c.events.Append(ctx, hahoneywell.Event{Type: typ, Description: msg, Metadata: meta}); err != nil {
		c.log.Warnw("event_append_failed", "type", typ, "err", err)
	}
}

func (c *PollCoordinator) notify() {
	c.mu.RLock()
	listeners := make([]func(), len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.RUnlock()
	for _, fn := range listeners {
		fn()
	}
}

// Listen registers fn to run after every successful refresh commit.
// Not safe to call after Run has started delivering notifications.
func (c *PollCoordinator) Listen(fn func()) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// Snapshot returns a copy of the cached view of all devices. Nil before
// the first successful refresh.
func (c *PollCoordinator) Snapshot() map[int64]hahoneywell.DeviceSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snapshot == nil {
		return nil
	}
	out := make(map[int64]hahoneywell.DeviceSnapshot, len(c.snapshot))
	for id, s := range c.snapshot {
		out[id] = s
	}
	return out
}

// DeviceSnapshot returns the cached state of one device.
func (c *PollCoordinator) DeviceSnapshot(deviceID int64) (hahoneywell.DeviceSnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.snapshot[deviceID]
	return s, ok
}

// AuthRequired reports whether a fatal credential failure has latched.
func (c *PollCoordinator) AuthRequired() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authRequired
}

// LastSuccess returns the time of the last committed refresh, zero if none.
func (c *PollCoordinator) LastSuccess() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSuccess
}
