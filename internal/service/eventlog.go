package service

import (
	"context"
	"errors"
	"strings"
	"time"

	hahoneywell "github.com/nabbi/ha-honeywell"
	"github.com/nabbi/ha-honeywell/internal/repository"
)

// LogFilter narrows the event history by time range and type.
type LogFilter struct {
	From time.Time
	To   time.Time
	Type string
}

type EventLogService struct {
	eventRepo repository.EventRepo
}

func NewEventLogService(eventRepo repository.EventRepo) *EventLogService {
	return &EventLogService{eventRepo: eventRepo}
}

var errInvalidTimeRange = errors.New("invalid time range: From must be <= To")

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// normalizeAndValidateFilter prepares query parameters and validates the time range.
func normalizeAndValidateFilter(f LogFilter) (time.Time, time.Time, string, error) {
	from := normalizeToUTC(f.From)
	to := normalizeToUTC(f.To)

	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return time.Time{}, time.Time{}, "", errInvalidTimeRange
	}

	return from, to, strings.TrimSpace(strings.ToUpper(f.Type)), nil
}

func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]hahoneywell.Event, error) {
	from, to, typ, err := normalizeAndValidateFilter(f)
	if err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}
	return s.eventRepo.List(ctx, from, to, typ)
}
