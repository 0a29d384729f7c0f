// Package domain defines the business logic for the marathon service.
package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"example.com/marathon/internal/events"
	"example.com/marathon/internal/logging"
	"example.com/marathon/internal/observability"
)

// RunningLogStore captures persistence of per-user running logs.
// FindRunningLog returns nil, nil when the user has no log.
type RunningLogStore interface {
	FindRunningLog(ctx context.Context, userID string) (*UserRunningLog, error)
	InsertRunningLog(ctx context.Context, log UserRunningLog) error
	ReplaceDailyData(ctx context.Context, userID string, dailyData []DailyRecord) error
}

// EventPublisher delivers post-write notifications.
type EventPublisher interface {
	Publish(ctx context.Context, eventType, key string, payload interface{}) error
}

// Option configures optional behaviour for services.
type Option func(*options)

type options struct {
	now       func() time.Time
	publisher EventPublisher
}

// WithClock overrides the wall clock used for scaffolds and month filtering.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithPublisher sets where post-write events are sent.
func WithPublisher(p EventPublisher) Option {
	return func(o *options) {
		o.publisher = p
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now, publisher: events.NoopPublisher{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// RunningService merges daily running records and aggregates them.
type RunningService struct {
	store RunningLogStore
	opts  options
	locks *keyedMutex
}

// NewRunningService constructs a RunningService.
func NewRunningService(store RunningLogStore, opts ...Option) *RunningService {
	return &RunningService{
		store: store,
		opts:  buildOptions(opts),
		locks: newKeyedMutex(),
	}
}

// MergeResult is the merged log plus whether it was created by this call.
type MergeResult struct {
	Log     UserRunningLog
	Created bool
}

// MergeDailyData merges incoming records into the user's log, seeding a
// 30-day scaffold on first write, and persists the whole array once.
// Merges for the same user are serialised within the process.
func (s *RunningService) MergeDailyData(ctx context.Context, userID string, incoming []DailyRecordInput) (*MergeResult, error) {
	if err := validateMergeInput(userID, incoming); err != nil {
		observability.RecordMerge(observability.MergeInvalid, len(incoming), time.Time{})
		return nil, err
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	now := s.opts.now()
	existing, err := s.store.FindRunningLog(ctx, userID)
	if err != nil {
		observability.RecordMerge(observability.MergeFailed, len(incoming), now)
		return nil, storeError("find running log", err)
	}

	created := existing == nil
	base := NewScaffold(now)
	if !created {
		base = existing.DailyData
	}

	merged := UserRunningLog{
		UserID:    userID,
		DailyData: MergeDailyRecords(base, incoming, now),
	}
	if err := checkFinite(merged.DailyData); err != nil {
		observability.RecordMerge(observability.MergeInvalid, len(incoming), now)
		return nil, err
	}

	if created {
		err = s.store.InsertRunningLog(ctx, merged)
	} else {
		err = s.store.ReplaceDailyData(ctx, userID, merged.DailyData)
	}
	if err != nil {
		observability.RecordMerge(observability.MergeFailed, len(incoming), now)
		return nil, storeError("persist running log", err)
	}

	outcome := observability.MergeUpdated
	if created {
		outcome = observability.MergeCreated
	}
	observability.RecordMerge(outcome, len(incoming), now)

	s.publish(ctx, events.TypeRunningLogMerged, userID, events.RunningLogMerged{
		UserID:    userID,
		Days:      incomingDays(incoming),
		Created:   created,
		TotalDays: len(merged.DailyData),
		MergedAt:  now.UTC(),
	})

	return &MergeResult{Log: merged, Created: created}, nil
}

// ComputeStats aggregates the stored log for userID.
func (s *RunningService) ComputeStats(ctx context.Context, userID string) (*UserStats, error) {
	if strings.TrimSpace(userID) == "" {
		observability.RecordStats("invalid")
		return nil, NewValidationError("userId", "is required")
	}

	log, err := s.store.FindRunningLog(ctx, userID)
	if err != nil {
		observability.RecordStats("failed")
		return nil, storeError("find running log", err)
	}
	if log == nil {
		observability.RecordStats("not_found")
		return nil, ErrRunningLogNotFound
	}

	stats := ComputeStats(log.DailyData, s.opts.now())
	observability.RecordStats("ok")
	return &stats, nil
}

func (s *RunningService) publish(ctx context.Context, eventType, key string, payload interface{}) {
	publishEvent(ctx, s.opts.publisher, eventType, key, payload)
}

// publishEvent runs after the write has been persisted, so a delivery
// failure is logged and never surfaced to the caller.
func publishEvent(ctx context.Context, p EventPublisher, eventType, key string, payload interface{}) {
	if err := p.Publish(ctx, eventType, key, payload); err != nil && !errors.Is(err, context.Canceled) {
		logging.Ctx(ctx).Warn().Err(err).Str("event_type", eventType).Str("key", key).Msg("event publish failed")
	}
}

func incomingDays(incoming []DailyRecordInput) []string {
	days := make([]string, 0, len(incoming))
	for _, in := range incoming {
		days = append(days, in.Day)
	}
	return days
}
