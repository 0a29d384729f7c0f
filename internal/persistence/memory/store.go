// Package memory provides map-backed stores for local development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"example.com/marathon/internal/domain"
)

// Store implements every domain store in memory. Values are copied on the
// way in and out so callers never share slices with the store.
type Store struct {
	mu           sync.RWMutex
	runningLogs  map[string][]domain.DailyRecord
	marathons    map[string]domain.Marathon
	applications map[string]domain.Application
	appOrder     []string
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		runningLogs:  make(map[string][]domain.DailyRecord),
		marathons:    make(map[string]domain.Marathon),
		applications: make(map[string]domain.Application),
	}
}

// FindRunningLog implements domain.RunningLogStore.
func (s *Store) FindRunningLog(ctx context.Context, userID string) (*domain.UserRunningLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, ok := s.runningLogs[userID]
	if !ok {
		return nil, nil
	}
	return &domain.UserRunningLog{UserID: userID, DailyData: cloneRecords(records)}, nil
}

// InsertRunningLog implements domain.RunningLogStore.
func (s *Store) InsertRunningLog(ctx context.Context, log domain.UserRunningLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runningLogs[log.UserID]; ok {
		return fmt.Errorf("running log for %q already exists", log.UserID)
	}
	s.runningLogs[log.UserID] = cloneRecords(log.DailyData)
	return nil
}

// ReplaceDailyData implements domain.RunningLogStore.
func (s *Store) ReplaceDailyData(ctx context.Context, userID string, dailyData []domain.DailyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runningLogs[userID]; !ok {
		return fmt.Errorf("running log for %q does not exist", userID)
	}
	s.runningLogs[userID] = cloneRecords(dailyData)
	return nil
}

// ListMarathons implements domain.MarathonStore.
func (s *Store) ListMarathons(ctx context.Context, filter domain.MarathonFilter) ([]domain.Marathon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Marathon, 0, len(s.marathons))
	for _, m := range s.marathons {
		if filter.Email != "" && m.Email != filter.Email {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// GetMarathon implements domain.MarathonStore.
func (s *Store) GetMarathon(ctx context.Context, id string) (*domain.Marathon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.marathons[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

// InsertMarathon implements domain.MarathonStore.
func (s *Store) InsertMarathon(ctx context.Context, m domain.Marathon) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m.ID = uuid.NewString()
	s.marathons[m.ID] = m
	return m.ID, nil
}

// UpdateMarathon implements domain.MarathonStore.
func (s *Store) UpdateMarathon(ctx context.Context, id string, patch domain.MarathonPatch) (domain.UpdateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.marathons[id]
	if !ok {
		return domain.UpdateResult{}, nil
	}
	before := m
	patch.Apply(&m)
	s.marathons[id] = m

	res := domain.UpdateResult{MatchedCount: 1}
	if m != before {
		res.ModifiedCount = 1
	}
	return res, nil
}

// DeleteMarathon implements domain.MarathonStore.
func (s *Store) DeleteMarathon(ctx context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.marathons[id]; !ok {
		return 0, nil
	}
	delete(s.marathons, id)
	return 1, nil
}

// IncrementRegistrationCount implements domain.MarathonStore.
func (s *Store) IncrementRegistrationCount(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.marathons[id]
	if !ok {
		return false, nil
	}
	m.RegistrationCount++
	s.marathons[id] = m
	return true, nil
}

// ListApplications implements domain.ApplicationStore.
func (s *Store) ListApplications(ctx context.Context, filter domain.ApplicationFilter) ([]domain.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	title := strings.ToLower(filter.Title)
	out := make([]domain.Application, 0)
	for _, id := range s.appOrder {
		a := s.applications[id]
		if filter.Email != "" && a.Email != filter.Email {
			continue
		}
		if title != "" && !strings.Contains(strings.ToLower(a.Title), title) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// InsertApplication implements domain.ApplicationStore.
func (s *Store) InsertApplication(ctx context.Context, a domain.Application) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a.ID = uuid.NewString()
	s.applications[a.ID] = a
	s.appOrder = append(s.appOrder, a.ID)
	return a.ID, nil
}

func cloneRecords(in []domain.DailyRecord) []domain.DailyRecord {
	out := make([]domain.DailyRecord, len(in))
	copy(out, in)
	return out
}
