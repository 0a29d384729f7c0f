package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"example.com/marathon/internal/observability"
)

type fakeMarathonStore struct {
	marathons map[string]Marathon
	seq       int
	bumped    []string
	incErr    error
}

func newFakeMarathonStore() *fakeMarathonStore {
	return &fakeMarathonStore{marathons: make(map[string]Marathon)}
}

func (s *fakeMarathonStore) ListMarathons(ctx context.Context, filter MarathonFilter) ([]Marathon, error) {
	out := make([]Marathon, 0)
	for _, m := range s.marathons {
		if filter.Email == "" || m.Email == filter.Email {
			out = append(out, m)
		}
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *fakeMarathonStore) GetMarathon(ctx context.Context, id string) (*Marathon, error) {
	m, ok := s.marathons[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (s *fakeMarathonStore) InsertMarathon(ctx context.Context, m Marathon) (string, error) {
	s.seq++
	m.ID = fmt.Sprintf("m-%d", s.seq)
	s.marathons[m.ID] = m
	return m.ID, nil
}

func (s *fakeMarathonStore) UpdateMarathon(ctx context.Context, id string, patch MarathonPatch) (UpdateResult, error) {
	m, ok := s.marathons[id]
	if !ok {
		return UpdateResult{}, nil
	}
	patch.Apply(&m)
	s.marathons[id] = m
	return UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
}

func (s *fakeMarathonStore) DeleteMarathon(ctx context.Context, id string) (int64, error) {
	if _, ok := s.marathons[id]; !ok {
		return 0, nil
	}
	delete(s.marathons, id)
	return 1, nil
}

func (s *fakeMarathonStore) IncrementRegistrationCount(ctx context.Context, id string) (bool, error) {
	s.bumped = append(s.bumped, id)
	if s.incErr != nil {
		return false, s.incErr
	}
	m, ok := s.marathons[id]
	if !ok {
		return false, nil
	}
	m.RegistrationCount++
	s.marathons[id] = m
	return true, nil
}

type fakeApplicationStore struct {
	apps []Application
}

func (s *fakeApplicationStore) ListApplications(ctx context.Context, filter ApplicationFilter) ([]Application, error) {
	return s.apps, nil
}

func (s *fakeApplicationStore) InsertApplication(ctx context.Context, a Application) (string, error) {
	a.ID = "app-1"
	s.apps = append(s.apps, a)
	return a.ID, nil
}

func TestMarathonServiceCreate(t *testing.T) {
	store := newFakeMarathonStore()
	pub := &recordingPublisher{}
	svc := NewMarathonService(store, fixedClock(), WithPublisher(pub))
	ctx := context.Background()

	_, err := svc.Create(ctx, Marathon{Email: "org@example.com"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "title", verr.Field)

	m, err := svc.Create(ctx, Marathon{ID: "client-id", Title: "Run", Email: "org@example.com", RegistrationCount: 99})
	require.NoError(t, err)
	require.NotEqual(t, "client-id", m.ID)
	require.Zero(t, m.RegistrationCount)
	require.Equal(t, march15, m.CreatedAt)
	require.Equal(t, []string{"marathon.created:" + m.ID}, pub.events)
}

func TestMarathonServiceGetAndUpdate(t *testing.T) {
	store := newFakeMarathonStore()
	svc := NewMarathonService(store, fixedClock())
	ctx := context.Background()

	_, err := svc.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrMarathonNotFound)

	m, err := svc.Create(ctx, Marathon{Title: "Run", Email: "org@example.com"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, m.ID, MarathonPatch{})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	title := "Night Run"
	res, err := svc.Update(ctx, m.ID, MarathonPatch{Title: &title})
	require.NoError(t, err)
	require.EqualValues(t, 1, res.MatchedCount)

	got, err := svc.Get(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, "Night Run", got.Title)
	require.Equal(t, "org@example.com", got.Email)

	_, err = svc.ListByOrganiser(ctx, " ")
	require.ErrorAs(t, err, &verr)
}

func TestMarathonPatchIsEmpty(t *testing.T) {
	require.True(t, MarathonPatch{}.IsEmpty())
	empty := ""
	require.False(t, MarathonPatch{Image: &empty}.IsEmpty())
}

func TestApplicationServiceRegister(t *testing.T) {
	marathons := newFakeMarathonStore()
	apps := &fakeApplicationStore{}
	pub := &recordingPublisher{}
	svc := NewApplicationService(apps, marathons, fixedClock(), WithPublisher(pub))
	ctx := context.Background()

	m, err := NewMarathonService(marathons, fixedClock()).Create(ctx, Marathon{Title: "Run", Email: "org@example.com"})
	require.NoError(t, err)

	a, err := svc.Register(ctx, Application{MarathonID: m.ID, Email: "r@example.com", RegisterCount: 7})
	require.NoError(t, err)
	require.Equal(t, "app-1", a.ID)
	require.Zero(t, a.RegisterCount)
	require.Equal(t, 1, marathons.marathons[m.ID].RegistrationCount)

	_, err = svc.Register(ctx, Application{MarathonID: "unknown", Email: "r@example.com"})
	require.NoError(t, err, "an unknown marathon only logs a warning")
	require.Equal(t, []string{m.ID, "unknown"}, marathons.bumped)

	_, err = svc.Register(ctx, Application{Email: "r@example.com"})
	require.NoError(t, err)
	require.Len(t, marathons.bumped, 2, "no increment without a marathon id")
	require.Len(t, pub.events, 3)

	_, err = svc.Register(ctx, Application{})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = svc.List(ctx, ApplicationFilter{})
	require.ErrorAs(t, err, &verr)
}

func TestApplicationServiceRegisterKeepsInsertWhenIncrementFails(t *testing.T) {
	marathons := newFakeMarathonStore()
	marathons.incErr = errors.New("write conflict")
	apps := &fakeApplicationStore{}
	pub := &recordingPublisher{}
	svc := NewApplicationService(apps, marathons, fixedClock(), WithPublisher(pub))

	before := testutil.ToFloat64(observability.RegistrationCountErrors())

	a, err := svc.Register(context.Background(), Application{MarathonID: "m-1", Email: "r@example.com"})
	require.NoError(t, err)
	require.Equal(t, "app-1", a.ID)
	require.Len(t, apps.apps, 1)
	require.Equal(t, []string{"application.created:m-1"}, pub.events)
	require.Equal(t, before+1, testutil.ToFloat64(observability.RegistrationCountErrors()))
}
