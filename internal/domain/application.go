package domain

import (
	"context"
	"strings"
	"time"

	"example.com/marathon/internal/events"
	"example.com/marathon/internal/logging"
	"example.com/marathon/internal/observability"
)

// Application is a runner's registration for a marathon.
type Application struct {
	ID                string    `json:"_id"`
	MarathonID        string    `json:"marathonID"`
	Title             string    `json:"title"`
	MarathonStartDate string    `json:"marathonStartDate"`
	Email             string    `json:"email"`
	FirstName         string    `json:"firstName"`
	LastName          string    `json:"lastName"`
	ContactNumber     string    `json:"contactNumber"`
	AdditionalInfo    string    `json:"additionalInfo"`
	RegisterCount     int       `json:"registerCount"`
	CreatedAt         time.Time `json:"createdAt"`
}

// ApplicationFilter narrows an application listing. Title matches
// case-insensitively anywhere in the marathon title.
type ApplicationFilter struct {
	Email string
	Title string
}

// ApplicationStore captures persistence of applications.
type ApplicationStore interface {
	ListApplications(ctx context.Context, filter ApplicationFilter) ([]Application, error)
	InsertApplication(ctx context.Context, a Application) (string, error)
}

// ApplicationService orchestrates registrations.
type ApplicationService struct {
	store     ApplicationStore
	marathons MarathonStore
	opts      options
}

// NewApplicationService constructs an ApplicationService.
func NewApplicationService(store ApplicationStore, marathons MarathonStore, opts ...Option) *ApplicationService {
	return &ApplicationService{store: store, marathons: marathons, opts: buildOptions(opts)}
}

// List returns the applications of email, optionally filtered by title.
func (s *ApplicationService) List(ctx context.Context, filter ApplicationFilter) ([]Application, error) {
	if strings.TrimSpace(filter.Email) == "" {
		return nil, NewValidationError("email", "is required")
	}
	out, err := s.store.ListApplications(ctx, filter)
	return out, storeError("list applications", err)
}

// Register stores the application and bumps the marathon's registration
// count. The two writes are independent; there is no transaction. A failed
// increment after the insert is logged and counted, and the registration
// still succeeds.
func (s *ApplicationService) Register(ctx context.Context, a Application) (*Application, error) {
	if strings.TrimSpace(a.Email) == "" {
		return nil, NewValidationError("email", "is required")
	}

	a.ID = ""
	a.RegisterCount = 0
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.opts.now().UTC()
	}

	id, err := s.store.InsertApplication(ctx, a)
	if err != nil {
		return nil, storeError("insert application", err)
	}
	a.ID = id

	if a.MarathonID != "" {
		matched, err := s.marathons.IncrementRegistrationCount(ctx, a.MarathonID)
		switch {
		case err != nil:
			observability.RecordRegistrationCountError()
			logging.Ctx(ctx).Error().Err(err).Str("marathon_id", a.MarathonID).Str("application_id", id).Msg("increment registration count failed")
		case !matched:
			logging.Ctx(ctx).Warn().Str("marathon_id", a.MarathonID).Str("application_id", id).Msg("application references unknown marathon")
		}
	}

	publishEvent(ctx, s.opts.publisher, events.TypeApplicationCreated, a.MarathonID, events.ApplicationCreated{
		ApplicationID: id,
		MarathonID:    a.MarathonID,
		Email:         a.Email,
		CreatedAt:     a.CreatedAt,
	})
	return &a, nil
}
