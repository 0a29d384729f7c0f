package domain

import (
	"context"
	"strings"
	"time"

	"example.com/marathon/internal/events"
)

// LatestMarathonsLimit is how many marathons the "latest" listing returns.
const LatestMarathonsLimit = 4

// Marathon is an event runners can register for. The registration and
// start dates are kept exactly as the organiser's client sent them.
type Marathon struct {
	ID                    string    `json:"_id"`
	Title                 string    `json:"title"`
	Location              string    `json:"location"`
	RunningDistance       string    `json:"runningDistance"`
	Description           string    `json:"description"`
	Image                 string    `json:"image"`
	StartRegistrationDate string    `json:"startRegistrationDate"`
	EndRegistrationDate   string    `json:"endRegistrationDate"`
	MarathonStartDate     string    `json:"marathonStartDate"`
	Email                 string    `json:"email"`
	RegistrationCount     int       `json:"registrationCount"`
	CreatedAt             time.Time `json:"createdAt"`
}

// MarathonPatch lists the fields an update may set; nil means untouched.
type MarathonPatch struct {
	Title                 *string
	Location              *string
	RunningDistance       *string
	Description           *string
	Image                 *string
	StartRegistrationDate *string
	EndRegistrationDate   *string
	MarathonStartDate     *string
}

// IsEmpty reports whether the patch sets nothing.
func (p MarathonPatch) IsEmpty() bool {
	return p.Title == nil && p.Location == nil && p.RunningDistance == nil && p.Description == nil &&
		p.Image == nil && p.StartRegistrationDate == nil && p.EndRegistrationDate == nil && p.MarathonStartDate == nil
}

// Apply copies the set fields onto m.
func (p MarathonPatch) Apply(m *Marathon) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&m.Title, p.Title)
	set(&m.Location, p.Location)
	set(&m.RunningDistance, p.RunningDistance)
	set(&m.Description, p.Description)
	set(&m.Image, p.Image)
	set(&m.StartRegistrationDate, p.StartRegistrationDate)
	set(&m.EndRegistrationDate, p.EndRegistrationDate)
	set(&m.MarathonStartDate, p.MarathonStartDate)
}

// MarathonFilter narrows a marathon listing. Zero values mean no filter.
type MarathonFilter struct {
	Email string
	Limit int
}

// UpdateResult mirrors a document store's update acknowledgement.
type UpdateResult struct {
	MatchedCount  int64 `json:"matchedCount"`
	ModifiedCount int64 `json:"modifiedCount"`
}

// MarathonStore captures persistence of marathons. GetMarathon returns
// nil, nil when absent; unparseable IDs behave as absent.
type MarathonStore interface {
	ListMarathons(ctx context.Context, filter MarathonFilter) ([]Marathon, error)
	GetMarathon(ctx context.Context, id string) (*Marathon, error)
	InsertMarathon(ctx context.Context, m Marathon) (string, error)
	UpdateMarathon(ctx context.Context, id string, patch MarathonPatch) (UpdateResult, error)
	DeleteMarathon(ctx context.Context, id string) (int64, error)
	IncrementRegistrationCount(ctx context.Context, id string) (bool, error)
}

// MarathonService orchestrates marathon workflows.
type MarathonService struct {
	store MarathonStore
	opts  options
}

// NewMarathonService constructs a MarathonService.
func NewMarathonService(store MarathonStore, opts ...Option) *MarathonService {
	return &MarathonService{store: store, opts: buildOptions(opts)}
}

// List returns every marathon, newest first.
func (s *MarathonService) List(ctx context.Context) ([]Marathon, error) {
	out, err := s.store.ListMarathons(ctx, MarathonFilter{})
	return out, storeError("list marathons", err)
}

// Latest returns the newest few marathons.
func (s *MarathonService) Latest(ctx context.Context) ([]Marathon, error) {
	out, err := s.store.ListMarathons(ctx, MarathonFilter{Limit: LatestMarathonsLimit})
	return out, storeError("list latest marathons", err)
}

// ListByOrganiser returns marathons created by email.
func (s *MarathonService) ListByOrganiser(ctx context.Context, email string) ([]Marathon, error) {
	if strings.TrimSpace(email) == "" {
		return nil, NewValidationError("email", "is required")
	}
	out, err := s.store.ListMarathons(ctx, MarathonFilter{Email: email})
	return out, storeError("list marathons by email", err)
}

// Get fetches by ID.
func (s *MarathonService) Get(ctx context.Context, id string) (*Marathon, error) {
	m, err := s.store.GetMarathon(ctx, id)
	if err != nil {
		return nil, storeError("get marathon", err)
	}
	if m == nil {
		return nil, ErrMarathonNotFound
	}
	return m, nil
}

// Create stores a new marathon with a zero registration count.
func (s *MarathonService) Create(ctx context.Context, m Marathon) (*Marathon, error) {
	if strings.TrimSpace(m.Title) == "" {
		return nil, NewValidationError("title", "is required")
	}
	if strings.TrimSpace(m.Email) == "" {
		return nil, NewValidationError("email", "is required")
	}

	m.ID = ""
	m.RegistrationCount = 0
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.opts.now().UTC()
	}

	id, err := s.store.InsertMarathon(ctx, m)
	if err != nil {
		return nil, storeError("insert marathon", err)
	}
	m.ID = id

	publishEvent(ctx, s.opts.publisher, events.TypeMarathonCreated, id, events.MarathonCreated{
		MarathonID: id,
		Title:      m.Title,
		Email:      m.Email,
		CreatedAt:  m.CreatedAt,
	})
	return &m, nil
}

// Update applies patch to the marathon with id.
func (s *MarathonService) Update(ctx context.Context, id string, patch MarathonPatch) (UpdateResult, error) {
	if patch.IsEmpty() {
		return UpdateResult{}, NewValidationError("", "no updatable fields supplied")
	}
	res, err := s.store.UpdateMarathon(ctx, id, patch)
	if err != nil {
		return UpdateResult{}, storeError("update marathon", err)
	}
	return res, nil
}

// Delete removes the marathon with id and reports how many were removed.
func (s *MarathonService) Delete(ctx context.Context, id string) (int64, error) {
	n, err := s.store.DeleteMarathon(ctx, id)
	if err != nil {
		return 0, storeError("delete marathon", err)
	}
	return n, nil
}
