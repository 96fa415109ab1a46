package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/pratik-mahalle/alertroute/internal/domain/filter"
	"github.com/pratik-mahalle/alertroute/internal/domain/incident"
	"github.com/pratik-mahalle/alertroute/internal/domain/notification"
	"github.com/pratik-mahalle/alertroute/internal/domain/timeslot"
	"github.com/pratik-mahalle/alertroute/internal/domain/user"
	"github.com/pratik-mahalle/alertroute/internal/pkg/errors"
)

// MockUserRepository is a mock implementation of user.Repository
type MockUserRepository struct {
	mu          sync.Mutex
	Users       map[int64]*user.User
	NextID      int64
	CreateError error
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{Users: make(map[int64]*user.User), NextID: 1}
}

func (m *MockUserRepository) Create(ctx context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateError != nil {
		return m.CreateError
	}
	for _, existing := range m.Users {
		if existing.Email == u.Email {
			return errors.Conflict("User with this email or username already exists")
		}
	}
	u.ID = m.NextID
	m.NextID++
	m.Users[u.ID] = u
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[id]
	if !ok {
		return nil, errors.NotFound("User")
	}
	return u, nil
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.Users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, errors.NotFound("User")
}

func (m *MockUserRepository) UpdateEmail(ctx context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.Users[u.ID]
	if !ok {
		return errors.NotFound("User")
	}
	for id, other := range m.Users {
		if id != u.ID && other.Email == u.Email {
			return errors.Conflict("Another user already has this email")
		}
	}
	updated := *existing
	updated.Email = u.Email
	m.Users[u.ID] = &updated
	return nil
}

// MockTimeslotRepository is a mock implementation of timeslot.Repository
type MockTimeslotRepository struct {
	mu        sync.Mutex
	Timeslots map[int64]*timeslot.Timeslot
	NextID    int64
}

func NewMockTimeslotRepository() *MockTimeslotRepository {
	return &MockTimeslotRepository{Timeslots: make(map[int64]*timeslot.Timeslot), NextID: 1}
}

func (m *MockTimeslotRepository) Create(ctx context.Context, ts *timeslot.Timeslot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.Timeslots {
		if existing.UserID == ts.UserID && existing.Name == ts.Name {
			return errors.Conflict("Timeslot already exists")
		}
	}
	ts.ID = m.NextID
	m.NextID++
	m.Timeslots[ts.ID] = ts
	return nil
}

func (m *MockTimeslotRepository) GetByID(ctx context.Context, userID, id int64) (*timeslot.Timeslot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ts, ok := m.Timeslots[id]
	if !ok || ts.UserID != userID {
		return nil, errors.NotFound("Timeslot")
	}
	return ts, nil
}

func (m *MockTimeslotRepository) ListByUser(ctx context.Context, userID int64) ([]*timeslot.Timeslot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*timeslot.Timeslot
	for _, ts := range m.Timeslots {
		if ts.UserID == userID {
			out = append(out, ts)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockTimeslotRepository) Update(ctx context.Context, ts *timeslot.Timeslot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.Timeslots[ts.ID]
	if !ok || existing.UserID != ts.UserID {
		return errors.NotFound("Timeslot")
	}
	m.Timeslots[ts.ID] = ts
	return nil
}

func (m *MockTimeslotRepository) Delete(ctx context.Context, userID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ts, ok := m.Timeslots[id]
	if !ok || ts.UserID != userID {
		return errors.NotFound("Timeslot")
	}
	delete(m.Timeslots, id)
	return nil
}

func (m *MockTimeslotRepository) GetMany(ctx context.Context, ids []int64) (map[int64]*timeslot.Timeslot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64]*timeslot.Timeslot, len(ids))
	for _, id := range ids {
		if ts, ok := m.Timeslots[id]; ok {
			out[id] = ts
		}
	}
	return out, nil
}

// MockFilterRepository is a mock implementation of filter.Repository
type MockFilterRepository struct {
	mu      sync.Mutex
	Filters map[int64]*filter.Filter
	NextID  int64
}

func NewMockFilterRepository() *MockFilterRepository {
	return &MockFilterRepository{Filters: make(map[int64]*filter.Filter), NextID: 1}
}

func (m *MockFilterRepository) Create(ctx context.Context, f *filter.Filter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.Filters {
		if existing.UserID == f.UserID && existing.Name == f.Name {
			return errors.Conflict("Filter already exists")
		}
	}
	f.ID = m.NextID
	m.NextID++
	m.Filters[f.ID] = f
	return nil
}

func (m *MockFilterRepository) GetByID(ctx context.Context, userID, id int64) (*filter.Filter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.Filters[id]
	if !ok || f.UserID != userID {
		return nil, errors.NotFound("Filter")
	}
	return f, nil
}

func (m *MockFilterRepository) ListByUser(ctx context.Context, userID int64) ([]*filter.Filter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*filter.Filter
	for _, f := range m.Filters {
		if f.UserID == userID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockFilterRepository) Update(ctx context.Context, f *filter.Filter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.Filters[f.ID]
	if !ok || existing.UserID != f.UserID {
		return errors.NotFound("Filter")
	}
	m.Filters[f.ID] = f
	return nil
}

func (m *MockFilterRepository) Delete(ctx context.Context, userID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.Filters[id]
	if !ok || f.UserID != userID {
		return errors.NotFound("Filter")
	}
	delete(m.Filters, id)
	return nil
}

func (m *MockFilterRepository) GetMany(ctx context.Context, ids []int64) (map[int64]*filter.Filter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64]*filter.Filter, len(ids))
	for _, id := range ids {
		if f, ok := m.Filters[id]; ok {
			out[id] = f
		}
	}
	return out, nil
}

// MockDestinationRepository is a mock implementation of notification.DestinationRepository
type MockDestinationRepository struct {
	mu           sync.Mutex
	Destinations map[int64]*notification.Destination
	NextID       int64
}

func NewMockDestinationRepository() *MockDestinationRepository {
	return &MockDestinationRepository{Destinations: make(map[int64]*notification.Destination), NextID: 1}
}

func (m *MockDestinationRepository) Create(ctx context.Context, d *notification.Destination) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.ID = m.NextID
	m.NextID++
	m.Destinations[d.ID] = d
	return nil
}

func (m *MockDestinationRepository) GetByID(ctx context.Context, userID, id int64) (*notification.Destination, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.Destinations[id]
	if !ok || d.UserID != userID {
		return nil, errors.NotFound("Destination")
	}
	return d, nil
}

func (m *MockDestinationRepository) ListByUser(ctx context.Context, userID int64) ([]*notification.Destination, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*notification.Destination
	for _, d := range m.Destinations {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockDestinationRepository) Update(ctx context.Context, d *notification.Destination) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.Destinations[d.ID]
	if !ok || existing.UserID != d.UserID {
		return errors.NotFound("Destination")
	}
	m.Destinations[d.ID] = d
	return nil
}

func (m *MockDestinationRepository) Delete(ctx context.Context, userID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.Destinations[id]
	if !ok || d.UserID != userID {
		return errors.NotFound("Destination")
	}
	delete(m.Destinations, id)
	return nil
}

func (m *MockDestinationRepository) GetMany(ctx context.Context, ids []int64) (map[int64]*notification.Destination, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64]*notification.Destination, len(ids))
	for _, id := range ids {
		if d, ok := m.Destinations[id]; ok {
			out[id] = d
		}
	}
	return out, nil
}

// MockProfileRepository is a mock implementation of notification.ProfileRepository.
// ListActive hydrates profiles from the linked mock repositories.
type MockProfileRepository struct {
	mu           sync.Mutex
	Profiles     map[int64]*notification.Profile
	NextID       int64
	Timeslots    *MockTimeslotRepository
	Filters      *MockFilterRepository
	Destinations *MockDestinationRepository
	ListError    error
	ListCalls    int
}

func NewMockProfileRepository(ts *MockTimeslotRepository, f *MockFilterRepository, d *MockDestinationRepository) *MockProfileRepository {
	return &MockProfileRepository{
		Profiles:     make(map[int64]*notification.Profile),
		NextID:       1,
		Timeslots:    ts,
		Filters:      f,
		Destinations: d,
	}
}

func (m *MockProfileRepository) Create(ctx context.Context, p *notification.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.NextID
	m.NextID++
	m.Profiles[p.ID] = p
	return nil
}

func (m *MockProfileRepository) GetByID(ctx context.Context, userID, id int64) (*notification.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Profiles[id]
	if !ok || p.UserID != userID {
		return nil, errors.NotFound("Notification profile")
	}
	return p, nil
}

func (m *MockProfileRepository) ListByUser(ctx context.Context, userID int64) ([]*notification.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*notification.Profile
	for _, p := range m.Profiles {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockProfileRepository) Update(ctx context.Context, p *notification.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.Profiles[p.ID]
	if !ok || existing.UserID != p.UserID {
		return errors.NotFound("Notification profile")
	}
	m.Profiles[p.ID] = p
	return nil
}

func (m *MockProfileRepository) Delete(ctx context.Context, userID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Profiles[id]
	if !ok || p.UserID != userID {
		return errors.NotFound("Notification profile")
	}
	delete(m.Profiles, id)
	return nil
}

func (m *MockProfileRepository) ListActive(ctx context.Context) ([]*notification.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListCalls++
	if m.ListError != nil {
		return nil, m.ListError
	}

	var out []*notification.Profile
	for _, p := range m.Profiles {
		if !p.Active {
			continue
		}
		h := *p
		h.Timeslot = m.Timeslots.Timeslots[p.TimeslotID]
		h.Filters = nil
		for _, id := range p.FilterIDs {
			if f, ok := m.Filters.Filters[id]; ok {
				h.Filters = append(h.Filters, f)
			}
		}
		h.Destinations = nil
		for _, id := range p.DestinationIDs {
			if d, ok := m.Destinations.Destinations[id]; ok {
				h.Destinations = append(h.Destinations, d)
			}
		}
		out = append(out, &h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockProfileRepository) CountByDestination(ctx context.Context, destinationID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.Profiles {
		for _, id := range p.DestinationIDs {
			if id == destinationID {
				n++
				break
			}
		}
	}
	return n, nil
}

// MockMediaRepository is a mock implementation of notification.MediaRepository
type MockMediaRepository struct {
	mu        sync.Mutex
	Installed map[string]bool
	Calls     []string
}

func NewMockMediaRepository() *MockMediaRepository {
	installed := make(map[string]bool)
	for _, m := range notification.AllMedia {
		installed[string(m)] = true
	}
	return &MockMediaRepository{Installed: installed}
}

func (m *MockMediaRepository) List(ctx context.Context) ([]*notification.Media, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*notification.Media
	for slug, installed := range m.Installed {
		out = append(out, &notification.Media{Slug: slug, Name: slug, Installed: installed})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

func (m *MockMediaRepository) MarkNotInstalled(ctx context.Context, slug string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, slug)
	installed, known := m.Installed[slug]
	m.Installed[slug] = false
	return installed || !known, nil
}

func (m *MockMediaRepository) MarkInstalled(ctx context.Context, slug, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Installed[slug] = true
	return nil
}

// IsInstalled reads the flag under the lock
func (m *MockMediaRepository) IsInstalled(slug string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Installed[slug]
}

// MockDeliveryRepository is a mock implementation of notification.DeliveryRepository
type MockDeliveryRepository struct {
	mu         sync.Mutex
	Deliveries map[string]*notification.Delivery
}

func NewMockDeliveryRepository() *MockDeliveryRepository {
	return &MockDeliveryRepository{Deliveries: make(map[string]*notification.Delivery)}
}

func (m *MockDeliveryRepository) Create(ctx context.Context, d *notification.Delivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	cp := *d
	m.Deliveries[d.ID] = &cp
	return nil
}

func (m *MockDeliveryRepository) Update(ctx context.Context, d *notification.Delivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Deliveries[d.ID]; !ok {
		return errors.NotFound("Delivery")
	}
	cp := *d
	m.Deliveries[d.ID] = &cp
	return nil
}

func (m *MockDeliveryRepository) ListByEvent(ctx context.Context, eventID int64) ([]*notification.Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*notification.Delivery
	for _, d := range m.Deliveries {
		if d.EventID == eventID {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DestinationID < out[j].DestinationID })
	return out, nil
}

func (m *MockDeliveryRepository) ListRetryable(ctx context.Context, maxRetries, limit int) ([]*notification.Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*notification.Delivery
	for _, d := range m.Deliveries {
		if d.Status == notification.DeliveryStatusFailed && d.RetryCount < maxRetries {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MockIncidentRepository is a mock implementation of incident.Repository
type MockIncidentRepository struct {
	mu        sync.Mutex
	Incidents map[int64]*incident.Incident
}

func NewMockIncidentRepository() *MockIncidentRepository {
	return &MockIncidentRepository{Incidents: make(map[int64]*incident.Incident)}
}

func (m *MockIncidentRepository) Upsert(ctx context.Context, i *incident.Incident) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *i
	m.Incidents[i.ID] = &cp
	return nil
}

func (m *MockIncidentRepository) GetByID(ctx context.Context, id int64) (*incident.Incident, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.Incidents[id]
	if !ok {
		return nil, errors.NotFound("Incident")
	}
	return i, nil
}

func (m *MockIncidentRepository) Find(ctx context.Context, p incident.Predicate, limit, offset int) ([]*incident.Incident, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*incident.Incident
	for _, i := range m.Incidents {
		if p.Matches(i) {
			out = append(out, i)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
