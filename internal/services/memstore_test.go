package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"clinic-booking-server/internal/apperr"
	"clinic-booking-server/internal/events"
	"clinic-booking-server/internal/models"
)

// memStore backs the in-memory repositories used by the service tests. A
// single mutex stands in for the row lock taken by the SQL repositories.
type memStore struct {
	mu           sync.Mutex
	clock        time.Time
	users        map[string]*models.User
	sessions     map[string]*models.Session
	appointments map[string]*models.Appointment
	order        []string
	payments     map[string]*models.Payment
}

func newMemStore() *memStore {
	return &memStore{
		clock:        time.Date(2030, 1, 1, 8, 0, 0, 0, time.UTC),
		users:        map[string]*models.User{},
		sessions:     map[string]*models.Session{},
		appointments: map[string]*models.Appointment{},
		payments:     map[string]*models.Payment{},
	}
}

func (s *memStore) stamp(b *models.BaseModel) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	s.clock = s.clock.Add(time.Second)
	b.CreatedAt = s.clock
	b.UpdatedAt = s.clock
}

func visible(a *models.Appointment, scope AppointmentScope) bool {
	return scope.OwnerID == "" || a.UserID == scope.OwnerID
}

// --- users ---

type memUsers struct{ *memStore }

func (r memUsers) CreateWithProfile(_ context.Context, user *models.User, profile *models.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return apperr.New(apperr.KindDuplicateAccount, "an account with this email already exists")
		}
	}
	r.stamp(&user.BaseModel)
	r.stamp(&profile.BaseModel)
	profile.UserID = user.ID
	stored := *user
	p := *profile
	stored.Profile = &p
	r.users[user.ID] = &stored
	return nil
}

func (r memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, apperr.NotFound("user not found")
}

func (r memUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	out := *u
	return &out, nil
}

// --- sessions ---

type memSessions struct{ *memStore }

func (r memSessions) Create(_ context.Context, s *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stamp(&s.BaseModel)
	stored := *s
	r.sessions[s.Token] = &stored
	return nil
}

func (r memSessions) FindActive(_ context.Context, token, userID string, now time.Time) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[token]
	if !ok || s.UserID != userID || !s.Active(now) {
		return nil, apperr.NotFound("session not found")
	}
	out := *s
	return &out, nil
}

func (r memSessions) Rotate(_ context.Context, old, next *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[old.Token]
	if !ok || s.IsRevoked {
		return apperr.NotFound("session not found")
	}
	s.IsRevoked = true
	r.stamp(&next.BaseModel)
	stored := *next
	r.sessions[next.Token] = &stored
	return nil
}

func (r memSessions) Revoke(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[token]
	if !ok || s.IsRevoked {
		return apperr.NotFound("session not found")
	}
	s.IsRevoked = true
	return nil
}

// --- appointments ---

type memAppointments struct{ *memStore }

func (r memAppointments) Create(_ context.Context, a *models.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stamp(&a.BaseModel)
	stored := *a
	r.appointments[a.ID] = &stored
	r.order = append(r.order, a.ID)
	return nil
}

func (r memAppointments) Get(_ context.Context, id string, scope AppointmentScope) (*models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok || !visible(a, scope) {
		return nil, apperr.NotFound("appointment not found")
	}
	out := *a
	return &out, nil
}

func (r memAppointments) List(_ context.Context, scope AppointmentScope, status models.AppointmentStatus) ([]models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Appointment{}
	for _, id := range r.order {
		a, ok := r.appointments[id]
		if !ok || !visible(a, scope) || (status != "" && a.Status != status) {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (r memAppointments) CountByStatus(_ context.Context, scope AppointmentScope) (map[models.AppointmentStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[models.AppointmentStatus]int64{}
	for _, a := range r.appointments {
		if visible(a, scope) {
			counts[a.Status]++
		}
	}
	return counts, nil
}

func (r memAppointments) Update(_ context.Context, id string, scope AppointmentScope, mutate func(*models.Appointment) error) (*models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok || !visible(a, scope) {
		return nil, apperr.NotFound("appointment not found")
	}
	working := *a
	if err := mutate(&working); err != nil {
		return nil, err
	}
	*a = working
	out := working
	return &out, nil
}

func (r memAppointments) Delete(_ context.Context, id string, scope AppointmentScope, guard func(*models.Appointment) error) (*models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok || !visible(a, scope) {
		return nil, apperr.NotFound("appointment not found")
	}
	out := *a
	if err := guard(&out); err != nil {
		return nil, err
	}
	delete(r.appointments, id)
	return &out, nil
}

// --- payments ---

type memPayments struct{ *memStore }

func (r memPayments) Record(_ context.Context, appointmentID string, scope AppointmentScope, build func(*models.Appointment) (*models.Payment, error)) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[appointmentID]
	if !ok || !visible(a, scope) {
		return nil, apperr.NotFound("appointment not found")
	}
	snapshot := *a
	p, err := build(&snapshot)
	if err != nil {
		return nil, err
	}
	if _, exists := r.payments[appointmentID]; exists {
		return nil, apperr.New(apperr.KindAlreadyPaid, "appointment is already paid")
	}
	r.stamp(&p.BaseModel)
	stored := *p
	r.payments[appointmentID] = &stored
	a.IsPaid = true
	a.PaymentMethod = p.Method
	return p, nil
}

func (r memPayments) FindByAppointment(_ context.Context, appointmentID string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[appointmentID]
	if !ok {
		return nil, apperr.NotFound("no payment recorded for this appointment")
	}
	out := *p
	if u, ok := r.users[p.UserID]; ok {
		out.User = *u
	}
	return &out, nil
}

// --- collaborators ---

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, evt events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// fakeTokens issues opaque "kind:userID:nonce" tokens.
type fakeTokens struct{}

func (fakeTokens) IssueAccess(user *models.User) (string, error) {
	return "access:" + user.ID + ":" + uuid.NewString(), nil
}

func (fakeTokens) IssueRefresh(user *models.User) (string, time.Time, error) {
	return "refresh:" + user.ID + ":" + uuid.NewString(), time.Now().Add(time.Hour), nil
}

func (fakeTokens) VerifyRefresh(token string) (string, error) {
	parts := strings.Split(token, ":")
	if len(parts) != 3 || parts[0] != "refresh" {
		return "", errors.New("malformed token")
	}
	return parts[1], nil
}

type memDenylist struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func (d *memDenylist) Revoke(_ context.Context, tokenID string, until time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.revoked == nil {
		d.revoked = map[string]time.Time{}
	}
	d.revoked[tokenID] = until
	return nil
}

func (d *memDenylist) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.revoked[tokenID]
	return ok, nil
}

// fixture wires every service against one memStore.
type fixture struct {
	store        *memStore
	pub          *recordingPublisher
	denylist     *memDenylist
	accounts     *AccountService
	appointments *AppointmentService
	payments     *PaymentService
}

func newFixture() *fixture {
	store := newMemStore()
	pub := &recordingPublisher{}
	denylist := &memDenylist{}
	log := zerolog.Nop()
	now := func() time.Time { return time.Date(2030, 6, 15, 14, 30, 0, 0, time.UTC) }

	accounts := NewAccountService(memUsers{store}, memSessions{store}, fakeTokens{}, denylist, log)
	appointments := NewAppointmentService(memAppointments{store}, pub, log)
	appointments.now = now
	payments := NewPaymentService(memPayments{store}, memAppointments{store}, pub, mustDecimal("50.00"), log)

	return &fixture{
		store:        store,
		pub:          pub,
		denylist:     denylist,
		accounts:     accounts,
		appointments: appointments,
		payments:     payments,
	}
}
