package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/mansoorceksport/mentorlink/internal/domain"
)

// memStore is an in-memory Profile Store and Booking Repository.
// Transactions are serialized and roll back by restoring a snapshot.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	users       map[string]domain.Principal
	mentors     map[string]domain.MentorProfile // by user id
	partners    map[string]domain.PartnerProfile
	categories  map[string]domain.ExpertiseCategory
	bookings    map[string]domain.Booking
	assignments map[string]domain.Assignment
	reviews     map[string]domain.Review

	eligibleCalls  int
	failAssignment error
}

type memTxKey struct{}

func newMemStore() *memStore {
	return &memStore{
		users:       map[string]domain.Principal{},
		mentors:     map[string]domain.MentorProfile{},
		partners:    map[string]domain.PartnerProfile{},
		categories:  map[string]domain.ExpertiseCategory{},
		bookings:    map[string]domain.Booking{},
		assignments: map[string]domain.Assignment{},
		reviews:     map[string]domain.Review{},
	}
}

type memSnapshot struct {
	users       map[string]domain.Principal
	mentors     map[string]domain.MentorProfile
	partners    map[string]domain.PartnerProfile
	categories  map[string]domain.ExpertiseCategory
	bookings    map[string]domain.Booking
	assignments map[string]domain.Assignment
	reviews     map[string]domain.Review
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memSnapshot{
		users:       cloneMap(s.users),
		mentors:     cloneMap(s.mentors),
		partners:    cloneMap(s.partners),
		categories:  cloneMap(s.categories),
		bookings:    cloneMap(s.bookings),
		assignments: cloneMap(s.assignments),
		reviews:     cloneMap(s.reviews),
	}
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = snap.users
	s.mentors = snap.mentors
	s.partners = snap.partners
	s.categories = snap.categories
	s.bookings = snap.bookings
	s.assignments = snap.assignments
	s.reviews = snap.reviews
}

func inMemTx(ctx context.Context) bool {
	_, ok := ctx.Value(memTxKey{}).(bool)
	return ok
}

// WithinTx implements domain.Transactor
func (s *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inMemTx(ctx) {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	txCtx, runHooks := domain.WithCommitHooks(context.WithValue(ctx, memTxKey{}, true))
	if err := fn(txCtx); err != nil {
		s.restore(snap)
		return err
	}
	runHooks(ctx)
	return nil
}

// write runs a mutation. Outside a transaction it still waits for running transactions.
func (s *memStore) write(ctx context.Context, fn func() error) error {
	if !inMemTx(ctx) {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

func (s *memStore) read(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

func (s *memStore) Users() *memUsers             { return &memUsers{s} }
func (s *memStore) Mentors() *memMentors         { return &memMentors{s} }
func (s *memStore) Partners() *memPartners       { return &memPartners{s} }
func (s *memStore) Categories() *memCategories   { return &memCategories{s} }
func (s *memStore) Bookings() *memBookings       { return &memBookings{s} }
func (s *memStore) Assignments() *memAssignments { return &memAssignments{s} }
func (s *memStore) Reviews() *memReviews         { return &memReviews{s} }

// ---- principals

type memUsers struct{ s *memStore }

func (r *memUsers) Create(ctx context.Context, p *domain.Principal) error {
	return r.s.write(ctx, func() error {
		for _, u := range r.s.users {
			if u.Email == p.Email || (p.FirebaseUID != "" && u.FirebaseUID == p.FirebaseUID) {
				return domain.ErrAccountExists
			}
		}
		if p.ID == "" {
			p.ID = domain.NewID()
		}
		r.s.users[p.ID] = *p
		return nil
	})
}

func (r *memUsers) find(match func(u domain.Principal) bool) (*domain.Principal, error) {
	var out *domain.Principal
	r.s.read(func() {
		for _, u := range r.s.users {
			if match(u) {
				cp := u
				out = &cp
				return
			}
		}
	})
	if out == nil {
		return nil, domain.ErrNotFound
	}
	return out, nil
}

func (r *memUsers) GetByID(_ context.Context, id string) (*domain.Principal, error) {
	return r.find(func(u domain.Principal) bool { return u.ID == id })
}

func (r *memUsers) GetByFirebaseUID(_ context.Context, uid string) (*domain.Principal, error) {
	return r.find(func(u domain.Principal) bool { return uid != "" && u.FirebaseUID == uid })
}

func (r *memUsers) GetByEmail(_ context.Context, email string) (*domain.Principal, error) {
	return r.find(func(u domain.Principal) bool { return u.Email == email })
}

func (r *memUsers) update(ctx context.Context, id string, fn func(u *domain.Principal) error) error {
	return r.s.write(ctx, func() error {
		u, ok := r.s.users[id]
		if !ok {
			return domain.ErrNotFound
		}
		if err := fn(&u); err != nil {
			return err
		}
		u.UpdatedAt = time.Now()
		r.s.users[id] = u
		return nil
	})
}

func (r *memUsers) UpdateContact(ctx context.Context, id string, c domain.ContactUpdate) error {
	return r.update(ctx, id, func(u *domain.Principal) error {
		if c.DisplayName != nil {
			u.DisplayName = *c.DisplayName
		}
		if c.Phone != nil {
			u.Phone = *c.Phone
		}
		if c.Gender != nil {
			u.Gender = *c.Gender
		}
		if c.TelegramChatID != nil {
			u.TelegramChatID = *c.TelegramChatID
		}
		return nil
	})
}

func (r *memUsers) UpdatePhoto(ctx context.Context, id, url, key string) error {
	return r.update(ctx, id, func(u *domain.Principal) error {
		u.PhotoURL, u.PhotoKey = url, key
		return nil
	})
}

func (r *memUsers) LinkFirebaseUID(ctx context.Context, id, uid string) error {
	return r.update(ctx, id, func(u *domain.Principal) error {
		u.FirebaseUID = uid
		return nil
	})
}

func (r *memUsers) SetApproval(ctx context.Context, id string, from, to domain.ApprovalStatus) error {
	return r.update(ctx, id, func(u *domain.Principal) error {
		if u.ApprovalStatus != from {
			return domain.ErrConflict
		}
		u.ApprovalStatus = to
		return nil
	})
}

func (r *memUsers) SetRole(ctx context.Context, id string, from, to domain.Role) error {
	return r.update(ctx, id, func(u *domain.Principal) error {
		if u.Role != from {
			return domain.ErrConflict
		}
		u.Role = to
		return nil
	})
}

func (r *memUsers) list(match func(u domain.Principal) bool) []*domain.Principal {
	var out []*domain.Principal
	r.s.read(func() {
		for _, u := range r.s.users {
			if match(u) {
				cp := u
				out = append(out, &cp)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (r *memUsers) ListPendingApprovals(context.Context) ([]*domain.Principal, error) {
	return r.list(func(u domain.Principal) bool {
		return u.ApprovalStatus == domain.ApprovalPending && u.Role.RequiresApproval()
	}), nil
}

func (r *memUsers) List(_ context.Context, f domain.PrincipalFilter) ([]*domain.Principal, error) {
	q := strings.ToLower(f.Search)
	return r.list(func(u domain.Principal) bool {
		if f.Role != "" && u.Role != f.Role {
			return false
		}
		return q == "" || strings.Contains(strings.ToLower(u.DisplayName), q) || strings.Contains(strings.ToLower(u.Email), q)
	}), nil
}

func (r *memUsers) CountByRole(context.Context) (map[domain.Role]int, error) {
	counts := map[domain.Role]int{}
	for _, role := range domain.AllRoles {
		counts[role] = 0
	}
	r.s.read(func() {
		for _, u := range r.s.users {
			counts[u.Role]++
		}
	})
	return counts, nil
}

func (r *memUsers) RecordLogin(ctx context.Context, id string, at time.Time) error {
	return r.update(ctx, id, func(u *domain.Principal) error {
		u.LastLoginAt = &at
		return nil
	})
}

// ---- mentor profiles

type memMentors struct{ s *memStore }

func (r *memMentors) Create(ctx context.Context, m *domain.MentorProfile) error {
	return r.s.write(ctx, func() error {
		if _, ok := r.s.mentors[m.UserID]; ok {
			return domain.ErrAccountExists
		}
		if m.ID == "" {
			m.ID = domain.NewID()
		}
		cp := *m
		cp.ExpertiseCategoryIDs = append([]string(nil), m.ExpertiseCategoryIDs...)
		r.s.mentors[m.UserID] = cp
		return nil
	})
}

func (r *memMentors) GetByUserID(_ context.Context, userID string) (*domain.MentorProfile, error) {
	var out *domain.MentorProfile
	r.s.read(func() {
		if m, ok := r.s.mentors[userID]; ok {
			cp := m
			cp.ExpertiseCategoryIDs = append([]string(nil), m.ExpertiseCategoryIDs...)
			out = &cp
		}
	})
	if out == nil {
		return nil, domain.ErrNotFound
	}
	return out, nil
}

func (r *memMentors) mutate(ctx context.Context, userID string, fn func(m *domain.MentorProfile)) error {
	return r.s.write(ctx, func() error {
		m, ok := r.s.mentors[userID]
		if !ok {
			return domain.ErrNotFound
		}
		fn(&m)
		r.s.mentors[userID] = m
		return nil
	})
}

func (r *memMentors) Update(ctx context.Context, m *domain.MentorProfile) error {
	return r.mutate(ctx, m.UserID, func(cur *domain.MentorProfile) {
		cur.Bio = m.Bio
		cur.YearsExperience = m.YearsExperience
		cur.Company = m.Company
		cur.JobTitle = m.JobTitle
		cur.LinkedInURL = m.LinkedInURL
		cur.ExpertiseCategoryIDs = append([]string(nil), m.ExpertiseCategoryIDs...)
		cur.IsActive = m.IsActive
	})
}

func (r *memMentors) ListEligible(_ context.Context, categoryIDs []string) (map[string][]domain.EligibleMentor, error) {
	out := make(map[string][]domain.EligibleMentor, len(categoryIDs))
	r.s.read(func() {
		r.s.eligibleCalls++
		for _, id := range categoryIDs {
			out[id] = []domain.EligibleMentor{}
		}
		for _, m := range r.s.mentors {
			u, ok := r.s.users[m.UserID]
			if !ok || u.Role != domain.RoleMentor || !u.IsApproved() || !m.IsActive {
				continue
			}
			for _, id := range categoryIDs {
				if m.HasExpertise(id) {
					out[id] = append(out[id], domain.EligibleMentor{
						MentorID:             u.ID,
						ProfileID:            m.ID,
						DisplayName:          u.DisplayName,
						Email:                u.Email,
						ExpertiseCategoryIDs: m.ExpertiseCategoryIDs,
						Rating:               m.AverageRating(),
						TotalSessions:        m.TotalSessions,
					})
				}
			}
		}
	})
	for id := range out {
		list := out[id]
		sort.Slice(list, func(i, j int) bool { return list[i].MentorID < list[j].MentorID })
	}
	return out, nil
}

func (r *memMentors) IncrementSessions(ctx context.Context, userID string) error {
	return r.mutate(ctx, userID, func(m *domain.MentorProfile) { m.TotalSessions++ })
}

func (r *memMentors) AddRating(ctx context.Context, userID string, rating int) error {
	return r.mutate(ctx, userID, func(m *domain.MentorProfile) {
		m.RatingTotal += rating
		m.RatingCount++
	})
}

func (r *memMentors) SetRatingAggregate(ctx context.Context, userID string, agg domain.RatingAggregate) error {
	return r.mutate(ctx, userID, func(m *domain.MentorProfile) {
		m.RatingTotal, m.RatingCount = agg.Total, agg.Count
	})
}

// ---- partner profiles

type memPartners struct{ s *memStore }

func (r *memPartners) Create(ctx context.Context, p *domain.PartnerProfile) error {
	return r.s.write(ctx, func() error {
		if _, ok := r.s.partners[p.UserID]; ok {
			return domain.ErrAccountExists
		}
		if p.ID == "" {
			p.ID = domain.NewID()
		}
		r.s.partners[p.UserID] = *p
		return nil
	})
}

func (r *memPartners) GetByUserID(_ context.Context, userID string) (*domain.PartnerProfile, error) {
	var out *domain.PartnerProfile
	r.s.read(func() {
		if p, ok := r.s.partners[userID]; ok {
			out = &p
		}
	})
	if out == nil {
		return nil, domain.ErrNotFound
	}
	return out, nil
}

func (r *memPartners) Update(ctx context.Context, p *domain.PartnerProfile) error {
	return r.s.write(ctx, func() error {
		if _, ok := r.s.partners[p.UserID]; !ok {
			return domain.ErrNotFound
		}
		r.s.partners[p.UserID] = *p
		return nil
	})
}

// ---- categories

type memCategories struct{ s *memStore }

func (r *memCategories) Create(ctx context.Context, c *domain.ExpertiseCategory) error {
	return r.s.write(ctx, func() error {
		for _, existing := range r.s.categories {
			if existing.Name == c.Name {
				return domain.ErrDuplicateCategory
			}
		}
		if c.ID == "" {
			c.ID = domain.NewID()
		}
		r.s.categories[c.ID] = *c
		return nil
	})
}

func (r *memCategories) GetByID(_ context.Context, id string) (*domain.ExpertiseCategory, error) {
	var out *domain.ExpertiseCategory
	r.s.read(func() {
		if c, ok := r.s.categories[id]; ok {
			out = &c
		}
	})
	if out == nil {
		return nil, domain.ErrNotFound
	}
	return out, nil
}

func (r *memCategories) List(context.Context) ([]*domain.ExpertiseCategory, error) {
	var out []*domain.ExpertiseCategory
	r.s.read(func() {
		for _, c := range r.s.categories {
			cp := c
			out = append(out, &cp)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ---- bookings

type memBookings struct{ s *memStore }

func copyBooking(b domain.Booking) *domain.Booking {
	if b.MentorID != nil {
		id := *b.MentorID
		b.MentorID = &id
	}
	if b.AssignedBy != nil {
		id := *b.AssignedBy
		b.AssignedBy = &id
	}
	return &b
}

func (r *memBookings) Create(ctx context.Context, b *domain.Booking) error {
	return r.s.write(ctx, func() error {
		if b.ID == "" {
			b.ID = domain.NewID()
		}
		r.s.bookings[b.ID] = *copyBooking(*b)
		return nil
	})
}

func (r *memBookings) GetByID(_ context.Context, id string) (*domain.Booking, error) {
	var out *domain.Booking
	r.s.read(func() {
		if b, ok := r.s.bookings[id]; ok {
			out = copyBooking(b)
		}
	})
	if out == nil {
		return nil, domain.ErrNotFound
	}
	return out, nil
}

func (r *memBookings) filter(match func(b domain.Booking) bool) []*domain.Booking {
	var out []*domain.Booking
	r.s.read(func() {
		for _, b := range r.s.bookings {
			if match(b) {
				out = append(out, copyBooking(b))
			}
		}
	})
	return out
}

func (r *memBookings) ListByRequester(_ context.Context, requesterID string) ([]*domain.Booking, error) {
	out := r.filter(func(b domain.Booking) bool { return b.RequesterID == requesterID })
	sort.Slice(out, func(i, j int) bool {
		if out[i].PreferredDate != out[j].PreferredDate {
			return out[i].PreferredDate < out[j].PreferredDate
		}
		return out[i].PreferredTime < out[j].PreferredTime
	})
	return out, nil
}

func (r *memBookings) ListByStatus(_ context.Context, status domain.BookingStatus) ([]*domain.Booking, error) {
	out := r.filter(func(b domain.Booking) bool { return b.Status == status })
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *memBookings) ListByIDs(_ context.Context, ids []string) ([]*domain.Booking, error) {
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	return r.filter(func(b domain.Booking) bool { return want[b.ID] }), nil
}

func (r *memBookings) ListAll(context.Context) ([]*domain.Booking, error) {
	return r.filter(func(domain.Booking) bool { return true }), nil
}

func (r *memBookings) Transition(ctx context.Context, t domain.BookingTransition) error {
	return r.s.write(ctx, func() error {
		b, ok := r.s.bookings[t.BookingID]
		if !ok {
			return domain.ErrNotFound
		}
		if b.Status != t.From {
			return domain.ErrConflict
		}
		if t.ExpectMentorID != "" && (b.MentorID == nil || *b.MentorID != t.ExpectMentorID) {
			return domain.ErrConflict
		}
		b.Status = t.To
		switch {
		case t.To == domain.BookingAssignedPendingMentor:
			mentor, by := t.SetMentorID, t.AssignedBy
			b.MentorID, b.AssignedBy = &mentor, &by
		case !t.To.HoldsMentor():
			b.MentorID, b.AssignedBy = nil, nil
		}
		b.UpdatedAt = t.At
		r.s.bookings[b.ID] = b
		return nil
	})
}

// ---- assignments

type memAssignments struct{ s *memStore }

func (r *memAssignments) Create(ctx context.Context, a *domain.Assignment) error {
	return r.s.write(ctx, func() error {
		if r.s.failAssignment != nil {
			return r.s.failAssignment
		}
		for _, existing := range r.s.assignments {
			if existing.BookingID == a.BookingID && existing.IsPending() {
				return domain.ErrAssignmentInFlight
			}
		}
		if a.ID == "" {
			a.ID = domain.NewID()
		}
		r.s.assignments[a.ID] = *a
		return nil
	})
}

func (r *memAssignments) GetByID(_ context.Context, id string) (*domain.Assignment, error) {
	var out *domain.Assignment
	r.s.read(func() {
		if a, ok := r.s.assignments[id]; ok {
			out = &a
		}
	})
	if out == nil {
		return nil, domain.ErrNotFound
	}
	return out, nil
}

func (r *memAssignments) filter(match func(a domain.Assignment) bool) []*domain.Assignment {
	var out []*domain.Assignment
	r.s.read(func() {
		for _, a := range r.s.assignments {
			if match(a) {
				cp := a
				out = append(out, &cp)
			}
		}
	})
	return out
}

func (r *memAssignments) ListPendingByMentor(_ context.Context, mentorID string) ([]*domain.Assignment, error) {
	out := r.filter(func(a domain.Assignment) bool { return a.MentorID == mentorID && a.IsPending() })
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *memAssignments) ListByBooking(_ context.Context, bookingID string) ([]*domain.Assignment, error) {
	out := r.filter(func(a domain.Assignment) bool { return a.BookingID == bookingID })
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memAssignments) Respond(ctx context.Context, id, mentorID string, response domain.AssignmentResponse, at time.Time) error {
	return r.s.write(ctx, func() error {
		a, ok := r.s.assignments[id]
		if !ok || a.MentorID != mentorID {
			return domain.ErrNotFound
		}
		if !a.IsPending() {
			return domain.ErrAlreadyResponded
		}
		a.MentorResponse = response
		a.RespondedAt = &at
		r.s.assignments[id] = a
		return nil
	})
}

// ---- reviews

type memReviews struct{ s *memStore }

func (r *memReviews) Create(ctx context.Context, rv *domain.Review) error {
	return r.s.write(ctx, func() error {
		for _, existing := range r.s.reviews {
			if existing.BookingID == rv.BookingID && existing.MenteeID == rv.MenteeID {
				return domain.ErrAlreadyReviewed
			}
		}
		if rv.ID == "" {
			rv.ID = domain.NewID()
		}
		r.s.reviews[rv.ID] = *rv
		return nil
	})
}

func (r *memReviews) list(match func(rv domain.Review) bool) []*domain.Review {
	var out []*domain.Review
	r.s.read(func() {
		for _, rv := range r.s.reviews {
			if match(rv) {
				cp := rv
				out = append(out, &cp)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (r *memReviews) ListByMentor(_ context.Context, mentorID string) ([]*domain.Review, error) {
	return r.list(func(rv domain.Review) bool { return rv.MentorID == mentorID }), nil
}

func (r *memReviews) ListByMentee(_ context.Context, menteeID string) ([]*domain.Review, error) {
	return r.list(func(rv domain.Review) bool { return rv.MenteeID == menteeID }), nil
}

func (r *memReviews) AggregateByMentor(context.Context) (map[string]domain.RatingAggregate, error) {
	out := map[string]domain.RatingAggregate{}
	r.s.read(func() {
		for _, rv := range r.s.reviews {
			agg := out[rv.MentorID]
			agg.Total += rv.Rating
			agg.Count++
			out[rv.MentorID] = agg
		}
	})
	return out, nil
}

// ---- collaborators

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) types() []domain.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type memBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{objects: map[string][]byte{}}
}

func (b *memBlobStore) Upload(_ context.Context, data []byte, key, _ string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return "", b.err
	}
	b.objects[key] = data
	return "https://blobs.test/profile-photos/" + key, nil
}

func (b *memBlobStore) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	return nil
}

type memSessions struct {
	mu      sync.Mutex
	refresh map[string]domain.RefreshToken
	denied  map[string]time.Time
}

func newMemSessions() *memSessions {
	return &memSessions{refresh: map[string]domain.RefreshToken{}, denied: map[string]time.Time{}}
}

func (m *memSessions) SaveRefreshToken(_ context.Context, t *domain.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refresh[t.TokenHash] = *t
	return nil
}

func (m *memSessions) FindRefreshToken(_ context.Context, hash string) (*domain.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.refresh[hash]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (m *memSessions) RevokeRefreshToken(_ context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.refresh, hash)
	return nil
}

func (m *memSessions) RevokeAllRefreshTokens(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for hash, t := range m.refresh {
		if t.UserID == userID {
			delete(m.refresh, hash)
		}
	}
	return nil
}

func (m *memSessions) DenyAccessToken(_ context.Context, id string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.denied[id] = until
	return nil
}

func (m *memSessions) IsAccessTokenDenied(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.denied[id]
	return ok, nil
}

func (m *memSessions) count(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.refresh {
		if t.UserID == userID {
			n++
		}
	}
	return n
}

type fakeAuthClient struct {
	tokens map[string]*auth.Token
}

func newFakeAuthClient() *fakeAuthClient {
	return &fakeAuthClient{tokens: map[string]*auth.Token{}}
}

func (f *fakeAuthClient) add(idToken, uid, email, name string) {
	f.tokens[idToken] = &auth.Token{UID: uid, Claims: map[string]interface{}{"email": email, "name": name}}
}

func (f *fakeAuthClient) VerifyIDToken(_ context.Context, idToken string) (*auth.Token, error) {
	t, ok := f.tokens[idToken]
	if !ok {
		return nil, errors.New("token not recognised")
	}
	return t, nil
}
