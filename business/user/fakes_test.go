package user

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"storefront/domain"
)

// store backs the fake repositories. The fake transactor snapshots it and
// restores the snapshot when the unit fails, which is what a database
// rollback looks like to the service.
type store struct {
	mu             sync.Mutex
	users          map[uint]domain.User
	customers      map[uint]domain.Customer
	nextUserID     uint
	nextCustomerID uint
}

func newStore() *store {
	return &store{
		users:     map[uint]domain.User{},
		customers: map[uint]domain.Customer{},
	}
}

type snapshot struct {
	users          map[uint]domain.User
	customers      map[uint]domain.Customer
	nextUserID     uint
	nextCustomerID uint
}

func (s *store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := snapshot{
		users:          make(map[uint]domain.User, len(s.users)),
		customers:      make(map[uint]domain.Customer, len(s.customers)),
		nextUserID:     s.nextUserID,
		nextCustomerID: s.nextCustomerID,
	}
	for k, v := range s.users {
		snap.users[k] = v
	}
	for k, v := range s.customers {
		snap.customers[k] = v
	}
	return snap
}

func (s *store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users = snap.users
	s.customers = snap.customers
	s.nextUserID = snap.nextUserID
	s.nextCustomerID = snap.nextCustomerID
}

// fakeTransactor rolls the store back when fn fails. commitErr fails the
// commit after fn succeeded. afterRollback runs once after the first
// rollback and stands in for another unit committing meanwhile.
type fakeTransactor struct {
	txMu          sync.Mutex
	store         *store
	commitErr     error
	afterRollback func()
}

func (t *fakeTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.txMu.Lock()
	defer t.txMu.Unlock()

	snap := t.store.snapshot()
	err := fn(ctx)
	if err == nil {
		err = t.commitErr
	}
	if err != nil {
		t.store.restore(snap)
		if t.afterRollback != nil {
			t.afterRollback()
			t.afterRollback = nil
		}
		return err
	}
	return nil
}

type fakeUserRepo struct {
	store         *store
	createErrOnce error
}

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if err := r.createErrOnce; err != nil {
		r.createErrOnce = nil
		return err
	}

	for _, u := range r.store.users {
		if u.Email == user.Email {
			return domain.ErrDuplicateEmail
		}
	}

	r.store.nextUserID++
	user.ID = r.store.nextUserID
	user.CreatedAt = time.Now()
	stored := *user
	stored.Customer = nil
	r.store.users[user.ID] = stored
	return nil
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id uint) (domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	u, ok := r.store.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	for _, c := range r.store.customers {
		if c.UserID == id {
			c := c
			u.Customer = &c
		}
	}
	return u, nil
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, u := range r.store.users {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (r *fakeUserRepo) FindByVerificationToken(ctx context.Context, token string) (domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, u := range r.store.users {
		if u.VerificationToken != nil && *u.VerificationToken == token {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (r *fakeUserRepo) FindAll(ctx context.Context) ([]domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	users := make([]domain.User, 0, len(r.store.users))
	for id := uint(1); id <= r.store.nextUserID; id++ {
		if u, ok := r.store.users[id]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user *domain.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	existing, ok := r.store.users[user.ID]
	if !ok {
		return domain.ErrUserNotFound
	}
	existing.Username = user.Username
	existing.Password = user.Password
	existing.Role = user.Role
	existing.IsVerified = user.IsVerified
	existing.GoogleID = user.GoogleID
	r.store.users[user.ID] = existing
	return nil
}

func (r *fakeUserRepo) SetVerificationToken(ctx context.Context, id uint, token string, expiresAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	u, ok := r.store.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.VerificationToken = &token
	u.VerificationExpiresAt = &expiresAt
	r.store.users[id] = u
	return nil
}

func (r *fakeUserRepo) MarkVerified(ctx context.Context, id uint, token string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	u, ok := r.store.users[id]
	if !ok || u.VerificationToken == nil || *u.VerificationToken != token {
		return domain.ErrInvalidToken
	}
	u.IsVerified = true
	u.VerificationToken = nil
	u.VerificationExpiresAt = nil
	r.store.users[id] = u
	return nil
}

// expire moves the verification deadline of the user into the past.
func (r *fakeUserRepo) expire(id uint) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	u := r.store.users[id]
	past := time.Now().Add(-time.Minute)
	u.VerificationExpiresAt = &past
	r.store.users[id] = u
}

func (r *fakeUserRepo) tokenOf(id uint) string {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if t := r.store.users[id].VerificationToken; t != nil {
		return *t
	}
	return ""
}

type fakeCustomerRepo struct {
	store     *store
	createErr error
}

func (r *fakeCustomerRepo) Create(ctx context.Context, customer *domain.Customer) error {
	if r.createErr != nil {
		return r.createErr
	}
	if err := customer.Validate(); err != nil {
		return err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, c := range r.store.customers {
		if c.UserID == customer.UserID {
			return errors.New("duplicate customer for user")
		}
	}

	r.store.nextCustomerID++
	customer.ID = r.store.nextCustomerID
	r.store.customers[customer.ID] = *customer
	return nil
}

func (r *fakeCustomerRepo) FindByID(ctx context.Context, id uint) (domain.Customer, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	c, ok := r.store.customers[id]
	if !ok {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}
	if u, ok := r.store.users[c.UserID]; ok {
		c.User = &u
	}
	return c, nil
}

func (r *fakeCustomerRepo) FindByUserID(ctx context.Context, userID uint) (domain.Customer, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, c := range r.store.customers {
		if c.UserID == userID {
			return c, nil
		}
	}
	return domain.Customer{}, domain.ErrCustomerNotFound
}

func (r *fakeCustomerRepo) Update(ctx context.Context, customer *domain.Customer) error {
	if err := customer.Validate(); err != nil {
		return err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.customers[customer.ID]; !ok {
		return domain.ErrCustomerNotFound
	}
	stored := *customer
	stored.User = nil
	r.store.customers[customer.ID] = stored
	return nil
}

func (r *fakeCustomerRepo) SetPushToken(ctx context.Context, id uint, token *string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	c, ok := r.store.customers[id]
	if !ok {
		return domain.ErrCustomerNotFound
	}
	c.PushToken = token
	r.store.customers[id] = c
	return nil
}

type sentEmail struct {
	toName, toEmail, subject, body string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (m *fakeMailer) SendEmail(ctx context.Context, toName, toEmail, subject, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sent = append(m.sent, sentEmail{toName, toEmail, subject, htmlBody})
	return m.err
}

type fakeImages struct {
	mu       sync.Mutex
	uploaded []string
	deleted  []string
	err      error
}

func (f *fakeImages) Upload(ctx context.Context, filename string, data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	url := "https://cdn.example.com/" + strings.ToLower(filename)
	f.uploaded = append(f.uploaded, url)
	return url, nil
}

func (f *fakeImages) Delete(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deleted = append(f.deleted, url)
	return nil
}

type fakeSessions struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
	err      error
}

func (f *fakeSessions) StoreToken(ctx context.Context, token string, data domain.Session, ttl time.Duration) error {
	if f.err != nil {
		return f.err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sessions == nil {
		f.sessions = map[string]domain.Session{}
	}
	f.sessions[token] = data
	return nil
}

func (f *fakeSessions) DeleteToken(ctx context.Context, userID, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.sessions, token)
	return nil
}

func (f *fakeSessions) DeleteAllTokens(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for token, s := range f.sessions {
		if s.UserID == userID {
			delete(f.sessions, token)
		}
	}
	return nil
}

func (f *fakeSessions) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.sessions)
}
