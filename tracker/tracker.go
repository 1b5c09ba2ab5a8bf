package tracker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/eapayk/quanlitien/store"
)

// Reserved login identifiers that fall back to the seeded demo account when
// no real credentials match.
var demoIdentifiers = map[string]bool{
	"demo": true,
	"test": true,
	"":     true,
}

// DemoUserID is the fixed id of the seeded demo account.
const DemoUserID = "demo123"

const demoPassword = "123456"

// Manager owns the working set of the active session (user, expenses,
// categories, monthly limit) and the process-wide theme. Every mutation is
// flushed to the store before it returns; there is no batching and no
// in-flight state.
type Manager struct {
	store *store.Store

	mu      sync.Mutex
	current *store.User
	theme   store.Theme
}

// New loads the state graph from the store and restores a previously active
// session if its user record still exists. Corrupt or missing records never
// fail startup.
func New(ctx context.Context, st *store.Store) *Manager {
	_, theme := st.LoadAll(ctx)
	if theme.IsZero() {
		theme = store.DefaultTheme()
		if err := st.SaveTheme(ctx, theme); err != nil {
			log.Warn("failed to persist default theme", "error", err)
		}
	}

	m := &Manager{store: st, theme: theme}

	if user, ok := st.LoadSession(ctx); ok {
		m.current = user
		if err := m.ensureCategories(ctx); err != nil {
			log.Warn("failed to seed default categories", "error", err)
		}
		log.Info("restored session", "user", user.Username)
	}

	return m
}

// Authenticated reports whether a session is active.
func (m *Manager) Authenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil
}

// CurrentUser returns a copy of the active user, or false when
// unauthenticated.
func (m *Manager) CurrentUser() (store.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return store.User{}, false
	}
	return *m.current, true
}

// Login scans all users for a matching email or username and password.
// The reserved identifiers "demo", "test" and the empty string fall back to
// the seeded demo account when no credentials match. On success the session
// is established and the user's working set is loaded.
func (m *Manager) Login(ctx context.Context, identifier, password string) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	users, _ := m.store.LoadAll(ctx)

	var found *store.User
	for _, u := range users {
		if u.Email != identifier && u.Username != identifier {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil {
			found = &u
			break
		}
	}

	if found == nil && demoIdentifiers[identifier] {
		demo, err := m.demoUser(users)
		if err != nil {
			return store.User{}, err
		}
		found = demo
	}

	if found == nil {
		return store.User{}, ErrInvalidCredentials
	}

	if err := m.store.SaveUser(ctx, *found, true); err != nil {
		return store.User{}, fmt.Errorf("failed to establish session: %w", err)
	}
	m.current = found

	if err := m.ensureCategoriesLocked(ctx); err != nil {
		return store.User{}, err
	}

	log.Info("user logged in", "user", m.current.Username)
	return *m.current, nil
}

// demoUser returns the existing demo account or builds the seeded one:
// a 5M limit, two expenses dated today and three starter categories.
func (m *Manager) demoUser(users map[string]store.User) (*store.User, error) {
	if existing, ok := users[DemoUserID]; ok {
		return &existing, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash demo password: %w", err)
	}

	today := time.Now().Format("2006-01-02")
	return &store.User{
		ID:           DemoUserID,
		Name:         "Người dùng Demo",
		Email:        "demo@example.com",
		Username:     "demo",
		PasswordHash: string(hash),
		MonthlyLimit: 5_000_000,
		Expenses: []store.Expense{
			{ID: 1, Category: "an_uong", Amount: 150_000, Date: today},
			{ID: 2, Category: "mua_sam", Amount: 300_000, Date: today},
		},
		Categories: []store.Category{
			{ID: "an_uong", Name: "Ăn uống", Icon: "fa-utensils"},
			{ID: "mua_sam", Name: "Mua sắm", Icon: "fa-shopping-cart"},
			{ID: "di_chuyen", Name: "Di chuyển", Icon: "fa-car"},
		},
	}, nil
}

// Register creates a new account and logs it in. The new id is derived from
// the creation timestamp; the starter category pair is attached immediately.
func (m *Manager) Register(ctx context.Context, name, email, username, password, confirm string) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if name == "" || email == "" || username == "" || password == "" {
		return store.User{}, ErrMissingFields
	}
	if password != confirm {
		return store.User{}, ErrPasswordConfirm
	}
	if len(password) < 6 {
		return store.User{}, ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return store.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := store.User{
		ID:           strconv.FormatInt(time.Now().UnixMilli(), 10),
		Name:         name,
		Email:        email,
		Username:     username,
		PasswordHash: string(hash),
		Expenses:     []store.Expense{},
		Categories:   store.RegistrationCategories(),
	}

	if err := m.store.SaveUser(ctx, user, true); err != nil {
		return store.User{}, err
	}
	m.current = &user

	log.Info("user registered", "user", username)
	return user, nil
}

// Logout clears the session pointer and zeroes the working set. The
// persisted per-user record is untouched.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.ClearSession(ctx); err != nil {
		return err
	}
	m.current = nil
	return nil
}

// DeleteAccount removes the active user's record entirely after the current
// password is re-entered. A mismatch mutates nothing.
func (m *Manager) DeleteAccount(ctx context.Context, confirmPassword string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return ErrNotAuthenticated
	}
	if bcrypt.CompareHashAndPassword([]byte(m.current.PasswordHash), []byte(confirmPassword)) != nil {
		return ErrPasswordMismatch
	}

	if err := m.store.DeleteUser(ctx, m.current.ID); err != nil {
		return err
	}

	log.Info("account deleted", "user", m.current.Username)
	m.current = nil
	return nil
}

// requireUser must be called with the mutex held.
func (m *Manager) requireUser() error {
	if m.current == nil {
		return ErrNotAuthenticated
	}
	return nil
}

// save flushes the full active user record. Must be called with the mutex
// held.
func (m *Manager) save(ctx context.Context) error {
	return m.store.SaveUser(ctx, *m.current, true)
}
