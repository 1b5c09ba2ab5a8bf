package tracker

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/eapayk/quanlitien/store"
)

// UpdatePersonalInfo changes name, username and email of the active user.
// Uniqueness of email and username against other accounts is enforced by the
// store at write time.
func (m *Manager) UpdatePersonalInfo(ctx context.Context, name, username, email string) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireUser(); err != nil {
		return store.User{}, err
	}

	name = strings.TrimSpace(name)
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if name == "" || username == "" || email == "" {
		return store.User{}, ErrMissingFields
	}

	previous := *m.current
	m.current.Name = name
	m.current.Username = username
	m.current.Email = email

	if err := m.save(ctx); err != nil {
		*m.current = previous
		return store.User{}, err
	}
	return *m.current, nil
}

// ChangePassword replaces the password after verifying the current one. The
// new password must be at least 6 characters.
func (m *Manager) ChangePassword(ctx context.Context, current, newPassword string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireUser(); err != nil {
		return err
	}

	if bcrypt.CompareHashAndPassword([]byte(m.current.PasswordHash), []byte(current)) != nil {
		return ErrPasswordMismatch
	}
	if len(newPassword) < 6 {
		return ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	previous := m.current.PasswordHash
	m.current.PasswordHash = string(hash)
	if err := m.save(ctx); err != nil {
		m.current.PasswordHash = previous
		return err
	}
	return nil
}
