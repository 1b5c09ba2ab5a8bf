package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Validation and concurrency errors surfaced by the store.
var (
	ErrDuplicateEmail    = errors.New("email is already in use by another account")
	ErrDuplicateUsername = errors.New("username is already taken")
	ErrVersionConflict   = errors.New("record was modified concurrently")
)

// casRetries bounds how often a compare-and-swap write is retried before the
// conflict is reported to the caller.
const casRetries = 5

// Record is a single durable key-value entry. Value holds a JSON document,
// Version increments on every successful write and guards compare-and-swap
// updates.
type Record struct {
	Key     string `gorm:"primaryKey"`
	Value   []byte
	Version int64
}

// Store is the durable key-value store holding all application state.
type Store struct {
	db *gorm.DB
}

// New opens the store at path and migrates the schema. Use ":memory:" for an
// ephemeral store in tests.
func New(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Discard,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("failed to migrate store: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

// readRecord returns the raw value and version for key. A missing key yields
// a nil value and version 0 without an error.
func (s *Store) readRecord(ctx context.Context, key string) ([]byte, int64, error) {
	var rec Record
	err := s.db.WithContext(ctx).First(&rec, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read record %q: %w", key, err)
	}
	return rec.Value, rec.Version, nil
}

// writeRecord persists value under key if the record still carries the given
// version. Version 0 means the record must not exist yet.
func (s *Store) writeRecord(ctx context.Context, key string, value any, version int64) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode record %q: %w", key, err)
	}

	if version == 0 {
		rec := Record{Key: key, Value: data, Version: 1}
		if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrVersionConflict
			}
			return fmt.Errorf("failed to create record %q: %w", key, err)
		}
		return nil
	}

	res := s.db.WithContext(ctx).
		Model(&Record{}).
		Where("key = ? AND version = ?", key, version).
		Updates(map[string]any{"value": data, "version": version + 1})
	if res.Error != nil {
		return fmt.Errorf("failed to update record %q: %w", key, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

// putRecord persists value under key unconditionally (last writer wins).
func (s *Store) putRecord(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode record %q: %w", key, err)
	}

	rec := Record{Key: key, Value: data, Version: 1}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]any{
			"value":   data,
			"version": gorm.Expr("version + 1"),
		}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("failed to write record %q: %w", key, err)
	}
	return nil
}

// deleteRecord removes key. Deleting a missing key is not an error.
func (s *Store) deleteRecord(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Delete(&Record{}, "key = ?", key).Error; err != nil {
		return fmt.Errorf("failed to delete record %q: %w", key, err)
	}
	return nil
}

// loadUsers reads the user map together with its record version. A missing
// or corrupt record degrades to an empty map; the version stays accurate so
// a subsequent write still races correctly.
func (s *Store) loadUsers(ctx context.Context) (map[string]User, int64, error) {
	data, version, err := s.readRecord(ctx, KeyUsers)
	if err != nil {
		return nil, 0, err
	}

	users := make(map[string]User)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &users); err != nil {
			log.Warn("corrupt user record, starting from empty state", "error", err)
			users = make(map[string]User)
		}
	}
	return users, version, nil
}

// LoadAll deserializes the two root records. Missing or corrupt entries
// degrade silently to empty state; startup never fails on bad data.
func (s *Store) LoadAll(ctx context.Context) (map[string]User, Theme) {
	users, _, err := s.loadUsers(ctx)
	if err != nil {
		log.Warn("failed to load users, starting from empty state", "error", err)
		users = make(map[string]User)
	}

	var theme Theme
	data, _, err := s.readRecord(ctx, KeyTheme)
	if err != nil {
		log.Warn("failed to load theme", "error", err)
	} else if len(data) > 0 {
		if err := json.Unmarshal(data, &theme); err != nil {
			log.Warn("corrupt theme record, falling back to defaults", "error", err)
			theme = Theme{}
		}
	}

	return users, theme
}

// LoadSession reads the active session pointer. The session is only valid if
// the referenced user still exists in the user map; the returned user is the
// authoritative copy from the map, not the mirrored pointer.
func (s *Store) LoadSession(ctx context.Context) (*User, bool) {
	data, _, err := s.readRecord(ctx, KeyCurrentUser)
	if err != nil || len(data) == 0 {
		return nil, false
	}

	var pointer User
	if err := json.Unmarshal(data, &pointer); err != nil {
		log.Warn("corrupt session record, treating as logged out", "error", err)
		return nil, false
	}

	users, _, err := s.loadUsers(ctx)
	if err != nil {
		return nil, false
	}
	user, ok := users[pointer.ID]
	if !ok {
		return nil, false
	}
	return &user, true
}

// SaveUser writes the user into the user map and, if it belongs to the
// active session, mirrors it into the session record. Email and username
// uniqueness is checked against the snapshot read inside the same
// compare-and-swap attempt, so two concurrent writers cannot both slip a
// duplicate past the check.
func (s *Store) SaveUser(ctx context.Context, user User, active bool) error {
	for attempt := 0; attempt < casRetries; attempt++ {
		users, version, err := s.loadUsers(ctx)
		if err != nil {
			return err
		}

		for id, other := range users {
			if id == user.ID {
				continue
			}
			if other.Email == user.Email {
				return ErrDuplicateEmail
			}
			if other.Username == user.Username {
				return ErrDuplicateUsername
			}
		}

		users[user.ID] = user
		err = s.writeRecord(ctx, KeyUsers, users, version)
		if errors.Is(err, ErrVersionConflict) {
			continue
		}
		if err != nil {
			return err
		}

		if active {
			return s.putRecord(ctx, KeyCurrentUser, user)
		}
		return nil
	}
	return ErrVersionConflict
}

// DeleteUser removes the user record entirely and clears the session pointer
// if it references the same user.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	for attempt := 0; attempt < casRetries; attempt++ {
		users, version, err := s.loadUsers(ctx)
		if err != nil {
			return err
		}

		delete(users, id)
		err = s.writeRecord(ctx, KeyUsers, users, version)
		if errors.Is(err, ErrVersionConflict) {
			continue
		}
		if err != nil {
			return err
		}

		data, _, err := s.readRecord(ctx, KeyCurrentUser)
		if err == nil && len(data) > 0 {
			var pointer User
			if json.Unmarshal(data, &pointer) == nil && pointer.ID == id {
				return s.deleteRecord(ctx, KeyCurrentUser)
			}
		}
		return nil
	}
	return ErrVersionConflict
}

// ClearSession drops the session pointer without touching the per-user
// record.
func (s *Store) ClearSession(ctx context.Context) error {
	return s.deleteRecord(ctx, KeyCurrentUser)
}

// SaveTheme persists the singleton theme record, independent of any session.
func (s *Store) SaveTheme(ctx context.Context, theme Theme) error {
	return s.putRecord(ctx, KeyTheme, theme)
}

// CacheNames returns the registered asset cache names. Missing or corrupt
// registry data degrades to an empty list.
func (s *Store) CacheNames(ctx context.Context) []string {
	data, _, err := s.readRecord(ctx, KeyAssetCaches)
	if err != nil || len(data) == 0 {
		return nil
	}

	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		log.Warn("corrupt asset cache registry", "error", err)
		return nil
	}
	return names
}

// SaveCacheNames replaces the asset cache name registry.
func (s *Store) SaveCacheNames(ctx context.Context, names []string) error {
	return s.putRecord(ctx, KeyAssetCaches, names)
}

// Reset drops all root records. Used by the reset command.
func (s *Store) Reset(ctx context.Context) error {
	for _, key := range []string{KeyUsers, KeyCurrentUser, KeyTheme, KeyAssetCaches} {
		if err := s.deleteRecord(ctx, key); err != nil {
			return err
		}
	}
	return nil
}
