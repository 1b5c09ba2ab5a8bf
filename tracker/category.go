package tracker

import (
	"context"
	"regexp"
	"strings"

	"github.com/samber/lo"

	"github.com/eapayk/quanlitien/store"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	invalidRe    = regexp.MustCompile(`[^a-z0-9_]`)
)

// CategoryID derives the deterministic id for a category name: lower-cased,
// whitespace to underscores, everything else outside [a-z0-9_] stripped.
func CategoryID(name string) string {
	id := strings.ToLower(strings.TrimSpace(name))
	id = whitespaceRe.ReplaceAllString(id, "_")
	return invalidRe.ReplaceAllString(id, "")
}

// Categories returns a copy of the active user's category list.
func (m *Manager) Categories() ([]store.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireUser(); err != nil {
		return nil, err
	}
	return append([]store.Category(nil), m.current.Categories...), nil
}

// AddCategory appends a category with the derived id and the given icon.
// Duplicate ids or names are rejected; the icon must come from the fixed
// available set, defaulting to fa-tag when empty.
func (m *Manager) AddCategory(ctx context.Context, name, icon string) (store.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireUser(); err != nil {
		return store.Category{}, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return store.Category{}, ErrMissingFields
	}

	if icon == "" {
		icon = "fa-tag"
	}
	if !lo.Contains(store.AvailableIcons, icon) {
		return store.Category{}, ErrUnknownIcon
	}

	id := CategoryID(name)
	exists := lo.SomeBy(m.current.Categories, func(c store.Category) bool {
		return c.ID == id || c.Name == name
	})
	if exists {
		return store.Category{}, ErrCategoryExists
	}

	category := store.Category{ID: id, Name: name, Icon: icon}
	m.current.Categories = append(m.current.Categories, category)

	if err := m.save(ctx); err != nil {
		return store.Category{}, err
	}
	return category, nil
}

// DeleteCategory removes a category unless any expense still references it.
// The referential check is a linear scan over the expense list, re-run on
// every attempt.
func (m *Manager) DeleteCategory(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireUser(); err != nil {
		return err
	}

	inUse := lo.SomeBy(m.current.Expenses, func(e store.Expense) bool {
		return e.Category == id
	})
	if inUse {
		return ErrCategoryInUse
	}

	before := len(m.current.Categories)
	m.current.Categories = lo.Reject(m.current.Categories, func(c store.Category, _ int) bool {
		return c.ID == id
	})
	if len(m.current.Categories) == before {
		return ErrUnknownCategory
	}

	return m.save(ctx)
}

// ensureCategories seeds the default category set when the active user's
// list is empty, persisting the change.
func (m *Manager) ensureCategories(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ensureCategoriesLocked(ctx)
}

func (m *Manager) ensureCategoriesLocked(ctx context.Context) error {
	if m.current == nil || len(m.current.Categories) > 0 {
		return nil
	}
	m.current.Categories = store.DefaultCategories()
	return m.save(ctx)
}
