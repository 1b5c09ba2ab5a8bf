package tracker

import (
	"context"

	"github.com/eapayk/quanlitien/store"
)

// Theme returns the current theme record.
func (m *Manager) Theme() store.Theme {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.theme
}

// SelectPaletteColor applies a palette entry to the primary, secondary and
// danger colors. The change is held in memory until SaveTheme.
func (m *Manager) SelectPaletteColor(index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if index < 0 || index >= len(store.ColorPalette) {
		return ErrInvalidPalette
	}

	entry := store.ColorPalette[index]
	m.theme.PrimaryColor = entry.Primary
	m.theme.SecondaryColor = entry.Secondary
	m.theme.DangerColor = entry.Danger
	m.theme.SelectedColorIndex = index
	return nil
}

// SetCardOpacity clamps the value into 0..1.
func (m *Manager) SetCardOpacity(opacity float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if opacity < 0 {
		opacity = 0
	}
	if opacity > 1 {
		opacity = 1
	}
	m.theme.CardOpacity = opacity
}

// SetBackgroundBlur sets the blur radius in pixels, floored at zero.
func (m *Manager) SetBackgroundBlur(pixels int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if pixels < 0 {
		pixels = 0
	}
	m.theme.BackgroundBlur = pixels
}

// SetBackgroundImage stores an embedded image reference for the background.
func (m *Manager) SetBackgroundImage(dataURL string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.theme.BackgroundImage = dataURL
}

// RemoveBackgroundImage reverts the background to none.
func (m *Manager) RemoveBackgroundImage() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.theme.BackgroundImage = "none"
}

// SaveTheme persists the theme record. It is independent of the session and
// survives logout.
func (m *Manager) SaveTheme(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.SaveTheme(ctx, m.theme)
}

// ResetTheme restores and persists the default theme.
func (m *Manager) ResetTheme(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.theme = store.DefaultTheme()
	return m.store.SaveTheme(ctx, m.theme)
}
