package tracker

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/disintegration/imaging"
)

const (
	maxAvatarBytes  = 5 << 20 // upload limit before decoding
	avatarMaxWidth  = 400
	avatarMaxHeight = 400
	avatarQuality   = 80
)

// UpdateAvatar reads an image, scales it down to fit 400x400 and stores it
// on the active user as a JPEG data URL. Oversized uploads and non-image
// data are rejected before any state changes.
func (m *Manager) UpdateAvatar(ctx context.Context, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxAvatarBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) > maxAvatarBytes {
		return "", ErrImageTooLarge
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return "", ErrInvalidImage
	}

	img = imaging.Fit(img, avatarMaxWidth, avatarMaxHeight, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(avatarQuality)); err != nil {
		return "", fmt.Errorf("failed to encode avatar: %w", err)
	}

	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireUser(); err != nil {
		return "", err
	}

	previous := m.current.Avatar
	m.current.Avatar = dataURL
	if err := m.save(ctx); err != nil {
		m.current.Avatar = previous
		return "", err
	}
	return dataURL, nil
}

// RemoveAvatar clears the profile picture.
func (m *Manager) RemoveAvatar(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireUser(); err != nil {
		return err
	}

	previous := m.current.Avatar
	m.current.Avatar = ""
	if err := m.save(ctx); err != nil {
		m.current.Avatar = previous
		return err
	}
	return nil
}
