//go:build !windows

package wasapi

import (
	"errors"
	"fmt"

	"github.com/vmorsell/app-mixer/internal/session"
	"github.com/vmorsell/app-mixer/pkg/model"
)

// ErrUnsupported is returned on platforms without WASAPI.
var ErrUnsupported = errors.New("wasapi is only available on windows")

func (b *Backend) Sessions() ([]model.AudioSession, error) {
	return []model.AudioSession{}, fmt.Errorf("%w: %w", session.ErrConnectUnavailable, ErrUnsupported)
}

func (b *Backend) SetVolume(t session.Target, percent float64) error {
	return fmt.Errorf("%w: %w", session.ErrConnectUnavailable, ErrUnsupported)
}

func (b *Backend) SetMute(t session.Target, muted bool) error {
	return fmt.Errorf("%w: %w", session.ErrConnectUnavailable, ErrUnsupported)
}
