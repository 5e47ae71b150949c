//go:build !linux && !windows

package volume

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/vmorsell/app-mixer/internal/session"
	"github.com/vmorsell/app-mixer/pkg/model"
	"go.uber.org/zap"
)

var errUnsupportedOS = fmt.Errorf("no mixer backend for %s", runtime.GOOS)

type unsupported struct{}

func newPlatformBackend(logger *zap.Logger, opts Options) Backend {
	return unsupported{}
}

func (unsupported) Name() string { return "unsupported" }

func (unsupported) Sessions() ([]model.AudioSession, error) {
	return nil, errors.Join(session.ErrConnectUnavailable, errUnsupportedOS)
}

func (unsupported) SetVolume(session.Target, float64) error {
	return errors.Join(session.ErrConnectUnavailable, errUnsupportedOS)
}

func (unsupported) SetMute(session.Target, bool) error {
	return errors.Join(session.ErrConnectUnavailable, errUnsupportedOS)
}
