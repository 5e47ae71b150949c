//go:build windows

package wasapi

import (
	"errors"
	"fmt"

	"github.com/vmorsell/app-mixer/internal/bridge"
	"github.com/vmorsell/app-mixer/internal/session"
	"github.com/vmorsell/app-mixer/pkg/model"
	"go.uber.org/zap"
)

// Sessions reports the default endpoint followed by its active sessions.
// When a stage fails the sessions gathered so far are returned together with
// the error.
func (b *Backend) Sessions() ([]model.AudioSession, error) {
	out := []model.AudioSession{}

	a, err := b.acquire()
	if err != nil {
		return out, err
	}
	defer a.release()

	device, err := invoke(a.loop, b.timeout, a.readDevice)
	if err != nil {
		return out, b.degraded("querying devices", len(out), err)
	}
	out = append(out, device)

	streams, err := invoke(a.loop, b.timeout, a.readStreams(b))
	if err != nil {
		return out, b.degraded("querying streams", len(out), err)
	}
	out = append(out, streams...)

	b.logger.Debug("listed sessions", zap.Int("sessions", len(out)))
	return out, nil
}

func (b *Backend) degraded(stage string, kept int, err error) error {
	if errors.Is(err, bridge.ErrTimeout) {
		err = fmt.Errorf("%w: %w", session.ErrQueryTimeout, err)
	}
	b.logger.Debug("enumeration degraded",
		zap.String("stage", stage),
		zap.Int("kept", kept),
		zap.Error(err),
	)
	return fmt.Errorf("%s: %w", stage, err)
}

func (a *apartment) readDevice() (model.AudioSession, error) {
	aev, err := a.endpointVolume()
	if err != nil {
		return model.AudioSession{}, err
	}
	defer aev.Release()

	var level float32
	if err := aev.GetMasterVolumeLevelScalar(&level); err != nil {
		return model.AudioSession{}, fmt.Errorf("read endpoint volume: %w", err)
	}
	var muted bool
	if err := aev.GetMute(&muted); err != nil {
		return model.AudioSession{}, fmt.Errorf("read endpoint mute: %w", err)
	}
	return deviceSession(a.friendlyName(), level, muted), nil
}

func (a *apartment) readStreams(b *Backend) func() ([]model.AudioSession, error) {
	return func() ([]model.AudioSession, error) {
		var out []model.AudioSession
		seen := make(map[uint32]bool)

		err := a.eachSession(func(s *audioSession) bool {
			var level float32
			var muted bool
			if s.volume.GetMasterVolume(&level) != nil || s.volume.GetMute(&muted) != nil {
				return true
			}

			if s.isSystemSounds() {
				if !seen[systemSoundsPID] {
					seen[systemSoundsPID] = true
					out = append(out, systemSoundsSession(level, muted))
				}
				return true
			}

			var state uint32
			if err := s.control.GetState(&state); err != nil || state != sessionStateActive {
				return true
			}
			var pid uint32
			if err := s.control2.GetProcessId(&pid); err != nil || seen[pid] {
				return true
			}
			seen[pid] = true

			var displayName string
			if err := s.control.GetDisplayName(&displayName); err != nil {
				displayName = ""
			}
			out = append(out, b.streamSession(pid, displayName, level, muted))
			return true
		})
		return out, err
	}
}

func (b *Backend) SetVolume(t session.Target, percent float64) error {
	if err := session.ValidatePercent(percent); err != nil {
		return err
	}
	level := scalar(percent)

	return b.mutate(t, "set volume", func(a *apartment) error {
		if t.Kind == session.KindDevice {
			aev, err := a.endpointVolume()
			if err != nil {
				return err
			}
			defer aev.Release()
			return aev.SetMasterVolumeLevelScalar(level, nil)
		}
		return a.withStream(t.Index, func(s *audioSession) error {
			return s.volume.SetMasterVolume(level, nil)
		})
	})
}

func (b *Backend) SetMute(t session.Target, muted bool) error {
	return b.mutate(t, "set mute", func(a *apartment) error {
		if t.Kind == session.KindDevice {
			aev, err := a.endpointVolume()
			if err != nil {
				return err
			}
			defer aev.Release()
			return aev.SetMute(muted, nil)
		}
		return a.withStream(t.Index, func(s *audioSession) error {
			return s.volume.SetMute(muted, nil)
		})
	})
}

// mutate runs one command against the target inside a fresh apartment. A
// timeout is a failure.
func (b *Backend) mutate(t session.Target, what string, fn func(a *apartment) error) error {
	if t.Kind == session.KindDevice && t.Index != defaultEndpoint {
		return fmt.Errorf("%w: %s is not the default endpoint", session.ErrResolution, t.ID())
	}

	a, err := b.acquire()
	if err != nil {
		return err
	}
	defer a.release()

	_, err = invoke(a.loop, b.timeout, func() (struct{}, error) {
		return struct{}{}, fn(a)
	})
	if errors.Is(err, bridge.ErrTimeout) {
		err = fmt.Errorf("%w: %w", session.ErrQueryTimeout, err)
	}
	if err != nil {
		return fmt.Errorf("%s of %s: %w", what, t.ID(), err)
	}

	b.logger.Debug(what, zap.String("id", t.ID()))
	return nil
}

// withStream applies fn to the first session owned by pid. pid 0 selects the
// system sounds session.
func (a *apartment) withStream(pid uint32, fn func(s *audioSession) error) error {
	var applied bool
	var fnErr error

	err := a.eachSession(func(s *audioSession) bool {
		if pid == systemSoundsPID {
			if !s.isSystemSounds() {
				return true
			}
		} else {
			var owner uint32
			if s.control2.GetProcessId(&owner) != nil || owner != pid {
				return true
			}
		}
		applied = true
		fnErr = fn(s)
		return false
	})
	switch {
	case err != nil:
		return err
	case !applied:
		return fmt.Errorf("%w: no session for process %d", session.ErrResolution, pid)
	}
	return fnErr
}
