// Package volume is the entry point to the OS mixer: it lists audio sessions
// and changes their volume and mute state through the platform backend.
package volume

import (
	"fmt"
	"time"

	"github.com/vmorsell/app-mixer/internal/session"
	"github.com/vmorsell/app-mixer/pkg/model"
	"go.uber.org/zap"
)

// Backend is an OS mixer. Implementations open a fresh connection for every
// call and release it before returning.
type Backend interface {
	Name() string
	// Sessions lists devices then streams. On error it may still return the
	// sessions gathered before the failure.
	Sessions() ([]model.AudioSession, error)
	SetVolume(t session.Target, percent float64) error
	SetMute(t session.Target, muted bool) error
}

// Options selects and tunes the platform backend.
type Options struct {
	Timeout     time.Duration
	PulseServer string
	ClientName  string
}

// Controller is the synchronous mixer API. Failures never escape it: lists
// degrade to what could be read and commands report false.
type Controller struct {
	logger  *zap.Logger
	backend Backend
}

// New returns a Controller backed by the mixer of the running OS.
func New(logger *zap.Logger, opts Options) *Controller {
	return NewController(logger, newPlatformBackend(logger, opts))
}

func NewController(logger *zap.Logger, backend Backend) *Controller {
	return &Controller{
		logger:  logger.With(zap.String("backend", backend.Name())),
		backend: backend,
	}
}

// ListSessions returns every session the backend could read, never nil.
func (c *Controller) ListSessions() []model.AudioSession {
	sessions, err := c.backend.Sessions()
	if err != nil {
		c.logger.Warn("session list incomplete",
			zap.String("class", session.Classify(err)),
			zap.Int("kept", len(sessions)),
			zap.Error(err),
		)
	}
	if sessions == nil {
		sessions = []model.AudioSession{}
	}
	return sessions
}

// SetVolume sets the volume of id to percent, which must be within 0-100.
func (c *Controller) SetVolume(id string, percent float64) bool {
	if err := session.ValidatePercent(percent); err != nil {
		c.fail("set volume", id, err)
		return false
	}
	t, err := session.ParseID(id)
	if err != nil {
		c.fail("set volume", id, err)
		return false
	}
	if err := c.backend.SetVolume(t, percent); err != nil {
		c.fail("set volume", id, err)
		return false
	}

	c.logger.Debug("volume set", zap.String("id", id), zap.Float64("percent", percent))
	return true
}

func (c *Controller) SetMute(id string, muted bool) bool {
	t, err := session.ParseID(id)
	if err != nil {
		c.fail("set mute", id, err)
		return false
	}
	if err := c.backend.SetMute(t, muted); err != nil {
		c.fail("set mute", id, err)
		return false
	}

	c.logger.Debug("mute set", zap.String("id", id), zap.Bool("muted", muted))
	return true
}

// ToggleMute flips the mute state of id as currently reported by the backend
// and returns the new state. ok is false when id is not listed or the
// command failed.
func (c *Controller) ToggleMute(id string) (muted bool, ok bool) {
	if _, err := session.ParseID(id); err != nil {
		c.fail("toggle mute", id, err)
		return false, false
	}

	for _, s := range c.ListSessions() {
		if s.ID != id {
			continue
		}
		if !c.SetMute(id, !s.Muted) {
			return s.Muted, false
		}
		return !s.Muted, true
	}

	c.fail("toggle mute", id, fmt.Errorf("%w: %s is not listed", session.ErrResolution, id))
	return false, false
}

func (c *Controller) fail(op, id string, err error) {
	c.logger.Warn(op+" failed",
		zap.String("id", id),
		zap.String("class", session.Classify(err)),
		zap.Error(err),
	)
}
