// Package wasapi implements the mixer backend on Windows through the Core
// Audio (WASAPI) session API. The default render endpoint is reported as
// device "system-0"; every active session on it is reported as a stream
// keyed by its process id.
package wasapi

import (
	"time"

	"github.com/vmorsell/app-mixer/internal/bridge"
	"github.com/vmorsell/app-mixer/internal/procinfo"
	"github.com/vmorsell/app-mixer/internal/session"
	"github.com/vmorsell/app-mixer/pkg/model"
	"go.uber.org/zap"
)

const (
	// fullScale is the scalar volume that corresponds to 100%.
	fullScale = 1.0

	// defaultEndpoint is the only device index this backend exposes.
	defaultEndpoint = 0

	// systemSoundsPID is the stream id used for the system sounds session,
	// which belongs to no single process.
	systemSoundsPID = 0

	// AudioSessionStateActive
	sessionStateActive = 1
)

type Options struct {
	Timeout       time.Duration
	LookupProcess func(pid uint32) (procinfo.Info, error)
}

type Backend struct {
	logger        *zap.Logger
	timeout       time.Duration
	lookupProcess func(pid uint32) (procinfo.Info, error)
}

func New(logger *zap.Logger, opts Options) *Backend {
	b := &Backend{
		logger:        logger,
		timeout:       opts.Timeout,
		lookupProcess: opts.LookupProcess,
	}
	if b.timeout <= 0 {
		b.timeout = bridge.DefaultTimeout
	}
	if b.lookupProcess == nil {
		b.lookupProcess = procinfo.Lookup
	}
	return b
}

func (b *Backend) Name() string {
	return "wasapi"
}

func deviceSession(friendlyName string, level float32, muted bool) model.AudioSession {
	name := friendlyName
	if name == "" {
		name = session.SystemOutputName
	}
	return model.AudioSession{
		ID:     session.DeviceID(defaultEndpoint),
		Name:   name,
		Volume: session.ToPercent(float64(level), fullScale),
		Muted:  muted,
	}
}

func systemSoundsSession(level float32, muted bool) model.AudioSession {
	return model.AudioSession{
		ID:     session.StreamID(systemSoundsPID),
		Name:   session.SystemSoundsName,
		Volume: session.ToPercent(float64(level), fullScale),
		Muted:  muted,
	}
}

// streamSession names a process session. The display name a session declares
// wins; the process is only consulted when it is blank.
func (b *Backend) streamSession(pid uint32, displayName string, level float32, muted bool) model.AudioSession {
	src := session.NameSources{Declared: displayName}
	if session.ResolveName(src) == session.UnknownName {
		if info, err := b.lookupProcess(pid); err == nil {
			src.ExePath = info.Exe
			if src.ExePath == "" {
				src.ExePath = info.Name
			}
		}
	}
	return model.AudioSession{
		ID:     session.StreamID(pid),
		Name:   session.ResolveName(src),
		Volume: session.ToPercent(float64(level), fullScale),
		Muted:  muted,
	}
}

// scalar converts a validated percentage to the endpoint's scalar range.
func scalar(percent float64) float32 {
	return float32(percent / 100 * fullScale)
}
