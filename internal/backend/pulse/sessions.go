package pulse

import (
	"fmt"
	"strconv"

	"github.com/jfreymuth/pulse/proto"
	"github.com/vmorsell/app-mixer/internal/session"
	"github.com/vmorsell/app-mixer/pkg/model"
	"go.uber.org/zap"
)

type stage int

const (
	stageConnecting stage = iota
	stageDevices
	stageStreams
	stageDone
)

func (s stage) String() string {
	switch s {
	case stageConnecting:
		return "connecting"
	case stageDevices:
		return "querying devices"
	case stageStreams:
		return "querying streams"
	case stageDone:
		return "done"
	default:
		return "unknown"
	}
}

// Sessions lists every sink followed by every sink input with a readable
// volume. When a stage fails the sessions gathered so far are returned
// together with the error.
func (b *Backend) Sessions() ([]model.AudioSession, error) {
	out := []model.AudioSession{}

	c, err := b.acquire()
	if err != nil {
		return out, fmt.Errorf("%s: %w", stageConnecting, err)
	}
	defer c.release()

	var sinks proto.GetSinkInfoListReply
	if err := c.request(&proto.GetSinkInfoList{}, &sinks); err != nil {
		return out, b.degraded(stageDevices, len(out), err)
	}
	for _, s := range sinks {
		out = append(out, deviceSession(s))
	}

	var inputs proto.GetSinkInputInfoListReply
	if err := c.request(&proto.GetSinkInputInfoList{}, &inputs); err != nil {
		return out, b.degraded(stageStreams, len(out), err)
	}
	for _, in := range inputs {
		if s, ok := b.streamSession(in); ok {
			out = append(out, s)
		}
	}

	b.logger.Debug("listed sessions",
		zap.Int("devices", len(sinks)),
		zap.Int("sessions", len(out)),
	)
	return out, nil
}

func (b *Backend) degraded(st stage, kept int, err error) error {
	b.logger.Debug("enumeration degraded",
		zap.Stringer("stage", st),
		zap.Int("kept", kept),
		zap.Error(err),
	)
	return fmt.Errorf("%s: %w", st, err)
}

func deviceSession(s *proto.GetSinkInfoReply) model.AudioSession {
	name := s.Device
	if name == "" {
		name = session.SystemOutputName
	}
	return model.AudioSession{
		ID:     session.DeviceID(s.SinkIndex),
		Name:   name,
		Volume: session.ToPercent(average(s.ChannelVolumes), fullScale),
		Muted:  s.Mute,
	}
}

func (b *Backend) streamSession(in *proto.GetSinkInputInfoReply) (model.AudioSession, bool) {
	if !in.VolumeReadable || len(in.ChannelVolumes) == 0 {
		return model.AudioSession{}, false
	}

	src := session.NameSources{
		Declared:    prop(in.Properties, "application.name"),
		ProcessName: prop(in.Properties, "application.process.binary"),
	}
	if src.Declared == "" && src.ProcessName == "" {
		if pid, err := strconv.ParseUint(prop(in.Properties, "application.process.id"), 10, 32); err == nil {
			if info, err := b.lookupProcess(uint32(pid)); err == nil {
				src.ProcessName = info.Name
				src.ExePath = info.Exe
			}
		}
	}

	return model.AudioSession{
		ID:     session.StreamID(in.SinkInputIndex),
		Name:   session.ResolveName(src),
		Volume: session.ToPercent(average(in.ChannelVolumes), fullScale),
		Muted:  in.Muted,
	}, true
}
