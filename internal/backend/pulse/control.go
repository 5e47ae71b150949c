package pulse

import (
	"errors"
	"fmt"

	"github.com/jfreymuth/pulse/proto"
	"github.com/vmorsell/app-mixer/internal/session"
	"go.uber.org/zap"
)

var errNoChannels = errors.New("target reports no channels")

// SetVolume writes the same level to every channel of the target.
func (b *Backend) SetVolume(t session.Target, percent float64) error {
	if err := session.ValidatePercent(percent); err != nil {
		return err
	}

	c, err := b.acquire()
	if err != nil {
		return err
	}
	defer c.release()

	channels, err := c.channelCount(t)
	if err != nil {
		return err
	}

	level := uint32(session.ToNative(percent, fullScale))
	volumes := make(proto.ChannelVolumes, channels)
	for i := range volumes {
		volumes[i] = level
	}

	var req proto.RequestArgs
	if t.Kind == session.KindDevice {
		req = &proto.SetSinkVolume{SinkIndex: t.Index, ChannelVolumes: volumes}
	} else {
		req = &proto.SetSinkInputVolume{SinkInputIndex: t.Index, ChannelVolumes: volumes}
	}
	if err := c.request(req, nil); err != nil {
		return targetError("set volume of", t, err)
	}

	b.logger.Debug("volume set",
		zap.String("id", t.ID()),
		zap.Uint32("level", level),
		zap.Int("channels", channels),
	)
	return nil
}

func (b *Backend) SetMute(t session.Target, muted bool) error {
	c, err := b.acquire()
	if err != nil {
		return err
	}
	defer c.release()

	var req proto.RequestArgs
	if t.Kind == session.KindDevice {
		req = &proto.SetSinkMute{SinkIndex: t.Index, Mute: muted}
	} else {
		req = &proto.SetSinkInputMute{SinkInputIndex: t.Index, Mute: muted}
	}
	if err := c.request(req, nil); err != nil {
		return targetError("set mute of", t, err)
	}

	b.logger.Debug("mute set", zap.String("id", t.ID()), zap.Bool("muted", muted))
	return nil
}

// channelCount looks the target up and reports how many channels its volume
// has.
func (c *connection) channelCount(t session.Target) (int, error) {
	var volumes proto.ChannelVolumes
	var err error

	switch t.Kind {
	case session.KindDevice:
		var info proto.GetSinkInfoReply
		if err = c.request(&proto.GetSinkInfo{SinkIndex: t.Index}, &info); err == nil {
			volumes = info.ChannelVolumes
		}
	default:
		var info proto.GetSinkInputInfoReply
		if err = c.request(&proto.GetSinkInputInfo{SinkInputIndex: t.Index}, &info); err == nil {
			volumes = info.ChannelVolumes
		}
	}

	switch {
	case err != nil:
		return 0, targetError("look up", t, err)
	case len(volumes) == 0:
		return 0, fmt.Errorf("%w: %s: %w", session.ErrResolution, t.ID(), errNoChannels)
	}
	return len(volumes), nil
}

// targetError wraps a failed request against t. Only the server saying the
// entity does not exist counts as a resolution failure; timeouts and dropped
// connections keep their own class.
func targetError(op string, t session.Target, err error) error {
	if errors.Is(err, proto.ErrNoSuchEntity) {
		return fmt.Errorf("%w: %s %s: %w", session.ErrResolution, op, t.ID(), err)
	}
	return fmt.Errorf("%s %s: %w", op, t.ID(), err)
}
