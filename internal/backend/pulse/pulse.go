// Package pulse implements the mixer backend on top of the PulseAudio
// native protocol. Sinks are reported as devices and sink inputs as
// application streams.
package pulse

import (
	"strings"
	"time"

	"github.com/jfreymuth/pulse/proto"
	"github.com/vmorsell/app-mixer/internal/bridge"
	"github.com/vmorsell/app-mixer/internal/procinfo"
	"go.uber.org/zap"
)

// fullScale is the raw volume that corresponds to 100%.
const fullScale = 0x10000

const defaultClientName = "app-mixer"

// Options configures a Backend. Zero values select the defaults.
type Options struct {
	Server     string
	ClientName string
	Timeout    time.Duration
	Dial       Dialer
	// LookupProcess resolves a process id for stream naming.
	LookupProcess func(pid uint32) (procinfo.Info, error)
}

// Backend talks to a PulseAudio (or pipewire-pulse) server. It keeps no
// connection between calls.
type Backend struct {
	logger        *zap.Logger
	server        string
	clientName    string
	timeout       time.Duration
	dial          Dialer
	lookupProcess func(pid uint32) (procinfo.Info, error)
}

func New(logger *zap.Logger, opts Options) *Backend {
	b := &Backend{
		logger:        logger,
		server:        opts.Server,
		clientName:    opts.ClientName,
		timeout:       opts.Timeout,
		dial:          opts.Dial,
		lookupProcess: opts.LookupProcess,
	}
	if b.clientName == "" {
		b.clientName = defaultClientName
	}
	if b.timeout <= 0 {
		b.timeout = bridge.DefaultTimeout
	}
	if b.dial == nil {
		b.dial = Dial
	}
	if b.lookupProcess == nil {
		b.lookupProcess = procinfo.Lookup
	}
	return b
}

func (b *Backend) Name() string {
	return "pulseaudio"
}

func prop(props proto.PropList, key string) string {
	v, ok := props[key]
	if !ok {
		return ""
	}
	return strings.TrimRight(string(v), "\x00")
}

func average(volumes proto.ChannelVolumes) float64 {
	if len(volumes) == 0 {
		return 0
	}
	var sum float64
	for _, v := range volumes {
		sum += float64(v)
	}
	return sum / float64(len(volumes))
}
