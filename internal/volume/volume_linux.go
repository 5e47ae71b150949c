//go:build linux

package volume

import (
	"github.com/vmorsell/app-mixer/internal/backend/pulse"
	"go.uber.org/zap"
)

func newPlatformBackend(logger *zap.Logger, opts Options) Backend {
	return pulse.New(logger.Named("pulse"), pulse.Options{
		Server:     opts.PulseServer,
		ClientName: opts.ClientName,
		Timeout:    opts.Timeout,
	})
}
