//go:build windows

package volume

import (
	"github.com/vmorsell/app-mixer/internal/backend/wasapi"
	"go.uber.org/zap"
)

func newPlatformBackend(logger *zap.Logger, opts Options) Backend {
	return wasapi.New(logger.Named("wasapi"), wasapi.Options{
		Timeout: opts.Timeout,
	})
}
