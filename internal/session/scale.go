package session

import (
	"fmt"
	"math"
)

const (
	VolumeMin = 0
	VolumeMax = 100
)

// ValidatePercent rejects values outside [VolumeMin, VolumeMax] and NaN.
func ValidatePercent(percent float64) error {
	if math.IsNaN(percent) || percent < VolumeMin || percent > VolumeMax {
		return fmt.Errorf("volume %v: %w", percent, ErrRangeViolation)
	}
	return nil
}

// ToPercent converts a native volume into the 0-100 domain.
func ToPercent(native, fullScale float64) float64 {
	if fullScale <= 0 {
		return 0
	}
	return math.Round(native * 100 / fullScale)
}

// ToNative converts a percentage into the platform's native scale.
func ToNative(percent, fullScale float64) float64 {
	return math.Round(percent / 100 * fullScale)
}
