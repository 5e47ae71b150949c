// Package session holds the backend-independent rules for audio sessions:
// the id scheme, volume scale conversions, and display name resolution.
package session

import (
	"fmt"
	"strconv"
	"strings"
)

// DevicePrefix marks ids in the device subspace. It never parses as a
// number, so a bare numeric stream id can not collide with it.
const DevicePrefix = "system-"

// Kind tells which subspace an id belongs to.
type Kind int

const (
	KindStream Kind = iota
	KindDevice
)

func (k Kind) String() string {
	if k == KindDevice {
		return "device"
	}
	return "stream"
}

// Target is a parsed session id.
type Target struct {
	Kind  Kind
	Index uint32
}

func (t Target) ID() string {
	if t.Kind == KindDevice {
		return DeviceID(t.Index)
	}
	return StreamID(t.Index)
}

func DeviceID(index uint32) string {
	return DevicePrefix + strconv.FormatUint(uint64(index), 10)
}

func StreamID(index uint32) string {
	return strconv.FormatUint(uint64(index), 10)
}

// IsDeviceID reports whether id is in the device subspace. It only looks at
// the string.
func IsDeviceID(id string) bool {
	return strings.HasPrefix(id, DevicePrefix)
}

// ParseID resolves id into its subspace and numeric index.
func ParseID(id string) (Target, error) {
	kind := KindStream
	digits := id
	if IsDeviceID(id) {
		kind = KindDevice
		digits = strings.TrimPrefix(id, DevicePrefix)
	}
	if !isDecimal(digits) {
		return Target{}, fmt.Errorf("parse id %q: %w", id, ErrResolution)
	}
	index, err := strconv.ParseUint(digits, 10, 32)
	if err != nil {
		return Target{}, fmt.Errorf("parse id %q: %w", id, ErrResolution)
	}
	return Target{Kind: kind, Index: uint32(index)}, nil
}

// isDecimal rejects signs, spaces and the empty string, which ParseUint
// would otherwise partly accept.
func isDecimal(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
