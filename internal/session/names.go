package session

import (
	"path/filepath"
	"strings"
)

const (
	UnknownName      = "Unknown"
	SystemOutputName = "System Output"
	SystemSoundsName = "System Sounds"
)

// NameSources are the candidate labels a backend found for a stream, in
// order of preference.
type NameSources struct {
	// Declared is the name the application gave itself.
	Declared string
	// ProcessName is the display name the OS reports for the owning process.
	ProcessName string
	// ExePath is the path (or file name) of the owning executable.
	ExePath string
}

// ResolveName returns the first usable candidate, falling back to the
// executable's base name without extension and finally to UnknownName.
func ResolveName(src NameSources) string {
	if name := usable(src.Declared); name != "" {
		return name
	}
	if name := usable(src.ProcessName); name != "" {
		return name
	}
	if name := ExecutableBase(src.ExePath); name != "" {
		return name
	}
	return UnknownName
}

// ExecutableBase strips directories and the extension from an executable
// path. Both slash styles are accepted so Windows paths resolve anywhere.
func ExecutableBase(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		path = path[i+1:]
	}
	if ext := filepath.Ext(path); ext != "" && ext != path {
		path = strings.TrimSuffix(path, ext)
	}
	return path
}

func usable(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || name == UnknownName {
		return ""
	}
	// Windows hands out unresolved resource references such as
	// "@%SystemRoot%\System32\AudioSrv.Dll,-202".
	if strings.HasPrefix(name, "@") {
		return ""
	}
	return name
}
