// Package procinfo resolves process ids to names for session labelling.
package procinfo

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/process"
)

// Info describes a running process. Either field may be empty when the OS
// refuses to disclose it.
type Info struct {
	Name string
	Exe  string
}

// Lookup reports the name and executable path of pid. It fails only when the
// process cannot be found at all.
func Lookup(pid uint32) (Info, error) {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return Info{}, fmt.Errorf("find process %d: %w", pid, err)
	}

	var info Info
	if name, err := p.Name(); err == nil {
		info.Name = name
	}
	if exe, err := p.Exe(); err == nil {
		info.Exe = exe
	}
	if info.Name == "" && info.Exe == "" {
		return Info{}, fmt.Errorf("process %d has no readable name", pid)
	}
	return info, nil
}
