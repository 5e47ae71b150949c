package model

// AudioSession is one audible entity under mixer control: a system output
// device or a single application's stream.
type AudioSession struct {
	ID     string  `json:"id" yaml:"id"`
	Name   string  `json:"name" yaml:"name"`
	Volume float64 `json:"volume" yaml:"volume"`
	Muted  bool    `json:"muted" yaml:"muted"`
}

const (
	MessageTypeSessions = "sessions"
	MessageTypeResult   = "result"
	MessageTypeError    = "error"
	MessageTypeClients  = "clients"
)

// SessionsMessage carries a full session list, either as a reply to
// getSessions or as a broadcast after the poller saw a change.
type SessionsMessage struct {
	Type     string         `json:"type"`
	Sessions []AudioSession `json:"sessions"`
}

type ResultMessage struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	ID     string `json:"id"`
	OK     bool   `json:"ok"`
	Muted  *bool  `json:"muted,omitempty"`
}

type ErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type ConnectedClientsMessage struct {
	Type    string `json:"type"`
	Clients int    `json:"clients"`
}

// SessionsUpdate describes how a session list differs from the previous one.
type SessionsUpdate struct {
	Sessions []AudioSession
	Added    []string
	Removed  []string
	Changed  []string
}

// Empty reports whether the update carries no difference.
func (u SessionsUpdate) Empty() bool {
	return len(u.Added) == 0 && len(u.Removed) == 0 && len(u.Changed) == 0
}
