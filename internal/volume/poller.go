package volume

import (
	"sync"
	"time"

	"github.com/vmorsell/app-mixer/pkg/model"
)

// DefaultPollInterval matches how often a mixer UI refreshes its list.
const DefaultPollInterval = time.Second

// Lister is the part of Controller the Poller needs.
type Lister interface {
	ListSessions() []model.AudioSession
}

// Poller watches the session list and reports when it changes.
type Poller struct {
	lister   Lister
	interval time.Duration

	mu     sync.Mutex
	last   []model.AudioSession
	polled bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewPoller(lister Lister, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		lister:   lister,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Snapshot returns the list seen by the most recent poll. ok is false until
// the first poll has completed.
func (p *Poller) Snapshot() (sessions []model.AudioSession, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.polled {
		return nil, false
	}
	return append([]model.AudioSession{}, p.last...), true
}

// Poll reads the session list once and returns how it differs from the
// previous poll. The first poll reports every session as added.
func (p *Poller) Poll() model.SessionsUpdate {
	sessions := p.lister.ListSessions()

	p.mu.Lock()
	defer p.mu.Unlock()
	u := Diff(p.last, sessions)
	p.last = sessions
	p.polled = true
	return u
}

// Listen returns a channel that emits an update whenever the session list
// changes, starting with the initial list. The channel is closed when the
// poller is stopped.
func (p *Poller) Listen() <-chan model.SessionsUpdate {
	ch := make(chan model.SessionsUpdate)

	go func() {
		defer close(ch)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			if u := p.Poll(); !u.Empty() {
				select {
				case ch <- u:
				case <-p.stopCh:
					return
				}
			}

			select {
			case <-p.stopCh:
				return
			case <-ticker.C:
			}
		}
	}()
	return ch
}

func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})
}

// Diff compares two session lists by id.
func Diff(prev, next []model.AudioSession) model.SessionsUpdate {
	u := model.SessionsUpdate{Sessions: next}

	old := make(map[string]model.AudioSession, len(prev))
	for _, s := range prev {
		old[s.ID] = s
	}
	seen := make(map[string]bool, len(next))
	for _, s := range next {
		seen[s.ID] = true
		was, ok := old[s.ID]
		switch {
		case !ok:
			u.Added = append(u.Added, s.ID)
		case was != s:
			u.Changed = append(u.Changed, s.ID)
		}
	}
	for _, s := range prev {
		if !seen[s.ID] {
			u.Removed = append(u.Removed, s.ID)
		}
	}
	return u
}
