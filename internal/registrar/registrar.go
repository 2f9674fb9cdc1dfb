package registrar

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/joegen/opalvoip-opal/internal/message"
)

var ErrNotFound = errors.New("registrar: registration not found")

// State is the last known registration of one protocol.
type State struct {
	Protocol    message.Prefix             `json:"protocol"`
	Identifier  string                     `json:"identifier"`
	HostName    string                     `json:"host_name,omitempty"`
	ServerName  string                     `json:"server_name,omitempty"`
	TimeToLive  uint32                     `json:"time_to_live"`
	RestoreTime uint32                     `json:"restore_time,omitempty"`
	Status      message.RegistrationStatus `json:"status"`
	Error       string                     `json:"error,omitempty"`
	// Pending is set between a Registration command and its first status event.
	Pending   bool      `json:"pending"`
	UpdatedAt time.Time `json:"updated_at"`

	request message.Registration
}

// Active reports whether the registration is currently held by the server.
func (s State) Active() bool {
	return !s.Pending && (s.Status == message.RegistrationSuccessful || s.Status == message.RegistrationRestored)
}

// Registrar tracks registration state per protocol prefix.
type Registrar struct {
	mu     sync.RWMutex
	states map[message.Prefix]*State

	Now func() time.Time
}

func New() *Registrar {
	return &Registrar{states: make(map[message.Prefix]*State), Now: time.Now}
}

// Request records an accepted Registration command.
// A zero TimeToLive starts an unregistration of the existing entry.
func (r *Registrar) Request(reg message.Registration) (State, error) {
	p, err := message.ParsePrefix(reg.Protocol)
	if err != nil {
		return State{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.states[p]
	if !ok {
		s = &State{Protocol: p}
		r.states[p] = s
	}
	s.Identifier = reg.Identifier
	s.HostName = reg.HostName
	s.TimeToLive = reg.TimeToLive
	s.RestoreTime = reg.RestoreTime
	s.Pending = true
	s.Error = ""
	s.UpdatedAt = r.now()
	s.request = reg
	return *s, nil
}

// Apply records a status event. ok is false when no Registration was issued
// for the protocol; the state is still recorded. A de-registration, or a
// failure with no restore time to retry on, drops the protocol's state; the
// returned State is its last value.
func (r *Registrar) Apply(report message.RegistrationStatusReport) (State, bool, error) {
	p, err := message.ParsePrefix(report.Protocol)
	if err != nil {
		return State{}, false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.states[p]
	if !ok {
		s = &State{Protocol: p}
		r.states[p] = s
	}
	s.Status = report.Status
	s.ServerName = report.ServerName
	s.Error = report.Error
	s.Pending = false
	s.UpdatedAt = r.now()
	if report.Status == message.RegistrationRemoved {
		s.TimeToLive = 0
	}
	if report.Status == message.RegistrationRemoved ||
		(report.Status == message.RegistrationFailed && s.RestoreTime == 0) {
		delete(r.states, p)
	}
	return *s, ok, nil
}

func (r *Registrar) Lookup(protocol string) (State, error) {
	p, err := message.ParsePrefix(protocol)
	if err != nil {
		return State{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.states[p]
	if !ok {
		return State{}, ErrNotFound
	}
	return *s, nil
}

// List returns every tracked registration ordered by protocol.
func (r *Registrar) List() []State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]State, 0, len(r.states))
	for _, s := range r.states {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Protocol < out[j].Protocol })
	return out
}

// NeedsRefresh returns the Registration commands that should be sent again
// at now: held registrations past half their time to live, and failed ones
// whose restore time has elapsed.
func (r *Registrar) NeedsRefresh(now time.Time) []message.Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []message.Registration
	for _, s := range r.states {
		if s.Pending || s.TimeToLive == 0 {
			continue
		}
		switch {
		case s.Active():
			if !now.Before(s.UpdatedAt.Add(time.Duration(s.TimeToLive) * time.Second / 2)) {
				out = append(out, s.request)
			}
		case s.Status == message.RegistrationFailed || s.Status == message.RegistrationRetrying:
			if s.RestoreTime > 0 && !now.Before(s.UpdatedAt.Add(time.Duration(s.RestoreTime)*time.Second)) {
				out = append(out, s.request)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Protocol < out[j].Protocol })
	return out
}

func (r *Registrar) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}
