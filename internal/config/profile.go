package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/joegen/opalvoip-opal/internal/message"
	"github.com/joegen/opalvoip-opal/internal/routing"
)

var ErrInvalidProfile = errors.New("config: invalid endpoint profile")

// Profile is the endpoint's start-up configuration, read from TOML:
//
//	[general]
//	stun_server = "stun.example.com"
//	silence_detect_mode = "Adaptive"
//
//	[[protocol]]
//	prefix = "sip"
//	user_name = "alice"
//
//	[[registration]]
//	protocol = "sip"
//	identifier = "alice"
//	host_name = "registrar.example.com"
//	time_to_live = 300
//
//	[routing]
//	default = "reject"
//	max_active = 8
//
//	[[routing.rule]]
//	match = "pcss:"
//	action = "answer"
type Profile struct {
	General      *message.SetGeneralParameters   `toml:"general"`
	Protocols    []message.SetProtocolParameters `toml:"protocol"`
	Registration []message.Registration          `toml:"registration"`
	Routing      *RoutingProfile                 `toml:"routing"`
}

type RoutingProfile struct {
	Default   string        `toml:"default"`
	MaxActive int           `toml:"max_active"`
	Rules     []RuleProfile `toml:"rule"`
}

type RuleProfile struct {
	Match        string               `toml:"match"`
	Action       string               `toml:"action"`
	Destinations []DestinationProfile `toml:"destination"`
}

type DestinationProfile struct {
	Target string `toml:"target"`
	Weight int    `toml:"weight"`
}

// LoadProfile reads and validates a profile file.
func LoadProfile(path string) (Profile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile: %w", err)
	}
	return ParseProfile(string(b))
}

// ParseProfile decodes a TOML profile. Unknown keys are rejected so that
// typos do not silently fall back to defaults.
func ParseProfile(data string) (Profile, error) {
	var p Profile
	md, err := toml.Decode(data, &p)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %w", ErrInvalidProfile, err)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		keys := make([]string, 0, len(undec))
		for _, k := range undec {
			keys = append(keys, k.String())
		}
		return Profile{}, fmt.Errorf("%w: unknown keys %s", ErrInvalidProfile, strings.Join(keys, ", "))
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Validate checks every command the profile produces and the routing table.
func (p Profile) Validate() error {
	var errs []error
	for i, env := range p.Commands() {
		if err := env.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("command %d (%s): %w", i, env.Kind, err))
		}
	}
	if p.Routing != nil {
		if p.Routing.MaxActive < 0 {
			errs = append(errs, errors.New("routing.max_active must not be negative"))
		}
		if err := p.Router().Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidProfile, errors.Join(errs...))
}

// Commands returns the set-up commands in the order they must be sent:
// general parameters, protocols, then registrations.
func (p Profile) Commands() []message.Envelope {
	var out []message.Envelope
	if p.General != nil {
		out = append(out, message.Of(*p.General))
	}
	for _, pr := range p.Protocols {
		out = append(out, message.Of(pr))
	}
	for _, r := range p.Registration {
		out = append(out, message.Of(r))
	}
	return out
}

// Router builds the incoming-call policy, or nil when the profile has no
// routing table.
func (p Profile) Router() *routing.RoutingEngine {
	if p.Routing == nil {
		return nil
	}
	rules := make([]routing.Rule, 0, len(p.Routing.Rules))
	for _, r := range p.Routing.Rules {
		rule := routing.Rule{Match: r.Match, Action: routing.Action(r.Action)}
		for _, d := range r.Destinations {
			rule.Destinations = append(rule.Destinations, routing.WeightedDestination{Target: d.Target, Weight: d.Weight})
		}
		rules = append(rules, rule)
	}
	e := routing.NewRoutingEngine(rules, nil)
	e.Default = routing.Action(p.Routing.Default)
	e.MaxActive = p.Routing.MaxActive
	return e
}
