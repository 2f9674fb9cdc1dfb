package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/joegen/opalvoip-opal/internal/message"
	"github.com/joegen/opalvoip-opal/internal/routing"
)

const sampleProfile = `
[general]
stun_server = "stun.example.com"
silence_detect_mode = "Adaptive"
rtp_port_base = 5000
rtp_port_max = 5999

[[protocol]]
prefix = "sip"
user_name = "alice"
display_name = "Alice"

[[registration]]
protocol = "sip"
identifier = "alice"
host_name = "registrar.example.com"
time_to_live = 300

[routing]
default = "reject"
max_active = 8

[[routing.rule]]
match = "pcss:"
action = "answer"

[[routing.rule]]
match = "sip:support@"
action = "forward"

  [[routing.rule.destination]]
  target = "sip:agent1@example.com"
  weight = 2

  [[routing.rule.destination]]
  target = "sip:agent2@example.com"
  weight = 1
`

func TestParseProfile(t *testing.T) {
	p, err := ParseProfile(sampleProfile)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	cmds := p.Commands()
	if len(cmds) != 3 {
		t.Fatalf("expected 3 commands, got %d", len(cmds))
	}
	wantKinds := []message.Kind{message.KindSetGeneralParameters, message.KindSetProtocolParameters, message.KindRegistration}
	for i, k := range wantKinds {
		if cmds[i].Kind != k {
			t.Fatalf("command %d: expected %s, got %s", i, k, cmds[i].Kind)
		}
	}
	gen := cmds[0].Payload.(message.SetGeneralParameters)
	if gen.SilenceDetectMode != message.SilenceDetectAdaptive || gen.RTPPortMax != 5999 {
		t.Fatalf("unexpected general parameters: %+v", gen)
	}
	if reg := cmds[2].Payload.(message.Registration); reg.TimeToLive != 300 || reg.HostName != "registrar.example.com" {
		t.Fatalf("unexpected registration: %+v", reg)
	}

	r := p.Router()
	if r == nil || len(r.Rules) != 2 || r.MaxActive != 8 || r.Default != routing.ActionReject {
		t.Fatalf("unexpected router: %+v", r)
	}
	if got := r.Rules[1].Destinations; len(got) != 2 || got[0].Weight != 2 {
		t.Fatalf("unexpected destinations: %+v", got)
	}
}

func TestParseProfile_RejectsUnknownKeys(t *testing.T) {
	_, err := ParseProfile("[general]\nstun_sever = \"typo\"\n")
	if !errors.Is(err, ErrInvalidProfile) {
		t.Fatalf("expected ErrInvalidProfile, got %v", err)
	}
}

func TestParseProfile_RejectsInvalidCommands(t *testing.T) {
	_, err := ParseProfile("[[protocol]]\nprefix = \"carrier-pigeon\"\n")
	if !errors.Is(err, ErrInvalidProfile) {
		t.Fatalf("expected ErrInvalidProfile, got %v", err)
	}
	_, err = ParseProfile("[routing]\n[[routing.rule]]\nmatch = \"*\"\naction = \"forward\"\n")
	if !errors.Is(err, ErrInvalidProfile) {
		t.Fatalf("expected ErrInvalidProfile for forward without destinations, got %v", err)
	}
}

func TestLoadProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "endpoint.toml")
	if err := os.WriteFile(path, []byte(sampleProfile), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	p, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if p.Router() == nil {
		t.Fatalf("expected routing table")
	}
	if _, err := LoadProfile(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected error for missing file")
	}

	empty, err := ParseProfile("")
	if err != nil {
		t.Fatalf("unexpected err for empty profile: %v", err)
	}
	if len(empty.Commands()) != 0 || empty.Router() != nil {
		t.Fatalf("expected empty profile to produce nothing")
	}
}
