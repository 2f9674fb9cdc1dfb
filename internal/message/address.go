package message

import (
	"fmt"
	"strings"
)

// Prefix names an engine endpoint type in an address such as "sip:bob@example.com".
type Prefix string

const (
	PrefixH323  Prefix = "h323"
	PrefixSIP   Prefix = "sip"
	PrefixIAX2  Prefix = "iax2"
	PrefixPCSS  Prefix = "pcss"
	PrefixLocal Prefix = "local"
	PrefixPOTS  Prefix = "pots"
	PrefixPSTN  Prefix = "pstn"
	PrefixIVR   Prefix = "ivr"
	PrefixAll   Prefix = "*"
)

var prefixBits = map[Prefix]CapabilityMask{
	PrefixH323:  1 << 0,
	PrefixSIP:   1 << 1,
	PrefixIAX2:  1 << 2,
	PrefixPCSS:  1 << 3,
	PrefixLocal: 1 << 4,
	PrefixPOTS:  1 << 5,
	PrefixPSTN:  1 << 6,
	PrefixIVR:   1 << 7,
}

// Prefixes lists the concrete prefixes in mask bit order.
func Prefixes() []Prefix {
	return []Prefix{PrefixH323, PrefixSIP, PrefixIAX2, PrefixPCSS, PrefixLocal, PrefixPOTS, PrefixPSTN, PrefixIVR}
}

// ParsePrefix accepts a recognised prefix, case-insensitively.
func ParsePrefix(s string) (Prefix, error) {
	p := Prefix(strings.ToLower(strings.TrimSpace(s)))
	if p == PrefixAll {
		return p, nil
	}
	if _, ok := prefixBits[p]; ok {
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPrefix, s)
}

// ParseAddress splits "prefix:rest". A bare "user@host" is a SIP address.
func ParseAddress(addr string) (Prefix, string, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", "", fmt.Errorf("%w: empty address", ErrUnknownPrefix)
	}
	if i := strings.IndexByte(addr, ':'); i > 0 {
		if p, err := ParsePrefix(addr[:i]); err == nil && p != PrefixAll {
			return p, addr[i+1:], nil
		}
	}
	if strings.Contains(addr, "@") {
		return PrefixSIP, addr, nil
	}
	return "", "", fmt.Errorf("%w: %q", ErrUnknownPrefix, addr)
}

// CapabilityMask is the set of endpoint types an engine is started with.
type CapabilityMask uint32

// AllCapabilities enables every concrete prefix.
const AllCapabilities CapabilityMask = 1<<8 - 1

// ParseCapabilities parses a space separated prefix list such as "pcss sip h323".
// "*" selects every prefix. An empty list selects every prefix.
func ParseCapabilities(s string) (CapabilityMask, error) {
	var mask CapabilityMask
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return AllCapabilities, nil
	}
	for _, f := range fields {
		p, err := ParsePrefix(f)
		if err != nil {
			return 0, err
		}
		if p == PrefixAll {
			mask |= AllCapabilities
			continue
		}
		mask |= prefixBits[p]
	}
	return mask, nil
}

// Has reports whether p is enabled. PrefixAll is enabled only when every prefix is.
func (m CapabilityMask) Has(p Prefix) bool {
	if p == PrefixAll {
		return m&AllCapabilities == AllCapabilities
	}
	bit, ok := prefixBits[p]
	return ok && m&bit != 0
}

func (m CapabilityMask) String() string {
	var parts []string
	for _, p := range Prefixes() {
		if m.Has(p) {
			parts = append(parts, string(p))
		}
	}
	return strings.Join(parts, " ")
}
