// Package availability decides whether the native health integration can be used.
package availability

import (
	"fmt"
	"strings"

	"example.com/healthsync/internal/native"
)

// SupportedPlatform is the only platform with a native health store integration.
const SupportedPlatform = "ios"

// Availability is the result of a probe.
type Availability struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// Locator returns the linked native module, or nil when none is linked.
type Locator func() any

// Prober checks platform, module presence and minimum capability. It has no side
// effects and is safe to call on every operation.
type Prober struct {
	platform string
	locate   Locator
}

// NewProber constructs a Prober for the given platform.
func NewProber(platform string, locate Locator) *Prober {
	return &Prober{platform: strings.ToLower(strings.TrimSpace(platform)), locate: locate}
}

// Probe reports whether the integration is usable.
func (p *Prober) Probe() Availability {
	avail, _ := p.Locate()
	return avail
}

// Locate probes and, when available, returns the module for further capability checks.
func (p *Prober) Locate() (Availability, native.PermissionInitializer) {
	if p == nil {
		return unavailable("health integration is not configured"), nil
	}
	if p.platform != SupportedPlatform {
		return unavailable(fmt.Sprintf("health integration requires %s, running on %q", SupportedPlatform, p.platform)), nil
	}

	var module any
	if p.locate != nil {
		module = p.locate()
	}
	if module == nil {
		return unavailable("native health module is not linked in this build"), nil
	}

	initializer, ok := module.(native.PermissionInitializer)
	if !ok {
		return unavailable("native health module does not expose permission initialization"), nil
	}
	return Availability{Available: true}, initializer
}

func unavailable(reason string) Availability {
	return Availability{Available: false, Reason: reason}
}

// Static returns a Locator that always yields module.
func Static(module any) Locator {
	return func() any { return module }
}
