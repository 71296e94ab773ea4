package conformity

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Bound is an inclusive [Min, Max] range.
type Bound struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Contains reports whether v lies within the bound, boundaries included.
func (b Bound) Contains(v float64) bool {
	return b.Min <= v && v <= b.Max
}

// Policy maps zone types to conformity bounds. It is immutable once built.
type Policy struct {
	def   Bound
	zones map[string]Bound
}

// DefaultBound applies to zones with no or an unknown type.
var DefaultBound = Bound{Min: -30, Max: 10}

// NewPolicy builds a policy from a default bound and per-type bounds.
func NewPolicy(def Bound, zones map[string]Bound) (*Policy, error) {
	if def.Min > def.Max {
		return nil, fmt.Errorf("default bound: min %.2f greater than max %.2f", def.Min, def.Max)
	}
	normalized := make(map[string]Bound, len(zones))
	for zoneType, b := range zones {
		if b.Min > b.Max {
			return nil, fmt.Errorf("bound for %q: min %.2f greater than max %.2f", zoneType, b.Min, b.Max)
		}
		normalized[normalizeType(zoneType)] = b
	}
	return &Policy{def: def, zones: normalized}, nil
}

// DefaultPolicy returns the built-in bounds for common cold-chain zones.
func DefaultPolicy() *Policy {
	p, _ := NewPolicy(DefaultBound, map[string]Bound{
		"frigo":          {Min: 0, Max: 4},
		"chambre froide": {Min: 0, Max: 4},
		"congelateur":    {Min: -30, Max: -18},
	})
	return p
}

type policyFile struct {
	Default *Bound           `yaml:"default"`
	Zones   map[string]Bound `yaml:"zones"`
}

// LoadPolicy reads a YAML policy file. An empty path yields DefaultPolicy.
func LoadPolicy(path string) (*Policy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file %s: %w", path, err)
	}

	var file policyFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse policy file %s: %w", path, err)
	}
	if len(file.Zones) == 0 && file.Default == nil {
		return nil, errors.New("policy file defines no bounds")
	}

	def := DefaultBound
	if file.Default != nil {
		def = *file.Default
	}
	return NewPolicy(def, file.Zones)
}

// Bound returns the bound used for zoneType and whether it was a configured type.
func (p *Policy) Bound(zoneType string) (Bound, bool) {
	if b, ok := p.zones[normalizeType(zoneType)]; ok {
		return b, true
	}
	return p.def, false
}

// Evaluate classifies value against the bound for zoneType. Unknown types fall back
// to the default bound, so a decision is always produced.
func (p *Policy) Evaluate(zoneType string, value float64) bool {
	b, _ := p.Bound(zoneType)
	return b.Contains(value)
}

func normalizeType(zoneType string) string {
	return strings.ToLower(strings.TrimSpace(zoneType))
}
