package model

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// SourceSpec is one producer endpoint in the registry.
type SourceSpec struct {
	Location string

	// allowedOwners is nil for the unrestricted source.
	allowedOwners map[string]struct{}
}

// UnrestrictedSource returns a spec whose records pass regardless of owner.
func UnrestrictedSource(location string) SourceSpec {
	return SourceSpec{Location: location}
}

// RestrictedSource returns a spec that only contributes records owned by one
// of owners. With no owners it contributes nothing.
func RestrictedSource(location string, owners ...string) SourceSpec {
	set := make(map[string]struct{}, len(owners))
	for _, o := range owners {
		o = strings.TrimSpace(o)
		if o != "" {
			set[o] = struct{}{}
		}
	}
	return SourceSpec{Location: location, allowedOwners: set}
}

// Unrestricted reports whether the spec skips owner filtering.
func (s SourceSpec) Unrestricted() bool {
	return s.allowedOwners == nil
}

// Allows reports whether a record with the given owner code may come from s.
func (s SourceSpec) Allows(owner string) bool {
	if s.allowedOwners == nil {
		return true
	}
	_, ok := s.allowedOwners[owner]
	return ok
}

// Owners returns the allowed owner codes, sorted. Nil for the unrestricted source.
func (s SourceSpec) Owners() []string {
	if s.allowedOwners == nil {
		return nil
	}
	owners := make([]string, 0, len(s.allowedOwners))
	for o := range s.allowedOwners {
		owners = append(owners, o)
	}
	sort.Strings(owners)
	return owners
}

func (s SourceSpec) String() string {
	if s.Unrestricted() {
		return s.Location + " (any owner)"
	}
	return fmt.Sprintf("%s (%s)", s.Location, strings.Join(s.Owners(), ","))
}

// Registry is the ordered set of producers queried by every cycle. It is
// built once at startup and never changes afterwards.
type Registry struct {
	sources []SourceSpec
}

// NewRegistry builds a registry. The unrestricted location, when not empty,
// comes first; restricted sources follow in the given order.
func NewRegistry(unrestricted string, restricted ...SourceSpec) (Registry, error) {
	var sources []SourceSpec
	if loc := strings.TrimSpace(unrestricted); loc != "" {
		sources = append(sources, UnrestrictedSource(loc))
	}
	for _, s := range restricted {
		if s.Unrestricted() {
			return Registry{}, fmt.Errorf("producer %s: only the legacy producer may be unrestricted", s.Location)
		}
		if strings.TrimSpace(s.Location) == "" {
			return Registry{}, fmt.Errorf("producer with owners %v has no url", s.Owners())
		}
		sources = append(sources, s)
	}
	return Registry{sources: sources}, nil
}

// Sources returns the sources in processing order.
func (r Registry) Sources() []SourceSpec {
	out := make([]SourceSpec, len(r.sources))
	copy(out, r.sources)
	return out
}

// Len returns the number of sources.
func (r Registry) Len() int {
	return len(r.sources)
}

// ProducerConfig is a restricted producer as written in config or in the
// registry file.
type ProducerConfig struct {
	URL    string   `yaml:"url" mapstructure:"url"`
	Owners []string `yaml:"owners" mapstructure:"owners"`
}

type registryFile struct {
	Producers []ProducerConfig `yaml:"producers"`
}

// ReadRegistryFile reads the producer list from a YAML file. A missing file
// yields an empty list.
func ReadRegistryFile(path string) ([]ProducerConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read registry: %w", err)
	}
	var f registryFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	return f.Producers, nil
}

// LoadRegistry builds the registry from configuration: the legacy producer,
// then inline producers, then those listed in the registry file.
func LoadRegistry(cfg RegistryConfig) (Registry, error) {
	producers := append([]ProducerConfig(nil), cfg.Producers...)
	if cfg.File != "" {
		fromFile, err := ReadRegistryFile(cfg.File)
		if err != nil {
			return Registry{}, err
		}
		producers = append(producers, fromFile...)
	}

	specs := make([]SourceSpec, 0, len(producers))
	for _, p := range producers {
		specs = append(specs, RestrictedSource(strings.TrimSpace(p.URL), p.Owners...))
	}
	return NewRegistry(cfg.LegacyProducerURL, specs...)
}
