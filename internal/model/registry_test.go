package model

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestSourceSpecAllows(t *testing.T) {
	open := UnrestrictedSource("http://legacy")
	if !open.Unrestricted() || !open.Allows("anyone") || !open.Allows("") {
		t.Error("expected unrestricted source to allow every owner")
	}
	if open.Owners() != nil {
		t.Errorf("expected no owner list, got %v", open.Owners())
	}

	restricted := RestrictedSource("http://a", "producer", " producer3 ", "")
	if restricted.Unrestricted() {
		t.Error("expected restricted source")
	}
	if !restricted.Allows("producer") || !restricted.Allows("producer3") {
		t.Error("expected listed owners to be allowed")
	}
	if restricted.Allows("other") {
		t.Error("expected unlisted owner to be rejected")
	}
	if want := []string{"producer", "producer3"}; !reflect.DeepEqual(restricted.Owners(), want) {
		t.Errorf("Owners() = %v, want %v", restricted.Owners(), want)
	}

	empty := RestrictedSource("http://b")
	if empty.Unrestricted() || empty.Allows("producer") {
		t.Error("expected source without owners to allow nothing")
	}
}

func TestNewRegistryOrder(t *testing.T) {
	reg, err := NewRegistry("http://legacy",
		RestrictedSource("http://b", "x"),
		RestrictedSource("http://a", "y"),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sources := reg.Sources()
	if len(sources) != 3 {
		t.Fatalf("expected 3 sources, got %d", len(sources))
	}
	got := []string{sources[0].Location, sources[1].Location, sources[2].Location}
	if want := []string{"http://legacy", "http://b", "http://a"}; !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
	if !sources[0].Unrestricted() {
		t.Error("expected legacy source first and unrestricted")
	}

	// Sources returns a copy.
	sources[0] = RestrictedSource("mutated")
	if reg.Sources()[0].Location != "http://legacy" {
		t.Error("registry was mutated through Sources")
	}
}

func TestNewRegistryRejectsSecondUnrestricted(t *testing.T) {
	if _, err := NewRegistry("http://legacy", UnrestrictedSource("http://other")); err == nil {
		t.Error("expected error for a second unrestricted source")
	}
}

func TestLoadRegistry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "producers.yaml")
	if err := os.WriteFile(path, []byte(`
producers:
  - url: http://producer-a/systems
    owners: [producer, producer3]
  - url: http://producer-b/systems
    owners: []
`), 0o644); err != nil {
		t.Fatal(err)
	}

	reg, err := LoadRegistry(RegistryConfig{
		LegacyProducerURL: "http://legacy/systems",
		File:              path,
		Producers:         []ProducerConfig{{URL: "http://inline/systems", Owners: []string{"inline"}}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reg.Len() != 4 {
		t.Fatalf("expected 4 sources, got %d", reg.Len())
	}

	sources := reg.Sources()
	got := []string{sources[0].Location, sources[1].Location, sources[2].Location, sources[3].Location}
	want := []string{"http://legacy/systems", "http://inline/systems", "http://producer-a/systems", "http://producer-b/systems"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
	if !reflect.DeepEqual(sources[2].Owners(), []string{"producer", "producer3"}) {
		t.Errorf("unexpected owners %v", sources[2].Owners())
	}
	if sources[3].Unrestricted() || sources[3].Allows("producer") {
		t.Error("expected producer with empty owner list to allow nothing")
	}
}

func TestLoadRegistryMissingFile(t *testing.T) {
	reg, err := LoadRegistry(RegistryConfig{File: filepath.Join(t.TempDir(), "absent.yaml")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reg.Len() != 0 {
		t.Errorf("expected empty registry, got %d sources", reg.Len())
	}
}

func TestLoadRegistryBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "producers.yaml")
	if err := os.WriteFile(path, []byte("producers: [:"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadRegistry(RegistryConfig{File: path}); err == nil {
		t.Error("expected error for malformed registry file")
	}
}
