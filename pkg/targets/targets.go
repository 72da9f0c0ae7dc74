package targets

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/arcanalyse/encounter-builder/internal/fileconf"
	"github.com/arcanalyse/encounter-builder/pkg/apiclient"
)

// Package targets contains the registry of API deployments to watch.

// DefaultID is the id of the implicit target built from api_base.
const DefaultID = "default"

// Target is one API deployment (and optionally its front-end).
type Target struct {
	ID          string            `json:"id" yaml:"id"`
	Name        string            `json:"name" yaml:"name"`
	BaseURL     string            `json:"base_url" yaml:"base_url"`
	FrontendURL string            `json:"frontend_url" yaml:"frontend_url"`
	Headers     map[string]string `json:"headers" yaml:"headers"`
}

type fileRegistry struct {
	Targets []Target `json:"targets" yaml:"targets"`
}

// Registry holds the loaded targets in file order.
type Registry struct {
	mu      sync.RWMutex
	targets []Target
	idx     map[string]Target
}

// LoadRegistry loads targets from a YAML/JSON file.
func LoadRegistry(path string) (*Registry, error) {
	var reg fileRegistry
	if err := fileconf.Load(path, "targets", &reg); err != nil {
		return nil, err
	}
	if len(reg.Targets) == 0 {
		return nil, errors.New("targets file contains no targets entries")
	}
	return NewRegistry(reg.Targets...)
}

// NewRegistry sanitizes and validates targets.
func NewRegistry(targets ...Target) (*Registry, error) {
	r := &Registry{
		targets: make([]Target, 0, len(targets)),
		idx:     make(map[string]Target, len(targets)),
	}
	for i, t := range targets {
		t = sanitizeTarget(t)
		if err := validateTarget(t); err != nil {
			return nil, fmt.Errorf("target[%d]: %w", i, err)
		}
		if _, exists := r.idx[t.ID]; exists {
			return nil, fmt.Errorf("duplicate target id %q", t.ID)
		}
		r.targets = append(r.targets, t)
		r.idx[t.ID] = t
	}
	return r, nil
}

// DefaultRegistry holds the single target built from the configured base address.
func DefaultRegistry(apiBase string) (*Registry, error) {
	return NewRegistry(Target{ID: DefaultID, Name: "Arcanalyse API", BaseURL: apiBase})
}

// All returns a copy of the targets.
func (r *Registry) All() []Target {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Target, len(r.targets))
	copy(out, r.targets)
	return out
}

// ByID returns the target with the given id, if loaded.
func (r *Registry) ByID(id string) (Target, bool) {
	if r == nil {
		return Target{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.idx[strings.TrimSpace(id)]
	return t, ok
}

func sanitizeTarget(t Target) Target {
	fileconf.Trim(&t.ID, &t.Name, &t.BaseURL, &t.FrontendURL)
	t.BaseURL = apiclient.NormalizeBase(t.BaseURL)
	t.Headers = fileconf.Headers(t.Headers)
	return t
}

func validateTarget(t Target) error {
	if t.ID == "" {
		return errors.New("id is required")
	}
	if t.Name == "" {
		return fmt.Errorf("name is required for target %q", t.ID)
	}
	if t.BaseURL == "" {
		return fmt.Errorf("base_url is required for target %q", t.ID)
	}
	return nil
}
