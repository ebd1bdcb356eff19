// Package output provides formatters for displaying scan, check, plan,
// and sync reports in various output formats (pretty, plain, json).
//
// The package uses a registry pattern to allow registration of multiple
// formatter implementations that can be selected at runtime.
//
// Basic usage:
//
//	formatter, err := output.Get("pretty")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, report); err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(buf.String())
package output

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"github.com/modpack-tools/loadout/pkg/loadout/types"
)

// Report is the union of everything the CLI can print. Exactly one of
// the report fields is set per invocation.
type Report struct {
	// Profile is the profile the report belongs to.
	Profile string `json:"profile,omitempty"`

	// Scan is a local folder scan result.
	Scan *types.ScanReport `json:"scan,omitempty"`

	// Drift is an offline verification result.
	Drift *types.DriftReport `json:"drift,omitempty"`

	// Plan is a computed reconciliation plan.
	Plan *types.Plan `json:"plan,omitempty"`

	// Sync is a completed sync or repair run.
	Sync *types.SyncReport `json:"sync,omitempty"`
}

// Formatter is the interface that all output formatters must implement.
type Formatter interface {
	// Format writes the formatted report to the buffer.
	Format(w *bytes.Buffer, r *Report) error
}

// FormatterFactory is a function that creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory to the registry, replacing any
// existing formatter with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns a sorted list of all registered formatter names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}
