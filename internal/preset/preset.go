// Package preset loads named crosshair configurations from YAML.
package preset

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/inamate/crosshair/internal/crosshair"
	"github.com/inamate/crosshair/internal/geometry"
)

var ErrUnknownPreset = errors.New("unknown preset")

// File is the on-disk preset layout. Defaults is layered under every preset.
type File struct {
	Defaults crosshair.Config            `yaml:"defaults"`
	Presets  map[string]crosshair.Config `yaml:"presets"`
}

// Load reads, defaults and validates a preset file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read preset file %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("preset file %s: %w", path, err)
	}
	return f, nil
}

// Parse decodes preset YAML.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	applyDefaults(&f)
	if err := validate(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

func applyDefaults(f *File) {
	if f.Presets == nil {
		f.Presets = map[string]crosshair.Config{}
	}
	for name, cfg := range f.Presets {
		merged := f.Defaults.Merge(cfg)
		if merged.Label == "" {
			merged.Label = name
		}
		f.Presets[name] = merged
	}
}

func validate(f *File) error {
	grid := geometry.DefaultGrid()
	for name, cfg := range f.Presets {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("preset with empty name")
		}
		if _, err := cfg.State(grid, geometry.Point{}); err != nil {
			return fmt.Errorf("preset %q: %w", name, err)
		}
	}
	return nil
}

// Registry holds the current preset set. It is safe for concurrent use and
// is swapped wholesale on reload.
type Registry struct {
	mu      sync.RWMutex
	presets map[string]crosshair.Config
}

func NewRegistry(f *File) *Registry {
	r := &Registry{}
	r.Replace(f)
	return r
}

// Replace swaps in the presets of f. A nil f empties the registry.
func (r *Registry) Replace(f *File) {
	presets := map[string]crosshair.Config{}
	if f != nil {
		for name, cfg := range f.Presets {
			presets[name] = cfg
		}
	}
	r.mu.Lock()
	r.presets = presets
	r.mu.Unlock()
}

// Get returns the named preset.
func (r *Registry) Get(name string) (crosshair.Config, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.presets[name]
	if !ok {
		return crosshair.Config{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return cfg, nil
}

// Names returns the preset names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.presets))
	for name := range r.presets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Resolve layers over onto the named preset. An empty name returns over as is.
func (r *Registry) Resolve(name string, over crosshair.Config) (crosshair.Config, error) {
	if name == "" {
		return over, nil
	}
	base, err := r.Get(name)
	if err != nil {
		return crosshair.Config{}, err
	}
	return base.Merge(over), nil
}
