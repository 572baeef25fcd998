package controls

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

var (
	// ErrUnknownControl is returned when a tag has no registered control.
	ErrUnknownControl = errors.New("controls: unknown control")
	// ErrInvalidDescriptor is returned by Register for an empty tag or a nil
	// control function.
	ErrInvalidDescriptor = errors.New("controls: invalid descriptor")
)

// UnknownControlError names the tag that failed to resolve.
type UnknownControlError struct {
	Tag string
}

func (e *UnknownControlError) Error() string {
	return fmt.Sprintf("controls: control %q is not registered", e.Tag)
}

func (e *UnknownControlError) Unwrap() error { return ErrUnknownControl }

// Script describes JavaScript a control needs emitted once per page.
type Script struct {
	Src    string
	Type   string
	Inline string
	Async  bool
	Defer  bool
	Module bool
	Attrs  map[string]string
}

// Descriptor bundles a control with its value decoder and asset dependencies.
type Descriptor struct {
	Name    string
	Control Control
	Decode  Decoder
	// Masked controls never render their value back, so hosts read an empty
	// submission as "unchanged".
	Masked      bool
	Stylesheets []string
	Scripts     []Script
}

// Registry maps control tags to descriptors. Lookups return copies, so callers
// cannot mutate registered entries.
type Registry struct {
	mu       sync.RWMutex
	controls map[string]Descriptor
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		controls: make(map[string]Descriptor),
	}
}

// Clone returns a deep copy of the registry. Builders clone before every
// registration so forms created earlier keep their snapshot.
func (r *Registry) Clone() *Registry {
	cloned := New()
	if r == nil {
		return cloned
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	for tag, descriptor := range r.controls {
		cloned.controls[tag] = cloneDescriptor(descriptor)
	}
	return cloned
}

// Register associates a descriptor with tag. Tags are compared exactly after
// trimming surrounding space, so "Text" and "text" are distinct controls. An
// existing entry is replaced.
func (r *Registry) Register(tag string, descriptor Descriptor) error {
	if tag = normalize(tag); tag == "" {
		return fmt.Errorf("%w: tag is required", ErrInvalidDescriptor)
	}
	if descriptor.Control == nil {
		return fmt.Errorf("%w: control for %q is nil", ErrInvalidDescriptor, tag)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	descriptor.Name = tag
	if descriptor.Decode == nil {
		descriptor.Decode = DecodeString
	}
	r.controls[tag] = cloneDescriptor(descriptor)
	return nil
}

// MustRegister mirrors Register but panics on error, simplifying default
// registry setup.
func (r *Registry) MustRegister(tag string, descriptor Descriptor) {
	if err := r.Register(tag, descriptor); err != nil {
		panic(err)
	}
}

// Lookup fetches the descriptor registered under tag.
func (r *Registry) Lookup(tag string) (Descriptor, error) {
	if r == nil {
		return Descriptor{}, &UnknownControlError{Tag: tag}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	descriptor, ok := r.controls[normalize(tag)]
	if !ok {
		return Descriptor{}, &UnknownControlError{Tag: tag}
	}
	return cloneDescriptor(descriptor), nil
}

// Has reports whether tag is registered.
func (r *Registry) Has(tag string) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.controls[normalize(tag)]
	return ok
}

// Names returns the registered tags, sorted.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.controls))
	for tag := range r.controls {
		names = append(names, tag)
	}
	slices.Sort(names)
	return names
}

// Assets resolves deduplicated stylesheets and scripts for the provided tags,
// in tag order.
func (r *Registry) Assets(tags []string) (stylesheets []string, scripts []Script) {
	if r == nil || len(tags) == 0 {
		return nil, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	seenStyles := make(map[string]struct{})
	seenScripts := make(map[string]struct{})

	for _, tag := range tags {
		descriptor, ok := r.controls[normalize(tag)]
		if !ok {
			continue
		}
		for _, href := range descriptor.Stylesheets {
			if href == "" {
				continue
			}
			if _, exists := seenStyles[href]; exists {
				continue
			}
			seenStyles[href] = struct{}{}
			stylesheets = append(stylesheets, href)
		}
		for _, script := range descriptor.Scripts {
			key := scriptKey(script)
			if _, exists := seenScripts[key]; exists {
				continue
			}
			seenScripts[key] = struct{}{}
			scripts = append(scripts, script)
		}
	}
	return stylesheets, scripts
}

func cloneDescriptor(src Descriptor) Descriptor {
	clone := Descriptor{
		Name:        src.Name,
		Control:     src.Control,
		Decode:      src.Decode,
		Masked:      src.Masked,
		Stylesheets: slices.Clone(src.Stylesheets),
	}
	if len(src.Scripts) > 0 {
		clone.Scripts = make([]Script, len(src.Scripts))
		for idx, script := range src.Scripts {
			script.Attrs = cloneStringMap(script.Attrs)
			clone.Scripts[idx] = script
		}
	}
	return clone
}

func cloneStringMap(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for key, value := range src {
		out[key] = value
	}
	return out
}

func scriptKey(script Script) string {
	if script.Src != "" {
		return "src:" + script.Src
	}
	return "inline:" + script.Inline
}

func normalize(tag string) string {
	return strings.TrimSpace(tag)
}
