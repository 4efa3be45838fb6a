// Package tool exposes the anonymization pipeline stages as uniformly
// invokable capabilities. Each tool transforms an argument bag and can
// verify its own output, so a pipeline runner can chain stages and check
// each hop without knowing what the stage does.
package tool

import (
	"fmt"
	"sort"

	"github.com/cyclopcam/logs"
)

// Args is the untyped argument bag passed between tools. Tools read the
// keys they need and return a new bag with their outputs added; the input
// bag is never mutated.
type Args map[string]any

// Clone returns a shallow copy
func (a Args) Clone() Args {
	out := make(Args, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// String reads a string key, with an error naming the key when it is
// missing or of the wrong type
func (a Args) String(key string) (string, error) {
	v, ok := a[key]
	if !ok {
		return "", fmt.Errorf("missing argument '%v'", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument '%v' is %T, expected string", key, v)
	}
	return s, nil
}

// Tool is one invokable pipeline capability.
// Apply performs the work. Verify inspects a bag that Apply produced and
// returns it augmented with any verification outputs, or an error if the
// output fails the tool's own consistency checks.
type Tool interface {
	Apply(args Args) (Args, error)
	Verify(args Args) (Args, error)
}

// Registry is an explicit lookup table of tools. It is built once at
// startup and handed to whoever needs it; there is no package-level
// default registry.
type Registry struct {
	log   logs.Log
	tools map[string]Tool
}

func NewRegistry(logger logs.Log) *Registry {
	return &Registry{
		log:   logger,
		tools: map[string]Tool{},
	}
}

// Register adds a tool under name. Registering the same name twice is a
// wiring bug, not a runtime condition, so it fails loudly.
func (r *Registry) Register(name string, t Tool) error {
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool '%v' is already registered", name)
	}
	r.tools[name] = t
	r.log.Infof("Registered tool '%v'", name)
	return nil
}

// Get returns the tool registered under name
func (r *Registry) Get(name string) (Tool, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("no tool registered as '%v'", name)
	}
	return t, nil
}

// Names returns all registered tool names, sorted
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run looks up a tool, applies it, and verifies its output. This is the
// one call sites normally want; Get exists for callers that need to
// separate the phases.
func (r *Registry) Run(name string, args Args) (Args, error) {
	t, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	out, err := t.Apply(args)
	if err != nil {
		return nil, fmt.Errorf("tool '%v' failed: %w", name, err)
	}
	out, err = t.Verify(out)
	if err != nil {
		return nil, fmt.Errorf("tool '%v' output failed verification: %w", name, err)
	}
	return out, nil
}
