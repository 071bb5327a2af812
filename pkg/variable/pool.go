// Package variable implements the per-slot Variable Pool: a typed, named
// store for parsed values, plus a display-map projection for UI snapshots.
package variable

import (
	"sort"
	"sync"

	"github.com/ormasoftchile/catengine/pkg/model"
)

// Pool is a name -> Variable mapping. Safe for concurrent use; the step
// executor is the only writer for a given slot, but readers (UI snapshot
// serialization, console inspection) may run concurrently.
type Pool struct {
	mu     sync.RWMutex
	values map[string]model.Variable
}

// New creates an empty pool.
func New() *Pool {
	return &Pool{values: make(map[string]model.Variable)}
}

// Set stores value under name, overwriting any prior value.
func (p *Pool) Set(name string, value model.Variable) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[name] = value
}

// Get returns the variable under name, if present.
func (p *Pool) Get(name string) (model.Variable, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.values[name]
	return v, ok
}

// Remove deletes name from the pool. No-op if absent.
func (p *Pool) Remove(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.values, name)
}

// Clear empties the pool.
func (p *Pool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values = make(map[string]model.Variable)
}

// Keys returns all names currently stored, sorted for determinism.
func (p *Pool) Keys() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	keys := make([]string, 0, len(p.values))
	for k := range p.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DisplayEntry is one row of a display map: a textual value, an optional
// unit, and a type tag.
type DisplayEntry struct {
	Value string `json:"value"`
	Unit  string `json:"unit,omitempty"`
	Type  string `json:"type"`
}

// ToDisplayMap projects the pool into a UI-friendly map. Floats render
// with six fractional digits (via Variable.AsString, which already does
// this); unit is left blank since the pool itself carries no unit
// metadata.
func (p *Pool) ToDisplayMap() map[string]DisplayEntry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]DisplayEntry, len(p.values))
	for name, v := range p.values {
		out[name] = DisplayEntry{
			Value: v.AsString(),
			Type:  v.Kind.String(),
		}
	}
	return out
}
