package internal

import (
	"fmt"
	"sort"
)

// Params carries the parameter values captured while matching a request
// against a route template. Values are decoded path segments; a wildcard
// parameter holds the raw trailing remainder of the path.
type Params struct {
	values   map[string]string
	declared map[string]struct{}
	strict   bool
}

// newParams wraps captured values. declared is the set of parameter names
// the route template can produce; in strict (development) mode, reading a
// name outside that set panics with a descriptive message instead of
// silently returning "".
func newParams(values map[string]string, declared map[string]struct{}, strict bool) *Params {
	if values == nil {
		values = make(map[string]string)
	}
	return &Params{values: values, declared: declared, strict: strict}
}

// Get returns the value of the named parameter, or "" if the parameter has
// no value. In strict mode, asking for a parameter the matched route never
// declares is a programming error and panics.
func (p *Params) Get(name string) string {
	if p.strict {
		if _, ok := p.declared[name]; !ok {
			panic(fmt.Sprintf(
				"anvil: route parameter %q is not declared by the matched route (declared: %v)",
				name, p.declaredNames(),
			))
		}
	}
	return p.values[name]
}

// Lookup returns the value of the named parameter and whether it was
// captured. Lookup never panics, even in strict mode.
func (p *Params) Lookup(name string) (string, bool) {
	v, ok := p.values[name]
	return v, ok
}

// Len returns the number of captured parameters.
func (p *Params) Len() int {
	return len(p.values)
}

// Map returns a copy of all captured parameters.
func (p *Params) Map() map[string]string {
	out := make(map[string]string, len(p.values))
	for k, v := range p.values {
		out[k] = v
	}
	return out
}

func (p *Params) declaredNames() []string {
	names := make([]string, 0, len(p.declared))
	for name := range p.declared {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
