package internal

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// ConstraintRegistry holds globally-registered parameter patterns,
// consulted for any captured parameter that has no route-level constraint.
// The registry is injected into each Matcher instead of living in shared
// package state, so independent routers and tests stay isolated.
//
// Registration happens at startup; the registry is read-only once requests
// are served.
type ConstraintRegistry struct {
	patterns map[string]*regexp.Regexp
}

// NewConstraintRegistry creates an empty registry.
func NewConstraintRegistry() *ConstraintRegistry {
	return &ConstraintRegistry{patterns: make(map[string]*regexp.Regexp)}
}

// Pattern registers a global constraint for the named parameter.
// The pattern must compile; failures are definition-time panics.
func (reg *ConstraintRegistry) Pattern(name, pattern string) {
	reg.patterns[name] = regexp.MustCompile(pattern)
}

func (reg *ConstraintRegistry) get(name string) (*regexp.Regexp, bool) {
	re, ok := reg.patterns[name]
	return re, ok
}

// Outcome distinguishes the three results of a lookup: a match, no route
// for the path at all (404), or a path that only matches under different
// HTTP methods (405). Lookup never returns errors for missing routes.
type Outcome int

const (
	// Matched: a route matched; Route and Params are set.
	Matched Outcome = iota

	// NotFound: no registered template matches the path.
	NotFound

	// MethodMismatch: the path matches at least one route, but none under
	// the requested method; Allowed lists the methods that would match.
	MethodMismatch
)

// Lookup is the result of matching one request against the route table.
type Lookup struct {
	Route   *RouteDefinition
	Params  map[string]string
	Outcome Outcome

	// Allowed is the sorted set of methods that match the path, populated
	// for MethodMismatch.
	Allowed []string
}

// Matcher resolves (method, path, hostname) to a route definition and its
// captured parameters. The lookup structure is built once from the
// flattened route list during startup and is immutable afterwards, so it
// is shared across concurrent requests without locking.
//
// Template precedence is deterministic and independent of registration
// order: segments are matched left to right, preferring literal edges,
// then mixed literal/parameter edges, then parameter edges, then
// wildcards, with backtracking. A candidate whose parameter constraints
// fail does not abort the lookup; the search continues with the next
// candidate.
type Matcher struct {
	registry     *ConstraintRegistry
	plain        *node
	exactDomains map[string]*domainEntry
	paramDomains []*domainEntry
}

type domainEntry struct {
	pattern string
	root    *node
}

// node is one segment position in the lookup tree.
type node struct {
	static    map[string]*node
	mixed     []*mixedEdge
	param     *node
	entries   []*routeEntry // routes terminating at this node
	wildcards []*routeEntry // wildcard routes anchored at this node
}

// mixedEdge matches segments that combine literals and parameters, like
// "{id}.txt" or "@{scope}". Keyed by the raw template segment so identical
// templates share a child.
type mixedEdge struct {
	raw   string
	re    *regexp.Regexp
	child *node
}

// routeEntry is a registered route at its terminal tree position.
// paramNames lists, in capture order, the names for the positional values
// collected while descending the tree.
type routeEntry struct {
	route        *RouteDefinition
	methods      map[string]struct{}
	paramNames   []string
	wildcardName string
}

// NewMatcher creates a matcher using the given constraint registry.
func NewMatcher(registry *ConstraintRegistry) *Matcher {
	if registry == nil {
		registry = NewConstraintRegistry()
	}
	return &Matcher{
		registry:     registry,
		plain:        newNode(),
		exactDomains: make(map[string]*domainEntry),
	}
}

func newNode() *node {
	return &node{static: make(map[string]*node)}
}

// Register inserts one flattened route definition into the lookup
// structure. Registration is single-threaded and completes before any
// request is served.
func (m *Matcher) Register(rd *RouteDefinition) {
	root := m.plain
	var domainParams []string
	if rd.domain != "" {
		root = m.domainEntry(rd.domain).root
		domainParams = domainParamNames(rd.domain)
	}

	segs := splitPath(rd.path)
	entry := &routeEntry{
		route:      rd,
		methods:    make(map[string]struct{}, len(rd.methods)),
		paramNames: domainParams,
	}
	for _, method := range rd.methods {
		entry.methods[method] = struct{}{}
	}

	cur := root
	for _, seg := range segs {
		phs := placeholders(seg)

		// Trailing wildcard segment anchors the route at the current node.
		if len(phs) == 1 && phs[0].wildcard {
			entry.wildcardName = phs[0].name
			cur.wildcards = append(cur.wildcards, entry)
			return
		}

		switch {
		case len(phs) == 0:
			next, ok := cur.static[seg]
			if !ok {
				next = newNode()
				cur.static[seg] = next
			}
			cur = next
		case len(phs) == 1 && seg == "{"+phs[0].name+"}":
			entry.paramNames = append(entry.paramNames, phs[0].name)
			if cur.param == nil {
				cur.param = newNode()
			}
			cur = cur.param
		default:
			for _, ph := range phs {
				entry.paramNames = append(entry.paramNames, ph.name)
			}
			cur = cur.mixedChild(seg)
		}
	}
	cur.entries = append(cur.entries, entry)
}

// mixedChild finds or creates the edge for a literal/parameter segment.
func (n *node) mixedChild(seg string) *node {
	for _, e := range n.mixed {
		if e.raw == seg {
			return e.child
		}
	}
	e := &mixedEdge{
		raw:   seg,
		re:    compileSegment(seg),
		child: newNode(),
	}
	n.mixed = append(n.mixed, e)
	return e.child
}

// compileSegment turns a template segment into an anchored regexp where
// each placeholder captures a non-empty run of characters.
func compileSegment(seg string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("^")
	last := 0
	for _, loc := range placeholderRe.FindAllStringIndex(seg, -1) {
		b.WriteString(regexp.QuoteMeta(seg[last:loc[0]]))
		b.WriteString("(.+?)")
		last = loc[1]
	}
	b.WriteString(regexp.QuoteMeta(seg[last:]))
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}

// domainEntry finds or creates the tree for a domain pattern.
func (m *Matcher) domainEntry(pattern string) *domainEntry {
	normalized := strings.ToLower(pattern)

	if len(domainParamNames(normalized)) == 0 {
		if e, ok := m.exactDomains[normalized]; ok {
			return e
		}
		e := &domainEntry{pattern: normalized, root: newNode()}
		m.exactDomains[normalized] = e
		return e
	}

	for _, e := range m.paramDomains {
		if e.pattern == normalized {
			return e
		}
	}
	e := &domainEntry{pattern: normalized, root: newNode()}
	m.paramDomains = append(m.paramDomains, e)
	return e
}

// domainParamNames returns the capture names of a domain pattern, one per
// "{name}" label, in label order.
func domainParamNames(pattern string) []string {
	var names []string
	for _, part := range strings.Split(pattern, ".") {
		phs := placeholders(part)
		if len(phs) == 1 && part == "{"+phs[0].name+"}" {
			names = append(names, phs[0].name)
		}
	}
	return names
}

// Lookup resolves a request to a route. host may include a port; it is
// stripped before matching, and matching is case-insensitive.
func (m *Matcher) Lookup(method, path, host string) Lookup {
	segs := splitPath(path)
	hostname := normalizeHost(host)

	st := &matchState{
		method:   method,
		registry: m.registry,
		allowed:  make(map[string]struct{}),
	}

	// Exact domains first, then parameterized domains in registration
	// order, then domain-agnostic routes.
	if e, ok := m.exactDomains[hostname]; ok {
		if e.root.search(segs, nil, st) {
			return st.result()
		}
	}
	for _, e := range m.paramDomains {
		captures, ok := matchDomain(e.pattern, hostname)
		if !ok {
			continue
		}
		if e.root.search(segs, captures, st) {
			return st.result()
		}
	}
	if m.plain.search(segs, nil, st) {
		return st.result()
	}

	if len(st.allowed) > 0 {
		allowed := make([]string, 0, len(st.allowed))
		for method := range st.allowed {
			allowed = append(allowed, method)
		}
		sort.Strings(allowed)
		return Lookup{Outcome: MethodMismatch, Allowed: allowed}
	}
	return Lookup{Outcome: NotFound}
}

// matchDomain matches a hostname against a parameterized domain pattern,
// returning the captured labels in order.
func matchDomain(pattern, hostname string) ([]string, bool) {
	pparts := strings.Split(pattern, ".")
	hparts := strings.Split(hostname, ".")
	if len(pparts) != len(hparts) {
		return nil, false
	}
	var captures []string
	for i, pp := range pparts {
		phs := placeholders(pp)
		if len(phs) == 1 && pp == "{"+phs[0].name+"}" {
			if hparts[i] == "" {
				return nil, false
			}
			captures = append(captures, hparts[i])
			continue
		}
		if pp != hparts[i] {
			return nil, false
		}
	}
	return captures, true
}

// matchState accumulates the search outcome: the winning entry with its
// positional captures, and the allowed-method set for 405 reporting.
type matchState struct {
	method   string
	registry *ConstraintRegistry

	found         *routeEntry
	captures      []string
	wildcardValue string
	hasWildcard   bool

	allowed map[string]struct{}
}

// search walks the tree depth-first with backtracking. Returns true once
// a route matching method and constraints is found.
func (n *node) search(segs []string, captures []string, st *matchState) bool {
	if len(segs) == 0 {
		for _, entry := range n.entries {
			if st.tryEntry(entry, captures, "", false) {
				return true
			}
		}
		return false
	}

	seg := segs[0]

	if next, ok := n.static[seg]; ok {
		if next.search(segs[1:], captures, st) {
			return true
		}
	}
	for _, e := range n.mixed {
		sub := e.re.FindStringSubmatch(seg)
		if sub == nil {
			continue
		}
		if e.child.search(segs[1:], append(captures, sub[1:]...), st) {
			return true
		}
	}
	if n.param != nil && seg != "" {
		if n.param.search(segs[1:], append(captures, seg), st) {
			return true
		}
	}
	for _, entry := range n.wildcards {
		remainder := strings.Join(segs, "/")
		if st.tryEntry(entry, captures, remainder, true) {
			return true
		}
	}
	return false
}

// tryEntry validates an entry's constraints against the captured values.
// Entries whose constraints pass contribute their methods to the allowed
// set even when the request method differs, so the caller can report 405
// with an accurate Allow header.
func (st *matchState) tryEntry(entry *routeEntry, captures []string, wildcard string, hasWildcard bool) bool {
	if hasWildcard != (entry.wildcardName != "") {
		return false
	}
	if len(captures) != len(entry.paramNames) {
		return false
	}

	for i, name := range entry.paramNames {
		if !st.checkConstraint(entry.route, name, captures[i]) {
			return false
		}
	}
	if hasWildcard && !st.checkConstraint(entry.route, entry.wildcardName, wildcard) {
		return false
	}

	for method := range entry.methods {
		st.allowed[method] = struct{}{}
	}
	if _, ok := entry.methods[st.method]; !ok {
		return false
	}

	st.found = entry
	st.captures = captures
	st.wildcardValue = wildcard
	st.hasWildcard = hasWildcard
	return true
}

// checkConstraint applies the route-level constraint for name, falling
// back to the registry's global pattern. Unconstrained parameters always
// pass.
func (st *matchState) checkConstraint(rd *RouteDefinition, name, value string) bool {
	if re, ok := rd.Constraint(name); ok {
		return re.MatchString(value)
	}
	if re, ok := st.registry.get(name); ok {
		return re.MatchString(value)
	}
	return true
}

func (st *matchState) result() Lookup {
	entry := st.found
	params := make(map[string]string, len(entry.paramNames)+1)
	for i, name := range entry.paramNames {
		params[name] = st.captures[i]
	}
	if st.hasWildcard {
		params[entry.wildcardName] = st.wildcardValue
	}
	return Lookup{Route: entry.route, Params: params, Outcome: Matched}
}

// splitPath splits a request path or template into decoded segments.
// "/" and "" yield no segments. Splitting happens before decoding, so an
// encoded slash (%2F) stays inside its segment and round-trips through
// generated URLs.
func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	parts := strings.Split(trimmed, "/")
	for i, p := range parts {
		if decoded, err := url.PathUnescape(p); err == nil {
			parts[i] = decoded
		}
	}
	return parts
}

// normalizeHost strips the port and lowercases the hostname. IPv6 literal
// brackets are preserved.
func normalizeHost(host string) string {
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		if !strings.Contains(host[idx:], "]") {
			host = host[:idx]
		}
	}
	return strings.ToLower(host)
}
