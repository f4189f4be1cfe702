// Package pattern recognizes values that belong to a semantic type narrower
// than generic text, such as date-times.
package pattern

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// Shape is the database-side form of a pattern. ERE is a POSIX extended
// regular expression anchored on both ends; Globs is an equivalent set of
// whole-string GLOB patterns for databases without REGEXP.
type Shape struct {
	ERE   string
	Globs []string
}

// Matcher tests whether a value's textual form fits a semantic type and names
// the declared column type that type specializes to.
type Matcher interface {
	Name() string
	Match(text string) bool
	Target() string
	Shape() Shape
}

// Registry is an ordered set of matchers. Lookups are first-match-wins in
// registration order.
type Registry struct {
	mu       sync.RWMutex
	matchers []Matcher
}

// NewRegistry returns a registry holding ms in order.
func NewRegistry(ms ...Matcher) (*Registry, error) {
	r := &Registry{}
	for _, m := range ms {
		if err := r.Register(m); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Default returns a registry with the built-in matchers.
func Default() *Registry {
	return &Registry{matchers: []Matcher{DateTime()}}
}

// Register appends m. Names are unique, case-insensitively.
func (r *Registry) Register(m Matcher) error {
	if m == nil {
		return fmt.Errorf("matcher must not be nil")
	}
	name := strings.TrimSpace(m.Name())
	if name == "" {
		return fmt.Errorf("matcher name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.matchers {
		if strings.EqualFold(existing.Name(), name) {
			return fmt.Errorf("matcher %q already registered", name)
		}
	}
	r.matchers = append(r.matchers, m)
	return nil
}

// First returns the first matcher accepting text.
func (r *Registry) First(text string) (Matcher, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.matchers {
		if m.Match(text) {
			return m, true
		}
	}
	return nil, false
}

// ForTarget returns the first matcher specializing to the declared type typ.
func (r *Registry) ForTarget(typ string) (Matcher, bool) {
	typ = strings.TrimSpace(typ)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.matchers {
		if strings.EqualFold(m.Target(), typ) {
			return m, true
		}
	}
	return nil, false
}

// Lookup returns the matcher registered under name.
func (r *Registry) Lookup(name string) (Matcher, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.matchers {
		if strings.EqualFold(m.Name(), name) {
			return m, true
		}
	}
	return nil, false
}

// Names lists registered matcher names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.matchers))
	for _, m := range r.matchers {
		out = append(out, m.Name())
	}
	return out
}

// Select builds a registry holding only the named matchers of r, in the order given.
func (r *Registry) Select(names []string) (*Registry, error) {
	out := &Registry{}
	for _, name := range names {
		m, ok := r.Lookup(strings.TrimSpace(name))
		if !ok {
			return nil, fmt.Errorf("unknown matcher %q", name)
		}
		if err := out.Register(m); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// regexMatcher is a Matcher backed by a single expression shared between Go
// and the database.
type regexMatcher struct {
	name   string
	target string
	shape  Shape
	re     *regexp.Regexp
}

// NewRegexMatcher builds a matcher from an anchored ERE. The expression must
// be valid both as Go RE2 and as POSIX ERE.
func NewRegexMatcher(name, target string, shape Shape) (Matcher, error) {
	re, err := regexp.Compile(shape.ERE)
	if err != nil {
		return nil, fmt.Errorf("compile matcher %q: %w", name, err)
	}
	if !strings.HasPrefix(shape.ERE, "^") || !strings.HasSuffix(shape.ERE, "$") {
		return nil, fmt.Errorf("matcher %q: expression must be anchored", name)
	}
	return &regexMatcher{name: name, target: target, shape: shape, re: re}, nil
}

func (m *regexMatcher) Name() string           { return m.name }
func (m *regexMatcher) Target() string         { return m.target }
func (m *regexMatcher) Shape() Shape           { return m.shape }
func (m *regexMatcher) Match(text string) bool { return m.re.MatchString(text) }
