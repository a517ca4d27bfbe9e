package archivable

import (
	"reflect"
	"slices"
	"sync"
)

var (
	policies   = make(map[reflect.Type]*Policy)
	hookSets   = make(map[reflect.Type]any)
	policiesMu sync.RWMutex
)

// Define returns the cached policy for T or builds it from decl.
//
// A policy is computed once per type and never changes afterwards. Calling
// Define again with a declaration that yields the same lists and file names
// returns the cached policy; a conflicting declaration fails with
// ErrInvalidDeclaration.
func Define[T any](decl Declaration) (*Policy, error) {
	typ := reflect.TypeFor[T]()

	policy, err := BuildPolicy(typ.Name(), decl)
	if err != nil {
		return nil, err
	}

	// Fast path: read-lock cache check
	policiesMu.RLock()
	cached, ok := policies[typ]
	policiesMu.RUnlock()
	if ok {
		return checkRedefinition(cached, policy)
	}

	// Slow path: cache with write-lock
	policiesMu.Lock()
	defer policiesMu.Unlock()

	// Double-check pattern
	if cached, ok := policies[typ]; ok {
		return checkRedefinition(cached, policy)
	}

	policies[typ] = policy
	return policy, nil
}

func checkRedefinition(cached, policy *Policy) (*Policy, error) {
	if !cached.equal(policy) {
		return nil, newConfigError(ErrInvalidDeclaration, cached.name, "",
			"declaration conflicts with the policy already defined for the type")
	}
	return cached, nil
}

func (p *Policy) equal(o *Policy) bool {
	return p.name == o.name &&
		slices.Equal(p.exclude, o.exclude) &&
		slices.Equal(p.config, o.config) &&
		p.objectFile == o.objectFile &&
		p.configFile == o.configFile
}

// PolicyFor returns the policy defined for T, if any.
func PolicyFor[T any]() (*Policy, bool) {
	policiesMu.RLock()
	defer policiesMu.RUnlock()
	p, ok := policies[reflect.TypeFor[T]()]
	return p, ok
}

// hookSet is the hook registry of one type, shared by all its archivers.
type hookSet[T any] struct {
	mu    sync.RWMutex
	hooks map[string]Hook[T]
}

// hooksFor returns the hook registry of T, creating it on first use.
func hooksFor[T any]() *hookSet[T] {
	typ := reflect.TypeFor[T]()

	policiesMu.RLock()
	set, ok := hookSets[typ]
	policiesMu.RUnlock()
	if ok {
		return set.(*hookSet[T])
	}

	policiesMu.Lock()
	defer policiesMu.Unlock()
	if set, ok := hookSets[typ]; ok {
		return set.(*hookSet[T])
	}
	hs := &hookSet[T]{hooks: make(map[string]Hook[T])}
	hookSets[typ] = hs
	return hs
}

func (s *hookSet[T]) set(attribute string, h Hook[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hooks := make(map[string]Hook[T], len(s.hooks)+1)
	for k, v := range s.hooks {
		hooks[k] = v
	}
	hooks[attribute] = h
	s.hooks = hooks
}

// snapshot returns the current hooks. The map is never mutated in place.
func (s *hookSet[T]) snapshot() map[string]Hook[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hooks
}

// RegisterHook registers the dump and restore functions for an excluded
// attribute of T. Every archiver of T sees the hook.
func RegisterHook[T any](attribute string, h Hook[T]) {
	hooksFor[T]().set(attribute, h)
}

// Reset clears the policy and hook registries.
// Archivers created earlier keep the policy and hooks they were built with.
// This is primarily useful for test isolation.
func Reset() {
	policiesMu.Lock()
	defer policiesMu.Unlock()
	policies = make(map[reflect.Type]*Policy)
	hookSets = make(map[reflect.Type]any)
}
