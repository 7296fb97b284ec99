package pipeline

import (
	"fmt"
	"sort"
	"sync"

	"github.com/a6b8/trackerAPI/errors"
)

// Registry holds named filters, modifiers and strategies. It is safe for
// concurrent use.
type Registry struct {
	mu         sync.RWMutex
	filters    map[string]Filter
	modifiers  map[string]Modifier
	strategies map[string]Strategy
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		filters:    make(map[string]Filter),
		modifiers:  make(map[string]Modifier),
		strategies: make(map[string]Strategy),
	}
}

// RegisterFilter stores f, replacing any filter of the same name.
func (r *Registry) RegisterFilter(f Filter) error {
	if _, err := NewFilter(f.Name, f.Fn); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filters[f.Name] = f
	return nil
}

// RegisterModifier stores m, replacing any modifier of the same name.
func (r *Registry) RegisterModifier(m Modifier) error {
	if _, err := NewModifier(m.Name, m.Fn); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modifiers[m.Name] = m
	return nil
}

// Filter returns a registered filter.
func (r *Registry) Filter(name string) (Filter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.filters[name]
	return f, ok
}

// Modifier returns a registered modifier.
func (r *Registry) Modifier(name string) (Modifier, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modifiers[name]
	return m, ok
}

// Strategy returns a registered strategy.
func (r *Registry) Strategy(name string) (Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[name]
	return s, ok
}

// StrategyNames returns the registered strategy names, sorted.
func (r *Registry) StrategyNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AddStrategy registers a named bundle. Inline references are registered
// under their own names and must not collide with an existing entry, so a
// strategy never changes what another strategy resolves to. By-name
// references must already exist. Strategies cannot be replaced.
func (r *Registry) AddStrategy(name string, filters []FilterRef, modifiers []ModifierRef) error {
	if name == "" {
		return errors.NewValidation(errors.ErrUnknownStrategy, "pipeline", "AddStrategy", "strategy name is undefined")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.strategies[name]; exists {
		return errors.NewValidation(errors.ErrDuplicateStrategy, "pipeline", "AddStrategy",
			fmt.Sprintf("Strategy \"%s\" already exists", name))
	}

	var messages []string
	inlineFilters := make(map[string]bool)
	for _, ref := range filters {
		_, exists := r.filters[ref.name]
		switch {
		case !ref.IsInline():
			if !exists {
				messages = append(messages, fmt.Sprintf("filters \"%s\" not found", ref.name))
			}
		case exists || inlineFilters[ref.name]:
			messages = append(messages, fmt.Sprintf("filters \"%s\" already exists", ref.name))
		default:
			if _, err := NewFilter(ref.inline.Name, ref.inline.Fn); err != nil {
				messages = append(messages, errors.Messages(err)...)
			}
			inlineFilters[ref.name] = true
		}
	}
	inlineModifiers := make(map[string]bool)
	for _, ref := range modifiers {
		_, exists := r.modifiers[ref.name]
		switch {
		case !ref.IsInline():
			if !exists {
				messages = append(messages, fmt.Sprintf("modifiers \"%s\" not found", ref.name))
			}
		case exists || inlineModifiers[ref.name]:
			messages = append(messages, fmt.Sprintf("modifiers \"%s\" already exists", ref.name))
		default:
			if _, err := NewModifier(ref.inline.Name, ref.inline.Fn); err != nil {
				messages = append(messages, errors.Messages(err)...)
			}
			inlineModifiers[ref.name] = true
		}
	}
	if err := errors.NewValidation(errors.ErrInvalidFilter, "pipeline", "AddStrategy", messages...); err != nil {
		return err
	}

	strategy := Strategy{
		Name:      name,
		Filters:   make([]string, 0, len(filters)),
		Modifiers: make([]string, 0, len(modifiers)),
	}
	for _, ref := range filters {
		if ref.IsInline() {
			r.filters[ref.name] = *ref.inline
		}
		strategy.Filters = append(strategy.Filters, ref.name)
	}
	for _, ref := range modifiers {
		if ref.IsInline() {
			r.modifiers[ref.name] = *ref.inline
		}
		strategy.Modifiers = append(strategy.Modifiers, ref.name)
	}
	r.strategies[name] = strategy
	return nil
}

// Resolve builds the chain for a subscription. Direct references win when
// either list is non-empty; otherwise a non-empty strategy name is used;
// otherwise the chain is empty.
func (r *Registry) Resolve(filters []FilterRef, modifiers []ModifierRef, strategy string) (Chain, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(filters) > 0 || len(modifiers) > 0 {
		return r.resolveRefs(filters, modifiers)
	}
	if strategy == "" {
		return Chain{}, nil
	}

	s, ok := r.strategies[strategy]
	if !ok {
		return Chain{}, errors.NewValidation(errors.ErrUnknownStrategy, "pipeline", "Resolve",
			fmt.Sprintf("strategy '%s' is unknown", strategy))
	}

	chain := Chain{Strategy: s.Name}
	for _, name := range s.Filters {
		chain.Filters = append(chain.Filters, r.filters[name])
	}
	for _, name := range s.Modifiers {
		chain.Modifiers = append(chain.Modifiers, r.modifiers[name])
	}
	return chain, nil
}

// resolveRefs must be called with at least the read lock held.
func (r *Registry) resolveRefs(filters []FilterRef, modifiers []ModifierRef) (Chain, error) {
	var (
		chain    Chain
		messages []string
	)

	for _, ref := range filters {
		if ref.IsInline() {
			if ref.inline.Fn == nil {
				messages = append(messages, fmt.Sprintf("filter '%s' is not a function", ref.name))
				continue
			}
			chain.Filters = append(chain.Filters, *ref.inline)
			continue
		}
		f, ok := r.filters[ref.name]
		if !ok {
			messages = append(messages, fmt.Sprintf("filter '%s' is unknown", ref.name))
			continue
		}
		chain.Filters = append(chain.Filters, f)
	}

	for _, ref := range modifiers {
		if ref.IsInline() {
			if ref.inline.Fn == nil {
				messages = append(messages, fmt.Sprintf("modifier '%s' is not a function", ref.name))
				continue
			}
			chain.Modifiers = append(chain.Modifiers, *ref.inline)
			continue
		}
		m, ok := r.modifiers[ref.name]
		if !ok {
			messages = append(messages, fmt.Sprintf("modifier '%s' is unknown", ref.name))
			continue
		}
		chain.Modifiers = append(chain.Modifiers, m)
	}

	if err := errors.NewValidation(errors.ErrInvalidFilter, "pipeline", "Resolve", messages...); err != nil {
		return Chain{}, err
	}
	return chain, nil
}
