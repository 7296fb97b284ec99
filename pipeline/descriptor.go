package pipeline

import (
	"fmt"

	"github.com/a6b8/trackerAPI/errors"
)

// FilterFunc reports whether a payload should continue down the chain.
type FilterFunc func(data any) bool

// ModifierFunc transforms a payload for the next stage.
type ModifierFunc func(data any) any

// Filter is a named predicate.
type Filter struct {
	Name string
	Fn   FilterFunc
}

// Modifier is a named transform.
type Modifier struct {
	Name string
	Fn   ModifierFunc
}

// NewFilter wraps fn under name. An empty name or nil fn is rejected.
// Nothing is registered.
func NewFilter(name string, fn FilterFunc) (Filter, error) {
	if err := checkDescriptor(name, fn == nil, errors.ErrInvalidFilter, "NewFilter"); err != nil {
		return Filter{}, err
	}
	return Filter{Name: name, Fn: fn}, nil
}

// NewModifier wraps fn under name. An empty name or nil fn is rejected.
// Nothing is registered.
func NewModifier(name string, fn ModifierFunc) (Modifier, error) {
	if err := checkDescriptor(name, fn == nil, errors.ErrInvalidModifier, "NewModifier"); err != nil {
		return Modifier{}, err
	}
	return Modifier{Name: name, Fn: fn}, nil
}

func checkDescriptor(name string, nilFn bool, cause error, operation string) error {
	var messages []string
	if name == "" {
		messages = append(messages, "funcName is undefined")
	}
	if nilFn {
		messages = append(messages, fmt.Sprintf("func for '%s' is not a function", name))
	}
	return errors.NewValidation(cause, "pipeline", operation, messages...)
}

// FilterRef points at a filter either by registry name or by value.
type FilterRef struct {
	name   string
	inline *Filter
}

// FilterByName references a registered filter.
func FilterByName(name string) FilterRef {
	return FilterRef{name: name}
}

// InlineFilter references a filter value directly.
func InlineFilter(f Filter) FilterRef {
	return FilterRef{name: f.Name, inline: &f}
}

// Name returns the referenced filter name.
func (r FilterRef) Name() string { return r.name }

// IsInline reports whether the reference carries its own function.
func (r FilterRef) IsInline() bool { return r.inline != nil }

// ModifierRef points at a modifier either by registry name or by value.
type ModifierRef struct {
	name   string
	inline *Modifier
}

// ModifierByName references a registered modifier.
func ModifierByName(name string) ModifierRef {
	return ModifierRef{name: name}
}

// InlineModifier references a modifier value directly.
func InlineModifier(m Modifier) ModifierRef {
	return ModifierRef{name: m.Name, inline: &m}
}

// Name returns the referenced modifier name.
func (r ModifierRef) Name() string { return r.name }

// IsInline reports whether the reference carries its own function.
func (r ModifierRef) IsInline() bool { return r.inline != nil }

// Strategy is a named bundle of registered filter and modifier names.
type Strategy struct {
	Name      string
	Filters   []string
	Modifiers []string
}
