package pipeline

import (
	"fmt"

	"github.com/a6b8/trackerAPI/errors"
)

// Chain is the resolved pipeline of one subscription.
type Chain struct {
	Filters   []Filter
	Modifiers []Modifier
	// Strategy is set when the chain came from a named strategy.
	Strategy string
}

// Empty reports whether the chain passes payloads through unchanged.
func (c Chain) Empty() bool {
	return len(c.Filters) == 0 && len(c.Modifiers) == 0
}

// FilterNames returns the filter names in evaluation order.
func (c Chain) FilterNames() []string {
	names := make([]string, len(c.Filters))
	for i, f := range c.Filters {
		names[i] = f.Name
	}
	return names
}

// ModifierNames returns the modifier names in application order.
func (c Chain) ModifierNames() []string {
	names := make([]string, len(c.Modifiers))
	for i, m := range c.Modifiers {
		names[i] = m.Name
	}
	return names
}

// Apply evaluates the filters in order, stopping at the first false, then
// threads data through every modifier. pass is false when a filter rejected
// the payload; that is not an error.
func (c Chain) Apply(data any) (out any, pass bool, err error) {
	stage := ""
	defer func() {
		if r := recover(); r != nil {
			out, pass = nil, false
			err = errors.WrapInvalid(fmt.Errorf("%v", r), "pipeline", "Apply", stage)
		}
	}()

	for _, f := range c.Filters {
		stage = "filter " + f.Name
		if !f.Fn(data) {
			return nil, false, nil
		}
	}

	out = data
	for _, m := range c.Modifiers {
		stage = "modifier " + m.Name
		out = m.Fn(out)
	}
	return out, true, nil
}
