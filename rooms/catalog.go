package rooms

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"

	"github.com/a6b8/trackerAPI/errors"
)

// Channel names used by the default catalog.
const (
	ChannelMain        = "main"
	ChannelTransaction = "transaction"
)

var placeholderRegex = regexp.MustCompile(`\{\{(\w+)\}\}`)

// Descriptor describes one room.
type Descriptor struct {
	ID       string
	Template string
	Params   []Param
	Channel  string
}

// Catalog is an immutable, ordered set of room descriptors.
type Catalog struct {
	order []string
	rooms map[string]Descriptor
}

// NewCatalog builds a catalog. Every placeholder in a template must be
// declared as a param and every param must appear in the template.
func NewCatalog(descriptors ...Descriptor) (*Catalog, error) {
	c := &Catalog{
		order: make([]string, 0, len(descriptors)),
		rooms: make(map[string]Descriptor, len(descriptors)),
	}

	for _, d := range descriptors {
		if err := d.check(); err != nil {
			return nil, errors.WrapInvalid(err, "Catalog", "NewCatalog", "check descriptor")
		}
		if _, exists := c.rooms[d.ID]; exists {
			return nil, errors.WrapInvalid(fmt.Errorf("duplicate room id %q", d.ID),
				"Catalog", "NewCatalog", "check descriptor")
		}
		c.order = append(c.order, d.ID)
		c.rooms[d.ID] = d
	}
	return c, nil
}

func (d Descriptor) check() error {
	if d.ID == "" {
		return fmt.Errorf("room id is empty")
	}
	if d.Channel == "" {
		return fmt.Errorf("room %s: channel is empty", d.ID)
	}

	declared := make(map[string]bool, len(d.Params))
	for _, p := range d.Params {
		if !p.Type.Valid() {
			return fmt.Errorf("room %s: param %s has unknown type %q", d.ID, p.Name, p.Type)
		}
		declared[p.Name] = true
	}

	used := make(map[string]bool)
	for _, m := range placeholderRegex.FindAllStringSubmatch(d.Template, -1) {
		if !declared[m[1]] {
			return fmt.Errorf("room %s: placeholder %s is not declared", d.ID, m[1])
		}
		used[m[1]] = true
	}
	for name := range declared {
		if !used[name] {
			return fmt.Errorf("room %s: param %s is not used by the template", d.ID, name)
		}
	}
	return nil
}

// IDs returns room ids in catalog order.
func (c *Catalog) IDs() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Channels returns the distinct channel names in sorted order.
func (c *Catalog) Channels() []string {
	seen := make(map[string]bool)
	for _, d := range c.rooms {
		seen[d.Channel] = true
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Lookup returns the descriptor for id. Unknown ids yield a validation error
// suggesting the closest known id.
func (c *Catalog) Lookup(id string) (Descriptor, error) {
	if d, ok := c.rooms[id]; ok {
		return d, nil
	}
	return Descriptor{}, errors.NewValidation(errors.ErrUnknownRoom, "rooms", "Lookup", c.unknownMessage(id))
}

func (c *Catalog) unknownMessage(id string) string {
	if id == "" {
		return "roomId is undefined"
	}
	if suggestion, ok := Closest(id, c.order); ok {
		return fmt.Sprintf("roomId '%s' is unknown. Did you mean '%s'?", id, suggestion)
	}
	return fmt.Sprintf("roomId '%s' is unknown", id)
}

// Resolve looks up id, validates params and returns the descriptor together
// with the concrete key.
func (c *Catalog) Resolve(id string, params map[string]any) (Descriptor, string, error) {
	d, err := c.Lookup(id)
	if err != nil {
		return Descriptor{}, "", err
	}
	key, err := d.Resolve(params)
	if err != nil {
		return Descriptor{}, "", err
	}
	return d, key, nil
}

// Validate checks params against the descriptor and returns one message per
// problem. Extra params are ignored.
func (d Descriptor) Validate(params map[string]any) []string {
	var messages []string
	for _, p := range d.Params {
		value, ok := formatParam(params[p.Name])
		if !ok {
			messages = append(messages, fmt.Sprintf("Missing parameter: %s (required)", p.Name))
			continue
		}
		if !p.Type.Match(value) {
			messages = append(messages, fmt.Sprintf("Invalid parameter: %s. %s", p.Name, p.Type.Description()))
		}
	}
	return messages
}

// Resolve validates params and substitutes them into the template.
func (d Descriptor) Resolve(params map[string]any) (string, error) {
	if messages := d.Validate(params); len(messages) > 0 {
		cause := errors.ErrInvalidParam
		if strings.HasPrefix(messages[0], "Missing") {
			cause = errors.ErrMissingParam
		}
		return "", errors.NewValidation(cause, "rooms", "Resolve", messages...)
	}

	key := placeholderRegex.ReplaceAllStringFunc(d.Template, func(match string) string {
		name := match[2 : len(match)-2]
		value, _ := formatParam(params[name])
		return value
	})
	return key, nil
}

var distanceOptions = levenshtein.Options{
	InsCost: 1,
	DelCost: 1,
	SubCost: 1,
	Matches: levenshtein.IdenticalRunes,
}

// Closest returns the candidate with the smallest edit distance to input.
// Ties go to the earlier candidate. It reports false for an empty list.
func Closest(input string, candidates []string) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}

	source := []rune(input)
	best, bestDistance := candidates[0], -1
	for _, candidate := range candidates {
		d := levenshtein.DistanceForStrings(source, []rune(candidate), distanceOptions)
		if bestDistance < 0 || d < bestDistance {
			best, bestDistance = candidate, d
		}
	}
	return best, true
}
