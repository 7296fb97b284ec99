// Package rooms is the catalog of subscribable websocket rooms.
//
// A room is a logical topic such as price updates for one pool. Each
// Descriptor carries a key template with {{name}} placeholders, the ordered
// template variables with a primitive type each, and the websocket channel the
// room is served on. Resolve validates caller parameters against the variable
// types and substitutes them into the template to produce the concrete key
// used on the wire:
//
//	d, key, err := rooms.Default().Resolve("priceUpdates", map[string]any{"poolId": "abc"})
//	// key == "price:abc", d.Channel == "main"
//
// Validation failures are *errors.ValidationError values carrying one message
// per problem, including a closest-match suggestion for misspelled room ids.
package rooms
