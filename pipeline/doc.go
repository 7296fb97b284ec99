// Package pipeline holds the named filters, modifiers and strategies applied
// to inbound room messages.
//
// A Filter is a predicate over the decoded message payload, a Modifier a
// transform. A subscription attaches an ordered list of each, either as
// direct references (FilterRef, ModifierRef) or through a named Strategy
// registered ahead of time. Resolve turns those references into a Chain;
// Chain.Apply ANDs the filters with short-circuit and threads the payload
// through the modifiers in order.
//
//	reg := pipeline.NewDefaultRegistry()
//	chain, err := reg.Resolve(nil, nil, "pumpFunNewTokens")
//	out, pass, err := chain.Apply(payload)
//
// Filters and modifiers run synchronously on the reading goroutine and must
// not block. A panic inside one is recovered by Apply and returned as an error.
package pipeline
