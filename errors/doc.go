// Package errors provides standardized error handling for the tracker client.
//
// # Error Classification
//
// Errors fall into three classes:
//
//   - Transient: connection drops, timeouts, temporary unavailability (reconnect or retry)
//   - Invalid: unknown rooms, missing or malformed parameters, bad URLs (do not retry)
//   - Fatal: reconnect exhaustion, unusable configuration (stop and surface)
//
// # Validation Results
//
// The public join, leave and connect operations never panic on bad input.
// They return a *ValidationError whose Messages field lists every problem found,
// including closest-match suggestions for misspelled identifiers:
//
//	_, err := client.UpdateRoom(stream.RoomRequest{RoomID: "priceUpdate", Cmd: stream.CmdJoin})
//	for _, msg := range errors.Messages(err) {
//	    fmt.Println(msg) // roomId 'priceUpdate' is unknown. Did you mean 'priceUpdates'?
//	}
//
// # Error Wrapping Pattern
//
// All error wrapping follows the format "component.method: action failed: cause":
//
//	return errors.WrapTransient(err, "stream", "dial", "open websocket")
//
// Classified errors support errors.Is and errors.As through Unwrap.
package errors
