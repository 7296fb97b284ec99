package sink

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/a6b8/trackerAPI/errors"
)

// Envelope wraps one emitted event for publication on a broker.
type Envelope struct {
	ID        string    `json:"id" cbor:"id"`
	Event     string    `json:"event" cbor:"event"`
	Timestamp time.Time `json:"timestamp" cbor:"timestamp"`
	Data      any       `json:"data" cbor:"data"`
}

// Codec converts envelopes to and from their wire form.
type Codec interface {
	Name() string
	ContentType() string
	Marshal(env Envelope) ([]byte, error)
	Unmarshal(data []byte, env *Envelope) error
}

// JSONCodec encodes envelopes as JSON.
type JSONCodec struct{}

func (JSONCodec) Name() string        { return "json" }
func (JSONCodec) ContentType() string { return "application/json" }

func (JSONCodec) Marshal(env Envelope) ([]byte, error) {
	return json.Marshal(env)
}

func (JSONCodec) Unmarshal(data []byte, env *Envelope) error {
	return json.Unmarshal(data, env)
}

var (
	cborEncMode cbor.EncMode
	cborDecMode cbor.DecMode
)

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	cborEncMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("sink: cbor encoder mode: %v", err))
	}

	// Payloads come from JSON, so decoded maps use string keys as well.
	decOpts := cbor.DecOptions{
		DupMapKey:      cbor.DupMapKeyQuiet,
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}
	cborDecMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("sink: cbor decoder mode: %v", err))
	}
}

// CBORCodec encodes envelopes as canonical CBOR.
type CBORCodec struct{}

func (CBORCodec) Name() string        { return "cbor" }
func (CBORCodec) ContentType() string { return "application/cbor" }

func (CBORCodec) Marshal(env Envelope) ([]byte, error) {
	return cborEncMode.Marshal(env)
}

func (CBORCodec) Unmarshal(data []byte, env *Envelope) error {
	return cborDecMode.Unmarshal(data, env)
}

// CodecByName returns the codec registered under name. An empty name selects JSON.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSONCodec{}, nil
	case "cbor":
		return CBORCodec{}, nil
	default:
		return nil, errors.WrapInvalid(fmt.Errorf("unknown codec %q", name), "sink", "CodecByName", "select codec")
	}
}
