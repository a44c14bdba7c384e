package relay

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	envelopeEventKey = "event"
	envelopeDataKey  = "data"
)

// Envelope is the wire form of a dispatched event:
//
//	{"event": "helloEvent", "data": {"eventData": "Hello there!"}}
//
// A missing or null "data" member means the event carries no payload.
type Envelope struct {
	Event string
	Data  []byte
}

func (e Envelope) HasData() bool {
	return len(e.Data) > 0
}

// EncodeEnvelope renders e as a JSON object. Data must already be valid JSON.
func EncodeEnvelope(e Envelope) ([]byte, error) {
	if e.Event == "" {
		return nil, errors.Wrap(ErrMalformedEnvelope, "missing event name")
	}

	out, err := sjson.SetBytes([]byte(`{}`), envelopeEventKey, e.Event)
	if err != nil {
		return nil, errors.Wrap(err, "cannot encode envelope event")
	}

	if !e.HasData() {
		return out, nil
	}

	if !gjson.ValidBytes(e.Data) {
		return nil, errors.Wrapf(ErrMalformedEnvelope, "data of event %q is not valid json", e.Event)
	}

	out, err = sjson.SetRawBytes(out, envelopeDataKey, e.Data)
	if err != nil {
		return nil, errors.Wrap(err, "cannot encode envelope data")
	}
	return out, nil
}

// DecodeEnvelope reads the event name and the raw data out of b without
// decoding the payload itself.
func DecodeEnvelope(b []byte) (Envelope, error) {
	if !gjson.ValidBytes(b) {
		return Envelope{}, errors.Wrap(ErrMalformedEnvelope, "not valid json")
	}

	root := gjson.ParseBytes(b)
	if !root.IsObject() {
		return Envelope{}, errors.Wrap(ErrMalformedEnvelope, "not a json object")
	}

	event := root.Get(envelopeEventKey)
	if event.Type != gjson.String || event.Str == "" {
		return Envelope{}, errors.Wrap(ErrMalformedEnvelope, "missing event name")
	}

	env := Envelope{Event: event.Str}

	data := root.Get(envelopeDataKey)
	if data.Exists() && data.Type != gjson.Null {
		env.Data = []byte(data.Raw)
	}

	return env, nil
}

// Codec converts payloads to and from the JSON carried in envelopes.
type Codec[V any] interface {
	Marshal(V) ([]byte, error)
	Unmarshal([]byte) (V, error)
}

// JSONCodec is a Codec based on encoding/json.
type JSONCodec[V any] struct{}

func (JSONCodec[V]) Marshal(v V) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec[V]) Unmarshal(b []byte) (V, error) {
	var v V
	err := json.Unmarshal(b, &v)
	return v, err
}
