package message

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// JSON form: {"kind":"SetUpCall","code":5,"payload":{...}}. Enum fields
// use their names. When both kind and code are present, code wins.
type jsonEnvelope struct {
	Kind    string          `json:"kind"`
	Code    *int32          `json:"code,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func (e Envelope) MarshalJSON() ([]byte, error) {
	var payload json.RawMessage
	if e.Payload != nil {
		b, err := json.Marshal(e.Payload)
		if err != nil {
			return nil, err
		}
		payload = b
	}
	code := int32(e.Kind)
	return json.Marshal(jsonEnvelope{Kind: e.Kind.String(), Code: &code, Payload: payload})
}

func (e *Envelope) UnmarshalJSON(b []byte) error {
	var raw jsonEnvelope
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	var kind Kind
	switch {
	case raw.Code != nil:
		kind = Kind(*raw.Code)
	case raw.Kind != "":
		k, err := ParseKind(raw.Kind)
		if err != nil {
			return err
		}
		kind = k
	default:
		return fmt.Errorf("%w: kind or code required", ErrUnknownKind)
	}

	hasPayload := len(raw.Payload) > 0 && !bytes.Equal(raw.Payload, []byte("null"))

	v, ok := zeroPayload(kind)
	if !ok {
		u := Unrecognized{}
		if hasPayload {
			if err := json.Unmarshal(raw.Payload, &u); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
			}
		}
		u.Code = kind
		*e = Envelope{Kind: kind, Payload: u}
		return nil
	}
	if hasPayload {
		if err := json.Unmarshal(raw.Payload, v.Addr().Interface()); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
	}
	*e = Envelope{Kind: kind, Payload: v.Interface().(Payload)}
	return nil
}
