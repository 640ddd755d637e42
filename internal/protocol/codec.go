package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedMessage is the §7 MalformedMessage error: decode failure or
// (at the caller's discretion) an MTU overrun on an already-decoded message.
var ErrMalformedMessage = errors.New("protocol: malformed message")

// Codec encodes and decodes Messages over the wire. The external
// collaborator named "serialization codec" in spec §1/§6.
type Codec interface {
	Encode(Message) ([]byte, error)
	Decode([]byte) (Message, error)
}

// JSONCodec is the UTF-8 JSON codec spec §6 mandates as the wire format.
type JSONCodec struct{}

// NewJSONCodec returns the default codec.
func NewJSONCodec() JSONCodec { return JSONCodec{} }

// Encode serializes m as JSON.
func (JSONCodec) Encode(m Message) ([]byte, error) {
	return json.Marshal(m)
}

// Decode parses a JSON datagram into a Message. A malformed datagram wraps
// ErrMalformedMessage so callers can match it for the §7 drop-and-warn path.
func (JSONCodec) Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return m, nil
}
