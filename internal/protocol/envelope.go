package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/entityid"
)

// Envelope is one routed message, carrying the tick bookkeeping the
// scheduler uses to decide when a command becomes due.
type Envelope struct {
	Target        Target
	Message       Message
	Sender        entityid.ID
	HasSender     bool
	TickSent      uint64
	TickReceived  uint64
	TickToProcess uint64
}

type wireEnvelope struct {
	Target        Target          `json:"target"`
	Message       json.RawMessage `json:"message"`
	Sender        *entityid.ID    `json:"sender,omitempty"`
	TickSent      uint64          `json:"tickSent,omitempty"`
	TickReceived  uint64          `json:"tickReceived,omitempty"`
	TickToProcess uint64          `json:"tickToProcess,omitempty"`
}

type messagePeek struct {
	Type Kind `json:"type"`
}

// MarshalJSON flattens the concrete message's fields alongside its "type" tag.
func (e Envelope) MarshalJSON() ([]byte, error) {
	if e.Message == nil {
		return nil, fmt.Errorf("protocol: envelope has no message body")
	}
	body, err := json.Marshal(e.Message)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]json.RawMessage{}
	}
	kindJSON, err := json.Marshal(e.Message.Kind())
	if err != nil {
		return nil, err
	}
	fields["type"] = kindJSON
	messageJSON, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	w := wireEnvelope{
		Target:        e.Target,
		Message:       messageJSON,
		TickSent:      e.TickSent,
		TickReceived:  e.TickReceived,
		TickToProcess: e.TickToProcess,
	}
	if e.HasSender {
		w.Sender = &e.Sender
	}
	return json.Marshal(w)
}

// UnmarshalJSON dispatches the message body to its registered concrete type.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var w wireEnvelope
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	var peek messagePeek
	if err := json.Unmarshal(w.Message, &peek); err != nil {
		return fmt.Errorf("protocol: decoding message type: %w", err)
	}
	constructor, ok := registry[peek.Type]
	if !ok {
		return fmt.Errorf("protocol: unknown message type %q", peek.Type)
	}
	msg := constructor()
	if err := json.Unmarshal(w.Message, msg); err != nil {
		return fmt.Errorf("protocol: decoding %s body: %w", peek.Type, err)
	}
	*e = Envelope{
		Target:        w.Target,
		Message:       msg,
		TickSent:      w.TickSent,
		TickReceived:  w.TickReceived,
		TickToProcess: w.TickToProcess,
	}
	if w.Sender != nil {
		e.Sender = *w.Sender
		e.HasSender = true
	}
	return nil
}

// DecodeBatch parses one ingress frame payload (a JSON array of envelopes).
func DecodeBatch(payload []byte) ([]Envelope, error) {
	var batch []Envelope
	if err := json.Unmarshal(payload, &batch); err != nil {
		return nil, fmt.Errorf("protocol: decoding batch: %w", err)
	}
	return batch, nil
}

// EncodeBatch serializes a slice of envelopes as one JSON array frame payload.
func EncodeBatch(batch []Envelope) ([]byte, error) {
	if batch == nil {
		batch = []Envelope{}
	}
	return json.Marshal(batch)
}
