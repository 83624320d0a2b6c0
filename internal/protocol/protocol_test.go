package protocol

import (
	"encoding/json"
	"testing"

	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/entityid"
)

func TestEnvelopeRoundTripMoveTank(t *testing.T) {
	env := Envelope{
		Target:        Self(),
		Message:       MoveTankCommand{Distance: 0.2},
		Sender:        entityid.ID(7),
		HasSender:     true,
		TickReceived:  4,
		TickToProcess: 5,
	}
	data, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Envelope
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	move, ok := decoded.Message.(*MoveTankCommand)
	if !ok {
		t.Fatalf("expected *MoveTankCommand, got %T", decoded.Message)
	}
	if move.Distance != 0.2 {
		t.Fatalf("expected distance 0.2, got %v", move.Distance)
	}
	if decoded.Sender != entityid.ID(7) || !decoded.HasSender {
		t.Fatalf("sender not preserved: %+v", decoded)
	}
	if decoded.TickToProcess != 5 {
		t.Fatalf("expected tickToProcess=5, got %d", decoded.TickToProcess)
	}
}

func TestEnvelopeWireTagIsScreamingSnakeCase(t *testing.T) {
	env := Envelope{Target: Everyone(), Message: ShootCommand{}}
	data, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	message, ok := raw["message"].(map[string]any)
	if !ok {
		t.Fatalf("expected message object, got %T", raw["message"])
	}
	if message["type"] != "SHOOT_COMMAND" {
		t.Fatalf("expected type SHOOT_COMMAND, got %v", message["type"])
	}
}

func TestTargetClientRoundTrip(t *testing.T) {
	target := Client(entityid.ID(42))
	data, err := json.Marshal(target)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Target
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !decoded.Equal(target) {
		t.Fatalf("expected %+v, got %+v", target, decoded)
	}
}

func TestDecodeBatchParsesEnvelopeArray(t *testing.T) {
	payload := []byte(`[{"target":{"kind":"TO_SELF"},"message":{"type":"SIMPLE_TEXT","text":"hi"}}]`)
	batch, err := DecodeBatch(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(batch) != 1 {
		t.Fatalf("expected 1 envelope, got %d", len(batch))
	}
	text, ok := batch[0].Message.(*SimpleText)
	if !ok {
		t.Fatalf("expected *SimpleText, got %T", batch[0].Message)
	}
	if text.Text != "hi" {
		t.Fatalf("expected text hi, got %q", text.Text)
	}
}

func TestCoalesceUniqueDuplicatesKeepsLatestOnly(t *testing.T) {
	batch := []Envelope{
		{Message: MoveTankCommand{Distance: 1}},
		{Message: MoveTankCommand{Distance: 2}},
		{Message: MoveTankCommand{Distance: 3}},
	}
	result := CoalesceUniqueDuplicates(batch)
	if len(result) != 1 {
		t.Fatalf("expected exactly 1 surviving envelope, got %d", len(result))
	}
	move, ok := result[0].Message.(MoveTankCommand)
	if !ok {
		t.Fatalf("expected MoveTankCommand, got %T", result[0].Message)
	}
	if move.Distance != 3 {
		t.Fatalf("expected latest distance 3 to survive, got %v", move.Distance)
	}
}

func TestCoalesceUniqueDuplicatesPreservesNonUniqueAndOrder(t *testing.T) {
	batch := []Envelope{
		{Message: ShootCommand{}},
		{Message: MoveTankCommand{Distance: 1}},
		{Message: RotateTankBodyCommand{Angle: 5}},
		{Message: MoveTankCommand{Distance: 2}},
		{Message: ShootCommand{}},
	}
	result := CoalesceUniqueDuplicates(batch)
	if len(result) != 4 {
		t.Fatalf("expected 4 surviving envelopes (2 shoot + 1 move + 1 rotate), got %d", len(result))
	}
	kinds := make([]Kind, len(result))
	for i, e := range result {
		kinds[i] = e.Message.Kind()
	}
	want := []Kind{KindShootCommand, KindRotateTankBodyCommand, KindMoveTankCommand, KindShootCommand}
	for i, k := range want {
		if kinds[i] != k {
			t.Fatalf("position %d: expected %s, got %s", i, k, kinds[i])
		}
	}
}
