// Package egress implements the publish side of state fan-out: building
// each player's personalized GameState envelope, queuing
// server-originated broadcasts, and draining outboxes to their
// transport channels.
package egress

import (
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/entityid"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/lobby"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/logging"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/protocol"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/state"
)

// frameWriter is the subset of *transport.Channel egress needs, named so
// tests can substitute a fake without standing up a real socket.
type frameWriter interface {
	WriteFrames(payloads [][]byte) error
}

// teamLookup resolves id -> team name for personalization, built fresh
// from the lobby roster each tick.
func teamLookup(l *lobby.Lobby) state.TeamLookup {
	return func(id entityid.ID) (string, bool) {
		if p, ok := l.Players[id]; ok {
			return p.Team, true
		}
		return "", false
	}
}

// QueueGameState rebuilds every occupant's view of the current tick and
// pushes it to the front of their outbox.
// Players (and dummies, harmlessly) get a PersonalizedClientGameState;
// spectators get the full LobbyGameState.
func QueueGameState(l *lobby.Lobby, vis state.Visibility) {
	lookup := teamLookup(l)
	for id, p := range l.Players {
		outbox, ok := l.Outboxes[id]
		if !ok {
			continue
		}
		personalized := state.BuildPersonalized(l.GameState, id, p.Team, lookup, vis)
		outbox.PushFront(protocol.Envelope{
			Target:   protocol.Self(),
			Message:  protocol.GameState{Tick: l.GameState.Tick, Payload: personalized},
			TickSent: l.GameState.Tick,
		})
	}
	for id := range l.Spectators {
		outbox, ok := l.Outboxes[id]
		if !ok {
			continue
		}
		outbox.PushFront(protocol.Envelope{
			Target:   protocol.Self(),
			Message:  protocol.GameState{Tick: l.GameState.Tick, Payload: l.GameState},
			TickSent: l.GameState.Tick,
		})
	}
}

// QueueBroadcast resolves target's recipients and appends msg to each of
// their outboxes, to be drained alongside (and after, per the
// publication-atomicity property) the current tick's GameState.
func QueueBroadcast(l *lobby.Lobby, target protocol.Target, sender entityid.ID, msg protocol.Message, tick uint64) {
	for _, id := range l.Recipients(target, sender) {
		outbox, ok := l.Outboxes[id]
		if !ok {
			continue
		}
		env := protocol.Envelope{Target: target, Message: msg, TickSent: tick}
		if sender != entityid.Nil {
			env.Sender = sender
			env.HasSender = true
		}
		outbox.PushBack(env)
	}
}

// FlushImmediate drains and sends any outboxes that currently hold
// queued envelopes, for rule-error responses that must not wait for
// the end-of-tick state publish.
func FlushImmediate(l *lobby.Lobby, log *logging.Logger) {
	drainAll(l, log)
}

// Publish drains every non-empty outbox to its transport channel and
// returns the total bytes written, for the ops metrics gauge. Called once
// per tick after QueueGameState, and also usable standalone for the
// immediate-outbox case.
func Publish(l *lobby.Lobby, log *logging.Logger) int {
	return drainAll(l, log)
}

func drainAll(l *lobby.Lobby, log *logging.Logger) int {
	total := 0
	for id, outbox := range l.Outboxes {
		if len(outbox.Queue) == 0 {
			continue
		}
		batch := outbox.Drain()
		player, ok := l.AnyByID(id)
		if !ok || player.Channel == nil {
			continue // dummy, or client already removed this tick
		}
		n, err := writeBatch(player.Channel, batch)
		if err != nil {
			log.Warn("egress: failed to write frame", logging.Uint64("client", uint64(id)), logging.Error(err))
			// A failed write is channel-fatal: closing the channel makes the
			// client's read goroutine fail and disconnect it.
			_ = player.Channel.Close()
			continue
		}
		total += n
	}
	return total
}

func writeBatch(ch frameWriter, batch []protocol.Envelope) (int, error) {
	payload, err := protocol.EncodeBatch(batch)
	if err != nil {
		return 0, err
	}
	if err := ch.WriteFrames([][]byte{payload}); err != nil {
		return 0, err
	}
	return len(payload), nil
}
