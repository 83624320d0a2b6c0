package server

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/gamemap"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/lobby"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/logging"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/protocol"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/tankconfig"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/transport"
)

func testArena() *gamemap.Definition {
	return &gamemap.Definition{
		Width: 10, Depth: 10, TileSize: 1,
		Heights: make([]float64, 100),
		Markers: []gamemap.Marker{
			{Tile: gamemap.Tile{X: 0, Z: 0}, Team: "red", Kind: gamemap.MarkerSpawn, ID: 0},
			{Tile: gamemap.Tile{X: 9, Z: 9}, Team: "blue", Kind: gamemap.MarkerSpawn, ID: 0},
		},
	}
}

func writeEnvelopes(t *testing.T, conn net.Conn, envs ...protocol.Envelope) {
	t.Helper()
	payload, err := protocol.EncodeBatch(envs)
	if err != nil {
		t.Fatalf("encode batch: %v", err)
	}
	if err := transport.WriteFrame(conn, payload); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

func readEnvelopes(t *testing.T, conn net.Conn) []protocol.Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	frame, err := transport.ReadFrame(conn, 0)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	batch, err := protocol.DecodeBatch(frame)
	if err != nil {
		t.Fatalf("decode batch: %v", err)
	}
	return batch
}

func newTestServer(t *testing.T) (*Server, *transport.Listener) {
	t.Helper()
	lookup := func(mapName string) (*gamemap.Definition, error) {
		return testArena(), nil
	}
	registry := lobby.NewRegistry(lookup, tankconfig.DefaultCatalog(), 20, 0)
	ln, err := transport.Listen("127.0.0.1:0", time.Second, 0)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := New(Options{
		Registry:            registry,
		Log:                 logging.NewTestLogger(),
		FirstContactTimeout: time.Second,
	})
	return srv, ln
}

func TestServeJoinsLobbyAndStartsGame(t *testing.T) {
	srv, ln := newTestServer(t)
	defer ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Serve(ctx, ln)

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	team := "red"
	mapName := "arena"
	writeEnvelopes(t, conn, protocol.Envelope{
		Target:  protocol.ServerOnly(),
		Message: &protocol.FirstContact{BotName: "alice", LobbyName: "arena1", MapName: &mapName, ClientType: protocol.ClientPlayer, TeamName: &team},
	})

	writeEnvelopes(t, conn, protocol.Envelope{
		Target:  protocol.ServerOnly(),
		Message: &protocol.StartGame{FillEmptySlotsWithDummies: true},
	})

	var gameStarts *protocol.GameStarts
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) && gameStarts == nil {
		batch := readEnvelopes(t, conn)
		for _, env := range batch {
			if gs, ok := env.Message.(*protocol.GameStarts); ok {
				gameStarts = gs
			}
		}
	}
	if gameStarts == nil {
		t.Fatalf("expected a GameStarts message to arrive")
	}
	if gameStarts.TickRate != 20 {
		t.Fatalf("expected tick rate 20, got %d", gameStarts.TickRate)
	}
	if len(gameStarts.ConnectedClients) != 2 {
		t.Fatalf("expected 2 connected clients (1 real + 1 dummy), got %d", len(gameStarts.ConnectedClients))
	}
}

func TestServeRejectsNonFirstContactFirstFrame(t *testing.T) {
	srv, ln := newTestServer(t)
	defer ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Serve(ctx, ln)

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	writeEnvelopes(t, conn, protocol.Envelope{
		Target:  protocol.Self(),
		Message: &protocol.ShootCommand{},
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1)
	if _, err := conn.Read(buf); err == nil {
		t.Fatalf("expected connection closed after a non-FirstContact first frame")
	}
}

func TestServeDisconnectDestroysEmptyLobby(t *testing.T) {
	srv, ln := newTestServer(t)
	defer ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Serve(ctx, ln)

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	team := "red"
	writeEnvelopes(t, conn, protocol.Envelope{
		Target:  protocol.ServerOnly(),
		Message: &protocol.FirstContact{BotName: "alice", LobbyName: "arena2", ClientType: protocol.ClientPlayer, TeamName: &team},
	})
	// Give the server goroutine time to register the join before we close.
	time.Sleep(100 * time.Millisecond)
	conn.Close()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := srv.registry.Get("arena2"); !ok {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("expected lobby arena2 to be destroyed once its only player disconnects")
}
