package transport

import (
	"bytes"
	"io"
	"net"
	"testing"
	"time"
)

func TestWriteReadFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte(`[{"hello":"world"}]`)
	if err := WriteFrame(&buf, payload); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadFrame(&buf, 0)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("expected %q, got %q", payload, got)
	}
}

func TestReadFrameBigEndianLength(t *testing.T) {
	// 5-byte payload, length prefix must read as big-endian 5, not little-endian.
	var buf bytes.Buffer
	buf.Write([]byte{0, 0, 0, 5})
	buf.WriteString("howdy")
	got, err := ReadFrame(&buf, 0)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "howdy" {
		t.Fatalf("expected howdy, got %q", got)
	}
}

func TestReadFrameTooLarge(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0, 0, 0, 10})
	buf.WriteString("1234567890")
	if _, err := ReadFrame(&buf, 5); err == nil {
		t.Fatalf("expected ErrFrameTooLarge")
	}
}

func TestReadFramePartialLengthIsEOF(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0, 0}) // incomplete length prefix
	if _, err := ReadFrame(&buf, 0); err != io.ErrUnexpectedEOF && err != io.EOF {
		t.Fatalf("expected EOF-family error, got %v", err)
	}
}

func TestListenerAcceptAndChannelRoundTrip(t *testing.T) {
	l, err := Listen("127.0.0.1:0", time.Second, 0)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()

	dialed, err := net.Dial("tcp", l.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer dialed.Close()

	deadline := time.Now().Add(2 * time.Second)
	var clients []NewClient
	for time.Now().Before(deadline) {
		clients = l.PollAccepts()
		if len(clients) > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if len(clients) != 1 {
		t.Fatalf("expected 1 accepted client, got %d", len(clients))
	}

	payload := []byte(`[{"type":"PING"}]`)
	if err := WriteFrame(dialed, payload); err != nil {
		t.Fatalf("write from dialed side: %v", err)
	}
	got, err := clients[0].Channel.ReadFrame()
	if err != nil {
		t.Fatalf("server-side read: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("expected %q, got %q", payload, got)
	}
}
