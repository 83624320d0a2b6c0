package transport

import (
	"net"
	"time"
)

// NewClient is one freshly accepted connection, still awaiting its
// first valid frame.
type NewClient struct {
	Channel  *Channel
	Deadline time.Time
}

// Listener accepts TCP connections and hands them to the caller as they
// arrive, via PollAccepts. The accept loop runs on its own goroutine so
// the caller never blocks waiting for a new connection.
type Listener struct {
	ln                  net.Listener
	firstContactTimeout time.Duration
	maxFrameBytes       uint32
	accepted            chan *Channel
	errs                chan error
	done                chan struct{}
}

// Listen binds addr and starts the background accept loop.
func Listen(addr string, firstContactTimeout time.Duration, maxFrameBytes uint32) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	l := &Listener{
		ln:                  ln,
		firstContactTimeout: firstContactTimeout,
		maxFrameBytes:       maxFrameBytes,
		accepted:            make(chan *Channel, 64),
		errs:                make(chan error, 1),
		done:                make(chan struct{}),
	}
	go l.acceptLoop()
	return l, nil
}

func (l *Listener) acceptLoop() {
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			select {
			case l.errs <- err:
			default:
			}
			return
		}
		select {
		case l.accepted <- NewChannel(conn, l.maxFrameBytes):
		case <-l.done:
			conn.Close()
			return
		}
	}
}

// PollAccepts drains every connection accepted since the last call,
// without blocking if none are pending.
func (l *Listener) PollAccepts() []NewClient {
	var clients []NewClient
	for {
		select {
		case ch := <-l.accepted:
			clients = append(clients, NewClient{
				Channel:  ch,
				Deadline: time.Now().Add(l.firstContactTimeout),
			})
		default:
			return clients
		}
	}
}

// Accepted exposes the raw accept channel for callers that prefer to
// block (via select) rather than poll, e.g. a server's accept-dispatch
// loop. PollAccepts and Accepted drain the same channel; use one or the
// other per Listener, not both.
func (l *Listener) Accepted() <-chan *Channel { return l.accepted }

// Err returns the accept loop's terminal error, if the listener has
// stopped accepting (e.g. Close was called).
func (l *Listener) Err() <-chan error { return l.errs }

// Close stops the accept loop and releases the bound socket.
func (l *Listener) Close() error {
	close(l.done)
	return l.ln.Close()
}

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr { return l.ln.Addr() }
