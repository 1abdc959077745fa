// internal/transport/transport.go
package transport

import (
	"sync"
)

// Conn is one established session on the field bus.
// Read resolves every requested address to either a value or an error;
// callers treat errors as opaque failure signals.
type Conn interface {
	Read(addrs []uint16) ReadResult
	Close() error
}

// Transport is the capability to establish a bus session.
// The lifecycle manager is agnostic to which variant it holds.
type Transport interface {
	Kind() string
	Connect() (Conn, error)
}

// ReadResult partitions one read cycle's addresses into values and failures.
type ReadResult struct {
	Values map[uint16]uint16
	Failed map[uint16]error
}

// AllFailed reports whether the cycle produced zero usable readings.
func (r ReadResult) AllFailed() bool {
	return len(r.Values) == 0 && len(r.Failed) > 0
}

// Guard serializes all access to the one shared bus session.
// The bus is a single half-duplex medium; concurrent use would
// interleave in-flight exchanges.
type Guard struct {
	mu   sync.Mutex
	conn Conn
}

// NewGuard wraps a session in an exclusive-access guard.
func NewGuard(conn Conn) *Guard {
	return &Guard{conn: conn}
}

// WithConn runs fn holding exclusive access to the session. The guard is
// released on every exit path. Callers keep the critical section to the
// wire exchange only; encoding and forwarding happen outside.
func (g *Guard) WithConn(fn func(Conn) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fn(g.conn)
}

// Close closes the underlying session, waiting out any exchange in flight.
func (g *Guard) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.conn.Close()
}
