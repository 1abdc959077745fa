// internal/poller/token.go
package poller

import "sync"

// Token is a one-shot cancellation latch shared by every poller of one
// epoch. Once set it can never be unset.
type Token struct {
	once sync.Once
	ch   chan struct{}
}

// NewToken returns an unset token.
func NewToken() *Token {
	return &Token{ch: make(chan struct{})}
}

// Cancel sets the latch. Safe to call more than once; only the first
// call takes effect.
func (t *Token) Cancel() {
	t.once.Do(func() { close(t.ch) })
}

// Done returns a channel closed when the token is set. Pollers select on
// it inside their inter-cycle wait.
func (t *Token) Done() <-chan struct{} { return t.ch }

// Cancelled reports whether the latch is set.
func (t *Token) Cancelled() bool {
	select {
	case <-t.ch:
		return true
	default:
		return false
	}
}

// Coordinator broadcasts cancellation and waits for every poller to
// acknowledge exit. Mechanism only; the decision to shut down belongs to
// the health aggregator or an escalating poller.
type Coordinator struct {
	token *Token
	wg    sync.WaitGroup
}

// NewCoordinator creates a coordinator with a fresh token.
func NewCoordinator() *Coordinator {
	return &Coordinator{token: NewToken()}
}

// Token returns the epoch's shared cancellation token.
func (c *Coordinator) Token() *Token { return c.token }

// Add registers n pollers that must acknowledge before Trigger returns.
func (c *Coordinator) Add(n int) { c.wg.Add(n) }

// Ack marks one poller as exited.
func (c *Coordinator) Ack() { c.wg.Done() }

// Trigger sets the token, waking every poller mid-wait, then blocks until
// all of them have acknowledged. After it returns no poller touches the
// bus again, so the connection is safe to tear down.
func (c *Coordinator) Trigger() {
	c.token.Cancel()
	c.wg.Wait()
}
