package jobs

import "sync/atomic"

// Token is the cooperative cancellation flag shared between the façade
// (which sets it) and a job's worker (which polls it at every progress tick
// or poll boundary).
type Token struct {
	flag atomic.Bool
}

// NewToken creates an unset Token.
func NewToken() *Token {
	return &Token{}
}

// Cancel requests cancellation. Setting an already-set token is a no-op.
func (t *Token) Cancel() {
	t.flag.Store(true)
}

// Cancelled reports whether cancellation has been requested.
func (t *Token) Cancelled() bool {
	return t.flag.Load()
}
