package vault

import (
	"context"
	"sync"
)

// promptRequest is one outstanding password request, resolved exactly
// once by Submit or Cancel.
type promptRequest struct {
	done     chan struct{}
	password string
	err      error
}

// Prompt serializes interactive password requests: at most one is
// outstanding, held in an explicit pending slot rather than captured
// in a closure. A second Request while one is pending joins it and
// receives the same outcome; concurrent independent prompts are not
// supported.
//
// The UI polls Pending to decide whether to show the dialog and calls
// Submit or Cancel when the user acts.
type Prompt struct {
	mu      sync.Mutex
	pending *promptRequest
}

// Request blocks until a password is submitted, the prompt is
// cancelled (ErrCancelled) or ctx is done.
func (p *Prompt) Request(ctx context.Context) (string, error) {
	p.mu.Lock()
	req := p.pending
	if req == nil {
		req = &promptRequest{done: make(chan struct{})}
		p.pending = req
	}
	p.mu.Unlock()

	select {
	case <-req.done:
		return req.password, req.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Pending reports whether a request is awaiting user input.
func (p *Prompt) Pending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending != nil
}

// Submit resolves the pending request with the entered password.
// Reports false when nothing was pending.
func (p *Prompt) Submit(password string) bool {
	return p.resolve(password, nil)
}

// Cancel resolves the pending request with ErrCancelled, which callers
// treat as a non-error terminal outcome distinct from a wrong
// password.
func (p *Prompt) Cancel() bool {
	return p.resolve("", ErrCancelled)
}

func (p *Prompt) resolve(password string, err error) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending == nil {
		return false
	}
	p.pending.password = password
	p.pending.err = err
	close(p.pending.done)
	p.pending = nil
	return true
}
