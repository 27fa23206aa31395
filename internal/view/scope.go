// Package view provides the mount lifetime that every fetch path commits
// through. Results that arrive after Unmount are dropped.
package view

import (
	"context"
	"sync"
	"sync/atomic"
)

// Scope is the lifetime of one mounted view.
type Scope struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	alive   bool
	loading int32
}

// Mount starts a scope derived from parent.
func Mount(parent context.Context) *Scope {
	ctx, cancel := context.WithCancel(parent)
	return &Scope{ctx: ctx, cancel: cancel, alive: true}
}

// Context is cancelled on Unmount.
func (s *Scope) Context() context.Context { return s.ctx }

// Unmount ends the scope. Safe to call more than once.
func (s *Scope) Unmount() {
	s.mu.Lock()
	s.alive = false
	s.mu.Unlock()
	s.cancel()
}

// Alive reports whether the scope is still mounted.
func (s *Scope) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alive
}

// Commit runs fn only if the scope is still mounted. Commits are serialized
// with Unmount, so fn never runs after Unmount returns.
func (s *Scope) Commit(fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.alive {
		return false
	}
	fn()
	return true
}

// Track marks the scope as loading while fn runs.
func (s *Scope) Track(fn func()) {
	atomic.AddInt32(&s.loading, 1)
	defer atomic.AddInt32(&s.loading, -1)
	fn()
}

// Loading reports whether any tracked work is in flight.
func (s *Scope) Loading() bool {
	return atomic.LoadInt32(&s.loading) > 0
}

// Detached returns a scope whose context Unmount does not cancel. Used by
// one-shot callers such as HTTP handlers whose request context already bounds the work.
func Detached(ctx context.Context) *Scope {
	return &Scope{ctx: ctx, cancel: func() {}, alive: true}
}
