package engine

import (
	"context"
	"time"
)

type waitKind int

const (
	waitInteraction waitKind = iota
	waitChoice
)

// waiter is a path suspended on player input. ch receives the selected
// index for choices, 0 for interactions, or -1 when the wait is released
// without input.
type waiter struct {
	kind    waitKind
	ch      chan int
	done    bool
	counted bool
}

// Interact delivers one player interaction ("continue"). It releases the
// most recent interaction wait and reports whether one was pending.
func (e *Engine) Interact() bool {
	e.inMu.Lock()
	defer e.inMu.Unlock()
	for i := len(e.waiters) - 1; i >= 0; i-- {
		if w := e.waiters[i]; w.kind == waitInteraction {
			e.resolveLocked(w, 0)
			return true
		}
	}
	return false
}

// Awaiting reports whether some path is waiting for an interaction.
func (e *Engine) Awaiting() bool {
	e.inMu.Lock()
	defer e.inMu.Unlock()
	for _, w := range e.waiters {
		if w.kind == waitInteraction && w.counted {
			return true
		}
	}
	return false
}

// Running reports whether any execution path exists.
func (e *Engine) Running() bool {
	return e.pathCount() > 0
}

// WaitIdle blocks until every execution path is either finished or waiting
// for player input.
func (e *Engine) WaitIdle(ctx context.Context) error {
	for {
		e.inMu.Lock()
		if e.paths == e.awaiting {
			e.inMu.Unlock()
			return nil
		}
		ch := e.changedCh
		e.inMu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (e *Engine) pathCount() int {
	e.inMu.Lock()
	defer e.inMu.Unlock()
	return e.paths
}

// beginPath counts a new path and returns its sequence number.
func (e *Engine) beginPath() uint64 {
	e.inMu.Lock()
	defer e.inMu.Unlock()
	e.paths++
	e.pathSeq++
	e.changed()
	return e.pathSeq
}

func (e *Engine) endPath() {
	e.inMu.Lock()
	e.paths--
	e.changed()
	e.inMu.Unlock()
}

// changed wakes WaitIdle callers. inMu must be held.
func (e *Engine) changed() {
	close(e.changedCh)
	e.changedCh = make(chan struct{})
}

func (e *Engine) newWaiter(kind waitKind) *waiter {
	w := &waiter{kind: kind, ch: make(chan int, 1)}
	e.inMu.Lock()
	e.waiters = append(e.waiters, w)
	e.inMu.Unlock()
	return w
}

// resolve delivers v to w unless it was already resolved.
func (e *Engine) resolve(w *waiter, v int) bool {
	e.inMu.Lock()
	defer e.inMu.Unlock()
	return e.resolveLocked(w, v)
}

func (e *Engine) resolveLocked(w *waiter, v int) bool {
	if w.done {
		return false
	}
	w.done = true
	w.ch <- v
	if w.counted {
		e.awaiting--
		e.changed()
	}
	for i, other := range e.waiters {
		if other == w {
			e.waiters = append(e.waiters[:i], e.waiters[i+1:]...)
			break
		}
	}
	return true
}

// releaseAll releases every pending wait without input.
func (e *Engine) releaseAll() {
	e.inMu.Lock()
	defer e.inMu.Unlock()
	for len(e.waiters) > 0 {
		e.resolveLocked(e.waiters[0], -1)
	}
}

// await suspends the calling path until w is resolved, extra (if non-nil)
// is closed, or ctx ends. The token is released while suspended.
func (e *Engine) await(ctx context.Context, w *waiter, extra <-chan struct{}) int {
	e.inMu.Lock()
	if !w.done {
		w.counted = true
		e.awaiting++
		e.changed()
	}
	e.inMu.Unlock()

	e.mu.Unlock()
	defer e.mu.Lock()

	select {
	case v := <-w.ch:
		return v
	case <-extra:
	case <-ctx.Done():
	}
	if e.resolve(w, -1) {
		<-w.ch
		return -1
	}
	return <-w.ch
}

// sleep suspends the calling path for d, releasing the token. It returns
// early when the scene generation changes.
func (e *Engine) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	superseded := e.epochCh
	e.mu.Unlock()
	defer e.mu.Lock()

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-superseded:
	case <-ctx.Done():
	}
}

// waitMedia suspends until done is closed or the timeout elapses.
func (e *Engine) waitMedia(ctx context.Context, done <-chan struct{}, timeout time.Duration) {
	if done == nil {
		e.sleep(ctx, timeout)
		return
	}
	superseded := e.epochCh
	e.mu.Unlock()
	defer e.mu.Lock()

	var expire <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expire = t.C
	}
	select {
	case <-done:
	case <-expire:
	case <-superseded:
	case <-ctx.Done():
	}
}
