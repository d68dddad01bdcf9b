/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package lrucache

import (
	"bytes"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
)

// ErrGoexit is returned to callers waiting for a loader that called runtime.Goexit.
var ErrGoexit = errors.New("runtime.Goexit was called")

// PanicError is an error that represents a panic value and stack trace.
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("%v\n\n%s", p.Value, p.Stack)
}

// Unwrap returns the panic value if it is an error.
func (p *PanicError) Unwrap() error {
	err, ok := p.Value.(error)
	if !ok {
		return nil
	}
	return err
}

func newPanicError(v interface{}) *PanicError {
	stack := debug.Stack()
	// Drop the "goroutine N [status]:" line, it describes a goroutine that may have already changed state.
	if line := bytes.IndexByte(stack, '\n'); line >= 0 {
		stack = stack[line+1:]
	}
	return &PanicError{Value: v, Stack: stack}
}

type inflightLoad[V any] struct {
	done chan struct{}
	val  V
	err  error
}

// loadGroup suppresses duplicate loads: only one function runs per key at a time,
// and callers arriving meanwhile wait for its result.
type loadGroup[K comparable, V any] struct {
	mu       sync.Mutex
	inflight map[K]*inflightLoad[V]
}

func (g *loadGroup[K, V]) Do(key K, fn func() (V, error)) (V, error) {
	g.mu.Lock()
	if g.inflight == nil {
		g.inflight = make(map[K]*inflightLoad[V])
	}
	if call, ok := g.inflight[key]; ok {
		g.mu.Unlock()
		<-call.done
		return call.val, call.err
	}
	call := &inflightLoad[V]{done: make(chan struct{})}
	g.inflight[key] = call
	g.mu.Unlock()

	g.run(key, call, fn)
	return call.val, call.err
}

func (g *loadGroup[K, V]) run(key K, call *inflightLoad[V], fn func() (V, error)) {
	returned := false
	var panicErr *PanicError

	// Outer defer publishes the result; it also runs on runtime.Goexit, when neither flag is set.
	defer func() {
		switch {
		case panicErr != nil:
			call.err = panicErr
		case !returned:
			call.err = ErrGoexit
		}

		g.mu.Lock()
		delete(g.inflight, key)
		g.mu.Unlock()
		close(call.done)

		if panicErr != nil {
			panic(panicErr.Value)
		}
	}()

	func() {
		defer func() {
			if !returned {
				if v := recover(); v != nil {
					panicErr = newPanicError(v)
				}
			}
		}()
		call.val, call.err = fn()
		returned = true
	}()
}
