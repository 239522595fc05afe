// Package safego launches background goroutines that cannot take the process
// down with them.
package safego

import (
	"log/slog"
	"runtime/debug"
)

// Go runs fn in a new goroutine. A panic inside fn is recovered and logged
// together with its stack. Use it for every fire-and-forget goroutine: the DB
// stats collector, rate limiter cleanup and the side-channel HTTP servers.
func Go(fn func()) {
	go run(fn)
}

// GoDone is Go with a completion signal: the returned channel is closed once
// fn has returned or panicked.
func GoDone(fn func()) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		run(fn)
	}()
	return done
}

func run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("recovered panic in background goroutine", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	fn()
}
