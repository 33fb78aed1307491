// Package schedule runs cancellable periodic tasks on an injectable clock.
package schedule

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Every calls fn on each tick of a ticker with the given interval until
// the returned stop function is called. stop is safe to call more than
// once and returns after the loop goroutine has exited, so fn never runs
// after stop returns. A non-positive interval panics, as time.NewTicker does.
func Every(clock clockwork.Clock, interval time.Duration, fn func(now time.Time)) (stop func()) {
	ticker := clock.NewTicker(interval)
	done := make(chan struct{})
	exited := make(chan struct{})

	go func() {
		defer close(exited)
		for {
			select {
			case <-done:
				return
			case now := <-ticker.Chan():
				select {
				case <-done:
					return
				default:
				}
				fn(now)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
		<-exited
	}
}
