package utils

import (
	"context"
	"log"
	"time"
)

// BestEffort runs fn on its own goroutine with a detached context. It is
// the single abstraction for fire-and-forget side effects (last-used
// stamps, audit writes, mail dispatch): the failure is logged under name
// and never reaches the caller. The context is detached from the request
// so a client disconnect does not cancel the side effect.
func BestEffort(name string, fn func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := fn(ctx); err != nil {
			log.Printf("%s: best-effort task failed: %v", name, err)
		}
	}()
}
