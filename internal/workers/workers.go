package workers

import (
	"context"
	"log"
	"time"
)

// Sweeper drops in-memory state that has been idle since before cutoff and
// reports how many entries it removed.
type Sweeper interface {
	Sweep(cutoff time.Time) int
}

type SweeperFunc func(cutoff time.Time) int

func (f SweeperFunc) Sweep(cutoff time.Time) int { return f(cutoff) }

// StartCleanupWorker runs every sweeper once per interval, evicting entries
// idle for longer than maxIdle, until ctx is cancelled.
func StartCleanupWorker(ctx context.Context, interval, maxIdle time.Duration, sweepers map[string]Sweeper) {
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				RunOnce(now.Add(-maxIdle), sweepers)
			}
		}
	}()
}

func RunOnce(cutoff time.Time, sweepers map[string]Sweeper) int {
	total := 0
	for name, s := range sweepers {
		if n := s.Sweep(cutoff); n > 0 {
			log.Printf("Cleanup: Evicted %d idle %s", n, name)
			total += n
		}
	}
	return total
}
