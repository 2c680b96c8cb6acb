package usecase

import (
	"sync"
	"time"
)

// countdown ticks once per interval from budget down to zero. Each tick
// carries the turn token it was started for so stale ticks can be dropped.
type countdown struct {
	stop     chan struct{}
	stopOnce sync.Once
}

func startCountdown(seconds int, interval time.Duration, token uint64, tick func(token uint64, remaining int)) *countdown {
	cd := &countdown{stop: make(chan struct{})}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		remaining := seconds
		for remaining > 0 {
			select {
			case <-cd.stop:
				return
			case <-ticker.C:
				remaining--
				tick(token, remaining)
			}
		}
	}()
	return cd
}

func (cd *countdown) Stop() {
	if cd == nil {
		return
	}
	cd.stopOnce.Do(func() { close(cd.stop) })
}
