package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

// Cache is a keyed store of values with bounded lifetime.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V)
	Delete(key K)
	Len() int
}

// Cleaner is implemented by caches whose expired entries can be swept.
type Cleaner interface {
	CleanExpired() int
}

// Janitor periodically sweeps registered caches until stopped.
type Janitor struct {
	mu       sync.Mutex
	caches   []Cleaner
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	started  atomic.Bool
	onSweep  func(removed int)
}

// NewJanitor creates a janitor. onSweep, if set, is called after every sweep
// that removed at least one entry.
func NewJanitor(onSweep func(removed int)) *Janitor {
	return &Janitor{
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		onSweep: onSweep,
	}
}

// Register adds a cache to the sweep list.
func (j *Janitor) Register(c Cleaner) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.caches = append(j.caches, c)
}

// Sweep cleans every registered cache once and returns the removed count.
func (j *Janitor) Sweep() int {
	j.mu.Lock()
	caches := append([]Cleaner(nil), j.caches...)
	j.mu.Unlock()

	removed := 0
	for _, c := range caches {
		removed += c.CleanExpired()
	}
	if removed > 0 && j.onSweep != nil {
		j.onSweep(removed)
	}
	return removed
}

// Start sweeps every interval in a background goroutine.
func (j *Janitor) Start(interval time.Duration) {
	if !j.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(j.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				j.Sweep()
			case <-j.stop:
				return
			}
		}
	}()
}

// Stop ends the sweep loop and waits for it. Safe to call more than once.
func (j *Janitor) Stop() {
	j.stopOnce.Do(func() {
		close(j.stop)
		if j.started.Load() {
			<-j.done
		}
	})
}
