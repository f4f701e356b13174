package timer

import (
	"sort"
	"sync"
	"time"
)

// Fake is a manual Scheduler. Nothing fires until Advance moves its clock.
type Fake struct {
	mu    sync.Mutex
	now   time.Duration
	seq   int
	items []*fakeTimer
}

type fakeTimer struct {
	fake    *Fake
	at      time.Duration
	seq     int
	f       func()
	stopped bool
}

func NewFake() *Fake { return &Fake{} }

func (f *Fake) AfterFunc(d time.Duration, fn func()) Stopper {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{fake: f, at: f.now + d, seq: f.seq, f: fn}
	f.seq++
	f.items = append(f.items, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.fake.mu.Lock()
	defer t.fake.mu.Unlock()
	for i, it := range t.fake.items {
		if it == t {
			t.fake.items = append(t.fake.items[:i], t.fake.items[i+1:]...)
			t.stopped = true
			return true
		}
	}
	return false
}

// Advance moves the clock forward by d, firing due callbacks in order.
// Callbacks run on the calling goroutine and may schedule more work.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now + d
	f.mu.Unlock()

	for {
		f.mu.Lock()
		sort.SliceStable(f.items, func(i, j int) bool {
			if f.items[i].at != f.items[j].at {
				return f.items[i].at < f.items[j].at
			}
			return f.items[i].seq < f.items[j].seq
		})
		if len(f.items) == 0 || f.items[0].at > target {
			f.now = target
			f.mu.Unlock()
			return
		}
		next := f.items[0]
		f.items = f.items[1:]
		f.now = next.at
		f.mu.Unlock()

		next.f()
	}
}

// Pending counts scheduled callbacks that have not fired or been stopped.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}
