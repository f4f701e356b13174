// Package timer holds the local clocks of a session: the match countdown and
// the hold windows between an answer result and the next question.
//
// Nothing in here runs user code on a timer goroutine. Every callback is handed
// to an Exec function, which the session points at its own goroutine, and
// every callback carries a generation so a fire that raced a Stop is dropped.
package timer

import "time"

// Stopper is the part of *time.Timer the package needs.
type Stopper interface {
	Stop() bool
}

type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Stopper
}

// Exec runs f on the goroutine that owns the session state.
type Exec func(f func())

type Real struct{}

func (Real) AfterFunc(d time.Duration, f func()) Stopper { return time.AfterFunc(d, f) }

// Inline runs callbacks on whichever goroutine fired them. Only for
// single-goroutine use such as tests with a Fake scheduler.
func Inline(f func()) { f() }

// Countdown ticks once a second from a starting value down to zero.
type Countdown struct {
	sched     Scheduler
	exec      Exec
	gen       uint64
	pending   Stopper
	remaining int
	running   bool
	onTick    func(remaining int)
	onExpire  func()
}

func NewCountdown(sched Scheduler, exec Exec) *Countdown {
	return &Countdown{sched: sched, exec: exec}
}

// Start begins counting from seconds. onTick sees every decrement, onExpire
// runs once when zero is reached, after which the countdown halts.
func (c *Countdown) Start(seconds int, onTick func(remaining int), onExpire func()) {
	c.Stop()
	c.remaining = seconds
	c.onTick = onTick
	c.onExpire = onExpire
	c.running = true
	if seconds <= 0 {
		c.running = false
		onExpire()
		return
	}
	c.schedule()
}

func (c *Countdown) schedule() {
	gen := c.gen
	c.pending = c.sched.AfterFunc(time.Second, func() {
		c.exec(func() { c.fire(gen) })
	})
}

func (c *Countdown) fire(gen uint64) {
	if gen != c.gen || !c.running {
		return
	}
	c.remaining--
	c.onTick(c.remaining)
	if c.remaining <= 0 {
		c.running = false
		c.onExpire()
		return
	}
	c.schedule()
}

// Stop halts the countdown. A tick already in flight is discarded.
func (c *Countdown) Stop() {
	c.running = false
	c.gen++
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
}

func (c *Countdown) Running() bool  { return c.running }
func (c *Countdown) Remaining() int { return c.remaining }

type hold struct {
	gen     uint64
	stopper Stopper
}

// Holds is a set of one-shot delays keyed by an int, in practice the question
// index that scheduled them.
type Holds struct {
	sched   Scheduler
	exec    Exec
	gen     uint64
	pending map[int]hold
}

func NewHolds(sched Scheduler, exec Exec) *Holds {
	return &Holds{sched: sched, exec: exec, pending: map[int]hold{}}
}

// Schedule runs f after d unless key is cancelled first. Scheduling a key
// that is already pending replaces it.
func (h *Holds) Schedule(key int, d time.Duration, f func()) {
	h.Cancel(key)
	h.gen++
	gen := h.gen
	st := h.sched.AfterFunc(d, func() {
		h.exec(func() { h.fire(key, gen, f) })
	})
	h.pending[key] = hold{gen: gen, stopper: st}
}

func (h *Holds) fire(key int, gen uint64, f func()) {
	cur, ok := h.pending[key]
	if !ok || cur.gen != gen {
		return
	}
	delete(h.pending, key)
	f()
}

func (h *Holds) Cancel(key int) {
	if cur, ok := h.pending[key]; ok {
		cur.stopper.Stop()
		delete(h.pending, key)
	}
}

func (h *Holds) CancelAll() {
	for key := range h.pending {
		h.Cancel(key)
	}
}

func (h *Holds) Pending() int { return len(h.pending) }
