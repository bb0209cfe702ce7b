package service

import (
	"sort"
	"sync"
	"time"
)

const DefaultAnimationWindow = 1500 * time.Millisecond

// ChangeAnimator keeps a per-symbol "just changed" flag that expires one
// window after the latest Trigger for that symbol.
type ChangeAnimator struct {
	window time.Duration
	// onExpire is called outside the lock after a flag expires on its own.
	onExpire func(symbol string)

	mu     sync.Mutex
	active map[string]*animation
}

type animation struct {
	timer       *time.Timer
	activeUntil time.Time
}

func NewChangeAnimator(window time.Duration, onExpire func(string)) *ChangeAnimator {
	if window <= 0 {
		window = DefaultAnimationWindow
	}
	return &ChangeAnimator{window: window, onExpire: onExpire, active: make(map[string]*animation)}
}

// Trigger marks symbol active and restarts its expiry.
func (a *ChangeAnimator) Trigger(symbol string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if prev, ok := a.active[symbol]; ok {
		prev.timer.Stop()
	}
	anim := &animation{activeUntil: time.Now().Add(a.window)}
	anim.timer = time.AfterFunc(a.window, func() { a.expire(symbol, anim) })
	a.active[symbol] = anim
}

func (a *ChangeAnimator) expire(symbol string, anim *animation) {
	a.mu.Lock()
	// a newer Trigger may have replaced this animation after the timer fired
	if a.active[symbol] != anim {
		a.mu.Unlock()
		return
	}
	delete(a.active, symbol)
	a.mu.Unlock()

	if a.onExpire != nil {
		a.onExpire(symbol)
	}
}

func (a *ChangeAnimator) Clear(symbol string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if anim, ok := a.active[symbol]; ok {
		anim.timer.Stop()
		delete(a.active, symbol)
	}
}

// ClearAll stops every pending timer. Used on teardown.
func (a *ChangeAnimator) ClearAll() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for s, anim := range a.active {
		anim.timer.Stop()
		delete(a.active, s)
	}
}

func (a *ChangeAnimator) IsActive(symbol string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.active[symbol]
	return ok
}

// Active returns the sorted set of symbols currently flagged.
func (a *ChangeAnimator) Active() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.active))
	for s := range a.active {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// ActiveUntil reports when the flag of symbol expires.
func (a *ChangeAnimator) ActiveUntil(symbol string) (time.Time, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	anim, ok := a.active[symbol]
	if !ok {
		return time.Time{}, false
	}
	return anim.activeUntil, true
}
