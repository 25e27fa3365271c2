package risk

import (
	"sync"
	"sync/atomic"
)

// Brake is the sticky emergency stop shared by every symbol's
// evaluation. The gate is its single writer (via Trip); everything else
// only reads. Once tripped it stays engaged until Clear is called by an
// operator or the controlling loop, so no new order can slip out while
// the account is in a drawdown breach.
//
// It is an explicit cell handed to whoever needs it, never a package
// global. Engaged is a lock-free read; Trip and Clear serialize on the
// mutex so the reason is always set before the flag flips.
type Brake struct {
	engaged atomic.Bool

	mu     sync.Mutex
	reason string
}

// NewBrake returns a disengaged brake.
func NewBrake() *Brake { return &Brake{} }

// Trip engages the brake. The first trip wins; later calls keep the
// original reason so the journal records what actually stopped trading.
func (b *Brake) Trip(reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.engaged.Load() {
		return
	}
	b.reason = reason
	b.engaged.Store(true)
}

// Engaged reports whether the stop is active.
func (b *Brake) Engaged() bool { return b.engaged.Load() }

// Reason returns why the brake tripped, or "" when disengaged.
func (b *Brake) Reason() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reason
}

// Clear releases the brake. This is the external operator action; the
// gate never clears its own stop.
func (b *Brake) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reason = ""
	b.engaged.Store(false)
}
