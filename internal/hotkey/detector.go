package hotkey

import "time"

// DefaultCooldown is the minimum spacing between two fires.
const DefaultCooldown = 500 * time.Millisecond

// KeyState reports whether a virtual key is held right now.
type KeyState interface {
	IsDown(vk uint32) bool
}

// Detector edge-fires a Combo on release after both keys were held.
//
// Firing on release rather than press means holding the combo never repeats.
// While the cool-down after a fire is running the key state is not sampled
// at all, so a quick release/re-press is swallowed.
type Detector struct {
	keys     KeyState
	combo    Combo
	cooldown time.Duration

	pending  bool
	lastFire time.Time
}

// NewDetector creates a detector polling keys for combo.
func NewDetector(keys KeyState, combo Combo, cooldown time.Duration) *Detector {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Detector{keys: keys, combo: combo, cooldown: cooldown}
}

// Combo returns the watched combination.
func (d *Detector) Combo() Combo {
	return d.combo
}

// Pending reports whether both keys have been seen held since the last fire.
func (d *Detector) Pending() bool {
	return d.pending
}

// Poll samples the key state once and reports whether the hotkey fired.
func (d *Detector) Poll(now time.Time) bool {
	if !d.lastFire.IsZero() && now.Sub(d.lastFire) < d.cooldown {
		return false
	}

	var held [2]bool
	for i, vk := range d.combo {
		held[i] = vk == 0 || d.keys.IsDown(vk)
	}

	if held[0] && held[1] {
		d.pending = true
		return false
	}

	if !held[0] && !held[1] && d.pending {
		d.pending = false
		d.lastFire = now
		return true
	}
	return false
}
