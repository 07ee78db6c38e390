package utils

// InFlight is a single-slot guard that suppresses overlapping runs.
// A run that cannot acquire the slot is dropped, not queued.
type InFlight struct {
	slot chan struct{}
}

// NewInFlight creates an idle guard.
func NewInFlight() *InFlight {
	return &InFlight{slot: make(chan struct{}, 1)}
}

// TryAcquire takes the slot if it is free and reports whether it did.
func (g *InFlight) TryAcquire() bool {
	select {
	case g.slot <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release frees the slot. Releasing an idle guard is a no-op.
func (g *InFlight) Release() {
	select {
	case <-g.slot:
	default:
	}
}

// Busy reports whether a run currently holds the slot.
func (g *InFlight) Busy() bool {
	return len(g.slot) == 1
}

// Run executes fn unless another run holds the slot. It reports whether fn ran.
func (g *InFlight) Run(fn func()) bool {
	if !g.TryAcquire() {
		return false
	}
	defer g.Release()
	fn()
	return true
}
