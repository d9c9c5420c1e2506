package service

import (
	"sync/atomic"

	"github.com/jafarshop/relister/internal/metrics"
)

// FlightGuard admits one upload at a time. A second caller is refused
// immediately rather than queued.
type FlightGuard struct {
	busy atomic.Bool
}

// TryAcquire takes the slot and reports whether it was free
func (g *FlightGuard) TryAcquire() bool {
	if !g.busy.CompareAndSwap(false, true) {
		return false
	}
	metrics.UploadInFlight.Set(1)
	return true
}

// Release frees the slot. Releasing a free guard is a no-op.
func (g *FlightGuard) Release() {
	if g.busy.CompareAndSwap(true, false) {
		metrics.UploadInFlight.Set(0)
	}
}

// Busy reports whether an upload holds the slot
func (g *FlightGuard) Busy() bool {
	return g.busy.Load()
}
