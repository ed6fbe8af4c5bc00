package schedule

import (
	"sync"

	deadlock "github.com/sasha-s/go-deadlock"
)

// DebugMutex is a sync.Mutex-compatible type that detects lock-order
// inversions and reports stuck locks. No lock in this module uses it yet in
// place of sync.Mutex: the Scheduler's printer lock and the source cache's
// lock are plain sync.Mutex values.
type DebugMutex = deadlock.Mutex

// NewPrinterLock returns a DebugMutex when debug is true and a plain
// sync.Mutex otherwise. Nothing in this module calls it; the driver's
// --debug option does not reach it.
func NewPrinterLock(debug bool) sync.Locker {
	if debug {
		return &DebugMutex{}
	}
	return &sync.Mutex{}
}
