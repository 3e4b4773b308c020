// internal/concurrency/pin.go
// Author: momentics <momentics@gmail.com>
//
// Thread placement for worker goroutines: priority first, then CPU pinning.
// Failures degrade gracefully to an unplaced thread.

package concurrency

// place applies the configured priority and pinning to the calling thread and
// reports whether the thread was modified.
func (w *Worker[T]) place() bool {
	if w.affinity == nil {
		return false
	}
	modified := false
	if w.priority != 0 {
		if err := w.affinity.SetPriority(w.priority); err != nil {
			w.log.Warnf("failed to set thread priority %d: %v", w.priority, err)
		} else {
			modified = true
		}
	}
	if w.pin {
		if err := w.affinity.Pin(w.cpu); err != nil {
			w.log.Warnf("failed to pin thread to cpu %d: %v", w.cpu, err)
		} else {
			modified = true
		}
	}
	return modified
}
