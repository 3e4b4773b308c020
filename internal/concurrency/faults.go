// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// FaultLog keeps the most recent handler panics of a worker.

package concurrency

import (
	"sync"
	"time"

	"github.com/eapache/queue"
)

// Fault describes one recovered handler panic.
type Fault struct {
	Worker    string
	Value     any
	Recovered any
	Stack     []byte
	At        time.Time
}

// FaultLog is a bounded FIFO of faults; the oldest entry is evicted first.
type FaultLog struct {
	mu    sync.Mutex
	q     *queue.Queue
	limit int
	total uint64
}

// NewFaultLog retains up to limit faults. A limit of zero only counts them.
func NewFaultLog(limit int) *FaultLog {
	return &FaultLog{q: queue.New(), limit: max(limit, 0)}
}

// Record appends f, evicting the oldest fault when full.
func (l *FaultLog) Record(f Fault) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.total++
	if l.limit == 0 {
		return
	}
	if l.q.Length() >= l.limit {
		l.q.Remove()
	}
	l.q.Add(f)
}

// Snapshot returns the retained faults, oldest first.
func (l *FaultLog) Snapshot() []Fault {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Fault, l.q.Length())
	for i := range out {
		out[i] = l.q.Get(i).(Fault)
	}
	return out
}

// Total returns the number of faults ever recorded, evicted ones included.
func (l *FaultLog) Total() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}
