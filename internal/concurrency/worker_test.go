package concurrency

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/chainguard-dev/clog/slogtest"
	"github.com/google/go-cmp/cmp"

	"github.com/ryntric/affinity-dispatcher/api"
)

type recordingHandler struct {
	mu     sync.Mutex
	values []int
	names  map[string]int
}

func (h *recordingHandler) Handle(worker string, v int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.names == nil {
		h.names = map[string]int{}
	}
	h.names[worker]++
	h.values = append(h.values, v)
}

func (h *recordingHandler) snapshot() []int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]int(nil), h.values...)
}

type fakeAffinity struct {
	mu       sync.Mutex
	pinned   []int
	priority []int
	err      error
}

func (f *fakeAffinity) Pin(cpu int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pinned = append(f.pinned, cpu)
	return f.err
}

func (f *fakeAffinity) SetPriority(nice int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.priority = append(f.priority, nice)
	return f.err
}

type countingObserver struct {
	delivered atomic.Int64
	panics    atomic.Int64
}

func (o *countingObserver) ObserveDelivered(n int) { o.delivered.Add(int64(n)) }
func (o *countingObserver) ObservePanic()          { o.panics.Add(1) }

func testLogger(t *testing.T) *clog.Logger {
	return clog.FromContext(slogtest.Context(t))
}

func newTestWorker(t *testing.T, handler api.Handler[int], opts WorkerOptions) *Worker[int] {
	t.Helper()
	ch := newTestChannel[int](t, api.MPSC, 16, api.ConsumerBlocking)
	if opts.Logger == nil {
		opts.Logger = testLogger(t)
	}
	return NewWorker("test-worker-th-0", ch, handler, opts)
}

func awaitDone(t *testing.T, w *Worker[int]) {
	t.Helper()
	select {
	case <-w.Done():
	case <-time.After(10 * time.Second):
		t.Fatalf("worker %s did not exit", w.Name())
	}
}

func awaitDelivered(t *testing.T, w *Worker[int], n uint64) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for w.Handled() < n {
		if time.Now().After(deadline) {
			t.Fatalf("delivered %d/%d", w.Handled(), n)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestWorker_DeliversInOrder(t *testing.T) {
	h := &recordingHandler{}
	obs := &countingObserver{}
	w := newTestWorker(t, h, WorkerOptions{BatchSize: 4, Observer: obs})
	w.Start()

	want := sequence(0, 100)
	for _, v := range want {
		w.Publish(v)
	}
	awaitDelivered(t, w, 100)
	w.Terminate()
	awaitDone(t, w)

	if diff := cmp.Diff(want, h.snapshot()); diff != "" {
		t.Errorf("delivery order (-want +got):\n%s", diff)
	}
	if h.names["test-worker-th-0"] != 100 {
		t.Errorf("handler saw worker names %v", h.names)
	}
	if got := obs.delivered.Load(); got != 100 {
		t.Errorf("observer delivered = %d, want 100", got)
	}
	if w.Running() {
		t.Error("Running() = true after Terminate")
	}
}

func TestWorker_StartIsIdempotent(t *testing.T) {
	w := newTestWorker(t, &recordingHandler{}, WorkerOptions{})
	w.Start()
	w.Start()
	w.Terminate()
	// A second run loop would close done twice and panic.
	awaitDone(t, w)
}

func TestWorker_TerminateBeforeStart(t *testing.T) {
	h := &recordingHandler{}
	w := newTestWorker(t, h, WorkerOptions{})
	w.PublishBatch(1, 2, 3)
	w.Terminate()
	w.Start()
	awaitDone(t, w)

	if w.Running() {
		t.Error("Running() = true for a worker terminated before Start")
	}
	if diff := cmp.Diff([]int{1, 2, 3}, h.snapshot()); diff != "" {
		t.Errorf("queued entries not drained (-want +got):\n%s", diff)
	}
}

func TestWorker_DrainsOnTerminate(t *testing.T) {
	gate := make(chan struct{})
	var first sync.Once
	entered := make(chan struct{})
	h := &recordingHandler{}
	handler := api.HandlerFunc[int](func(worker string, v int) {
		first.Do(func() {
			close(entered)
			<-gate
		})
		h.Handle(worker, v)
	})

	w := newTestWorker(t, handler, WorkerOptions{BatchSize: 2})
	w.Start()
	w.Publish(0)
	<-entered

	// Queued behind the blocked handler.
	for i := 1; i < 10; i++ {
		w.Publish(i)
	}
	w.Terminate()
	close(gate)
	awaitDone(t, w)

	if diff := cmp.Diff(sequence(0, 10), h.snapshot()); diff != "" {
		t.Errorf("entries published before Terminate were lost (-want +got):\n%s", diff)
	}
	if got := w.Len(); got != 0 {
		t.Errorf("Len() after exit = %d, want 0", got)
	}
}

func TestWorker_RecoversHandlerPanic(t *testing.T) {
	h := &recordingHandler{}
	obs := &countingObserver{}
	handler := api.HandlerFunc[int](func(worker string, v int) {
		if v == 3 {
			panic("boom")
		}
		h.Handle(worker, v)
	})

	w := newTestWorker(t, handler, WorkerOptions{Observer: obs, FaultLogSize: 4})
	w.Start()
	w.PublishBatch(sequence(0, 6)...)
	awaitDelivered(t, w, 6)
	w.Terminate()
	awaitDone(t, w)

	if diff := cmp.Diff([]int{0, 1, 2, 4, 5}, h.snapshot()); diff != "" {
		t.Errorf("worker did not continue after panic (-want +got):\n%s", diff)
	}
	faults := w.Faults()
	if len(faults) != 1 {
		t.Fatalf("Faults() = %d entries, want 1", len(faults))
	}
	f := faults[0]
	if f.Worker != w.Name() || f.Value != 3 || f.Recovered != "boom" {
		t.Errorf("fault = {%s %v %v}, want {%s 3 boom}", f.Worker, f.Value, f.Recovered, w.Name())
	}
	if len(f.Stack) == 0 {
		t.Error("fault carries no stack")
	}
	if got := obs.panics.Load(); got != 1 {
		t.Errorf("observer panics = %d, want 1", got)
	}
	if got := w.FaultCount(); got != 1 {
		t.Errorf("FaultCount() = %d, want 1", got)
	}
}

func TestWorker_Placement(t *testing.T) {
	aff := &fakeAffinity{}
	w := newTestWorker(t, &recordingHandler{}, WorkerOptions{Affinity: aff, Priority: 5, Pin: true, CPU: 2})
	w.Start()
	w.Terminate()
	awaitDone(t, w)

	aff.mu.Lock()
	defer aff.mu.Unlock()
	if diff := cmp.Diff([]int{5}, aff.priority); diff != "" {
		t.Errorf("priority calls (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{2}, aff.pinned); diff != "" {
		t.Errorf("pin calls (-want +got):\n%s", diff)
	}
}

func TestWorker_PlacementDefaults(t *testing.T) {
	aff := &fakeAffinity{}
	w := newTestWorker(t, &recordingHandler{}, WorkerOptions{Affinity: aff})
	if w.place() {
		t.Error("place() modified the thread with priority 0 and pinning off")
	}
	if len(aff.priority)+len(aff.pinned) != 0 {
		t.Errorf("unexpected placement calls: priority %v pin %v", aff.priority, aff.pinned)
	}
}

func TestWorker_PlacementFailureIsNotFatal(t *testing.T) {
	aff := &fakeAffinity{err: api.ErrNotSupported}
	h := &recordingHandler{}
	w := newTestWorker(t, h, WorkerOptions{Affinity: aff, Priority: 1, Pin: true})
	if w.place() {
		t.Error("place() reported a modified thread although every call failed")
	}

	w.Start()
	w.Publish(7)
	awaitDelivered(t, w, 1)
	w.Terminate()
	awaitDone(t, w)
	if diff := cmp.Diff([]int{7}, h.snapshot()); diff != "" {
		t.Errorf("delivery (-want +got):\n%s", diff)
	}
}

func TestWorkerFactory_Naming(t *testing.T) {
	seen := map[string]bool{}
	f := NewWorkerFactory[int]("orders", &recordingHandler{}, WorkerOptions{Logger: testLogger(t)},
		func(worker string) Observer {
			seen[worker] = true
			return nil
		})

	var names []string
	var cpus []int
	for i := 0; i < 3; i++ {
		w := f.NewWorker(newTestChannel[int](t, api.SPSC, 4, api.ConsumerBlocking))
		names = append(names, w.Name())
		cpus = append(cpus, w.cpu)
	}

	want := []string{"orders-worker-th-0", "orders-worker-th-1", "orders-worker-th-2"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("worker names (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{0, 1, 2}, cpus); diff != "" {
		t.Errorf("worker cpus (-want +got):\n%s", diff)
	}
	for _, n := range want {
		if !seen[n] {
			t.Errorf("observer factory not called for %s", n)
		}
	}
}
