// README: State machine and resync tests for the order tracker.
package order

import (
	"context"
	"sync"
	"testing"
	"time"

	"ridetrack/internal/apperrors"
	"ridetrack/internal/types"
)

// TestCanTransition verifies the status graph table.
func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		// happy-path forward transitions
		{StatusPendingMatch, StatusDriverAssigned, true},
		{StatusDriverAssigned, StatusAccepted, true},
		{StatusAccepted, StatusArrived, true},
		{StatusArrived, StatusInProgress, true},
		{StatusInProgress, StatusCompleted, true},
		{StatusCompleted, StatusPaid, true},
		// cancel from every non-terminal status
		{StatusPendingMatch, StatusCancelled, true},
		{StatusDriverAssigned, StatusCancelled, true},
		{StatusAccepted, StatusCancelled, true},
		{StatusArrived, StatusCancelled, true},
		{StatusInProgress, StatusCancelled, true},
		// invalid: cancel from terminal statuses
		{StatusCompleted, StatusCancelled, false},
		{StatusPaid, StatusCancelled, false},
		{StatusCancelled, StatusCancelled, false},
		// invalid: skipping states
		{StatusPendingMatch, StatusAccepted, false},
		{StatusPendingMatch, StatusCompleted, false},
		{StatusDriverAssigned, StatusArrived, false},
		{StatusAccepted, StatusInProgress, false},
		// invalid: going backwards
		{StatusAccepted, StatusDriverAssigned, false},
		{StatusInProgress, StatusArrived, false},
		// invalid: leaving terminal statuses
		{StatusPaid, StatusPendingMatch, false},
		{StatusCancelled, StatusPendingMatch, false},
	}
	for _, tc := range cases {
		got := CanTransition(tc.from, tc.to)
		if got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestTerminal(t *testing.T) {
	terminal := []Status{StatusCompleted, StatusPaid, StatusCancelled}
	for _, s := range terminal {
		if !Terminal(s) {
			t.Errorf("Terminal(%s) = false, want true", s)
		}
	}
	active := []Status{StatusPendingMatch, StatusDriverAssigned, StatusAccepted, StatusArrived, StatusInProgress}
	for _, s := range active {
		if Terminal(s) {
			t.Errorf("Terminal(%s) = true, want false", s)
		}
	}
}

// fakeFetcher returns a configurable snapshot or error.
type fakeFetcher struct {
	mu    sync.Mutex
	order Order
	err   error
	calls int
}

func (f *fakeFetcher) GetOrder(_ context.Context, _ types.ID) (*Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	o := f.order
	return &o, nil
}

func (f *fakeFetcher) set(o Order, err error) {
	f.mu.Lock()
	f.order = o
	f.err = err
	f.mu.Unlock()
}

func baseOrder(status Status) Order {
	return Order{
		ID:             "o1",
		Status:         status,
		ServiceType:    "economy",
		Pickup:         types.Point{Lat: 25.033, Lng: 121.565},
		EstimatedPrice: types.Money{Amount: 25000, Currency: "NTD"},
		CreatedAt:      time.Now(),
	}
}

func startService(t *testing.T, f *fakeFetcher) *Service {
	t.Helper()
	svc := NewService(f, Config{ResyncInterval: time.Hour})
	t.Cleanup(svc.Stop)
	return svc
}

func TestStartFetchesSnapshot(t *testing.T) {
	f := &fakeFetcher{order: baseOrder(StatusPendingMatch)}
	svc := startService(t, f)

	if err := svc.Start(context.Background(), "o1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := svc.Status(); got != StatusPendingMatch {
		t.Fatalf("status = %s, want %s", got, StatusPendingMatch)
	}
	if got := svc.ID(); got != "o1" {
		t.Fatalf("id = %s, want o1", got)
	}
}

func TestStartPropagatesFetchError(t *testing.T) {
	f := &fakeFetcher{err: apperrors.ErrOrderNotFound}
	svc := startService(t, f)

	if err := svc.Start(context.Background(), "o1"); err == nil {
		t.Fatal("start succeeded with a failing fetcher")
	}
	if _, ok := svc.Snapshot(); ok {
		t.Fatal("snapshot present after failed start")
	}
}

func TestApplyLegalTransitionEmitsOnce(t *testing.T) {
	f := &fakeFetcher{order: baseOrder(StatusPendingMatch)}
	svc := startService(t, f)

	var mu sync.Mutex
	var events []Transition
	svc.OnTransition(func(ev Transition) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})
	if err := svc.Start(context.Background(), "o1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	svc.Apply(StatusDriverAssigned)
	svc.Apply(StatusDriverAssigned) // same status, no-op

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 1 {
		t.Fatalf("got %d transition events, want 1", len(events))
	}
	if events[0].From != StatusPendingMatch || events[0].To != StatusDriverAssigned {
		t.Fatalf("event = %s -> %s, want %s -> %s",
			events[0].From, events[0].To, StatusPendingMatch, StatusDriverAssigned)
	}
}

func TestApplyIgnoresIllegalTransition(t *testing.T) {
	f := &fakeFetcher{order: baseOrder(StatusPendingMatch)}
	svc := startService(t, f)

	fired := false
	svc.OnTransition(func(Transition) { fired = true })
	if err := svc.Start(context.Background(), "o1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	svc.Apply(StatusCompleted) // cannot skip the whole trip
	if fired {
		t.Fatal("listener fired for an illegal transition")
	}
	if got := svc.Status(); got != StatusPendingMatch {
		t.Fatalf("status = %s, want unchanged %s", got, StatusPendingMatch)
	}
}

func TestResyncMergesSnapshot(t *testing.T) {
	f := &fakeFetcher{order: baseOrder(StatusPendingMatch)}
	svc := startService(t, f)

	var mu sync.Mutex
	var events []Transition
	svc.OnTransition(func(ev Transition) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})
	if err := svc.Start(context.Background(), "o1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	next := baseOrder(StatusDriverAssigned)
	next.Driver = &Driver{ID: "d1", Name: "Alex", Vehicle: "Toyota Vios", Rating: 4.9}
	f.set(next, nil)

	svc.Resync(context.Background())

	o, ok := svc.Snapshot()
	if !ok {
		t.Fatal("no snapshot after resync")
	}
	if o.Status != StatusDriverAssigned {
		t.Fatalf("status = %s, want %s", o.Status, StatusDriverAssigned)
	}
	if o.Driver == nil || o.Driver.ID != "d1" {
		t.Fatal("driver not merged from resync")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(events) != 1 {
		t.Fatalf("got %d transition events, want 1", len(events))
	}
}

func TestResyncFatalOnOrderGone(t *testing.T) {
	f := &fakeFetcher{order: baseOrder(StatusDriverAssigned)}
	svc := startService(t, f)

	var got error
	svc.OnFatal(func(err error) { got = err })
	if err := svc.Start(context.Background(), "o1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	f.set(Order{}, apperrors.ErrOrderNotFound)
	svc.Resync(context.Background())

	if got != apperrors.ErrOrderNotFound {
		t.Fatalf("fatal hook got %v, want ErrOrderNotFound", got)
	}
}

func TestResyncSwallowsNetworkError(t *testing.T) {
	f := &fakeFetcher{order: baseOrder(StatusDriverAssigned)}
	svc := startService(t, f)

	fatal := false
	svc.OnFatal(func(error) { fatal = true })
	if err := svc.Start(context.Background(), "o1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	f.set(Order{}, &apperrors.NetworkError{Detail: "timeout"})
	svc.Resync(context.Background())

	if fatal {
		t.Fatal("network error treated as fatal")
	}
	if got := svc.Status(); got != StatusDriverAssigned {
		t.Fatalf("status = %s, want unchanged %s", got, StatusDriverAssigned)
	}
}

func TestSetDriverFixKeepsIdentity(t *testing.T) {
	o := baseOrder(StatusDriverAssigned)
	o.Driver = &Driver{ID: "d1", Name: "Alex", Phone: "0912345678", Vehicle: "Toyota Vios", Rating: 4.9}
	f := &fakeFetcher{order: o}
	svc := startService(t, f)
	if err := svc.Start(context.Background(), "o1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	eta := 3 * time.Minute
	svc.SetDriverFix(types.Point{Lat: 25.04, Lng: 121.52}, &eta)

	got, _ := svc.Snapshot()
	if got.Driver == nil || got.Driver.Location == nil {
		t.Fatal("driver fix not applied")
	}
	if got.Driver.Location.Lat != 25.04 {
		t.Fatalf("driver lat = %f, want 25.04", got.Driver.Location.Lat)
	}
	if got.Driver.EstimatedArrival == nil || *got.Driver.EstimatedArrival != eta {
		t.Fatal("driver eta not applied")
	}
	if got.Driver.ID != "d1" || got.Driver.Name != "Alex" {
		t.Fatal("driver identity fields lost on fix update")
	}
}

func TestSnapshotReturnsCopy(t *testing.T) {
	o := baseOrder(StatusDriverAssigned)
	o.Driver = &Driver{ID: "d1", Name: "Alex"}
	f := &fakeFetcher{order: o}
	svc := startService(t, f)
	if err := svc.Start(context.Background(), "o1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	snap, _ := svc.Snapshot()
	snap.Driver.Name = "Mallory"
	snap.Status = StatusCancelled

	fresh, _ := svc.Snapshot()
	if fresh.Driver.Name != "Alex" || fresh.Status != StatusDriverAssigned {
		t.Fatal("mutating a snapshot leaked into the service")
	}
}

func TestConcurrentApply(t *testing.T) {
	f := &fakeFetcher{order: baseOrder(StatusPendingMatch)}
	svc := startService(t, f)

	var mu sync.Mutex
	count := 0
	svc.OnTransition(func(Transition) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	if err := svc.Start(context.Background(), "o1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.Apply(StatusDriverAssigned)
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Fatalf("transition emitted %d times under contention, want 1", count)
	}
}
