package sequence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// memStore is an in-memory Store with the same conditional-update semantics
// as the database-backed one.
type memStore struct {
	mu       sync.Mutex
	holder   string
	counters map[Series]int64
}

func newMemStore() *memStore {
	return &memStore{counters: map[Series]int64{
		SeriesPurchase: 0,
		SeriesDiscount: 0,
	}}
}

func (s *memStore) TryAcquire(ctx context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.holder != "" {
		return false, nil
	}
	s.holder = token
	return true, nil
}

func (s *memStore) Release(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.holder == token {
		s.holder = ""
	}
	return nil
}

func (s *memStore) ReadCounter(ctx context.Context, series Series) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[series], nil
}

func (s *memStore) WriteCounter(ctx context.Context, series Series, value int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[series] = value
	return nil
}

func TestNextNumber_SequentialAndPadded(t *testing.T) {
	store := newMemStore()
	alloc := New(store)
	ctx := context.Background()

	first, err := alloc.NextNumber(ctx, SeriesPurchase)
	if err != nil {
		t.Fatalf("NextNumber failed: %v", err)
	}
	if first != "000001" {
		t.Errorf("first number = %q, want 000001", first)
	}

	second, err := alloc.NextNumber(ctx, SeriesPurchase)
	if err != nil {
		t.Fatalf("NextNumber failed: %v", err)
	}
	if second != "000002" {
		t.Errorf("second number = %q, want 000002", second)
	}

	// The lock must be free afterwards.
	if store.holder != "" {
		t.Errorf("lock still held by %q", store.holder)
	}
}

func TestNextNumber_SeriesAreIndependent(t *testing.T) {
	alloc := New(newMemStore())
	ctx := context.Background()

	if _, err := alloc.NextNumber(ctx, SeriesPurchase); err != nil {
		t.Fatal(err)
	}
	got, err := alloc.NextNumber(ctx, SeriesDiscount)
	if err != nil {
		t.Fatal(err)
	}
	if got != "000001" {
		t.Errorf("discount series = %q, want 000001", got)
	}
}

func TestNext_WrapsToOne(t *testing.T) {
	store := newMemStore()
	store.counters[SeriesPurchase] = 999999
	alloc := New(store)

	got, err := alloc.NextNumber(context.Background(), SeriesPurchase)
	if err != nil {
		t.Fatal(err)
	}
	if got != "000001" {
		t.Errorf("wrapped number = %q, want 000001", got)
	}
}

func TestAcquire_TimesOutBusy(t *testing.T) {
	store := newMemStore()
	store.holder = "someone-else"
	alloc := New(store, WithPollInterval(time.Millisecond), WithMaxWait(20*time.Millisecond))

	_, err := alloc.Acquire(context.Background())
	if !errors.Is(err, ErrBusy) {
		t.Fatalf("want ErrBusy, got %v", err)
	}
}

func TestAcquire_BlocksUntilRelease(t *testing.T) {
	store := newMemStore()
	alloc := New(store, WithPollInterval(time.Millisecond), WithMaxWait(time.Second))
	ctx := context.Background()

	first, err := alloc.Acquire(ctx)
	if err != nil {
		t.Fatal(err)
	}

	released := make(chan struct{})
	go func() {
		time.Sleep(10 * time.Millisecond)
		close(released)
		_ = first.Release(ctx)
	}()

	second, err := alloc.Acquire(ctx)
	if err != nil {
		t.Fatalf("second Acquire failed: %v", err)
	}
	defer second.Release(ctx)

	select {
	case <-released:
	default:
		t.Fatal("second Acquire succeeded before the first released")
	}
}

func TestAcquire_ContextCancel(t *testing.T) {
	store := newMemStore()
	store.holder = "someone-else"
	alloc := New(store, WithPollInterval(time.Millisecond), WithMaxWait(time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	_, err := alloc.Acquire(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestLease_NextAfterRelease(t *testing.T) {
	alloc := New(newMemStore())
	ctx := context.Background()

	lease, err := alloc.Acquire(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := lease.Release(ctx); err != nil {
		t.Fatal(err)
	}

	if _, err := lease.Next(ctx, SeriesPurchase); !errors.Is(err, ErrNotHeld) {
		t.Fatalf("want ErrNotHeld, got %v", err)
	}
}

func TestLease_ReleaseIsOwnershipScoped(t *testing.T) {
	store := newMemStore()
	alloc := New(store, WithPollInterval(time.Millisecond), WithMaxWait(time.Second))
	ctx := context.Background()

	lease, err := alloc.Acquire(ctx)
	if err != nil {
		t.Fatal(err)
	}

	// Simulate an operator override handing the lock to another terminal.
	store.mu.Lock()
	store.holder = "other-terminal"
	store.mu.Unlock()

	if err := lease.Release(ctx); err != nil {
		t.Fatal(err)
	}
	if store.holder != "other-terminal" {
		t.Errorf("release stole the lock from %q", store.holder)
	}
}

func TestNextNumber_MutualExclusion(t *testing.T) {
	store := newMemStore()
	alloc := New(store, WithPollInterval(time.Millisecond), WithMaxWait(5*time.Second))

	const workers = 8
	const perWorker = 10

	seen := make(chan string, workers*perWorker)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				n, err := alloc.NextNumber(context.Background(), SeriesPurchase)
				if err != nil {
					t.Errorf("NextNumber failed: %v", err)
					return
				}
				seen <- n
			}
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[string]bool)
	for n := range seen {
		if unique[n] {
			t.Fatalf("duplicate number issued: %s", n)
		}
		unique[n] = true
	}
	if len(unique) != workers*perWorker {
		t.Errorf("issued %d unique numbers, want %d", len(unique), workers*perWorker)
	}
}
