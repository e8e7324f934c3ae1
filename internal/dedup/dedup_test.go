package dedup

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGroup_SingleInvocation(t *testing.T) {
	g := NewGroup[int]()
	ctx := context.Background()

	var invocations atomic.Int64
	release := make(chan struct{})

	fn := func(ctx context.Context) (int, error) {
		invocations.Add(1)
		<-release
		return 42, nil
	}

	const callers = 20
	var wg sync.WaitGroup
	results := make([]int, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = g.Do(ctx, "price:BTC", fn)
		}(i)
	}

	// Let all callers join the in-flight call before releasing it.
	waitUntil(t, func() bool { return g.InFlight("price:BTC") })
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := invocations.Load(); n != 1 {
		t.Errorf("invocations = %d, want 1", n)
	}
	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Errorf("caller %d err = %v, want nil", i, errs[i])
		}
		if results[i] != 42 {
			t.Errorf("caller %d result = %d, want 42", i, results[i])
		}
	}
}

func TestGroup_SharedError(t *testing.T) {
	g := NewGroup[string]()
	ctx := context.Background()
	wantErr := errors.New("upstream down")

	var wg sync.WaitGroup
	errs := make([]error, 5)
	release := make(chan struct{})

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = g.Do(ctx, "k", func(ctx context.Context) (string, error) {
				<-release
				return "", wantErr
			})
		}(i)
	}

	waitUntil(t, func() bool { return g.InFlight("k") })
	close(release)
	wg.Wait()

	for i, err := range errs {
		if !errors.Is(err, wantErr) {
			t.Errorf("caller %d err = %v, want %v", i, err, wantErr)
		}
	}
}

func TestGroup_EvictionOnSettle(t *testing.T) {
	g := NewGroup[int]()
	ctx := context.Background()

	var invocations atomic.Int64
	fn := func(ctx context.Context) (int, error) {
		return int(invocations.Add(1)), nil
	}

	first, _ := g.Do(ctx, "k", fn)
	second, _ := g.Do(ctx, "k", fn)

	if first == second {
		t.Error("sequential calls should each run a fresh fetch")
	}
	if g.InFlight("k") {
		t.Error("key should be evicted after settlement")
	}
}

func TestGroup_TTLEvictsWedgedKey(t *testing.T) {
	// Capture the eviction callback instead of arming a real timer.
	var evict func()
	g := NewGroup(
		WithTimerFunc[int](func(d time.Duration, fn func()) { evict = fn }),
	)
	ctx := context.Background()

	wedged := make(chan struct{})
	go g.Do(ctx, "k", func(ctx context.Context) (int, error) {
		<-wedged
		return 0, nil
	})

	waitUntil(t, func() bool { return g.InFlight("k") })

	evict()
	if g.InFlight("k") {
		t.Fatal("TTL eviction should remove the wedged key")
	}

	// A fresh call for the same key starts a new fetch immediately.
	got, err := g.Do(ctx, "k", func(ctx context.Context) (int, error) {
		return 7, nil
	})
	if err != nil || got != 7 {
		t.Errorf("Do after eviction = (%d, %v), want (7, nil)", got, err)
	}

	close(wedged)
}

func TestGroup_ContextCancelledWaiter(t *testing.T) {
	g := NewGroup[int]()

	release := make(chan struct{})
	go g.Do(context.Background(), "k", func(ctx context.Context) (int, error) {
		<-release
		return 1, nil
	})
	waitUntil(t, func() bool { return g.InFlight("k") })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Do(ctx, "k", func(ctx context.Context) (int, error) {
		return 2, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}

	close(release)
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met within 1s")
}
