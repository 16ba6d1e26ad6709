// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package cache

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func newTestCache() (*Cache, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClock()
	return New(WithClock(clock)), clock
}

func counter(calls *int32, value string) func(context.Context) (any, error) {
	return func(context.Context) (any, error) {
		atomic.AddInt32(calls, 1)
		return value, nil
	}
}

func TestGetOrCompute_HitWithinTTL(t *testing.T) {
	t.Parallel()
	c, clock := newTestCache()
	ctx := context.Background()
	var calls int32

	v, err := c.GetOrCompute(ctx, "k", 30*time.Second, counter(&calls, "first"))
	if err != nil || v != "first" {
		t.Fatalf("first call = %v, %v", v, err)
	}

	clock.Advance(29 * time.Second)
	v, _ = c.GetOrCompute(ctx, "k", 30*time.Second, counter(&calls, "second"))
	if v != "first" {
		t.Errorf("within ttl got %v, want cached value", v)
	}
	if calls != 1 {
		t.Errorf("compute called %d times, want 1", calls)
	}
}

func TestGetOrCompute_RecomputesAfterTTL(t *testing.T) {
	t.Parallel()
	c, clock := newTestCache()
	ctx := context.Background()
	var calls int32

	_, _ = c.GetOrCompute(ctx, "k", 30*time.Second, counter(&calls, "first"))
	clock.Advance(30 * time.Second)
	v, _ := c.GetOrCompute(ctx, "k", 30*time.Second, counter(&calls, "second"))

	if v != "second" {
		t.Errorf("after ttl got %v, want recomputed value", v)
	}
	if calls != 2 {
		t.Errorf("compute called %d times, want 2", calls)
	}
}

func TestGetOrCompute_TTLIsPerCall(t *testing.T) {
	t.Parallel()
	c, clock := newTestCache()
	ctx := context.Background()
	var calls int32

	_, _ = c.GetOrCompute(ctx, "k", time.Hour, counter(&calls, "stored"))
	clock.Advance(10 * time.Second)

	v, _ := c.GetOrCompute(ctx, "k", 5*time.Second, counter(&calls, "fresh"))
	if v != "fresh" {
		t.Errorf("shorter ttl should treat entry as stale, got %v", v)
	}
}

func TestGetOrCompute_ErrorNotCached(t *testing.T) {
	t.Parallel()
	c, _ := newTestCache()
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := c.GetOrCompute(ctx, "k", time.Minute, func(context.Context) (any, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if c.Len() != 0 {
		t.Errorf("failed compute must not store an entry, have %d", c.Len())
	}

	var calls int32
	v, err := c.GetOrCompute(ctx, "k", time.Minute, counter(&calls, "ok"))
	if err != nil || v != "ok" || calls != 1 {
		t.Errorf("retry = %v, %v (calls %d)", v, err, calls)
	}
}

func TestGetOrCompute_Typed(t *testing.T) {
	t.Parallel()
	c, _ := newTestCache()
	ctx := context.Background()

	type page struct{ Total int }
	got, err := GetOrCompute(ctx, c, "store:products:1", time.Minute, func(context.Context) (*page, error) {
		return &page{Total: 3}, nil
	})
	if err != nil || got.Total != 3 {
		t.Fatalf("GetOrCompute = %+v, %v", got, err)
	}

	_, err = GetOrCompute(ctx, c, "store:products:1", time.Minute, func(context.Context) (string, error) {
		return "wrong", nil
	})
	if err == nil {
		t.Error("type mismatch on a cached value should be an error")
	}
}

func TestGetOrCompute_ConcurrentMissesShareCompute(t *testing.T) {
	t.Parallel()
	c, _ := newTestCache()
	ctx := context.Background()

	var calls int32
	release := make(chan struct{})
	compute := func(context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	results := make([]any, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = c.GetOrCompute(ctx, "dashboard", time.Minute, compute)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, r := range results {
		if r != 42 {
			t.Errorf("result[%d] = %v, want 42", i, r)
		}
	}
	if n := atomic.LoadInt32(&calls); n < 1 || n > 8 {
		t.Errorf("compute calls = %d", n)
	}
}

func TestGetOrCompute_CancelledCallerDoesNotFailOthers(t *testing.T) {
	t.Parallel()
	c, _ := newTestCache()

	started := make(chan struct{})
	release := make(chan struct{})
	compute := func(ctx context.Context) (any, error) {
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return "shared", nil
	}

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := c.GetOrCompute(ctxA, "admin:dashboard", time.Minute, compute)
		errA <- err
	}()
	<-started

	type result struct {
		v   any
		err error
	}
	resB := make(chan result, 1)
	go func() {
		v, err := c.GetOrCompute(context.Background(), "admin:dashboard", time.Minute, compute)
		resB <- result{v, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	select {
	case err := <-errA:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("cancelled caller err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller kept waiting for the shared compute")
	}

	close(release)
	r := <-resB
	if r.err != nil || r.v != "shared" {
		t.Errorf("live caller got %v, %v; want shared, nil", r.v, r.err)
	}
	if v, ok := c.Get("admin:dashboard", time.Minute); !ok || v != "shared" {
		t.Errorf("cached = %v, %v; want the shared result stored", v, ok)
	}
}

func TestGetOrCompute_InvalidateDuringComputeDropsResult(t *testing.T) {
	t.Parallel()
	c, _ := newTestCache()
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan any, 1)
	go func() {
		v, _ := c.GetOrCompute(ctx, "store:products", time.Hour, func(context.Context) (any, error) {
			close(started)
			<-release
			return "before-update", nil
		})
		done <- v
	}()
	<-started

	c.Invalidate("store:")
	close(release)
	if v := <-done; v != "before-update" {
		t.Errorf("in-flight caller got %v, want its computed value", v)
	}

	if v, ok := c.Get("store:products", time.Hour); ok {
		t.Fatalf("value computed across Invalidate was stored: %v", v)
	}
	var calls int32
	v, err := c.GetOrCompute(ctx, "store:products", time.Hour, counter(&calls, "after-update"))
	if err != nil || v != "after-update" || calls != 1 {
		t.Errorf("next read = %v, %v with %d calls; want a fresh compute", v, err, calls)
	}
}

func TestGetOrCompute_CallerAfterInvalidateStartsNewCompute(t *testing.T) {
	t.Parallel()
	c, _ := newTestCache()
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_, _ = c.GetOrCompute(ctx, "store:home", time.Hour, func(context.Context) (any, error) {
			close(started)
			<-release
			return "old", nil
		})
	}()
	<-started
	c.Invalidate("store:")

	var calls int32
	v, err := c.GetOrCompute(ctx, "store:home", time.Hour, counter(&calls, "new"))
	close(release)
	if err != nil || v != "new" || calls != 1 {
		t.Errorf("got %v, %v with %d calls; want a compute of its own", v, err, calls)
	}
}

func TestInvalidate_RemovesExactlyPrefix(t *testing.T) {
	t.Parallel()
	c, _ := newTestCache()

	for _, k := range []string{"store:products:a", "store:products:b", "store:filters", "admin:dashboard", "storefront"} {
		c.Set(k, k, time.Hour)
	}

	if n := c.Invalidate("store:"); n != 3 {
		t.Errorf("Invalidate removed %d, want 3", n)
	}

	keys := c.Keys()
	sort.Strings(keys)
	want := []string{"admin:dashboard", "storefront"}
	if len(keys) != len(want) || keys[0] != want[0] || keys[1] != want[1] {
		t.Errorf("remaining keys = %v, want %v", keys, want)
	}
	if s := c.GetStats(); s.Invalidations != 3 || s.TotalKeys != 2 {
		t.Errorf("stats = %+v", s)
	}
}

func TestInvalidate_ForcesRecompute(t *testing.T) {
	t.Parallel()
	c, _ := newTestCache()
	ctx := context.Background()
	var calls int32

	_, _ = c.GetOrCompute(ctx, "store:home", time.Hour, counter(&calls, "v1"))
	c.Invalidate("store:")
	v, _ := c.GetOrCompute(ctx, "store:home", time.Hour, counter(&calls, "v2"))
	if v != "v2" || calls != 2 {
		t.Errorf("after invalidate got %v with %d calls", v, calls)
	}
}

func TestSweep(t *testing.T) {
	t.Parallel()
	c, clock := newTestCache()

	c.Set("short", 1, time.Second)
	c.Set("long", 2, time.Hour)
	clock.Advance(2 * time.Second)

	if n := c.Sweep(); n != 1 {
		t.Errorf("Sweep removed %d, want 1", n)
	}
	if _, ok := c.Get("long", time.Hour); !ok {
		t.Error("long entry should survive the sweep")
	}
}

func TestSweep_KeepsEntriesReadWithLongerTTL(t *testing.T) {
	t.Parallel()
	c, clock := newTestCache()

	c.Set("admin:dashboard", "v", 10*time.Second)
	clock.Advance(5 * time.Second)
	if _, ok := c.Get("admin:dashboard", time.Minute); !ok {
		t.Fatal("entry should be fresh for a one-minute reader")
	}

	clock.Advance(15 * time.Second)
	if n := c.Sweep(); n != 0 {
		t.Errorf("Sweep removed %d, want 0 while a reader's TTL still covers the entry", n)
	}
	if v, ok := c.Get("admin:dashboard", time.Minute); !ok || v != "v" {
		t.Errorf("after sweep got %v, %v; want the entry still served", v, ok)
	}

	clock.Advance(time.Minute)
	if n := c.Sweep(); n != 1 {
		t.Errorf("Sweep removed %d, want 1 once the longest TTL passed", n)
	}
}

func TestSweeperServe(t *testing.T) {
	t.Parallel()
	c, clock := newTestCache()
	c.Set("short", 1, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewSweeper(c, time.Minute).Serve(ctx) }()

	if err := clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatal(err)
	}
	clock.Advance(time.Minute)

	deadline := time.Now().Add(2 * time.Second)
	for c.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if c.Len() != 0 {
		t.Error("sweeper did not remove the expired entry")
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve returned %v, want context.Canceled", err)
	}
}

func TestHitRate(t *testing.T) {
	t.Parallel()
	c, _ := newTestCache()
	ctx := context.Background()
	var calls int32

	for i := 0; i < 4; i++ {
		_, _ = c.GetOrCompute(ctx, "k", time.Hour, counter(&calls, "v"))
	}
	if got := c.HitRate(); got != 75 {
		t.Errorf("HitRate = %v, want 75", got)
	}
}

func TestGenerateKey(t *testing.T) {
	t.Parallel()

	type filter struct {
		Brand string `json:"brand"`
		Page  int    `json:"page"`
	}
	a := GenerateKey("store:products", filter{"Amouage", 1})
	b := GenerateKey("store:products", filter{"Amouage", 1})
	c := GenerateKey("store:products", filter{"Amouage", 2})

	if a != b {
		t.Error("equal args must give equal keys")
	}
	if a == c {
		t.Error("different args must give different keys")
	}
	if got := GenerateKey("store:filters"); got != "store:filters" {
		t.Errorf("no-arg key = %q", got)
	}
	m1 := GenerateKey("x", map[string]int{"a": 1, "b": 2})
	m2 := GenerateKey("x", map[string]int{"b": 2, "a": 1})
	if m1 != m2 {
		t.Error("map argument order must not change the key")
	}
	if len(a) != len("store:products:")+32 {
		t.Errorf("unexpected key shape %q", a)
	}
}

func TestNamespace(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"store:products:ab": "store",
		"admin:dashboard":   "admin",
		"plain":             "plain",
		"":                  "all",
	}
	for in, want := range tests {
		if got := namespace(in); got != want {
			t.Errorf("namespace(%q) = %q, want %q", in, got, want)
		}
	}
}
