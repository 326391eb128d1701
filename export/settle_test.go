package export

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"
	"testing"
	"time"
)

type stubResource struct {
	name    string
	delay   time.Duration
	err     error
	block   bool
	started *atomic.Int32
}

func (r stubResource) Name() string { return r.name }

func (r stubResource) Load(ctx context.Context) error {
	if r.started != nil {
		r.started.Add(1)
	}
	if r.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	return r.err
}

func TestSettlerCountsFailuresAsSettled(t *testing.T) {
	resources := []Resource{
		stubResource{name: "logo", delay: 5 * time.Millisecond},
		stubResource{name: "broken", err: errors.New("decode failed")},
		stubResource{name: "stamp"},
	}

	report, err := Settler{}.Settle(context.Background(), resources)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	sort.Strings(report.Loaded)
	if len(report.Loaded) != 2 || report.Loaded[0] != "logo" || report.Loaded[1] != "stamp" {
		t.Fatalf("unexpected loaded resources %v", report.Loaded)
	}
	if len(report.Failed) != 1 || report.Failed[0].Name != "broken" || report.Settled() != 3 {
		t.Fatalf("expected broken resource recorded as failed, got %+v", report)
	}
}

func TestSettlerCountsSameNamedFailures(t *testing.T) {
	resources := []Resource{
		stubResource{name: "img", err: errors.New("404")},
		stubResource{name: "img", err: errors.New("timeout")},
		stubResource{name: "img"},
	}
	report, err := Settler{}.Settle(context.Background(), resources)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if len(report.Failed) != 2 || report.Settled() != 3 {
		t.Fatalf("expected both failures kept, got %+v", report)
	}
}

func TestSettlerWaitsInParallel(t *testing.T) {
	var started atomic.Int32
	resources := make([]Resource, 0, 5)
	for range 5 {
		resources = append(resources, stubResource{name: "img", delay: 40 * time.Millisecond, started: &started})
	}

	begin := time.Now()
	if _, err := (Settler{}).Settle(context.Background(), resources); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if elapsed := time.Since(begin); elapsed > 150*time.Millisecond {
		t.Fatalf("expected parallel waits, took %s", elapsed)
	}
	if started.Load() != 5 {
		t.Fatalf("expected 5 loads, got %d", started.Load())
	}
}

func TestSettlerStopsWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := Settler{}.Settle(ctx, []Resource{stubResource{name: "never", block: true}})
	if KindFromError(err) != KindTimeout {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestSettlerNoResources(t *testing.T) {
	report, err := Settler{}.Settle(context.Background(), nil)
	if err != nil || report.Settled() != 0 {
		t.Fatalf("expected empty report, got %+v %v", report, err)
	}
}
