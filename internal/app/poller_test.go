package app

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestCalculateBackoff(t *testing.T) {
	baseInterval := 2 * time.Second

	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"zero failures", 0, 2 * time.Second},
		{"negative failures", -1, 2 * time.Second},
		{"one failure", 1, 4 * time.Second},
		{"two failures", 2, 8 * time.Second},
		{"three failures", 3, 16 * time.Second},
		{"four failures capped", 4, 30 * time.Second}, // Would be 32s, capped to 30s
		{"many failures capped", 10, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateBackoff(tt.failures, baseInterval)
			if got != tt.want {
				t.Errorf("calculateBackoff(%d, %v) = %v, want %v", tt.failures, baseInterval, got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff_MaxCap(t *testing.T) {
	// Verify that backoff never exceeds maxBackoff regardless of input
	baseInterval := 2 * time.Second
	for failures := 0; failures <= 20; failures++ {
		got := calculateBackoff(failures, baseInterval)
		if got > maxBackoff {
			t.Errorf("calculateBackoff(%d, %v) = %v, exceeds maxBackoff %v", failures, baseInterval, got, maxBackoff)
		}
	}
}

type fakeCounter struct {
	counts      []int
	errs        []error
	calls       int
	invalidated int
	refreshed   int
}

func (f *fakeCounter) RowCount(ctx context.Context) (int, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return 0, f.errs[i]
	}
	return f.counts[i], nil
}

func (f *fakeCounter) Invalidate()      { f.invalidated++ }
func (f *fakeCounter) RefreshRowCount() { f.refreshed++ }

func TestPollerRefresh_InvalidatesOnlyOnChange(t *testing.T) {
	fake := &fakeCounter{counts: []int{10, 10, 12}}
	p := NewPoller(fake, time.Second, nil)

	var seen []int
	p.OnChange(func(n int) { seen = append(seen, n) })

	ctx := context.Background()
	for range 3 {
		if err := p.Refresh(ctx); err != nil {
			t.Fatalf("Refresh returned error: %v", err)
		}
	}
	if !reflect.DeepEqual(seen, []int{10, 12}) {
		t.Fatalf("changes = %v, want [10 12]", seen)
	}
	if fake.invalidated != 1 {
		t.Fatalf("invalidated = %d, want 1", fake.invalidated)
	}
	if fake.refreshed != 3 {
		t.Fatalf("refreshed = %d, want 3", fake.refreshed)
	}
}

func TestPollerRefresh_CountsFailures(t *testing.T) {
	boom := errors.New("unreachable")
	fake := &fakeCounter{counts: []int{0, 0, 5}, errs: []error{boom, boom, nil}}
	p := NewPoller(fake, time.Second, nil)

	var errs int
	p.OnError(func(error) { errs++ })

	ctx := context.Background()
	if err := p.Refresh(ctx); !errors.Is(err, boom) {
		t.Fatalf("Refresh error = %v, want %v", err, boom)
	}
	_ = p.Refresh(ctx)
	if p.Failures() != 2 || errs != 2 {
		t.Fatalf("failures = %d, errors = %d, want 2 and 2", p.Failures(), errs)
	}
	if err := p.Refresh(ctx); err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if p.Failures() != 0 {
		t.Fatalf("failures = %d after success, want 0", p.Failures())
	}
	if fake.invalidated != 0 {
		t.Fatalf("first successful count must not invalidate")
	}
}

func TestNewPoller_DefaultInterval(t *testing.T) {
	p := NewPoller(&fakeCounter{}, 0, nil)
	if p.interval != defaultPollInterval {
		t.Fatalf("interval = %v, want %v", p.interval, defaultPollInterval)
	}
}
