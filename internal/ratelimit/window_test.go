package ratelimit

import (
	"fmt"
	"testing"
	"time"
)

var t0 = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

func TestWindow_Allow(t *testing.T) {
	t.Run("limit within window", func(t *testing.T) {
		w := NewWindow(3, 60*time.Second)
		for i := 0; i < 3; i++ {
			if !w.Allow("k", t0) {
				t.Fatalf("call %d denied, want allowed", i+1)
			}
		}
		if w.Allow("k", t0) {
			t.Error("fourth call allowed, want denied")
		}
		if !w.Allow("k", t0.Add(61*time.Second)) {
			t.Error("call after window denied, want allowed")
		}
	})

	t.Run("window slides", func(t *testing.T) {
		w := NewWindow(2, 10*time.Second)
		w.Allow("k", t0)
		w.Allow("k", t0.Add(5*time.Second))
		if w.Allow("k", t0.Add(9*time.Second)) {
			t.Error("allowed with two events in window")
		}
		// t0 expires exactly at t0+10s.
		if !w.Allow("k", t0.Add(10*time.Second)) {
			t.Error("denied after oldest event expired")
		}
		if w.Allow("k", t0.Add(11*time.Second)) {
			t.Error("allowed with two events in window")
		}
	})

	t.Run("keys are independent", func(t *testing.T) {
		w := NewWindow(1, time.Minute)
		if !w.Allow("a", t0) || !w.Allow("b", t0) {
			t.Fatal("first call per key denied")
		}
		if w.Allow("a", t0) {
			t.Error("second call for a allowed")
		}
	})

	t.Run("empty key shares the unknown bucket", func(t *testing.T) {
		w := NewWindow(1, time.Minute)
		w.Allow("", t0)
		if w.Allow(UnknownKey, t0) {
			t.Error("unknown key not shared with empty key")
		}
	})

	t.Run("denied calls are not recorded", func(t *testing.T) {
		w := NewWindow(1, 10*time.Second)
		w.Allow("k", t0)
		for i := 1; i < 10; i++ {
			w.Allow("k", t0.Add(time.Duration(i)*time.Second))
		}
		if !w.Allow("k", t0.Add(10*time.Second)) {
			t.Error("denied calls extended the window")
		}
	})
}

func TestWindow_MaxKeys(t *testing.T) {
	w := NewWindow(1, time.Minute, WithMaxKeys(2))
	w.Allow("a", t0)
	w.Allow("b", t0)
	w.Allow("a", t0) // a is now most recent
	w.Allow("c", t0) // evicts b

	if got := w.Len(); got != 2 {
		t.Fatalf("Len() = %d, want 2", got)
	}
	if !w.Allow("b", t0) {
		t.Error("evicted key b still limited")
	}
	if w.Allow("c", t0) {
		t.Error("key c lost its history")
	}
}

func TestWindow_Sweep(t *testing.T) {
	w := NewWindow(5, time.Minute, WithSweepEvery(10))
	for i := 0; i < 5; i++ {
		w.Allow(fmt.Sprintf("idle-%d", i), t0)
	}
	if got := w.Len(); got != 5 {
		t.Fatalf("Len() = %d, want 5", got)
	}

	later := t0.Add(2 * time.Minute)
	for i := 0; i < 5; i++ {
		w.Allow("active", later)
	}
	// The tenth call swept the idle keys.
	if got := w.Len(); got != 1 {
		t.Errorf("Len() after sweep = %d, want 1", got)
	}
}

func TestBucket_Allow(t *testing.T) {
	t.Run("burst then deny", func(t *testing.T) {
		b := NewBucket(0.001, 3)
		for i := 0; i < 3; i++ {
			if !b.Allow("ip") {
				t.Fatalf("call %d denied within burst", i+1)
			}
		}
		if b.Allow("ip") {
			t.Error("call beyond burst allowed")
		}
		if !b.Allow("other") {
			t.Error("other key denied")
		}
	})

	t.Run("zero rate is unlimited", func(t *testing.T) {
		b := NewBucket(0, 0)
		for i := 0; i < 1000; i++ {
			if !b.Allow("ip") {
				t.Fatalf("call %d denied", i+1)
			}
		}
	})
}
