package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestSlidingWindow(t *testing.T) {
	sw := NewSlidingWindow(3, 100*time.Millisecond)

	for i := 0; i < 3; i++ {
		if !sw.Allow() {
			t.Errorf("Request %d should be allowed", i+1)
		}
	}
	if sw.Allow() {
		t.Error("4th request should be denied")
	}

	time.Sleep(110 * time.Millisecond)
	if !sw.Allow() {
		t.Error("Request should be allowed once the window has passed")
	}

	sw.Reset()
	for i := 0; i < 3; i++ {
		if !sw.Allow() {
			t.Errorf("Request %d should be allowed after reset", i+1)
		}
	}
}

func TestSlidingWindowWaitRespectsContext(t *testing.T) {
	sw := NewSlidingWindow(1, time.Hour)
	sw.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := sw.Wait(ctx); err == nil {
		t.Error("Expected Wait to return the context error")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Wait did not return promptly after cancellation: %v", elapsed)
	}
}

func TestSlidingWindowWaitUnblocks(t *testing.T) {
	sw := NewSlidingWindow(1, 50*time.Millisecond)
	sw.Allow()

	if err := sw.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
}

func TestPerMinute(t *testing.T) {
	if _, ok := PerMinute(0).(Unlimited); !ok {
		t.Error("Expected PerMinute(0) to be unlimited")
	}
	if _, ok := PerMinute(30).(*SlidingWindow); !ok {
		t.Error("Expected PerMinute(30) to be a sliding window")
	}

	u := Unlimited{}
	for i := 0; i < 1000; i++ {
		if !u.Allow() {
			t.Fatal("Unlimited limiter denied a request")
		}
	}
}
