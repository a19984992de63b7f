package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestNew_Disabled(t *testing.T) {
	l := New(0)
	if l != nil {
		t.Fatal("expected nil limiter for zero rate")
	}
	if !l.Allow() {
		t.Error("nil limiter should allow")
	}
	if err := l.Wait(context.Background()); err != nil {
		t.Errorf("nil limiter Wait: %v", err)
	}
}

func TestLimiter_Burst(t *testing.T) {
	l := NewWithBurst(0.001, 2)

	if !l.Allow() || !l.Allow() {
		t.Fatal("burst of 2 not honoured")
	}
	if l.Allow() {
		t.Fatal("third event allowed past the burst")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx); err == nil {
		t.Error("Wait should fail when the context cannot cover the delay")
	}
}
