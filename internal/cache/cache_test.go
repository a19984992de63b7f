package cache

import (
	"context"
	"testing"
	"time"
)

func TestCache_SetGet(t *testing.T) {
	ctx := context.Background()
	c := New[string, int](0)
	defer c.Close()

	if _, ok := c.Get(ctx, "missing"); ok {
		t.Fatal("unexpected hit")
	}

	c.Set(ctx, "a", 1, time.Minute)
	v, ok := c.Get(ctx, "a")
	if !ok || v != 1 {
		t.Fatalf("Get(a) = %d, %v", v, ok)
	}

	c.Delete(ctx, "a")
	if _, ok := c.Get(ctx, "a"); ok {
		t.Fatal("entry survived Delete")
	}
}

func TestCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := New[string, int](0)
	defer c.Close()

	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }

	c.Set(ctx, "a", 1, 10*time.Second)

	now = now.Add(9 * time.Second)
	if _, ok := c.Get(ctx, "a"); !ok {
		t.Fatal("entry expired early")
	}

	now = now.Add(time.Second)
	if _, ok := c.Get(ctx, "a"); ok {
		t.Fatal("expired entry returned")
	}

	c.deleteExpired()
	if c.Len() != 0 {
		t.Errorf("Len = %d after sweep", c.Len())
	}
}

func TestCache_CloseTwice(t *testing.T) {
	c := New[string, int](time.Millisecond)
	c.Close()
	c.Close()
}
