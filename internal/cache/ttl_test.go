package cache

import (
	"testing"
	"time"
)

func TestSetGetDelete(t *testing.T) {
	c := NewTTL[int](4, time.Minute)

	c.Set("a", 1)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("got (%d,%v), want (1,true)", v, ok)
	}
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatalf("deleted key still present")
	}
}

func TestExpiry(t *testing.T) {
	c := NewTTL[string](4, 10*time.Millisecond)
	c.Set("tok", "user")
	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("tok"); ok {
		t.Fatalf("expired entry still served")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry not evicted on read")
	}
}

func TestLRUEviction(t *testing.T) {
	c := NewTTL[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // refresh recency of a
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatalf("least recently used entry survived eviction")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("recently used entry was evicted")
	}
}
