package cache

import (
	"fmt"
	"sync"
	"testing"
)

func TestCacheGetSet(t *testing.T) {
	c := New(4)

	key := HashBytes([]byte(`{"disease":"Covid","age_bracket":"40-49 years"}`))
	c.Set(key, []byte("report body"))

	got, ok := c.Get(key)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if string(got) != "report body" {
		t.Errorf("got %q", got)
	}

	if _, ok := c.Get(HashBytes([]byte("other"))); ok {
		t.Error("unexpected hit for unknown key")
	}
}

func TestCacheEvictsOldest(t *testing.T) {
	c := New(2)

	c.Set("a", []byte("1"))
	c.Set("b", []byte("2"))
	c.Set("c", []byte("3"))

	if _, ok := c.Get("a"); ok {
		t.Error("oldest entry should be evicted")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("entry b should survive")
	}
	if c.Len() != 2 {
		t.Errorf("len = %d, want 2", c.Len())
	}
}

func TestCacheGetRefreshesRecency(t *testing.T) {
	c := New(2)

	c.Set("a", []byte("1"))
	c.Set("b", []byte("2"))

	// Touch a so b becomes the eviction candidate.
	c.Get("a")
	c.Set("c", []byte("3"))

	if _, ok := c.Get("a"); !ok {
		t.Error("recently used entry was evicted")
	}
	if _, ok := c.Get("b"); ok {
		t.Error("least recently used entry should be evicted")
	}
}

func TestCacheOverwrite(t *testing.T) {
	c := New(2)

	c.Set("a", []byte("old"))
	c.Set("a", []byte("new"))

	got, _ := c.Get("a")
	if string(got) != "new" {
		t.Errorf("got %q", got)
	}
	if c.Len() != 1 {
		t.Errorf("len = %d, want 1", c.Len())
	}
}

func TestCacheConcurrent(t *testing.T) {
	c := New(16)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("key-%d", j%20)
				c.Set(key, []byte(key))
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()

	if c.Len() > 16 {
		t.Errorf("cache grew past max: %d", c.Len())
	}
}

func TestHashBytesStable(t *testing.T) {
	a := HashBytes([]byte("payload"))
	b := HashBytes([]byte("payload"))
	if a != b {
		t.Error("hash not deterministic")
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
	if a == HashBytes([]byte("payload2")) {
		t.Error("distinct inputs collided")
	}
}
