// Libraria - Book Discovery and Hybrid Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libraria

package cache

import (
	"testing"
	"time"
)

func TestCacheSetGet(t *testing.T) {
	c := New(time.Minute)

	c.Set("search:dune", []string{"dune", "children of dune"})

	got, ok := c.Get("search:dune")
	if !ok {
		t.Fatal("Get() miss for freshly set key")
	}
	titles, ok := got.([]string)
	if !ok || len(titles) != 2 {
		t.Errorf("Get() = %v, want 2 titles", got)
	}
}

func TestCacheMiss(t *testing.T) {
	c := New(time.Minute)

	if _, ok := c.Get("absent"); ok {
		t.Error("Get() hit for absent key")
	}

	stats := c.GetStats()
	if stats.Misses != 1 {
		t.Errorf("Misses = %d, want 1", stats.Misses)
	}
}

func TestCacheExpiration(t *testing.T) {
	c := New(time.Minute)

	c.SetWithTTL("short-lived", "value", -time.Second)

	if _, ok := c.Get("short-lived"); ok {
		t.Error("Get() returned expired entry")
	}

	stats := c.GetStats()
	if stats.Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", stats.Evictions)
	}
}

func TestCacheDelete(t *testing.T) {
	c := New(time.Minute)

	c.Set("key", "value")
	c.Delete("key")

	if _, ok := c.Get("key"); ok {
		t.Error("Get() hit after Delete()")
	}
}

func TestCacheClear(t *testing.T) {
	c := New(time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Clear()

	if _, ok := c.Get("a"); ok {
		t.Error("Get() hit after Clear()")
	}
	if stats := c.GetStats(); stats.TotalKeys != 0 {
		t.Errorf("TotalKeys = %d, want 0", stats.TotalKeys)
	}
}

func TestCacheHitRate(t *testing.T) {
	c := New(time.Minute)

	if rate := c.HitRate(); rate != 0 {
		t.Errorf("HitRate() = %v on empty cache, want 0", rate)
	}

	c.Set("key", "value")
	c.Get("key")
	c.Get("key")
	c.Get("absent")
	c.Get("absent")

	if rate := c.HitRate(); rate != 0.5 {
		t.Errorf("HitRate() = %v, want 0.5", rate)
	}
}

func TestGenerateKeyStable(t *testing.T) {
	type params struct {
		Query string
		Limit int
	}

	k1 := GenerateKey("search", params{Query: "dune", Limit: 10})
	k2 := GenerateKey("search", params{Query: "dune", Limit: 10})
	k3 := GenerateKey("search", params{Query: "dune", Limit: 20})

	if k1 != k2 {
		t.Errorf("same params produced different keys: %s vs %s", k1, k2)
	}
	if k1 == k3 {
		t.Error("different params produced identical keys")
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := New(time.Minute)
	done := make(chan struct{})

	for i := 0; i < 8; i++ {
		go func(n int) {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 100; j++ {
				key := GenerateKey("op", n*100+j)
				c.Set(key, j)
				c.Get(key)
			}
		}(i)
	}

	for i := 0; i < 8; i++ {
		<-done
	}

	if stats := c.GetStats(); stats.Hits == 0 {
		t.Error("no hits recorded under concurrent access")
	}
}
