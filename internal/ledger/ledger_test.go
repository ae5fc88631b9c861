package ledger

import (
	"fmt"
	"testing"
	"time"
)

func TestIsNovel(t *testing.T) {
	l := New(100)
	now := time.Now()

	if !l.IsNovel("nike", "p1") {
		t.Error("Expected unseen post to be novel")
	}

	l.Record("nike", "p1", now)
	if l.IsNovel("nike", "p1") {
		t.Error("Expected recorded post to no longer be novel")
	}

	// Same post ID under a different account is a different event.
	if !l.IsNovel("adidas", "p1") {
		t.Error("Expected same post ID for another account to be novel")
	}
}

func TestRecord_Idempotent(t *testing.T) {
	l := New(100)
	first := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	l.Record("nike", "p1", first)
	l.Record("nike", "p1", first.Add(time.Hour))

	if l.Len() != 1 {
		t.Errorf("Expected 1 entry after duplicate record, got %d", l.Len())
	}
	seenAt, ok := l.SeenAt("nike", "p1")
	if !ok {
		t.Fatal("Expected entry to exist")
	}
	if !seenAt.Equal(first) {
		t.Errorf("Expected first-seen time to be preserved, got %v", seenAt)
	}
}

func TestRecord_EvictsOldestPerAccount(t *testing.T) {
	l := New(3)
	now := time.Now()

	for i := 0; i < 5; i++ {
		l.Record("nike", fmt.Sprintf("p%d", i), now)
	}

	if l.Len() != 3 {
		t.Fatalf("Expected 3 entries after eviction, got %d", l.Len())
	}
	// p0 and p1 were evicted, p2..p4 remain.
	if !l.IsNovel("nike", "p0") || !l.IsNovel("nike", "p1") {
		t.Error("Expected oldest entries to be evicted")
	}
	for i := 2; i < 5; i++ {
		if l.IsNovel("nike", fmt.Sprintf("p%d", i)) {
			t.Errorf("Expected p%d to still be recorded", i)
		}
	}
}

func TestEviction_IsPerAccount(t *testing.T) {
	l := New(2)
	now := time.Now()

	l.Record("nike", "p1", now)
	l.Record("adidas", "p1", now)
	l.Record("adidas", "p2", now)
	l.Record("adidas", "p3", now)

	// adidas overflowed its own cap; nike is untouched.
	if l.IsNovel("nike", "p1") {
		t.Error("Expected nike/p1 to survive another account's eviction")
	}
	if !l.IsNovel("adidas", "p1") {
		t.Error("Expected adidas/p1 to be evicted")
	}
}
