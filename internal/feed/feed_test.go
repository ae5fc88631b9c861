package feed

import (
	"fmt"
	"testing"

	"github.com/pauljones0/artist-push-bot/internal/models"
)

func entry(id string) models.FeedEntry {
	return models.FeedEntry{PostID: id, AccountID: "nike"}
}

func ids(entries []models.FeedEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.PostID
	}
	return out
}

func TestPrepend_Order(t *testing.T) {
	s := New(50)

	s.Prepend([]models.FeedEntry{entry("a"), entry("b")})
	s.Prepend([]models.FeedEntry{entry("c")})

	got := ids(s.Snapshot())
	want := []string{"c", "a", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Snapshot order = %v, want %v", got, want)
		}
	}
}

func TestPrepend_TruncatesBeyondCap(t *testing.T) {
	s := New(50)

	var initial []models.FeedEntry
	for i := 0; i < 50; i++ {
		initial = append(initial, entry(fmt.Sprintf("old%d", i)))
	}
	s.Prepend(initial)

	s.Prepend([]models.FeedEntry{entry("new0"), entry("new1"), entry("new2")})

	snap := s.Snapshot()
	if len(snap) != 50 {
		t.Fatalf("Expected feed capped at 50, got %d", len(snap))
	}
	for i, want := range []string{"new0", "new1", "new2"} {
		if snap[i].PostID != want {
			t.Errorf("Snapshot[%d] = %q, want %q", i, snap[i].PostID, want)
		}
	}
	// The 47 oldest survivors follow; the 3 oldest previous entries are gone.
	if snap[3].PostID != "old0" {
		t.Errorf("Expected old0 right after the new batch, got %q", snap[3].PostID)
	}
	if snap[49].PostID != "old46" {
		t.Errorf("Expected old46 as the last entry, got %q", snap[49].PostID)
	}
}

func TestPrepend_EmptyBatchIsNoop(t *testing.T) {
	s := New(50)
	s.Prepend([]models.FeedEntry{entry("a")})
	s.Prepend(nil)
	if s.Len() != 1 {
		t.Errorf("Expected 1 entry, got %d", s.Len())
	}
}

func TestSnapshot_IsIsolatedCopy(t *testing.T) {
	s := New(50)
	s.Prepend([]models.FeedEntry{entry("a")})

	snap := s.Snapshot()
	s.Prepend([]models.FeedEntry{entry("b")})

	if len(snap) != 1 || snap[0].PostID != "a" {
		t.Error("Expected earlier snapshot to be unaffected by later prepends")
	}
}
