package history

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "history.db"), nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordConversionPersists(t *testing.T) {
	s := openTestStore(t)
	start := time.Now().Add(-time.Minute)
	finish := time.Now()

	if err := s.RecordConversion(Conversion{
		TargetFormat: "cdj-hardware",
		Tier:         "tier-b",
		TrackCount:   42,
		IssueCount:   1,
		StartedAt:    start,
		FinishedAt:   finish,
	}); err != nil {
		t.Fatalf("record conversion: %v", err)
	}

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM conversions").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("conversions count = %d, want 1", count)
	}
}

func TestTouchExportedUpsertsAndIncrementsCount(t *testing.T) {
	s := openTestStore(t)
	first := time.Now().Add(-time.Hour)
	second := time.Now()

	if err := s.TouchExported([]string{"fp1", "fp2"}, first); err != nil {
		t.Fatalf("touch 1: %v", err)
	}
	if err := s.TouchExported([]string{"fp1"}, second); err != nil {
		t.Fatalf("touch 2: %v", err)
	}

	var exportCount int
	if err := s.db.QueryRow("SELECT export_count FROM track_history WHERE fingerprint = ?", "fp1").Scan(&exportCount); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if exportCount != 2 {
		t.Fatalf("export_count = %d, want 2", exportCount)
	}
}

func TestRecentlyAddedOrdersByMostRecentFirst(t *testing.T) {
	s := openTestStore(t)
	older := time.Now().Add(-2 * time.Hour)
	newer := time.Now()

	if err := s.TouchExported([]string{"old-track"}, older); err != nil {
		t.Fatalf("touch old: %v", err)
	}
	if err := s.TouchExported([]string{"new-track"}, newer); err != nil {
		t.Fatalf("touch new: %v", err)
	}

	recent, err := s.RecentlyAdded(10)
	if err != nil {
		t.Fatalf("recently added: %v", err)
	}
	if len(recent) != 2 || recent[0] != "new-track" || recent[1] != "old-track" {
		t.Fatalf("recently added = %v, want [new-track old-track]", recent)
	}
}

func TestRecentlyPlayedExcludesUnplayedTracks(t *testing.T) {
	s := openTestStore(t)
	if err := s.TouchExported([]string{"exported-not-played"}, time.Now()); err != nil {
		t.Fatalf("touch: %v", err)
	}

	played, err := s.RecentlyPlayed(10)
	if err != nil {
		t.Fatalf("recently played: %v", err)
	}
	if len(played) != 0 {
		t.Fatalf("recently played = %v, want empty (no last_played_at set)", played)
	}
}
