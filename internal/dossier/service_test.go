package dossier

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestSaveSnapshotCreatesRepoAndCommit(t *testing.T) {
	svc := New(t.TempDir())

	entry, err := svc.SaveSnapshot("110101199001011234", "daily-status", "ds_1", map[string]string{
		"mood": "abnormal",
	}, "Sgt. Zhao")
	if err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if entry.Hash == "" {
		t.Fatal("expected a commit hash")
	}
	if entry.Message != "daily-status: record ds_1" {
		t.Fatalf("unexpected commit message %q", entry.Message)
	}
	if entry.Author != "Sgt. Zhao" {
		t.Fatalf("unexpected author %q", entry.Author)
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	svc := New(t.TempDir())
	const personID = "110101199001011234"

	if _, err := svc.SaveSnapshot(personID, "daily-status", "ds_1", map[string]string{"mood": "good"}, "a"); err != nil {
		t.Fatalf("first snapshot: %v", err)
	}
	if _, err := svc.SaveSnapshot(personID, "daily-status", "ds_2", map[string]string{"mood": "poor"}, "b"); err != nil {
		t.Fatalf("second snapshot: %v", err)
	}

	entries, err := svc.History(personID, 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Message != "daily-status: record ds_2" {
		t.Fatalf("expected newest first, got %q", entries[0].Message)
	}
	if entries[1].Message != "daily-status: record ds_1" {
		t.Fatalf("expected oldest last, got %q", entries[1].Message)
	}
}

func TestHistoryLimit(t *testing.T) {
	svc := New(t.TempDir())
	const personID = "110101199203034567"

	for _, id := range []string{"ds_1", "ds_2", "ds_3"} {
		if _, err := svc.SaveSnapshot(personID, "daily-status", id, map[string]string{}, "a"); err != nil {
			t.Fatalf("snapshot %s: %v", id, err)
		}
	}

	entries, err := svc.History(personID, 2)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
}

func TestHistoryUnknownPersonIsEmpty(t *testing.T) {
	svc := New(t.TempDir())

	entries, err := svc.History("nobody", 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty history, got %d entries", len(entries))
	}
}

func TestReadSnapshotRoundTrip(t *testing.T) {
	svc := New(t.TempDir())
	const personID = "110101199001011234"

	if _, err := svc.SaveSnapshot(personID, "town-interview", "ti_7", map[string]string{
		"thoughts": "worried about family",
	}, "interviewer"); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	raw, err := svc.ReadSnapshot(personID, "town-interview", "ti_7")
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	var got map[string]string
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if got["thoughts"] != "worried about family" {
		t.Fatalf("unexpected snapshot content %v", got)
	}

	missing, err := svc.ReadSnapshot(personID, "town-interview", "ti_999")
	if err != nil {
		t.Fatalf("ReadSnapshot missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing snapshot, got %s", missing)
	}
}

func TestSnapshotOverwriteCommitsAgain(t *testing.T) {
	svc := New(t.TempDir())
	const personID = "110101199001011234"

	if _, err := svc.SaveSnapshot(personID, "daily-status", "ds_1", map[string]string{"mood": "good"}, "a"); err != nil {
		t.Fatalf("first snapshot: %v", err)
	}
	if _, err := svc.SaveSnapshot(personID, "daily-status", "ds_1", map[string]string{"mood": "abnormal"}, "a"); err != nil {
		t.Fatalf("second snapshot: %v", err)
	}

	entries, err := svc.History(personID, 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 commits, got %d", len(entries))
	}

	raw, err := svc.ReadSnapshot(personID, "daily-status", "ds_1")
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if !strings.Contains(string(raw), "abnormal") {
		t.Fatalf("expected latest snapshot content, got %s", raw)
	}
}

func TestSanitizePathSegment(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"110101199001011234", "110101199001011234"},
		{"daily-status", "daily-status"},
		{"../escape", "escape"},
		{"a/b", "ab"},
		{"", "unknown"},
		{"...", "unknown"},
	}
	for _, tc := range cases {
		if got := sanitizePathSegment(tc.in); got != tc.want {
			t.Errorf("sanitizePathSegment(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
