package audit

import (
	"path/filepath"
	"testing"
	"time"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "verdicts.db"))
	if err != nil {
		t.Fatalf("Open error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndRecords(t *testing.T) {
	s := openStore(t)

	recs := []Record{
		{Command: "ls -la", Decision: "allow", Reason: "Command matches allow patterns"},
		{Command: "sudo reboot", Decision: "ask", Reason: "'sudo reboot' matches ask.privilege", Section: "ask.privilege"},
		{Command: "rm -rf /", Decision: "deny", Reason: "Blocked: 'rm -rf /' matches deny.destructive", Section: "deny.destructive"},
	}
	for _, rec := range recs {
		if err := s.Save(rec); err != nil {
			t.Fatalf("Save(%q) error = %v", rec.Command, err)
		}
	}

	got, err := s.Records(0, "")
	if err != nil {
		t.Fatalf("Records error = %v", err)
	}
	if len(got) != len(recs) {
		t.Fatalf("len(Records) = %d, want %d", len(got), len(recs))
	}
	// Newest first.
	if got[0].Command != "rm -rf /" {
		t.Fatalf("Records[0].Command = %q, want newest entry first", got[0].Command)
	}
	if got[0].Section != "deny.destructive" {
		t.Fatalf("Records[0].Section = %q, want deny.destructive", got[0].Section)
	}
	if got[0].Timestamp.IsZero() {
		t.Fatal("Records[0].Timestamp is zero, want a fill-in timestamp")
	}
}

func TestRecordsLimitAndSearch(t *testing.T) {
	s := openStore(t)
	for _, cmd := range []string{"ls one", "ls two", "sudo three"} {
		if err := s.Save(Record{Command: cmd, Decision: "ask", Reason: "r"}); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.Records(2, "")
	if err != nil {
		t.Fatalf("Records error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(Records) = %d, want limit 2", len(got))
	}

	got, err = s.Records(0, "sudo")
	if err != nil {
		t.Fatalf("Records error = %v", err)
	}
	if len(got) != 1 || got[0].Command != "sudo three" {
		t.Fatalf("Records(search) = %v, want the single sudo entry", got)
	}
}

func TestSaveKeepsExplicitTimestamp(t *testing.T) {
	s := openStore(t)
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	if err := s.Save(Record{Timestamp: ts, Command: "ls", Decision: "allow"}); err != nil {
		t.Fatal(err)
	}
	got, err := s.Records(1, "")
	if err != nil {
		t.Fatal(err)
	}
	if !got[0].Timestamp.Equal(ts) {
		t.Fatalf("Timestamp = %v, want %v", got[0].Timestamp, ts)
	}
}

func TestOpenCreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "verdicts.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open error = %v", err)
	}
	defer s.Close()
	if err := s.Save(Record{Command: "ls", Decision: "allow"}); err != nil {
		t.Fatalf("Save error = %v", err)
	}
}
