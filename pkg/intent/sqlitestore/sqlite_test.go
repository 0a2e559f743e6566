package sqlitestore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"labops/runsweep/pkg/lifecycle"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "intents.db")
	store, err := Open(Config{Path: path})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func TestStore_ReplaceAndLoad(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	proposed := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	err := store.Replace(ctx, []lifecycle.IntentRecord{
		{Run: "run2", Sequencer: "seq1", Status: "ALL SAMPLES RELEASED", TicketKey: "EBH-2", Assay: "MYE",
			CreatedDate: "2024-01-01", DurationWeeks: 9.14, RemoteURL: "NA", SizeBytes: 1 << 30, ProposedAt: proposed},
		{Run: "run1", Sequencer: "seq1", ProposedAt: proposed},
	})
	if err != nil {
		t.Fatalf("Replace() failed: %v", err)
	}

	records, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Run != "run1" {
		t.Errorf("expected sorted records, got %s first", records[0].Run)
	}
	r := records[1]
	if r.TicketKey != "EBH-2" || r.SizeBytes != 1<<30 || r.DurationWeeks != 9.14 || !r.ProposedAt.Equal(proposed) {
		t.Errorf("unexpected record %+v", r)
	}

	if err := store.Replace(ctx, []lifecycle.IntentRecord{{Run: "run3"}}); err != nil {
		t.Fatalf("Replace() failed: %v", err)
	}
	records, _ = store.Load(ctx)
	if len(records) != 1 || records[0].Run != "run3" {
		t.Errorf("expected only run3 after replace, got %+v", records)
	}
}

func TestStore_PersistsAcrossOpen(t *testing.T) {
	store, path := newTestStore(t)
	ctx := context.Background()
	if err := store.Replace(ctx, []lifecycle.IntentRecord{{Run: "run1"}}); err != nil {
		t.Fatalf("Replace() failed: %v", err)
	}
	_ = store.Close()

	reopened, err := Open(Config{Path: path})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer reopened.Close()

	records, err := reopened.Load(ctx)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected 1 record, got %d", len(records))
	}

	if err := reopened.Clear(ctx); err != nil {
		t.Fatalf("Clear() failed: %v", err)
	}
	if records, _ := reopened.Load(ctx); len(records) != 0 {
		t.Errorf("expected empty batch after Clear, got %d", len(records))
	}
}
