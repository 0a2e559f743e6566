package intent

import (
	"context"
	"errors"
	"testing"

	"labops/runsweep/pkg/lifecycle"
)

func TestMemory_ReplaceOverwrites(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	if err := store.Replace(ctx, []lifecycle.IntentRecord{{Run: "b"}, {Run: "a"}}); err != nil {
		t.Fatalf("Replace() failed: %v", err)
	}
	if err := store.Replace(ctx, []lifecycle.IntentRecord{{Run: "c"}}); err != nil {
		t.Fatalf("Replace() failed: %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(got) != 1 || got[0].Run != "c" {
		t.Errorf("expected only run c, got %+v", got)
	}

	if err := store.Replace(ctx, nil); err != nil {
		t.Fatalf("Replace() failed: %v", err)
	}
	if got, _ := store.Load(ctx); len(got) != 0 {
		t.Errorf("expected empty batch, got %+v", got)
	}
}

func TestMemory_Closed(t *testing.T) {
	store := NewMemory()
	_ = store.Close()
	if _, err := store.Load(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestDocument_Records(t *testing.T) {
	doc := NewDocument([]lifecycle.IntentRecord{
		{Run: "run2", Status: "old"},
		{Run: "run1"},
		{Run: "run2", Status: "new"},
	})
	records := doc.Records()
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Run != "run1" || records[1].Status != "new" {
		t.Errorf("unexpected records %+v", records)
	}
}
