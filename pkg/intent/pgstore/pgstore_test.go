package pgstore

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"labops/runsweep/pkg/lifecycle"
)

var columns = []string{
	"run", "sequencer", "status", "ticket_key", "assay", "created_date",
	"duration_weeks", "remote_url", "size_bytes", "proposed_at",
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db, ""), mock
}

func TestReplace(t *testing.T) {
	store, mock := newMockStore(t)
	proposed := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock\(\$1\)`).
		WithArgs(store.lockKey).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM "deletion_intents"`).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`INSERT INTO "deletion_intents"`).
		WithArgs("run1", "seq1", "ALL SAMPLES RELEASED", "EBH-1", "MYE", "2024-01-01",
			8.0, "NA", int64(10), proposed).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "deletion_intents"`).
		WithArgs("run2", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.Replace(context.Background(), []lifecycle.IntentRecord{
		{Run: "run2", ProposedAt: proposed},
		{Run: "run1", Sequencer: "seq1", Status: "ALL SAMPLES RELEASED", TicketKey: "EBH-1", Assay: "MYE",
			CreatedDate: "2024-01-01", DurationWeeks: 8, RemoteURL: "NA", SizeBytes: 10, ProposedAt: proposed},
	})
	if err != nil {
		t.Fatalf("Replace() failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestReplace_RollsBackOnInsertError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := store.Replace(context.Background(), []lifecycle.IntentRecord{{Run: "run1"}})
	if err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestLoad(t *testing.T) {
	store, mock := newMockStore(t)
	proposed := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(columns).
		AddRow("run1", "seq1", "DATA CANNOT BE RELEASED", "EBH-1", "CEN", "2024-01-01", 8.5, "NA", int64(99), proposed)
	mock.ExpectQuery(`SELECT run, sequencer`).WillReturnRows(rows)

	records, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(records) != 1 || records[0].TicketKey != "EBH-1" || records[0].SizeBytes != 99 {
		t.Errorf("unexpected records %+v", records)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestClear(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(`DELETE FROM "deletion_intents"`).WillReturnResult(sqlmock.NewResult(0, 2))

	if err := store.Clear(context.Background()); err != nil {
		t.Fatalf("Clear() failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestMigrate(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "deletion_intents"`).WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}
}

func TestOpenDB_MigratesOnce(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	defer db.Close()
	mock.ExpectPing()
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "intents"`).WillReturnResult(sqlmock.NewResult(0, 0))

	if _, err := OpenDB(context.Background(), db, "intents"); err != nil {
		t.Fatalf("OpenDB() failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestOpenDB_PingFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	defer db.Close()
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	if _, err := OpenDB(context.Background(), db, ""); err == nil {
		t.Fatal("expected ping error")
	}
}
