package audit

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestFileLog_Append(t *testing.T) {
	path := filepath.Join(t.TempDir(), "delete.txt")
	log, err := OpenFileLog(path)
	if err != nil {
		t.Fatalf("OpenFileLog() failed: %v", err)
	}

	at := time.Date(2024, 3, 6, 9, 30, 0, 0, time.UTC)
	if err := log.Append("/genetics/seq1/run1", at); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}
	if err := log.Append("/genetics/seq1/run2", at); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}
	_ = log.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if want := "/genetics/seq1/run1 2024-03-06 09:30:00.000000"; lines[0] != want {
		t.Errorf("line = %q, want %q", lines[0], want)
	}
}

func TestFileLog_Fallback(t *testing.T) {
	wd, _ := os.Getwd()
	dir := t.TempDir()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir() failed: %v", err)
	}
	defer os.Chdir(wd) //nolint:errcheck

	log, err := OpenFileLog(filepath.Join(dir, "missing", "audit.txt"))
	if err != nil {
		t.Fatalf("OpenFileLog() failed: %v", err)
	}
	defer log.Close()

	if log.Path() != "audit.txt" {
		t.Errorf("Path() = %q, want fallback audit.txt", log.Path())
	}
}

func TestTrail_Record(t *testing.T) {
	path := filepath.Join(t.TempDir(), "delete.txt")
	log, err := OpenFileLog(path)
	if err != nil {
		t.Fatalf("OpenFileLog() failed: %v", err)
	}
	w := &fakeWriter{}
	trail := NewTrail(log, &KafkaPublisher{writer: w, topic: "runs"})

	ev := NewEvent("cycle-1", "run1", "seq1", "/genetics/seq1/run1", time.Now())
	if err := trail.Record(context.Background(), ev); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}

	if len(w.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(w.msgs))
	}
	if string(w.msgs[0].Key) != "run1" {
		t.Errorf("key = %q", w.msgs[0].Key)
	}
	var decoded Event
	if err := json.Unmarshal(w.msgs[0].Value, &decoded); err != nil {
		t.Fatalf("Unmarshal() failed: %v", err)
	}
	if decoded.ID == "" || decoded.Type != EventRunDeleted || decoded.CycleID != "cycle-1" {
		t.Errorf("unexpected event %+v", decoded)
	}

	if err := trail.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if !w.closed {
		t.Error("expected writer closed")
	}
}

func TestTrail_PublishFailureIsNotFatal(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	trail := NewTrail(nil, &KafkaPublisher{writer: w, topic: "runs"})

	ev := NewEvent("cycle-1", "run1", "seq1", "/x", time.Now())
	if err := trail.Record(context.Background(), ev); err != nil {
		t.Errorf("Record() returned %v, want nil", err)
	}
}

func TestNewKafkaPublisher_Validation(t *testing.T) {
	if _, err := NewKafkaPublisher(KafkaConfig{Topic: "t"}); err == nil {
		t.Error("expected error without brokers")
	}
	if _, err := NewKafkaPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}}); err == nil {
		t.Error("expected error without topic")
	}
}
