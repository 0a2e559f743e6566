package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

type testTable struct{}

func (testTable) Header() []string { return []string{"RUN", "DISPOSITION"} }

func (testTable) Rows() [][]string {
	return [][]string{
		{"240301_A01295_0001", "flag_delete"},
		{"240302_A01295_0002", "too_young"},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", FormatText, false},
		{"JSON", FormatJSON, false},
		{"csv", FormatCSV, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTextFormatter(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := NewFormatter(FormatText).FormatTo(buf, "plain message"); err != nil {
		t.Fatalf("FormatTo() failed: %v", err)
	}
	if buf.String() != "plain message\n" {
		t.Errorf("FormatTo() = %q", buf.String())
	}

	buf.Reset()
	if err := NewFormatter(FormatText).FormatTo(buf, testTable{}); err != nil {
		t.Fatalf("FormatTo() failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3: %q", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "RUN") || strings.Index(lines[1], "flag_delete") != strings.Index(lines[0], "DISPOSITION") {
		t.Errorf("columns not aligned: %q", buf.String())
	}
}

func TestJSONFormatter(t *testing.T) {
	buf := &bytes.Buffer{}
	data := map[string]int{"flag_delete": 3}
	if err := NewFormatter(FormatJSON).FormatTo(buf, data); err != nil {
		t.Fatalf("FormatTo() failed: %v", err)
	}
	var got map[string]int
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", buf.String(), err)
	}
	if got["flag_delete"] != 3 {
		t.Errorf("got %v", got)
	}
}

func TestCSVFormatter(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := NewFormatter(FormatCSV).FormatTo(buf, testTable{}); err != nil {
		t.Fatalf("FormatTo() failed: %v", err)
	}
	want := "RUN,DISPOSITION\n240301_A01295_0001,flag_delete\n240302_A01295_0002,too_young\n"
	if buf.String() != want {
		t.Errorf("FormatTo() = %q, want %q", buf.String(), want)
	}

	if err := NewFormatter(FormatCSV).FormatTo(buf, "not a table"); err == nil {
		t.Error("expected error for non-table data")
	}
}
