package sink

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/draco-tlw/rayzor/internal/prober"
)

func TestNew_WritesHeaderAndTruncatesActive(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "results.csv")
	activePath := filepath.Join(dir, "active.txt")

	s, err := New(csvPath, activePath)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_ = s

	raw, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	r := csv.NewReader(bytes.NewReader(raw))
	rows, err := r.ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 1 || rows[0][0] != "config" {
		t.Fatalf("expected only header row, got %+v", rows)
	}

	active, err := os.ReadFile(activePath)
	if err != nil {
		t.Fatalf("read active: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("expected empty active file, got %q", active)
	}
}

func TestAppendSuccesses_OnlySuccessGoesToCSVAndActiveFile(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "results.csv")
	activePath := filepath.Join(dir, "active.txt")

	s, err := New(csvPath, activePath)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	results := []prober.Result{
		{Link: "ok-link", LatencyMS: 120, Success: true, Message: "OK"},
		{Link: "bad-link", LatencyMS: -1, Success: false, Message: "Timeout"},
	}
	if err := s.AppendSuccesses(results); err != nil {
		t.Fatalf("AppendSuccesses: %v", err)
	}

	active, err := os.ReadFile(activePath)
	if err != nil {
		t.Fatalf("read active: %v", err)
	}
	if string(active) != "ok-link\n" {
		t.Errorf("active file = %q, want %q", active, "ok-link\n")
	}

	raw, _ := os.ReadFile(csvPath)
	rows, _ := csv.NewReader(bytes.NewReader(raw)).ReadAll()
	if len(rows) != 2 {
		t.Fatalf("expected header + 1 success row, got %d: %+v", len(rows), rows)
	}
	if rows[1][0] != "ok-link" || rows[1][2] != "success" {
		t.Errorf("unexpected row: %+v", rows[1])
	}
}

func TestFinalizeSort_OrdersByLatencyAscending(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "results.csv")
	activePath := filepath.Join(dir, "active.txt")

	s, err := New(csvPath, activePath)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	results := []prober.Result{
		{Link: "slow", LatencyMS: 500, Success: true, Message: "OK"},
		{Link: "fast", LatencyMS: 10, Success: true, Message: "OK"},
		{Link: "medium", LatencyMS: 100, Success: true, Message: "OK"},
	}
	if err := s.AppendSuccesses(results); err != nil {
		t.Fatalf("AppendSuccesses: %v", err)
	}
	if err := s.FinalizeSort(); err != nil {
		t.Fatalf("FinalizeSort: %v", err)
	}

	raw, _ := os.ReadFile(csvPath)
	rows, _ := csv.NewReader(bytes.NewReader(raw)).ReadAll()
	if len(rows) != 4 {
		t.Fatalf("expected header + 3 rows, got %d", len(rows))
	}
	order := []string{rows[1][0], rows[2][0], rows[3][0]}
	want := []string{"fast", "medium", "slow"}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("sorted order = %v, want %v", order, want)
		}
	}
}

