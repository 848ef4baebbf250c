package repository

import (
	"os"
	"strings"
	"testing"
	"time"

	"StockCast/internal/domain/models"
)

func TestFileMirrorWritesJSONAndCSV(t *testing.T) {
	dir := t.TempDir()
	m, err := NewFileMirror(dir, nil)
	if err != nil {
		t.Fatalf("new mirror: %v", err)
	}
	bars := []models.PriceBar{
		{Date: time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC), Open: 101.255, High: 102, Low: 100.1, Close: 101.5, Volume: 1234567},
		{Date: time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC), Open: 99, High: 100.456, Low: 98.5, Close: 100, Volume: 99},
	}
	raw := []byte(`{"Time Series (Daily)":{}}`)
	if err := m.Write("aapl", raw, bars); err != nil {
		t.Fatalf("write: %v", err)
	}

	gotRaw, err := os.ReadFile(m.JSONPath("AAPL"))
	if err != nil {
		t.Fatalf("read json: %v", err)
	}
	if string(gotRaw) != string(raw) {
		t.Fatalf("json mirror = %q", gotRaw)
	}

	csvBytes, err := os.ReadFile(m.CSVPath("AAPL"))
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(csvBytes)), "\n")
	want := []string{
		"Date,Open,High,Low,Close,Volume",
		"2024-03-08,101.26,102.00,100.10,101.50,1234567",
		"2024-03-07,99.00,100.46,98.50,100.00,99",
	}
	if len(lines) != len(want) {
		t.Fatalf("csv lines = %v", lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestFileMirrorReplacesPreviousFiles(t *testing.T) {
	m, err := NewFileMirror(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("new mirror: %v", err)
	}
	day := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)
	long := make([]models.PriceBar, 5)
	for i := range long {
		long[i] = models.PriceBar{Date: day.AddDate(0, 0, -i), Open: 1, High: 1, Low: 1, Close: 1}
	}
	if err := m.Write("MSFT", []byte("first payload that is longer"), long); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := m.Write("MSFT", []byte("second"), long[:1]); err != nil {
		t.Fatalf("second write: %v", err)
	}
	raw, _ := os.ReadFile(m.JSONPath("MSFT"))
	if string(raw) != "second" {
		t.Fatalf("json not replaced: %q", raw)
	}
	csvBytes, _ := os.ReadFile(m.CSVPath("MSFT"))
	if n := len(strings.Split(strings.TrimSpace(string(csvBytes)), "\n")); n != 2 {
		t.Fatalf("csv has %d lines after replace, want 2", n)
	}
}

func TestFileMirrorRemove(t *testing.T) {
	m, err := NewFileMirror(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("new mirror: %v", err)
	}
	if err := m.Remove("ZZZZ"); err != nil {
		t.Fatalf("remove of missing mirror: %v", err)
	}
	bars := []models.PriceBar{{Date: time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC), Open: 1, High: 1, Low: 1, Close: 1, Volume: 1}}
	if err := m.Write("XYZ", []byte(`{}`), bars); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := m.Remove("xyz"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	for _, p := range []string{m.JSONPath("XYZ"), m.CSVPath("XYZ")} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Fatalf("%s still present: %v", p, err)
		}
	}
}
