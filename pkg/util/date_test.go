package util

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	got, err := ParseDate(" 2024-03-15 ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !got.Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date %v", got)
	}
	if _, err := ParseDate("15/03/2024"); err == nil {
		t.Fatalf("expected error for wrong layout")
	}
}

func TestParseSymbols(t *testing.T) {
	got := ParseSymbols(" aapl, MSFT,,aapl , brk-b")
	want := []string{"AAPL", "MSFT", "BRK-B"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
