package acquisition

import (
	"math"
	"reflect"
	"testing"
	"time"

	"StockCast/pkg/util"
)

func TestGenerateSyntheticDeterministic(t *testing.T) {
	asOf := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC) // Saturday
	a := GenerateSynthetic("AAPL", 100, 42, asOf)
	b := GenerateSynthetic("aapl", 100, 42, asOf)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("same seed produced different bars")
	}
	if reflect.DeepEqual(a, GenerateSynthetic("MSFT", 100, 42, asOf)) {
		t.Fatalf("different symbols produced identical bars")
	}
	if reflect.DeepEqual(a, GenerateSynthetic("AAPL", 100, 43, asOf)) {
		t.Fatalf("different seeds produced identical bars")
	}
}

func TestGenerateSyntheticShape(t *testing.T) {
	asOf := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	bars := GenerateSynthetic("NVDA", 100, 1, asOf)
	if len(bars) != 100 {
		t.Fatalf("got %d bars", len(bars))
	}
	if want := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC); !bars[0].Date.Equal(want) {
		t.Fatalf("newest bar dated %v, want %v", bars[0].Date, want)
	}
	for i, b := range bars {
		if !util.IsWeekday(b.Date) {
			t.Fatalf("bar %d on a weekend: %v", i, b.Date)
		}
		if i > 0 && !b.Date.Before(bars[i-1].Date) {
			t.Fatalf("bars not newest first at %d", i)
		}
		if !b.Valid() || b.High < math.Max(b.Open, b.Close) || b.Low > math.Min(b.Open, b.Close) {
			t.Fatalf("inconsistent bar %d: %+v", i, b)
		}
		if b.Volume < syntheticMinVolume || b.Volume >= syntheticMaxVolume {
			t.Fatalf("volume out of range: %d", b.Volume)
		}
	}
	oldest := bars[len(bars)-1]
	if oldest.Open < syntheticMinPrice*0.9 || oldest.Open > syntheticMaxPrice*1.1 {
		t.Fatalf("base price out of range: %v", oldest.Open)
	}
}

func TestGenerateSyntheticEmpty(t *testing.T) {
	if bars := GenerateSynthetic("X", 0, 1, time.Now()); bars != nil {
		t.Fatalf("expected nil for n=0")
	}
}
