package sidfilter

import (
	"math"
	"testing"
)

func TestTable_OutputTruncates(t *testing.T) {
	tbl := NewTable([]float32{10, 20, 30, 40})

	cases := []struct {
		x    float32
		want float32
	}{
		{0, 10},
		{0.9, 10},
		{1, 20},
		{2.5, 30},
		{3.999, 40},
	}
	for _, tc := range cases {
		if got := tbl.Output(tc.x); got != tc.want {
			t.Errorf("Output(%g): got %g, want %g", tc.x, got, tc.want)
		}
	}
}

func TestTable_AtAndSize(t *testing.T) {
	values := []float32{1, 2, 3}
	tbl := NewTable(values)

	if tbl.Size() != 3 {
		t.Errorf("Size: got %d, want 3", tbl.Size())
	}
	for i, want := range values {
		if got := tbl.At(i); got != want {
			t.Errorf("At(%d): got %g, want %g", i, got, want)
		}
	}
}

func TestCheckTableFinite(t *testing.T) {
	if err := checkTableFinite("ok", []float32{0, 1, -1, 65535}); err != nil {
		t.Errorf("finite table: unexpected error %v", err)
	}
	if err := checkTableFinite("nan", []float32{0, float32(math.NaN())}); err == nil {
		t.Error("NaN entry: expected error, got nil")
	}
	if err := checkTableFinite("inf", []float32{float32(math.Inf(1))}); err == nil {
		t.Error("Inf entry: expected error, got nil")
	}
}

func TestCheckTableRange(t *testing.T) {
	if err := checkTableRange("ok", []float32{0, 32768, 65535}); err != nil {
		t.Errorf("in-range table: unexpected error %v", err)
	}
	if err := checkTableRange("low", []float32{-1}); err == nil {
		t.Error("negative entry: expected error, got nil")
	}
	if err := checkTableRange("high", []float32{65536}); err == nil {
		t.Error("oversized entry: expected error, got nil")
	}
	if err := checkTableRange("nan", []float32{float32(math.NaN())}); err == nil {
		t.Error("NaN entry: expected error, got nil")
	}
}
