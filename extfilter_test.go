package sidfilter

import (
	"math"
	"testing"
)

func TestExternalFilter_BlocksDC(t *testing.T) {
	f := NewExternalFilter(985248)

	// A constant input must decay to zero through the coupling capacitor.
	// The high-pass time constant is 10ms, so 100k clocks at ~1MHz covers
	// ten time constants.
	var out float32
	for i := 0; i < 100000; i++ {
		out = f.Clock(20000)
	}
	if math.Abs(float64(out)) > 20 {
		t.Errorf("DC output after settling: got %g, want ~0", out)
	}
}

func TestExternalFilter_PassesStepInitially(t *testing.T) {
	f := NewExternalFilter(985248)

	// The low-pass settles within tens of clocks while the high-pass has
	// barely moved, so a fresh step passes almost unattenuated.
	var out float32
	for i := 0; i < 100; i++ {
		out = f.Clock(20000)
	}
	if out < 19000 {
		t.Errorf("step response after 100 clocks: got %g, want near 20000", out)
	}
}

func TestExternalFilter_Reset(t *testing.T) {
	f := NewExternalFilter(985248)

	for i := 0; i < 1000; i++ {
		f.Clock(20000)
	}
	f.Reset()

	if out := f.Clock(0); out != 0 {
		t.Errorf("output after reset with zero input: got %g, want 0", out)
	}
}

func TestExternalFilter_ClockFrequencyPreservesState(t *testing.T) {
	f := NewExternalFilter(985248)

	for i := 0; i < 1000; i++ {
		f.Clock(20000)
	}
	before := f.Clock(20000)

	// Switching PAL to NTSC mid-stream keeps the capacitor voltages; the
	// next output must stay continuous.
	f.SetClockFrequency(1022727)
	after := f.Clock(20000)
	if math.Abs(float64(after-before)) > 100 {
		t.Errorf("output jumped across clock change: %g to %g", before, after)
	}
}
