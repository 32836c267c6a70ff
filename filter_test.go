package sidfilter

import (
	"math"
	"testing"
)

func testFilter(t *testing.T) *Filter {
	t.Helper()
	return NewFilter(testModel(t))
}

func TestFilter_CutoffRegister(t *testing.T) {
	f := testFilter(t)

	// FC is 11 bits: 3 from FC_LO, 8 from FC_HI.
	f.WriteFCLo(0xff)
	if f.FC() != 0x007 {
		t.Errorf("FC after lo write: got 0x%03x, want 0x007", f.FC())
	}
	f.WriteFCHi(0xff)
	if f.FC() != 0x7ff {
		t.Errorf("FC after hi write: got 0x%03x, want 0x7ff", f.FC())
	}
	f.WriteFCLo(0x05)
	if f.FC() != 0x7fd {
		t.Errorf("FC after second lo write: got 0x%03x, want 0x7fd", f.FC())
	}
	f.WriteFCHi(0xa4)
	if f.FC() != 0x525 {
		t.Errorf("FC after second hi write: got 0x%03x, want 0x525", f.FC())
	}
}

func TestFilter_ResFiltRegister(t *testing.T) {
	f := testFilter(t)

	f.WriteResFilt(0xa5)
	if f.Res() != 0x0a {
		t.Errorf("Res: got 0x%x, want 0xa", f.Res())
	}
	if f.Filt() != 0x05 {
		t.Errorf("Filt: got 0x%x, want 0x5", f.Filt())
	}
}

func TestFilter_ModeVolRegister(t *testing.T) {
	f := testFilter(t)

	f.WriteModeVol(0x9f)
	if f.ModeVol() != 0x9f {
		t.Errorf("ModeVol: got 0x%02x, want 0x9f", f.ModeVol())
	}
}

// clockSine runs n clocks of a deterministic three-voice test signal and
// returns the outputs.
func clockSine(f *Filter, n int) []float32 {
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v1 := float32(math.Sin(float64(i) / 11.0))
		v2 := float32(math.Sin(float64(i) / 23.0))
		v3 := float32(math.Sin(float64(i) / 47.0))
		out[i] = f.Clock(v1, v2, v3, 0)
	}
	return out
}

func TestFilter_Deterministic(t *testing.T) {
	m := testModel(t)
	a := NewFilter(m)
	b := NewFilter(m)

	for _, f := range []*Filter{a, b} {
		f.WriteFCHi(0x80)
		f.WriteResFilt(0x47) // resonance 4, voices 1-3 routed
		f.WriteModeVol(ModeLP | 0x0f)
	}

	outA := clockSine(a, 20000)
	outB := clockSine(b, 20000)
	for i := range outA {
		if outA[i] != outB[i] {
			t.Fatalf("cycle %d: outputs diverged, %g vs %g", i, outA[i], outB[i])
		}
	}
}

func TestFilter_VolumeZeroFlattens(t *testing.T) {
	m := testModel(t)
	loud := NewFilter(m)
	mute := NewFilter(m)

	loud.WriteModeVol(0x0f)
	mute.WriteModeVol(0x00)

	outLoud := clockSine(loud, 20000)
	outMute := clockSine(mute, 20000)

	// Volume 0 drives the output stage at zero gain; its output swing must
	// collapse compared to full volume.
	if s := swing(outMute[5000:]); s > 16 {
		t.Errorf("volume 0 output swing %g, expected near-flat", s)
	}
	if s := swing(outLoud[5000:]); s < 1000 {
		t.Errorf("volume 15 output swing %g, expected audible signal", s)
	}
}

func swing(out []float32) float64 {
	min, max := out[0], out[0]
	for _, v := range out {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return float64(max - min)
}

func TestFilter_Voice3Disconnect(t *testing.T) {
	m := testModel(t)
	a := NewFilter(m)
	b := NewFilter(m)

	// Voice 3 unrouted and disconnected: its content must not reach the
	// output at all.
	a.WriteModeVol(Mode3Off | 0x0f)
	b.WriteModeVol(Mode3Off | 0x0f)

	for i := 0; i < 20000; i++ {
		v1 := float32(math.Sin(float64(i) / 11.0))
		outA := a.Clock(v1, 0, float32(math.Sin(float64(i)/7.0)), 0)
		outB := b.Clock(v1, 0, 0.25, 0)
		if outA != outB {
			t.Fatalf("cycle %d: voice 3 leaked into output, %g vs %g", i, outA, outB)
		}
	}
}

func TestFilter_Voice3RoutedIgnoresDisconnect(t *testing.T) {
	m := testModel(t)
	a := NewFilter(m)
	b := NewFilter(m)

	// Voice 3 routed through the filter: the disconnect bit must not
	// silence it.
	for _, f := range []*Filter{a, b} {
		f.WriteFCHi(0x40)
		f.WriteResFilt(FiltVoice3)
		f.WriteModeVol(Mode3Off | ModeBP | 0x0f)
	}

	diverged := false
	for i := 0; i < 20000; i++ {
		v3a := float32(math.Sin(float64(i) / 7.0))
		outA := a.Clock(0, 0, v3a, 0)
		outB := b.Clock(0, 0, 0, 0)
		if outA != outB {
			diverged = true
			break
		}
	}
	if !diverged {
		t.Error("routed voice 3 silenced by the disconnect bit")
	}
}

func TestFilter_BypassIgnoresCutoff(t *testing.T) {
	m := testModel(t)
	a := NewFilter(m)
	b := NewFilter(m)

	for _, f := range []*Filter{a, b} {
		f.EnableFilter(false)
		f.WriteResFilt(0xf7)
		f.WriteModeVol(ModeLP | ModeHP | 0x0f)
	}
	a.WriteFCHi(0x00)
	b.WriteFCHi(0xff)

	// With the core bypassed, cutoff and routing must not affect output.
	outA := clockSine(a, 10000)
	outB := clockSine(b, 10000)
	for i := range outA {
		if outA[i] != outB[i] {
			t.Fatalf("cycle %d: bypass output depends on cutoff, %g vs %g", i, outA[i], outB[i])
		}
	}
}

func TestFilter_LowPassAttenuatesHighFrequency(t *testing.T) {
	m := testModel(t)
	f := NewFilter(m)

	f.WriteFCHi(0x20) // low cutoff
	f.WriteResFilt(FiltVoice1)
	f.WriteModeVol(ModeLP | 0x0f)

	clockAt := func(period float64, n int) []float32 {
		out := make([]float32, n)
		for i := 0; i < n; i++ {
			out[i] = f.Clock(float32(math.Sin(2*math.Pi*float64(i)/period)), 0, 0, 0)
		}
		return out
	}

	// ~50Hz vs ~16kHz at a 1MHz clock.
	lowFreq := clockAt(20000, 60000)
	f.Reset()
	f.WriteFCHi(0x20)
	f.WriteResFilt(FiltVoice1)
	f.WriteModeVol(ModeLP | 0x0f)
	highFreq := clockAt(64, 60000)

	sLow := swing(lowFreq[20000:])
	sHigh := swing(highFreq[20000:])
	if sHigh > sLow/2 {
		t.Errorf("low-pass attenuation missing: low-freq swing %g, high-freq swing %g", sLow, sHigh)
	}
}

func TestFilter_Reset(t *testing.T) {
	m := testModel(t)
	f := NewFilter(m)

	f.WriteFCLo(0x07)
	f.WriteFCHi(0xff)
	f.WriteResFilt(0xff)
	f.WriteModeVol(0xff)
	clockSine(f, 5000)

	f.Reset()
	if f.FC() != 0 || f.Res() != 0 || f.Filt() != 0 || f.ModeVol() != 0 {
		t.Error("registers not cleared by reset")
	}
	if f.Vhp() != 0 || f.Vbp() != 0 || f.Vlp() != 0 {
		t.Error("network state not cleared by reset")
	}

	// A reset filter behaves like a fresh one.
	ref := NewFilter(m)
	outA := clockSine(f, 5000)
	outB := clockSine(ref, 5000)
	for i := range outA {
		if outA[i] != outB[i] {
			t.Fatalf("cycle %d after reset: %g vs fresh %g", i, outA[i], outB[i])
		}
	}
}

func TestFilter_SetFilterCurve(t *testing.T) {
	m := testModel(t)
	a := NewFilter(m)
	b := NewFilter(m)

	for _, f := range []*Filter{a, b} {
		f.WriteFCHi(0x40)
		f.WriteResFilt(FiltVoice1)
		f.WriteModeVol(ModeLP | 0x0f)
	}
	b.SetFilterCurve(0.1)

	diverged := false
	for i := 0; i < 20000; i++ {
		v1 := float32(math.Sin(float64(i) / 11.0))
		if a.Clock(v1, 0, 0, 0) != b.Clock(v1, 0, 0, 0) {
			diverged = true
			break
		}
	}
	if !diverged {
		t.Error("filter curve adjustment had no effect on output")
	}
}
