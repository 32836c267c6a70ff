package sidfilter

// ExternalFilter models the C64 output stage between the chip's audio
// pin and the RF modulator: a low-pass RC (10kOhm, 1000pF) rounding off
// sampling noise around 16kHz, followed by the coupling capacitor
// (1kOhm against 10uF) blocking the large DC offset the chip output
// rides on.
//
// Both poles sit far outside the audio band, so one forward-Euler step
// per chip clock is accurate.
type ExternalFilter struct {
	vlp float32
	vhp float32

	w0lp float32
	w0hp float32
}

// NewExternalFilter returns an external filter stage clocked at the
// given chip frequency in Hz.
func NewExternalFilter(clockFrequency float64) *ExternalFilter {
	f := &ExternalFilter{}
	f.SetClockFrequency(clockFrequency)
	return f
}

// SetClockFrequency recomputes the per-clock pole coefficients. Filter
// state is preserved.
func (f *ExternalFilter) SetClockFrequency(clockFrequency float64) {
	dt := 1. / clockFrequency

	// Low-pass: R = 10kOhm, C = 1000pF
	f.w0lp = float32(dt / (dt + 10e3*1000e-12))

	// High-pass: R = 1kOhm, C = 10uF
	f.w0hp = float32(dt / (dt + 1e3*10e-6))
}

// Clock advances the stage by one chip clock with the filter network
// output voltage (16-bit scale) and returns the DC-centered sample in
// the same scale.
func (f *ExternalFilter) Clock(vi float32) float32 {
	dVlp := f.w0lp * (vi - f.vlp)
	dVhp := f.w0hp * (f.vlp - f.vhp)
	f.vlp += dVlp
	f.vhp += dVhp
	return f.vlp - f.vhp
}

// Reset zeroes both capacitor states.
func (f *ExternalFilter) Reset() {
	f.vlp = 0
	f.vhp = 0
}
