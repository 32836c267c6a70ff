package sidfilter

import "math/bits"

// MODE_VOL register bits.
const (
	ModeLP   = 0x10 // low-pass path enable
	ModeBP   = 0x20 // band-pass path enable
	ModeHP   = 0x40 // high-pass path enable
	Mode3Off = 0x80 // disconnect voice 3 from the mixer
)

// RES_FILT routing bits (low nibble).
const (
	FiltVoice1 = 0x01
	FiltVoice2 = 0x02
	FiltVoice3 = 0x04
	FiltExt    = 0x08
)

// Filter is the complete 6581 filter network: register decoding, voice
// and external-input routing, the two-integrator state-variable core, the
// resonance ladder and the summer/mixer/volume op-amp stages.
//
// The network itself is stateless beyond its registers and the persistent
// integrator voltages: register writes take effect on the next Clock
// call, with no transition states. A Filter must not be shared between
// concurrently clocked chip instances; the underlying Model6581 tables
// may be.
type Filter struct {
	model *Model6581
	f0DAC []float32

	// Register state.
	fc        uint16 // 11-bit cutoff
	res       uint8  // 4-bit resonance
	filt      uint8  // routing bits
	modeVol   uint8  // raw MODE_VOL byte
	voice3Off bool
	enabled   bool

	// Filter pole integrators, named after the signal each one takes as
	// input.
	hpIntegrator *Integrator
	bpIntegrator *Integrator

	// Network voltages in the 16-bit scale.
	vhp float32
	vbp float32
	vlp float32

	// Stage selections derived from the registers.
	summer  *Table
	mixer   *Table
	resGain *Table
	volGain *Table
}

// NewFilter builds a filter network bound to the given chip model, with
// the neutral cutoff curve. All register state starts at power-on zero.
func NewFilter(m *Model6581) *Filter {
	f := &Filter{
		model:        m,
		f0DAC:        m.CutoffDAC(0.5),
		enabled:      true,
		hpIntegrator: m.BuildIntegrator(),
		bpIntegrator: m.BuildIntegrator(),
	}
	f.updateCutoff()
	f.updateMixing()
	return f
}

// WriteFCLo sets the low 3 bits of the cutoff register.
func (f *Filter) WriteFCLo(value uint8) {
	f.fc = (f.fc & 0x7f8) | uint16(value&0x07)
	f.updateCutoff()
}

// WriteFCHi sets the high 8 bits of the cutoff register.
func (f *Filter) WriteFCHi(value uint8) {
	f.fc = (uint16(value)<<3)&0x7f8 | (f.fc & 0x007)
	f.updateCutoff()
}

// WriteResFilt sets resonance (high nibble) and input routing (low nibble).
func (f *Filter) WriteResFilt(value uint8) {
	f.res = (value >> 4) & 0x0f
	f.filt = value & 0x0f
	f.updateMixing()
}

// WriteModeVol sets the filter mode bits, voice 3 disconnect and master
// volume.
func (f *Filter) WriteModeVol(value uint8) {
	f.modeVol = value
	f.voice3Off = value&Mode3Off != 0
	f.updateMixing()
}

// EnableFilter bypasses the filter core when disabled, mixing all inputs
// unfiltered. Not a chip feature; useful for tests and for hosts that
// need to shed the solver cost.
func (f *Filter) EnableFilter(enable bool) {
	f.enabled = enable
	f.updateMixing()
}

// SetFilterCurve rebuilds the cutoff DAC table with a different DAC zero
// adjustment (0..1, 0.5 neutral), modeling the large cutoff spread
// between individual 6581 chips.
func (f *Filter) SetFilterCurve(adjustment float64) {
	f.f0DAC = f.model.CutoffDAC(adjustment)
	f.updateCutoff()
}

// updateCutoff feeds the DAC output voltage for the current FC value to
// both integrators.
func (f *Filter) updateCutoff() {
	vw := f.f0DAC[f.fc]
	f.hpIntegrator.SetVw(vw)
	f.bpIntegrator.SetVw(vw)
}

// updateMixing re-derives the summer, mixer and ladder selections from
// the current register state.
func (f *Filter) updateMixing() {
	m := f.model

	f.volGain = m.gains[f.modeVol&0x0f]
	f.resGain = m.gains[(^f.res)&0x0f]

	if !f.enabled {
		f.summer = m.summers[0]
		f.mixer = m.mixers[f.mixedInputs(0)]
		return
	}

	// Summer inputs: resonance feedback + Vlp + each routed signal.
	routed := bits.OnesCount8(f.filt)
	f.summer = m.summers[routed]

	mode := f.modeVol & (ModeLP | ModeBP | ModeHP)
	f.mixer = m.mixers[f.mixedInputs(bits.OnesCount8(mode))]
}

// mixedInputs counts the mixer inputs: every unrouted signal plus one per
// enabled filter path. Voice 3 drops out entirely when disconnected and
// not routed through the filter.
func (f *Filter) mixedInputs(modePaths int) int {
	routed := f.filt
	if !f.enabled {
		routed = 0
	}
	n := modePaths
	if routed&FiltVoice1 == 0 {
		n++
	}
	if routed&FiltVoice2 == 0 {
		n++
	}
	if routed&FiltVoice3 == 0 && !f.voice3Off {
		n++
	}
	if routed&FiltExt == 0 {
		n++
	}
	return n
}

// Clock advances the network by one chip clock. Voice and external
// samples are in [-1, 1]; the return value is the mixed output voltage in
// the 16-bit scale (use ExternalFilter or Sampler to recover centered
// audio).
func (f *Filter) Clock(voice1, voice2, voice3, ext float32) float32 {
	m := f.model

	v1 := m.voiceDC + m.voiceScale*voice1
	v2 := m.voiceDC + m.voiceScale*voice2
	v3 := m.voiceDC + m.voiceScale*voice3
	ve := m.voiceDC + m.voiceScale*ext

	if !f.enabled {
		var vmix float32 = ve
		vmix += v1 + v2
		if !f.voice3Off {
			vmix += v3
		}
		return f.volGain.Output(f.mixer.Output(vmix))
	}

	// Route each signal into the filter or around it.
	var vi, vmix float32
	if f.filt&FiltVoice1 != 0 {
		vi += v1
	} else {
		vmix += v1
	}
	if f.filt&FiltVoice2 != 0 {
		vi += v2
	} else {
		vmix += v2
	}
	if f.filt&FiltVoice3 != 0 {
		vi += v3
	} else if !f.voice3Off {
		vmix += v3
	}
	if f.filt&FiltExt != 0 {
		vi += ve
	} else {
		vmix += ve
	}

	// One step of the state-variable core. Vhp is solved from the
	// previous Vbp and Vlp, then each integrator advances one clock.
	vhp := f.summer.Output(f.resGain.Output(f.vbp) + f.vlp + vi)
	f.vbp = f.hpIntegrator.Solve(vhp)
	f.vlp = f.bpIntegrator.Solve(f.vbp)
	f.vhp = vhp

	mode := f.modeVol
	if mode&ModeLP != 0 {
		vmix += f.vlp
	}
	if mode&ModeBP != 0 {
		vmix += f.vbp
	}
	if mode&ModeHP != 0 {
		vmix += f.vhp
	}

	return f.volGain.Output(f.mixer.Output(vmix))
}

// Reset restores power-on register and network state.
func (f *Filter) Reset() {
	f.fc = 0
	f.res = 0
	f.filt = 0
	f.modeVol = 0
	f.voice3Off = false
	f.vhp = 0
	f.vbp = 0
	f.vlp = 0
	f.hpIntegrator.Reset()
	f.bpIntegrator.Reset()
	f.updateCutoff()
	f.updateMixing()
}

// FC returns the 11-bit cutoff register value.
func (f *Filter) FC() uint16 {
	return f.fc
}

// Res returns the 4-bit resonance register value.
func (f *Filter) Res() uint8 {
	return f.res
}

// Filt returns the routing bits.
func (f *Filter) Filt() uint8 {
	return f.filt
}

// ModeVol returns the raw MODE_VOL register byte.
func (f *Filter) ModeVol() uint8 {
	return f.modeVol
}

// Vhp returns the high-pass node voltage (for tests and save states).
func (f *Filter) Vhp() float32 { return f.vhp }

// Vbp returns the band-pass node voltage (for tests and save states).
func (f *Filter) Vbp() float32 { return f.vbp }

// Vlp returns the low-pass node voltage (for tests and save states).
func (f *Filter) Vlp() float32 { return f.vlp }
