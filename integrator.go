package sidfilter

import "fmt"

// Integrator finds the output voltage of one inverting op-amp integrator
// stage with a single fixpoint iteration step per clock.
//
// The stage integrates the current through two parallel paths onto the
// feedback capacitor: the fixed "snake" resistance Rs (a transistor with
// its gate at Vdd, always in triode mode) and the voltage-controlled
// resistor Rw (gate driven by the cutoff DAC, crossing subthreshold,
// triode and saturation). From Kirchhoff's current law,
//
//	vc = vc0 - n*(IRw(vi, vx) + IRs(vi, vx))
//
// where vx = g(vc) through the inverse op-amp transfer table. The snake
// current uses the symmetric quadratic form K/2*W/L*(Vgst^2 - Vgdt^2),
// which covers triode and saturation in one expression. The VCR current
// uses the symmetric EKV-model table, clamped to zero per terminal when
// the terminal voltage is above the gate voltage, which keeps the
// computation branch-free in the model sense: the device conducts in at
// most one direction per terminal, with no regime switch.
//
// All voltages are scaled fixed-range floats in the 16-bit voltage scale.
// The halving of the squared-term sum, the 1/65536 domain normalization
// and the 2^15 charge offset are part of the model's unit system; changing
// any of them audibly changes the cutoff and resonance behavior.
//
// Solve advances the capacitor charge by one clock on every call. It is a
// stateful operation despite its value-returning signature; replaying an
// identical call sequence from a fresh instance is the only way to
// reproduce an output sequence.
type Integrator struct {
	vcrKVg     *Table
	vcrIdsTerm *Table
	opampRev   *Table

	// Control voltage term (kVddt - Vw)^2, cached by SetVw.
	vddtVw2 float32

	// Persistent stage state: output voltage and capacitor charge.
	vx float32
	vc float32

	kVddt  float32
	nSnake float32
}

// NewIntegrator constructs an integrator over shared read-only tables.
// kVddt is the threshold-referenced supply voltage and nSnake the snake
// current scale factor, both produced by Model6581.BuildIntegrator.
func NewIntegrator(vcrKVg, vcrIdsTerm, opampRev *Table, kVddt, nSnake float32) *Integrator {
	return &Integrator{
		vcrKVg:     vcrKVg,
		vcrIdsTerm: vcrIdsTerm,
		opampRev:   opampRev,
		kVddt:      kVddt,
		nSnake:     nSnake,
	}
}

// SetVw sets the VCR control voltage derived from the filter cutoff
// register. Only the squared difference term is kept; it is read by every
// subsequent Solve call until the next update. May be called at register
// write rate, independent of the clock rate.
func (in *Integrator) SetVw(vw float32) {
	in.vddtVw2 = (in.kVddt - vw) * (in.kVddt - vw)
}

// Solve performs one fixpoint iteration step for input voltage vi and
// returns the stage output voltage. Both vi and the persistent stage
// state must be strictly below kVddt; a violation means a misconfigured
// chip model or an out-of-range upstream signal and panics rather than
// producing silently corrupted audio.
func (in *Integrator) Solve(vi float32) float32 {
	// Vgst > 0: not in subthreshold mode.
	if in.vx >= in.kVddt {
		panic(fmt.Sprintf("sidfilter: integrator state %g not below Vddt %g", in.vx, in.kVddt))
	}
	// Vds < Vgs - Vth: the snake transistor stays in triode mode.
	if vi >= in.kVddt {
		panic(fmt.Sprintf("sidfilter: integrator input %g not below Vddt %g", vi, in.kVddt))
	}

	// "Snake" voltages for the triode mode calculation.
	vgst := in.kVddt - in.vx
	vgdt := in.kVddt - vi

	vgst2 := vgst * vgst
	vgdt2 := vgdt * vgdt

	// "Snake" current, scaled by m*2^32.
	nISnake := in.nSnake * (vgst2 - vgdt2)

	// VCR gate voltage, scaled by m*2^16:
	// Vg = Vddt - sqrt(((Vddt - Vw)^2 + Vgdt^2)/2)
	kVg := in.vcrKVg.Output(((in.vddtVw2 + vgdt2) / 2.) / 65536.)

	// VCR terminal voltages for the EKV table. The device conducts in at
	// most one direction per terminal.
	var vgs, vgd float32
	if in.vx < kVg {
		vgs = kVg - in.vx
	}
	if vi < kVg {
		vgd = kVg - vi
	}

	// VCR current, scaled by m*2^16.
	nIVcr := in.vcrIdsTerm.Output(vgs) - in.vcrIdsTerm.Output(vgd)

	// Change in capacitor charge.
	in.vc += (nISnake / 65536.) + nIVcr

	// vx = g(vc)
	in.vx = in.opampRev.Output((in.vc / 2.) + (1 << 15))

	// vo = vx - vc
	return in.vx - in.vc
}

// Reset restores power-on stage state. Control voltage is cleared too;
// the filter re-derives it from the cutoff registers.
func (in *Integrator) Reset() {
	in.vddtVw2 = 0
	in.vx = 0
	in.vc = 0
}

// Vx returns the last solved output voltage (for tests and save states).
func (in *Integrator) Vx() float32 {
	return in.vx
}

// Vc returns the accumulated capacitor charge (for tests and save states).
func (in *Integrator) Vc() float32 {
	return in.vc
}
