// Package sidfilter emulates the analog voltage-controlled filter of the
// MOS 6581 SID at cycle resolution, solving the filter's nonlinear circuit
// equations from transistor models rather than approximating it with a
// generic digital filter.
//
// The 6581 filter is built from two inverting op-amp integrators whose
// series resistance is a voltage-controlled resistor (VCR) biased by the
// cutoff DAC, in parallel with a fixed "snake" resistance. Both are MOS
// transistors, so the current through each stage is nonlinear in the stage
// voltages. The emulation precomputes three device-characteristic tables
// per chip model:
//
//   - the VCR gate voltage Vg = Vddt - sqrt(((Vddt-Vw)^2 + (Vddt-vi)^2)/2)
//   - the symmetric EKV-model current term n_Is * ln^2(1 + e^((kVg-Vx-kVt)/(2Ut)))
//   - the inverse op-amp transfer function, mapping capacitor charge back
//     to the op-amp input voltage
//
// and then performs a single fixpoint iteration per clock in Integrator.Solve,
// keeping capacitor charge and output voltage as persistent state. All
// audio-rate voltages are carried as float32 in a 16-bit fixed-point
// equivalent scale (0..65535 spans the analog range of the chip); the
// scale and offset constants are part of the model and must not change.
//
// Model6581 holds the physical constants and the immutable tables. Tables
// are built once per chip model with exact float64 math and may be shared
// read-only between any number of Filter instances; each Filter owns its
// two Integrators and all mutable state. A Filter instance is not safe for
// concurrent use, matching the single-producer register/sample ordering of
// the real chip.
//
// Filter implements the complete filter network: register decoding for
// FC_LO/FC_HI/RES_FILT/MODE_VOL, voice and external-input routing, the
// resonance ladder, the summer and mixer op-amps, and the master volume
// ladder. ExternalFilter models the C64 output stage (16 kHz low-pass and
// DC-blocking high-pass). Sampler bridges the ~1 MHz filter clock to an
// audio sample rate.
package sidfilter
