package sidfilter

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

// solverTableSize is the domain resolution of the solver tables. The
// fixed-point equivalent voltage scale spans 16 bits, so each table holds
// one entry per representable scaled voltage.
const solverTableSize = 1 << 16

// Model6581Constants are the physical constants of one 6581 die revision.
// Different silicon revisions (and the spread between individual chips)
// are expressed as different constant sets feeding the same table builds.
type Model6581Constants struct {
	// Dynamic range of one voice in volts, and the voice DC level the
	// range is centered on.
	VoiceVoltageRange float64
	VoiceDCVoltage    float64

	// Integrator capacitor value in farads.
	C float64

	// Transistor parameters.
	Vdd  float64 // supply voltage
	Vth  float64 // threshold voltage
	Ut   float64 // thermal voltage kT/q, ~26mV at room temperature
	K    float64 // gate coupling coefficient
	UCox float64 // transconductance coefficient u*Cox

	// Width/length ratios of the VCR and "snake" transistors.
	WLVcr   float64
	WLSnake float64

	// Cutoff DAC output voltage mapping.
	DACZero  float64
	DACScale float64
	DACBits  uint

	// Measured op-amp voltage transfer, input voltage vs output voltage,
	// sorted by increasing input.
	OpampVoltage []Point
}

// opampVoltage6581 is the op-amp voltage transfer function measured on
// CAP1B/CAP1A of a chip marked MOS 6581R4AR 0687 14. Output voltages of
// all measured chips stay within 0.81V - 10.31V.
var opampVoltage6581 = []Point{
	{0.81, 10.31}, // approximate start of actual range
	{2.40, 10.31},
	{2.60, 10.30},
	{2.70, 10.29},
	{2.80, 10.26},
	{2.90, 10.17},
	{3.00, 10.04},
	{3.10, 9.83},
	{3.20, 9.58},
	{3.30, 9.32},
	{3.50, 8.69},
	{3.70, 8.00},
	{4.00, 6.89},
	{4.40, 5.21},
	{4.54, 4.54}, // working point (vi = vo)
	{4.60, 4.19},
	{4.80, 3.00},
	{4.90, 2.30}, // change of curvature
	{4.95, 2.03},
	{5.00, 1.88},
	{5.05, 1.77},
	{5.10, 1.69},
	{5.20, 1.58},
	{5.40, 1.44},
	{5.60, 1.33},
	{5.80, 1.26},
	{6.00, 1.21},
	{6.40, 1.12},
	{7.00, 1.02},
	{7.50, 0.97},
	{8.50, 0.89},
	{10.00, 0.81},
	{10.31, 0.81}, // approximate end of actual range
}

// Default6581 returns the reference constant set for the MOS 6581.
func Default6581() Model6581Constants {
	return Model6581Constants{
		VoiceVoltageRange: 1.5,
		VoiceDCVoltage:    5.0,
		C:                 470e-12,
		Vdd:               12.18,
		Vth:               1.31,
		Ut:                26.0e-3,
		K:                 1.0,
		UCox:              20e-6,
		WLVcr:             9.0 / 1.0,
		WLSnake:           1.0 / 115.0,
		DACZero:           6.65,
		DACScale:          2.63,
		DACBits:           11,
		OpampVoltage:      opampVoltage6581,
	}
}

// Model6581 holds the immutable device-characteristic tables and derived
// constants for one 6581 chip model. Construction is done once per
// constant set with exact transcendental math; the result may be shared
// read-only across any number of Filter instances without synchronization.
type Model6581 struct {
	constants Model6581Constants

	vddt   float64 // Vdd - Vth
	vmin   float64
	vmax   float64
	denorm float64
	n16    float64 // 16-bit voltage scale factor: 65535/denorm

	// Solver tables.
	opampRev   *Table
	vcrKVg     *Table
	vcrIdsTerm *Table

	// Summer op-amps for 2-6 inputs, mixer op-amps for 0-7 inputs, and
	// the 16 resistor-ladder gain configurations shared by the volume
	// and resonance ladders.
	summers [5]*Table
	mixers  [8]*Table
	gains   [16]*Table

	cutoffDAC *DAC

	voiceScale float32
	voiceDC    float32
}

var (
	defaultModelOnce sync.Once
	defaultModel     *Model6581
	defaultModelErr  error
)

// DefaultModel6581 returns the process-wide model built from the
// reference constants. The tables take several megabytes and a noticeable
// construction pass, so all chip instances of the reference model share
// this one.
func DefaultModel6581() (*Model6581, error) {
	defaultModelOnce.Do(func() {
		defaultModel, defaultModelErr = NewModel6581(Default6581())
	})
	return defaultModel, defaultModelErr
}

// NewModel6581 builds all device-characteristic tables from c. Errors are
// configuration errors: the constants push some table output outside its
// representable range. No Filter or Integrator must be built against a
// failed model.
func NewModel6581(c Model6581Constants) (*Model6581, error) {
	if len(c.OpampVoltage) < 2 {
		return nil, errors.New("sidfilter: op-amp transfer needs at least two points")
	}
	if c.C <= 0 || c.Ut <= 0 || c.K <= 0 {
		return nil, errors.New("sidfilter: C, Ut and K must be positive")
	}
	if c.DACBits == 0 || c.DACBits > 16 {
		return nil, fmt.Errorf("sidfilter: unsupported DAC width %d", c.DACBits)
	}

	m := &Model6581{constants: c}
	m.vddt = c.Vdd - c.Vth
	m.vmin = c.OpampVoltage[0].X
	m.vmax = c.OpampVoltage[0].Y
	if m.vddt > m.vmax {
		m.vmax = m.vddt
	}
	m.denorm = m.vmax - m.vmin
	m.n16 = 65535.0 / m.denorm

	m.voiceScale = float32(m.n16 * c.VoiceVoltageRange / 2.)
	m.voiceDC = float32(m.n16 * (c.VoiceDCVoltage - m.vmin))

	if err := m.buildOpampRev(); err != nil {
		return nil, err
	}
	if err := m.buildVcrTables(); err != nil {
		return nil, err
	}
	if err := m.buildOpampTables(); err != nil {
		return nil, err
	}

	m.cutoffDAC = NewDAC(c.DACBits, true)

	return m, nil
}

// buildOpampRev constructs the inverse op-amp transfer table: capacitor
// charge (offset into the half-scale domain) to op-amp input voltage.
func (m *Model6581) buildOpampRev() error {
	points := m.constants.OpampVoltage

	// Convert the measured transfer to the 16-bit scale. vc = vx - vo
	// appears halved and offset in the solver, so bake that into the x
	// coordinate here.
	scaled := make([]Point, len(points))
	railMax := 0.0
	for i, p := range points {
		scaled[i].X = m.n16*(p.X-p.Y)/2. + (1 << 15)
		scaled[i].Y = m.n16 * (p.X - m.vmin)
		if scaled[i].Y > railMax {
			railMax = scaled[i].Y
		}
	}

	s := NewSpline(scaled)
	values := make([]float32, solverTableSize)
	for x := 0; x < solverTableSize; x++ {
		y, _ := s.Evaluate(float64(x))
		// Outside the measured charge range the op-amp sits at a rail;
		// extrapolating the end segments would leave the voltage scale.
		if y < 0 {
			y = 0
		} else if y > railMax {
			y = railMax
		}
		values[x] = float32(y)
	}

	if err := checkTableFinite("opampRev", values); err != nil {
		return err
	}
	m.opampRev = NewTable(values)
	return nil
}

// buildVcrTables constructs the VCR gate-voltage table and the EKV-model
// current term table.
func (m *Model6581) buildVcrTables() error {
	c := m.constants

	// Gate voltage, indexed by ((Vddt-Vw)^2 + (Vddt-vi)^2)/2 pre-divided
	// by the table width:
	//
	//	Vg = Vddt - sqrt(((Vddt - Vw)^2 + (Vddt - vi)^2)/2)
	nVddt := m.n16 * (m.vddt - m.vmin)
	kVg := make([]float32, solverTableSize)
	for i := 0; i < solverTableSize; i++ {
		vg := c.K * (nVddt - math.Sqrt(float64(i)*65536.))
		if vg < 0 {
			// The last entry lands a rounding error below zero.
			vg = 0
		}
		kVg[i] = float32(vg)
	}
	if err := checkTableFinite("vcrKVg", kVg); err != nil {
		return err
	}
	m.vcrKVg = NewTable(kVg)

	// EKV model:
	//
	//	Ids = Is * (if - ir)
	//	Is  = ((2 * u*Cox * Ut^2)/k) * W/L
	//	if  = ln^2(1 + e^((k*(Vg - Vt) - Vs)/(2*Ut)))
	//	ir  = ln^2(1 + e^((k*(Vg - Vt) - Vd)/(2*Ut)))
	//
	// Both terms share this table, indexed by kVg - Vx in the 16-bit
	// scale. Values are the current contribution for one clock at 1MHz.
	kVt := c.K * c.Vth
	is := (2. * c.UCox * c.Ut * c.Ut / c.K) * c.WLVcr
	nIs := m.n16 * 1.0e-6 / c.C * is

	ids := make([]float32, solverTableSize)
	for i := 0; i < solverTableSize; i++ {
		vgx := float64(i) / m.n16
		logTerm := math.Log1p(math.Exp((vgx - kVt) / (2. * c.Ut)))
		ids[i] = float32(nIs * logTerm * logTerm)
	}
	if err := checkTableFinite("vcrIdsTerm", ids); err != nil {
		return err
	}
	m.vcrIdsTerm = NewTable(ids)

	return nil
}

// buildOpampTables constructs the summer, mixer and gain tables by
// solving the op-amp operating point for every quantized input level.
//
// All "on" input transistors of a summer or mixer are modeled as one.
// This is not entirely accurate since each transistor sees a different
// input, but modeling them separately would square the table count.
func (m *Model6581) buildOpampTables() error {
	opamp := NewOpAmp(m.constants.OpampVoltage, m.vddt)

	// The filter summer operates at n ~ 1 and has 2-6 inputs.
	for i := range m.summers {
		idiv := 2 + i
		size := idiv << 16
		n := float64(idiv)
		opamp.Reset()

		values := make([]float32, size)
		for vi := 0; vi < size; vi++ {
			vin := m.vmin + float64(vi)/m.n16/float64(idiv)
			values[vi] = float32((opamp.Solve(n, vin) - m.vmin) * m.n16)
		}
		if err := checkTableRange(fmt.Sprintf("summer%d", idiv), values); err != nil {
			return err
		}
		m.summers[i] = NewTable(values)
	}

	// The audio mixer operates at n ~ 8/6 and has 0-7 inputs.
	for i := range m.mixers {
		idiv := i
		size := i << 16
		if i == 0 {
			idiv = 1
			size = 1
		}
		n := float64(i) * 8. / 6.
		opamp.Reset()

		values := make([]float32, size)
		for vi := 0; vi < size; vi++ {
			vin := m.vmin + float64(vi)/m.n16/float64(idiv)
			values[vi] = float32((opamp.Solve(n, vin) - m.vmin) * m.n16)
		}
		if err := checkTableRange(fmt.Sprintf("mixer%d", i), values); err != nil {
			return err
		}
		m.mixers[i] = NewTable(values)
	}

	// 4-bit "resistor" ladders in the resonance and volume paths give 16
	// gain configurations. From die photographs, gain ~ n8/8 (so the
	// volume ladder covers 0-15/8 and the resonance ladder 1/Q ~ ~res/8).
	for n8 := range m.gains {
		n := float64(n8) / 8.
		opamp.Reset()

		values := make([]float32, solverTableSize)
		for vi := 0; vi < solverTableSize; vi++ {
			vin := m.vmin + float64(vi)/m.n16
			values[vi] = float32((opamp.Solve(n, vin) - m.vmin) * m.n16)
		}
		if err := checkTableRange(fmt.Sprintf("gain%d", n8), values); err != nil {
			return err
		}
		m.gains[n8] = NewTable(values)
	}

	return nil
}

// BuildIntegrator constructs an integrator solver bound to this model's
// tables. Each filter pole needs its own instance; the tables stay shared.
func (m *Model6581) BuildIntegrator() *Integrator {
	c := m.constants

	// Vdd - Vth, normalized so translated voltages can be subtracted
	// directly: Vddt - x = (Vddt - t) - (x - t).
	nVddt := float32(m.n16 * (m.vddt - m.vmin))

	// Normalized snake current factor for one clock at 1MHz.
	nSnake := float32(m.denorm * (c.UCox / (2. * c.K) * c.WLSnake * 1.0e-6 / c.C))

	return NewIntegrator(m.vcrKVg, m.vcrIdsTerm, m.opampRev, nVddt, nSnake)
}

// CutoffDAC builds the cutoff DAC voltage table: one entry per FC
// register value, in the 16-bit voltage scale, ready for Integrator.SetVw.
// adjustment shifts the DAC zero point (0..1, 0.5 is the neutral curve)
// to model the spread between individual 6581 chips.
func (m *Model6581) CutoffDAC(adjustment float64) []float32 {
	c := m.constants
	dacZero := c.DACZero + (1. - adjustment)

	steps := 1 << c.DACBits
	out := make([]float32, steps)
	for i := 0; i < steps; i++ {
		fcd := m.cutoffDAC.Output(uint32(i))
		out[i] = float32(m.n16 * (dacZero + fcd*c.DACScale/float64(steps) - m.vmin))
	}
	return out
}

// VoiceScale returns the multiplier mapping a [-1, 1] voice sample to the
// 16-bit voltage scale.
func (m *Model6581) VoiceScale() float32 {
	return m.voiceScale
}

// VoiceDC returns the voice DC level in the 16-bit voltage scale.
func (m *Model6581) VoiceDC() float32 {
	return m.voiceDC
}
