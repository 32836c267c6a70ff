package sidfilter

// DAC models the bit weights of an R-2R ladder DAC. The 6581 cutoff DAC
// is not ideal: its 2R/R resistor ratio is off (about 2.2) and the ladder
// is missing the LSB termination resistor, producing the "kinked",
// non-monotonic cutoff characteristic of the chip. The ideal variant
// (ratio 2.0, terminated) yields exact binary weights.
type DAC struct {
	weights []float64
	bits    uint
}

const dacRInfinity = 1e6

// NewDAC computes the bit weights of a bits-wide ladder. kinked selects
// the 6581 characteristic. Weights are normalized so the all-ones code
// sums to (1<<bits)-1.
func NewDAC(bits uint, kinked bool) *DAC {
	twoRdivR := 2.0
	terminated := true
	if kinked {
		twoRdivR = 2.2
		terminated = false
	}

	d := &DAC{
		weights: make([]float64, bits),
		bits:    bits,
	}

	for setBit := uint(0); setBit < bits; setBit++ {
		vn := 1.0 // normalized bit voltage
		r := 1.0
		twoR := twoRdivR * r

		// Ladder "tail" resistance below the set bit, by repeated
		// parallel substitution. A missing termination shows up as an
		// infinite tail.
		rn := dacRInfinity
		if terminated {
			rn = twoR
		}
		bit := uint(0)
		for ; bit < setBit; bit++ {
			if rn == dacRInfinity {
				rn = r + twoR
			} else {
				rn = r + twoR*rn/(twoR+rn)
			}
		}

		// Source transformation for the set bit's voltage.
		if rn == dacRInfinity {
			rn = twoR
		} else {
			rn = twoR * rn / (twoR + rn)
			vn *= rn / twoR
		}

		// Propagate towards the output by repeated source
		// transformation through the remaining rungs.
		for bit++; bit < bits; bit++ {
			rn += r
			i := vn / rn
			rn = twoR * rn / (twoR + rn)
			vn = rn * i
		}

		d.weights[setBit] = vn
	}

	// Normalize to integer-like full scale.
	sum := 0.0
	for _, w := range d.weights {
		sum += w
	}
	scale := float64(uint(1)<<bits-1) / sum
	for i := range d.weights {
		d.weights[i] *= scale
	}

	return d
}

// Output returns the DAC output level for code, in 0..(1<<bits)-1 scale.
func (d *DAC) Output(code uint32) float64 {
	v := 0.0
	for i := uint(0); i < d.bits; i++ {
		if code&(1<<i) != 0 {
			v += d.weights[i]
		}
	}
	return v
}

// Bits returns the DAC width.
func (d *DAC) Bits() uint {
	return d.bits
}
