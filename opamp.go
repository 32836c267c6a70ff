package sidfilter

import "math"

const opampEpsilon = 1e-8

// OpAmp finds the operating point of the inverting summer/mixer op-amp
// against its measured transfer curve. The op-amp drives n identical
// input transistors and one feedback transistor, all in triode mode, so
// Kirchhoff's current law gives
//
//	(n+1)*(Vddt - vx)^2 - n*(Vddt - vi)^2 - (Vddt - vo)^2 = 0
//
// with vo tied to vx through the measured transfer curve. Solved with
// Newton-Raphson plus a shrinking root bracket; only used while building
// the summer, mixer and gain tables, never at audio rate.
type OpAmp struct {
	transfer   *Spline
	vddt       float64
	vmin, vmax float64

	// Last solution, kept as the start estimate for the next solve.
	// Table builds sweep vi monotonically, so this converges in a few
	// iterations.
	x float64
}

// NewOpAmp builds a solver for the transfer curve sampled by points
// (op-amp input voltage vs output voltage) and threshold-referenced
// supply vddt.
func NewOpAmp(points []Point, vddt float64) *OpAmp {
	return &OpAmp{
		transfer: NewSpline(points),
		vddt:     vddt,
		vmin:     points[0].X,
		vmax:     points[len(points)-1].X,
		x:        points[0].X,
	}
}

// Reset discards the cached start estimate. Call before sweeping a new
// table so solutions do not depend on the previous sweep's end state.
func (o *OpAmp) Reset() {
	o.x = o.vmin
}

// Solve returns the op-amp output voltage for n summed inputs at voltage vi.
func (o *OpAmp) Solve(n, vi float64) float64 {
	// f is decreasing in x: f(ak) > 0, f(bk) < 0.
	ak, bk := o.vmin, o.vmax

	a := n + 1.
	b := o.vddt
	bVi := b - vi
	c := n * (bVi * bVi)

	x := o.x
	for {
		xPrev := x

		vo, dvo := o.transfer.Evaluate(x)
		bVx := b - x
		bVo := b - vo

		f := a*(bVx*bVx) - c - (bVo * bVo)
		df := 2. * (bVo*dvo - a*bVx)

		x -= f / df
		if math.Abs(x-xPrev) < opampEpsilon {
			o.x = xPrev
			return vo
		}

		// Narrow the bracket and fall back to bisection if Newton
		// stepped outside it.
		if f < 0 {
			bk = xPrev
		} else {
			ak = xPrev
		}
		if x <= ak || x >= bk {
			x = (ak + bk) / 2.
		}
	}
}
