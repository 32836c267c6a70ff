package sidfilter

// Point is a measured (x, y) sample of a transfer curve.
type Point struct {
	X, Y float64
}

type splineSegment struct {
	xMin, xMax float64
	a, b, c, d float64
}

// Spline interpolates a measured transfer curve with per-interval cubic
// polynomials and reports both value and first derivative. The derivative
// is needed by the op-amp Newton solver; plain interpolation packages do
// not expose it in this form. Slopes at interior knots are taken from the
// neighboring points, which keeps the curve well behaved on the flat
// op-amp saturation regions. Inputs outside the measured range are
// extrapolated with the first or last segment polynomial.
type Spline struct {
	segments []splineSegment
}

// NewSpline builds a spline over points, which must be sorted by strictly
// increasing X.
func NewSpline(points []Point) *Spline {
	n := len(points)
	segments := make([]splineSegment, 0, n-1)

	slope := func(i, j int) float64 {
		return (points[j].Y - points[i].Y) / (points[j].X - points[i].X)
	}

	for i := 0; i < n-1; i++ {
		// Knot slopes: central difference inside the curve, one-sided
		// at the ends.
		k1 := slope(i, i+1)
		if i > 0 {
			k1 = slope(i-1, i+1)
		}
		k2 := slope(i, i+1)
		if i < n-2 {
			k2 = slope(i, i+2)
		}

		seg := splineSegment{xMin: points[i].X, xMax: points[i+1].X}
		seg.a, seg.b, seg.c, seg.d = cubicCoefficients(
			points[i].X, points[i].Y, points[i+1].X, points[i+1].Y, k1, k2)
		segments = append(segments, seg)
	}

	return &Spline{segments: segments}
}

// cubicCoefficients solves for the absolute-x cubic through (x1,y1) and
// (x2,y2) with end slopes k1 and k2.
func cubicCoefficients(x1, y1, x2, y2, k1, k2 float64) (a, b, c, d float64) {
	dx := x2 - x1
	dy := y2 - y1

	a = ((k1 + k2) - 2.*dy/dx) / (dx * dx)
	b = ((k2-k1)/dx - 3.*(x1+x2)*a) / 2.
	c = k1 - (3.*x1*a+2.*b)*x1
	d = y1 - ((x1*a+b)*x1+c)*x1
	return a, b, c, d
}

// Evaluate returns the interpolated value and derivative at x.
func (s *Spline) Evaluate(x float64) (y, dy float64) {
	seg := &s.segments[s.find(x)]
	y = ((seg.a*x+seg.b)*x+seg.c)*x + seg.d
	dy = (3.*seg.a*x+2.*seg.b)*x + seg.c
	return y, dy
}

func (s *Spline) find(x float64) int {
	lo, hi := 0, len(s.segments)-1
	for lo < hi {
		mid := (lo + hi) / 2
		if x < s.segments[mid].xMin {
			hi = mid - 1
		} else if x >= s.segments[mid].xMax {
			lo = mid + 1
		} else {
			return mid
		}
	}
	if lo < 0 {
		return 0
	}
	if lo >= len(s.segments) {
		return len(s.segments) - 1
	}
	return lo
}
