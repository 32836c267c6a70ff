// Command sidresponse measures the 6581 filter's frequency response at a
// set of cutoff register values and renders the curves to a PNG.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	sidfilter "github.com/user-none/go-chip-sid-filter"
)

const clockFreq = 985248 // PAL

func main() {
	out := flag.String("o", "response.png", "output PNG path")
	mode := flag.String("mode", "lp", "filter mode: lp, bp or hp")
	res := flag.Int("res", 0, "resonance (0-15)")
	points := flag.Int("points", 48, "measurement frequencies per curve")
	flag.Parse()

	modeBits := uint8(0)
	switch *mode {
	case "lp":
		modeBits = sidfilter.ModeLP
	case "bp":
		modeBits = sidfilter.ModeBP
	case "hp":
		modeBits = sidfilter.ModeHP
	default:
		log.Fatalf("unknown mode %q", *mode)
	}

	model, err := sidfilter.DefaultModel6581()
	if err != nil {
		log.Fatal(err)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("6581 filter response (%s, res %d)", *mode, *res)
	p.X.Label.Text = "frequency (Hz)"
	p.X.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{Prec: -1}
	p.Y.Label.Text = "gain (dB)"

	var lines []interface{}
	for _, fc := range []uint16{0x100, 0x300, 0x500, 0x700} {
		lines = append(lines,
			fmt.Sprintf("FC=0x%03x", fc),
			measure(model, fc, modeBits, uint8(*res), *points))
	}
	if err := plotutil.AddLines(p, lines...); err != nil {
		log.Fatal(err)
	}

	if err := p.Save(8*vg.Inch, 5*vg.Inch, *out); err != nil {
		log.Fatal(err)
	}
	log.Printf("wrote %s", *out)
}

// measure sweeps a sine through the filter at one cutoff setting and
// returns gain over frequency, normalized to the response at 20Hz.
func measure(model *sidfilter.Model6581, fc uint16, modeBits, res uint8, points int) plotter.XYs {
	xys := make(plotter.XYs, 0, points)

	var ref float64
	for i := 0; i < points; i++ {
		// Log-spaced 20Hz - 20kHz.
		freq := 20 * math.Pow(1000, float64(i)/float64(points-1))
		gain := amplitudeAt(model, fc, modeBits, res, freq)
		if i == 0 {
			ref = gain
		}
		xys = append(xys, plotter.XY{X: freq, Y: 20 * math.Log10(gain/ref)})
	}
	return xys
}

// amplitudeAt returns the steady-state output swing for a unit sine at
// freq Hz.
func amplitudeAt(model *sidfilter.Model6581, fc uint16, modeBits, res uint8, freq float64) float64 {
	f := sidfilter.NewFilter(model)
	f.WriteFCLo(uint8(fc & 0x07))
	f.WriteFCHi(uint8(fc >> 3))
	f.WriteResFilt(res<<4 | sidfilter.FiltVoice1)
	f.WriteModeVol(modeBits | 0x0f)

	w := 2 * math.Pi * freq / clockFreq

	// Settle for 50ms plus a few signal periods, then measure the swing
	// over at least two periods.
	settle := clockFreq/20 + int(3*clockFreq/int(freq+1))
	measureClocks := 2 * int(float64(clockFreq)/freq)
	if measureClocks < 4096 {
		measureClocks = 4096
	}

	var min, max float32
	clock := 0
	for ; clock < settle; clock++ {
		f.Clock(float32(math.Sin(w*float64(clock))), 0, 0, 0)
	}
	for i := 0; i < measureClocks; i++ {
		out := f.Clock(float32(math.Sin(w*float64(clock))), 0, 0, 0)
		clock++
		if i == 0 || out < min {
			min = out
		}
		if i == 0 || out > max {
			max = out
		}
	}
	return float64(max - min)
}
