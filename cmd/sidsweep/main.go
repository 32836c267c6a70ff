// Command sidsweep plays a sawtooth voice through the 6581 filter while
// sweeping the cutoff register, either to the default audio device or to
// a raw little-endian int16 PCM file.
package main

import (
	"bytes"
	"flag"
	"log"
	"os"
	"time"

	"github.com/ebitengine/oto/v3"

	sidfilter "github.com/user-none/go-chip-sid-filter"
)

const (
	clockFreq  = 985248 // PAL
	sampleRate = 48000
)

func main() {
	seconds := flag.Float64("seconds", 8, "sweep duration")
	freq := flag.Float64("freq", 110, "sawtooth frequency in Hz")
	res := flag.Int("res", 12, "resonance (0-15)")
	mode := flag.String("mode", "lp", "filter mode: lp, bp or hp")
	curve := flag.Float64("curve", 0.5, "filter curve adjustment (0-1)")
	out := flag.String("out", "", "write raw s16le PCM to file instead of playing")
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

	f := sidfilter.NewFilter(model)
	f.SetFilterCurve(*curve)
	f.WriteResFilt(uint8(*res&0x0f)<<4 | sidfilter.FiltVoice1)
	f.WriteModeVol(modeBits | 0x0f)

	s := sidfilter.NewSampler(f, clockFreq, sampleRate, 8192)

	pcm := render(f, s, *seconds, *freq)

	if *out != "" {
		if err := os.WriteFile(*out, pcm, 0644); err != nil {
			log.Fatal(err)
		}
		log.Printf("wrote %d bytes to %s", len(pcm), *out)
		return
	}

	if err := play(pcm); err != nil {
		log.Fatal(err)
	}
}

// render produces the full sweep as little-endian int16 PCM. The cutoff
// register ramps up and back down once over the duration.
func render(f *sidfilter.Filter, s *sidfilter.Sampler, seconds, freq float64) []byte {
	totalClocks := int(seconds * clockFreq)
	clocksPerPeriod := float64(clockFreq) / freq

	var pcm bytes.Buffer
	var phase float64

	// Update the voice and cutoff every chunk; 32 clocks keeps the
	// sawtooth edges well under a sample apart.
	const chunk = 32
	for clock := 0; clock < totalClocks; clock += chunk {
		// Triangle-shaped cutoff ramp over the whole run.
		pos := 2 * float64(clock) / float64(totalClocks)
		if pos > 1 {
			pos = 2 - pos
		}
		fc := uint16(pos * 0x7ff)
		f.WriteFCLo(uint8(fc & 0x07))
		f.WriteFCHi(uint8(fc >> 3))

		phase += chunk / clocksPerPeriod
		phase -= float64(int(phase))
		saw := float32(2*phase - 1)

		s.Run(chunk, saw, 0, 0, 0)
		buf, n := s.GetBuffer()
		for i := 0; i < n; i++ {
			v := int16(buf[i] * 32767)
			pcm.WriteByte(byte(v))
			pcm.WriteByte(byte(v >> 8))
		}
		s.ResetBuffer()
	}

	return pcm.Bytes()
}

func play(pcm []byte) error {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   50 * time.Millisecond,
	}
	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return err
	}
	<-readyChan

	player := ctx.NewPlayer(bytes.NewReader(pcm))
	player.Play()
	for player.IsPlaying() {
		time.Sleep(50 * time.Millisecond)
	}
	return player.Close()
}
