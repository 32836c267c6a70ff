package sidfilter

// Sampler drives a Filter and an ExternalFilter at the chip clock and
// decimates the output to a host sample rate. Voice inputs are held
// constant across the clocks covered by one Clock call, which is
// accurate for hosts that update voices at sample granularity; hosts
// that need chip-clock voice resolution can drive Filter directly.
type Sampler struct {
	filter   *Filter
	external *ExternalFilter

	clocksPerSample float64
	clockCounter    float64

	// Gain applied to output samples (default 1.0)
	gain float32

	buffer    []float32
	bufferPos int
}

// NewSampler wires the given filter network to an external filter stage
// and an output buffer.
// clockFreq is the chip clock frequency (985248 Hz for PAL, 1022727 Hz
// for NTSC), sampleRate the host audio rate, bufferSize the number of
// samples per frame.
func NewSampler(filter *Filter, clockFreq int, sampleRate int, bufferSize int) *Sampler {
	return &Sampler{
		filter:          filter,
		external:        NewExternalFilter(float64(clockFreq)),
		clocksPerSample: float64(clockFreq) / float64(sampleRate),
		gain:            1.0,
		buffer:          make([]float32, bufferSize),
	}
}

// Filter returns the underlying filter network, for register writes.
func (s *Sampler) Filter() *Filter {
	return s.filter
}

// Run advances the chip by the given number of clocks with the voice
// and external inputs held, accumulating samples into the buffer from
// the current position. Multiple Run calls (with register writes in
// between) may share a frame. Returns the number of samples dropped due
// to buffer overflow.
func (s *Sampler) Run(clocks int, voice1, voice2, voice3, ext float32) int {
	dropped := 0
	for i := 0; i < clocks; i++ {
		out := s.external.Clock(s.filter.Clock(voice1, voice2, voice3, ext))
		s.clockCounter++
		if s.clockCounter >= s.clocksPerSample {
			s.clockCounter -= s.clocksPerSample
			if s.bufferPos < len(s.buffer) {
				sample := out * s.gain / 32768.0
				// Saturate like the 16-bit output stage.
				if sample > 1 {
					sample = 1
				} else if sample < -1 {
					sample = -1
				}
				s.buffer[s.bufferPos] = sample
				s.bufferPos++
			} else {
				dropped++
			}
		}
	}
	return dropped
}

// ResetBuffer resets the buffer position to 0. Called once at the start
// of each frame.
func (s *Sampler) ResetBuffer() {
	s.bufferPos = 0
}

// GetBuffer returns the sample buffer and the number of valid samples.
// The slice is reused across frames; copy it if you need to retain the
// data beyond the next Run call after ResetBuffer.
func (s *Sampler) GetBuffer() ([]float32, int) {
	return s.buffer, s.bufferPos
}

// SetGain sets the gain applied to output samples. Default is 1.0.
func (s *Sampler) SetGain(gain float32) {
	s.gain = gain
}

// GetGain returns the current gain value.
func (s *Sampler) GetGain() float32 {
	return s.gain
}

// ClocksPerSample returns the number of chip clocks per output sample
// (clockFreq / sampleRate).
func (s *Sampler) ClocksPerSample() float64 {
	return s.clocksPerSample
}

// Reset restores power-on state of the filter network and the external
// filter. Gain is not reset since it is host-side audio config.
func (s *Sampler) Reset() {
	s.filter.Reset()
	s.external.Reset()
	s.clockCounter = 0
	s.bufferPos = 0
}
