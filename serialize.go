package sidfilter

import (
	"encoding/binary"
	"errors"
	"math"
)

// Fixed serialization sizes in bytes. All fields are little-endian at
// fixed offsets; float32 values are stored as their IEEE 754 bit
// patterns so restored state is bit-identical.
const (
	// FilterSerializeSize covers the register state, the network node
	// voltages and both integrator capacitor states.
	FilterSerializeSize = 34

	// ExternalFilterSerializeSize covers the two RC capacitor voltages.
	ExternalFilterSerializeSize = 8

	// SamplerSerializeSize covers the filter, the external filter and
	// the decimation phase. Buffer contents and position are
	// frame-transient and not saved.
	SamplerSerializeSize = FilterSerializeSize + ExternalFilterSerializeSize + 8
)

// boolByte converts a bool to a uint8 (0 or 1).
func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

func putFloat32(data []byte, v float32) {
	binary.LittleEndian.PutUint32(data, math.Float32bits(v))
}

func getFloat32(data []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(data))
}

// Serialize writes the filter state into data, which must be at least
// FilterSerializeSize bytes. The cutoff curve adjustment is host-side
// config and is not part of the state.
func (f *Filter) Serialize(data []byte) error {
	if len(data) < FilterSerializeSize {
		return errors.New("sidfilter: filter serialize buffer too small")
	}

	binary.LittleEndian.PutUint16(data[0:2], f.fc)
	data[2] = f.res
	data[3] = f.filt
	data[4] = f.modeVol
	data[5] = boolByte(f.enabled)
	putFloat32(data[6:10], f.vhp)
	putFloat32(data[10:14], f.vbp)
	putFloat32(data[14:18], f.vlp)
	putFloat32(data[18:22], f.hpIntegrator.vx)
	putFloat32(data[22:26], f.hpIntegrator.vc)
	putFloat32(data[26:30], f.bpIntegrator.vx)
	putFloat32(data[30:34], f.bpIntegrator.vc)

	return nil
}

// Deserialize restores filter state from data. Derived state (stage
// selections, integrator cutoff bias) is recomputed from the restored
// registers.
func (f *Filter) Deserialize(data []byte) error {
	if len(data) < FilterSerializeSize {
		return errors.New("sidfilter: filter deserialize buffer too small")
	}

	f.fc = binary.LittleEndian.Uint16(data[0:2]) & 0x7ff
	f.res = data[2] & 0x0f
	f.filt = data[3] & 0x0f
	f.modeVol = data[4]
	f.voice3Off = f.modeVol&Mode3Off != 0
	f.enabled = data[5] != 0
	f.vhp = getFloat32(data[6:10])
	f.vbp = getFloat32(data[10:14])
	f.vlp = getFloat32(data[14:18])
	f.hpIntegrator.vx = getFloat32(data[18:22])
	f.hpIntegrator.vc = getFloat32(data[22:26])
	f.bpIntegrator.vx = getFloat32(data[26:30])
	f.bpIntegrator.vc = getFloat32(data[30:34])

	f.updateCutoff()
	f.updateMixing()

	return nil
}

// Serialize writes the external filter state into data, which must be
// at least ExternalFilterSerializeSize bytes.
func (f *ExternalFilter) Serialize(data []byte) error {
	if len(data) < ExternalFilterSerializeSize {
		return errors.New("sidfilter: external filter serialize buffer too small")
	}

	putFloat32(data[0:4], f.vlp)
	putFloat32(data[4:8], f.vhp)

	return nil
}

// Deserialize restores external filter state from data. The clock
// frequency is host-side config and is preserved.
func (f *ExternalFilter) Deserialize(data []byte) error {
	if len(data) < ExternalFilterSerializeSize {
		return errors.New("sidfilter: external filter deserialize buffer too small")
	}

	f.vlp = getFloat32(data[0:4])
	f.vhp = getFloat32(data[4:8])

	return nil
}

// Serialize writes the sampler state into data, which must be at least
// SamplerSerializeSize bytes.
func (s *Sampler) Serialize(data []byte) error {
	if len(data) < SamplerSerializeSize {
		return errors.New("sidfilter: sampler serialize buffer too small")
	}

	offset := 0
	if err := s.filter.Serialize(data[offset:]); err != nil {
		return err
	}
	offset += FilterSerializeSize

	if err := s.external.Serialize(data[offset:]); err != nil {
		return err
	}
	offset += ExternalFilterSerializeSize

	binary.LittleEndian.PutUint64(data[offset:offset+8], math.Float64bits(s.clockCounter))

	return nil
}

// Deserialize restores sampler state from data. Gain, sample rate and
// buffer size are host-side audio config and are preserved; the buffer
// position is reset.
func (s *Sampler) Deserialize(data []byte) error {
	if len(data) < SamplerSerializeSize {
		return errors.New("sidfilter: sampler deserialize buffer too small")
	}

	offset := 0
	if err := s.filter.Deserialize(data[offset:]); err != nil {
		return err
	}
	offset += FilterSerializeSize

	if err := s.external.Deserialize(data[offset:]); err != nil {
		return err
	}
	offset += ExternalFilterSerializeSize

	s.clockCounter = math.Float64frombits(binary.LittleEndian.Uint64(data[offset : offset+8]))
	s.bufferPos = 0

	return nil
}
