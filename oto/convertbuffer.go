package oto

import (
	"encoding/binary"
	"math"
)

// MonoToStereoFloat32LE writes the mono samples to dst as interleaved
// little-endian float32 stereo frames, clipping to [-1, 1]. It returns the
// number of bytes written; dst must hold 8 bytes per sample.
func MonoToStereoFloat32LE(src []float32, dst []byte) int {
	for i, v := range src {
		if v < -1 {
			v = -1
		} else if v > 1 {
			v = 1
		}
		bits := math.Float32bits(v)
		binary.LittleEndian.PutUint32(dst[8*i:], bits)
		binary.LittleEndian.PutUint32(dst[8*i+4:], bits)
	}
	return 8 * len(src)
}
