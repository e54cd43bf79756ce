package embedding

import (
	"encoding/binary"
	"math"
)

// Float32ToBytes converts a vector to a little-endian byte slice.
func Float32ToBytes(v Vector) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// BytesToFloat32 converts a little-endian byte slice back to a vector.
// It returns nil when the length is not a multiple of four.
func BytesToFloat32(b []byte) Vector {
	if len(b)%4 != 0 {
		return nil
	}
	v := make(Vector, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
