// Package byteio centralizes the little-endian field access used by the
// container header and frame records, the same role ByteIO plays in the
// reference implementation: one place wire integers get packed and
// unpacked, rather than scattering binary.LittleEndian calls everywhere.
package byteio

import (
	"encoding/binary"
	"math"
)

func PutUint16(b []byte, v uint16) { binary.LittleEndian.PutUint16(b, v) }
func Uint16(b []byte) uint16       { return binary.LittleEndian.Uint16(b) }

func PutUint32(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }
func Uint32(b []byte) uint32       { return binary.LittleEndian.Uint32(b) }

func PutInt32(b []byte, v int32) { binary.LittleEndian.PutUint32(b, uint32(v)) }
func Int32(b []byte) int32       { return int32(binary.LittleEndian.Uint32(b)) }

func PutFloat32(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
}

func Float32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}
