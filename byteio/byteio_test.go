package byteio

import "testing"

func TestUint16RoundTrip(t *testing.T) {
	b := make([]byte, 2)
	PutUint16(b, 0xBEEF)
	if got := Uint16(b); got != 0xBEEF {
		t.Fatalf("Uint16 = %#x, want %#x", got, 0xBEEF)
	}
	if b[0] != 0xEF || b[1] != 0xBE {
		t.Fatalf("PutUint16 did not write little-endian: %v", b)
	}
}

func TestUint32RoundTrip(t *testing.T) {
	b := make([]byte, 4)
	PutUint32(b, 0xDEADBEEF)
	if got := Uint32(b); got != 0xDEADBEEF {
		t.Fatalf("Uint32 = %#x, want %#x", got, 0xDEADBEEF)
	}
}

func TestInt32RoundTripNegative(t *testing.T) {
	b := make([]byte, 4)
	PutInt32(b, -12345)
	if got := Int32(b); got != -12345 {
		t.Fatalf("Int32 = %d, want -12345", got)
	}
}

func TestFloat32RoundTrip(t *testing.T) {
	b := make([]byte, 4)
	PutFloat32(b, 29.97)
	if got := Float32(b); got != float32(29.97) {
		t.Fatalf("Float32 = %v, want 29.97", got)
	}
}
