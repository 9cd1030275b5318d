package bitmap

import "testing"

func TestNewAndAt(t *testing.T) {
	b := New(4, 3, 3)
	if len(b.Pix) != 4*3*3 {
		t.Fatalf("Pix length = %d, want %d", len(b.Pix), 4*3*3)
	}
	copy(b.At(2, 1), []uint8{10, 20, 30})
	got := b.At(2, 1)
	if got[0] != 10 || got[1] != 20 || got[2] != 30 {
		t.Fatalf("At(2,1) = %v, want [10 20 30]", got)
	}
	if b.At(0, 0)[0] != 0 {
		t.Fatalf("untouched pixel should stay zero")
	}
}

func TestOffset(t *testing.T) {
	b := New(5, 5, 3)
	if got := b.Offset(0, 0); got != 0 {
		t.Fatalf("Offset(0,0) = %d, want 0", got)
	}
	if got := b.Offset(2, 1); got != (1*5+2)*3 {
		t.Fatalf("Offset(2,1) = %d, want %d", got, (1*5+2)*3)
	}
}

func TestCopyFrom(t *testing.T) {
	src := New(2, 2, 3)
	copy(src.Pix, []uint8{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12})
	dst := New(2, 2, 3)
	if err := dst.CopyFrom(src); err != nil {
		t.Fatalf("CopyFrom: %v", err)
	}
	for i := range src.Pix {
		if dst.Pix[i] != src.Pix[i] {
			t.Fatalf("Pix[%d] = %d, want %d", i, dst.Pix[i], src.Pix[i])
		}
	}
}

func TestCopyFromMismatch(t *testing.T) {
	src := New(2, 2, 3)
	dst := New(3, 2, 3)
	if err := dst.CopyFrom(src); err == nil {
		t.Fatal("expected error for dimension mismatch")
	}
}

func TestPaddedExact(t *testing.T) {
	src := New(8, 8, 3)
	p := Padded(src, 8)
	if p.Width != 8 || p.Height != 8 {
		t.Fatalf("Padded(8x8, 8) = %dx%d, want 8x8", p.Width, p.Height)
	}
}

func TestPaddedRoundsUp(t *testing.T) {
	src := New(10, 5, 3)
	copy(src.At(9, 4), []uint8{1, 2, 3})
	p := Padded(src, 8)
	if p.Width != 16 || p.Height != 8 {
		t.Fatalf("Padded(10x5, 8) = %dx%d, want 16x8", p.Width, p.Height)
	}
	if got := p.At(9, 4); got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("corner pixel not copied: %v", got)
	}
	if got := p.At(15, 7); got[0] != 0 {
		t.Fatalf("margin pixel should be zero-filled, got %v", got)
	}
	if src.Width != 10 || src.Height != 5 {
		t.Fatalf("Padded must not mutate its source, got %dx%d", src.Width, src.Height)
	}
}
