package bmpio

import (
	"os"
	"testing"

	"github.com/inkframe/apvideo/bitmap"
)

func TestWriteReadBMPRoundTrip(t *testing.T) {
	b := bitmap.New(4, 3, 3)
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			p := b.At(x, y)
			p[0] = uint8(x * 10)
			p[1] = uint8(y * 20)
			p[2] = 255
		}
	}

	path := tempBMPFile(t)
	if err := WriteBMP(path, b); err != nil {
		t.Fatalf("WriteBMP: %v", err)
	}

	got, err := ReadBMP(path)
	if err != nil {
		t.Fatalf("ReadBMP: %v", err)
	}
	if got.Width != b.Width || got.Height != b.Height {
		t.Fatalf("dimensions = %dx%d, want %dx%d", got.Width, got.Height, b.Width, b.Height)
	}
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			want := b.At(x, y)
			have := got.At(x, y)
			if have[0] != want[0] || have[1] != want[1] || have[2] != want[2] {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, have, want)
			}
		}
	}
}

func TestWriteBMPRejectsWrongDepth(t *testing.T) {
	b := bitmap.New(2, 2, 4)
	if err := WriteBMP(tempBMPFile(t), b); err == nil {
		t.Fatal("expected error for non-3 depth bitmap")
	}
}

func TestReadBMPMissingFile(t *testing.T) {
	if _, err := ReadBMP("/nonexistent/path/does-not-exist.bmp"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func tempBMPFile(t *testing.T) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "bmpio-*.bmp")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	f.Close()
	return f.Name()
}
