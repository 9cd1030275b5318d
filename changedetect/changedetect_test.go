package changedetect

import "testing"

func makeFrame(blocksW, blocksH int, fill uint8) []uint8 {
	w := blocksW * BlockWidth
	h := blocksH * BlockWidth
	buf := make([]uint8, w*h*3)
	for i := range buf {
		buf[i] = fill
	}
	return buf
}

func TestDetectNoChange(t *testing.T) {
	blocksW, blocksH := 2, 2
	prev := makeFrame(blocksW, blocksH, 100)
	cur := makeFrame(blocksW, blocksH, 100)
	changed := make([]uint8, blocksW*blocksH)
	if n := Detect(prev, cur, blocksW, blocksH, Threshold, changed); n != 0 {
		t.Fatalf("Detect identical frames = %d changed blocks, want 0", n)
	}
	for i, v := range changed {
		if v != 0 {
			t.Fatalf("changed[%d] = %d, want 0", i, v)
		}
	}
}

func TestDetectOneBlockChanged(t *testing.T) {
	blocksW, blocksH := 2, 2
	prev := makeFrame(blocksW, blocksH, 100)
	cur := makeFrame(blocksW, blocksH, 100)

	scanline := blocksW * BlockWidth * 3
	base := 1*BlockWidth*scanline + 1*BlockWidth*3
	cur[base] = 250

	changed := make([]uint8, blocksW*blocksH)
	n := Detect(prev, cur, blocksW, blocksH, Threshold, changed)
	if n != 1 {
		t.Fatalf("Detect = %d changed blocks, want 1", n)
	}
	if changed[1*blocksW+1] != 1 {
		t.Fatalf("expected block (1,1) marked changed, got %v", changed)
	}
}

func TestDetectBelowThresholdIsUnchanged(t *testing.T) {
	blocksW, blocksH := 1, 1
	prev := makeFrame(blocksW, blocksH, 100)
	cur := makeFrame(blocksW, blocksH, 100)
	cur[0] = 103 // squared distance 9, threshold^2 = 64

	changed := make([]uint8, blocksW*blocksH)
	if n := Detect(prev, cur, blocksW, blocksH, Threshold, changed); n != 0 {
		t.Fatalf("Detect below-threshold diff = %d changed blocks, want 0", n)
	}
}

func TestDetectAtThresholdIsChanged(t *testing.T) {
	blocksW, blocksH := 1, 1
	prev := makeFrame(blocksW, blocksH, 100)
	cur := makeFrame(blocksW, blocksH, 100)
	cur[0] = 108 // squared distance 64, equals Threshold^2

	changed := make([]uint8, blocksW*blocksH)
	if n := Detect(prev, cur, blocksW, blocksH, Threshold, changed); n != 1 {
		t.Fatalf("Detect at-threshold diff = %d changed blocks, want 1", n)
	}
}
