// Package changedetect compares two padded RGB frames block by block
// (8x8 pixels) using squared-Euclidean colour distance, producing the
// changed-block bitmap that drives which macroblocks the encoder must
// re-code.
package changedetect

const (
	BlockWidth = 8
	Threshold  = 8
)

// Detect compares prev and cur (both padded W x H x 3 pixel buffers of
// identical dimensions) block by block and writes 0/1 into changed,
// which must have blocksW*blocksH entries. It returns the count of
// changed blocks.
func Detect(prev, cur []uint8, blocksW, blocksH, threshold int, changed []uint8) int {
	t2 := threshold * threshold
	scanline := blocksW * BlockWidth * 3
	count := 0

	for blockY := 0; blockY < blocksH; blockY++ {
		for blockX := 0; blockX < blocksW; blockX++ {
			base := blockY*BlockWidth*scanline + blockX*BlockWidth*3
			blockChanged := false

			for y := 0; y < BlockWidth && !blockChanged; y++ {
				idx := base + y*scanline
				for x := 0; x < BlockWidth; x++ {
					dR := int(cur[idx]) - int(prev[idx])
					dG := int(cur[idx+1]) - int(prev[idx+1])
					dB := int(cur[idx+2]) - int(prev[idx+2])
					idx += 3
					if dR*dR+dG*dG+dB*dB >= t2 {
						blockChanged = true
						break
					}
				}
			}

			i := blockY*blocksW + blockX
			if blockChanged {
				changed[i] = 1
				count++
			} else {
				changed[i] = 0
			}
		}
	}
	return count
}
