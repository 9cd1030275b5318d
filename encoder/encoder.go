// Package encoder turns a sequence of bitmap.Bitmap frames into an AP
// video stream: per-frame palette quantization, changed-block tracking
// against a running reference frame, macroblock sub-palette selection,
// and RLE pixel packing, written through container.Writer.
package encoder

import (
	"errors"
	"fmt"
	"os"

	"github.com/inkframe/apvideo/bitmap"
	"github.com/inkframe/apvideo/changedetect"
	"github.com/inkframe/apvideo/container"
	"github.com/inkframe/apvideo/mediancut"
	"github.com/inkframe/apvideo/rle"
)

const (
	blockWidth          = 8
	masterblockWidth    = blockWidth * 2
	masterblockArea     = masterblockWidth * masterblockWidth
	halfMasterblockArea = masterblockArea / 2
	maxColorsInBlock    = 16
	maxColorsInImage    = 256

	maxKeyframeInterval  = 10.0
	minKeyframeInterval  = 2.0
	minChangeForKeyframe = 0.80
	blockChangeThreshold = 8

	defaultMedianCutDepth = 7
)

var (
	ErrEncoding    = errors.New("encoder: operation invalid while encoding")
	ErrNotEncoding = errors.New("encoder: no file has been opened")
	ErrBadFPS      = errors.New("encoder: fps must be positive")
	ErrBadImage    = errors.New("encoder: image size or depth mismatch")
)

// Encoder writes a sequence of put_image calls out as an AP video file.
// Method order: SetFile, SetOptions, PutImage (repeated), Close.
type Encoder struct {
	fileName string
	fps      float32
	depth    int

	encoding bool
	w        *container.Writer

	frameWidth, frameHeight int
	widthInBlocks           int
	heightInBlocks          int
	widthInMasterblocks     int
	heightInMasterblocks    int

	frameCount        uint32
	lastKeyframeFrame uint32
	haveKeyframe      bool

	// scratch holds the padded current frame; the caller's bitmap is
	// never mutated in place.
	scratch   *bitmap.Bitmap
	reference *bitmap.Bitmap

	changedBlocks []uint8

	framePalette []uint8
	payload      []byte

	arrayQuantizer *mediancut.ArrayQuantizer
	listQuantizer  *mediancut.ListQuantizer
	rleEncoder     *rle.Encoder

	// per-macroblock scratch, reused across macroblocks.
	mbFull     []uint8 // 256 RGB-interleaved = 768 bytes
	mbIndexed  []uint8 // 256 indices into framePalette
	mbSub      []uint8 // 256 indices into the sub-palette
	subPalette []uint8 // 16 RGB triples = 48 bytes, mirrors subIndices via framePalette
	subIndices []uint8 // 16 indices into framePalette; the bytes actually written to the payload
}

// NewEncoder constructs an encoder with default options (medianCutDepth
// 7, fps 1); the output file must be set before the first PutImage.
func NewEncoder() *Encoder {
	return &Encoder{
		depth:          defaultMedianCutDepth,
		fps:            1,
		arrayQuantizer: mediancut.NewArrayQuantizer(defaultMedianCutDepth),
		listQuantizer:  mediancut.NewListQuantizer(),
		rleEncoder:     rle.NewEncoder(),
		framePalette:   make([]uint8, maxColorsInImage*3),
		mbFull:         make([]uint8, masterblockArea*3),
		mbIndexed:      make([]uint8, masterblockArea),
		mbSub:          make([]uint8, masterblockArea),
		subPalette:     make([]uint8, maxColorsInBlock*3),
		subIndices:     make([]uint8, maxColorsInBlock),
	}
}

// SetFile binds the output path. Fails if a file is already being
// encoded.
func (e *Encoder) SetFile(path string) error {
	if e.encoding {
		return ErrEncoding
	}
	e.fileName = path
	return nil
}

// SetOptions sets the playback rate and the whole-frame quantizer's
// histogram depth, clamped to [6,8].
func (e *Encoder) SetOptions(fps float32, medianCutDepth int) error {
	if e.encoding {
		return ErrEncoding
	}
	if fps <= 0 {
		return ErrBadFPS
	}
	e.fps = fps
	if medianCutDepth < 6 {
		medianCutDepth = 6
	}
	if medianCutDepth > 8 {
		medianCutDepth = 8
	}
	if medianCutDepth != e.depth {
		e.arrayQuantizer = mediancut.NewArrayQuantizer(medianCutDepth)
		e.depth = medianCutDepth
	}
	return nil
}

// PutImage encodes img as the next frame, opening and writing the
// container header on the first call.
func (e *Encoder) PutImage(img *bitmap.Bitmap) error {
	if !e.encoding {
		if img.Width < 1 || img.Height < 1 {
			return fmt.Errorf("%w: %dx%d", ErrBadImage, img.Width, img.Height)
		}
		if err := e.begin(img.Width, img.Height); err != nil {
			return err
		}
	}
	if img.Width != e.frameWidth || img.Height != e.frameHeight || img.Depth != 3 {
		return ErrBadImage
	}
	return e.encodeFrame(img)
}

// Close finalizes the output file, back-patching the frame count,
// keyframe count, and keyframe index chain.
func (e *Encoder) Close() error {
	if !e.encoding {
		return ErrNotEncoding
	}
	e.encoding = false
	return e.w.Close()
}

func (e *Encoder) begin(width, height int) error {
	e.frameWidth = width
	e.frameHeight = height
	e.frameCount = 0
	e.haveKeyframe = false

	e.widthInBlocks = divCeil(width, blockWidth)
	e.heightInBlocks = divCeil(height, blockWidth)
	e.widthInMasterblocks = divCeil(width, masterblockWidth)
	e.heightInMasterblocks = divCeil(height, masterblockWidth)

	paddedW := e.widthInMasterblocks * masterblockWidth
	paddedH := e.heightInMasterblocks * masterblockWidth
	e.scratch = bitmap.New(paddedW, paddedH, 3)
	e.reference = bitmap.New(paddedW, paddedH, 3)

	e.changedBlocks = make([]uint8, e.widthInBlocks*e.heightInBlocks)
	// Worst case is close to 1/2 byte per pixel (RLE) plus 768+16*N
	// palette bytes; double the raw pixel count is comfortably above
	// that for any real frame.
	e.payload = make([]byte, width*height*2+4096)

	os.Remove(e.fileName)
	f, err := os.OpenFile(e.fileName, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("encoder: open %s: %w", e.fileName, err)
	}
	w, err := container.NewWriter(f, e.fps, uint16(width), uint16(height))
	if err != nil {
		f.Close()
		return err
	}
	e.w = w
	e.encoding = true
	return nil
}

func divCeil(n, d int) int {
	q := n / d
	if n%d != 0 {
		q++
	}
	return q
}

func (e *Encoder) encodeFrame(img *bitmap.Bitmap) error {
	if img.Width == e.scratch.Width && img.Height == e.scratch.Height {
		e.scratch.CopyFrom(img)
	} else {
		padded := bitmap.Padded(img, masterblockWidth)
		e.scratch.CopyFrom(padded)
	}

	deltaT := float32(e.frameCount-e.lastKeyframeFrame) / e.fps
	isKeyframe := !e.haveKeyframe || deltaT >= maxKeyframeInterval

	areaInBlocks := e.widthInBlocks * e.heightInBlocks
	numberOfChangingBlocks := 0
	if !isKeyframe {
		numberOfChangingBlocks = changedetect.Detect(e.reference.Pix, e.scratch.Pix,
			e.widthInBlocks, e.heightInBlocks, blockChangeThreshold, e.changedBlocks)
		ratio := float32(numberOfChangingBlocks) / float32(areaInBlocks)
		if ratio >= minChangeForKeyframe && deltaT >= minKeyframeInterval {
			isKeyframe = true
		}
	}

	if isKeyframe {
		for i := range e.changedBlocks {
			e.changedBlocks[i] = 1
		}
		e.reference.CopyFrom(e.scratch)
		e.haveKeyframe = true
		e.lastKeyframeFrame = e.frameCount
	} else {
		paintChangedRegions(e.scratch, e.reference, e.changedBlocks,
			e.widthInBlocks, e.heightInBlocks)
	}

	e.arrayQuantizer.CreatePalette(e.scratch.Pix, e.framePalette, maxColorsInImage)

	payloadLen := 0
	payloadLen += copy(e.payload[payloadLen:], e.framePalette)

	if !isKeyframe {
		payloadLen += packChangedBlocks(e.changedBlocks, e.payload[payloadLen:])
	}

	for my := 0; my < e.heightInMasterblocks; my++ {
		for mx := 0; mx < e.widthInMasterblocks; mx++ {
			if !e.hasChangingBlocks(mx, my) {
				continue
			}
			e.copyMacroblockFullColor(mx, my)
			e.applyFramePalette()
			e.buildSubPalette(mx, my)
			e.applySubPalette()
			e.zeroUnchangedBlocks(mx, my)

			payloadLen += copy(e.payload[payloadLen:], e.subIndices)
			payloadLen += e.rleEncoder.Encode(e.mbSub, e.payload, payloadLen)
		}
	}

	if err := e.w.WriteFrame(isKeyframe, e.payload[:payloadLen]); err != nil {
		return err
	}
	e.frameCount++
	return nil
}

// packChangedBlocks packs one bit per block (MSB-first) into dst and
// returns the number of bytes written.
func packChangedBlocks(changedBlocks []uint8, dst []byte) int {
	n := 0
	shift := 7
	value := byte(0)
	for _, v := range changedBlocks {
		value |= v << uint(shift)
		shift--
		if shift == -1 {
			dst[n] = value
			n++
			value = 0
			shift = 7
		}
	}
	if shift != 7 {
		dst[n] = value
		n++
	}
	return n
}

func paintChangedRegions(src, dst *bitmap.Bitmap, changedBlocks []uint8, blocksW, blocksH int) {
	scanline := blocksW * blockWidth * 3
	blockScanline := blockWidth * 3
	i := 0
	for blockY := 0; blockY < blocksH; blockY++ {
		for blockX := 0; blockX < blocksW; blockX++ {
			if changedBlocks[i] == 1 {
				base := blockY*blockWidth*scanline + blockX*blockWidth*3
				for y := 0; y < blockWidth; y++ {
					row := base + y*scanline
					copy(dst.Pix[row:row+blockScanline], src.Pix[row:row+blockScanline])
				}
			}
			i++
		}
	}
}

// hasChangingBlocks reports whether any of the masterblock (mx,my)'s
// four 8x8 blocks is marked changed.
func (e *Encoder) hasChangingBlocks(mx, my int) bool {
	startBlockX, startBlockY := mx<<1, my<<1
	for by := 0; by < 2; by++ {
		for bx := 0; bx < 2; bx++ {
			i := (startBlockY+by)*e.widthInBlocks + startBlockX + bx
			if e.changedBlocks[i] == 1 {
				return true
			}
		}
	}
	return false
}

// copyMacroblockFullColor copies the masterblock's 16x16 RGB pixels
// from e.scratch into e.mbFull.
func (e *Encoder) copyMacroblockFullColor(mx, my int) {
	xCorner, yCorner := mx*masterblockWidth, my*masterblockWidth
	src := e.scratch
	offset := (yCorner*src.Width + xCorner) * 3
	blockScanline := masterblockWidth * 3
	scanlineFill := src.Width*3 - blockScanline
	blockIndex := 0
	for y := 0; y < masterblockWidth; y++ {
		copy(e.mbFull[blockIndex:blockIndex+blockScanline], src.Pix[offset:offset+blockScanline])
		blockIndex += blockScanline
		offset += blockScanline + scanlineFill
	}
}

// applyFramePalette maps every pixel of e.mbFull to the nearest colour
// in e.framePalette, writing indices into e.mbIndexed.
func (e *Encoder) applyFramePalette() {
	for pixel := 0; pixel < masterblockArea; pixel++ {
		r := int(e.mbFull[pixel*3])
		g := int(e.mbFull[pixel*3+1])
		b := int(e.mbFull[pixel*3+2])
		e.mbIndexed[pixel] = uint8(nearestPaletteIndex(e.framePalette, r, g, b))
	}
}

func nearestPaletteIndex(palette []uint8, r, g, b int) int {
	shortestDistance := 1 << 30
	shortestIndex := 0
	for i := 0; i*3 < len(palette); i++ {
		pr := int(palette[i*3])
		pg := int(palette[i*3+1])
		pb := int(palette[i*3+2])
		dr, dg, db := pr-r, pg-g, pb-b
		distance := dr*dr + dg*dg + db*db
		if distance < shortestDistance {
			shortestDistance = distance
			shortestIndex = i
		}
	}
	return shortestIndex
}

// buildSubPalette selects a <=16-entry sub-palette (frame-palette
// indices, with matching RGB in e.subPalette) for the masterblock at
// (mx,my), counting occurrences only over blocks marked changed.
func (e *Encoder) buildSubPalette(mx, my int) {
	startBlockX, startBlockY := mx<<1, my<<1

	var colorsIndex [masterblockArea]uint8
	var colorsCount [masterblockArea]int
	colorsUsed := 0

	for by := 0; by < 2; by++ {
		for bx := 0; bx < 2; bx++ {
			i := (startBlockY+by)*e.widthInBlocks + startBlockX + bx
			if e.changedBlocks[i] != 1 {
				continue
			}
			base := by*halfMasterblockArea + bx*blockWidth
			for y := 0; y < blockWidth; y++ {
				row := base + y*masterblockWidth
				for x := 0; x < blockWidth; x++ {
					color := e.mbIndexed[row+x]
					found := false
					for j := 0; j < colorsUsed; j++ {
						if colorsIndex[j] == color {
							colorsCount[j]++
							found = true
							break
						}
					}
					if !found {
						colorsIndex[colorsUsed] = color
						colorsCount[colorsUsed] = 1
						colorsUsed++
					}
				}
			}
		}
	}

	if colorsUsed <= maxColorsInBlock {
		e.selectMostUsedColors(colorsIndex[:colorsUsed], colorsCount[:colorsUsed])
		return
	}
	e.medianCutSubPalette(mx, my)
}

// selectMostUsedColors fills e.subIndices/e.subPalette with colorsUsed
// entries (<=16) ordered by descending count, ties broken by
// first-seen, padding any remaining entries to zero.
func (e *Encoder) selectMostUsedColors(colorsIndex []uint8, colorsCount []int) {
	n := len(colorsIndex)
	remaining := append([]int(nil), colorsCount...)
	for i := 0; i < n; i++ {
		highestCount := -1
		highestIndex := 0
		for j := 0; j < n; j++ {
			if remaining[j] > highestCount {
				highestCount = remaining[j]
				highestIndex = j
			}
		}
		paletteIndex := colorsIndex[highestIndex]
		e.subIndices[i] = paletteIndex
		copy(e.subPalette[i*3:i*3+3], e.framePalette[int(paletteIndex)*3:int(paletteIndex)*3+3])
		remaining[highestIndex] = -1
	}
	for i := n; i < maxColorsInBlock; i++ {
		e.subIndices[i] = 0
		e.subPalette[i*3], e.subPalette[i*3+1], e.subPalette[i*3+2] = 0, 0, 0
	}
}

// medianCutSubPalette runs the list-variant quantizer over the
// masterblock's changed blocks (in full RGB) and maps the resulting 16
// centroids back onto the nearest frame-palette entries.
func (e *Encoder) medianCutSubPalette(mx, my int) {
	startBlockX, startBlockY := mx<<1, my<<1
	e.listQuantizer.ClearCounted()

	var blockFull [blockWidth * blockWidth * 3]uint8
	for by := 0; by < 2; by++ {
		for bx := 0; bx < 2; bx++ {
			i := (startBlockY+by)*e.widthInBlocks + startBlockX + bx
			if e.changedBlocks[i] != 1 {
				continue
			}
			base := by*halfMasterblockArea + bx*blockWidth
			fc := 0
			for y := 0; y < blockWidth; y++ {
				row := base + y*masterblockWidth
				for x := 0; x < blockWidth; x++ {
					colorIndex := int(e.mbIndexed[row+x]) * 3
					blockFull[fc] = e.framePalette[colorIndex]
					blockFull[fc+1] = e.framePalette[colorIndex+1]
					blockFull[fc+2] = e.framePalette[colorIndex+2]
					fc += 3
				}
			}
			e.listQuantizer.CountAndAddOccurrences(blockFull[:])
		}
	}

	var centroids [maxColorsInBlock * 3]uint8
	e.listQuantizer.PaletteOfSeveral(centroids[:], maxColorsInBlock)

	for i := 0; i < maxColorsInBlock; i++ {
		r, g, b := int(centroids[i*3]), int(centroids[i*3+1]), int(centroids[i*3+2])
		idx := nearestPaletteIndex(e.framePalette, r, g, b)
		e.subIndices[i] = uint8(idx)
		copy(e.subPalette[i*3:i*3+3], e.framePalette[idx*3:idx*3+3])
	}
}

// applySubPalette rewrites every pixel of e.mbIndexed (a frame-palette
// index) as the nearest sub-palette entry (0..15), writing into
// e.mbSub.
func (e *Encoder) applySubPalette() {
	for pixel := 0; pixel < masterblockArea; pixel++ {
		color := int(e.mbIndexed[pixel]) * 3
		r := int(e.framePalette[color])
		g := int(e.framePalette[color+1])
		b := int(e.framePalette[color+2])

		shortestDistance := 1 << 30
		shortestIndex := 0
		for j := 0; j < maxColorsInBlock; j++ {
			pr := int(e.subPalette[j*3])
			pg := int(e.subPalette[j*3+1])
			pb := int(e.subPalette[j*3+2])
			dr, dg, db := pr-r, pg-g, pb-b
			distance := dr*dr + dg*dg + db*db
			if distance < shortestDistance {
				shortestDistance = distance
				shortestIndex = j
			}
		}
		e.mbSub[pixel] = uint8(shortestIndex)
	}
}

// zeroUnchangedBlocks sets every index in e.mbSub belonging to an
// unchanged 8x8 block to zero, which RLE then codes as repeat runs of
// zeros.
func (e *Encoder) zeroUnchangedBlocks(mx, my int) {
	startBlockX, startBlockY := mx<<1, my<<1
	for by := 0; by < 2; by++ {
		for bx := 0; bx < 2; bx++ {
			i := (startBlockY+by)*e.widthInBlocks + startBlockX + bx
			if e.changedBlocks[i] != 0 {
				continue
			}
			blockIndex := by*halfMasterblockArea + bx*blockWidth
			for y := 0; y < blockWidth; y++ {
				for x := 0; x < blockWidth; x++ {
					e.mbSub[blockIndex+x] = 0
				}
				blockIndex += masterblockWidth
			}
		}
	}
}
