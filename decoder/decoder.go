// Package decoder reads an AP video stream back into bitmap.Bitmap or
// packed-RGB frames, sequentially, painting only the blocks each frame
// record marks changed. Like the reference decoder, sequential delta
// decoding relies on the caller reusing the same output buffer across
// calls: unchanged regions are simply never touched.
package decoder

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/inkframe/apvideo/bitmap"
	"github.com/inkframe/apvideo/container"
	"github.com/inkframe/apvideo/rle"
)

const (
	blockWidth          = 8
	masterblockWidth    = blockWidth * 2
	masterblockArea     = masterblockWidth * masterblockWidth
	halfMasterblockArea = masterblockArea / 2
	maxColorsInBlock    = 16
	framePaletteLength  = 768
)

var (
	ErrNotOpen         = errors.New("decoder: no file is open")
	ErrAlreadyOpen     = errors.New("decoder: already decoding a file")
	ErrEndOfStream     = errors.New("decoder: no more frames")
	ErrWrongBuffer     = errors.New("decoder: output buffer has the wrong size or depth")
	ErrUnsupportedSeek = errors.New("decoder: only seeking to frame 0 is supported")
)

// Decoder sequentially reads frame records from an AP file.
type Decoder struct {
	f   *os.File
	hdr container.Header
	cr  *container.Reader

	open      bool
	nextFrame uint32

	widthInBlocks        int
	heightInBlocks       int
	widthInMasterblocks  int
	heightInMasterblocks int

	changedBlocks []uint8
	framePalette  []uint8

	// indexed holds one decoded macroblock's 256 frame-palette indices
	// (after mapping through the sub-palette), reused across calls.
	indexed []uint8

	rleDecoder *rle.Decoder
}

func New() *Decoder {
	return &Decoder{
		framePalette: make([]uint8, framePaletteLength),
		indexed:      make([]uint8, masterblockArea),
		rleDecoder:   rle.NewDecoder(),
	}
}

// Open reads the file header and prepares the decoder for sequential
// decoding, starting at frame 0.
func (d *Decoder) Open(path string) error {
	if d.open {
		return ErrAlreadyOpen
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("decoder: open %s: %w", path, err)
	}
	hdr, err := container.ReadHeader(f)
	if err != nil {
		f.Close()
		return err
	}
	d.f = f
	d.hdr = hdr
	d.cr = container.NewReader(f)
	d.setFrameSize(int(hdr.Width), int(hdr.Height))
	d.open = true
	d.nextFrame = 0
	return nil
}

func (d *Decoder) setFrameSize(width, height int) {
	d.widthInBlocks = divCeil(width, blockWidth)
	d.heightInBlocks = divCeil(height, blockWidth)
	d.widthInMasterblocks = divCeil(width, masterblockWidth)
	d.heightInMasterblocks = divCeil(height, masterblockWidth)
	d.changedBlocks = make([]uint8, d.widthInBlocks*d.heightInBlocks)
}

func divCeil(n, dv int) int {
	q := n / dv
	if n%dv != 0 {
		q++
	}
	return q
}

// FPS returns the video's playback rate.
func (d *Decoder) FPS() float32 { return d.hdr.FPS }

// FrameCount returns the total number of frames in the stream.
func (d *Decoder) FrameCount() int { return int(d.hdr.FrameCount) }

// FrameWidth and FrameHeight return the logical (unpadded) frame size.
func (d *Decoder) FrameWidth() int  { return int(d.hdr.Width) }
func (d *Decoder) FrameHeight() int { return int(d.hdr.Height) }

// BufferWidth and BufferHeight return the padded W'xH' output buffer
// dimensions callers must allocate.
func (d *Decoder) BufferWidth() int  { return d.widthInMasterblocks * masterblockWidth }
func (d *Decoder) BufferHeight() int { return d.heightInMasterblocks * masterblockWidth }

// Seek repositions the stream to the given frame index. Only 0 is
// supported, matching the reference implementation's own limitation.
func (d *Decoder) Seek(frameIndex int) error {
	if !d.open {
		return ErrNotOpen
	}
	if frameIndex != 0 {
		return ErrUnsupportedSeek
	}
	if _, err := d.f.Seek(container.HeaderSize, io.SeekStart); err != nil {
		return fmt.Errorf("decoder: seek: %w", err)
	}
	d.nextFrame = 0
	return nil
}

// Close releases the underlying file.
func (d *Decoder) Close() error {
	if !d.open {
		return ErrNotOpen
	}
	d.open = false
	return d.f.Close()
}

// GetFrame decodes the next frame into out, a BufferWidth x BufferHeight
// x 3 bitmap reused by the caller across calls.
func (d *Decoder) GetFrame(out *bitmap.Bitmap) error {
	if !d.open {
		return ErrNotOpen
	}
	if out.Width != d.BufferWidth() || out.Height != d.BufferHeight() || out.Depth != 3 {
		return ErrWrongBuffer
	}
	if d.nextFrame >= d.hdr.FrameCount {
		return ErrEndOfStream
	}
	return d.decodeFrame(blitToBitmap{out})
}

// GetFrameRGB decodes the next frame into out, a BufferWidth*BufferHeight
// array of packed 0xRRGGBB values reused by the caller across calls.
func (d *Decoder) GetFrameRGB(out []uint32) error {
	if !d.open {
		return ErrNotOpen
	}
	if len(out) != d.BufferWidth()*d.BufferHeight() {
		return ErrWrongBuffer
	}
	if d.nextFrame >= d.hdr.FrameCount {
		return ErrEndOfStream
	}
	return d.decodeFrame(blitToPacked{out, d.BufferWidth()})
}

// blitter paints the changed quarters (8x8 blocks) of one already
// palette-mapped 16x16 masterblock into the caller's output surface.
// changingQuarters is indexed [blockY*2+blockX]; a keyframe passes all
// four true.
type blitter interface {
	blitMasterblock(palette, indexed []uint8, changingQuarters [4]bool, xCorner, yCorner int)
}

type blitToBitmap struct{ out *bitmap.Bitmap }

func (b blitToBitmap) blitMasterblock(palette, indexed []uint8, changingQuarters [4]bool, xCorner, yCorner int) {
	scanline := b.out.Width * 3
	for by := 0; by < 2; by++ {
		for bx := 0; bx < 2; bx++ {
			if !changingQuarters[by*2+bx] {
				continue
			}
			blockIndex := by*halfMasterblockArea + bx*blockWidth
			offset := ((yCorner+by*blockWidth)*b.out.Width + xCorner + bx*blockWidth) * 3
			for y := 0; y < blockWidth; y++ {
				pix := offset
				bi := blockIndex
				for x := 0; x < blockWidth; x++ {
					idx := int(indexed[bi]) * 3
					b.out.Pix[pix] = palette[idx]
					b.out.Pix[pix+1] = palette[idx+1]
					b.out.Pix[pix+2] = palette[idx+2]
					pix += 3
					bi++
				}
				offset += scanline
				blockIndex += masterblockWidth
			}
		}
	}
}

type blitToPacked struct {
	out         []uint32
	bufferWidth int
}

func (b blitToPacked) blitMasterblock(palette, indexed []uint8, changingQuarters [4]bool, xCorner, yCorner int) {
	for by := 0; by < 2; by++ {
		for bx := 0; bx < 2; bx++ {
			if !changingQuarters[by*2+bx] {
				continue
			}
			blockIndex := by*halfMasterblockArea + bx*blockWidth
			offset := (yCorner+by*blockWidth)*b.bufferWidth + xCorner + bx*blockWidth
			for y := 0; y < blockWidth; y++ {
				pix := offset
				bi := blockIndex
				for x := 0; x < blockWidth; x++ {
					idx := int(indexed[bi]) * 3
					r, g, bl := uint32(palette[idx]), uint32(palette[idx+1]), uint32(palette[idx+2])
					b.out[pix] = (r << 16) | (g << 8) | bl
					pix++
					bi++
				}
				offset += b.bufferWidth
				blockIndex += masterblockWidth
			}
		}
	}
}

// decodeFrame reads and decompresses the next frame record and paints
// every changed masterblock through bl.
func (d *Decoder) decodeFrame(bl blitter) error {
	rec, err := d.cr.ReadFrame()
	if err != nil {
		if err == io.EOF {
			return ErrEndOfStream
		}
		return err
	}
	d.nextFrame++

	pos := 0
	pos += copy(d.framePalette, rec.Payload[pos:pos+framePaletteLength])

	if rec.IsKeyframe {
		for i := range d.changedBlocks {
			d.changedBlocks[i] = 1
		}
	} else {
		pos += unpackChangedBlocks(rec.Payload[pos:], d.changedBlocks)
	}

	for my := 0; my < d.heightInMasterblocks; my++ {
		for mx := 0; mx < d.widthInMasterblocks; mx++ {
			changing := d.changingQuarters(mx, my)
			if changing == ([4]bool{}) {
				continue
			}

			var blockPalette [maxColorsInBlock]uint8
			n := copy(blockPalette[:], rec.Payload[pos:pos+maxColorsInBlock])
			pos += n

			consumed, err := d.rleDecoder.Decode(rec.Payload, pos, d.indexed)
			if err != nil {
				return err
			}
			pos += consumed

			// The RLE stream holds sub-palette indices (0..15); map
			// them through blockPalette to frame-palette indices
			// before painting.
			for i := range d.indexed {
				d.indexed[i] = blockPalette[d.indexed[i]]
			}

			bl.blitMasterblock(d.framePalette, d.indexed, changing, mx*masterblockWidth, my*masterblockWidth)
		}
	}
	return nil
}

// changingQuarters reports, for the masterblock at (mx,my), which of
// its four 8x8 blocks (indexed [blockY*2+blockX]) are marked changed.
func (d *Decoder) changingQuarters(mx, my int) [4]bool {
	startBlockX, startBlockY := mx<<1, my<<1
	var out [4]bool
	for by := 0; by < 2; by++ {
		for bx := 0; bx < 2; bx++ {
			i := (startBlockY+by)*d.widthInBlocks + startBlockX + bx
			out[by*2+bx] = d.changedBlocks[i] == 1
		}
	}
	return out
}

// unpackChangedBlocks expands a big-endian-per-byte bitmap (MSB = first
// block) into changedBlocks, returning the number of bytes consumed.
func unpackChangedBlocks(src []byte, changedBlocks []uint8) int {
	n := 0
	mask := byte(0x80)
	value := src[0]
	n++
	for i := range changedBlocks {
		if value&mask != 0 {
			changedBlocks[i] = 1
		} else {
			changedBlocks[i] = 0
		}
		mask >>= 1
		if mask == 0 {
			mask = 0x80
			if i+1 < len(changedBlocks) {
				value = src[n]
				n++
			}
		}
	}
	return n
}
