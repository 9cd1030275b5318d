// Command apvideo encodes, decodes, and plays AP video files.
package main

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/inkframe/apvideo/bitmap"
	"github.com/inkframe/apvideo/bmpio"
	"github.com/inkframe/apvideo/decoder"
	"github.com/inkframe/apvideo/encoder"
)

const usage = `apvideo - the video codec-player.

Usage:
apvideo c animation.ap N.n image0000.bmp
	Creates a new animation file from a sequence of image files. N.n is
	the frame rate of the animation. 0000 indicates the number of
	leading zeros in the image file names.

apvideo x animation.ap image0000.bmp [A [B]]
	Extracts a sequence of images from an existing animation file. 0000
	indicates the number of leading zeros in the image file names. If A
	or A and B are specified, A is the number of the first frame to be
	extracted and B is the last one.

apvideo animation.ap
	Plays an animation file, reporting progress on stderr.
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		fmt.Print(usage)
		return nil
	}

	switch {
	case args[0] == "c" && len(args) == 4:
		fps, err := strconv.ParseFloat(args[2], 32)
		if err != nil || fps <= 0 {
			return fmt.Errorf("apvideo: invalid frame rate %q: must be a positive number", args[2])
		}
		tmpl, err := parseFileNameTemplate(args[3])
		if err != nil {
			return err
		}
		return createAnimation(args[1], float32(fps), tmpl)

	case args[0] == "x" && len(args) >= 3 && len(args) <= 5:
		tmpl, err := parseFileNameTemplate(args[2])
		if err != nil {
			return err
		}
		firstFrame, lastFrame := 0, -1
		if len(args) >= 4 {
			firstFrame, err = strconv.Atoi(args[3])
			if err != nil || firstFrame < 0 {
				return fmt.Errorf("apvideo: invalid first frame %q", args[3])
			}
		}
		if len(args) == 5 {
			lastFrame, err = strconv.Atoi(args[4])
			if err != nil || lastFrame < firstFrame {
				return fmt.Errorf("apvideo: invalid last frame %q", args[4])
			}
		}
		return extractAnimation(args[1], firstFrame, lastFrame, tmpl)

	case len(args) == 1:
		return playAnimation(args[0])

	default:
		fmt.Print(usage)
		return nil
	}
}

// fileNameTemplate splits a path like "frames/image0000.bmp" into a
// prefix, a run of zeros (whose length sets the minimum digit width),
// and a postfix, so sequential frame file names can be generated.
type fileNameTemplate struct {
	prefix, postfix string
	zeros           int
}

var templatePattern = regexp.MustCompile(`.*[^0]+0+[^0]+`)

func parseFileNameTemplate(param string) (fileNameTemplate, error) {
	if !templatePattern.MatchString(param) {
		return fileNameTemplate{}, fmt.Errorf("apvideo: %q is not a valid numbered file name template (need a run of zeros, e.g. image0000.bmp)", param)
	}

	pos := 0
	var t fileNameTemplate
	if i := strings.LastIndexAny(param[:len(param)], "/\\"); i != -1 {
		t.prefix = param[:i+1]
		pos = i + 1
	}
	for pos < len(param) && param[pos] != '0' {
		t.prefix += string(param[pos])
		pos++
	}
	for pos < len(param) && param[pos] == '0' {
		t.zeros++
		pos++
	}
	for pos < len(param) && param[pos] != '0' {
		t.postfix += string(param[pos])
		pos++
	}
	return t, nil
}

func (t fileNameTemplate) name(n int) string {
	digits := strconv.Itoa(n)
	zeroCount := t.zeros - len(digits)
	if zeroCount < 0 {
		zeroCount = 0
	}
	return t.prefix + strings.Repeat("0", zeroCount) + digits + t.postfix
}

func createAnimation(path string, fps float32, tmpl fileNameTemplate) error {
	enc := encoder.NewEncoder()
	if err := enc.SetOptions(fps, 7); err != nil {
		return fmt.Errorf("apvideo: %w", err)
	}
	if err := enc.SetFile(path); err != nil {
		return fmt.Errorf("apvideo: %w", err)
	}

	fmt.Fprintln(os.Stderr, "Creating new video file:", path)
	for i := 0; ; i++ {
		name := tmpl.name(i)
		if _, err := os.Stat(name); err != nil {
			fmt.Fprintln(os.Stderr, name, "does not exist. End.")
			break
		}
		img, err := bmpio.ReadBMP(name)
		if err != nil {
			return fmt.Errorf("apvideo: reading %s: %w", name, err)
		}
		fmt.Fprintln(os.Stderr, name)
		if err := enc.PutImage(img); err != nil {
			return fmt.Errorf("apvideo: encoding %s: %w", name, err)
		}
	}
	return enc.Close()
}

func extractAnimation(path string, firstFrame, lastFrame int, tmpl fileNameTemplate) error {
	fmt.Fprintln(os.Stderr, "Extracting images from video file:", path)

	dec := decoder.New()
	if err := dec.Open(path); err != nil {
		return fmt.Errorf("apvideo: %w", err)
	}
	defer dec.Close()

	length := dec.FrameCount()
	if lastFrame == -1 {
		lastFrame = length - 1
	}
	if firstFrame > length-1 || lastFrame < firstFrame || lastFrame > length-1 {
		return fmt.Errorf("apvideo: first/last frame out of range: video has %d frames", length)
	}

	buf := bitmap.New(dec.BufferWidth(), dec.BufferHeight(), 3)

	if firstFrame > 0 {
		fmt.Fprintf(os.Stderr, "Seeking to frame %d...\n", firstFrame)
	}
	for i := 0; i < firstFrame; i++ {
		if err := dec.GetFrame(buf); err != nil {
			return fmt.Errorf("apvideo: decoding: %w", err)
		}
	}
	for i := firstFrame; i <= lastFrame; i++ {
		name := tmpl.name(i)
		fmt.Fprintln(os.Stderr, name)
		if err := dec.GetFrame(buf); err != nil {
			return fmt.Errorf("apvideo: decoding frame %d: %w", i, err)
		}
		if err := bmpio.WriteBMP(name, buf); err != nil {
			return fmt.Errorf("apvideo: writing %s: %w", name, err)
		}
	}
	return nil
}

func playAnimation(path string) error {
	dec := decoder.New()
	if err := dec.Open(path); err != nil {
		return fmt.Errorf("apvideo: %w", err)
	}
	defer dec.Close()

	packed := make([]uint32, dec.BufferWidth()*dec.BufferHeight())
	interval := time.Duration(float64(time.Second) / float64(dec.FPS()))
	frameCount := dec.FrameCount()

	for frameNum := 0; ; frameNum++ {
		start := time.Now()
		if err := dec.GetFrameRGB(packed); err != nil {
			return fmt.Errorf("apvideo: playing: %w", err)
		}
		fmt.Fprintf(os.Stderr, "frame %d/%d\n", frameNum+1, frameCount)
		if sleep := interval - time.Since(start); sleep > 0 {
			time.Sleep(sleep)
		}
		if frameNum+1 == frameCount {
			frameNum = -1
			if err := dec.Seek(0); err != nil {
				return fmt.Errorf("apvideo: %w", err)
			}
		}
	}
}
