package camera

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
)

// SyntheticSensor encodes a generated test pattern. Each Grab advances a
// frame counter that shifts the pattern, so consecutive frames differ.
type SyntheticSensor struct {
	settings Settings
	frame    int
	open     bool
}

// NewSyntheticSensor returns a closed synthetic sensor.
func NewSyntheticSensor() *SyntheticSensor {
	return &SyntheticSensor{}
}

func (s *SyntheticSensor) Open(st Settings) error {
	s.settings = st
	s.open = true
	return nil
}

func (s *SyntheticSensor) Grab(ctx context.Context) ([]byte, error) {
	if !s.open {
		return nil, fmt.Errorf("synthetic sensor not open")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.frame++

	w, h := s.settings.Width, s.settings.Height
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	shift := s.frame * 8
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8((x + shift) * 255 / w),
				G: uint8(y * 255 / h),
				B: uint8((s.frame * 37) % 256),
				A: 0xff,
			})
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: s.settings.JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode test pattern: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *SyntheticSensor) Close() error {
	s.open = false
	return nil
}

// Frames returns how many frames were grabbed so far.
func (s *SyntheticSensor) Frames() int {
	return s.frame
}
