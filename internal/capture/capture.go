// Package capture produces compressed frame payloads from the local
// screen: grab the primary display, downscale to the width cap, JPEG
// encode, then a fast zlib pass over the encoded bytes.
package capture

import (
	"fmt"
	"image"

	"github.com/kbinani/screenshot"
)

// Source yields raw screen bitmaps.
type Source interface {
	Capture() (image.Image, error)
}

// ScreenSource grabs a fixed display through the OS screenshot facility.
type ScreenSource struct {
	display int
}

func NewScreenSource(display int) *ScreenSource {
	return &ScreenSource{display: display}
}

func (s *ScreenSource) Capture() (image.Image, error) {
	num := screenshot.NumActiveDisplays()
	if num <= 0 {
		return nil, fmt.Errorf("no active displays")
	}
	d := s.display
	if d < 0 || d >= num {
		d = 0
	}
	bounds := screenshot.GetDisplayBounds(d)
	img, err := screenshot.CaptureRect(bounds)
	if err != nil {
		// On some platforms capture can intermittently fail
		return nil, fmt.Errorf("capture display %d: %w", d, err)
	}
	return img, nil
}

// Pipeline couples a Source with an Encoder so the broadcaster only ever
// asks for the next wire-ready payload.
type Pipeline struct {
	src Source
	enc *Encoder
}

func NewPipeline(src Source, enc *Encoder) *Pipeline {
	return &Pipeline{src: src, enc: enc}
}

func (p *Pipeline) NextFrame() ([]byte, uint32, error) {
	img, err := p.src.Capture()
	if err != nil {
		return nil, 0, err
	}
	return p.enc.Encode(img)
}
