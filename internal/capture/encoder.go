package capture

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"math"

	"golang.org/x/image/draw"
)

// Encoder turns a bitmap into a frame payload. Frames are coded
// independently; there is no inter-frame state.
type Encoder struct {
	maxWidth int
	quality  int
}

// NewEncoder clamps quality into the valid JPEG range.
func NewEncoder(maxWidth, quality int) *Encoder {
	if quality <= 0 || quality > 100 {
		quality = 80
	}
	if maxWidth <= 0 {
		maxWidth = 1920
	}
	return &Encoder{maxWidth: maxWidth, quality: quality}
}

// Encode downscales img so its width is at most the cap (preserving
// aspect ratio), JPEG encodes it, and zlib compresses the result. The
// returned scale percent (1-100) tells the receiver the downscale ratio
// applied on this side.
func (e *Encoder) Encode(img image.Image) (payload []byte, scalePercent uint32, err error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, 0, fmt.Errorf("empty capture bounds %v", b)
	}

	scale := 1.0
	if w > e.maxWidth {
		scale = float64(e.maxWidth) / float64(w)
		dstH := int(math.Round(float64(h) * scale))
		if dstH < 1 {
			dstH = 1
		}
		dst := image.NewRGBA(image.Rect(0, 0, e.maxWidth, dstH))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
		img = dst
	}

	var jpegBuf bytes.Buffer
	if err := jpeg.Encode(&jpegBuf, img, &jpeg.Options{Quality: e.quality}); err != nil {
		return nil, 0, fmt.Errorf("jpeg encode: %w", err)
	}

	var out bytes.Buffer
	zw, err := zlib.NewWriterLevel(&out, zlib.BestSpeed)
	if err != nil {
		return nil, 0, err
	}
	if _, err := zw.Write(jpegBuf.Bytes()); err != nil {
		return nil, 0, fmt.Errorf("compress frame: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, 0, fmt.Errorf("compress frame: %w", err)
	}

	return out.Bytes(), uint32(math.Round(scale * 100)), nil
}

// Decode reverses Encode: zlib decompress, then JPEG decode.
func Decode(payload []byte) (image.Image, error) {
	zr, err := zlib.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("decompress frame: %w", err)
	}
	defer zr.Close()
	jpegBytes, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompress frame: %w", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(jpegBytes))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return img, nil
}
