package capture

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: uint8(x + y), A: 255})
		}
	}
	return img
}

func TestEncodeDecodeKeepsDimensions(t *testing.T) {
	enc := NewEncoder(1920, 50)
	payload, scale, err := enc.Encode(gradient(640, 360))
	require.NoError(t, err)
	assert.Equal(t, uint32(100), scale)

	img, err := Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, 640, img.Bounds().Dx())
	assert.Equal(t, 360, img.Bounds().Dy())
}

func TestEncodeDownscalesToWidthCap(t *testing.T) {
	enc := NewEncoder(1920, 50)
	payload, scale, err := enc.Encode(gradient(4000, 1000))
	require.NoError(t, err)
	assert.Equal(t, uint32(48), scale)

	img, err := Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, 1920, img.Bounds().Dx())
	assert.Equal(t, 480, img.Bounds().Dy())
}

func TestEncoderClampsQuality(t *testing.T) {
	enc := NewEncoder(1920, 0)
	assert.Equal(t, 80, enc.quality)
	enc = NewEncoder(1920, 500)
	assert.Equal(t, 80, enc.quality)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte("definitely not zlib"))
	assert.Error(t, err)
}

func TestEncodeRejectsEmptyImage(t *testing.T) {
	enc := NewEncoder(1920, 50)
	_, _, err := enc.Encode(image.NewRGBA(image.Rect(0, 0, 0, 0)))
	assert.Error(t, err)
}
