package imaging

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) *bytes.Reader {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return bytes.NewReader(buf.Bytes())
}

func decodeDims(t *testing.T, data []byte) (int, int) {
	t.Helper()
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	return cfg.Width, cfg.Height
}

func TestProcessReencodesAsJPEG(t *testing.T) {
	img, err := Process(encodePNG(t, 100, 60))
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", img.MIME)

	w, h := decodeDims(t, img.Data)
	assert.Equal(t, 100, w)
	assert.Equal(t, 60, h)
}

func TestProcessDownscalesLargeImages(t *testing.T) {
	img, err := Process(encodePNG(t, 2048, 1024))
	require.NoError(t, err)

	w, h := decodeDims(t, img.Data)
	assert.Equal(t, MaxDimension, w)
	assert.Equal(t, MaxDimension/2, h)
}

func TestProcessDownscalesPortrait(t *testing.T) {
	img, err := Process(encodePNG(t, 256, 1024))
	require.NoError(t, err)

	w, h := decodeDims(t, img.Data)
	assert.Equal(t, MaxDimension, h)
	assert.Equal(t, MaxDimension/4, w)
}

func TestProcessAcceptsJPEG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 20, 20)), nil))

	img, err := Process(&buf)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", img.MIME)
}

func TestProcessRejectsUnsupportedFormats(t *testing.T) {
	_, err := Process(bytes.NewReader([]byte("definitely not an image")))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	// GIF sniffs to a real image MIME but one outside the whitelist.
	gif := []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00")
	_, err = Process(bytes.NewReader(gif))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
