package imagecodec_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gjp-labs/forensicmark/internal/imagecodec"
)

func solid(w, h int) *imagecodec.Image {
	rgb := make([]uint8, w*h*3)
	for i := 0; i < w*h; i++ {
		rgb[i*3], rgb[i*3+1], rgb[i*3+2] = 10, 20, 30
	}
	return &imagecodec.Image{Width: w, Height: h, RGB: rgb}
}

func TestEncodeDecodePNGRoundTrip(t *testing.T) {
	img := solid(8, 8)
	var buf bytes.Buffer
	require.NoError(t, img.EncodePNG(&buf))

	got, err := imagecodec.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, img.Width, got.Width)
	assert.Equal(t, img.Height, got.Height)
	assert.Equal(t, img.RGB, got.RGB)
}

func TestEncodeDecodeJPEGRoundTrip(t *testing.T) {
	img := solid(16, 16)
	var buf bytes.Buffer
	require.NoError(t, img.EncodeJPEG(&buf, 95))

	got, err := imagecodec.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, img.Width, got.Width)
	assert.Equal(t, img.Height, got.Height)
}

func TestDecodeUnsupportedFormat(t *testing.T) {
	_, err := imagecodec.Decode(bytes.NewReader([]byte("not an image")))
	assert.ErrorIs(t, err, imagecodec.ErrUnsupportedFormat)
}
