// Package imagecodec decodes JPEG/PNG/WebP into a flat RGB buffer and
// encodes a flat RGB buffer back to JPEG or PNG. WebP decode comes from
// golang.org/x/image/webp; there is no pure-Go WebP encoder in the
// retrieved corpus, so encoding is JPEG/PNG only, mirroring the teacher's
// own cmd/quality/main.go, which only ever writes PNG/JPEG out.
package imagecodec

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/webp"
)

// ErrUnsupportedFormat is returned by Decode when the input is not
// JPEG, PNG, or WebP.
var ErrUnsupportedFormat = errors.New("imagecodec: unsupported image format")

// Image is a decoded image as a flat, row-major RGB buffer (no alpha).
type Image struct {
	Width, Height int
	RGB           []uint8
}

// Decode sniffs and decodes JPEG, PNG, or WebP data.
func Decode(r io.Reader) (*Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var img image.Image
	switch {
	case bytes.HasPrefix(data, []byte("\xff\xd8\xff")):
		img, err = jpeg.Decode(bytes.NewReader(data))
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		img, err = png.Decode(bytes.NewReader(data))
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		img, err = webp.Decode(bytes.NewReader(data))
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, err
	}

	return fromImage(img), nil
}

func fromImage(img image.Image) *Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := &Image{Width: w, Height: h, RGB: make([]uint8, w*h*3)}
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			out.RGB[i] = uint8(r >> 8)
			out.RGB[i+1] = uint8(g >> 8)
			out.RGB[i+2] = uint8(b >> 8)
			i += 3
		}
	}
	return out
}

func (im *Image) toImage() *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, im.Width, im.Height))
	i := 0
	for y := 0; y < im.Height; y++ {
		for x := 0; x < im.Width; x++ {
			dst.SetNRGBA(x, y, color.NRGBA{R: im.RGB[i], G: im.RGB[i+1], B: im.RGB[i+2], A: 255})
			i += 3
		}
	}
	return dst
}

// EncodeJPEG encodes the image as JPEG at the given quality (1-100). Spec
// §4.4 fixes the default embed output quality at >=95.
func (im *Image) EncodeJPEG(w io.Writer, quality int) error {
	return jpeg.Encode(w, im.toImage(), &jpeg.Options{Quality: quality})
}

// EncodePNG encodes the image as PNG.
func (im *Image) EncodePNG(w io.Writer) error {
	return png.Encode(w, im.toImage())
}
