// Package robust regenerates a watermarked image under a fixed sweep of
// lossy transformations (JPEG recompression, bilinear resize, center crop,
// and a social-media "Instagram profile" preset) and reports per-case
// detection metrics. It is grounded on the teacher's own
// cmd/quality/main.go test-matrix harness (image size x block shape x
// d1/d2 sweep, one structured pass/fail record per combination), adapted
// from a block-shape parameter sweep to a transformation sweep over one
// fixed watermark.
package robust

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"

	"github.com/gjp-labs/forensicmark"
	"github.com/gjp-labs/forensicmark/internal/imagecodec"
)

// ErrInputUnreadable mirrors the root package's sentinel: the buffer
// handed to Run must decode.
var ErrInputUnreadable = errors.New("robust: input image unreadable")

// CaseResult is one sweep case's outcome, per spec §4.10.
type CaseResult struct {
	Transformation  string
	Params          map[string]any
	Detected        bool
	Confidence      float64
	ErrorsFound     int
	ErrorsCorrected int
	Payload         []byte
}

// Sweep configures which cases Run exercises. DefaultSweep matches spec
// §4.10's fixed parameter lists exactly.
type Sweep struct {
	JPEGQualities    []int
	ResizeScales     []float64
	CropPercents     []int
	InstagramProfile bool
}

// DefaultSweep returns the spec-fixed transformation matrix: JPEG quality
// in {95,85,75,65}, bilinear down-then-up resize at {0.5,0.75,1.25,1.5},
// center crop per side in {5%,10%,15%}, plus the Instagram profile preset
// (long edge to 1080px, JPEG Q=72).
func DefaultSweep() Sweep {
	return Sweep{
		JPEGQualities:    []int{95, 85, 75, 65},
		ResizeScales:     []float64{0.5, 0.75, 1.25, 1.5},
		CropPercents:     []int{5, 10, 15},
		InstagramProfile: true,
	}
}

// Run decodes watermarkedImage once, regenerates it through every case in
// sweep, and attempts forensicmark.Extract against each regenerated
// buffer using the same workID/payloadHash/payloadByteLen/opts the
// original embed used.
func Run(ctx context.Context, watermarkedImage []byte, workID, payloadHash string, payloadByteLen int, sweep Sweep, opts ...forensicmark.Option) ([]CaseResult, error) {
	decoded, err := imagecodec.Decode(bytes.NewReader(watermarkedImage))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInputUnreadable, err)
	}

	var results []CaseResult

	for _, q := range sweep.JPEGQualities {
		if err := ctx.Err(); err != nil {
			return results, nil
		}
		buf, err := recompressJPEG(decoded, q)
		if err != nil {
			continue
		}
		results = append(results, runCase(ctx, "jpeg_recompress", map[string]any{"quality": q}, buf, workID, payloadHash, payloadByteLen, opts...))
	}

	for _, scale := range sweep.ResizeScales {
		if err := ctx.Err(); err != nil {
			return results, nil
		}
		buf, err := resizeDownUp(decoded, scale)
		if err != nil {
			continue
		}
		results = append(results, runCase(ctx, "resize_down_up", map[string]any{"scale": scale}, buf, workID, payloadHash, payloadByteLen, opts...))
	}

	for _, pct := range sweep.CropPercents {
		if err := ctx.Err(); err != nil {
			return results, nil
		}
		buf, err := centerCrop(decoded, pct)
		if err != nil {
			continue
		}
		results = append(results, runCase(ctx, "center_crop", map[string]any{"percentPerSide": pct}, buf, workID, payloadHash, payloadByteLen, opts...))
	}

	if sweep.InstagramProfile {
		buf, err := instagramProfile(decoded)
		if err == nil {
			results = append(results, runCase(ctx, "instagram_profile", map[string]any{"longEdge": 1080, "quality": 72}, buf, workID, payloadHash, payloadByteLen, opts...))
		}
	}

	return results, nil
}

func runCase(ctx context.Context, transformation string, params map[string]any, imgBytes []byte, workID, payloadHash string, payloadByteLen int, opts ...forensicmark.Option) CaseResult {
	result := CaseResult{Transformation: transformation, Params: params}

	extracted, err := forensicmark.Extract(ctx, imgBytes, workID, payloadHash, payloadByteLen, opts...)
	if err != nil {
		return result
	}

	result.ErrorsFound = extracted.ErrorsFound
	result.ErrorsCorrected = extracted.ErrorsCorrected
	result.Confidence = extracted.Confidence
	if extracted.Payload != nil && extracted.Confidence >= 0.5 {
		result.Detected = true
		result.Payload = extracted.Payload
	}
	return result
}

func rgbToImage(img *imagecodec.Image) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
	for i := 0; i < img.Width*img.Height; i++ {
		out.Pix[i*4] = img.RGB[i*3]
		out.Pix[i*4+1] = img.RGB[i*3+1]
		out.Pix[i*4+2] = img.RGB[i*3+2]
		out.Pix[i*4+3] = 255
	}
	return out
}

func encodeJPEG(img *image.RGBA, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func recompressJPEG(img *imagecodec.Image, quality int) ([]byte, error) {
	return encodeJPEG(rgbToImage(img), quality)
}

// resizeDownUp scales the image down to scale*dimensions and immediately
// back up to its original dimensions with bilinear interpolation, the
// lossy down-then-up pattern spec §4.10 names.
func resizeDownUp(img *imagecodec.Image, scale float64) ([]byte, error) {
	src := rgbToImage(img)

	downW, downH := scaledDim(img.Width, scale), scaledDim(img.Height, scale)
	down := image.NewRGBA(image.Rect(0, 0, downW, downH))
	draw.BiLinear.Scale(down, down.Bounds(), src, src.Bounds(), draw.Over, nil)

	up := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
	draw.BiLinear.Scale(up, up.Bounds(), down, down.Bounds(), draw.Over, nil)

	return encodeJPEG(up, 95)
}

func scaledDim(v int, scale float64) int {
	d := int(float64(v) * scale)
	if d < 1 {
		d = 1
	}
	return d
}

// centerCrop removes percent of the image from every side and re-encodes
// the remainder at its shrunken dimensions, per spec §4.10's crop sweep.
func centerCrop(img *imagecodec.Image, percent int) ([]byte, error) {
	src := rgbToImage(img)

	cutX := img.Width * percent / 100
	cutY := img.Height * percent / 100
	rect := image.Rect(cutX, cutY, img.Width-cutX, img.Height-cutY)
	if rect.Dx() < 1 || rect.Dy() < 1 {
		return nil, fmt.Errorf("robust: crop percent %d leaves no image", percent)
	}

	cropped := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(cropped, cropped.Bounds(), src, rect.Min, draw.Src)

	return encodeJPEG(cropped, 95)
}

// instagramProfile downscales the long edge to 1080px and recompresses at
// Q=72, the fixed "social upload" preset spec §4.10 names.
func instagramProfile(img *imagecodec.Image) ([]byte, error) {
	const longEdge = 1080
	var newW, newH int
	if img.Width >= img.Height {
		newW = longEdge
		newH = scaledDim(img.Height, float64(longEdge)/float64(img.Width))
	} else {
		newH = longEdge
		newW = scaledDim(img.Width, float64(longEdge)/float64(img.Height))
	}

	src := rgbToImage(img)
	resized := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.BiLinear.Scale(resized, resized.Bounds(), src, src.Bounds(), draw.Over, nil)

	return encodeJPEG(resized, 72)
}
