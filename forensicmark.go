// Package forensicmark embeds and extracts forensic watermarks in still
// images: a short payload string is Reed-Solomon encoded, scheduled onto
// mid-frequency DCT coefficients by a deterministic hopper, and written
// into the luminance plane via quantization-index modulation. Evidence
// records bind the result to a signed, hashable chain of custody.
//
// The top-level Embed/Extract functions and the Batch type mirror the
// teacher's own package shape (top-level convenience functions wrapping a
// configured instance, plus a Batch for repeated operations against one
// decoded image) but carry forensic-domain semantics throughout.
package forensicmark

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/color"

	"github.com/rs/zerolog/log"

	"github.com/gjp-labs/forensicmark/evidence"
	"github.com/gjp-labs/forensicmark/internal/hopper"
	"github.com/gjp-labs/forensicmark/internal/imagecodec"
	"github.com/gjp-labs/forensicmark/internal/phash"
	"github.com/gjp-labs/forensicmark/internal/qim"
	"github.com/gjp-labs/forensicmark/internal/quality"
	"github.com/gjp-labs/forensicmark/internal/rs"
	"github.com/gjp-labs/forensicmark/internal/yuv"
	"github.com/gjp-labs/forensicmark/payload"
)

// EmbedResult is the outcome of a successful Embed call.
type EmbedResult struct {
	WatermarkedImage []byte
	Record           evidence.Record
	Params           EmbedParams
	Metrics          quality.Metrics
	State            State
	Warnings         []string
}

// ExtractResult is the outcome of an Extract call. Per spec §7's failure
// semantics, Extract never returns an error for a decodable image; an RS
// decode failure is reported here instead via ErrorsFound=-1.
type ExtractResult struct {
	Payload         []byte
	Confidence      float64
	ErrorsFound     int
	ErrorsCorrected int
}

func planeFromRGB(width, height int, rgb []uint8) *yuv.Plane {
	pixels := make([]color.Color, width*height)
	for i := range pixels {
		pixels[i] = color.RGBA{R: rgb[i*3], G: rgb[i*3+1], B: rgb[i*3+2], A: 255}
	}
	return yuv.New(pixels, width, height)
}

func planeToRGB(p *yuv.Plane) []uint8 {
	built := p.Build()
	out := make([]uint8, len(built)*3)
	for i, c := range built {
		out[i*3], out[i*3+1], out[i*3+2] = c.R, c.G, c.B
	}
	return out
}

// Embed watermarks imageBytes (JPEG/PNG/WebP) with a payload derived from
// profile and returns the re-encoded watermarked image plus its evidence
// record. State machine: INIT -> CAPACITY_CHECKED -> ECC_ENCODED ->
// HOPPER_READY -> BLOCKS_WRITTEN -> ENCODED -> VALIDATED -> SIGNED -> DONE.
func Embed(ctx context.Context, imageBytes []byte, profile payload.Profile, opts ...Option) (*EmbedResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
	}

	decoded, err := imagecodec.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInputUnreadable, err)
	}

	return embed(ctx, decoded, imageBytes, profile, opts...)
}

// embed runs the embed pipeline against an already-decoded image, so
// Batch.Embed can reuse one decode across many profiles without Embed's
// own Decode call re-parsing the source bytes every time.
func embed(ctx context.Context, decoded *imagecodec.Image, imageBytes []byte, profile payload.Profile, opts ...Option) (*EmbedResult, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := log.With().Str("component", "forensicmark.Embed").Logger()

	workID, err := payload.NewWorkID(cfg.instant)
	if err != nil {
		return nil, fmt.Errorf("forensicmark: generating work id: %w", err)
	}

	aspect := payload.AspectRatio(decoded.Width, decoded.Height)
	canonical := payload.BuildCanonical(profile, workID, cfg.mediaType, aspect, cfg.instant)
	canonicalText := canonical.Serialize()
	payloadHash := evidence.HashHex([]byte(canonicalText))

	embeddable := payload.BuildEmbeddable(profile, workID)
	embeddableBytes := []byte(embeddable)

	totalBlocks := qim.TotalBlocks(decoded.Width, decoded.Height, cfg.blockSize)
	requiredBits := (len(embeddableBytes) + cfg.eccBytes) * 8
	if requiredBits > totalBlocks {
		return nil, ErrCapacityExceeded
	}
	state := StateCapacityChecked

	code := rs.Encode(embeddableBytes, cfg.eccBytes)
	bits := rs.BytesToBits(code)
	state = StateECCEncoded

	sched := hopper.New(workID, payloadHash, nil)
	state = StateHopperReady

	plane := planeFromRGB(decoded.Width, decoded.Height, decoded.RGB)
	if err := qim.Embed(ctx, plane, bits, sched, cfg.strength, cfg.blockSize); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrCapacityExceeded, err)
	}
	state = StateBlocksWritten

	watermarkedRGB := planeToRGB(plane)

	var buf bytes.Buffer
	if err := (&imagecodec.Image{Width: decoded.Width, Height: decoded.Height, RGB: watermarkedRGB}).EncodeJPEG(&buf, cfg.jpegQuality); err != nil {
		return nil, fmt.Errorf("forensicmark: encoding watermarked image: %w", err)
	}
	state = StateEncoded

	metrics, err := quality.Compare(decoded.Width, decoded.Height, decoded.RGB, decoded.Width, decoded.Height, watermarkedRGB)
	if err != nil {
		return nil, fmt.Errorf("forensicmark: computing quality metrics: %w", err)
	}
	var warnings []string
	if !metrics.Indistinguishable() {
		warnings = append(warnings, "QualityBelowTarget")
		logger.Warn().Float64("psnr", metrics.PSNR).Float64("ssim", metrics.SSIM).Msg("embed quality below target")
	}
	state = StateValidated

	fp := phash.Compute(decoded.Width, decoded.Height, watermarkedRGB)

	params := EmbedParams{
		Strength:        cfg.strength,
		ECCBytes:        cfg.eccBytes,
		BlockSize:       cfg.blockSize,
		CoefficientSeed: workID + ":" + payloadHash,
	}

	originalHash := evidence.HashHex(imageBytes)
	timestampMillis := cfg.instant.UnixMilli()

	rec := evidence.Record{
		WorkID:           workID,
		OriginalHash:     originalHash,
		PayloadHash:      payloadHash,
		CanonicalPayload: canonicalText,
		EmbeddingParams: map[string]any{
			"strength":        params.Strength,
			"eccBytes":        params.ECCBytes,
			"blockSize":       params.BlockSize,
			"coefficientSeed": params.CoefficientSeed,
		},
		QualityMetrics: map[string]any{
			"psnr":    metrics.PSNR,
			"ssim":    metrics.SSIM,
			"mse":     metrics.MSE,
			"maxDiff": metrics.MaxDiff,
		},
		Fingerprint: map[string]string{
			"pHash": fp.PHash,
			"aHash": fp.AHash,
			"dHash": fp.DHash,
		},
		SignatureAlgorithm: "secp256k1",
		TimestampMillis:    timestampMillis,
	}

	if cfg.signer != nil {
		rec.Signature = cfg.signer.Sign(originalHash, payloadHash, timestampMillis)
		rec.SignaturePublicKey = cfg.signer.PublicKeyHex()
		state = StateSigned
	} else {
		warnings = append(warnings, "SignerUnconfigured")
		logger.Warn().Msg("embed proceeding without a configured signer")
	}
	state = StateDone

	return &EmbedResult{
		WatermarkedImage: buf.Bytes(),
		Record:           rec,
		Params:           params,
		Metrics:          metrics,
		State:            state,
		Warnings:         warnings,
	}, nil
}

// Extract recovers a payload of payloadByteLen bytes from imageBytes,
// using the same workID/payloadHash/strength/ecc/blockSize the embed used.
// It never returns an error for a decodable image: an RS decode failure,
// or a payload/ECC length needing more bits than the image has complete
// blocks, is reported as ErrorsFound=-1, Confidence=0, Payload=nil.
func Extract(ctx context.Context, imageBytes []byte, workID, payloadHash string, payloadByteLen int, opts ...Option) (*ExtractResult, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
	}

	decoded, err := imagecodec.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInputUnreadable, err)
	}

	plane := planeFromRGB(decoded.Width, decoded.Height, decoded.RGB)
	sched := hopper.New(workID, payloadHash, nil)

	requiredBits := (payloadByteLen + cfg.eccBytes) * 8
	if requiredBits > qim.TotalBlocks(decoded.Width, decoded.Height, cfg.blockSize) {
		return &ExtractResult{Payload: nil, Confidence: 0, ErrorsFound: -1, ErrorsCorrected: 0}, nil
	}
	bits, err := qim.Extract(ctx, plane, requiredBits, sched, cfg.strength, cfg.blockSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	code := rs.BitsToBytes(bits)

	dec := rs.NewDecoder(code, cfg.eccBytes)
	if !dec.OK() {
		return &ExtractResult{Payload: nil, Confidence: 0, ErrorsFound: -1, ErrorsCorrected: 0}, nil
	}

	t := rs.Capacity(cfg.eccBytes)
	confidence := 1.0
	if t > 0 {
		confidence = 1.0 - 0.5*float64(dec.ErrorsCorrected())/float64(t)
	}

	return &ExtractResult{
		Payload:         dec.DecodeToBytes(),
		Confidence:      confidence,
		ErrorsFound:     dec.ErrorsCorrected(),
		ErrorsCorrected: dec.ErrorsCorrected(),
	}, nil
}

// Batch caches a decoded image so repeated Embed calls against the same
// source (the forensic-workflow shape of one source image watermarked for
// many recipients) skip re-decoding, mirroring the teacher's own Batch
// (watermark.go's NewBatch/Embed/Extract caching wavelets and a DCT
// table). The cached decode is read directly by Embed; imageBytes is kept
// only for originalHash hashing, which needs the raw file bytes rather
// than the decoded pixel buffer.
type Batch struct {
	decoded    *imagecodec.Image
	imageBytes []byte
}

// NewBatch decodes imageBytes once for reuse across multiple Embed calls.
func NewBatch(imageBytes []byte) (*Batch, error) {
	decoded, err := imagecodec.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInputUnreadable, err)
	}
	return &Batch{decoded: decoded, imageBytes: imageBytes}, nil
}

// Embed runs the embed pipeline against the batch's cached decode,
// skipping the JPEG/PNG/WebP re-parse Embed would otherwise do on every
// call.
func (b *Batch) Embed(ctx context.Context, profile payload.Profile, opts ...Option) (*EmbedResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	return embed(ctx, b.decoded, b.imageBytes, profile, opts...)
}
