package forensicmark

import (
	"time"

	"github.com/gjp-labs/forensicmark/evidence"
)

// EmbedParams is the immutable parameter tuple spec §3 describes, recorded
// verbatim in the evidence record once an embed is performed.
type EmbedParams struct {
	Strength        float64
	ECCBytes        int
	BlockSize       int
	CoefficientSeed string
}

type config struct {
	strength    float64
	eccBytes    int
	blockSize   int
	mediaType   string
	instant     time.Time
	signer      *evidence.Signer
	jpegQuality int
}

func defaultConfig() config {
	return config{
		strength:    0.15,
		eccBytes:    8,
		blockSize:   8,
		mediaType:   "image/jpeg",
		instant:     time.Now(),
		jpegQuality: 95,
	}
}

// Option configures an Embed or Extract call.
type Option func(*config)

// WithStrength overrides the default embedding strength (0.15 for still
// images per spec §9's open-question resolution; video callers that want
// the source's lower 0.03 default must request it explicitly with this
// option).
func WithStrength(strength float64) Option {
	return func(c *config) { c.strength = strength }
}

// WithECCBytes overrides the default Reed-Solomon parity byte count
// (8 for images, 12 for video per spec §4.3).
func WithECCBytes(eccBytes int) Option {
	return func(c *config) { c.eccBytes = eccBytes }
}

// WithBlockSize overrides the DCT block side, 8 in production.
func WithBlockSize(blockSize int) Option {
	return func(c *config) { c.blockSize = blockSize }
}

// WithMediaType sets the canonical payload's MEDIATYPE field.
func WithMediaType(mediaType string) Option {
	return func(c *config) { c.mediaType = mediaType }
}

// WithInstant pins the canonical payload's CREATEDUTC timestamp, for
// deterministic tests.
func WithInstant(instant time.Time) Option {
	return func(c *config) { c.instant = instant }
}

// WithSigner supplies the evidence signer. Embedding without one still
// succeeds; the evidence record marks the signature fields absent.
func WithSigner(signer *evidence.Signer) Option {
	return func(c *config) { c.signer = signer }
}

// WithJPEGQuality overrides the default output JPEG quality (>=95 per
// spec §4.4; values below that are accepted but will generally fail the
// robustness assumptions the embed strength was tuned against).
func WithJPEGQuality(quality int) Option {
	return func(c *config) { c.jpegQuality = quality }
}
