package evidence_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gjp-labs/forensicmark/evidence"
)

func TestBuildExportFillsFixedShape(t *testing.T) {
	rec := evidence.Record{
		WorkID:             "GJP-MEDIA-2026-ABC123",
		OriginalHash:       "aa",
		PayloadHash:        "bb",
		Signature:          "cc",
		SignatureAlgorithm: "secp256k1",
		SignaturePublicKey: "dd",
		Fingerprint:        map[string]string{"pHash": "1111111111111111"},
		EmbeddingParams:    map[string]any{"strength": 0.15},
		QualityMetrics:     map[string]any{"psnr": 42.0},
		TimestampMillis:    1700000000000,
	}
	owner := evidence.Owner{LegalName: "Alex Brook", DisplayName: "Alex", CopyrightYear: 2026, PrimarySource: "studio"}
	exportedAt := time.Date(2026, 8, 6, 12, 0, 0, 0, time.UTC)

	exp := evidence.BuildExport(rec, owner, "image/jpeg", "photo.jpg", 123456, "16:9", "©AB|Alex|GJP-MEDIA-2026-ABC123", exportedAt)

	assert.Equal(t, "1.0", exp.Version)
	assert.Equal(t, rec.WorkID, exp.WorkID)
	assert.Equal(t, "image/jpeg", exp.MediaType)
	assert.Equal(t, "photo.jpg", exp.OriginalFileName)
	assert.Equal(t, int64(123456), exp.OriginalFileSize)
	assert.Equal(t, "16:9", exp.AspectRatio)
	assert.Equal(t, owner, exp.Owner)
	assert.Equal(t, rec.OriginalHash, exp.CryptographicProof.OriginalHash)
	assert.Equal(t, rec.Signature, exp.CryptographicProof.EvidenceSignature)
	assert.Equal(t, "©AB|Alex|GJP-MEDIA-2026-ABC123", exp.CryptographicProof.WatermarkPayload)
	assert.Equal(t, rec.Fingerprint, exp.PerceptualHashes)
	assert.Nil(t, exp.Anchor)
	assert.Empty(t, exp.DetectionHistory)
	assert.Equal(t, "2026-08-06T12:00:00Z", exp.ExportedAt)
}

func TestRecordFromExportVerifiesSignature(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i + 1)
	}
	signer, err := evidence.NewSigner(key)
	require.NoError(t, err)

	originalHash := evidence.HashHex([]byte("original-bytes"))
	payloadHash := evidence.HashHex([]byte("AUTHOR=Jane"))
	timestampMillis := int64(1700000000123)
	sig := signer.Sign(originalHash, payloadHash, timestampMillis)

	rec := evidence.Record{
		WorkID:             "GJP-MEDIA-2026-ABC123",
		OriginalHash:       originalHash,
		PayloadHash:        payloadHash,
		CanonicalPayload:   "AUTHOR=Jane",
		Signature:          sig,
		SignaturePublicKey: signer.PublicKeyHex(),
		SignatureAlgorithm: "secp256k1",
		TimestampMillis:    timestampMillis,
	}
	owner := evidence.Owner{LegalName: "Jane Roe", DisplayName: "jroe", CopyrightYear: 2026, PrimarySource: "studio"}
	exportedAt := time.Date(2026, 8, 6, 12, 0, 0, 0, time.UTC)

	exp := evidence.BuildExport(rec, owner, "image/jpeg", "photo.jpg", 123, "16:9", "©J|jroe|GJP-MEDIA-2026-ABC123", exportedAt)

	roundTripped, err := evidence.RecordFromExport(exp)
	require.NoError(t, err)
	assert.Equal(t, rec.WorkID, roundTripped.WorkID)
	assert.Equal(t, rec.TimestampMillis, roundTripped.TimestampMillis)
	assert.Empty(t, roundTripped.CanonicalPayload)

	ok, err := roundTripped.VerifySignature()
	require.NoError(t, err)
	assert.True(t, ok)

	// Verify (the I1 check) must fail: the export never carries
	// canonicalPayload.
	ok, err = roundTripped.Verify()
	require.NoError(t, err)
	assert.False(t, ok)
}
