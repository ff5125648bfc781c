package evidence

import (
	"fmt"
	"time"
)

// exportTimeLayout is RFC3339Nano rather than plain RFC3339: the
// millisecond-precision TimestampMillis a Record carries would otherwise
// be truncated to whole seconds on export, making RecordFromExport unable
// to reconstruct the exact signing message a verify needs.
const exportTimeLayout = time.RFC3339Nano

// Owner mirrors payload.Profile in the persisted export shape spec §6
// fixes, with the export's JSON field names; evidence does not import
// payload.
type Owner struct {
	LegalName     string `json:"legalName"`
	DisplayName   string `json:"displayName"`
	CopyrightYear int    `json:"copyrightYear"`
	PrimarySource string `json:"primarySource"`
}

// CryptographicProof is the export's cryptographicProof block.
type CryptographicProof struct {
	OriginalHash       string `json:"originalHash"`
	PayloadHash        string `json:"payloadHash"`
	WatermarkPayload   string `json:"watermarkPayload"`
	EvidenceSignature  string `json:"evidenceSignature"`
	SignatureAlgorithm string `json:"signatureAlgorithm"`
	SignaturePublicKey string `json:"signaturePublicKey"`
}

// Anchor is the export's optional timestamp-anchor block, filled in by
// the host once a collab.TimestampAnchor call succeeds; the core never
// produces one itself.
type Anchor struct {
	TxID            string `json:"txId"`
	Network         string `json:"network"`
	BlockNumber     int64  `json:"blockNumber"`
	Timestamp       string `json:"timestamp"`
	VerificationURL string `json:"verificationUrl"`
}

// Timestamps is the export's lifecycle timestamp block. Uploaded and
// Processed collapse to the export instant for a synchronous embed: the
// core has no separate upload stage, only the host pipeline wrapping it
// does.
type Timestamps struct {
	Created   string `json:"created"`
	Uploaded  string `json:"uploaded"`
	Processed string `json:"processed"`
}

// Export is the stable, versioned persisted-evidence JSON shape spec §6
// fixes for host storage/reporting.
type Export struct {
	ExportedAt         string              `json:"exportedAt"`
	Version            string              `json:"version"`
	WorkID             string              `json:"workId"`
	MediaType          string              `json:"mediaType"`
	OriginalFileName   string              `json:"originalFileName"`
	OriginalFileSize   int64               `json:"originalFileSize"`
	AspectRatio        string              `json:"aspectRatio"`
	Owner              Owner               `json:"owner"`
	CryptographicProof CryptographicProof  `json:"cryptographicProof"`
	PerceptualHashes   map[string]string   `json:"perceptualHashes"`
	Anchor             *Anchor             `json:"anchor,omitempty"`
	EmbeddingParams    map[string]any      `json:"embeddingParams"`
	QualityMetrics     map[string]any      `json:"qualityMetrics"`
	Timestamps         Timestamps          `json:"timestamps"`
	DetectionHistory   []map[string]any    `json:"detectionHistory"`
}

// BuildExport assembles the persisted export shape from an evidence
// Record plus the host-supplied fields the core never tracks itself
// (owner profile, media type, original file name/size, aspect ratio, the
// embeddable payload text, and the export instant).
func BuildExport(rec Record, owner Owner, mediaType, originalFileName string, originalFileSize int64, aspectRatio, watermarkPayload string, exportedAt time.Time) Export {
	exported := exportedAt.UTC().Format(exportTimeLayout)
	created := time.UnixMilli(rec.TimestampMillis).UTC().Format(exportTimeLayout)

	return Export{
		ExportedAt:       exported,
		Version:          "1.0",
		WorkID:           rec.WorkID,
		MediaType:        mediaType,
		OriginalFileName: originalFileName,
		OriginalFileSize: originalFileSize,
		AspectRatio:      aspectRatio,
		Owner:            owner,
		CryptographicProof: CryptographicProof{
			OriginalHash:       rec.OriginalHash,
			PayloadHash:        rec.PayloadHash,
			WatermarkPayload:   watermarkPayload,
			EvidenceSignature:  rec.Signature,
			SignatureAlgorithm: rec.SignatureAlgorithm,
			SignaturePublicKey: rec.SignaturePublicKey,
		},
		PerceptualHashes: rec.Fingerprint,
		EmbeddingParams:  rec.EmbeddingParams,
		QualityMetrics:   rec.QualityMetrics,
		Timestamps: Timestamps{
			Created:   created,
			Uploaded:  exported,
			Processed: exported,
		},
		DetectionHistory: []map[string]any{},
	}
}

// RecordFromExport reconstructs the subset of a Record a persisted Export
// carries: enough to call VerifySignature, but never CanonicalPayload —
// the export shape spec §6 fixes never includes the canonical payload
// text, only the short watermarkPayload, so invariant I1 (payloadHash
// reproduces from canonicalPayload) cannot be checked from an Export
// alone. Callers verifying an Export must call VerifySignature, not
// Verify, on the result.
func RecordFromExport(exp Export) (Record, error) {
	created, err := time.Parse(exportTimeLayout, exp.Timestamps.Created)
	if err != nil {
		return Record{}, fmt.Errorf("evidence: parsing export timestamp %q: %w", exp.Timestamps.Created, err)
	}

	return Record{
		WorkID:             exp.WorkID,
		OriginalHash:       exp.CryptographicProof.OriginalHash,
		PayloadHash:        exp.CryptographicProof.PayloadHash,
		Fingerprint:        exp.PerceptualHashes,
		EmbeddingParams:    exp.EmbeddingParams,
		QualityMetrics:     exp.QualityMetrics,
		Signature:          exp.CryptographicProof.EvidenceSignature,
		SignaturePublicKey: exp.CryptographicProof.SignaturePublicKey,
		SignatureAlgorithm: exp.CryptographicProof.SignatureAlgorithm,
		TimestampMillis:    created.UnixMilli(),
	}, nil
}
