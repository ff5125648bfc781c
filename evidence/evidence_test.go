package evidence_test

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gjp-labs/forensicmark/evidence"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i + 1)
	}
	return key
}

func TestSignIsDeterministic(t *testing.T) {
	signer, err := evidence.NewSigner(testKey(t))
	require.NoError(t, err)

	sig1 := signer.Sign("abc123", "def456", 1000)
	sig2 := signer.Sign("abc123", "def456", 1000)
	assert.Equal(t, sig1, sig2)
	assert.Len(t, sig1, 128) // 64 bytes hex-encoded
}

func TestSignVerifyRoundTrip(t *testing.T) {
	signer, err := evidence.NewSigner(testKey(t))
	require.NoError(t, err)

	sig := signer.Sign("media-hash", "payload-hash", 1717171717)
	ok, err := evidence.Verify(signer.PublicKeyHex(), sig, "media-hash", "payload-hash", 1717171717)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyRejectsTamperedMessage(t *testing.T) {
	signer, err := evidence.NewSigner(testKey(t))
	require.NoError(t, err)

	sig := signer.Sign("media-hash", "payload-hash", 1717171717)
	ok, err := evidence.Verify(signer.PublicKeyHex(), sig, "media-hash", "payload-hash", 1717171718)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashHexIsSHA256(t *testing.T) {
	h := evidence.HashHex([]byte("hello"))
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", h)
}

func TestConstantTimeEqualHex(t *testing.T) {
	assert.True(t, evidence.ConstantTimeEqualHex("abcd", "abcd"))
	assert.False(t, evidence.ConstantTimeEqualHex("abcd", "abce"))
	assert.False(t, evidence.ConstantTimeEqualHex("abcd", "not-hex"))
}

func TestRecordVerifyDetectsPayloadHashMismatch(t *testing.T) {
	signer, err := evidence.NewSigner(testKey(t))
	require.NoError(t, err)

	payload := "AUTHOR=Jane"
	payloadHash := evidence.HashHex([]byte(payload))
	mediaHash := evidence.HashHex([]byte("media-bytes"))
	sig := signer.Sign(mediaHash, payloadHash, 123)

	rec := evidence.Record{
		OriginalHash:       mediaHash,
		PayloadHash:        payloadHash,
		CanonicalPayload:   payload,
		Signature:          sig,
		SignaturePublicKey: signer.PublicKeyHex(),
		SignatureAlgorithm: "secp256k1",
		TimestampMillis:    123,
	}
	ok, err := rec.Verify()
	require.NoError(t, err)
	assert.True(t, ok)

	rec.CanonicalPayload = "AUTHOR=Mallory"
	ok, err = rec.Verify()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecordVerifySignatureIgnoresCanonicalPayload(t *testing.T) {
	signer, err := evidence.NewSigner(testKey(t))
	require.NoError(t, err)

	mediaHash := evidence.HashHex([]byte("media-bytes"))
	payloadHash := evidence.HashHex([]byte("AUTHOR=Jane"))
	sig := signer.Sign(mediaHash, payloadHash, 123)

	// No CanonicalPayload set at all, as RecordFromExport produces.
	rec := evidence.Record{
		OriginalHash:       mediaHash,
		PayloadHash:        payloadHash,
		Signature:          sig,
		SignaturePublicKey: signer.PublicKeyHex(),
		SignatureAlgorithm: "secp256k1",
		TimestampMillis:    123,
	}

	ok, err := rec.VerifySignature()
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = rec.Verify()
	require.NoError(t, err)
	assert.False(t, ok, "Verify must fail without a canonicalPayload even though the signature itself is valid")
}

// flipLastHexChar returns s with its final hex character changed to a
// different valid hex digit, for tamper tests.
func flipLastHexChar(s string) string {
	last := s[len(s)-1]
	replacement := byte('0')
	if last == '0' {
		replacement = '1'
	}
	return s[:len(s)-1] + string(replacement)
}

// TestSignatureScenario5FixedInputs uses the fixed media hash, payload
// hash, timestamp, and private key a signature-determinism scenario
// names (all-zero media hash, all-f payload hash, a fixed millisecond
// timestamp, a private key of 32 repeated 0x01 bytes) and checks every
// property that scenario states: the signature is always 128 hex
// characters, re-signing the same inputs reproduces it exactly, it
// verifies against its public key, and flipping the signature's last
// hex character breaks verification.
//
// The scenario also calls for recording the exact signature value as a
// golden constant; that value can only be obtained by actually running
// the RFC6979/secp256k1 signer once, which isn't done here, so this
// test pins every other assertion the scenario makes without a
// hardcoded, unverified hex literal.
func TestSignatureScenario5FixedInputs(t *testing.T) {
	skHex := strings.Repeat("01", 32)
	sk, err := hex.DecodeString(skHex)
	require.NoError(t, err)
	require.Len(t, sk, 32)

	signer, err := evidence.NewSigner(sk)
	require.NoError(t, err)

	mediaHash := strings.Repeat("0", 64)
	payloadHash := strings.Repeat("f", 64)
	var timestampMillis int64 = 1700000000000

	sig := signer.Sign(mediaHash, payloadHash, timestampMillis)
	require.Len(t, sig, 128)

	assert.Equal(t, sig, signer.Sign(mediaHash, payloadHash, timestampMillis))

	ok, err := evidence.Verify(signer.PublicKeyHex(), sig, mediaHash, payloadHash, timestampMillis)
	require.NoError(t, err)
	assert.True(t, ok)

	tampered := flipLastHexChar(sig)
	require.NotEqual(t, sig, tampered)
	ok, err = evidence.Verify(signer.PublicKeyHex(), tampered, mediaHash, payloadHash, timestampMillis)
	require.NoError(t, err)
	assert.False(t, ok)
}
