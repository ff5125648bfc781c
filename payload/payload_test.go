package payload_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gjp-labs/forensicmark/payload"
)

func TestNewWorkIDShapeAndUniqueness(t *testing.T) {
	now := time.Date(2026, 8, 6, 12, 0, 0, 0, time.UTC)
	id1, err := payload.NewWorkID(now)
	require.NoError(t, err)
	id2, err := payload.NewWorkID(now)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(id1, "GJP-MEDIA-2026-"))
	assert.GreaterOrEqual(t, len(id1), 24)
	assert.LessOrEqual(t, len(id1), 32)
	assert.Equal(t, strings.ToUpper(id1), id1)
	assert.NotEqual(t, id1, id2)
}

func TestAspectRatioKnownAndCustom(t *testing.T) {
	assert.Equal(t, "16:9", payload.AspectRatio(1920, 1080))
	assert.Equal(t, "1:1", payload.AspectRatio(500, 500))
	assert.Equal(t, "custom", payload.AspectRatio(37, 11))
}

func TestCanonicalSerializeIsSortedAndDeterministic(t *testing.T) {
	p := payload.Profile{LegalName: "Jane Roe", DisplayName: "jroe", CopyrightYear: 2026, PrimarySource: "studio-1"}
	instant := time.Date(2026, 8, 6, 0, 0, 0, 0, time.UTC)

	c1 := payload.BuildCanonical(p, "GJP-MEDIA-2026-ABCDEF123456", "image/jpeg", "16:9", instant)
	c2 := payload.BuildCanonical(p, "GJP-MEDIA-2026-ABCDEF123456", "image/jpeg", "16:9", instant)

	s1, s2 := c1.Serialize(), c2.Serialize()
	assert.Equal(t, s1, s2)

	lines := strings.Split(s1, "\n")
	require.Len(t, lines, 9)
	keys := make([]string, len(lines))
	for i, l := range lines {
		keys[i] = strings.SplitN(l, "=", 2)[0]
	}
	sorted := append([]string{}, keys...)
	assertSorted(t, sorted)
	assert.NotContains(t, s1, "\n\n")
	assert.False(t, strings.HasSuffix(s1, "\n"))
}

func assertSorted(t *testing.T, keys []string) {
	for i := 1; i < len(keys); i++ {
		assert.LessOrEqual(t, keys[i-1], keys[i])
	}
}

func TestInitials(t *testing.T) {
	assert.Equal(t, "JR", payload.Initials("Jane Roe"))
	assert.Equal(t, "A", payload.Initials("alice"))
}

func TestBuildEmbeddableShape(t *testing.T) {
	p := payload.Profile{LegalName: "Jane Roe", DisplayName: "jroe"}
	out := payload.BuildEmbeddable(p, "GJP-MEDIA-2026-ABCDEF123456")
	assert.Equal(t, "©JR|jroe|GJP-MEDIA-2026-ABCDEF123456", out)
}

func TestCapacityFloorsAndClampsAtZero(t *testing.T) {
	assert.Equal(t, 2, payload.Capacity(80, 8))
	assert.Equal(t, 0, payload.Capacity(10, 8))
}

func TestParseCanonicalRoundTrips(t *testing.T) {
	p := payload.Profile{LegalName: "Jane Roe", DisplayName: "jroe", CopyrightYear: 2026, PrimarySource: "studio-1"}
	instant := time.Date(2026, 8, 6, 0, 0, 0, 0, time.UTC)
	c := payload.BuildCanonical(p, "GJP-MEDIA-2026-ABCDEF123456", "image/jpeg", "16:9", instant)

	parsed, err := payload.ParseCanonical(c.Serialize())
	require.NoError(t, err)
	assert.Equal(t, c, parsed)
}

// TestSerializeParseSerializeIsIdempotent is P8: serializing, parsing back,
// and serializing again must reproduce the exact same text.
func TestSerializeParseSerializeIsIdempotent(t *testing.T) {
	p := payload.Profile{LegalName: "Alex Brook", DisplayName: "Alex", CopyrightYear: 2026, PrimarySource: "studio"}
	instant := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c := payload.BuildCanonical(p, "GJP-MEDIA-2026-XYZ000111222", "video/mp4", "custom", instant)

	s1 := c.Serialize()
	parsed, err := payload.ParseCanonical(s1)
	require.NoError(t, err)
	s2 := parsed.Serialize()

	assert.Equal(t, s1, s2)
}

func TestParseCanonicalRejectsMissingKey(t *testing.T) {
	_, err := payload.ParseCanonical("AUTHOR=Jane\nKNOWNAS=jroe")
	assert.ErrorIs(t, err, payload.ErrMalformedCanonical)
}

func TestParseCanonicalRejectsMalformedLine(t *testing.T) {
	_, err := payload.ParseCanonical("AUTHOR=Jane\nnotakeyvalue")
	assert.ErrorIs(t, err, payload.ErrMalformedCanonical)
}
