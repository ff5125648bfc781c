// Package payload builds the canonical and embeddable payload forms spec
// component C7 describes, plus the work-identifier generator and
// aspect-ratio classifier both forms depend on.
package payload

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Profile is the read-only user profile tuple spec §3 describes.
type Profile struct {
	LegalName     string
	DisplayName   string
	CopyrightYear int
	PrimarySource string
}

// base36Digits is the alphabet NewWorkID encodes the timestamp and random
// suffix with.
const base36Digits = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewWorkID generates a work identifier of the form
// GJP-MEDIA-<year>-<base36 timestamp><6 base36 random>, uppercased, per
// spec §3. now is passed in rather than read from time.Now so the caller
// controls determinism; instant generation itself is inherently random
// (crypto/rand suffix) and is never replayed.
func NewWorkID(now time.Time) (string, error) {
	ts := base36(uint64(now.UnixMilli()))
	suffix, err := randomBase36(6)
	if err != nil {
		return "", err
	}
	id := fmt.Sprintf("GJP-MEDIA-%d-%s%s", now.Year(), ts, suffix)
	return strings.ToUpper(id), nil
}

func base36(v uint64) string {
	if v == 0 {
		return "0"
	}
	var sb strings.Builder
	digits := []byte{}
	for v > 0 {
		digits = append(digits, base36Digits[v%36])
		v /= 36
	}
	for i := len(digits) - 1; i >= 0; i-- {
		sb.WriteByte(digits[i])
	}
	return sb.String()
}

func randomBase36(n int) (string, error) {
	var sb strings.Builder
	max := big.NewInt(36)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		sb.WriteByte(base36Digits[idx.Int64()])
	}
	return sb.String(), nil
}

// aspectRatios is the common-ratio table spec §4.7 fixes, each entry the
// ratio's decimal value and its canonical label.
var aspectRatios = []struct {
	value float64
	label string
}{
	{16.0 / 9.0, "16:9"},
	{4.0 / 3.0, "4:3"},
	{1.0, "1:1"},
	{3.0 / 2.0, "3:2"},
	{21.0 / 9.0, "21:9"},
	{9.0 / 16.0, "9:16"},
	{4.0 / 5.0, "4:5"},
}

// AspectRatio classifies width/height against the common-ratio table,
// returning the closest match within 0.05 tolerance, or "custom".
func AspectRatio(width, height int) string {
	if height == 0 {
		return "custom"
	}
	r := float64(width) / float64(height)

	best := ""
	bestDist := 0.05
	for _, candidate := range aspectRatios {
		d := r - candidate.value
		if d < 0 {
			d = -d
		}
		if d <= bestDist {
			bestDist = d
			best = candidate.label
		}
	}
	if best == "" {
		return "custom"
	}
	return best
}

// Canonical is the canonicalized payload spec §3 describes: one
// KEY=VALUE line per field, keys ascending, no trailing newline.
type Canonical struct {
	Author       string
	KnownAs      string
	Copyright    string
	Rights       string
	Source       string
	WorkID       string
	MediaType    string
	AspectRatio  string
	CreatedUTC   string
}

// BuildCanonical assembles the canonical payload for a given profile,
// work ID, media type, aspect ratio, and instant.
func BuildCanonical(p Profile, workID, mediaType, aspect string, instant time.Time) Canonical {
	return Canonical{
		Author:      p.LegalName,
		KnownAs:     p.DisplayName,
		Copyright:   strconv.Itoa(p.CopyrightYear),
		Rights:      "All rights reserved",
		Source:      p.PrimarySource,
		WorkID:      workID,
		MediaType:   mediaType,
		AspectRatio: aspect,
		CreatedUTC:  instant.UTC().Format(time.RFC3339),
	}
}

// Serialize emits the canonical text form: nine KEY=VALUE lines in
// ascending lexicographic key order, joined by "\n", no trailing newline.
func (c Canonical) Serialize() string {
	fields := map[string]string{
		"AUTHOR":      c.Author,
		"KNOWNAS":     c.KnownAs,
		"COPYRIGHT":   c.Copyright,
		"RIGHTS":      c.Rights,
		"SOURCE":      c.Source,
		"WORKID":      c.WorkID,
		"MEDIATYPE":   c.MediaType,
		"ASPECTRATIO": c.AspectRatio,
		"CREATEDUTC":  c.CreatedUTC,
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = k + "=" + fields[k]
	}
	return strings.Join(lines, "\n")
}

// ErrMalformedCanonical is returned by ParseCanonical when text is not a
// well-formed canonical payload (a missing key or a line with no "=").
// Line order is not checked.
var ErrMalformedCanonical = errors.New("payload: malformed canonical payload")

// canonicalKeys is the fixed field set Serialize emits in ascending order,
// matching the KEY set spec §3 fixes.
var canonicalKeys = []string{
	"ASPECTRATIO", "AUTHOR", "COPYRIGHT", "CREATEDUTC", "KNOWNAS",
	"MEDIATYPE", "RIGHTS", "SOURCE", "WORKID",
}

// ParseCanonical is Serialize's inverse: it parses the KEY=VALUE lines
// text holds back into a Canonical, failing if any required key is
// missing or a line is malformed. Needed for P8's round-trip property
// (serialize(parse(serialize(x))) == serialize(x)), which has no meaning
// without a parser.
func ParseCanonical(text string) (Canonical, error) {
	fields := make(map[string]string, len(canonicalKeys))
	for _, line := range strings.Split(text, "\n") {
		eq := strings.Index(line, "=")
		if eq < 0 {
			return Canonical{}, fmt.Errorf("%w: line without '=': %q", ErrMalformedCanonical, line)
		}
		fields[line[:eq]] = line[eq+1:]
	}

	for _, k := range canonicalKeys {
		if _, ok := fields[k]; !ok {
			return Canonical{}, fmt.Errorf("%w: missing key %s", ErrMalformedCanonical, k)
		}
	}

	return Canonical{
		Author:      fields["AUTHOR"],
		KnownAs:     fields["KNOWNAS"],
		Copyright:   fields["COPYRIGHT"],
		Rights:      fields["RIGHTS"],
		Source:      fields["SOURCE"],
		WorkID:      fields["WORKID"],
		MediaType:   fields["MEDIATYPE"],
		AspectRatio: fields["ASPECTRATIO"],
		CreatedUTC:  fields["CREATEDUTC"],
	}, nil
}

// Initials returns the uppercase first letter of each whitespace-delimited
// component of name, used in the embeddable payload's compact form.
func Initials(name string) string {
	var sb strings.Builder
	for _, part := range strings.Fields(name) {
		r := []rune(part)[0]
		sb.WriteRune(unicode.ToUpper(r))
	}
	return sb.String()
}

// BuildEmbeddable renders the short embeddable payload
// "©<initials>|<displayName>|<workId>" spec §3 fixes.
func BuildEmbeddable(p Profile, workID string) string {
	return fmt.Sprintf("©%s|%s|%s", Initials(p.LegalName), p.DisplayName, workID)
}

// Capacity returns the maximum embeddable-payload byte length that fits
// totalBlocks 8x8 blocks with the given ECC byte count, per spec §3's
// "byte length MUST be <= floor(blocks/8) - eccBytes".
func Capacity(totalBlocks, eccBytes int) int {
	c := totalBlocks/8 - eccBytes
	if c < 0 {
		return 0
	}
	return c
}
