// Command watermark drives the embed/extract/verify/robust core through
// the standard library flag package with a manual subcommand switch,
// mirroring the teacher's own cmd/quality/main.go (flag.Parse(), no
// third-party CLI framework) rather than adopting one the corpus never
// reaches for in this repo.
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gjp-labs/forensicmark"
	"github.com/gjp-labs/forensicmark/collab"
	"github.com/gjp-labs/forensicmark/config"
	"github.com/gjp-labs/forensicmark/evidence"
	"github.com/gjp-labs/forensicmark/payload"
	"github.com/gjp-labs/forensicmark/robust"
)

const (
	exitOK               = 0
	exitUsage            = 2
	exitCapacityExceeded = 3
	exitExtractionFailed = 4
	exitSigningOrConfig  = 5
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 1 {
		usage()
		return exitUsage
	}
	switch args[0] {
	case "embed":
		return runEmbed(args[1:])
	case "extract":
		return runExtract(args[1:])
	case "verify":
		return runVerify(args[1:])
	case "robust":
		return runRobust(args[1:])
	default:
		usage()
		return exitUsage
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: watermark <command> [flags]

commands:
  embed    embed a forensic watermark into an image
  extract  recover a watermark payload from an image
  verify   check an evidence export's signature
  robust   sweep a watermarked image through lossy transformations`)
}

func runEmbed(args []string) int {
	fs := flag.NewFlagSet("embed", flag.ContinueOnError)
	in := fs.String("in", "", "input image path")
	out := fs.String("out", "", "output watermarked image path")
	recordOut := fs.String("record-out", "", "evidence JSON export path (optional)")
	configPath := fs.String("config", "", "host config YAML path (signing key, defaults; optional)")
	legalName := fs.String("legal-name", "", "profile legal name")
	displayName := fs.String("display-name", "", "profile display name")
	copyrightYear := fs.Int("copyright-year", time.Now().Year(), "profile copyright year")
	source := fs.String("source", "", "profile primary source")
	mediaType := fs.String("media-type", "image/jpeg", "canonical payload media type")
	strength := fs.Float64("strength", 0.15, "QIM embedding strength")
	ecc := fs.Int("ecc", 8, "Reed-Solomon parity byte count")
	signingKey := fs.String("signing-key", "", "32-byte secp256k1 private key, hex")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	hostCfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "embed:", err)
			return exitSigningOrConfig
		}
		hostCfg = loaded
	}
	applyConfigDefaults(fs, hostCfg, strength, ecc, signingKey, legalName, displayName, source, copyrightYear)

	if *in == "" || *out == "" || *legalName == "" || *displayName == "" {
		fmt.Fprintln(os.Stderr, "embed: --in, --out, --legal-name and --display-name are required")
		return exitUsage
	}

	data, err := os.ReadFile(*in)
	if err != nil {
		fmt.Fprintln(os.Stderr, "embed:", err)
		return exitUsage
	}

	opts := []forensicmark.Option{
		forensicmark.WithStrength(*strength),
		forensicmark.WithECCBytes(*ecc),
		forensicmark.WithMediaType(*mediaType),
	}
	if *signingKey != "" {
		keyBytes, err := hex.DecodeString(*signingKey)
		if err != nil {
			fmt.Fprintln(os.Stderr, "embed: --signing-key is not valid hex:", err)
			return exitSigningOrConfig
		}
		signer, err := evidence.NewSigner(keyBytes)
		if err != nil {
			fmt.Fprintln(os.Stderr, "embed:", err)
			return exitSigningOrConfig
		}
		opts = append(opts, forensicmark.WithSigner(signer))
	}

	profile := payload.Profile{
		LegalName:     *legalName,
		DisplayName:   *displayName,
		CopyrightYear: *copyrightYear,
		PrimarySource: *source,
	}

	result, err := forensicmark.Embed(context.Background(), data, profile, opts...)
	if err != nil {
		fmt.Fprintln(os.Stderr, "embed:", err)
		if errors.Is(err, forensicmark.ErrCapacityExceeded) {
			return exitCapacityExceeded
		}
		return exitUsage
	}

	if err := os.WriteFile(*out, result.WatermarkedImage, 0o644); err != nil {
		fmt.Fprintln(os.Stderr, "embed:", err)
		return exitUsage
	}

	fmt.Printf("workId=%s payloadHash=%s psnr=%.2f ssim=%.4f\n",
		result.Record.WorkID, result.Record.PayloadHash, result.Metrics.PSNR, result.Metrics.SSIM)

	if *recordOut != "" {
		watermarkPayload := payload.BuildEmbeddable(profile, result.Record.WorkID)
		owner := evidence.Owner{
			LegalName:     profile.LegalName,
			DisplayName:   profile.DisplayName,
			CopyrightYear: profile.CopyrightYear,
			PrimarySource: profile.PrimarySource,
		}
		var size int64
		if info, statErr := os.Stat(*in); statErr == nil {
			size = info.Size()
		}
		aspect := canonicalField(result.Record.CanonicalPayload, "ASPECTRATIO")
		export := evidence.BuildExport(result.Record, owner, *mediaType, filepath.Base(*in), size, aspect, watermarkPayload, time.Now())

		jsonBytes, err := json.MarshalIndent(export, "", "  ")
		if err != nil {
			fmt.Fprintln(os.Stderr, "embed:", err)
			return exitUsage
		}
		if err := os.WriteFile(*recordOut, jsonBytes, 0o644); err != nil {
			fmt.Fprintln(os.Stderr, "embed:", err)
			return exitUsage
		}
	}

	return exitOK
}

func canonicalField(canonical, key string) string {
	prefix := key + "="
	for _, line := range strings.Split(canonical, "\n") {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimPrefix(line, prefix)
		}
	}
	return ""
}

// applyConfigDefaults fills flags the caller left at their zero value from
// the loaded host config, so --config supplies a signing key and default
// profile/strength/ecc without forcing every embed invocation to repeat
// them on the command line. Flags the caller did explicitly set win.
func applyConfigDefaults(fs *flag.FlagSet, cfg config.Config, strength *float64, ecc *int, signingKey, legalName, displayName, source *string, copyrightYear *int) {
	explicit := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	if !explicit["strength"] && cfg.DefaultStrength != 0 {
		*strength = cfg.DefaultStrength
	}
	if !explicit["ecc"] && cfg.DefaultECCBytes != 0 {
		*ecc = cfg.DefaultECCBytes
	}
	if !explicit["signing-key"] && cfg.SigningKeyHex != "" {
		*signingKey = cfg.SigningKeyHex
	}
	if !explicit["legal-name"] && cfg.DefaultProfile.LegalName != "" {
		*legalName = cfg.DefaultProfile.LegalName
	}
	if !explicit["display-name"] && cfg.DefaultProfile.DisplayName != "" {
		*displayName = cfg.DefaultProfile.DisplayName
	}
	if !explicit["source"] && cfg.DefaultProfile.PrimarySource != "" {
		*source = cfg.DefaultProfile.PrimarySource
	}
	if !explicit["copyright-year"] && cfg.DefaultProfile.CopyrightYear != 0 {
		*copyrightYear = cfg.DefaultProfile.CopyrightYear
	}
}

func runExtract(args []string) int {
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	in := fs.String("in", "", "input image path")
	workID := fs.String("workid", "", "work identifier used at embed time")
	payloadHash := fs.String("payload-hash", "", "canonical payload SHA-256 hash, hex")
	length := fs.Int("length", 0, "embeddable payload byte length")
	strength := fs.Float64("strength", 0.15, "QIM embedding strength")
	ecc := fs.Int("ecc", 8, "Reed-Solomon parity byte count")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if *in == "" || *workID == "" || *payloadHash == "" || *length <= 0 {
		fmt.Fprintln(os.Stderr, "extract: --in, --workid, --payload-hash and --length are required")
		return exitUsage
	}

	data, err := os.ReadFile(*in)
	if err != nil {
		fmt.Fprintln(os.Stderr, "extract:", err)
		return exitUsage
	}

	result, err := forensicmark.Extract(context.Background(), data, *workID, *payloadHash, *length,
		forensicmark.WithStrength(*strength), forensicmark.WithECCBytes(*ecc))
	if err != nil {
		fmt.Fprintln(os.Stderr, "extract:", err)
		return exitUsage
	}
	if result.Payload == nil {
		fmt.Fprintln(os.Stderr, "extract: no payload recovered")
		return exitExtractionFailed
	}

	fmt.Printf("payload=%q confidence=%.3f errorsFound=%d errorsCorrected=%d\n",
		string(result.Payload), result.Confidence, result.ErrorsFound, result.ErrorsCorrected)
	return exitOK
}

// runVerify checks the signature on an evidence JSON export, the only
// shape embed --record-out ever writes (evidence.Export, not the bare
// evidence.Record; see evidence/export.go). The record is round-tripped
// through a collab.EvidenceStore before verification, exercising the
// same storage contract a host backed by a real database would use.
func runVerify(args []string) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	recordPath := fs.String("record", "", "evidence JSON export path")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if *recordPath == "" {
		fmt.Fprintln(os.Stderr, "verify: --record is required")
		return exitUsage
	}

	data, err := os.ReadFile(*recordPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "verify:", err)
		return exitUsage
	}

	var exp evidence.Export
	if err := json.Unmarshal(data, &exp); err != nil {
		fmt.Fprintln(os.Stderr, "verify:", err)
		return exitUsage
	}

	rec, err := evidence.RecordFromExport(exp)
	if err != nil {
		fmt.Fprintln(os.Stderr, "verify:", err)
		return exitUsage
	}

	ctx := context.Background()
	store := collab.NewMemoryEvidenceStore()
	if err := store.Put(ctx, rec); err != nil {
		fmt.Fprintln(os.Stderr, "verify:", err)
		return exitSigningOrConfig
	}
	rec, err = store.Get(ctx, rec.WorkID)
	if err != nil {
		fmt.Fprintln(os.Stderr, "verify:", err)
		return exitSigningOrConfig
	}

	ok, err := rec.VerifySignature()
	if err != nil {
		fmt.Fprintln(os.Stderr, "verify:", err)
		return exitSigningOrConfig
	}
	if !ok {
		fmt.Println("INVALID")
		return exitExtractionFailed
	}
	fmt.Println("VALID")
	return exitOK
}

func runRobust(args []string) int {
	fs := flag.NewFlagSet("robust", flag.ContinueOnError)
	in := fs.String("in", "", "watermarked image path")
	workID := fs.String("workid", "", "work identifier used at embed time")
	payloadHash := fs.String("payload-hash", "", "canonical payload SHA-256 hash, hex")
	length := fs.Int("length", 0, "embeddable payload byte length")
	strength := fs.Float64("strength", 0.15, "QIM embedding strength")
	ecc := fs.Int("ecc", 8, "Reed-Solomon parity byte count")
	out := fs.String("out", "", "JSON results output path (stdout if omitted)")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if *in == "" || *workID == "" || *payloadHash == "" || *length <= 0 {
		fmt.Fprintln(os.Stderr, "robust: --in, --workid, --payload-hash and --length are required")
		return exitUsage
	}

	data, err := os.ReadFile(*in)
	if err != nil {
		fmt.Fprintln(os.Stderr, "robust:", err)
		return exitUsage
	}

	results, err := robust.Run(context.Background(), data, *workID, *payloadHash, *length, robust.DefaultSweep(),
		forensicmark.WithStrength(*strength), forensicmark.WithECCBytes(*ecc))
	if err != nil {
		fmt.Fprintln(os.Stderr, "robust:", err)
		return exitUsage
	}

	jsonBytes, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, "robust:", err)
		return exitUsage
	}

	if *out == "" {
		fmt.Println(string(jsonBytes))
		return exitOK
	}
	if err := os.WriteFile(*out, jsonBytes, 0o644); err != nil {
		fmt.Fprintln(os.Stderr, "robust:", err)
		return exitUsage
	}
	return exitOK
}
