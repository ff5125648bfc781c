package video_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gjp-labs/forensicmark/video"
)

func naturalFrame(width, height, seed int) video.Frame {
	rgb := make([]uint8, width*height*3)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			rgb[i*3] = uint8((x*7 + y*3 + seed*11) % 256)
			rgb[i*3+1] = uint8((y*5 + seed*13) % 256)
			rgb[i*3+2] = uint8((x*3 + y*7 + seed*17) % 256)
		}
	}
	return video.Frame{Width: width, Height: height, RGB: rgb}
}

func solidFrame(width, height int, v uint8) video.Frame {
	rgb := make([]uint8, width*height*3)
	for i := range rgb {
		rgb[i] = v
	}
	return video.Frame{Width: width, Height: height, RGB: rgb}
}

func manyFrames(n, width, height int) []video.Frame {
	frames := make([]video.Frame, n)
	for i := range frames {
		frames[i] = naturalFrame(width, height, i)
	}
	return frames
}

func TestShardedEmbedExtractCleanRoundTrip(t *testing.T) {
	frames := manyFrames(30, 160, 160)
	opts := video.DefaultOptions()
	payload := []byte("©AB|Alex|GJPSHARD1")
	payloadHash := "deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef"

	embedResult, err := video.Embed(context.Background(), frames, "GJP-MEDIA-2026-VID1", payloadHash, payload, opts)
	require.NoError(t, err)
	require.Len(t, embedResult.Frames, 30)
	assert.Equal(t, 3, embedResult.ShardsTotal)

	extractResult, err := video.Extract(context.Background(), embedResult.Frames, "GJP-MEDIA-2026-VID1", payloadHash, len(payload), opts)
	require.NoError(t, err)
	assert.Equal(t, payload, extractResult.Payload)
	assert.Equal(t, extractResult.ShardsTotal, extractResult.ShardsRecovered)
	assert.GreaterOrEqual(t, extractResult.Confidence, 0.5)
}

func TestShardedExtractSurvivesDroppedFrames(t *testing.T) {
	frames := manyFrames(30, 160, 160)
	opts := video.DefaultOptions()
	payload := []byte("©AB|Alex|GJPSHARD2")
	payloadHash := "cafebabecafebabecafebabecafebabecafebabecafebabecafebabecafebab"

	embedResult, err := video.Embed(context.Background(), frames, "GJP-MEDIA-2026-VID2", payloadHash, payload, opts)
	require.NoError(t, err)

	// Drop every 5th frame (20%), keeping shard intervals populated enough
	// for the stride-5 sampler to still find surviving candidates.
	var survived []video.Frame
	for i, f := range embedResult.Frames {
		if i%5 == 4 {
			continue
		}
		survived = append(survived, f)
	}

	extractResult, err := video.Extract(context.Background(), survived, "GJP-MEDIA-2026-VID2", payloadHash, len(payload), opts)
	require.NoError(t, err)
	assert.Equal(t, extractResult.ShardsTotal, extractResult.ShardsRecovered)
	assert.Equal(t, payload, extractResult.Payload)
}

func TestTextureGateSkipsFlatFrames(t *testing.T) {
	frames := make([]video.Frame, 12)
	for i := range frames {
		frames[i] = solidFrame(160, 160, 128)
	}
	opts := video.DefaultOptions()
	opts.TextureGate = true

	result, err := video.Embed(context.Background(), frames, "GJP-MEDIA-2026-VID3", "abc123", []byte("AB"), opts)
	require.NoError(t, err)
	assert.Equal(t, len(frames), result.TextureSkipped)
}

func TestFrameSamplingSkipsNonMultiples(t *testing.T) {
	frames := manyFrames(20, 160, 160)
	opts := video.DefaultOptions()
	opts.FrameSamplingRate = 2

	result, err := video.Embed(context.Background(), frames, "GJP-MEDIA-2026-VID4", "abc123", []byte("AB"), opts)
	require.NoError(t, err)
	assert.Greater(t, result.SamplingSkipped, 0)
}

func TestEmbedCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	frames := manyFrames(5, 64, 64)
	_, err := video.Embed(ctx, frames, "GJP-MEDIA-2026-VID5", "abc123", []byte("AB"), video.DefaultOptions())
	assert.ErrorIs(t, err, video.ErrCancelled)
}

func TestExtractNoFramesReturnsEmpty(t *testing.T) {
	result, err := video.Extract(context.Background(), nil, "GJP-MEDIA-2026-VID6", "abc123", 2, video.DefaultOptions())
	require.NoError(t, err)
	assert.Nil(t, result.Payload)
}
