package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/octogo/geom"
	"github.com/hupe1980/octogo/ident"
)

const sampleInput = `{"elements": [
	{"id": "1", "box": {"min": [0, 0, 0], "max": [32, 32, 32]}},
	{"id": "2", "segment": {"a": [40, 40, 40], "b": [60, 40, 40]}},
	{"id": "3", "face": [[0, 0, 50], [10, 0, 50], [0, 10, 50]]},
	{"id": "4", "polyhedron": {
		"vertices": [[33, 0, 0], [63, 0, 0], [33, 30, 0], [33, 0, 30]],
		"faces": [[0, 2, 1], [0, 1, 3], [0, 3, 2], [1, 2, 3]]
	}}
]}`

func TestDecodeItems(t *testing.T) {
	items, err := decodeItems(strings.NewReader(sampleInput))
	require.NoError(t, err)
	require.Len(t, items, 4)
	assert.Equal(t, ident.FromUint64(1), items[0].Identity)
	assert.IsType(t, geom.Box{}, items[0].Solid)
	assert.IsType(t, geom.Segment{}, items[1].Solid)

	_, err = decodeItems(strings.NewReader(`{"elements": [{"id": "1"}]}`))
	assert.Error(t, err)

	_, err = decodeItems(strings.NewReader(`{"elements": [{"id": "#", "segment": {}}]}`))
	assert.Error(t, err)

	_, err = decodeItems(strings.NewReader(`{"elements": [{"id": "1", "segment": {}, "box": {}}]}`))
	assert.Error(t, err)
}

func TestParseWorld(t *testing.T) {
	space, err := parseWorld("0,0,0,64,64,64")
	require.NoError(t, err)
	assert.Equal(t, geom.V(64, 64, 64), space.World().Max)

	_, err = parseWorld("0,0,0")
	assert.Error(t, err)
}

func TestRun_BuildQueryRelate(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	input := filepath.Join(dir, "in.json")
	require.NoError(t, os.WriteFile(input, []byte(sampleInput), 0o600))

	conf := config{
		Mode:        "build",
		Model:       "tower",
		Input:       input,
		World:       "0,0,0,64,64,64",
		MaxDepth:    4,
		Compression: "zstd",
		Store:       storeConfig{URL: "file://" + filepath.Join(dir, "data")},
		LogLevel:    "error",
	}

	var out bytes.Buffer
	require.NoError(t, run(ctx, conf, &out))
	var built buildOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &built))
	assert.Equal(t, 4, built.Elements)
	assert.Equal(t, uint64(1), built.Version)

	probe := filepath.Join(dir, "probe.json")
	require.NoError(t, os.WriteFile(probe, []byte(`{"elements": [{"id": "9", "box": {"min": [4, 4, 4], "max": [8, 8, 8]}}]}`), 0o600))

	conf.Mode, conf.Input = "query", probe
	out.Reset()
	require.NoError(t, run(ctx, conf, &out))
	var hits []queryOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &hits))
	require.Len(t, hits, 1)
	assert.Equal(t, []ident.ID{ident.FromUint64(1)}, hits[0].Hits)

	conf.Mode = "relate"
	out.Reset()
	require.NoError(t, run(ctx, conf, &out))
	var rel []relateOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &rel))
	require.NotEmpty(t, rel)
	assert.Equal(t, "leaf-with-ancestor", rel[0].Kind)

	conf.Mode = "models"
	out.Reset()
	require.NoError(t, run(ctx, conf, &out))
	assert.JSONEq(t, `["tower"]`, out.String())

	conf.Mode = "drop"
	out.Reset()
	require.NoError(t, run(ctx, conf, &out))
	require.Error(t, run(ctx, conf, &out))
}

func TestRun_RebuildReplacesCells(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	input := filepath.Join(dir, "in.json")
	probe := filepath.Join(dir, "probe.json")
	require.NoError(t, os.WriteFile(input, []byte(sampleInput), 0o600))
	require.NoError(t, os.WriteFile(probe, []byte(`{"elements": [{"id": "9", "box": {"min": [4, 4, 4], "max": [8, 8, 8]}}]}`), 0o600))

	conf := config{
		Mode:        "build",
		Model:       "tower",
		Input:       input,
		World:       "0,0,0,64,64,64",
		MaxDepth:    4,
		Compression: "lz4",
		Store:       storeConfig{URL: "file://" + filepath.Join(dir, "data")},
	}
	var out bytes.Buffer
	require.NoError(t, run(ctx, conf, &out))

	// Element 1 moves out of the probed octant.
	moved := filepath.Join(dir, "moved.json")
	require.NoError(t, os.WriteFile(moved, []byte(`{"elements": [{"id": "1", "box": {"min": [32, 32, 32], "max": [64, 64, 64]}}]}`), 0o600))
	conf.Input = moved
	out.Reset()
	require.NoError(t, run(ctx, conf, &out))
	var built buildOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &built))
	assert.Equal(t, uint64(2), built.Version)
	assert.Equal(t, 1, built.Elements)

	conf.Mode, conf.Input = "query", probe
	out.Reset()
	require.NoError(t, run(ctx, conf, &out))
	var hits []queryOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &hits))
	require.Len(t, hits, 1)
	assert.Empty(t, hits[0].Hits)
}

func TestValidateConfig(t *testing.T) {
	assert.Error(t, validateConfig(config{Mode: "explode"}))
	assert.Error(t, validateConfig(config{Mode: "build"}))
	assert.Error(t, validateConfig(config{Mode: "build", Model: "m", Compression: "gzip"}))
	assert.NoError(t, validateConfig(config{Mode: "models"}))
	assert.NoError(t, validateConfig(config{Mode: "query", Model: "m", Compression: "lz4"}))
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	_, err := openStore(ctx, storeConfig{URL: "mem://"})
	require.NoError(t, err)

	_, err = openStore(ctx, storeConfig{URL: "ftp://host/x"})
	assert.Error(t, err)

	_, err = openStore(ctx, storeConfig{URL: "minio://localhost:9000/"})
	assert.Error(t, err)

	bucket, prefix := splitBucket("/models/octogo/dev/")
	assert.Equal(t, "models", bucket)
	assert.Equal(t, "octogo/dev", prefix)
}
