package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1.0, cfg.Damping)
	assert.Equal(t, 10, cfg.Iterations)
	assert.True(t, math.IsInf(cfg.SleepTimeThreshold, 1))
	assert.Equal(t, 0.1, cfg.CollisionSlop)
	assert.InDelta(t, math.Pow(0.9, 60), cfg.CollisionBias, 1e-12)
	assert.Equal(t, uint64(3), cfg.CollisionPersistence)
	assert.Equal(t, IndexBBTree, cfg.Index.Kind)
}

func TestLoad(t *testing.T) {
	doc := `
gravity: {x: 0, y: -9.81}
iterations: 20
sleep_time_threshold: 0.5
index:
  kind: spatial_hash
  cell_size: 2
  cells: 500
`
	cfg, err := Load(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, Vec2{X: 0, Y: -9.81}, cfg.Gravity)
	assert.Equal(t, 20, cfg.Iterations)
	assert.Equal(t, 0.5, cfg.SleepTimeThreshold)
	assert.Equal(t, Index{Kind: IndexSpatialHash, CellSize: 2, Cells: 500}, cfg.Index)

	// untouched fields keep their defaults
	assert.Equal(t, 1.0, cfg.Damping)
	assert.Equal(t, uint64(3), cfg.CollisionPersistence)
}

func TestLoad_Empty(t *testing.T) {
	cfg, err := Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Infinity(t *testing.T) {
	cfg, err := Load(strings.NewReader("sleep_time_threshold: .inf\n"))
	require.NoError(t, err)
	assert.True(t, math.IsInf(cfg.SleepTimeThreshold, 1))
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown field", "gravity_scale: 2\n"},
		{"bad type", "iterations: many\n"},
		{"zero iterations", "iterations: 0\n"},
		{"negative damping", "damping: -1\n"},
		{"infinite gravity", "gravity: {x: .inf, y: 0}\n"},
		{"zero sleep time", "sleep_time_threshold: 0\n"},
		{"bias above one", "collision_bias: 2\n"},
		{"no persistence", "collision_persistence: 0\n"},
		{"no workers", "workers: 0\n"},
		{"unknown index", "index: {kind: quadtree}\n"},
		{"hash without cells", "index: {kind: spatial_hash, cell_size: 1, cells: 0}\n"},
		{"hash without cell size", "index: {kind: spatial_hash, cell_size: 0, cells: 10}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.doc))
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "space.yaml")
	require.NoError(t, os.WriteFile(path, []byte("iterations: 4\n"), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Iterations)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadFile_InvalidKeepsPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "space.yaml")
	require.NoError(t, os.WriteFile(path, []byte("iterations: -2\n"), 0o600))

	_, err := LoadFile(path)
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), path)
}
