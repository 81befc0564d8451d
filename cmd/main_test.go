package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/aukilabs/kenaz/mesh"
	"github.com/aukilabs/kenaz/models"
	"github.com/stretchr/testify/require"
)

var cubePath = filepath.Join("..", "mesh", "testdata", "cube.obj")

func TestLoadScenes(t *testing.T) {
	t.Run("names from files", func(t *testing.T) {
		var scenes models.SceneStore
		err := loadScenes(&scenes, []string{cubePath, "box=" + cubePath}, mesh.DefaultTreeOptions())
		require.NoError(t, err)
		require.Equal(t, 2, scenes.Len())

		cube, ok := scenes.Get(1)
		require.True(t, ok)
		require.Equal(t, "cube", cube.Name)
		require.Equal(t, 12, cube.TriangleCount())

		box, ok := scenes.Get(2)
		require.True(t, ok)
		require.Equal(t, "box", box.Name)
	})

	t.Run("missing file", func(t *testing.T) {
		var scenes models.SceneStore
		err := loadScenes(&scenes, []string{"missing.obj"}, mesh.DefaultTreeOptions())
		require.Error(t, err)
		require.Zero(t, scenes.Len())
	})
}

func TestValidateConfig(t *testing.T) {
	valid := func() config {
		opts := mesh.DefaultTreeOptions()
		return config{
			PublicEndpoint:     "http://localhost:4100",
			TreeType:           opts.TreeType,
			Axis:               opts.Axis,
			Epsilon:            opts.Epsilon,
			ClientIdleTimeout:  time.Minute,
			LogSummaryInterval: time.Minute,
		}
	}

	tests := []struct {
		name    string
		update  func(*config)
		isValid bool
	}{
		{
			name:    "valid",
			update:  func(c *config) {},
			isValid: true,
		},
		{
			name:   "invalid public endpoint",
			update: func(c *config) { c.PublicEndpoint = "localhost" },
		},
		{
			name:   "invalid report endpoint",
			update: func(c *config) { c.ReportEndpoint = "collector" },
		},
		{
			name:   "invalid tree type",
			update: func(c *config) { c.TreeType = 64 },
		},
		{
			name:   "invalid axis",
			update: func(c *config) { c.Axis = 7 },
		},
		{
			name: "feature flags",
			update: func(c *config) {
				c.FeatureFlags = []string{"BOUNDS_ONLY_QUERIES", "DISABLE_SELF_OVERLAP"}
			},
			isValid: true,
		},
		{
			name:   "unknown feature flag",
			update: func(c *config) { c.FeatureFlags = []string{"SYNC_CLOCK"} },
		},
		{
			name:   "zero idle timeout",
			update: func(c *config) { c.ClientIdleTimeout = 0 },
		},
		{
			name:   "zero log summary interval",
			update: func(c *config) { c.LogSummaryInterval = 0 },
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			conf := valid()
			test.update(&conf)

			err := validateConfig(conf)
			if test.isValid {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
		})
	}
}
