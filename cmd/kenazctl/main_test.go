package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/aukilabs/kenaz/messages"
	"github.com/stretchr/testify/require"
)

var cubePath = filepath.Join("..", "..", "mesh", "testdata", "cube.obj")

func runApp(t *testing.T, args ...string) (string, error) {
	var buf bytes.Buffer
	err := newApp(&buf).Run(append([]string{"kenazctl"}, args...))
	return buf.String(), err
}

func TestStats(t *testing.T) {
	out, err := runApp(t, "stats", cubePath)
	require.NoError(t, err)
	require.Contains(t, out, "cube.obj")
	require.Contains(t, out, "12")

	_, err = runApp(t, "stats")
	require.Error(t, err)
}

func TestRaycast(t *testing.T) {
	t.Run("hit", func(t *testing.T) {
		out, err := runApp(t, "raycast", "--origin=0.1,0.2,5", "--direction=0,0,-1", cubePath)
		require.NoError(t, err)
		require.Contains(t, out, "4.5")
	})

	t.Run("miss", func(t *testing.T) {
		out, err := runApp(t, "raycast", "--origin=2,2,5", "--direction=0,0,-1", cubePath)
		require.NoError(t, err)
		require.Contains(t, out, "no hit")
	})

	t.Run("invalid origin", func(t *testing.T) {
		_, err := runApp(t, "raycast", "--origin=2,2", "--direction=0,0,-1", cubePath)
		require.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := runApp(t, "raycast", "--origin=2,2,5", "--direction=0,0,-1")
		require.Error(t, err)
	})
}

func TestNearest(t *testing.T) {
	out, err := runApp(t, "nearest", "--point=0.1,-0.2,2", cubePath)
	require.NoError(t, err)
	require.Contains(t, out, "1.5")

	out, err = runApp(t, "nearest", "--point=0,0,2", "--max-distance=1", cubePath)
	require.NoError(t, err)
	require.Contains(t, out, "no hit")
}

func TestOverlap(t *testing.T) {
	out, err := runApp(t, "overlap", cubePath)
	require.NoError(t, err)
	require.Contains(t, out, "Pairs")

	out, err = runApp(t, "overlap", "--bounds-only", cubePath, cubePath)
	require.NoError(t, err)
	require.Contains(t, out, "Pairs")

	_, err = runApp(t, "overlap", cubePath, cubePath, cubePath)
	require.Error(t, err)
}

func TestTreeOptionsFlags(t *testing.T) {
	_, err := runApp(t, "--tree-type=1", "stats", cubePath)
	require.Error(t, err)

	_, err = runApp(t, "--axis=26", "--tree-type=2", "stats", cubePath)
	require.NoError(t, err)
}

func TestParseVector(t *testing.T) {
	v, err := parseVector("1, -2.5,3e2")
	require.NoError(t, err)
	require.Equal(t, messages.Vector{1, -2.5, 300}, v)

	_, err = parseVector("1,2")
	require.Error(t, err)

	_, err = parseVector("1,two,3")
	require.Error(t, err)
}
