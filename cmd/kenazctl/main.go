// Package main is kenazctl, a command line tool that runs Kenaz scene queries
// on mesh files without a server.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/kenaz/bvh"
	"github.com/aukilabs/kenaz/mesh"
	"github.com/aukilabs/kenaz/messages"
	"github.com/aukilabs/kenaz/models"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"
)

const (
	flagTreeType    = "tree-type"
	flagAxis        = "axis"
	flagEpsilon     = "epsilon"
	flagBoundsOnly  = "bounds-only"
	flagOrigin      = "origin"
	flagDirection   = "direction"
	flagPoint       = "point"
	flagMaxDistance = "max-distance"
	flagVerbose     = "verbose"
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp(w io.Writer) *cli.App {
	defaults := mesh.DefaultTreeOptions()

	boundsOnlyFlag := &cli.BoolFlag{
		Name:  flagBoundsOnly,
		Usage: "query the triangle leaf bounds instead of the triangles",
	}

	return &cli.App{
		Name:   "kenazctl",
		Usage:  "query triangle meshes indexed in a k-DOP bounding volume hierarchy",
		Writer: w,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  flagTreeType,
				Value: defaults.TreeType,
				Usage: "maximum number of children of a tree branch (2-32)",
			},
			&cli.IntFlag{
				Name:  flagAxis,
				Value: defaults.Axis,
				Usage: "number of k-DOP bounds of a tree node (6|8|14|18|26)",
			},
			&cli.Float64Flag{
				Name:  flagEpsilon,
				Value: defaults.Epsilon,
				Usage: "margin added around triangle bounds",
			},
			&cli.BoolFlag{
				Name:    flagVerbose,
				Aliases: []string{"v"},
				Usage:   "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			level := "warning"
			if c.Bool(flagVerbose) {
				level = "debug"
			}
			logs.SetLevel(logs.ParseLevel(level))
			return treeOptions(c).Validate()
		},
		Commands: []*cli.Command{
			{
				Name:      "stats",
				Usage:     "show the hierarchy built over mesh files",
				ArgsUsage: "mesh_file1.obj mesh_file2.obj ...",
				Action:    stats,
			},
			{
				Name:      "raycast",
				Usage:     "cast a ray on a mesh file",
				ArgsUsage: "mesh_file.obj",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     flagOrigin,
						Usage:    "ray origin as `X,Y,Z`",
						Required: true,
					},
					&cli.StringFlag{
						Name:     flagDirection,
						Usage:    "ray direction as `X,Y,Z`",
						Required: true,
					},
					boundsOnlyFlag,
				},
				Action: raycast,
			},
			{
				Name:      "nearest",
				Usage:     "find the triangle of a mesh file closest to a point",
				ArgsUsage: "mesh_file.obj",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     flagPoint,
						Usage:    "query point as `X,Y,Z`",
						Required: true,
					},
					&cli.Float64Flag{
						Name:  flagMaxDistance,
						Usage: "maximum search distance, 0 does not limit the search",
					},
					boundsOnlyFlag,
				},
				Action: nearest,
			},
			{
				Name:  "overlap",
				Usage: "list the intersecting triangles of two mesh files",
				Description: `
Without a second mesh file, the intersecting triangles of the first mesh are
listed. Each pair is then reported once.`,
				ArgsUsage: "mesh_file.obj [other_mesh_file.obj]",
				Flags: []cli.Flag{
					boundsOnlyFlag,
				},
				Action: overlap,
			},
		},
	}
}

func treeOptions(c *cli.Context) mesh.TreeOptions {
	return mesh.TreeOptions{
		TreeType: c.Int(flagTreeType),
		Axis:     c.Int(flagAxis),
		Epsilon:  c.Float64(flagEpsilon),
	}
}

func stats(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("missing mesh file")
	}

	opts := treeOptions(c)

	table := tablewriter.NewWriter(c.App.Writer)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Mesh", "Faces", "Triangles", "Depth", "Nodes per level", "Leaves", "Build time"})

	for _, path := range c.Args().Slice() {
		obj, err := mesh.ReadFile(path)
		if err != nil {
			return err
		}
		m := mesh.FromOBJ(obj)

		start := time.Now()
		tree := m.BuildTree(opts)
		buildTime := time.Since(start)

		var levels []string
		var leaves int
		for depth, count := range countNodes(tree) {
			levels = append(levels, fmt.Sprintf("%d:%d", depth, count))
		}
		tree.Walk(func(n bvh.NodeInfo[float64, int]) bool {
			if n.Leaf {
				leaves++
			}
			return true
		})

		table.Append([]string{
			filepath.Base(path),
			strconv.Itoa(m.FaceCount),
			strconv.Itoa(len(m.Triangles)),
			strconv.Itoa(tree.Depth()),
			strings.Join(levels, " "),
			strconv.Itoa(leaves),
			buildTime.String(),
		})
	}

	table.Render()
	return nil
}

// countNodes returns the number of nodes of each tree level.
func countNodes(tree *mesh.Tree) []int {
	var counts []int
	tree.Walk(func(n bvh.NodeInfo[float64, int]) bool {
		for len(counts) <= n.Depth {
			counts = append(counts, 0)
		}
		counts[n.Depth]++
		return true
	})
	return counts
}

func raycast(c *cli.Context) error {
	origin, err := parseVector(c.String(flagOrigin))
	if err != nil {
		return err
	}
	dir, err := parseVector(c.String(flagDirection))
	if err != nil {
		return err
	}

	scene, err := loadScene(c, 1, c.Args().First())
	if err != nil {
		return err
	}

	hit, err := scene.RayCast(origin, dir, c.Bool(flagBoundsOnly))
	if err != nil {
		return err
	}
	writeHit(c.App.Writer, hit)
	return nil
}

func nearest(c *cli.Context) error {
	point, err := parseVector(c.String(flagPoint))
	if err != nil {
		return err
	}

	scene, err := loadScene(c, 1, c.Args().First())
	if err != nil {
		return err
	}

	hit, err := scene.Nearest(point, c.Float64(flagMaxDistance), c.Bool(flagBoundsOnly))
	if err != nil {
		return err
	}
	writeHit(c.App.Writer, hit)
	return nil
}

func overlap(c *cli.Context) error {
	if c.NArg() > 2 {
		return errors.New("too many mesh files").WithTag("count", c.NArg())
	}

	scene, err := loadScene(c, 1, c.Args().First())
	if err != nil {
		return err
	}

	other := scene
	if c.NArg() == 2 {
		if other, err = loadScene(c, 2, c.Args().Get(1)); err != nil {
			return err
		}
	}

	pairs := scene.Overlap(other, c.Bool(flagBoundsOnly))

	table := tablewriter.NewWriter(c.App.Writer)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{scene.Name, other.Name})
	for _, p := range pairs {
		table.Append([]string{strconv.Itoa(p.A), strconv.Itoa(p.B)})
	}
	table.SetFooter([]string{"Pairs", strconv.Itoa(len(pairs))})
	table.Render()
	return nil
}

func loadScene(c *cli.Context, id uint32, path string) (*models.Scene, error) {
	if path == "" {
		return nil, errors.New("missing mesh file")
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return models.LoadScene(id, name, path, treeOptions(c))
}

func writeHit(w io.Writer, h *messages.Hit) {
	if h == nil {
		fmt.Fprintln(w, "no hit")
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Triangle", "Face", "Point", "Normal", "Distance"})
	table.Append([]string{
		strconv.Itoa(h.Triangle),
		strconv.Itoa(h.Face),
		formatVector(h.Point),
		formatVector(h.Normal),
		strconv.FormatFloat(h.Distance, 'g', 6, 64),
	})
	table.Render()
}

func parseVector(s string) (messages.Vector, error) {
	var v messages.Vector

	fields := strings.Split(s, ",")
	if len(fields) != len(v) {
		return v, errors.New("vector must have 3 comma separated coordinates").
			WithTag("vector", s)
	}

	for i, f := range fields {
		c, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return v, errors.New("invalid vector coordinate").
				WithTag("vector", s).
				Wrap(err)
		}
		v[i] = c
	}
	return v, nil
}

func formatVector(v messages.Vector) string {
	return fmt.Sprintf("%.4g,%.4g,%.4g", v[0], v[1], v[2])
}
