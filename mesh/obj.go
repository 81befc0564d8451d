package mesh

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

// NoIndex marks a missing texture coordinate or normal in a face vertex.
const NoIndex = -1

// FaceVertex references the position, texture coordinate and normal of a
// face corner. Indices are zero based.
type FaceVertex struct {
	Pos    int
	UV     int
	Normal int
}

// OBJ is the content of a Wavefront OBJ file.
type OBJ struct {
	Positions []r3.Vector
	UVs       []r2.Point
	Normals   []r3.Vector
	Faces     [][]FaceVertex
	Lines     [][]int

	FaceHasUV     bool
	FaceHasNormal bool
}

// ReadFile reads the mesh file at the given path. Only the .obj format is
// supported.
func ReadFile(path string) (*OBJ, error) {
	if !strings.EqualFold(filepath.Ext(path), ".obj") {
		return nil, errUnsupportedFormat(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New("opening mesh file failed").
			WithTag("path", path).
			Wrap(err)
	}
	defer f.Close()

	obj, err := ReadOBJ(f)
	if err != nil {
		return nil, errors.New("reading mesh file failed").
			WithType(errors.Type(err)).
			WithTag("path", path).
			Wrap(err)
	}
	return obj, nil
}

// WriteFile writes the mesh to the given path. Only the .obj format is
// supported.
func WriteFile(path string, obj *OBJ) error {
	if !strings.EqualFold(filepath.Ext(path), ".obj") {
		return errUnsupportedFormat(path)
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.New("creating mesh file failed").
			WithTag("path", path).
			Wrap(err)
	}

	if err = WriteOBJ(f, obj); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadOBJ parses Wavefront OBJ content. Vertices (v), texture coordinates
// (vt), normals (vn), faces (f) and lines (l) are read; other statements are
// ignored.
func ReadOBJ(r io.Reader) (*OBJ, error) {
	var obj OBJ

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		var err error
		switch fields[0] {
		case "v":
			err = obj.parseVector(fields, &obj.Positions)
		case "vn":
			err = obj.parseVector(fields, &obj.Normals)
		case "vt":
			err = obj.parseUV(fields)
		case "f":
			err = obj.parseFace(fields)
		case "l":
			err = obj.parseLine(fields)
		}
		if err != nil {
			return nil, errors.New("invalid "+fields[0]+" statement").
				WithType(ErrTypeInvalidFile).
				WithTag("line", lineNum).
				Wrap(err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.New("scanning obj failed").Wrap(err)
	}

	if err := obj.Validate(); err != nil {
		return nil, err
	}
	return &obj, nil
}

func (o *OBJ) parseVector(fields []string, dst *[]r3.Vector) error {
	// 4 component positions are not supported.
	if len(fields) != 4 {
		return errors.Newf("expected 3 coordinates, got %d", len(fields)-1)
	}

	var v [3]float64
	for i := range v {
		f, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return err
		}
		v[i] = f
	}

	*dst = append(*dst, r3.Vector{X: v[0], Y: v[1], Z: v[2]})
	return nil
}

func (o *OBJ) parseUV(fields []string) error {
	if len(fields) != 3 {
		return errors.Newf("expected 2 coordinates, got %d", len(fields)-1)
	}

	u, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return err
	}
	v, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return err
	}

	o.UVs = append(o.UVs, r2.Point{X: u, Y: v})
	return nil
}

func (o *OBJ) parseFace(fields []string) error {
	if len(fields) < 4 {
		return errors.Newf("expected at least 3 vertices, got %d", len(fields)-1)
	}

	face := make([]FaceVertex, 0, len(fields)-1)
	for _, f := range fields[1:] {
		indices := strings.Split(f, "/")
		fv := FaceVertex{UV: NoIndex, Normal: NoIndex}

		var err error
		switch len(indices) {
		case 1:
			fv.Pos, err = parseIndex(indices[0])

		case 2:
			if fv.Pos, err = parseIndex(indices[0]); err != nil {
				return err
			}
			fv.UV, err = parseIndex(indices[1])
			o.FaceHasUV = true

		case 3:
			if fv.Pos, err = parseIndex(indices[0]); err != nil {
				return err
			}
			if indices[1] != "" {
				if fv.UV, err = parseIndex(indices[1]); err != nil {
					return err
				}
				o.FaceHasUV = true
			}
			fv.Normal, err = parseIndex(indices[2])
			o.FaceHasNormal = true

		default:
			return errors.Newf("malformed face vertex %q", f)
		}
		if err != nil {
			return err
		}

		face = append(face, fv)
	}

	o.Faces = append(o.Faces, face)
	return nil
}

func (o *OBJ) parseLine(fields []string) error {
	if len(fields) < 3 {
		return errors.Newf("expected at least 2 vertices, got %d", len(fields)-1)
	}

	line := make([]int, 0, len(fields)-1)
	for _, f := range fields[1:] {
		idx, err := parseIndex(f)
		if err != nil {
			return err
		}
		line = append(line, idx)
	}

	o.Lines = append(o.Lines, line)
	return nil
}

func parseIndex(s string) (int, error) {
	idx, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if idx < 1 {
		return 0, errors.Newf("index %d is not positive", idx)
	}
	return idx - 1, nil
}

// Validate checks that every face and line index refers to an existing
// position, texture coordinate or normal.
func (o *OBJ) Validate() error {
	for i, face := range o.Faces {
		for _, fv := range face {
			if err := checkIndex(fv.Pos, len(o.Positions), false); err != nil {
				return invalidFace(i, "position", err)
			}
			if err := checkIndex(fv.UV, len(o.UVs), true); err != nil {
				return invalidFace(i, "uv", err)
			}
			if err := checkIndex(fv.Normal, len(o.Normals), true); err != nil {
				return invalidFace(i, "normal", err)
			}
		}
	}

	for i, line := range o.Lines {
		for _, idx := range line {
			if err := checkIndex(idx, len(o.Positions), false); err != nil {
				return errors.New("invalid line").
					WithType(ErrTypeInvalidFile).
					WithTag("line_index", i).
					Wrap(err)
			}
		}
	}
	return nil
}

func checkIndex(idx, size int, optional bool) error {
	if optional && idx == NoIndex {
		return nil
	}
	if idx < 0 || idx >= size {
		return errors.Newf("index %d out of range [0, %d)", idx, size)
	}
	return nil
}

func invalidFace(face int, attr string, err error) error {
	return errors.New("invalid face").
		WithType(ErrTypeInvalidFile).
		WithTag("face_index", face).
		WithTag("attribute", attr).
		Wrap(err)
}

// WriteOBJ writes obj in the Wavefront OBJ format.
func WriteOBJ(w io.Writer, obj *OBJ) error {
	bw := bufio.NewWriter(w)

	for _, p := range obj.Positions {
		fmt.Fprintf(bw, "v %s %s %s\n", formatFloat(p.X), formatFloat(p.Y), formatFloat(p.Z))
	}
	for _, uv := range obj.UVs {
		fmt.Fprintf(bw, "vt %s %s\n", formatFloat(uv.X), formatFloat(uv.Y))
	}
	for _, n := range obj.Normals {
		fmt.Fprintf(bw, "vn %s %s %s\n", formatFloat(n.X), formatFloat(n.Y), formatFloat(n.Z))
	}

	for _, face := range obj.Faces {
		bw.WriteString("f")
		for _, fv := range face {
			bw.WriteString(" ")
			bw.WriteString(formatFaceVertex(fv))
		}
		bw.WriteString("\n")
	}

	for _, line := range obj.Lines {
		bw.WriteString("l")
		for _, idx := range line {
			fmt.Fprintf(bw, " %d", idx+1)
		}
		bw.WriteString("\n")
	}

	if err := bw.Flush(); err != nil {
		return errors.New("writing obj failed").Wrap(err)
	}
	return nil
}

func formatFaceVertex(fv FaceVertex) string {
	pos := strconv.Itoa(fv.Pos + 1)

	switch {
	case fv.UV == NoIndex && fv.Normal == NoIndex:
		return pos
	case fv.Normal == NoIndex:
		return fmt.Sprintf("%s/%d", pos, fv.UV+1)
	case fv.UV == NoIndex:
		return fmt.Sprintf("%s//%d", pos, fv.Normal+1)
	default:
		return fmt.Sprintf("%s/%d/%d", pos, fv.UV+1, fv.Normal+1)
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
