package spatialmath

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/regsynth/utils"
)

const (
	stlHeaderSize = 80
	stlRecordSize = 50
)

// IsMeshFile reports whether fn has an extension NewMeshFromFile can read.
func IsMeshFile(fn string) bool {
	switch strings.ToLower(filepath.Ext(fn)) {
	case ".stl", ".obj":
		return true
	default:
		return false
	}
}

// NewMeshFromFile reads an STL (ascii or binary) or Wavefront OBJ mesh, chosen by extension.
func NewMeshFromFile(fn string) (*Mesh, error) {
	var read func(io.Reader) (*Mesh, error)
	switch strings.ToLower(filepath.Ext(fn)) {
	case ".stl":
		read = ReadSTL
	case ".obj":
		read = ReadOBJ
	default:
		return nil, errors.Errorf("do not know how to read mesh file %q", fn)
	}

	//nolint:gosec
	f, err := os.Open(fn)
	if err != nil {
		return nil, utils.NewIOError(fn, err)
	}
	defer goutils.UncheckedErrorFunc(f.Close)

	m, err := read(bufio.NewReader(f))
	if err != nil {
		return nil, errors.Wrapf(err, "reading %q", fn)
	}
	return m, nil
}

// ReadSTL reads an STL stream. A stream whose length matches the triangle count in
// its binary header is binary, anything else starting with "solid" is ascii.
// Identical corners are merged into one vertex.
func ReadSTL(in io.Reader) (*Mesh, error) {
	data, err := io.ReadAll(in)
	if err != nil {
		return nil, errors.Wrap(err, "reading stl")
	}
	if len(data) >= stlHeaderSize+4 {
		count := int64(binary.LittleEndian.Uint32(data[stlHeaderSize:]))
		if int64(len(data)) == stlHeaderSize+4+count*stlRecordSize {
			return readSTLBinary(data[stlHeaderSize+4:], int(count))
		}
	}
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("solid")) {
		return readSTLAscii(data)
	}
	return nil, utils.NewParseError("stl is neither ascii nor a binary file of matching length (%d bytes)", len(data))
}

func readSTLBinary(records []byte, count int) (*Mesh, error) {
	b := newMeshBuilder()
	for i := 0; i < count; i++ {
		record := records[i*stlRecordSize:]
		var corners [3]r3.Vector
		// the stored facet normal (first 12 bytes) is recomputed from the corners
		for c := range corners {
			offset := 12 + 12*c
			corners[c] = r3.Vector{
				X: float64(math.Float32frombits(binary.LittleEndian.Uint32(record[offset:]))),
				Y: float64(math.Float32frombits(binary.LittleEndian.Uint32(record[offset+4:]))),
				Z: float64(math.Float32frombits(binary.LittleEndian.Uint32(record[offset+8:]))),
			}
		}
		b.addFace(corners)
	}
	return b.mesh()
}

func readSTLAscii(data []byte) (*Mesh, error) {
	b := newMeshBuilder()
	var corners []r3.Vector
	inFacet := false
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		tokens := strings.Fields(scanner.Text())
		if len(tokens) == 0 {
			continue
		}
		switch tokens[0] {
		case "facet":
			if inFacet {
				return nil, utils.NewParseError("line %d: facet inside facet", lineNum)
			}
			inFacet = true
			corners = corners[:0]
		case "vertex":
			if !inFacet {
				return nil, utils.NewParseError("line %d: vertex outside of a facet", lineNum)
			}
			values, err := parseFloats(tokens[1:], 3)
			if err != nil {
				return nil, utils.NewParseError("line %d: %v", lineNum, err)
			}
			corners = append(corners, r3.Vector{X: values[0], Y: values[1], Z: values[2]})
		case "endfacet":
			if len(corners) != 3 {
				return nil, utils.NewParseError("line %d: facet has %d vertices, expected 3", lineNum, len(corners))
			}
			b.addFace([3]r3.Vector{corners[0], corners[1], corners[2]})
			inFacet = false
		case "solid", "endsolid", "outer", "endloop":
		default:
			return nil, utils.NewParseError("line %d: unknown keyword %q", lineNum, tokens[0])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading stl")
	}
	if inFacet {
		return nil, utils.NewParseError("stl ends inside a facet")
	}
	return b.mesh()
}

// ReadOBJ reads the vertices and faces of a Wavefront OBJ stream. Polygons with more
// than three corners are split into a fan of triangles. Texture coordinates, vertex
// normals, groups and materials are ignored.
func ReadOBJ(in io.Reader) (*Mesh, error) {
	var vertices []r3.Vector
	var faces [][3]int
	scanner := bufio.NewScanner(in)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		tokens := strings.Fields(scanner.Text())
		if len(tokens) == 0 || strings.HasPrefix(tokens[0], "#") {
			continue
		}
		switch tokens[0] {
		case "v":
			// extra columns are w or vertex colors
			values, err := parseFloats(tokens[1:min(len(tokens), 4)], 3)
			if err != nil {
				return nil, utils.NewParseError("line %d: %v", lineNum, err)
			}
			vertices = append(vertices, r3.Vector{X: values[0], Y: values[1], Z: values[2]})
		case "f":
			if len(tokens) < 4 {
				return nil, utils.NewParseError("line %d: face has %d corners, expected at least 3", lineNum, len(tokens)-1)
			}
			corners := make([]int, len(tokens)-1)
			for i, token := range tokens[1:] {
				idx, err := objIndex(token, len(vertices))
				if err != nil {
					return nil, utils.NewParseError("line %d: %v", lineNum, err)
				}
				corners[i] = idx
			}
			for i := 1; i+1 < len(corners); i++ {
				faces = append(faces, [3]int{corners[0], corners[i], corners[i+1]})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading obj")
	}
	return NewMesh(vertices, faces)
}

// objIndex resolves a face corner such as "7", "7/2/7" or "-1" to a zero based vertex index.
func objIndex(token string, numVertices int) (int, error) {
	ref, _, _ := strings.Cut(token, "/")
	idx, err := strconv.Atoi(ref)
	if err != nil || idx == 0 {
		return 0, errors.Errorf("invalid face corner %q", token)
	}
	if idx < 0 {
		idx += numVertices
	} else {
		idx--
	}
	if idx < 0 || idx >= numVertices {
		return 0, errors.Errorf("face corner %q refers to a vertex that is not defined yet", token)
	}
	return idx, nil
}

func parseFloats(tokens []string, n int) ([]float64, error) {
	if len(tokens) != n {
		return nil, errors.Errorf("found %d values, expected %d", len(tokens), n)
	}
	values := make([]float64, n)
	for i, token := range tokens {
		v, err := strconv.ParseFloat(token, 64)
		if err != nil {
			return nil, errors.Errorf("invalid value %q", token)
		}
		values[i] = v
	}
	return values, nil
}

// meshBuilder merges identical corners of triangle soups into shared vertices.
type meshBuilder struct {
	index    map[r3.Vector]int
	vertices []r3.Vector
	faces    [][3]int
}

func newMeshBuilder() *meshBuilder {
	return &meshBuilder{index: map[r3.Vector]int{}}
}

func (b *meshBuilder) addFace(corners [3]r3.Vector) {
	var face [3]int
	for i, c := range corners {
		idx, ok := b.index[c]
		if !ok {
			idx = len(b.vertices)
			b.index[c] = idx
			b.vertices = append(b.vertices, c)
		}
		face[i] = idx
	}
	b.faces = append(b.faces, face)
}

func (b *meshBuilder) mesh() (*Mesh, error) {
	return NewMesh(b.vertices, b.faces)
}
