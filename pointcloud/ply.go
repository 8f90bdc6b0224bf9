package pointcloud

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"image/color"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/regsynth/utils"
)

// PLYFormat is the encoding of the data region of a ply file.
type PLYFormat int

const (
	// PLYAscii writes one whitespace separated line per point.
	PLYAscii PLYFormat = 0
	// PLYBinary writes packed little endian records.
	PLYBinary PLYFormat = 1
)

func (f PLYFormat) String() string {
	switch f {
	case PLYAscii:
		return "ascii"
	case PLYBinary:
		return "binary"
	default:
		return fmt.Sprintf("PLYFormat(%d)", int(f))
	}
}

// ParsePLYFormat accepts "ascii" (or "text") and "binary".
func ParsePLYFormat(s string) (PLYFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ascii", "text":
		return PLYAscii, nil
	case "binary", "binary_little_endian":
		return PLYBinary, nil
	default:
		return 0, errors.Errorf("unknown ply format %q, expected ascii or binary", s)
	}
}

const (
	plyMagic     = "ply"
	plyEndHeader = "end_header"
	plyVertex    = "vertex"

	plyFormatAscii  = "ascii"
	plyFormatBinary = "binary_little_endian"
	plyFormatBigEnd = "binary_big_endian"

	// zeroNormalsComment marks a binary file whose normal columns are padding.
	zeroNormalsComment = "zero-filled normals"

	// maxPreallocVertices bounds how much the header's vertex count may reserve up
	// front; a larger cloud grows by append as records arrive.
	maxPreallocVertices = 1 << 16
)

type plyScalar int

const (
	plyInt8 plyScalar = iota
	plyUint8
	plyInt16
	plyUint16
	plyInt32
	plyUint32
	plyFloat32
	plyFloat64
)

var plyScalarNames = map[string]plyScalar{
	"char": plyInt8, "int8": plyInt8,
	"uchar": plyUint8, "uint8": plyUint8,
	"short": plyInt16, "int16": plyInt16,
	"ushort": plyUint16, "uint16": plyUint16,
	"int": plyInt32, "int32": plyInt32,
	"uint": plyUint32, "uint32": plyUint32,
	"float": plyFloat32, "float32": plyFloat32,
	"double": plyFloat64, "float64": plyFloat64,
}

func (s plyScalar) size() int {
	switch s {
	case plyInt8, plyUint8:
		return 1
	case plyInt16, plyUint16:
		return 2
	case plyInt32, plyUint32, plyFloat32:
		return 4
	default:
		return 8
	}
}

// decode reads one little endian value of type s from the front of buf.
func (s plyScalar) decode(buf []byte) float64 {
	switch s {
	case plyInt8:
		return float64(int8(buf[0]))
	case plyUint8:
		return float64(buf[0])
	case plyInt16:
		return float64(int16(binary.LittleEndian.Uint16(buf)))
	case plyUint16:
		return float64(binary.LittleEndian.Uint16(buf))
	case plyInt32:
		return float64(int32(binary.LittleEndian.Uint32(buf)))
	case plyUint32:
		return float64(binary.LittleEndian.Uint32(buf))
	case plyFloat32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(buf)))
	default:
		return math.Float64frombits(binary.LittleEndian.Uint64(buf))
	}
}

func parsePLYScalar(name string) (plyScalar, error) {
	s, ok := plyScalarNames[name]
	if !ok {
		return 0, utils.NewParseError("unsupported property type %q", name)
	}
	return s, nil
}

type plyProperty struct {
	name   string
	scalar plyScalar
}

type plyElement struct {
	name       string
	count      int
	properties []plyProperty
	hasList    bool
}

type plyHeader struct {
	format            PLYFormat
	hasFormat         bool
	elements          []plyElement
	zeroFilledNormals bool
}

// vertexLayout holds the property index of every attribute the reader decodes.
type vertexLayout struct {
	position [3]int
	normal   [3]int
	color    [4]int // alpha is -1 when absent
	hasColor bool
	hasNorm  bool
}

func readPLYHeader(in *bufio.Reader) (*plyHeader, error) {
	header := &plyHeader{}
	lineNum := 0
	for {
		line, err := in.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			if errors.Is(err, io.EOF) {
				return nil, utils.NewParseError("header ended before %q", plyEndHeader)
			}
			return nil, errors.Wrap(err, "reading ply header")
		}
		lineNum++
		line = strings.TrimSpace(line)
		if lineNum == 1 {
			if line != plyMagic {
				return nil, utils.NewParseError("missing %q signature, got %q", plyMagic, line)
			}
			continue
		}
		tokens := strings.Fields(line)
		if len(tokens) == 0 {
			continue
		}
		switch tokens[0] {
		case "format":
			if len(tokens) != 3 {
				return nil, utils.NewParseError("header line %d: malformed format line %q", lineNum, line)
			}
			switch tokens[1] {
			case plyFormatAscii:
				header.format = PLYAscii
			case plyFormatBinary:
				header.format = PLYBinary
			case plyFormatBigEnd:
				return nil, utils.NewParseError("big endian ply is not supported")
			default:
				return nil, utils.NewParseError("unknown ply format %q", tokens[1])
			}
			header.hasFormat = true
		case "comment":
			if strings.TrimSpace(strings.TrimPrefix(line, "comment")) == zeroNormalsComment {
				header.zeroFilledNormals = true
			}
		case "obj_info":
		case "element":
			if len(tokens) != 3 {
				return nil, utils.NewParseError("header line %d: malformed element line %q", lineNum, line)
			}
			count, err := strconv.Atoi(tokens[2])
			if err != nil || count < 0 {
				return nil, utils.NewParseError("element %q has invalid count %q", tokens[1], tokens[2])
			}
			header.elements = append(header.elements, plyElement{name: tokens[1], count: count})
		case "property":
			if len(header.elements) == 0 {
				return nil, utils.NewParseError("header line %d: property before any element", lineNum)
			}
			elem := &header.elements[len(header.elements)-1]
			if len(tokens) >= 2 && tokens[1] == "list" {
				if len(tokens) != 5 {
					return nil, utils.NewParseError("header line %d: malformed list property %q", lineNum, line)
				}
				if elem.name == plyVertex {
					return nil, utils.NewParseError("list property %q on vertex element is not supported", tokens[4])
				}
				for _, typ := range tokens[2:4] {
					if _, err := parsePLYScalar(typ); err != nil {
						return nil, err
					}
				}
				elem.hasList = true
				continue
			}
			if len(tokens) != 3 {
				return nil, utils.NewParseError("header line %d: malformed property %q", lineNum, line)
			}
			scalar, err := parsePLYScalar(tokens[1])
			if err != nil {
				return nil, err
			}
			elem.properties = append(elem.properties, plyProperty{name: tokens[2], scalar: scalar})
		case plyEndHeader:
			if !header.hasFormat {
				return nil, utils.NewParseError("header has no format line")
			}
			return header, nil
		default:
			return nil, utils.NewParseError("header line %d: unknown keyword %q", lineNum, tokens[0])
		}
	}
}

// vertexElement returns the vertex element and the number of entries declared after it.
func (h *plyHeader) vertexElement() (*plyElement, int, error) {
	for i := range h.elements {
		elem := &h.elements[i]
		if elem.name != plyVertex {
			if elem.count != 0 {
				return nil, 0, utils.NewParseError("element %q declared before vertex has %d entries", elem.name, elem.count)
			}
			continue
		}
		trailing := 0
		for _, later := range h.elements[i+1:] {
			trailing += later.count
		}
		return elem, trailing, nil
	}
	return nil, 0, utils.NewParseError("no vertex element declared")
}

func newVertexLayout(elem *plyElement) (*vertexLayout, error) {
	index := map[string]int{}
	for i, prop := range elem.properties {
		if _, dup := index[prop.name]; dup {
			return nil, utils.NewParseError("vertex property %q declared twice", prop.name)
		}
		index[prop.name] = i
	}
	lookup := func(names ...string) ([]int, int) {
		found := make([]int, len(names))
		n := 0
		for i, name := range names {
			found[i] = -1
			if idx, ok := index[name]; ok {
				found[i] = idx
				n++
			}
		}
		return found, n
	}

	layout := &vertexLayout{}
	pos, n := lookup("x", "y", "z")
	if n != 3 {
		return nil, utils.NewParseError("vertex element needs x, y and z properties")
	}
	copy(layout.position[:], pos)

	norm, n := lookup("nx", "ny", "nz")
	switch n {
	case 0:
	case 3:
		layout.hasNorm = true
		copy(layout.normal[:], norm)
	default:
		return nil, utils.NewParseError("vertex element declares %d of nx, ny and nz", n)
	}

	col, n := lookup("red", "green", "blue")
	switch n {
	case 0:
	case 3:
		layout.hasColor = true
		copy(layout.color[:], col)
		alpha, _ := lookup("alpha")
		layout.color[3] = alpha[0]
	default:
		return nil, utils.NewParseError("vertex element declares %d of red, green and blue", n)
	}

	// groups must appear in the order positions, normals, colors
	groups := [][]int{layout.position[:]}
	if layout.hasNorm {
		groups = append(groups, layout.normal[:])
	}
	if layout.hasColor {
		groups = append(groups, layout.color[:])
	}
	last := -1
	for _, group := range groups {
		lo, hi := math.MaxInt, -1
		for _, idx := range group {
			if idx < 0 {
				continue
			}
			lo = min(lo, idx)
			hi = max(hi, idx)
		}
		if lo < last {
			return nil, utils.NewParseError("vertex properties must be ordered positions, normals, colors")
		}
		last = hi
	}
	return layout, nil
}

// ReadPLY reads a ply stream in either the ascii or the binary little endian encoding.
func ReadPLY(inRaw io.Reader) (*PointCloud, error) {
	in := bufio.NewReader(inRaw)
	header, err := readPLYHeader(in)
	if err != nil {
		return nil, err
	}
	elem, trailing, err := header.vertexElement()
	if err != nil {
		return nil, err
	}
	layout, err := newVertexLayout(elem)
	if err != nil {
		return nil, err
	}

	records := newRecordSink(layout, elem.count)
	switch header.format {
	case PLYAscii:
		err = readPLYAscii(in, elem, trailing, records)
	case PLYBinary:
		err = readPLYBinary(in, elem, records)
	}
	if err != nil {
		return nil, err
	}
	return records.cloud(header.zeroFilledNormals)
}

func readPLYAscii(in *bufio.Reader, elem *plyElement, trailing int, records *recordSink) error {
	values := make([]float64, len(elem.properties))
	read := 0
	extra := 0
	for {
		line, err := in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return errors.Wrap(err, "reading ply data")
		}
		if tokens := strings.Fields(line); len(tokens) > 0 {
			if read < elem.count {
				if len(tokens) != len(values) {
					return utils.NewParseError("vertex %d has %d values, expected %d", read, len(tokens), len(values))
				}
				for i, token := range tokens {
					v, perr := strconv.ParseFloat(token, 64)
					if perr != nil {
						return utils.NewParseError("vertex %d: invalid value %q", read, token)
					}
					values[i] = v
				}
				records.add(values)
				read++
			} else {
				extra++
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
	}
	if read < elem.count {
		return utils.NewParseError("found %d vertex lines, header declares %d", read, elem.count)
	}
	if extra > trailing {
		return utils.NewParseError("found %d lines after the vertices, header declares %d", extra, trailing)
	}
	return nil
}

func readPLYBinary(in *bufio.Reader, elem *plyElement, records *recordSink) error {
	width := 0
	for _, prop := range elem.properties {
		width += prop.scalar.size()
	}
	buf := make([]byte, width)
	values := make([]float64, len(elem.properties))
	for i := 0; i < elem.count; i++ {
		if _, err := io.ReadFull(in, buf); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return utils.NewParseError("binary data ends at vertex %d of %d", i, elem.count)
			}
			return errors.Wrap(err, "reading ply data")
		}
		offset := 0
		for j, prop := range elem.properties {
			values[j] = prop.scalar.decode(buf[offset:])
			offset += prop.scalar.size()
		}
		records.add(values)
	}
	return nil
}

// recordSink collects decoded vertex values into attribute slices.
type recordSink struct {
	layout    *vertexLayout
	positions []r3.Vector
	normals   []r3.Vector
	colors    []color.NRGBA
}

func newRecordSink(layout *vertexLayout, count int) *recordSink {
	n := min(count, maxPreallocVertices)
	sink := &recordSink{layout: layout, positions: make([]r3.Vector, 0, n)}
	if layout.hasNorm {
		sink.normals = make([]r3.Vector, 0, n)
	}
	if layout.hasColor {
		sink.colors = make([]color.NRGBA, 0, n)
	}
	return sink
}

func (s *recordSink) add(values []float64) {
	l := s.layout
	s.positions = append(s.positions, r3.Vector{X: values[l.position[0]], Y: values[l.position[1]], Z: values[l.position[2]]})
	if l.hasNorm {
		s.normals = append(s.normals, r3.Vector{X: values[l.normal[0]], Y: values[l.normal[1]], Z: values[l.normal[2]]})
	}
	if l.hasColor {
		c := color.NRGBA{
			R: colorChannel(values[l.color[0]]),
			G: colorChannel(values[l.color[1]]),
			B: colorChannel(values[l.color[2]]),
			A: 255,
		}
		if l.color[3] >= 0 {
			c.A = colorChannel(values[l.color[3]])
		}
		s.colors = append(s.colors, c)
	}
}

// cloud builds the result. A normal block that is entirely zero is padding written
// for a cloud without normals.
func (s *recordSink) cloud(zeroFilled bool) (*PointCloud, error) {
	normals := s.normals
	if normals != nil && (len(normals) > 0 || zeroFilled) {
		allZero := true
		for _, n := range normals {
			if n != (r3.Vector{}) {
				allZero = false
				break
			}
		}
		if allZero {
			normals = nil
		}
	}
	return newOwned(s.positions, normals, s.colors)
}

// colorChannel truncates v toward zero and clamps it into [0, 255].
func colorChannel(v float64) uint8 {
	if math.IsNaN(v) {
		return 0
	}
	return uint8(utils.ClampFloat64(math.Trunc(v), 0, 255))
}

// WritePLY writes the cloud in the given encoding.
//
// The binary encoding always carries six float columns (x y z nx ny nz), zero filled
// when the cloud has no normals, plus four uchar columns when it has colors, and
// declares an empty face element. The ascii encoding writes only the attributes the
// cloud has, with floats in their shortest exact decimal form.
func WritePLY(cloud *PointCloud, outRaw io.Writer, format PLYFormat) error {
	out := bufio.NewWriter(outRaw)
	var err error
	switch format {
	case PLYBinary:
		err = writePLYBinary(cloud, out)
	case PLYAscii:
		err = writePLYAscii(cloud, out)
	default:
		return errors.Errorf("unknown ply format %v", format)
	}
	if err != nil {
		return err
	}
	return errors.Wrap(out.Flush(), "flushing ply data")
}

func writePLYHeader(out io.Writer, lines ...string) error {
	_, err := io.WriteString(out, strings.Join(lines, "\n")+"\n")
	return err
}

func vertexPropertyLines(names []string, typ string) []string {
	lines := make([]string, len(names))
	for i, name := range names {
		lines[i] = fmt.Sprintf("property %s %s", typ, name)
	}
	return lines
}

var (
	positionNames = []string{"x", "y", "z"}
	normalNames   = []string{"nx", "ny", "nz"}
	colorNames    = []string{"red", "green", "blue", "alpha"}
)

func writePLYBinary(cloud *PointCloud, out *bufio.Writer) error {
	schema := cloud.Schema()
	lines := []string{plyMagic, "format " + plyFormatBinary + " 1.0"}
	if !schema.HasNormal() {
		lines = append(lines, "comment "+zeroNormalsComment)
	}
	lines = append(lines, fmt.Sprintf("element %s %d", plyVertex, cloud.Size()))
	lines = append(lines, vertexPropertyLines(positionNames, "float")...)
	lines = append(lines, vertexPropertyLines(normalNames, "float")...)
	if schema.HasColor() {
		lines = append(lines, vertexPropertyLines(colorNames, "uchar")...)
	}
	lines = append(lines, "element face 0", "property list uchar int vertex_indices", plyEndHeader)
	if err := writePLYHeader(out, lines...); err != nil {
		return errors.Wrap(err, "writing ply header")
	}

	width := 6 * 4
	if schema.HasColor() {
		width += 4
	}
	buf := make([]byte, width)
	for i := 0; i < cloud.Size(); i++ {
		p := cloud.At(i)
		for j, v := range [6]float64{p.Position.X, p.Position.Y, p.Position.Z, p.Normal.X, p.Normal.Y, p.Normal.Z} {
			binary.LittleEndian.PutUint32(buf[j*4:], math.Float32bits(float32(v)))
		}
		if schema.HasColor() {
			buf[24], buf[25], buf[26], buf[27] = p.Color.R, p.Color.G, p.Color.B, p.Color.A
		}
		if _, err := out.Write(buf); err != nil {
			return errors.Wrapf(err, "writing vertex %d", i)
		}
	}
	return nil
}

func writePLYAscii(cloud *PointCloud, out *bufio.Writer) error {
	schema := cloud.Schema()
	lines := []string{
		plyMagic,
		"format " + plyFormatAscii + " 1.0",
		fmt.Sprintf("element %s %d", plyVertex, cloud.Size()),
	}
	lines = append(lines, vertexPropertyLines(positionNames, "float")...)
	if schema.HasNormal() {
		lines = append(lines, vertexPropertyLines(normalNames, "float")...)
	}
	if schema.HasColor() {
		lines = append(lines, vertexPropertyLines(colorNames, "uchar")...)
	}
	lines = append(lines, plyEndHeader)
	if err := writePLYHeader(out, lines...); err != nil {
		return errors.Wrap(err, "writing ply header")
	}

	line := make([]byte, 0, 256)
	appendFloat := func(v float64) {
		line = strconv.AppendFloat(line, v, 'g', -1, 64)
		line = append(line, ' ')
	}
	for i := 0; i < cloud.Size(); i++ {
		p := cloud.At(i)
		line = line[:0]
		appendFloat(p.Position.X)
		appendFloat(p.Position.Y)
		appendFloat(p.Position.Z)
		if schema.HasNormal() {
			appendFloat(p.Normal.X)
			appendFloat(p.Normal.Y)
			appendFloat(p.Normal.Z)
		}
		if schema.HasColor() {
			for _, c := range [4]uint8{p.Color.R, p.Color.G, p.Color.B, p.Color.A} {
				line = strconv.AppendUint(line, uint64(c), 10)
				line = append(line, ' ')
			}
		}
		line[len(line)-1] = '\n'
		if _, err := out.Write(line); err != nil {
			return errors.Wrapf(err, "writing vertex %d", i)
		}
	}
	return nil
}
