// Package pointcloud defines an ordered point cloud with a fixed attribute schema and
// the codecs to read and write it.
//
// A cloud is immutable once constructed. Every operation that changes points returns
// a new cloud holding its own copies, so a cloud handed to one consumer can never be
// altered by another.
package pointcloud

import (
	"fmt"
	"image/color"
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/regsynth/utils"
)

const (
	// MinNormalNorm is the smallest normal length that can still be normalized.
	MinNormalNorm = 1e-9
	// NormalTolerance is how far a normal's length may deviate from 1 before it is renormalized.
	NormalTolerance = 1e-4
)

// Schema is the set of attributes every point in a cloud carries. Positions are always present.
type Schema int

// The supported schemas.
const (
	SchemaPosition Schema = iota
	SchemaPositionNormal
	SchemaPositionColor
	SchemaPositionNormalColor
)

// NewSchema returns the schema with the given optional attributes.
func NewSchema(hasNormal, hasColor bool) Schema {
	switch {
	case hasNormal && hasColor:
		return SchemaPositionNormalColor
	case hasNormal:
		return SchemaPositionNormal
	case hasColor:
		return SchemaPositionColor
	default:
		return SchemaPosition
	}
}

// HasNormal returns whether points carry a unit normal.
func (s Schema) HasNormal() bool {
	return s == SchemaPositionNormal || s == SchemaPositionNormalColor
}

// HasColor returns whether points carry an RGBA color.
func (s Schema) HasColor() bool {
	return s == SchemaPositionColor || s == SchemaPositionNormalColor
}

func (s Schema) String() string {
	switch s {
	case SchemaPosition:
		return "position"
	case SchemaPositionNormal:
		return "position+normal"
	case SchemaPositionColor:
		return "position+color"
	case SchemaPositionNormalColor:
		return "position+normal+color"
	default:
		return fmt.Sprintf("Schema(%d)", int(s))
	}
}

// PointCloud is an ordered sequence of points sharing one Schema.
type PointCloud struct {
	schema    Schema
	positions []r3.Vector
	normals   []r3.Vector
	colors    []color.NRGBA
}

// New creates a cloud from per-point attributes. A nil normals or colors slice means
// the attribute is absent; a non-nil one must have one entry per position. Normals
// shorter than MinNormalNorm are rejected and the others are brought to unit length.
// The slices are copied.
func New(positions, normals []r3.Vector, colors []color.NRGBA) (*PointCloud, error) {
	cloud := &PointCloud{positions: append(make([]r3.Vector, 0, len(positions)), positions...)}
	if normals != nil {
		cloud.normals = append(make([]r3.Vector, 0, len(normals)), normals...)
	}
	if colors != nil {
		cloud.colors = append(make([]color.NRGBA, 0, len(colors)), colors...)
	}
	return newOwned(cloud.positions, cloud.normals, cloud.colors)
}

// newOwned validates and wraps slices that nothing else references.
func newOwned(positions, normals []r3.Vector, colors []color.NRGBA) (*PointCloud, error) {
	if positions == nil {
		positions = []r3.Vector{}
	}
	if normals != nil && len(normals) != len(positions) {
		return nil, utils.NewDimensionError("normals", len(positions), len(normals))
	}
	if colors != nil && len(colors) != len(positions) {
		return nil, utils.NewDimensionError("colors", len(positions), len(colors))
	}
	for i, n := range normals {
		norm := n.Norm()
		if math.IsNaN(norm) || norm < MinNormalNorm {
			return nil, utils.NewDegenerateInputError("normal %d (%g, %g, %g) has near zero length", i, n.X, n.Y, n.Z)
		}
		if math.Abs(norm-1) > NormalTolerance {
			normals[i] = n.Mul(1 / norm)
		}
	}
	return &PointCloud{
		schema:    NewSchema(normals != nil, colors != nil),
		positions: positions,
		normals:   normals,
		colors:    colors,
	}, nil
}

// Size returns the number of points in the cloud.
func (cloud *PointCloud) Size() int {
	return len(cloud.positions)
}

// Schema returns the attributes the points carry.
func (cloud *PointCloud) Schema() Schema {
	return cloud.schema
}

// At returns the point at index i.
func (cloud *PointCloud) At(i int) Point {
	p := Point{Position: cloud.positions[i]}
	if cloud.normals != nil {
		p.Normal = cloud.normals[i]
	}
	if cloud.colors != nil {
		p.Color = cloud.colors[i]
	}
	return p
}

// Position returns the position of point i.
func (cloud *PointCloud) Position(i int) r3.Vector {
	return cloud.positions[i]
}

// Normal returns the normal of point i, or the zero vector if the cloud has no normals.
func (cloud *PointCloud) Normal(i int) r3.Vector {
	if cloud.normals == nil {
		return r3.Vector{}
	}
	return cloud.normals[i]
}

// Color returns the color of point i, or the zero color if the cloud has no colors.
func (cloud *PointCloud) Color(i int) color.NRGBA {
	if cloud.colors == nil {
		return color.NRGBA{}
	}
	return cloud.colors[i]
}

// Positions returns a copy of all positions.
func (cloud *PointCloud) Positions() []r3.Vector {
	return append([]r3.Vector(nil), cloud.positions...)
}

// Normals returns a copy of all normals, or nil if the cloud has none.
func (cloud *PointCloud) Normals() []r3.Vector {
	if cloud.normals == nil {
		return nil
	}
	return append(make([]r3.Vector, 0, len(cloud.normals)), cloud.normals...)
}

// Colors returns a copy of all colors, or nil if the cloud has none.
func (cloud *PointCloud) Colors() []color.NRGBA {
	if cloud.colors == nil {
		return nil
	}
	return append(make([]color.NRGBA, 0, len(cloud.colors)), cloud.colors...)
}

// Iterate calls fn for every point in order until fn returns false.
func (cloud *PointCloud) Iterate(fn func(i int, p Point) bool) {
	for i := range cloud.positions {
		if !fn(i, cloud.At(i)) {
			return
		}
	}
}

// Subset returns a new cloud holding the points at the given indices, in the given order.
func (cloud *PointCloud) Subset(indices []int) (*PointCloud, error) {
	out := &PointCloud{schema: cloud.schema, positions: make([]r3.Vector, len(indices))}
	if cloud.normals != nil {
		out.normals = make([]r3.Vector, len(indices))
	}
	if cloud.colors != nil {
		out.colors = make([]color.NRGBA, len(indices))
	}
	for j, i := range indices {
		if i < 0 || i >= cloud.Size() {
			return nil, utils.NewRangeError("index", float64(i), 0, float64(cloud.Size()-1))
		}
		out.positions[j] = cloud.positions[i]
		if out.normals != nil {
			out.normals[j] = cloud.normals[i]
		}
		if out.colors != nil {
			out.colors[j] = cloud.colors[i]
		}
	}
	return out, nil
}

// Concat returns a new cloud with the points of a followed by the points of b.
// Both clouds must share a schema.
func Concat(a, b *PointCloud) (*PointCloud, error) {
	if a.schema != b.schema {
		return nil, utils.NewUnsupportedOperationError("concat", fmt.Sprintf("equal schemas, got %v and %v", a.schema, b.schema))
	}
	out := &PointCloud{schema: a.schema, positions: append(a.Positions(), b.positions...)}
	if a.normals != nil {
		out.normals = append(a.Normals(), b.normals...)
	}
	if a.colors != nil {
		out.colors = append(a.Colors(), b.colors...)
	}
	return out, nil
}

// MetaData returns the size, schema and extent of the cloud.
func (cloud *PointCloud) MetaData() MetaData {
	meta := NewMetaData()
	meta.Schema = cloud.schema
	for _, p := range cloud.positions {
		meta.Merge(p)
	}
	return meta
}

// AlmostEqual reports whether two clouds have the same schema and size, positions and
// normals within tol and identical colors.
func AlmostEqual(a, b *PointCloud, tol float64) bool {
	if a.schema != b.schema || a.Size() != b.Size() {
		return false
	}
	vecEqual := func(u, v r3.Vector) bool {
		return utils.Float64AlmostEqual(u.X, v.X, tol) &&
			utils.Float64AlmostEqual(u.Y, v.Y, tol) &&
			utils.Float64AlmostEqual(u.Z, v.Z, tol)
	}
	for i := range a.positions {
		if !vecEqual(a.positions[i], b.positions[i]) {
			return false
		}
		if a.normals != nil && !vecEqual(a.normals[i], b.normals[i]) {
			return false
		}
		if a.colors != nil && a.colors[i] != b.colors[i] {
			return false
		}
	}
	return true
}
