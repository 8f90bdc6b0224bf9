package pointcloud

import (
	"image/color"
	"math"

	"github.com/golang/geo/r3"
)

// Point is a single record of a cloud. Normal and Color are zero when the cloud's
// schema lacks them.
type Point struct {
	Position r3.Vector
	Normal   r3.Vector
	Color    color.NRGBA
}

// MetaData is data about what's stored in the point cloud.
type MetaData struct {
	Size   int
	Schema Schema

	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64

	sum r3.Vector
}

// NewMetaData returns empty meta data whose bounds widen as points are merged.
func NewMetaData() MetaData {
	return MetaData{
		MinX: math.MaxFloat64,
		MinY: math.MaxFloat64,
		MinZ: math.MaxFloat64,
		MaxX: -math.MaxFloat64,
		MaxY: -math.MaxFloat64,
		MaxZ: -math.MaxFloat64,
	}
}

// Merge updates the meta data with a new position.
func (meta *MetaData) Merge(v r3.Vector) {
	meta.Size++
	meta.sum = meta.sum.Add(v)

	meta.MaxX = math.Max(meta.MaxX, v.X)
	meta.MaxY = math.Max(meta.MaxY, v.Y)
	meta.MaxZ = math.Max(meta.MaxZ, v.Z)

	meta.MinX = math.Min(meta.MinX, v.X)
	meta.MinY = math.Min(meta.MinY, v.Y)
	meta.MinZ = math.Min(meta.MinZ, v.Z)
}

// Centroid returns the mean position, or the origin for an empty cloud.
func (meta *MetaData) Centroid() r3.Vector {
	if meta.Size == 0 {
		return r3.Vector{}
	}
	return meta.sum.Mul(1 / float64(meta.Size))
}

// Extent returns the size of the axis aligned bounding box, or the zero vector for an empty cloud.
func (meta *MetaData) Extent() r3.Vector {
	if meta.Size == 0 {
		return r3.Vector{}
	}
	return r3.Vector{X: meta.MaxX - meta.MinX, Y: meta.MaxY - meta.MinY, Z: meta.MaxZ - meta.MinZ}
}
