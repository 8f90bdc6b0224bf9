package pointcloud

import (
	"image/color"
	"math"

	"github.com/golang/geo/r3"
)

// MakeTestCloud creates a deterministic cloud of n points with the given schema. The
// points lie on a spiral around the z axis; normals point away from the axis and
// colors cycle through the byte range.
func MakeTestCloud(n int, schema Schema) *PointCloud {
	positions := make([]r3.Vector, n)
	var normals []r3.Vector
	var colors []color.NRGBA
	if schema.HasNormal() {
		normals = make([]r3.Vector, n)
	}
	if schema.HasColor() {
		colors = make([]color.NRGBA, n)
	}
	for i := 0; i < n; i++ {
		angle := float64(i) * 0.1
		radius := 1 + float64(i%7)*0.25
		positions[i] = r3.Vector{X: radius * math.Cos(angle), Y: radius * math.Sin(angle), Z: float64(i) * 0.01}
		if normals != nil {
			normals[i] = r3.Vector{X: math.Cos(angle), Y: math.Sin(angle), Z: 0}
		}
		if colors != nil {
			colors[i] = color.NRGBA{R: uint8(i % 256), G: uint8((i * 3) % 256), B: uint8((i * 7) % 256), A: uint8(255 - i%5)}
		}
	}
	cloud, err := newOwned(positions, normals, colors)
	if err != nil {
		return nil
	}
	return cloud
}
