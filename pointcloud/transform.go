package pointcloud

import (
	"github.com/golang/geo/r3"

	"go.viam.com/regsynth/spatialmath"
	"go.viam.com/regsynth/utils"
)

// ApplyTransform returns a new cloud with every position mapped to R·p + t and every
// normal rotated by R. Colors are carried over unchanged.
func ApplyTransform(cloud *PointCloud, t *spatialmath.RigidTransform) *PointCloud {
	n := cloud.Size()
	out := &PointCloud{schema: cloud.schema, positions: make([]r3.Vector, n), colors: cloud.Colors()}
	if cloud.normals != nil {
		out.normals = make([]r3.Vector, n)
	}
	utils.GroupWorkParallel(n, func(_, from, to int) {
		for i := from; i < to; i++ {
			out.positions[i] = t.Transform(cloud.positions[i])
			if out.normals != nil {
				out.normals[i] = t.RotateVector(cloud.normals[i])
			}
		}
	})
	return out
}
