package spatialmath

import (
	"github.com/golang/geo/r3"

	"go.viam.com/regsynth/utils"
)

// NewAlignmentTransform returns the transform that moves a planar platform, given by
// at least three of its edge points in order, onto the world frame: the centroid of
// the points goes to the origin, the platform normal to +Z and the first edge to +X.
// Its inverse places a model built in the platform frame back onto the platform.
func NewAlignmentTransform(points []r3.Vector) (*RigidTransform, error) {
	if len(points) < 3 {
		return nil, utils.NewDegenerateInputError("platform alignment needs at least 3 points, got %d", len(points))
	}
	var center r3.Vector
	for _, p := range points {
		center = center.Add(p)
	}
	center = center.Mul(1 / float64(len(points)))

	edge := points[1].Sub(points[0])
	z := edge.Cross(points[2].Sub(points[0]))
	if z.Norm() < MinAxisNorm {
		return nil, utils.NewDegenerateInputError("platform points are collinear")
	}
	z = z.Normalize()

	x := edge.Sub(z.Mul(edge.Dot(z)))
	if x.Norm() < MinAxisNorm {
		return nil, utils.NewDegenerateInputError("platform edge has zero length")
	}
	x = x.Normalize()
	y := z.Cross(x).Normalize()

	// rows of the alignment rotation are the platform axes
	rotation := NewRotationMatrix([9]float64{
		x.X, x.Y, x.Z,
		y.X, y.Y, y.Z,
		z.X, z.Y, z.Z,
	})
	return NewRigidTransform(rotation, rotation.Mul(center).Mul(-1))
}
