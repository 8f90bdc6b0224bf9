package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/regsynth/utils"
)

// See here for a thorough explanation: https://en.wikipedia.org/wiki/Axis%E2%80%93angle_representation
// Basic explanation: Imagine a 3d cartesian grid centered at 0,0,0, and a sphere of radius 1 centered at
// that same point. An orientation can be expressed by first specifying an axis, i.e. a line from the origin
// to a point on that sphere, represented by (rx, ry, rz), and a rotation around that axis, theta.
// These four numbers can be used as-is (R4), or they can be converted to R3, where theta is multiplied by each of
// the unit sphere components to give a vector whose length is theta and whose direction is the original axis.

// MinAxisNorm is the smallest axis magnitude that can still be normalized.
const MinAxisNorm = 1e-9

// R4AA represents an R4 axis angle.
type R4AA struct {
	Theta float64 `json:"th"`
	RX    float64 `json:"x"`
	RY    float64 `json:"y"`
	RZ    float64 `json:"z"`
}

// NewR4AAFromAxis creates a normalized R4AA rotating theta radians around axis.
func NewR4AAFromAxis(axis r3.Vector, theta float64) (*R4AA, error) {
	r4 := &R4AA{Theta: theta, RX: axis.X, RY: axis.Y, RZ: axis.Z}
	if err := r4.Normalize(); err != nil {
		return nil, err
	}
	return r4, nil
}

// Normalize scales the x, y, and z components of a R4 axis angle to be on the unit sphere.
// Axes shorter than MinAxisNorm cannot be normalized and yield a DegenerateInputError.
func (r4 *R4AA) Normalize() error {
	norm := math.Sqrt(r4.RX*r4.RX + r4.RY*r4.RY + r4.RZ*r4.RZ)
	if math.IsNaN(norm) || math.IsInf(norm, 0) || norm < MinAxisNorm {
		return utils.NewDegenerateInputError("rotation axis (%g, %g, %g) has no usable length", r4.RX, r4.RY, r4.RZ)
	}
	r4.RX /= norm
	r4.RY /= norm
	r4.RZ /= norm
	return nil
}

// RotationMatrix returns the rotation of a normalized axis angle using the Rodrigues formula
// R = I·cosθ + (1-cosθ)·uuᵗ + sinθ·[u]ₓ.
func (r4 *R4AA) RotationMatrix() *RotationMatrix {
	ux, uy, uz := r4.RX, r4.RY, r4.RZ
	c := math.Cos(r4.Theta)
	s := math.Sin(r4.Theta)
	k := 1 - c

	return &RotationMatrix{mat: [9]float64{
		c + ux*ux*k, ux*uy*k - uz*s, ux*uz*k + uy*s,
		uy*ux*k + uz*s, c + uy*uy*k, uy*uz*k - ux*s,
		uz*ux*k - uy*s, uz*uy*k + ux*s, c + uz*uz*k,
	}}
}
