// Package perturb simulates machining roughness on a cloud with normals.
package perturb

import (
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/regsynth/pointcloud"
	"go.viam.com/regsynth/utils"
)

const (
	// DefaultScale is the default wave amplitude.
	DefaultScale = 0.05
	// DefaultFrequency is the default wave frequency in radians per unit length.
	DefaultFrequency = 10.
)

// TangentBasis returns two unit vectors u and v that together with n form an
// orthonormal frame.
func TangentBasis(n r3.Vector) (r3.Vector, r3.Vector) {
	n = n.Normalize()
	ref := r3.Vector{X: 1}
	switch {
	case math.Abs(n.X) < 0.9:
	case math.Abs(n.Y) < 0.9:
		ref = r3.Vector{Y: 1}
	default:
		ref = r3.Vector{Z: 1}
	}
	u := n.Cross(ref).Normalize()
	v := n.Cross(u).Normalize()
	return u, v
}

// SurfaceWave displaces every point within its tangent plane by a standing wave:
// with (u, v) the tangent basis of the point's normal,
// w = scale·sin(frequency·p·u)·cos(frequency·p·v) and p' = p + (u + v)·w.
// It returns the displaced cloud and the length of each displacement. Normals and
// colors are carried over unchanged.
func SurfaceWave(cloud *pointcloud.PointCloud, scale, frequency float64) (*pointcloud.PointCloud, []float64, error) {
	if !cloud.Schema().HasNormal() {
		return nil, nil, utils.NewUnsupportedOperationError("surface wave", "a cloud with normals")
	}
	for name, v := range map[string]float64{"scale": scale, "frequency": frequency} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, nil, utils.NewRangeError(name, v, -math.MaxFloat64, math.MaxFloat64)
		}
	}

	positions := cloud.Positions()
	magnitudes := make([]float64, len(positions))
	utils.GroupWorkParallel(len(positions), func(_, from, to int) {
		for i := from; i < to; i++ {
			p := positions[i]
			u, v := TangentBasis(cloud.Normal(i))
			w := scale * math.Sin(frequency*p.Dot(u)) * math.Cos(frequency*p.Dot(v))
			offset := u.Add(v).Mul(w)
			positions[i] = p.Add(offset)
			magnitudes[i] = offset.Norm()
		}
	})
	out, err := pointcloud.New(positions, cloud.Normals(), cloud.Colors())
	if err != nil {
		return nil, nil, err
	}
	return out, magnitudes, nil
}
