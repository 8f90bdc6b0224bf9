package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// RotationMatrix is a 3x3 matrix in row major order.
type RotationMatrix struct {
	mat [9]float64
}

// NewRotationMatrix creates a rotation matrix from row major values. No
// orthonormality check is performed here; RigidTransform validates on use.
func NewRotationMatrix(m [9]float64) *RotationMatrix {
	return &RotationMatrix{mat: m}
}

// IdentityRotation returns the identity rotation.
func IdentityRotation() *RotationMatrix {
	return &RotationMatrix{mat: [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}}
}

// At returns the value at the given row and column.
func (rm *RotationMatrix) At(row, col int) float64 {
	return rm.mat[row*3+col]
}

// Row returns the given row as a vector.
func (rm *RotationMatrix) Row(row int) r3.Vector {
	return r3.Vector{X: rm.mat[row*3], Y: rm.mat[row*3+1], Z: rm.mat[row*3+2]}
}

// Col returns the given column as a vector.
func (rm *RotationMatrix) Col(col int) r3.Vector {
	return r3.Vector{X: rm.mat[col], Y: rm.mat[3+col], Z: rm.mat[6+col]}
}

// Values returns a copy of the row major values.
func (rm *RotationMatrix) Values() [9]float64 {
	return rm.mat
}

// Mul returns R·v.
func (rm *RotationMatrix) Mul(v r3.Vector) r3.Vector {
	m := &rm.mat
	return r3.Vector{
		X: m[0]*v.X + m[1]*v.Y + m[2]*v.Z,
		Y: m[3]*v.X + m[4]*v.Y + m[5]*v.Z,
		Z: m[6]*v.X + m[7]*v.Y + m[8]*v.Z,
	}
}

// MulMatrix returns R·o.
func (rm *RotationMatrix) MulMatrix(o *RotationMatrix) *RotationMatrix {
	var out RotationMatrix
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var sum float64
			for k := 0; k < 3; k++ {
				sum += rm.mat[i*3+k] * o.mat[k*3+j]
			}
			out.mat[i*3+j] = sum
		}
	}
	return &out
}

// Transpose returns Rᵗ, which is the inverse for an orthonormal matrix.
func (rm *RotationMatrix) Transpose() *RotationMatrix {
	m := &rm.mat
	return &RotationMatrix{mat: [9]float64{
		m[0], m[3], m[6],
		m[1], m[4], m[7],
		m[2], m[5], m[8],
	}}
}

// Det returns the determinant.
func (rm *RotationMatrix) Det() float64 {
	m := &rm.mat
	return m[0]*(m[4]*m[8]-m[5]*m[7]) -
		m[1]*(m[3]*m[8]-m[5]*m[6]) +
		m[2]*(m[3]*m[7]-m[4]*m[6])
}

// OrthonormalityError returns the largest absolute deviation of RᵗR from the identity.
func (rm *RotationMatrix) OrthonormalityError() float64 {
	rtr := rm.Transpose().MulMatrix(rm)
	var worst float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1
			}
			if d := math.Abs(rtr.mat[i*3+j] - want); d > worst || math.IsNaN(d) {
				worst = d
			}
		}
	}
	return worst
}

// Quaternion returns the unit quaternion of an orthonormal matrix.
// See: https://www.euclideanspace.com/maths/geometry/rotations/conversions/matrixToQuaternion/
func (rm *RotationMatrix) Quaternion() quat.Number {
	m := &rm.mat
	tr := m[0] + m[4] + m[8]
	var q quat.Number
	switch {
	case tr > 0:
		s := math.Sqrt(tr+1) * 2
		q = quat.Number{Real: s / 4, Imag: (m[7] - m[5]) / s, Jmag: (m[2] - m[6]) / s, Kmag: (m[3] - m[1]) / s}
	case m[0] > m[4] && m[0] > m[8]:
		s := math.Sqrt(1+m[0]-m[4]-m[8]) * 2
		q = quat.Number{Real: (m[7] - m[5]) / s, Imag: s / 4, Jmag: (m[1] + m[3]) / s, Kmag: (m[2] + m[6]) / s}
	case m[4] > m[8]:
		s := math.Sqrt(1+m[4]-m[0]-m[8]) * 2
		q = quat.Number{Real: (m[2] - m[6]) / s, Imag: (m[1] + m[3]) / s, Jmag: s / 4, Kmag: (m[5] + m[7]) / s}
	default:
		s := math.Sqrt(1+m[8]-m[0]-m[4]) * 2
		q = quat.Number{Real: (m[3] - m[1]) / s, Imag: (m[2] + m[6]) / s, Jmag: (m[5] + m[7]) / s, Kmag: s / 4}
	}
	// keep the scalar part non negative so equal rotations compare equal
	if q.Real < 0 {
		q = quat.Scale(-1, q)
	}
	return q
}
