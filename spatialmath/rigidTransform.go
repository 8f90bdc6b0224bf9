package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/regsynth/utils"
)

// RigidTolerance is the largest deviation of RᵗR from the identity, and of det(R)
// from 1, that is still accepted as a rotation. Matrices printed with six decimal
// digits stay comfortably inside it.
const RigidTolerance = 1e-4

// RigidTransform is a rotation followed by a translation, p' = R·p + t.
// Values are immutable once constructed.
type RigidTransform struct {
	rotation    RotationMatrix
	translation r3.Vector
}

// NewIdentityTransform returns the transform that maps every point onto itself.
func NewIdentityTransform() *RigidTransform {
	return &RigidTransform{rotation: *IdentityRotation()}
}

// NewRigidTransform creates a transform from a rotation and a translation. The rotation
// is checked against RigidTolerance.
func NewRigidTransform(rotation *RotationMatrix, translation r3.Vector) (*RigidTransform, error) {
	t := &RigidTransform{rotation: *rotation, translation: translation}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// NewRigidTransformFromAxisAngle builds the transform rotating angleDegrees around axis
// and then translating. The axis is normalized internally; an axis shorter than
// MinAxisNorm yields a DegenerateInputError. A non-finite angle or translation
// yields a RangeError.
func NewRigidTransformFromAxisAngle(axis r3.Vector, angleDegrees float64, translation r3.Vector) (*RigidTransform, error) {
	if !isFinite(angleDegrees) {
		return nil, utils.NewRangeError("angle", angleDegrees, -math.MaxFloat64, math.MaxFloat64)
	}
	for i, v := range [3]float64{translation.X, translation.Y, translation.Z} {
		if !isFinite(v) {
			return nil, utils.NewRangeError("translation."+"xyz"[i:i+1], v, -math.MaxFloat64, math.MaxFloat64)
		}
	}
	r4, err := NewR4AAFromAxis(axis, utils.DegToRad(angleDegrees))
	if err != nil {
		return nil, err
	}
	return &RigidTransform{rotation: *r4.RotationMatrix(), translation: translation}, nil
}

// NewRigidTransformFromMatrix creates a transform from a row major homogeneous 4x4
// matrix, typically read from a file, and validates that it is rigid.
func NewRigidTransformFromMatrix(m [16]float64) (*RigidTransform, error) {
	for i, want := range [4]float64{0, 0, 0, 1} {
		if d := math.Abs(m[12+i] - want); !(d <= RigidTolerance) {
			return nil, utils.NewNonRigidTransformError(
				fmt.Sprintf("bottom row is (%g, %g, %g, %g), expected (0, 0, 0, 1)", m[12], m[13], m[14], m[15]), d)
		}
	}
	rotation := NewRotationMatrix([9]float64{
		m[0], m[1], m[2],
		m[4], m[5], m[6],
		m[8], m[9], m[10],
	})
	return NewRigidTransform(rotation, r3.Vector{X: m[3], Y: m[7], Z: m[11]})
}

// Rotation returns the rotation block.
func (t *RigidTransform) Rotation() *RotationMatrix {
	r := t.rotation
	return &r
}

// Translation returns the translation column.
func (t *RigidTransform) Translation() r3.Vector {
	return t.translation
}

// Matrix returns the homogeneous 4x4 matrix in row major order: R in the top left
// 3x3 block, t in the top right column and (0, 0, 0, 1) as the bottom row.
func (t *RigidTransform) Matrix() [16]float64 {
	r := &t.rotation.mat
	return [16]float64{
		r[0], r[1], r[2], t.translation.X,
		r[3], r[4], r[5], t.translation.Y,
		r[6], r[7], r[8], t.translation.Z,
		0, 0, 0, 1,
	}
}

// Dense returns the homogeneous matrix as a gonum matrix.
func (t *RigidTransform) Dense() *mat.Dense {
	m := t.Matrix()
	return mat.NewDense(4, 4, m[:])
}

// Transform maps a position: R·p + t.
func (t *RigidTransform) Transform(p r3.Vector) r3.Vector {
	return t.rotation.Mul(p).Add(t.translation)
}

// RotateVector maps a direction such as a normal: R·n. Length is preserved.
func (t *RigidTransform) RotateVector(n r3.Vector) r3.Vector {
	return t.rotation.Mul(n)
}

// Validate checks that the rotation block is orthonormal with determinant +1.
func (t *RigidTransform) Validate() error {
	if dev := t.rotation.OrthonormalityError(); !(dev <= RigidTolerance) {
		return utils.NewNonRigidTransformError("RᵗR deviates from the identity", dev)
	}
	if dev := math.Abs(t.rotation.Det() - 1); !(dev <= RigidTolerance) {
		return utils.NewNonRigidTransformError("det(R) is not 1", dev)
	}
	for _, v := range []float64{t.translation.X, t.translation.Y, t.translation.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return utils.NewNonRigidTransformError("translation is not finite", math.Inf(1))
		}
	}
	return nil
}

// Invert returns the closed form inverse R⁻¹ = Rᵗ, t⁻¹ = -Rᵗ·t. It fails with a
// NonRigidTransformError when the transform is not rigid.
func (t *RigidTransform) Invert() (*RigidTransform, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	rt := t.rotation.Transpose()
	return &RigidTransform{rotation: *rt, translation: rt.Mul(t.translation).Mul(-1)}, nil
}

// Compose returns t·o, the transform applying o first and then t.
func (t *RigidTransform) Compose(o *RigidTransform) *RigidTransform {
	return &RigidTransform{
		rotation:    *t.rotation.MulMatrix(&o.rotation),
		translation: t.rotation.Mul(o.translation).Add(t.translation),
	}
}

// AlmostEqual reports whether every matrix element of t and o differs by at most tol.
func (t *RigidTransform) AlmostEqual(o *RigidTransform, tol float64) bool {
	a, b := t.Matrix(), o.Matrix()
	for i := range a {
		if !utils.Float64AlmostEqual(a[i], b[i], tol) {
			return false
		}
	}
	return true
}

func (t *RigidTransform) String() string {
	m := t.Matrix()
	return fmt.Sprintf("[[%.6f %.6f %.6f %.6f] [%.6f %.6f %.6f %.6f] [%.6f %.6f %.6f %.6f] [%.6f %.6f %.6f %.6f]]",
		m[0], m[1], m[2], m[3], m[4], m[5], m[6], m[7], m[8], m[9], m[10], m[11], m[12], m[13], m[14], m[15])
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
