package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/regsynth/utils"
)

func TestAxisAngleQuaternion(t *testing.T) {
	data := []R4AA{
		{1, 1, 1, 1},
		{1, 1, 0, 0},
		{1, 0, 1, 0},
		{1, 0, 0, 1},
	}

	// Quaternion [x, y, z, w]
	// from https://www.andre-gaschler.com/rotationconverter/
	qc := [][]float64{
		{0.2767965, 0.2767965, 0.2767965, 0.8775826},
		{0.4794255, 0, 0, 0.8775826},
		{0, 0.4794255, 0, 0.8775826},
		{0, 0, 0.4794255, 0.8775826},
	}

	for idx, d := range data {
		test.That(t, d.Normalize(), test.ShouldBeNil)
		q := d.RotationMatrix().Quaternion()
		test.That(t, q.Real, test.ShouldAlmostEqual, qc[idx][3], .00001)
		test.That(t, q.Imag, test.ShouldAlmostEqual, qc[idx][0], .00001)
		test.That(t, q.Jmag, test.ShouldAlmostEqual, qc[idx][1], .00001)
		test.That(t, q.Kmag, test.ShouldAlmostEqual, qc[idx][2], .00001)
	}
}

func TestAxisAngleNormalize(t *testing.T) {
	r4, err := NewR4AAFromAxis(r3.Vector{X: 0, Y: 0, Z: 5}, math.Pi/2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, *r4, test.ShouldResemble, R4AA{Theta: math.Pi / 2, RX: 0, RY: 0, RZ: 1})

	for _, axis := range []r3.Vector{{}, {X: 1e-12}, {X: math.NaN()}, {Y: math.Inf(1)}} {
		_, err := NewR4AAFromAxis(axis, 1)
		var degenerate *utils.DegenerateInputError
		test.That(t, errors.As(err, &degenerate), test.ShouldBeTrue)
	}
}

func TestRodriguesIsRotation(t *testing.T) {
	r4, err := NewR4AAFromAxis(r3.Vector{X: -1, Y: -0.1, Z: 0}, utils.DegToRad(25.84))
	test.That(t, err, test.ShouldBeNil)
	rm := r4.RotationMatrix()
	test.That(t, rm.OrthonormalityError(), test.ShouldBeLessThan, 1e-12)
	test.That(t, rm.Det(), test.ShouldAlmostEqual, 1, 1e-12)
	// the axis is fixed by its own rotation
	axis := r3.Vector{X: r4.RX, Y: r4.RY, Z: r4.RZ}
	rotated := rm.Mul(axis)
	test.That(t, rotated.Sub(axis).Norm(), test.ShouldBeLessThan, 1e-12)
}
