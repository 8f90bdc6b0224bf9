package spatialmath

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/regsynth/utils"
)

func TestMatrixRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	params, err := RandomAxisAngle(rng, RandomTransformParams{MinAngleDegrees: 0, MaxAngleDegrees: 90, TranslationRange: 3})
	test.That(t, err, test.ShouldBeNil)
	tf, err := params.RigidTransform()
	test.That(t, err, test.ShouldBeNil)

	var buf bytes.Buffer
	test.That(t, WriteMatrix(&buf, tf), test.ShouldBeNil)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	test.That(t, lines, test.ShouldHaveLength, 4)
	test.That(t, lines[3], test.ShouldEqual, "0.000000 0.000000 0.000000 1.000000")

	back, err := ReadMatrix(&buf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, back.AlmostEqual(tf, 1e-6), test.ShouldBeTrue)
}

func TestReadMatrixSyntax(t *testing.T) {
	in := `# ground truth
[[1, 0, 0, 0.5],
 [0, 1, 0, -1],

 [0, 0, 1, 2],
 [0, 0, 0, 1]]
`
	tf, err := ReadMatrix(strings.NewReader(in))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tf.Translation(), test.ShouldResemble, r3.Vector{X: 0.5, Y: -1, Z: 2})

	var parseErr *utils.ParseError
	for _, bad := range []string{
		"1 0 0\n0 1 0\n0 0 1\n",
		"1 0 0 0\n0 1 0 0\n0 0 1 0\n",
		"1 0 0 0\n0 1 0 0\n0 0 1 0\n0 0 0 1\n0 0 0 1\n",
		"1 0 0 0\n0 1 0 0\n0 0 1 zero\n0 0 0 1\n",
	} {
		_, err := ReadMatrix(strings.NewReader(bad))
		test.That(t, errors.As(err, &parseErr), test.ShouldBeTrue)
	}

	_, err = ReadMatrix(strings.NewReader("2 0 0 0\n0 1 0 0\n0 0 1 0\n0 0 0 1\n"))
	var nonRigid *utils.NonRigidTransformError
	test.That(t, errors.As(err, &nonRigid), test.ShouldBeTrue)
}

func TestGroundTruthArgs(t *testing.T) {
	tf, err := NewRigidTransformFromAxisAngle(r3.Vector{Z: 1}, 90, r3.Vector{X: 1, Y: 2, Z: 3})
	test.That(t, err, test.ShouldBeNil)
	args := GroundTruthArgs(tf)
	test.That(t, args, test.ShouldHaveLength, 16)
	test.That(t, args[1], test.ShouldEqual, "-1.000000")
	test.That(t, args[3], test.ShouldEqual, "1.000000")
	test.That(t, args[11], test.ShouldEqual, "3.000000")
	test.That(t, args[15], test.ShouldEqual, "1.000000")
}

func TestTransformLog(t *testing.T) {
	p := AxisAngleParams{
		Axis:         r3.Vector{X: -1, Y: -0.1, Z: 0},
		AngleDegrees: 25.84,
		Translation:  r3.Vector{X: 0.035, Y: 0, Z: 0.5},
	}
	var buf bytes.Buffer
	test.That(t, WriteTransformLog(&buf, p), test.ShouldBeNil)
	test.That(t, buf.String(), test.ShouldEqual,
		"translation: 0.035 0 0.5\nrotation_degrees: 25.84\nrotation_axis: -1 -0.1 0\n")

	back, err := ReadTransformLog(&buf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, back, test.ShouldResemble, p)

	listed, err := ReadTransformLog(strings.NewReader(
		"translation: [0.035, 0, 0.5]\nrotation_degrees: 25.84\nrotation_axis: [-1, -0.1, 0]\n"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, listed, test.ShouldResemble, p)

	var parseErr *utils.ParseError
	for _, bad := range []string{
		"translation: 1 2\nrotation_degrees: 3\nrotation_axis: 0 0 1\n",
		"translation: 1 2 3\nrotation_axis: 0 0 1\n",
		"translation: 1 2 3\nrotation_degrees: 3\nrotation_axis: 0 0 1\nscale: 2\n",
		"translation 1 2 3\n",
		"translation: 1 2 x\nrotation_degrees: 3\nrotation_axis: 0 0 1\n",
	} {
		_, err := ReadTransformLog(strings.NewReader(bad))
		test.That(t, errors.As(err, &parseErr), test.ShouldBeTrue)
	}
}
