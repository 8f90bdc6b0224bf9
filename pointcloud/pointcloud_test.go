package pointcloud

import (
	"image/color"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/regsynth/utils"
)

func TestPointCloudBasic(t *testing.T) {
	positions := []r3.Vector{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 1}, {X: -1, Y: -2, Z: 1}}
	colors := []color.NRGBA{{R: 1, A: 255}, {G: 2, A: 255}, {B: 3, A: 128}}
	pc, err := New(positions, nil, colors)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pc.Size(), test.ShouldEqual, 3)
	test.That(t, pc.Schema(), test.ShouldEqual, SchemaPositionColor)
	test.That(t, pc.Normals(), test.ShouldBeNil)
	test.That(t, pc.At(2), test.ShouldResemble, Point{Position: positions[2], Color: colors[2]})

	// the cloud holds copies of its inputs
	positions[0] = r3.Vector{X: 100}
	colors[0] = color.NRGBA{}
	test.That(t, pc.Position(0), test.ShouldResemble, r3.Vector{})
	test.That(t, pc.Color(0), test.ShouldResemble, color.NRGBA{R: 1, A: 255})
	got := pc.Positions()
	got[1] = r3.Vector{}
	test.That(t, pc.Position(1), test.ShouldResemble, r3.Vector{X: 1, Y: 0, Z: 1})

	count := 0
	pc.Iterate(func(i int, p Point) bool {
		test.That(t, p.Position, test.ShouldResemble, pc.Position(i))
		count++
		return i < 1
	})
	test.That(t, count, test.ShouldEqual, 2)

	meta := pc.MetaData()
	test.That(t, meta.Size, test.ShouldEqual, 3)
	test.That(t, meta.Schema, test.ShouldEqual, SchemaPositionColor)
	test.That(t, meta.MinX, test.ShouldEqual, -1.)
	test.That(t, meta.MaxX, test.ShouldEqual, 1.)
	test.That(t, meta.MinY, test.ShouldEqual, -2.)
	test.That(t, meta.MaxZ, test.ShouldEqual, 1.)
	centroid := meta.Centroid()
	test.That(t, centroid.X, test.ShouldAlmostEqual, 0)
	test.That(t, centroid.Y, test.ShouldAlmostEqual, -2./3)
	test.That(t, centroid.Z, test.ShouldAlmostEqual, 2./3)
	test.That(t, meta.Extent(), test.ShouldResemble, r3.Vector{X: 2, Y: 2, Z: 1})
}

func TestSchema(t *testing.T) {
	for _, tc := range []struct {
		normal, color bool
		schema        Schema
	}{
		{false, false, SchemaPosition},
		{true, false, SchemaPositionNormal},
		{false, true, SchemaPositionColor},
		{true, true, SchemaPositionNormalColor},
	} {
		s := NewSchema(tc.normal, tc.color)
		test.That(t, s, test.ShouldEqual, tc.schema)
		test.That(t, s.HasNormal(), test.ShouldEqual, tc.normal)
		test.That(t, s.HasColor(), test.ShouldEqual, tc.color)
	}
	test.That(t, SchemaPositionNormalColor.String(), test.ShouldEqual, "position+normal+color")
}

func TestNewValidation(t *testing.T) {
	positions := []r3.Vector{{X: 1}, {Y: 1}}

	_, err := New(positions, []r3.Vector{{Z: 1}}, nil)
	var dimErr *utils.DimensionError
	test.That(t, errors.As(err, &dimErr), test.ShouldBeTrue)
	test.That(t, dimErr.Attribute, test.ShouldEqual, "normals")

	_, err = New(positions, nil, []color.NRGBA{{}, {}, {}})
	test.That(t, errors.As(err, &dimErr), test.ShouldBeTrue)
	test.That(t, dimErr.Attribute, test.ShouldEqual, "colors")

	_, err = New(positions, []r3.Vector{{Z: 1}, {}}, nil)
	var degenerate *utils.DegenerateInputError
	test.That(t, errors.As(err, &degenerate), test.ShouldBeTrue)

	pc, err := New(positions, []r3.Vector{{Z: 2}, {X: 1, Y: 0.00001}}, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pc.Normal(0), test.ShouldResemble, r3.Vector{Z: 1})
	// within tolerance of unit length, left as given
	test.That(t, pc.Normal(1), test.ShouldResemble, r3.Vector{X: 1, Y: 0.00001})

	empty, err := New(nil, []r3.Vector{}, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, empty.Size(), test.ShouldEqual, 0)
	test.That(t, empty.Schema(), test.ShouldEqual, SchemaPositionNormal)
}

func TestSubsetAndConcat(t *testing.T) {
	pc := MakeTestCloud(10, SchemaPositionNormalColor)

	first, err := pc.Subset([]int{0, 1, 2, 3, 4, 5})
	test.That(t, err, test.ShouldBeNil)
	second, err := pc.Subset([]int{6, 7, 8, 9})
	test.That(t, err, test.ShouldBeNil)
	joined, err := Concat(first, second)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, AlmostEqual(joined, pc, 0), test.ShouldBeTrue)

	reversed, err := pc.Subset([]int{9, 0})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, reversed.At(0), test.ShouldResemble, pc.At(9))
	test.That(t, reversed.At(1), test.ShouldResemble, pc.At(0))

	_, err = pc.Subset([]int{10})
	var rangeErr *utils.RangeError
	test.That(t, errors.As(err, &rangeErr), test.ShouldBeTrue)

	_, err = Concat(pc, MakeTestCloud(3, SchemaPosition))
	var unsupported *utils.UnsupportedOperationError
	test.That(t, errors.As(err, &unsupported), test.ShouldBeTrue)
}

func TestAlmostEqual(t *testing.T) {
	a := MakeTestCloud(5, SchemaPositionNormal)
	positions := a.Positions()
	positions[3] = positions[3].Add(r3.Vector{X: 1e-6})
	b, err := New(positions, a.Normals(), nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, AlmostEqual(a, b, 1e-5), test.ShouldBeTrue)
	test.That(t, AlmostEqual(a, b, 1e-7), test.ShouldBeFalse)
	test.That(t, AlmostEqual(a, MakeTestCloud(5, SchemaPosition), 1), test.ShouldBeFalse)
	test.That(t, AlmostEqual(a, MakeTestCloud(4, SchemaPositionNormal), 1), test.ShouldBeFalse)
}
