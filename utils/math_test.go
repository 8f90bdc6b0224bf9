package utils

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestAngleConversion(t *testing.T) {
	test.That(t, DegToRad(180), test.ShouldAlmostEqual, math.Pi)
	test.That(t, RadToDeg(math.Pi/2), test.ShouldAlmostEqual, 90)
	test.That(t, RadToDeg(DegToRad(25.84)), test.ShouldAlmostEqual, 25.84)
}

func TestClampAndAlmostEqual(t *testing.T) {
	test.That(t, ClampFloat64(-3, 0, 255), test.ShouldEqual, 0)
	test.That(t, ClampFloat64(300, 0, 255), test.ShouldEqual, 255)
	test.That(t, ClampFloat64(17.5, 0, 255), test.ShouldEqual, 17.5)
	test.That(t, Float64AlmostEqual(1, 1+1e-10, 1e-9), test.ShouldBeTrue)
	test.That(t, Float64AlmostEqual(1, 1.1, 1e-9), test.ShouldBeFalse)
}

func TestCheckUnitInterval(t *testing.T) {
	test.That(t, CheckUnitInterval("ratio", 0), test.ShouldBeNil)
	test.That(t, CheckUnitInterval("ratio", 1), test.ShouldBeNil)
	for _, bad := range []float64{-0.01, 1.01, math.NaN()} {
		err := CheckUnitInterval("ratio", bad)
		var rangeErr *RangeError
		test.That(t, errors.As(err, &rangeErr), test.ShouldBeTrue)
	}
}
