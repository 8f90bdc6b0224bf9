package sampling

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.viam.com/test"

	"go.viam.com/regsynth/pointcloud"
	"go.viam.com/regsynth/utils"
)

func TestSplitByRatio(t *testing.T) {
	cloud := pointcloud.MakeTestCloud(10, pointcloud.SchemaPositionNormalColor)
	first, second, err := SplitByRatio(cloud, 0.6)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, first.Size(), test.ShouldEqual, 6)
	test.That(t, second.Size(), test.ShouldEqual, 4)
	for i := 0; i < 6; i++ {
		test.That(t, first.At(i), test.ShouldResemble, cloud.At(i))
	}
	for i := 0; i < 4; i++ {
		test.That(t, second.At(i), test.ShouldResemble, cloud.At(6+i))
	}
	joined, err := pointcloud.Concat(first, second)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pointcloud.AlmostEqual(joined, cloud, 0), test.ShouldBeTrue)

	again, _, err := SplitByRatio(cloud, 0.6)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pointcloud.AlmostEqual(again, first, 0), test.ShouldBeTrue)

	all, none, err := SplitByRatio(cloud, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, all.Size(), test.ShouldEqual, 10)
	test.That(t, none.Size(), test.ShouldEqual, 0)
	test.That(t, none.Schema(), test.ShouldEqual, cloud.Schema())

	var rangeErr *utils.RangeError
	for _, ratio := range []float64{-0.1, 1.5} {
		_, _, err = SplitByRatio(cloud, ratio)
		test.That(t, errors.As(err, &rangeErr), test.ShouldBeTrue)
	}
}

func TestSplitCount(t *testing.T) {
	for _, tc := range []struct {
		n     int
		ratio float64
		want  int
	}{
		{10, 0.6, 6},
		{10, 0.3, 3},
		{7, 0.5, 3},
		{0, 0.5, 0},
		{5, 0, 0},
		{5, 1, 5},
	} {
		got, err := SplitCount(tc.n, tc.ratio)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, got, test.ShouldEqual, tc.want)
	}
}

func TestSplitShuffled(t *testing.T) {
	cloud := pointcloud.MakeTestCloud(50, pointcloud.SchemaPosition)
	first, second, err := SplitShuffled(cloud, 0.4, NewRand(1))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, first.Size(), test.ShouldEqual, 20)
	test.That(t, second.Size(), test.ShouldEqual, 30)

	// every point lands in exactly one part
	seen := map[int]int{}
	for _, part := range []*pointcloud.PointCloud{first, second} {
		for i := 0; i < part.Size(); i++ {
			for j := 0; j < cloud.Size(); j++ {
				if part.Position(i) == cloud.Position(j) {
					seen[j]++
				}
			}
		}
	}
	test.That(t, len(seen), test.ShouldEqual, 50)
	for _, count := range seen {
		test.That(t, count, test.ShouldEqual, 1)
	}

	again, _, err := SplitShuffled(cloud, 0.4, NewRand(1))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pointcloud.AlmostEqual(again, first, 0), test.ShouldBeTrue)
}

func TestSampleWithoutReplacement(t *testing.T) {
	cloud := pointcloud.MakeTestCloud(100, pointcloud.SchemaPositionColor)

	sample, indices, err := SampleWithoutReplacement(cloud, 0.3, NewRand(42))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sample.Size(), test.ShouldEqual, 30)
	test.That(t, indices, test.ShouldHaveLength, 30)
	test.That(t, lo.Uniq(indices), test.ShouldHaveLength, 30)
	for i, idx := range indices {
		test.That(t, sample.At(i), test.ShouldResemble, cloud.At(idx))
	}

	_, same, err := SampleWithoutReplacement(cloud, 0.3, NewRand(42))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, same, test.ShouldResemble, indices)

	_, other, err := SampleWithoutReplacement(cloud, 0.3, NewRand(43))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, lo.Uniq(other), test.ShouldHaveLength, 30)

	var rangeErr *utils.RangeError
	_, _, err = SampleWithoutReplacement(cloud, 1.1, NewRand(1))
	test.That(t, errors.As(err, &rangeErr), test.ShouldBeTrue)
}

func TestSampleIndices(t *testing.T) {
	all, err := SampleIndices(20, 20, NewRand(3))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, lo.Uniq(all), test.ShouldHaveLength, 20)
	for _, idx := range all {
		test.That(t, idx, test.ShouldBeBetweenOrEqual, 0, 19)
	}

	none, err := SampleIndices(0, 0, NewRand(3))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, none, test.ShouldBeEmpty)

	var rangeErr *utils.RangeError
	_, err = SampleIndices(5, 6, NewRand(3))
	test.That(t, errors.As(err, &rangeErr), test.ShouldBeTrue)
	_, err = SampleIndices(5, -1, NewRand(3))
	test.That(t, errors.As(err, &rangeErr), test.ShouldBeTrue)
}
