// Package sampling partitions clouds by index and draws random subsets from an
// explicitly seeded generator.
package sampling

import (
	"math"
	"math/rand"

	"github.com/samber/lo"

	"go.viam.com/regsynth/pointcloud"
	"go.viam.com/regsynth/utils"
)

// NewRand returns a generator seeded with seed. Two generators built from the same
// seed produce the same draws.
func NewRand(seed int64) *rand.Rand {
	//nolint:gosec
	return rand.New(rand.NewSource(seed))
}

// SplitCount returns floor(ratio·n).
func SplitCount(n int, ratio float64) (int, error) {
	if err := utils.CheckUnitInterval("ratio", ratio); err != nil {
		return 0, err
	}
	return int(math.Floor(ratio * float64(n))), nil
}

// SplitByRatio returns the first floor(ratio·N) points and the remainder, both in
// their original order.
func SplitByRatio(cloud *pointcloud.PointCloud, ratio float64) (*pointcloud.PointCloud, *pointcloud.PointCloud, error) {
	return splitIndices(cloud, lo.Range(cloud.Size()), ratio)
}

// SplitShuffled shuffles the point order with rng and then splits like SplitByRatio.
func SplitShuffled(cloud *pointcloud.PointCloud, ratio float64, rng *rand.Rand) (*pointcloud.PointCloud, *pointcloud.PointCloud, error) {
	order := lo.Range(cloud.Size())
	rng.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	return splitIndices(cloud, order, ratio)
}

func splitIndices(cloud *pointcloud.PointCloud, order []int, ratio float64) (*pointcloud.PointCloud, *pointcloud.PointCloud, error) {
	cut, err := SplitCount(len(order), ratio)
	if err != nil {
		return nil, nil, err
	}
	first, err := cloud.Subset(order[:cut])
	if err != nil {
		return nil, nil, err
	}
	second, err := cloud.Subset(order[cut:])
	if err != nil {
		return nil, nil, err
	}
	return first, second, nil
}

// SampleIndices draws count distinct indices from [0, n) uniformly at random using a
// partial Fisher–Yates shuffle.
func SampleIndices(n, count int, rng *rand.Rand) ([]int, error) {
	if count < 0 || count > n {
		return nil, utils.NewRangeError("sample count", float64(count), 0, float64(n))
	}
	pool := lo.Range(n)
	for i := 0; i < count; i++ {
		j := i + rng.Intn(n-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:count:count], nil
}

// SampleWithoutReplacement draws floor(ratio·N) distinct points and returns them with
// the indices they were taken from, in draw order.
func SampleWithoutReplacement(
	cloud *pointcloud.PointCloud,
	ratio float64,
	rng *rand.Rand,
) (*pointcloud.PointCloud, []int, error) {
	count, err := SplitCount(cloud.Size(), ratio)
	if err != nil {
		return nil, nil, err
	}
	indices, err := SampleIndices(cloud.Size(), count, rng)
	if err != nil {
		return nil, nil, err
	}
	sample, err := cloud.Subset(indices)
	if err != nil {
		return nil, nil, err
	}
	return sample, indices, nil
}
