package sampling

import (
	"math"
	"math/rand"
	"sort"

	"github.com/golang/geo/r3"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/floats"

	"go.viam.com/regsynth/pointcloud"
	"go.viam.com/regsynth/spatialmath"
	"go.viam.com/regsynth/utils"
)

// SampleMesh draws n points uniformly over the surface of mesh. Each point picks a
// face with probability proportional to its area, then a uniform position on that
// face, and carries the face normal. Draws come from rng only, so a seeded rng
// reproduces the same cloud.
func SampleMesh(mesh *spatialmath.Mesh, n int, rng *rand.Rand) (*pointcloud.PointCloud, error) {
	if n < 0 {
		return nil, utils.NewRangeError("n", float64(n), 0, math.MaxInt)
	}
	triangles := mesh.Triangles()
	areas := lo.Map(triangles, func(t *spatialmath.Triangle, _ int) float64 { return t.Area() })
	cumulative := floats.CumSum(make([]float64, len(areas)), areas)
	if len(cumulative) == 0 || !(cumulative[len(cumulative)-1] > 0) {
		return nil, utils.NewDegenerateInputError("mesh with %d triangles has no surface area", len(triangles))
	}
	total := cumulative[len(cumulative)-1]

	positions := make([]r3.Vector, n)
	normals := make([]r3.Vector, n)
	for i := range positions {
		x := rng.Float64() * total
		// first face whose running area passes x; faces without area are never picked
		face := sort.Search(len(cumulative), func(j int) bool { return cumulative[j] > x })
		face = min(face, len(triangles)-1)
		t := triangles[face]
		positions[i] = t.PointAt(rng.Float64(), rng.Float64())
		normals[i] = t.Normal()
	}
	return pointcloud.New(positions, normals, nil)
}
