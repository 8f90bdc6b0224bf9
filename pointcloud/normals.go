package pointcloud

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/kdtree"

	"go.viam.com/regsynth/utils"
)

// minSpread is the largest covariance eigenvalue below which a neighbourhood has no
// usable shape.
const minSpread = 1e-24

// EstimateNormals returns a copy of cloud with a normal per point, computed as the
// direction of least variance among the point's k nearest neighbours (the point
// itself included). Normals are oriented away from the cloud's centroid.
func EstimateNormals(cloud *PointCloud, k int) (*PointCloud, error) {
	n := cloud.Size()
	if k < 3 || k >= n {
		return nil, utils.NewRangeError("k", float64(k), 3, float64(n-1))
	}

	// kdtree.New reorders its input, so the tree gets its own slice.
	treePoints := make(kdtree.Points, n)
	for i, p := range cloud.positions {
		treePoints[i] = kdtree.Point{p.X, p.Y, p.Z}
	}
	tree := kdtree.New(treePoints, false)
	meta := cloud.MetaData()
	centroid := meta.Centroid()

	normals := make([]r3.Vector, n)
	errs := make([]error, max(utils.ParallelFactor, 1))
	utils.GroupWorkParallel(n, func(groupNum, from, to int) {
		for i := from; i < to; i++ {
			p := cloud.positions[i]
			keeper := kdtree.NewNKeeper(k)
			tree.NearestSet(keeper, kdtree.Point{p.X, p.Y, p.Z})

			normal, err := leastVarianceDirection(keeper.Heap)
			if err != nil {
				errs[groupNum] = utils.NewDegenerateInputError("neighbourhood of point %d: %v", i, err)
				return
			}
			if normal.Dot(p.Sub(centroid)) < 0 {
				normal = normal.Mul(-1)
			}
			normals[i] = normal
		}
	})
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return newOwned(cloud.Positions(), normals, cloud.Colors())
}

func leastVarianceDirection(heap kdtree.Heap) (r3.Vector, error) {
	neighbours := make([]r3.Vector, 0, len(heap))
	for _, c := range heap {
		if c.Comparable == nil {
			continue
		}
		p := c.Comparable.(kdtree.Point)
		neighbours = append(neighbours, r3.Vector{X: p[0], Y: p[1], Z: p[2]})
	}
	var mean r3.Vector
	for _, p := range neighbours {
		mean = mean.Add(p)
	}
	mean = mean.Mul(1 / float64(len(neighbours)))

	cov := mat.NewSymDense(3, nil)
	for _, p := range neighbours {
		d := p.Sub(mean)
		v := [3]float64{d.X, d.Y, d.Z}
		for r := 0; r < 3; r++ {
			for c := r; c < 3; c++ {
				cov.SetSym(r, c, cov.At(r, c)+v[r]*v[c])
			}
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(cov, true); !ok {
		return r3.Vector{}, errDegenerateNeighbourhood("eigen decomposition failed")
	}
	values := eig.Values(nil)
	if values[2] < minSpread {
		return r3.Vector{}, errDegenerateNeighbourhood("all neighbours coincide")
	}
	var vectors mat.Dense
	eig.VectorsTo(&vectors)
	// eigenvalues are ascending, so column 0 spans the least variance
	normal := r3.Vector{X: vectors.At(0, 0), Y: vectors.At(1, 0), Z: vectors.At(2, 0)}
	return normal.Normalize(), nil
}

type errDegenerateNeighbourhood string

func (e errDegenerateNeighbourhood) Error() string {
	return string(e)
}
