package pointcloud

import (
	"bufio"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/edaniels/lidario"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"go.viam.com/regsynth/logging"
	"go.viam.com/regsynth/spatialmath"
	"go.viam.com/regsynth/utils"
)

const (
	// maxPreciseFloat64 is the largest magnitude below which every integer is exact.
	maxPreciseFloat64 = float64(1 << 53)
	minPreciseFloat64 = -maxPreciseFloat64
)

// NewFromFile returns a pointcloud read in from the given file. The reader is chosen
// by extension: .ply, .xyz and .txt, .las, or the .stl and .obj meshes, whose
// vertices become the points.
func NewFromFile(fn string, logger logging.Logger) (*PointCloud, error) {
	var read func(io.Reader) (*PointCloud, error)
	switch strings.ToLower(filepath.Ext(fn)) {
	case ".las":
		return NewFromLASFile(fn, logger)
	case ".stl", ".obj":
		return NewFromMeshFile(fn, logger)
	case ".ply":
		read = ReadPLY
	case ".xyz", ".txt":
		read = ReadXYZ
	default:
		return nil, errors.Errorf("do not know how to read file %q", fn)
	}

	//nolint:gosec
	f, err := os.Open(fn)
	if err != nil {
		return nil, utils.NewIOError(fn, err)
	}
	defer goutils.UncheckedErrorFunc(f.Close)

	cloud, err := read(bufio.NewReader(f))
	if err != nil {
		return nil, errors.Wrapf(err, "reading %q", fn)
	}
	logger.Debugw("read point cloud", "path", fn, "points", cloud.Size(), "schema", cloud.Schema())
	return cloud, nil
}

// NewFromMeshFile reads a mesh and returns its vertices, see NewFromMesh.
func NewFromMeshFile(fn string, logger logging.Logger) (*PointCloud, error) {
	mesh, err := spatialmath.NewMeshFromFile(fn)
	if err != nil {
		return nil, err
	}
	cloud, err := NewFromMesh(mesh)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %q", fn)
	}
	if !cloud.Schema().HasNormal() && cloud.Size() > 0 {
		logger.Warnw("mesh has vertices without a usable normal; normals dropped", "path", fn)
	}
	logger.Debugw("read mesh", "path", fn, "vertices", cloud.Size(), "triangles", len(mesh.Triangles()))
	return cloud, nil
}

// NewFromMesh returns the mesh vertices as a cloud. Each point carries the averaged
// normal of the faces around it, unless some vertex has none, in which case the
// cloud has no normals.
func NewFromMesh(mesh *spatialmath.Mesh) (*PointCloud, error) {
	positions := append([]r3.Vector{}, mesh.Vertices()...)
	normals := mesh.VertexNormals()
	for _, n := range normals {
		if n == (r3.Vector{}) {
			normals = nil
			break
		}
	}
	return newOwned(positions, normals, nil)
}

// WriteToFile writes the cloud to fn, as LAS when fn ends in .las and as ply in the
// given format otherwise. Ply output replaces fn atomically.
func WriteToFile(cloud *PointCloud, fn string, format PLYFormat) error {
	if strings.ToLower(filepath.Ext(fn)) == ".las" {
		return WriteToLASFile(cloud, fn)
	}
	return utils.WriteFileAtomic(fn, func(w io.Writer) error {
		return WritePLY(cloud, w, format)
	})
}

// NewFromLASFile returns a point cloud from reading a LAS file. Colors are read from
// point format 2. If any lossiness of points could occur from reading it in, it's
// reported but is not an error.
func NewFromLASFile(fn string, logger logging.Logger) (*PointCloud, error) {
	lf, err := lidario.NewLasFile(fn, "r")
	if err != nil {
		return nil, utils.NewIOError(fn, err)
	}
	defer goutils.UncheckedErrorFunc(lf.Close)

	positions := make([]r3.Vector, 0, lf.Header.NumberPoints)
	var colors []color.NRGBA
	if lf.Header.PointFormatID == 2 {
		colors = make([]color.NRGBA, 0, lf.Header.NumberPoints)
	}
	imprecise := 0
	for i := 0; i < lf.Header.NumberPoints; i++ {
		p, err := lf.LasPoint(i)
		if err != nil {
			return nil, errors.Wrapf(err, "reading LAS point %d", i)
		}
		data := p.PointData()

		x, y, z := data.X, data.Y, data.Z
		if x < minPreciseFloat64 || x > maxPreciseFloat64 ||
			y < minPreciseFloat64 || y > maxPreciseFloat64 ||
			z < minPreciseFloat64 || z > maxPreciseFloat64 {
			imprecise++
		}
		positions = append(positions, r3.Vector{X: x, Y: y, Z: z})

		if colors != nil {
			c := color.NRGBA{A: 255}
			if rgb := p.RgbData(); rgb != nil {
				c.R = uint8(rgb.Red / 256)
				c.G = uint8(rgb.Green / 256)
				c.B = uint8(rgb.Blue / 256)
			}
			colors = append(colors, c)
		}
	}
	if imprecise > 0 {
		logger.Warnw("potential floating point lossiness for LAS points",
			"path", fn, "count", imprecise, "range", fmt.Sprintf("[%f,%f]", minPreciseFloat64, maxPreciseFloat64))
	}
	return newOwned(positions, nil, colors)
}

// WriteToLASFile writes the point cloud out to a LAS file. LAS has no normal
// attribute, so normals are not written and colors lose their alpha channel.
func WriteToLASFile(cloud *PointCloud, fn string) (err error) {
	lf, err := lidario.NewLasFile(fn, "w")
	if err != nil {
		return utils.NewIOError(fn, err)
	}
	defer func() {
		cerr := lf.Close()
		err = multierr.Combine(err, utils.NewIOError(fn, cerr))
	}()

	hasColor := cloud.Schema().HasColor()
	pointFormatID := 0
	if hasColor {
		pointFormatID = 2
	}
	if err = lf.AddHeader(lidario.LasHeader{
		PointFormatID: byte(pointFormatID),
	}); err != nil {
		return
	}

	for i := 0; i < cloud.Size(); i++ {
		pos := cloud.Position(i)
		var lp lidario.LasPointer
		pr0 := &lidario.PointRecord0{
			X: pos.X,
			Y: pos.Y,
			Z: pos.Z,
			BitField: lidario.PointBitField{
				Value: (1) | (1 << 3) | (0 << 6) | (0 << 7),
			},
			ClassBitField: lidario.ClassificationBitField{
				Value: 0,
			},
			ScanAngle:     0,
			UserData:      0,
			PointSourceID: 1,
		}
		lp = pr0

		if hasColor {
			c := cloud.Color(i)
			lp = &lidario.PointRecord2{
				PointRecord0: pr0,
				RGB: &lidario.RgbData{
					Red:   uint16(c.R) * 256,
					Green: uint16(c.G) * 256,
					Blue:  uint16(c.B) * 256,
				},
			}
		}
		if err = lf.AddLasPoint(lp); err != nil {
			return
		}
	}

	// nolint:nakedret
	return
}
