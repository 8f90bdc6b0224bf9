package pointcloud

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/regsynth/logging"
	"go.viam.com/regsynth/testutils"
	"go.viam.com/regsynth/utils"
)

func TestFileRoundTrip(t *testing.T) {
	logger := logging.NewTestLogger(t)
	dir := testutils.TempDir(t, "pointcloud")
	cloud := MakeTestCloud(50, SchemaPositionNormalColor)

	for _, format := range []PLYFormat{PLYAscii, PLYBinary} {
		fn := filepath.Join(dir, format.String()+".ply")
		test.That(t, WriteToFile(cloud, fn, format), test.ShouldBeNil)
		back, err := NewFromFile(fn, logger)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, AlmostEqual(back, cloud, 1e-5), test.ShouldBeTrue)
	}
	// no temporary files are left next to the outputs
	test.That(t, testutils.ListDir(t, dir), test.ShouldResemble, []string{"ascii.ply", "binary.ply"})
}

func TestNewFromFileErrors(t *testing.T) {
	logger := logging.NewTestLogger(t)
	dir := testutils.TempDir(t, "pointcloud")

	_, err := NewFromFile(filepath.Join(dir, "missing.ply"), logger)
	var ioErr *utils.IOError
	test.That(t, errors.As(err, &ioErr), test.ShouldBeTrue)
	test.That(t, errors.Is(err, os.ErrNotExist), test.ShouldBeTrue)

	_, err = NewFromFile(filepath.Join(dir, "cloud.pcd"), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "do not know how to read")

	bad := testutils.WriteFile(t, dir, "bad.ply", "ply\nformat ascii 1.0\nelement vertex -2\nend_header\n")
	_, err = NewFromFile(bad, logger)
	var parseErr *utils.ParseError
	test.That(t, errors.As(err, &parseErr), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "bad.ply")
}

func TestWriteToFileIOError(t *testing.T) {
	dir := testutils.TempDir(t, "pointcloud")
	err := WriteToFile(MakeTestCloud(3, SchemaPosition), filepath.Join(dir, "missing", "out.ply"), PLYBinary)
	var ioErr *utils.IOError
	test.That(t, errors.As(err, &ioErr), test.ShouldBeTrue)
}

func TestReadXYZ(t *testing.T) {
	logger := logging.NewTestLogger(t)
	dir := testutils.TempDir(t, "pointcloud")

	fn := testutils.WriteFile(t, dir, "cloud.txt", "# x y z nx ny nz\n0 0 0 0 0 1\n\n1.5,2,3,0,2,0\n")
	cloud, err := NewFromFile(fn, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cloud.Schema(), test.ShouldEqual, SchemaPositionNormal)
	test.That(t, cloud.Position(1), test.ShouldResemble, r3.Vector{X: 1.5, Y: 2, Z: 3})
	test.That(t, cloud.Normal(1), test.ShouldResemble, r3.Vector{Y: 1})

	fn = testutils.WriteFile(t, dir, "cloud.xyz", "1 2 3\n4 5 6\n")
	cloud, err = NewFromFile(fn, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cloud.Schema(), test.ShouldEqual, SchemaPosition)
	test.That(t, cloud.Size(), test.ShouldEqual, 2)

	var parseErr *utils.ParseError
	for _, bad := range []string{"1 2\n", "1 2 3\n1 2 3 4 5 6\n", "1 2 z\n"} {
		_, err := NewFromFile(testutils.WriteFile(t, dir, "bad.xyz", bad), logger)
		test.That(t, errors.As(err, &parseErr), test.ShouldBeTrue)
	}
}

func TestLASFile(t *testing.T) {
	logger := logging.NewTestLogger(t)
	dir := testutils.TempDir(t, "pointcloud")
	cloud := MakeTestCloud(20, SchemaPositionColor)

	fn := filepath.Join(dir, "cloud.las")
	test.That(t, WriteToFile(cloud, fn, PLYBinary), test.ShouldBeNil)

	back, err := NewFromFile(fn, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, back.Size(), test.ShouldEqual, cloud.Size())
	test.That(t, back.Schema(), test.ShouldEqual, SchemaPositionColor)
	for i := 0; i < back.Size(); i++ {
		want := cloud.Color(i)
		got := back.Color(i)
		test.That(t, got.R, test.ShouldEqual, want.R)
		test.That(t, got.G, test.ShouldEqual, want.G)
		test.That(t, got.B, test.ShouldEqual, want.B)
		test.That(t, got.A, test.ShouldEqual, uint8(255))
	}
}

func TestNewFromMeshFile(t *testing.T) {
	dir := testutils.TempDir(t, "pointcloud")
	quad := "v 0 0 0\nv 1 0 0\nv 1 1 0\nv 0 1 0\nf 1 2 3 4\n"
	path := testutils.WriteFile(t, dir, "quad.obj", quad)

	cloud, err := NewFromFile(path, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cloud.Size(), test.ShouldEqual, 4)
	test.That(t, cloud.Schema(), test.ShouldEqual, SchemaPositionNormal)
	test.That(t, cloud.Position(2), test.ShouldResemble, r3.Vector{X: 1, Y: 1})
	for i := 0; i < cloud.Size(); i++ {
		test.That(t, cloud.Normal(i), test.ShouldResemble, r3.Vector{Z: 1})
	}

	// a vertex outside every face has no normal, so the cloud carries none
	logger, logs := logging.NewObservedTestLogger(t)
	loose := testutils.WriteFile(t, dir, "loose.obj", quad+"v 4 4 4\n")
	cloud, err = NewFromFile(loose, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cloud.Size(), test.ShouldEqual, 5)
	test.That(t, cloud.Schema(), test.ShouldEqual, SchemaPosition)
	test.That(t, logs.FilterMessageSnippet("normals dropped").Len(), test.ShouldEqual, 1)

	broken := testutils.WriteFile(t, dir, "broken.stl", "solid s\nvertex 0 0 0\n")
	_, err = NewFromFile(broken, logger)
	var parseErr *utils.ParseError
	test.That(t, errors.As(err, &parseErr), test.ShouldBeTrue)
}
