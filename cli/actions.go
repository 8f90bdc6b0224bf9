package cli

import (
	"io"
	"os"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	goutils "go.viam.com/utils"

	"go.viam.com/regsynth/config"
	"go.viam.com/regsynth/dataset"
	"go.viam.com/regsynth/perturb"
	"go.viam.com/regsynth/pointcloud"
	"go.viam.com/regsynth/sampling"
	"go.viam.com/regsynth/spatialmath"
	"go.viam.com/regsynth/utils"
)

// SynthAction is the corresponding action for 'synth'.
func SynthAction(c *cli.Context) error {
	logger := loggerFrom(c)
	cfg, err := config.Read(c.String(synthFlagConfig), logger)
	if err != nil {
		return err
	}
	if output := c.String(generalFlagOutput); output != "" {
		cfg.OutputDir = output
	}
	spec, err := cfg.DatasetSpec()
	if err != nil {
		return err
	}
	format, err := cfg.PLYFormat()
	if err != nil {
		return err
	}

	cloud, err := pointcloud.NewFromFile(cfg.Input, logger)
	if err != nil {
		return err
	}
	ds, err := dataset.Synthesize(c.Context, cloud, spec)
	if err != nil {
		return errors.Wrapf(err, "synthesizing from %q", cfg.Input)
	}
	artifacts, err := dataset.Write(ds, cfg.OutputDir, cfg.Prefix, format, logger)
	if err != nil {
		return err
	}

	printf(c.App.Writer, "source:       %s (%d points)", artifacts.Source, ds.Source.Size())
	printf(c.App.Writer, "target:       %s (%d points)", artifacts.Target, ds.Target.Size())
	printf(c.App.Writer, "ground truth: %s", artifacts.GroundTruth)
	printf(c.App.Writer, "manifest:     %s", artifacts.Manifest)
	if c.Bool(synthFlagPrintArgs) {
		printf(c.App.Writer, "%s", strings.Join(spatialmath.GroundTruthArgs(ds.GroundTruth), " "))
	}
	return nil
}

// ConvertAction is the corresponding action for 'convert'.
func ConvertAction(c *cli.Context) error {
	logger := loggerFrom(c)
	cloud, err := readConvertInput(c)
	if err != nil {
		return err
	}
	if c.Bool(convertFlagEstimateNormals) {
		if cloud, err = pointcloud.EstimateNormals(cloud, c.Int(convertFlagK)); err != nil {
			return errors.Wrap(err, "estimating normals")
		}
	}
	format := pointcloud.PLYAscii
	if c.Bool(convertFlagBinary) {
		format = pointcloud.PLYBinary
	}
	if err := pointcloud.WriteToFile(cloud, c.String(generalFlagOutput), format); err != nil {
		return err
	}
	logger.Infow("converted cloud",
		"input", c.String(generalFlagInput),
		"output", c.String(generalFlagOutput),
		"points", cloud.Size(),
		"schema", cloud.Schema())
	return nil
}

func readConvertInput(c *cli.Context) (*pointcloud.PointCloud, error) {
	input := c.String(generalFlagInput)
	if !c.IsSet(convertFlagSamples) {
		return pointcloud.NewFromFile(input, loggerFrom(c))
	}
	if !spatialmath.IsMeshFile(input) {
		return nil, errors.Errorf("--%s needs an stl or obj mesh, got %q", convertFlagSamples, input)
	}
	mesh, err := spatialmath.NewMeshFromFile(input)
	if err != nil {
		return nil, err
	}
	cloud, err := sampling.SampleMesh(mesh, c.Int(convertFlagSamples), sampling.NewRand(c.Int64(convertFlagSeed)))
	if err != nil {
		return nil, errors.Wrapf(err, "sampling %q", input)
	}
	loggerFrom(c).Debugw("sampled mesh", "input", input, "triangles", len(mesh.Triangles()), "area", mesh.Area())
	return cloud, nil
}

// TransformAction is the corresponding action for 'transform'.
func TransformAction(c *cli.Context) error {
	logger := loggerFrom(c)
	format, err := pointcloud.ParsePLYFormat(c.String(generalFlagFormat))
	if err != nil {
		return err
	}
	axis, err := vectorFlag(c, transformFlagAxis)
	if err != nil {
		return err
	}
	var translation r3.Vector
	if c.IsSet(transformFlagTranslation) {
		if translation, err = vectorFlag(c, transformFlagTranslation); err != nil {
			return err
		}
	}
	forward, err := spatialmath.NewRigidTransformFromAxisAngle(axis, c.Float64(transformFlagAngle), translation)
	if err != nil {
		return err
	}

	cloud, err := pointcloud.NewFromFile(c.String(generalFlagInput), logger)
	if err != nil {
		return err
	}
	if err := pointcloud.WriteToFile(pointcloud.ApplyTransform(cloud, forward), c.String(generalFlagOutput), format); err != nil {
		return err
	}
	if path := c.String(transformFlagGroundTruth); path != "" {
		groundTruth, err := forward.Invert()
		if err != nil {
			return err
		}
		if err := writeMatrix(c, path, groundTruth); err != nil {
			return err
		}
	}
	logger.Infow("transformed cloud", "output", c.String(generalFlagOutput), "transform", forward.String())
	return nil
}

// InvertAction is the corresponding action for 'invert'.
func InvertAction(c *cli.Context) error {
	t, err := readMatrixFile(c.String(generalFlagInput))
	if err != nil {
		return err
	}
	inverse, err := t.Invert()
	if err != nil {
		return err
	}
	return writeMatrix(c, c.String(generalFlagOutput), inverse)
}

// PerturbAction is the corresponding action for 'perturb'.
func PerturbAction(c *cli.Context) error {
	logger := loggerFrom(c)
	format, err := pointcloud.ParsePLYFormat(c.String(generalFlagFormat))
	if err != nil {
		return err
	}
	cloud, err := pointcloud.NewFromFile(c.String(generalFlagInput), logger)
	if err != nil {
		return err
	}
	perturbed, magnitudes, err := perturb.SurfaceWave(cloud, c.Float64(perturbFlagScale), c.Float64(perturbFlagFrequency))
	if err != nil {
		return err
	}
	if err := pointcloud.WriteToFile(perturbed, c.String(generalFlagOutput), format); err != nil {
		return err
	}
	if len(magnitudes) > 0 {
		mean, err := stats.Mean(magnitudes)
		if err != nil {
			return err
		}
		largest, err := stats.Max(magnitudes)
		if err != nil {
			return err
		}
		printf(c.App.Writer, "mean displacement %.6f, max displacement %.6f", mean, largest)
	}
	return nil
}

// AlignAction is the corresponding action for 'align'.
func AlignAction(c *cli.Context) error {
	points, err := pointcloud.NewFromFile(c.String(generalFlagInput), loggerFrom(c))
	if err != nil {
		return err
	}
	alignment, err := spatialmath.NewAlignmentTransform(points.Positions())
	if err != nil {
		return err
	}
	if err := writeMatrix(c, c.String(generalFlagOutput), alignment); err != nil {
		return err
	}
	if path := c.String(alignFlagInverse); path != "" {
		placement, err := alignment.Invert()
		if err != nil {
			return err
		}
		return writeMatrix(c, path, placement)
	}
	return nil
}

func vectorFlag(c *cli.Context, name string) (r3.Vector, error) {
	v := c.Float64Slice(name)
	if len(v) != 3 {
		return r3.Vector{}, utils.NewDimensionError("--"+name, 3, len(v))
	}
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}, nil
}

func readMatrixFile(path string) (*spatialmath.RigidTransform, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, utils.NewIOError(path, err)
	}
	defer goutils.UncheckedErrorFunc(f.Close)
	t, err := spatialmath.ReadMatrix(f)
	return t, errors.Wrapf(err, "reading %q", path)
}

// writeMatrix writes t to path, or to the app's output when path is empty.
func writeMatrix(c *cli.Context, path string, t *spatialmath.RigidTransform) error {
	if path == "" {
		return spatialmath.WriteMatrix(c.App.Writer, t)
	}
	return utils.WriteFileAtomic(path, func(w io.Writer) error {
		return spatialmath.WriteMatrix(w, t)
	})
}
