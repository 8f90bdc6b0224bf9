package config

import (
	"image/color"
	"strings"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/regsynth/dataset"
	"go.viam.com/regsynth/logging"
	"go.viam.com/regsynth/pointcloud"
	"go.viam.com/regsynth/spatialmath"
	"go.viam.com/regsynth/testutils"
)

const manualConfig = `{
	"input": "bunny.ply",
	"output_dir": "out",
	"prefix": "bunny",
	"format": "ascii",
	"partition": {"mode": "sampled", "ratio": 0.5, "target_ratio": 0.4, "seed": 42},
	"transform": {"manual": {"axis": [0, 0, 1], "angle_degrees": 90, "translation": [1, 0, 0]}},
	"color": {"source": "#5a64dc", "target": "255,180,0", "weight": 0.5},
	"perturb": {"scale": 0.05, "frequency": 10}
}`

func TestFromReader(t *testing.T) {
	logger := logging.NewTestLogger(t)

	_, err := FromReader("somepath", strings.NewReader(""), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unmarshal")

	_, err = FromReader("somepath", strings.NewReader(`{"cloud": 1}`), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unmarshal")

	conf, err := FromReader("somepath", strings.NewReader(manualConfig), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf, test.ShouldResemble, &Config{
		ConfigFilePath: "somepath",
		Input:          "bunny.ply",
		OutputDir:      "out",
		Prefix:         "bunny",
		Format:         "ascii",
		Partition:      dataset.PartitionSpec{Mode: dataset.PartitionSampled, Ratio: 0.5, TargetRatio: 0.4, Seed: 42},
		Transform: Transform{Manual: &ManualTransform{
			Axis:         []float64{0, 0, 1},
			AngleDegrees: 90,
			Translation:  []float64{1, 0, 0},
		}},
		Color:   &Color{Source: "#5a64dc", Target: "255,180,0", Weight: 0.5},
		Perturb: &Perturb{Scale: 0.05, Frequency: 10},
	})

	format, err := conf.PLYFormat()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, format, test.ShouldEqual, pointcloud.PLYAscii)

	spec, err := conf.DatasetSpec()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spec.Partition, test.ShouldResemble, conf.Partition)
	test.That(t, spec.Transform.Random, test.ShouldBeNil)
	test.That(t, *spec.Transform.Manual, test.ShouldResemble, spatialmath.AxisAngleParams{
		Axis:         r3.Vector{Z: 1},
		AngleDegrees: 90,
		Translation:  r3.Vector{X: 1},
	})
	test.That(t, *spec.Color.Source, test.ShouldResemble, color.NRGBA{R: 90, G: 100, B: 220, A: 255})
	test.That(t, *spec.Color.Target, test.ShouldResemble, color.NRGBA{R: 255, G: 180, A: 255})
	test.That(t, spec.Color.Weight, test.ShouldEqual, 0.5)
	test.That(t, *spec.Perturb, test.ShouldResemble, dataset.PerturbSpec{Scale: 0.05, Frequency: 10})
}

func TestFromReaderDefaults(t *testing.T) {
	conf, err := FromReader("somepath", strings.NewReader(`{
		"input": "in.xyz",
		"partition": {"ratio": 0.6},
		"transform": {"random": {"min_angle_degrees": 1, "max_angle_degrees": 5, "translation_range": 0.5}, "seed": 3}
	}`), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.OutputDir, test.ShouldEqual, DefaultOutputDir)
	test.That(t, conf.Prefix, test.ShouldEqual, DefaultPrefix)
	test.That(t, conf.Format, test.ShouldEqual, DefaultFormat)
	test.That(t, conf.Partition.Mode, test.ShouldEqual, dataset.PartitionOrdered)

	spec, err := conf.DatasetSpec()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spec.Transform.Manual, test.ShouldBeNil)
	test.That(t, spec.Transform.Seed, test.ShouldEqual, int64(3))
	test.That(t, *spec.Transform.Random, test.ShouldResemble, spatialmath.RandomTransformParams{
		MinAngleDegrees: 1, MaxAngleDegrees: 5, TranslationRange: 0.5,
	})
	test.That(t, spec.Color, test.ShouldBeNil)
	test.That(t, spec.Perturb, test.ShouldBeNil)
}

func TestValidateReportsEveryProblem(t *testing.T) {
	_, err := FromReader("somepath", strings.NewReader(`{
		"format": "pcd",
		"partition": {"mode": "striped", "ratio": 1.5},
		"transform": {"manual": {"axis": [0, 0, 0], "angle_degrees": 10, "translation": [1, 2]}},
		"color": {"source": "#zzzzzz", "weight": 2}
	}`), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	for _, want := range []string{
		`"input" is required`,
		`"format"`,
		`"partition.mode"`,
		`"partition.ratio"`,
		`"transform.manual.axis"`,
		`"transform.manual.translation"`,
		`"color.source"`,
		`"color.weight"`,
	} {
		test.That(t, err.Error(), test.ShouldContainSubstring, want)
	}
}

func TestTransformValidate(t *testing.T) {
	manual := &ManualTransform{Axis: []float64{1, 0, 0}, AngleDegrees: 5}
	random := &RandomTransform{MinAngleDegrees: 1, MaxAngleDegrees: 2}

	test.That(t, (&Transform{Manual: manual}).Validate("transform"), test.ShouldBeNil)
	test.That(t, (&Transform{Random: random}).Validate("transform"), test.ShouldBeNil)

	err := (&Transform{Manual: manual, Random: random}).Validate("transform")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "mutually exclusive")

	err = (&Transform{}).Validate("transform")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "required")

	err = (&Transform{Random: &RandomTransform{MinAngleDegrees: 5, MaxAngleDegrees: 1}}).Validate("transform")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "transform.random")
}

func TestColorAndPerturbValidate(t *testing.T) {
	test.That(t, (&Color{Target: "#ffb400", Weight: 1}).Validate("color"), test.ShouldBeNil)

	err := (&Color{Weight: 0.5}).Validate("color")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "one of source or target")

	test.That(t, (&Perturb{Scale: 0.1, Frequency: 3}).Validate("perturb"), test.ShouldBeNil)
	test.That(t, (&Perturb{Scale: -1, Frequency: 3}).Validate("perturb"), test.ShouldNotBeNil)
}

func TestReadExpandsEnvironment(t *testing.T) {
	dir := testutils.TempDir(t, "config")
	t.Setenv("REGSYNTH_INPUT", "/data/scan.ply")
	t.Setenv("REGSYNTH_OUT", "/data/out")
	path := testutils.WriteFile(t, dir, "run.json", `{
		"input": "${REGSYNTH_INPUT}",
		"output_dir": "$REGSYNTH_OUT",
		"partition": {"ratio": 0.5},
		"transform": {"manual": {"axis": [0, 1, 0], "angle_degrees": 12}}
	}`)

	conf, err := Read(path, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.ConfigFilePath, test.ShouldEqual, path)
	test.That(t, conf.Input, test.ShouldEqual, "/data/scan.ply")
	test.That(t, conf.OutputDir, test.ShouldEqual, "/data/out")

	_, err = Read(path+".missing", logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestFromReaderJSON5(t *testing.T) {
	conf, err := FromReader("commented.json", strings.NewReader(`{
		// the scan to split
		input: "bunny.ply",
		partition: {ratio: 0.25,},
		/* a quarter turn */
		transform: {manual: {axis: [0, 0, 1], angle_degrees: 90}, seed: 7},
	}`), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.Input, test.ShouldEqual, "bunny.ply")
	test.That(t, conf.Partition.Ratio, test.ShouldEqual, 0.25)
	test.That(t, conf.Transform.Seed, test.ShouldEqual, int64(7))
	test.That(t, conf.Transform.Manual.AngleDegrees, test.ShouldEqual, 90.)

	_, err = FromReader("commented.json", strings.NewReader(`{input: "bunny.ply", /* typo */ ratio: 0.5}`), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unknown field")
}
