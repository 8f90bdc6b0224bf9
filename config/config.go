// Package config defines the JSON run configuration of regsynth.
package config

import (
	"image/color"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/regsynth/colordrift"
	"go.viam.com/regsynth/dataset"
	"go.viam.com/regsynth/pointcloud"
	"go.viam.com/regsynth/spatialmath"
	rutils "go.viam.com/regsynth/utils"
)

// Defaults applied to fields left empty.
const (
	DefaultPrefix    = "regsynth"
	DefaultOutputDir = "."
	DefaultFormat    = "binary"
)

var partitionModes = []dataset.PartitionMode{
	dataset.PartitionOrdered,
	dataset.PartitionShuffled,
	dataset.PartitionSampled,
}

// Config describes one synthesis run.
type Config struct {
	ConfigFilePath string `json:"-"`

	Input     string                `json:"input"`
	OutputDir string                `json:"output_dir,omitempty"`
	Prefix    string                `json:"prefix,omitempty"`
	Format    string                `json:"format,omitempty"`
	Partition dataset.PartitionSpec `json:"partition"`
	Transform Transform             `json:"transform"`
	Color     *Color                `json:"color,omitempty"`
	Perturb   *Perturb              `json:"perturb,omitempty"`
}

// Transform selects the forward transform. Exactly one of Manual and Random must be set.
type Transform struct {
	Manual *ManualTransform `json:"manual,omitempty"`
	Random *RandomTransform `json:"random,omitempty"`
	Seed   int64            `json:"seed,omitempty"`
}

// ManualTransform gives the forward transform explicitly. An omitted translation is zero.
type ManualTransform struct {
	Axis         []float64 `json:"axis"`
	AngleDegrees float64   `json:"angle_degrees"`
	Translation  []float64 `json:"translation,omitempty"`
}

// RandomTransform bounds a randomly drawn forward transform.
type RandomTransform struct {
	MinAngleDegrees  float64 `json:"min_angle_degrees"`
	MaxAngleDegrees  float64 `json:"max_angle_degrees"`
	TranslationRange float64 `json:"translation_range"`
}

// Color tints the outputs. Colors are "#rrggbb" or "r,g,b"; an empty color leaves
// that cloud alone.
type Color struct {
	Source string  `json:"source,omitempty"`
	Target string  `json:"target,omitempty"`
	Weight float64 `json:"weight"`
}

// Perturb configures the surface wave applied to the source.
type Perturb struct {
	Scale     float64 `json:"scale"`
	Frequency float64 `json:"frequency"`
}

func (c *Config) applyDefaults() {
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if c.Prefix == "" {
		c.Prefix = DefaultPrefix
	}
	if c.Format == "" {
		c.Format = DefaultFormat
	}
	if c.Partition.Mode == "" {
		c.Partition.Mode = dataset.PartitionOrdered
	}
}

// Validate checks the whole configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs error
	if c.Input == "" {
		errs = multierr.Append(errs, utils.NewConfigValidationFieldRequiredError("", "input"))
	}
	if _, err := pointcloud.ParsePLYFormat(c.Format); err != nil {
		errs = multierr.Append(errs, utils.NewConfigValidationError("format", err))
	}
	errs = multierr.Append(errs, validatePartition("partition", c.Partition))
	errs = multierr.Append(errs, c.Transform.Validate("transform"))
	if c.Color != nil {
		errs = multierr.Append(errs, c.Color.Validate("color"))
	}
	if c.Perturb != nil {
		errs = multierr.Append(errs, c.Perturb.Validate("perturb"))
	}
	return errs
}

func validatePartition(path string, p dataset.PartitionSpec) error {
	var errs error
	if p.Mode != "" && !lo.Contains(partitionModes, p.Mode) {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path+".mode",
			errors.Errorf("unknown mode %q, expected one of %v", p.Mode, partitionModes)))
	}
	if err := rutils.CheckUnitInterval("ratio", p.Ratio); err != nil {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path+".ratio", err))
	}
	if err := rutils.CheckUnitInterval("target_ratio", p.TargetRatio); err != nil {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path+".target_ratio", err))
	}
	return errs
}

// Validate checks that exactly one transform source is given and that it is usable.
func (t *Transform) Validate(path string) error {
	switch {
	case t.Manual != nil && t.Random != nil:
		return utils.NewConfigValidationError(path, errors.New("manual and random are mutually exclusive"))
	case t.Manual != nil:
		return t.Manual.Validate(path + ".manual")
	case t.Random != nil:
		if err := t.Random.params().Validate(); err != nil {
			return utils.NewConfigValidationError(path+".random", err)
		}
		return nil
	default:
		return utils.NewConfigValidationError(path, errors.New("one of manual or random is required"))
	}
}

// Validate checks the vector lengths, the axis and the angle.
func (m *ManualTransform) Validate(path string) error {
	var errs error
	if len(m.Axis) != 3 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path+".axis",
			errors.Errorf("expected 3 values, got %d", len(m.Axis))))
	} else if vectorOf(m.Axis).Norm() < spatialmath.MinAxisNorm {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path+".axis",
			errors.New("axis must not be zero")))
	}
	if len(m.Translation) != 0 && len(m.Translation) != 3 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path+".translation",
			errors.Errorf("expected 3 values, got %d", len(m.Translation))))
	}
	if !isFinite(m.AngleDegrees) || lo.ContainsBy(lo.Flatten([][]float64{m.Axis, m.Translation}), isNotFinite) {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path, errors.New("values must be finite")))
	}
	return errs
}

// Validate checks both colors parse and the weight is in [0, 1].
func (c *Color) Validate(path string) error {
	var errs error
	for field, value := range map[string]string{"source": c.Source, "target": c.Target} {
		if value == "" {
			continue
		}
		if _, err := colordrift.ParseColor(value); err != nil {
			errs = multierr.Append(errs, utils.NewConfigValidationError(path+"."+field, err))
		}
	}
	if c.Source == "" && c.Target == "" {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path, errors.New("one of source or target is required")))
	}
	if err := rutils.CheckUnitInterval("weight", c.Weight); err != nil {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path+".weight", err))
	}
	return errs
}

// Validate checks the wave parameters are finite and the scale non-negative.
func (p *Perturb) Validate(path string) error {
	if !isFinite(p.Scale) || !isFinite(p.Frequency) {
		return utils.NewConfigValidationError(path, errors.New("values must be finite"))
	}
	if p.Scale < 0 {
		return utils.NewConfigValidationError(path+".scale", errors.New("must not be negative"))
	}
	return nil
}

// PLYFormat returns the configured output encoding.
func (c *Config) PLYFormat() (pointcloud.PLYFormat, error) {
	return pointcloud.ParsePLYFormat(c.Format)
}

// DatasetSpec validates the configuration and converts it for dataset.Synthesize.
func (c *Config) DatasetSpec() (dataset.Spec, error) {
	if err := c.Validate(); err != nil {
		return dataset.Spec{}, err
	}
	spec := dataset.Spec{
		Partition: c.Partition,
		Transform: dataset.TransformSpec{Seed: c.Transform.Seed},
	}
	if m := c.Transform.Manual; m != nil {
		params := spatialmath.AxisAngleParams{Axis: vectorOf(m.Axis), AngleDegrees: m.AngleDegrees}
		if len(m.Translation) == 3 {
			params.Translation = vectorOf(m.Translation)
		}
		spec.Transform.Manual = &params
	}
	if r := c.Transform.Random; r != nil {
		params := r.params()
		spec.Transform.Random = &params
	}
	if c.Color != nil {
		spec.Color = &dataset.ColorSpec{Weight: c.Color.Weight}
		var err error
		if spec.Color.Source, err = optionalColor(c.Color.Source); err != nil {
			return dataset.Spec{}, err
		}
		if spec.Color.Target, err = optionalColor(c.Color.Target); err != nil {
			return dataset.Spec{}, err
		}
	}
	if c.Perturb != nil {
		spec.Perturb = &dataset.PerturbSpec{Scale: c.Perturb.Scale, Frequency: c.Perturb.Frequency}
	}
	return spec, nil
}

func (r *RandomTransform) params() spatialmath.RandomTransformParams {
	return spatialmath.RandomTransformParams{
		MinAngleDegrees:  r.MinAngleDegrees,
		MaxAngleDegrees:  r.MaxAngleDegrees,
		TranslationRange: r.TranslationRange,
	}
}

func optionalColor(s string) (*color.NRGBA, error) {
	if s == "" {
		return nil, nil
	}
	c, err := colordrift.ParseColor(s)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func vectorOf(v []float64) r3.Vector {
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func isNotFinite(v float64) bool {
	return !isFinite(v)
}
