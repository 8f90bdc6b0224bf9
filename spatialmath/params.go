package spatialmath

import (
	"math"
	"math/rand"

	"github.com/golang/geo/r3"

	"go.viam.com/regsynth/utils"
)

// AxisAngleParams are the generating parameters of a rigid transform: rotate
// AngleDegrees around Axis, then translate.
type AxisAngleParams struct {
	Axis         r3.Vector
	AngleDegrees float64
	Translation  r3.Vector
}

// RigidTransform builds the transform described by the parameters.
func (p AxisAngleParams) RigidTransform() (*RigidTransform, error) {
	return NewRigidTransformFromAxisAngle(p.Axis, p.AngleDegrees, p.Translation)
}

// RandomTransformParams bound the transforms drawn by RandomAxisAngle.
type RandomTransformParams struct {
	MinAngleDegrees  float64
	MaxAngleDegrees  float64
	TranslationRange float64
}

// DefaultRandomTransformParams returns small perturbations: 0.5 to 5 degrees and up to
// half a unit of translation per axis.
func DefaultRandomTransformParams() RandomTransformParams {
	return RandomTransformParams{MinAngleDegrees: 0.5, MaxAngleDegrees: 5, TranslationRange: 0.5}
}

// Validate checks the ranges are ordered and finite.
func (p RandomTransformParams) Validate() error {
	for _, v := range []float64{p.MinAngleDegrees, p.MaxAngleDegrees, p.TranslationRange} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return utils.NewRangeError("random transform parameter", v, -math.MaxFloat64, math.MaxFloat64)
		}
	}
	if p.MaxAngleDegrees < p.MinAngleDegrees {
		return utils.NewRangeError("max_angle_degrees", p.MaxAngleDegrees, p.MinAngleDegrees, math.Inf(1))
	}
	if p.TranslationRange < 0 {
		return utils.NewRangeError("translation_range", p.TranslationRange, 0, math.Inf(1))
	}
	return nil
}

// RandomAxisAngle draws transform parameters from rng: a direction sampled from an
// isotropic gaussian, an angle uniform in [MinAngleDegrees, MaxAngleDegrees) and a
// translation uniform in [-TranslationRange, TranslationRange) per axis.
func RandomAxisAngle(rng *rand.Rand, params RandomTransformParams) (AxisAngleParams, error) {
	if err := params.Validate(); err != nil {
		return AxisAngleParams{}, err
	}
	var axis r3.Vector
	for {
		axis = r3.Vector{X: rng.NormFloat64(), Y: rng.NormFloat64(), Z: rng.NormFloat64()}
		if n := axis.Norm(); n >= MinAxisNorm {
			axis = axis.Mul(1 / n)
			break
		}
	}
	angle := params.MinAngleDegrees + rng.Float64()*(params.MaxAngleDegrees-params.MinAngleDegrees)
	uniform := func() float64 {
		return -params.TranslationRange + 2*params.TranslationRange*rng.Float64()
	}
	translation := r3.Vector{X: uniform(), Y: uniform(), Z: uniform()}
	return AxisAngleParams{Axis: axis, AngleDegrees: angle, Translation: translation}, nil
}
