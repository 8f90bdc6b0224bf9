// Package dataset assembles registration test cases: it partitions a cloud, moves
// one part by a known rigid transform and records the inverse as ground truth.
package dataset

import (
	"context"
	"image/color"
	"math"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"

	"go.viam.com/regsynth/colordrift"
	"go.viam.com/regsynth/perturb"
	"go.viam.com/regsynth/pointcloud"
	"go.viam.com/regsynth/sampling"
	"go.viam.com/regsynth/spatialmath"
)

// PartitionMode selects how the input cloud is divided into source and target.
type PartitionMode string

const (
	// PartitionOrdered takes the first Ratio of the points as source and the rest as target.
	PartitionOrdered PartitionMode = "ordered"
	// PartitionShuffled shuffles the points before splitting like PartitionOrdered.
	PartitionShuffled PartitionMode = "shuffled"
	// PartitionSampled draws source and target independently, so they may overlap.
	PartitionSampled PartitionMode = "sampled"
)

// PartitionSpec describes the split of the input cloud.
type PartitionSpec struct {
	Mode  PartitionMode `json:"mode"`
	Ratio float64       `json:"ratio"`
	// TargetRatio is the target sample size for PartitionSampled. Zero means Ratio.
	TargetRatio float64 `json:"target_ratio,omitempty"`
	Seed        int64   `json:"seed"`
}

// TransformSpec describes the forward transform. Exactly one of Manual and Random is set.
type TransformSpec struct {
	Manual *spatialmath.AxisAngleParams
	Random *spatialmath.RandomTransformParams
	Seed   int64
}

// ColorSpec tints the outputs. A nil Source or Target leaves that cloud's colors alone.
type ColorSpec struct {
	Source *color.NRGBA
	Target *color.NRGBA
	Weight float64
}

// PerturbSpec roughens the source surface before it is moved.
type PerturbSpec struct {
	Scale     float64
	Frequency float64
}

// Spec is everything needed to synthesize one dataset.
type Spec struct {
	Partition PartitionSpec
	Transform TransformSpec
	Color     *ColorSpec
	Perturb   *PerturbSpec
}

// Stats summarizes a synthesized dataset.
type Stats struct {
	InputPoints  int `json:"input_points"`
	SourcePoints int `json:"source_points"`
	TargetPoints int `json:"target_points"`

	MeanDisplacement   float64 `json:"mean_displacement"`
	MedianDisplacement float64 `json:"median_displacement"`
	MaxDisplacement    float64 `json:"max_displacement"`
	MeanPerturbation   float64 `json:"mean_perturbation,omitempty"`
	// RoundTripError is the largest distance between a source point moved back by the
	// ground truth and its position before the forward transform.
	RoundTripError float64 `json:"round_trip_error"`
}

// Dataset is one registration test case.
type Dataset struct {
	Source      *pointcloud.PointCloud
	Target      *pointcloud.PointCloud
	GroundTruth *spatialmath.RigidTransform
	Forward     *spatialmath.RigidTransform
	Params      spatialmath.AxisAngleParams
	// Colors is the tint applied to Source and Target, if any.
	Colors *ColorSpec
	Stats  Stats
}

// Synthesize partitions cloud, optionally perturbs the source, moves it by the forward
// transform and tints both parts. The ground truth maps the emitted source back onto
// its original placement. Any failure, including a cancelled ctx, aborts the whole run.
func Synthesize(ctx context.Context, cloud *pointcloud.PointCloud, spec Spec) (*Dataset, error) {
	ctx, span := trace.StartSpan(ctx, "dataset::Synthesize")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_, partitionSpan := trace.StartSpan(ctx, "dataset::Synthesize::partition")
	rawSource, target, err := partition(cloud, spec.Partition)
	partitionSpan.End()
	if err != nil {
		return nil, errors.Wrap(err, "partition")
	}

	var perturbation []float64
	if spec.Perturb != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		_, perturbSpan := trace.StartSpan(ctx, "dataset::Synthesize::perturb")
		rawSource, perturbation, err = perturb.SurfaceWave(rawSource, spec.Perturb.Scale, spec.Perturb.Frequency)
		perturbSpan.End()
		if err != nil {
			return nil, errors.Wrap(err, "perturb")
		}
	}

	params, err := transformParams(spec.Transform)
	if err != nil {
		return nil, errors.Wrap(err, "transform")
	}
	forward, err := params.RigidTransform()
	if err != nil {
		return nil, errors.Wrap(err, "transform")
	}
	groundTruth, err := forward.Invert()
	if err != nil {
		return nil, errors.Wrap(err, "ground truth")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_, transformSpan := trace.StartSpan(ctx, "dataset::Synthesize::transform")
	source := pointcloud.ApplyTransform(rawSource, forward)
	transformSpan.End()

	if c := spec.Color; c != nil {
		_, colorSpan := trace.StartSpan(ctx, "dataset::Synthesize::color")
		defer colorSpan.End()
		if c.Source != nil {
			if source, err = colordrift.Drift(source, *c.Source, c.Weight); err != nil {
				return nil, errors.Wrap(err, "source color")
			}
		}
		if c.Target != nil {
			if target, err = colordrift.Drift(target, *c.Target, c.Weight); err != nil {
				return nil, errors.Wrap(err, "target color")
			}
		}
	}

	ds := &Dataset{
		Source:      source,
		Target:      target,
		GroundTruth: groundTruth,
		Forward:     forward,
		Params:      params,
		Colors:      spec.Color,
	}
	if ds.Stats, err = computeStats(cloud, rawSource, ds, perturbation); err != nil {
		return nil, errors.Wrap(err, "stats")
	}
	return ds, nil
}

func partition(cloud *pointcloud.PointCloud, spec PartitionSpec) (*pointcloud.PointCloud, *pointcloud.PointCloud, error) {
	switch spec.Mode {
	case PartitionOrdered, "":
		return sampling.SplitByRatio(cloud, spec.Ratio)
	case PartitionShuffled:
		return sampling.SplitShuffled(cloud, spec.Ratio, sampling.NewRand(spec.Seed))
	case PartitionSampled:
		rng := sampling.NewRand(spec.Seed)
		source, _, err := sampling.SampleWithoutReplacement(cloud, spec.Ratio, rng)
		if err != nil {
			return nil, nil, err
		}
		targetRatio := spec.TargetRatio
		if targetRatio == 0 {
			targetRatio = spec.Ratio
		}
		target, _, err := sampling.SampleWithoutReplacement(cloud, targetRatio, rng)
		if err != nil {
			return nil, nil, err
		}
		return source, target, nil
	default:
		return nil, nil, errors.Errorf("unknown partition mode %q", spec.Mode)
	}
}

func transformParams(spec TransformSpec) (spatialmath.AxisAngleParams, error) {
	switch {
	case spec.Manual != nil && spec.Random != nil:
		return spatialmath.AxisAngleParams{}, errors.New("manual and random transforms are mutually exclusive")
	case spec.Manual != nil:
		return *spec.Manual, nil
	case spec.Random != nil:
		return spatialmath.RandomAxisAngle(sampling.NewRand(spec.Seed), *spec.Random)
	default:
		return spatialmath.AxisAngleParams{}, errors.New("either a manual or a random transform is required")
	}
}

func computeStats(input, rawSource *pointcloud.PointCloud, ds *Dataset, perturbation []float64) (Stats, error) {
	s := Stats{
		InputPoints:  input.Size(),
		SourcePoints: ds.Source.Size(),
		TargetPoints: ds.Target.Size(),
	}
	if rawSource.Size() == 0 {
		return s, nil
	}

	displacement := make(stats.Float64Data, rawSource.Size())
	for i := range displacement {
		raw := rawSource.Position(i)
		moved := ds.Source.Position(i)
		displacement[i] = moved.Sub(raw).Norm()
		s.RoundTripError = math.Max(s.RoundTripError, ds.GroundTruth.Transform(moved).Sub(raw).Norm())
	}
	var err error
	if s.MeanDisplacement, err = displacement.Mean(); err != nil {
		return s, err
	}
	if s.MedianDisplacement, err = displacement.Median(); err != nil {
		return s, err
	}
	if s.MaxDisplacement, err = displacement.Max(); err != nil {
		return s, err
	}
	if len(perturbation) > 0 {
		if s.MeanPerturbation, err = stats.Mean(perturbation); err != nil {
			return s, err
		}
	}
	return s, nil
}
