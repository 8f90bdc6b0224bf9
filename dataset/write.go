package dataset

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"go.viam.com/regsynth/colordrift"
	"go.viam.com/regsynth/logging"
	"go.viam.com/regsynth/pointcloud"
	"go.viam.com/regsynth/spatialmath"
	"go.viam.com/regsynth/utils"
)

// Artifacts are the paths of the files written for a dataset.
type Artifacts struct {
	Source       string
	Target       string
	GroundTruth  string
	TransformLog string
	Manifest     string
}

// NewArtifacts returns the output paths for prefix inside dir.
func NewArtifacts(dir, prefix string) Artifacts {
	path := func(suffix string) string {
		return filepath.Join(dir, prefix+suffix)
	}
	return Artifacts{
		Source:       path("_source.ply"),
		Target:       path("_target.ply"),
		GroundTruth:  path("_ground_truth.txt"),
		TransformLog: path("_Tlog.txt"),
		Manifest:     path("_manifest.json"),
	}
}

// Manifest records how a dataset was produced.
type Manifest struct {
	RunID     string    `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`
	Format    string    `json:"format"`

	Source       string `json:"source"`
	Target       string `json:"target"`
	GroundTruth  string `json:"ground_truth"`
	TransformLog string `json:"transform_log"`

	Transform       ManifestTransform `json:"transform"`
	GroundTruthArgs []string          `json:"ground_truth_args"`
	Colors          *ManifestColors   `json:"colors,omitempty"`
	Stats           Stats             `json:"stats"`
}

// ManifestTransform describes the forward transform and its inverse.
type ManifestTransform struct {
	Axis         [3]float64 `json:"axis"`
	AngleDegrees float64    `json:"angle_degrees"`
	Translation  [3]float64 `json:"translation"`
	// Quaternion is the forward rotation as (w, x, y, z).
	Quaternion  [4]float64  `json:"quaternion"`
	Forward     [16]float64 `json:"forward"`
	GroundTruth [16]float64 `json:"ground_truth"`
}

// ManifestColors records the tints applied to the outputs.
type ManifestColors struct {
	Source string  `json:"source,omitempty"`
	Target string  `json:"target,omitempty"`
	Weight float64 `json:"weight"`
}

// NewManifest describes ds. The artifact paths are stored relative to their directory.
func NewManifest(ds *Dataset, artifacts Artifacts, format pointcloud.PLYFormat) *Manifest {
	q := ds.Forward.Rotation().Quaternion()
	m := &Manifest{
		RunID:        uuid.New().String(),
		CreatedAt:    time.Now().UTC(),
		Format:       format.String(),
		Source:       filepath.Base(artifacts.Source),
		Target:       filepath.Base(artifacts.Target),
		GroundTruth:  filepath.Base(artifacts.GroundTruth),
		TransformLog: filepath.Base(artifacts.TransformLog),
		Transform: ManifestTransform{
			Axis:         [3]float64{ds.Params.Axis.X, ds.Params.Axis.Y, ds.Params.Axis.Z},
			AngleDegrees: ds.Params.AngleDegrees,
			Translation:  [3]float64{ds.Params.Translation.X, ds.Params.Translation.Y, ds.Params.Translation.Z},
			Quaternion:   [4]float64{q.Real, q.Imag, q.Jmag, q.Kmag},
			Forward:      ds.Forward.Matrix(),
			GroundTruth:  ds.GroundTruth.Matrix(),
		},
		GroundTruthArgs: spatialmath.GroundTruthArgs(ds.GroundTruth),
		Stats:           ds.Stats,
	}
	if colors := ds.Colors; colors != nil {
		m.Colors = &ManifestColors{Weight: colors.Weight}
		if colors.Source != nil {
			m.Colors.Source = colordrift.Hex(*colors.Source)
		}
		if colors.Target != nil {
			m.Colors.Target = colordrift.Hex(*colors.Target)
		}
	}
	return m
}

// ReadManifest reads a manifest written by Write.
func ReadManifest(path string) (*Manifest, error) {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, utils.NewIOError(path, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, utils.NewParseError("manifest %q: %v", path, err)
	}
	return &m, nil
}

// Write stores ds in dir as <prefix>_source.ply, <prefix>_target.ply,
// <prefix>_ground_truth.txt, <prefix>_Tlog.txt and <prefix>_manifest.json, creating
// dir if needed. If any file cannot be written, the files already written by this
// call are removed and the error is returned.
func Write(
	ds *Dataset,
	dir, prefix string,
	format pointcloud.PLYFormat,
	logger logging.Logger,
) (_ *Artifacts, err error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, utils.NewIOError(dir, err)
	}
	artifacts := NewArtifacts(dir, prefix)

	var written []string
	defer func() {
		if err == nil {
			return
		}
		for _, path := range written {
			utils.RemoveFileNoError(path)
		}
		logger.Warnw("dataset write failed; removed partial output", "dir", dir, "removed", len(written), "error", err)
	}()

	steps := []struct {
		path  string
		write func() error
	}{
		{artifacts.Source, func() error { return pointcloud.WriteToFile(ds.Source, artifacts.Source, format) }},
		{artifacts.Target, func() error { return pointcloud.WriteToFile(ds.Target, artifacts.Target, format) }},
		{artifacts.GroundTruth, func() error {
			return utils.WriteFileAtomic(artifacts.GroundTruth, func(w io.Writer) error {
				return spatialmath.WriteMatrix(w, ds.GroundTruth)
			})
		}},
		{artifacts.TransformLog, func() error {
			return utils.WriteFileAtomic(artifacts.TransformLog, func(w io.Writer) error {
				return spatialmath.WriteTransformLog(w, ds.Params)
			})
		}},
		{artifacts.Manifest, func() error {
			return utils.WriteFileAtomic(artifacts.Manifest, func(w io.Writer) error {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(NewManifest(ds, artifacts, format))
			})
		}},
	}
	for _, step := range steps {
		if err := step.write(); err != nil {
			return nil, errors.Wrapf(err, "writing %q", step.path)
		}
		written = append(written, step.path)
	}

	logger.Infow("wrote dataset",
		"dir", dir,
		"prefix", prefix,
		"format", format,
		"source_points", ds.Source.Size(),
		"target_points", ds.Target.Size(),
		"ground_truth", ds.GroundTruth.String(),
	)
	return &artifacts, nil
}
