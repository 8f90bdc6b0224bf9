// Package cli contains the regsynth command line application.
package cli

import (
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"go.viam.com/regsynth/logging"
	"go.viam.com/regsynth/perturb"
)

const (
	generalFlagDebug  = "debug"
	generalFlagInput  = "input"
	generalFlagOutput = "output"
	generalFlagFormat = "format"

	synthFlagConfig    = "config"
	synthFlagPrintArgs = "print-args"

	infoFlagPoints = "points"

	convertFlagBinary          = "binary"
	convertFlagEstimateNormals = "estimate-normals"
	convertFlagK               = "k"
	convertFlagSamples         = "samples"
	convertFlagSeed            = "seed"

	transformFlagAxis        = "axis"
	transformFlagAngle       = "angle"
	transformFlagTranslation = "translation"
	transformFlagGroundTruth = "ground-truth"

	perturbFlagScale     = "scale"
	perturbFlagFrequency = "frequency"

	alignFlagInverse = "inverse"

	defaultNormalNeighbours = 10
	defaultInfoPoints       = 5

	loggerMetadataKey = "logger"
)

func inputFlag(usage string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:     generalFlagInput,
		Aliases:  []string{"i"},
		Required: true,
		Usage:    usage,
	}
}

func outputFlag(usage string, required bool) *cli.StringFlag {
	return &cli.StringFlag{
		Name:     generalFlagOutput,
		Aliases:  []string{"o"},
		Required: required,
		Usage:    usage,
	}
}

func formatFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  generalFlagFormat,
		Value: "binary",
		Usage: "ply encoding of the output, ascii or binary",
	}
}

// NewApp returns the regsynth application writing normal output to out and
// help and usage errors to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:            "regsynth",
		Usage:           "synthesize point cloud registration test cases",
		HideHelpCommand: true,
		Writer:          out,
		ErrWriter:       errOut,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    generalFlagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool(generalFlagDebug) {
				c.App.Metadata[loggerMetadataKey] = logging.NewDebugLogger("regsynth")
			} else {
				c.App.Metadata[loggerMetadataKey] = logging.NewLogger("regsynth")
			}
			return nil
		},
		Metadata: map[string]interface{}{},
		Commands: []*cli.Command{
			{
				Name:      "synth",
				Usage:     "partition a cloud, move the source and write the dataset with its ground truth",
				UsageText: fmt.Sprintf("regsynth synth --%s <file> [--%s <dir>] [--%s]", synthFlagConfig, generalFlagOutput, synthFlagPrintArgs),
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     synthFlagConfig,
						Aliases:  []string{"c"},
						Required: true,
						Usage:    "load the run configuration from `FILE`",
					},
					outputFlag("override the output directory of the config", false),
					&cli.BoolFlag{
						Name:  synthFlagPrintArgs,
						Usage: "print the ground truth as 16 command line arguments",
					},
				},
				Action: SynthAction,
			},
			{
				Name:      "info",
				Usage:     "print the size, schema and bounds of a cloud",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  infoFlagPoints,
						Value: defaultInfoPoints,
						Usage: "number of leading points to list",
					},
				},
				Action: InfoAction,
			},
			{
				Name:  "convert",
				Usage: "convert a ply, xyz, txt, las, stl or obj file to ply",
				Flags: []cli.Flag{
					inputFlag("cloud to read"),
					outputFlag("ply file to write", true),
					&cli.BoolFlag{
						Name:  convertFlagBinary,
						Usage: "write binary_little_endian instead of ascii",
					},
					&cli.BoolFlag{
						Name:  convertFlagEstimateNormals,
						Usage: "estimate normals from the nearest neighbours of each point",
					},
					&cli.IntFlag{
						Name:  convertFlagK,
						Value: defaultNormalNeighbours,
						Usage: "neighbours used for normal estimation",
					},
					&cli.IntFlag{
						Name:  convertFlagSamples,
						Usage: "sample this many points uniformly over the faces of an stl or obj mesh instead of taking its vertices",
					},
					&cli.Int64Flag{
						Name:  convertFlagSeed,
						Usage: "seed for mesh sampling",
					},
				},
				Action: ConvertAction,
			},
			{
				Name:  "transform",
				Usage: "move a cloud by a rigid transform given as axis, angle and translation",
				Flags: []cli.Flag{
					inputFlag("cloud to read"),
					outputFlag("cloud to write", true),
					formatFlag(),
					&cli.Float64SliceFlag{
						Name:     transformFlagAxis,
						Required: true,
						Usage:    "rotation axis as x,y,z",
					},
					&cli.Float64Flag{
						Name:     transformFlagAngle,
						Required: true,
						Usage:    "rotation angle in degrees",
					},
					&cli.Float64SliceFlag{
						Name:  transformFlagTranslation,
						Usage: "translation as x,y,z applied after the rotation",
					},
					&cli.StringFlag{
						Name:  transformFlagGroundTruth,
						Usage: "also write the inverse matrix to `FILE`",
					},
				},
				Action: TransformAction,
			},
			{
				Name:  "invert",
				Usage: "validate and invert a 4x4 rigid transform matrix file",
				Flags: []cli.Flag{
					inputFlag("matrix file to read"),
					outputFlag("matrix file to write; stdout when empty", false),
				},
				Action: InvertAction,
			},
			{
				Name:  "perturb",
				Usage: "displace a cloud along its surface with a sinusoidal wave",
				Flags: []cli.Flag{
					inputFlag("cloud with normals to read"),
					outputFlag("cloud to write", true),
					formatFlag(),
					&cli.Float64Flag{
						Name:  perturbFlagScale,
						Value: perturb.DefaultScale,
						Usage: "wave amplitude",
					},
					&cli.Float64Flag{
						Name:  perturbFlagFrequency,
						Value: perturb.DefaultFrequency,
						Usage: "wave frequency",
					},
				},
				Action: PerturbAction,
			},
			{
				Name:  "align",
				Usage: "compute the transform moving a platform, given by ordered edge points, onto the world frame",
				Flags: []cli.Flag{
					inputFlag("xyz or txt file with at least 3 platform edge points"),
					outputFlag("matrix file to write; stdout when empty", false),
					&cli.StringFlag{
						Name:  alignFlagInverse,
						Usage: "also write the inverse, which places a model onto the platform, to `FILE`",
					},
				},
				Action: AlignAction,
			},
		},
	}
}

func loggerFrom(c *cli.Context) logging.Logger {
	if logger, ok := c.App.Metadata[loggerMetadataKey].(logging.Logger); ok {
		return logger
	}
	return logging.NewLogger("regsynth")
}

// printf prints a message with a newline to the given writer.
func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	_, _ = fmt.Fprintf(w, format+"\n", a...)
}
