package spatialmath

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/regsynth/utils"
)

// WriteMatrix writes the homogeneous matrix of t as four rows of four space separated
// values with six decimal digits.
func WriteMatrix(out io.Writer, t *RigidTransform) error {
	m := t.Matrix()
	for row := 0; row < 4; row++ {
		if _, err := fmt.Fprintf(out, "%.6f %.6f %.6f %.6f\n",
			m[row*4], m[row*4+1], m[row*4+2], m[row*4+3]); err != nil {
			return err
		}
	}
	return nil
}

// ReadMatrix reads a 4x4 row major matrix written by WriteMatrix. Values may be
// separated by whitespace or commas; blank lines and lines starting with '#' are
// skipped. The result is validated as a rigid transform.
func ReadMatrix(in io.Reader) (*RigidTransform, error) {
	var m [16]float64
	rows := 0
	scanner := bufio.NewScanner(in)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tokens := splitValues(line)
		if len(tokens) != 4 {
			return nil, utils.NewParseError("matrix line %d has %d values, expected 4", lineNum, len(tokens))
		}
		if rows == 4 {
			return nil, utils.NewParseError("matrix has more than 4 rows")
		}
		for col, token := range tokens {
			v, err := strconv.ParseFloat(token, 64)
			if err != nil {
				return nil, utils.NewParseError("matrix line %d: invalid value %q", lineNum, token)
			}
			m[rows*4+col] = v
		}
		rows++
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading matrix")
	}
	if rows != 4 {
		return nil, utils.NewParseError("matrix has %d rows, expected 4", rows)
	}
	return NewRigidTransformFromMatrix(m)
}

// GroundTruthArgs returns the 16 row major matrix values of t formatted with six decimal
// digits, in the order external registration executables take them on the command line.
func GroundTruthArgs(t *RigidTransform) []string {
	m := t.Matrix()
	args := make([]string, len(m))
	for i, v := range m {
		args[i] = strconv.FormatFloat(v, 'f', 6, 64)
	}
	return args
}

const (
	logKeyTranslation = "translation"
	logKeyDegrees     = "rotation_degrees"
	logKeyAxis        = "rotation_axis"
)

// WriteTransformLog records the generating parameters of a transform, one key per line.
func WriteTransformLog(out io.Writer, p AxisAngleParams) error {
	_, err := fmt.Fprintf(out, "%s: %s\n%s: %s\n%s: %s\n",
		logKeyTranslation, formatVector(p.Translation),
		logKeyDegrees, strconv.FormatFloat(p.AngleDegrees, 'g', -1, 64),
		logKeyAxis, formatVector(p.Axis),
	)
	return err
}

// ReadTransformLog parses a file written by WriteTransformLog. Vector values may also be
// given in list syntax such as "[0.035, 0, 0.5]".
func ReadTransformLog(in io.Reader) (AxisAngleParams, error) {
	var p AxisAngleParams
	seen := map[string]bool{}
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return p, utils.NewParseError("transform log line %q has no key", line)
		}
		key = strings.TrimSpace(key)
		values, err := parseValues(value)
		if err != nil {
			return p, err
		}
		switch key {
		case logKeyTranslation, logKeyAxis:
			if len(values) != 3 {
				return p, utils.NewParseError("%s needs 3 values, got %d", key, len(values))
			}
			v := r3.Vector{X: values[0], Y: values[1], Z: values[2]}
			if key == logKeyAxis {
				p.Axis = v
			} else {
				p.Translation = v
			}
		case logKeyDegrees:
			if len(values) != 1 {
				return p, utils.NewParseError("%s needs 1 value, got %d", key, len(values))
			}
			p.AngleDegrees = values[0]
		default:
			return p, utils.NewParseError("unknown transform log key %q", key)
		}
		seen[key] = true
	}
	if err := scanner.Err(); err != nil {
		return p, errors.Wrap(err, "reading transform log")
	}
	for _, key := range []string{logKeyTranslation, logKeyDegrees, logKeyAxis} {
		if !seen[key] {
			return p, utils.NewParseError("transform log is missing %q", key)
		}
	}
	return p, nil
}

func formatVector(v r3.Vector) string {
	return strings.Join([]string{
		strconv.FormatFloat(v.X, 'g', -1, 64),
		strconv.FormatFloat(v.Y, 'g', -1, 64),
		strconv.FormatFloat(v.Z, 'g', -1, 64),
	}, " ")
}

func splitValues(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ',' || r == '[' || r == ']'
	})
}

func parseValues(s string) ([]float64, error) {
	tokens := splitValues(s)
	values := make([]float64, 0, len(tokens))
	for _, token := range tokens {
		v, err := strconv.ParseFloat(token, 64)
		if err != nil {
			return nil, utils.NewParseError("invalid value %q", token)
		}
		values = append(values, v)
	}
	return values, nil
}
