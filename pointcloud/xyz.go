package pointcloud

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/regsynth/utils"
)

// ReadXYZ reads whitespace separated point lines, either "x y z" or
// "x y z nx ny nz". The first data line fixes the column count for the rest of the
// stream. Blank lines and lines starting with '#' are skipped.
func ReadXYZ(in io.Reader) (*PointCloud, error) {
	var positions, normals []r3.Vector
	columns := 0
	lineNum := 0
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tokens := strings.FieldsFunc(line, func(r rune) bool {
			return r == ' ' || r == '\t' || r == ','
		})
		if columns == 0 {
			if len(tokens) != 3 && len(tokens) != 6 {
				return nil, utils.NewParseError("line %d has %d values, expected 3 or 6", lineNum, len(tokens))
			}
			columns = len(tokens)
			if columns == 6 {
				normals = []r3.Vector{}
			}
		}
		if len(tokens) != columns {
			return nil, utils.NewParseError("line %d has %d values, expected %d", lineNum, len(tokens), columns)
		}
		var values [6]float64
		for i, token := range tokens {
			v, err := strconv.ParseFloat(token, 64)
			if err != nil {
				return nil, utils.NewParseError("line %d: invalid value %q", lineNum, token)
			}
			values[i] = v
		}
		positions = append(positions, r3.Vector{X: values[0], Y: values[1], Z: values[2]})
		if columns == 6 {
			normals = append(normals, r3.Vector{X: values[3], Y: values[4], Z: values[5]})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading xyz")
	}
	return newOwned(positions, normals, nil)
}
