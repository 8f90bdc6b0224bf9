// Package colordrift blends the colors of a cloud toward a target color.
package colordrift

import (
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"go.viam.com/regsynth/pointcloud"
	"go.viam.com/regsynth/utils"
)

var (
	// DefaultSourceColor tints the transformed source subset.
	DefaultSourceColor = color.NRGBA{R: 90, G: 100, B: 220, A: 255}
	// DefaultTargetColor tints the target subset.
	DefaultTargetColor = color.NRGBA{R: 255, G: 180, B: 0, A: 255}
)

// Drift returns a copy of cloud whose red, green and blue channels are moved toward
// target: c' = clamp(trunc((1-weight)·c + weight·t), 0, 255). Alpha, positions and
// normals are unchanged.
func Drift(cloud *pointcloud.PointCloud, target color.NRGBA, weight float64) (*pointcloud.PointCloud, error) {
	if !cloud.Schema().HasColor() {
		return nil, utils.NewUnsupportedOperationError("color drift", "a cloud with colors")
	}
	if err := utils.CheckUnitInterval("weight", weight); err != nil {
		return nil, err
	}
	colors := cloud.Colors()
	utils.GroupWorkParallel(len(colors), func(_, from, to int) {
		for i := from; i < to; i++ {
			colors[i] = Blend(colors[i], target, weight)
		}
	})
	return pointcloud.New(cloud.Positions(), cloud.Normals(), colors)
}

// Blend moves the red, green and blue channels of c toward target by weight, keeping
// the alpha of c.
func Blend(c, target color.NRGBA, weight float64) color.NRGBA {
	return color.NRGBA{
		R: blendChannel(c.R, target.R, weight),
		G: blendChannel(c.G, target.G, weight),
		B: blendChannel(c.B, target.B, weight),
		A: c.A,
	}
}

func blendChannel(c, t uint8, weight float64) uint8 {
	v := (1-weight)*float64(c) + weight*float64(t)
	return uint8(utils.ClampFloat64(math.Trunc(v), 0, 255))
}

// ParseColor parses "#rrggbb" hex or an "r,g,b" decimal triple into an opaque color.
func ParseColor(s string) (color.NRGBA, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") {
		cc, err := colorful.Hex(s)
		if err != nil {
			return color.NRGBA{}, utils.NewParseError("invalid hex color %q", s)
		}
		r, g, b := cc.RGB255()
		return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
	}

	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return color.NRGBA{}, utils.NewParseError("color %q is neither #rrggbb nor r,g,b", s)
	}
	var channels [3]uint8
	for i, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return color.NRGBA{}, utils.NewParseError("color %q has invalid channel %q", s, part)
		}
		if v < 0 || v > 255 {
			return color.NRGBA{}, utils.NewRangeError("color channel", float64(v), 0, 255)
		}
		channels[i] = uint8(v)
	}
	return color.NRGBA{R: channels[0], G: channels[1], B: channels[2], A: 255}, nil
}

// Hex formats the red, green and blue channels of c as "#rrggbb".
func Hex(c color.NRGBA) string {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}.Hex()
}
