package cli

import (
	"fmt"
	"path/filepath"

	"github.com/golang/geo/r3"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/regsynth/colordrift"
	"go.viam.com/regsynth/pointcloud"
	"go.viam.com/regsynth/spatialmath"
)

// InfoAction is the corresponding action for 'info'.
func InfoAction(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return errors.New("info needs exactly one file argument")
	}
	path := c.Args().First()
	cloud, err := pointcloud.NewFromFile(path, loggerFrom(c))
	if err != nil {
		return err
	}
	summary := summaryTable(path, cloud)
	if spatialmath.IsMeshFile(path) {
		mesh, err := spatialmath.NewMeshFromFile(path)
		if err != nil {
			return err
		}
		summary.AppendRow(table.Row{"Triangles", len(mesh.Triangles())})
		summary.AppendRow(table.Row{"Surface area", fmt.Sprintf("%.4f", mesh.Area())})
	}
	printf(c.App.Writer, "%s", summary.Render())
	if n := min(c.Int(infoFlagPoints), cloud.Size()); n > 0 {
		printf(c.App.Writer, "%s", pointsTable(cloud, n).Render())
	}
	return nil
}

func summaryTable(path string, cloud *pointcloud.PointCloud) table.Writer {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Property", "Value"})
	t.AppendRow(table.Row{"File", filepath.Base(path)})
	t.AppendRow(table.Row{"Points", cloud.Size()})
	t.AppendRow(table.Row{"Schema", cloud.Schema().String()})
	if cloud.Size() > 0 {
		meta := cloud.MetaData()
		t.AppendRow(table.Row{"Min", formatVector(r3.Vector{X: meta.MinX, Y: meta.MinY, Z: meta.MinZ})})
		t.AppendRow(table.Row{"Max", formatVector(r3.Vector{X: meta.MaxX, Y: meta.MaxY, Z: meta.MaxZ})})
		t.AppendRow(table.Row{"Centroid", formatVector(meta.Centroid())})
		t.AppendRow(table.Row{"Extent", formatVector(meta.Extent())})
	}
	return t
}

func pointsTable(cloud *pointcloud.PointCloud, n int) table.Writer {
	schema := cloud.Schema()
	t := table.NewWriter()
	header := table.Row{"#", "Position"}
	if schema.HasNormal() {
		header = append(header, "Normal")
	}
	if schema.HasColor() {
		header = append(header, "Color", "Alpha")
	}
	t.AppendHeader(header)
	cloud.Iterate(func(i int, p pointcloud.Point) bool {
		if i >= n {
			return false
		}
		row := table.Row{i, formatVector(p.Position)}
		if schema.HasNormal() {
			row = append(row, formatVector(p.Normal))
		}
		if schema.HasColor() {
			row = append(row, colordrift.Hex(p.Color), p.Color.A)
		}
		t.AppendRow(row)
		return true
	})
	return t
}

func formatVector(v r3.Vector) string {
	return fmt.Sprintf("X:%.4f, Y:%.4f, Z:%.4f", v.X, v.Y, v.Z)
}
