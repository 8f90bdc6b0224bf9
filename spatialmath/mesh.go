package spatialmath

import (
	"github.com/golang/geo/r3"

	"go.viam.com/regsynth/utils"
)

// minVertexNormal is the length below which summed face normals cancel out.
const minVertexNormal = 1e-6

// Mesh is an indexed triangle mesh. Faces refer to vertices by index, so corners
// shared between faces are stored once.
type Mesh struct {
	vertices  []r3.Vector
	faces     [][3]int
	triangles []*Triangle
}

// NewMesh creates a mesh from its vertices and faces. Every face index must refer
// to a vertex.
func NewMesh(vertices []r3.Vector, faces [][3]int) (*Mesh, error) {
	triangles := make([]*Triangle, len(faces))
	for i, f := range faces {
		for _, idx := range f {
			if idx < 0 || idx >= len(vertices) {
				return nil, utils.NewParseError("face %d refers to vertex %d of %d", i, idx, len(vertices))
			}
		}
		triangles[i] = NewTriangle(vertices[f[0]], vertices[f[1]], vertices[f[2]])
	}
	return &Mesh{vertices: vertices, faces: faces, triangles: triangles}, nil
}

// Vertices returns the mesh vertices.
func (m *Mesh) Vertices() []r3.Vector {
	return m.vertices
}

// Triangles returns one triangle per face, in face order.
func (m *Mesh) Triangles() []*Triangle {
	return m.triangles
}

// Area returns the summed area of all faces.
func (m *Mesh) Area() float64 {
	var area float64
	for _, t := range m.triangles {
		area += t.Area()
	}
	return area
}

// VertexNormals returns, per vertex, the normalized sum of the unit normals of the
// faces touching it. Vertices that touch no usable face, or whose face normals
// cancel out, get the zero vector.
func (m *Mesh) VertexNormals() []r3.Vector {
	normals := make([]r3.Vector, len(m.vertices))
	for i, f := range m.faces {
		n := m.triangles[i].Normal()
		for _, idx := range f {
			normals[idx] = normals[idx].Add(n)
		}
	}
	for i, n := range normals {
		if n.Norm() > minVertexNormal {
			normals[i] = n.Normalize()
		} else {
			normals[i] = r3.Vector{}
		}
	}
	return normals
}
