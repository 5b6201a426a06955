package types

import (
	"fmt"
	"math"
)

/*
EdgeKey is an always positive number that stores an edge's vertices as indices in a way that can be compared
An edge between vertices [4] and [0] will always be stored as [0,4], in the ascending order of the index values
*/
type EdgeKey uint64

func NewEdgeKey(verts [2]int) (packed EdgeKey) {
	// This packs two index coordinates into two 32 bit unsigned integers to act as a hash and an indirect access method
	var (
		limit = math.MaxUint32
	)
	for _, vert := range verts {
		if vert < 0 || vert > limit {
			panic(fmt.Errorf("unable to pack two ints into a uint64, have %d and %d as inputs",
				verts[0], verts[1]))
		}
	}
	var i1, i2 int
	if verts[0] <= verts[1] {
		i1, i2 = verts[0], verts[1]
	} else {
		i1, i2 = verts[1], verts[0]
	}
	packed = EdgeKey(i1 + i2<<32)
	return
}

func (ek EdgeKey) GetVertices(rev bool) (verts [2]int) {
	var (
		enTmp EdgeKey
	)
	enTmp = ek >> 32
	verts[1] = int(enTmp)
	verts[0] = int(ek - enTmp*(1<<32))
	if rev {
		verts[0], verts[1] = verts[1], verts[0]
	}
	return
}

/*
FaceKey identifies a triangular face independent of the winding of its vertices.
The vertex indices are stored in ascending order so both tetrahedra sharing a face produce the same key
*/
type FaceKey [3]int

func NewFaceKey(verts [3]int) (fk FaceKey) {
	a, b, c := verts[0], verts[1], verts[2]
	if a > b {
		a, b = b, a
	}
	if b > c {
		b, c = c, b
	}
	if a > b {
		a, b = b, a
	}
	fk = FaceKey{a, b, c}
	return
}

// Edges returns the three edge keys of the face
func (fk FaceKey) Edges() [3]EdgeKey {
	return [3]EdgeKey{
		NewEdgeKey([2]int{fk[0], fk[1]}),
		NewEdgeKey([2]int{fk[1], fk[2]}),
		NewEdgeKey([2]int{fk[0], fk[2]}),
	}
}
