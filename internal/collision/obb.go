// Package collision implements the tile-map swept movement solver and
// the general OBB-vs-OBB separating axis test used for flag pickup and
// entity collisions.
package collision

import (
	"math"

	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/geom"
)

// obbEpsilon is added to the absolute rotation matrix to stabilize
// near-parallel edge cases in the separating axis test.
const obbEpsilon = 1e-5

// OBB is an oriented bounding box: center, orthonormal basis, half-extents.
type OBB struct {
	Center      geom.Vector3
	Basis       [3]geom.Vector3 // local X, Y, Z axes in world space, unit length
	HalfExtents geom.Vector3
}

// NewOBB builds an OBB from a world transform and local half-extents.
func NewOBB(center geom.Vector3, rotation geom.Quaternion, halfExtents geom.Vector3) OBB {
	return OBB{
		Center: center,
		Basis: [3]geom.Vector3{
			rotation.RotateVector(geom.Vector3{X: 1}),
			rotation.RotateVector(geom.Vector3{Y: 1}),
			rotation.RotateVector(geom.Vector3{Z: 1}),
		},
		HalfExtents: halfExtents,
	}
}

func extentOf(halfExtents geom.Vector3, axis int) float64 {
	switch axis {
	case 0:
		return halfExtents.X
	case 1:
		return halfExtents.Y
	default:
		return halfExtents.Z
	}
}

// Intersects reports whether a and b overlap via the 15-axis SAT test
// (3 face normals from each box, plus 9 cross products of edge axes).
func Intersects(a, b OBB) bool {
	translation := b.Center.Sub(a.Center)

	// Rotation matrix expressing b's basis in a's local frame, plus its
	// absolute value (with epsilon) for the edge-cross-edge cases.
	var r, absR [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = a.Basis[i].Dot(b.Basis[j])
			absR[i][j] = math.Abs(r[i][j]) + obbEpsilon
		}
	}

	t := geom.Vector3{X: translation.Dot(a.Basis[0]), Y: translation.Dot(a.Basis[1]), Z: translation.Dot(a.Basis[2])}
	tArr := [3]float64{t.X, t.Y, t.Z}

	ea := [3]float64{extentOf(a.HalfExtents, 0), extentOf(a.HalfExtents, 1), extentOf(a.HalfExtents, 2)}
	eb := [3]float64{extentOf(b.HalfExtents, 0), extentOf(b.HalfExtents, 1), extentOf(b.HalfExtents, 2)}

	// a's face axes.
	for i := 0; i < 3; i++ {
		ra := ea[i]
		rb := eb[0]*absR[i][0] + eb[1]*absR[i][1] + eb[2]*absR[i][2]
		if math.Abs(tArr[i]) > ra+rb {
			return false
		}
	}

	// b's face axes.
	for j := 0; j < 3; j++ {
		ra := ea[0]*absR[0][j] + ea[1]*absR[1][j] + ea[2]*absR[2][j]
		rb := eb[j]
		tProj := tArr[0]*r[0][j] + tArr[1]*r[1][j] + tArr[2]*r[2][j]
		if math.Abs(tProj) > ra+rb {
			return false
		}
	}

	// 9 cross-product axes, a_i x b_j.
	crossCases := [9][2]int{
		{0, 0}, {0, 1}, {0, 2},
		{1, 0}, {1, 1}, {1, 2},
		{2, 0}, {2, 1}, {2, 2},
	}
	for _, c := range crossCases {
		i, j := c[0], c[1]
		i1, i2 := (i+1)%3, (i+2)%3
		j1, j2 := (j+1)%3, (j+2)%3

		ra := ea[i1]*absR[i2][j] + ea[i2]*absR[i1][j]
		rb := eb[j1]*absR[i][j2] + eb[j2]*absR[i][j1]

		tProj := tArr[i2]*r[i1][j] - tArr[i1]*r[i2][j]
		if math.Abs(tProj) > ra+rb {
			return false
		}
	}

	return true
}
