package collision

import (
	"math"

	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/gamemap"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/geom"
)

// StepSize is the maximum translation advanced per collision sub-step.
const StepSize = 0.01

// Collider is the tile-sweep shape carried by every movable entity.
type Collider struct {
	HalfSize geom.Vector3
	MaxSlope float64
}

// SweepResult reports the outcome of one movement solve.
type SweepResult struct {
	Safe     geom.Transform
	Collided bool
}

// SubstepCount returns N = ceil(|target - current| / StepSize), at least 1,
// combining translation and rotation distance into a single scalar measure
// so that a pure-rotation move still advances through multiple sub-steps.
func SubstepCount(current, wanted geom.Transform) int {
	linear := current.Position.Distance(wanted.Position)
	angular := math.Abs(wrapSignedDeg(wanted.Rotation.YawDeg() - current.Rotation.YawDeg()))
	// Treat one degree of rotation as equivalent to one StepSize of
	// linear travel for sub-step budgeting purposes.
	distance := linear + angular*StepSize
	n := int(math.Ceil(distance / StepSize))
	if n < 1 {
		n = 1
	}
	return n
}

func wrapSignedDeg(deg float64) float64 {
	deg = math.Mod(deg+180, 360)
	if deg < 0 {
		deg += 360
	}
	return deg - 180
}

// Sweep advances current toward wanted in N sub-steps, probing the tile
// map's footprint and slope at each step, stopping at the last safe
// sub-step on first collision.
func Sweep(current, wanted geom.Transform, collider Collider, tiles *gamemap.Definition) SweepResult {
	n := SubstepCount(current, wanted)
	safe := current
	for step := 1; step <= n; step++ {
		f := float64(step) / float64(n)
		candidate := current.Lerp(wanted, f)
		if !footprintIsSafe(candidate, collider, tiles) {
			return SweepResult{Safe: safe, Collided: true}
		}
		safe = candidate
	}
	return SweepResult{Safe: safe, Collided: false}
}

// footprintCorners returns the four rotated XZ corners of the collider's
// footprint at the given candidate transform.
func footprintCorners(candidate geom.Transform, collider Collider) [4]geom.Vector3 {
	hx, hz := collider.HalfSize.X, collider.HalfSize.Z
	locals := [4]geom.Vector3{
		{X: hx, Z: hz}, {X: hx, Z: -hz}, {X: -hx, Z: hz}, {X: -hx, Z: -hz},
	}
	var corners [4]geom.Vector3
	for i, local := range locals {
		corners[i] = candidate.Rotation.RotateVector(local).Add(candidate.Position)
	}
	return corners
}

func footprintIsSafe(candidate geom.Transform, collider Collider, tiles *gamemap.Definition) bool {
	corners := footprintCorners(candidate, collider)
	minX, maxX := corners[0].X, corners[0].X
	minZ, maxZ := corners[0].Z, corners[0].Z
	for _, c := range corners[1:] {
		minX = math.Min(minX, c.X)
		maxX = math.Max(maxX, c.X)
		minZ = math.Min(minZ, c.Z)
		maxZ = math.Max(maxZ, c.Z)
	}

	tileSize := tiles.TileSize
	if tileSize <= 0 {
		tileSize = 1
	}
	txMin, txMax := gamemap.ProbeRange(minX, maxX, tileSize)
	tzMin, tzMax := gamemap.ProbeRange(minZ, maxZ, tileSize)

	minFloor := math.Inf(1)
	maxFloor := math.Inf(-1)
	for tx := txMin; tx < txMax; tx++ {
		for tz := tzMin; tz < tzMax; tz++ {
			height, err := tiles.FloorHeight(tx, tz)
			if err != nil {
				return false // out of bounds or missing tile: collision
			}
			if height < minFloor {
				minFloor = height
			}
			if height > maxFloor {
				maxFloor = height
			}
		}
	}

	if maxFloor-minFloor > collider.MaxSlope {
		return false
	}
	if candidate.Position.Y < maxFloor+collider.HalfSize.Y {
		return false
	}
	return true
}
