// Package costmap exposes the planner's read-only view of a 2D occupancy cost grid
// and an in-memory implementation of it.
package costmap

import "math"

// Cost values follow the usual 8-bit occupancy conventions.
const (
	// FreeSpace is the cost of a cell with nothing in it.
	FreeSpace uint8 = 0
	// InscribedObstacle is the cost of a cell within the robot's inscribed radius of
	// an obstacle; occupying it guarantees a collision.
	InscribedObstacle uint8 = 253
	// LethalObstacle is the cost of a cell containing an obstacle.
	LethalObstacle uint8 = 254
	// NoInformation is the cost of a cell that has never been observed.
	NoInformation uint8 = 255
)

// Costmap is a grid of cost cells over a region of the planning frame. The planner
// only reads it; producing and inflating the grid belongs to the host.
type Costmap interface {
	// Resolution returns the side length of one cell in meters.
	Resolution() float64
	// Size returns the grid dimensions in cells.
	Size() (width, height int)
	// Origin returns the world coordinates of the lower-left corner of cell (0, 0).
	Origin() (x, y float64)
	// CostAt returns the cost of a cell. Out-of-bounds cells read as NoInformation.
	CostAt(cellX, cellY int) uint8
	// IsLethalOrInflated reports whether a cell is certain to collide: lethal,
	// inscribed-inflated, or unknown.
	IsLethalOrInflated(cellX, cellY int) bool
}

// WorldToMap converts world coordinates to cell coordinates, reporting whether the
// cell is within the grid.
func WorldToMap(cm Costmap, wx, wy float64) (int, int, bool) {
	ox, oy := cm.Origin()
	res := cm.Resolution()
	cx := int(math.Floor((wx - ox) / res))
	cy := int(math.Floor((wy - oy) / res))
	w, h := cm.Size()

	return cx, cy, cx >= 0 && cx < w && cy >= 0 && cy < h
}

// MapToWorld converts cell coordinates to the world coordinates of the cell center.
func MapToWorld(cm Costmap, cellX, cellY int) (float64, float64) {
	ox, oy := cm.Origin()
	res := cm.Resolution()

	return ox + (float64(cellX)+0.5)*res, oy + (float64(cellY)+0.5)*res
}
