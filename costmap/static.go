package costmap

// Static is an in-memory costmap with caller-supplied contents. It is the reference
// implementation used by tests and examples; hosts with a live grid implement
// Costmap themselves.
type Static struct {
	width      int
	height     int
	resolution float64
	originX    float64
	originY    float64
	costs      []uint8
}

// NewStatic creates an all-free grid of the given dimensions.
func NewStatic(width, height int, resolution, originX, originY float64) *Static {
	return &Static{
		width:      width,
		height:     height,
		resolution: resolution,
		originX:    originX,
		originY:    originY,
		costs:      make([]uint8, width*height),
	}
}

// Resolution returns the side length of one cell in meters.
func (s *Static) Resolution() float64 {
	return s.resolution
}

// Size returns the grid dimensions in cells.
func (s *Static) Size() (int, int) {
	return s.width, s.height
}

// Origin returns the world coordinates of the lower-left corner of cell (0, 0).
func (s *Static) Origin() (float64, float64) {
	return s.originX, s.originY
}

// CostAt returns the cost of a cell. Out-of-bounds cells read as NoInformation.
func (s *Static) CostAt(cellX, cellY int) uint8 {
	if cellX < 0 || cellX >= s.width || cellY < 0 || cellY >= s.height {
		return NoInformation
	}

	return s.costs[cellY*s.width+cellX]
}

// IsLethalOrInflated reports whether a cell is lethal, inscribed-inflated, or unknown.
func (s *Static) IsLethalOrInflated(cellX, cellY int) bool {
	return s.CostAt(cellX, cellY) >= InscribedObstacle
}

// SetCost sets the cost of a cell. Out-of-bounds writes are ignored.
func (s *Static) SetCost(cellX, cellY int, cost uint8) {
	if cellX < 0 || cellX >= s.width || cellY < 0 || cellY >= s.height {
		return
	}
	s.costs[cellY*s.width+cellX] = cost
}

// SetObstacle marks a cell as a lethal obstacle.
func (s *Static) SetObstacle(cellX, cellY int) {
	s.SetCost(cellX, cellY, LethalObstacle)
}

// SetObstacleWorld marks the cell containing the world coordinates as a lethal
// obstacle.
func (s *Static) SetObstacleWorld(wx, wy float64) {
	if cx, cy, ok := WorldToMap(s, wx, wy); ok {
		s.SetObstacle(cx, cy)
	}
}
