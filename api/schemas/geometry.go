package schemas

// -- Geometry Schemas --

// BoundingBox describes an axis-aligned region in the pixel space of a
// captured frame. Values are immutable once constructed; all methods are
// value receivers.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Area returns the pixel area of the box.
func (b BoundingBox) Area() int {
	return b.Width * b.Height
}

// CenterX returns the horizontal center of the box.
func (b BoundingBox) CenterX() int {
	return b.X + b.Width/2
}

// CenterY returns the vertical center of the box.
func (b BoundingBox) CenterY() int {
	return b.Y + b.Height/2
}

// Valid reports whether the box has non-negative dimensions.
func (b BoundingBox) Valid() bool {
	return b.Width >= 0 && b.Height >= 0
}
