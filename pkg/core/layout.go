// pkg/core/layout.go
package core

// Rect is an axis-aligned rectangle in display units.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ItemLayout is the rendered geometry of a single action.
type ItemLayout struct {
	Type    string `json:"type"`
	Rect    Rect   `json:"rect"`
	Lane    int    `json:"lane"`
	Color   string `json:"color"`
	Tooltip string `json:"tooltip"`
}

// GridLine is a vertical time marker. Y1 and Y2 are relative to the plot top.
type GridLine struct {
	X     float64 `json:"x"`
	Y1    float64 `json:"y1"`
	Y2    float64 `json:"y2"`
	Frame int     `json:"frame"`
	Label string  `json:"label"`
}

// PlotLayout is the geometry of one plot. Item rectangles are relative to
// the plot origin; Top is the plot's offset in the shared coordinate space.
type PlotLayout struct {
	Name      string       `json:"name,omitempty"`
	Top       float64      `json:"top"`
	Width     float64      `json:"width"`
	Height    float64      `json:"height"`
	Items     []ItemLayout `json:"items"`
	GridLines []GridLine   `json:"gridLines"`
}

// Layout is the complete stacked rendering of all plots.
type Layout struct {
	Width  float64      `json:"width"`
	Height float64      `json:"height"`
	Plots  []PlotLayout `json:"plots"`
}
