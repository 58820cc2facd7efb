// Package timeline turns engine plot data into stacked, lane-based
// rectangle geometry for rendering.
package timeline

import "fmt"

// Options are the fixed scales and spacings of the timeline.
type Options struct {
	XScale             float64 `json:"xScale" mapstructure:"xScale"`
	YScale             float64 `json:"yScale" mapstructure:"yScale"`
	RowHeight          float64 `json:"rowHeight" mapstructure:"rowHeight"`
	RowGap             float64 `json:"rowGap" mapstructure:"rowGap"`
	PlotMargin         float64 `json:"plotMargin" mapstructure:"plotMargin"`
	FramesPerSecond    int     `json:"framesPerSecond" mapstructure:"framesPerSecond"`
	GridIntervalFrames int     `json:"gridIntervalFrames" mapstructure:"gridIntervalFrames"`
	GridTop            float64 `json:"gridTop" mapstructure:"gridTop"`
	GridOverhang       float64 `json:"gridOverhang" mapstructure:"gridOverhang"`
}

// DefaultOptions matches the browser plotter: 24 fps, a grid line every
// game minute.
func DefaultOptions() Options {
	return Options{
		XScale:             0.15,
		YScale:             1,
		RowHeight:          25,
		RowGap:             4,
		PlotMargin:         30,
		FramesPerSecond:    24,
		GridIntervalFrames: 24 * 60,
		GridTop:            -10,
		GridOverhang:       10,
	}
}

// Validate rejects options that would produce degenerate geometry or loop
// forever drawing grid lines.
func (o Options) Validate() error {
	if o.XScale <= 0 || o.YScale <= 0 {
		return fmt.Errorf("scales must be positive (x=%v, y=%v)", o.XScale, o.YScale)
	}
	if o.RowHeight <= 0 || o.RowGap < 0 {
		return fmt.Errorf("invalid row geometry (height=%v, gap=%v)", o.RowHeight, o.RowGap)
	}
	if o.PlotMargin < 0 {
		return fmt.Errorf("plot margin must not be negative")
	}
	if o.FramesPerSecond <= 0 {
		return fmt.Errorf("frames per second must be positive")
	}
	if o.GridIntervalFrames <= 0 {
		return fmt.Errorf("grid interval must be positive")
	}
	return nil
}

// rowPitch is the vertical distance between two lanes before scaling.
func (o Options) rowPitch() float64 {
	return o.RowHeight + o.RowGap
}
