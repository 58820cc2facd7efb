package timeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/BOSS-tools/boplot/internal/typedata"
	"github.com/BOSS-tools/boplot/pkg/core"
)

// LayoutPlot computes the geometry of a single plot with its top at 0.
// Lanes are rendered as given; overlapping actions sharing a lane are not
// resolved here.
func LayoutPlot(plot core.Plot, table *typedata.Table, opts Options) (core.PlotLayout, error) {
	pl := core.PlotLayout{
		Name:      plot.Name,
		Items:     make([]core.ItemLayout, 0, len(plot.BuildOrder)),
		GridLines: make([]core.GridLine, 0),
	}

	pitch := opts.rowPitch()
	maxEnd := 0
	maxLanes := 0

	for i, a := range plot.BuildOrder {
		if err := a.Validate(); err != nil {
			return core.PlotLayout{}, fmt.Errorf("action %d: %w", i, err)
		}
		td, err := table.Lookup(a.Type)
		if err != nil {
			return core.PlotLayout{}, fmt.Errorf("action %d: %w", i, err)
		}

		pl.Items = append(pl.Items, core.ItemLayout{
			Type: a.Type,
			Rect: core.Rect{
				X:      float64(a.StartFrame) * opts.XScale,
				Y:      float64(a.Lane) * pitch * opts.YScale,
				Width:  float64(a.Duration()) * opts.XScale,
				Height: opts.RowHeight * opts.YScale,
			},
			Lane:    a.Lane,
			Color:   a.Color,
			Tooltip: Tooltip(a, td, opts.FramesPerSecond),
		})

		maxEnd = max(maxEnd, a.EndFrame)
		maxLanes = max(maxLanes, a.Lane+1)
	}

	pl.Width = float64(maxEnd) * opts.XScale
	pl.Height = float64(maxLanes) * pitch * opts.YScale
	pl.GridLines = gridLines(pl.Width, pl.Height, opts)

	return pl, nil
}

// gridLines places a marker every GridIntervalFrames up to and including
// the plot's right edge.
func gridLines(width, height float64, opts Options) []core.GridLine {
	lines := make([]core.GridLine, 0)
	step := float64(opts.GridIntervalFrames) * opts.XScale
	for k := 1; float64(k)*step <= width; k++ {
		frame := k * opts.GridIntervalFrames
		lines = append(lines, core.GridLine{
			X:     float64(k) * step,
			Y1:    opts.GridTop,
			Y2:    height + opts.GridOverhang,
			Frame: frame,
			Label: FormatTime(frame, opts.FramesPerSecond),
		})
	}
	return lines
}

// Build lays out every plot and stacks them top to bottom in input order.
// Plots are computed concurrently; the first failing plot (in input order)
// aborts the whole layout.
func Build(ctx context.Context, plots []core.Plot, table *typedata.Table, opts Options) (core.Layout, error) {
	if err := opts.Validate(); err != nil {
		return core.Layout{}, err
	}

	layouts := make([]core.PlotLayout, len(plots))
	errs := make([]error, len(plots))

	var wg sync.WaitGroup
	for i := range plots {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return
			}
			layouts[i], errs[i] = LayoutPlot(plots[i], table, opts)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return core.Layout{}, fmt.Errorf("plot %d: %w", i, err)
		}
	}

	return Stack(layouts, opts), nil
}

// Stack assigns each plot's Top as the running sum of the previous plots'
// heights plus the margin, and sizes the overall canvas.
func Stack(layouts []core.PlotLayout, opts Options) core.Layout {
	out := core.Layout{Plots: layouts}
	cursor := 0.0
	for i := range out.Plots {
		out.Plots[i].Top = cursor
		out.Width = max(out.Width, out.Plots[i].Width)
		out.Height = cursor + out.Plots[i].Height
		cursor += out.Plots[i].Height + opts.PlotMargin
	}
	if out.Plots == nil {
		out.Plots = make([]core.PlotLayout, 0)
	}
	return out
}
