package timeline

import (
	"fmt"
	"strings"

	"github.com/BOSS-tools/boplot/internal/typedata"
	"github.com/BOSS-tools/boplot/pkg/core"
)

// FormatTime renders a frame count as game time, e.g. 1464 frames at 24 fps
// is "1m 1s".
func FormatTime(frames, fps int) string {
	minutes := frames / (fps * 60)
	seconds := (frames / fps) % 60
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}

// CostString renders "<m>m", or "<m>m <g>g" when the type costs gas.
func CostString(td typedata.TypeData) string {
	cost := fmt.Sprintf("%dm", td.MineralCost)
	if td.GasCost > 0 {
		cost += fmt.Sprintf(" %dg", td.GasCost)
	}
	return cost
}

// Tooltip describes an action: its cost and build time from the type table,
// then the frame window and the resources banked when it started.
// Resource values are truncated toward zero.
func Tooltip(a core.Action, td typedata.TypeData, fps int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", a.Type)
	fmt.Fprintf(&b, "    Cost: %s\n", CostString(td))
	fmt.Fprintf(&b, "    Build: %s (%d frames)\n\n", FormatTime(td.BuildTime, fps), td.BuildTime)
	b.WriteString("State\n")
	fmt.Fprintf(&b, "    Start: %s (frame %d)\n", FormatTime(a.StartFrame, fps), a.StartFrame)
	fmt.Fprintf(&b, "    End: %s (frame %d)\n", FormatTime(a.EndFrame, fps), a.EndFrame)
	fmt.Fprintf(&b, "    Minerals: %d\n", int(a.MineralsAtStart))
	fmt.Fprintf(&b, "    Gas: %d\n", int(a.GasAtStart))
	return b.String()
}
