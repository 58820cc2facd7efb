// Package export builds the structured document the external build-order
// engine consumes.
package export

import (
	"encoding/json"
	"fmt"

	"github.com/BOSS-tools/boplot/internal/typedata"
	"github.com/BOSS-tools/boplot/pkg/core"
)

// Export is the engine input. Key names and order are fixed by the engine.
type Export struct {
	BuildOrders []Entry `json:"BuildOrders" jsonschema:"required"`
}

// Entry is one player slot.
type Entry struct {
	Name       string   `json:"Name" jsonschema:"required"`
	State      State    `json:"State" jsonschema:"required"`
	BuildOrder []string `json:"BuildOrder" jsonschema:"required"`
}

// State is the starting state of a slot.
type State struct {
	Minerals int         `json:"minerals" jsonschema:"required,minimum=0"`
	Gas      int         `json:"gas" jsonschema:"required,minimum=0"`
	Units    []UnitCount `json:"units" jsonschema:"required"`
}

// UnitCount is a starting unit type and how many of it the slot owns.
// It travels as a two element array: ["Probe", 4].
type UnitCount struct {
	Type  string
	Count int
}

func (u UnitCount) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{u.Type, u.Count})
}

func (u *UnitCount) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unit count: %w", err)
	}
	if len(raw) != 2 {
		return fmt.Errorf("unit count: expected 2 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &u.Type); err != nil {
		return fmt.Errorf("unit count type: %w", err)
	}
	if err := json.Unmarshal(raw[1], &u.Count); err != nil {
		return fmt.Errorf("unit count value: %w", err)
	}
	return nil
}

// EntryName labels slot (0-based) the way the engine expects.
func EntryName(slot int) string {
	return fmt.Sprintf("Build Order %d", slot+1)
}

// AggregateUnits counts names, keeping the order in which each name first
// appears.
func AggregateUnits(names []string) []UnitCount {
	counts := make([]UnitCount, 0, len(names))
	pos := make(map[string]int, len(names))
	for _, name := range names {
		if i, ok := pos[name]; ok {
			counts[i].Count++
			continue
		}
		pos[name] = len(counts)
		counts = append(counts, UnitCount{Type: name, Count: 1})
	}
	return counts
}

// Build converts the player lists. A slot whose starting units or build
// order is empty is left out.
func Build(lists core.PlayerLists) Export {
	out := Export{BuildOrders: make([]Entry, 0, core.NumPlayers)}
	for slot, p := range lists.Players {
		if len(p.Start.Units) == 0 || len(p.BuildOrder) == 0 {
			continue
		}

		bo := make([]string, len(p.BuildOrder))
		copy(bo, p.BuildOrder)

		out.BuildOrders = append(out.BuildOrders, Entry{
			Name: EntryName(slot),
			State: State{
				Minerals: p.Start.Minerals,
				Gas:      p.Start.Gas,
				Units:    AggregateUnits(p.Start.Units),
			},
			BuildOrder: bo,
		})
	}
	return out
}

// Validate checks that every name in e is a known type.
func Validate(e Export, table *typedata.Table) error {
	for _, entry := range e.BuildOrders {
		for _, u := range entry.State.Units {
			if _, err := table.Lookup(u.Type); err != nil {
				return fmt.Errorf("%s starting units: %w", entry.Name, err)
			}
		}
		for i, name := range entry.BuildOrder {
			if _, err := table.Lookup(name); err != nil {
				return fmt.Errorf("%s build order step %d: %w", entry.Name, i, err)
			}
		}
	}
	return nil
}
