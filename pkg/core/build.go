// pkg/core/build.go
package core

import (
	"encoding/json"
	"time"
)

// NumPlayers is the fixed number of player slots in the editor.
const NumPlayers = 3

// StartingState is a player's starting resources and units.
// Units is a multiset of type names in list order.
type StartingState struct {
	Minerals int      `json:"minerals"`
	Gas      int      `json:"gas"`
	Units    []string `json:"units"`
}

// BuildOrderSpec is a player's requested build order.
type BuildOrderSpec struct {
	Name       string        `json:"name"`
	Start      StartingState `json:"start"`
	BuildOrder []string      `json:"buildOrder"`
}

// PlayerLists is the editable state of every player slot.
type PlayerLists struct {
	Players [NumPlayers]BuildOrderSpec `json:"players"`
}

// SharedBuild is a persisted configuration addressable by ID.
type SharedBuild struct {
	ID        string          `json:"id"`
	Config    string          `json:"config"`
	Export    json.RawMessage `json:"export,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Races offered by the editor palettes.
const (
	RaceProtoss = "Protoss"
	RaceTerran  = "Terran"
	RaceZerg    = "Zerg"
)
