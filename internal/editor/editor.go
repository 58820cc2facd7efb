// Package editor keeps the editable player lists and applies list edits
// under one lock, so encode, decode and export always see a consistent
// board.
package editor

import (
	"errors"
	"fmt"
	"sync"

	"github.com/BOSS-tools/boplot/internal/codec"
	"github.com/BOSS-tools/boplot/internal/export"
	"github.com/BOSS-tools/boplot/internal/typedata"
	"github.com/BOSS-tools/boplot/pkg/core"
)

// List selects one of a player's two lists.
type List int

const (
	ListStarting List = iota
	ListBuildOrder
)

func (l List) String() string {
	switch l {
	case ListStarting:
		return "starting"
	case ListBuildOrder:
		return "build order"
	}
	return fmt.Sprintf("list(%d)", int(l))
}

// ParseList accepts "starting"/"S" and "buildOrder"/"BO".
func ParseList(s string) (List, error) {
	switch s {
	case "starting", "S":
		return ListStarting, nil
	case "buildOrder", "build order", "BO":
		return ListBuildOrder, nil
	}
	return 0, fmt.Errorf("%w: unknown list %q", ErrInvalidEdit, s)
}

var (
	// ErrRaceConflict is matched by every ConstraintError.
	ErrRaceConflict = errors.New("destination cannot contain units of another race")
	// ErrInvalidEdit wraps bad slot, list and resource arguments.
	ErrInvalidEdit = errors.New("invalid edit")
)

// ConstraintError reports an attempt to mix races in one list.
type ConstraintError struct {
	Slot     int
	List     List
	Race     string
	Conflict string
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%s: trying to place %s unit(s) with %s unit(s) in player %d %s list",
		ErrRaceConflict, e.Race, e.Conflict, e.Slot+1, e.List)
}

func (e *ConstraintError) Is(target error) bool {
	return target == ErrRaceConflict
}

// Board is the editable state of every player slot. Slots are 0-based.
type Board struct {
	mu    sync.Mutex
	table *typedata.Table
	lists core.PlayerLists
}

// New returns an empty board checking races against table.
func New(table *typedata.Table) *Board {
	return &Board{table: table}
}

func (b *Board) list(slot int, l List) (*[]string, error) {
	if slot < 0 || slot >= core.NumPlayers {
		return nil, fmt.Errorf("%w: player slot %d out of range", ErrInvalidEdit, slot)
	}
	p := &b.lists.Players[slot]
	switch l {
	case ListStarting:
		return &p.Start.Units, nil
	case ListBuildOrder:
		return &p.BuildOrder, nil
	}
	return nil, fmt.Errorf("%w: unknown list %d", ErrInvalidEdit, int(l))
}

// Add appends names to a list. Every name must be known and the list must
// end up holding a single race; otherwise nothing is added.
func (b *Board) Add(slot int, l List, names ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	dst, err := b.list(slot, l)
	if err != nil {
		return err
	}

	if err := b.checkRace(slot, l, *dst, names); err != nil {
		return err
	}

	*dst = append(*dst, names...)
	return nil
}

// checkRace looks up every name in existing and added and fails on the
// first one whose race differs from the race seen before it.
func (b *Board) checkRace(slot int, l List, existing, added []string) error {
	race := ""
	for _, group := range [][]string{existing, added} {
		for _, name := range group {
			r, err := b.table.RaceOf(name)
			if err != nil {
				return err
			}
			if race == "" {
				race = r
				continue
			}
			if r != race {
				return &ConstraintError{Slot: slot, List: l, Race: r, Conflict: race}
			}
		}
	}
	return nil
}

// Remove deletes the entries at indices. Out of range indices are ignored.
func (b *Board) Remove(slot int, l List, indices ...int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	dst, err := b.list(slot, l)
	if err != nil {
		return err
	}

	drop := make(map[int]bool, len(indices))
	for _, i := range indices {
		drop[i] = true
	}

	kept := (*dst)[:0]
	for i, name := range *dst {
		if !drop[i] {
			kept = append(kept, name)
		}
	}
	*dst = kept
	return nil
}

// Clear empties a list.
func (b *Board) Clear(slot int, l List) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	dst, err := b.list(slot, l)
	if err != nil {
		return err
	}
	*dst = nil
	return nil
}

// Move swaps the entry at index with the one delta positions away and
// returns the entry's new index. A move past either end is a no-op.
func (b *Board) Move(slot int, l List, index, delta int) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	dst, err := b.list(slot, l)
	if err != nil {
		return index, err
	}

	s := *dst
	to := index + delta
	if index < 0 || index >= len(s) || to < 0 || to >= len(s) {
		return index, nil
	}
	s[index], s[to] = s[to], s[index]
	return to, nil
}

// SetResources sets a player's starting minerals and gas.
func (b *Board) SetResources(slot, minerals, gas int) error {
	if slot < 0 || slot >= core.NumPlayers {
		return fmt.Errorf("%w: player slot %d out of range", ErrInvalidEdit, slot)
	}
	if minerals < 0 || gas < 0 {
		return fmt.Errorf("%w: resources must not be negative (minerals=%d, gas=%d)", ErrInvalidEdit, minerals, gas)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.lists.Players[slot].Start.Minerals = minerals
	b.lists.Players[slot].Start.Gas = gas
	return nil
}

// Snapshot returns a deep copy of the board.
func (b *Board) Snapshot() core.PlayerLists {
	b.mu.Lock()
	defer b.mu.Unlock()
	return clone(b.lists)
}

// Encode serializes the board to a configuration string.
func (b *Board) Encode() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return codec.Encode(b.lists)
}

// Load replaces every list with the contents of a configuration string.
// Every name must be known and each list must hold a single race.
// Resources and names are kept. On error the board is unchanged.
func (b *Board) Load(config string) error {
	decoded, err := codec.Decode(config)
	if err != nil {
		return err
	}
	for slot, p := range decoded.Players {
		if err := b.checkRace(slot, ListStarting, nil, p.Start.Units); err != nil {
			return err
		}
		if err := b.checkRace(slot, ListBuildOrder, nil, p.BuildOrder); err != nil {
			return err
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.lists.Players {
		b.lists.Players[i].Start.Units = decoded.Players[i].Start.Units
		b.lists.Players[i].BuildOrder = decoded.Players[i].BuildOrder
	}
	return nil
}

// Export builds the engine document from the board and checks every name
// against the type table.
func (b *Board) Export() (export.Export, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e := export.Build(b.lists)
	if err := export.Validate(e, b.table); err != nil {
		return export.Export{}, err
	}
	return e, nil
}

func clone(in core.PlayerLists) core.PlayerLists {
	out := in
	for i := range out.Players {
		out.Players[i].Start.Units = append([]string(nil), in.Players[i].Start.Units...)
		out.Players[i].BuildOrder = append([]string(nil), in.Players[i].BuildOrder...)
	}
	return out
}
