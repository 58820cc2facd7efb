// Package typedata holds the static unit/building/upgrade table the
// build-order tools read costs, build times and category flags from.
package typedata

import (
	"errors"
	"fmt"
)

// ErrUnknownType is matched by every LookupError.
var ErrUnknownType = errors.New("unknown type")

// LookupError reports a type name absent from the table.
type LookupError struct {
	Name string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("unknown type %q", e.Name)
}

// Is lets errors.Is(err, ErrUnknownType) match.
func (e *LookupError) Is(target error) bool {
	return target == ErrUnknownType
}

// TypeData is one entry of the static table.
type TypeData struct {
	Name             string  `json:"name" yaml:"name"`
	Race             string  `json:"race" yaml:"race"`
	MineralCost      int     `json:"mineralCost" yaml:"mineralCost"`
	GasCost          int     `json:"gasCost" yaml:"gasCost"`
	SupplyCost       float64 `json:"supplyCost" yaml:"supplyCost"`
	SupplyProvided   int     `json:"supplyProvided" yaml:"supplyProvided"`
	BuildTime        int     `json:"buildTime" yaml:"buildTime"`
	NumProduced      int     `json:"numProduced" yaml:"numProduced"`
	IsUnit           bool    `json:"isUnit" yaml:"isUnit"`
	IsUpgrade        bool    `json:"isUpgrade" yaml:"isUpgrade"`
	IsBuilding       bool    `json:"isBuilding" yaml:"isBuilding"`
	IsWorker         bool    `json:"isWorker" yaml:"isWorker"`
	IsRefinery       bool    `json:"isRefinery" yaml:"isRefinery"`
	IsSupplyProvider bool    `json:"isSupplyProvider" yaml:"isSupplyProvider"`
	IsResourceDepot  bool    `json:"isResourceDepot" yaml:"isResourceDepot"`
	IsAddon          bool    `json:"isAddon" yaml:"isAddon"`
}

// Table is a read-only index of TypeData by name. Insertion order is kept
// so palettes list types the way the source file does.
type Table struct {
	types []TypeData
	index map[string]int
}

// NewTable builds a table. Duplicate names are rejected.
func NewTable(types []TypeData) (*Table, error) {
	t := &Table{
		types: make([]TypeData, 0, len(types)),
		index: make(map[string]int, len(types)),
	}
	for _, td := range types {
		if td.Name == "" {
			return nil, fmt.Errorf("type at position %d has no name", len(t.types))
		}
		if _, dup := t.index[td.Name]; dup {
			return nil, fmt.Errorf("duplicate type %q", td.Name)
		}
		t.index[td.Name] = len(t.types)
		t.types = append(t.types, td)
	}
	return t, nil
}

// Lookup returns the entry for name or a *LookupError.
func (t *Table) Lookup(name string) (TypeData, error) {
	i, ok := t.index[name]
	if !ok {
		return TypeData{}, &LookupError{Name: name}
	}
	return t.types[i], nil
}

// Has reports whether name is in the table.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Len returns the number of types.
func (t *Table) Len() int {
	return len(t.types)
}

// All returns a copy of every entry in table order.
func (t *Table) All() []TypeData {
	out := make([]TypeData, len(t.types))
	copy(out, t.types)
	return out
}

// ByRace lists the names selectable for a race. Larva is never offered.
func (t *Table) ByRace(race string) []string {
	var names []string
	for _, td := range t.types {
		if td.Race == race && td.Name != "Larva" {
			names = append(names, td.Name)
		}
	}
	return names
}

// RaceOf returns the race of name.
func (t *Table) RaceOf(name string) (string, error) {
	td, err := t.Lookup(name)
	if err != nil {
		return "", err
	}
	return td.Race, nil
}
