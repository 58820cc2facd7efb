// Package codec converts the editable player lists to and from the flat
// configuration string used in share links.
//
// The string carries, for each of the three players in turn, the starting
// unit names followed by the sentinel X, and then the same for every
// player's build order:
//
//	Worker,X,X,X,Worker,Supply,X,X,X
package codec

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BOSS-tools/boplot/pkg/core"
)

const (
	// Sentinel terminates one list.
	Sentinel = "X"
	// Separator joins fields.
	Separator = ","
)

var (
	// ErrFormat is matched by every FormatError.
	ErrFormat = errors.New("malformed configuration string")
	// ErrInvalidEntry is returned by Encode for names that cannot be
	// represented in the flat format.
	ErrInvalidEntry = errors.New("invalid list entry")
)

// FormatError describes where decoding stopped.
type FormatError struct {
	Pos    int // token index
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s at token %d: %s", ErrFormat, e.Pos, e.Reason)
}

func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}

// Encode flattens lists. Starting units of players 1..3 come first, then
// their build orders; each list ends with the sentinel.
func Encode(lists core.PlayerLists) (string, error) {
	fields := make([]string, 0, 2*core.NumPlayers+8)

	appendList := func(p int, section string, names []string) error {
		for i, name := range names {
			if err := checkEntry(name); err != nil {
				return fmt.Errorf("player %d %s entry %d: %w", p+1, section, i, err)
			}
			fields = append(fields, name)
		}
		fields = append(fields, Sentinel)
		return nil
	}

	for p := range lists.Players {
		if err := appendList(p, "starting", lists.Players[p].Start.Units); err != nil {
			return "", err
		}
	}
	for p := range lists.Players {
		if err := appendList(p, "build order", lists.Players[p].BuildOrder); err != nil {
			return "", err
		}
	}

	return strings.Join(fields, Separator), nil
}

func checkEntry(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidEntry)
	case name == Sentinel:
		return fmt.Errorf("%w: %q is the list terminator", ErrInvalidEntry, name)
	case strings.Contains(name, Separator):
		return fmt.Errorf("%w: %q contains %q", ErrInvalidEntry, name, Separator)
	}
	return nil
}

type state int

const (
	readingStarting state = iota
	readingBuildOrder
	done
)

// decoder walks the tokens one at a time. player is the slot whose list is
// currently being filled.
type decoder struct {
	state  state
	player int
	lists  core.PlayerLists
}

func (d *decoder) feed(pos int, tok string) error {
	if d.state == done {
		return &FormatError{Pos: pos, Reason: fmt.Sprintf("unexpected token %q after last list", tok)}
	}

	if tok == "" {
		return &FormatError{Pos: pos, Reason: "empty entry"}
	}

	if tok != Sentinel {
		p := &d.lists.Players[d.player]
		if d.state == readingStarting {
			p.Start.Units = append(p.Start.Units, tok)
		} else {
			p.BuildOrder = append(p.BuildOrder, tok)
		}
		return nil
	}

	d.player++
	if d.player == core.NumPlayers {
		d.player = 0
		d.state++
	}
	return nil
}

// Decode parses a configuration string produced by Encode. Lists that are
// empty in the string decode as nil.
func Decode(s string) (core.PlayerLists, error) {
	var d decoder
	if s == "" {
		return core.PlayerLists{}, &FormatError{Pos: 0, Reason: "empty input"}
	}

	tokens := strings.Split(s, Separator)
	for i, tok := range tokens {
		if err := d.feed(i, tok); err != nil {
			return core.PlayerLists{}, err
		}
	}

	if d.state != done {
		section := "starting units"
		if d.state == readingBuildOrder {
			section = "build order"
		}
		return core.PlayerLists{}, &FormatError{
			Pos:    len(tokens),
			Reason: fmt.Sprintf("input ended inside player %d %s", d.player+1, section),
		}
	}

	return d.lists, nil
}
