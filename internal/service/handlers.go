package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/BOSS-tools/boplot/internal/dispatcher"
	"github.com/BOSS-tools/boplot/internal/editor"
	"github.com/BOSS-tools/boplot/pkg/core"
)

// Command names understood by the dispatcher.
const (
	CmdLayout = "layout"
	CmdEncode = "encode"
	CmdDecode = "decode"
	CmdExport = "export"
	CmdShare  = "share"
	CmdLoad   = "load"
	CmdRecent = "recent"
	CmdSolve  = "solve"
	CmdTypes  = "types"

	CmdBoardAdd       = "board.add"
	CmdBoardRemove    = "board.remove"
	CmdBoardClear     = "board.clear"
	CmdBoardMove      = "board.move"
	CmdBoardResources = "board.resources"
	CmdBoardSnapshot  = "board.snapshot"
	CmdBoardEncode    = "board.encode"
	CmdBoardLoad      = "board.load"
	CmdBoardExport    = "board.export"
)

// ErrNoBoard is returned by board commands dispatched without a session board.
var ErrNoBoard = errors.New("no editor board bound to this session")

type boardKey struct{}

// WithBoard binds an editor board to ctx for the board.* commands.
func WithBoard(ctx context.Context, b *editor.Board) context.Context {
	return context.WithValue(ctx, boardKey{}, b)
}

// BoardFrom returns the board bound to ctx.
func BoardFrom(ctx context.Context) (*editor.Board, error) {
	b, ok := ctx.Value(boardKey{}).(*editor.Board)
	if !ok || b == nil {
		return nil, ErrNoBoard
	}
	return b, nil
}

// ConfigRequest carries a configuration string.
type ConfigRequest struct {
	Config string `json:"config"`
}

// IDRequest names a shared build.
type IDRequest struct {
	ID string `json:"id"`
}

// RaceRequest selects a palette.
type RaceRequest struct {
	Race string `json:"race"`
}

// LimitRequest bounds a listing.
type LimitRequest struct {
	Limit int `json:"limit"`
}

// ListRequest addresses one list of one player slot.
type ListRequest struct {
	Slot int    `json:"slot"`
	List string `json:"list"`
}

// AddRequest appends names to a list.
type AddRequest struct {
	ListRequest
	Names []string `json:"names"`
}

// RemoveRequest deletes entries by index.
type RemoveRequest struct {
	ListRequest
	Indices []int `json:"indices"`
}

// MoveRequest shifts one entry by delta positions.
type MoveRequest struct {
	ListRequest
	Index int `json:"index"`
	Delta int `json:"delta"`
}

// ResourcesRequest sets a slot's starting resources.
type ResourcesRequest struct {
	Slot     int `json:"slot"`
	Minerals int `json:"minerals"`
	Gas      int `json:"gas"`
}

// Moved reports where a moved entry ended up.
type Moved struct {
	Index int              `json:"index"`
	Lists core.PlayerLists `json:"lists"`
}

func decodePayload(r dispatcher.Request, v any) error {
	if len(r.Payload) == 0 {
		return fmt.Errorf("%w: %s: empty payload", ErrInvalidPayload, r.Command)
	}
	if err := json.Unmarshal(r.Payload, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidPayload, r.Command, err)
	}
	return nil
}

func listsHandler[T any](fn func(context.Context, core.PlayerLists) (T, error)) dispatcher.HandlerFunc {
	return func(ctx context.Context, r dispatcher.Request) (any, error) {
		var lists core.PlayerLists
		if err := decodePayload(r, &lists); err != nil {
			return nil, err
		}
		return fn(ctx, lists)
	}
}

// RegisterHandlers wires every service operation into d.
func (s *Service) RegisterHandlers(d *dispatcher.Dispatcher) {
	d.Register(CmdLayout, func(ctx context.Context, r dispatcher.Request) (any, error) {
		var plots []core.Plot
		if err := decodePayload(r, &plots); err != nil {
			return nil, err
		}
		return s.Layout(ctx, plots)
	}, dispatcher.Logged())

	d.Register(CmdEncode, listsHandler(s.Encode), dispatcher.Logged())
	d.Register(CmdExport, listsHandler(s.Export), dispatcher.Logged())
	d.Register(CmdShare, listsHandler(s.Share), dispatcher.Logged())
	d.Register(CmdSolve, listsHandler(s.Solve), dispatcher.Logged())

	d.Register(CmdDecode, func(ctx context.Context, r dispatcher.Request) (any, error) {
		var req ConfigRequest
		if err := decodePayload(r, &req); err != nil {
			return nil, err
		}
		return s.Decode(ctx, req.Config)
	}, dispatcher.Logged())

	d.Register(CmdLoad, func(ctx context.Context, r dispatcher.Request) (any, error) {
		var req IDRequest
		if err := decodePayload(r, &req); err != nil {
			return nil, err
		}
		return s.Load(ctx, req.ID)
	}, dispatcher.Logged())

	d.Register(CmdRecent, func(_ context.Context, r dispatcher.Request) (any, error) {
		var req LimitRequest
		if len(r.Payload) > 0 {
			if err := decodePayload(r, &req); err != nil {
				return nil, err
			}
		}
		return s.Recent(req.Limit)
	})

	d.Register(CmdTypes, func(_ context.Context, r dispatcher.Request) (any, error) {
		var req RaceRequest
		if err := decodePayload(r, &req); err != nil {
			return nil, err
		}
		return s.Palette(req.Race)
	})

	s.registerBoardHandlers(d)
}

func (s *Service) registerBoardHandlers(d *dispatcher.Dispatcher) {
	withBoard := func(fn func(*editor.Board, dispatcher.Request) (any, error)) dispatcher.HandlerFunc {
		return func(ctx context.Context, r dispatcher.Request) (any, error) {
			b, err := BoardFrom(ctx)
			if err != nil {
				return nil, err
			}
			return fn(b, r)
		}
	}

	d.Register(CmdBoardAdd, withBoard(func(b *editor.Board, r dispatcher.Request) (any, error) {
		var req AddRequest
		if err := decodePayload(r, &req); err != nil {
			return nil, err
		}
		l, err := editor.ParseList(req.List)
		if err != nil {
			return nil, err
		}
		if err := b.Add(req.Slot, l, req.Names...); err != nil {
			return nil, err
		}
		return b.Snapshot(), nil
	}))

	d.Register(CmdBoardRemove, withBoard(func(b *editor.Board, r dispatcher.Request) (any, error) {
		var req RemoveRequest
		if err := decodePayload(r, &req); err != nil {
			return nil, err
		}
		l, err := editor.ParseList(req.List)
		if err != nil {
			return nil, err
		}
		if err := b.Remove(req.Slot, l, req.Indices...); err != nil {
			return nil, err
		}
		return b.Snapshot(), nil
	}))

	d.Register(CmdBoardClear, withBoard(func(b *editor.Board, r dispatcher.Request) (any, error) {
		var req ListRequest
		if err := decodePayload(r, &req); err != nil {
			return nil, err
		}
		l, err := editor.ParseList(req.List)
		if err != nil {
			return nil, err
		}
		if err := b.Clear(req.Slot, l); err != nil {
			return nil, err
		}
		return b.Snapshot(), nil
	}))

	d.Register(CmdBoardMove, withBoard(func(b *editor.Board, r dispatcher.Request) (any, error) {
		var req MoveRequest
		if err := decodePayload(r, &req); err != nil {
			return nil, err
		}
		l, err := editor.ParseList(req.List)
		if err != nil {
			return nil, err
		}
		idx, err := b.Move(req.Slot, l, req.Index, req.Delta)
		if err != nil {
			return nil, err
		}
		return Moved{Index: idx, Lists: b.Snapshot()}, nil
	}))

	d.Register(CmdBoardResources, withBoard(func(b *editor.Board, r dispatcher.Request) (any, error) {
		var req ResourcesRequest
		if err := decodePayload(r, &req); err != nil {
			return nil, err
		}
		if err := b.SetResources(req.Slot, req.Minerals, req.Gas); err != nil {
			return nil, err
		}
		return b.Snapshot(), nil
	}))

	d.Register(CmdBoardSnapshot, withBoard(func(b *editor.Board, _ dispatcher.Request) (any, error) {
		return b.Snapshot(), nil
	}))

	d.Register(CmdBoardEncode, withBoard(func(b *editor.Board, _ dispatcher.Request) (any, error) {
		return b.Encode()
	}))

	d.Register(CmdBoardLoad, withBoard(func(b *editor.Board, r dispatcher.Request) (any, error) {
		var req ConfigRequest
		if err := decodePayload(r, &req); err != nil {
			return nil, err
		}
		if err := b.Load(req.Config); err != nil {
			return nil, err
		}
		return b.Snapshot(), nil
	}))

	d.Register(CmdBoardExport, withBoard(func(b *editor.Board, _ dispatcher.Request) (any, error) {
		return b.Export()
	}))
}
