package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BOSS-tools/boplot/internal/dispatcher"
	"github.com/BOSS-tools/boplot/internal/editor"
	"github.com/BOSS-tools/boplot/internal/export"
	"github.com/BOSS-tools/boplot/internal/typedata"
	"github.com/BOSS-tools/boplot/pkg/core"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

func newDispatcher(t *testing.T, svc *Service) *dispatcher.Dispatcher {
	t.Helper()
	d, err := dispatcher.New(nopLogger{})
	require.NoError(t, err)
	svc.RegisterHandlers(d)
	return d
}

func call(t *testing.T, ctx context.Context, d *dispatcher.Dispatcher, cmd string, payload any) (any, error) {
	t.Helper()
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		raw = b
	}
	return d.Dispatch(ctx, dispatcher.Request{Command: cmd, Payload: raw})
}

func TestRegisterHandlers_Commands(t *testing.T) {
	f := newFixture(t)
	d := newDispatcher(t, f.svc)

	for _, cmd := range []string{
		CmdLayout, CmdEncode, CmdDecode, CmdExport, CmdShare, CmdLoad, CmdRecent, CmdSolve, CmdTypes,
		CmdBoardAdd, CmdBoardRemove, CmdBoardClear, CmdBoardMove, CmdBoardResources,
		CmdBoardSnapshot, CmdBoardEncode, CmdBoardLoad, CmdBoardExport,
	} {
		assert.True(t, d.HasHandler(cmd), cmd)
	}
}

func TestHandlers_EncodeDecodeRoundTrip(t *testing.T) {
	f := newFixture(t)
	d := newDispatcher(t, f.svc)
	ctx := context.Background()

	res, err := call(t, ctx, d, CmdEncode, protossLists())
	require.NoError(t, err)
	cfg, ok := res.(string)
	require.True(t, ok)

	res, err = call(t, ctx, d, CmdDecode, ConfigRequest{Config: cfg})
	require.NoError(t, err)
	assert.Equal(t, protossLists().Players[0].BuildOrder, res.(core.PlayerLists).Players[0].BuildOrder)
}

func TestHandlers_ShareLoad(t *testing.T) {
	f := newFixture(t)
	d := newDispatcher(t, f.svc)
	ctx := context.Background()

	res, err := call(t, ctx, d, CmdShare, protossLists())
	require.NoError(t, err)
	b := res.(*core.SharedBuild)

	res, err = call(t, ctx, d, CmdLoad, IDRequest{ID: b.ID})
	require.NoError(t, err)
	assert.Equal(t, b.Config, res.(Loaded).Build.Config)

	res, err = call(t, ctx, d, CmdRecent, nil)
	require.NoError(t, err)
	assert.Len(t, res.([]core.SharedBuild), 1)
}

func TestHandlers_InvalidPayload(t *testing.T) {
	f := newFixture(t)
	d := newDispatcher(t, f.svc)

	_, err := d.Dispatch(context.Background(), dispatcher.Request{Command: CmdLayout, Payload: json.RawMessage(`{"not":"plots"}`)})
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, err = call(t, context.Background(), d, CmdTypes, nil)
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestHandlers_TypesAndLayout(t *testing.T) {
	f := newFixture(t)
	d := newDispatcher(t, f.svc)
	ctx := context.Background()

	res, err := call(t, ctx, d, CmdTypes, RaceRequest{Race: core.RaceTerran})
	require.NoError(t, err)
	assert.Equal(t, "Marine", res.([]PaletteEntry)[0].Name)

	res, err = d.Dispatch(ctx, dispatcher.Request{
		Command: CmdLayout,
		Payload: json.RawMessage(`[{"buildOrder":[["Probe",0,300,50,0,0,"#d9ffff"]]}]`),
	})
	require.NoError(t, err)
	assert.Equal(t, 45.0, res.(core.Layout).Width)
}

func TestBoardHandlers_RequireBoard(t *testing.T) {
	f := newFixture(t)
	d := newDispatcher(t, f.svc)

	_, err := call(t, context.Background(), d, CmdBoardSnapshot, nil)
	assert.ErrorIs(t, err, ErrNoBoard)
}

func TestBoardHandlers_Session(t *testing.T) {
	f := newFixture(t)
	d := newDispatcher(t, f.svc)
	board := editor.New(f.svc.Table())
	ctx := WithBoard(context.Background(), board)

	_, err := call(t, ctx, d, CmdBoardAdd, AddRequest{ListRequest: ListRequest{Slot: 0, List: "starting"}, Names: []string{"Nexus", "Probe", "Probe"}})
	require.NoError(t, err)
	_, err = call(t, ctx, d, CmdBoardAdd, AddRequest{ListRequest: ListRequest{Slot: 0, List: "BO"}, Names: []string{"Pylon", "Probe"}})
	require.NoError(t, err)

	_, err = call(t, ctx, d, CmdBoardAdd, AddRequest{ListRequest: ListRequest{Slot: 0, List: "BO"}, Names: []string{"Marine"}})
	assert.ErrorIs(t, err, editor.ErrRaceConflict)

	res, err := call(t, ctx, d, CmdBoardMove, MoveRequest{ListRequest: ListRequest{Slot: 0, List: "BO"}, Index: 1, Delta: -1})
	require.NoError(t, err)
	moved := res.(Moved)
	assert.Equal(t, 0, moved.Index)
	assert.Equal(t, []string{"Probe", "Pylon"}, moved.Lists.Players[0].BuildOrder)

	_, err = call(t, ctx, d, CmdBoardResources, ResourcesRequest{Slot: 0, Minerals: 50})
	require.NoError(t, err)

	_, err = call(t, ctx, d, CmdBoardRemove, RemoveRequest{ListRequest: ListRequest{Slot: 0, List: "starting"}, Indices: []int{2}})
	require.NoError(t, err)

	res, err = call(t, ctx, d, CmdBoardEncode, nil)
	require.NoError(t, err)
	assert.Equal(t, "Nexus,Probe,X,X,X,Probe,Pylon,X,X,X", res)

	res, err = call(t, ctx, d, CmdBoardExport, nil)
	require.NoError(t, err)
	e := res.(export.Export)
	require.Len(t, e.BuildOrders, 1)
	assert.Equal(t, 50, e.BuildOrders[0].State.Minerals)

	_, err = call(t, ctx, d, CmdBoardClear, ListRequest{Slot: 0, List: "BO"})
	require.NoError(t, err)

	res, err = call(t, ctx, d, CmdBoardLoad, ConfigRequest{Config: "Drone,X,X,X,Drone,X,X,X"})
	require.NoError(t, err)
	lists := res.(core.PlayerLists)
	assert.Equal(t, []string{"Drone"}, lists.Players[0].Start.Units)
	assert.Equal(t, 50, lists.Players[0].Start.Minerals)

	res, err = call(t, ctx, d, CmdBoardSnapshot, nil)
	require.NoError(t, err)
	assert.Equal(t, lists, res)

	_, err = call(t, ctx, d, CmdBoardClear, ListRequest{Slot: 0, List: "units"})
	assert.ErrorIs(t, err, editor.ErrInvalidEdit)

	_, err = call(t, ctx, d, CmdBoardLoad, ConfigRequest{Config: "Bogus,X,X,X,Bogus,X,X,X"})
	assert.ErrorIs(t, err, typedata.ErrUnknownType)
	res, err = call(t, ctx, d, CmdBoardSnapshot, nil)
	require.NoError(t, err)
	assert.Equal(t, lists, res)
}
