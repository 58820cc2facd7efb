// Package service composes the layout engine, configuration codec, export
// builder, shared-build storage and the external engine client into the
// operations exposed over HTTP, the websocket and the CLI.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/BOSS-tools/boplot/internal/codec"
	"github.com/BOSS-tools/boplot/internal/export"
	"github.com/BOSS-tools/boplot/internal/influx"
	"github.com/BOSS-tools/boplot/internal/storage"
	"github.com/BOSS-tools/boplot/internal/timeline"
	"github.com/BOSS-tools/boplot/internal/typedata"
	"github.com/BOSS-tools/boplot/pkg/core"
)

var (
	// ErrNoStorage is returned by Share and Load without a storage backend.
	ErrNoStorage = errors.New("shared build storage is not configured")
	// ErrNoEngine is returned by Solve without an engine client.
	ErrNoEngine = errors.New("build order engine is not configured")
	// ErrUnknownRace is returned by Palette for a race outside the table.
	ErrUnknownRace = errors.New("unknown race")
	// ErrInvalidPayload wraps request payloads that fail to decode.
	ErrInvalidPayload = errors.New("invalid payload")
)

// Solver produces raw plot data for an export.
type Solver interface {
	Solve(ctx context.Context, e export.Export) ([]core.Plot, error)
}

// MetricsWriter receives one point per operation.
type MetricsWriter interface {
	WritePoint(ctx context.Context, point *influxdb2_write.Point) error
}

// Dependencies holds everything the service needs. Table is required;
// the rest may be nil.
type Dependencies struct {
	Table   *typedata.Table
	Options timeline.Options
	Storage storage.Backend
	Engine  Solver
	Metrics MetricsWriter
	Logger  *slog.Logger
}

// Service provides the build-order operations.
type Service struct {
	deps Dependencies
	log  *slog.Logger
}

// New validates deps and returns a Service.
func New(deps Dependencies) (*Service, error) {
	if deps.Table == nil {
		return nil, errors.New("type table is required")
	}
	if err := deps.Options.Validate(); err != nil {
		return nil, fmt.Errorf("layout options: %w", err)
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Service{deps: deps, log: log}, nil
}

// Table returns the type table the service was built with.
func (s *Service) Table() *typedata.Table {
	return s.deps.Table
}

// SetBackend swaps the shared-build storage backend.
func (s *Service) SetBackend(b storage.Backend) {
	s.deps.Storage = b
}

// Layout computes the stacked timeline geometry for plots.
func (s *Service) Layout(ctx context.Context, plots []core.Plot) (core.Layout, error) {
	start := time.Now()
	layout, err := timeline.Build(ctx, plots, s.deps.Table, s.deps.Options)
	s.record(ctx, "layout", len(plots), countActions(plots), start, err)
	if err != nil {
		return core.Layout{}, err
	}
	return layout, nil
}

// Encode serializes player lists into a configuration string.
func (s *Service) Encode(ctx context.Context, lists core.PlayerLists) (string, error) {
	start := time.Now()
	cfg, err := codec.Encode(lists)
	s.record(ctx, "encode", core.NumPlayers, countEntries(lists), start, err)
	return cfg, err
}

// Decode parses a configuration string into player lists.
func (s *Service) Decode(ctx context.Context, cfg string) (core.PlayerLists, error) {
	start := time.Now()
	lists, err := codec.Decode(cfg)
	s.record(ctx, "decode", core.NumPlayers, countEntries(lists), start, err)
	return lists, err
}

// Export builds the engine input for lists and checks every name against
// the type table.
func (s *Service) Export(ctx context.Context, lists core.PlayerLists) (export.Export, error) {
	start := time.Now()
	e, err := s.buildExport(lists)
	s.record(ctx, "export", len(e.BuildOrders), countEntries(lists), start, err)
	return e, err
}

func (s *Service) buildExport(lists core.PlayerLists) (export.Export, error) {
	for i, p := range lists.Players {
		if p.Start.Minerals < 0 || p.Start.Gas < 0 {
			return export.Export{}, fmt.Errorf("%w: player %d resources must not be negative (minerals=%d, gas=%d)",
				ErrInvalidPayload, i+1, p.Start.Minerals, p.Start.Gas)
		}
	}

	e := export.Build(lists)
	if err := export.Validate(e, s.deps.Table); err != nil {
		return export.Export{}, err
	}
	return e, nil
}

// Share persists lists as a shared build and returns it with its new ID.
func (s *Service) Share(ctx context.Context, lists core.PlayerLists) (*core.SharedBuild, error) {
	start := time.Now()
	b, err := s.share(lists)
	s.record(ctx, "share", core.NumPlayers, countEntries(lists), start, err)
	if err != nil {
		return nil, err
	}
	s.log.Info("shared build stored", "id", b.ID)
	return b, nil
}

func (s *Service) share(lists core.PlayerLists) (*core.SharedBuild, error) {
	if s.deps.Storage == nil {
		return nil, ErrNoStorage
	}
	cfg, err := codec.Encode(lists)
	if err != nil {
		return nil, err
	}
	e, err := s.buildExport(lists)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal export: %w", err)
	}

	b := &core.SharedBuild{Config: cfg, Export: raw}
	if err := s.deps.Storage.Save(b); err != nil {
		return nil, fmt.Errorf("save shared build: %w", err)
	}
	return b, nil
}

// Loaded is a shared build together with its decoded lists.
type Loaded struct {
	Build core.SharedBuild `json:"build"`
	Lists core.PlayerLists `json:"lists"`
}

// Load fetches a shared build by ID and decodes its configuration.
func (s *Service) Load(ctx context.Context, id string) (Loaded, error) {
	start := time.Now()
	out, err := s.load(id)
	s.record(ctx, "load", core.NumPlayers, countEntries(out.Lists), start, err)
	return out, err
}

func (s *Service) load(id string) (Loaded, error) {
	if s.deps.Storage == nil {
		return Loaded{}, ErrNoStorage
	}
	b, err := s.deps.Storage.Get(id)
	if err != nil {
		return Loaded{}, fmt.Errorf("load %s: %w", id, err)
	}
	lists, err := codec.Decode(b.Config)
	if err != nil {
		return Loaded{}, fmt.Errorf("stored build %s: %w", id, err)
	}
	return Loaded{Build: *b, Lists: lists}, nil
}

// Recent lists the newest shared builds.
func (s *Service) Recent(limit int) ([]core.SharedBuild, error) {
	if s.deps.Storage == nil {
		return nil, ErrNoStorage
	}
	return s.deps.Storage.List(limit)
}

// Solved is the engine's raw output and its rendered layout.
type Solved struct {
	Plots  []core.Plot `json:"plots"`
	Layout core.Layout `json:"layout"`
}

// Solve exports lists, asks the engine for build-order timelines and lays
// out the result.
func (s *Service) Solve(ctx context.Context, lists core.PlayerLists) (Solved, error) {
	start := time.Now()
	out, err := s.solve(ctx, lists)
	s.record(ctx, "solve", len(out.Plots), countActions(out.Plots), start, err)
	return out, err
}

func (s *Service) solve(ctx context.Context, lists core.PlayerLists) (Solved, error) {
	if s.deps.Engine == nil {
		return Solved{}, ErrNoEngine
	}
	e, err := s.buildExport(lists)
	if err != nil {
		return Solved{}, err
	}
	plots, err := s.deps.Engine.Solve(ctx, e)
	if err != nil {
		return Solved{}, err
	}
	layout, err := timeline.Build(ctx, plots, s.deps.Table, s.deps.Options)
	if err != nil {
		return Solved{Plots: plots}, err
	}
	return Solved{Plots: plots, Layout: layout}, nil
}

// PaletteEntry is one selectable type with its list colour.
type PaletteEntry struct {
	Name     string            `json:"name"`
	Category typedata.Category `json:"category"`
	Color    string            `json:"color"`
	Cost     string            `json:"cost"`
}

// Palette lists the selectable types of race in table order.
func (s *Service) Palette(race string) ([]PaletteEntry, error) {
	names := s.deps.Table.ByRace(race)
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRace, race)
	}
	out := make([]PaletteEntry, 0, len(names))
	for _, name := range names {
		td, err := s.deps.Table.Lookup(name)
		if err != nil {
			return nil, err
		}
		cat := typedata.CategoryOf(td)
		out = append(out, PaletteEntry{Name: name, Category: cat, Color: cat.Color(), Cost: timeline.CostString(td)})
	}
	return out, nil
}

func (s *Service) record(ctx context.Context, op string, plots, items int, start time.Time, err error) {
	if s.deps.Metrics == nil {
		return
	}
	if werr := s.deps.Metrics.WritePoint(ctx, influx.OperationPoint(op, plots, items, time.Since(start), err)); werr != nil {
		s.log.Warn("failed to write operation metric", "op", op, "error", werr)
	}
}

func countActions(plots []core.Plot) int {
	n := 0
	for _, p := range plots {
		n += len(p.BuildOrder)
	}
	return n
}

func countEntries(lists core.PlayerLists) int {
	n := 0
	for _, p := range lists.Players {
		n += len(p.Start.Units) + len(p.BuildOrder)
	}
	return n
}
