// Package monitor periodically snapshots the running server to a status
// file, the log and the metrics sink.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/BOSS-tools/boplot/internal/influx"
)

// DefaultInterval applies when Dependencies.Interval is not positive.
const DefaultInterval = 10 * time.Second

// MetricsWriter receives one status point per tick.
type MetricsWriter interface {
	WritePoint(ctx context.Context, point *influxdb2_write.Point) error
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Clients    func() int64
	Commands   func() []string
	Metrics    MetricsWriter
	Logger     *slog.Logger
	StatusPath string
	Interval   time.Duration
}

// Status is the snapshot written on every tick.
type Status struct {
	Time       time.Time `json:"time"`
	Uptime     string    `json:"uptime"`
	WSClients  int64     `json:"wsClients"`
	Goroutines int       `json:"goroutines"`
	HeapBytes  uint64    `json:"heapBytes"`
	Commands   []string  `json:"commands,omitempty"`
}

// Service manages status monitoring
type Service struct {
	deps    Dependencies
	started time.Time

	mu        sync.RWMutex
	isRunning bool
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	return &Service{deps: deps, started: time.Now()}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetStatus returns the current program status.
func (s *Service) GetStatus() Status {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	st := Status{
		Time:       time.Now().UTC(),
		Uptime:     time.Since(s.started).Truncate(time.Second).String(),
		Goroutines: runtime.NumGoroutine(),
		HeapBytes:  mem.HeapAlloc,
	}
	if s.deps.Clients != nil {
		st.WSClients = s.deps.Clients()
	}
	if s.deps.Commands != nil {
		st.Commands = s.deps.Commands()
	}
	return st
}

// Tick takes one snapshot and publishes it.
func (s *Service) Tick(ctx context.Context) Status {
	st := s.GetStatus()
	log := s.deps.Logger

	if s.deps.StatusPath != "" {
		if err := writeStatusFile(s.deps.StatusPath, st); err != nil {
			log.Error("Error writing status file", "path", s.deps.StatusPath, "error", err)
		}
	}

	if s.deps.Metrics != nil {
		point := influx.StatusPoint(st.WSClients, st.Goroutines, st.HeapBytes, time.Since(s.started))
		if err := s.deps.Metrics.WritePoint(ctx, point); err != nil {
			log.Error("Error writing status point", "error", err)
		}
	}

	log.Debug("Status", "wsClients", st.WSClients, "goroutines", st.Goroutines, "heapBytes", st.HeapBytes)
	return st
}

// Start starts the status monitor goroutine. It stops when ctx is done or
// Stop is called.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		s.deps.Logger.Debug("Starting status monitor goroutine", "interval", s.deps.Interval)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Tick(ctx)
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for its goroutine to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.isRunning = false
	s.mu.Unlock()
	<-done
}

// writeStatusFile replaces path with st through a temp file so readers
// never see a partial document.
func writeStatusFile(path string, st Status) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create status dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
