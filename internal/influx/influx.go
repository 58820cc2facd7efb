// Package influx writes operation metrics to InfluxDB, falling back to a
// gzip line-protocol file when the server cannot be reached.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const (
	// OperationMeasurement is the measurement name of per-request points.
	OperationMeasurement = "boplot_operation"
	// StatusMeasurement is written by the status monitor on every tick.
	StatusMeasurement = "boplot_status"
)

// retention applied to buckets created on first connect
const bucketRetentionSeconds = 60 * 60 * 24 * 90

var (
	// ErrDisabled is returned by Connect when influx.enabled is false.
	ErrDisabled = errors.New("influx.enabled is false")
	// ErrNoSink is returned when neither a server nor a backup file is available.
	ErrNoSink = errors.New("influxDB client not initialized and backup writer not available")
)

// Manager handles InfluxDB connections and writes.
type Manager struct {
	Client       influxdb2.Client
	Writer       influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	IsValid      bool
	Org          string
	Bucket       string
	Logger       zerolog.Logger
	BackupPath   string

	mu         sync.Mutex
	backupFile *os.File
}

// NewManager creates a new InfluxDB manager for the configured org and bucket.
func NewManager(log zerolog.Logger, backupPath string) *Manager {
	return &Manager{
		Org:        viper.GetString("influx.org"),
		Bucket:     viper.GetString("influx.bucket"),
		Logger:     log,
		BackupPath: backupPath,
	}
}

// Connect establishes a connection to InfluxDB. When the server does not
// answer the ping, points are written to the gzip backup file instead.
func (m *Manager) Connect(ctx context.Context) error {
	if !viper.GetBool("influx.enabled") {
		return ErrDisabled
	}

	m.Client = influxdb2.NewClientWithOptions(
		fmt.Sprintf(
			"%s://%s:%s",
			viper.GetString("influx.protocol"),
			viper.GetString("influx.host"),
			viper.GetString("influx.port"),
		),
		viper.GetString("influx.token"),
		influxdb2.DefaultOptions().
			SetBatchSize(500).
			SetFlushInterval(1000),
	)

	running, err := m.Client.Ping(ctx)
	m.IsValid = err == nil && running

	if !m.IsValid {
		m.Logger.Info().Str("backupPath", m.BackupPath).
			Msg("Failed to initialize InfluxDB client, writing to backup file")
		if err := m.openBackup(); err != nil {
			return err
		}
		m.Logger.Warn().Msg("InfluxDB client failed to initialize, using backup writer")
		return nil
	}

	if err := m.setupOrganizationAndBucket(ctx); err != nil {
		return err
	}
	m.createWriter()
	m.Logger.Info().Str("org", m.Org).Str("bucket", m.Bucket).Msg("InfluxDB client initialized")
	return nil
}

func (m *Manager) openBackup() error {
	if m.BackupWriter != nil {
		return nil
	}
	if m.BackupPath == "" {
		return ErrNoSink
	}
	file, err := os.OpenFile(m.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	m.backupFile = file
	m.BackupWriter = gzip.NewWriter(file)
	return nil
}

func (m *Manager) setupOrganizationAndBucket(ctx context.Context) error {
	orgs := m.Client.OrganizationsAPI()

	org, err := orgs.FindOrganizationByName(ctx, m.Org)
	if err != nil {
		m.Logger.Info().Str("org", m.Org).Msg("Organization not found, creating")
		org, err = orgs.CreateOrganizationWithName(ctx, m.Org)
		if err != nil {
			m.Logger.Error().Err(err).Str("org", m.Org).Msg("Error creating organization")
			return fmt.Errorf("create organization %s: %w", m.Org, err)
		}
	}

	if _, err := m.Client.BucketsAPI().FindBucketByName(ctx, m.Bucket); err == nil {
		return nil
	}

	m.Logger.Info().Str("bucket", m.Bucket).Msg("Bucket not found, creating")
	rule := domain.RetentionRuleTypeExpire
	_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, org, m.Bucket, domain.RetentionRule{
		Type:         &rule,
		EverySeconds: bucketRetentionSeconds,
	})
	if err != nil {
		m.Logger.Error().Err(err).Str("bucket", m.Bucket).Msg("Error creating bucket")
		return fmt.Errorf("create bucket %s: %w", m.Bucket, err)
	}
	return nil
}

func (m *Manager) createWriter() {
	m.Writer = m.Client.WriteAPI(m.Org, m.Bucket)

	errorsCh := m.Writer.Errors()
	go func() {
		for writeErr := range errorsCh {
			m.Logger.Error().Err(writeErr).Str("bucket", m.Bucket).
				Msg("Error sending data to InfluxDB")
		}
	}()
}

// WritePoint writes a point to InfluxDB or the backup file.
func (m *Manager) WritePoint(_ context.Context, point *influxdb2_write.Point) error {
	if m.IsValid && m.Writer != nil {
		m.Writer.WritePoint(point)
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BackupWriter == nil {
		return ErrNoSink
	}

	lineProtocol := strings.TrimRight(influxdb2_write.PointToLineProtocol(point, time.Nanosecond), "\n")
	if _, err := m.BackupWriter.Write([]byte(lineProtocol + "\n")); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// Close flushes pending points and releases the client and backup file.
func (m *Manager) Close() error {
	if m.Writer != nil {
		m.Writer.Flush()
	}
	if m.Client != nil {
		m.Client.Close()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var errs []error
	if m.BackupWriter != nil {
		errs = append(errs, m.BackupWriter.Close())
		m.BackupWriter = nil
	}
	if m.backupFile != nil {
		errs = append(errs, m.backupFile.Close())
		m.backupFile = nil
	}
	return errors.Join(errs...)
}

// OperationPoint describes one service request: the operation name, how
// many plots and items it touched, how long it took and whether it failed.
func OperationPoint(op string, plots, items int, dur time.Duration, err error) *influxdb2_write.Point {
	status := "ok"
	if err != nil {
		status = "error"
	}

	point := influxdb2_write.NewPointWithMeasurement(OperationMeasurement).
		AddTag("op", op).
		AddTag("status", status).
		AddField("plots", plots).
		AddField("items", items).
		AddField("duration_ms", float64(dur.Microseconds())/1000).
		SetTime(time.Now().UTC())
	if err != nil {
		point.AddField("error", err.Error())
	}
	return point
}

// StatusPoint snapshots the running server.
func StatusPoint(clients int64, goroutines int, heapBytes uint64, uptime time.Duration) *influxdb2_write.Point {
	return influxdb2_write.NewPointWithMeasurement(StatusMeasurement).
		AddField("ws_clients", clients).
		AddField("goroutines", goroutines).
		AddField("heap_bytes", heapBytes).
		AddField("uptime_s", int64(uptime.Seconds())).
		SetTime(time.Now().UTC())
}
