package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/BOSS-tools/boplot/internal/timeline"
)

// FileName is the config file looked up in the config directory.
const FileName = "boplot.cfg.json"

// MemoryConfig holds in-memory storage backend settings
type MemoryConfig struct {
	MaxEntries     int    `json:"maxEntries" mapstructure:"maxEntries"`
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds settings for the in-memory SQLite backend.
type SQLiteConfig struct {
	DumpPath     string        `json:"dumpPath" mapstructure:"dumpPath"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// BuntDBConfig holds settings for the BuntDB backend.
type BuntDBConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// StorageConfig selects and configures the shared build store.
type StorageConfig struct {
	Type   string       `json:"type" mapstructure:"type"`
	Memory MemoryConfig `json:"memory" mapstructure:"memory"`
	SQLite SQLiteConfig `json:"sqlite" mapstructure:"sqlite"`
	BuntDB BuntDBConfig `json:"buntdb" mapstructure:"buntdb"`
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address     string `json:"address" mapstructure:"address"`
	AllowOrigin string `json:"allowOrigin" mapstructure:"allowOrigin"`
}

// EngineConfig points at the external build-order engine.
type EngineConfig struct {
	URL     string        `json:"url" mapstructure:"url"`
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// Defaults registers default values only, for commands that run without a
// config file.
func Defaults() {
	setDefaults()
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./boplotlogs")
	viper.SetDefault("typeTable", "./data/types.json")

	d := timeline.DefaultOptions()
	viper.SetDefault("layout.xScale", d.XScale)
	viper.SetDefault("layout.yScale", d.YScale)
	viper.SetDefault("layout.rowHeight", d.RowHeight)
	viper.SetDefault("layout.rowGap", d.RowGap)
	viper.SetDefault("layout.plotMargin", d.PlotMargin)
	viper.SetDefault("layout.framesPerSecond", d.FramesPerSecond)
	viper.SetDefault("layout.gridIntervalFrames", d.GridIntervalFrames)
	viper.SetDefault("layout.gridTop", d.GridTop)
	viper.SetDefault("layout.gridOverhang", d.GridOverhang)

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.maxEntries", 1000)
	viper.SetDefault("storage.memory.outputDir", "")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.dumpPath", "./boplot.db")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.buntdb.path", "./boplot.buntdb")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "boplot")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "boplot-metrics")
	viper.SetDefault("influx.bucket", "boplot")
	viper.SetDefault("influx.backupPath", "")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "boplot")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("server.allowOrigin", "*")

	viper.SetDefault("monitor.enabled", true)
	viper.SetDefault("monitor.interval", "10s")
	viper.SetDefault("monitor.statusFile", "")

	viper.SetDefault("engine.url", "http://localhost:9090")
	viper.SetDefault("engine.timeout", "30s")
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetLayoutOptions returns the timeline scales and spacings.
func GetLayoutOptions() timeline.Options {
	return timeline.Options{
		XScale:             viper.GetFloat64("layout.xScale"),
		YScale:             viper.GetFloat64("layout.yScale"),
		RowHeight:          viper.GetFloat64("layout.rowHeight"),
		RowGap:             viper.GetFloat64("layout.rowGap"),
		PlotMargin:         viper.GetFloat64("layout.plotMargin"),
		FramesPerSecond:    viper.GetInt("layout.framesPerSecond"),
		GridIntervalFrames: viper.GetInt("layout.gridIntervalFrames"),
		GridTop:            viper.GetFloat64("layout.gridTop"),
		GridOverhang:       viper.GetFloat64("layout.gridOverhang"),
	}
}

// GetStorageConfig returns the storage backend configuration.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			MaxEntries:     viper.GetInt("storage.memory.maxEntries"),
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			DumpPath:     viper.GetString("storage.sqlite.dumpPath"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
		BuntDB: BuntDBConfig{
			Path: viper.GetString("storage.buntdb.path"),
		},
	}
}

// GetOTelConfig returns the OpenTelemetry configuration.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetServerConfig returns the HTTP server configuration.
func GetServerConfig() ServerConfig {
	return ServerConfig{
		Address:     viper.GetString("server.address"),
		AllowOrigin: viper.GetString("server.allowOrigin"),
	}
}

// GetEngineConfig returns the engine client configuration.
func GetEngineConfig() EngineConfig {
	return EngineConfig{
		URL:     viper.GetString("engine.url"),
		Timeout: viper.GetDuration("engine.timeout"),
	}
}
