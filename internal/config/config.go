// Package config loads facecsv settings with viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "facecsv.cfg.json"

// Tick modes for the recorder scheduler.
const (
	TickModeHost  = "host"
	TickModeTimer = "timer"
)

// RecorderConfig holds the recording session defaults.
type RecorderConfig struct {
	Subject      string        `json:"subject" mapstructure:"subject"`
	Filename     string        `json:"filename" mapstructure:"filename"`
	ExportRoot   string        `json:"exportRoot" mapstructure:"exportRoot"`
	SaveFolder   string        `json:"saveFolder" mapstructure:"saveFolder"`
	TickMode     string        `json:"tickMode" mapstructure:"tickMode"`
	TickInterval time.Duration `json:"tickInterval" mapstructure:"tickInterval"`
}

// SourceConfig holds the LiveLink relay connection settings.
type SourceConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	URL     string `json:"url" mapstructure:"url"`
	Secret  string `json:"secret" mapstructure:"secret"`
}

// SQLiteConfig holds the SQLite archive settings.
type SQLiteConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// StorageConfig selects the archive backends that receive exported recordings.
type StorageConfig struct {
	Archives []string     `json:"archives" mapstructure:"archives"`
	SQLite   SQLiteConfig `json:"sqlite" mapstructure:"sqlite"`
}

// DBConfig holds the Postgres connection settings.
type DBConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// InfluxConfig holds the InfluxDB archive settings.
type InfluxConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
	Bucket   string `json:"bucket" mapstructure:"bucket"`
}

// URL returns the server address built from protocol, host and port.
func (c InfluxConfig) URL() string {
	return fmt.Sprintf("%s://%s:%s", c.Protocol, c.Host, c.Port)
}

// APIConfig holds the web frontend upload settings.
type APIConfig struct {
	ServerURL string `json:"serverUrl" mapstructure:"serverUrl"`
	APIKey    string `json:"apiKey" mapstructure:"apiKey"`
	Upload    bool   `json:"upload" mapstructure:"upload"`
	Tag       string `json:"tag" mapstructure:"tag"`
}

// MonitorConfig controls the status file writer.
type MonitorConfig struct {
	Enabled  bool          `json:"enabled" mapstructure:"enabled"`
	Interval time.Duration `json:"interval" mapstructure:"interval"`
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
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

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./facecsvlogs")

	viper.SetDefault("recorder.subject", "")
	viper.SetDefault("recorder.filename", "LiveLinkFaceData.csv")
	viper.SetDefault("recorder.exportRoot", "./Saved")
	viper.SetDefault("recorder.saveFolder", "LiveLinkExports")
	viper.SetDefault("recorder.tickMode", TickModeHost)
	viper.SetDefault("recorder.tickInterval", "16ms")

	viper.SetDefault("source.enabled", false)
	viper.SetDefault("source.url", "ws://localhost:11111/livelink")
	viper.SetDefault("source.secret", "")

	viper.SetDefault("storage.archives", []string{})
	viper.SetDefault("storage.sqlite.path", "./facecsv.db")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "facecsv")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "facecsv")
	viper.SetDefault("influx.bucket", "face-capture")

	viper.SetDefault("api.serverUrl", "http://localhost:5000")
	viper.SetDefault("api.apiKey", "")
	viper.SetDefault("api.upload", false)
	viper.SetDefault("api.tag", "")

	viper.SetDefault("monitor.enabled", true)
	viper.SetDefault("monitor.interval", "1s")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "facecsv")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// Watch re-reads the config file on change and calls fn after each reload.
func Watch(fn func(fsnotify.Event)) {
	viper.OnConfigChange(fn)
	viper.WatchConfig()
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

// GetRecorderConfig returns the recorder settings. Unknown tick modes fall back to host.
func GetRecorderConfig() RecorderConfig {
	cfg := RecorderConfig{
		Subject:      viper.GetString("recorder.subject"),
		Filename:     viper.GetString("recorder.filename"),
		ExportRoot:   viper.GetString("recorder.exportRoot"),
		SaveFolder:   viper.GetString("recorder.saveFolder"),
		TickMode:     strings.ToLower(viper.GetString("recorder.tickMode")),
		TickInterval: viper.GetDuration("recorder.tickInterval"),
	}
	if cfg.TickMode != TickModeTimer {
		cfg.TickMode = TickModeHost
	}
	return cfg
}

// GetSourceConfig returns the relay settings.
func GetSourceConfig() SourceConfig {
	return SourceConfig{
		Enabled: viper.GetBool("source.enabled"),
		URL:     viper.GetString("source.url"),
		Secret:  viper.GetString("source.secret"),
	}
}

// GetStorageConfig returns the archive settings with backend names lowercased.
func GetStorageConfig() StorageConfig {
	names := viper.GetStringSlice("storage.archives")
	archives := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.ToLower(strings.TrimSpace(n)); n != "" {
			archives = append(archives, n)
		}
	}
	return StorageConfig{
		Archives: archives,
		SQLite: SQLiteConfig{
			Path: viper.GetString("storage.sqlite.path"),
		},
	}
}

// GetDBConfig returns the Postgres settings.
func GetDBConfig() DBConfig {
	return DBConfig{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.database"),
	}
}

// GetInfluxConfig returns the InfluxDB settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}

// GetAPIConfig returns the upload settings.
func GetAPIConfig() APIConfig {
	return APIConfig{
		ServerURL: viper.GetString("api.serverUrl"),
		APIKey:    viper.GetString("api.apiKey"),
		Upload:    viper.GetBool("api.upload"),
		Tag:       viper.GetString("api.tag"),
	}
}

// GetMonitorConfig returns the status monitor settings.
func GetMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Enabled:  viper.GetBool("monitor.enabled"),
		Interval: viper.GetDuration("monitor.interval"),
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}
