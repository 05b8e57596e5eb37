package structures

import "time"

type Server struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"required|uint|min:1"`
}

type Persistence struct {
	FilePath     string        `yaml:"filePath" validate:"required|unixPath"`
	SaveInterval time.Duration `yaml:"saveInterval" validate:"required|min:1"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" validate:"required|uint"`
	Dir   string `yaml:"dir" validate:"required|unixPath"`
}

// MigrationConfig carries estimation baselines and completion policy.
// FinalDay is the scheduled last day of a migration: on that day progress is
// declared complete regardless of measured growth, flagged as forced in the
// report. DivergenceTolerance is the fraction by which measured growth may
// exceed the declared total before a snapshot is rejected.
type MigrationConfig struct {
	FinalDay            int           `yaml:"finalDay" validate:"required|min:1"`
	DivergenceTolerance float64       `yaml:"divergenceTolerance"`
	AvgPhotoBytes       int64         `yaml:"avgPhotoBytes"`
	AvgVideoBytes       int64         `yaml:"avgVideoBytes"`
	DayCloseInterval    time.Duration `yaml:"dayCloseInterval"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Size    int           `yaml:"size"`
	TTL     time.Duration `yaml:"ttl"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type Config struct {
	AppName     string
	Debug       bool
	Path        string
	Migration   MigrationConfig `yaml:"migration"`
	WebServer   Server          `yaml:"webServer"`
	Persistence Persistence     `yaml:"persistence"`
	Logger      LoggerConfig    `yaml:"logger"`
	Cache       CacheConfig     `yaml:"cache"`
	Metrics     MetricsConfig   `yaml:"metrics"`
}
