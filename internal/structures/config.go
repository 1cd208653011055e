package structures

import (
	"net/http"
	"time"
)

type CliFlags struct {
	ConfigPath string
	DebugMode  bool
}

type Route struct {
	Url     string
	Handler http.Handler
}

type Server struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"required|uint|min:1"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" validate:"required|uint"`
	Dir   string `yaml:"dir" validate:"required|unixPath"`
}

type StoreConfig struct {
	Backend       string        `yaml:"backend" validate:"required|in:file,badger,memory"`
	Path          string        `yaml:"path"`
	FlushInterval time.Duration `yaml:"flushInterval"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Size    int           `yaml:"size"`
	TTL     time.Duration `yaml:"ttl"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type ConnectionConfig struct {
	UserScope         string        `yaml:"userScope" validate:"required"`
	Timezone          string        `yaml:"timezone"`
	LowerDateBoundary string        `yaml:"lowerDateBoundary"`
	ProviderURL       string        `yaml:"providerUrl" validate:"required|fullUrl"`
	UploadURL         string        `yaml:"uploadUrl" validate:"required|fullUrl"`
	AccessToken       string        `yaml:"accessToken"`
	RequestTimeout    time.Duration `yaml:"requestTimeout"`
}

type FetchConfig struct {
	Timeout              time.Duration `yaml:"timeout" validate:"required|min:1"`
	MaxRetries           int           `yaml:"maxRetries" validate:"min:0"`
	RetryDelay           time.Duration `yaml:"retryDelay"`
	RateLimit            float64       `yaml:"rateLimit"`
	Burst                int           `yaml:"burst"`
	MaxConcurrentMetrics int           `yaml:"maxConcurrentMetrics"`
}

type BreakerConfig struct {
	Enabled      bool          `yaml:"enabled"`
	MaxRequests  uint32        `yaml:"maxRequests"`
	Interval     time.Duration `yaml:"interval"`
	Timeout      time.Duration `yaml:"timeout"`
	MinRequests  uint32        `yaml:"minRequests"`
	FailureRatio float64       `yaml:"failureRatio"`
}

type ScheduleConfig struct {
	IntradayInterval   time.Duration `yaml:"intradayInterval"`
	SessionsInterval   time.Duration `yaml:"sessionsInterval"`
	ProfileInterval    time.Duration `yaml:"profileInterval"`
	LookbackDays       int           `yaml:"lookbackDays" validate:"min:0|max:30"`
	Metrics            []string      `yaml:"metrics"`
	ProfileFields      []string      `yaml:"profileFields"`
	MinSessionDuration time.Duration `yaml:"minSessionDuration"`
}

type Config struct {
	AppName    string
	Debug      bool
	Path       string
	WebServer  Server           `yaml:"webServer"`
	Logger     LoggerConfig     `yaml:"logger"`
	Store      StoreConfig      `yaml:"store"`
	Cache      CacheConfig      `yaml:"cache"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Connection ConnectionConfig `yaml:"connection"`
	Fetch      FetchConfig      `yaml:"fetch"`
	Breaker    BreakerConfig    `yaml:"breaker"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
}

// Location resolves the connection timezone, defaulting to UTC.
func (c *Config) Location() (*time.Location, error) {
	if c.Connection.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Connection.Timezone)
}

// LowerBoundary parses the RFC 3339 connection creation time. Empty means unbounded.
func (c *Config) LowerBoundary() (*time.Time, error) {
	if c.Connection.LowerDateBoundary == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, c.Connection.LowerDateBoundary)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
