package providers

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"wearsync/internal/structures"

	"github.com/spf13/viper"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("webServer.host", "127.0.0.1")
	v.SetDefault("webServer.port", 8090)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.mode", 0644)
	v.SetDefault("store.backend", "file")
	v.SetDefault("store.flushInterval", 30*time.Second)
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("connection.requestTimeout", 30*time.Second)
	v.SetDefault("fetch.timeout", 20*time.Second)
	v.SetDefault("fetch.maxRetries", 3)
	v.SetDefault("fetch.retryDelay", time.Second)
	v.SetDefault("fetch.maxConcurrentMetrics", 3)
	v.SetDefault("breaker.maxRequests", 3)
	v.SetDefault("breaker.interval", time.Minute)
	v.SetDefault("breaker.timeout", 2*time.Minute)
	v.SetDefault("breaker.minRequests", 10)
	v.SetDefault("breaker.failureRatio", 0.6)
	v.SetDefault("schedule.lookbackDays", 2)
	v.SetDefault("schedule.metrics", []string{"calories", "steps", "heart_rate"})
	v.SetDefault("schedule.profileFields", []string{"weight", "height"})
	v.SetDefault("schedule.minSessionDuration", 2*time.Minute)
}

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	v := viper.New()
	setDefaults(v)

	filename := filepath.Base(flags.ConfigPath)
	v.AddConfigPath(filepath.Dir(flags.ConfigPath))
	v.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	v.SetConfigType("yaml")

	v.BindEnv("logger.level", "WEARSYNC_LOG_LEVEL")
	v.BindEnv("store.backend", "WEARSYNC_STORE_BACKEND")
	v.BindEnv("store.path", "WEARSYNC_STORE_PATH")
	v.BindEnv("connection.providerUrl", "WEARSYNC_PROVIDER_URL")
	v.BindEnv("connection.uploadUrl", "WEARSYNC_UPLOAD_URL")
	v.BindEnv("connection.timezone", "WEARSYNC_TIMEZONE")
	v.BindEnv("connection.accessToken", "WEARSYNC_ACCESS_TOKEN")

	err := v.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = v.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = "WearSync"
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}
