// Package config resolves CLI settings from ~/.skygear/config.toml and
// SKYGEAR_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/IniZio/skygear-sdk-go/internal/application"
	"github.com/spf13/viper"
)

const (
	KeyEndPoint       = "endpoint"
	KeyAPIKey         = "api_key"
	KeyCacheResponse  = "cache_response"
	KeyAutoPubsub     = "auto_pubsub"
	KeyRateLimit      = "rate_limit"
	KeyRateBurst      = "rate_burst"
	KeyRequestTimeout = "request_timeout"
	KeySessionPath    = "session.path"
	KeySecretsDir     = "secrets.dir"

	envPrefix  = "SKYGEAR"
	configDir  = ".skygear"
	configName = "config"
	configType = "toml"
)

var ErrInvalidConfig = errors.New("invalid config")

type Settings struct {
	EndPoint       string
	APIKey         string
	CacheResponse  bool
	AutoPubsub     bool
	RateLimit      float64
	RateBurst      int
	RequestTimeout time.Duration
	SessionPath    string
	SecretsDir     string
}

// Load reads settings into v. A missing config file is not an error; an
// explicit file set with v.SetConfigFile must exist.
func Load(v *viper.Viper) (Settings, error) {
	if v == nil {
		return Settings{}, fmt.Errorf("%w: viper instance is nil", ErrInvalidConfig)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return Settings{}, fmt.Errorf("resolve home directory: %w", err)
	}

	setDefaults(v, homeDir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if v.ConfigFileUsed() == "" {
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		v.AddConfigPath(filepath.Join(homeDir, configDir))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("read config file: %w", err)
		}
	}

	settings := Settings{
		EndPoint:       strings.TrimSpace(v.GetString(KeyEndPoint)),
		APIKey:         strings.TrimSpace(v.GetString(KeyAPIKey)),
		CacheResponse:  v.GetBool(KeyCacheResponse),
		AutoPubsub:     v.GetBool(KeyAutoPubsub),
		RateLimit:      v.GetFloat64(KeyRateLimit),
		RateBurst:      v.GetInt(KeyRateBurst),
		RequestTimeout: v.GetDuration(KeyRequestTimeout),
		SessionPath:    v.GetString(KeySessionPath),
		SecretsDir:     v.GetString(KeySecretsDir),
	}
	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}

	return settings, nil
}

func setDefaults(v *viper.Viper, homeDir string) {
	defaults := application.DefaultConfig()
	v.SetDefault(KeyEndPoint, defaults.EndPoint)
	v.SetDefault(KeyCacheResponse, defaults.CacheResponse)
	v.SetDefault(KeyAutoPubsub, defaults.AutoPubsub)
	v.SetDefault(KeyRateLimit, 0)
	v.SetDefault(KeyRateBurst, defaults.RateBurst)
	v.SetDefault(KeyRequestTimeout, application.RequestTimeout)
	v.SetDefault(KeySessionPath, filepath.Join(homeDir, configDir, "sessions.toml"))
	v.SetDefault(KeySecretsDir, filepath.Join(homeDir, configDir, "secrets"))
}

func (s Settings) Validate() error {
	parsed, err := url.Parse(s.EndPoint)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("%w: endpoint %q must be an http(s) URL", ErrInvalidConfig, s.EndPoint)
	}
	if s.RateLimit < 0 {
		return fmt.Errorf("%w: rate_limit must not be negative", ErrInvalidConfig)
	}
	if s.RequestTimeout < 0 {
		return fmt.Errorf("%w: request_timeout must not be negative", ErrInvalidConfig)
	}
	if strings.TrimSpace(s.SecretsDir) == "" {
		return fmt.Errorf("%w: secrets.dir is empty", ErrInvalidConfig)
	}

	return nil
}

// Application maps the settings onto a container config. Transport and
// persistence are left for the caller to wire.
func (s Settings) Application() application.Config {
	cfg := application.DefaultConfig()
	cfg.EndPoint = s.EndPoint
	cfg.APIKey = s.APIKey
	cfg.CacheResponse = s.CacheResponse
	cfg.AutoPubsub = s.AutoPubsub
	cfg.RateLimit = s.RateLimit
	cfg.RateBurst = s.RateBurst

	return cfg
}
