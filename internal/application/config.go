package application

import (
	"time"

	"github.com/IniZio/skygear-sdk-go/internal/logging"
	"github.com/IniZio/skygear-sdk-go/internal/ports"
	"github.com/prometheus/client_golang/prometheus"
)

const DefaultEndPoint = "http://skygear.dev/"

// Config is everything New needs. Start from DefaultConfig.
type Config struct {
	EndPoint      string
	APIKey        string
	CacheResponse bool
	AutoPubsub    bool

	// RateLimit caps outbound requests per second; zero disables it.
	RateLimit float64
	RateBurst int

	Transport ports.Transport
	Pubsub    ports.Pubsub
	// Persistence is optional; without it sessions live in memory only.
	Persistence *SessionPersistence
	Logger      logging.Logger
	// Metrics defaults to a private registry.
	Metrics prometheus.Registerer
	Clock   ports.Clock
}

func DefaultConfig() Config {
	return Config{
		EndPoint:      DefaultEndPoint,
		CacheResponse: true,
		AutoPubsub:    true,
		RateBurst:     1,
	}
}

func (c Config) withDefaults() Config {
	if c.EndPoint == "" {
		c.EndPoint = DefaultEndPoint
	}
	if c.Logger == nil {
		c.Logger = logging.Discard()
	}
	if c.Metrics == nil {
		c.Metrics = prometheus.NewRegistry()
	}
	if c.Clock == nil {
		c.Clock = ports.SystemClock{}
	}
	if c.Pubsub == nil {
		c.Pubsub = newFlagPubsub(c.AutoPubsub)
	}
	if c.RateBurst <= 0 {
		c.RateBurst = 1
	}
	return c
}

// RequestTimeout is applied by transports that do not get a deadline from
// the caller.
const RequestTimeout = 30 * time.Second
