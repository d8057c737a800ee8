package application

import (
	"time"

	"github.com/IniZio/skygear-sdk-go/internal/domain"
)

// Status is a point-in-time snapshot of the container for display.
type Status struct {
	EndPoint      string
	APIKeySet     bool
	Authenticated bool
	User          *domain.Record
	// TokenExpiresAt is zero when the token carries no readable expiry.
	TokenExpiresAt time.Time
	CacheResponse  bool
	AutoPubsub     bool
}

func (c *Container) Status() Status {
	state := c.session.State()
	status := Status{
		EndPoint:      c.EndPoint(),
		APIKeySet:     c.APIKey() != "",
		Authenticated: state.AccessToken != "",
		User:          state.User,
		CacheResponse: c.db.CacheResponse(),
		AutoPubsub:    c.pubsub.AutoPubsub(),
	}
	if expiresAt, ok := c.session.TokenExpiry(); ok {
		status.TokenExpiresAt = expiresAt
	}
	return status
}
