package ports

import (
	"context"

	"github.com/IniZio/skygear-sdk-go/internal/domain"
)

// SessionRepository stores one session profile per endpoint.
type SessionRepository interface {
	Load(ctx context.Context, endpoint string) (domain.SessionProfile, error)
	Save(ctx context.Context, profile domain.SessionProfile) error
	Clear(ctx context.Context, endpoint string) error
}
