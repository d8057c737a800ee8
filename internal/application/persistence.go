package application

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/IniZio/skygear-sdk-go/internal/domain"
	"github.com/IniZio/skygear-sdk-go/internal/ports"
)

const tokenSecretPrefix = "skygear"

// SessionPersistence writes sessions through to a profile repository and
// keeps the access token in a secret store.
type SessionPersistence struct {
	profiles ports.SessionRepository
	secrets  ports.SecretStore
	clock    ports.Clock
}

func NewSessionPersistence(profiles ports.SessionRepository, secrets ports.SecretStore, clock ports.Clock) *SessionPersistence {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &SessionPersistence{profiles: profiles, secrets: secrets, clock: clock}
}

// TokenSecretKey is the secret-store key of the token for endpoint.
func TokenSecretKey(endpoint string) string {
	host := "default"
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Host != "" {
		host = strings.NewReplacer(":", "_", "/", "_").Replace(parsed.Host)
	}
	return tokenSecretPrefix + "/" + host + "/access_token"
}

// Save stores the token first and the profile second. A failed profile
// write removes the token it just stored.
func (p *SessionPersistence) Save(ctx context.Context, state domain.SessionState) error {
	tokenRef := TokenSecretKey(state.Endpoint)

	if state.AccessToken == "" {
		if err := p.secrets.Delete(ctx, tokenRef); err != nil {
			return fmt.Errorf("delete session token: %w", err)
		}
		tokenRef = ""
	} else if err := p.secrets.Put(ctx, tokenRef, state.AccessToken); err != nil {
		return fmt.Errorf("store session token: %w", err)
	}

	profile := domain.SessionProfile{
		Endpoint: state.Endpoint,
		TokenRef: tokenRef,
		User:     state.User,
		SavedAt:  p.clock.Now(),
	}
	if err := p.profiles.Save(ctx, profile); err != nil {
		if tokenRef == "" {
			return fmt.Errorf("save session profile: %w", err)
		}
		if rollbackErr := p.secrets.Delete(ctx, tokenRef); rollbackErr != nil {
			return fmt.Errorf("save session profile and rollback stored token: %w", errors.Join(err, rollbackErr))
		}
		return fmt.Errorf("save session profile: %w", err)
	}

	return nil
}

// Load returns domain.ErrSessionNotFound when nothing was saved for endpoint.
// A profile whose token went missing loads without a token.
func (p *SessionPersistence) Load(ctx context.Context, endpoint string) (domain.SessionState, error) {
	profile, err := p.profiles.Load(ctx, endpoint)
	if err != nil {
		return domain.SessionState{}, fmt.Errorf("load session profile: %w", err)
	}

	state := domain.SessionState{Endpoint: profile.Endpoint, User: profile.User}
	if profile.TokenRef == "" {
		return state, nil
	}

	token, err := p.secrets.Get(ctx, profile.TokenRef)
	if err != nil {
		if errors.Is(err, domain.ErrSecretNotFound) {
			return state, nil
		}
		return domain.SessionState{}, fmt.Errorf("load session token: %w", err)
	}
	state.AccessToken = token

	return state, nil
}

func (p *SessionPersistence) Clear(ctx context.Context, endpoint string) error {
	var errs []error
	if err := p.secrets.Delete(ctx, TokenSecretKey(endpoint)); err != nil {
		errs = append(errs, fmt.Errorf("delete session token: %w", err))
	}
	if err := p.profiles.Clear(ctx, endpoint); err != nil {
		errs = append(errs, fmt.Errorf("clear session profile: %w", err))
	}
	return errors.Join(errs...)
}
