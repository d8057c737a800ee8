package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/IniZio/skygear-sdk-go/internal/codec"
	"github.com/IniZio/skygear-sdk-go/internal/domain"
)

func (c *Container) Signup(ctx context.Context, username, password string) (*domain.Record, error) {
	return c.authenticate(ctx, "auth:signup", username, password)
}

func (c *Container) Login(ctx context.Context, username, password string) (*domain.Record, error) {
	return c.authenticate(ctx, "auth:login", username, password)
}

// Logout clears the local session even when the server call fails; the
// server error is still returned.
func (c *Container) Logout(ctx context.Context) error {
	_, callErr := c.dispatcher.MakeRequest(ctx, "auth:logout", map[string]any{})

	c.session.Invalidate(ctx)

	if callErr != nil {
		return fmt.Errorf("logout: %w", callErr)
	}
	return nil
}

// WhoAmI refreshes the current user from the server.
func (c *Container) WhoAmI(ctx context.Context) (*domain.Record, error) {
	if c.session.AccessToken() == "" {
		return nil, fmt.Errorf("whoami: %w", ErrAuthenticationRequired)
	}

	result, err := c.dispatcher.MakeRequest(ctx, "me", map[string]any{})
	if err != nil {
		return nil, fmt.Errorf("whoami: %w", err)
	}

	user, err := c.handleAuthResult(ctx, result)
	if err != nil {
		return nil, fmt.Errorf("whoami: %w", err)
	}
	return user, nil
}

func (c *Container) authenticate(ctx context.Context, action, username, password string) (*domain.Record, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("%s: %w", action, errors.New("username and password are required"))
	}

	result, err := c.dispatcher.MakeRequest(ctx, action, map[string]any{
		"username": username,
		"password": password,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
	}

	user, err := c.handleAuthResult(ctx, result)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
	}
	c.log.Info(ctx, "authenticated", "action", action, "user", user.ID)
	return user, nil
}

// handleAuthResult installs the token before the user so listeners that
// issue requests see an authenticated container.
func (c *Container) handleAuthResult(ctx context.Context, result any) (*domain.Record, error) {
	fields, ok := result.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: auth result is %T", ErrMalformedResponse, result)
	}

	user, err := userFromAuthResult(fields)
	if err != nil {
		return nil, err
	}

	if token, ok := fields["access_token"].(string); ok && token != "" {
		c.session.SetAccessToken(ctx, token)
	}
	c.session.SetUser(ctx, user)

	return user, nil
}

func userFromAuthResult(fields map[string]any) (*domain.Record, error) {
	switch profile := fields["profile"].(type) {
	case *domain.Record:
		return profile, nil
	case map[string]any:
		user, err := codec.DecodeRecord(profile)
		if err != nil {
			return nil, fmt.Errorf("auth profile: %w", err)
		}
		return user, nil
	}

	userID, ok := fields["user_id"].(string)
	if !ok || userID == "" {
		return nil, fmt.Errorf("%w: auth result without user_id or profile", ErrMalformedResponse)
	}
	return domain.NewUser(userID), nil
}
