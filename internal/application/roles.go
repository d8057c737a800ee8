package application

import (
	"context"
	"fmt"

	"github.com/IniZio/skygear-sdk-go/internal/codec"
	"github.com/IniZio/skygear-sdk-go/internal/domain"
)

// SetAdminRole replaces the set of roles with admin rights and returns the
// role names the server now reports.
func (c *Container) SetAdminRole(ctx context.Context, roles []domain.Role) ([]string, error) {
	return c.setRoles(ctx, "role:admin", roles)
}

// SetDefaultRole replaces the roles new users receive.
func (c *Container) SetDefaultRole(ctx context.Context, roles []domain.Role) ([]string, error) {
	return c.setRoles(ctx, "role:default", roles)
}

// FetchUserRole accepts users as *domain.Record, domain.Record or an id
// string. Every requested user is present in the result, with an empty
// slice when the server reports no roles.
func (c *Container) FetchUserRole(ctx context.Context, users ...any) (map[string][]domain.Role, error) {
	ids, err := userIDs(users)
	if err != nil {
		return nil, fmt.Errorf("fetch user role: %w", err)
	}

	result, err := c.dispatcher.MakeRequest(ctx, "role:get", map[string]any{
		"users": toAnySlice(ids),
	})
	if err != nil {
		return nil, fmt.Errorf("fetch user role: %w", err)
	}

	var byUser map[string]any
	switch typed := result.(type) {
	case map[string]any:
		byUser = typed
	case nil:
		byUser = map[string]any{}
	default:
		return nil, fmt.Errorf("fetch user role: %w: result is %T", ErrMalformedResponse, result)
	}

	roles := make(map[string][]domain.Role, len(ids))
	for _, id := range ids {
		roles[id] = []domain.Role{}
	}
	for id, raw := range byUser {
		userRoles, err := codec.RolesFromWire(raw)
		if err != nil {
			return nil, fmt.Errorf("fetch user role %s: %w", id, err)
		}
		roles[id] = userRoles
	}

	return roles, nil
}

func (c *Container) AssignUserRole(ctx context.Context, users []any, roles []domain.Role) error {
	return c.changeUserRoles(ctx, "role:assign", users, roles)
}

func (c *Container) RevokeUserRole(ctx context.Context, users []any, roles []domain.Role) error {
	return c.changeUserRoles(ctx, "role:revoke", users, roles)
}

func (c *Container) setRoles(ctx context.Context, action string, roles []domain.Role) ([]string, error) {
	result, err := c.dispatcher.MakeRequest(ctx, action, map[string]any{
		"roles": toAnySlice(domain.RoleNames(roles)),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
	}

	names, err := codec.NamesFromWire(result)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
	}
	return names, nil
}

func (c *Container) changeUserRoles(ctx context.Context, action string, users []any, roles []domain.Role) error {
	ids, err := userIDs(users)
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}

	if _, err := c.dispatcher.MakeRequest(ctx, action, map[string]any{
		"users": toAnySlice(ids),
		"roles": toAnySlice(domain.RoleNames(roles)),
	}); err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	return nil
}

func userIDs(users []any) ([]string, error) {
	ids := make([]string, 0, len(users))
	for i, user := range users {
		switch typed := user.(type) {
		case string:
			ids = append(ids, typed)
		case *domain.Record:
			if typed == nil {
				return nil, fmt.Errorf("user %d is nil", i)
			}
			ids = append(ids, typed.ID)
		case domain.Record:
			ids = append(ids, typed.ID)
		default:
			return nil, fmt.Errorf("user %d: unsupported type %T", i, user)
		}
	}
	return ids, nil
}
