package application

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/IniZio/skygear-sdk-go/internal/domain"
	"github.com/IniZio/skygear-sdk-go/internal/logging"
	"github.com/IniZio/skygear-sdk-go/internal/ports"
)

var errNilTransport = errors.New("transport is required")

// Container composes the session, the dispatcher and the two cached
// databases behind one facade. Build one per backend with New.
type Container struct {
	mu       sync.RWMutex
	endPoint string
	apiKey   string

	session     *Session
	dispatcher  *Dispatcher
	db          *DatabaseController
	pubsub      ports.Pubsub
	persistence *SessionPersistence
	log         logging.Logger
}

func New(cfg Config) (*Container, error) {
	if cfg.Transport == nil {
		return nil, errNilTransport
	}
	cfg = cfg.withDefaults()

	m, err := newMetrics(cfg.Metrics)
	if err != nil {
		return nil, err
	}

	c := &Container{
		endPoint:    normalizeEndPoint(cfg.EndPoint),
		apiKey:      cfg.APIKey,
		pubsub:      cfg.Pubsub,
		persistence: cfg.Persistence,
		log:         cfg.Logger,
	}
	c.session = newSession(cfg.Logger, cfg.Persistence, c.EndPoint)
	c.dispatcher = newDispatcher(cfg, c.credential, c.EndPoint, c.session, m)
	c.db = newDatabaseController(cfg.CacheResponse, c.dispatcher, func() bool {
		return c.session.AccessToken() != ""
	}, m)

	return c, nil
}

func (c *Container) EndPoint() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.endPoint
}

// SetEndPoint appends the trailing slash when it is missing.
func (c *Container) SetEndPoint(endPoint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endPoint = normalizeEndPoint(endPoint)
}

func (c *Container) APIKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiKey
}

// ConfigAPIKey leaves the access token alone.
func (c *Container) ConfigAPIKey(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apiKey = key
}

func (c *Container) Session() *Session                 { return c.session }
func (c *Container) Dispatcher() *Dispatcher           { return c.dispatcher }
func (c *Container) DB() *DatabaseController           { return c.db }
func (c *Container) Pubsub() ports.Pubsub              { return c.pubsub }
func (c *Container) PublicDB() *Database               { return c.db.Public() }
func (c *Container) PrivateDB() (*Database, error)     { return c.db.Private() }
func (c *Container) CurrentUser() *domain.Record       { return c.session.CurrentUser() }
func (c *Container) AccessToken() string               { return c.session.AccessToken() }
func (c *Container) OnUserChanged(fn UserChangedFunc) *Subscription {
	return c.session.OnUserChanged(fn)
}

func (c *Container) MakeRequest(ctx context.Context, action string, params map[string]any) (any, error) {
	return c.dispatcher.MakeRequest(ctx, action, params)
}

// Lambda calls a named cloud function. args may be nil (no arguments), a
// slice (positional) or a map with string keys (keyword). Either form is
// sent under "args".
func (c *Container) Lambda(ctx context.Context, name string, args any) (any, error) {
	params, err := lambdaParams(args)
	if err != nil {
		return nil, fmt.Errorf("lambda %s: %w", name, err)
	}
	return c.dispatcher.MakeRequest(ctx, name, params)
}

// RestoreSession loads the persisted session for the current endpoint.
// Having nothing saved is not an error.
func (c *Container) RestoreSession(ctx context.Context) error {
	if c.persistence == nil {
		return nil
	}

	state, err := c.persistence.Load(ctx, c.EndPoint())
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil
		}
		return fmt.Errorf("restore session: %w", err)
	}

	c.session.restore(state)
	return nil
}

func (c *Container) credential() domain.Credential {
	return domain.Credential{
		APIKey:      c.APIKey(),
		AccessToken: c.session.AccessToken(),
	}
}

func normalizeEndPoint(endPoint string) string {
	if strings.HasSuffix(endPoint, "/") {
		return endPoint
	}
	return endPoint + "/"
}

func lambdaParams(args any) (map[string]any, error) {
	switch typed := args.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		keyword := make(map[string]any, len(typed))
		for key, value := range typed {
			keyword[key] = value
		}
		return map[string]any{"args": keyword}, nil
	case []any:
		return map[string]any{"args": typed}, nil
	}

	value := reflect.ValueOf(args)
	switch value.Kind() {
	case reflect.Slice, reflect.Array:
		positional := make([]any, value.Len())
		for i := range positional {
			positional[i] = value.Index(i).Interface()
		}
		return map[string]any{"args": positional}, nil
	case reflect.Map:
		if value.Type().Key().Kind() != reflect.String {
			return nil, ErrInvalidLambdaArgs
		}
		keyword := make(map[string]any, value.Len())
		iter := value.MapRange()
		for iter.Next() {
			keyword[iter.Key().String()] = iter.Value().Interface()
		}
		return map[string]any{"args": keyword}, nil
	default:
		return nil, ErrInvalidLambdaArgs
	}
}
