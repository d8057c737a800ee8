package application

import (
	"context"
	"fmt"
	"sync"

	"github.com/IniZio/skygear-sdk-go/internal/codec"
	"github.com/IniZio/skygear-sdk-go/internal/domain"
)

type DatabaseID string

const (
	PublicDatabaseID  DatabaseID = "_public"
	PrivateDatabaseID DatabaseID = "_private"
)

type cacheState int

const (
	cacheUninitialized cacheState = iota
	cacheInitialized
)

// DatabaseController owns the cacheResponse flag shared by the public and
// private databases. One lock guards the flag and both caches, so the two
// databases can never be observed disagreeing about it.
type DatabaseController struct {
	mu            sync.Mutex
	cacheResponse bool
	public        *Database
	private       *Database

	dispatcher    *Dispatcher
	authenticated func() bool
	metrics       *metrics
}

// Database is a record store view with optional memoization of fetched
// records, keyed by "type/id".
type Database struct {
	id    DatabaseID
	ctl   *DatabaseController
	state cacheState
	cache map[string]*domain.Record
}

type SchemaAccess struct {
	Type        string
	CreateRoles []domain.Role
}

type DefaultAccess struct {
	Type string
	ACL  *domain.ACL
}

func newDatabaseController(cacheResponse bool, dispatcher *Dispatcher, authenticated func() bool, m *metrics) *DatabaseController {
	return &DatabaseController{
		cacheResponse: cacheResponse,
		dispatcher:    dispatcher,
		authenticated: authenticated,
		metrics:       m,
	}
}

func (c *DatabaseController) CacheResponse() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cacheResponse
}

// SetCacheResponse never materializes a database. Changing the flag resets
// the caches of databases that already exist; setting the current value
// keeps them warm.
func (c *DatabaseController) SetCacheResponse(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cacheResponse == enabled {
		return
	}
	c.cacheResponse = enabled
	for _, db := range []*Database{c.public, c.private} {
		if db == nil {
			continue
		}
		db.resetLocked()
	}
}

func (c *DatabaseController) Public() *Database {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.public == nil {
		c.public = &Database{id: PublicDatabaseID, ctl: c}
	}
	return c.public
}

// Private needs an access token.
func (c *DatabaseController) Private() (*Database, error) {
	if !c.authenticated() {
		return nil, fmt.Errorf("private database: %w", ErrAuthenticationRequired)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.private == nil {
		c.private = &Database{id: PrivateDatabaseID, ctl: c}
	}
	return c.private, nil
}

// Materialized reports which databases have been touched so far.
func (c *DatabaseController) Materialized() (public bool, private bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.public != nil, c.private != nil
}

func (d *Database) ID() DatabaseID {
	return d.id
}

func (d *Database) CacheResponse() bool {
	return d.ctl.CacheResponse()
}

// CacheInitialized reports whether the cache store is currently allocated.
func (d *Database) CacheInitialized() bool {
	d.ctl.mu.Lock()
	defer d.ctl.mu.Unlock()
	return d.state == cacheInitialized
}

// Cached looks a record up without touching the network.
func (d *Database) Cached(recordType, id string) (*domain.Record, bool) {
	d.ctl.mu.Lock()
	defer d.ctl.mu.Unlock()

	if !d.ctl.cacheResponse || d.state != cacheInitialized {
		return nil, false
	}
	record, ok := d.cache[domain.RecordKey(recordType, id)]
	return record, ok
}

func (d *Database) Fetch(ctx context.Context, recordType, id string) (*domain.Record, error) {
	if record, ok := d.Cached(recordType, id); ok {
		d.ctl.metrics.cacheLookups.WithLabelValues(string(d.id), "hit").Inc()
		return record, nil
	}
	d.ctl.metrics.cacheLookups.WithLabelValues(string(d.id), "miss").Inc()

	result, err := d.ctl.dispatcher.MakeRequest(ctx, "record:fetch", map[string]any{
		"database_id": string(d.id),
		"ids":         []any{domain.RecordKey(recordType, id)},
	})
	if err != nil {
		return nil, fmt.Errorf("fetch record %s: %w", domain.RecordKey(recordType, id), err)
	}

	records, err := recordsFromResult(result)
	if err != nil {
		return nil, fmt.Errorf("fetch record %s: %w", domain.RecordKey(recordType, id), err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("fetch record %s: %w: empty result", domain.RecordKey(recordType, id), ErrMalformedResponse)
	}

	d.store(records...)
	return records[0], nil
}

func (d *Database) Save(ctx context.Context, records ...*domain.Record) ([]*domain.Record, error) {
	wire := make([]any, 0, len(records))
	for _, record := range records {
		encoded, err := codec.EncodeRecord(*record)
		if err != nil {
			return nil, fmt.Errorf("save records: %w", err)
		}
		wire = append(wire, encoded)
	}

	result, err := d.ctl.dispatcher.MakeRequest(ctx, "record:save", map[string]any{
		"database_id": string(d.id),
		"records":     wire,
	})
	if err != nil {
		return nil, fmt.Errorf("save records: %w", err)
	}

	saved, err := recordsFromResult(result)
	if err != nil {
		return nil, fmt.Errorf("save records: %w", err)
	}

	d.store(saved...)
	return saved, nil
}

func (d *Database) Delete(ctx context.Context, records ...*domain.Record) error {
	ids := make([]any, 0, len(records))
	for _, record := range records {
		ids = append(ids, record.Key())
	}

	if _, err := d.ctl.dispatcher.MakeRequest(ctx, "record:delete", map[string]any{
		"database_id": string(d.id),
		"ids":         ids,
	}); err != nil {
		return fmt.Errorf("delete records: %w", err)
	}

	d.ctl.mu.Lock()
	defer d.ctl.mu.Unlock()
	for _, record := range records {
		delete(d.cache, record.Key())
	}
	return nil
}

// SetRecordCreateAccess limits record creation for recordType to roles.
func (d *Database) SetRecordCreateAccess(ctx context.Context, recordType string, roles []domain.Role) (SchemaAccess, error) {
	result, err := d.ctl.dispatcher.MakeRequest(ctx, "schema:access", map[string]any{
		"type":         recordType,
		"create_roles": toAnySlice(domain.RoleNames(roles)),
	})
	if err != nil {
		return SchemaAccess{}, fmt.Errorf("set record create access: %w", err)
	}

	fields, ok := result.(map[string]any)
	if !ok {
		return SchemaAccess{}, fmt.Errorf("set record create access: %w: result is %T", ErrMalformedResponse, result)
	}
	createRoles, err := codec.RolesFromWire(fields["create_roles"])
	if err != nil {
		return SchemaAccess{}, fmt.Errorf("set record create access: %w", err)
	}

	access := SchemaAccess{CreateRoles: createRoles}
	access.Type, _ = fields["type"].(string)
	return access, nil
}

// SetRecordDefaultAccess sets the ACL new records of recordType start with.
func (d *Database) SetRecordDefaultAccess(ctx context.Context, recordType string, acl *domain.ACL) (DefaultAccess, error) {
	if acl == nil {
		acl = domain.NewACL()
	}

	result, err := d.ctl.dispatcher.MakeRequest(ctx, "schema:default_access", map[string]any{
		"type":           recordType,
		"default_access": codec.EncodeACL(*acl),
	})
	if err != nil {
		return DefaultAccess{}, fmt.Errorf("set record default access: %w", err)
	}

	fields, ok := result.(map[string]any)
	if !ok {
		return DefaultAccess{}, fmt.Errorf("set record default access: %w: result is %T", ErrMalformedResponse, result)
	}
	decoded, err := codec.DecodeACL(fields["default_access"])
	if err != nil {
		return DefaultAccess{}, fmt.Errorf("set record default access: %w", err)
	}

	access := DefaultAccess{ACL: decoded}
	access.Type, _ = fields["type"].(string)
	return access, nil
}

// store memoizes records, allocating the cache on first use.
func (d *Database) store(records ...*domain.Record) {
	d.ctl.mu.Lock()
	defer d.ctl.mu.Unlock()

	if !d.ctl.cacheResponse {
		return
	}
	if d.state == cacheUninitialized {
		d.cache = make(map[string]*domain.Record)
		d.state = cacheInitialized
	}
	for _, record := range records {
		if record.ID == "" {
			continue
		}
		d.cache[record.Key()] = record
	}
}

func (d *Database) resetLocked() {
	d.cache = nil
	d.state = cacheUninitialized
}

func recordsFromResult(result any) ([]*domain.Record, error) {
	items, ok := result.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected a record list, got %T", ErrMalformedResponse, result)
	}

	records := make([]*domain.Record, 0, len(items))
	for i, item := range items {
		switch typed := item.(type) {
		case *domain.Record:
			records = append(records, typed)
		case map[string]any:
			record, err := codec.DecodeRecord(typed)
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", i, err)
			}
			records = append(records, record)
		default:
			return nil, fmt.Errorf("%w: record %d is %T", ErrMalformedResponse, i, item)
		}
	}
	return records, nil
}

func toAnySlice(values []string) []any {
	out := make([]any, len(values))
	for i, value := range values {
		out[i] = value
	}
	return out
}
