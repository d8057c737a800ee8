package toml

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/IniZio/skygear-sdk-go/internal/codec"
	"github.com/IniZio/skygear-sdk-go/internal/domain"
	"github.com/IniZio/skygear-sdk-go/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	configName         = "config"
	configType         = "toml"
	SessionsPathKey    = "session.path"
	sessionsFileMode   = 0o600
	sessionsDirMode    = 0o700
	sessionsConfigDir  = ".skygear"
	sessionsConfigFile = "sessions.toml"
	tempFilePattern    = ".sessions-*.toml.tmp"
)

// Repository keeps one session profile per endpoint in a TOML file.
type Repository struct {
	sessionsPath string
	mu           *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.SessionRepository = (*Repository)(nil)

func NewRepository(cfg *viper.Viper) (*Repository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	cfg.SetConfigName(configName)
	cfg.SetConfigType(configType)
	cfg.AddConfigPath(filepath.Join(homeDir, sessionsConfigDir))
	cfg.SetDefault(SessionsPathKey, filepath.Join(homeDir, sessionsConfigDir, sessionsConfigFile))

	err = cfg.ReadInConfig()
	if err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	sessionsPath := cfg.GetString(SessionsPathKey)
	if sessionsPath == "" {
		return nil, errors.New("sessions path is empty")
	}
	sessionsPath, err = normalizeSessionsPath(sessionsPath)
	if err != nil {
		return nil, err
	}

	return &Repository{sessionsPath: sessionsPath, mu: lockForPath(sessionsPath)}, nil
}

// Path is the file the repository reads and writes.
func (r *Repository) Path() string {
	return r.sessionsPath
}

func (r *Repository) Save(ctx context.Context, profile domain.SessionProfile) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	encoded, err := toSchema(profile)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}

	updated := false
	for i := range file.Sessions {
		if file.Sessions[i].Endpoint == encoded.Endpoint {
			file.Sessions[i] = encoded
			updated = true
			break
		}
	}
	if !updated {
		file.Sessions = append(file.Sessions, encoded)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return r.writeSchema(file)
}

func (r *Repository) Load(ctx context.Context, endpoint string) (domain.SessionProfile, error) {
	if err := ctx.Err(); err != nil {
		return domain.SessionProfile{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return domain.SessionProfile{}, err
	}

	for _, entry := range file.Sessions {
		if entry.Endpoint == endpoint {
			return fromSchema(entry)
		}
	}

	return domain.SessionProfile{}, domain.ErrSessionNotFound
}

// List returns every stored profile in file order.
func (r *Repository) List(ctx context.Context) ([]domain.SessionProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return nil, err
	}

	profiles := make([]domain.SessionProfile, 0, len(file.Sessions))
	for _, entry := range file.Sessions {
		profile, err := fromSchema(entry)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}

	return profiles, nil
}

// Clear is a no-op for endpoints without a stored profile.
func (r *Repository) Clear(ctx context.Context, endpoint string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}

	kept := file.Sessions[:0]
	for _, entry := range file.Sessions {
		if entry.Endpoint != endpoint {
			kept = append(kept, entry)
		}
	}
	if len(kept) == len(file.Sessions) {
		return nil
	}
	file.Sessions = kept

	return r.writeSchema(file)
}

func (r *Repository) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(r.sessionsPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			file := fileSchema{}
			file.applyDefaults()
			return file, nil
		}
		return fileSchema{}, fmt.Errorf("read sessions file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode sessions file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func normalizeSessionsPath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve sessions path: %w", err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

func (r *Repository) writeSchema(file fileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(r.sessionsPath), sessionsDirMode); err != nil {
		return fmt.Errorf("create sessions directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode sessions file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(r.sessionsPath), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp sessions file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp sessions file: %w", err)
	}

	if err := tempFile.Chmod(sessionsFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp sessions file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp sessions file: %w", err)
	}

	if err := os.Rename(tempName, r.sessionsPath); err != nil {
		return fmt.Errorf("replace sessions file: %w", err)
	}

	cleanup = false

	if err := os.Chmod(r.sessionsPath, sessionsFileMode); err != nil {
		return fmt.Errorf("chmod sessions file: %w", err)
	}

	return nil
}

func toSchema(profile domain.SessionProfile) (sessionSchema, error) {
	entry := sessionSchema{
		Endpoint: profile.Endpoint,
		TokenRef: profile.TokenRef,
		SavedAt:  formatTime(profile.SavedAt),
	}
	if profile.User == nil {
		return entry, nil
	}

	record, err := codec.EncodeRecord(*profile.User)
	if err != nil {
		return sessionSchema{}, fmt.Errorf("encode session user: %w", err)
	}
	data, err := json.Marshal(record)
	if err != nil {
		return sessionSchema{}, fmt.Errorf("encode session user: %w", err)
	}
	entry.User = &userSchema{ID: profile.User.ID, Record: string(data)}

	return entry, nil
}

func fromSchema(entry sessionSchema) (domain.SessionProfile, error) {
	profile := domain.SessionProfile{
		Endpoint: entry.Endpoint,
		TokenRef: entry.TokenRef,
		SavedAt:  parseTime(entry.SavedAt),
	}
	if entry.User == nil {
		return profile, nil
	}

	if entry.User.Record == "" {
		profile.User = domain.NewUser(entry.User.ID)
		return profile, nil
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(entry.User.Record), &raw); err != nil {
		return domain.SessionProfile{}, fmt.Errorf("decode session user for %s: %w", entry.Endpoint, err)
	}
	user, err := codec.DecodeRecord(raw)
	if err != nil {
		return domain.SessionProfile{}, fmt.Errorf("decode session user for %s: %w", entry.Endpoint, err)
	}
	profile.User = user

	return profile, nil
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}

	return parsed
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}

	return value.UTC().Format(time.RFC3339)
}
