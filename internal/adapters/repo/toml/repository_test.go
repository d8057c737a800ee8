package toml

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/IniZio/skygear-sdk-go/internal/domain"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T, sessionsPath string) *Repository {
	t.Helper()

	config := viper.New()
	config.Set(SessionsPathKey, sessionsPath)
	repo, err := NewRepository(config)
	require.NoError(t, err)
	return repo
}

func sampleUser() *domain.Record {
	user := domain.NewUser("user:id1")
	user.Set("username", "rick")
	user.Set("home", domain.NewGeolocation(22.3, 114.2))
	user.Set("roles", []any{domain.DefineRole("Admin")})
	acl := domain.NewACL()
	acl.SetPublicReadOnly()
	user.ACL = acl
	return user
}

func TestRepositoryRoundTrip(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t, filepath.Join(t.TempDir(), "sessions.toml"))

	savedAt := time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC)
	first := domain.SessionProfile{
		Endpoint: "http://skygear.dev/",
		TokenRef: "skygear/skygear.dev/access_token",
		User:     sampleUser(),
		SavedAt:  savedAt,
	}
	second := domain.SessionProfile{
		Endpoint: "http://localhost:3000/",
		SavedAt:  savedAt,
	}

	require.NoError(t, repo.Save(context.Background(), first))
	require.NoError(t, repo.Save(context.Background(), second))

	got, err := repo.Load(context.Background(), first.Endpoint)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	profiles, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.SessionProfile{first, second}, profiles)
}

func TestRepositorySaveReplacesProfileForSameEndpoint(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t, filepath.Join(t.TempDir(), "sessions.toml"))
	endpoint := "http://skygear.dev/"

	require.NoError(t, repo.Save(context.Background(), domain.SessionProfile{Endpoint: endpoint, User: domain.NewUser("a")}))
	require.NoError(t, repo.Save(context.Background(), domain.SessionProfile{Endpoint: endpoint, User: domain.NewUser("b")}))

	profiles, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "b", profiles[0].User.ID)
}

func TestRepositoryClearRemovesOnlyThatEndpoint(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t, filepath.Join(t.TempDir(), "sessions.toml"))
	require.NoError(t, repo.Save(context.Background(), domain.SessionProfile{Endpoint: "http://a/"}))
	require.NoError(t, repo.Save(context.Background(), domain.SessionProfile{Endpoint: "http://b/"}))

	require.NoError(t, repo.Clear(context.Background(), "http://a/"))
	require.NoError(t, repo.Clear(context.Background(), "http://missing/"))

	_, err := repo.Load(context.Background(), "http://a/")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = repo.Load(context.Background(), "http://b/")
	require.NoError(t, err)
}

func TestRepositoryUserWithoutRecordFallsBackToID(t *testing.T) {
	t.Parallel()

	sessionsPath := filepath.Join(t.TempDir(), "sessions.toml")
	require.NoError(t, os.WriteFile(sessionsPath, []byte(strings.Join([]string{
		"version = 1",
		"",
		"[[sessions]]",
		"endpoint = \"http://skygear.dev/\"",
		"",
		"[sessions.user]",
		"id = \"user:id1\"",
		"",
	}, "\n")), 0o600))

	repo := newTestRepository(t, sessionsPath)

	profile, err := repo.Load(context.Background(), "http://skygear.dev/")
	require.NoError(t, err)
	assert.Equal(t, domain.NewUser("user:id1"), profile.User)
	assert.True(t, profile.SavedAt.IsZero())
}

func TestRepositorySaveCreatesDefaultPathAndEnforcesPermissions(t *testing.T) {
	homeDir := t.TempDir()
	t.Setenv("HOME", homeDir)

	repo, err := NewRepository(viper.New())
	require.NoError(t, err)

	require.NoError(t, repo.Save(context.Background(), domain.SessionProfile{Endpoint: "http://skygear.dev/"}))

	sessionsPath := filepath.Join(homeDir, ".skygear", "sessions.toml")
	assert.Equal(t, sessionsPath, repo.Path())
	info, err := os.Stat(sessionsPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestRepositoryMissingFileBehaviors(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t, filepath.Join(t.TempDir(), "missing", "sessions.toml"))

	profiles, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, profiles)

	_, err = repo.Load(context.Background(), "http://skygear.dev/")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)

	require.NoError(t, repo.Clear(context.Background(), "http://skygear.dev/"))
}

func TestRepositoryMalformedTOMLReturnsError(t *testing.T) {
	t.Parallel()

	sessionsPath := filepath.Join(t.TempDir(), "sessions.toml")
	require.NoError(t, os.WriteFile(sessionsPath, []byte("sessions = ["), 0o600))

	repo := newTestRepository(t, sessionsPath)

	_, err := repo.List(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "decode sessions file")
}

func TestRepositoryMalformedUserRecordReturnsError(t *testing.T) {
	t.Parallel()

	sessionsPath := filepath.Join(t.TempDir(), "sessions.toml")
	require.NoError(t, os.WriteFile(sessionsPath, []byte(strings.Join([]string{
		"version = 1",
		"",
		"[[sessions]]",
		"endpoint = \"http://skygear.dev/\"",
		"",
		"[sessions.user]",
		"id = \"user:id1\"",
		"record = '{\"_recordID\":\"user:id1\"}'",
		"",
	}, "\n")), 0o600))

	repo := newTestRepository(t, sessionsPath)

	_, err := repo.Load(context.Background(), "http://skygear.dev/")
	require.Error(t, err)
	assert.ErrorContains(t, err, "decode session user")
}

func TestRepositorySaveCanceledContextReturnsContextError(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t, filepath.Join(t.TempDir(), "sessions.toml"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := repo.Save(ctx, domain.SessionProfile{Endpoint: "http://skygear.dev/"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRepositoryConcurrentSavesAcrossInstancesPreserveAllProfiles(t *testing.T) {
	t.Parallel()

	sessionsPath := filepath.Join(t.TempDir(), "sessions.toml")
	repoA := newTestRepository(t, sessionsPath)
	repoB := newTestRepository(t, sessionsPath)

	const perRepoWrites = 50
	start := make(chan struct{})
	errCh := make(chan error, perRepoWrites*2)
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		<-start
		for i := 0; i < perRepoWrites; i++ {
			errCh <- repoA.Save(context.Background(), domain.SessionProfile{Endpoint: "http://a-" + strconv.Itoa(i) + "/"})
		}
	}()

	go func() {
		defer wg.Done()
		<-start
		for i := 0; i < perRepoWrites; i++ {
			errCh <- repoB.Save(context.Background(), domain.SessionProfile{Endpoint: "http://b-" + strconv.Itoa(i) + "/"})
		}
	}()

	close(start)
	wg.Wait()
	close(errCh)

	for err := range errCh {
		require.NoError(t, err)
	}

	profiles, err := repoA.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, profiles, perRepoWrites*2)
}

func TestRepositorySaveSerializedTOMLIncludesVersion(t *testing.T) {
	t.Parallel()

	sessionsPath := filepath.Join(t.TempDir(), "sessions.toml")
	repo := newTestRepository(t, sessionsPath)

	require.NoError(t, repo.Save(context.Background(), domain.SessionProfile{Endpoint: "http://skygear.dev/"}))

	data, err := os.ReadFile(sessionsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "version = 1")
	assert.Contains(t, string(data), "[[sessions]]")
}

func TestRepositoryFutureSchemaVersionReturnsError(t *testing.T) {
	t.Parallel()

	sessionsPath := filepath.Join(t.TempDir(), "sessions.toml")
	require.NoError(t, os.WriteFile(sessionsPath, []byte(strings.Join([]string{
		"version = 999",
		"",
		"sessions = []",
		"",
	}, "\n")), 0o600))

	repo := newTestRepository(t, sessionsPath)

	_, err := repo.List(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "unsupported sessions schema version")
}
