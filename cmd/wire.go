package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	statusadapter "github.com/IniZio/skygear-sdk-go/internal/adapters/render/status"
	tomlrepo "github.com/IniZio/skygear-sdk-go/internal/adapters/repo/toml"
	chainstore "github.com/IniZio/skygear-sdk-go/internal/adapters/secrets/chain"
	"github.com/IniZio/skygear-sdk-go/internal/adapters/transport/httpclient"
	"github.com/IniZio/skygear-sdk-go/internal/application"
	"github.com/IniZio/skygear-sdk-go/internal/config"
	"github.com/IniZio/skygear-sdk-go/internal/domain"
	"github.com/IniZio/skygear-sdk-go/internal/logging"
	"github.com/IniZio/skygear-sdk-go/internal/ports"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var errNotWired = errors.New("container is not wired")

type globalOptions struct {
	configFile string
	endpoint   string
	apiKey     string
	verbose    bool
}

type app struct {
	container      *application.Container
	statusRenderer func(application.Status, statusadapter.RenderOptions) (string, error)
	rolesRenderer  func(map[string][]domain.Role) (string, error)
	now            func() time.Time
}

func (a *app) wire(cmd *cobra.Command, opts *globalOptions) error {
	v := viper.New()
	if opts.configFile != "" {
		v.SetConfigFile(opts.configFile)
	}
	flags := cmd.Root().PersistentFlags()
	if err := v.BindPFlag(config.KeyEndPoint, flags.Lookup("endpoint")); err != nil {
		return fmt.Errorf("bind endpoint flag: %w", err)
	}
	if err := v.BindPFlag(config.KeyAPIKey, flags.Lookup("api-key")); err != nil {
		return fmt.Errorf("bind api key flag: %w", err)
	}

	settings, err := config.Load(v)
	if err != nil {
		return err
	}

	repo, err := tomlrepo.NewRepository(v)
	if err != nil {
		return fmt.Errorf("wire session repository: %w", err)
	}

	secretStore, err := chainstore.NewPassFirstWithFileFallback(settings.SecretsDir)
	if err != nil {
		return fmt.Errorf("wire secret store chain: %w", err)
	}

	logger := logging.Discard()
	if opts.verbose {
		logger = logging.NewTextLogger(cmd.ErrOrStderr(), slog.LevelDebug)
	}

	cfg := settings.Application()
	cfg.Transport = httpclient.Transport{RequestTimeout: settings.RequestTimeout}
	cfg.Persistence = application.NewSessionPersistence(repo, secretStore, ports.SystemClock{})
	cfg.Logger = logger

	container, err := application.New(cfg)
	if err != nil {
		return fmt.Errorf("create container: %w", err)
	}
	if err := container.RestoreSession(cmd.Context()); err != nil {
		return fmt.Errorf("restore session: %w", err)
	}

	a.container = container
	a.statusRenderer = statusadapter.Render
	a.rolesRenderer = statusadapter.RenderRoles
	a.now = time.Now
	return nil
}

func (a *app) requireContainer() (*application.Container, error) {
	if a.container == nil {
		return nil, errNotWired
	}
	return a.container, nil
}
