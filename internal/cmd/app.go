// Package cmd implements the canteenctl command tree. The app type here is
// the composition root: every store is constructed once, wired explicitly,
// and shared by the subcommands.
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/canteenhq/canteen-go/api"
	"github.com/canteenhq/canteen-go/cart"
	"github.com/canteenhq/canteen-go/channel"
	"github.com/canteenhq/canteen-go/core"
	"github.com/canteenhq/canteen-go/menu"
	"github.com/canteenhq/canteen-go/order"
	"github.com/canteenhq/canteen-go/session"
	"github.com/canteenhq/canteen-go/telemetry"
)

type app struct {
	config  *core.Config
	logger  core.Logger
	storage core.Storage

	api     *api.Client
	session *session.Store
	cart    *cart.Store
	menu    *menu.Mirror
	orders  *order.Ledger

	shutdownTelemetry telemetry.ShutdownFunc
}

// appOptions carry the persistent flag overrides into construction.
type appOptions struct {
	configFile string
	baseURL    string
	logLevel   string
	storage    string
}

func newApp(ctx context.Context, opts appOptions, out io.Writer) (*app, error) {
	var cfgOpts []core.Option
	if opts.baseURL != "" {
		cfgOpts = append(cfgOpts, core.WithBaseURL(opts.baseURL))
	}
	if opts.logLevel != "" {
		cfgOpts = append(cfgOpts, core.WithLogLevel(opts.logLevel))
	}
	if opts.storage != "" {
		cfgOpts = append(cfgOpts, core.WithStorageProvider(opts.storage))
	}

	var cfg *core.Config
	var err error
	if opts.configFile != "" {
		cfg, err = core.LoadConfigFile(opts.configFile, cfgOpts...)
	} else {
		cfg, err = core.NewConfig(cfgOpts...)
	}
	if err != nil {
		return nil, err
	}

	logger := core.NewStdLogger(core.ParseLogLevel(cfg.Logging.Level))

	storage, err := core.OpenStorage(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("opening %s storage: %w", cfg.Storage.Provider, err)
	}

	a := &app{
		config:  cfg,
		logger:  logger,
		storage: storage,
	}

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.Init(ctx, telemetry.Config{
			Enabled:     true,
			ServiceName: cfg.Telemetry.ServiceName,
			Endpoint:    cfg.Telemetry.Endpoint,
			Insecure:    true,
		})
		if err != nil {
			return nil, fmt.Errorf("initializing telemetry: %w", err)
		}
		a.shutdownTelemetry = shutdown
	}

	apiOpts := []api.ClientOption{
		api.WithTimeout(cfg.HTTP.Timeout),
		api.WithLogger(logger),
	}
	if cfg.Telemetry.Enabled {
		apiOpts = append(apiOpts, api.WithTelemetry())
	}
	a.api = api.NewClient(cfg.BaseURL, apiOpts...)

	a.session = session.New(a.api, storage,
		session.WithLogger(logger),
		session.WithLogoutHook(func() {
			fmt.Fprintln(out, "Signed out.")
		}),
	)
	a.api.SetOnUnauthorized(a.session.HandleUnauthorized)
	a.api.SetTokenSource(a.session.TokenSource())
	a.session.Restore(ctx)

	a.cart = cart.New(storage, cart.WithLogger(logger))
	a.cart.Restore(ctx)

	a.menu = menu.NewMirror(a.api, menu.WithLogger(logger))
	a.orders = order.New(a.api, order.WithLogger(logger))

	return a, nil
}

func (a *app) close(ctx context.Context) {
	if a == nil {
		return
	}
	if a.shutdownTelemetry != nil {
		if err := a.shutdownTelemetry(ctx); err != nil {
			a.logger.Warn("Telemetry shutdown failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
	if closer, ok := a.storage.(io.Closer); ok {
		_ = closer.Close()
	}
}

// newChannel builds a live-channel client wired to the menu mirror.
func (a *app) newChannel(onDisconnect func()) *channel.Client {
	return channel.New(channel.Config{
		URL:               a.config.SocketURL,
		HandshakeTimeout:  a.config.Channel.HandshakeTimeout,
		ReconnectAttempts: a.config.Channel.ReconnectAttempts,
		ReconnectDelay:    a.config.Channel.ReconnectDelay,
		MaxReconnectDelay: a.config.Channel.MaxReconnectDelay,
	}, channel.WithLogger(a.logger), channel.WithOnDisconnect(onDisconnect))
}

// requireSession fails unless someone is signed in.
func (a *app) requireSession() error {
	if !a.session.IsAuthenticated() {
		return fmt.Errorf("not signed in; run 'canteenctl login' first")
	}
	return nil
}

// requireStaff fails unless an admin or staff identity is active.
func (a *app) requireStaff() error {
	if err := a.requireSession(); err != nil {
		return err
	}
	switch a.session.Role() {
	case core.RoleAdmin, core.RoleStaff:
		return nil
	default:
		return fmt.Errorf("this command needs an admin or staff account")
	}
}
