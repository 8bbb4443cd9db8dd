package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/omelentjeff/product-management-app/internal/apiclient"
	"github.com/omelentjeff/product-management-app/internal/config"
	"github.com/omelentjeff/product-management-app/internal/errs"
	"github.com/omelentjeff/product-management-app/internal/logging"
	"github.com/omelentjeff/product-management-app/internal/session"
)

// app carries the flags and the services built from them for one run.
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	configFile string
	apiURL     string
	logLevel   string

	cfg        *config.Config
	log        *zap.Logger
	api        *apiclient.Client
	sess       *session.Session
	closeStore func() error
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:               "pmcli",
		Short:             "pmcli manages the product catalogue",
		Long:              "pmcli lists, searches and edits catalogue products through the REST API.",
		Version:           fmt.Sprintf("%s (%s)", version, buildDate),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(*cobra.Command, []string) error { return a.setup() },
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	f := root.PersistentFlags()
	f.StringVarP(&a.configFile, "config", "c", "", "the config file to use (default "+config.DefaultPath()+")")
	f.StringVar(&a.apiURL, "api", "", "API base URL, overrides the config file")
	f.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		a.loginCmd(),
		a.registerCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.listCmd(),
		a.listAllCmd(),
		a.getCmd(),
		a.searchCmd(),
		a.suggestCmd(),
		a.createCmd(),
		a.updateCmd(),
		a.uploadImageCmd(),
		a.deleteCmd(),
		a.browseCmd(),
	)
	return root
}

// setup loads the configuration and restores the stored session.
func (a *app) setup() error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	if a.apiURL != "" {
		cfg.API.BaseURL = a.apiURL
	}
	level := cfg.Logging.Level
	if a.logLevel != "" {
		level = a.logLevel
	}
	log, err := logging.New(level, cfg.Logging.Development)
	if err != nil {
		return err
	}
	store, closeStore, err := cfg.TokenStore.OpenStore()
	if err != nil {
		return err
	}

	a.cfg, a.log, a.closeStore = cfg, log, closeStore
	a.api = apiclient.New(cfg.API.BaseURL, a.token,
		apiclient.WithTimeout(cfg.API.Timeout),
		apiclient.WithLogger(log.Named("http")))
	a.sess = session.New(a.api, store, log.Named("session"))
	a.sess.Restore()
	log.Debug("config loaded",
		zap.String("api", cfg.API.BaseURL),
		zap.String("token_store", string(cfg.TokenStore.Backend)))
	return nil
}

func (a *app) token() string {
	if a.sess == nil {
		return ""
	}
	return a.sess.Token()
}

func (a *app) close() error {
	if a.log != nil {
		_ = a.log.Sync()
	}
	if a.closeStore == nil {
		return nil
	}
	err := a.closeStore()
	a.closeStore = nil
	return err
}

// requireAdmin gates commands the server only allows for admins.
func (a *app) requireAdmin() error {
	if !a.sess.Current().Authenticated() {
		return fmt.Errorf("%w: login required", errs.ErrUnauthorized)
	}
	if !a.sess.IsAdmin() {
		return fmt.Errorf("%w: admin role required", errs.ErrUnauthorized)
	}
	return nil
}
