package main

import (
	"fmt"
	"log/slog"

	"github.com/datemate/taskpoll/internal/client"
	"github.com/datemate/taskpoll/internal/config"
	"github.com/datemate/taskpoll/internal/platform/logger"
	"github.com/datemate/taskpoll/internal/poller"
	"github.com/spf13/cobra"
)

// cliContext is built once per invocation by the root command's pre-run hook.
type cliContext struct {
	configPath string
	baseURL    string
	token      string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	cc := &cliContext{}

	root := &cobra.Command{
		Use:   "datemate",
		Short: "Request AI date recommendations from the datemate task backend",
		Long: `datemate submits itinerary and monthly report requests to the task
backend and polls each task until it completes or fails.

Configuration is read from config.yaml (or --config) and DATEMATE_*
environment variables; flags override both.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cc.load(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cc.configPath, "config", "", "config file (default is ./config.yaml)")
	flags.StringVar(&cc.baseURL, "base-url", "", "task backend URL (overrides client.base_url)")
	flags.StringVar(&cc.token, "token", "", "bearer token (overrides client.token)")
	flags.StringVar(&cc.logLevel, "log-level", "warn", "log level: debug, info, warn or error")

	root.AddCommand(
		newItineraryCmd(cc),
		newReportCmd(cc),
		newWatchCmd(cc),
		newStatusCmd(cc),
		newDeleteCmd(cc),
		newTokenCmd(cc),
	)
	return root
}

func (cc *cliContext) load(cmd *cobra.Command) error {
	cfg, err := config.LoadFile(cc.configPath)
	if err != nil {
		return err
	}
	if cc.baseURL != "" {
		cfg.Client.BaseURL = cc.baseURL
	}
	if cc.token != "" {
		cfg.Client.Token = cc.token
	}
	cc.cfg = cfg

	cc.logger, err = logger.Setup(logger.LoggerConfig{
		Level:  cc.logLevel,
		Output: cmd.ErrOrStderr(),
	})
	return err
}

func (cc *cliContext) client() (*client.Client, error) {
	c, err := client.New(cc.cfg.Client.BaseURL,
		client.WithToken(cc.cfg.Client.Token),
		client.WithTimeout(cc.cfg.Client.Timeout),
		client.WithLogger(cc.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL: %w", err)
	}
	return c, nil
}

func (cc *cliContext) poller(fetcher poller.Fetcher) *poller.Poller {
	pc := cc.cfg.Poller
	return poller.New(fetcher,
		poller.WithBackoff(poller.Backoff{Base: pc.BaseDelay, Step: pc.StepDelay, Max: pc.MaxDelay}),
		poller.WithMaxAttempts(pc.MaxAttempts),
		poller.WithRequestTimeout(pc.RequestTimeout),
		poller.WithLogger(cc.logger),
	)
}
