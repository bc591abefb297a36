// Package cli implements the finedge command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Najib-Murshed-UWO/FinEdge/common/logging"
	"github.com/Najib-Murshed-UWO/FinEdge/internal/client"
	"github.com/Najib-Murshed-UWO/FinEdge/internal/config"
	"github.com/Najib-Murshed-UWO/FinEdge/internal/guard"
	"github.com/Najib-Murshed-UWO/FinEdge/pkg/output"
)

// Version is set at build time.
var Version = "0.1.0"

var errNotLoggedIn = errors.New("not logged in, run 'finedge login' first")

// app carries per-invocation state shared by every command.
type app struct {
	cfgFile string
	profile string
	format  string

	cfg     *config.Config
	logger  *logging.Logger
	printer *output.Printer
	client  *client.Client
}

// NewRootCmd builds a fresh command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "finedge",
		Short: "FinEdge banking CLI",
		Long: `finedge is the command-line client for FinEdge.

Log in once and the session is kept in the configured token store. Access
tokens are refreshed automatically when they expire.`,
		Version:           Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: $HOME/.finedge/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&a.profile, "profile", "", "credential profile to use")
	rootCmd.PersistentFlags().StringVarP(&a.format, "output", "o", output.FormatTable, "output format: table, json, yaml")

	rootCmd.AddCommand(
		a.loginCmd(),
		a.registerCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.refreshCmd(),
		a.accountsCmd(),
		a.transactionsCmd(),
		a.loansCmd(),
		a.notificationsCmd(),
		a.analyticsCmd(),
		a.devServerCmd(),
	)
	return rootCmd
}

// Execute runs the command tree and reports any error on stderr.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCmd()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		output.New(rootCmd.OutOrStdout(), rootCmd.ErrOrStderr(), output.FormatTable).Error("%v", err)
	}
	return err
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if a.profile != "" {
		cfg.Store.Profile = a.profile
	}
	a.cfg = cfg
	a.logger = logging.NewWithWriter(cmd.ErrOrStderr(), logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
	logging.SetDefault(a.logger)
	a.printer = output.New(cmd.OutOrStdout(), cmd.ErrOrStderr(), a.format)
	return nil
}

func (a *app) close() error {
	if a.client == nil {
		return nil
	}
	err := a.client.Close()
	a.client = nil
	return err
}

// session returns the wired client, building it on first use.
func (a *app) session(ctx context.Context) (*client.Client, error) {
	if a.client != nil {
		return a.client, nil
	}
	c, err := client.New(ctx, a.cfg, client.WithLogger(a.logger))
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	a.client = c
	return c, nil
}

// authorize restores the stored session and runs the route guard for roles.
// An empty roles list admits any signed-in user.
func (a *app) authorize(ctx context.Context, roles ...string) (*client.Client, error) {
	c, err := a.session(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.Session.Bootstrap(ctx); err != nil {
		return nil, err
	}

	g := guard.New(roles)
	decision, err := g.Await(ctx, c.Session)
	if err != nil {
		return nil, err
	}

	switch {
	case decision.Outcome == guard.Render:
		return c, nil
	case decision.Location == guard.LoginPath:
		return nil, errNotLoggedIn
	default:
		return nil, fmt.Errorf("this command requires role %s (signed in as %s)",
			strings.Join(roles, " or "), c.Session.User().Role)
	}
}

// authorized wraps a command body with authorize.
func (a *app) authorized(roles []string, run func(cmd *cobra.Command, c *client.Client, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		c, err := a.authorize(cmd.Context(), roles...)
		if err != nil {
			return err
		}
		return run(cmd, c, args)
	}
}

// render prints v as JSON or YAML when requested, otherwise as a table.
func (a *app) render(v any, headers []string, rows [][]string) error {
	handled, err := a.printer.Structured(v)
	if handled || err != nil {
		return err
	}
	a.printer.Table(headers, rows)
	return nil
}
