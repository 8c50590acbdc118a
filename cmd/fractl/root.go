package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/rryowa/fra_portal/internal/bootstrap"
	"github.com/rryowa/fra_portal/internal/util"
)

type cli struct {
	out     io.Writer
	apiBase string
	verbose bool
	app     *bootstrap.App
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out}

	root := &cobra.Command{
		Use:           "fractl",
		Short:         "Command line client for the FRA claims portal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.open()
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			c.close()
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&c.apiBase, "api-base", "", "backend API base URL (overrides FRA_API_BASE)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		c.loginCmd(),
		c.logoutCmd(),
		c.statusCmd(),
		c.healthCmd(),
		c.claimsCmd(),
		c.scoreCmd(),
		c.batchCmd(),
		c.dashboardCmd(),
	)
	return root
}

func (c *cli) open() error {
	cfg, err := util.LoadConfig()
	if err != nil {
		return err
	}
	if c.apiBase != "" {
		cfg.Client.BaseURL = c.apiBase
	}

	level := ""
	if c.verbose {
		level = "debug"
	}
	app, err := bootstrap.New(cfg, util.NewStderrLogger(level))
	if err != nil {
		return err
	}
	c.app = app
	return nil
}

func (c *cli) close() {
	if c.app != nil {
		c.app.Close()
		c.app = nil
	}
}
