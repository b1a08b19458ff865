package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// commandContext carries the loaded config and lazily built API client
// across subcommands.
type commandContext struct {
	configPath string
	cfg        *Config
	api        *apiClient
}

func (ctx *commandContext) load() error {
	if ctx.cfg != nil {
		return nil
	}
	path := ctx.configPath
	if path == "" {
		var err error
		path, err = defaultConfigPath()
		if err != nil {
			return err
		}
		ctx.configPath = path
	}

	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}
	ctx.cfg = cfg
	ctx.api = newAPIClient(cfg)
	return nil
}

func (ctx *commandContext) save() error {
	return saveConfig(ctx.configPath, ctx.cfg)
}

func (ctx *commandContext) requireSession() error {
	if ctx.cfg.AccessToken == "" {
		return fmt.Errorf("not logged in; run `cmctl login <email>` first")
	}
	return nil
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	root := &cobra.Command{
		Use:           "cmctl",
		Short:         "ClickMoment from the command line",
		Long:          "cmctl manages ClickMoment projects, uploads videos, and runs thumbnail-moment analysis.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return ctx.load()
		},
	}
	root.PersistentFlags().StringVar(&ctx.configPath, "config", "", "path to config file")

	root.AddCommand(newLoginCommand(ctx))
	root.AddCommand(newProjectsCommand(ctx))
	root.AddCommand(newProfileCommand(ctx))
	root.AddCommand(newAnalyzeCommand(ctx))
	return root
}
