package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cory-johannsen/lootweight/internal/config"
	"github.com/cory-johannsen/lootweight/internal/content"
	"github.com/cory-johannsen/lootweight/internal/game/dice"
	"github.com/cory-johannsen/lootweight/internal/game/engine"
	"github.com/cory-johannsen/lootweight/internal/observability"
	"github.com/cory-johannsen/lootweight/internal/reload"
	"github.com/cory-johannsen/lootweight/internal/scripting"
	"github.com/cory-johannsen/lootweight/internal/server"
)

// rootOptions holds the global flags.
type rootOptions struct {
	configPath string
	contentDir string
	logLevel   string
	watch      bool

	cfg    config.Config
	logger *zap.Logger
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "lootsim",
		Short:         "Inspect and simulate rule-driven weighted loot tables",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML configuration file")
	cmd.PersistentFlags().StringVar(&opts.contentDir, "content", "", "content directory (overrides content.dir)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (overrides logging.level)")
	cmd.PersistentFlags().BoolVar(&opts.watch, "watch", false, "keep running and redo the command on content changes (overrides content.watch)")

	cmd.AddCommand(newValidateCommand(opts))
	cmd.AddCommand(newWeightsCommand(opts))
	cmd.AddCommand(newSimulateCommand(opts))
	cmd.AddCommand(newWatchCommand(opts))
	return cmd
}

func (o *rootOptions) setup() error {
	v := config.New()
	if o.configPath != "" {
		v.SetConfigFile(o.configPath)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file: %w", err)
		}
	}
	if o.contentDir != "" {
		v.Set("content.dir", o.contentDir)
	}
	if o.logLevel != "" {
		v.Set("logging.level", o.logLevel)
	}
	if o.watch {
		v.Set("content.watch", true)
	}
	cfg, err := config.LoadFromViper(v)
	if err != nil {
		return err
	}
	logger, err := observability.NewLogger(cfg.Logging, "lootsim")
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	o.cfg, o.logger = cfg, logger
	return nil
}

// loader builds a content loader whose random formulas draw from src.
func (o *rootOptions) loader(src dice.Source) *content.Loader {
	scripts := scripting.NewManager(o.cfg.Scripting.InstructionLimit, o.logger)
	return content.NewDefaultLoader(scripts, src, o.logger)
}

// load reads the configured content directory.
func (o *rootOptions) load(src dice.Source) (*engine.Snapshot, *content.Report, error) {
	return o.loader(src).LoadDir(o.cfg.Content.Dir)
}

// seed returns flagSeed, else the configured seed, else a fresh one.
func (o *rootOptions) seed(flagSeed int64) (int64, error) {
	if flagSeed != 0 {
		return flagSeed, nil
	}
	if o.cfg.Sampler.Seed != 0 {
		return o.cfg.Sampler.Seed, nil
	}
	return dice.NewSeed()
}

// serveContent publishes initial and republishes the content directory on
// every change until ctx is done or a signal arrives. onPublish, if set, runs
// after each republish.
func (o *rootOptions) serveContent(ctx context.Context, loader *content.Loader, initial *engine.Snapshot, onPublish func(*engine.Snapshot)) error {
	dir := o.cfg.Content.Dir
	load := func() (*engine.Snapshot, error) {
		snap, report, err := loader.LoadDir(dir)
		if err == nil && !report.OK() {
			o.logger.Warn("content loaded with issues", zap.Int("issues", len(report.Issues)))
		}
		return snap, err
	}
	ropts := []reload.Option{reload.WithDebounce(o.cfg.Content.Debounce)}
	if onPublish != nil {
		ropts = append(ropts, reload.OnPublish(onPublish))
	}
	w, err := reload.New(dir, engine.New(initial), load, o.logger, ropts...)
	if err != nil {
		return err
	}
	lc := server.NewLifecycle(o.logger)
	lc.Add("content-watcher", w)
	return lc.Run(ctx)
}
