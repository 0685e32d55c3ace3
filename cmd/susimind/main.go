// Command susimind talks to a rule base from the terminal and maintains
// the conversation logs.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cognicore/susimind/pkg/susimind"
	"github.com/cognicore/susimind/pkg/susimind/config"
)

type globalOptions struct {
	configPath string
	rules      []string
	backend    string
	memoryPath string
	language   string
	verbose    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:          "susimind",
		Short:        "Rule-based dialogue engine",
		Long:         "Ask a rule base questions, keep the conversations and look after the logs.",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Configuration file (YAML)")
	root.PersistentFlags().StringSliceVarP(&opts.rules, "rules", "r", nil, "Rule files or directories (overrides the configuration)")
	root.PersistentFlags().StringVar(&opts.backend, "memory", "", "Memory backend: file, sqlite or memory")
	root.PersistentFlags().StringVar(&opts.memoryPath, "memory-path", "", "Memory directory or database file")
	root.PersistentFlags().StringVarP(&opts.language, "lang", "l", "", "Language of the user")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Debug logging")

	root.AddCommand(
		newChatCmd(opts),
		newAskCmd(opts),
		newMemoriesCmd(opts),
		newCompactCmd(opts),
		newUnansweredCmd(opts),
		newSelfTestCmd(opts),
	)
	return root
}

// loadConfig reads the configuration file, if any, and applies the flags.
func (o *globalOptions) loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if len(o.rules) > 0 {
		cfg.Rules = o.rules
	}
	if o.backend != "" {
		cfg.Memory.Backend = o.backend
	}
	if o.memoryPath != "" {
		cfg.Memory.Path = o.memoryPath
	}
	if o.language != "" {
		cfg.Language = o.language
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (o *globalOptions) logger() (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if o.verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		zcfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	return zcfg.Build()
}

// openEngine builds the engine; the returned cleanup closes it and flushes
// the logger.
func (o *globalOptions) openEngine(ctx context.Context) (*susimind.Engine, func(), error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	log, err := o.logger()
	if err != nil {
		return nil, nil, err
	}
	engine, err := susimind.New(ctx, susimind.Options{Config: cfg, Logger: log})
	if err != nil {
		log.Sync()
		return nil, nil, err
	}
	cleanup := func() {
		if err := engine.Close(); err != nil {
			log.Warn("close engine", zap.Error(err))
		}
		log.Sync()
	}
	return engine, cleanup, nil
}
