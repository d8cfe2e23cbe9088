package cli

import (
	"fmt"

	"github.com/linsmod/webf/internal/infrastructure/config"
	"github.com/linsmod/webf/internal/logging"
	"github.com/spf13/cobra"
)

// flags shared by every command.
type globalFlags struct {
	configFile string
	dev        bool
	logLevel   string
}

func (g *globalFlags) register(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&g.configFile, "config", "c", "", "TOML or YAML config file, layered under the environment")
	cmd.PersistentFlags().BoolVar(&g.dev, "dev", false, "development logging (colored, debug level)")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "override the configured log level")
}

// load reads the configuration and builds the logger it describes.
func (g *globalFlags) load() (*config.Config, *logging.Logger, error) {
	cfg, err := config.LoadFile(g.configFile)
	if err != nil {
		return nil, nil, err
	}
	if g.dev {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
	}
	if g.logLevel != "" {
		cfg.Logging.Level = g.logLevel
	}

	logCfg := logging.DefaultConfig()
	if cfg.Logging.Development {
		logCfg = logging.DevelopmentConfig()
	}
	logCfg.Level = cfg.Logging.Level
	logCfg.File = cfg.Logging.File
	// stdout carries command output.
	logCfg.OutputPaths = []string{"stderr"}

	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, logger, nil
}
